package phantom

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateKPIMeasures(t *testing.T) {
	t.Parallel()

	for _, sc := range Scenarios() {
		sc := sc

		t.Run(string(sc), func(t *testing.T) {
			t.Parallel()

			measures := GenerateKPIMeasures(sc)
			require.Len(t, measures, 4)

			for _, m := range measures {
				require.Empty(t, m.Table, m.Name)
				require.Equal(t, "KPI", m.DisplayFolder)
				require.NotEmpty(t, m.FormatString)
				require.Equal(t, strings.Count(m.Expression, "("), strings.Count(m.Expression, ")"), m.Expression)
				require.NotContains(t, m.Expression, "/", "division must use DIVIDE: %s", m.Expression)
			}
		})
	}
}

func TestGenerateKPIMeasures_Retail(t *testing.T) {
	t.Parallel()

	measures := GenerateKPIMeasures(ScenarioRetail)
	require.Equal(t, &Measure{
		Name:          "Margin %",
		Expression:    "DIVIDE(SUM('Sales'[Profit]), SUM('Sales'[Revenue]))",
		FormatString:  "0.0%",
		DisplayFolder: "KPI",
	}, measures[0])
	require.Equal(t,
		"DIVIDE(SUM('Sales'[Revenue]) - SUM('Sales'[RevenuePY]), SUM('Sales'[RevenuePY]))",
		measures[1].Expression)
	require.Equal(t,
		"DIVIDE(SUM('Sales'[Revenue]), DISTINCTCOUNT('Stores'[StoreID]))",
		measures[2].Expression)

	require.Nil(t, GenerateKPIMeasures("Unknown"))
}
