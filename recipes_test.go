package phantom

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetRecipeForVisual_Bar(t *testing.T) {
	t.Parallel()

	tt := []struct {
		scenario  Scenario
		metric    string
		dimension string
	}{
		{scenario: ScenarioRetail, metric: "revenue", dimension: "Category"},
		{scenario: ScenarioSaaS, metric: "mrr", dimension: "Tier"},
		{scenario: ScenarioHR, dimension: "Department"},
		{scenario: ScenarioLogistics, dimension: "Status"},
		{scenario: ScenarioFinance, dimension: "BusinessUnit"},
		{scenario: ScenarioPortfolio, dimension: "Sector"},
		{scenario: ScenarioSocial, dimension: "Platform"},
	}

	for i := range tt {
		tc := tt[i]

		t.Run(string(tc.scenario), func(t *testing.T) {
			t.Parallel()

			r, err := GetRecipeForVisual(VisualBar, tc.scenario)
			require.NoError(t, err)
			require.Equal(t, tc.dimension, r.Dimension)
			require.Equal(t, OpSum, r.Operation)
			require.Equal(t, 10, r.TopN)
			require.Equal(t, "desc", r.Sort)
			if tc.metric != "" {
				require.Equal(t, tc.metric, r.Metric)
			}

			_, ok := mustSchema(t, tc.scenario).ResolveMetric(r.Metric)
			require.True(t, ok)
		})
	}
}

func TestGetRecipeForVisual_Comparison(t *testing.T) {
	t.Parallel()

	kpi, err := GetRecipeForVisual(VisualKPI, ScenarioRetail)
	require.NoError(t, err)
	require.Equal(t, SuffixPriorYear, kpi.Comparison)
	require.Equal(t, "month", kpi.TimeGrain)

	gauge, err := GetRecipeForVisual(VisualGauge, ScenarioRetail)
	require.NoError(t, err)
	require.Equal(t, SuffixPlan, gauge.Comparison)

	// HR plans salary but has no prior year.
	hr, err := GetRecipeForVisual(VisualKPI, ScenarioHR)
	require.NoError(t, err)
	require.Equal(t, mustSchema(t, ScenarioHR).comparisonFor(hr.Metric, SuffixPriorYear, SuffixPlan), hr.Comparison)

	_, err = GetRecipeForVisual(VisualKPI, "Unknown")
	require.ErrorIs(t, err, ErrUnknownScenario)

	unknown, err := GetRecipeForVisual("sankey", ScenarioRetail)
	require.NoError(t, err)
	require.Equal(t, &Recipe{}, unknown)
}

func TestRecipe_Props(t *testing.T) {
	t.Parallel()

	r := &Recipe{
		Metric: "revenue", Operation: OpSum, Dimension: "Category",
		Values: []string{"revenue", "profit"}, TopN: 10, Sort: "desc", MaxRows: 25,
	}

	require.Equal(t, Props{
		PropMetric: "revenue", PropOperation: "sum", PropDimension: "Category",
		PropTopN: float64(10), PropSort: "desc",
	}, r.Props(VisualBar))

	require.Equal(t, Props{
		PropValues: []interface{}{"revenue", "profit"}, PropOperation: "sum",
		PropMaxRows: float64(25), PropSort: "desc",
	}, r.Props(VisualTable))

	require.Equal(t, Props{PropDimension: "Category"}, r.Props(VisualSlicer))
}

func TestNewVisualItem(t *testing.T) {
	t.Parallel()

	for _, sc := range Scenarios() {
		for vt := range visualTypes {
			item, err := NewVisualItem("v", vt, sc, Layout{W: 4, H: 3})
			require.NoError(t, err)
			require.Equal(t, vt, item.Type)

			for _, b := range ExtractMetricBindings([]*VisualItem{item}, sc) {
				require.True(t, b.Resolved(), "%s %s: %s", sc, vt, b.Metric)
			}
			for _, d := range ExtractDimensionBindings([]*VisualItem{item}, sc) {
				require.NotEmpty(t, d.Table, "%s %s: %s", sc, vt, d.Dimension)
			}

			if vt != VisualText {
				require.NotEmpty(t, item.Title, "%s %s", sc, vt)
			}
		}
	}

	item, err := NewVisualItem("bar", VisualBar, ScenarioRetail, Layout{W: 6, H: 4})
	require.NoError(t, err)
	require.Equal(t, "Revenue by Category", item.Title)
}
