package phantom

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestLineageTag(t *testing.T) {
	t.Parallel()

	a := LineageTag("Retail_Dashboard", "Sales")
	require.Equal(t, a, LineageTag("Retail_Dashboard", "Sales"))
	require.NotEqual(t, a, LineageTag("Retail_Dashboard", "Stores"))
	require.NotEqual(t, a, LineageTag("HR_Dashboard", "Sales"))

	id, err := uuid.Parse(a)
	require.NoError(t, err)
	require.Equal(t, uuid.Version(5), id.Version())
}

func TestRouteMeasures(t *testing.T) {
	t.Parallel()

	schema := mustSchema(t, ScenarioRetail)
	staff := &Measure{Name: "Total staff", Table: "Stores"}
	kpi := &Measure{Name: "Average Basket", DisplayFolder: "KPI"}
	lost := &Measure{Name: "Total x", Table: "Warehouse"}

	routes := RouteMeasures([]*Measure{staff, nil, kpi, lost}, schema)

	require.Equal(t, map[string][]*Measure{
		"Stores": {staff},
		"Sales":  {kpi, lost},
	}, routes)
}

func TestRenderTable(t *testing.T) {
	t.Parallel()

	table := &Table{Name: "Stores", Columns: []*Column{text("StoreID"), whole("Staff"), money("Rent")}}
	measures := []*Measure{
		{Name: "Total staff", Expression: "SUM('Stores'[Staff])", FormatString: "#,##0"},
		{Name: "Staff ΔPY", Expression: "VAR a = 1\nRETURN a", DisplayFolder: "Variance"},
		{Name: "Empty"},
	}
	rows := []Row{
		{"StoreID": "s-1", "Staff": 4, "Rent": 1200.5},
		{"StoreID": `a"b`},
	}

	actual := RenderTable("Retail_Dashboard", table, measures, rows)
	require.Equal(t, actual, RenderTable("Retail_Dashboard", table, measures, rows))

	fragments := []string{
		"table 'Stores'\n\tlineageTag: " + LineageTag("Retail_Dashboard", "Stores") + "\n\n",
		"\tcolumn 'StoreID'\n\t\tdataType: string\n\t\tlineageTag: " +
			LineageTag("Retail_Dashboard", "Stores", "column", "StoreID") +
			"\n\t\tsummarizeBy: none\n\t\tsourceColumn: StoreID\n\n\t\tannotation SummarizationSetBy = Automatic\n",
		"\tcolumn 'Staff'\n\t\tdataType: int64\n\t\tformatString: 0\n",
		"\tcolumn 'Rent'\n\t\tdataType: double\n\t\tformatString: $#,##0\n",
		"\t\tsummarizeBy: sum\n",
		"\tmeasure 'Total staff' = SUM('Stores'[Staff])\n\t\tformatString: #,##0\n\t\tlineageTag: " +
			LineageTag("Retail_Dashboard", "Stores", "measure", "total staff") + "\n",
		"\tmeasure 'Staff ΔPY' = ```\n\t\t\tVAR a = 1\n\t\t\tRETURN a\n\t\t\t```\n\t\tdisplayFolder: Variance\n",
		"\tmeasure 'Empty' = BLANK()\n",
		"\tpartition 'Stores' = m\n\t\tmode: import\n\t\tsource =\n\t\t\t\tlet\n",
		"\t\t\t\t\tSource = #table(type table [StoreID = text, Staff = Int64.Type, Rent = number], " +
			`{{"s-1", 4, 1200.5}, {"a""b", null, null}})` + "\n\t\t\t\tin\n\t\t\t\t\tSource\n",
		"\tannotation PBI_ResultType = Table\n",
	}
	for _, f := range fragments {
		require.Contains(t, actual, f)
	}
	require.True(t, strings.HasSuffix(actual, "\tannotation PBI_ResultType = Table\n"))
	require.Less(t, strings.Index(actual, "column 'Rent'"), strings.Index(actual, "measure 'Total staff'"))
	require.Less(t, strings.Index(actual, "measure 'Empty'"), strings.Index(actual, "partition 'Stores'"))
}

func TestRenderTable_Empty(t *testing.T) {
	t.Parallel()

	table := &Table{Name: "O'Brien", Columns: []*Column{text("Store ID")}}

	actual := RenderTable("P", table, nil, nil)
	require.Contains(t, actual, "table 'O''Brien'\n")
	require.Contains(t, actual, "partition 'O''Brien' = m\n")
	require.Contains(t, actual, `Source = #table(type table [#"Store ID" = text], {})`)
	require.NotContains(t, actual, "measure ")
}

func TestMLiteral(t *testing.T) {
	t.Parallel()

	tt := []struct {
		name     string
		dataType DataType
		value    interface{}
		expected string
	}{
		{name: "nil", dataType: DataTypeString, value: nil, expected: "null"},
		{name: "string", dataType: DataTypeString, value: `say "hi"`, expected: `"say ""hi"""`},
		{name: "string of number", dataType: DataTypeString, value: 7, expected: `"7"`},
		{name: "int rounds", dataType: DataTypeInt64, value: 4.6, expected: "5"},
		{name: "int from string", dataType: DataTypeInt64, value: "12", expected: "12"},
		{name: "int invalid", dataType: DataTypeInt64, value: "abc", expected: "null"},
		{name: "double", dataType: DataTypeDouble, value: 2.5, expected: "2.5"},
		{name: "double int", dataType: DataTypeDouble, value: int32(3), expected: "3"},
		{name: "double nan", dataType: DataTypeDouble, value: math.NaN(), expected: "null"},
		{name: "double inf", dataType: DataTypeDouble, value: math.Inf(1), expected: "null"},
		{name: "date", dataType: DataTypeDateTime, value: "2024-03-01", expected: "#datetime(2024, 3, 1, 0, 0, 0)"},
		{
			name: "time", dataType: DataTypeDateTime,
			value:    time.Date(2021, 5, 4, 10, 30, 15, 0, time.UTC),
			expected: "#datetime(2021, 5, 4, 10, 30, 15)",
		},
		{name: "date invalid", dataType: DataTypeDateTime, value: "yesterday", expected: "null"},
		{name: "bool", dataType: DataTypeBoolean, value: true, expected: "true"},
		{name: "bool invalid", dataType: DataTypeBoolean, value: "true", expected: "null"},
	}

	for i := range tt {
		tc := tt[i]

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			require.Equal(t, tc.expected, mLiteral(tc.dataType, tc.value))
		})
	}
}

func TestMIdentifier(t *testing.T) {
	t.Parallel()

	require.Equal(t, "Revenue", mIdentifier("Revenue"))
	require.Equal(t, "Revenue_PY2", mIdentifier("Revenue_PY2"))
	require.Equal(t, `#"Store ID"`, mIdentifier("Store ID"))
	require.Equal(t, `#"1st"`, mIdentifier("1st"))
	require.Equal(t, `#"a""b"`, mIdentifier(`a"b`))
}

func TestRenderDatabase(t *testing.T) {
	t.Parallel()

	require.Equal(t, "database\n\tcompatibilityLevel: 1567\n", RenderDatabase())
}

func TestRenderModel(t *testing.T) {
	t.Parallel()

	actual := RenderModel(mustSchema(t, ScenarioRetail))

	require.True(t, strings.HasPrefix(actual, "model Model\n\tculture: en-US\n"))
	require.Contains(t, actual, "annotation PBI_QueryOrder = [\"Sales\",\"Stores\"]\n")
	require.True(t, strings.HasSuffix(actual, "ref table 'Sales'\nref table 'Stores'\n"))
}

func TestRenderRelationships(t *testing.T) {
	t.Parallel()

	schema := &Schema{
		Tables: []*Table{{Name: "B"}, {Name: "A"}, {Name: "D"}},
		Relationships: []*Relationship{
			{FromTable: "B", FromColumn: "DID", ToTable: "D", ToColumn: "ID"},
			{FromTable: "A", FromColumn: "DID", ToTable: "D", ToColumn: "ID"},
		},
	}

	expected := "relationship " + LineageTag("P", "relationship", "A", "DID", "D", "ID") + "\n" +
		"\tfromColumn: 'A'.'DID'\n" +
		"\ttoColumn: 'D'.'ID'\n" +
		"\n" +
		"relationship " + LineageTag("P", "relationship", "B", "DID", "D", "ID") + "\n" +
		"\tfromColumn: 'B'.'DID'\n" +
		"\ttoColumn: 'D'.'ID'\n"

	require.Equal(t, expected, RenderRelationships("P", schema))
	require.Equal(t, "B", schema.Relationships[0].FromTable)

	require.Empty(t, RenderRelationships("P", &Schema{Tables: []*Table{{Name: "A"}}}))
}
