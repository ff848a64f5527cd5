package phantom

import (
	"context"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func retailSnapshot() *State {
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	return &State{
		Data: map[string][]Row{
			"Sales": {
				{"Date": day, "OrderID": "o-1", "StoreID": "s-1", "Category": "Bikes", "Revenue": 1200.5, "Quantity": 2},
				{"Date": day, "OrderID": "o-2", "StoreID": "s-1", "Category": "Bikes", "Revenue": 800, "Quantity": 1},
				{"Date": day, "OrderID": "o-3", "StoreID": "s-2", "Category": "Helmets", "Revenue": 150, "Quantity": 3},
				{"Date": day, "OrderID": "o-4", "StoreID": "s-2", "Category": "Gloves", "Revenue": 45, "Quantity": 5},
			},
			"Stores": {
				{"StoreID": "s-1", "StoreName": "Downtown", "Region": "North", "Staff": 12},
				{"StoreID": "s-2", "StoreName": "Harbor", "Region": "South", "Staff": 5},
			},
		},
	}
}

func TestExporter_Preview(t *testing.T) {
	t.Parallel()

	exporter := NewExporter(WithPreviewStore(SnapshotPreviewStore("sqlite3", ":memory:")))

	tt := []struct {
		name     string
		item     *VisualItem
		state    *State
		expected *PreviewResponse
	}{
		{
			name: "top categories",
			item: &VisualItem{ID: "bar", Type: VisualBar, Props: Props{
				PropMetric: "revenue", PropDimension: "Category", PropTopN: 2.0, PropSort: "desc",
			}},
			state: retailSnapshot(),
			expected: &PreviewResponse{
				Rows: []*PreviewRow{
					{Dimensions: map[string]interface{}{"Category": "Bikes"}, Metrics: map[string]ValueNumber{"Total revenue": 2000.5}},
					{Dimensions: map[string]interface{}{"Category": "Helmets"}, Metrics: map[string]ValueNumber{"Total revenue": 150}},
				},
				Total: 3,
			},
		},
		{
			name: "filtered",
			item: &VisualItem{ID: "bar", Type: VisualBar, Props: Props{
				PropMetric: "quantity", PropDimension: "Category", PropSort: "asc",
			}},
			state: func() *State {
				s := retailSnapshot()
				s.Filters = []*Filter{{Dimension: "Category", Condition: CondNotEq, Values: []interface{}{"Bikes"}}}
				return s
			}(),
			expected: &PreviewResponse{
				Rows: []*PreviewRow{
					{Dimensions: map[string]interface{}{"Category": "Helmets"}, Metrics: map[string]ValueNumber{"Total quantity": 3}},
					{Dimensions: map[string]interface{}{"Category": "Gloves"}, Metrics: map[string]ValueNumber{"Total quantity": 5}},
				},
				Total: 2,
			},
		},
		{
			name: "union of tables",
			item: &VisualItem{ID: "tbl", Type: VisualTable, Props: Props{
				PropColumns: []interface{}{"StoreID"},
				PropValues:  []interface{}{"revenue", "staff"},
			}},
			state: retailSnapshot(),
			expected: &PreviewResponse{
				Rows: []*PreviewRow{
					{Dimensions: map[string]interface{}{"StoreID": "s-1"}, Metrics: map[string]ValueNumber{"Total revenue": 2000.5, "Total staff": 12}},
					{Dimensions: map[string]interface{}{"StoreID": "s-2"}, Metrics: map[string]ValueNumber{"Total revenue": 195, "Total staff": 5}},
				},
				Total: 2,
			},
		},
	}

	for i := range tt {
		tc := tt[i]

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			resp, err := exporter.Preview(context.Background(), tc.item, ScenarioRetail, tc.state)
			require.NoError(t, err)
			require.Equal(t, tc.expected.Total, resp.Total)
			require.ElementsMatch(t, tc.expected.Rows, resp.Rows)
		})
	}
}

func TestExporter_PreviewWithoutStore(t *testing.T) {
	t.Parallel()

	item := &VisualItem{ID: "card", Type: VisualCard, Props: Props{PropMetric: "revenue"}}
	_, err := NewExporter().Preview(context.Background(), item, ScenarioRetail, nil)
	require.ErrorIs(t, err, ErrPreviewUnsupported)
}

func TestExporter_Export(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.InfoLevel)
	exporter := NewExporter(WithLogger(zap.New(core)))

	items := []*VisualItem{
		{ID: "card", Type: VisualCard, Layout: Layout{W: 3, H: 2}, Props: Props{PropMetric: "revenue"}},
		{ID: "ghost", Type: VisualCard, Layout: Layout{X: 3, W: 3, H: 2}, Props: Props{PropMetric: "footfall"}},
	}

	pkg, err := exporter.Export(items, ScenarioRetail, nil)
	require.NoError(t, err)
	require.Equal(t, "PhantomRetail", pkg.ProjectName)
	require.NotEmpty(t, pkg.Blob)

	require.Equal(t, 1, logs.FilterMessage("unresolved metric binding, blank measure emitted").Len())
	require.Equal(t, 1, logs.FilterMessage("package exported").Len())

	_, err = exporter.Export(items, "Unknown", nil)
	require.ErrorIs(t, err, ErrUnknownScenario)

	measures, err := exporter.Measures(items, ScenarioRetail)
	require.NoError(t, err)
	require.Equal(t, pkg.Measures, measures)

	recipe, err := exporter.Recipe(VisualCard, ScenarioRetail)
	require.NoError(t, err)
	require.Equal(t, &Recipe{Metric: "revenue", Operation: OpSum}, recipe)
}
