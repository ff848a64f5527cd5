package phantom

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPreviewRequestsFor(t *testing.T) {
	t.Parallel()

	filters := []*Filter{{Dimension: "Region", Values: []interface{}{"North"}}}

	tt := []struct {
		name     string
		item     *VisualItem
		state    *State
		expected []*PreviewRequest
	}{
		{
			name: "bar",
			item: &VisualItem{ID: "v1", Type: VisualBar, Props: Props{
				PropMetric: "revenue", PropDimension: "Category", PropTopN: 5, PropSort: "DESC",
			}},
			state: &State{Filters: filters},
			expected: []*PreviewRequest{
				{
					Table:    "Sales",
					Groups:   []string{"Category"},
					Bindings: []*Binding{{Metric: "revenue", Operation: OpSum, Table: "Sales", Column: "Revenue"}},
					Filters:  filters,
					SortBy:   []*PreviewOrder{{Key: "Total revenue", Direction: "descending"}},
					Limit:    5,
				},
			},
		},
		{
			name: "table split by binding table",
			item: &VisualItem{ID: "v2", Type: VisualTable, Props: Props{
				PropColumns:   []interface{}{"StoreID", "Region"},
				PropValues:    []interface{}{"revenue", "staff", "unknown"},
				PropOperation: "avg",
				PropMaxRows:   20.0,
			}},
			expected: []*PreviewRequest{
				{
					Table:    "Sales",
					Groups:   []string{"StoreID"},
					Bindings: []*Binding{{Metric: "revenue", Operation: OpAvg, Table: "Sales", Column: "Revenue"}},
					Limit:    20,
				},
				{
					Table:    "Stores",
					Groups:   []string{"StoreID", "Region"},
					Bindings: []*Binding{{Metric: "staff", Operation: OpAvg, Table: "Stores", Column: "Staff"}},
					Limit:    20,
				},
			},
		},
		{
			name: "slicer counts rows",
			item: &VisualItem{ID: "v3", Type: VisualSlicer, Props: Props{PropDimension: "Region"}},
			expected: []*PreviewRequest{
				{Table: "Stores", Groups: []string{"Region"}},
			},
		},
	}

	for i := range tt {
		tc := tt[i]

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			requests, err := PreviewRequestsFor(tc.item, ScenarioRetail, tc.state)
			require.NoError(t, err)
			require.Equal(t, tc.expected, requests)
		})
	}
}

func TestPreviewRequestsFor_Unsupported(t *testing.T) {
	t.Parallel()

	_, err := PreviewRequestsFor(&VisualItem{ID: "t", Type: VisualText}, ScenarioRetail, nil)
	require.ErrorIs(t, err, ErrPreviewUnsupported)

	_, err = PreviewRequestsFor(nil, ScenarioRetail, nil)
	require.ErrorIs(t, err, ErrPreviewUnsupported)

	_, err = PreviewRequestsFor(&VisualItem{ID: "c", Type: VisualCard, Props: Props{PropMetric: "unknown"}}, ScenarioRetail, nil)
	require.ErrorIs(t, err, ErrPreviewUnsupported)

	_, err = PreviewRequestsFor(&VisualItem{ID: "c", Type: VisualCard}, "Unknown", nil)
	require.ErrorIs(t, err, ErrUnknownScenario)
}
