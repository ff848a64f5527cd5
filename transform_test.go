package phantom

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_UnionPreviewResponse(t *testing.T) {
	t.Parallel()

	tt := []struct {
		name     string
		input    []*PreviewResponse
		expected *PreviewResponse
	}{
		{
			name: "empty",
		},
		{
			name:     "nil responses",
			input:    []*PreviewResponse{nil, nil},
			expected: &PreviewResponse{Rows: []*PreviewRow{}},
		},
		{
			name: "base union",
			input: []*PreviewResponse{
				{
					Rows: []*PreviewRow{
						{
							Dimensions: map[string]interface{}{"Category": "Bikes"},
							Metrics:    map[string]ValueNumber{"Total revenue": 100},
						},
					},
					Total: 1,
				},
				nil,
				{
					Rows: []*PreviewRow{
						{
							Dimensions: map[string]interface{}{"Category": "Bikes"},
							Metrics:    map[string]ValueNumber{"Total staff": 4},
						},
						{
							Dimensions: map[string]interface{}{"Category": "Helmets"},
							Metrics:    map[string]ValueNumber{"Total staff": 2},
						},
					},
					Total: 2,
				},
			},
			expected: &PreviewResponse{
				Rows: []*PreviewRow{
					{
						Dimensions: map[string]interface{}{"Category": "Bikes"},
						Metrics:    map[string]ValueNumber{"Total revenue": 100, "Total staff": 4},
					},
					{
						Dimensions: map[string]interface{}{"Category": "Helmets"},
						Metrics:    map[string]ValueNumber{"Total staff": 2},
					},
				},
				Total: 2,
			},
		},
	}

	for i := range tt {
		tc := tt[i]

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			c := UnionPreviewResponse(tc.input...)
			require.Equal(t, tc.expected, c)
		})
	}
}

func Test_UnionPreviewResponse_ReadOnlyInputs(t *testing.T) {
	t.Parallel()

	first := &PreviewResponse{
		Rows: []*PreviewRow{
			{
				Dimensions: map[string]interface{}{"Category": "Bikes"},
				Metrics:    map[string]ValueNumber{"Total revenue": 100},
			},
			nil,
		},
		Total: 1,
	}
	second := &PreviewResponse{
		Rows: []*PreviewRow{
			{
				Dimensions: map[string]interface{}{"Category": "Bikes"},
				Metrics:    map[string]ValueNumber{"Total revenue": 50, "Total staff": 4},
			},
		},
		Total: 1,
	}

	c := UnionPreviewResponse(first, second)
	require.Equal(t, []*PreviewRow{
		{
			Dimensions: map[string]interface{}{"Category": "Bikes"},
			Metrics:    map[string]ValueNumber{"Total revenue": 150, "Total staff": 4},
		},
	}, c.Rows)

	require.Equal(t, map[string]ValueNumber{"Total revenue": 100}, first.Rows[0].Metrics)
	require.Equal(t, map[string]ValueNumber{"Total revenue": 50, "Total staff": 4}, second.Rows[0].Metrics)
	require.NotSame(t, first.Rows[0], c.Rows[0])

	c.Rows[0].Dimensions["Category"] = "Helmets"
	require.Equal(t, "Bikes", first.Rows[0].Dimensions["Category"])

	again := UnionPreviewResponse(first, second)
	require.Equal(t, ValueNumber(150), again.Rows[0].Metrics["Total revenue"])
}

func Test_UnionMeasures(t *testing.T) {
	t.Parallel()

	first := &Measure{Name: "Total revenue", Expression: "SUM('Sales'[Revenue])"}
	second := &Measure{Name: "total REVENUE", Expression: "BLANK()"}
	kpi := &Measure{Name: "Gross Margin %", Expression: "DIVIDE(1, 2)"}

	tt := []struct {
		name     string
		input    [][]*Measure
		expected []*Measure
	}{
		{
			name:     "empty",
			expected: []*Measure{},
		},
		{
			name:     "first name wins case-insensitively",
			input:    [][]*Measure{{first, nil}, {second, kpi}},
			expected: []*Measure{first, kpi},
		},
		{
			name:     "order kept",
			input:    [][]*Measure{{kpi}, {first}},
			expected: []*Measure{kpi, first},
		},
	}

	for i := range tt {
		tc := tt[i]

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			require.Equal(t, tc.expected, UnionMeasures(tc.input...))
		})
	}
}
