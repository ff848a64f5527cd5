package phantom

import (
	"fmt"
	"strings"
)

type keyUnion string

// UnionMeasures concatenates measure lists, the first measure of every name wins.
// Names are compared case-insensitively as the semantic model does.
func UnionMeasures(lists ...[]*Measure) []*Measure {
	size := 0
	for i := range lists {
		size += len(lists[i])
	}

	result := make([]*Measure, 0, size)
	index := make(map[keyUnion]struct{}, size)

	for i := range lists {
		for _, m := range lists[i] {
			if m == nil {
				continue
			}

			key := makeKeyUnionMeasure(m)
			if _, ok := index[key]; ok {
				continue
			}

			index[key] = struct{}{}
			result = append(result, m)
		}
	}

	return result
}

// UnionPreviewResponse union data struct PreviewResponse.
func UnionPreviewResponse(response ...*PreviewResponse) *PreviewResponse {
	if len(response) == 0 {
		return nil
	}

	size := 0
	for i := range response {
		if response[i] != nil {
			size += len(response[i].Rows)
		}
	}

	result := &PreviewResponse{
		Rows:  make([]*PreviewRow, 0, size),
		Total: 0,
	}

	index := make(map[keyUnion]int)

	for i := range response {
		r := response[i]
		if r == nil {
			continue
		}

		for j := range r.Rows {
			if r.Rows[j] == nil {
				continue
			}

			key := makeKeyUnionMap(r.Rows[j])
			if inx, ok := index[key]; ok {
				unionRowResponse(result.Rows[inx], r.Rows[j])
				continue
			}

			index[key] = len(result.Rows)
			result.Rows = append(result.Rows, copyRow(r.Rows[j]))
		}

		if r.Total > result.Total {
			result.Total = r.Total
		}
	}

	return result
}

func makeKeyUnionMeasure(m *Measure) keyUnion {
	return keyUnion(strings.ToLower(m.Name))
}

func makeKeyUnionMap(v *PreviewRow) keyUnion {
	return keyUnion(fmt.Sprintf("%v", v.Dimensions))
}

// copyRow returns row with its own dimension and metric maps.
func copyRow(v *PreviewRow) *PreviewRow {
	row := &PreviewRow{
		Dimensions: make(map[string]interface{}, len(v.Dimensions)),
		Metrics:    make(map[string]ValueNumber, len(v.Metrics)),
	}
	for k, d := range v.Dimensions {
		row.Dimensions[k] = d
	}
	for k, m := range v.Metrics {
		row.Metrics[k] = m
	}
	return row
}

func unionRowResponse(a, b *PreviewRow) {
	if a == nil || b == nil {
		return
	}

	if a.Metrics == nil {
		a.Metrics = make(map[string]ValueNumber, len(b.Metrics))
	}

	for k := range b.Metrics {
		a.Metrics[k] += b.Metrics[k]
	}
}
