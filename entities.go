package phantom

import (
	"fmt"
	"strconv"
)

// VisualType selects one of the supported visual kinds.
type VisualType string

const (
	VisualBar           VisualType = "bar"
	VisualStackedBar    VisualType = "stackedBar"
	VisualColumn        VisualType = "column"
	VisualStackedColumn VisualType = "stackedColumn"
	VisualLine          VisualType = "line"
	VisualArea          VisualType = "area"
	VisualCombo         VisualType = "combo"
	VisualCard          VisualType = "card"
	VisualMultiCard     VisualType = "multiCard"
	VisualKPI           VisualType = "kpi"
	VisualGauge         VisualType = "gauge"
	VisualTable         VisualType = "table"
	VisualMatrix        VisualType = "matrix"
	VisualScatter       VisualType = "scatter"
	VisualPie           VisualType = "pie"
	VisualDonut         VisualType = "donut"
	VisualWaterfall     VisualType = "waterfall"
	VisualFunnel        VisualType = "funnel"
	VisualTreemap       VisualType = "treemap"
	VisualSlicer        VisualType = "slicer"
	VisualMap           VisualType = "map"
	VisualText          VisualType = "text"
)

// Layout is a grid rectangle in grid units.
type Layout struct {
	X int `json:"x" validate:"min=0"`
	Y int `json:"y" validate:"min=0"`
	W int `json:"w" validate:"min=1"`
	H int `json:"h" validate:"min=1"`
}

// Props is the type-dependent configuration of a visual item.
// Keys a visual type does not consume are kept untouched.
type Props map[string]interface{}

// String returns props value by key as string.
func (p Props) String(key string) string {
	v, ok := p[key]
	if !ok || v == nil {
		return ""
	}

	switch tv := v.(type) {
	case string:
		return tv
	case fmt.Stringer:
		return tv.String()
	default:
		return fmt.Sprintf("%v", tv)
	}
}

// Int returns props value by key as int, zero if absent or not numeric.
func (p Props) Int(key string) int {
	switch tv := p[key].(type) {
	case int:
		return tv
	case int64:
		return int(tv)
	case float64:
		return int(tv)
	case string:
		n, err := strconv.Atoi(tv)
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

// Strings returns props value by key as list of strings.
// A single string value is returned as one element list.
func (p Props) Strings(key string) []string {
	switch tv := p[key].(type) {
	case []string:
		return tv
	case string:
		if tv == "" {
			return nil
		}
		return []string{tv}
	case []interface{}:
		result := make([]string, 0, len(tv))
		for i := range tv {
			if s, ok := tv[i].(string); ok && s != "" {
				result = append(result, s)
			}
		}
		return result
	default:
		return nil
	}
}

// VisualItem one placed dashboard element.
type VisualItem struct {
	ID     string     `json:"id" validate:"required"`
	Type   VisualType `json:"type" validate:"required"`
	Title  string     `json:"title,omitempty"`
	Layout Layout     `json:"layout"`
	Props  Props      `json:"props,omitempty"`
}

// Operation is an aggregation applied to a metric.
type Operation string

const (
	OpSum   Operation = "sum"
	OpAvg   Operation = "avg"
	OpCount Operation = "count"
	OpMin   Operation = "min"
	OpMax   Operation = "max"
)

// ParseOperation returns known operation or OpSum.
func ParseOperation(s string) Operation {
	switch op := Operation(s); op {
	case OpSum, OpAvg, OpCount, OpMin, OpMax:
		return op
	case "average", "mean":
		return OpAvg
	default:
		return OpSum
	}
}

// Binding is a deduplicated (metric, operation) pair resolved against the scenario schema.
// Table and Column are empty when the metric is unknown to the schema.
type Binding struct {
	Metric    string    `json:"metric"`
	Operation Operation `json:"operation"`
	Table     string    `json:"table,omitempty"`
	Column    string    `json:"column,omitempty"`
}

// Resolved reports whether the binding points to a physical column.
func (b *Binding) Resolved() bool {
	return b.Table != "" && b.Column != ""
}

// DimensionBinding is a categorical or time field used by a visual.
type DimensionBinding struct {
	Dimension string `json:"dimension"`
	Table     string `json:"table,omitempty"`
	Column    string `json:"column,omitempty"`
}

// Measure DAX measure definition.
type Measure struct {
	Name          string `json:"name"`
	Expression    string `json:"expression"`
	FormatString  string `json:"formatString"`
	Table         string `json:"table,omitempty"`
	DisplayFolder string `json:"displayFolder,omitempty"`
}

// Row one record of the scenario dataset keyed by column name.
type Row map[string]interface{}

// Filter restricts a dimension to a set of values.
type Filter struct {
	Dimension string        `json:"dimension" validate:"required"`
	Condition Condition     `json:"condition,omitempty"`
	Values    []interface{} `json:"values"`
}

// Highlight is the cross-highlight selection active in the editor.
type Highlight struct {
	ItemID    string `json:"itemId"`
	Dimension string `json:"dimension"`
	Value     string `json:"value"`
}

// State is a read-only snapshot of the editor store.
type State struct {
	Filters   []*Filter        `json:"filters,omitempty"`
	Highlight *Highlight       `json:"highlight,omitempty"`
	Data      map[string][]Row `json:"data,omitempty"`
	Theme     string           `json:"theme,omitempty"`
}

func (s *State) rows(table string) []Row {
	if s == nil || s.Data == nil {
		return nil
	}
	return s.Data[table]
}

func (s *State) filters() []*Filter {
	if s == nil {
		return nil
	}
	return s.Filters
}

// Rect absolute pixel geometry.
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// PreviewRow one grouped row of a preview response.
type PreviewRow struct {
	Dimensions map[string]interface{} `json:"dimensions"`
	Metrics    map[string]ValueNumber `json:"metrics"`
}

// PreviewResponse grouped rows with total count of groups.
type PreviewResponse struct {
	Rows  []*PreviewRow `json:"rows"`
	Total uint64        `json:"total"`
}

// ValueResponse distinct value of dimensions with rows count.
type ValueResponse struct {
	Name  []interface{} `json:"name"`
	Key   []interface{} `json:"key"`
	Count ValueNumber   `json:"count"`
}

// ValueNumber numeric value of an aggregated metric.
type ValueNumber float64

// PreviewOrder sort of the preview rows.
type PreviewOrder struct {
	Key       string
	Direction string
}

// PreviewRequest query for the preview repository.
type PreviewRequest struct {
	Table    string
	Groups   []string
	Bindings []*Binding
	Filters  []*Filter
	SortBy   []*PreviewOrder
	Limit    int
	Offset   int
}
