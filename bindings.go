package phantom

import (
	"strings"
)

const (
	PropMetric     = "metric"
	PropOperation  = "operation"
	PropDimension  = "dimension"
	PropLegend     = "legend"
	PropTopN       = "topN"
	PropSort       = "sort"
	PropComparison = "comparison"
	PropTimeGrain  = "timeGrain"
	PropXMetric    = "xMetric"
	PropYMetric    = "yMetric"
	PropSizeMetric = "sizeMetric"
	PropBarMetric  = "barMetric"
	PropLineMetric = "lineMetric"
	PropColumns    = "columns"
	PropRows       = "rows"
	PropValues     = "values"
	PropMaxRows    = "maxRows"
	PropText       = "text"
)

// Comparison suffixes of prior-year and plan metrics.
const (
	SuffixPriorYear = "PY"
	SuffixPlan      = "PL"
)

var (
	categoricalProps = []string{PropMetric, PropOperation, PropDimension, PropLegend, PropTopN, PropSort}
	supportedProps   = map[VisualType][]string{
		VisualBar:           categoricalProps,
		VisualStackedBar:    categoricalProps,
		VisualColumn:        categoricalProps,
		VisualStackedColumn: categoricalProps,
		VisualPie:           categoricalProps,
		VisualDonut:         categoricalProps,
		VisualFunnel:        categoricalProps,
		VisualTreemap:       categoricalProps,
		VisualWaterfall:     categoricalProps,
		VisualLine:          {PropMetric, PropOperation, PropTimeGrain, PropLegend, PropComparison},
		VisualArea:          {PropMetric, PropOperation, PropTimeGrain, PropLegend, PropComparison},
		VisualCombo:         {PropBarMetric, PropLineMetric, PropOperation, PropDimension, PropTimeGrain},
		VisualCard:          {PropMetric, PropOperation, PropComparison},
		VisualGauge:         {PropMetric, PropOperation, PropComparison},
		VisualKPI:           {PropMetric, PropOperation, PropComparison, PropTimeGrain},
		VisualMultiCard:     {PropValues, PropOperation},
		VisualTable:         {PropColumns, PropValues, PropOperation, PropMaxRows, PropSort},
		VisualMatrix:        {PropRows, PropColumns, PropValues, PropOperation},
		VisualScatter:       {PropXMetric, PropYMetric, PropSizeMetric, PropDimension, PropOperation},
		VisualSlicer:        {PropDimension},
		VisualMap:           {PropMetric, PropOperation, PropDimension},
		VisualText:          {PropText},
	}
	defaultSupportedProps = []string{PropMetric, PropOperation, PropDimension}
)

// SupportedProps returns props keys consumed by the visual type.
func SupportedProps(t VisualType) []string {
	if props, ok := supportedProps[t]; ok {
		return props
	}
	return defaultSupportedProps
}

func supports(t VisualType, key string) bool {
	for _, k := range SupportedProps(t) {
		if k == key {
			return true
		}
	}
	return false
}

// consumed returns the prop value only when the visual type supports the key.
func (i *VisualItem) consumed() Props {
	result := make(Props, len(i.Props))
	for k, v := range i.Props {
		if supports(i.Type, k) {
			result[k] = v
		}
	}
	return result
}

type metricRef struct {
	metric    string
	operation Operation
}

// itemMetrics returns metric references of the item in props order.
func itemMetrics(item *VisualItem) []metricRef {
	props := item.consumed()
	op := ParseOperation(props.String(PropOperation))

	refs := make([]metricRef, 0, 4)
	add := func(metric string) {
		if metric = strings.TrimSpace(metric); metric != "" {
			refs = append(refs, metricRef{metric: metric, operation: op})
		}
	}

	add(props.String(PropMetric))
	for _, key := range []string{PropXMetric, PropYMetric, PropSizeMetric, PropBarMetric, PropLineMetric} {
		add(props.String(key))
	}
	for _, v := range props.Strings(PropValues) {
		add(v)
	}

	if suffix := comparisonSuffix(props.String(PropComparison)); suffix != "" {
		if metric := props.String(PropMetric); metric != "" && !isComparator(metric) {
			add(metric + suffix)
		}
	}

	return refs
}

func comparisonSuffix(comparison string) string {
	switch strings.ToLower(strings.TrimSpace(comparison)) {
	case "py", "prioryear", "prior_year", "yoy":
		return SuffixPriorYear
	case "pl", "plan", "budget", "target":
		return SuffixPlan
	default:
		return ""
	}
}

func isComparator(metric string) bool {
	return len(metric) > len(SuffixPriorYear) &&
		(strings.HasSuffix(metric, SuffixPriorYear) || strings.HasSuffix(metric, SuffixPlan))
}

// ExtractMetricBindings returns unique (metric, operation) bindings of all items in first-seen order.
// Unknown metrics are returned unresolved.
func ExtractMetricBindings(items []*VisualItem, scenario Scenario) []*Binding {
	schema, _ := SchemaFor(scenario)

	bindings := make([]*Binding, 0, len(items))
	index := make(map[metricRef]struct{}, len(items))

	for _, item := range items {
		if item == nil {
			continue
		}

		for _, ref := range itemMetrics(item) {
			if _, ok := index[ref]; ok {
				continue
			}
			index[ref] = struct{}{}

			b := &Binding{Metric: ref.metric, Operation: ref.operation}
			if schema != nil {
				if m, ok := schema.ResolveMetric(ref.metric); ok {
					b.Table, b.Column = m.Table, m.Column
				}
			}
			bindings = append(bindings, b)
		}
	}

	return bindings
}

// itemDimensions returns dimension names of the item in props order.
func itemDimensions(item *VisualItem, schema *Schema) []string {
	props := item.consumed()

	dims := make([]string, 0, 4)
	add := func(d string) {
		if d = strings.TrimSpace(d); d != "" {
			dims = append(dims, d)
		}
	}

	add(props.String(PropDimension))
	for _, key := range []string{PropRows, PropColumns} {
		for _, d := range props.Strings(key) {
			add(d)
		}
	}
	add(props.String(PropLegend))
	if props.String(PropTimeGrain) != "" && schema != nil {
		add(schema.TimeDimension)
	}

	return dims
}

// ExtractDimensionBindings returns unique dimension bindings of all items in first-seen order.
func ExtractDimensionBindings(items []*VisualItem, scenario Scenario) []*DimensionBinding {
	schema, _ := SchemaFor(scenario)

	bindings := make([]*DimensionBinding, 0, len(items))
	index := make(map[string]struct{}, len(items))

	for _, item := range items {
		if item == nil {
			continue
		}

		for _, d := range itemDimensions(item, schema) {
			if _, ok := index[d]; ok {
				continue
			}
			index[d] = struct{}{}

			b := &DimensionBinding{Dimension: d}
			if schema != nil {
				if t, c, ok := schema.ResolveDimension(d); ok {
					b.Table, b.Column = t.Name, c.Name
				}
			}
			bindings = append(bindings, b)
		}
	}

	return bindings
}
