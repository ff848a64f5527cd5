package phantom

import (
	"fmt"
	"strings"
)

const (
	blankExpression = "BLANK()"

	folderVariance = "Variance"
	folderKPI      = "KPI"
)

// OperationLabel returns the measure name prefix of the operation.
func OperationLabel(op Operation) string {
	switch op {
	case OpAvg:
		return "Avg "
	case OpCount:
		return "Count of "
	case OpMin:
		return "Min "
	case OpMax:
		return "Max "
	default:
		return "Total "
	}
}

// MeasureName returns the display name of a base measure, metric case is preserved.
func MeasureName(op Operation, metric string) string {
	return OperationLabel(op) + metric
}

// aggregateFunc returns the DAX aggregation of the operation.
func aggregateFunc(op Operation) string {
	switch op {
	case OpAvg:
		return "AVERAGE"
	case OpCount:
		return "COUNTROWS"
	case OpMin:
		return "MIN"
	case OpMax:
		return "MAX"
	default:
		return "SUM"
	}
}

func quoteTable(table string) string {
	return "'" + strings.ReplaceAll(table, "'", "''") + "'"
}

// columnRef returns DAX reference to a column: 'Table'[Column].
func columnRef(table, column string) string {
	return quoteTable(table) + "[" + strings.ReplaceAll(column, "]", "]]") + "]"
}

// measureRef returns DAX reference to a measure: [Name].
func measureRef(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}

// countsDistinct reports whether op over a column of type t aggregates as a distinct count.
// Identifier columns like OrderID are only countable, dates also keep MIN and MAX.
func countsDistinct(op Operation, t DataType) bool {
	switch {
	case op == OpCount, t.IsNumeric():
		return false
	case t == DataTypeDateTime:
		return op != OpMin && op != OpMax
	default:
		return true
	}
}

// BaseExpression returns DAX aggregation of the binding, BLANK() when unresolved.
// Non-numeric columns of the schema are counted with DISTINCTCOUNT.
func BaseExpression(b *Binding, schema *Schema) string {
	if !b.Resolved() {
		return blankExpression
	}
	if b.Operation == OpCount {
		return rowsOf(b.Table)
	}
	if c, ok := schema.ColumnOf(b.Table, b.Column); ok && countsDistinct(b.Operation, c.DataType) {
		return distinctOf(b.Table, b.Column)
	}
	return fmt.Sprintf("%s(%s)", aggregateFunc(b.Operation), columnRef(b.Table, b.Column))
}

func bindingFormat(b *Binding, schema *Schema) string {
	if b.Operation == OpCount {
		return FormatNumber.FormatString()
	}
	if schema == nil {
		return guessFormat(b.Metric).FormatString()
	}
	return schema.FormatOf(b.Metric).FormatString()
}

// GenerateBaseMeasures returns one aggregation measure per binding.
func GenerateBaseMeasures(bindings []*Binding, scenario Scenario) []*Measure {
	schema, _ := SchemaFor(scenario)

	measures := make([]*Measure, 0, len(bindings))
	for _, b := range bindings {
		measures = append(measures, &Measure{
			Name:         MeasureName(b.Operation, b.Metric),
			Expression:   BaseExpression(b, schema),
			FormatString: bindingFormat(b, schema),
			Table:        b.Table,
		})
	}

	return measures
}

type comparatorKey struct {
	metric    string
	operation Operation
}

func newComparatorKey(metric string, op Operation) comparatorKey {
	return comparatorKey{metric: strings.ToLower(metric), operation: op}
}

// GenerateVarianceMeasures returns delta and delta percent measures of every binding
// that has a prior-year or plan counterpart bound with the same operation.
// Both sides reference the base measures of their own bindings.
func GenerateVarianceMeasures(bindings []*Binding, scenario Scenario) []*Measure {
	schema, _ := SchemaFor(scenario)

	index := make(map[comparatorKey]*Binding, len(bindings))
	for _, b := range bindings {
		k := newComparatorKey(b.Metric, b.Operation)
		if _, ok := index[k]; !ok {
			index[k] = b
		}
	}

	measures := make([]*Measure, 0)
	for _, b := range bindings {
		if isComparator(b.Metric) {
			continue
		}

		for _, suffix := range []string{SuffixPriorYear, SuffixPlan} {
			cmp, ok := index[newComparatorKey(b.Metric+suffix, b.Operation)]
			if !ok {
				continue
			}

			base := measureRef(MeasureName(b.Operation, b.Metric))
			comparator := measureRef(MeasureName(cmp.Operation, cmp.Metric))
			delta := base + " - " + comparator

			measures = append(measures,
				&Measure{
					Name:          b.Metric + " Δ" + suffix,
					Expression:    delta,
					FormatString:  bindingFormat(b, schema),
					Table:         b.Table,
					DisplayFolder: folderVariance,
				},
				&Measure{
					Name:          b.Metric + " Δ" + suffix + "%",
					Expression:    fmt.Sprintf("DIVIDE(%s, %s)", delta, comparator),
					FormatString:  formatStringPercent,
					Table:         b.Table,
					DisplayFolder: folderVariance,
				},
			)
		}
	}

	return measures
}

// GenerateAllMeasures returns the deduplicated measure set required by items:
// base measures, then variance measures, then the scenario KPI catalog.
func GenerateAllMeasures(items []*VisualItem, scenario Scenario) []*Measure {
	bindings := ExtractMetricBindings(items, scenario)

	return UnionMeasures(
		GenerateBaseMeasures(bindings, scenario),
		GenerateVarianceMeasures(bindings, scenario),
		GenerateKPIMeasures(scenario),
	)
}

// MeasureIndex finds measures by case-insensitive name.
type MeasureIndex map[string]*Measure

// NewMeasureIndex returns index of measures by name.
func NewMeasureIndex(measures []*Measure) MeasureIndex {
	index := make(MeasureIndex, len(measures))
	for _, m := range measures {
		k := strings.ToLower(m.Name)
		if _, ok := index[k]; !ok {
			index[k] = m
		}
	}
	return index
}

// Get returns measure by name.
func (i MeasureIndex) Get(name string) (*Measure, bool) {
	m, ok := i[strings.ToLower(name)]
	return m, ok
}
