package phantom

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	visualContainerSchema = "https://developer.microsoft.com/json-schemas/fabric/item/report/definition/visualContainer/1.3.0/schema.json"

	defaultVisualType = "tableEx"
	zStep             = 1000
)

var visualTypes = map[VisualType]string{
	VisualBar:           "clusteredBarChart",
	VisualStackedBar:    "stackedBarChart",
	VisualColumn:        "clusteredColumnChart",
	VisualStackedColumn: "stackedColumnChart",
	VisualLine:          "lineChart",
	VisualArea:          "areaChart",
	VisualCombo:         "lineClusteredColumnComboChart",
	VisualCard:          "card",
	VisualMultiCard:     "multiRowCard",
	VisualKPI:           "kpi",
	VisualGauge:         "gauge",
	VisualTable:         "tableEx",
	VisualMatrix:        "pivotTable",
	VisualScatter:       "scatterChart",
	VisualPie:           "pieChart",
	VisualDonut:         "donutChart",
	VisualWaterfall:     "waterfallChart",
	VisualFunnel:        "funnel",
	VisualTreemap:       "treemap",
	VisualSlicer:        "slicer",
	VisualMap:           "map",
	VisualText:          "textbox",
}

// VisualTypeFor returns Power BI visual type of the item type, tableEx for unknown types.
func VisualTypeFor(t VisualType) string {
	if v, ok := visualTypes[t]; ok {
		return v
	}
	return defaultVisualType
}

// VisualContainer PBIR visual.json document.
type VisualContainer struct {
	Schema       string        `json:"$schema"`
	Name         string        `json:"name"`
	Position     Position      `json:"position"`
	Visual       *Visual       `json:"visual"`
	FilterConfig *FilterConfig `json:"filterConfig,omitempty"`
}

// Position pixel geometry of a visual container.
type Position struct {
	X        int `json:"x"`
	Y        int `json:"y"`
	Z        int `json:"z"`
	Height   int `json:"height"`
	Width    int `json:"width"`
	TabOrder int `json:"tabOrder"`
}

// Rect returns geometry without stacking order.
func (p Position) Rect() Rect {
	return Rect{X: p.X, Y: p.Y, Width: p.Width, Height: p.Height}
}

type Visual struct {
	VisualType              string                    `json:"visualType"`
	Query                   *Query                    `json:"query,omitempty"`
	Objects                 map[string][]*ObjectEntry `json:"objects,omitempty"`
	VisualContainerObjects  map[string][]*ObjectEntry `json:"visualContainerObjects,omitempty"`
	DrillFilterOtherVisuals bool                      `json:"drillFilterOtherVisuals"`
}

type Query struct {
	QueryState     map[string]*QueryRole `json:"queryState"`
	SortDefinition *SortDefinition       `json:"sortDefinition,omitempty"`
}

type QueryRole struct {
	Projections []*Projection `json:"projections"`
}

type Projection struct {
	Field          *Field `json:"field"`
	QueryRef       string `json:"queryRef"`
	NativeQueryRef string `json:"nativeQueryRef"`
}

// Field reference to a model column or measure.
type Field struct {
	Column  *FieldRef `json:"Column,omitempty"`
	Measure *FieldRef `json:"Measure,omitempty"`
}

type FieldRef struct {
	Expression SourceExpression `json:"Expression"`
	Property   string           `json:"Property"`
}

type SourceExpression struct {
	SourceRef SourceRef `json:"SourceRef"`
}

type SourceRef struct {
	Entity string `json:"Entity,omitempty"`
	Source string `json:"Source,omitempty"`
}

func (f *Field) ref() *FieldRef {
	if f.Measure != nil {
		return f.Measure
	}
	return f.Column
}

// Entity returns table of the field.
func (f *Field) Entity() string {
	return f.ref().Expression.SourceRef.Entity
}

// Property returns column or measure name of the field.
func (f *Field) Property() string {
	return f.ref().Property
}

// IsMeasure reports whether field references a measure.
func (f *Field) IsMeasure() bool {
	return f.Measure != nil
}

// aliased returns copy of the field bound to a query source alias.
func (f *Field) aliased(alias string) map[string]interface{} {
	kind := "Column"
	if f.IsMeasure() {
		kind = "Measure"
	}
	return map[string]interface{}{
		kind: map[string]interface{}{
			"Expression": map[string]interface{}{"SourceRef": map[string]interface{}{"Source": alias}},
			"Property":   f.Property(),
		},
	}
}

func columnField(table, column string) *Field {
	return &Field{Column: &FieldRef{Expression: SourceExpression{SourceRef{Entity: table}}, Property: column}}
}

func measureField(table, name string) *Field {
	return &Field{Measure: &FieldRef{Expression: SourceExpression{SourceRef{Entity: table}}, Property: name}}
}

type SortDefinition struct {
	Sort          []*SortField `json:"sort"`
	IsDefaultSort bool         `json:"isDefaultSort"`
}

type SortField struct {
	Field     *Field `json:"field"`
	Direction string `json:"direction"`
}

// ObjectEntry formatting object of a visual.
type ObjectEntry struct {
	Properties map[string]interface{} `json:"properties"`
}

type FilterConfig struct {
	Filters []*FilterDefinition `json:"filters"`
}

// FilterDefinition report, page or visual level filter.
type FilterDefinition struct {
	Name       string                 `json:"name"`
	Field      *Field                 `json:"field"`
	Type       string                 `json:"type"`
	Filter     map[string]interface{} `json:"filter,omitempty"`
	HowCreated string                 `json:"howCreated,omitempty"`
}

// Visual role names of the query state.
const (
	roleCategory  = "Category"
	roleSeries    = "Series"
	roleY         = "Y"
	roleY2        = "Y2"
	roleX         = "X"
	roleSize      = "Size"
	roleValues    = "Values"
	roleRows      = "Rows"
	roleColumns   = "Columns"
	roleIndicator = "Indicator"
	roleGoal      = "Goal"
	roleTrendLine = "TrendLine"
	roleTarget    = "TargetValue"
)

// fieldResolver maps bindings to model fields.
type fieldResolver struct {
	schema   *Schema
	measures MeasureIndex
}

// measure returns field of the base measure of metric, routed as the semantic model routes it.
func (r *fieldResolver) measure(metric string, op Operation) *Field {
	name := MeasureName(op, metric)
	if m, ok := r.measures.Get(name); ok {
		return measureField(routedTable(m, r.schema), m.Name)
	}
	return measureField(r.schema.FactTable().Name, name)
}

// column returns field of dimension, false when the schema has no such column.
func (r *fieldResolver) column(dimension string) (*Field, bool) {
	t, c, ok := r.schema.ResolveDimension(dimension)
	if !ok {
		return nil, false
	}
	return columnField(t.Name, c.Name), true
}

func (r *fieldResolver) columns(dimensions ...string) []*Field {
	fields := make([]*Field, 0, len(dimensions))
	for _, d := range dimensions {
		if d == "" {
			continue
		}
		if f, ok := r.column(d); ok {
			fields = append(fields, f)
		}
	}
	return fields
}

func (r *fieldResolver) metrics(op Operation, metrics ...string) []*Field {
	fields := make([]*Field, 0, len(metrics))
	for _, m := range metrics {
		if m == "" {
			continue
		}
		fields = append(fields, r.measure(m, op))
	}
	return fields
}

// roleFields returns query roles of the item in role name order of the visual.
func (r *fieldResolver) roleFields(item *VisualItem) map[string][]*Field {
	props := item.consumed()
	op := ParseOperation(props.String(PropOperation))
	metric := props.String(PropMetric)

	dimension := props.String(PropDimension)
	if dimension == "" && props.String(PropTimeGrain) != "" {
		dimension = r.schema.TimeDimension
	}

	var comparator string
	if suffix := comparisonSuffix(props.String(PropComparison)); suffix != "" && metric != "" && !isComparator(metric) {
		comparator = metric + suffix
	}

	roles := make(map[string][]*Field)
	set := func(role string, fields []*Field) {
		if len(fields) > 0 {
			roles[role] = fields
		}
	}

	switch item.Type {
	case VisualCombo:
		set(roleCategory, r.columns(dimension))
		set(roleY, r.metrics(op, props.String(PropBarMetric)))
		set(roleY2, r.metrics(op, props.String(PropLineMetric)))
	case VisualCard:
		set(roleValues, r.metrics(op, metric))
	case VisualMultiCard:
		set(roleValues, r.metrics(op, props.Strings(PropValues)...))
	case VisualKPI:
		set(roleIndicator, r.metrics(op, metric))
		set(roleGoal, r.metrics(op, comparator))
		set(roleTrendLine, r.columns(dimension))
	case VisualGauge:
		set(roleY, r.metrics(op, metric))
		set(roleTarget, r.metrics(op, comparator))
	case VisualTable:
		set(roleValues, append(r.columns(props.Strings(PropColumns)...), r.metrics(op, props.Strings(PropValues)...)...))
	case VisualMatrix:
		set(roleRows, r.columns(props.Strings(PropRows)...))
		set(roleColumns, r.columns(props.Strings(PropColumns)...))
		set(roleValues, r.metrics(op, props.Strings(PropValues)...))
	case VisualScatter:
		set(roleCategory, r.columns(dimension))
		set(roleX, r.metrics(op, props.String(PropXMetric)))
		set(roleY, r.metrics(op, props.String(PropYMetric)))
		set(roleSize, r.metrics(op, props.String(PropSizeMetric)))
	case VisualSlicer:
		set(roleValues, r.columns(dimension))
	case VisualMap:
		set(roleCategory, r.columns(dimension))
		set(roleSize, r.metrics(op, metric))
	case VisualText:
	default:
		set(roleCategory, r.columns(dimension))
		set(roleSeries, r.columns(props.String(PropLegend)))
		set(roleY, r.metrics(op, metric, comparator))
	}

	return roles
}

// BuildVisual returns PBIR visual container of the item placed at index in the page.
func BuildVisual(item *VisualItem, index int, scenario Scenario, measures MeasureIndex) (*VisualContainer, error) {
	schema, err := SchemaFor(scenario)
	if err != nil {
		return nil, err
	}
	return buildVisual(item, index, schema, measures), nil
}

func buildVisual(item *VisualItem, index int, schema *Schema, measures MeasureIndex) *VisualContainer {
	rect := GridToPixels(item.Layout)
	resolver := &fieldResolver{schema: schema, measures: measures}

	visual := &Visual{
		VisualType:              VisualTypeFor(item.Type),
		DrillFilterOtherVisuals: true,
	}

	roles := resolver.roleFields(item)
	if len(roles) > 0 {
		visual.Query = &Query{QueryState: make(map[string]*QueryRole, len(roles))}
		for role, fields := range roles {
			projections := make([]*Projection, 0, len(fields))
			for _, f := range fields {
				projections = append(projections, &Projection{
					Field:          f,
					QueryRef:       f.Entity() + "." + f.Property(),
					NativeQueryRef: f.Property(),
				})
			}
			visual.Query.QueryState[role] = &QueryRole{Projections: projections}
		}
		visual.Query.SortDefinition = sortDefinition(item, roles)
	}

	title := item.Title
	if title == "" {
		title = SmartTitle(item, schema.Scenario)
	}
	if title != "" {
		visual.VisualContainerObjects = map[string][]*ObjectEntry{
			"title": {{Properties: map[string]interface{}{
				"show": literal(true),
				"text": literal(title),
			}}},
		}
	}

	if item.Type == VisualText {
		visual.Objects = map[string][]*ObjectEntry{
			"general": {{Properties: map[string]interface{}{
				"paragraphs": []interface{}{
					map[string]interface{}{
						"textRuns": []interface{}{map[string]interface{}{"value": item.Props.String(PropText)}},
					},
				},
			}}},
		}
	}

	container := &VisualContainer{
		Schema: visualContainerSchema,
		Name:   item.ID,
		Position: Position{
			X:        rect.X,
			Y:        rect.Y,
			Z:        index * zStep,
			Height:   rect.Height,
			Width:    rect.Width,
			TabOrder: index * zStep,
		},
		Visual: visual,
	}

	if f := topNFilter(item, roles); f != nil {
		container.FilterConfig = &FilterConfig{Filters: []*FilterDefinition{f}}
	}

	return container
}

// firstFields returns the first category-like column and the first measure of roles.
func firstFields(roles map[string][]*Field) (column, measure *Field) {
	for _, role := range []string{roleCategory, roleRows, roleValues, roleTrendLine, roleColumns} {
		for _, f := range roles[role] {
			if !f.IsMeasure() && column == nil {
				column = f
			}
		}
	}
	for _, role := range []string{roleY, roleValues, roleIndicator, roleX, roleSize, roleY2} {
		for _, f := range roles[role] {
			if f.IsMeasure() && measure == nil {
				measure = f
			}
		}
	}
	return column, measure
}

func sortDirection(sort string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(sort)) {
	case sortDesc, "descending":
		return "Descending", true
	case sortAsc, "ascending":
		return "Ascending", true
	default:
		return "", false
	}
}

func sortDefinition(item *VisualItem, roles map[string][]*Field) *SortDefinition {
	direction, ok := sortDirection(item.consumed().String(PropSort))
	if !ok {
		return nil
	}

	column, measure := firstFields(roles)
	field := measure
	if field == nil {
		field = column
	}
	if field == nil {
		return nil
	}

	return &SortDefinition{
		Sort:          []*SortField{{Field: field, Direction: direction}},
		IsDefaultSort: false,
	}
}

// topNFilter keeps the first N categories ranked by the first measure.
// Table visuals use maxRows as N.
func topNFilter(item *VisualItem, roles map[string][]*Field) *FilterDefinition {
	props := item.consumed()
	n := props.Int(PropTopN)
	if n <= 0 {
		n = props.Int(PropMaxRows)
	}
	if n <= 0 {
		return nil
	}

	column, measure := firstFields(roles)
	if column == nil || measure == nil {
		return nil
	}

	const (
		subquery      = "subquery"
		source        = "s"
		measureSource = "m"
	)

	from := []interface{}{fromEntity(source, column.Entity())}
	measureAlias := source
	if measure.Entity() != column.Entity() {
		from = append(from, fromEntity(measureSource, measure.Entity()))
		measureAlias = measureSource
	}

	direction := 2
	if d, _ := sortDirection(props.String(PropSort)); d == "Ascending" {
		direction = 1
	}

	return &FilterDefinition{
		Name:       "topN" + sanitizeName(item.ID),
		Field:      column,
		Type:       "TopN",
		HowCreated: "User",
		Filter: map[string]interface{}{
			"Version": 2,
			"From": []interface{}{
				map[string]interface{}{
					"Name": subquery,
					"Expression": map[string]interface{}{
						"Subquery": map[string]interface{}{
							"Query": map[string]interface{}{
								"Version": 2,
								"From":    from,
								"Select": []interface{}{
									mergeMaps(column.aliased(source), map[string]interface{}{"Name": "field"}),
								},
								"OrderBy": []interface{}{
									map[string]interface{}{
										"Direction":  direction,
										"Expression": measure.aliased(measureAlias),
									},
								},
								"Top": n,
							},
						},
					},
					"Type": 2,
				},
				fromEntity(source, column.Entity()),
			},
			"Where": []interface{}{
				map[string]interface{}{
					"Condition": map[string]interface{}{
						"In": map[string]interface{}{
							"Expressions": []interface{}{column.aliased(source)},
							"Table": map[string]interface{}{
								"SourceRef": map[string]interface{}{"Source": subquery},
							},
						},
					},
				},
			},
		},
	}
}

func fromEntity(alias, entity string) map[string]interface{} {
	return map[string]interface{}{"Name": alias, "Entity": entity, "Type": 0}
}

func mergeMaps(a, b map[string]interface{}) map[string]interface{} {
	result := make(map[string]interface{}, len(a)+len(b))
	for k, v := range a {
		result[k] = v
	}
	for k, v := range b {
		result[k] = v
	}
	return result
}

// literal returns PBIR formatting property expression of a Go value.
func literal(v interface{}) map[string]interface{} {
	return map[string]interface{}{"expr": literalValue(v)}
}

// literalValue returns PBIR query literal of a Go value.
func literalValue(v interface{}) map[string]interface{} {
	var value string
	switch tv := v.(type) {
	case bool:
		value = strconv.FormatBool(tv)
	case int:
		value = strconv.Itoa(tv) + "L"
	case int64:
		value = strconv.FormatInt(tv, 10) + "L"
	case float64:
		value = strconv.FormatFloat(tv, 'f', -1, 64) + "D"
	case string:
		value = "'" + strings.ReplaceAll(tv, "'", "''") + "'"
	default:
		value = "'" + strings.ReplaceAll(fmt.Sprintf("%v", tv), "'", "''") + "'"
	}
	return map[string]interface{}{"Literal": map[string]interface{}{"Value": value}}
}

// sanitizeName keeps letters, digits and underscore of a PBIR object name.
func sanitizeName(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
