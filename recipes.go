package phantom

// Recipe default bindings of a visual type under a scenario.
type Recipe struct {
	Metric     string    `json:"metric,omitempty"`
	Operation  Operation `json:"operation,omitempty"`
	Dimension  string    `json:"dimension,omitempty"`
	Legend     string    `json:"legend,omitempty"`
	TimeGrain  string    `json:"timeGrain,omitempty"`
	Comparison string    `json:"comparison,omitempty"`
	XMetric    string    `json:"xMetric,omitempty"`
	YMetric    string    `json:"yMetric,omitempty"`
	SizeMetric string    `json:"sizeMetric,omitempty"`
	BarMetric  string    `json:"barMetric,omitempty"`
	LineMetric string    `json:"lineMetric,omitempty"`
	Columns    []string  `json:"columns,omitempty"`
	Rows       []string  `json:"rows,omitempty"`
	Values     []string  `json:"values,omitempty"`
	TopN       int       `json:"topN,omitempty"`
	Sort       string    `json:"sort,omitempty"`
	MaxRows    int       `json:"maxRows,omitempty"`
}

const (
	defaultTimeGrain = "month"
	defaultTopN      = 10
	defaultMaxRows   = 10
	sortDesc         = "desc"
	sortAsc          = "asc"
)

// GetRecipeForVisual returns default bindings of the visual type under the scenario.
func GetRecipeForVisual(t VisualType, scenario Scenario) (*Recipe, error) {
	s, err := SchemaFor(scenario)
	if err != nil {
		return nil, err
	}

	switch t {
	case VisualBar, VisualColumn:
		return &Recipe{
			Metric: s.PrimaryMetric, Operation: OpSum, Dimension: s.PrimaryDimension,
			TopN: defaultTopN, Sort: sortDesc,
		}, nil
	case VisualStackedBar, VisualStackedColumn:
		return &Recipe{
			Metric: s.PrimaryMetric, Operation: OpSum, Dimension: s.PrimaryDimension,
			Legend: s.SecondaryDimension,
		}, nil
	case VisualPie, VisualDonut, VisualFunnel, VisualTreemap, VisualWaterfall:
		return &Recipe{Metric: s.PrimaryMetric, Operation: OpSum, Dimension: s.PrimaryDimension}, nil
	case VisualLine, VisualArea:
		return &Recipe{
			Metric: s.PrimaryMetric, Operation: OpSum, Dimension: s.TimeDimension,
			TimeGrain: defaultTimeGrain,
		}, nil
	case VisualCombo:
		return &Recipe{
			BarMetric: s.PrimaryMetric, LineMetric: s.SecondaryMetric, Operation: OpSum,
			Dimension: s.TimeDimension, TimeGrain: defaultTimeGrain,
		}, nil
	case VisualCard:
		return &Recipe{Metric: s.PrimaryMetric, Operation: OpSum}, nil
	case VisualKPI:
		return &Recipe{
			Metric: s.PrimaryMetric, Operation: OpSum, TimeGrain: defaultTimeGrain,
			Comparison: s.comparisonFor(s.PrimaryMetric, SuffixPriorYear, SuffixPlan),
		}, nil
	case VisualGauge:
		return &Recipe{
			Metric: s.PrimaryMetric, Operation: OpSum,
			Comparison: s.comparisonFor(s.PrimaryMetric, SuffixPlan, SuffixPriorYear),
		}, nil
	case VisualMultiCard:
		return &Recipe{Values: []string{s.PrimaryMetric, s.SecondaryMetric}, Operation: OpSum}, nil
	case VisualTable:
		return &Recipe{
			Columns:   []string{s.PrimaryDimension, s.SecondaryDimension},
			Values:    []string{s.PrimaryMetric, s.SecondaryMetric},
			Operation: OpSum, MaxRows: defaultMaxRows, Sort: sortDesc,
		}, nil
	case VisualMatrix:
		return &Recipe{
			Rows:      []string{s.PrimaryDimension},
			Columns:   []string{s.SecondaryDimension},
			Values:    []string{s.PrimaryMetric},
			Operation: OpSum,
		}, nil
	case VisualScatter:
		return &Recipe{
			XMetric: s.PrimaryMetric, YMetric: s.SecondaryMetric, Operation: OpSum,
			Dimension: s.PrimaryDimension,
		}, nil
	case VisualSlicer:
		return &Recipe{Dimension: s.PrimaryDimension}, nil
	case VisualMap:
		return &Recipe{Metric: s.PrimaryMetric, Operation: OpSum, Dimension: s.SecondaryDimension}, nil
	default:
		return &Recipe{}, nil
	}
}

// comparisonFor returns the first suffix whose comparator metric exists in the schema.
func (s *Schema) comparisonFor(metric string, suffixes ...string) string {
	for _, suffix := range suffixes {
		if _, ok := s.ResolveMetric(metric + suffix); ok {
			return suffix
		}
	}
	return ""
}

// Props returns recipe as visual props, restricted to keys supported by the type.
func (r *Recipe) Props(t VisualType) Props {
	all := Props{}
	setString := func(key, v string) {
		if v != "" {
			all[key] = v
		}
	}
	setStrings := func(key string, v []string) {
		if len(v) > 0 {
			list := make([]interface{}, 0, len(v))
			for i := range v {
				list = append(list, v[i])
			}
			all[key] = list
		}
	}
	setInt := func(key string, v int) {
		if v > 0 {
			all[key] = float64(v)
		}
	}

	setString(PropMetric, r.Metric)
	setString(PropOperation, string(r.Operation))
	setString(PropDimension, r.Dimension)
	setString(PropLegend, r.Legend)
	setString(PropTimeGrain, r.TimeGrain)
	setString(PropComparison, r.Comparison)
	setString(PropXMetric, r.XMetric)
	setString(PropYMetric, r.YMetric)
	setString(PropSizeMetric, r.SizeMetric)
	setString(PropBarMetric, r.BarMetric)
	setString(PropLineMetric, r.LineMetric)
	setStrings(PropColumns, r.Columns)
	setStrings(PropRows, r.Rows)
	setStrings(PropValues, r.Values)
	setInt(PropTopN, r.TopN)
	setString(PropSort, r.Sort)
	setInt(PropMaxRows, r.MaxRows)

	props := make(Props, len(all))
	for k, v := range all {
		if supports(t, k) {
			props[k] = v
		}
	}
	return props
}

// NewVisualItem returns an item of the type bound by the scenario recipe.
func NewVisualItem(id string, t VisualType, scenario Scenario, layout Layout) (*VisualItem, error) {
	recipe, err := GetRecipeForVisual(t, scenario)
	if err != nil {
		return nil, err
	}

	item := &VisualItem{
		ID:     id,
		Type:   t,
		Layout: layout,
		Props:  recipe.Props(t),
	}
	item.Title = SmartTitle(item, scenario)

	return item, nil
}
