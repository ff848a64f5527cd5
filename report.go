package phantom

import (
	"fmt"
	"strings"
)

const (
	pageSchema    = "https://developer.microsoft.com/json-schemas/fabric/item/report/definition/page/1.3.0/schema.json"
	pagesSchema   = "https://developer.microsoft.com/json-schemas/fabric/item/report/definition/pagesMetadata/1.0.0/schema.json"
	reportSchema  = "https://developer.microsoft.com/json-schemas/fabric/item/report/definition/report/1.2.0/schema.json"
	versionSchema = "https://developer.microsoft.com/json-schemas/fabric/item/report/definition/versionMetadata/1.0.0/schema.json"

	reportDefinitionVersion = "2.0.0"

	defaultPageName = "page1"
	defaultTheme    = "CY24SU10"

	annotationHighlight = "phantom.highlight"
)

// ReportManifest pages of the report with visual ids in item order.
type ReportManifest struct {
	Pages      []*PageManifest `json:"pages"`
	ActivePage string          `json:"activePage"`
}

// PageManifest one report page.
type PageManifest struct {
	Name        string   `json:"name"`
	DisplayName string   `json:"displayName"`
	Visuals     []string `json:"visuals"`
}

// BuildReportManifest returns manifest of the single page holding all items.
func BuildReportManifest(items []*VisualItem) *ReportManifest {
	page := &PageManifest{
		Name:        defaultPageName,
		DisplayName: "Page 1",
		Visuals:     make([]string, 0, len(items)),
	}
	for _, item := range items {
		if item == nil {
			continue
		}
		page.Visuals = append(page.Visuals, item.ID)
	}

	return &ReportManifest{
		Pages:      []*PageManifest{page},
		ActivePage: page.Name,
	}
}

// PageOrder returns page names in display order.
func (m *ReportManifest) PageOrder() []string {
	order := make([]string, 0, len(m.Pages))
	for _, p := range m.Pages {
		order = append(order, p.Name)
	}
	return order
}

// PagesMetadata pages.json document.
type PagesMetadata struct {
	Schema         string   `json:"$schema"`
	PageOrder      []string `json:"pageOrder"`
	ActivePageName string   `json:"activePageName"`
}

// Page page.json document.
type Page struct {
	Schema        string        `json:"$schema"`
	Name          string        `json:"name"`
	DisplayName   string        `json:"displayName"`
	DisplayOption string        `json:"displayOption"`
	Height        int           `json:"height"`
	Width         int           `json:"width"`
	FilterConfig  *FilterConfig `json:"filterConfig,omitempty"`
	Annotations   []*Annotation `json:"annotations,omitempty"`
}

type Annotation struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ReportDefinition report.json document.
type ReportDefinition struct {
	Schema             string           `json:"$schema"`
	ThemeCollection    *ThemeCollection `json:"themeCollection"`
	LayoutOptimization string           `json:"layoutOptimization"`
	Settings           *ReportSettings  `json:"settings"`
}

type ThemeCollection struct {
	BaseTheme *BaseTheme `json:"baseTheme"`
}

type BaseTheme struct {
	Name                  string `json:"name"`
	ReportVersionAtImport string `json:"reportVersionAtImport"`
	Type                  string `json:"type"`
}

type ReportSettings struct {
	UseStylableVisualContainerHeader bool   `json:"useStylableVisualContainerHeader"`
	DefaultDrillFilterOtherVisuals   bool   `json:"defaultDrillFilterOtherVisuals"`
	AllowChangeFilterTypes           bool   `json:"allowChangeFilterTypes"`
	UseEnhancedTooltips              bool   `json:"useEnhancedTooltips"`
	ExportDataMode                   string `json:"exportDataMode"`
}

// VersionMetadata version.json document.
type VersionMetadata struct {
	Schema  string `json:"$schema"`
	Version string `json:"version"`
}

func buildPagesMetadata(m *ReportManifest) *PagesMetadata {
	return &PagesMetadata{
		Schema:         pagesSchema,
		PageOrder:      m.PageOrder(),
		ActivePageName: m.ActivePage,
	}
}

func buildReportDefinition(state *State) *ReportDefinition {
	theme := defaultTheme
	if state != nil && strings.TrimSpace(state.Theme) != "" {
		theme = strings.TrimSpace(state.Theme)
	}

	return &ReportDefinition{
		Schema: reportSchema,
		ThemeCollection: &ThemeCollection{BaseTheme: &BaseTheme{
			Name:                  theme,
			ReportVersionAtImport: "5.59",
			Type:                  "SharedResources",
		}},
		LayoutOptimization: "None",
		Settings: &ReportSettings{
			UseStylableVisualContainerHeader: true,
			DefaultDrillFilterOtherVisuals:   true,
			AllowChangeFilterTypes:           true,
			UseEnhancedTooltips:              true,
			ExportDataMode:                   "AllowSummarized",
		},
	}
}

func buildVersionMetadata() *VersionMetadata {
	return &VersionMetadata{Schema: versionSchema, Version: reportDefinitionVersion}
}

// buildPage returns page.json of the manifest page with state filters and highlight.
func buildPage(page *PageManifest, items []*VisualItem, schema *Schema, state *State) *Page {
	result := &Page{
		Schema:        pageSchema,
		Name:          page.Name,
		DisplayName:   page.DisplayName,
		DisplayOption: "FitToPage",
		Height:        pageHeightFor(items),
		Width:         PageWidth,
	}

	resolver := &fieldResolver{schema: schema}
	filters := make([]*FilterDefinition, 0, len(state.filters()))
	for i, f := range state.filters() {
		if def, ok := pageFilter(i, f, resolver); ok {
			filters = append(filters, def)
		}
	}
	if len(filters) > 0 {
		result.FilterConfig = &FilterConfig{Filters: filters}
	}

	if state != nil && state.Highlight != nil && state.Highlight.ItemID != "" {
		h := state.Highlight
		result.Annotations = []*Annotation{{
			Name:  annotationHighlight,
			Value: strings.Join([]string{h.ItemID, h.Dimension, h.Value}, "|"),
		}}
	}

	return result
}

// comparisonKind PBIR ComparisonKind of range conditions.
var comparisonKind = map[Condition]int{
	CondGreater:     1,
	CondGreaterOrEq: 2,
	CondLess:        3,
	CondLessOrEq:    4,
}

// pageFilter returns page level filter of the state filter, false when dimension is unknown.
func pageFilter(i int, f *Filter, resolver *fieldResolver) (*FilterDefinition, bool) {
	if f == nil || len(f.Values) == 0 {
		return nil, false
	}

	field, ok := resolver.column(f.Dimension)
	if !ok {
		return nil, false
	}

	const source = "f"
	column := field.aliased(source)

	var (
		condition  map[string]interface{}
		filterType = "Advanced"
		cond       = f.Condition.normalize()
	)

	switch {
	case cond == CondEq || cond == CondNotEq:
		filterType = "Categorical"
		values := make([]interface{}, 0, len(f.Values))
		for _, v := range f.Values {
			values = append(values, []interface{}{literalValue(v)})
		}
		condition = map[string]interface{}{
			"In": map[string]interface{}{
				"Expressions": []interface{}{column},
				"Values":      values,
			},
		}
		if cond == CondNotEq {
			condition = map[string]interface{}{"Not": map[string]interface{}{"Expression": condition}}
		}
	case cond == CondLike:
		condition = map[string]interface{}{
			"Contains": map[string]interface{}{"Left": column, "Right": literalValue(f.Values[0])},
		}
	case cond.IsRange():
		condition = map[string]interface{}{
			"Comparison": map[string]interface{}{
				"ComparisonKind": comparisonKind[cond],
				"Left":           column,
				"Right":          literalValue(f.Values[0]),
			},
		}
	default:
		return nil, false
	}

	return &FilterDefinition{
		Name:       fmt.Sprintf("filter%d%s", i+1, sanitizeName(field.Property())),
		Field:      field,
		Type:       filterType,
		HowCreated: "User",
		Filter: map[string]interface{}{
			"Version": 2,
			"From":    []interface{}{fromEntity(source, field.Entity())},
			"Where":   []interface{}{map[string]interface{}{"Condition": condition}},
		},
	}, true
}
