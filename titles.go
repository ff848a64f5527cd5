package phantom

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var acronyms = map[string]struct{}{
	"mrr": {}, "arr": {}, "ltv": {}, "cac": {}, "cogs": {}, "py": {}, "pl": {}, "id": {}, "kpi": {},
}

// splitWords splits camelCase, PascalCase and snake_case identifiers.
func splitWords(s string) []string {
	runes := []rune(s)
	words := make([]string, 0, 4)
	start := 0

	flush := func(end int) {
		if w := strings.Trim(string(runes[start:end]), " _-"); w != "" {
			words = append(words, w)
		}
		start = end
	}

	for i := 1; i < len(runes); i++ {
		prev, cur := runes[i-1], runes[i]
		switch {
		case cur == '_' || cur == '-' || cur == ' ':
			flush(i)
		case unicode.IsUpper(cur) && (unicode.IsLower(prev) || unicode.IsDigit(prev)):
			flush(i)
		case unicode.IsUpper(cur) && unicode.IsUpper(prev) && i+1 < len(runes) && unicode.IsLower(runes[i+1]):
			flush(i)
		}
	}
	flush(len(runes))

	return words
}

// Humanize returns display label of a metric or dimension key: "marketValuePY" → "Market Value PY".
func Humanize(key string) string {
	caser := cases.Title(language.English)

	words := splitWords(key)
	for i, w := range words {
		if _, ok := acronyms[strings.ToLower(w)]; ok {
			words[i] = strings.ToUpper(w)
			continue
		}
		if len(w) > 1 && strings.ToUpper(w) == w {
			continue
		}
		words[i] = caser.String(w)
	}

	return strings.Join(words, " ")
}

func metricLabel(op Operation, metric string) string {
	if op == OpSum {
		return Humanize(metric)
	}
	return strings.TrimSpace(OperationLabel(op)) + " " + Humanize(metric)
}

func joinLabels(labels []string) string {
	switch len(labels) {
	case 0:
		return ""
	case 1:
		return labels[0]
	default:
		return strings.Join(labels[:len(labels)-1], ", ") + " and " + labels[len(labels)-1]
	}
}

// SmartTitle returns auto-generated title of the item from its type and bindings.
func SmartTitle(item *VisualItem, scenario Scenario) string {
	schema, _ := SchemaFor(scenario)
	props := item.consumed()
	caser := cases.Title(language.English)

	metrics := itemMetrics(item)
	labels := make([]string, 0, len(metrics))
	for _, m := range metrics {
		if isComparator(m.metric) && props.String(PropComparison) != "" {
			continue
		}
		labels = append(labels, metricLabel(m.operation, m.metric))
	}

	dims := itemDimensions(item, schema)
	dimLabels := make([]string, 0, len(dims))
	for _, d := range dims {
		dimLabels = append(dimLabels, Humanize(d))
	}

	switch item.Type {
	case VisualSlicer:
		return joinLabels(dimLabels)
	case VisualText:
		return ""
	case VisualScatter:
		if len(labels) >= 2 {
			return labels[1] + " vs " + labels[0]
		}
	case VisualKPI, VisualGauge, VisualCard:
		if len(labels) == 0 {
			break
		}
		if suffix := comparisonSuffix(props.String(PropComparison)); suffix != "" {
			return labels[0] + " vs " + suffix
		}
		return labels[0]
	case VisualLine, VisualArea:
		if grain := props.String(PropTimeGrain); grain != "" && len(labels) > 0 {
			return joinLabels(labels) + " by " + caser.String(grain)
		}
	}

	switch {
	case len(labels) > 0 && len(dimLabels) > 0:
		return joinLabels(labels) + " by " + dimLabels[0]
	case len(labels) > 0:
		return joinLabels(labels)
	case len(dimLabels) > 0:
		return joinLabels(dimLabels)
	default:
		return caser.String(string(item.Type))
	}
}
