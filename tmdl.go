package phantom

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	compatibilityLevel = 1567
	modelCulture       = "en-US"
)

// lineageNamespace namespace of all deterministic ids of exported objects.
var lineageNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/vench/phantom"))

// LineageTag returns deterministic id of a model object.
func LineageTag(parts ...string) string {
	return uuid.NewSHA1(lineageNamespace, []byte(strings.Join(parts, "/"))).String()
}

// tmdlName returns quoted TMDL object name.
func tmdlName(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

// routedTable returns table of the measure, the fact table for KPI and unknown tables.
func routedTable(m *Measure, schema *Schema) string {
	if m.Table != "" {
		if t, ok := schema.Table(m.Table); ok {
			return t.Name
		}
	}
	return schema.FactTable().Name
}

// RouteMeasures groups measures by routed table keeping measure order.
func RouteMeasures(measures []*Measure, schema *Schema) map[string][]*Measure {
	routes := make(map[string][]*Measure, len(schema.Tables))
	for _, m := range measures {
		if m == nil {
			continue
		}
		table := routedTable(m, schema)
		routes[table] = append(routes[table], m)
	}
	return routes
}

type tmdlWriter struct {
	b strings.Builder
}

func (w *tmdlWriter) line(depth int, format string, args ...interface{}) {
	w.b.WriteString(strings.Repeat("\t", depth))
	if len(args) > 0 {
		fmt.Fprintf(&w.b, format, args...)
	} else {
		w.b.WriteString(format)
	}
	w.b.WriteByte('\n')
}

func (w *tmdlWriter) blank() {
	w.b.WriteByte('\n')
}

func (w *tmdlWriter) String() string {
	return w.b.String()
}

func columnFormat(c *Column) string {
	switch c.DataType {
	case DataTypeInt64:
		return "0"
	case DataTypeDouble:
		return c.Format.FormatString()
	case DataTypeDateTime:
		return "Long Date"
	default:
		return ""
	}
}

func summarizeBy(c *Column) string {
	if c.DataType.IsNumeric() {
		return "sum"
	}
	return "none"
}

// RenderTable returns TMDL definition of the table with its columns, measures and
// an import partition holding rows.
func RenderTable(project string, table *Table, measures []*Measure, rows []Row) string {
	w := &tmdlWriter{}

	w.line(0, "table %s", tmdlName(table.Name))
	w.line(1, "lineageTag: %s", LineageTag(project, table.Name))
	w.blank()

	for _, c := range table.Columns {
		w.line(1, "column %s", tmdlName(c.Name))
		w.line(2, "dataType: %s", c.DataType)
		if f := columnFormat(c); f != "" {
			w.line(2, "formatString: %s", f)
		}
		w.line(2, "lineageTag: %s", LineageTag(project, table.Name, "column", c.Name))
		w.line(2, "summarizeBy: %s", summarizeBy(c))
		w.line(2, "sourceColumn: %s", c.Name)
		w.blank()
		w.line(2, "annotation SummarizationSetBy = Automatic")
		w.blank()
	}

	for _, m := range measures {
		expression := m.Expression
		if strings.TrimSpace(expression) == "" {
			expression = blankExpression
		}

		if strings.Contains(expression, "\n") {
			w.line(1, "measure %s = ```", tmdlName(m.Name))
			for _, l := range strings.Split(expression, "\n") {
				w.line(3, "%s", l)
			}
			w.line(3, "```")
		} else {
			w.line(1, "measure %s = %s", tmdlName(m.Name), expression)
		}
		if m.FormatString != "" {
			w.line(2, "formatString: %s", m.FormatString)
		}
		if m.DisplayFolder != "" {
			w.line(2, "displayFolder: %s", m.DisplayFolder)
		}
		w.line(2, "lineageTag: %s", LineageTag(project, table.Name, "measure", strings.ToLower(m.Name)))
		w.blank()
	}

	w.line(1, "partition %s = m", tmdlName(table.Name))
	w.line(2, "mode: import")
	w.line(2, "source =")
	w.line(4, "let")
	w.line(5, "Source = %s", mTable(table, rows))
	w.line(4, "in")
	w.line(5, "Source")
	w.blank()

	w.line(1, "annotation PBI_ResultType = Table")

	return w.String()
}

// mType returns M type of the column data type.
func mType(t DataType) string {
	switch t {
	case DataTypeInt64:
		return "Int64.Type"
	case DataTypeDouble:
		return "number"
	case DataTypeDateTime:
		return "datetime"
	case DataTypeBoolean:
		return "logical"
	default:
		return "text"
	}
}

func mIdentifier(name string) string {
	for i, r := range name {
		isLetter := r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		if !isLetter && (i == 0 || r < '0' || r > '9') {
			return "#\"" + strings.ReplaceAll(name, "\"", "\"\"") + "\""
		}
	}
	return name
}

// mTable returns M #table expression with typed columns and literal rows.
func mTable(table *Table, rows []Row) string {
	types := make([]string, 0, len(table.Columns))
	for _, c := range table.Columns {
		types = append(types, mIdentifier(c.Name)+" = "+mType(c.DataType))
	}

	records := make([]string, 0, len(rows))
	for _, row := range rows {
		values := make([]string, 0, len(table.Columns))
		for _, c := range table.Columns {
			values = append(values, mLiteral(c.DataType, row[c.Name]))
		}
		records = append(records, "{"+strings.Join(values, ", ")+"}")
	}

	return fmt.Sprintf("#table(type table [%s], {%s})", strings.Join(types, ", "), strings.Join(records, ", "))
}

var dateLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"}

func parseDate(v interface{}) (time.Time, bool) {
	switch tv := v.(type) {
	case time.Time:
		return tv, true
	case string:
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, tv); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

func toFloat(v interface{}) (float64, bool) {
	switch tv := v.(type) {
	case float64:
		return tv, true
	case float32:
		return float64(tv), true
	case int:
		return float64(tv), true
	case int64:
		return float64(tv), true
	case int8:
		return float64(tv), true
	case int16:
		return float64(tv), true
	case int32:
		return float64(tv), true
	case uint:
		return float64(tv), true
	case uint8:
		return float64(tv), true
	case uint16:
		return float64(tv), true
	case uint32:
		return float64(tv), true
	case uint64:
		return float64(tv), true
	case ValueNumber:
		return float64(tv), true
	case bool:
		if tv {
			return 1, true
		}
		return 0, true
	case string:
		f, err := strconv.ParseFloat(tv, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// mLiteral returns M literal of a value of the column type, null when it does not convert.
func mLiteral(t DataType, v interface{}) string {
	if v == nil {
		return "null"
	}

	switch t {
	case DataTypeInt64:
		f, ok := toFloat(v)
		if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
			return "null"
		}
		return strconv.FormatInt(int64(math.Round(f)), 10)
	case DataTypeDouble:
		f, ok := toFloat(v)
		if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
			return "null"
		}
		return strconv.FormatFloat(f, 'f', -1, 64)
	case DataTypeDateTime:
		d, ok := parseDate(v)
		if !ok {
			return "null"
		}
		return fmt.Sprintf("#datetime(%d, %d, %d, %d, %d, %d)",
			d.Year(), d.Month(), d.Day(), d.Hour(), d.Minute(), d.Second())
	case DataTypeBoolean:
		if b, ok := v.(bool); ok {
			return strconv.FormatBool(b)
		}
		return "null"
	default:
		s, ok := v.(string)
		if !ok {
			s = fmt.Sprintf("%v", v)
		}
		return "\"" + strings.ReplaceAll(s, "\"", "\"\"") + "\""
	}
}

// RenderDatabase returns database.tmdl.
func RenderDatabase() string {
	w := &tmdlWriter{}
	w.line(0, "database")
	w.line(1, "compatibilityLevel: %d", compatibilityLevel)
	return w.String()
}

// RenderModel returns model.tmdl referencing every table of the schema.
func RenderModel(schema *Schema) string {
	names := make([]string, 0, len(schema.Tables))
	for _, t := range schema.Tables {
		names = append(names, strconv.Quote(t.Name))
	}

	w := &tmdlWriter{}
	w.line(0, "model Model")
	w.line(1, "culture: %s", modelCulture)
	w.line(1, "defaultPowerBIDataSourceVersion: powerBI_V3")
	w.line(1, "sourceQueryCulture: %s", modelCulture)
	w.line(1, "dataAccessOptions")
	w.line(2, "legacyRedirects")
	w.line(2, "returnErrorValuesAsNull")
	w.blank()
	w.line(0, "annotation PBI_QueryOrder = [%s]", strings.Join(names, ","))
	w.blank()
	w.line(0, "annotation __PBI_TimeIntelligenceEnabled = 0")
	w.blank()
	for _, t := range schema.Tables {
		w.line(0, "ref table %s", tmdlName(t.Name))
	}

	return w.String()
}

// RenderRelationships returns relationships.tmdl, empty when the schema has none.
func RenderRelationships(project string, schema *Schema) string {
	rels := make([]*Relationship, len(schema.Relationships))
	copy(rels, schema.Relationships)
	sort.SliceStable(rels, func(i, j int) bool {
		return rels[i].FromTable+rels[i].FromColumn < rels[j].FromTable+rels[j].FromColumn
	})

	w := &tmdlWriter{}
	for i, r := range rels {
		if i > 0 {
			w.blank()
		}
		w.line(0, "relationship %s", LineageTag(project, "relationship", r.FromTable, r.FromColumn, r.ToTable, r.ToColumn))
		w.line(1, "fromColumn: %s.%s", tmdlName(r.FromTable), tmdlName(r.FromColumn))
		w.line(1, "toColumn: %s.%s", tmdlName(r.ToTable), tmdlName(r.ToColumn))
	}

	return w.String()
}
