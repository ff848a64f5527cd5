package phantom

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Dialect SQL flavour of the preview store.
type Dialect string

const (
	DialectSQLite     Dialect = "sqlite3"
	DialectClickHouse Dialect = "clickhouse"
	DialectMySQL      Dialect = "mysql"
)

const sqliteTimeFormat = "2006-01-02 15:04:05"

// ParseDialect returns dialect by driver name.
func ParseDialect(driver string) (Dialect, error) {
	switch d := Dialect(strings.ToLower(strings.TrimSpace(driver))); d {
	case DialectSQLite, DialectClickHouse, DialectMySQL:
		return d, nil
	case "sqlite":
		return DialectSQLite, nil
	default:
		return "", fmt.Errorf("unsupported preview driver %q", driver)
	}
}

// Quote returns quoted identifier.
func (d Dialect) Quote(name string) string {
	if d == DialectSQLite {
		return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
	}
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// ColumnType returns SQL type of the column data type.
func (d Dialect) ColumnType(t DataType) string {
	switch d {
	case DialectClickHouse:
		switch t {
		case DataTypeInt64:
			return "Nullable(Int64)"
		case DataTypeDouble:
			return "Nullable(Float64)"
		case DataTypeDateTime:
			return "Nullable(DateTime)"
		case DataTypeBoolean:
			return "Nullable(UInt8)"
		default:
			return "Nullable(String)"
		}
	case DialectMySQL:
		switch t {
		case DataTypeInt64:
			return "BIGINT NULL"
		case DataTypeDouble:
			return "DOUBLE NULL"
		case DataTypeDateTime:
			return "DATETIME NULL"
		case DataTypeBoolean:
			return "BOOLEAN NULL"
		default:
			return "VARCHAR(255) NULL"
		}
	default:
		switch t {
		case DataTypeInt64, DataTypeBoolean:
			return "INTEGER NULL"
		case DataTypeDouble:
			return "REAL NULL"
		default:
			return "TEXT NULL"
		}
	}
}

// CreateTable returns DDL of the table.
func (d Dialect) CreateTable(t *Table) string {
	columns := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		columns = append(columns, d.Quote(c.Name)+" "+d.ColumnType(c.DataType))
	}

	query := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", d.Quote(t.Name), strings.Join(columns, ", "))
	if d == DialectClickHouse {
		query += " ENGINE = MergeTree() ORDER BY tuple()"
	}
	return query
}

// DropTable returns DDL removing the table.
func (d Dialect) DropTable(t *Table) string {
	return fmt.Sprintf("DROP TABLE IF EXISTS %s", d.Quote(t.Name))
}

// Aggregate returns SQL aggregation of the binding column.
func (d Dialect) Aggregate(op Operation, column string) string {
	switch op {
	case OpCount:
		return "COUNT(*)"
	case OpAvg:
		return "AVG(" + d.Quote(column) + ")"
	case OpMin:
		return "MIN(" + d.Quote(column) + ")"
	case OpMax:
		return "MAX(" + d.Quote(column) + ")"
	default:
		return "SUM(" + d.Quote(column) + ")"
	}
}

// DistinctCount returns SQL count of distinct values of the column.
func (d Dialect) DistinctCount(column string) string {
	return "COUNT(DISTINCT " + d.Quote(column) + ")"
}

// Value converts snapshot value to the driver value of the column type.
func (d Dialect) Value(t DataType, v interface{}) interface{} {
	if v == nil {
		return nil
	}

	switch t {
	case DataTypeInt64:
		f, ok := toFloat(v)
		if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil
		}
		return int64(math.Round(f))
	case DataTypeDouble:
		f, ok := toFloat(v)
		if !ok {
			return nil
		}
		return f
	case DataTypeBoolean:
		b, ok := v.(bool)
		if !ok {
			f, isNum := toFloat(v)
			if !isNum {
				return nil
			}
			b = f != 0
		}
		if d == DialectMySQL {
			return b
		}
		if b {
			return 1
		}
		return 0
	case DataTypeDateTime:
		tm, ok := parseDate(v)
		if !ok {
			return nil
		}
		if d == DialectSQLite {
			return tm.UTC().Format(sqliteTimeFormat)
		}
		return tm.UTC().Truncate(time.Second)
	default:
		if s, ok := v.(string); ok {
			return s
		}
		return fmt.Sprintf("%v", v)
	}
}
