package phantom

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"
)

// ErrPreviewUnsupported returned when the item can not be evaluated against the preview store.
var ErrPreviewUnsupported = errors.New("preview unsupported")

const defaultTotalColumnName = "total"

// ReadRepository common read interface of the preview store.
type ReadRepository interface {
	// Total returns number of groups by query conditions.
	Total(ctx context.Context, req *PreviewRequest) (uint64, error)
	// Values returns list of allowed dimension values with rows count by query conditions.
	Values(ctx context.Context, req *PreviewRequest) ([]*ValueResponse, error)
	// Grouped returns binding aggregates by group filtered by query conditions.
	Grouped(ctx context.Context, req *PreviewRequest) ([]*PreviewRow, error)
	// Preview returns grouped rows with total groups count.
	Preview(ctx context.Context, req *PreviewRequest) (*PreviewResponse, error)
	// Ping checks connection.
	Ping(ctx context.Context) error
}

// SQLRepository sql implementation of ReadRepository over a scenario schema.
type SQLRepository struct {
	conn    *sql.DB
	dialect Dialect
	schema  *Schema
	logger  *zap.Logger

	totalColumnName string
}

// SQLRepositoryOption option of SQLRepository.
type SQLRepositoryOption func(*SQLRepository)

// LoggerSQLRepositoryOption sets logger of executed queries.
func LoggerSQLRepositoryOption(logger *zap.Logger) SQLRepositoryOption {
	return func(r *SQLRepository) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// DialectSQLRepositoryOption sets SQL dialect, sqlite by default.
func DialectSQLRepositoryOption(d Dialect) SQLRepositoryOption {
	return func(r *SQLRepository) {
		r.dialect = d
	}
}

// TotalColumnSQLRepositoryOption sets alias of the rows count column.
func TotalColumnSQLRepositoryOption(name string) SQLRepositoryOption {
	return func(r *SQLRepository) {
		r.totalColumnName = name
	}
}

// NewSQLRepository returns new instance of SQLRepository.
func NewSQLRepository(connection *sql.DB, schema *Schema, opts ...SQLRepositoryOption) *SQLRepository {
	r := &SQLRepository{
		conn:    connection,
		dialect: DialectSQLite,
		schema:  schema,
		logger:  zap.NewNop(),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Schema returns schema of the store.
func (r *SQLRepository) Schema() *Schema {
	return r.schema
}

// previewQuery request resolved against the schema.
type previewQuery struct {
	req      *PreviewRequest
	table    *Table
	groups   []*Column
	bindings []*Binding
}

func (r *SQLRepository) resolve(req *PreviewRequest) (*previewQuery, error) {
	table, ok := r.schema.Table(req.Table)
	if !ok {
		return nil, fmt.Errorf("%w: unknown table %q", ErrPreviewUnsupported, req.Table)
	}

	q := &previewQuery{req: req, table: table}
	for _, g := range req.Groups {
		if c, ok := table.Column(g); ok {
			q.groups = append(q.groups, c)
		}
	}
	for _, b := range req.Bindings {
		if b.Resolved() && strings.EqualFold(b.Table, table.Name) {
			q.bindings = append(q.bindings, b)
		}
	}

	return q, nil
}

func (r *SQLRepository) Total(ctx context.Context, req *PreviewRequest) (uint64, error) {
	q, err := r.resolve(req)
	if err != nil {
		return 0, err
	}

	query := ""
	params := make([]interface{}, 0)

	if len(q.groups) > 0 {
		query += "SELECT 1 FROM " + r.dialect.Quote(q.table.Name)
		r.applyWhere(q, &query, &params)
		r.applyGroup(q, &query)
		query = fmt.Sprintf("SELECT COUNT(*) AS %s FROM (%s) AS %s",
			r.dialect.Quote(r.getTotalColumnName()), query, r.dialect.Quote("g"))
	} else {
		query += fmt.Sprintf("SELECT COUNT(*) AS %s FROM %s",
			r.dialect.Quote(r.getTotalColumnName()), r.dialect.Quote(q.table.Name))
		r.applyWhere(q, &query, &params)
	}

	rows, err := r.query(ctx, query, params)
	if err != nil {
		return 0, err
	}

	if len(rows) == 0 || len(rows[0]) == 0 {
		return 0, nil
	}

	f, _ := toFloat(normalizeValue(rows[0][0]))
	return uint64(f), nil
}

func (r *SQLRepository) Values(ctx context.Context, req *PreviewRequest) ([]*ValueResponse, error) {
	q, err := r.resolve(req)
	if err != nil {
		return nil, err
	}

	query := ""
	params := make([]interface{}, 0)

	r.applySelectValue(q, &query)
	query += " FROM " + r.dialect.Quote(q.table.Name)
	r.applyWhere(q, &query, &params)
	r.applyGroup(q, &query)
	r.applyOrder(q, &query)
	r.applyLimit(q, &query)

	rows, err := r.query(ctx, query, params)
	if err != nil {
		return nil, err
	}

	response := make([]*ValueResponse, 0, len(rows))
	for _, row := range rows {
		itemResp := &ValueResponse{
			Key:  make([]interface{}, 0, len(q.groups)),
			Name: make([]interface{}, 0, len(q.groups)),
		}
		for i, v := range row {
			if i < len(q.groups) {
				itemResp.Name = append(itemResp.Name, q.groups[i].Name)
				itemResp.Key = append(itemResp.Key, normalizeValue(v))
			} else {
				itemResp.Count = SafeNaN(v)
			}
		}
		response = append(response, itemResp)
	}

	return response, nil
}

func (r *SQLRepository) Grouped(ctx context.Context, req *PreviewRequest) ([]*PreviewRow, error) {
	q, err := r.resolve(req)
	if err != nil {
		return nil, err
	}

	query := ""
	params := make([]interface{}, 0)

	r.applySelect(q, &query)
	query += " FROM " + r.dialect.Quote(q.table.Name)
	r.applyWhere(q, &query, &params)
	r.applyGroup(q, &query)
	r.applyOrder(q, &query)
	r.applyLimit(q, &query)

	rows, err := r.query(ctx, query, params)
	if err != nil {
		return nil, err
	}

	names := r.metricNames(q)
	response := make([]*PreviewRow, 0, len(rows))
	for _, row := range rows {
		itemResp := &PreviewRow{
			Dimensions: make(map[string]interface{}, len(q.groups)),
			Metrics:    make(map[string]ValueNumber, len(names)),
		}
		for i, v := range row {
			if i < len(q.groups) {
				itemResp.Dimensions[q.groups[i].Name] = normalizeValue(v)
			} else if j := i - len(q.groups); j < len(names) {
				itemResp.Metrics[names[j]] = SafeNaN(v)
			}
		}
		response = append(response, itemResp)
	}

	return response, nil
}

func (r *SQLRepository) Preview(ctx context.Context, req *PreviewRequest) (*PreviewResponse, error) {
	rows, err := r.Grouped(ctx, req)
	if err != nil {
		return nil, err
	}

	total, err := r.Total(ctx, req)
	if err != nil {
		return nil, err
	}

	return &PreviewResponse{Rows: rows, Total: total}, nil
}

func (r *SQLRepository) Ping(ctx context.Context) error {
	_, err := r.conn.ExecContext(ctx, `SELECT 1`)
	return err
}

// query executes query and returns raw row values.
func (r *SQLRepository) query(ctx context.Context, query string, params []interface{}) ([][]interface{}, error) {
	r.logger.Debug("preview query", zap.String("query", query), zap.Any("params", params))

	rows, err := r.conn.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("failed to exec query: %w, query: %s, params: %v", err, query, params)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	result := make([][]interface{}, 0)
	for rows.Next() {
		values := make([]interface{}, len(columns))
		dest := make([]interface{}, len(columns))
		for i := range values {
			dest[i] = &values[i]
		}

		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		result = append(result, values)
	}

	return result, rows.Err()
}

func (r *SQLRepository) metricNames(q *previewQuery) []string {
	if len(q.bindings) == 0 {
		return []string{r.getTotalColumnName()}
	}

	names := make([]string, 0, len(q.bindings))
	for _, b := range q.bindings {
		names = append(names, MeasureName(b.Operation, b.Metric))
	}
	return names
}

func (r *SQLRepository) groupColumns(q *previewQuery) []string {
	groups := make([]string, 0, len(q.groups))
	for _, c := range q.groups {
		groups = append(groups, r.dialect.Quote(c.Name))
	}
	return groups
}

func (r *SQLRepository) applySelect(q *previewQuery, query *string) {
	*query += `SELECT `

	fields := r.groupColumns(q)
	if len(q.bindings) == 0 {
		fields = append(fields, "COUNT(*) AS "+r.dialect.Quote(r.getTotalColumnName()))
	}
	for _, b := range q.bindings {
		aggregate := r.dialect.Aggregate(b.Operation, b.Column)
		if c, ok := q.table.Column(b.Column); ok && countsDistinct(b.Operation, c.DataType) {
			aggregate = r.dialect.DistinctCount(c.Name)
		}
		fields = append(fields, aggregate+" AS "+r.dialect.Quote(MeasureName(b.Operation, b.Metric)))
	}

	*query += strings.Join(fields, `, `)
}

func (r *SQLRepository) applySelectValue(q *previewQuery, query *string) {
	*query += `SELECT `

	fields := r.groupColumns(q)
	fields = append(fields, "COUNT(*) AS "+r.dialect.Quote(r.getTotalColumnName()))

	*query += strings.Join(fields, `, `)
}

func (r *SQLRepository) applyWhere(q *previewQuery, query *string, params *[]interface{}) {
	conditions := make([]string, 0, len(q.req.Filters))

	for _, filter := range q.req.Filters {
		if filter == nil || len(filter.Values) == 0 {
			continue
		}

		column, exists := q.table.Column(filter.Dimension)
		if !exists {
			continue
		}

		key := r.dialect.Quote(column.Name)
		values := make([]interface{}, 0, len(filter.Values))
		for _, v := range filter.Values {
			values = append(values, r.dialect.Value(column.DataType, v))
		}

		switch cond := filter.Condition.normalize(); {
		case cond == CondEq:
			in := strings.TrimSuffix(strings.Repeat("?, ", len(values)), ", ")
			conditions = append(conditions, fmt.Sprintf(`%s IN (%s)`, key, in))
			*params = append(*params, values...)

		case cond == CondNotEq:
			in := strings.TrimSuffix(strings.Repeat("?, ", len(values)), ", ")
			conditions = append(conditions, fmt.Sprintf(`%s NOT IN (%s)`, key, in))
			*params = append(*params, values...)

		case cond == CondLike:
			conditions = append(conditions, fmt.Sprintf(`%s LIKE ?`, key))
			*params = append(*params, fmt.Sprintf("%%%v%%", filter.Values[0]))

		case cond.IsRange():
			conditions = append(conditions, fmt.Sprintf(`%s %s ?`, key, cond))
			*params = append(*params, values[0])
		}
	}

	if len(conditions) > 0 {
		*query += ` WHERE ` + strings.Join(conditions, ` AND `)
	}
}

func (r *SQLRepository) applyGroup(q *previewQuery, query *string) {
	if groups := r.groupColumns(q); len(groups) > 0 {
		*query += ` GROUP BY ` + strings.Join(groups, `, `)
	}
}

func (r *SQLRepository) applyOrder(q *previewQuery, query *string) {
	sortBy := make([]string, 0, len(q.req.SortBy))

	for _, item := range q.req.SortBy {
		if item == nil {
			continue
		}

		var field string
		if c, ok := q.table.Column(item.Key); ok && r.isGroup(q, c) {
			field = r.dialect.Quote(c.Name)
		}
		for _, name := range r.metricNames(q) {
			if strings.EqualFold(name, item.Key) {
				field = r.dialect.Quote(name)
			}
		}
		if field == "" {
			continue
		}

		sortBy = append(sortBy, field+" "+orderDirection(item.Direction))
	}

	if len(sortBy) > 0 {
		*query += ` ORDER BY ` + strings.Join(sortBy, `, `)
	}
}

func (r *SQLRepository) isGroup(q *previewQuery, c *Column) bool {
	for _, g := range q.groups {
		if g == c {
			return true
		}
	}
	return false
}

func orderDirection(direction string) string {
	if d, ok := sortDirection(direction); ok && d == "Descending" {
		return "DESC"
	}
	return "ASC"
}

func (r *SQLRepository) applyLimit(q *previewQuery, query *string) {
	if q.req.Limit > 0 && q.req.Offset > 0 {
		*query += fmt.Sprintf(` LIMIT %d, %d`, q.req.Offset, q.req.Limit)
	} else if q.req.Limit > 0 {
		*query += fmt.Sprintf(` LIMIT %d`, q.req.Limit)
	}
}

func (r *SQLRepository) getTotalColumnName() string {
	if r.totalColumnName == "" {
		return defaultTotalColumnName
	}

	return r.totalColumnName
}

// normalizeValue converts driver bytes to string.
func normalizeValue(v interface{}) interface{} {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

// SafeNaN returns numeric value of an aggregate, zero for NULL, NaN and Inf.
func SafeNaN(i interface{}) ValueNumber {
	f, ok := toFloat(normalizeValue(i))
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return ValueNumber(f)
}
