package phantom

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// WriteRepository common write interface of the preview store.
type WriteRepository interface {
	// CreateTables recreates tables of the schema.
	CreateTables(ctx context.Context) error
	// AddRows add rows to the table.
	AddRows(ctx context.Context, table string, rows ...Row) error
	// LoadSnapshot replaces store content with the rows of the state.
	LoadSnapshot(ctx context.Context, state *State) error
}

func (r *SQLRepository) CreateTables(ctx context.Context) error {
	for _, t := range r.schema.Tables {
		for _, query := range []string{r.dialect.DropTable(t), r.dialect.CreateTable(t)} {
			r.logger.Debug("preview ddl", zap.String("query", query))
			if _, err := r.conn.ExecContext(ctx, query); err != nil {
				return fmt.Errorf("failed to create table `%s`: %w", t.Name, err)
			}
		}
	}

	return nil
}

func (r *SQLRepository) AddRows(ctx context.Context, table string, rows ...Row) error {
	if len(rows) == 0 {
		return nil
	}

	t, ok := r.schema.Table(table)
	if !ok {
		return fmt.Errorf("%w: unknown table %q", ErrPreviewUnsupported, table)
	}

	columns := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		columns = append(columns, r.dialect.Quote(c.Name))
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		r.dialect.Quote(t.Name),
		strings.Join(columns, ", "),
		strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", "))

	scope, err := r.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin scope `%s`: %w", t.Name, err)
	}
	defer func() {
		_ = scope.Rollback()
	}()

	stmt, err := scope.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare insert into `%s`: %w", t.Name, err)
	}
	defer stmt.Close()

	for _, row := range rows {
		values := make([]interface{}, 0, len(t.Columns))
		for _, c := range t.Columns {
			values = append(values, r.dialect.Value(c.DataType, row[c.Name]))
		}

		if _, err = stmt.ExecContext(ctx, values...); err != nil {
			return fmt.Errorf("failed to execute query insert `%s`: %w", t.Name, err)
		}
	}

	if err = scope.Commit(); err != nil {
		return fmt.Errorf("failed to commit scope `%s`: %w", t.Name, err)
	}

	r.logger.Debug("preview rows loaded", zap.String("table", t.Name), zap.Int("rows", len(rows)))

	return nil
}

func (r *SQLRepository) LoadSnapshot(ctx context.Context, state *State) error {
	if err := r.CreateTables(ctx); err != nil {
		return err
	}

	for _, t := range r.schema.Tables {
		if err := r.AddRows(ctx, t.Name, state.rows(t.Name)...); err != nil {
			return err
		}
	}

	return nil
}
