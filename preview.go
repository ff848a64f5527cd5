package phantom

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// PreviewRequestsFor returns one preview request per table holding the item bindings.
// Dimensions the table does not hold are dropped from its request.
func PreviewRequestsFor(item *VisualItem, scenario Scenario, state *State) ([]*PreviewRequest, error) {
	schema, err := SchemaFor(scenario)
	if err != nil {
		return nil, err
	}
	if item == nil || item.Type == VisualText {
		return nil, ErrPreviewUnsupported
	}

	props := item.consumed()
	bindings := ExtractMetricBindings([]*VisualItem{item}, scenario)
	dims := itemDimensions(item, schema)

	byTable := make(map[string][]*Binding)
	tables := make([]string, 0, 2)
	for _, b := range bindings {
		if !b.Resolved() {
			continue
		}
		if _, ok := byTable[b.Table]; !ok {
			tables = append(tables, b.Table)
		}
		byTable[b.Table] = append(byTable[b.Table], b)
	}

	if len(tables) == 0 {
		for _, d := range dims {
			if t, _, ok := schema.ResolveDimension(d); ok {
				tables = append(tables, t.Name)
				break
			}
		}
	}
	if len(tables) == 0 {
		return nil, fmt.Errorf("%w: item %q has no resolved bindings", ErrPreviewUnsupported, item.ID)
	}

	limit := props.Int(PropTopN)
	if limit <= 0 {
		limit = props.Int(PropMaxRows)
	}

	requests := make([]*PreviewRequest, 0, len(tables))
	for _, name := range tables {
		table, _ := schema.Table(name)

		req := &PreviewRequest{
			Table:    table.Name,
			Bindings: byTable[name],
			Filters:  state.filters(),
			Limit:    limit,
		}
		for _, d := range dims {
			if c, ok := table.Column(d); ok {
				req.Groups = append(req.Groups, c.Name)
			}
		}

		if direction, ok := sortDirection(props.String(PropSort)); ok {
			key := ""
			if len(req.Bindings) > 0 {
				key = MeasureName(req.Bindings[0].Operation, req.Bindings[0].Metric)
			} else if len(req.Groups) > 0 {
				key = req.Groups[0]
			}
			if key != "" {
				req.SortBy = []*PreviewOrder{{Key: key, Direction: strings.ToLower(direction)}}
			}
		}

		requests = append(requests, req)
	}

	return requests, nil
}

// PreviewStore opens read repository of the scenario with the state snapshot available.
// Returned close function releases the store.
type PreviewStore func(ctx context.Context, schema *Schema, state *State) (ReadRepository, func() error, error)

// SnapshotPreviewStore returns store opening a fresh database per call and loading the state rows.
// Intended for in-memory sqlite ("sqlite3", ":memory:").
func SnapshotPreviewStore(driver, dsn string, opts ...SQLRepositoryOption) PreviewStore {
	return func(ctx context.Context, schema *Schema, state *State) (ReadRepository, func() error, error) {
		conn, err := sql.Open(driver, dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open %s connection: %w", driver, err)
		}
		conn.SetMaxOpenConns(1)

		repo := NewSQLRepository(conn, schema, opts...)
		if err = repo.LoadSnapshot(ctx, state); err != nil {
			_ = conn.Close()
			return nil, nil, fmt.Errorf("failed to load snapshot: %w", err)
		}

		return repo, conn.Close, nil
	}
}

// SharedPreviewStore returns store reading tables already loaded into db.
func SharedPreviewStore(db *sql.DB, opts ...SQLRepositoryOption) PreviewStore {
	return func(_ context.Context, schema *Schema, _ *State) (ReadRepository, func() error, error) {
		return NewSQLRepository(db, schema, opts...), func() error { return nil }, nil
	}
}
