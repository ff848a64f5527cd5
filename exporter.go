package phantom

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Exporter logged facade over the export pipeline and the preview store.
// Safe for concurrent use.
type Exporter struct {
	logger  *zap.Logger
	preview PreviewStore
}

// ExporterOption option of Exporter.
type ExporterOption func(*Exporter)

// WithLogger sets logger, no-op by default.
func WithLogger(logger *zap.Logger) ExporterOption {
	return func(e *Exporter) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithPreviewStore enables Preview over the store.
func WithPreviewStore(store PreviewStore) ExporterOption {
	return func(e *Exporter) {
		e.preview = store
	}
}

// NewExporter returns new instance of Exporter.
func NewExporter(opts ...ExporterOption) *Exporter {
	e := &Exporter{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Export returns PBIP package of the dashboard.
func (e *Exporter) Export(items []*VisualItem, scenario Scenario, state *State) (*Package, error) {
	logger := e.logger.With(zap.String("scenario", string(scenario)), zap.Int("items", len(items)))

	if _, err := SchemaFor(scenario); err != nil {
		return nil, err
	}
	e.warnUnresolved(logger, items, scenario)

	pkg, err := CreatePackage(items, scenario, state)
	if err != nil {
		logger.Error("export failed", zap.Error(err))
		return nil, err
	}

	logger.Info("package exported",
		zap.String("project", pkg.ProjectName),
		zap.Int("files", len(pkg.Files)),
		zap.Int("measures", len(pkg.Measures)),
		zap.Int("bytes", len(pkg.Blob)),
	)

	return pkg, nil
}

// Measures returns measure set required by the dashboard.
func (e *Exporter) Measures(items []*VisualItem, scenario Scenario) ([]*Measure, error) {
	if _, err := SchemaFor(scenario); err != nil {
		return nil, err
	}
	e.warnUnresolved(e.logger.With(zap.String("scenario", string(scenario))), items, scenario)

	return GenerateAllMeasures(items, scenario), nil
}

// Recipe returns default bindings of the visual type.
func (e *Exporter) Recipe(t VisualType, scenario Scenario) (*Recipe, error) {
	return GetRecipeForVisual(t, scenario)
}

// Preview evaluates item bindings against the state snapshot.
func (e *Exporter) Preview(ctx context.Context, item *VisualItem, scenario Scenario, state *State) (*PreviewResponse, error) {
	if e.preview == nil {
		return nil, fmt.Errorf("%w: preview store is not configured", ErrPreviewUnsupported)
	}

	schema, err := SchemaFor(scenario)
	if err != nil {
		return nil, err
	}

	requests, err := PreviewRequestsFor(item, scenario, state)
	if err != nil {
		return nil, err
	}

	repo, closeStore, err := e.preview(ctx, schema, state)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := closeStore(); err != nil {
			e.logger.Warn("failed to close preview store", zap.Error(err))
		}
	}()

	responses := make([]*PreviewResponse, 0, len(requests))
	for _, req := range requests {
		resp, err := repo.Preview(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("failed to preview table %s: %w", req.Table, err)
		}
		responses = append(responses, resp)
	}

	return UnionPreviewResponse(responses...), nil
}

func (e *Exporter) warnUnresolved(logger *zap.Logger, items []*VisualItem, scenario Scenario) {
	for _, b := range ExtractMetricBindings(items, scenario) {
		if !b.Resolved() {
			logger.Warn("unresolved metric binding, blank measure emitted",
				zap.String("metric", b.Metric),
				zap.String("operation", string(b.Operation)),
			)
		}
	}
}
