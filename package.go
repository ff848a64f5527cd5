package phantom

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

const (
	pbipSchema     = "https://developer.microsoft.com/json-schemas/fabric/pbip/pbipProperties/1.0.0/schema.json"
	platformSchema = "https://developer.microsoft.com/json-schemas/fabric/gitIntegration/platformProperties/2.0.0/schema.json"
	pbirSchema     = "https://developer.microsoft.com/json-schemas/fabric/item/report/definitionProperties/2.0.0/schema.json"
	pbismSchema    = "https://developer.microsoft.com/json-schemas/fabric/item/semanticModel/definitionProperties/1.0.0/schema.json"
)

// ErrInvalidItemID returned when an item id can not name a visual folder.
var ErrInvalidItemID = errors.New("invalid item id")

// Package exported PBIP project.
type Package struct {
	ProjectName string
	// Files archive paths in sorted order.
	Files    []string
	Blob     []byte
	Measures []*Measure
	Manifest *ReportManifest
}

type pbipProject struct {
	Schema    string          `json:"$schema"`
	Version   string          `json:"version"`
	Artifacts []*pbipArtifact `json:"artifacts"`
	Settings  pbipSettings    `json:"settings"`
}

type pbipArtifact struct {
	Report pbipPath `json:"report"`
}

type pbipPath struct {
	Path string `json:"path"`
}

type pbipSettings struct {
	EnableAutoRecovery bool `json:"enableAutoRecovery"`
}

type platformProperties struct {
	Schema   string           `json:"$schema"`
	Metadata platformMetadata `json:"metadata"`
	Config   platformConfig   `json:"config"`
}

type platformMetadata struct {
	Type        string `json:"type"`
	DisplayName string `json:"displayName"`
}

type platformConfig struct {
	Version   string `json:"version"`
	LogicalID string `json:"logicalId"`
}

type reportDefinitionProperties struct {
	Schema           string           `json:"$schema"`
	Version          string           `json:"version"`
	DatasetReference datasetReference `json:"datasetReference"`
}

type datasetReference struct {
	ByPath pbipPath `json:"byPath"`
}

type semanticModelProperties struct {
	Schema   string                 `json:"$schema"`
	Version  string                 `json:"version"`
	Settings map[string]interface{} `json:"settings"`
}

func platformFor(project, itemType string) *platformProperties {
	return &platformProperties{
		Schema:   platformSchema,
		Metadata: platformMetadata{Type: itemType, DisplayName: project},
		Config:   platformConfig{Version: "2.0", LogicalID: LineageTag(project, itemType)},
	}
}

// CreatePackage builds PBIP project of the dashboard and returns it with the zip archive.
// Items and state are read only.
func CreatePackage(items []*VisualItem, scenario Scenario, state *State) (*Package, error) {
	schema, err := SchemaFor(scenario)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		if item == nil {
			continue
		}
		if err := ValidateItemID(item.ID); err != nil {
			return nil, err
		}
	}

	measures := GenerateAllMeasures(items, scenario)
	manifest := BuildReportManifest(items)

	tree, err := buildTree(items, schema, state, measures, manifest)
	if err != nil {
		return nil, fmt.Errorf("failed to build package tree: %w", err)
	}

	blob, err := tree.Zip()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize package: %w", err)
	}

	return &Package{
		ProjectName: scenario.ProjectName(),
		Files:       tree.Paths(),
		Blob:        blob,
		Measures:    measures,
		Manifest:    manifest,
	}, nil
}

func buildTree(
	items []*VisualItem, schema *Schema, state *State, measures []*Measure, manifest *ReportManifest,
) (*FileTree, error) {
	project := schema.Scenario.ProjectName()
	reportDir := project + ".Report"
	modelDir := project + ".SemanticModel"

	tree := NewFileTree()

	if err := addProjectFiles(tree, project, reportDir, modelDir); err != nil {
		return nil, err
	}
	if err := addReport(tree, reportDir, items, schema, state, measures, manifest); err != nil {
		return nil, err
	}
	if err := addSemanticModel(tree, project, modelDir, schema, state, measures); err != nil {
		return nil, err
	}

	return tree, nil
}

func addProjectFiles(tree *FileTree, project, reportDir, modelDir string) error {
	files := []struct {
		name string
		v    interface{}
	}{
		{project + ".pbip", &pbipProject{
			Schema:    pbipSchema,
			Version:   "1.0",
			Artifacts: []*pbipArtifact{{Report: pbipPath{Path: reportDir}}},
			Settings:  pbipSettings{EnableAutoRecovery: true},
		}},
		{path.Join(reportDir, ".platform"), platformFor(project, "Report")},
		{path.Join(reportDir, "definition.pbir"), &reportDefinitionProperties{
			Schema:           pbirSchema,
			Version:          "4.0",
			DatasetReference: datasetReference{ByPath: pbipPath{Path: "../" + modelDir}},
		}},
		{path.Join(modelDir, ".platform"), platformFor(project, "SemanticModel")},
		{path.Join(modelDir, "definition.pbism"), &semanticModelProperties{
			Schema:   pbismSchema,
			Version:  "4.2",
			Settings: map[string]interface{}{},
		}},
	}

	for _, f := range files {
		if err := tree.AddJSON(f.name, f.v); err != nil {
			return err
		}
	}
	return nil
}

func addReport(
	tree *FileTree, reportDir string, items []*VisualItem, schema *Schema, state *State,
	measures []*Measure, manifest *ReportManifest,
) error {
	definition := path.Join(reportDir, "definition")
	pagesDir := path.Join(definition, "pages")

	if err := tree.AddJSON(path.Join(definition, "version.json"), buildVersionMetadata()); err != nil {
		return err
	}
	if err := tree.AddJSON(path.Join(definition, "report.json"), buildReportDefinition(state)); err != nil {
		return err
	}
	if err := tree.AddJSON(path.Join(pagesDir, "pages.json"), buildPagesMetadata(manifest)); err != nil {
		return err
	}

	index := NewMeasureIndex(measures)
	page := manifest.Pages[0]
	pageDir := path.Join(pagesDir, page.Name)

	if err := tree.AddJSON(path.Join(pageDir, "page.json"), buildPage(page, items, schema, state)); err != nil {
		return err
	}

	position := 0
	for _, item := range items {
		if item == nil {
			continue
		}

		container := buildVisual(item, position, schema, index)
		if err := tree.AddJSON(VisualPath(schema.Scenario.ProjectName(), page.Name, item.ID), container); err != nil {
			return err
		}
		position++
	}

	return nil
}

func addSemanticModel(
	tree *FileTree, project, modelDir string, schema *Schema, state *State, measures []*Measure,
) error {
	definition := path.Join(modelDir, "definition")

	if err := tree.AddString(path.Join(definition, "database.tmdl"), RenderDatabase()); err != nil {
		return err
	}
	if err := tree.AddString(path.Join(definition, "model.tmdl"), RenderModel(schema)); err != nil {
		return err
	}
	if len(schema.Relationships) > 0 {
		err := tree.AddString(path.Join(definition, "relationships.tmdl"), RenderRelationships(project, schema))
		if err != nil {
			return err
		}
	}

	routes := RouteMeasures(measures, schema)
	for _, t := range schema.Tables {
		content := RenderTable(project, t, routes[t.Name], state.rows(t.Name))
		if err := tree.AddString(TablePath(project, t.Name), content); err != nil {
			return err
		}
	}

	return nil
}

// TablePath returns archive path of the table definition.
func TablePath(project, table string) string {
	return path.Join(project+".SemanticModel", "definition", "tables", table+".tmdl")
}

// ValidateItemID checks the id is a single path segment.
func ValidateItemID(id string) error {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidItemID, id)
	}
	return nil
}

// VisualPath returns archive path of the visual definition.
func VisualPath(project, page, id string) string {
	return path.Join(project+".Report", "definition", "pages", page, "visuals", id, "visual.json")
}
