package server

import (
	"github.com/vench/phantom"
)

type exportRequest struct {
	Items    []*phantom.VisualItem `json:"items" validate:"dive,required"`
	Scenario string                `json:"scenario" validate:"required"`
	State    *phantom.State        `json:"state"`
}

type previewRequest struct {
	Item     *phantom.VisualItem `json:"item" validate:"required"`
	Scenario string              `json:"scenario" validate:"required"`
	State    *phantom.State      `json:"state"`
}

type measuresResponse struct {
	Scenario phantom.Scenario   `json:"scenario"`
	Measures []*phantom.Measure `json:"measures"`
	Bindings []*phantom.Binding `json:"bindings"`
}

type scenarioResponse struct {
	Name               phantom.Scenario        `json:"name"`
	Project            string                  `json:"project"`
	Tables             []*phantom.Table        `json:"tables"`
	Relationships      []*phantom.Relationship `json:"relationships,omitempty"`
	PrimaryDimension   string                  `json:"primaryDimension"`
	SecondaryDimension string                  `json:"secondaryDimension"`
	TimeDimension      string                  `json:"timeDimension"`
	Metrics            []string                `json:"metrics"`
}

type recipeResponse struct {
	Type     phantom.VisualType `json:"type"`
	Scenario phantom.Scenario   `json:"scenario"`
	Recipe   *phantom.Recipe    `json:"recipe"`
	Title    string             `json:"title"`
}

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"requestId,omitempty"`
}

func newScenarioResponse(s *phantom.Schema) *scenarioResponse {
	metrics := make([]string, 0, len(s.Metrics()))
	for _, m := range s.Metrics() {
		metrics = append(metrics, m.Key)
	}

	return &scenarioResponse{
		Name:               s.Scenario,
		Project:            s.Scenario.ProjectName(),
		Tables:             s.Tables,
		Relationships:      s.Relationships,
		PrimaryDimension:   s.PrimaryDimension,
		SecondaryDimension: s.SecondaryDimension,
		TimeDimension:      s.TimeDimension,
		Metrics:            metrics,
	}
}
