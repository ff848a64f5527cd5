package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/vench/phantom"
	"github.com/vench/phantom/internal/workbook"
)

const (
	routeHealth     = "/health"
	routeExport     = "/api/v1/export"
	routeMeasures   = "/api/v1/measures"
	routeDictionary = "/api/v1/dictionary"
	routePreview    = "/api/v1/preview"
	routeScenarios  = "/api/v1/scenarios"
	routeRecipe     = "/api/v1/scenarios/:scenario/recipes/:type"

	contentTypeZip  = "application/zip"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var errBadRequest = errors.New("bad request")

func (s *Server) routes() {
	s.engine.GET(routeHealth, s.health)

	s.engine.POST(routeExport, s.export)
	s.engine.POST(routeMeasures, s.measures)
	s.engine.POST(routeDictionary, s.dictionary)
	s.engine.POST(routePreview, s.preview)
	s.engine.GET(routeScenarios, s.scenarios)
	s.engine.GET(routeRecipe, s.recipe)
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) export(c *gin.Context) {
	req := &exportRequest{}
	scenario, ok := s.bindExport(c, req)
	if !ok {
		return
	}

	pkg, err := s.exporter.Export(req.Items, scenario, req.State)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", pkg.ProjectName+".zip"))
	c.Data(http.StatusOK, contentTypeZip, pkg.Blob)
}

func (s *Server) measures(c *gin.Context) {
	req := &exportRequest{}
	scenario, ok := s.bindExport(c, req)
	if !ok {
		return
	}

	measures, err := s.exporter.Measures(req.Items, scenario)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, &measuresResponse{
		Scenario: scenario,
		Measures: measures,
		Bindings: phantom.ExtractMetricBindings(req.Items, scenario),
	})
}

func (s *Server) dictionary(c *gin.Context) {
	req := &exportRequest{}
	scenario, ok := s.bindExport(c, req)
	if !ok {
		return
	}

	data, err := workbook.Dictionary(req.Items, scenario)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", scenario.ProjectName()+".xlsx"))
	c.Data(http.StatusOK, contentTypeXLSX, data)
}

func (s *Server) preview(c *gin.Context) {
	req := &previewRequest{}
	if !s.bind(c, req) {
		return
	}

	scenario, err := phantom.ParseScenario(req.Scenario)
	if err != nil {
		s.fail(c, err)
		return
	}

	resp, err := s.exporter.Preview(c.Request.Context(), req.Item, scenario, req.State)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) scenarios(c *gin.Context) {
	list := make([]*scenarioResponse, 0, len(phantom.Scenarios()))
	for _, sc := range phantom.Scenarios() {
		schema, err := phantom.SchemaFor(sc)
		if err != nil {
			s.fail(c, err)
			return
		}
		list = append(list, newScenarioResponse(schema))
	}

	c.JSON(http.StatusOK, list)
}

func (s *Server) recipe(c *gin.Context) {
	scenario, err := phantom.ParseScenario(c.Param("scenario"))
	if err != nil {
		s.fail(c, err)
		return
	}

	t := phantom.VisualType(c.Param("type"))
	recipe, err := s.exporter.Recipe(t, scenario)
	if err != nil {
		s.fail(c, err)
		return
	}

	item := &phantom.VisualItem{Type: t, Props: recipe.Props(t)}
	c.JSON(http.StatusOK, &recipeResponse{
		Type:     t,
		Scenario: scenario,
		Recipe:   recipe,
		Title:    phantom.SmartTitle(item, scenario),
	})
}

func (s *Server) bindExport(c *gin.Context, req *exportRequest) (phantom.Scenario, bool) {
	if !s.bind(c, req) {
		return "", false
	}

	scenario, err := phantom.ParseScenario(req.Scenario)
	if err != nil {
		s.fail(c, err)
		return "", false
	}

	return scenario, true
}

func (s *Server) bind(c *gin.Context, req interface{}) bool {
	if s.maxBodyBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxBodyBytes)
	}

	if err := c.ShouldBindJSON(req); err != nil {
		s.fail(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return false
	}
	if err := s.validate.Struct(req); err != nil {
		s.fail(c, err)
		return false
	}

	return true
}

func (s *Server) fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(statusOf(err), &errorResponse{
		Error:     err.Error(),
		RequestID: requestID(c),
	})
}

func statusOf(err error) int {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.As(err, &validationErrors),
		errors.Is(err, errBadRequest),
		errors.Is(err, phantom.ErrUnknownScenario),
		errors.Is(err, phantom.ErrDuplicatePath),
		errors.Is(err, phantom.ErrInvalidItemID):
		return http.StatusBadRequest
	case errors.Is(err, phantom.ErrPreviewUnsupported):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
