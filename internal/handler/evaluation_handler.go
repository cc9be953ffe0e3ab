package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/matsl08/ems-api/internal/models"
	"github.com/matsl08/ems-api/internal/service"
	appErrors "github.com/matsl08/ems-api/pkg/errors"
	"github.com/matsl08/ems-api/pkg/response"
)

// EvaluationHandler serves the registrar's evaluation sheets.
type EvaluationHandler struct {
	service *service.EvaluationService
}

// NewEvaluationHandler creates a new handler.
func NewEvaluationHandler(svc *service.EvaluationService) *EvaluationHandler {
	return &EvaluationHandler{service: svc}
}

// Get godoc
// @Summary Get a student's evaluation sheet
// @Tags Evaluations
// @Produce json
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/registrar/evaluations/{studentId} [get]
func (h *EvaluationHandler) Get(c *gin.Context) {
	evaluation, err := h.service.Get(c.Request.Context(), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, evaluation, nil)
}

// UpdateCourse godoc
// @Summary Overlay a grade on one evaluation course
// @Tags Evaluations
// @Accept json
// @Produce json
// @Param studentId path string true "Student ID"
// @Param courseCode path string true "Course code"
// @Param payload body models.UpdateEvaluationCourseRequest true "Evaluation payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/registrar/evaluations/{studentId}/courses/{courseCode} [patch]
func (h *EvaluationHandler) UpdateCourse(c *gin.Context) {
	var req models.UpdateEvaluationCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid evaluation payload"))
		return
	}

	evaluation, err := h.service.UpdateCourse(c.Request.Context(), c.Param("studentId"), c.Param("courseCode"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, evaluation, nil)
}

// Export godoc
// @Summary Export an evaluation sheet
// @Tags Evaluations
// @Produce text/csv
// @Param studentId path string true "Student ID"
// @Param format query string false "csv or pdf"
// @Success 200 {file} binary
// @Failure 404 {object} response.Envelope
// @Router /admin/registrar/evaluations/{studentId}/export [get]
func (h *EvaluationHandler) Export(c *gin.Context) {
	format := c.DefaultQuery("format", "csv")
	payload, contentType, err := h.service.Export(c.Request.Context(), c.Param("studentId"), format)
	if err != nil {
		response.Error(c, err)
		return
	}

	extension := "csv"
	if format == "pdf" {
		extension = "pdf"
	}
	c.Header("Content-Disposition", `attachment; filename="evaluation-`+c.Param("studentId")+`.`+extension+`"`)
	c.Data(http.StatusOK, contentType, payload)
}
