package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/matsl08/ems-api/internal/models"
	"github.com/matsl08/ems-api/internal/service"
	"github.com/matsl08/ems-api/pkg/response"
)

// EnrollmentHandler serves the registrar's enrollment request queue.
type EnrollmentHandler struct {
	service *service.EnrollmentService
}

// NewEnrollmentHandler creates a new handler.
func NewEnrollmentHandler(svc *service.EnrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{service: svc}
}

// List godoc
// @Summary List enrollment requests
// @Tags Enrollment
// @Produce json
// @Param status query string false "Status filter"
// @Param school_year query string false "School year"
// @Param semester query int false "Semester"
// @Success 200 {object} response.Envelope
// @Router /admin/registrar/enrollments [get]
func (h *EnrollmentHandler) List(c *gin.Context) {
	filter := models.EnrollmentFilter{
		StudentID:  c.Query("student_id"),
		Status:     models.EnrollmentStatus(c.Query("status")),
		SchoolYear: c.Query("school_year"),
	}
	filter.Semester, _ = strconv.Atoi(c.Query("semester"))
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))

	requests, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requests, pagination)
}

// Get godoc
// @Summary Get one enrollment request
// @Tags Enrollment
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/registrar/enrollments/{id} [get]
func (h *EnrollmentHandler) Get(c *gin.Context) {
	request, err := h.service.Get(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// Approve godoc
// @Summary Approve an enrollment request
// @Description Approves the request and enrolls the student into each requested offering
// @Tags Enrollment
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/registrar/enrollments/{id}/approve [post]
func (h *EnrollmentHandler) Approve(c *gin.Context) {
	claims := claimsFromContext(c)
	actor := ""
	if claims != nil {
		actor = claims.UserID
	}

	request, err := h.service.Approve(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// Reject godoc
// @Summary Reject an enrollment request
// @Tags Enrollment
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/registrar/enrollments/{id}/reject [post]
func (h *EnrollmentHandler) Reject(c *gin.Context) {
	claims := claimsFromContext(c)
	actor := ""
	if claims != nil {
		actor = claims.UserID
	}

	request, err := h.service.Reject(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}
