package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/matsl08/ems-api/internal/models"
	"github.com/matsl08/ems-api/internal/service"
	appErrors "github.com/matsl08/ems-api/pkg/errors"
	"github.com/matsl08/ems-api/pkg/response"
)

// OfferingHandler serves scheduled course offerings, their rosters and the
// direct enroll/drop operations.
type OfferingHandler struct {
	offerings    *service.OfferingService
	registration *service.RegistrationService
}

// NewOfferingHandler creates a new handler.
func NewOfferingHandler(offerings *service.OfferingService, registration *service.RegistrationService) *OfferingHandler {
	return &OfferingHandler{offerings: offerings, registration: registration}
}

// List godoc
// @Summary List offerings
// @Tags Offerings
// @Produce json
// @Param school_year query string false "School year"
// @Param semester query int false "Semester"
// @Param course_code query string false "Course code"
// @Success 200 {object} response.Envelope
// @Router /admin/mis/offerings [get]
func (h *OfferingHandler) List(c *gin.Context) {
	filter := models.OfferingFilter{
		SchoolYear: c.Query("school_year"),
		TeacherID:  c.Query("teacher_id"),
		CourseCode: c.Query("course_code"),
	}
	filter.Semester, _ = strconv.Atoi(c.Query("semester"))
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "50"))

	offerings, pagination, err := h.offerings.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, offerings, pagination)
}

// Get godoc
// @Summary Get one offering with roster
// @Tags Offerings
// @Produce json
// @Param edpCode path string true "EDP code"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/mis/offerings/{edpCode} [get]
func (h *OfferingHandler) Get(c *gin.Context) {
	offering, err := h.offerings.Get(c.Request.Context(), c.Param("edpCode"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, offering, nil)
}

// Create godoc
// @Summary Create an offering
// @Tags Offerings
// @Accept json
// @Produce json
// @Param payload body models.Offering true "Offering payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/mis/offerings [post]
func (h *OfferingHandler) Create(c *gin.Context) {
	var offering models.Offering
	if err := c.ShouldBindJSON(&offering); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid offering payload"))
		return
	}

	created, err := h.offerings.Create(c.Request.Context(), &offering)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, created)
}

// Update godoc
// @Summary Update an offering
// @Tags Offerings
// @Accept json
// @Produce json
// @Param edpCode path string true "EDP code"
// @Param payload body models.Offering true "Offering payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/mis/offerings/{edpCode} [put]
func (h *OfferingHandler) Update(c *gin.Context) {
	var offering models.Offering
	if err := c.ShouldBindJSON(&offering); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid offering payload"))
		return
	}
	offering.EDPCode = c.Param("edpCode")

	updated, err := h.offerings.Update(c.Request.Context(), &offering)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, updated, nil)
}

// Delete godoc
// @Summary Delete an offering
// @Tags Offerings
// @Param edpCode path string true "EDP code"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/mis/offerings/{edpCode} [delete]
func (h *OfferingHandler) Delete(c *gin.Context) {
	if err := h.offerings.Delete(c.Request.Context(), c.Param("edpCode")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Enroll godoc
// @Summary Enroll a student into an offering
// @Description Adds the student to the roster and fans out to the grade, clearance and payment ledgers
// @Tags Offerings
// @Accept json
// @Produce json
// @Param edpCode path string true "EDP code"
// @Param payload body models.EnrollStudentRequest true "Student payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/mis/offerings/{edpCode}/enroll [post]
func (h *OfferingHandler) Enroll(c *gin.Context) {
	var req models.EnrollStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "student_id required"))
		return
	}

	claims := claimsFromContext(c)
	actor := ""
	if claims != nil {
		actor = claims.UserID
	}

	if err := h.registration.Enroll(c.Request.Context(), c.Param("edpCode"), req.StudentID, actor); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"message": "student enrolled"}, nil)
}

// Drop godoc
// @Summary Drop a student from an offering
// @Description Removes the roster, grade and clearance entries; payments are untouched
// @Tags Offerings
// @Param edpCode path string true "EDP code"
// @Param studentId path string true "Student ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/mis/offerings/{edpCode}/students/{studentId} [delete]
func (h *OfferingHandler) Drop(c *gin.Context) {
	claims := claimsFromContext(c)
	actor := ""
	if claims != nil {
		actor = claims.UserID
	}

	if err := h.registration.Drop(c.Request.Context(), c.Param("edpCode"), c.Param("studentId"), actor); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
