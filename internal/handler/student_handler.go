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

// StudentHandler serves the student self-service surface: profile edits and
// the gate-filtered ledger views.
type StudentHandler struct {
	students    *service.StudentService
	grades      *service.GradeService
	clearances  *service.ClearanceService
	payments    *service.PaymentService
	offerings   *service.OfferingService
	evaluations *service.EvaluationService
	enrollments *service.EnrollmentService
}

// NewStudentHandler creates a new handler.
func NewStudentHandler(
	students *service.StudentService,
	grades *service.GradeService,
	clearances *service.ClearanceService,
	payments *service.PaymentService,
	offerings *service.OfferingService,
	evaluations *service.EvaluationService,
	enrollments *service.EnrollmentService,
) *StudentHandler {
	return &StudentHandler{
		students:    students,
		grades:      grades,
		clearances:  clearances,
		payments:    payments,
		offerings:   offerings,
		evaluations: evaluations,
		enrollments: enrollments,
	}
}

// GetProfile godoc
// @Summary Get student profile
// @Tags Students
// @Produce json
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{studentId} [get]
func (h *StudentHandler) GetProfile(c *gin.Context) {
	user, err := h.students.Get(c.Request.Context(), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, user, nil)
}

// UpdateAddress godoc
// @Summary Update student address
// @Tags Students
// @Accept json
// @Produce json
// @Param studentId path string true "Student ID"
// @Param payload body models.UpdateAddressRequest true "Address payload"
// @Success 200 {object} response.Envelope
// @Router /students/{studentId}/address [patch]
func (h *StudentHandler) UpdateAddress(c *gin.Context) {
	var req models.UpdateAddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid address payload"))
		return
	}

	user, err := h.students.UpdateAddress(c.Request.Context(), c.Param("studentId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, user, nil)
}

// UpdateContact godoc
// @Summary Update student contact details
// @Tags Students
// @Accept json
// @Produce json
// @Param studentId path string true "Student ID"
// @Param payload body models.UpdateContactRequest true "Contact payload"
// @Success 200 {object} response.Envelope
// @Router /students/{studentId}/contact [patch]
func (h *StudentHandler) UpdateContact(c *gin.Context) {
	var req models.UpdateContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid contact payload"))
		return
	}

	user, err := h.students.UpdateContact(c.Request.Context(), c.Param("studentId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, user, nil)
}

// GetGrades godoc
// @Summary Get student grades
// @Description Returns the grade ledger filtered by payment-derived access
// @Tags Students
// @Produce json
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{studentId}/grades [get]
func (h *StudentHandler) GetGrades(c *gin.Context) {
	view, err := h.grades.StudentView(c.Request.Context(), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// GetClearance godoc
// @Summary Get student clearance
// @Tags Students
// @Produce json
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{studentId}/clearance [get]
func (h *StudentHandler) GetClearance(c *gin.Context) {
	entries, err := h.clearances.StudentView(c.Request.Context(), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// GetPayments godoc
// @Summary Get student payments
// @Tags Students
// @Produce json
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{studentId}/payments [get]
func (h *StudentHandler) GetPayments(c *gin.Context) {
	payments, err := h.payments.ListByStudent(c.Request.Context(), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, payments, nil)
}

// GetCourses godoc
// @Summary Get enrolled offerings for a term
// @Tags Students
// @Produce json
// @Param studentId path string true "Student ID"
// @Param school_year query string true "School year"
// @Param semester query int true "Semester"
// @Success 200 {object} response.Envelope
// @Router /students/{studentId}/courses [get]
func (h *StudentHandler) GetCourses(c *gin.Context) {
	semester, _ := strconv.Atoi(c.Query("semester"))
	offerings, err := h.offerings.ListStudentOfferings(c.Request.Context(), c.Param("studentId"), c.Query("school_year"), semester)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, offerings, nil)
}

// GetEvaluation godoc
// @Summary Get student evaluation sheet
// @Tags Students
// @Produce json
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{studentId}/evaluation [get]
func (h *StudentHandler) GetEvaluation(c *gin.Context) {
	evaluation, err := h.evaluations.Get(c.Request.Context(), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, evaluation, nil)
}

// SubmitEnrollment godoc
// @Summary Submit an enrollment request
// @Tags Students
// @Accept json
// @Produce json
// @Param studentId path string true "Student ID"
// @Param payload body models.CreateEnrollmentRequest true "Enrollment payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /students/{studentId}/enrollment [post]
func (h *StudentHandler) SubmitEnrollment(c *gin.Context) {
	var req models.CreateEnrollmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid enrollment payload"))
		return
	}

	request, err := h.enrollments.Submit(c.Request.Context(), c.Param("studentId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, request)
}

// ListEnrollments godoc
// @Summary List own enrollment requests
// @Tags Students
// @Produce json
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{studentId}/enrollment [get]
func (h *StudentHandler) ListEnrollments(c *gin.Context) {
	filter := models.EnrollmentFilter{
		StudentID: c.Param("studentId"),
		Page:      1,
		PageSize:  50,
	}
	requests, pagination, err := h.enrollments.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requests, pagination)
}
