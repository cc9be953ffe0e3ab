package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/matsl08/ems-api/internal/models"
	"github.com/matsl08/ems-api/internal/service"
	appErrors "github.com/matsl08/ems-api/pkg/errors"
	"github.com/matsl08/ems-api/pkg/response"
)

// TeacherHandler serves the instructor surface: assigned offerings, grade
// sheets and clearance sign-off.
type TeacherHandler struct {
	offerings  *service.OfferingService
	grades     *service.GradeService
	clearances *service.ClearanceService
}

// NewTeacherHandler creates a new handler.
func NewTeacherHandler(offerings *service.OfferingService, grades *service.GradeService, clearances *service.ClearanceService) *TeacherHandler {
	return &TeacherHandler{offerings: offerings, grades: grades, clearances: clearances}
}

// MyOfferings godoc
// @Summary List offerings assigned to the current teacher
// @Tags Teachers
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /teachers/courses [get]
func (h *TeacherHandler) MyOfferings(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	offerings, err := h.offerings.ListByTeacher(c.Request.Context(), claims.ExternalID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, offerings, nil)
}

// CourseGrades godoc
// @Summary Get the grade sheet for an offering
// @Tags Teachers
// @Produce json
// @Param edpCode path string true "EDP code"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /teachers/courses/{edpCode}/grades [get]
func (h *TeacherHandler) CourseGrades(c *gin.Context) {
	claims := claimsFromContext(c)
	rows, err := h.grades.CourseGrades(c.Request.Context(), c.Param("edpCode"), teacherIDFromClaims(claims))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}

// UpdateStudentGrade godoc
// @Summary Update one student's marks
// @Tags Teachers
// @Accept json
// @Produce json
// @Param edpCode path string true "EDP code"
// @Param studentId path string true "Student ID"
// @Param payload body models.UpdateGradeRequest true "Grade payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /teachers/courses/{edpCode}/grades/{studentId} [patch]
func (h *TeacherHandler) UpdateStudentGrade(c *gin.Context) {
	var req models.UpdateGradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid grade payload"))
		return
	}

	claims := claimsFromContext(c)
	entry, err := h.grades.UpdateStudentGrade(c.Request.Context(), c.Param("edpCode"), c.Param("studentId"), teacherIDFromClaims(claims), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry, nil)
}

// BulkUploadGrades godoc
// @Summary Upload a batch of grades
// @Description Accepts a JSON array of rows or a multipart CSV file
// @Tags Teachers
// @Accept json
// @Produce json
// @Param edpCode path string true "EDP code"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /teachers/courses/{edpCode}/grades/bulk [post]
func (h *TeacherHandler) BulkUploadGrades(c *gin.Context) {
	claims := claimsFromContext(c)
	edpCode := c.Param("edpCode")

	var rows []models.BulkGradeRow
	if file, err := c.FormFile("file"); err == nil {
		opened, err := file.Open()
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "failed to open upload"))
			return
		}
		defer opened.Close()

		rows, err = h.grades.ParseCSVRows(opened)
		if err != nil {
			response.Error(c, err)
			return
		}
	} else if err := c.ShouldBindJSON(&rows); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid grade rows"))
		return
	}

	result, err := h.grades.BulkUpload(c.Request.Context(), edpCode, teacherIDFromClaims(claims), rows)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// ExportCourseGrades godoc
// @Summary Export the grade sheet as CSV
// @Tags Teachers
// @Produce text/csv
// @Param edpCode path string true "EDP code"
// @Success 200 {file} binary
// @Router /teachers/courses/{edpCode}/grades/export [get]
func (h *TeacherHandler) ExportCourseGrades(c *gin.Context) {
	claims := claimsFromContext(c)
	payload, err := h.grades.ExportCourseGrades(c.Request.Context(), c.Param("edpCode"), teacherIDFromClaims(claims))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="grades-`+c.Param("edpCode")+`.csv"`)
	c.Data(http.StatusOK, "text/csv", payload)
}

// CourseClearance godoc
// @Summary Get the clearance sheet for an offering
// @Tags Teachers
// @Produce json
// @Param edpCode path string true "EDP code"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /teachers/courses/{edpCode}/clearance [get]
func (h *TeacherHandler) CourseClearance(c *gin.Context) {
	claims := claimsFromContext(c)
	rows, err := h.clearances.CourseClearance(c.Request.Context(), c.Param("edpCode"), teacherIDFromClaims(claims))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}

// UpdateClearance godoc
// @Summary Update one student's clearance line
// @Tags Teachers
// @Accept json
// @Produce json
// @Param edpCode path string true "EDP code"
// @Param studentId path string true "Student ID"
// @Param payload body models.UpdateClearanceRequest true "Clearance payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /teachers/courses/{edpCode}/clearance/{studentId} [patch]
func (h *TeacherHandler) UpdateClearance(c *gin.Context) {
	var req models.UpdateClearanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid clearance payload"))
		return
	}

	claims := claimsFromContext(c)
	entry, err := h.clearances.UpdateStatus(c.Request.Context(), c.Param("edpCode"), c.Param("studentId"), teacherIDFromClaims(claims), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry, nil)
}
