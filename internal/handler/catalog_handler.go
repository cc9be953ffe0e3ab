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

// CatalogHandler serves departments, programs and catalog courses.
type CatalogHandler struct {
	service *service.CatalogService
}

// NewCatalogHandler creates a new handler.
func NewCatalogHandler(svc *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{service: svc}
}

// ListDepartments godoc
// @Summary List departments with programs
// @Tags Catalog
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/mis/departments [get]
func (h *CatalogHandler) ListDepartments(c *gin.Context) {
	departments, err := h.service.ListDepartments(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, departments, nil)
}

// CreateDepartment godoc
// @Summary Create a department
// @Tags Catalog
// @Accept json
// @Produce json
// @Param payload body models.Department true "Department payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/mis/departments [post]
func (h *CatalogHandler) CreateDepartment(c *gin.Context) {
	var department models.Department
	if err := c.ShouldBindJSON(&department); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid department payload"))
		return
	}

	created, err := h.service.CreateDepartment(c.Request.Context(), &department)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, created)
}

// UpdateDepartment godoc
// @Summary Update a department
// @Tags Catalog
// @Accept json
// @Produce json
// @Param code path string true "Department code"
// @Param payload body models.Department true "Department payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/mis/departments/{code} [put]
func (h *CatalogHandler) UpdateDepartment(c *gin.Context) {
	var department models.Department
	if err := c.ShouldBindJSON(&department); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid department payload"))
		return
	}
	department.DepartmentCode = c.Param("code")

	updated, err := h.service.UpdateDepartment(c.Request.Context(), &department)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, updated, nil)
}

// AddProgram godoc
// @Summary Add a program to a department
// @Tags Catalog
// @Accept json
// @Produce json
// @Param code path string true "Department code"
// @Param payload body models.Program true "Program payload"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/mis/departments/{code}/programs [post]
func (h *CatalogHandler) AddProgram(c *gin.Context) {
	var program models.Program
	if err := c.ShouldBindJSON(&program); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid program payload"))
		return
	}

	created, err := h.service.AddProgram(c.Request.Context(), c.Param("code"), &program)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, created)
}

// ListCourses godoc
// @Summary List catalog courses
// @Tags Catalog
// @Produce json
// @Param program_code query string false "Program code"
// @Param department_code query string false "Department code"
// @Param curriculum_year query int false "Curriculum year"
// @Success 200 {object} response.Envelope
// @Router /admin/mis/courses [get]
func (h *CatalogHandler) ListCourses(c *gin.Context) {
	filter := models.CourseFilter{
		ProgramCode:    c.Query("program_code"),
		DepartmentCode: c.Query("department_code"),
	}
	filter.CurriculumYear, _ = strconv.Atoi(c.Query("curriculum_year"))
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "50"))

	courses, pagination, err := h.service.ListCourses(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses, pagination)
}

// CreateCourse godoc
// @Summary Create a catalog course
// @Tags Catalog
// @Accept json
// @Produce json
// @Param payload body models.Course true "Course payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/mis/courses [post]
func (h *CatalogHandler) CreateCourse(c *gin.Context) {
	var course models.Course
	if err := c.ShouldBindJSON(&course); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid course payload"))
		return
	}

	created, err := h.service.CreateCourse(c.Request.Context(), &course)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, created)
}

// UpdateCourse godoc
// @Summary Update a catalog course
// @Tags Catalog
// @Accept json
// @Produce json
// @Param code path string true "Course code"
// @Param payload body models.Course true "Course payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/mis/courses/{code} [put]
func (h *CatalogHandler) UpdateCourse(c *gin.Context) {
	var course models.Course
	if err := c.ShouldBindJSON(&course); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid course payload"))
		return
	}
	course.CourseCode = c.Param("code")

	updated, err := h.service.UpdateCourse(c.Request.Context(), &course)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, updated, nil)
}

// DeleteCourse godoc
// @Summary Delete a catalog course
// @Tags Catalog
// @Param code path string true "Course code"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/mis/courses/{code} [delete]
func (h *CatalogHandler) DeleteCourse(c *gin.Context) {
	if err := h.service.DeleteCourse(c.Request.Context(), c.Param("code")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
