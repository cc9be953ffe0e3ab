package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/matsl08/ems-api/internal/models"
	appErrors "github.com/matsl08/ems-api/pkg/errors"
)

type catalogRepository interface {
	ListDepartments(ctx context.Context) ([]models.Department, error)
	FindDepartmentByCode(ctx context.Context, code string) (*models.Department, error)
	CreateDepartment(ctx context.Context, department *models.Department) error
	UpdateDepartment(ctx context.Context, department *models.Department) error
	AddProgram(ctx context.Context, program *models.Program) error
	ListCourses(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error)
	FindCourseByCode(ctx context.Context, courseCode string) (*models.Course, error)
	CreateCourse(ctx context.Context, course *models.Course) error
	UpdateCourse(ctx context.Context, course *models.Course) error
	DeleteCourse(ctx context.Context, courseCode string) error
}

// CatalogService manages the reference data: departments, programs and
// catalog courses.
type CatalogService struct {
	repo      catalogRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCatalogService constructs a CatalogService.
func NewCatalogService(repo catalogRepository, validate *validator.Validate, logger *zap.Logger) *CatalogService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{repo: repo, validator: validate, logger: logger}
}

// ListDepartments returns all departments with programs.
func (s *CatalogService) ListDepartments(ctx context.Context) ([]models.Department, error) {
	departments, err := s.repo.ListDepartments(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list departments")
	}
	return departments, nil
}

// GetDepartment returns one department by code.
func (s *CatalogService) GetDepartment(ctx context.Context, code string) (*models.Department, error) {
	department, err := s.repo.FindDepartmentByCode(ctx, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "department not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load department")
	}
	return department, nil
}

// CreateDepartment registers a department and its programs.
func (s *CatalogService) CreateDepartment(ctx context.Context, department *models.Department) (*models.Department, error) {
	if department.DepartmentCode == "" || department.Name == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "department_code and name are required")
	}
	if _, err := s.repo.FindDepartmentByCode(ctx, department.DepartmentCode); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "department code is already registered")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check department")
	}

	if err := s.repo.CreateDepartment(ctx, department); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create department")
	}

	s.logger.Info("department created", zap.String("department_code", department.DepartmentCode))
	return department, nil
}

// UpdateDepartment edits the mutable department fields.
func (s *CatalogService) UpdateDepartment(ctx context.Context, department *models.Department) (*models.Department, error) {
	if err := s.repo.UpdateDepartment(ctx, department); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "department not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update department")
	}
	return s.GetDepartment(ctx, department.DepartmentCode)
}

// AddProgram attaches a program to an existing department.
func (s *CatalogService) AddProgram(ctx context.Context, departmentCode string, program *models.Program) (*models.Program, error) {
	if program.ProgramCode == "" || program.ProgramName == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "program_code and program_name are required")
	}
	department, err := s.GetDepartment(ctx, departmentCode)
	if err != nil {
		return nil, err
	}
	for _, existing := range department.Programs {
		if existing.ProgramCode == program.ProgramCode {
			return nil, appErrors.Clone(appErrors.ErrConflict, "program code is already registered")
		}
	}

	program.DepartmentID = department.ID
	if err := s.repo.AddProgram(ctx, program); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to add program")
	}

	s.logger.Info("program added",
		zap.String("department_code", departmentCode),
		zap.String("program_code", program.ProgramCode))
	return program, nil
}

// ListCourses returns catalog courses matching the filter.
func (s *CatalogService) ListCourses(ctx context.Context, filter models.CourseFilter) ([]models.Course, *models.Pagination, error) {
	courses, total, err := s.repo.ListCourses(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	return courses, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// GetCourse returns one catalog course by code.
func (s *CatalogService) GetCourse(ctx context.Context, courseCode string) (*models.Course, error) {
	course, err := s.repo.FindCourseByCode(ctx, courseCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return course, nil
}

// CreateCourse registers a catalog course.
func (s *CatalogService) CreateCourse(ctx context.Context, course *models.Course) (*models.Course, error) {
	if course.CourseCode == "" || course.Description == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "course_code and description are required")
	}
	if _, err := s.repo.FindCourseByCode(ctx, course.CourseCode); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "course code is already registered")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check course")
	}

	if err := s.repo.CreateCourse(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}

	s.logger.Info("course created", zap.String("course_code", course.CourseCode))
	return course, nil
}

// UpdateCourse edits a catalog course.
func (s *CatalogService) UpdateCourse(ctx context.Context, course *models.Course) (*models.Course, error) {
	if err := s.repo.UpdateCourse(ctx, course); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update course")
	}
	return s.GetCourse(ctx, course.CourseCode)
}

// DeleteCourse removes a catalog course.
func (s *CatalogService) DeleteCourse(ctx context.Context, courseCode string) error {
	if err := s.repo.DeleteCourse(ctx, courseCode); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete course")
	}
	s.logger.Info("course deleted", zap.String("course_code", courseCode))
	return nil
}
