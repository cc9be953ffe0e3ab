package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/matsl08/ems-api/internal/models"
)

const courseColumns = `id, course_code, description, credit_units, prerequisites, department_code, program_code,
	year_offered, semester_offered, curriculum_year, created_at, updated_at`

// CatalogRepository handles departments, programs and catalog courses.
type CatalogRepository struct {
	db *sqlx.DB
}

// NewCatalogRepository constructs the repository.
func NewCatalogRepository(db *sqlx.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// ListDepartments returns all departments with their programs attached.
func (r *CatalogRepository) ListDepartments(ctx context.Context) ([]models.Department, error) {
	const query = `SELECT id, name, department_code, department_head, created_at, updated_at
	FROM departments ORDER BY department_code`
	var departments []models.Department
	if err := r.db.SelectContext(ctx, &departments, query); err != nil {
		return nil, fmt.Errorf("list departments: %w", err)
	}
	for i := range departments {
		programs, err := r.listPrograms(ctx, departments[i].ID)
		if err != nil {
			return nil, err
		}
		departments[i].Programs = programs
	}
	return departments, nil
}

// FindDepartmentByCode returns one department with programs.
func (r *CatalogRepository) FindDepartmentByCode(ctx context.Context, code string) (*models.Department, error) {
	const query = `SELECT id, name, department_code, department_head, created_at, updated_at
	FROM departments WHERE department_code = $1`
	var department models.Department
	if err := r.db.GetContext(ctx, &department, query, code); err != nil {
		return nil, err
	}
	programs, err := r.listPrograms(ctx, department.ID)
	if err != nil {
		return nil, err
	}
	department.Programs = programs
	return &department, nil
}

func (r *CatalogRepository) listPrograms(ctx context.Context, departmentID string) ([]models.Program, error) {
	const query = `SELECT id, department_id, program_code, program_name
	FROM programs WHERE department_id = $1 ORDER BY program_code`
	var programs []models.Program
	if err := r.db.SelectContext(ctx, &programs, query, departmentID); err != nil {
		return nil, fmt.Errorf("list programs: %w", err)
	}
	return programs, nil
}

// CreateDepartment persists a department and its programs in one transaction.
func (r *CatalogRepository) CreateDepartment(ctx context.Context, department *models.Department) error {
	if department.ID == "" {
		department.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	department.CreatedAt = now
	department.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create department tx: %w", err)
	}

	const query = `INSERT INTO departments (id, name, department_code, department_head, created_at, updated_at)
	VALUES (:id, :name, :department_code, :department_head, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, query, department); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("insert department: %w", err)
	}

	for i := range department.Programs {
		department.Programs[i].ID = uuid.NewString()
		department.Programs[i].DepartmentID = department.ID
		const programQuery = `INSERT INTO programs (id, department_id, program_code, program_name)
		VALUES (:id, :department_id, :program_code, :program_name)`
		if _, err := tx.NamedExecContext(ctx, programQuery, department.Programs[i]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert program: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create department tx: %w", err)
	}
	return nil
}

// UpdateDepartment updates the mutable department fields.
func (r *CatalogRepository) UpdateDepartment(ctx context.Context, department *models.Department) error {
	department.UpdatedAt = time.Now().UTC()
	const query = `UPDATE departments SET name = :name, department_head = :department_head, updated_at = :updated_at
	WHERE department_code = :department_code`
	result, err := r.db.NamedExecContext(ctx, query, department)
	if err != nil {
		return fmt.Errorf("update department: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// AddProgram attaches a program to a department.
func (r *CatalogRepository) AddProgram(ctx context.Context, program *models.Program) error {
	if program.ID == "" {
		program.ID = uuid.NewString()
	}
	const query = `INSERT INTO programs (id, department_id, program_code, program_name)
	VALUES (:id, :department_id, :program_code, :program_name)`
	if _, err := r.db.NamedExecContext(ctx, query, program); err != nil {
		return fmt.Errorf("insert program: %w", err)
	}
	return nil
}

// ListCourses returns catalog courses matching the filter.
func (r *CatalogRepository) ListCourses(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error) {
	conditions := []string{"1=1"}
	var args []interface{}

	if filter.ProgramCode != "" {
		conditions = append(conditions, fmt.Sprintf("program_code = $%d", len(args)+1))
		args = append(args, filter.ProgramCode)
	}
	if filter.DepartmentCode != "" {
		conditions = append(conditions, fmt.Sprintf("department_code = $%d", len(args)+1))
		args = append(args, filter.DepartmentCode)
	}
	if filter.CurriculumYear != 0 {
		conditions = append(conditions, fmt.Sprintf("curriculum_year = $%d", len(args)+1))
		args = append(args, filter.CurriculumYear)
	}
	clause := strings.Join(conditions, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s FROM courses WHERE %s ORDER BY year_offered, semester_offered, course_code LIMIT %d OFFSET %d",
		courseColumns, clause, size, offset)
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list courses: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM courses WHERE %s", clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count courses: %w", err)
	}
	return courses, total, nil
}

// ListProgramCourses returns every catalog course a program requires for a
// curriculum year, ordered by the term it is offered in.
func (r *CatalogRepository) ListProgramCourses(ctx context.Context, programCode string, curriculumYear int) ([]models.Course, error) {
	query := fmt.Sprintf(`SELECT %s FROM courses WHERE program_code = $1 AND curriculum_year = $2
	ORDER BY year_offered, semester_offered, course_code`, courseColumns)
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, programCode, curriculumYear); err != nil {
		return nil, fmt.Errorf("list program courses: %w", err)
	}
	return courses, nil
}

// FindCourseByCode returns a catalog course by its course code.
func (r *CatalogRepository) FindCourseByCode(ctx context.Context, courseCode string) (*models.Course, error) {
	query := fmt.Sprintf("SELECT %s FROM courses WHERE course_code = $1", courseColumns)
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, courseCode); err != nil {
		return nil, err
	}
	return &course, nil
}

// CreateCourse persists a catalog course.
func (r *CatalogRepository) CreateCourse(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	course.CreatedAt = now
	course.UpdatedAt = now

	const query = `INSERT INTO courses (id, course_code, description, credit_units, prerequisites, department_code,
	program_code, year_offered, semester_offered, curriculum_year, created_at, updated_at)
	VALUES (:id, :course_code, :description, :credit_units, :prerequisites, :department_code,
	:program_code, :year_offered, :semester_offered, :curriculum_year, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("insert course: %w", err)
	}
	return nil
}

// UpdateCourse updates the mutable fields of a catalog course.
func (r *CatalogRepository) UpdateCourse(ctx context.Context, course *models.Course) error {
	course.UpdatedAt = time.Now().UTC()
	const query = `UPDATE courses SET description = :description, credit_units = :credit_units,
	prerequisites = :prerequisites, department_code = :department_code, program_code = :program_code,
	year_offered = :year_offered, semester_offered = :semester_offered, curriculum_year = :curriculum_year,
	updated_at = :updated_at WHERE course_code = :course_code`
	result, err := r.db.NamedExecContext(ctx, query, course)
	if err != nil {
		return fmt.Errorf("update course: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteCourse removes a catalog course.
func (r *CatalogRepository) DeleteCourse(ctx context.Context, courseCode string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM courses WHERE course_code = $1`, courseCode)
	if err != nil {
		return fmt.Errorf("delete course: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
