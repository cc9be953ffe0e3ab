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

const enrollmentColumns = `id, student_id, school_year, semester, year_level, status, created_at, updated_at`

// EnrollmentRepository handles enrollment requests and their course lists.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// Create persists a request and its requested offerings in one transaction.
func (r *EnrollmentRepository) Create(ctx context.Context, request *models.EnrollmentRequest) error {
	if request.ID == "" {
		request.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	request.CreatedAt = now
	request.UpdatedAt = now
	request.Status = models.EnrollmentStatusPending

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create request tx: %w", err)
	}

	const query = `INSERT INTO enrollment_requests (id, student_id, school_year, semester, year_level, status, created_at, updated_at)
	VALUES (:id, :student_id, :school_year, :semester, :year_level, :status, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, query, request); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("insert enrollment request: %w", err)
	}

	for i := range request.Courses {
		request.Courses[i].RequestID = request.ID
		const courseQuery = `INSERT INTO enrollment_request_courses (request_id, edp_code) VALUES (:request_id, :edp_code)`
		if _, err := tx.NamedExecContext(ctx, courseQuery, request.Courses[i]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert requested course: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create request tx: %w", err)
	}
	return nil
}

// FindByID returns one request with its course list.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.EnrollmentRequest, error) {
	query := fmt.Sprintf("SELECT %s FROM enrollment_requests WHERE id = $1", enrollmentColumns)
	var request models.EnrollmentRequest
	if err := r.db.GetContext(ctx, &request, query, id); err != nil {
		return nil, err
	}
	if err := r.loadCourses(ctx, &request); err != nil {
		return nil, err
	}
	return &request, nil
}

// HasOpenRequest reports whether the student already has a Pending or
// Approved request for the term.
func (r *EnrollmentRepository) HasOpenRequest(ctx context.Context, studentID, schoolYear string, semester int) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM enrollment_requests
	WHERE student_id = $1 AND school_year = $2 AND semester = $3 AND status IN ($4, $5))`
	var open bool
	if err := r.db.GetContext(ctx, &open, query, studentID, schoolYear, semester,
		models.EnrollmentStatusPending, models.EnrollmentStatusApproved); err != nil {
		return false, fmt.Errorf("check open request: %w", err)
	}
	return open, nil
}

// List returns requests matching the filter, course lists attached.
func (r *EnrollmentRepository) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentRequest, int, error) {
	conditions := []string{"1=1"}
	var args []interface{}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.SchoolYear != "" {
		conditions = append(conditions, fmt.Sprintf("school_year = $%d", len(args)+1))
		args = append(args, filter.SchoolYear)
	}
	if filter.Semester != 0 {
		conditions = append(conditions, fmt.Sprintf("semester = $%d", len(args)+1))
		args = append(args, filter.Semester)
	}
	clause := strings.Join(conditions, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s FROM enrollment_requests WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d",
		enrollmentColumns, clause, size, offset)
	var requests []models.EnrollmentRequest
	if err := r.db.SelectContext(ctx, &requests, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list enrollment requests: %w", err)
	}
	for i := range requests {
		if err := r.loadCourses(ctx, &requests[i]); err != nil {
			return nil, 0, err
		}
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM enrollment_requests WHERE %s", clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count enrollment requests: %w", err)
	}
	return requests, total, nil
}

func (r *EnrollmentRepository) loadCourses(ctx context.Context, request *models.EnrollmentRequest) error {
	const query = `SELECT request_id, edp_code FROM enrollment_request_courses WHERE request_id = $1 ORDER BY edp_code`
	var courses []models.EnrollmentRequestCourse
	if err := r.db.SelectContext(ctx, &courses, query, request.ID); err != nil {
		return fmt.Errorf("load requested courses: %w", err)
	}
	request.Courses = courses
	return nil
}

// UpdateStatus transitions a request out of Pending. Only Pending requests
// may move, so a second approval or rejection affects zero rows.
func (r *EnrollmentRepository) UpdateStatus(ctx context.Context, id string, status models.EnrollmentStatus) error {
	const query = `UPDATE enrollment_requests SET status = $2, updated_at = $3 WHERE id = $1 AND status = $4`
	result, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC(), models.EnrollmentStatusPending)
	if err != nil {
		return fmt.Errorf("update request status: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
