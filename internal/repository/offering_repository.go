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

const offeringColumns = `id, edp_code, course_code, school_year, semester, schedule_day, schedule_time,
	schedule_room, teacher_id, amount, created_at, updated_at`

// OfferingRepository handles scheduled course offerings and roster reads.
// Roster writes belong to RegistrationRepository so they stay inside the
// enrollment transaction.
type OfferingRepository struct {
	db *sqlx.DB
}

// NewOfferingRepository constructs the repository.
func NewOfferingRepository(db *sqlx.DB) *OfferingRepository {
	return &OfferingRepository{db: db}
}

// FindByEDPCode returns one offering by its EDP code, roster not loaded.
func (r *OfferingRepository) FindByEDPCode(ctx context.Context, edpCode string) (*models.Offering, error) {
	query := fmt.Sprintf("SELECT %s FROM offerings WHERE edp_code = $1", offeringColumns)
	var offering models.Offering
	if err := r.db.GetContext(ctx, &offering, query, edpCode); err != nil {
		return nil, err
	}
	return &offering, nil
}

// List returns offerings matching the filter.
func (r *OfferingRepository) List(ctx context.Context, filter models.OfferingFilter) ([]models.Offering, int, error) {
	conditions := []string{"1=1"}
	var args []interface{}

	if filter.SchoolYear != "" {
		conditions = append(conditions, fmt.Sprintf("school_year = $%d", len(args)+1))
		args = append(args, filter.SchoolYear)
	}
	if filter.Semester != 0 {
		conditions = append(conditions, fmt.Sprintf("semester = $%d", len(args)+1))
		args = append(args, filter.Semester)
	}
	if filter.TeacherID != "" {
		conditions = append(conditions, fmt.Sprintf("teacher_id = $%d", len(args)+1))
		args = append(args, filter.TeacherID)
	}
	if filter.CourseCode != "" {
		conditions = append(conditions, fmt.Sprintf("course_code = $%d", len(args)+1))
		args = append(args, filter.CourseCode)
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

	query := fmt.Sprintf("SELECT %s FROM offerings WHERE %s ORDER BY edp_code LIMIT %d OFFSET %d",
		offeringColumns, clause, size, offset)
	var offerings []models.Offering
	if err := r.db.SelectContext(ctx, &offerings, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list offerings: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM offerings WHERE %s", clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count offerings: %w", err)
	}
	return offerings, total, nil
}

// ListByTeacher returns every offering assigned to a teacher.
func (r *OfferingRepository) ListByTeacher(ctx context.Context, teacherID string) ([]models.Offering, error) {
	query := fmt.Sprintf("SELECT %s FROM offerings WHERE teacher_id = $1 ORDER BY edp_code", offeringColumns)
	var offerings []models.Offering
	if err := r.db.SelectContext(ctx, &offerings, query, teacherID); err != nil {
		return nil, fmt.Errorf("list teacher offerings: %w", err)
	}
	return offerings, nil
}

// LoadRoster attaches the roster rows to the offering.
func (r *OfferingRepository) LoadRoster(ctx context.Context, offering *models.Offering) error {
	const query = `SELECT edp_code, student_id, enrolled_at FROM offering_roster
	WHERE edp_code = $1 ORDER BY enrolled_at`
	var roster []models.RosterEntry
	if err := r.db.SelectContext(ctx, &roster, query, offering.EDPCode); err != nil {
		return fmt.Errorf("load roster: %w", err)
	}
	offering.Roster = roster
	return nil
}

// IsEnrolled reports whether the student is already on the offering roster.
func (r *OfferingRepository) IsEnrolled(ctx context.Context, edpCode, studentID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM offering_roster WHERE edp_code = $1 AND student_id = $2)`
	var enrolled bool
	if err := r.db.GetContext(ctx, &enrolled, query, edpCode, studentID); err != nil {
		return false, fmt.Errorf("check roster membership: %w", err)
	}
	return enrolled, nil
}

// ListStudentOfferings returns the offerings a student is enrolled in for one
// term, joined through the roster.
func (r *OfferingRepository) ListStudentOfferings(ctx context.Context, studentID, schoolYear string, semester int) ([]models.Offering, error) {
	query := fmt.Sprintf(`SELECT o.%s FROM offerings o
	JOIN offering_roster r ON r.edp_code = o.edp_code
	WHERE r.student_id = $1 AND o.school_year = $2 AND o.semester = $3
	ORDER BY o.edp_code`, strings.ReplaceAll(offeringColumns, ", ", ", o."))
	var offerings []models.Offering
	if err := r.db.SelectContext(ctx, &offerings, query, studentID, schoolYear, semester); err != nil {
		return nil, fmt.Errorf("list student offerings: %w", err)
	}
	return offerings, nil
}

// Create persists a new offering.
func (r *OfferingRepository) Create(ctx context.Context, offering *models.Offering) error {
	if offering.ID == "" {
		offering.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	offering.CreatedAt = now
	offering.UpdatedAt = now

	const query = `INSERT INTO offerings (id, edp_code, course_code, school_year, semester, schedule_day,
	schedule_time, schedule_room, teacher_id, amount, created_at, updated_at)
	VALUES (:id, :edp_code, :course_code, :school_year, :semester, :schedule_day,
	:schedule_time, :schedule_room, :teacher_id, :amount, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, offering); err != nil {
		return fmt.Errorf("insert offering: %w", err)
	}
	return nil
}

// Update updates the mutable fields of an offering.
func (r *OfferingRepository) Update(ctx context.Context, offering *models.Offering) error {
	offering.UpdatedAt = time.Now().UTC()
	const query = `UPDATE offerings SET course_code = :course_code, school_year = :school_year,
	semester = :semester, schedule_day = :schedule_day, schedule_time = :schedule_time,
	schedule_room = :schedule_room, teacher_id = :teacher_id, amount = :amount, updated_at = :updated_at
	WHERE edp_code = :edp_code`
	result, err := r.db.NamedExecContext(ctx, query, offering)
	if err != nil {
		return fmt.Errorf("update offering: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes an offering. Roster rows cascade via foreign keys.
func (r *OfferingRepository) Delete(ctx context.Context, edpCode string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM offerings WHERE edp_code = $1`, edpCode)
	if err != nil {
		return fmt.Errorf("delete offering: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
