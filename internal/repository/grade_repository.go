package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/matsl08/ems-api/internal/models"
)

// GradeRepository handles grade records and their per-offering entries.
type GradeRepository struct {
	db *sqlx.DB
}

// NewGradeRepository constructs the repository.
func NewGradeRepository(db *sqlx.DB) *GradeRepository {
	return &GradeRepository{db: db}
}

// EnsureRecord creates the student's grade ledger header if it does not exist
// yet. Both visibility flags start false.
func (r *GradeRepository) EnsureRecord(ctx context.Context, studentID string) error {
	const query = `INSERT INTO grade_records (id, student_id, midterms_visible, finals_visible, created_at, updated_at)
	VALUES ($1, $2, FALSE, FALSE, $3, $3) ON CONFLICT (student_id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, uuid.NewString(), studentID, time.Now().UTC()); err != nil {
		return fmt.Errorf("ensure grade record: %w", err)
	}
	return nil
}

// FindRecord returns the student's grade ledger with entries attached.
func (r *GradeRepository) FindRecord(ctx context.Context, studentID string) (*models.GradeRecord, error) {
	const query = `SELECT id, student_id, midterms_visible, finals_visible, created_at, updated_at
	FROM grade_records WHERE student_id = $1`
	var record models.GradeRecord
	if err := r.db.GetContext(ctx, &record, query, studentID); err != nil {
		return nil, err
	}

	const entriesQuery = `SELECT id, student_id, edp_code, midterm_grade, final_grade, remarks, created_at, updated_at
	FROM grade_entries WHERE student_id = $1 ORDER BY edp_code`
	var entries []models.GradeEntry
	if err := r.db.SelectContext(ctx, &entries, entriesQuery, studentID); err != nil {
		return nil, fmt.Errorf("load grade entries: %w", err)
	}
	record.Entries = entries
	return &record, nil
}

// FindEntry returns one (student, offering) grade entry.
func (r *GradeRepository) FindEntry(ctx context.Context, studentID, edpCode string) (*models.GradeEntry, error) {
	const query = `SELECT id, student_id, edp_code, midterm_grade, final_grade, remarks, created_at, updated_at
	FROM grade_entries WHERE student_id = $1 AND edp_code = $2`
	var entry models.GradeEntry
	if err := r.db.GetContext(ctx, &entry, query, studentID, edpCode); err != nil {
		return nil, err
	}
	return &entry, nil
}

// UpdateEntry overwrites the marks and remarks of an existing entry. Entries
// are created by the enrollment fan-out, never here; sql.ErrNoRows means the
// student is not enrolled in the offering.
func (r *GradeRepository) UpdateEntry(ctx context.Context, entry *models.GradeEntry) error {
	entry.UpdatedAt = time.Now().UTC()
	const query = `UPDATE grade_entries SET midterm_grade = :midterm_grade, final_grade = :final_grade,
	remarks = :remarks, updated_at = :updated_at WHERE student_id = :student_id AND edp_code = :edp_code`
	result, err := r.db.NamedExecContext(ctx, query, entry)
	if err != nil {
		return fmt.Errorf("update grade entry: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SetAccessFlags replaces both visibility flags on the student's ledger.
func (r *GradeRepository) SetAccessFlags(ctx context.Context, studentID string, access models.GradeAccess) error {
	const query = `UPDATE grade_records SET midterms_visible = $2, finals_visible = $3, updated_at = $4
	WHERE student_id = $1`
	if _, err := r.db.ExecContext(ctx, query, studentID, access.Midterms, access.Finals, time.Now().UTC()); err != nil {
		return fmt.Errorf("set access flags: %w", err)
	}
	return nil
}

// CourseGradeRows returns the roster of an offering with each student's marks
// for the teacher grade sheet.
func (r *GradeRepository) CourseGradeRows(ctx context.Context, edpCode string) ([]models.CourseGradeRow, error) {
	const query = `SELECT r.student_id, u.name AS student_name, e.midterm_grade, e.final_grade, e.remarks
	FROM offering_roster r
	JOIN student_profiles sp ON sp.student_id = r.student_id
	JOIN users u ON u.id = sp.user_id
	LEFT JOIN grade_entries e ON e.student_id = r.student_id AND e.edp_code = r.edp_code
	WHERE r.edp_code = $1 ORDER BY u.name`
	var rows []models.CourseGradeRow
	if err := r.db.SelectContext(ctx, &rows, query, edpCode); err != nil {
		return nil, fmt.Errorf("list course grade rows: %w", err)
	}
	return rows, nil
}
