package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/matsl08/ems-api/internal/models"
)

// ClearanceRepository handles per-offering clearance entries.
type ClearanceRepository struct {
	db *sqlx.DB
}

// NewClearanceRepository constructs the repository.
func NewClearanceRepository(db *sqlx.DB) *ClearanceRepository {
	return &ClearanceRepository{db: db}
}

// ListByStudent returns every clearance line on the student's ledger.
func (r *ClearanceRepository) ListByStudent(ctx context.Context, studentID string) ([]models.ClearanceEntry, error) {
	const query = `SELECT id, student_id, edp_code, teacher_id, status, remarks, created_at, updated_at
	FROM clearance_entries WHERE student_id = $1 ORDER BY edp_code`
	var entries []models.ClearanceEntry
	if err := r.db.SelectContext(ctx, &entries, query, studentID); err != nil {
		return nil, fmt.Errorf("list clearance entries: %w", err)
	}
	return entries, nil
}

// FindEntry returns one (student, offering) clearance entry.
func (r *ClearanceRepository) FindEntry(ctx context.Context, studentID, edpCode string) (*models.ClearanceEntry, error) {
	const query = `SELECT id, student_id, edp_code, teacher_id, status, remarks, created_at, updated_at
	FROM clearance_entries WHERE student_id = $1 AND edp_code = $2`
	var entry models.ClearanceEntry
	if err := r.db.GetContext(ctx, &entry, query, studentID, edpCode); err != nil {
		return nil, err
	}
	return &entry, nil
}

// UpdateStatus sets the sign-off state and remarks of an existing entry.
// Entries are created by the enrollment fan-out; sql.ErrNoRows means the
// student is not enrolled in the offering.
func (r *ClearanceRepository) UpdateStatus(ctx context.Context, studentID, edpCode string, status models.ClearanceStatus, remarks *string) error {
	const query = `UPDATE clearance_entries SET status = $3, remarks = $4, updated_at = $5
	WHERE student_id = $1 AND edp_code = $2`
	result, err := r.db.ExecContext(ctx, query, studentID, edpCode, status, remarks, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update clearance status: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CourseClearanceRows returns the roster of an offering with each student's
// clearance state for the instructor view.
func (r *ClearanceRepository) CourseClearanceRows(ctx context.Context, edpCode string) ([]models.CourseClearanceRow, error) {
	const query = `SELECT c.student_id, u.name AS student_name, c.status, c.remarks
	FROM clearance_entries c
	JOIN student_profiles sp ON sp.student_id = c.student_id
	JOIN users u ON u.id = sp.user_id
	WHERE c.edp_code = $1 ORDER BY u.name`
	var rows []models.CourseClearanceRow
	if err := r.db.SelectContext(ctx, &rows, query, edpCode); err != nil {
		return nil, fmt.Errorf("list course clearance rows: %w", err)
	}
	return rows, nil
}
