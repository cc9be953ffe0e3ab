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

// RegistrationRepository owns the multi-table writes behind enrolling a
// student into an offering and dropping them back out. Every write path runs
// in one transaction so the roster, grade ledger, clearance ledger and
// payment ledger never diverge.
type RegistrationRepository struct {
	db *sqlx.DB
}

// NewRegistrationRepository constructs the repository.
func NewRegistrationRepository(db *sqlx.DB) *RegistrationRepository {
	return &RegistrationRepository{db: db}
}

// Enroll adds the student to the offering roster and fans the enrollment out
// to the grade, clearance and payment ledgers atomically. Existing marks on a
// re-created entry are preserved and the payment row is created once per
// (student, school year, semester), carrying the full offering amount for each
// payment period. An existing term row is left untouched.
func (r *RegistrationRepository) Enroll(ctx context.Context, studentID string, offering *models.Offering) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin enroll tx: %w", err)
	}

	now := time.Now().UTC()

	const rosterQuery = `INSERT INTO offering_roster (edp_code, student_id, enrolled_at) VALUES ($1, $2, $3)`
	if _, err := tx.ExecContext(ctx, rosterQuery, offering.EDPCode, studentID, now); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("insert roster entry: %w", err)
	}

	const recordQuery = `INSERT INTO grade_records (id, student_id, midterms_visible, finals_visible, created_at, updated_at)
	VALUES ($1, $2, FALSE, FALSE, $3, $3) ON CONFLICT (student_id) DO NOTHING`
	if _, err := tx.ExecContext(ctx, recordQuery, uuid.NewString(), studentID, now); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("ensure grade record: %w", err)
	}

	const entryQuery = `INSERT INTO grade_entries (id, student_id, edp_code, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $4) ON CONFLICT (student_id, edp_code) DO NOTHING`
	if _, err := tx.ExecContext(ctx, entryQuery, uuid.NewString(), studentID, offering.EDPCode, now); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("ensure grade entry: %w", err)
	}

	const clearanceQuery = `INSERT INTO clearance_entries (id, student_id, edp_code, teacher_id, status, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $6) ON CONFLICT (student_id, edp_code) DO NOTHING`
	if _, err := tx.ExecContext(ctx, clearanceQuery, uuid.NewString(), studentID, offering.EDPCode,
		offering.TeacherID, models.ClearanceStatusPending, now); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("ensure clearance entry: %w", err)
	}

	const paymentQuery = `INSERT INTO payments (id, student_id, school_year, semester,
	midterm_amount, midterm_status, final_amount, final_status, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $5, $6, $7, $7)
	ON CONFLICT (student_id, school_year, semester) DO NOTHING`
	if _, err := tx.ExecContext(ctx, paymentQuery, uuid.NewString(), studentID, offering.SchoolYear,
		offering.Semester, offering.Amount, models.PaymentStatusPending, now); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("ensure payment record: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit enroll tx: %w", err)
	}
	return nil
}

// Drop removes the student from the offering roster together with the grade
// and clearance entries for that offering. The term payment row is left
// untouched. Returns sql.ErrNoRows when the student was not on the roster.
func (r *RegistrationRepository) Drop(ctx context.Context, studentID, edpCode string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin drop tx: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM offering_roster WHERE edp_code = $1 AND student_id = $2`, edpCode, studentID)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("delete roster entry: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		_ = tx.Rollback()
		return sql.ErrNoRows
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM grade_entries WHERE student_id = $1 AND edp_code = $2`, studentID, edpCode); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("delete grade entry: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM clearance_entries WHERE student_id = $1 AND edp_code = $2`, studentID, edpCode); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("delete clearance entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit drop tx: %w", err)
	}
	return nil
}
