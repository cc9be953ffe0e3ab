package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/matsl08/ems-api/internal/models"
)

const paymentColumns = `id, student_id, school_year, semester, midterm_amount, midterm_status, midterm_date_paid,
	midterm_receipt_number, final_amount, final_status, final_date_paid, final_receipt_number, created_at, updated_at`

// PaymentUpdate carries one period's settlement change.
type PaymentUpdate struct {
	StudentID     string
	SchoolYear    string
	Semester      int
	Period        models.GradePeriod
	Status        models.PaymentStatus
	DatePaid      *time.Time
	ReceiptNumber *string
}

// PaymentRepository handles the per-term tuition ledger. Status changes also
// push the derived visibility flags onto the grade record in the same
// transaction so the gate can never drift from the ledger.
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository constructs the repository.
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// FindByStudentTerm returns the payment row for one (student, term).
func (r *PaymentRepository) FindByStudentTerm(ctx context.Context, studentID, schoolYear string, semester int) (*models.Payment, error) {
	query := fmt.Sprintf(`SELECT %s FROM payments WHERE student_id = $1 AND school_year = $2 AND semester = $3`, paymentColumns)
	var payment models.Payment
	if err := r.db.GetContext(ctx, &payment, query, studentID, schoolYear, semester); err != nil {
		return nil, err
	}
	return &payment, nil
}

// ListByStudent returns every term payment row for a student.
func (r *PaymentRepository) ListByStudent(ctx context.Context, studentID string) ([]models.Payment, error) {
	query := fmt.Sprintf(`SELECT %s FROM payments WHERE student_id = $1 ORDER BY school_year DESC, semester DESC`, paymentColumns)
	var payments []models.Payment
	if err := r.db.SelectContext(ctx, &payments, query, studentID); err != nil {
		return nil, fmt.Errorf("list student payments: %w", err)
	}
	return payments, nil
}

// ListByTerm returns every payment row for one term, for the accounting view.
func (r *PaymentRepository) ListByTerm(ctx context.Context, schoolYear string, semester int) ([]models.Payment, error) {
	query := fmt.Sprintf(`SELECT %s FROM payments WHERE school_year = $1 AND semester = $2 ORDER BY student_id`, paymentColumns)
	var payments []models.Payment
	if err := r.db.SelectContext(ctx, &payments, query, schoolYear, semester); err != nil {
		return nil, fmt.Errorf("list term payments: %w", err)
	}
	return payments, nil
}

// ApplyStatus finds or creates the term payment row, updates one period and
// synchronizes the grade access flags derived from the row's two statuses,
// atomically. A row created here starts with zero amounts and both periods
// Pending; enrollment fills the amounts in. Returns the updated row.
func (r *PaymentRepository) ApplyStatus(ctx context.Context, update PaymentUpdate) (*models.Payment, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin payment tx: %w", err)
	}

	const seedQuery = `INSERT INTO payments (id, student_id, school_year, semester,
	midterm_amount, midterm_status, final_amount, final_status, created_at, updated_at)
	VALUES ($1, $2, $3, $4, 0, $5, 0, $5, $6, $6)
	ON CONFLICT (student_id, school_year, semester) DO NOTHING`
	if _, err := tx.ExecContext(ctx, seedQuery, uuid.NewString(), update.StudentID, update.SchoolYear,
		update.Semester, models.PaymentStatusPending, time.Now().UTC()); err != nil {
		_ = tx.Rollback()
		return nil, fmt.Errorf("ensure payment record: %w", err)
	}

	column := "midterm"
	if update.Period == models.PeriodFinal {
		column = "final"
	}
	query := fmt.Sprintf(`UPDATE payments SET %[1]s_status = $4, %[1]s_date_paid = $5, %[1]s_receipt_number = $6, updated_at = $7
	WHERE student_id = $1 AND school_year = $2 AND semester = $3
	RETURNING %[2]s`, column, paymentColumns)

	var payment models.Payment
	if err := tx.GetContext(ctx, &payment, query, update.StudentID, update.SchoolYear, update.Semester,
		update.Status, update.DatePaid, update.ReceiptNumber, time.Now().UTC()); err != nil {
		_ = tx.Rollback()
		return nil, err
	}

	access := payment.GradeAccess()
	const flagsQuery = `UPDATE grade_records SET midterms_visible = $2, finals_visible = $3, updated_at = $4
	WHERE student_id = $1`
	if _, err := tx.ExecContext(ctx, flagsQuery, update.StudentID, access.Midterms, access.Finals, time.Now().UTC()); err != nil {
		_ = tx.Rollback()
		return nil, fmt.Errorf("sync access flags: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit payment tx: %w", err)
	}
	return &payment, nil
}
