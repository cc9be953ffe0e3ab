package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/matsl08/ems-api/internal/models"
)

func newPaymentRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func paymentRows(midterm, final models.PaymentStatus) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows([]string{
		"id", "student_id", "school_year", "semester",
		"midterm_amount", "midterm_status", "midterm_date_paid", "midterm_receipt_number",
		"final_amount", "final_status", "final_date_paid", "final_receipt_number",
		"created_at", "updated_at",
	}).AddRow("pay-1", "STU-100", "2025-2026", 1, 3000.0, midterm, nil, nil, 3000.0, final, nil, nil, now, now)
}

func TestPaymentRepositoryApplyStatusSyncsAccessFlags(t *testing.T) {
	db, mock, cleanup := newPaymentRepoMock(t)
	defer cleanup()
	repo := NewPaymentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`(?s)INSERT INTO payments.*DO NOTHING`).
		WithArgs(sqlmock.AnyArg(), "STU-100", "2025-2026", 1, models.PaymentStatusPending, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE payments SET midterm_status = $4")).
		WithArgs("STU-100", "2025-2026", 1, models.PaymentStatusPaid, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(paymentRows(models.PaymentStatusPaid, models.PaymentStatusPending))
	// Midterm paid, final still pending: only the midterm gate opens.
	mock.ExpectExec(regexp.QuoteMeta("UPDATE grade_records SET midterms_visible = $2, finals_visible = $3")).
		WithArgs("STU-100", true, false, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	payment, err := repo.ApplyStatus(context.Background(), PaymentUpdate{
		StudentID:  "STU-100",
		SchoolYear: "2025-2026",
		Semester:   1,
		Period:     models.PeriodMidterm,
		Status:     models.PaymentStatusPaid,
	})
	require.NoError(t, err)
	require.Equal(t, models.PaymentStatusPaid, payment.MidtermStatus)
	require.Equal(t, models.PaymentStatusPending, payment.FinalStatus)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepositoryApplyStatusFinalPeriod(t *testing.T) {
	db, mock, cleanup := newPaymentRepoMock(t)
	defer cleanup()
	repo := NewPaymentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`(?s)INSERT INTO payments.*DO NOTHING`).
		WithArgs(sqlmock.AnyArg(), "STU-100", "2025-2026", 1, models.PaymentStatusPending, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE payments SET final_status = $4")).
		WithArgs("STU-100", "2025-2026", 1, models.PaymentStatusPaid, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(paymentRows(models.PaymentStatusPartial, models.PaymentStatusPaid))
	// A partial midterm keeps that gate shut even though finals are paid.
	mock.ExpectExec(regexp.QuoteMeta("UPDATE grade_records SET midterms_visible = $2, finals_visible = $3")).
		WithArgs("STU-100", false, true, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	payment, err := repo.ApplyStatus(context.Background(), PaymentUpdate{
		StudentID:  "STU-100",
		SchoolYear: "2025-2026",
		Semester:   1,
		Period:     models.PeriodFinal,
		Status:     models.PaymentStatusPaid,
	})
	require.NoError(t, err)
	require.False(t, payment.GradeAccess().Midterms)
	require.True(t, payment.GradeAccess().Finals)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepositoryApplyStatusCreatesMissingRow(t *testing.T) {
	db, mock, cleanup := newPaymentRepoMock(t)
	defer cleanup()
	repo := NewPaymentRepository(db)

	mock.ExpectBegin()
	// No ledger row for the term yet: the seed insert lands and the period
	// update settles against the fresh row.
	mock.ExpectExec(`(?s)INSERT INTO payments.*DO NOTHING`).
		WithArgs(sqlmock.AnyArg(), "STU-100", "2025-2026", 2, models.PaymentStatusPending, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE payments SET midterm_status = $4")).
		WithArgs("STU-100", "2025-2026", 2, models.PaymentStatusPaid, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(paymentRows(models.PaymentStatusPaid, models.PaymentStatusPending))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE grade_records SET midterms_visible = $2, finals_visible = $3")).
		WithArgs("STU-100", true, false, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	payment, err := repo.ApplyStatus(context.Background(), PaymentUpdate{
		StudentID:  "STU-100",
		SchoolYear: "2025-2026",
		Semester:   2,
		Period:     models.PeriodMidterm,
		Status:     models.PaymentStatusPaid,
	})
	require.NoError(t, err)
	require.Equal(t, models.PaymentStatusPaid, payment.MidtermStatus)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepositoryFindByStudentTerm(t *testing.T) {
	db, mock, cleanup := newPaymentRepoMock(t)
	defer cleanup()
	repo := NewPaymentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM payments WHERE student_id = $1 AND school_year = $2 AND semester = $3")).
		WithArgs("STU-100", "2025-2026", 1).
		WillReturnRows(paymentRows(models.PaymentStatusPending, models.PaymentStatusPending))

	payment, err := repo.FindByStudentTerm(context.Background(), "STU-100", "2025-2026", 1)
	require.NoError(t, err)
	require.Equal(t, "pay-1", payment.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}
