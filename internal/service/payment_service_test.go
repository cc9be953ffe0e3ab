package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matsl08/ems-api/internal/models"
	"github.com/matsl08/ems-api/internal/repository"
	appErrors "github.com/matsl08/ems-api/pkg/errors"
)

type mockPaymentLedger struct {
	payments map[string]*models.Payment
	applied  []repository.PaymentUpdate
}

func paymentKey(studentID, schoolYear string, semester int) string {
	return studentID + "/" + schoolYear + "/" + string(rune('0'+semester))
}

func (m *mockPaymentLedger) FindByStudentTerm(ctx context.Context, studentID, schoolYear string, semester int) (*models.Payment, error) {
	if payment, ok := m.payments[paymentKey(studentID, schoolYear, semester)]; ok {
		return payment, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockPaymentLedger) ListByStudent(ctx context.Context, studentID string) ([]models.Payment, error) {
	var list []models.Payment
	for _, payment := range m.payments {
		if payment.StudentID == studentID {
			list = append(list, *payment)
		}
	}
	return list, nil
}

func (m *mockPaymentLedger) ListByTerm(ctx context.Context, schoolYear string, semester int) ([]models.Payment, error) {
	var list []models.Payment
	for _, payment := range m.payments {
		if payment.SchoolYear == schoolYear && payment.Semester == semester {
			list = append(list, *payment)
		}
	}
	return list, nil
}

func (m *mockPaymentLedger) ApplyStatus(ctx context.Context, update repository.PaymentUpdate) (*models.Payment, error) {
	key := paymentKey(update.StudentID, update.SchoolYear, update.Semester)
	payment, ok := m.payments[key]
	if !ok {
		// Mirrors the repository: a missing term row is created on the fly.
		payment = &models.Payment{
			ID: "pay-new", StudentID: update.StudentID,
			SchoolYear: update.SchoolYear, Semester: update.Semester,
			MidtermStatus: models.PaymentStatusPending,
			FinalStatus:   models.PaymentStatusPending,
		}
		m.payments[key] = payment
	}
	if update.Period == models.PeriodFinal {
		payment.FinalStatus = update.Status
		payment.FinalDatePaid = update.DatePaid
		payment.FinalReceiptNumber = update.ReceiptNumber
	} else {
		payment.MidtermStatus = update.Status
		payment.MidtermDatePaid = update.DatePaid
		payment.MidtermReceiptNumber = update.ReceiptNumber
	}
	m.applied = append(m.applied, update)
	return payment, nil
}

func TestPaymentServiceUpdateStatusGatesIndependently(t *testing.T) {
	ledger := &mockPaymentLedger{payments: map[string]*models.Payment{
		paymentKey("STU-100", "2025-2026", 1): {
			ID: "pay-1", StudentID: "STU-100", SchoolYear: "2025-2026", Semester: 1,
			MidtermStatus: models.PaymentStatusPending,
			FinalStatus:   models.PaymentStatusPending,
		},
	}}
	students := &mockStudentDirectory{students: map[string]*models.User{"STU-100": newStudentUser("STU-100")}}
	svc := NewPaymentService(ledger, students, nil, nil, nil, nil)

	payment, err := svc.UpdateStatus(context.Background(), "STU-100", models.UpdatePaymentStatusRequest{
		SchoolYear: "2025-2026",
		Semester:   1,
		Period:     models.PeriodMidterm,
		Status:     models.PaymentStatusPaid,
	}, "acct-1")
	require.NoError(t, err)
	assert.True(t, payment.GradeAccess().Midterms)
	assert.False(t, payment.GradeAccess().Finals)
	require.Len(t, students.audits, 1)
	assert.Equal(t, models.AuditActionPaymentUpdate, students.audits[0].Action)
}

func TestPaymentServiceUpdateStatusCreatesLedgerRow(t *testing.T) {
	ledger := &mockPaymentLedger{payments: map[string]*models.Payment{}}
	students := &mockStudentDirectory{students: map[string]*models.User{"STU-100": newStudentUser("STU-100")}}
	svc := NewPaymentService(ledger, students, nil, nil, nil, nil)

	payment, err := svc.UpdateStatus(context.Background(), "STU-100", models.UpdatePaymentStatusRequest{
		SchoolYear: "2025-2026",
		Semester:   1,
		Period:     models.PeriodFinal,
		Status:     models.PaymentStatusPaid,
	}, "acct-1")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, payment.FinalStatus)
	assert.True(t, payment.GradeAccess().Finals)
	assert.Contains(t, ledger.payments, paymentKey("STU-100", "2025-2026", 1))
}

func TestPaymentServiceUpdateStatusPaidStampsSettlement(t *testing.T) {
	ledger := &mockPaymentLedger{payments: map[string]*models.Payment{
		paymentKey("STU-100", "2025-2026", 1): {
			ID: "pay-1", StudentID: "STU-100", SchoolYear: "2025-2026", Semester: 1,
			MidtermStatus: models.PaymentStatusPending,
			FinalStatus:   models.PaymentStatusPending,
		},
	}}
	students := &mockStudentDirectory{students: map[string]*models.User{"STU-100": newStudentUser("STU-100")}}
	svc := NewPaymentService(ledger, students, nil, nil, nil, nil)

	payment, err := svc.UpdateStatus(context.Background(), "STU-100", models.UpdatePaymentStatusRequest{
		SchoolYear:    "2025-2026",
		Semester:      1,
		Period:        models.PeriodMidterm,
		Status:        models.PaymentStatusPaid,
		ReceiptNumber: ptrString("R-001"),
	}, "acct-1")
	require.NoError(t, err)
	// The settlement time comes from the server clock, never the client.
	require.NotNil(t, payment.MidtermDatePaid)
	require.NotNil(t, payment.MidtermReceiptNumber)
	assert.Equal(t, "R-001", *payment.MidtermReceiptNumber)
}

func TestPaymentServiceUpdateStatusNonPaidClearsSettlement(t *testing.T) {
	now := time.Now().UTC()
	ledger := &mockPaymentLedger{payments: map[string]*models.Payment{
		paymentKey("STU-100", "2025-2026", 1): {
			ID: "pay-1", StudentID: "STU-100", SchoolYear: "2025-2026", Semester: 1,
			MidtermStatus:        models.PaymentStatusPaid,
			MidtermDatePaid:      &now,
			MidtermReceiptNumber: ptrString("R-001"),
			FinalStatus:          models.PaymentStatusPending,
		},
	}}
	students := &mockStudentDirectory{students: map[string]*models.User{"STU-100": newStudentUser("STU-100")}}
	svc := NewPaymentService(ledger, students, nil, nil, nil, nil)

	payment, err := svc.UpdateStatus(context.Background(), "STU-100", models.UpdatePaymentStatusRequest{
		SchoolYear:    "2025-2026",
		Semester:      1,
		Period:        models.PeriodMidterm,
		Status:        models.PaymentStatusPending,
		ReceiptNumber: ptrString("R-002"),
	}, "acct-1")
	require.NoError(t, err)
	// Reverting to a non-Paid status drops the stale settlement, even when
	// the client still sends a receipt.
	assert.Nil(t, payment.MidtermDatePaid)
	assert.Nil(t, payment.MidtermReceiptNumber)
	assert.False(t, payment.GradeAccess().Midterms)
}

func TestPaymentServiceUpdateStatusUnknownStudent(t *testing.T) {
	svc := NewPaymentService(&mockPaymentLedger{}, &mockStudentDirectory{}, nil, nil, nil, nil)

	_, err := svc.UpdateStatus(context.Background(), "STU-404", models.UpdatePaymentStatusRequest{
		SchoolYear: "2025-2026",
		Semester:   1,
		Period:     models.PeriodMidterm,
		Status:     models.PaymentStatusPaid,
	}, "acct-1")
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestPaymentServiceUpdateStatusRejectsBadPeriod(t *testing.T) {
	svc := NewPaymentService(&mockPaymentLedger{}, &mockStudentDirectory{}, nil, nil, nil, nil)

	_, err := svc.UpdateStatus(context.Background(), "STU-100", models.UpdatePaymentStatusRequest{
		SchoolYear: "2025-2026",
		Semester:   1,
		Period:     "prelim",
		Status:     models.PaymentStatusPaid,
	}, "acct-1")
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestPaymentServiceListByTermRequiresTerm(t *testing.T) {
	svc := NewPaymentService(&mockPaymentLedger{}, &mockStudentDirectory{}, nil, nil, nil, nil)

	_, err := svc.ListByTerm(context.Background(), "", 0)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}
