package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matsl08/ems-api/internal/models"
	appErrors "github.com/matsl08/ems-api/pkg/errors"
)

type mockClearanceLedger struct {
	entries map[string]*models.ClearanceEntry
	rows    []models.CourseClearanceRow
}

func (m *mockClearanceLedger) ListByStudent(ctx context.Context, studentID string) ([]models.ClearanceEntry, error) {
	var list []models.ClearanceEntry
	for _, entry := range m.entries {
		if entry.StudentID == studentID {
			list = append(list, *entry)
		}
	}
	return list, nil
}

func (m *mockClearanceLedger) FindEntry(ctx context.Context, studentID, edpCode string) (*models.ClearanceEntry, error) {
	if entry, ok := m.entries[entryKey(studentID, edpCode)]; ok {
		return entry, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockClearanceLedger) UpdateStatus(ctx context.Context, studentID, edpCode string, status models.ClearanceStatus, remarks *string) error {
	entry, ok := m.entries[entryKey(studentID, edpCode)]
	if !ok {
		return sql.ErrNoRows
	}
	entry.Status = status
	entry.Remarks = remarks
	return nil
}

func (m *mockClearanceLedger) CourseClearanceRows(ctx context.Context, edpCode string) ([]models.CourseClearanceRow, error) {
	return m.rows, nil
}

func TestClearanceServiceUpdateStatus(t *testing.T) {
	ledger := &mockClearanceLedger{entries: map[string]*models.ClearanceEntry{
		entryKey("STU-100", "53944"): {StudentID: "STU-100", EDPCode: "53944", Status: models.ClearanceStatusPending},
	}}
	svc := NewClearanceService(ledger, ownedOffering(), nil, nil, nil)

	entry, err := svc.UpdateStatus(context.Background(), "53944", "STU-100", "FAC-001", models.UpdateClearanceRequest{
		Status: models.ClearanceStatusCleared,
	})
	require.NoError(t, err)
	assert.Equal(t, models.ClearanceStatusCleared, entry.Status)
}

func TestClearanceServiceUpdateForeignTeacherForbidden(t *testing.T) {
	ledger := &mockClearanceLedger{entries: map[string]*models.ClearanceEntry{
		entryKey("STU-100", "53944"): {StudentID: "STU-100", EDPCode: "53944", Status: models.ClearanceStatusPending},
	}}
	svc := NewClearanceService(ledger, ownedOffering(), nil, nil, nil)

	_, err := svc.UpdateStatus(context.Background(), "53944", "STU-100", "FAC-999", models.UpdateClearanceRequest{
		Status: models.ClearanceStatusCleared,
	})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
	// The entry stays untouched.
	assert.Equal(t, models.ClearanceStatusPending, ledger.entries[entryKey("STU-100", "53944")].Status)
}

func TestClearanceServiceUpdateNotEnrolled(t *testing.T) {
	ledger := &mockClearanceLedger{entries: map[string]*models.ClearanceEntry{}}
	svc := NewClearanceService(ledger, ownedOffering(), nil, nil, nil)

	_, err := svc.UpdateStatus(context.Background(), "53944", "STU-404", "FAC-001", models.UpdateClearanceRequest{
		Status: models.ClearanceStatusRejected,
	})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestClearanceServiceUpdateRejectsUnknownStatus(t *testing.T) {
	svc := NewClearanceService(&mockClearanceLedger{}, ownedOffering(), nil, nil, nil)

	_, err := svc.UpdateStatus(context.Background(), "53944", "STU-100", "FAC-001", models.UpdateClearanceRequest{
		Status: "Done",
	})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestClearanceServiceStudentView(t *testing.T) {
	ledger := &mockClearanceLedger{entries: map[string]*models.ClearanceEntry{
		entryKey("STU-100", "53944"): {StudentID: "STU-100", EDPCode: "53944", Status: models.ClearanceStatusCleared},
		entryKey("STU-100", "53950"): {StudentID: "STU-100", EDPCode: "53950", Status: models.ClearanceStatusPending},
	}}
	svc := NewClearanceService(ledger, ownedOffering(), nil, nil, nil)

	entries, err := svc.StudentView(context.Background(), "STU-100")
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}
