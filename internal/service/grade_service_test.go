package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matsl08/ems-api/internal/models"
	appErrors "github.com/matsl08/ems-api/pkg/errors"
)

type mockGradeLedger struct {
	record  *models.GradeRecord
	entries map[string]*models.GradeEntry
	rows    []models.CourseGradeRow
}

func entryKey(studentID, edpCode string) string { return studentID + "/" + edpCode }

func (m *mockGradeLedger) FindRecord(ctx context.Context, studentID string) (*models.GradeRecord, error) {
	if m.record == nil || m.record.StudentID != studentID {
		return nil, sql.ErrNoRows
	}
	return m.record, nil
}

func (m *mockGradeLedger) FindEntry(ctx context.Context, studentID, edpCode string) (*models.GradeEntry, error) {
	if entry, ok := m.entries[entryKey(studentID, edpCode)]; ok {
		copied := *entry
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockGradeLedger) UpdateEntry(ctx context.Context, entry *models.GradeEntry) error {
	key := entryKey(entry.StudentID, entry.EDPCode)
	if _, ok := m.entries[key]; !ok {
		return sql.ErrNoRows
	}
	copied := *entry
	m.entries[key] = &copied
	return nil
}

func (m *mockGradeLedger) CourseGradeRows(ctx context.Context, edpCode string) ([]models.CourseGradeRow, error) {
	return m.rows, nil
}

func ownedOffering() *mockOfferingFinder {
	return &mockOfferingFinder{
		offerings: map[string]*models.Offering{
			"53944": {EDPCode: "53944", SchoolYear: "2025-2026", Semester: 1, TeacherID: "FAC-001"},
		},
	}
}

func TestGradeServiceUpdateDerivesRemarks(t *testing.T) {
	ledger := &mockGradeLedger{entries: map[string]*models.GradeEntry{
		entryKey("STU-100", "53944"): {StudentID: "STU-100", EDPCode: "53944"},
	}}
	svc := NewGradeService(ledger, ownedOffering(), nil, nil, nil, 75)

	entry, err := svc.UpdateStudentGrade(context.Background(), "53944", "STU-100", "FAC-001", models.UpdateGradeRequest{
		MidtermGrade: ptrFloat(80),
		FinalGrade:   ptrFloat(74.5),
	})
	require.NoError(t, err)
	require.NotNil(t, entry.Remarks)
	assert.Equal(t, "Failed", *entry.Remarks)

	entry, err = svc.UpdateStudentGrade(context.Background(), "53944", "STU-100", "FAC-001", models.UpdateGradeRequest{
		FinalGrade: ptrFloat(75),
	})
	require.NoError(t, err)
	assert.Equal(t, "Passed", *entry.Remarks)
}

func TestGradeServiceExplicitRemarksWin(t *testing.T) {
	ledger := &mockGradeLedger{entries: map[string]*models.GradeEntry{
		entryKey("STU-100", "53944"): {StudentID: "STU-100", EDPCode: "53944"},
	}}
	svc := NewGradeService(ledger, ownedOffering(), nil, nil, nil, 75)

	entry, err := svc.UpdateStudentGrade(context.Background(), "53944", "STU-100", "FAC-001", models.UpdateGradeRequest{
		FinalGrade: ptrFloat(60),
		Remarks:    ptrString("Incomplete"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Incomplete", *entry.Remarks)
}

func TestGradeServiceForeignTeacherForbidden(t *testing.T) {
	ledger := &mockGradeLedger{entries: map[string]*models.GradeEntry{
		entryKey("STU-100", "53944"): {StudentID: "STU-100", EDPCode: "53944"},
	}}
	svc := NewGradeService(ledger, ownedOffering(), nil, nil, nil, 75)

	_, err := svc.UpdateStudentGrade(context.Background(), "53944", "STU-100", "FAC-999", models.UpdateGradeRequest{
		FinalGrade: ptrFloat(90),
	})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestGradeServiceAdminBypassesOwnership(t *testing.T) {
	ledger := &mockGradeLedger{entries: map[string]*models.GradeEntry{
		entryKey("STU-100", "53944"): {StudentID: "STU-100", EDPCode: "53944"},
	}}
	svc := NewGradeService(ledger, ownedOffering(), nil, nil, nil, 75)

	// An empty teacher ID means an admin is acting.
	_, err := svc.UpdateStudentGrade(context.Background(), "53944", "STU-100", "", models.UpdateGradeRequest{
		FinalGrade: ptrFloat(90),
	})
	require.NoError(t, err)
}

func TestGradeServiceUpdateNotEnrolled(t *testing.T) {
	ledger := &mockGradeLedger{entries: map[string]*models.GradeEntry{}}
	svc := NewGradeService(ledger, ownedOffering(), nil, nil, nil, 75)

	_, err := svc.UpdateStudentGrade(context.Background(), "53944", "STU-404", "FAC-001", models.UpdateGradeRequest{
		FinalGrade: ptrFloat(90),
	})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestGradeServiceBulkUploadSkipsBadRows(t *testing.T) {
	ledger := &mockGradeLedger{entries: map[string]*models.GradeEntry{
		entryKey("STU-100", "53944"): {StudentID: "STU-100", EDPCode: "53944"},
		entryKey("STU-101", "53944"): {StudentID: "STU-101", EDPCode: "53944"},
	}}
	svc := NewGradeService(ledger, ownedOffering(), nil, nil, nil, 75)

	result, err := svc.BulkUpload(context.Background(), "53944", "FAC-001", []models.BulkGradeRow{
		{StudentID: "STU-100", FinalGrade: ptrFloat(82)},
		{StudentID: "STU-404", FinalGrade: ptrFloat(70)},
		{StudentID: "", FinalGrade: ptrFloat(90)},
		{StudentID: "STU-101", FinalGrade: ptrFloat(120)},
		// A row naming a student but carrying no grade is skipped, not
		// applied as an empty update.
		{StudentID: "STU-101"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Updated)
	assert.Equal(t, 4, result.Skipped)
	assert.Len(t, result.Errors, 4)

	updated := ledger.entries[entryKey("STU-100", "53944")]
	require.NotNil(t, updated.FinalGrade)
	assert.Equal(t, 82.0, *updated.FinalGrade)
	assert.Equal(t, "Passed", *updated.Remarks)
}

func TestGradeServiceParseCSVRows(t *testing.T) {
	svc := NewGradeService(&mockGradeLedger{}, ownedOffering(), nil, nil, nil, 75)

	input := "student_id,midterm_grade,final_grade,remarks\nSTU-100,88,91,\nSTU-101,,70.5,Failed\n"
	rows, err := svc.ParseCSVRows(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "STU-100", rows[0].StudentID)
	require.NotNil(t, rows[0].MidtermGrade)
	assert.Equal(t, 88.0, *rows[0].MidtermGrade)
	assert.Nil(t, rows[1].MidtermGrade)
	require.NotNil(t, rows[1].Remarks)
	assert.Equal(t, "Failed", *rows[1].Remarks)
}

func TestGradeServiceParseCSVRowsMissingStudentColumn(t *testing.T) {
	svc := NewGradeService(&mockGradeLedger{}, ownedOffering(), nil, nil, nil, 75)

	_, err := svc.ParseCSVRows(strings.NewReader("name,final_grade\nAlice,90\n"))
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestGradeServiceStudentViewBlanksLockedPeriods(t *testing.T) {
	ledger := &mockGradeLedger{record: &models.GradeRecord{
		StudentID:       "STU-100",
		MidtermsVisible: true,
		FinalsVisible:   false,
		Entries: []models.GradeEntry{
			{StudentID: "STU-100", EDPCode: "53944", MidtermGrade: ptrFloat(88), FinalGrade: ptrFloat(91), Remarks: ptrString("Passed")},
			{StudentID: "STU-100", EDPCode: "53950", MidtermGrade: ptrFloat(75)},
		},
	}}
	svc := NewGradeService(ledger, ownedOffering(), nil, nil, nil, 75)

	view, err := svc.StudentView(context.Background(), "STU-100")
	require.NoError(t, err)
	assert.True(t, view.AccessGranted.Midterms)
	assert.False(t, view.AccessGranted.Finals)
	// Rows are never omitted; locked marks come back blank.
	require.Len(t, view.Grades, 2)
	require.NotNil(t, view.Grades[0].MidtermGrade)
	assert.Equal(t, 88.0, *view.Grades[0].MidtermGrade)
	assert.Nil(t, view.Grades[0].FinalGrade)
	assert.Nil(t, view.Grades[0].Remarks)
}

func TestGradeServiceStudentViewNoRecord(t *testing.T) {
	svc := NewGradeService(&mockGradeLedger{}, ownedOffering(), nil, nil, nil, 75)

	_, err := svc.StudentView(context.Background(), "STU-404")
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestGradeServiceExportCourseGrades(t *testing.T) {
	ledger := &mockGradeLedger{rows: []models.CourseGradeRow{
		{StudentID: "STU-100", StudentName: "Dela Cruz, Juan", MidtermGrade: ptrFloat(88), FinalGrade: ptrFloat(91), Remarks: ptrString("Passed")},
		{StudentID: "STU-101", StudentName: "Reyes, Maria"},
	}}
	svc := NewGradeService(ledger, ownedOffering(), nil, nil, nil, 75)

	payload, err := svc.ExportCourseGrades(context.Background(), "53944", "FAC-001")
	require.NoError(t, err)
	output := string(payload)
	assert.Contains(t, output, "student_id,student_name,midterm_grade,final_grade,remarks")
	assert.Contains(t, output, "STU-100")
	assert.Contains(t, output, "88.00")
}
