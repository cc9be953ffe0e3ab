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

func ptrFloat(v float64) *float64 { return &v }
func ptrString(v string) *string  { return &v }

type mockStudentDirectory struct {
	students map[string]*models.User
	audits   []models.AuditLog
}

func (m *mockStudentDirectory) FindStudent(ctx context.Context, studentID string) (*models.User, error) {
	if user, ok := m.students[studentID]; ok {
		return user, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockStudentDirectory) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.audits = append(m.audits, *log)
	return nil
}

type mockOfferingFinder struct {
	offerings map[string]*models.Offering
	enrolled  map[string]bool
}

func (m *mockOfferingFinder) FindByEDPCode(ctx context.Context, edpCode string) (*models.Offering, error) {
	if offering, ok := m.offerings[edpCode]; ok {
		return offering, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockOfferingFinder) IsEnrolled(ctx context.Context, edpCode, studentID string) (bool, error) {
	return m.enrolled[edpCode+"/"+studentID], nil
}

type mockRegistrationRepo struct {
	enrolls  []string
	drops    []string
	dropErr  error
	enrolErr error
}

func (m *mockRegistrationRepo) Enroll(ctx context.Context, studentID string, offering *models.Offering) error {
	if m.enrolErr != nil {
		return m.enrolErr
	}
	m.enrolls = append(m.enrolls, offering.EDPCode+"/"+studentID)
	return nil
}

func (m *mockRegistrationRepo) Drop(ctx context.Context, studentID, edpCode string) error {
	if m.dropErr != nil {
		return m.dropErr
	}
	m.drops = append(m.drops, edpCode+"/"+studentID)
	return nil
}

func newStudentUser(studentID string) *models.User {
	return &models.User{
		ID:      "usr-" + studentID,
		Role:    models.RoleStudent,
		Student: &models.StudentProfile{StudentID: studentID},
	}
}

func TestRegistrationServiceEnroll(t *testing.T) {
	students := &mockStudentDirectory{students: map[string]*models.User{"STU-100": newStudentUser("STU-100")}}
	offerings := &mockOfferingFinder{
		offerings: map[string]*models.Offering{"53944": {EDPCode: "53944", SchoolYear: "2025-2026", Semester: 1, Amount: 3000}},
		enrolled:  map[string]bool{},
	}
	repo := &mockRegistrationRepo{}
	svc := NewRegistrationService(students, offerings, repo, nil, nil, nil)

	require.NoError(t, svc.Enroll(context.Background(), "53944", "STU-100", "admin-1"))
	require.Equal(t, []string{"53944/STU-100"}, repo.enrolls)
	require.Len(t, students.audits, 1)
	assert.Equal(t, models.AuditActionEnroll, students.audits[0].Action)
}

func TestRegistrationServiceEnrollUnknownOffering(t *testing.T) {
	svc := NewRegistrationService(&mockStudentDirectory{}, &mockOfferingFinder{}, &mockRegistrationRepo{}, nil, nil, nil)

	err := svc.Enroll(context.Background(), "99999", "STU-100", "admin-1")
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestRegistrationServiceEnrollDuplicate(t *testing.T) {
	students := &mockStudentDirectory{students: map[string]*models.User{"STU-100": newStudentUser("STU-100")}}
	offerings := &mockOfferingFinder{
		offerings: map[string]*models.Offering{"53944": {EDPCode: "53944", SchoolYear: "2025-2026", Semester: 1}},
		enrolled:  map[string]bool{"53944/STU-100": true},
	}
	repo := &mockRegistrationRepo{}
	svc := NewRegistrationService(students, offerings, repo, nil, nil, nil)

	err := svc.Enroll(context.Background(), "53944", "STU-100", "admin-1")
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Empty(t, repo.enrolls)
}

func TestRegistrationServiceDrop(t *testing.T) {
	students := &mockStudentDirectory{students: map[string]*models.User{"STU-100": newStudentUser("STU-100")}}
	offerings := &mockOfferingFinder{
		offerings: map[string]*models.Offering{"53944": {EDPCode: "53944", SchoolYear: "2025-2026", Semester: 1}},
	}
	repo := &mockRegistrationRepo{}
	svc := NewRegistrationService(students, offerings, repo, nil, nil, nil)

	require.NoError(t, svc.Drop(context.Background(), "53944", "STU-100", "admin-1"))
	require.Equal(t, []string{"53944/STU-100"}, repo.drops)
	require.Len(t, students.audits, 1)
	assert.Equal(t, models.AuditActionDrop, students.audits[0].Action)
}

func TestRegistrationServiceDropNotEnrolled(t *testing.T) {
	students := &mockStudentDirectory{}
	offerings := &mockOfferingFinder{
		offerings: map[string]*models.Offering{"53944": {EDPCode: "53944"}},
	}
	repo := &mockRegistrationRepo{dropErr: sql.ErrNoRows}
	svc := NewRegistrationService(students, offerings, repo, nil, nil, nil)

	err := svc.Drop(context.Background(), "53944", "STU-100", "admin-1")
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}
