package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matsl08/ems-api/internal/models"
	appErrors "github.com/matsl08/ems-api/pkg/errors"
	"github.com/matsl08/ems-api/pkg/jobs"
)

type mockEnrollmentRequestRepo struct {
	requests map[string]*models.EnrollmentRequest
	open     map[string]bool
}

func (m *mockEnrollmentRequestRepo) Create(ctx context.Context, request *models.EnrollmentRequest) error {
	if m.requests == nil {
		m.requests = make(map[string]*models.EnrollmentRequest)
	}
	request.ID = uuid.NewString()
	request.Status = models.EnrollmentStatusPending
	m.requests[request.ID] = request
	return nil
}

func (m *mockEnrollmentRequestRepo) FindByID(ctx context.Context, id string) (*models.EnrollmentRequest, error) {
	if request, ok := m.requests[id]; ok {
		return request, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockEnrollmentRequestRepo) HasOpenRequest(ctx context.Context, studentID, schoolYear string, semester int) (bool, error) {
	return m.open[studentID], nil
}

func (m *mockEnrollmentRequestRepo) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentRequest, int, error) {
	var list []models.EnrollmentRequest
	for _, request := range m.requests {
		list = append(list, *request)
	}
	return list, len(list), nil
}

func (m *mockEnrollmentRequestRepo) UpdateStatus(ctx context.Context, id string, status models.EnrollmentStatus) error {
	request, ok := m.requests[id]
	if !ok || request.Status != models.EnrollmentStatusPending {
		return sql.ErrNoRows
	}
	request.Status = status
	return nil
}

type mockQueue struct {
	jobs []jobs.Job
}

func (m *mockQueue) Enqueue(job jobs.Job) error {
	m.jobs = append(m.jobs, job)
	return nil
}

func termOfferings() *mockOfferingFinder {
	return &mockOfferingFinder{
		offerings: map[string]*models.Offering{
			"53944": {EDPCode: "53944", SchoolYear: "2025-2026", Semester: 1, Amount: 3000},
			"53950": {EDPCode: "53950", SchoolYear: "2025-2026", Semester: 1, Amount: 2400},
		},
		enrolled: map[string]bool{},
	}
}

func TestEnrollmentServiceSubmit(t *testing.T) {
	repo := &mockEnrollmentRequestRepo{open: map[string]bool{}}
	svc := NewEnrollmentService(repo, termOfferings(), nil, &mockQueue{}, nil, nil)

	request, err := svc.Submit(context.Background(), "STU-100", models.CreateEnrollmentRequest{
		SchoolYear: "2025-2026",
		Semester:   1,
		YearLevel:  2,
		EDPCodes:   []string{"53944", "53950"},
	})
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusPending, request.Status)
	assert.Len(t, request.Courses, 2)
}

func TestEnrollmentServiceSubmitOpenRequestConflict(t *testing.T) {
	repo := &mockEnrollmentRequestRepo{open: map[string]bool{"STU-100": true}}
	svc := NewEnrollmentService(repo, termOfferings(), nil, &mockQueue{}, nil, nil)

	_, err := svc.Submit(context.Background(), "STU-100", models.CreateEnrollmentRequest{
		SchoolYear: "2025-2026",
		Semester:   1,
		YearLevel:  2,
		EDPCodes:   []string{"53944"},
	})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestEnrollmentServiceSubmitWrongTerm(t *testing.T) {
	repo := &mockEnrollmentRequestRepo{open: map[string]bool{}}
	svc := NewEnrollmentService(repo, termOfferings(), nil, &mockQueue{}, nil, nil)

	_, err := svc.Submit(context.Background(), "STU-100", models.CreateEnrollmentRequest{
		SchoolYear: "2025-2026",
		Semester:   2,
		YearLevel:  2,
		EDPCodes:   []string{"53944"},
	})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestEnrollmentServiceApproveEnqueuesJobs(t *testing.T) {
	repo := &mockEnrollmentRequestRepo{requests: map[string]*models.EnrollmentRequest{
		"req-1": {
			ID:        "req-1",
			StudentID: "STU-100",
			Status:    models.EnrollmentStatusPending,
			Courses: []models.EnrollmentRequestCourse{
				{RequestID: "req-1", EDPCode: "53944"},
				{RequestID: "req-1", EDPCode: "53950"},
			},
		},
	}}
	queue := &mockQueue{}
	svc := NewEnrollmentService(repo, termOfferings(), nil, queue, nil, nil)

	request, err := svc.Approve(context.Background(), "req-1", "registrar-1")
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusApproved, request.Status)
	require.Len(t, queue.jobs, 2)
	for _, job := range queue.jobs {
		assert.Equal(t, EnrollJobType, job.Type)
		payload, ok := job.Payload.(EnrollJobPayload)
		require.True(t, ok)
		assert.Equal(t, "STU-100", payload.StudentID)
	}
}

func TestEnrollmentServiceApproveNotPending(t *testing.T) {
	repo := &mockEnrollmentRequestRepo{requests: map[string]*models.EnrollmentRequest{
		"req-1": {ID: "req-1", StudentID: "STU-100", Status: models.EnrollmentStatusApproved},
	}}
	queue := &mockQueue{}
	svc := NewEnrollmentService(repo, termOfferings(), nil, queue, nil, nil)

	_, err := svc.Approve(context.Background(), "req-1", "registrar-1")
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Empty(t, queue.jobs)
}

func TestEnrollmentServiceRejectDoesNotEnroll(t *testing.T) {
	repo := &mockEnrollmentRequestRepo{requests: map[string]*models.EnrollmentRequest{
		"req-1": {
			ID:        "req-1",
			StudentID: "STU-100",
			Status:    models.EnrollmentStatusPending,
			Courses:   []models.EnrollmentRequestCourse{{RequestID: "req-1", EDPCode: "53944"}},
		},
	}}
	queue := &mockQueue{}
	svc := NewEnrollmentService(repo, termOfferings(), nil, queue, nil, nil)

	request, err := svc.Reject(context.Background(), "req-1", "registrar-1")
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusRejected, request.Status)
	assert.Empty(t, queue.jobs)
}

func TestEnrollmentServiceGetForeignStudentForbidden(t *testing.T) {
	repo := &mockEnrollmentRequestRepo{requests: map[string]*models.EnrollmentRequest{
		"req-1": {ID: "req-1", StudentID: "STU-100", Status: models.EnrollmentStatusPending},
	}}
	svc := NewEnrollmentService(repo, termOfferings(), nil, &mockQueue{}, nil, nil)

	_, err := svc.Get(context.Background(), "req-1", &models.JWTClaims{Role: models.RoleStudent, ExternalID: "STU-200"})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestEnrollmentServiceHandleEnrollJobConflictCompletes(t *testing.T) {
	students := &mockStudentDirectory{students: map[string]*models.User{"STU-100": newStudentUser("STU-100")}}
	offerings := termOfferings()
	offerings.enrolled["53944/STU-100"] = true
	registration := NewRegistrationService(students, offerings, &mockRegistrationRepo{}, nil, nil, nil)
	svc := NewEnrollmentService(&mockEnrollmentRequestRepo{}, offerings, registration, &mockQueue{}, nil, nil)

	job := jobs.Job{
		ID:      "job-1",
		Type:    EnrollJobType,
		Payload: EnrollJobPayload{RequestID: "req-1", StudentID: "STU-100", EDPCode: "53944"},
	}
	// The student is already on the roster, so the job finishes cleanly
	// instead of being retried.
	require.NoError(t, svc.HandleEnrollJob(context.Background(), job))
}

func TestEnrollmentServiceHandleEnrollJobEnrolls(t *testing.T) {
	students := &mockStudentDirectory{students: map[string]*models.User{"STU-100": newStudentUser("STU-100")}}
	offerings := termOfferings()
	repo := &mockRegistrationRepo{}
	registration := NewRegistrationService(students, offerings, repo, nil, nil, nil)
	svc := NewEnrollmentService(&mockEnrollmentRequestRepo{}, offerings, registration, &mockQueue{}, nil, nil)

	job := jobs.Job{
		ID:      "job-1",
		Type:    EnrollJobType,
		Payload: EnrollJobPayload{RequestID: "req-1", StudentID: "STU-100", EDPCode: "53944"},
	}
	require.NoError(t, svc.HandleEnrollJob(context.Background(), job))
	require.Equal(t, []string{"53944/STU-100"}, repo.enrolls)
}
