package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matsl08/ems-api/internal/models"
	appErrors "github.com/matsl08/ems-api/pkg/errors"
)

type mockUserRepo struct {
	byEmail map[string]*models.User
	created []*models.User
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if user, ok := m.byEmail[email]; ok {
		return user, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) FindByExternalID(ctx context.Context, externalID string) (*models.User, error) {
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) LoadProfile(ctx context.Context, user *models.User) error { return nil }

func (m *mockUserRepo) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	return nil, 0, nil
}

func (m *mockUserRepo) Create(ctx context.Context, user *models.User) error {
	user.ID = "usr-1"
	m.created = append(m.created, user)
	return nil
}

func (m *mockUserRepo) Update(ctx context.Context, user *models.User) error { return nil }
func (m *mockUserRepo) Delete(ctx context.Context, id string) error         { return nil }
func (m *mockUserRepo) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	return nil
}

type mockGradeSeeder struct {
	ensured []string
}

func (m *mockGradeSeeder) EnsureRecord(ctx context.Context, studentID string) error {
	m.ensured = append(m.ensured, studentID)
	return nil
}

type mockCurriculum struct {
	courses []models.Course
}

func (m *mockCurriculum) ListProgramCourses(ctx context.Context, programCode string, curriculumYear int) ([]models.Course, error) {
	return m.courses, nil
}

type mockEvaluationSeeder struct {
	created []*models.Evaluation
}

func (m *mockEvaluationSeeder) Create(ctx context.Context, evaluation *models.Evaluation) error {
	m.created = append(m.created, evaluation)
	return nil
}

func newUserService(repo *mockUserRepo) (*UserService, *mockGradeSeeder, *mockEvaluationSeeder) {
	grades := &mockGradeSeeder{}
	evaluations := &mockEvaluationSeeder{}
	curriculum := &mockCurriculum{courses: []models.Course{
		{CourseCode: "CS101", SemesterOffered: 1, YearOffered: 1},
		{CourseCode: "CS102", SemesterOffered: 2, YearOffered: 1},
	}}
	return NewUserService(repo, grades, curriculum, evaluations, nil, nil), grades, evaluations
}

func TestUserServiceCreateStudentSeedsLedgers(t *testing.T) {
	repo := &mockUserRepo{}
	svc, grades, evaluations := newUserService(repo)

	user, err := svc.Create(context.Background(), models.CreateUserRequest{
		Email:    "juan@university.edu",
		Password: "secret123",
		Name:     "Juan Dela Cruz",
		Role:     models.RoleStudent,
		Student:  &models.StudentProfile{StudentID: "STU-100", ProgramCode: "BSCS", YearEnrolled: 2025, YearLevel: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, "STU-100", user.ExternalID())
	assert.True(t, user.Active)
	assert.NotEqual(t, "secret123", user.PasswordHash)

	require.Equal(t, []string{"STU-100"}, grades.ensured)
	require.Len(t, evaluations.created, 1)
	assert.Equal(t, "STU-100", evaluations.created[0].StudentID)
	assert.Len(t, evaluations.created[0].Courses, 2)
}

func TestUserServiceCreateRejectsMissingProfile(t *testing.T) {
	repo := &mockUserRepo{}
	svc, _, _ := newUserService(repo)

	_, err := svc.Create(context.Background(), models.CreateUserRequest{
		Email:    "juan@university.edu",
		Password: "secret123",
		Name:     "Juan Dela Cruz",
		Role:     models.RoleStudent,
	})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Empty(t, repo.created)
}

func TestUserServiceCreateRejectsUnknownAdminPosition(t *testing.T) {
	repo := &mockUserRepo{}
	svc, _, _ := newUserService(repo)

	_, err := svc.Create(context.Background(), models.CreateUserRequest{
		Email:    "ops@university.edu",
		Password: "secret123",
		Name:     "Ops Admin",
		Role:     models.RoleAdmin,
		Admin:    &models.AdminProfile{AdminID: "ADM-1", Position: "facilities"},
	})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestUserServiceCreateDuplicateEmail(t *testing.T) {
	repo := &mockUserRepo{byEmail: map[string]*models.User{
		"taken@university.edu": {ID: "usr-9", Email: "taken@university.edu"},
	}}
	svc, _, _ := newUserService(repo)

	_, err := svc.Create(context.Background(), models.CreateUserRequest{
		Email:    "taken@university.edu",
		Password: "secret123",
		Name:     "Someone Else",
		Role:     models.RoleTeacher,
		Teacher:  &models.TeacherProfile{FacultyID: "FAC-002", DepartmentCode: "CS"},
	})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestUserServiceCreateTeacherSkipsStudentSeeding(t *testing.T) {
	repo := &mockUserRepo{}
	svc, grades, evaluations := newUserService(repo)

	_, err := svc.Create(context.Background(), models.CreateUserRequest{
		Email:    "prof@university.edu",
		Password: "secret123",
		Name:     "Prof Reyes",
		Role:     models.RoleTeacher,
		Teacher:  &models.TeacherProfile{FacultyID: "FAC-001", DepartmentCode: "CS"},
	})
	require.NoError(t, err)
	assert.Empty(t, grades.ensured)
	assert.Empty(t, evaluations.created)
}
