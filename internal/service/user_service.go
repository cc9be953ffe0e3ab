package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/matsl08/ems-api/internal/models"
	appErrors "github.com/matsl08/ems-api/pkg/errors"
)

type userRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByExternalID(ctx context.Context, externalID string) (*models.User, error)
	LoadProfile(ctx context.Context, user *models.User) error
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id string) error
	UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error
}

type userGradeRepository interface {
	EnsureRecord(ctx context.Context, studentID string) error
}

type userCatalogRepository interface {
	ListProgramCourses(ctx context.Context, programCode string, curriculumYear int) ([]models.Course, error)
}

type userEvaluationRepository interface {
	Create(ctx context.Context, evaluation *models.Evaluation) error
}

// UserService provides the MIS account management use cases. Creating a
// student also seeds their grade record and evaluation sheet from the program
// curriculum.
type UserService struct {
	repo        userRepository
	grades      userGradeRepository
	catalog     userCatalogRepository
	evaluations userEvaluationRepository
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewUserService constructs a UserService.
func NewUserService(
	repo userRepository,
	grades userGradeRepository,
	catalog userCatalogRepository,
	evaluations userEvaluationRepository,
	validate *validator.Validate,
	logger *zap.Logger,
) *UserService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{
		repo:        repo,
		grades:      grades,
		catalog:     catalog,
		evaluations: evaluations,
		validator:   validate,
		logger:      logger,
	}
}

// Create provisions a new account. The payload must carry exactly the profile
// matching the requested role.
func (s *UserService) Create(ctx context.Context, req models.CreateUserRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid user payload")
	}
	if err := validateProfileShape(req); err != nil {
		return nil, err
	}

	if _, err := s.repo.FindByEmail(ctx, req.Email); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email is already registered")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	user := &models.User{
		Email:        req.Email,
		PasswordHash: string(hash),
		Name:         req.Name,
		Role:         req.Role,
		Active:       true,
		Student:      req.Student,
		Teacher:      req.Teacher,
		Admin:        req.Admin,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user")
	}

	if user.Role == models.RoleStudent {
		if err := s.seedStudentLedgers(ctx, user.Student); err != nil {
			s.logger.Error("failed to seed student ledgers",
				zap.String("student_id", user.Student.StudentID), zap.Error(err))
		}
	}

	s.logger.Info("user created",
		zap.String("user_id", user.ID),
		zap.String("role", string(user.Role)),
		zap.String("external_id", user.ExternalID()))
	return user, nil
}

func validateProfileShape(req models.CreateUserRequest) error {
	switch req.Role {
	case models.RoleStudent:
		if req.Student == nil || req.Student.StudentID == "" {
			return appErrors.Clone(appErrors.ErrValidation, "student_info with student_id is required")
		}
	case models.RoleTeacher:
		if req.Teacher == nil || req.Teacher.FacultyID == "" {
			return appErrors.Clone(appErrors.ErrValidation, "teacher_info with faculty_id is required")
		}
	case models.RoleAdmin:
		if req.Admin == nil || req.Admin.AdminID == "" {
			return appErrors.Clone(appErrors.ErrValidation, "admin_info with admin_id is required")
		}
		switch req.Admin.Position {
		case models.PositionMIS, models.PositionRegistrar, models.PositionAccounting:
		default:
			return appErrors.Clone(appErrors.ErrValidation, "admin position must be mis, registrar or accounting")
		}
	}
	return nil
}

// seedStudentLedgers prepares the grade record and the evaluation sheet from
// the student's program curriculum.
func (s *UserService) seedStudentLedgers(ctx context.Context, profile *models.StudentProfile) error {
	if err := s.grades.EnsureRecord(ctx, profile.StudentID); err != nil {
		return err
	}

	courses, err := s.catalog.ListProgramCourses(ctx, profile.ProgramCode, profile.YearEnrolled)
	if err != nil {
		return err
	}

	evaluation := &models.Evaluation{StudentID: profile.StudentID}
	for _, course := range courses {
		evaluation.Courses = append(evaluation.Courses, models.EvaluationCourse{
			CourseCode:      course.CourseCode,
			SemesterOffered: course.SemesterOffered,
			YearOffered:     course.YearOffered,
		})
	}
	return s.evaluations.Create(ctx, evaluation)
}

// Get returns one user with its profile by internal ID.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	if err := s.repo.LoadProfile(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load profile")
	}
	return user, nil
}

// GetByExternalID resolves a user by studentId, facultyId or adminId.
func (s *UserService) GetByExternalID(ctx context.Context, externalID string) (*models.User, error) {
	user, err := s.repo.FindByExternalID(ctx, externalID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	return user, nil
}

// List returns users matching the filter.
func (s *UserService) List(ctx context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return users, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Update edits an account's base fields and profile.
func (s *UserService) Update(ctx context.Context, id string, req models.UpdateUserRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid user payload")
	}

	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Email != nil {
		user.Email = *req.Email
	}
	if req.Name != nil {
		user.Name = *req.Name
	}
	if req.Active != nil {
		user.Active = *req.Active
	}
	if req.Student != nil && user.Student != nil {
		mergeStudentProfile(user.Student, req.Student)
	}
	if req.Teacher != nil && user.Teacher != nil {
		user.Teacher.DepartmentCode = req.Teacher.DepartmentCode
	}
	if req.Admin != nil && user.Admin != nil {
		user.Admin.Position = req.Admin.Position
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update user")
	}

	s.logger.Info("user updated", zap.String("user_id", user.ID))
	return user, nil
}

func mergeStudentProfile(dst, src *models.StudentProfile) {
	if src.ProgramCode != "" {
		dst.ProgramCode = src.ProgramCode
	}
	if src.YearEnrolled != 0 {
		dst.YearEnrolled = src.YearEnrolled
	}
	if src.YearLevel != 0 {
		dst.YearLevel = src.YearLevel
	}
	if src.Gender != nil {
		dst.Gender = src.Gender
	}
	if src.DateOfBirth != nil {
		dst.DateOfBirth = src.DateOfBirth
	}
	if src.CivilStatus != nil {
		dst.CivilStatus = src.CivilStatus
	}
	if src.PlaceOfBirth != nil {
		dst.PlaceOfBirth = src.PlaceOfBirth
	}
	if src.Religion != nil {
		dst.Religion = src.Religion
	}
	if src.GuardianName != nil {
		dst.GuardianName = src.GuardianName
	}
	if src.GuardianRole != nil {
		dst.GuardianRole = src.GuardianRole
	}
	if src.ProvinceAddress != nil {
		dst.ProvinceAddress = src.ProvinceAddress
	}
	if src.CityAddress != nil {
		dst.CityAddress = src.CityAddress
	}
	if src.EmailAddress != nil {
		dst.EmailAddress = src.EmailAddress
	}
	if src.MobileNumber != nil {
		dst.MobileNumber = src.MobileNumber
	}
	if src.LandlineNumber != nil {
		dst.LandlineNumber = src.LandlineNumber
	}
	if src.OtherInfo != nil {
		dst.OtherInfo = src.OtherInfo
	}
}

// Delete removes an account. Dependent rows cascade via foreign keys.
func (s *UserService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete user")
	}
	s.logger.Info("user deleted", zap.String("user_id", id))
	return nil
}

// ResetPassword overwrites a user's password without the old one. MIS only.
func (s *UserService) ResetPassword(ctx context.Context, id string, req models.ResetPasswordRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid password payload")
	}

	if _, err := s.Get(ctx, id); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}
	if err := s.repo.UpdatePassword(ctx, id, string(hash), time.Now().UTC()); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reset password")
	}

	s.logger.Info("password reset", zap.String("user_id", id))
	return nil
}
