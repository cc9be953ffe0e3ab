package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/matsl08/ems-api/internal/models"
	appErrors "github.com/matsl08/ems-api/pkg/errors"
)

type studentUserRepository interface {
	FindStudent(ctx context.Context, studentID string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	ListStudents(ctx context.Context) ([]models.User, error)
}

// StudentService serves the student self-service profile endpoints.
type StudentService struct {
	repo      studentUserRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs a StudentService.
func NewStudentService(repo studentUserRepository, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, validator: validate, logger: logger}
}

// Get returns one student's account with profile.
func (s *StudentService) Get(ctx context.Context, studentID string) (*models.User, error) {
	user, err := s.repo.FindStudent(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return user, nil
}

// List returns every student account, profiles attached.
func (s *StudentService) List(ctx context.Context) ([]models.User, error) {
	students, err := s.repo.ListStudents(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	return students, nil
}

// UpdateAddress edits the student's own address block.
func (s *StudentService) UpdateAddress(ctx context.Context, studentID string, req models.UpdateAddressRequest) (*models.User, error) {
	user, err := s.Get(ctx, studentID)
	if err != nil {
		return nil, err
	}

	if req.ProvinceAddress != nil {
		user.Student.ProvinceAddress = req.ProvinceAddress
	}
	if req.CityAddress != nil {
		user.Student.CityAddress = req.CityAddress
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update address")
	}

	s.logger.Info("student address updated", zap.String("student_id", studentID))
	return user, nil
}

// UpdateContact edits the student's own contact block.
func (s *StudentService) UpdateContact(ctx context.Context, studentID string, req models.UpdateContactRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid contact payload")
	}

	user, err := s.Get(ctx, studentID)
	if err != nil {
		return nil, err
	}

	if req.EmailAddress != nil {
		user.Student.EmailAddress = req.EmailAddress
	}
	if req.MobileNumber != nil {
		user.Student.MobileNumber = req.MobileNumber
	}
	if req.LandlineNumber != nil {
		user.Student.LandlineNumber = req.LandlineNumber
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update contact")
	}

	s.logger.Info("student contact updated", zap.String("student_id", studentID))
	return user, nil
}
