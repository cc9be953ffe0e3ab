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

type offeringRepository interface {
	FindByEDPCode(ctx context.Context, edpCode string) (*models.Offering, error)
	List(ctx context.Context, filter models.OfferingFilter) ([]models.Offering, int, error)
	ListByTeacher(ctx context.Context, teacherID string) ([]models.Offering, error)
	LoadRoster(ctx context.Context, offering *models.Offering) error
	ListStudentOfferings(ctx context.Context, studentID, schoolYear string, semester int) ([]models.Offering, error)
	Create(ctx context.Context, offering *models.Offering) error
	Update(ctx context.Context, offering *models.Offering) error
	Delete(ctx context.Context, edpCode string) error
}

type offeringCatalogRepository interface {
	FindCourseByCode(ctx context.Context, courseCode string) (*models.Course, error)
}

// OfferingService manages scheduled sections and their rosters.
type OfferingService struct {
	repo      offeringRepository
	catalog   offeringCatalogRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewOfferingService constructs an OfferingService.
func NewOfferingService(repo offeringRepository, catalog offeringCatalogRepository, validate *validator.Validate, logger *zap.Logger) *OfferingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OfferingService{repo: repo, catalog: catalog, validator: validate, logger: logger}
}

// Get returns one offering with roster attached.
func (s *OfferingService) Get(ctx context.Context, edpCode string) (*models.Offering, error) {
	offering, err := s.repo.FindByEDPCode(ctx, edpCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "offering not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load offering")
	}
	if err := s.repo.LoadRoster(ctx, offering); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}
	return offering, nil
}

// List returns offerings matching the filter.
func (s *OfferingService) List(ctx context.Context, filter models.OfferingFilter) ([]models.Offering, *models.Pagination, error) {
	offerings, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list offerings")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	return offerings, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// ListByTeacher returns a teacher's assigned offerings.
func (s *OfferingService) ListByTeacher(ctx context.Context, teacherID string) ([]models.Offering, error) {
	offerings, err := s.repo.ListByTeacher(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list offerings")
	}
	return offerings, nil
}

// ListStudentOfferings returns a student's enrolled offerings for one term.
func (s *OfferingService) ListStudentOfferings(ctx context.Context, studentID, schoolYear string, semester int) ([]models.Offering, error) {
	if schoolYear == "" || semester == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "school_year and semester are required")
	}
	offerings, err := s.repo.ListStudentOfferings(ctx, studentID, schoolYear, semester)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrolled offerings")
	}
	return offerings, nil
}

// Create registers a new offering for an existing catalog course.
func (s *OfferingService) Create(ctx context.Context, offering *models.Offering) (*models.Offering, error) {
	if offering.EDPCode == "" || offering.CourseCode == "" || offering.SchoolYear == "" || offering.Semester == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "edp_code, course_code, school_year and semester are required")
	}

	if _, err := s.catalog.FindCourseByCode(ctx, offering.CourseCode); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "catalog course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check course")
	}

	if _, err := s.repo.FindByEDPCode(ctx, offering.EDPCode); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "EDP code is already registered")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check offering")
	}

	if err := s.repo.Create(ctx, offering); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create offering")
	}

	s.logger.Info("offering created",
		zap.String("edp_code", offering.EDPCode),
		zap.String("course_code", offering.CourseCode),
		zap.String("school_year", offering.SchoolYear),
		zap.Int("semester", offering.Semester))
	return offering, nil
}

// Update edits a scheduled offering.
func (s *OfferingService) Update(ctx context.Context, offering *models.Offering) (*models.Offering, error) {
	if err := s.repo.Update(ctx, offering); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "offering not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update offering")
	}
	return s.Get(ctx, offering.EDPCode)
}

// Delete removes an offering and its roster.
func (s *OfferingService) Delete(ctx context.Context, edpCode string) error {
	if err := s.repo.Delete(ctx, edpCode); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "offering not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete offering")
	}
	s.logger.Info("offering deleted", zap.String("edp_code", edpCode))
	return nil
}
