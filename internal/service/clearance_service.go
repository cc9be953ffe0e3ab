package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/matsl08/ems-api/internal/models"
	"github.com/matsl08/ems-api/internal/repository"
	appErrors "github.com/matsl08/ems-api/pkg/errors"
)

type clearanceRepository interface {
	ListByStudent(ctx context.Context, studentID string) ([]models.ClearanceEntry, error)
	FindEntry(ctx context.Context, studentID, edpCode string) (*models.ClearanceEntry, error)
	UpdateStatus(ctx context.Context, studentID, edpCode string, status models.ClearanceStatus, remarks *string) error
	CourseClearanceRows(ctx context.Context, edpCode string) ([]models.CourseClearanceRow, error)
}

// ClearanceService manages the per-offering clearance ledger. Entries are
// created by the enrollment fan-out; instructors only flip their state.
type ClearanceService struct {
	repo      clearanceRepository
	offerings gradeOfferingRepository
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewClearanceService constructs a ClearanceService.
func NewClearanceService(
	repo clearanceRepository,
	offerings gradeOfferingRepository,
	cache *CacheService,
	validate *validator.Validate,
	logger *zap.Logger,
) *ClearanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClearanceService{
		repo:      repo,
		offerings: offerings,
		cache:     cache,
		validator: validate,
		logger:    logger,
	}
}

// UpdateStatus flips one clearance line for an offering the teacher owns.
func (s *ClearanceService) UpdateStatus(ctx context.Context, edpCode, studentID, teacherID string, req models.UpdateClearanceRequest) (*models.ClearanceEntry, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid clearance payload")
	}

	offering, err := s.offerings.FindByEDPCode(ctx, edpCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "offering not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load offering")
	}
	if teacherID != "" && offering.TeacherID != teacherID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "offering is assigned to another teacher")
	}

	if err := s.repo.UpdateStatus(ctx, studentID, edpCode, req.Status, req.Remarks); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student is not enrolled in this offering")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update clearance")
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, repository.StudentCachePattern(studentID)); err != nil {
			s.logger.Warn("failed to invalidate student cache", zap.String("student_id", studentID), zap.Error(err))
		}
	}

	entry, err := s.repo.FindEntry(ctx, studentID, edpCode)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload clearance entry")
	}

	s.logger.Info("clearance updated",
		zap.String("edp_code", edpCode),
		zap.String("student_id", studentID),
		zap.String("status", string(req.Status)))
	return entry, nil
}

// CourseClearance returns the clearance sheet for one offering.
func (s *ClearanceService) CourseClearance(ctx context.Context, edpCode, teacherID string) ([]models.CourseClearanceRow, error) {
	offering, err := s.offerings.FindByEDPCode(ctx, edpCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "offering not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load offering")
	}
	if teacherID != "" && offering.TeacherID != teacherID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "offering is assigned to another teacher")
	}

	rows, err := s.repo.CourseClearanceRows(ctx, edpCode)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load clearance sheet")
	}
	return rows, nil
}

// StudentView returns the student's clearance ledger, cached.
func (s *ClearanceService) StudentView(ctx context.Context, studentID string) ([]models.ClearanceEntry, error) {
	cacheKey := repository.StudentClearanceCacheKey(studentID)
	if s.cache != nil {
		var cached []models.ClearanceEntry
		if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
			return cached, nil
		}
	}

	entries, err := s.repo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load clearance entries")
	}

	if s.cache != nil {
		_ = s.cache.Set(ctx, cacheKey, entries, 0)
	}
	return entries, nil
}
