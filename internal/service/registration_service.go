package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	"github.com/matsl08/ems-api/internal/models"
	"github.com/matsl08/ems-api/internal/repository"
	appErrors "github.com/matsl08/ems-api/pkg/errors"
)

type registrationStudentRepository interface {
	FindStudent(ctx context.Context, studentID string) (*models.User, error)
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type registrationOfferingRepository interface {
	FindByEDPCode(ctx context.Context, edpCode string) (*models.Offering, error)
	IsEnrolled(ctx context.Context, edpCode, studentID string) (bool, error)
}

type registrationRepository interface {
	Enroll(ctx context.Context, studentID string, offering *models.Offering) error
	Drop(ctx context.Context, studentID, edpCode string) error
}

// RegistrationService enrolls students into offerings and drops them out.
// An enrollment fans out to the roster, grade ledger, clearance ledger and
// payment ledger in one transaction; a drop removes the roster, grade and
// clearance entries but never touches payments.
type RegistrationService struct {
	students  registrationStudentRepository
	offerings registrationOfferingRepository
	repo      registrationRepository
	cache     *CacheService
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewRegistrationService constructs a RegistrationService.
func NewRegistrationService(
	students registrationStudentRepository,
	offerings registrationOfferingRepository,
	repo registrationRepository,
	cache *CacheService,
	metrics *MetricsService,
	logger *zap.Logger,
) *RegistrationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RegistrationService{
		students:  students,
		offerings: offerings,
		repo:      repo,
		cache:     cache,
		metrics:   metrics,
		logger:    logger,
	}
}

// Enroll adds a student to an offering and fans the enrollment out to the
// dependent ledgers. The offering and student must exist and the student must
// not already be on the roster.
func (s *RegistrationService) Enroll(ctx context.Context, edpCode, studentID, actorUserID string) error {
	offering, err := s.offerings.FindByEDPCode(ctx, edpCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "offering not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load offering")
	}

	if _, err := s.students.FindStudent(ctx, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	enrolled, err := s.offerings.IsEnrolled(ctx, edpCode, studentID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check roster")
	}
	if enrolled {
		return appErrors.Clone(appErrors.ErrConflict, "student is already enrolled in this offering")
	}

	if err := s.repo.Enroll(ctx, studentID, offering); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enroll student")
	}

	if s.metrics != nil {
		s.metrics.RecordEnrollment()
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, repository.StudentCachePattern(studentID)); err != nil {
			s.logger.Warn("failed to invalidate student cache", zap.String("student_id", studentID), zap.Error(err))
		}
	}

	payload, _ := json.Marshal(map[string]string{"student_id": studentID, "edp_code": edpCode})
	if err := s.students.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &actorUserID,
		Action:     models.AuditActionEnroll,
		Resource:   "offering",
		ResourceID: &edpCode,
		NewValues:  payload,
	}); err != nil {
		s.logger.Warn("failed to record enroll audit log", zap.Error(err))
	}

	s.logger.Info("student enrolled",
		zap.String("student_id", studentID),
		zap.String("edp_code", edpCode),
		zap.String("school_year", offering.SchoolYear),
		zap.Int("semester", offering.Semester))
	return nil
}

// Drop removes a student from an offering roster together with the grade and
// clearance entries for that offering.
func (s *RegistrationService) Drop(ctx context.Context, edpCode, studentID, actorUserID string) error {
	if _, err := s.offerings.FindByEDPCode(ctx, edpCode); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "offering not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load offering")
	}

	if err := s.repo.Drop(ctx, studentID, edpCode); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student is not enrolled in this offering")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to drop student")
	}

	if s.metrics != nil {
		s.metrics.RecordDrop()
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, repository.StudentCachePattern(studentID)); err != nil {
			s.logger.Warn("failed to invalidate student cache", zap.String("student_id", studentID), zap.Error(err))
		}
	}

	payload, _ := json.Marshal(map[string]string{"student_id": studentID, "edp_code": edpCode})
	if err := s.students.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &actorUserID,
		Action:     models.AuditActionDrop,
		Resource:   "offering",
		ResourceID: &edpCode,
		NewValues:  payload,
	}); err != nil {
		s.logger.Warn("failed to record drop audit log", zap.Error(err))
	}

	s.logger.Info("student dropped",
		zap.String("student_id", studentID),
		zap.String("edp_code", edpCode))
	return nil
}
