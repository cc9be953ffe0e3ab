package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/matsl08/ems-api/internal/models"
	"github.com/matsl08/ems-api/internal/repository"
	appErrors "github.com/matsl08/ems-api/pkg/errors"
)

type paymentRepository interface {
	FindByStudentTerm(ctx context.Context, studentID, schoolYear string, semester int) (*models.Payment, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.Payment, error)
	ListByTerm(ctx context.Context, schoolYear string, semester int) ([]models.Payment, error)
	ApplyStatus(ctx context.Context, update repository.PaymentUpdate) (*models.Payment, error)
}

type paymentAuditRepository interface {
	FindStudent(ctx context.Context, studentID string) (*models.User, error)
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// PaymentService manages the per-term tuition ledger. Updating a payment
// period also rewrites the student's grade visibility flags, each period
// gating independently.
type PaymentService struct {
	repo      paymentRepository
	students  paymentAuditRepository
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewPaymentService constructs a PaymentService.
func NewPaymentService(
	repo paymentRepository,
	students paymentAuditRepository,
	cache *CacheService,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
) *PaymentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentService{
		repo:      repo,
		students:  students,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
	}
}

// UpdateStatus settles one period of a student's term payment and pushes the
// derived visibility flags onto the grade record. Marking a period Paid stamps
// the settlement time and receipt number on the server; any other status
// clears both.
func (s *PaymentService) UpdateStatus(ctx context.Context, studentID string, req models.UpdatePaymentStatusRequest, actorUserID string) (*models.Payment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payment payload")
	}

	if _, err := s.students.FindStudent(ctx, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	var datePaid *time.Time
	var receiptNumber *string
	if req.Status == models.PaymentStatusPaid {
		now := time.Now().UTC()
		datePaid = &now
		receiptNumber = req.ReceiptNumber
	}

	payment, err := s.repo.ApplyStatus(ctx, repository.PaymentUpdate{
		StudentID:     studentID,
		SchoolYear:    req.SchoolYear,
		Semester:      req.Semester,
		Period:        req.Period,
		Status:        req.Status,
		DatePaid:      datePaid,
		ReceiptNumber: receiptNumber,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no payment record for this term")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update payment")
	}

	if s.metrics != nil {
		s.metrics.RecordPaymentUpdate()
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, repository.StudentCachePattern(studentID)); err != nil {
			s.logger.Warn("failed to invalidate student cache", zap.String("student_id", studentID), zap.Error(err))
		}
	}

	payload, _ := json.Marshal(map[string]interface{}{
		"student_id":  studentID,
		"school_year": req.SchoolYear,
		"semester":    req.Semester,
		"period":      req.Period,
		"status":      req.Status,
	})
	if err := s.students.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &actorUserID,
		Action:     models.AuditActionPaymentUpdate,
		Resource:   "payment",
		ResourceID: &payment.ID,
		NewValues:  payload,
	}); err != nil {
		s.logger.Warn("failed to record payment audit log", zap.Error(err))
	}

	access := payment.GradeAccess()
	s.logger.Info("payment status updated",
		zap.String("student_id", studentID),
		zap.String("period", string(req.Period)),
		zap.String("status", string(req.Status)),
		zap.Bool("midterms_visible", access.Midterms),
		zap.Bool("finals_visible", access.Finals))
	return payment, nil
}

// GetByTerm returns one student's payment row for a term.
func (s *PaymentService) GetByTerm(ctx context.Context, studentID, schoolYear string, semester int) (*models.Payment, error) {
	payment, err := s.repo.FindByStudentTerm(ctx, studentID, schoolYear, semester)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no payment record for this term")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payment")
	}
	return payment, nil
}

// ListByStudent returns every term payment row for a student.
func (s *PaymentService) ListByStudent(ctx context.Context, studentID string) ([]models.Payment, error) {
	payments, err := s.repo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list payments")
	}
	return payments, nil
}

// ListByTerm returns every payment row for a term, for the accounting view.
func (s *PaymentService) ListByTerm(ctx context.Context, schoolYear string, semester int) ([]models.Payment, error) {
	if schoolYear == "" || semester == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "school_year and semester are required")
	}
	payments, err := s.repo.ListByTerm(ctx, schoolYear, semester)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list payments")
	}
	return payments, nil
}
