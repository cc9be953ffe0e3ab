package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/matsl08/ems-api/internal/models"
	appErrors "github.com/matsl08/ems-api/pkg/errors"
	"github.com/matsl08/ems-api/pkg/jobs"
)

// EnrollJobType labels queued per-offering enrollment jobs.
const EnrollJobType = "enrollment.enroll"

// EnrollJobPayload is the unit of work for one approved offering.
type EnrollJobPayload struct {
	RequestID string
	StudentID string
	EDPCode   string
}

type enrollmentRequestRepository interface {
	Create(ctx context.Context, request *models.EnrollmentRequest) error
	FindByID(ctx context.Context, id string) (*models.EnrollmentRequest, error)
	HasOpenRequest(ctx context.Context, studentID, schoolYear string, semester int) (bool, error)
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentRequest, int, error)
	UpdateStatus(ctx context.Context, id string, status models.EnrollmentStatus) error
}

type enrollmentOfferingRepository interface {
	FindByEDPCode(ctx context.Context, edpCode string) (*models.Offering, error)
}

type enrollmentQueue interface {
	Enqueue(job jobs.Job) error
}

// EnrollmentService manages the request-and-approve enrollment workflow.
// Approval fans out one queued job per requested offering; jobs are
// idempotent because a duplicate enrollment surfaces as a conflict and is
// dropped rather than retried.
type EnrollmentService struct {
	repo         enrollmentRequestRepository
	offerings    enrollmentOfferingRepository
	registration *RegistrationService
	queue        enrollmentQueue
	validator    *validator.Validate
	logger       *zap.Logger
}

// NewEnrollmentService constructs an EnrollmentService.
func NewEnrollmentService(
	repo enrollmentRequestRepository,
	offerings enrollmentOfferingRepository,
	registration *RegistrationService,
	queue enrollmentQueue,
	validate *validator.Validate,
	logger *zap.Logger,
) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{
		repo:         repo,
		offerings:    offerings,
		registration: registration,
		queue:        queue,
		validator:    validate,
		logger:       logger,
	}
}

// Submit files a student's enrollment request for one term. A student may
// hold at most one Pending or Approved request per (school year, semester).
func (s *EnrollmentService) Submit(ctx context.Context, studentID string, req models.CreateEnrollmentRequest) (*models.EnrollmentRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}

	open, err := s.repo.HasOpenRequest(ctx, studentID, req.SchoolYear, req.Semester)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing requests")
	}
	if open {
		return nil, appErrors.Clone(appErrors.ErrConflict, "an enrollment request already exists for this term")
	}

	for _, edpCode := range req.EDPCodes {
		offering, err := s.offerings.FindByEDPCode(ctx, edpCode)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "offering "+edpCode+" not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load offering")
		}
		if offering.SchoolYear != req.SchoolYear || offering.Semester != req.Semester {
			return nil, appErrors.Clone(appErrors.ErrValidation, "offering "+edpCode+" is not scheduled for the requested term")
		}
	}

	request := &models.EnrollmentRequest{
		StudentID:  studentID,
		SchoolYear: req.SchoolYear,
		Semester:   req.Semester,
		YearLevel:  req.YearLevel,
	}
	for _, edpCode := range req.EDPCodes {
		request.Courses = append(request.Courses, models.EnrollmentRequestCourse{EDPCode: edpCode})
	}

	if err := s.repo.Create(ctx, request); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment request")
	}

	s.logger.Info("enrollment request submitted",
		zap.String("request_id", request.ID),
		zap.String("student_id", studentID),
		zap.Int("courses", len(request.Courses)))
	return request, nil
}

// Get returns one request. Students may only read their own.
func (s *EnrollmentService) Get(ctx context.Context, id string, claims *models.JWTClaims) (*models.EnrollmentRequest, error) {
	request, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment request")
	}
	if claims != nil && claims.Role == models.RoleStudent && request.StudentID != claims.ExternalID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "request belongs to another student")
	}
	return request, nil
}

// List returns requests matching the filter.
func (s *EnrollmentService) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentRequest, *models.Pagination, error) {
	requests, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollment requests")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return requests, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Approve transitions a Pending request to Approved and enqueues one
// enrollment job per requested offering.
func (s *EnrollmentService) Approve(ctx context.Context, id, actorUserID string) (*models.EnrollmentRequest, error) {
	request, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment request")
	}
	if request.Status != models.EnrollmentStatusPending {
		return nil, appErrors.Clone(appErrors.ErrConflict, "enrollment request is not pending")
	}

	if err := s.repo.UpdateStatus(ctx, id, models.EnrollmentStatusApproved); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "enrollment request was already decided")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to approve request")
	}
	request.Status = models.EnrollmentStatusApproved

	for _, course := range request.Courses {
		job := jobs.Job{
			ID:   uuid.NewString(),
			Type: EnrollJobType,
			Payload: EnrollJobPayload{
				RequestID: request.ID,
				StudentID: request.StudentID,
				EDPCode:   course.EDPCode,
			},
		}
		if err := s.queue.Enqueue(job); err != nil {
			s.logger.Error("failed to enqueue enrollment job",
				zap.String("request_id", request.ID),
				zap.String("edp_code", course.EDPCode),
				zap.Error(err))
		}
	}

	s.logger.Info("enrollment request approved",
		zap.String("request_id", request.ID),
		zap.String("approved_by", actorUserID))
	return request, nil
}

// Reject transitions a Pending request to Rejected. Nothing is enrolled.
func (s *EnrollmentService) Reject(ctx context.Context, id, actorUserID string) (*models.EnrollmentRequest, error) {
	request, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment request")
	}
	if request.Status != models.EnrollmentStatusPending {
		return nil, appErrors.Clone(appErrors.ErrConflict, "enrollment request is not pending")
	}

	if err := s.repo.UpdateStatus(ctx, id, models.EnrollmentStatusRejected); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "enrollment request was already decided")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reject request")
	}
	request.Status = models.EnrollmentStatusRejected

	s.logger.Info("enrollment request rejected",
		zap.String("request_id", request.ID),
		zap.String("rejected_by", actorUserID))
	return request, nil
}

// HandleEnrollJob processes one queued per-offering enrollment. A conflict
// means the student is already on the roster, so the job is complete.
func (s *EnrollmentService) HandleEnrollJob(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(EnrollJobPayload)
	if !ok {
		s.logger.Error("unexpected enrollment job payload", zap.String("job_id", job.ID))
		return nil
	}

	err := s.registration.Enroll(ctx, payload.EDPCode, payload.StudentID, payload.StudentID)
	if err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) && appErr.Code == appErrors.ErrConflict.Code {
			return nil
		}
		return err
	}
	return nil
}
