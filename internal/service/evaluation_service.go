package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/matsl08/ems-api/internal/models"
	appErrors "github.com/matsl08/ems-api/pkg/errors"
	"github.com/matsl08/ems-api/pkg/export"
)

type evaluationRepository interface {
	FindByStudent(ctx context.Context, studentID string) (*models.Evaluation, error)
	UpdateCourse(ctx context.Context, studentID, courseCode string, finalGrade *float64, remarks *string) error
}

// EvaluationService serves the registrar's evaluation sheets and their
// CSV/PDF exports.
type EvaluationService struct {
	repo        evaluationRepository
	validator   *validator.Validate
	logger      *zap.Logger
	csvExporter *export.CSVExporter
	pdfExporter *export.PDFExporter
}

// NewEvaluationService constructs an EvaluationService.
func NewEvaluationService(repo evaluationRepository, validate *validator.Validate, logger *zap.Logger) *EvaluationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EvaluationService{
		repo:        repo,
		validator:   validate,
		logger:      logger,
		csvExporter: export.NewCSVExporter(),
		pdfExporter: export.NewPDFExporter(),
	}
}

// Get returns one student's evaluation sheet.
func (s *EvaluationService) Get(ctx context.Context, studentID string) (*models.Evaluation, error) {
	evaluation, err := s.repo.FindByStudent(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no evaluation sheet for student")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load evaluation")
	}
	return evaluation, nil
}

// UpdateCourse overlays a grade and remarks on one evaluation course row.
func (s *EvaluationService) UpdateCourse(ctx context.Context, studentID, courseCode string, req models.UpdateEvaluationCourseRequest) (*models.Evaluation, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid evaluation payload")
	}

	if err := s.repo.UpdateCourse(ctx, studentID, courseCode, req.FinalGrade, req.Remarks); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course is not on the evaluation sheet")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update evaluation")
	}

	s.logger.Info("evaluation course updated",
		zap.String("student_id", studentID),
		zap.String("course_code", courseCode))
	return s.Get(ctx, studentID)
}

// Export renders the evaluation sheet as csv or pdf.
func (s *EvaluationService) Export(ctx context.Context, studentID, format string) ([]byte, string, error) {
	evaluation, err := s.Get(ctx, studentID)
	if err != nil {
		return nil, "", err
	}

	dataset := export.Dataset{Headers: []string{"course_code", "year_offered", "semester_offered", "final_grade", "remarks"}}
	for _, course := range evaluation.Courses {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"course_code":      course.CourseCode,
			"year_offered":     fmt.Sprintf("%d", course.YearOffered),
			"semester_offered": fmt.Sprintf("%d", course.SemesterOffered),
			"final_grade":      formatGrade(course.FinalGrade),
			"remarks":          stringOrEmpty(course.Remarks),
		})
	}

	switch format {
	case "csv", "":
		payload, err := s.csvExporter.Render(dataset)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to export evaluation")
		}
		return payload, "text/csv", nil
	case "pdf":
		payload, err := s.pdfExporter.Render(dataset, "Evaluation "+studentID)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to export evaluation")
		}
		return payload, "application/pdf", nil
	default:
		return nil, "", appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
}
