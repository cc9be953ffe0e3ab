package service

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/matsl08/ems-api/internal/models"
	"github.com/matsl08/ems-api/internal/repository"
	appErrors "github.com/matsl08/ems-api/pkg/errors"
	"github.com/matsl08/ems-api/pkg/export"
)

type gradeRepository interface {
	FindRecord(ctx context.Context, studentID string) (*models.GradeRecord, error)
	FindEntry(ctx context.Context, studentID, edpCode string) (*models.GradeEntry, error)
	UpdateEntry(ctx context.Context, entry *models.GradeEntry) error
	CourseGradeRows(ctx context.Context, edpCode string) ([]models.CourseGradeRow, error)
}

type gradeOfferingRepository interface {
	FindByEDPCode(ctx context.Context, edpCode string) (*models.Offering, error)
}

// GradeService manages the grade ledger. Teachers may only touch offerings
// assigned to them, and students only ever see the gate-filtered view.
type GradeService struct {
	repo         gradeRepository
	offerings    gradeOfferingRepository
	cache        *CacheService
	validator    *validator.Validate
	logger       *zap.Logger
	passingGrade float64
	csvExporter  *export.CSVExporter
}

// NewGradeService constructs a GradeService.
func NewGradeService(
	repo gradeRepository,
	offerings gradeOfferingRepository,
	cache *CacheService,
	validate *validator.Validate,
	logger *zap.Logger,
	passingGrade float64,
) *GradeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if passingGrade <= 0 {
		passingGrade = 75
	}
	return &GradeService{
		repo:         repo,
		offerings:    offerings,
		cache:        cache,
		validator:    validate,
		logger:       logger,
		passingGrade: passingGrade,
		csvExporter:  export.NewCSVExporter(),
	}
}

// verifyOwnership loads the offering and checks the acting teacher is
// assigned to it. Admins pass with an empty teacher ID.
func (s *GradeService) verifyOwnership(ctx context.Context, edpCode, teacherID string) (*models.Offering, error) {
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
	return offering, nil
}

// UpdateStudentGrade sets one student's marks for an offering. Remarks are
// derived from the final grade against the passing threshold when the payload
// does not carry explicit remarks.
func (s *GradeService) UpdateStudentGrade(ctx context.Context, edpCode, studentID, teacherID string, req models.UpdateGradeRequest) (*models.GradeEntry, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade payload")
	}

	if _, err := s.verifyOwnership(ctx, edpCode, teacherID); err != nil {
		return nil, err
	}

	entry, err := s.repo.FindEntry(ctx, studentID, edpCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student is not enrolled in this offering")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grade entry")
	}

	if req.MidtermGrade != nil {
		entry.MidtermGrade = req.MidtermGrade
	}
	if req.FinalGrade != nil {
		entry.FinalGrade = req.FinalGrade
	}
	switch {
	case req.Remarks != nil:
		entry.Remarks = req.Remarks
	case entry.FinalGrade != nil:
		remarks := s.deriveRemarks(*entry.FinalGrade)
		entry.Remarks = &remarks
	}

	if err := s.repo.UpdateEntry(ctx, entry); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student is not enrolled in this offering")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update grade")
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, repository.StudentCachePattern(studentID)); err != nil {
			s.logger.Warn("failed to invalidate student cache", zap.String("student_id", studentID), zap.Error(err))
		}
	}

	s.logger.Info("grade updated",
		zap.String("edp_code", edpCode),
		zap.String("student_id", studentID),
		zap.String("teacher_id", teacherID))
	return entry, nil
}

// BulkUpload applies a batch of grade rows for one offering. Bad rows are
// skipped and reported; good rows still apply.
func (s *GradeService) BulkUpload(ctx context.Context, edpCode, teacherID string, rows []models.BulkGradeRow) (*models.BulkGradeResult, error) {
	if _, err := s.verifyOwnership(ctx, edpCode, teacherID); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "upload contains no rows")
	}

	result := &models.BulkGradeResult{}
	for i, row := range rows {
		if err := s.validator.Struct(row); err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: invalid payload", i+1))
			continue
		}
		if row.MidtermGrade == nil && row.FinalGrade == nil {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: no grade provided", i+1))
			continue
		}

		entry, err := s.repo.FindEntry(ctx, row.StudentID, edpCode)
		if err != nil {
			result.Skipped++
			if errors.Is(err, sql.ErrNoRows) {
				result.Errors = append(result.Errors, fmt.Sprintf("row %d: student %s is not enrolled", i+1, row.StudentID))
			} else {
				result.Errors = append(result.Errors, fmt.Sprintf("row %d: lookup failed", i+1))
			}
			continue
		}

		if row.MidtermGrade != nil {
			entry.MidtermGrade = row.MidtermGrade
		}
		if row.FinalGrade != nil {
			entry.FinalGrade = row.FinalGrade
		}
		switch {
		case row.Remarks != nil:
			entry.Remarks = row.Remarks
		case entry.FinalGrade != nil:
			remarks := s.deriveRemarks(*entry.FinalGrade)
			entry.Remarks = &remarks
		}

		if err := s.repo.UpdateEntry(ctx, entry); err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: update failed", i+1))
			continue
		}
		result.Updated++

		if s.cache != nil {
			_ = s.cache.Invalidate(ctx, repository.StudentCachePattern(row.StudentID))
		}
	}

	s.logger.Info("bulk grade upload applied",
		zap.String("edp_code", edpCode),
		zap.Int("updated", result.Updated),
		zap.Int("skipped", result.Skipped))
	return result, nil
}

// ParseCSVRows converts an uploaded CSV stream into bulk grade rows. The
// expected header is student_id,midterm_grade,final_grade,remarks.
func (s *GradeService) ParseCSVRows(reader io.Reader) ([]models.BulkGradeRow, error) {
	csvReader := csv.NewReader(reader)
	csvReader.TrimLeadingSpace = true

	header, err := csvReader.Read()
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "csv file is empty")
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := index["student_id"]; !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "csv is missing a student_id column")
	}

	var rows []models.BulkGradeRow
	for {
		record, err := csvReader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "csv file is malformed")
		}

		row := models.BulkGradeRow{StudentID: strings.TrimSpace(record[index["student_id"]])}
		if i, ok := index["midterm_grade"]; ok && i < len(record) && strings.TrimSpace(record[i]) != "" {
			value, err := strconv.ParseFloat(strings.TrimSpace(record[i]), 64)
			if err == nil {
				row.MidtermGrade = &value
			}
		}
		if i, ok := index["final_grade"]; ok && i < len(record) && strings.TrimSpace(record[i]) != "" {
			value, err := strconv.ParseFloat(strings.TrimSpace(record[i]), 64)
			if err == nil {
				row.FinalGrade = &value
			}
		}
		if i, ok := index["remarks"]; ok && i < len(record) && strings.TrimSpace(record[i]) != "" {
			remarks := strings.TrimSpace(record[i])
			row.Remarks = &remarks
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// CourseGrades returns the grade sheet for one offering.
func (s *GradeService) CourseGrades(ctx context.Context, edpCode, teacherID string) ([]models.CourseGradeRow, error) {
	if _, err := s.verifyOwnership(ctx, edpCode, teacherID); err != nil {
		return nil, err
	}
	rows, err := s.repo.CourseGradeRows(ctx, edpCode)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grade sheet")
	}
	return rows, nil
}

// ExportCourseGrades renders the grade sheet for one offering as CSV.
func (s *GradeService) ExportCourseGrades(ctx context.Context, edpCode, teacherID string) ([]byte, error) {
	rows, err := s.CourseGrades(ctx, edpCode, teacherID)
	if err != nil {
		return nil, err
	}

	dataset := export.Dataset{Headers: []string{"student_id", "student_name", "midterm_grade", "final_grade", "remarks"}}
	for _, row := range rows {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"student_id":    row.StudentID,
			"student_name":  row.StudentName,
			"midterm_grade": formatGrade(row.MidtermGrade),
			"final_grade":   formatGrade(row.FinalGrade),
			"remarks":       stringOrEmpty(row.Remarks),
		})
	}

	payload, err := s.csvExporter.Render(dataset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to export grade sheet")
	}
	return payload, nil
}

// StudentView returns the gate-filtered grade ledger for a student. Locked
// periods come back with their marks blanked, never omitted rows.
func (s *GradeService) StudentView(ctx context.Context, studentID string) (*models.StudentGradeView, error) {
	cacheKey := repository.StudentGradeCacheKey(studentID)
	if s.cache != nil {
		var cached models.StudentGradeView
		if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
			return &cached, nil
		}
	}

	record, err := s.repo.FindRecord(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no grade record for student")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grade record")
	}

	view := &models.StudentGradeView{
		StudentID:     studentID,
		AccessGranted: record.AccessGranted(),
		Grades:        make([]models.GradeEntry, 0, len(record.Entries)),
	}
	for _, entry := range record.Entries {
		filtered := entry
		if !record.MidtermsVisible {
			filtered.MidtermGrade = nil
		}
		if !record.FinalsVisible {
			filtered.FinalGrade = nil
			filtered.Remarks = nil
		}
		view.Grades = append(view.Grades, filtered)
	}

	if s.cache != nil {
		_ = s.cache.Set(ctx, cacheKey, view, 0)
	}
	return view, nil
}

func (s *GradeService) deriveRemarks(finalGrade float64) string {
	if finalGrade >= s.passingGrade {
		return "Passed"
	}
	return "Failed"
}

func formatGrade(grade *float64) string {
	if grade == nil {
		return ""
	}
	return strconv.FormatFloat(*grade, 'f', 2, 64)
}

func stringOrEmpty(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
