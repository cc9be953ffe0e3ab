package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/matsl08/ems-api/internal/models"
)

// EvaluationRepository handles the registrar's per-student evaluation sheets.
type EvaluationRepository struct {
	db *sqlx.DB
}

// NewEvaluationRepository constructs the repository.
func NewEvaluationRepository(db *sqlx.DB) *EvaluationRepository {
	return &EvaluationRepository{db: db}
}

// Create persists an evaluation sheet and its course rows in one transaction.
func (r *EvaluationRepository) Create(ctx context.Context, evaluation *models.Evaluation) error {
	if evaluation.ID == "" {
		evaluation.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	evaluation.CreatedAt = now
	evaluation.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create evaluation tx: %w", err)
	}

	const query = `INSERT INTO evaluations (id, student_id, created_at, updated_at)
	VALUES (:id, :student_id, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, query, evaluation); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("insert evaluation: %w", err)
	}

	for i := range evaluation.Courses {
		evaluation.Courses[i].ID = uuid.NewString()
		evaluation.Courses[i].StudentID = evaluation.StudentID
		const courseQuery = `INSERT INTO evaluation_courses (id, student_id, course_code, semester_offered, year_offered, final_grade, remarks)
		VALUES (:id, :student_id, :course_code, :semester_offered, :year_offered, :final_grade, :remarks)`
		if _, err := tx.NamedExecContext(ctx, courseQuery, evaluation.Courses[i]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert evaluation course: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create evaluation tx: %w", err)
	}
	return nil
}

// FindByStudent returns the student's evaluation sheet with course rows.
func (r *EvaluationRepository) FindByStudent(ctx context.Context, studentID string) (*models.Evaluation, error) {
	const query = `SELECT id, student_id, created_at, updated_at FROM evaluations WHERE student_id = $1`
	var evaluation models.Evaluation
	if err := r.db.GetContext(ctx, &evaluation, query, studentID); err != nil {
		return nil, err
	}

	const coursesQuery = `SELECT id, student_id, course_code, semester_offered, year_offered, final_grade, remarks
	FROM evaluation_courses WHERE student_id = $1 ORDER BY year_offered, semester_offered, course_code`
	var courses []models.EvaluationCourse
	if err := r.db.SelectContext(ctx, &courses, coursesQuery, studentID); err != nil {
		return nil, fmt.Errorf("load evaluation courses: %w", err)
	}
	evaluation.Courses = courses
	return &evaluation, nil
}

// UpdateCourse overlays the registrar's grade and remarks on one course row.
// sql.ErrNoRows means the course is not on the student's sheet.
func (r *EvaluationRepository) UpdateCourse(ctx context.Context, studentID, courseCode string, finalGrade *float64, remarks *string) error {
	const query = `UPDATE evaluation_courses SET final_grade = $3, remarks = $4
	WHERE student_id = $1 AND course_code = $2`
	result, err := r.db.ExecContext(ctx, query, studentID, courseCode, finalGrade, remarks)
	if err != nil {
		return fmt.Errorf("update evaluation course: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}

	const touchQuery = `UPDATE evaluations SET updated_at = $2 WHERE student_id = $1`
	if _, err := r.db.ExecContext(ctx, touchQuery, studentID, time.Now().UTC()); err != nil {
		return fmt.Errorf("touch evaluation: %w", err)
	}
	return nil
}
