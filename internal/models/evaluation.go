package models

import "time"

// Evaluation is the registrar's per-student snapshot of all catalog courses
// required by the student's program and curriculum year. It is created once
// when the student account is created and only the registrar overlays grades
// and remarks afterwards; the enrollment workflow never touches it.
type Evaluation struct {
	ID        string    `db:"id" json:"id"`
	StudentID string    `db:"student_id" json:"student_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`

	Courses []EvaluationCourse `db:"-" json:"courses"`
}

// EvaluationCourse is one required catalog course on the evaluation sheet.
type EvaluationCourse struct {
	ID              string   `db:"id" json:"-"`
	StudentID       string   `db:"student_id" json:"-"`
	CourseCode      string   `db:"course_code" json:"course_code"`
	SemesterOffered int      `db:"semester_offered" json:"semester_offered"`
	YearOffered     int      `db:"year_offered" json:"year_offered"`
	FinalGrade      *float64 `db:"final_grade" json:"final_grade"`
	Remarks         *string  `db:"remarks" json:"remarks"`
}
