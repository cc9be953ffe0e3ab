package models

import "time"

// GradePeriod identifies which half of the term a grade or payment covers.
type GradePeriod string

const (
	PeriodMidterm GradePeriod = "midterm"
	PeriodFinal   GradePeriod = "final"
)

// GradeAccess is the derived access-gate pair cached on the grade record.
type GradeAccess struct {
	Midterms bool `json:"midterms"`
	Finals   bool `json:"finals"`
}

// GradeRecord is the per-student grade ledger header. The two visibility
// flags are denormalized from the payment ledger at payment-update time so
// the student-facing read path never joins against payments.
type GradeRecord struct {
	ID              string    `db:"id" json:"id"`
	StudentID       string    `db:"student_id" json:"student_id"`
	MidtermsVisible bool      `db:"midterms_visible" json:"-"`
	FinalsVisible   bool      `db:"finals_visible" json:"-"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`

	Entries []GradeEntry `db:"-" json:"grades,omitempty"`
}

// AccessGranted exposes the gate flags as the derived pair.
func (r *GradeRecord) AccessGranted() GradeAccess {
	return GradeAccess{Midterms: r.MidtermsVisible, Finals: r.FinalsVisible}
}

// GradeEntry is one offering's marks on a student's grade ledger. At most one
// entry exists per (student, EDP code).
type GradeEntry struct {
	ID           string    `db:"id" json:"-"`
	StudentID    string    `db:"student_id" json:"student_id"`
	EDPCode      string    `db:"edp_code" json:"edp_code"`
	MidtermGrade *float64  `db:"midterm_grade" json:"midterm_grade"`
	FinalGrade   *float64  `db:"final_grade" json:"final_grade"`
	Remarks      *string   `db:"remarks" json:"remarks"`
	CreatedAt    time.Time `db:"created_at" json:"-"`
	UpdatedAt    time.Time `db:"updated_at" json:"-"`
}

// StudentGradeView is the gate-filtered ledger returned to students.
type StudentGradeView struct {
	StudentID     string       `json:"student_id"`
	AccessGranted GradeAccess  `json:"access_granted"`
	Grades        []GradeEntry `json:"grades"`
}

// CourseGradeRow is a roster row with marks for the teacher grade sheet.
type CourseGradeRow struct {
	StudentID    string   `db:"student_id" json:"student_id"`
	StudentName  string   `db:"student_name" json:"student_name"`
	MidtermGrade *float64 `db:"midterm_grade" json:"midterm_grade"`
	FinalGrade   *float64 `db:"final_grade" json:"final_grade"`
	Remarks      *string  `db:"remarks" json:"remarks"`
}
