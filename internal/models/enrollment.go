package models

import "time"

// EnrollmentStatus tracks the lifecycle of an enrollment request.
type EnrollmentStatus string

const (
	EnrollmentStatusPending  EnrollmentStatus = "Pending"
	EnrollmentStatusApproved EnrollmentStatus = "Approved"
	EnrollmentStatusRejected EnrollmentStatus = "Rejected"
)

// EnrollmentRequest is a student's request to join a set of offerings for one
// term. At most one Pending or Approved request may exist per student per
// (school year, semester).
type EnrollmentRequest struct {
	ID         string           `db:"id" json:"id"`
	StudentID  string           `db:"student_id" json:"student_id"`
	SchoolYear string           `db:"school_year" json:"school_year"`
	Semester   int              `db:"semester" json:"semester"`
	YearLevel  int              `db:"year_level" json:"year_level"`
	Status     EnrollmentStatus `db:"status" json:"status"`
	CreatedAt  time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time        `db:"updated_at" json:"updated_at"`

	Courses []EnrollmentRequestCourse `db:"-" json:"courses,omitempty"`
}

// EnrollmentRequestCourse references one requested offering.
type EnrollmentRequestCourse struct {
	RequestID string `db:"request_id" json:"-"`
	EDPCode   string `db:"edp_code" json:"edp_code"`
}

// EnrollmentFilter scopes enrollment request queries.
type EnrollmentFilter struct {
	StudentID  string
	Status     EnrollmentStatus
	SchoolYear string
	Semester   int
	Page       int
	PageSize   int
}
