package models

import "time"

// Offering is a scheduled section of a catalog course for a specific term.
// EDPCode is the administratively assigned unique section identifier.
type Offering struct {
	ID           string    `db:"id" json:"id"`
	EDPCode      string    `db:"edp_code" json:"edp_code"`
	CourseCode   string    `db:"course_code" json:"course_code"`
	SchoolYear   string    `db:"school_year" json:"school_year"`
	Semester     int       `db:"semester" json:"semester"`
	ScheduleDay  string    `db:"schedule_day" json:"schedule_day"`
	ScheduleTime string    `db:"schedule_time" json:"schedule_time"`
	ScheduleRoom string    `db:"schedule_room" json:"schedule_room"`
	TeacherID    string    `db:"teacher_id" json:"teacher_assigned"`
	Amount       float64   `db:"amount" json:"amount"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`

	Roster []RosterEntry `db:"-" json:"students_enrolled,omitempty"`
}

// RosterEntry is one student's membership on an offering roster.
type RosterEntry struct {
	EDPCode    string    `db:"edp_code" json:"-"`
	StudentID  string    `db:"student_id" json:"student_id"`
	EnrolledAt time.Time `db:"enrolled_at" json:"enrolled_at"`
}

// OfferingFilter scopes offering queries.
type OfferingFilter struct {
	SchoolYear string
	Semester   int
	TeacherID  string
	CourseCode string
	Page       int
	PageSize   int
}
