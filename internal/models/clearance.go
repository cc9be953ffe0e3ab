package models

import "time"

// ClearanceStatus is the instructor sign-off state for one offering.
type ClearanceStatus string

const (
	ClearanceStatusPending  ClearanceStatus = "Pending"
	ClearanceStatusCleared  ClearanceStatus = "Cleared"
	ClearanceStatusRejected ClearanceStatus = "Rejected"
)

// ClearanceEntry is one offering's clearance line on a student's ledger.
// At most one entry exists per (student, EDP code).
type ClearanceEntry struct {
	ID        string          `db:"id" json:"-"`
	StudentID string          `db:"student_id" json:"student_id"`
	EDPCode   string          `db:"edp_code" json:"edp_code"`
	TeacherID string          `db:"teacher_id" json:"teacher_id"`
	Status    ClearanceStatus `db:"status" json:"status"`
	Remarks   *string         `db:"remarks" json:"remarks"`
	CreatedAt time.Time       `db:"created_at" json:"-"`
	UpdatedAt time.Time       `db:"updated_at" json:"-"`
}

// CourseClearanceRow is a roster row with clearance state for instructors.
type CourseClearanceRow struct {
	StudentID   string          `db:"student_id" json:"student_id"`
	StudentName string          `db:"student_name" json:"student_name"`
	Status      ClearanceStatus `db:"status" json:"status"`
	Remarks     *string         `db:"remarks" json:"remarks"`
}
