package models

import "time"

// PaymentStatus is the settlement state of one term payment.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "Pending"
	PaymentStatusPaid    PaymentStatus = "Paid"
	PaymentStatusPartial PaymentStatus = "Partial"
)

// Payment is the per-student tuition ledger row for one (school year,
// semester). One row holds both the midterm and final sub-records; the
// triple (student, school year, semester) is unique.
type Payment struct {
	ID         string `db:"id" json:"id"`
	StudentID  string `db:"student_id" json:"student_id"`
	SchoolYear string `db:"school_year" json:"school_year"`
	Semester   int    `db:"semester" json:"semester"`

	MidtermAmount        float64       `db:"midterm_amount" json:"midterm_amount"`
	MidtermStatus        PaymentStatus `db:"midterm_status" json:"midterm_status"`
	MidtermDatePaid      *time.Time    `db:"midterm_date_paid" json:"midterm_date_paid"`
	MidtermReceiptNumber *string       `db:"midterm_receipt_number" json:"midterm_receipt_number"`

	FinalAmount        float64       `db:"final_amount" json:"final_amount"`
	FinalStatus        PaymentStatus `db:"final_status" json:"final_status"`
	FinalDatePaid      *time.Time    `db:"final_date_paid" json:"final_date_paid"`
	FinalReceiptNumber *string       `db:"final_receipt_number" json:"final_receipt_number"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// GradeAccess derives the access-gate pair from the two term statuses. Each
// term gates independently: a term's grades are visible iff it is fully paid.
func (p *Payment) GradeAccess() GradeAccess {
	return GradeAccess{
		Midterms: p.MidtermStatus == PaymentStatusPaid,
		Finals:   p.FinalStatus == PaymentStatusPaid,
	}
}
