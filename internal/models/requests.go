package models

import "time"

// CreateUserRequest is the MIS payload for provisioning an account.
type CreateUserRequest struct {
	Email    string   `json:"email" validate:"required,email"`
	Password string   `json:"password" validate:"required,min=6"`
	Name     string   `json:"name" validate:"required"`
	Role     UserRole `json:"role" validate:"required,oneof=student teacher admin"`

	Student *StudentProfile `json:"student_info,omitempty"`
	Teacher *TeacherProfile `json:"teacher_info,omitempty"`
	Admin   *AdminProfile   `json:"admin_info,omitempty"`
}

// UpdateUserRequest is the MIS payload for editing an account.
type UpdateUserRequest struct {
	Email  *string `json:"email,omitempty" validate:"omitempty,email"`
	Name   *string `json:"name,omitempty"`
	Active *bool   `json:"is_active,omitempty"`

	Student *StudentProfile `json:"student_info,omitempty"`
	Teacher *TeacherProfile `json:"teacher_info,omitempty"`
	Admin   *AdminProfile   `json:"admin_info,omitempty"`
}

// ResetPasswordRequest is the MIS payload for resetting a user's password.
type ResetPasswordRequest struct {
	NewPassword string `json:"new_password" validate:"required,min=6"`
}

// UpdateAddressRequest is the student payload for their address block.
type UpdateAddressRequest struct {
	ProvinceAddress *string `json:"province_address,omitempty"`
	CityAddress     *string `json:"city_address,omitempty"`
}

// UpdateContactRequest is the student payload for their contact block.
type UpdateContactRequest struct {
	EmailAddress   *string `json:"email_address,omitempty" validate:"omitempty,email"`
	MobileNumber   *string `json:"mobile_number,omitempty"`
	LandlineNumber *string `json:"landline_number,omitempty"`
}

// CreateEnrollmentRequest is the student payload for requesting enrollment
// into a set of offerings for one term.
type CreateEnrollmentRequest struct {
	SchoolYear string   `json:"school_year" validate:"required"`
	Semester   int      `json:"semester" validate:"required,oneof=1 2"`
	YearLevel  int      `json:"year_level" validate:"required,min=1,max=6"`
	EDPCodes   []string `json:"edp_codes" validate:"required,min=1,dive,required"`
}

// EnrollStudentRequest enrolls one student directly into an offering.
type EnrollStudentRequest struct {
	StudentID string `json:"student_id" validate:"required"`
}

// UpdateGradeRequest is the teacher payload for one student's marks.
type UpdateGradeRequest struct {
	MidtermGrade *float64 `json:"midterm_grade,omitempty" validate:"omitempty,min=0,max=100"`
	FinalGrade   *float64 `json:"final_grade,omitempty" validate:"omitempty,min=0,max=100"`
	Remarks      *string  `json:"remarks,omitempty"`
}

// BulkGradeRow is one row of a bulk grade upload.
type BulkGradeRow struct {
	StudentID    string   `json:"student_id" validate:"required"`
	MidtermGrade *float64 `json:"midterm_grade,omitempty" validate:"omitempty,min=0,max=100"`
	FinalGrade   *float64 `json:"final_grade,omitempty" validate:"omitempty,min=0,max=100"`
	Remarks      *string  `json:"remarks,omitempty"`
}

// BulkGradeResult reports the outcome of a bulk grade upload.
type BulkGradeResult struct {
	Updated int      `json:"updated"`
	Skipped int      `json:"skipped"`
	Errors  []string `json:"errors,omitempty"`
}

// UpdateClearanceRequest is the teacher payload for one clearance line.
type UpdateClearanceRequest struct {
	Status  ClearanceStatus `json:"status" validate:"required,oneof=Pending Cleared Rejected"`
	Remarks *string         `json:"remarks,omitempty"`
}

// UpdatePaymentStatusRequest is the accounting payload for settling one
// payment period. The settlement date is stamped server-side when the status
// is Paid, never taken from the client.
type UpdatePaymentStatusRequest struct {
	SchoolYear    string        `json:"school_year" validate:"required"`
	Semester      int           `json:"semester" validate:"required,oneof=1 2"`
	Period        GradePeriod   `json:"period" validate:"required,oneof=midterm final"`
	Status        PaymentStatus `json:"status" validate:"required,oneof=Pending Paid Partial"`
	ReceiptNumber *string       `json:"receipt_number,omitempty"`
}

// UpdateEvaluationCourseRequest overlays a grade on an evaluation course row.
type UpdateEvaluationCourseRequest struct {
	FinalGrade *float64 `json:"final_grade,omitempty" validate:"omitempty,min=0,max=100"`
	Remarks    *string  `json:"remarks,omitempty"`
}

// SystemMetrics is the aggregated runtime snapshot served to MIS admins.
type SystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	EnrollmentsTotal         uint64    `json:"enrollments_total"`
	DropsTotal               uint64    `json:"drops_total"`
	PaymentUpdatesTotal      uint64    `json:"payment_updates_total"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
