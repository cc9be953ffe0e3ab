package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleStudent UserRole = "student"
	RoleTeacher UserRole = "teacher"
	RoleAdmin   UserRole = "admin"
)

// AdminPosition narrows the admin role to a functional office.
type AdminPosition string

const (
	PositionMIS        AdminPosition = "mis"
	PositionRegistrar  AdminPosition = "registrar"
	PositionAccounting AdminPosition = "accounting"
)

// User represents an application user stored in the users table. Exactly one
// of the role profiles is populated, matching Role.
type User struct {
	ID           string     `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	Name         string     `db:"name" json:"name"`
	Role         UserRole   `db:"role" json:"role"`
	Active       bool       `db:"is_active" json:"is_active"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`

	Student *StudentProfile `db:"-" json:"student_info,omitempty"`
	Teacher *TeacherProfile `db:"-" json:"teacher_info,omitempty"`
	Admin   *AdminProfile   `db:"-" json:"admin_info,omitempty"`
}

// ExternalID returns the role-specific human readable identifier.
func (u *User) ExternalID() string {
	switch {
	case u.Student != nil:
		return u.Student.StudentID
	case u.Teacher != nil:
		return u.Teacher.FacultyID
	case u.Admin != nil:
		return u.Admin.AdminID
	}
	return ""
}

// StudentProfile holds the student-specific user payload.
type StudentProfile struct {
	UserID       string `db:"user_id" json:"-"`
	StudentID    string `db:"student_id" json:"student_id"`
	ProgramCode  string `db:"program_code" json:"program_code"`
	YearEnrolled int    `db:"year_enrolled" json:"year_enrolled"`
	YearLevel    int    `db:"year_level" json:"year_level"`

	Gender          *string    `db:"gender" json:"gender,omitempty"`
	DateOfBirth     *time.Time `db:"date_of_birth" json:"date_of_birth,omitempty"`
	CivilStatus     *string    `db:"civil_status" json:"civil_status,omitempty"`
	PlaceOfBirth    *string    `db:"place_of_birth" json:"place_of_birth,omitempty"`
	Religion        *string    `db:"religion" json:"religion,omitempty"`
	GuardianName    *string    `db:"guardian_name" json:"guardian_name,omitempty"`
	GuardianRole    *string    `db:"guardian_role" json:"guardian_role,omitempty"`
	ProvinceAddress *string    `db:"province_address" json:"province_address,omitempty"`
	CityAddress     *string    `db:"city_address" json:"city_address,omitempty"`
	EmailAddress    *string    `db:"email_address" json:"email_address,omitempty"`
	MobileNumber    *string    `db:"mobile_number" json:"mobile_number,omitempty"`
	LandlineNumber  *string    `db:"landline_number" json:"landline_number,omitempty"`
	OtherInfo       *string    `db:"other_info" json:"other_info,omitempty"`
}

// TeacherProfile holds the teacher-specific user payload.
type TeacherProfile struct {
	UserID         string `db:"user_id" json:"-"`
	FacultyID      string `db:"faculty_id" json:"faculty_id"`
	DepartmentCode string `db:"department_code" json:"department_code"`
}

// AdminProfile holds the admin-specific user payload.
type AdminProfile struct {
	UserID   string        `db:"user_id" json:"-"`
	AdminID  string        `db:"admin_id" json:"admin_id"`
	Position AdminPosition `db:"position" json:"position"`
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role      *UserRole
	Active    *bool
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
