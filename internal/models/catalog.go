package models

import (
	"time"

	"github.com/lib/pq"
)

// Department groups academic programs under one organisational unit.
type Department struct {
	ID             string    `db:"id" json:"id"`
	Name           string    `db:"name" json:"name"`
	DepartmentCode string    `db:"department_code" json:"department_code"`
	DepartmentHead string    `db:"department_head" json:"department_head"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`

	Programs []Program `db:"-" json:"programs,omitempty"`
}

// Program is a degree program offered by a department.
type Program struct {
	ID           string `db:"id" json:"id"`
	DepartmentID string `db:"department_id" json:"-"`
	ProgramCode  string `db:"program_code" json:"program_code"`
	ProgramName  string `db:"program_name" json:"program_name"`
}

// Course is a catalog course definition (reference data).
type Course struct {
	ID              string         `db:"id" json:"id"`
	CourseCode      string         `db:"course_code" json:"course_code"`
	Description     string         `db:"description" json:"description"`
	CreditUnits     int            `db:"credit_units" json:"credit_units"`
	Prerequisites   pq.StringArray `db:"prerequisites" json:"prerequisites"`
	DepartmentCode  string         `db:"department_code" json:"department_code"`
	ProgramCode     string         `db:"program_code" json:"program_code"`
	YearOffered     int            `db:"year_offered" json:"year_offered"`
	SemesterOffered int            `db:"semester_offered" json:"semester_offered"`
	CurriculumYear  int            `db:"curriculum_year" json:"curriculum_year"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at" json:"updated_at"`
}

// CourseFilter scopes catalog course queries.
type CourseFilter struct {
	ProgramCode    string
	DepartmentCode string
	CurriculumYear int
	Page           int
	PageSize       int
}
