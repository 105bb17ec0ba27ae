package models

import "time"

// Student represents a learner registered in the institution. Grade and
// GroupCode form the cohort key used for bulk enrollment, promotion and
// group-level deletion.
type Student struct {
	ID         string    `db:"id" json:"id"`
	Matricula  string    `db:"matricula" json:"matricula"`
	FullName   string    `db:"full_name" json:"full_name"`
	Grade      int       `db:"grade" json:"grade"`
	GroupCode  string    `db:"group_code" json:"group_code"`
	Email      string    `db:"email" json:"email"`
	Phone      string    `db:"phone" json:"phone"`
	NationalID string    `db:"national_id" json:"national_id"`
	BirthDate  time.Time `db:"birth_date" json:"birth_date"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search    string
	Grade     *int
	GroupCode string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// GroupCount is one row of the grade/group distribution, sorted by grade
// ascending then group lexicographic.
type GroupCount struct {
	Grade     int    `db:"grade" json:"grade"`
	GroupCode string `db:"group_code" json:"group_code"`
	Count     int    `db:"count" json:"count"`
}
