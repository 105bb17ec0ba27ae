package models

import "time"

// Class represents an academic class or section. TeacherID is optional; a
// class may run unassigned. Capacity is advisory only and never enforced as
// a hard cap on enrollment.
type Class struct {
	ID        string    `db:"id" json:"id"`
	Code      string    `db:"code" json:"code"`
	Name      string    `db:"name" json:"name"`
	TeacherID *string   `db:"teacher_id" json:"teacher_id,omitempty"`
	Grade     int       `db:"grade" json:"grade"`
	GroupCode string    `db:"group_code" json:"group_code"`
	Capacity  int       `db:"capacity" json:"capacity"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ClassDetail extends Class with the resolved teacher and the current
// enrollment count used by the capacity progress bar.
type ClassDetail struct {
	Class
	TeacherName   *string `db:"teacher_name" json:"teacher_name,omitempty"`
	EnrolledCount int     `db:"enrolled_count" json:"enrolled_count"`
}

// ClassFilter defines filter criteria for listing classes.
type ClassFilter struct {
	Grade     *int
	GroupCode string
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
