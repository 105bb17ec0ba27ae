package models

import "time"

// Enrollment links one student to one class. The (StudentID, ClassID) pair
// is unique across the table.
type Enrollment struct {
	ID         string    `db:"id" json:"id"`
	StudentID  string    `db:"student_id" json:"student_id"`
	ClassID    string    `db:"class_id" json:"class_id"`
	EnrolledAt time.Time `db:"enrolled_at" json:"enrolled_at"`
}

// EnrollmentDetail enriches Enrollment with student and class info.
type EnrollmentDetail struct {
	Enrollment
	StudentName      string `db:"student_name" json:"student_name"`
	StudentMatricula string `db:"student_matricula" json:"student_matricula"`
	ClassCode        string `db:"class_code" json:"class_code"`
	ClassName        string `db:"class_name" json:"class_name"`
}

// EnrollmentFilter provides filters for listing enrollments.
type EnrollmentFilter struct {
	StudentID string
	ClassID   string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// GroupEnrollmentResult summarises a bulk enroll-by-group run.
type GroupEnrollmentResult struct {
	ClassID   string `json:"class_id"`
	Grade     int    `json:"grade"`
	GroupCode string `json:"group_code"`
	Enrolled  int    `json:"enrolled"`
	Skipped   int    `json:"skipped"`
}
