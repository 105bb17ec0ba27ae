package models

import "time"

// AttendanceStatus enumerates the possible states for one attendance row.
type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "PRESENT"
	AttendanceAbsent  AttendanceStatus = "ABSENT"
	AttendanceLate    AttendanceStatus = "LATE"
)

// Attendance records one student's presence in one class on one date.
type Attendance struct {
	ID        string           `db:"id" json:"id"`
	ClassID   string           `db:"class_id" json:"class_id"`
	StudentID string           `db:"student_id" json:"student_id"`
	Date      time.Time        `db:"date" json:"date"`
	Status    AttendanceStatus `db:"status" json:"status"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
}

// AttendanceFilter narrows attendance listings.
type AttendanceFilter struct {
	ClassID   string
	StudentID string
	Date      *time.Time
	Page      int
	PageSize  int
}
