package models

import (
	"encoding/json"
	"time"
)

// NotificationMode selects how recipients are targeted. Exactly one of the
// five shapes applies; the qualifier columns for the other modes stay null.
type NotificationMode string

const (
	NotificationModeAll        NotificationMode = "ALL"
	NotificationModeGrade      NotificationMode = "BY_GRADE"
	NotificationModeGradeGroup NotificationMode = "BY_GRADE_GROUP"
	NotificationModeClass      NotificationMode = "BY_CLASS"
	NotificationModeExplicit   NotificationMode = "EXPLICIT"
)

// NotificationStatus tracks the review flow before dispatch.
type NotificationStatus string

const (
	NotificationStatusPending  NotificationStatus = "PENDING"
	NotificationStatusApproved NotificationStatus = "APPROVED"
	NotificationStatusRejected NotificationStatus = "REJECTED"
)

// Notification is a persisted announcement awaiting or past dispatch.
// StudentIDs is stored as a JSON array column and only populated in
// EXPLICIT mode.
type Notification struct {
	ID         string             `db:"id" json:"id"`
	Title      string             `db:"title" json:"title"`
	Body       string             `db:"body" json:"body"`
	Mode       NotificationMode   `db:"mode" json:"mode"`
	Grade      *int               `db:"grade" json:"grade,omitempty"`
	GroupCode  *string            `db:"group_code" json:"group_code,omitempty"`
	ClassID    *string            `db:"class_id" json:"class_id,omitempty"`
	StudentIDs json.RawMessage    `db:"student_ids" json:"student_ids,omitempty"`
	Status     NotificationStatus `db:"status" json:"status"`
	ExpiresAt  *time.Time         `db:"expires_at" json:"expires_at,omitempty"`
	CreatedAt  time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time          `db:"updated_at" json:"updated_at"`
}

// RecipientList decodes the EXPLICIT mode student id set.
func (n *Notification) RecipientList() ([]string, error) {
	if len(n.StudentIDs) == 0 {
		return nil, nil
	}
	var ids []string
	if err := json.Unmarshal(n.StudentIDs, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// NotificationFilter narrows notification listings.
type NotificationFilter struct {
	Mode     NotificationMode
	Status   NotificationStatus
	Page     int
	PageSize int
}
