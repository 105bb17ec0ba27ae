package dto

// NotificationTarget is the payload handed to the delivery collaborator.
// Exactly one shape is populated according to Mode; the dispatcher resolves
// it into a concrete recipient list server-side.
type NotificationTarget struct {
	NotificationID string   `json:"notification_id"`
	Mode           string   `json:"mode"`
	Grade          *int     `json:"grade,omitempty"`
	GroupCode      *string  `json:"group_code,omitempty"`
	ClassID        *string  `json:"class_id,omitempty"`
	StudentIDs     []string `json:"student_ids,omitempty"`
	Title          string   `json:"title"`
	Body           string   `json:"body"`
}

// CreateNotificationRequest is the notification creation payload.
type CreateNotificationRequest struct {
	Title      string   `json:"title" validate:"required"`
	Body       string   `json:"body" validate:"required"`
	Mode       string   `json:"mode" validate:"required,oneof=ALL BY_GRADE BY_GRADE_GROUP BY_CLASS EXPLICIT"`
	Grade      *int     `json:"grade,omitempty"`
	GroupCode  *string  `json:"group_code,omitempty"`
	ClassID    *string  `json:"class_id,omitempty"`
	StudentIDs []string `json:"student_ids,omitempty"`
	ExpiresAt  *string  `json:"expires_at,omitempty"`
}
