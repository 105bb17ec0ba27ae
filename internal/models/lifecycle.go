package models

import (
	"encoding/json"
	"time"
)

// LifecycleOperation names the gated bulk operations.
type LifecycleOperation string

const (
	LifecyclePromoteAll           LifecycleOperation = "PROMOTE_ALL"
	LifecycleDemoteAll            LifecycleOperation = "DEMOTE_ALL"
	LifecycleDeleteAllEnrollments LifecycleOperation = "DELETE_ALL_ENROLLMENTS"
	LifecycleDeleteAllAttendance  LifecycleOperation = "DELETE_ALL_ATTENDANCE"
	LifecycleDeleteGroupCascade   LifecycleOperation = "DELETE_GROUP_CASCADE"
)

// LifecycleStatus tracks a gated operation through its state machine.
// Confirmation strictly precedes any store mutation: a run only reaches
// EXECUTING after the re-authentication collaborator accepted.
type LifecycleStatus string

const (
	LifecycleRequested            LifecycleStatus = "REQUESTED"
	LifecycleAwaitingConfirmation LifecycleStatus = "AWAITING_CONFIRMATION"
	LifecycleConfirmed            LifecycleStatus = "CONFIRMED"
	LifecycleExecuting            LifecycleStatus = "EXECUTING"
	LifecycleCompleted            LifecycleStatus = "COMPLETED"
	LifecycleRejected             LifecycleStatus = "REJECTED"
	LifecycleFailed               LifecycleStatus = "FAILED"
)

// LifecycleRun is the persisted audit record of one gated operation.
// Counts holds operation-specific affected-row counts as JSON.
type LifecycleRun struct {
	ID          string             `db:"id" json:"id"`
	Operation   LifecycleOperation `db:"operation" json:"operation"`
	Status      LifecycleStatus    `db:"status" json:"status"`
	Counts      json.RawMessage    `db:"counts" json:"counts,omitempty"`
	Detail      *string            `db:"detail" json:"detail,omitempty"`
	RequestedBy string             `db:"requested_by" json:"requested_by"`
	RequestedAt time.Time          `db:"requested_at" json:"requested_at"`
	FinishedAt  *time.Time         `db:"finished_at" json:"finished_at,omitempty"`
}

// PromotionResult reports a promote/demote sweep.
type PromotionResult struct {
	Moved int `json:"moved"`
	Held  int `json:"held"`
}

// CascadeResult reports the group cascade counts, in deletion order.
type CascadeResult struct {
	Enrollments int `json:"enrollments"`
	Attendance  int `json:"attendance"`
	Students    int `json:"students"`
}
