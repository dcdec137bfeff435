package models

import "time"

// NotificationKind enumerates outbound notification categories.
type NotificationKind string

const (
	NotificationProjectApproved   NotificationKind = "PROJECT_APPROVED"
	NotificationProjectRejected   NotificationKind = "PROJECT_REJECTED"
	NotificationSelectionResult   NotificationKind = "SELECTION_RESULT"
	NotificationSignatureRequired NotificationKind = "SIGNATURE_REQUIRED"
)

// NotificationStatus captures the delivery outcome of one notification.
type NotificationStatus string

const (
	NotificationStatusSent   NotificationStatus = "SENT"
	NotificationStatusFailed NotificationStatus = "FAILED"
)

// Notification is a message handed to the dispatcher.
type Notification struct {
	Kind      NotificationKind `json:"kind"`
	Recipient string           `json:"recipient"`
	Subject   string           `json:"subject"`
	Body      string           `json:"body"`
	UserID    *string          `json:"user_id,omitempty"`
	EntityID  *string          `json:"entity_id,omitempty"`
}

// NotificationLog is the persisted delivery record.
type NotificationLog struct {
	ID        string             `db:"id" json:"id"`
	Kind      NotificationKind   `db:"kind" json:"kind"`
	Recipient string             `db:"recipient" json:"recipient"`
	Subject   string             `db:"subject" json:"subject"`
	Status    NotificationStatus `db:"status" json:"status"`
	Error     *string            `db:"error" json:"error,omitempty"`
	UserID    *string            `db:"user_id" json:"user_id,omitempty"`
	EntityID  *string            `db:"entity_id" json:"entity_id,omitempty"`
	CreatedAt time.Time          `db:"created_at" json:"created_at"`
}
