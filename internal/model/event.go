package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventStatus is the outcome recorded by an event log row.
type EventStatus string

const (
	EventStatusSuccessful EventStatus = "successful"
	EventStatusFailed     EventStatus = "failed"
	EventStatusPending    EventStatus = "pending"
	EventStatusDelivered  EventStatus = "delivered"
	EventStatusRetried    EventStatus = "retried"
	EventStatusDeleted    EventStatus = "deleted"
)

// EventKey is the lifecycle event taxonomy.
type EventKey string

const (
	EventKeyCreate         EventKey = "create"
	EventKeySchedule       EventKey = "schedule"
	EventKeyTemplateCreate EventKey = "template_create"
	EventKeyDelivery       EventKey = "delivery"
	EventKeyEmailDelivery  EventKey = "email_delivery"
	EventKeySMSDelivery    EventKey = "sms_delivery"
	EventKeyInAppDelivery  EventKey = "in_app_delivery"
)

// EventLog is one append-only audit row. Rows are never updated or
// deleted by the delivery pipeline; one message accumulates many rows
// forming its timeline.
type EventLog struct {
	ID          uuid.UUID       `db:"id" json:"id"`
	EventStatus EventStatus     `db:"event_status" json:"event_status"`
	EventType   EventKey        `db:"event_type" json:"event_type"`
	Data        json.RawMessage `db:"data" json:"data"`
	MessageID   uuid.UUID       `db:"message_id" json:"message_id"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
}

// EventData is the point-in-time context captured in the JSON payload.
type EventData struct {
	RecipientName string    `json:"recipient_name,omitempty"`
	Subject       string    `json:"subject,omitempty"`
	Transport     Transport `json:"transport,omitempty"`
	ProviderID    string    `json:"provider_id,omitempty"`
	Error         string    `json:"error,omitempty"`
	JobID         string    `json:"job_id,omitempty"`
}

// MessageEventSummary is the read-model projection: the latest event
// status/type observed for one message, ordered by scheduled time.
type MessageEventSummary struct {
	MessageID   uuid.UUID   `json:"message_id"`
	Subject     string      `json:"subject"`
	EventStatus EventStatus `json:"event_status"`
	EventType   EventKey    `json:"event_type"`
	ScheduledAt time.Time   `json:"scheduled_at"`
}

// EventWithMessage is the raw join row the read-model folds: an event
// log entry plus the owning message's sort keys.
type EventWithMessage struct {
	EventLog
	Subject     string    `db:"subject" json:"subject"`
	ScheduledAt time.Time `db:"scheduled_at" json:"scheduled_at"`
}
