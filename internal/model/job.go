package model

import (
	"time"

	"github.com/google/uuid"
)

// JobType discriminates what a job delivers: a concrete message or a
// not-yet-materialized template batch entry.
type JobType string

const (
	JobTypeMessage  JobType = "message"
	JobTypeTemplate JobType = "template"
)

// DeliveryStatus is the job state machine. A NULL column means pending;
// the status only ever advances pending -> working -> delivered|failed.
// Failed jobs may be re-claimed by a scheduler retry, delivered jobs never.
type DeliveryStatus string

const (
	DeliveryStatusWorking   DeliveryStatus = "working"
	DeliveryStatusDelivered DeliveryStatus = "delivered"
	DeliveryStatusFailed    DeliveryStatus = "failed"
)

// Job is a persisted, at-most-once unit of scheduled delivery work.
// EntityID points at the message (or template batch entry) it wraps.
// TokenHash is the bcrypt hash of the webhook bearer token; the plaintext
// is held only by the external scheduler. ClaimedAt is stamped by the
// claiming update; rows are created at scheduling time, long before
// execution, so staleness is measured from the claim, never creation.
type Job struct {
	ID             uuid.UUID       `db:"id" json:"id"`
	JobType        JobType         `db:"job_type" json:"job_type"`
	OrganizationID uuid.UUID       `db:"organization_id" json:"organization_id"`
	EntityID       uuid.UUID       `db:"job_id" json:"entity_id"`
	UserID         uuid.UUID       `db:"user_id" json:"user_id"`
	TokenHash      string          `db:"job_token" json:"-"`
	DeliveryStatus *DeliveryStatus `db:"delivery_status" json:"delivery_status,omitempty"`
	ClaimedAt      *time.Time      `db:"claimed_at" json:"claimed_at,omitempty"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
}

// Status returns the effective state, mapping the NULL column to pending.
func (j *Job) Status() string {
	if j.DeliveryStatus == nil {
		return "pending"
	}
	return string(*j.DeliveryStatus)
}
