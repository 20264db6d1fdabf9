package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// TemplateMessage is a scheduled, not-yet-materialized template send
// (row in scheduled_message_by_templates). The Job Executor consumes it
// at execution time and turns it into a concrete Message; after
// materialization it is logically spent.
type TemplateMessage struct {
	ID                  uuid.UUID      `db:"id" json:"id"`
	OrganizationID      uuid.UUID      `db:"organization_id" json:"organization_id"`
	TemplateID          uuid.UUID      `db:"template_meta_id" json:"template_id"`
	PreferredTransports pq.StringArray `db:"preferred_transports" json:"preferred_transports"`
	SecurityLevel       string         `db:"message_security" json:"security_level"`
	ScheduledAt         time.Time      `db:"scheduled_at" json:"scheduled_at"`
	CreatedAt           time.Time      `db:"created_at" json:"created_at"`
}

// TemplateInterpolation is one stored {{key}} -> value substitution pair
// attached to a template batch entry.
type TemplateInterpolation struct {
	TemplateMessageID uuid.UUID `db:"message_by_template_id" json:"template_message_id"`
	Key               string    `db:"interpolation_key" json:"key"`
	Value             string    `db:"interpolation_value" json:"value"`
}

// TemplateContent is one language variant of a stored template. Template
// CRUD lives outside this service; only the read side is used here.
// Position preserves insertion order so the first-variant fallback is
// deterministic.
type TemplateContent struct {
	ID         uuid.UUID `db:"id" json:"id"`
	TemplateID uuid.UUID `db:"template_meta_id" json:"template_id"`
	Lang       string    `db:"lang" json:"lang"`
	Subject    string    `db:"subject" json:"subject"`
	Excerpt    string    `db:"excerpt" json:"excerpt"`
	PlainText  string    `db:"plain_text" json:"plain_text"`
	RichText   string    `db:"rich_text" json:"rich_text"`
	Position   int       `db:"position" json:"position"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
