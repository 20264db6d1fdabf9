package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Transport is a delivery channel attempted independently per message.
type Transport string

const (
	TransportEmail Transport = "email"
	TransportSMS   Transport = "sms"
	TransportInApp Transport = "in_app"
)

// Message is one (content, recipient) pair. Immutable once delivered
// except for the is_delivered flag and updated_at.
type Message struct {
	ID                  uuid.UUID      `db:"id" json:"id"`
	OrganizationID      uuid.UUID      `db:"organization_id" json:"organization_id"`
	UserID              uuid.UUID      `db:"user_id" json:"user_id"`
	Subject             string         `db:"subject" json:"subject"`
	Excerpt             string         `db:"excerpt" json:"excerpt"`
	PlainText           string         `db:"plain_text" json:"plain_text"`
	RichText            string         `db:"rich_text" json:"rich_text"`
	Lang                string         `db:"lang" json:"lang"`
	SecurityLevel       string         `db:"security_level" json:"security_level"`
	PreferredTransports pq.StringArray `db:"preferred_transports" json:"preferred_transports"`
	IsDelivered         bool           `db:"is_delivered" json:"is_delivered"`
	Thread              string         `db:"thread" json:"thread"`
	Name                string         `db:"name" json:"name"`
	ScheduledAt         time.Time      `db:"scheduled_at" json:"scheduled_at"`
	CreatedAt           time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time      `db:"updated_at" json:"updated_at"`
}

// Content holds the finalized field values for one recipient, after
// template selection and interpolation.
type Content struct {
	Subject   string `json:"subject"`
	Excerpt   string `json:"excerpt"`
	PlainText string `json:"plain_text"`
	RichText  string `json:"rich_text"`
	Lang      string `json:"lang"`
}

// Transports converts the stored text[] column into typed transports.
func (m *Message) Transports() []Transport {
	out := make([]Transport, 0, len(m.PreferredTransports))
	for _, t := range m.PreferredTransports {
		out = append(out, Transport(t))
	}
	return out
}

// Content extracts the finalized content of a persisted message.
func (m *Message) Content() *Content {
	return &Content{
		Subject:   m.Subject,
		Excerpt:   m.Excerpt,
		PlainText: m.PlainText,
		RichText:  m.RichText,
		Lang:      m.Lang,
	}
}

// Recipient is the resolved profile of a message addressee. Attributes
// feed template interpolation; Email/Phone feed the transports.
type Recipient struct {
	UserID     uuid.UUID         `json:"user_id"`
	Name       string            `json:"name"`
	Email      string            `json:"email"`
	Phone      string            `json:"phone"`
	Lang       string            `json:"lang"`
	Attributes map[string]string `json:"attributes,omitempty"`
}
