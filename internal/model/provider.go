package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ProviderKind discriminates the provider config union.
type ProviderKind string

const (
	ProviderKindEmail ProviderKind = "email"
	ProviderKindSMS   ProviderKind = "sms"
)

// SMSProviderAWS is the only SMS config shape supported today.
const SMSProviderAWS = "aws"

// Provider is a stored transport provider owned by an organization.
// Provider CRUD lives outside this service; the dispatcher only reads.
type Provider struct {
	ID             uuid.UUID       `db:"id" json:"id"`
	OrganizationID uuid.UUID       `db:"organization_id" json:"organization_id"`
	Kind           ProviderKind    `db:"kind" json:"kind"`
	IsPrimary      bool            `db:"is_primary" json:"is_primary"`
	Config         json.RawMessage `db:"config" json:"config"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
}

// EmailProviderConfig is the SMTP shape of the provider config union.
type EmailProviderConfig struct {
	Host              string `json:"host"`
	Port              int    `json:"port"`
	Username          string `json:"username"`
	Password          string `json:"password"`
	From              string `json:"from"`
	ThrottlePerMinute int    `json:"throttle_per_minute,omitempty"`
}

// SMSProviderConfig is the AWS-style shape of the provider config union.
type SMSProviderConfig struct {
	Type            string `json:"type"`
	AccessKey       string `json:"accessKey"`
	SecretAccessKey string `json:"secretAccessKey"`
	Region          string `json:"region"`
}

// EmailConfig decodes the config union for an email provider.
func (p *Provider) EmailConfig() (*EmailProviderConfig, error) {
	if p.Kind != ProviderKindEmail {
		return nil, fmt.Errorf("provider %s is not an email provider", p.ID)
	}
	var cfg EmailProviderConfig
	if err := json.Unmarshal(p.Config, &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode email provider config: %w", err)
	}
	return &cfg, nil
}

// SMSConfig decodes the config union for an SMS provider.
func (p *Provider) SMSConfig() (*SMSProviderConfig, error) {
	if p.Kind != ProviderKindSMS {
		return nil, fmt.Errorf("provider %s is not an SMS provider", p.ID)
	}
	var cfg SMSProviderConfig
	if err := json.Unmarshal(p.Config, &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode SMS provider config: %w", err)
	}
	return &cfg, nil
}
