package dispatcher

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/notify-api/internal/model"
	"github.com/jwalitptl/notify-api/internal/service/eventlog"
	"github.com/jwalitptl/notify-api/pkg/errors"
	"github.com/jwalitptl/notify-api/pkg/logger"
	"github.com/jwalitptl/notify-api/pkg/messaging"
	"github.com/jwalitptl/notify-api/pkg/metrics"
)

// Outcome is the per-transport result classification.
type Outcome string

const (
	OutcomeSent    Outcome = "sent"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
)

// Result is one transport's outcome. Err is always wrapped NonCritical;
// an individual transport failure never aborts the delivery.
type Result struct {
	Transport  model.Transport
	Outcome    Outcome
	ProviderID uuid.UUID
	Err        error
}

// ProviderSelector resolves which stored provider serves a transport.
// The selection policy is injectable so operators can override it.
type ProviderSelector interface {
	EmailProvider(ctx context.Context, orgID uuid.UUID) (*model.Provider, error)
	SMSProvider(ctx context.Context, orgID uuid.UUID) (*model.Provider, error)
}

// EmailSender delivers one finalized email through a provider config.
type EmailSender interface {
	Send(ctx context.Context, cfg *model.EmailProviderConfig, email *Email) error
}

// Email is the outbound shape handed to an EmailSender.
type Email struct {
	To        string
	Subject   string
	PlainText string
	RichText  string
}

// SMSSender delivers one text through an AWS-style provider config.
type SMSSender interface {
	Send(ctx context.Context, cfg *model.SMSProviderConfig, text, phoneNumber string) error
}

// Service attempts each requested transport independently, isolating
// per-transport failure.
type Service struct {
	providers   ProviderSelector
	email       EmailSender
	sms         SMSSender
	broker      messaging.Broker
	events      *eventlog.Logger
	logger      *logger.Logger
	metrics     *metrics.Metrics
	sendTimeout time.Duration
}

func NewService(providers ProviderSelector, email EmailSender, sms SMSSender, broker messaging.Broker, events *eventlog.Logger, log *logger.Logger, m *metrics.Metrics, sendTimeout time.Duration) *Service {
	if sendTimeout <= 0 {
		sendTimeout = 15 * time.Second
	}
	return &Service{
		providers:   providers,
		email:       email,
		sms:         sms,
		broker:      broker,
		events:      events,
		logger:      log,
		metrics:     m,
		sendTimeout: sendTimeout,
	}
}

// Dispatch attempts every requested transport for one message. The
// returned error is critical (provider store unreachable); everything
// per-transport lands in the results with a NonCritical error.
func (s *Service) Dispatch(ctx context.Context, msg *model.Message, recipient *model.Recipient) ([]Result, error) {
	results := make([]Result, 0, len(msg.PreferredTransports))

	for _, transport := range msg.Transports() {
		var result Result
		switch transport {
		case model.TransportEmail:
			r, err := s.dispatchEmail(ctx, msg, recipient)
			if err != nil {
				return results, err
			}
			result = r
		case model.TransportSMS:
			r, err := s.dispatchSMS(ctx, msg, recipient)
			if err != nil {
				return results, err
			}
			result = r
		case model.TransportInApp:
			result = s.dispatchInApp(ctx, msg, recipient)
		default:
			s.logger.Warn("unknown transport requested",
				"transport", string(transport),
				"message_id", msg.ID.String())
			result = Result{Transport: transport, Outcome: OutcomeSkipped}
		}

		results = append(results, result)
		s.record(ctx, msg, recipient, result)
	}

	return results, nil
}

func (s *Service) dispatchEmail(ctx context.Context, msg *model.Message, recipient *model.Recipient) (Result, error) {
	result := Result{Transport: model.TransportEmail}

	// Missing required fields skip the transport, they don't fail it.
	if msg.Subject == "" || recipient.Email == "" {
		result.Outcome = OutcomeSkipped
		return result, nil
	}

	provider, err := s.providers.EmailProvider(ctx, msg.OrganizationID)
	if err != nil {
		if errors.IsKind(err, errors.KindNotFound) {
			result.Outcome = OutcomeFailed
			result.Err = errors.NonCritical(err)
			return result, nil
		}
		return result, fmt.Errorf("failed to resolve email provider: %w", err)
	}
	result.ProviderID = provider.ID

	cfg, err := provider.EmailConfig()
	if err != nil {
		result.Outcome = OutcomeFailed
		result.Err = errors.NonCritical(err)
		return result, nil
	}

	sendCtx, cancel := context.WithTimeout(ctx, s.sendTimeout)
	defer cancel()

	if err := s.email.Send(sendCtx, cfg, &Email{
		To:        recipient.Email,
		Subject:   msg.Subject,
		PlainText: msg.PlainText,
		RichText:  msg.RichText,
	}); err != nil {
		result.Outcome = OutcomeFailed
		result.Err = errors.NonCritical(fmt.Errorf("email send via provider %s to user %s failed: %w", provider.ID, recipient.UserID, err))
		return result, nil
	}

	result.Outcome = OutcomeSent
	return result, nil
}

func (s *Service) dispatchSMS(ctx context.Context, msg *model.Message, recipient *model.Recipient) (Result, error) {
	result := Result{Transport: model.TransportSMS}

	if msg.PlainText == "" || recipient.Phone == "" {
		result.Outcome = OutcomeSkipped
		return result, nil
	}

	provider, err := s.providers.SMSProvider(ctx, msg.OrganizationID)
	if err != nil {
		if errors.IsKind(err, errors.KindNotFound) {
			result.Outcome = OutcomeFailed
			result.Err = errors.NonCritical(err)
			return result, nil
		}
		return result, fmt.Errorf("failed to resolve SMS provider: %w", err)
	}
	result.ProviderID = provider.ID

	cfg, err := provider.SMSConfig()
	if err != nil {
		result.Outcome = OutcomeFailed
		result.Err = errors.NonCritical(err)
		return result, nil
	}

	// Only the AWS shape is supported today; anything else is skipped,
	// not failed.
	if cfg.Type != model.SMSProviderAWS {
		result.Outcome = OutcomeSkipped
		return result, nil
	}

	sendCtx, cancel := context.WithTimeout(ctx, s.sendTimeout)
	defer cancel()

	if err := s.sms.Send(sendCtx, cfg, msg.PlainText, recipient.Phone); err != nil {
		result.Outcome = OutcomeFailed
		result.Err = errors.NonCritical(fmt.Errorf("sms send via provider %s to user %s failed: %w", provider.ID, recipient.UserID, err))
		return result, nil
	}

	result.Outcome = OutcomeSent
	return result, nil
}

func (s *Service) dispatchInApp(ctx context.Context, msg *model.Message, recipient *model.Recipient) Result {
	result := Result{Transport: model.TransportInApp}

	if s.broker == nil {
		result.Outcome = OutcomeSkipped
		return result
	}

	payload := map[string]interface{}{
		"message_id": msg.ID,
		"subject":    msg.Subject,
		"excerpt":    msg.Excerpt,
		"created_at": time.Now(),
	}
	if err := s.broker.Publish(ctx, "inbox:"+recipient.UserID.String(), payload); err != nil {
		result.Outcome = OutcomeFailed
		result.Err = errors.NonCritical(fmt.Errorf("in-app publish to user %s failed: %w", recipient.UserID, err))
		return result
	}

	result.Outcome = OutcomeSent
	return result
}

// record emits one event log entry per attempted transport and bumps
// the send counters. Skips are counted but not logged as attempts.
func (s *Service) record(ctx context.Context, msg *model.Message, recipient *model.Recipient, result Result) {
	if s.metrics != nil {
		s.metrics.TransportSends.WithLabelValues(string(result.Transport), string(result.Outcome)).Inc()
	}
	if result.Outcome == OutcomeSkipped {
		return
	}

	status := model.EventStatusSuccessful
	data := model.EventData{
		RecipientName: recipient.Name,
		Subject:       msg.Subject,
		Transport:     result.Transport,
	}
	if result.ProviderID != uuid.Nil {
		data.ProviderID = result.ProviderID.String()
	}
	if result.Err != nil {
		status = model.EventStatusFailed
		data.Error = result.Err.Error()
		s.logger.Error(result.Err, "transport send failed",
			"transport", string(result.Transport),
			"message_id", msg.ID.String())
	}

	s.events.LogOne(ctx, status, eventKeyFor(result.Transport), msg.ID, data)
}

func eventKeyFor(transport model.Transport) model.EventKey {
	switch transport {
	case model.TransportEmail:
		return model.EventKeyEmailDelivery
	case model.TransportSMS:
		return model.EventKeySMSDelivery
	case model.TransportInApp:
		return model.EventKeyInAppDelivery
	default:
		return model.EventKeyDelivery
	}
}
