package dispatcher

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/notify-api/internal/model"
	"github.com/jwalitptl/notify-api/internal/service/eventlog"
	"github.com/jwalitptl/notify-api/pkg/errors"
	"github.com/jwalitptl/notify-api/pkg/logger"
)

type selectorStub struct {
	email    *model.Provider
	emailErr error
	sms      *model.Provider
	smsErr   error
}

func (s *selectorStub) EmailProvider(ctx context.Context, orgID uuid.UUID) (*model.Provider, error) {
	return s.email, s.emailErr
}

func (s *selectorStub) SMSProvider(ctx context.Context, orgID uuid.UUID) (*model.Provider, error) {
	return s.sms, s.smsErr
}

type emailSenderStub struct {
	sent []*Email
	err  error
}

func (s *emailSenderStub) Send(ctx context.Context, cfg *model.EmailProviderConfig, email *Email) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, email)
	return nil
}

type smsSenderStub struct {
	sent []string
	err  error
}

func (s *smsSenderStub) Send(ctx context.Context, cfg *model.SMSProviderConfig, text, phoneNumber string) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, phoneNumber)
	return nil
}

type brokerStub struct {
	channels []string
	err      error
}

func (s *brokerStub) Publish(ctx context.Context, channel string, message interface{}) error {
	if s.err != nil {
		return s.err
	}
	s.channels = append(s.channels, channel)
	return nil
}

func (s *brokerStub) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	return nil, nil
}

func (s *brokerStub) Close() error { return nil }

type dispatchEventRepoStub struct {
	rows []*model.EventLog
}

func (s *dispatchEventRepoStub) CreateBatch(ctx context.Context, entries []*model.EventLog) error {
	s.rows = append(s.rows, entries...)
	return nil
}

func (s *dispatchEventRepoStub) ListByOrganization(ctx context.Context, orgID uuid.UUID, search string, limit, offset int) ([]*model.EventWithMessage, int64, error) {
	return nil, 0, nil
}

func (s *dispatchEventRepoStub) ListByMessage(ctx context.Context, messageID uuid.UUID) ([]*model.EventLog, error) {
	return nil, nil
}

func (s *dispatchEventRepoStub) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

func emailProvider(t *testing.T) *model.Provider {
	t.Helper()
	cfg, err := json.Marshal(model.EmailProviderConfig{Host: "smtp.example.com", Port: 587, From: "noreply@example.com"})
	require.NoError(t, err)
	return &model.Provider{ID: uuid.New(), Kind: model.ProviderKindEmail, Config: cfg}
}

func smsProvider(t *testing.T, providerType string) *model.Provider {
	t.Helper()
	cfg, err := json.Marshal(model.SMSProviderConfig{Type: providerType, Region: "us-east-1"})
	require.NoError(t, err)
	return &model.Provider{ID: uuid.New(), Kind: model.ProviderKindSMS, Config: cfg}
}

func newDispatchService(selector ProviderSelector, email EmailSender, sms SMSSender, broker *brokerStub, events *dispatchEventRepoStub) *Service {
	log := logger.NewLogger(nil)
	return NewService(selector, email, sms, broker, eventlog.NewLogger(events, log, nil), log, nil, time.Second)
}

func testMessage(transports ...string) *model.Message {
	return &model.Message{
		ID:                  uuid.New(),
		OrganizationID:      uuid.New(),
		Subject:             "Reminder",
		PlainText:           "See you soon",
		PreferredTransports: transports,
	}
}

func TestDispatchEmail(t *testing.T) {
	sender := &emailSenderStub{}
	events := &dispatchEventRepoStub{}
	svc := newDispatchService(&selectorStub{email: emailProvider(t)}, sender, &smsSenderStub{}, nil, events)

	results, err := svc.Dispatch(context.Background(), testMessage("email"), &model.Recipient{
		UserID: uuid.New(), Email: "ana@example.com",
	})

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, OutcomeSent, results[0].Outcome)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "ana@example.com", sender.sent[0].To)

	require.Len(t, events.rows, 1)
	assert.Equal(t, model.EventKeyEmailDelivery, events.rows[0].EventType)
	assert.Equal(t, model.EventStatusSuccessful, events.rows[0].EventStatus)
}

func TestDispatchSkipsWhenFieldsMissing(t *testing.T) {
	events := &dispatchEventRepoStub{}
	svc := newDispatchService(&selectorStub{email: emailProvider(t), sms: smsProvider(t, model.SMSProviderAWS)}, &emailSenderStub{}, &smsSenderStub{}, nil, events)

	// No email address and no phone number: both transports skip.
	results, err := svc.Dispatch(context.Background(), testMessage("email", "sms"), &model.Recipient{UserID: uuid.New()})

	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, OutcomeSkipped, results[0].Outcome)
	assert.Equal(t, OutcomeSkipped, results[1].Outcome)

	// Skips are not delivery attempts, so nothing is logged.
	assert.Empty(t, events.rows)
}

func TestDispatchSMSUnknownProviderTypeSkipped(t *testing.T) {
	sender := &smsSenderStub{}
	svc := newDispatchService(&selectorStub{sms: smsProvider(t, "twilio")}, &emailSenderStub{}, sender, nil, &dispatchEventRepoStub{})

	results, err := svc.Dispatch(context.Background(), testMessage("sms"), &model.Recipient{
		UserID: uuid.New(), Phone: "+15550100",
	})

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, OutcomeSkipped, results[0].Outcome)
	assert.Empty(t, sender.sent)
}

func TestDispatchIsolatesTransportFailures(t *testing.T) {
	emailSender := &emailSenderStub{err: fmt.Errorf("smtp connect refused")}
	smsSender := &smsSenderStub{}
	events := &dispatchEventRepoStub{}
	svc := newDispatchService(
		&selectorStub{email: emailProvider(t), sms: smsProvider(t, model.SMSProviderAWS)},
		emailSender, smsSender, nil, events,
	)

	results, err := svc.Dispatch(context.Background(), testMessage("email", "sms"), &model.Recipient{
		UserID: uuid.New(), Email: "ana@example.com", Phone: "+15550100",
	})

	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, OutcomeFailed, results[0].Outcome)
	require.Error(t, results[0].Err)
	assert.False(t, errors.Critical(results[0].Err))

	// The email failure did not stop the SMS attempt.
	assert.Equal(t, OutcomeSent, results[1].Outcome)
	require.Len(t, smsSender.sent, 1)
}

func TestDispatchMissingProviderFailsTransport(t *testing.T) {
	svc := newDispatchService(&selectorStub{emailErr: errors.NotFound("email provider", nil)}, &emailSenderStub{}, &smsSenderStub{}, nil, &dispatchEventRepoStub{})

	results, err := svc.Dispatch(context.Background(), testMessage("email"), &model.Recipient{
		UserID: uuid.New(), Email: "ana@example.com",
	})

	// A missing provider configuration is a per-transport failure.
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, OutcomeFailed, results[0].Outcome)
	assert.False(t, errors.Critical(results[0].Err))
}

func TestDispatchProviderStoreErrorIsCritical(t *testing.T) {
	svc := newDispatchService(&selectorStub{emailErr: fmt.Errorf("connection refused")}, &emailSenderStub{}, &smsSenderStub{}, nil, &dispatchEventRepoStub{})

	_, err := svc.Dispatch(context.Background(), testMessage("email"), &model.Recipient{
		UserID: uuid.New(), Email: "ana@example.com",
	})

	require.Error(t, err)
	assert.True(t, errors.Critical(err))
}

func TestDispatchInApp(t *testing.T) {
	broker := &brokerStub{}
	userID := uuid.New()
	svc := newDispatchService(&selectorStub{}, &emailSenderStub{}, &smsSenderStub{}, broker, &dispatchEventRepoStub{})

	results, err := svc.Dispatch(context.Background(), testMessage("in_app"), &model.Recipient{UserID: userID})

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, OutcomeSent, results[0].Outcome)
	require.Len(t, broker.channels, 1)
	assert.Equal(t, "inbox:"+userID.String(), broker.channels[0])
}
