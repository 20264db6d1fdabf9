package composer

import (
	"context"
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

type messageRepoStub struct {
	created   []*model.Message
	createErr error
	messages  map[uuid.UUID]*model.Message
}

func (s *messageRepoStub) Create(ctx context.Context, m *model.Message) error {
	return s.CreateBatch(ctx, []*model.Message{m})
}

func (s *messageRepoStub) CreateBatch(ctx context.Context, msgs []*model.Message) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.created = append(s.created, msgs...)
	return nil
}

func (s *messageRepoStub) Get(ctx context.Context, id uuid.UUID) (*model.Message, error) {
	if m, ok := s.messages[id]; ok {
		return m, nil
	}
	return nil, errors.NotFound("message", nil)
}

func (s *messageRepoStub) MarkDelivered(ctx context.Context, id uuid.UUID) error {
	return nil
}

type templateRepoStub struct {
	contents       []*model.TemplateContent
	contentsErr    error
	stored         *model.TemplateMessage
	interpolations []model.TemplateInterpolation
}

func (s *templateRepoStub) CreateWithInterpolations(ctx context.Context, tm *model.TemplateMessage, ins []model.TemplateInterpolation) error {
	if tm.ID == uuid.Nil {
		tm.ID = uuid.New()
	}
	s.stored = tm
	s.interpolations = ins
	return nil
}

func (s *templateRepoStub) Get(ctx context.Context, id uuid.UUID) (*model.TemplateMessage, error) {
	if s.stored != nil && s.stored.ID == id {
		return s.stored, nil
	}
	return nil, errors.NotFound("scheduled template", nil)
}

func (s *templateRepoStub) GetInterpolations(ctx context.Context, id uuid.UUID) ([]model.TemplateInterpolation, error) {
	return s.interpolations, nil
}

func (s *templateRepoStub) ListContents(ctx context.Context, templateID uuid.UUID) ([]*model.TemplateContent, error) {
	return s.contents, s.contentsErr
}

type eventRepoStub struct {
	rows []*model.EventLog
}

func (s *eventRepoStub) CreateBatch(ctx context.Context, entries []*model.EventLog) error {
	s.rows = append(s.rows, entries...)
	return nil
}

func (s *eventRepoStub) ListByOrganization(ctx context.Context, orgID uuid.UUID, search string, limit, offset int) ([]*model.EventWithMessage, int64, error) {
	return nil, 0, nil
}

func (s *eventRepoStub) ListByMessage(ctx context.Context, messageID uuid.UUID) ([]*model.EventLog, error) {
	return nil, nil
}

func (s *eventRepoStub) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

func newTestService(messages *messageRepoStub, templates *templateRepoStub, events *eventRepoStub) *Service {
	log := logger.NewLogger(nil)
	return NewService(messages, templates, eventlog.NewLogger(events, log, nil), nil)
}

func TestCreateMessages(t *testing.T) {
	messages := &messageRepoStub{}
	events := &eventRepoStub{}
	svc := newTestService(messages, &templateRepoStub{}, events)

	orgID := uuid.New()
	scheduledAt := time.Now().Add(time.Hour)
	recipients := []model.Recipient{
		{UserID: uuid.New(), Name: "Ana"},
		{UserID: uuid.New(), Name: "Bruno"},
	}

	msgs, err := svc.CreateMessages(context.Background(), &CreateMessagesRequest{
		OrganizationID:      orgID,
		Recipients:          recipients,
		Content:             model.Content{Subject: "Reminder", PlainText: "See you soon"},
		PreferredTransports: []string{"email", "in_app"},
		ScheduledAt:         scheduledAt,
	})

	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Len(t, messages.created, 2)

	for i, msg := range msgs {
		assert.NotEqual(t, uuid.Nil, msg.ID)
		assert.Equal(t, orgID, msg.OrganizationID)
		assert.Equal(t, recipients[i].UserID, msg.UserID)
		assert.Equal(t, "Reminder", msg.Subject)
		assert.False(t, msg.IsDelivered)
	}

	// One creation event per recipient.
	require.Len(t, events.rows, 2)
	assert.Equal(t, model.EventKeyCreate, events.rows[0].EventType)
	assert.Equal(t, model.EventStatusSuccessful, events.rows[0].EventStatus)
}

func TestCreateMessagesRequiresRecipients(t *testing.T) {
	svc := newTestService(&messageRepoStub{}, &templateRepoStub{}, &eventRepoStub{})

	_, err := svc.CreateMessages(context.Background(), &CreateMessagesRequest{
		OrganizationID: uuid.New(),
	})

	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindBadRequest))
}

func TestCreateTemplateMessagesSelectsLanguageVariant(t *testing.T) {
	messages := &messageRepoStub{}
	templates := &templateRepoStub{
		contents: []*model.TemplateContent{
			{Lang: "en", Subject: "Hello {{firstName}}", PlainText: "Hi {{firstName}}"},
			{Lang: "pt", Subject: "Olá {{firstName}}", PlainText: "Oi {{firstName}}"},
		},
	}
	svc := newTestService(messages, templates, &eventRepoStub{})

	msgs, err := svc.CreateTemplateMessages(context.Background(), &CreateTemplateMessagesRequest{
		OrganizationID: uuid.New(),
		TemplateID:     uuid.New(),
		Interpolations: map[string]string{"firstName": "fallback"},
		Recipients: []model.Recipient{
			{UserID: uuid.New(), Lang: "pt", Attributes: map[string]string{"firstName": "Ana"}},
			{UserID: uuid.New(), Lang: "de", Attributes: map[string]string{"firstName": "Klaus"}},
		},
		PreferredTransports: []string{"email"},
		ScheduledAt:         time.Now().Add(time.Hour),
	})

	require.NoError(t, err)
	require.Len(t, msgs, 2)

	// Exact language match wins; profile attributes override batch values.
	assert.Equal(t, "Olá Ana", msgs[0].Subject)
	assert.Equal(t, "Oi Ana", msgs[0].PlainText)

	// Unknown language falls back to the first variant.
	assert.Equal(t, "Hello Klaus", msgs[1].Subject)
}

func TestCreateTemplateMessagesRejectsEmptyTemplate(t *testing.T) {
	messages := &messageRepoStub{}
	svc := newTestService(messages, &templateRepoStub{}, &eventRepoStub{})

	_, err := svc.CreateTemplateMessages(context.Background(), &CreateTemplateMessagesRequest{
		OrganizationID: uuid.New(),
		TemplateID:     uuid.New(),
		Recipients:     []model.Recipient{{UserID: uuid.New()}},
		ScheduledAt:    time.Now(),
	})

	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindBadRequest))
	// Nothing was written for the batch.
	assert.Empty(t, messages.created)
}

func TestScheduleTemplateStoresInterpolations(t *testing.T) {
	templates := &templateRepoStub{}
	svc := newTestService(&messageRepoStub{}, templates, &eventRepoStub{})

	tm, err := svc.ScheduleTemplate(context.Background(), &ScheduleTemplateRequest{
		OrganizationID:      uuid.New(),
		TemplateID:          uuid.New(),
		Interpolations:      map[string]string{"clinic": "Northside"},
		PreferredTransports: []string{"email"},
		ScheduledAt:         time.Now().Add(time.Hour),
	})

	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, tm.ID)
	require.Len(t, templates.interpolations, 1)
	assert.Equal(t, "clinic", templates.interpolations[0].Key)
	assert.Equal(t, "Northside", templates.interpolations[0].Value)
}

func TestMaterializeTemplate(t *testing.T) {
	messages := &messageRepoStub{}
	templates := &templateRepoStub{
		contents: []*model.TemplateContent{
			{Lang: "en", Subject: "Visit at {{clinic}}", PlainText: "Dear {{firstName}}"},
		},
	}
	svc := newTestService(messages, templates, &eventRepoStub{})

	tm, err := svc.ScheduleTemplate(context.Background(), &ScheduleTemplateRequest{
		OrganizationID:      uuid.New(),
		TemplateID:          uuid.New(),
		Interpolations:      map[string]string{"clinic": "Northside"},
		PreferredTransports: []string{"email"},
		ScheduledAt:         time.Now().Add(time.Hour),
	})
	require.NoError(t, err)

	msg, err := svc.MaterializeTemplate(context.Background(), tm, &model.Recipient{
		UserID:     uuid.New(),
		Lang:       "en",
		Attributes: map[string]string{"firstName": "Ana"},
	})

	require.NoError(t, err)
	assert.Equal(t, "Visit at Northside", msg.Subject)
	assert.Equal(t, "Dear Ana", msg.PlainText)
	assert.Len(t, messages.created, 1)
}
