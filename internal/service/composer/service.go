package composer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/notify-api/internal/model"
	"github.com/jwalitptl/notify-api/internal/repository"
	"github.com/jwalitptl/notify-api/internal/service/eventlog"
	"github.com/jwalitptl/notify-api/pkg/errors"
	"github.com/jwalitptl/notify-api/pkg/metrics"
)

// Service builds finalized message rows per recipient, either from
// direct content or from a stored template plus interpolations.
type Service struct {
	messages  repository.MessageRepository
	templates repository.TemplateRepository
	events    *eventlog.Logger
	metrics   *metrics.Metrics
}

func NewService(messages repository.MessageRepository, templates repository.TemplateRepository, events *eventlog.Logger, m *metrics.Metrics) *Service {
	return &Service{
		messages:  messages,
		templates: templates,
		events:    events,
		metrics:   m,
	}
}

// CreateMessagesRequest is the direct-content mode: the caller supplies
// final field values and the recipient list.
type CreateMessagesRequest struct {
	OrganizationID      uuid.UUID
	Recipients          []model.Recipient
	Content             model.Content
	PreferredTransports []string
	SecurityLevel       string
	Thread              string
	Name                string
	ScheduledAt         time.Time
}

// CreateTemplateMessagesRequest is the template mode: content comes from
// the template's language variants, interpolated per recipient.
type CreateTemplateMessagesRequest struct {
	OrganizationID      uuid.UUID
	TemplateID          uuid.UUID
	Interpolations      map[string]string
	Recipients          []model.Recipient
	PreferredTransports []string
	SecurityLevel       string
	Thread              string
	Name                string
	ScheduledAt         time.Time
}

// ScheduleTemplateRequest defers materialization: it records the batch
// entry and its interpolations for the Job Executor to consume later.
type ScheduleTemplateRequest struct {
	OrganizationID      uuid.UUID
	TemplateID          uuid.UUID
	Interpolations      map[string]string
	PreferredTransports []string
	SecurityLevel       string
	ScheduledAt         time.Time
}

// CreateMessages persists one message per recipient in a single
// multi-row insert.
func (s *Service) CreateMessages(ctx context.Context, req *CreateMessagesRequest) ([]*model.Message, error) {
	if len(req.Recipients) == 0 {
		return nil, errors.BadRequest("at least one recipient is required", nil)
	}

	msgs := make([]*model.Message, 0, len(req.Recipients))
	for _, recipient := range req.Recipients {
		msgs = append(msgs, s.buildMessage(req.OrganizationID, recipient.UserID, &req.Content, req.PreferredTransports, req.SecurityLevel, req.Thread, req.Name, req.ScheduledAt))
	}

	if err := s.messages.CreateBatch(ctx, msgs); err != nil {
		return nil, errors.Internal(fmt.Errorf("failed to persist messages: %w", err))
	}
	s.countCreated("direct", len(msgs))

	s.logCreation(ctx, model.EventKeyCreate, msgs, req.Recipients)
	return msgs, nil
}

// CreateTemplateMessages materializes one message per recipient from the
// template's language variants. A template with no content variants at
// all rejects the whole batch before anything is written.
func (s *Service) CreateTemplateMessages(ctx context.Context, req *CreateTemplateMessagesRequest) ([]*model.Message, error) {
	if len(req.Recipients) == 0 {
		return nil, errors.BadRequest("at least one recipient is required", nil)
	}

	contents, err := s.templates.ListContents(ctx, req.TemplateID)
	if err != nil {
		return nil, errors.Internal(fmt.Errorf("failed to load template contents: %w", err))
	}
	if len(contents) == 0 {
		return nil, errors.BadRequest("template has no contents", nil)
	}

	msgs := make([]*model.Message, 0, len(req.Recipients))
	for _, recipient := range req.Recipients {
		variant := SelectContent(contents, recipient.Lang)
		content := ComposeContent(variant, mergeAttributes(req.Interpolations, &recipient))
		msgs = append(msgs, s.buildMessage(req.OrganizationID, recipient.UserID, content, req.PreferredTransports, req.SecurityLevel, req.Thread, req.Name, req.ScheduledAt))
	}

	if err := s.messages.CreateBatch(ctx, msgs); err != nil {
		return nil, errors.Internal(fmt.Errorf("failed to persist template messages: %w", err))
	}
	s.countCreated("template", len(msgs))

	s.logCreation(ctx, model.EventKeyTemplateCreate, msgs, req.Recipients)
	return msgs, nil
}

// ScheduleTemplate records a not-yet-materialized template send; the
// executor turns it into a concrete message at execution time.
func (s *Service) ScheduleTemplate(ctx context.Context, req *ScheduleTemplateRequest) (*model.TemplateMessage, error) {
	tm := &model.TemplateMessage{
		OrganizationID:      req.OrganizationID,
		TemplateID:          req.TemplateID,
		PreferredTransports: req.PreferredTransports,
		SecurityLevel:       req.SecurityLevel,
		ScheduledAt:         req.ScheduledAt,
	}

	interpolations := make([]model.TemplateInterpolation, 0, len(req.Interpolations))
	for k, v := range req.Interpolations {
		interpolations = append(interpolations, model.TemplateInterpolation{Key: k, Value: v})
	}

	if err := s.templates.CreateWithInterpolations(ctx, tm, interpolations); err != nil {
		return nil, errors.Internal(fmt.Errorf("failed to persist template batch: %w", err))
	}
	return tm, nil
}

// MaterializeTemplate composes a concrete message for one recipient out
// of a stored batch entry. Used by the Job Executor.
func (s *Service) MaterializeTemplate(ctx context.Context, tm *model.TemplateMessage, recipient *model.Recipient) (*model.Message, error) {
	contents, err := s.templates.ListContents(ctx, tm.TemplateID)
	if err != nil {
		return nil, errors.Internal(fmt.Errorf("failed to load template contents: %w", err))
	}
	if len(contents) == 0 {
		return nil, errors.BadRequest("template has no contents", nil)
	}

	stored, err := s.templates.GetInterpolations(ctx, tm.ID)
	if err != nil {
		return nil, errors.Internal(fmt.Errorf("failed to load interpolations: %w", err))
	}
	interpolations := make(map[string]string, len(stored))
	for _, in := range stored {
		interpolations[in.Key] = in.Value
	}

	variant := SelectContent(contents, recipient.Lang)
	content := ComposeContent(variant, mergeAttributes(interpolations, recipient))

	msg := s.buildMessage(tm.OrganizationID, recipient.UserID, content, tm.PreferredTransports, tm.SecurityLevel, "", "", tm.ScheduledAt)
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, errors.Internal(fmt.Errorf("failed to persist materialized message: %w", err))
	}
	s.countCreated("template", 1)
	return msg, nil
}

// GetMessage looks up a single message.
func (s *Service) GetMessage(ctx context.Context, id uuid.UUID) (*model.Message, error) {
	return s.messages.Get(ctx, id)
}

func (s *Service) buildMessage(orgID, userID uuid.UUID, content *model.Content, transports []string, security, thread, name string, scheduledAt time.Time) *model.Message {
	return &model.Message{
		ID:                  uuid.New(),
		OrganizationID:      orgID,
		UserID:              userID,
		Subject:             content.Subject,
		Excerpt:             content.Excerpt,
		PlainText:           content.PlainText,
		RichText:            content.RichText,
		Lang:                content.Lang,
		SecurityLevel:       security,
		PreferredTransports: transports,
		Thread:              thread,
		Name:                name,
		ScheduledAt:         scheduledAt,
	}
}

func (s *Service) logCreation(ctx context.Context, key model.EventKey, msgs []*model.Message, recipients []model.Recipient) {
	names := make(map[uuid.UUID]string, len(recipients))
	for _, r := range recipients {
		names[r.UserID] = r.Name
	}

	entries := make([]eventlog.Entry, 0, len(msgs))
	for _, m := range msgs {
		entries = append(entries, eventlog.Entry{
			MessageID: m.ID,
			Data: model.EventData{
				RecipientName: names[m.UserID],
				Subject:       m.Subject,
			},
		})
	}
	s.events.Log(ctx, model.EventStatusSuccessful, key, entries)
}

func (s *Service) countCreated(mode string, n int) {
	if s.metrics != nil {
		s.metrics.MessagesCreated.WithLabelValues(mode).Add(float64(n))
	}
}
