package executor

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jwalitptl/notify-api/internal/model"
	"github.com/jwalitptl/notify-api/internal/repository"
	"github.com/jwalitptl/notify-api/internal/service/composer"
	"github.com/jwalitptl/notify-api/internal/service/dispatcher"
	"github.com/jwalitptl/notify-api/internal/service/eventlog"
	"github.com/jwalitptl/notify-api/pkg/errors"
	"github.com/jwalitptl/notify-api/pkg/logger"
	"github.com/jwalitptl/notify-api/pkg/metrics"
	"github.com/jwalitptl/notify-api/pkg/security"
)

// Transports is the narrow dispatch contract the executor needs; the
// transport dispatcher satisfies it.
type Transports interface {
	Dispatch(ctx context.Context, msg *model.Message, recipient *model.Recipient) ([]dispatcher.Result, error)
}

// Materializer turns a stored template batch entry into a concrete
// message for one recipient; the composer satisfies it.
type Materializer interface {
	MaterializeTemplate(ctx context.Context, tm *model.TemplateMessage, recipient *model.Recipient) (*model.Message, error)
}

// Service is the job state machine behind the scheduler's webhook
// callback. It owns every mutation of job delivery status.
type Service struct {
	jobs       repository.JobRepository
	messages   repository.MessageRepository
	templates  repository.TemplateRepository
	recipients repository.RecipientRepository
	composer   Materializer
	transports Transports
	events     *eventlog.Logger
	logger     *logger.Logger
	metrics    *metrics.Metrics
}

func NewService(
	jobs repository.JobRepository,
	messages repository.MessageRepository,
	templates repository.TemplateRepository,
	recipients repository.RecipientRepository,
	comp Materializer,
	transports Transports,
	events *eventlog.Logger,
	log *logger.Logger,
	m *metrics.Metrics,
) *Service {
	return &Service{
		jobs:       jobs,
		messages:   messages,
		templates:  templates,
		recipients: recipients,
		composer:   comp,
		transports: transports,
		events:     events,
		logger:     log,
		metrics:    m,
	}
}

var _ Materializer = (*composer.Service)(nil)

// ExecuteJob runs one webhook callback through the state machine:
// validate identity and token, claim, deliver, reconcile failure.
// Replays of delivered jobs see not-found; concurrent callbacks for the
// same job see a conflict.
func (s *Service) ExecuteJob(ctx context.Context, jobID uuid.UUID, token string) error {
	if s.metrics != nil {
		timer := prometheus.NewTimer(s.metrics.JobExecutionTime)
		defer timer.ObserveDuration()
	}

	// Delivered jobs are filtered at the read boundary, so a replayed
	// callback cannot tell them apart from missing jobs.
	job, err := s.jobs.GetForExecution(ctx, jobID)
	if err != nil {
		s.count("not_found")
		return err
	}

	// Token check happens before the claim so an authorization failure
	// leaves no state change.
	if err := security.CompareToken(job.TokenHash, token); err != nil {
		s.count("unauthorized")
		return errors.Unauthorized(err)
	}

	job, err = s.jobs.Claim(ctx, jobID)
	if err != nil {
		if errors.IsKind(err, errors.KindConflict) {
			s.count("conflict")
		} else {
			s.count("not_found")
		}
		return err
	}

	var msg *model.Message
	switch job.JobType {
	case model.JobTypeMessage:
		msg, err = s.executeMessage(ctx, job)
	case model.JobTypeTemplate:
		msg, err = s.executeTemplate(ctx, job)
	default:
		err = errors.Internal(fmt.Errorf("unknown job type %q", job.JobType))
	}
	if err != nil {
		return s.fail(ctx, job, msg, err)
	}

	if err := s.jobs.SetStatus(ctx, job.ID, model.DeliveryStatusDelivered); err != nil {
		return s.fail(ctx, job, msg, errors.Internal(fmt.Errorf("failed to mark job delivered: %w", err)))
	}
	s.count("delivered")
	s.events.LogOne(ctx, model.EventStatusDelivered, model.EventKeyDelivery, msg.ID, model.EventData{
		Subject: msg.Subject,
		JobID:   job.ID.String(),
	})

	// Transport sends are best-effort follow-up work: failures are
	// logged per transport but never revert the delivered state.
	s.dispatch(ctx, job, msg)
	return nil
}

func (s *Service) executeMessage(ctx context.Context, job *model.Job) (*model.Message, error) {
	msg, err := s.messages.Get(ctx, job.EntityID)
	if err != nil {
		return nil, err
	}
	if err := s.messages.MarkDelivered(ctx, msg.ID); err != nil {
		return msg, errors.Internal(fmt.Errorf("failed to mark message delivered: %w", err))
	}
	msg.IsDelivered = true
	return msg, nil
}

func (s *Service) executeTemplate(ctx context.Context, job *model.Job) (*model.Message, error) {
	tm, err := s.templates.Get(ctx, job.EntityID)
	if err != nil {
		return nil, err
	}

	recipient, err := s.recipients.Get(ctx, job.OrganizationID, job.UserID)
	if err != nil {
		return nil, err
	}

	msg, err := s.composer.MaterializeTemplate(ctx, tm, recipient)
	if err != nil {
		return nil, err
	}
	if err := s.messages.MarkDelivered(ctx, msg.ID); err != nil {
		return msg, errors.Internal(fmt.Errorf("failed to mark materialized message delivered: %w", err))
	}
	msg.IsDelivered = true
	return msg, nil
}

func (s *Service) dispatch(ctx context.Context, job *model.Job, msg *model.Message) {
	recipient, err := s.recipients.Get(ctx, job.OrganizationID, job.UserID)
	if err != nil {
		s.logger.Error(err, "failed to resolve recipient for dispatch",
			"job_id", job.ID.String(),
			"message_id", msg.ID.String())
		return
	}

	if _, err := s.transports.Dispatch(ctx, msg, recipient); err != nil {
		s.logger.Error(err, "transport dispatch failed",
			"job_id", job.ID.String(),
			"message_id", msg.ID.String())
	}
}

// fail reconciles a critical error: the job flips to failed and the
// error surfaces to the scheduler, which owns retry policy.
func (s *Service) fail(ctx context.Context, job *model.Job, msg *model.Message, execErr error) error {
	if err := s.jobs.SetStatus(ctx, job.ID, model.DeliveryStatusFailed); err != nil {
		s.logger.Error(err, "failed to mark job failed", "job_id", job.ID.String())
	}
	s.count("failed")

	messageID := job.EntityID
	subject := ""
	if msg != nil {
		messageID = msg.ID
		subject = msg.Subject
	}
	s.events.LogOne(ctx, model.EventStatusFailed, model.EventKeyDelivery, messageID, model.EventData{
		Subject: subject,
		JobID:   job.ID.String(),
		Error:   execErr.Error(),
	})

	return execErr
}

func (s *Service) count(outcome string) {
	if s.metrics != nil {
		s.metrics.JobsExecuted.WithLabelValues(outcome).Inc()
	}
}
