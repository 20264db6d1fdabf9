package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/notify-api/internal/model"
)

// All repository interfaces in one file
type (
	// MessageRepository owns the messages relation.
	MessageRepository interface {
		Create(ctx context.Context, message *model.Message) error
		CreateBatch(ctx context.Context, messages []*model.Message) error
		Get(ctx context.Context, id uuid.UUID) (*model.Message, error)
		MarkDelivered(ctx context.Context, id uuid.UUID) error
	}

	// JobRepository owns the jobs relation and the state machine writes.
	JobRepository interface {
		CreateBatch(ctx context.Context, jobs []*model.Job) error
		// GetForExecution loads a job for a webhook callback. Missing
		// jobs and already-delivered jobs are both reported as not
		// found so replays stay idempotent to outside callers.
		GetForExecution(ctx context.Context, id uuid.UUID) (*model.Job, error)
		// Claim transitions a job to working with a single conditional
		// update. Returns a conflict error when the job is already
		// working, not found when it is missing or delivered.
		Claim(ctx context.Context, id uuid.UUID) (*model.Job, error)
		SetStatus(ctx context.Context, id uuid.UUID, status model.DeliveryStatus) error
		ListStaleWorking(ctx context.Context, olderThan time.Time, limit int) ([]*model.Job, error)
	}

	// TemplateRepository owns scheduled template batches, their stored
	// interpolations, and the read side of template contents.
	TemplateRepository interface {
		CreateWithInterpolations(ctx context.Context, tm *model.TemplateMessage, interpolations []model.TemplateInterpolation) error
		Get(ctx context.Context, id uuid.UUID) (*model.TemplateMessage, error)
		GetInterpolations(ctx context.Context, templateMessageID uuid.UUID) ([]model.TemplateInterpolation, error)
		ListContents(ctx context.Context, templateID uuid.UUID) ([]*model.TemplateContent, error)
	}

	// EventLogRepository owns the append-only messaging_event_logs relation.
	EventLogRepository interface {
		CreateBatch(ctx context.Context, entries []*model.EventLog) error
		ListByOrganization(ctx context.Context, orgID uuid.UUID, search string, limit, offset int) ([]*model.EventWithMessage, int64, error)
		ListByMessage(ctx context.Context, messageID uuid.UUID) ([]*model.EventLog, error)
		DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
	}

	// ProviderRepository is the read side of stored transport providers;
	// provider CRUD lives outside this service.
	ProviderRepository interface {
		GetEmailProvider(ctx context.Context, orgID uuid.UUID) (*model.Provider, error)
		GetSMSProvider(ctx context.Context, orgID uuid.UUID) (*model.Provider, error)
	}

	// RecipientRepository resolves recipient contact and profile
	// attributes for dispatch and template materialization.
	RecipientRepository interface {
		Get(ctx context.Context, orgID, userID uuid.UUID) (*model.Recipient, error)
	}
)
