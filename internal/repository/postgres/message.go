package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/notify-api/internal/model"
	"github.com/jwalitptl/notify-api/internal/repository"
	"github.com/jwalitptl/notify-api/pkg/errors"
	"github.com/jwalitptl/notify-api/pkg/sqlutil"
)

var messageColumns = []string{
	"id", "organization_id", "user_id", "subject", "excerpt", "plain_text",
	"rich_text", "lang", "security_level", "preferred_transports",
	"is_delivered", "thread", "name", "scheduled_at", "created_at", "updated_at",
}

type messageRepository struct {
	BaseRepository
}

func NewMessageRepository(base BaseRepository) repository.MessageRepository {
	return &messageRepository{base}
}

func (r *messageRepository) Create(ctx context.Context, message *model.Message) error {
	return r.CreateBatch(ctx, []*model.Message{message})
}

// CreateBatch persists all rows in a single multi-row statement so a
// recipient batch is all-or-nothing and one round-trip.
func (r *messageRepository) CreateBatch(ctx context.Context, messages []*model.Message) error {
	if len(messages) == 0 {
		return fmt.Errorf("no messages to insert")
	}

	now := time.Now()
	builder := sqlutil.NewInsert("messages", messageColumns...)
	for _, m := range messages {
		if m.ID == uuid.Nil {
			m.ID = uuid.New()
		}
		m.CreatedAt = now
		m.UpdatedAt = now
		builder.Values(
			m.ID, m.OrganizationID, m.UserID, m.Subject, m.Excerpt,
			m.PlainText, m.RichText, m.Lang, m.SecurityLevel,
			m.PreferredTransports, m.IsDelivered, m.Thread, m.Name,
			m.ScheduledAt, m.CreatedAt, m.UpdatedAt,
		)
	}

	query, args, err := builder.Build()
	if err != nil {
		return err
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert messages: %w", err)
	}
	return nil
}

func (r *messageRepository) Get(ctx context.Context, id uuid.UUID) (*model.Message, error) {
	query := `
		SELECT id, organization_id, user_id, subject, excerpt, plain_text,
		       rich_text, lang, security_level, preferred_transports,
		       is_delivered, thread, name, scheduled_at, created_at, updated_at
		FROM messages
		WHERE id = $1
	`

	var message model.Message
	if err := r.db.GetContext(ctx, &message, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("message", err)
		}
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	return &message, nil
}

// MarkDelivered flips the only mutable flag of a persisted message.
func (r *messageRepository) MarkDelivered(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE messages
		SET is_delivered = true, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to mark message delivered: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errors.NotFound("message", sql.ErrNoRows)
	}
	return nil
}
