package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/notify-api/internal/model"
	"github.com/jwalitptl/notify-api/internal/repository"
	"github.com/jwalitptl/notify-api/pkg/sqlutil"
)

type eventLogRepository struct {
	BaseRepository
}

func NewEventLogRepository(base BaseRepository) repository.EventLogRepository {
	return &eventLogRepository{base}
}

// CreateBatch appends all entries in one multi-row insert. Rows are
// append-only; nothing in the pipeline updates or deletes them.
func (r *eventLogRepository) CreateBatch(ctx context.Context, entries []*model.EventLog) error {
	if len(entries) == 0 {
		return fmt.Errorf("no event log entries to insert")
	}

	now := time.Now()
	builder := sqlutil.NewInsert("messaging_event_logs",
		"id", "event_status", "event_type", "data", "message_id", "created_at")
	for _, e := range entries {
		if e.ID == uuid.Nil {
			e.ID = uuid.New()
		}
		e.CreatedAt = now
		builder.Values(e.ID, e.EventStatus, e.EventType, e.Data, e.MessageID, e.CreatedAt)
	}

	query, args, err := builder.Build()
	if err != nil {
		return err
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert event logs: %w", err)
	}
	return nil
}

// ListByOrganization fetches the raw event rows for one page of
// messages, joined with the owning message's sort keys. The page window
// is over messages (scheduled_at descending); event rows come back
// oldest to newest so the read-model fold keeps the last-seen status.
func (r *eventLogRepository) ListByOrganization(ctx context.Context, orgID uuid.UUID, search string, limit, offset int) ([]*model.EventWithMessage, int64, error) {
	countQuery := `
		SELECT COUNT(*)
		FROM messages m
		WHERE m.organization_id = $1
		AND ($2 = '' OR m.subject ILIKE '%' || $2 || '%' OR m.name ILIKE '%' || $2 || '%')
	`
	var total int64
	if err := r.db.GetContext(ctx, &total, countQuery, orgID, search); err != nil {
		return nil, 0, fmt.Errorf("failed to count messages: %w", err)
	}

	query := `
		SELECT e.id, e.event_status, e.event_type, e.data, e.message_id,
		       e.created_at, m.subject, m.scheduled_at
		FROM messaging_event_logs e
		JOIN (
			SELECT id, subject, scheduled_at
			FROM messages
			WHERE organization_id = $1
			AND ($2 = '' OR subject ILIKE '%' || $2 || '%' OR name ILIKE '%' || $2 || '%')
			ORDER BY scheduled_at DESC
			LIMIT $3 OFFSET $4
		) m ON m.id = e.message_id
		ORDER BY e.created_at ASC, e.id ASC
	`

	var rows []*model.EventWithMessage
	if err := r.db.SelectContext(ctx, &rows, query, orgID, search, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("failed to list event logs: %w", err)
	}
	return rows, total, nil
}

// ListByMessage returns one message's full timeline, oldest first.
func (r *eventLogRepository) ListByMessage(ctx context.Context, messageID uuid.UUID) ([]*model.EventLog, error) {
	query := `
		SELECT id, event_status, event_type, data, message_id, created_at
		FROM messaging_event_logs
		WHERE message_id = $1
		ORDER BY created_at ASC, id ASC
	`

	var entries []*model.EventLog
	if err := r.db.SelectContext(ctx, &entries, query, messageID); err != nil {
		return nil, fmt.Errorf("failed to list message events: %w", err)
	}
	return entries, nil
}

// DeleteBefore is the ops retention sweep run by the worker, not part
// of the delivery pipeline.
func (r *eventLogRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `
		DELETE FROM messaging_event_logs
		WHERE created_at < $1
	`

	result, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old event logs: %w", err)
	}
	return result.RowsAffected()
}
