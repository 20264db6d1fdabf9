package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/notify-api/internal/model"
	"github.com/jwalitptl/notify-api/internal/repository"
	"github.com/jwalitptl/notify-api/pkg/errors"
	"github.com/jwalitptl/notify-api/pkg/sqlutil"
)

type templateRepository struct {
	BaseRepository
}

func NewTemplateRepository(base BaseRepository) repository.TemplateRepository {
	return &templateRepository{base}
}

// CreateWithInterpolations persists the batch entry and its stored
// interpolation pairs in one transaction; the interpolation rows go in
// as a single multi-row insert.
func (r *templateRepository) CreateWithInterpolations(ctx context.Context, tm *model.TemplateMessage, interpolations []model.TemplateInterpolation) error {
	if tm.ID == uuid.Nil {
		tm.ID = uuid.New()
	}
	tm.CreatedAt = time.Now()

	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		query := `
			INSERT INTO scheduled_message_by_templates (
				id, organization_id, template_meta_id, preferred_transports,
				message_security, scheduled_at, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7)
		`
		if _, err := tx.ExecContext(ctx, query,
			tm.ID, tm.OrganizationID, tm.TemplateID, tm.PreferredTransports,
			tm.SecurityLevel, tm.ScheduledAt, tm.CreatedAt,
		); err != nil {
			return fmt.Errorf("failed to insert template message: %w", err)
		}

		if len(interpolations) == 0 {
			return nil
		}

		builder := sqlutil.NewInsert("message_template_interpolations",
			"message_by_template_id", "interpolation_key", "interpolation_value")
		for _, in := range interpolations {
			builder.Values(tm.ID, in.Key, in.Value)
		}
		insert, args, err := builder.Build()
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, insert, args...); err != nil {
			return fmt.Errorf("failed to insert interpolations: %w", err)
		}
		return nil
	})
}

func (r *templateRepository) Get(ctx context.Context, id uuid.UUID) (*model.TemplateMessage, error) {
	query := `
		SELECT id, organization_id, template_meta_id, preferred_transports,
		       message_security, scheduled_at, created_at
		FROM scheduled_message_by_templates
		WHERE id = $1
	`

	var tm model.TemplateMessage
	if err := r.db.GetContext(ctx, &tm, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("template message", err)
		}
		return nil, fmt.Errorf("failed to get template message: %w", err)
	}
	return &tm, nil
}

func (r *templateRepository) GetInterpolations(ctx context.Context, templateMessageID uuid.UUID) ([]model.TemplateInterpolation, error) {
	query := `
		SELECT message_by_template_id, interpolation_key, interpolation_value
		FROM message_template_interpolations
		WHERE message_by_template_id = $1
	`

	var interpolations []model.TemplateInterpolation
	if err := r.db.SelectContext(ctx, &interpolations, query, templateMessageID); err != nil {
		return nil, fmt.Errorf("failed to get interpolations: %w", err)
	}
	return interpolations, nil
}

// ListContents returns language variants in insertion order so the
// first-variant fallback is deterministic.
func (r *templateRepository) ListContents(ctx context.Context, templateID uuid.UUID) ([]*model.TemplateContent, error) {
	query := `
		SELECT id, template_meta_id, lang, subject, excerpt, plain_text,
		       rich_text, position, created_at
		FROM template_contents
		WHERE template_meta_id = $1
		ORDER BY position ASC, created_at ASC, id ASC
	`

	var contents []*model.TemplateContent
	if err := r.db.SelectContext(ctx, &contents, query, templateID); err != nil {
		return nil, fmt.Errorf("failed to list template contents: %w", err)
	}
	return contents, nil
}
