package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/notify-api/internal/model"
	"github.com/jwalitptl/notify-api/internal/repository"
	"github.com/jwalitptl/notify-api/pkg/errors"
)

type providerRepository struct {
	BaseRepository
}

func NewProviderRepository(base BaseRepository) repository.ProviderRepository {
	return &providerRepository{base}
}

// GetEmailProvider returns the organization's primary email provider,
// falling back to the most recently created one.
func (r *providerRepository) GetEmailProvider(ctx context.Context, orgID uuid.UUID) (*model.Provider, error) {
	return r.getByKind(ctx, orgID, model.ProviderKindEmail)
}

func (r *providerRepository) GetSMSProvider(ctx context.Context, orgID uuid.UUID) (*model.Provider, error) {
	return r.getByKind(ctx, orgID, model.ProviderKindSMS)
}

func (r *providerRepository) getByKind(ctx context.Context, orgID uuid.UUID, kind model.ProviderKind) (*model.Provider, error) {
	query := `
		SELECT id, organization_id, kind, is_primary, config, created_at
		FROM providers
		WHERE organization_id = $1 AND kind = $2
		ORDER BY is_primary DESC, created_at DESC
		LIMIT 1
	`

	var provider model.Provider
	if err := r.db.GetContext(ctx, &provider, query, orgID, kind); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound(fmt.Sprintf("%s provider", kind), err)
		}
		return nil, fmt.Errorf("failed to get %s provider: %w", kind, err)
	}
	return &provider, nil
}
