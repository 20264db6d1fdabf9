package dispatcher

import (
	"context"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/jwalitptl/notify-api/internal/model"
	"github.com/jwalitptl/notify-api/internal/repository"
)

// cachedSelector is the default provider selection policy: primary
// provider for the organisation, falling back to the most recently
// created one (the repository encodes that ordering). Lookups are
// cached briefly so a multi-transport dispatch doesn't hit the store
// once per attempt.
type cachedSelector struct {
	repo  repository.ProviderRepository
	cache *gocache.Cache
}

func NewCachedSelector(repo repository.ProviderRepository, ttl time.Duration) ProviderSelector {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &cachedSelector{
		repo:  repo,
		cache: gocache.New(ttl, 2*ttl),
	}
}

func (s *cachedSelector) EmailProvider(ctx context.Context, orgID uuid.UUID) (*model.Provider, error) {
	return s.get(ctx, orgID, model.ProviderKindEmail)
}

func (s *cachedSelector) SMSProvider(ctx context.Context, orgID uuid.UUID) (*model.Provider, error) {
	return s.get(ctx, orgID, model.ProviderKindSMS)
}

func (s *cachedSelector) get(ctx context.Context, orgID uuid.UUID, kind model.ProviderKind) (*model.Provider, error) {
	key := string(kind) + ":" + orgID.String()
	if cached, ok := s.cache.Get(key); ok {
		return cached.(*model.Provider), nil
	}

	var provider *model.Provider
	var err error
	switch kind {
	case model.ProviderKindEmail:
		provider, err = s.repo.GetEmailProvider(ctx, orgID)
	default:
		provider, err = s.repo.GetSMSProvider(ctx, orgID)
	}
	if err != nil {
		return nil, err
	}

	s.cache.SetDefault(key, provider)
	return provider, nil
}
