package sqlstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	repositorycache "github.com/goliatone/go-repository-cache/cache"
	"github.com/goliatone/go-social/core"
)

const accountCacheKeyPrefix = "go-social::accounts::v1"

// CachedAccountStore fronts any AccountStore with a read-through cache.
// Writes invalidate the whole service's entry, since account lists are read
// per service.
type CachedAccountStore struct {
	base  core.AccountStore
	cache repositorycache.CacheService
}

func NewCachedAccountStore(base core.AccountStore, cacheService repositorycache.CacheService) (*CachedAccountStore, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base account store is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: account cache service is required")
	}
	return &CachedAccountStore{base: base, cache: cacheService}, nil
}

// AccountCacheKey returns the deterministic cache key for a service's
// account list: go-social::accounts::v1::<service_id>, URL-path escaped.
func AccountCacheKey(serviceID string) (string, error) {
	serviceID = strings.TrimSpace(serviceID)
	if serviceID == "" {
		return "", fmt.Errorf("sqlstore: service id is required")
	}
	return accountCacheKeyPrefix + "::" + url.PathEscape(serviceID), nil
}

func (s *CachedAccountStore) FindAccountsForService(ctx context.Context, serviceID string) ([]core.Account, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return nil, fmt.Errorf("sqlstore: cached account store is not configured")
	}
	cacheKey, err := AccountCacheKey(serviceID)
	if err != nil {
		return nil, err
	}

	accounts, err := repositorycache.GetOrFetch(ctx, s.cache, cacheKey, func(ctx context.Context) ([]core.Account, error) {
		fetched, fetchErr := s.base.FindAccountsForService(ctx, serviceID)
		if fetchErr != nil {
			return nil, fetchErr
		}
		return cloneAccounts(fetched), nil
	})
	if err != nil {
		return nil, err
	}
	return cloneAccounts(accounts), nil
}

func (s *CachedAccountStore) Save(ctx context.Context, account core.Account, serviceID string) error {
	if s == nil || s.base == nil || s.cache == nil {
		return fmt.Errorf("sqlstore: cached account store is not configured")
	}
	if err := s.base.Save(ctx, account, serviceID); err != nil {
		return err
	}
	return s.invalidate(ctx, serviceID)
}

func (s *CachedAccountStore) Delete(ctx context.Context, account core.Account, serviceID string) error {
	if s == nil || s.base == nil || s.cache == nil {
		return fmt.Errorf("sqlstore: cached account store is not configured")
	}
	if err := s.base.Delete(ctx, account, serviceID); err != nil {
		return err
	}
	return s.invalidate(ctx, serviceID)
}

func (s *CachedAccountStore) invalidate(ctx context.Context, serviceID string) error {
	cacheKey, err := AccountCacheKey(serviceID)
	if err != nil {
		return err
	}
	return s.cache.Delete(ctx, cacheKey)
}

func cloneAccounts(in []core.Account) []core.Account {
	out := make([]core.Account, 0, len(in))
	for _, account := range in {
		out = append(out, account.Clone())
	}
	return out
}

var _ core.AccountStore = (*CachedAccountStore)(nil)
