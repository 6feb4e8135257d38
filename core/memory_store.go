package core

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// MemoryAccountStore is the default in-process AccountStore. Accounts are
// keyed (service id, username); saving an account that already exists
// replaces it wholesale.
type MemoryAccountStore struct {
	mu       sync.RWMutex
	accounts map[string]map[string]Account
}

func NewMemoryAccountStore() *MemoryAccountStore {
	return &MemoryAccountStore{
		accounts: make(map[string]map[string]Account),
	}
}

func (s *MemoryAccountStore) FindAccountsForService(_ context.Context, serviceID string) ([]Account, error) {
	if s == nil {
		return nil, fmt.Errorf("core: account store is not configured")
	}
	serviceID = strings.TrimSpace(serviceID)
	if serviceID == "" {
		return nil, fmt.Errorf("core: service id is required")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	byUsername := s.accounts[serviceID]
	if len(byUsername) == 0 {
		return []Account{}, nil
	}
	usernames := make([]string, 0, len(byUsername))
	for username := range byUsername {
		usernames = append(usernames, username)
	}
	sort.Strings(usernames)

	found := make([]Account, 0, len(usernames))
	for _, username := range usernames {
		found = append(found, byUsername[username].Clone())
	}
	return found, nil
}

func (s *MemoryAccountStore) Save(_ context.Context, account Account, serviceID string) error {
	if s == nil {
		return fmt.Errorf("core: account store is not configured")
	}
	serviceID = strings.TrimSpace(serviceID)
	if serviceID == "" {
		return fmt.Errorf("core: service id is required")
	}
	username := strings.TrimSpace(account.Username)
	if username == "" {
		return fmt.Errorf("core: account username is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.accounts == nil {
		s.accounts = make(map[string]map[string]Account)
	}
	if s.accounts[serviceID] == nil {
		s.accounts[serviceID] = make(map[string]Account)
	}
	s.accounts[serviceID][username] = account.Clone()
	return nil
}

func (s *MemoryAccountStore) Delete(_ context.Context, account Account, serviceID string) error {
	if s == nil {
		return fmt.Errorf("core: account store is not configured")
	}
	serviceID = strings.TrimSpace(serviceID)
	if serviceID == "" {
		return fmt.Errorf("core: service id is required")
	}
	username := strings.TrimSpace(account.Username)
	if username == "" {
		return fmt.Errorf("core: account username is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if byUsername, ok := s.accounts[serviceID]; ok {
		delete(byUsername, username)
		if len(byUsername) == 0 {
			delete(s.accounts, serviceID)
		}
	}
	return nil
}
