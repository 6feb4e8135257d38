package core

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

const (
	defaultRefreshMaxAttempts    = 3
	defaultRefreshInitialBackoff = 500 * time.Millisecond
	defaultRefreshMaxBackoff     = 10 * time.Second
	defaultRefreshLockTTL        = 30 * time.Second
)

type LockHandle interface {
	Unlock(ctx context.Context) error
}

// AccountLocker serializes reauthorization per stored account so two workers
// never race the same refresh token.
type AccountLocker interface {
	Acquire(ctx context.Context, accountKey string, ttl time.Duration) (LockHandle, error)
}

type RefreshBackoffScheduler interface {
	NextDelay(attempt int) time.Duration
}

type ExponentialBackoffScheduler struct {
	Initial time.Duration
	Max     time.Duration
}

func (s ExponentialBackoffScheduler) NextDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	initial := s.Initial
	if initial <= 0 {
		initial = defaultRefreshInitialBackoff
	}
	max := s.Max
	if max <= 0 {
		max = defaultRefreshMaxBackoff
	}

	delay := initial
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= max {
			return max
		}
	}
	if delay > max {
		return max
	}
	return delay
}

type ReauthorizeRunResult struct {
	Account  Account
	Attempts int
	// NeedsInteractiveAuth marks refresh tokens the provider rejected
	// outright; retrying cannot help and the user must authenticate again.
	NeedsInteractiveAuth bool
}

type ReauthorizeRunOptions struct {
	MaxAttempts int
	LockTTL     time.Duration
}

// AccountLockKey builds the locker key for an account within a service.
func AccountLockKey(serviceID string, account Account) string {
	return strings.TrimSpace(serviceID) + "/" + strings.TrimSpace(account.Username)
}

// RunReauthorizeWithRetry drives Reauthorize under a per-account lock with
// bounded exponential backoff. Unrecoverable provider answers (invalid_grant
// and friends) stop the loop immediately.
func (s *Service) RunReauthorizeWithRetry(ctx context.Context, account Account, opts ReauthorizeRunOptions) (ReauthorizeRunResult, error) {
	if s == nil {
		return ReauthorizeRunResult{}, fmt.Errorf("core: service is nil")
	}
	if strings.TrimSpace(account.Username) == "" {
		return ReauthorizeRunResult{}, s.mapError(fmt.Errorf("core: account username is required"))
	}

	maxAttempts := opts.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = s.config.Refresh.MaxAttempts
	}
	if maxAttempts < 1 {
		maxAttempts = defaultRefreshMaxAttempts
	}
	lockTTL := opts.LockTTL
	if lockTTL <= 0 {
		lockTTL = defaultRefreshLockTTL
	}

	unlock := func() {}
	if s.accountLocker != nil {
		lockHandle, lockErr := s.accountLocker.Acquire(ctx, AccountLockKey(s.descriptor.ServiceID, account), lockTTL)
		if lockErr != nil {
			return ReauthorizeRunResult{}, s.mapError(lockErr)
		}
		unlock = func() {
			_ = lockHandle.Unlock(ctx)
		}
	}
	defer unlock()

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		refreshed, err := s.Reauthorize(ctx, account)
		if err == nil {
			return ReauthorizeRunResult{Account: refreshed, Attempts: attempt}, nil
		}
		lastErr = err

		if isUnrecoverableRefreshError(err) {
			return ReauthorizeRunResult{Attempts: attempt, NeedsInteractiveAuth: true}, s.mapError(err)
		}
		if attempt == maxAttempts {
			break
		}

		delay := defaultRefreshInitialBackoff
		if s.backoffScheduler != nil {
			delay = s.backoffScheduler.NextDelay(attempt)
		}
		if waitErr := waitWithContext(ctx, delay); waitErr != nil {
			return ReauthorizeRunResult{Attempts: attempt}, s.mapError(waitErr)
		}
	}

	return ReauthorizeRunResult{Attempts: maxAttempts}, s.mapError(lastErr)
}

func isUnrecoverableRefreshError(err error) bool {
	if err == nil {
		return false
	}
	if isCanceled(err) {
		return true
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		switch richErr.Category {
		case goerrors.CategoryAuth, goerrors.CategoryAuthz, goerrors.CategoryValidation, goerrors.CategoryNotFound:
			return true
		}
		switch strings.TrimSpace(strings.ToUpper(richErr.TextCode)) {
		case SocialErrorValidation, SocialErrorUnsupported, SocialErrorCanceled:
			return true
		}
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	return strings.Contains(msg, "invalid_grant") ||
		strings.Contains(msg, "invalid refresh token") ||
		strings.Contains(msg, "refresh token") && strings.Contains(msg, "revoked")
}

func waitWithContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// MemoryAccountLocker is the in-process default locker.
type MemoryAccountLocker struct {
	mu    sync.Mutex
	locks map[string]time.Time
	nowFn func() time.Time
}

func NewMemoryAccountLocker() *MemoryAccountLocker {
	return &MemoryAccountLocker{
		locks: make(map[string]time.Time),
		nowFn: func() time.Time { return time.Now().UTC() },
	}
}

func (l *MemoryAccountLocker) Acquire(_ context.Context, accountKey string, ttl time.Duration) (LockHandle, error) {
	if l == nil {
		return nil, fmt.Errorf("core: account locker is not configured")
	}
	accountKey = strings.TrimSpace(accountKey)
	if accountKey == "" {
		return nil, fmt.Errorf("core: account key is required for lock acquisition")
	}
	if ttl <= 0 {
		ttl = defaultRefreshLockTTL
	}

	now := l.nowFn()
	l.mu.Lock()
	defer l.mu.Unlock()

	if until, ok := l.locks[accountKey]; ok && now.Before(until) {
		return nil, fmt.Errorf("core: refresh lock already held for account %q", accountKey)
	}
	l.locks[accountKey] = now.Add(ttl)
	return &memoryLockHandle{locker: l, accountKey: accountKey}, nil
}

type memoryLockHandle struct {
	locker     *MemoryAccountLocker
	accountKey string
	once       sync.Once
}

func (h *memoryLockHandle) Unlock(_ context.Context) error {
	if h == nil || h.locker == nil {
		return nil
	}
	h.once.Do(func() {
		h.locker.mu.Lock()
		delete(h.locker.locks, h.accountKey)
		h.locker.mu.Unlock()
	})
	return nil
}
