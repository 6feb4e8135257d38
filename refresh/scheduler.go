// Package refresh keeps stored accounts usable by enqueueing background
// reauthorization work before access tokens lapse.
package refresh

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-social/core"
)

const (
	// JobIDReauthorize names the queue job the scheduler emits and the
	// worker consumes.
	JobIDReauthorize = "social.reauthorize"

	defaultExpiryLeadTime = 5 * time.Minute
)

// ServiceCatalog enumerates registered services and resolves them by id.
// *core.ServiceRegistry satisfies it.
type ServiceCatalog interface {
	core.ServiceResolver
	ServiceIDs() []string
}

// Scheduler scans every registered service and enqueues a reauthorize job
// for each stored account that can be refreshed and is expired or about to
// expire. Accounts without a refresh token are skipped: they need an
// interactive flow, not a background one.
type Scheduler struct {
	Catalog  ServiceCatalog
	Enqueuer core.JobEnqueuer
	Logger   core.Logger

	// ExpiryLeadTime widens the expiry check so tokens are refreshed
	// slightly before they actually lapse.
	ExpiryLeadTime time.Duration
	DedupPolicy    string
	Now            func() time.Time
}

func NewScheduler(catalog ServiceCatalog, enqueuer core.JobEnqueuer) *Scheduler {
	return &Scheduler{
		Catalog:        catalog,
		Enqueuer:       enqueuer,
		ExpiryLeadTime: defaultExpiryLeadTime,
		Now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// ScanReport summarizes one scheduler pass.
type ScanReport struct {
	Scanned  int
	Enqueued int
	Skipped  int
}

// Run performs one scan over all registered services. Listing failures on a
// single service abort the pass so the caller can surface them; enqueue
// failures do too, since losing jobs silently defeats the scheduler.
func (s *Scheduler) Run(ctx context.Context) (ScanReport, error) {
	report := ScanReport{}
	if s == nil || s.Catalog == nil {
		return report, fmt.Errorf("refresh: scheduler requires a service catalog")
	}
	if s.Enqueuer == nil {
		return report, fmt.Errorf("refresh: scheduler requires a job enqueuer")
	}

	cutoff := s.now().Add(s.leadTime())
	for _, serviceID := range s.Catalog.ServiceIDs() {
		service, err := s.Catalog.ResolveService(serviceID)
		if err != nil {
			return report, err
		}
		if !service.Descriptor().SupportsReauthorization {
			continue
		}
		accounts, err := service.Accounts(ctx)
		if err != nil {
			return report, err
		}
		for _, account := range accounts {
			report.Scanned++
			if !s.needsRefresh(account, cutoff) {
				report.Skipped++
				continue
			}
			if err := s.Enqueuer.Enqueue(ctx, s.buildMessage(serviceID, account)); err != nil {
				return report, err
			}
			report.Enqueued++
			s.logEnqueued(serviceID, account.Username)
		}
	}
	return report, nil
}

// RunEvery runs scan passes on a fixed interval until the context ends. Pass
// failures are logged and the loop keeps going.
func (s *Scheduler) RunEvery(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("refresh: scan interval must be positive")
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if _, err := s.Run(ctx); err != nil {
			if s != nil && s.Logger != nil {
				s.Logger.Error("refresh scan failed", "error", err)
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) needsRefresh(account core.Account, cutoff time.Time) bool {
	if !account.Refreshable() {
		return false
	}
	expiresAt := account.ExpiresAt()
	if expiresAt.IsZero() {
		return false
	}
	return !expiresAt.After(cutoff)
}

func (s *Scheduler) buildMessage(serviceID string, account core.Account) *core.JobExecutionMessage {
	expiresAt := account.ExpiresAt()
	return &core.JobExecutionMessage{
		JobID:     JobIDReauthorize,
		ServiceID: serviceID,
		Username:  account.Username,
		Parameters: map[string]any{
			"expires_at": expiresAt.Format(time.RFC3339),
		},
		IdempotencyKey: fmt.Sprintf("%s/%s/%d", serviceID, account.Username, expiresAt.Unix()),
		DedupPolicy:    strings.TrimSpace(s.DedupPolicy),
	}
}

func (s *Scheduler) logEnqueued(serviceID string, username string) {
	if s == nil || s.Logger == nil {
		return
	}
	s.Logger.Info("enqueued reauthorize job",
		"service_id", serviceID,
		"username", username,
	)
}

func (s *Scheduler) leadTime() time.Duration {
	if s != nil && s.ExpiryLeadTime > 0 {
		return s.ExpiryLeadTime
	}
	return defaultExpiryLeadTime
}

func (s *Scheduler) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

var _ ServiceCatalog = (*core.ServiceRegistry)(nil)
