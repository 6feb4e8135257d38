package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-social/core"
	"github.com/uptrace/bun"
)

// AccountStore is the bun-backed core.AccountStore. Saves upsert on
// (service_id, username); deletes are soft.
type AccountStore struct {
	db   *bun.DB
	repo repository.Repository[*accountRecord]
}

func NewAccountStore(db *bun.DB) (*AccountStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*accountRecord](db, accountHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid account repository wiring: %w", err)
		}
	}
	return &AccountStore{db: db, repo: repo}, nil
}

func (s *AccountStore) FindAccountsForService(ctx context.Context, serviceID string) ([]core.Account, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("sqlstore: account store is not configured")
	}
	serviceID = strings.TrimSpace(serviceID)
	if serviceID == "" {
		return nil, fmt.Errorf("sqlstore: service id is required")
	}

	records, _, err := s.repo.List(ctx,
		repository.SelectBy("service_id", "=", serviceID),
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("?TableAlias.deleted_at IS NULL")
		}),
		repository.OrderBy("username ASC"),
	)
	if err != nil {
		return nil, err
	}

	out := make([]core.Account, 0, len(records))
	for _, record := range records {
		out = append(out, record.toDomain())
	}
	return out, nil
}

func (s *AccountStore) Save(ctx context.Context, account core.Account, serviceID string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: account store is not configured")
	}
	serviceID = strings.TrimSpace(serviceID)
	if serviceID == "" {
		return fmt.Errorf("sqlstore: service id is required")
	}
	username := strings.TrimSpace(account.Username)
	if username == "" {
		return fmt.Errorf("sqlstore: account username is required")
	}

	now := time.Now().UTC()
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		existing := new(accountRecord)
		err := tx.NewSelect().
			Model(existing).
			Where("?TableAlias.service_id = ?", serviceID).
			Where("?TableAlias.username = ?", username).
			Limit(1).
			Scan(ctx)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			record := newAccountRecord(account, serviceID, now)
			_, insertErr := tx.NewInsert().Model(record).Exec(ctx)
			return insertErr
		case err != nil:
			return err
		}

		existing.Properties = copyProperties(account.Properties)
		existing.Cookies = cookiesToStored(account.Cookies)
		existing.UpdatedAt = now
		_, updateErr := tx.NewUpdate().
			Model(existing).
			Column("properties", "cookies", "updated_at").
			WherePK().
			Exec(ctx)
		return updateErr
	})
}

func (s *AccountStore) Delete(ctx context.Context, account core.Account, serviceID string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: account store is not configured")
	}
	serviceID = strings.TrimSpace(serviceID)
	if serviceID == "" {
		return fmt.Errorf("sqlstore: service id is required")
	}
	username := strings.TrimSpace(account.Username)
	if username == "" {
		return fmt.Errorf("sqlstore: account username is required")
	}

	_, err := s.db.NewDelete().
		Model((*accountRecord)(nil)).
		Where("?TableAlias.service_id = ?", serviceID).
		Where("?TableAlias.username = ?", username).
		Exec(ctx)
	return err
}

var _ core.AccountStore = (*AccountStore)(nil)
