package sqlstore

import (
	"net/http"
	"strings"
	"time"

	"github.com/goliatone/go-social/core"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type accountRecord struct {
	bun.BaseModel `bun:"table:social_accounts,alias:sa"`

	ID         string            `bun:"id,pk"`
	ServiceID  string            `bun:"service_id,notnull"`
	Username   string            `bun:"username,notnull"`
	Properties map[string]string `bun:"properties,type:jsonb,notnull"`
	Cookies    []storedCookie    `bun:"cookies,type:jsonb"`
	CreatedAt  time.Time         `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt  time.Time         `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
	DeletedAt  *time.Time        `bun:"deleted_at,soft_delete"`
}

// storedCookie keeps only the cookie fields worth persisting; transient
// attributes like MaxAge are dropped on save.
type storedCookie struct {
	Name     string    `json:"name"`
	Value    string    `json:"value"`
	Path     string    `json:"path,omitempty"`
	Domain   string    `json:"domain,omitempty"`
	Expires  time.Time `json:"expires,omitempty"`
	Secure   bool      `json:"secure,omitempty"`
	HTTPOnly bool      `json:"http_only,omitempty"`
}

func newAccountRecord(account core.Account, serviceID string, now time.Time) *accountRecord {
	return &accountRecord{
		ID:         uuid.NewString(),
		ServiceID:  strings.TrimSpace(serviceID),
		Username:   strings.TrimSpace(account.Username),
		Properties: copyProperties(account.Properties),
		Cookies:    cookiesToStored(account.Cookies),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func (r *accountRecord) toDomain() core.Account {
	if r == nil {
		return core.Account{}
	}
	return core.NewAccountWithCookies(r.Username, r.Properties, storedToCookies(r.Cookies))
}

func copyProperties(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}

func cookiesToStored(cookies []*http.Cookie) []storedCookie {
	if len(cookies) == 0 {
		return nil
	}
	out := make([]storedCookie, 0, len(cookies))
	for _, cookie := range cookies {
		if cookie == nil || strings.TrimSpace(cookie.Name) == "" {
			continue
		}
		out = append(out, storedCookie{
			Name:     cookie.Name,
			Value:    cookie.Value,
			Path:     cookie.Path,
			Domain:   cookie.Domain,
			Expires:  cookie.Expires,
			Secure:   cookie.Secure,
			HTTPOnly: cookie.HttpOnly,
		})
	}
	return out
}

func storedToCookies(stored []storedCookie) []*http.Cookie {
	if len(stored) == 0 {
		return nil
	}
	out := make([]*http.Cookie, 0, len(stored))
	for _, cookie := range stored {
		out = append(out, &http.Cookie{
			Name:     cookie.Name,
			Value:    cookie.Value,
			Path:     cookie.Path,
			Domain:   cookie.Domain,
			Expires:  cookie.Expires,
			Secure:   cookie.Secure,
			HttpOnly: cookie.HTTPOnly,
		})
	}
	return out
}
