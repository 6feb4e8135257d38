package core

import (
	"net/http"
	"strings"
	"time"
)

// Well-known account property keys shared by every OAuth2-backed provider.
const (
	PropAccessToken  = "access_token"
	PropRefreshToken = "refresh_token"
	PropTokenType    = "token_type"
	PropExpiresAt    = "expires_at"
	PropScope        = "scope"
)

// Account is the stored identity and credential bundle for one (user,
// service) pair. It is treated as a value: reauthorization produces a new
// Account that replaces the old one, the old value is never mutated.
type Account struct {
	Username   string
	Properties map[string]string
	Cookies    []*http.Cookie
}

func NewAccount(username string, properties map[string]string) Account {
	return Account{
		Username:   strings.TrimSpace(username),
		Properties: copyStringMap(properties),
	}
}

func NewAccountWithCookies(username string, properties map[string]string, cookies []*http.Cookie) Account {
	account := NewAccount(username, properties)
	account.Cookies = copyCookies(cookies)
	return account
}

func (a Account) Clone() Account {
	return Account{
		Username:   a.Username,
		Properties: copyStringMap(a.Properties),
		Cookies:    copyCookies(a.Cookies),
	}
}

// SameIdentity reports whether two accounts name the same stored identity
// within a service. Identity is the username alone; properties are expected
// to be replaced wholesale on reauthorization.
func (a Account) SameIdentity(other Account) bool {
	return strings.TrimSpace(a.Username) != "" &&
		strings.TrimSpace(a.Username) == strings.TrimSpace(other.Username)
}

// MergeProperties returns a new Account carrying this account's username and
// cookies with the given properties merged over the existing ones.
func (a Account) MergeProperties(updates map[string]string) Account {
	merged := copyStringMap(a.Properties)
	for key, value := range updates {
		if strings.TrimSpace(key) == "" {
			continue
		}
		merged[key] = value
	}
	return Account{
		Username:   a.Username,
		Properties: merged,
		Cookies:    copyCookies(a.Cookies),
	}
}

func (a Account) Property(key string) string {
	if len(a.Properties) == 0 {
		return ""
	}
	return strings.TrimSpace(a.Properties[key])
}

func (a Account) AccessToken() string {
	return a.Property(PropAccessToken)
}

func (a Account) RefreshToken() string {
	return a.Property(PropRefreshToken)
}

// Refreshable reports whether the account carries a refresh token, i.e. it
// can be reauthorized without an interactive flow.
func (a Account) Refreshable() bool {
	return a.RefreshToken() != ""
}

// ExpiresAt parses the stored expiry timestamp. The zero time means the
// account has no recorded expiry.
func (a Account) ExpiresAt() time.Time {
	raw := a.Property(PropExpiresAt)
	if raw == "" {
		return time.Time{}
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}
	}
	return parsed.UTC()
}

func copyStringMap(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}

func copyCookies(in []*http.Cookie) []*http.Cookie {
	if len(in) == 0 {
		return nil
	}
	out := make([]*http.Cookie, 0, len(in))
	for _, cookie := range in {
		if cookie == nil {
			continue
		}
		copied := *cookie
		out = append(out, &copied)
	}
	return out
}
