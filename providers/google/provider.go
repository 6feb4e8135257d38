// Package google adapts Google OAuth2 to a social service with bearer-header
// signing.
package google

import (
	"net/http"
	"time"

	"github.com/goliatone/go-social/core"
	"github.com/goliatone/go-social/providers"
)

const (
	ServiceID      = "google"
	AuthorizeURL   = "https://accounts.google.com/o/oauth2/auth"
	AccessTokenURL = "https://accounts.google.com/o/oauth2/token"
	PeopleMeURL    = "https://www.googleapis.com/plus/v1/people/me"
)

type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string

	HTTPClient     core.HTTPDoer
	RequestTimeout time.Duration
	Now            func() time.Time
	Options        []core.Option
}

func DefaultConfig() Config {
	return Config{
		Scopes: []string{"https://www.googleapis.com/auth/plus.login"},
	}
}

func New(cfg Config) (*core.Service, error) {
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = DefaultConfig().Scopes
	}

	descriptor := core.NewDescriptor(ServiceID, "Google")
	descriptor.CreateAccountURL = "https://accounts.google.com/SignUp"
	descriptor.SupportsReauthorization = true
	descriptor.SupportsVerification = true

	return providers.NewOAuth2Service(providers.OAuth2ServiceConfig{
		Descriptor:     descriptor,
		ClientID:       cfg.ClientID,
		ClientSecret:   cfg.ClientSecret,
		Scopes:         cfg.Scopes,
		AuthorizeURL:   AuthorizeURL,
		RedirectURL:    cfg.RedirectURL,
		AccessTokenURL: AccessTokenURL,
		UserInfoURL:    PeopleMeURL,
		UserInfoParams: map[string]string{"fields": "url,id"},
		UsernamePath:   "id",
		Signing:        providers.SigningBearerHeader,
		VerificationProbe: &core.VerificationProbe{
			Method:        http.MethodGet,
			URL:           PeopleMeURL,
			Params:        map[string]string{"fields": "url,id"},
			ExpectedField: "id",
		},
		HTTPClient:     cfg.HTTPClient,
		RequestTimeout: cfg.RequestTimeout,
		Now:            cfg.Now,
		Options:        cfg.Options,
	})
}
