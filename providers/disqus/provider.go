// Package disqus adapts Disqus OAuth2 to a social service. Disqus signs API
// calls via query parameters and wants comma-joined scopes.
package disqus

import (
	"net/http"
	"time"

	"github.com/goliatone/go-social/core"
	"github.com/goliatone/go-social/providers"
)

const (
	ServiceID      = "disqus"
	AuthorizeURL   = "https://disqus.com/api/oauth/2.0/authorize/"
	AccessTokenURL = "https://disqus.com/api/oauth/2.0/access_token/"
	UserDetailsURL = "https://disqus.com/api/3.0/users/details.json"
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
		Scopes: []string{"read", "write"},
	}
}

// New builds the Disqus service. API requests are signed with both the
// account access_token and the application api_key, matching what the
// Disqus API expects on every call.
func New(cfg Config) (*core.Service, error) {
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = DefaultConfig().Scopes
	}

	descriptor := core.NewDescriptor(ServiceID, "Disqus")
	descriptor.CreateAccountURL = "https://disqus.com"
	descriptor.SupportsReauthorization = true
	descriptor.SupportsVerification = true

	return providers.NewOAuth2Service(providers.OAuth2ServiceConfig{
		Descriptor:     descriptor,
		ClientID:       cfg.ClientID,
		ClientSecret:   cfg.ClientSecret,
		Scopes:         cfg.Scopes,
		ScopeJoiner:    ",",
		AuthorizeURL:   AuthorizeURL,
		RedirectURL:    cfg.RedirectURL,
		AccessTokenURL: AccessTokenURL,
		UserInfoURL:    UserDetailsURL,
		UsernamePath:   "response.id",
		Signing:        providers.SigningAccessTokenQuery,
		ExtraQuerySigners: []core.URLSigner{
			core.APIKeyQuerySigner{Param: "api_key", Key: cfg.ClientID},
		},
		VerificationProbe: &core.VerificationProbe{
			Method:        http.MethodGet,
			URL:           UserDetailsURL,
			ExpectedField: "response.id",
		},
		HTTPClient:     cfg.HTTPClient,
		RequestTimeout: cfg.RequestTimeout,
		Now:            cfg.Now,
		Options:        cfg.Options,
	})
}
