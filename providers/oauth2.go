package providers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/goliatone/go-social/auth"
	"github.com/goliatone/go-social/core"
	"github.com/goliatone/go-social/identity"
)

// SigningMode selects how API requests carry the account credentials.
type SigningMode string

const (
	// SigningBearerHeader puts the access token in the Authorization header.
	SigningBearerHeader SigningMode = "bearer_header"
	// SigningAccessTokenQuery appends access_token as a query parameter.
	SigningAccessTokenQuery SigningMode = "access_token_query"
)

// OAuth2ServiceConfig is the single template behind every OAuth2-backed
// provider adapter: endpoints, scopes, signing mode, and the userinfo lookup
// that names the account.
type OAuth2ServiceConfig struct {
	Descriptor     core.Descriptor
	ClientID       string
	ClientSecret   string
	Scopes         []string
	ScopeJoiner    string
	AuthorizeURL   string
	RedirectURL    string
	AccessTokenURL string

	// Userinfo lookup resolving the username after the code exchange.
	UserInfoURL    string
	UserInfoParams map[string]string
	UsernamePath   string

	Signing SigningMode
	// ExtraQuerySigners run after the access-token signer, e.g. a fixed
	// api_key parameter.
	ExtraQuerySigners []core.URLSigner

	VerificationProbe *core.VerificationProbe

	HTTPClient     core.HTTPDoer
	RequestTimeout time.Duration
	Now            func() time.Time

	// Options are appended to the generated service options, so callers can
	// override the store, logger, or anything else.
	Options []core.Option
}

func (c OAuth2ServiceConfig) validate() error {
	if strings.TrimSpace(c.ClientID) == "" {
		return fmt.Errorf("providers: client id is required")
	}
	if strings.TrimSpace(c.ClientSecret) == "" {
		return fmt.Errorf("providers: client secret is required")
	}
	if strings.TrimSpace(c.AuthorizeURL) == "" {
		return fmt.Errorf("providers: authorize url is required")
	}
	if strings.TrimSpace(c.RedirectURL) == "" {
		return fmt.Errorf("providers: redirect url is required")
	}
	if strings.TrimSpace(c.AccessTokenURL) == "" {
		return fmt.Errorf("providers: access token url is required")
	}
	if strings.TrimSpace(c.UserInfoURL) == "" {
		return fmt.Errorf("providers: userinfo url is required")
	}
	if strings.TrimSpace(c.UsernamePath) == "" {
		return fmt.Errorf("providers: username json path is required")
	}
	return nil
}

// NewOAuth2Service wires a full *core.Service out of the template: request
// signing, the authenticator factory, and the username resolver against the
// provider's userinfo endpoint.
func NewOAuth2Service(cfg OAuth2ServiceConfig) (*core.Service, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if err := cfg.Descriptor.Validate(); err != nil {
		return nil, err
	}

	// The resolver and the authenticator factory both close over svc; it is
	// assigned before either closure can run.
	var svc *core.Service

	resolver, err := identity.NewHTTPResolver(
		func(_ context.Context, properties map[string]string) (*core.Request, error) {
			account := core.NewAccount("", properties)
			return svc.CreateRequest(http.MethodGet, cfg.UserInfoURL, cfg.UserInfoParams, &account), nil
		},
		cfg.UsernamePath,
	)
	if err != nil {
		return nil, err
	}

	factory := func() (core.Authenticator, error) {
		return auth.NewOAuth2(auth.OAuth2Config{
			ClientID:         cfg.ClientID,
			ClientSecret:     cfg.ClientSecret,
			Scopes:           cfg.Scopes,
			ScopeJoiner:      cfg.ScopeJoiner,
			AuthorizeURL:     cfg.AuthorizeURL,
			RedirectURL:      cfg.RedirectURL,
			AccessTokenURL:   cfg.AccessTokenURL,
			UsernameResolver: resolver,
			HTTPClient:       cfg.HTTPClient,
			RequestTimeout:   cfg.RequestTimeout,
			Now:              cfg.Now,
		})
	}

	options := []core.Option{
		core.WithAuthenticatorFactory(factory),
		core.WithUsernameResolver(resolver),
	}
	switch cfg.Signing {
	case SigningAccessTokenQuery:
		signers := core.MultiURLSigner{core.AccessTokenQuerySigner{}}
		signers = append(signers, cfg.ExtraQuerySigners...)
		options = append(options, core.WithURLSigner(signers))
	default:
		options = append(options, core.WithSigner(core.BearerTokenSigner{}))
		if len(cfg.ExtraQuerySigners) > 0 {
			options = append(options, core.WithURLSigner(core.MultiURLSigner(cfg.ExtraQuerySigners)))
		}
	}
	if cfg.VerificationProbe != nil {
		options = append(options, core.WithVerificationProbe(*cfg.VerificationProbe))
	}
	if cfg.HTTPClient != nil {
		options = append(options, core.WithHTTPClient(cfg.HTTPClient))
	}
	if cfg.Now != nil {
		options = append(options, core.WithClock(cfg.Now))
	}
	options = append(options, cfg.Options...)

	svc, err = core.NewService(cfg.Descriptor, options...)
	if err != nil {
		return nil, err
	}
	return svc, nil
}
