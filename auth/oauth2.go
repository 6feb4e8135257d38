// Package auth implements the interactive credential-acquisition flows.
// Every authenticator is single-use: it drives one attempt to exactly one
// terminal outcome and is then discarded.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-social/core"
)

const (
	defaultRequestTimeout = 30 * time.Second
	maxTokenBodyBytes     = 1 << 20 // 1 MiB
)

type State string

const (
	StateIdle          State = "idle"
	StateAwaitingCode  State = "awaiting_code"
	StateExchanging    State = "exchanging"
	StateAuthenticated State = "authenticated"
	StateFailed        State = "failed"
	StateCanceled      State = "canceled"
)

func (s State) Terminal() bool {
	switch s {
	case StateAuthenticated, StateFailed, StateCanceled:
		return true
	default:
		return false
	}
}

type OAuth2Config struct {
	ClientID     string
	ClientSecret string
	Scopes       []string
	// ScopeJoiner joins Scopes in the authorize URL. Defaults to a single
	// space; some providers want commas.
	ScopeJoiner      string
	AuthorizeURL     string
	RedirectURL      string
	AccessTokenURL   string
	UsernameResolver core.UsernameResolver
	HTTPClient       core.HTTPDoer
	RequestTimeout   time.Duration
	Now              func() time.Time
}

func (c OAuth2Config) Validate() error {
	if strings.TrimSpace(c.ClientID) == "" {
		return fmt.Errorf("auth: client id is required")
	}
	if strings.TrimSpace(c.ClientSecret) == "" {
		return fmt.Errorf("auth: client secret is required")
	}
	if strings.TrimSpace(c.AuthorizeURL) == "" {
		return fmt.Errorf("auth: authorize url is required")
	}
	if strings.TrimSpace(c.RedirectURL) == "" {
		return fmt.Errorf("auth: redirect url is required")
	}
	if strings.TrimSpace(c.AccessTokenURL) == "" {
		return fmt.Errorf("auth: access token url is required")
	}
	if c.UsernameResolver == nil {
		return fmt.Errorf("auth: username resolver is required")
	}
	return nil
}

// OAuth2 drives the authorization-code grant to a single terminal outcome.
// The UI presenter loads AuthorizationURL, reports every navigation through
// HandleRedirect, and calls Cancel when the user walks away. Done delivers
// exactly one Outcome no matter how the flow ends.
type OAuth2 struct {
	cfg        OAuth2Config
	httpClient core.HTTPDoer
	now        func() time.Time

	mu    sync.Mutex
	title string
	state State
	once  sync.Once
	done  chan core.Outcome
}

func NewOAuth2(cfg OAuth2Config) (*OAuth2, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cfg.ClientID = strings.TrimSpace(cfg.ClientID)
	cfg.ClientSecret = strings.TrimSpace(cfg.ClientSecret)
	cfg.AuthorizeURL = strings.TrimSpace(cfg.AuthorizeURL)
	cfg.RedirectURL = strings.TrimSpace(cfg.RedirectURL)
	cfg.AccessTokenURL = strings.TrimSpace(cfg.AccessTokenURL)
	if cfg.ScopeJoiner == "" {
		cfg.ScopeJoiner = " "
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}

	now := cfg.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.RequestTimeout}
	}

	return &OAuth2{
		cfg:        cfg,
		httpClient: httpClient,
		now:        now,
		state:      StateIdle,
		done:       make(chan core.Outcome, 1),
	}, nil
}

func (a *OAuth2) Title() string {
	if a == nil {
		return ""
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.title
}

func (a *OAuth2) SetTitle(title string) {
	if a == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.title = strings.TrimSpace(title)
}

func (a *OAuth2) State() State {
	if a == nil {
		return StateIdle
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

func (a *OAuth2) Done() <-chan core.Outcome {
	return a.done
}

// AuthorizationURL builds the provider authorize URL and arms the flow to
// accept redirects.
func (a *OAuth2) AuthorizationURL() (string, error) {
	if a == nil {
		return "", fmt.Errorf("auth: authenticator is nil")
	}

	values := url.Values{}
	values.Set("client_id", a.cfg.ClientID)
	values.Set("redirect_uri", a.cfg.RedirectURL)
	values.Set("response_type", "code")
	if scope := a.joinedScopes(); scope != "" {
		values.Set("scope", scope)
	}

	authorizeURL := a.cfg.AuthorizeURL
	if strings.Contains(authorizeURL, "?") {
		authorizeURL += "&" + values.Encode()
	} else {
		authorizeURL += "?" + values.Encode()
	}

	a.mu.Lock()
	if a.state == StateIdle {
		a.state = StateAwaitingCode
	}
	a.mu.Unlock()
	return authorizeURL, nil
}

func (a *OAuth2) joinedScopes() string {
	parts := make([]string, 0, len(a.cfg.Scopes))
	for _, scope := range a.cfg.Scopes {
		if trimmed := strings.TrimSpace(scope); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return strings.Join(parts, a.cfg.ScopeJoiner)
}

// HandleRedirect observes a navigation in the presented UI. Navigations
// outside the redirect URL are ignored, as is anything after a terminal
// outcome.
func (a *OAuth2) HandleRedirect(ctx context.Context, rawURL string) {
	if a == nil {
		return
	}
	rawURL = strings.TrimSpace(rawURL)
	if !strings.HasPrefix(rawURL, a.cfg.RedirectURL) {
		return
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return
	}
	query := parsed.Query()

	a.mu.Lock()
	if a.state.Terminal() || a.state == StateExchanging {
		a.mu.Unlock()
		return
	}
	if providerError := strings.TrimSpace(query.Get("error")); providerError != "" {
		a.state = StateFailed
		a.mu.Unlock()
		a.complete(core.Outcome{Err: core.SocialError("auth: authorization failed: %s", describeRedirectError(query))})
		return
	}
	code := strings.TrimSpace(query.Get("code"))
	if code == "" {
		a.state = StateFailed
		a.mu.Unlock()
		a.complete(core.Outcome{Err: core.ProtocolError("auth: authorization redirect is missing code")})
		return
	}
	a.state = StateExchanging
	a.mu.Unlock()

	a.exchangeCode(ctx, code)
}

func describeRedirectError(query url.Values) string {
	if description := strings.TrimSpace(query.Get("error_description")); description != "" {
		return description
	}
	return strings.TrimSpace(query.Get("error"))
}

func (a *OAuth2) exchangeCode(ctx context.Context, code string) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", a.cfg.RedirectURL)

	tokens, err := a.fetchToken(ctx, form)
	if err != nil {
		a.fail(err)
		return
	}

	username, err := a.cfg.UsernameResolver.Resolve(ctx, tokens)
	if err != nil {
		a.fail(err)
		return
	}
	if strings.TrimSpace(username) == "" {
		a.fail(core.SocialError("auth: username resolution returned an empty username"))
		return
	}

	account := core.NewAccount(username, tokens)
	a.mu.Lock()
	if a.state.Terminal() {
		a.mu.Unlock()
		return
	}
	a.state = StateAuthenticated
	a.mu.Unlock()
	a.complete(core.Outcome{Account: account, Authenticated: true})
}

func (a *OAuth2) fail(err error) {
	a.mu.Lock()
	if a.state.Terminal() {
		a.mu.Unlock()
		return
	}
	a.state = StateFailed
	a.mu.Unlock()
	a.complete(core.Outcome{Err: err})
}

// Cancel marks the flow canceled unless it already reached a terminal state.
func (a *OAuth2) Cancel() {
	if a == nil {
		return
	}
	a.mu.Lock()
	if a.state.Terminal() {
		a.mu.Unlock()
		return
	}
	a.state = StateCanceled
	a.mu.Unlock()
	a.complete(core.Outcome{Err: core.ErrCanceled})
}

func (a *OAuth2) complete(outcome core.Outcome) {
	a.once.Do(func() {
		a.done <- outcome
	})
}

// RefreshAccessToken runs the refresh_token grant and returns the raw token
// map. It never touches the interactive state machine, so it is usable on a
// fresh authenticator without presenting any UI.
func (a *OAuth2) RefreshAccessToken(ctx context.Context, refreshToken string) (map[string]string, error) {
	if a == nil {
		return nil, fmt.Errorf("auth: authenticator is nil")
	}
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return nil, core.ErrMissingRefreshToken
	}

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	return a.fetchToken(ctx, form)
}

func (a *OAuth2) fetchToken(ctx context.Context, form url.Values) (map[string]string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	values := url.Values{}
	for key, items := range form {
		for _, item := range items {
			values.Add(key, item)
		}
	}
	values.Set("client_id", a.cfg.ClientID)
	values.Set("client_secret", a.cfg.ClientSecret)

	requestCtx, cancel := context.WithTimeout(ctx, a.cfg.RequestTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(
		requestCtx,
		http.MethodPost,
		a.cfg.AccessTokenURL,
		strings.NewReader(values.Encode()),
	)
	if err != nil {
		return nil, fmt.Errorf("auth: building token request failed: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Accept", "application/json")

	response, err := a.httpClient.Do(httpReq)
	if err != nil {
		return nil, core.NetworkError(err, "auth: token request failed")
	}
	defer response.Body.Close()

	body, readErr := io.ReadAll(io.LimitReader(response.Body, maxTokenBodyBytes+1))
	if readErr != nil {
		return nil, core.NetworkError(readErr, "auth: reading token response failed")
	}
	if int64(len(body)) > maxTokenBodyBytes {
		return nil, core.ProtocolError("auth: token response exceeds %d bytes", maxTokenBodyBytes)
	}

	tokens, parseErr := parseTokenMap(body, response.Header.Get("Content-Type"))
	if parseErr != nil {
		return nil, parseErr
	}
	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		return nil, core.SocialError("auth: token endpoint error (%d): %s", response.StatusCode, describeTokenError(tokens))
	}
	if strings.TrimSpace(tokens["error"]) != "" {
		return nil, core.SocialError("auth: token endpoint error: %s", describeTokenError(tokens))
	}
	if strings.TrimSpace(tokens[core.PropAccessToken]) == "" {
		return nil, core.ProtocolError("auth: token response is missing access_token")
	}
	return tokens, nil
}

func describeTokenError(tokens map[string]string) string {
	if description := strings.TrimSpace(tokens["error_description"]); description != "" {
		return description
	}
	if code := strings.TrimSpace(tokens["error"]); code != "" {
		return code
	}
	return "unknown error"
}

// parseTokenMap decodes a token endpoint response into a flat string map.
// Providers answer in JSON or x-www-form-urlencoded; both are accepted and
// every value keeps its wire form.
func parseTokenMap(body []byte, contentType string) (map[string]string, error) {
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	if strings.Contains(contentType, "json") {
		return parseTokenMapJSON(body)
	}
	if strings.Contains(contentType, "x-www-form-urlencoded") || strings.Contains(contentType, "text/plain") {
		return parseTokenMapForm(body)
	}
	if tokens, err := parseTokenMapJSON(body); err == nil {
		return tokens, nil
	}
	return parseTokenMapForm(body)
}

func parseTokenMapJSON(body []byte) (map[string]string, error) {
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil, core.ProtocolError("auth: token response is empty")
	}
	decoder := json.NewDecoder(strings.NewReader(string(body)))
	decoder.UseNumber()
	var decoded map[string]any
	if err := decoder.Decode(&decoded); err != nil {
		return nil, core.ProtocolError("auth: token response is not valid json: %v", err)
	}

	tokens := make(map[string]string, len(decoded))
	for key, value := range decoded {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		tokens[key] = stringifyTokenValue(value)
	}
	return tokens, nil
}

func parseTokenMapForm(body []byte) (map[string]string, error) {
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil, core.ProtocolError("auth: token response is empty")
	}
	values, err := url.ParseQuery(string(body))
	if err != nil {
		return nil, core.ProtocolError("auth: token response is not form-encoded: %v", err)
	}
	tokens := make(map[string]string, len(values))
	for key := range values {
		tokens[key] = strings.TrimSpace(values.Get(key))
	}
	return tokens, nil
}

func stringifyTokenValue(value any) string {
	switch typed := value.(type) {
	case string:
		return strings.TrimSpace(typed)
	case json.Number:
		return typed.String()
	case bool:
		return strconv.FormatBool(typed)
	case nil:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(typed))
	}
}

var (
	_ core.Authenticator  = (*OAuth2)(nil)
	_ core.TokenRefresher = (*OAuth2)(nil)
)
