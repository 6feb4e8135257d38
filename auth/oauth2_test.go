package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-social/core"
)

func testConfig(t *testing.T, overrides func(*OAuth2Config)) OAuth2Config {
	t.Helper()
	cfg := OAuth2Config{
		ClientID:       "client_1",
		ClientSecret:   "secret_1",
		Scopes:         []string{"read", "write"},
		AuthorizeURL:   "https://provider.example.com/oauth/authorize",
		RedirectURL:    "https://app.example.com/callback",
		AccessTokenURL: "https://provider.example.com/oauth/token",
		UsernameResolver: core.UsernameResolverFunc(func(_ context.Context, properties map[string]string) (string, error) {
			return "alice", nil
		}),
	}
	if overrides != nil {
		overrides(&cfg)
	}
	return cfg
}

func awaitOutcome(t *testing.T, authenticator *OAuth2) core.Outcome {
	t.Helper()
	select {
	case outcome := <-authenticator.Done():
		return outcome
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for outcome")
		return core.Outcome{}
	}
}

func TestOAuth2Config_Validate(t *testing.T) {
	valid := testConfig(t, nil)
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid config: %v", err)
	}

	tests := []struct {
		name      string
		overrides func(*OAuth2Config)
	}{
		{name: "missing client id", overrides: func(c *OAuth2Config) { c.ClientID = "" }},
		{name: "missing client secret", overrides: func(c *OAuth2Config) { c.ClientSecret = "" }},
		{name: "missing authorize url", overrides: func(c *OAuth2Config) { c.AuthorizeURL = "" }},
		{name: "missing redirect url", overrides: func(c *OAuth2Config) { c.RedirectURL = "" }},
		{name: "missing token url", overrides: func(c *OAuth2Config) { c.AccessTokenURL = "" }},
		{name: "missing resolver", overrides: func(c *OAuth2Config) { c.UsernameResolver = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t, tt.overrides)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation failure")
			}
		})
	}
}

func TestOAuth2_AuthorizationURL(t *testing.T) {
	authenticator, err := NewOAuth2(testConfig(t, nil))
	if err != nil {
		t.Fatalf("new authenticator: %v", err)
	}

	rawURL, err := authenticator.AuthorizationURL()
	if err != nil {
		t.Fatalf("authorization url: %v", err)
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		t.Fatalf("parse authorization url: %v", err)
	}
	query := parsed.Query()
	if query.Get("client_id") != "client_1" {
		t.Fatalf("expected client_id, got %q", rawURL)
	}
	if query.Get("redirect_uri") != "https://app.example.com/callback" {
		t.Fatalf("expected redirect_uri, got %q", rawURL)
	}
	if query.Get("response_type") != "code" {
		t.Fatalf("expected response_type=code, got %q", rawURL)
	}
	if query.Get("scope") != "read write" {
		t.Fatalf("expected space-joined scopes, got %q", query.Get("scope"))
	}
	if authenticator.State() != StateAwaitingCode {
		t.Fatalf("expected awaiting code state, got %q", authenticator.State())
	}
}

func TestOAuth2_AuthorizationURLScopeJoiner(t *testing.T) {
	authenticator, err := NewOAuth2(testConfig(t, func(c *OAuth2Config) {
		c.ScopeJoiner = ","
	}))
	if err != nil {
		t.Fatalf("new authenticator: %v", err)
	}
	rawURL, err := authenticator.AuthorizationURL()
	if err != nil {
		t.Fatalf("authorization url: %v", err)
	}
	parsed, _ := url.Parse(rawURL)
	if parsed.Query().Get("scope") != "read,write" {
		t.Fatalf("expected comma-joined scopes, got %q", parsed.Query().Get("scope"))
	}
}

func TestOAuth2_HandleRedirectIgnoresForeignURLs(t *testing.T) {
	authenticator, err := NewOAuth2(testConfig(t, nil))
	if err != nil {
		t.Fatalf("new authenticator: %v", err)
	}
	if _, err := authenticator.AuthorizationURL(); err != nil {
		t.Fatalf("authorization url: %v", err)
	}

	authenticator.HandleRedirect(context.Background(), "https://provider.example.com/intermediate?step=2")

	if authenticator.State() != StateAwaitingCode {
		t.Fatalf("expected foreign navigation to be ignored, state %q", authenticator.State())
	}
	select {
	case outcome := <-authenticator.Done():
		t.Fatalf("unexpected outcome %#v", outcome)
	default:
	}
}

func TestOAuth2_HandleRedirectProviderError(t *testing.T) {
	authenticator, err := NewOAuth2(testConfig(t, nil))
	if err != nil {
		t.Fatalf("new authenticator: %v", err)
	}
	if _, err := authenticator.AuthorizationURL(); err != nil {
		t.Fatalf("authorization url: %v", err)
	}

	authenticator.HandleRedirect(
		context.Background(),
		"https://app.example.com/callback?error=access_denied&error_description=user+denied",
	)

	outcome := awaitOutcome(t, authenticator)
	if outcome.Err == nil || outcome.Authenticated {
		t.Fatalf("expected failed outcome, got %#v", outcome)
	}
	if !strings.Contains(outcome.Err.Error(), "user denied") {
		t.Fatalf("expected provider description in error, got %v", outcome.Err)
	}
	if authenticator.State() != StateFailed {
		t.Fatalf("expected failed state, got %q", authenticator.State())
	}
}

func TestOAuth2_HandleRedirectMissingCode(t *testing.T) {
	authenticator, err := NewOAuth2(testConfig(t, nil))
	if err != nil {
		t.Fatalf("new authenticator: %v", err)
	}
	if _, err := authenticator.AuthorizationURL(); err != nil {
		t.Fatalf("authorization url: %v", err)
	}

	authenticator.HandleRedirect(context.Background(), "https://app.example.com/callback?state=xyz")

	outcome := awaitOutcome(t, authenticator)
	if outcome.Err == nil {
		t.Fatalf("expected protocol error for missing code")
	}
}

func TestOAuth2_ExchangeHappyPathJSON(t *testing.T) {
	var gotForm url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		gotForm = r.PostForm
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"tok_1","refresh_token":"ref_1","expires_in":3600,"token_type":"bearer"}`))
	}))
	defer server.Close()

	var resolvedProperties map[string]string
	authenticator, err := NewOAuth2(testConfig(t, func(c *OAuth2Config) {
		c.AccessTokenURL = server.URL
		c.HTTPClient = server.Client()
		c.UsernameResolver = core.UsernameResolverFunc(func(_ context.Context, properties map[string]string) (string, error) {
			resolvedProperties = properties
			return "alice", nil
		})
	}))
	if err != nil {
		t.Fatalf("new authenticator: %v", err)
	}
	if _, err := authenticator.AuthorizationURL(); err != nil {
		t.Fatalf("authorization url: %v", err)
	}

	authenticator.HandleRedirect(context.Background(), "https://app.example.com/callback?code=code_1")

	outcome := awaitOutcome(t, authenticator)
	if outcome.Err != nil {
		t.Fatalf("unexpected error: %v", outcome.Err)
	}
	if !outcome.Authenticated || outcome.Account.Username != "alice" {
		t.Fatalf("unexpected outcome: %#v", outcome)
	}
	if outcome.Account.Property(core.PropAccessToken) != "tok_1" {
		t.Fatalf("expected access token on account")
	}
	if outcome.Account.Property("expires_in") != "3600" {
		t.Fatalf("expected numeric token values to keep wire form, got %q", outcome.Account.Property("expires_in"))
	}
	if resolvedProperties[core.PropAccessToken] != "tok_1" {
		t.Fatalf("expected resolver to see token properties")
	}
	wantForm := url.Values{
		"grant_type":    {"authorization_code"},
		"client_id":     {"client_1"},
		"client_secret": {"secret_1"},
		"code":          {"code_1"},
		"redirect_uri":  {"https://app.example.com/callback"},
	}
	if len(gotForm) != len(wantForm) {
		t.Fatalf("expected exactly the grant fields %v, got %v", wantForm, gotForm)
	}
	for key, want := range wantForm {
		if gotForm.Get(key) != want[0] {
			t.Fatalf("unexpected %s=%q in token request", key, gotForm.Get(key))
		}
	}
	if authenticator.State() != StateAuthenticated {
		t.Fatalf("expected authenticated state, got %q", authenticator.State())
	}
}

func TestOAuth2_ExchangeMissingAccessToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"token_type":"bearer"}`))
	}))
	defer server.Close()

	authenticator, err := NewOAuth2(testConfig(t, func(c *OAuth2Config) {
		c.AccessTokenURL = server.URL
		c.HTTPClient = server.Client()
	}))
	if err != nil {
		t.Fatalf("new authenticator: %v", err)
	}
	if _, err := authenticator.AuthorizationURL(); err != nil {
		t.Fatalf("authorization url: %v", err)
	}

	authenticator.HandleRedirect(context.Background(), "https://app.example.com/callback?code=code_1")

	outcome := awaitOutcome(t, authenticator)
	if outcome.Err == nil || outcome.Authenticated {
		t.Fatalf("expected failed outcome, got %#v", outcome)
	}
	var envelope *goerrors.Error
	if !goerrors.As(outcome.Err, &envelope) || envelope.TextCode != core.SocialErrorProtocol {
		t.Fatalf("expected protocol error, got %v", outcome.Err)
	}
	if authenticator.State() != StateFailed {
		t.Fatalf("expected failed state, got %q", authenticator.State())
	}
}

func TestOAuth2_ExchangeFormEncodedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-www-form-urlencoded")
		w.Write([]byte("access_token=tok_1&token_type=bearer"))
	}))
	defer server.Close()

	authenticator, err := NewOAuth2(testConfig(t, func(c *OAuth2Config) {
		c.AccessTokenURL = server.URL
		c.HTTPClient = server.Client()
	}))
	if err != nil {
		t.Fatalf("new authenticator: %v", err)
	}
	if _, err := authenticator.AuthorizationURL(); err != nil {
		t.Fatalf("authorization url: %v", err)
	}

	authenticator.HandleRedirect(context.Background(), "https://app.example.com/callback?code=code_1")

	outcome := awaitOutcome(t, authenticator)
	if outcome.Err != nil || !outcome.Authenticated {
		t.Fatalf("unexpected outcome: %#v", outcome)
	}
	if outcome.Account.Property(core.PropAccessToken) != "tok_1" {
		t.Fatalf("expected form-encoded token to parse")
	}
}

func TestOAuth2_ExchangeTokenEndpointError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"invalid_grant","error_description":"code expired"}`))
	}))
	defer server.Close()

	authenticator, err := NewOAuth2(testConfig(t, func(c *OAuth2Config) {
		c.AccessTokenURL = server.URL
		c.HTTPClient = server.Client()
	}))
	if err != nil {
		t.Fatalf("new authenticator: %v", err)
	}
	if _, err := authenticator.AuthorizationURL(); err != nil {
		t.Fatalf("authorization url: %v", err)
	}

	authenticator.HandleRedirect(context.Background(), "https://app.example.com/callback?code=code_1")

	outcome := awaitOutcome(t, authenticator)
	if outcome.Err == nil {
		t.Fatalf("expected token endpoint error")
	}
	if !strings.Contains(outcome.Err.Error(), "code expired") {
		t.Fatalf("expected provider description in error, got %v", outcome.Err)
	}
}

func TestOAuth2_CancelDeliversSingleOutcome(t *testing.T) {
	authenticator, err := NewOAuth2(testConfig(t, nil))
	if err != nil {
		t.Fatalf("new authenticator: %v", err)
	}
	if _, err := authenticator.AuthorizationURL(); err != nil {
		t.Fatalf("authorization url: %v", err)
	}

	authenticator.Cancel()
	authenticator.Cancel()

	outcome := awaitOutcome(t, authenticator)
	if !outcome.Canceled() {
		t.Fatalf("expected canceled outcome, got %#v", outcome)
	}
	select {
	case extra := <-authenticator.Done():
		t.Fatalf("expected single outcome, got extra %#v", extra)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestOAuth2_RedirectAfterTerminalIsIgnored(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"tok_1"}`))
	}))
	defer server.Close()

	authenticator, err := NewOAuth2(testConfig(t, func(c *OAuth2Config) {
		c.AccessTokenURL = server.URL
		c.HTTPClient = server.Client()
	}))
	if err != nil {
		t.Fatalf("new authenticator: %v", err)
	}
	if _, err := authenticator.AuthorizationURL(); err != nil {
		t.Fatalf("authorization url: %v", err)
	}

	authenticator.Cancel()
	authenticator.HandleRedirect(context.Background(), "https://app.example.com/callback?code=code_1")

	outcome := awaitOutcome(t, authenticator)
	if !outcome.Canceled() {
		t.Fatalf("expected cancellation to stick, got %#v", outcome)
	}
	if authenticator.State() != StateCanceled {
		t.Fatalf("expected canceled state, got %q", authenticator.State())
	}
}

func TestOAuth2_ConcurrentCancelAndRedirect(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"tok_1"}`))
	}))
	defer server.Close()

	for i := 0; i < 20; i++ {
		authenticator, err := NewOAuth2(testConfig(t, func(c *OAuth2Config) {
			c.AccessTokenURL = server.URL
			c.HTTPClient = server.Client()
		}))
		if err != nil {
			t.Fatalf("new authenticator: %v", err)
		}
		if _, err := authenticator.AuthorizationURL(); err != nil {
			t.Fatalf("authorization url: %v", err)
		}

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			authenticator.Cancel()
		}()
		go func() {
			defer wg.Done()
			authenticator.HandleRedirect(context.Background(), "https://app.example.com/callback?code=code_1")
		}()
		wg.Wait()

		outcome := awaitOutcome(t, authenticator)
		if outcome.Err != nil && !outcome.Canceled() {
			t.Fatalf("unexpected error outcome: %#v", outcome)
		}
		select {
		case extra := <-authenticator.Done():
			t.Fatalf("expected single outcome, got extra %#v", extra)
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestOAuth2_RefreshAccessToken(t *testing.T) {
	var gotForm url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		gotForm = r.PostForm
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"tok_2","expires_in":3600}`))
	}))
	defer server.Close()

	authenticator, err := NewOAuth2(testConfig(t, func(c *OAuth2Config) {
		c.AccessTokenURL = server.URL
		c.HTTPClient = server.Client()
	}))
	if err != nil {
		t.Fatalf("new authenticator: %v", err)
	}

	tokens, err := authenticator.RefreshAccessToken(context.Background(), "ref_1")
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if tokens[core.PropAccessToken] != "tok_2" || tokens["expires_in"] != "3600" {
		t.Fatalf("unexpected tokens: %v", tokens)
	}
	wantForm := url.Values{
		"grant_type":    {"refresh_token"},
		"client_id":     {"client_1"},
		"client_secret": {"secret_1"},
		"refresh_token": {"ref_1"},
	}
	if len(gotForm) != len(wantForm) {
		t.Fatalf("expected exactly the refresh grant fields %v, got %v", wantForm, gotForm)
	}
	for key, want := range wantForm {
		if gotForm.Get(key) != want[0] {
			t.Fatalf("unexpected %s=%q in refresh request", key, gotForm.Get(key))
		}
	}
	if authenticator.State() != StateIdle {
		t.Fatalf("expected refresh to leave interactive state untouched, got %q", authenticator.State())
	}
}

func TestOAuth2_RefreshAccessTokenRequiresToken(t *testing.T) {
	authenticator, err := NewOAuth2(testConfig(t, nil))
	if err != nil {
		t.Fatalf("new authenticator: %v", err)
	}
	if _, err := authenticator.RefreshAccessToken(context.Background(), "  "); err != core.ErrMissingRefreshToken {
		t.Fatalf("expected missing refresh token sentinel, got %v", err)
	}
}

func TestParseTokenMap_FallbackWithoutContentType(t *testing.T) {
	tokens, err := parseTokenMap([]byte(`{"access_token":"tok"}`), "")
	if err != nil {
		t.Fatalf("json fallback: %v", err)
	}
	if tokens["access_token"] != "tok" {
		t.Fatalf("unexpected tokens: %v", tokens)
	}

	tokens, err = parseTokenMap([]byte("access_token=tok&scope=read"), "")
	if err != nil {
		t.Fatalf("form fallback: %v", err)
	}
	if tokens["access_token"] != "tok" || tokens["scope"] != "read" {
		t.Fatalf("unexpected tokens: %v", tokens)
	}
}
