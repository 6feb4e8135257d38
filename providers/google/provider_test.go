package google

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/goliatone/go-social/core"
)

func newGoogleService(t *testing.T) *core.Service {
	t.Helper()
	service, err := New(Config{
		ClientID:     "client_1",
		ClientSecret: "secret_1",
		RedirectURL:  "https://app.example.com/callback",
	})
	if err != nil {
		t.Fatalf("new google service: %v", err)
	}
	return service
}

func TestNew_Descriptor(t *testing.T) {
	service := newGoogleService(t)
	descriptor := service.Descriptor()

	if descriptor.ServiceID != ServiceID || descriptor.Title != "Google" {
		t.Fatalf("unexpected descriptor identity: %#v", descriptor)
	}
	if !descriptor.SupportsReauthorization || !descriptor.SupportsVerification {
		t.Fatalf("expected reauthorization and verification support: %#v", descriptor)
	}
	if descriptor.CreateAccountURL != "https://accounts.google.com/SignUp" {
		t.Fatalf("unexpected create account url %q", descriptor.CreateAccountURL)
	}
}

func TestNew_AuthorizeURLCarriesDefaultScope(t *testing.T) {
	service := newGoogleService(t)

	authenticator, err := service.AuthenticateUI(nil)
	if err != nil {
		t.Fatalf("authenticate ui: %v", err)
	}
	defer authenticator.Cancel()

	rawURL, err := authenticator.AuthorizationURL()
	if err != nil {
		t.Fatalf("authorization url: %v", err)
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		t.Fatalf("parse authorization url: %v", err)
	}
	if got := parsed.Query().Get("scope"); got != "https://www.googleapis.com/auth/plus.login" {
		t.Fatalf("unexpected scope %q", got)
	}
	if parsed.Host != "accounts.google.com" {
		t.Fatalf("unexpected authorize host %q", parsed.Host)
	}
}

func TestNew_RequestsAreNotQuerySigned(t *testing.T) {
	service := newGoogleService(t)

	account := core.NewAccount("u_123", map[string]string{core.PropAccessToken: "tok_1"})
	request := service.CreateRequest(http.MethodGet, PeopleMeURL, map[string]string{"fields": "url,id"}, &account)
	prepared, err := request.PreparedURL()
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}
	query := prepared.Query()
	if query.Get("access_token") != "" {
		t.Fatalf("expected bearer signing without query token, got %q", prepared)
	}
	if query.Get("fields") != "url,id" {
		t.Fatalf("expected request params in query, got %q", prepared)
	}
}
