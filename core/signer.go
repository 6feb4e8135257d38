package core

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// BearerTokenSigner signs requests with the account's access token in the
// Authorization header. This is the default for OAuth2-backed providers.
type BearerTokenSigner struct{}

func (BearerTokenSigner) Sign(_ context.Context, req *http.Request, account Account) error {
	if req == nil {
		return fmt.Errorf("core: http request is required")
	}
	token := account.AccessToken()
	if token == "" {
		return fmt.Errorf("core: access token is required for bearer signing")
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}

// AccessTokenQuerySigner appends the account's access token as a query
// parameter. Param defaults to "access_token".
type AccessTokenQuerySigner struct {
	Param string
}

func (s AccessTokenQuerySigner) SignURL(u *url.URL, account Account) error {
	if u == nil {
		return fmt.Errorf("core: url is required for query signing")
	}
	token := account.AccessToken()
	if token == "" {
		return fmt.Errorf("core: access token is required for query signing")
	}
	param := strings.TrimSpace(s.Param)
	if param == "" {
		param = "access_token"
	}
	query := u.Query()
	query.Set(param, token)
	u.RawQuery = query.Encode()
	return nil
}

// APIKeyQuerySigner appends a fixed provider key as a query parameter on
// every signed request, independent of the account.
type APIKeyQuerySigner struct {
	Param string
	Key   string
}

func (s APIKeyQuerySigner) SignURL(u *url.URL, _ Account) error {
	if u == nil {
		return fmt.Errorf("core: url is required for query signing")
	}
	key := strings.TrimSpace(s.Key)
	if key == "" {
		return fmt.Errorf("core: api key is required for query signing")
	}
	param := strings.TrimSpace(s.Param)
	if param == "" {
		param = "api_key"
	}
	query := u.Query()
	query.Set(param, key)
	u.RawQuery = query.Encode()
	return nil
}

// MultiURLSigner applies signers in order; later signers see the output of
// earlier ones.
type MultiURLSigner []URLSigner

func (m MultiURLSigner) SignURL(u *url.URL, account Account) error {
	for _, signer := range m {
		if signer == nil {
			continue
		}
		if err := signer.SignURL(u, account); err != nil {
			return err
		}
	}
	return nil
}
