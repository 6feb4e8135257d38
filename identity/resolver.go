// Package identity turns freshly exchanged token credentials into the
// provider-side username that keys the stored account.
package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-social/core"
)

var ErrUsernameNotFound = errors.New("identity: username not found")

type UsernameNotFoundError struct {
	Path  string
	Cause error
}

func (e *UsernameNotFoundError) Error() string {
	if e == nil {
		return ErrUsernameNotFound.Error()
	}
	message := ErrUsernameNotFound.Error()
	if strings.TrimSpace(e.Path) != "" {
		message += " at path " + strings.TrimSpace(e.Path)
	}
	if e.Cause != nil {
		message += ": " + e.Cause.Error()
	}
	return message
}

func (e *UsernameNotFoundError) Unwrap() error {
	if e == nil || e.Cause == nil {
		return ErrUsernameNotFound
	}
	return errors.Join(ErrUsernameNotFound, e.Cause)
}

func (e *UsernameNotFoundError) ToSocialError() *goerrors.Error {
	message := ErrUsernameNotFound.Error()
	if e != nil {
		message = e.Error()
	}
	return goerrors.New(message, goerrors.CategoryExternal).
		WithCode(http.StatusBadGateway).
		WithTextCode(core.SocialErrorProvider)
}

func usernameNotFound(path string, cause error) error {
	return &UsernameNotFoundError{Path: path, Cause: cause}
}

// RequestFactory builds the signed userinfo request for one resolution
// attempt. The properties are the raw token map from the exchange; the
// factory wraps them in a transient account so the provider signer can use
// the access token.
type RequestFactory func(ctx context.Context, properties map[string]string) (*core.Request, error)

// HTTPResolver issues the provider's userinfo call and extracts the username
// from a JSON path in the response ("response.id", "id", ...).
type HTTPResolver struct {
	requestFactory RequestFactory
	path           string
}

func NewHTTPResolver(factory RequestFactory, path string) (*HTTPResolver, error) {
	if factory == nil {
		return nil, fmt.Errorf("identity: request factory is required")
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("identity: username json path is required")
	}
	return &HTTPResolver{
		requestFactory: factory,
		path:           path,
	}, nil
}

func (r *HTTPResolver) Resolve(ctx context.Context, properties map[string]string) (string, error) {
	if r == nil {
		return "", fmt.Errorf("identity: resolver is nil")
	}
	if strings.TrimSpace(properties[core.PropAccessToken]) == "" {
		return "", fmt.Errorf("identity: access token is required to resolve username")
	}

	request, err := r.requestFactory(ctx, properties)
	if err != nil {
		return "", err
	}
	if request == nil {
		return "", fmt.Errorf("identity: request factory returned a nil request")
	}

	response, err := request.Execute(ctx)
	if err != nil {
		return "", err
	}

	username, found, err := core.ExtractJSONPath(response.Body, r.path)
	if err != nil {
		return "", usernameNotFound(r.path, err)
	}
	if !found || strings.TrimSpace(username) == "" {
		return "", usernameNotFound(r.path, nil)
	}
	return strings.TrimSpace(username), nil
}

var _ core.UsernameResolver = (*HTTPResolver)(nil)
