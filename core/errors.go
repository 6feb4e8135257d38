package core

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	SocialErrorValidation  = "SOCIAL_VALIDATION"
	SocialErrorUnsupported = "SOCIAL_UNSUPPORTED_OPERATION"
	SocialErrorNetwork     = "SOCIAL_NETWORK_ERROR"
	SocialErrorHTTPStatus  = "SOCIAL_HTTP_STATUS"
	SocialErrorProtocol    = "SOCIAL_PROTOCOL_ERROR"
	SocialErrorProvider    = "SOCIAL_PROVIDER_ERROR"
	SocialErrorCanceled    = "SOCIAL_CANCELED"
	SocialErrorInternal    = "SOCIAL_INTERNAL_ERROR"
)

var (
	// ErrUnsupportedOperation marks a capability the provider does not
	// implement. Callers are expected to consult the descriptor flags first.
	ErrUnsupportedOperation = errors.New("core: operation not supported by this service")

	// ErrCanceled is the terminal non-error outcome of an abandoned
	// interactive flow.
	ErrCanceled = errors.New("core: authentication canceled")

	ErrMissingRefreshToken = errors.New("core: account has no refresh token")
)

// HTTPStatusError reports a non-2xx response surfaced to the caller. The
// core never retries these.
type HTTPStatusError struct {
	StatusCode int
	Body       []byte
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "core: http status error"
	}
	return fmt.Sprintf("core: http status %d", e.StatusCode)
}

// ProtocolError reports a malformed provider response, e.g. a token map
// without an access token.
func ProtocolError(format string, args ...any) error {
	return goerrors.New(fmt.Sprintf(format, args...), goerrors.CategoryExternal).
		WithCode(http.StatusBadGateway).
		WithTextCode(SocialErrorProtocol)
}

// SocialError reports a provider-specific semantic failure, e.g. a
// verification response of an unexpected shape.
func SocialError(format string, args ...any) error {
	return goerrors.New(fmt.Sprintf(format, args...), goerrors.CategoryExternal).
		WithCode(http.StatusBadGateway).
		WithTextCode(SocialErrorProvider)
}

// NetworkError wraps a transport-level failure.
func NetworkError(source error, message string) error {
	return goerrors.Wrap(source, goerrors.CategoryExternal, message).
		WithCode(http.StatusBadGateway).
		WithTextCode(SocialErrorNetwork)
}

func unsupportedOperation(serviceID, operation string) error {
	return goerrors.Wrap(
		ErrUnsupportedOperation,
		goerrors.CategoryOperation,
		fmt.Sprintf("core: %s does not support %s", serviceID, operation),
	).
		WithCode(http.StatusNotImplemented).
		WithTextCode(SocialErrorUnsupported).
		WithMetadata(map[string]any{"service_id": serviceID, "operation": operation})
}

func isCanceled(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrCanceled) {
		return true
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return strings.EqualFold(strings.TrimSpace(richErr.TextCode), SocialErrorCanceled)
	}
	return false
}

func socialErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureSocialErrorEnvelope(richErr)
	}

	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		category := goerrors.CategoryExternal
		switch statusErr.StatusCode {
		case http.StatusUnauthorized:
			category = goerrors.CategoryAuth
		case http.StatusForbidden:
			category = goerrors.CategoryAuthz
		case http.StatusTooManyRequests:
			category = goerrors.CategoryRateLimit
		}
		return goerrors.Wrap(err, category, err.Error()).
			WithCode(statusErr.StatusCode).
			WithTextCode(SocialErrorHTTPStatus)
	}

	switch {
	case errors.Is(err, ErrCanceled):
		return goerrors.Wrap(err, goerrors.CategoryOperation, err.Error()).
			WithCode(http.StatusConflict).
			WithTextCode(SocialErrorCanceled)
	case errors.Is(err, ErrUnsupportedOperation):
		return goerrors.Wrap(err, goerrors.CategoryOperation, err.Error()).
			WithCode(http.StatusNotImplemented).
			WithTextCode(SocialErrorUnsupported)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"), strings.Contains(msg, "non-blank"):
		return ensureSocialErrorEnvelope(
			goerrors.New(err.Error(), goerrors.CategoryBadInput).WithTextCode(SocialErrorValidation),
		)
	case strings.Contains(msg, "connection refused"), strings.Contains(msg, "timeout"), strings.Contains(msg, "no such host"):
		return ensureSocialErrorEnvelope(
			goerrors.Wrap(err, goerrors.CategoryExternal, err.Error()).WithTextCode(SocialErrorNetwork),
		)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureSocialErrorEnvelope(mapped)
}

func ensureSocialErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = socialHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultSocialTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultSocialTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return SocialErrorValidation
	case goerrors.CategoryOperation:
		return SocialErrorUnsupported
	case goerrors.CategoryExternal:
		return SocialErrorProvider
	default:
		return SocialErrorInternal
	}
}

func socialHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryRateLimit:
		return http.StatusTooManyRequests
	case goerrors.CategoryExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
