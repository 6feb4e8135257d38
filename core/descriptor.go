package core

import (
	"fmt"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// Descriptor declares a provider's identity, capability flags, and sharing
// limits. ServiceID and Title are immutable after validation.
type Descriptor struct {
	ServiceID        string
	Title            string
	CreateAccountURL string

	SupportsAuthentication  bool
	SupportsReauthorization bool
	SupportsSave            bool
	SupportsDelete          bool
	SupportsVerification    bool

	// Sharing limits. Zero means unbounded.
	MaxTextLength int
	MaxLinks      int
	MaxImages     int
	MaxFiles      int
}

/// NewDescriptor returns a Descriptor with the default capability set:
// authentication, save, and delete enabled; reauthorization and verification
// opt-in per provider.
func NewDescriptor(serviceID, title string) Descriptor {
	return Descriptor{
		ServiceID:              strings.TrimSpace(serviceID),
		Title:                  strings.TrimSpace(title),
		SupportsAuthentication: true,
		SupportsSave:           true,
		SupportsDelete:         true,
	}
}

func (d Descriptor) Validate() error {
	if strings.TrimSpace(d.ServiceID) == "" {
		return descriptorValidationError("service_id", "service id must be a non-blank string")
	}
	if strings.TrimSpace(d.Title) == "" {
		return descriptorValidationError("title", "title must be a non-blank string")
	}
	if d.MaxTextLength < 0 || d.MaxLinks < 0 || d.MaxImages < 0 || d.MaxFiles < 0 {
		return descriptorValidationError("limits", "sharing limits must not be negative")
	}
	return nil
}

func (d Descriptor) HasMaxTextLength() bool {
	return d.MaxTextLength > 0
}

func descriptorValidationError(field, message string) error {
	return goerrors.NewValidation(
		fmt.Sprintf("core: invalid service descriptor: %s", message),
		goerrors.FieldError{Field: field, Message: message},
	).WithTextCode(SocialErrorValidation)
}
