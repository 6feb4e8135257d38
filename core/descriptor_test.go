package core

import (
	"testing"

	goerrors "github.com/goliatone/go-errors"
)

func TestNewDescriptor_Defaults(t *testing.T) {
	descriptor := NewDescriptor("disqus", "Disqus")

	if descriptor.ServiceID != "disqus" || descriptor.Title != "Disqus" {
		t.Fatalf("unexpected identity: %#v", descriptor)
	}
	if !descriptor.SupportsAuthentication || !descriptor.SupportsSave || !descriptor.SupportsDelete {
		t.Fatalf("expected authentication, save, and delete enabled by default")
	}
	if descriptor.SupportsReauthorization || descriptor.SupportsVerification {
		t.Fatalf("expected reauthorization and verification to be opt-in")
	}
}

func TestDescriptor_Validate(t *testing.T) {
	tests := []struct {
		name       string
		descriptor Descriptor
		wantErr    bool
	}{
		{name: "valid", descriptor: NewDescriptor("disqus", "Disqus"), wantErr: false},
		{name: "blank service id", descriptor: NewDescriptor("  ", "Disqus"), wantErr: true},
		{name: "blank title", descriptor: NewDescriptor("disqus", ""), wantErr: true},
		{
			name: "negative limit",
			descriptor: Descriptor{
				ServiceID:     "disqus",
				Title:         "Disqus",
				MaxTextLength: -1,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.descriptor.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil {
				return
			}
			var richErr *goerrors.Error
			if !goerrors.As(err, &richErr) {
				t.Fatalf("expected structured validation error, got %T", err)
			}
			if richErr.TextCode != SocialErrorValidation {
				t.Fatalf("expected text code %q, got %q", SocialErrorValidation, richErr.TextCode)
			}
		})
	}
}

func TestDescriptor_HasMaxTextLength(t *testing.T) {
	unbounded := NewDescriptor("disqus", "Disqus")
	if unbounded.HasMaxTextLength() {
		t.Fatalf("expected zero max text length to mean unbounded")
	}
	bounded := unbounded
	bounded.MaxTextLength = 140
	if !bounded.HasMaxTextLength() {
		t.Fatalf("expected bounded descriptor to report a max text length")
	}
}
