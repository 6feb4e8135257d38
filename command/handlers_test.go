package command

import (
	"context"
	"fmt"
	"testing"

	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-social/core"
)

type stubSocialService struct {
	descriptor     core.Descriptor
	authenticateFn func(ctx context.Context) ([]core.Account, error)
	reauthorizeFn  func(ctx context.Context, account core.Account) (core.Account, error)
	verifyFn       func(ctx context.Context, account core.Account) error
	saveFn         func(ctx context.Context, account core.Account) error
	deleteFn       func(ctx context.Context, account core.Account) error
}

func (s *stubSocialService) Descriptor() core.Descriptor { return s.descriptor }

func (s *stubSocialService) Accounts(context.Context) ([]core.Account, error) {
	return nil, fmt.Errorf("accounts not configured")
}

func (s *stubSocialService) AuthenticateUI(func(*core.Account)) (core.Authenticator, error) {
	return nil, fmt.Errorf("authenticate ui not configured")
}

func (s *stubSocialService) Authenticate(ctx context.Context) ([]core.Account, error) {
	if s.authenticateFn == nil {
		return nil, fmt.Errorf("authenticate not configured")
	}
	return s.authenticateFn(ctx)
}

func (s *stubSocialService) Reauthorize(ctx context.Context, account core.Account) (core.Account, error) {
	if s.reauthorizeFn == nil {
		return core.Account{}, fmt.Errorf("reauthorize not configured")
	}
	return s.reauthorizeFn(ctx, account)
}

func (s *stubSocialService) AccessToken(context.Context, core.Account) (map[string]string, error) {
	return nil, fmt.Errorf("access token not configured")
}

func (s *stubSocialService) Verify(ctx context.Context, account core.Account) error {
	if s.verifyFn == nil {
		return fmt.Errorf("verify not configured")
	}
	return s.verifyFn(ctx, account)
}

func (s *stubSocialService) CreateRequest(method, rawURL string, params map[string]string, account *core.Account) *core.Request {
	return core.NewRequest(method, rawURL, params, account)
}

func (s *stubSocialService) SaveAccount(ctx context.Context, account core.Account) error {
	if s.saveFn == nil {
		return fmt.Errorf("save not configured")
	}
	return s.saveFn(ctx, account)
}

func (s *stubSocialService) DeleteAccount(ctx context.Context, account core.Account) error {
	if s.deleteFn == nil {
		return fmt.Errorf("delete not configured")
	}
	return s.deleteFn(ctx, account)
}

type stubResolver struct {
	service core.SocialService
	err     error
}

func (r stubResolver) ResolveService(string) (core.SocialService, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.service, nil
}

var _ core.SocialService = (*stubSocialService)(nil)

func TestAuthenticateCommand_StoresResult(t *testing.T) {
	expected := core.NewAccount("alice", map[string]string{core.PropAccessToken: "tok_1"})
	svc := &stubSocialService{
		authenticateFn: func(context.Context) ([]core.Account, error) {
			return []core.Account{expected}, nil
		},
	}

	cmd := NewAuthenticateCommand(stubResolver{service: svc})
	collector := gocmd.NewResult[[]core.Account]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)

	if err := cmd.Execute(ctx, AuthenticateMessage{ServiceID: "disqus"}); err != nil {
		t.Fatalf("execute authenticate: %v", err)
	}
	stored, ok := collector.Load()
	if !ok {
		t.Fatalf("expected result to be stored")
	}
	if len(stored) != 1 || stored[0].Username != "alice" {
		t.Fatalf("unexpected result: %#v", stored)
	}
}

func TestReauthorizeCommand_StoresRefreshedAccount(t *testing.T) {
	called := false
	svc := &stubSocialService{
		reauthorizeFn: func(_ context.Context, account core.Account) (core.Account, error) {
			called = true
			if account.Username != "alice" {
				t.Fatalf("unexpected account %q", account.Username)
			}
			return account.MergeProperties(map[string]string{core.PropAccessToken: "tok_2"}), nil
		},
	}

	cmd := NewReauthorizeCommand(stubResolver{service: svc})
	collector := gocmd.NewResult[core.Account]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)

	msg := ReauthorizeMessage{
		ServiceID: "disqus",
		Account:   core.NewAccount("alice", map[string]string{core.PropRefreshToken: "ref_1"}),
	}
	if err := cmd.Execute(ctx, msg); err != nil {
		t.Fatalf("execute reauthorize: %v", err)
	}
	if !called {
		t.Fatalf("expected reauthorize invocation")
	}
	stored, ok := collector.Load()
	if !ok {
		t.Fatalf("expected refreshed account result")
	}
	if stored.Property(core.PropAccessToken) != "tok_2" {
		t.Fatalf("unexpected result: %#v", stored)
	}
}

func TestMutationCommands_Delegate(t *testing.T) {
	t.Run("verify", func(t *testing.T) {
		called := false
		svc := &stubSocialService{
			verifyFn: func(_ context.Context, account core.Account) error {
				called = true
				return nil
			},
		}
		cmd := NewVerifyCommand(stubResolver{service: svc})
		msg := VerifyMessage{ServiceID: "disqus", Account: core.NewAccount("alice", nil)}
		if err := cmd.Execute(context.Background(), msg); err != nil {
			t.Fatalf("execute verify: %v", err)
		}
		if !called {
			t.Fatalf("expected verify invocation")
		}
	})

	t.Run("save account", func(t *testing.T) {
		called := false
		svc := &stubSocialService{
			saveFn: func(_ context.Context, account core.Account) error {
				called = true
				return nil
			},
		}
		cmd := NewSaveAccountCommand(stubResolver{service: svc})
		msg := SaveAccountMessage{ServiceID: "disqus", Account: core.NewAccount("alice", nil)}
		if err := cmd.Execute(context.Background(), msg); err != nil {
			t.Fatalf("execute save: %v", err)
		}
		if !called {
			t.Fatalf("expected save invocation")
		}
	})

	t.Run("delete account", func(t *testing.T) {
		called := false
		svc := &stubSocialService{
			deleteFn: func(_ context.Context, account core.Account) error {
				called = true
				return nil
			},
		}
		cmd := NewDeleteAccountCommand(stubResolver{service: svc})
		msg := DeleteAccountMessage{ServiceID: "disqus", Account: core.NewAccount("alice", nil)}
		if err := cmd.Execute(context.Background(), msg); err != nil {
			t.Fatalf("execute delete: %v", err)
		}
		if !called {
			t.Fatalf("expected delete invocation")
		}
	})
}

func TestCommands_PropagateResolverFailure(t *testing.T) {
	resolver := stubResolver{err: fmt.Errorf("unknown service")}
	if err := NewVerifyCommand(resolver).Execute(context.Background(), VerifyMessage{
		ServiceID: "nope",
		Account:   core.NewAccount("alice", nil),
	}); err == nil {
		t.Fatalf("expected resolver failure to propagate")
	}
}

func TestCommands_RequireResolver(t *testing.T) {
	var cmd *AuthenticateCommand
	if err := cmd.Execute(context.Background(), AuthenticateMessage{ServiceID: "disqus"}); err == nil {
		t.Fatalf("expected dependency error for nil command")
	}
	if err := NewAuthenticateCommand(nil).Execute(context.Background(), AuthenticateMessage{ServiceID: "disqus"}); err == nil {
		t.Fatalf("expected dependency error for missing resolver")
	}
}

func TestMessageValidation(t *testing.T) {
	tests := []struct {
		name    string
		msg     interface{ Validate() error }
		wantErr bool
	}{
		{name: "authenticate valid", msg: AuthenticateMessage{ServiceID: "disqus"}, wantErr: false},
		{name: "authenticate missing service", msg: AuthenticateMessage{}, wantErr: true},
		{
			name:    "reauthorize valid",
			msg:     ReauthorizeMessage{ServiceID: "disqus", Account: core.NewAccount("alice", nil)},
			wantErr: false,
		},
		{
			name:    "reauthorize missing username",
			msg:     ReauthorizeMessage{ServiceID: "disqus"},
			wantErr: true,
		},
		{
			name:    "verify missing service",
			msg:     VerifyMessage{Account: core.NewAccount("alice", nil)},
			wantErr: true,
		},
		{
			name:    "save valid",
			msg:     SaveAccountMessage{ServiceID: "disqus", Account: core.NewAccount("alice", nil)},
			wantErr: false,
		},
		{
			name:    "delete missing username",
			msg:     DeleteAccountMessage{ServiceID: "disqus"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.msg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
