package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-social/core"
)

type AuthenticateCommand struct {
	resolver core.ServiceResolver
}

func NewAuthenticateCommand(resolver core.ServiceResolver) *AuthenticateCommand {
	return &AuthenticateCommand{resolver: resolver}
}

func (c *AuthenticateCommand) Execute(ctx context.Context, msg AuthenticateMessage) error {
	if c == nil || c.resolver == nil {
		return commandDependencyError("command: service resolver is required")
	}
	service, err := c.resolver.ResolveService(msg.ServiceID)
	if err != nil {
		return err
	}
	accounts, err := service.Authenticate(ctx)
	if err != nil {
		return err
	}
	storeResult(ctx, accounts)
	return nil
}

type ReauthorizeCommand struct {
	resolver core.ServiceResolver
}

func NewReauthorizeCommand(resolver core.ServiceResolver) *ReauthorizeCommand {
	return &ReauthorizeCommand{resolver: resolver}
}

func (c *ReauthorizeCommand) Execute(ctx context.Context, msg ReauthorizeMessage) error {
	if c == nil || c.resolver == nil {
		return commandDependencyError("command: service resolver is required")
	}
	service, err := c.resolver.ResolveService(msg.ServiceID)
	if err != nil {
		return err
	}
	refreshed, err := service.Reauthorize(ctx, msg.Account)
	if err != nil {
		return err
	}
	storeResult(ctx, refreshed)
	return nil
}

type VerifyCommand struct {
	resolver core.ServiceResolver
}

func NewVerifyCommand(resolver core.ServiceResolver) *VerifyCommand {
	return &VerifyCommand{resolver: resolver}
}

func (c *VerifyCommand) Execute(ctx context.Context, msg VerifyMessage) error {
	if c == nil || c.resolver == nil {
		return commandDependencyError("command: service resolver is required")
	}
	service, err := c.resolver.ResolveService(msg.ServiceID)
	if err != nil {
		return err
	}
	return service.Verify(ctx, msg.Account)
}

type SaveAccountCommand struct {
	resolver core.ServiceResolver
}

func NewSaveAccountCommand(resolver core.ServiceResolver) *SaveAccountCommand {
	return &SaveAccountCommand{resolver: resolver}
}

func (c *SaveAccountCommand) Execute(ctx context.Context, msg SaveAccountMessage) error {
	if c == nil || c.resolver == nil {
		return commandDependencyError("command: service resolver is required")
	}
	service, err := c.resolver.ResolveService(msg.ServiceID)
	if err != nil {
		return err
	}
	return service.SaveAccount(ctx, msg.Account)
}

type DeleteAccountCommand struct {
	resolver core.ServiceResolver
}

func NewDeleteAccountCommand(resolver core.ServiceResolver) *DeleteAccountCommand {
	return &DeleteAccountCommand{resolver: resolver}
}

func (c *DeleteAccountCommand) Execute(ctx context.Context, msg DeleteAccountMessage) error {
	if c == nil || c.resolver == nil {
		return commandDependencyError("command: service resolver is required")
	}
	service, err := c.resolver.ResolveService(msg.ServiceID)
	if err != nil {
		return err
	}
	return service.DeleteAccount(ctx, msg.Account)
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
