// Package command exposes the account lifecycle mutations as go-command
// messages so hosts can route them through their command bus.
package command

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-social/core"
)

const (
	TypeAuthenticate  = "social.command.authenticate"
	TypeReauthorize   = "social.command.reauthorize"
	TypeVerify        = "social.command.verify"
	TypeSaveAccount   = "social.command.account.save"
	TypeDeleteAccount = "social.command.account.delete"
)

type AuthenticateMessage struct {
	ServiceID string
}

func (AuthenticateMessage) Type() string { return TypeAuthenticate }

func (m AuthenticateMessage) Validate() error {
	if strings.TrimSpace(m.ServiceID) == "" {
		return fmt.Errorf("command: service id is required")
	}
	return nil
}

type ReauthorizeMessage struct {
	ServiceID string
	Account   core.Account
}

func (ReauthorizeMessage) Type() string { return TypeReauthorize }

func (m ReauthorizeMessage) Validate() error {
	if strings.TrimSpace(m.ServiceID) == "" {
		return fmt.Errorf("command: service id is required")
	}
	if err := validateAccount(m.Account); err != nil {
		return err
	}
	return nil
}

type VerifyMessage struct {
	ServiceID string
	Account   core.Account
}

func (VerifyMessage) Type() string { return TypeVerify }

func (m VerifyMessage) Validate() error {
	if strings.TrimSpace(m.ServiceID) == "" {
		return fmt.Errorf("command: service id is required")
	}
	if err := validateAccount(m.Account); err != nil {
		return err
	}
	return nil
}

type SaveAccountMessage struct {
	ServiceID string
	Account   core.Account
}

func (SaveAccountMessage) Type() string { return TypeSaveAccount }

func (m SaveAccountMessage) Validate() error {
	if strings.TrimSpace(m.ServiceID) == "" {
		return fmt.Errorf("command: service id is required")
	}
	if err := validateAccount(m.Account); err != nil {
		return err
	}
	return nil
}

type DeleteAccountMessage struct {
	ServiceID string
	Account   core.Account
}

func (DeleteAccountMessage) Type() string { return TypeDeleteAccount }

func (m DeleteAccountMessage) Validate() error {
	if strings.TrimSpace(m.ServiceID) == "" {
		return fmt.Errorf("command: service id is required")
	}
	if err := validateAccount(m.Account); err != nil {
		return err
	}
	return nil
}

func validateAccount(account core.Account) error {
	if strings.TrimSpace(account.Username) == "" {
		return fmt.Errorf("command: account username is required")
	}
	return nil
}
