package command

import gocmd "github.com/goliatone/go-command"

var (
	_ gocmd.Commander[AuthenticateMessage]  = (*AuthenticateCommand)(nil)
	_ gocmd.Commander[ReauthorizeMessage]   = (*ReauthorizeCommand)(nil)
	_ gocmd.Commander[VerifyMessage]        = (*VerifyCommand)(nil)
	_ gocmd.Commander[SaveAccountMessage]   = (*SaveAccountCommand)(nil)
	_ gocmd.Commander[DeleteAccountMessage] = (*DeleteAccountCommand)(nil)
)
