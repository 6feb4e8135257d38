package core

import glog "github.com/goliatone/go-logger/glog"

var (
	_ SocialService = (*Service)(nil)
	_ AccountStore  = (*MemoryAccountStore)(nil)
	_ AccountLocker = (*MemoryAccountLocker)(nil)

	_ Signer    = BearerTokenSigner{}
	_ URLSigner = AccessTokenQuerySigner{}
	_ URLSigner = APIKeyQuerySigner{}
	_ URLSigner = MultiURLSigner(nil)

	_ ConfigProvider          = (*CfgxConfigProvider)(nil)
	_ OptionsResolver         = GoOptionsResolver{}
	_ RefreshBackoffScheduler = ExponentialBackoffScheduler{}
	_ UsernameResolver        = UsernameResolverFunc(nil)

	_ Logger         = glog.Nop()
	_ LoggerProvider = glog.ProviderFromLogger(glog.Nop())
)
