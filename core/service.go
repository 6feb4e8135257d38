package core

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
)

// Service is the per-provider facade: one Service per configured provider,
// carrying that provider's descriptor, signer, authenticator factory, and
// account store.
type Service struct {
	descriptor           Descriptor
	config               Config
	logger               Logger
	loggerProvider       LoggerProvider
	metricsRecorder      MetricsRecorder
	errorFactory         ErrorFactory
	errorMapper          ErrorMapper
	configProvider       ConfigProvider
	optionsResolver      OptionsResolver
	httpClient           HTTPDoer
	accountStore         AccountStore
	authenticatorFactory AuthenticatorFactory
	usernameResolver     UsernameResolver
	signer               Signer
	urlSigner            URLSigner
	requestDecorator     RequestDecorator
	verificationProbe    *VerificationProbe
	accountLocker        AccountLocker
	backoffScheduler     RefreshBackoffScheduler
	now                  func() time.Time
}

func NewService(descriptor Descriptor, options ...Option) (*Service, error) {
	if err := descriptor.Validate(); err != nil {
		return nil, err
	}

	builder := defaultServiceBuilder(Config{})
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := glog.Resolve("social", builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("social"); named != nil {
			logger = glog.Ensure(named)
		}
	}

	if builder.errorFactory == nil {
		builder.errorFactory = goerrors.New
	}
	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}
	if builder.errorMapper == nil {
		builder.errorMapper = defaultErrorMapper
	}
	if builder.configProvider == nil {
		builder.configProvider = NewCfgxConfigProvider(nil)
	}
	if builder.optionsResolver == nil {
		builder.optionsResolver = GoOptionsResolver{}
	}
	if builder.accountStore == nil {
		builder.accountStore = NewMemoryAccountStore()
	}
	if builder.accountLocker == nil {
		builder.accountLocker = NewMemoryAccountLocker()
	}
	if builder.backoffScheduler == nil {
		builder.backoffScheduler = ExponentialBackoffScheduler{
			Initial: defaultRefreshInitialBackoff,
			Max:     defaultRefreshMaxBackoff,
		}
	}
	if builder.now == nil {
		builder.now = time.Now
	}

	defaults := DefaultConfig()
	loaded, err := builder.configProvider.Load(context.Background(), defaults)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}
	finalConfig, err := builder.optionsResolver.Resolve(defaults, loaded, builder.runtimeConfig)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}

	if builder.httpClient == nil {
		builder.httpClient = &http.Client{Timeout: finalConfig.HTTP.Timeout}
	}
	if builder.signer == nil && builder.urlSigner == nil {
		builder.signer = BearerTokenSigner{}
	}

	return &Service{
		descriptor:           descriptor,
		config:               finalConfig,
		logger:               logger,
		loggerProvider:       provider,
		metricsRecorder:      builder.metricsRecorder,
		errorFactory:         builder.errorFactory,
		errorMapper:          builder.errorMapper,
		configProvider:       builder.configProvider,
		optionsResolver:      builder.optionsResolver,
		httpClient:           builder.httpClient,
		accountStore:         builder.accountStore,
		authenticatorFactory: builder.authenticatorFactory,
		usernameResolver:     builder.usernameResolver,
		signer:               builder.signer,
		urlSigner:            builder.urlSigner,
		requestDecorator:     builder.requestDecorator,
		verificationProbe:    builder.verificationProbe,
		accountLocker:        builder.accountLocker,
		backoffScheduler:     builder.backoffScheduler,
		now:                  builder.now,
	}, nil
}

func mapBuildError(mapper ErrorMapper, err error) error {
	if err == nil {
		return nil
	}
	if mapper == nil {
		return err
	}
	mapped := mapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

func (s *Service) mapError(err error) error {
	if err == nil {
		return nil
	}
	if s == nil || s.errorMapper == nil {
		return err
	}
	mapped := s.errorMapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

func (s *Service) Descriptor() Descriptor {
	if s == nil {
		return Descriptor{}
	}
	return s.descriptor
}

func (s *Service) Config() Config {
	if s == nil {
		return Config{}
	}
	return s.config
}

// Accounts returns the stored accounts for this provider.
func (s *Service) Accounts(ctx context.Context) (accounts []Account, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{"service_id": s.Descriptor().ServiceID}
	defer func() {
		s.observeOperation(ctx, startedAt, "accounts", err, fields)
	}()

	if s == nil || s.accountStore == nil {
		err = s.mapError(fmt.Errorf("core: account store is not configured"))
		return nil, err
	}
	accounts, err = s.accountStore.FindAccountsForService(ctx, s.descriptor.ServiceID)
	if err != nil {
		err = s.mapError(err)
		return nil, err
	}
	fields["count"] = len(accounts)
	return accounts, nil
}

// AuthenticateUI builds a fresh authenticator for an interactive session.
// The returned authenticator is handed to the UI presenter; when the flow
// completes with a fresh account the account is saved before onCompleted
// fires. onCompleted is invoked exactly once with nil on every
// non-authenticated completion, including cancellation.
func (s *Service) AuthenticateUI(onCompleted func(*Account)) (Authenticator, error) {
	if s == nil {
		return nil, fmt.Errorf("core: service is nil")
	}
	if !s.descriptor.SupportsAuthentication || s.authenticatorFactory == nil {
		return nil, s.mapError(unsupportedOperation(s.descriptor.ServiceID, "authentication"))
	}

	authenticator, err := s.authenticatorFactory()
	if err != nil {
		return nil, s.mapError(err)
	}
	if strings.TrimSpace(authenticator.Title()) == "" {
		authenticator.SetTitle(s.descriptor.Title)
	}

	go s.watchAuthentication(authenticator, onCompleted)
	return authenticator, nil
}

func (s *Service) watchAuthentication(authenticator Authenticator, onCompleted func(*Account)) {
	outcome := <-authenticator.Done()

	ctx := context.Background()
	if outcome.Authenticated && outcome.Err == nil {
		if saveErr := s.saveToStore(ctx, outcome.Account); saveErr != nil {
			s.logError(ctx, "saving authenticated account failed", map[string]any{
				"service_id": s.descriptor.ServiceID,
				"username":   outcome.Account.Username,
				"error":      saveErr.Error(),
			})
		}
		if onCompleted != nil {
			account := outcome.Account.Clone()
			onCompleted(&account)
		}
		return
	}
	if outcome.Err != nil && !outcome.Canceled() {
		s.logError(ctx, "authentication failed", map[string]any{
			"service_id": s.descriptor.ServiceID,
			"error":      outcome.Err.Error(),
		})
	}
	if onCompleted != nil {
		onCompleted(nil)
	}
}

// Authenticate runs a full authenticator flow to its terminal outcome and
// returns the authenticated account. It is the programmatic counterpart of
// AuthenticateUI: exactly one of success, cancellation, or error.
func (s *Service) Authenticate(ctx context.Context) (accounts []Account, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{"service_id": s.Descriptor().ServiceID}
	defer func() {
		s.observeOperation(ctx, startedAt, "authenticate", err, fields)
	}()

	if s == nil {
		return nil, fmt.Errorf("core: service is nil")
	}
	if !s.descriptor.SupportsAuthentication || s.authenticatorFactory == nil {
		err = s.mapError(unsupportedOperation(s.descriptor.ServiceID, "authentication"))
		return nil, err
	}

	authenticator, buildErr := s.authenticatorFactory()
	if buildErr != nil {
		err = s.mapError(buildErr)
		return nil, err
	}
	if strings.TrimSpace(authenticator.Title()) == "" {
		authenticator.SetTitle(s.descriptor.Title)
	}

	var outcome Outcome
	select {
	case outcome = <-authenticator.Done():
	case <-ctx.Done():
		authenticator.Cancel()
		outcome = <-authenticator.Done()
	}

	if outcome.Err != nil {
		err = s.mapError(outcome.Err)
		return nil, err
	}
	if !outcome.Authenticated {
		return []Account{}, nil
	}
	if saveErr := s.saveToStore(ctx, outcome.Account); saveErr != nil {
		err = s.mapError(saveErr)
		return nil, err
	}
	fields["username"] = outcome.Account.Username
	return []Account{outcome.Account}, nil
}

// Reauthorize exchanges the account's refresh token for fresh credentials
// and returns a new account with the token properties merged over the old
// ones. The refreshed account is saved exactly once; the input is never
// mutated.
func (s *Service) Reauthorize(ctx context.Context, account Account) (refreshed Account, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"service_id": s.Descriptor().ServiceID,
		"username":   account.Username,
	}
	defer func() {
		s.observeOperation(ctx, startedAt, "reauthorize", err, fields)
	}()

	if s == nil {
		return Account{}, fmt.Errorf("core: service is nil")
	}
	if !s.descriptor.SupportsReauthorization {
		err = s.mapError(unsupportedOperation(s.descriptor.ServiceID, "reauthorization"))
		return Account{}, err
	}
	refreshToken := account.RefreshToken()
	if refreshToken == "" {
		err = s.mapError(ErrMissingRefreshToken)
		return Account{}, err
	}

	refresher, resolveErr := s.resolveTokenRefresher()
	if resolveErr != nil {
		err = s.mapError(resolveErr)
		return Account{}, err
	}

	tokens, refreshErr := refresher.RefreshAccessToken(ctx, refreshToken)
	if refreshErr != nil {
		err = s.mapError(refreshErr)
		return Account{}, err
	}
	if strings.TrimSpace(tokens[PropAccessToken]) == "" {
		err = s.mapError(ProtocolError("core: refresh response is missing access_token"))
		return Account{}, err
	}

	refreshed = account.MergeProperties(tokens)
	if expiresAt := s.expiryFromTokens(tokens); expiresAt != "" {
		refreshed = refreshed.MergeProperties(map[string]string{PropExpiresAt: expiresAt})
	}
	if saveErr := s.saveToStore(ctx, refreshed); saveErr != nil {
		err = s.mapError(saveErr)
		return Account{}, err
	}
	return refreshed, nil
}

func (s *Service) resolveTokenRefresher() (TokenRefresher, error) {
	if s.authenticatorFactory == nil {
		return nil, unsupportedOperation(s.descriptor.ServiceID, "reauthorization")
	}
	authenticator, err := s.authenticatorFactory()
	if err != nil {
		return nil, err
	}
	refresher, ok := authenticator.(TokenRefresher)
	if !ok {
		return nil, unsupportedOperation(s.descriptor.ServiceID, "reauthorization")
	}
	return refresher, nil
}

// expiryFromTokens converts an expires_in lifetime into an absolute RFC3339
// expires_at stamp. Providers that already return expires_at win.
func (s *Service) expiryFromTokens(tokens map[string]string) string {
	if strings.TrimSpace(tokens[PropExpiresAt]) != "" {
		return ""
	}
	raw := strings.TrimSpace(tokens["expires_in"])
	if raw == "" {
		return ""
	}
	seconds, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || seconds <= 0 {
		return ""
	}
	now := time.Now
	if s.now != nil {
		now = s.now
	}
	return now().UTC().Add(time.Duration(seconds) * time.Second).Format(time.RFC3339)
}

// AccessToken returns the account's stored credential properties. It does
// not check expiry: callers that need fresh tokens drive Reauthorize.
func (s *Service) AccessToken(ctx context.Context, account Account) (tokens map[string]string, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"service_id": s.Descriptor().ServiceID,
		"username":   account.Username,
	}
	defer func() {
		s.observeOperation(ctx, startedAt, "access_token", err, fields)
	}()

	if s == nil {
		return nil, fmt.Errorf("core: service is nil")
	}
	if account.AccessToken() == "" {
		err = s.mapError(fmt.Errorf("core: account has no access token"))
		return nil, err
	}
	return copyStringMap(account.Properties), nil
}

// Verify issues the provider's verification probe with the account's
// credentials and confirms the expected field is present in the response.
func (s *Service) Verify(ctx context.Context, account Account) (err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"service_id": s.Descriptor().ServiceID,
		"username":   account.Username,
	}
	defer func() {
		s.observeOperation(ctx, startedAt, "verify", err, fields)
	}()

	if s == nil {
		return fmt.Errorf("core: service is nil")
	}
	if !s.descriptor.SupportsVerification || s.verificationProbe == nil {
		err = s.mapError(unsupportedOperation(s.descriptor.ServiceID, "verification"))
		return err
	}

	probe := *s.verificationProbe
	method := probe.Method
	if strings.TrimSpace(method) == "" {
		method = http.MethodGet
	}
	request := s.CreateRequest(method, probe.URL, probe.Params, &account)
	response, execErr := request.Execute(ctx)
	if execErr != nil {
		err = s.mapError(execErr)
		return err
	}

	field := strings.TrimSpace(probe.ExpectedField)
	if field == "" {
		return nil
	}
	value, found, parseErr := ExtractJSONPath(response.Body, field)
	if parseErr != nil {
		err = s.mapError(parseErr)
		return err
	}
	if !found || strings.TrimSpace(value) == "" {
		err = s.mapError(SocialError("core: verification response is missing %q", field))
		return err
	}
	return nil
}

// CreateRequest builds a request wired with this service's signer, request
// decorator, and HTTP client.
func (s *Service) CreateRequest(method, rawURL string, params map[string]string, account *Account) *Request {
	request := NewRequest(method, rawURL, params, account)
	if s == nil {
		return request
	}
	request.client = s.httpClient
	request.signer = s.signer
	request.urlSigner = s.urlSigner
	request.decorator = s.requestDecorator
	request.maxBodyBytes = s.config.HTTP.MaxBodyBytes
	return request
}

func (s *Service) SaveAccount(ctx context.Context, account Account) (err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"service_id": s.Descriptor().ServiceID,
		"username":   account.Username,
	}
	defer func() {
		s.observeOperation(ctx, startedAt, "save_account", err, fields)
	}()

	if s == nil {
		return fmt.Errorf("core: service is nil")
	}
	if !s.descriptor.SupportsSave {
		err = s.mapError(unsupportedOperation(s.descriptor.ServiceID, "save"))
		return err
	}
	if err = s.mapError(s.saveToStore(ctx, account)); err != nil {
		return err
	}
	return nil
}

func (s *Service) DeleteAccount(ctx context.Context, account Account) (err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"service_id": s.Descriptor().ServiceID,
		"username":   account.Username,
	}
	defer func() {
		s.observeOperation(ctx, startedAt, "delete_account", err, fields)
	}()

	if s == nil {
		return fmt.Errorf("core: service is nil")
	}
	if !s.descriptor.SupportsDelete {
		err = s.mapError(unsupportedOperation(s.descriptor.ServiceID, "delete"))
		return err
	}
	if s.accountStore == nil {
		err = s.mapError(fmt.Errorf("core: account store is not configured"))
		return err
	}
	if strings.TrimSpace(account.Username) == "" {
		err = s.mapError(fmt.Errorf("core: account username is required"))
		return err
	}
	if err = s.mapError(s.accountStore.Delete(ctx, account, s.descriptor.ServiceID)); err != nil {
		return err
	}
	return nil
}

func (s *Service) saveToStore(ctx context.Context, account Account) error {
	if s.accountStore == nil {
		return fmt.Errorf("core: account store is not configured")
	}
	if strings.TrimSpace(account.Username) == "" {
		return fmt.Errorf("core: account username is required")
	}
	return s.accountStore.Save(ctx, account, s.descriptor.ServiceID)
}
