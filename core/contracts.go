package core

import (
	"context"
	"net/http"
	"net/url"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

// AccountStore persists accounts keyed by service id. Implementations are
// expected to be safe for concurrent reads and to serialize writes per
// service id themselves.
type AccountStore interface {
	FindAccountsForService(ctx context.Context, serviceID string) ([]Account, error)
	Save(ctx context.Context, account Account, serviceID string) error
	Delete(ctx context.Context, account Account, serviceID string) error
}

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Outcome is the single terminal result of an authenticator flow. Exactly
// one Outcome is delivered per authenticator instance: a successful
// authentication, a non-authenticated completion, a cancellation
// (Err == ErrCanceled), or an error.
type Outcome struct {
	Account       Account
	Authenticated bool
	Err           error
}

func (o Outcome) Canceled() bool {
	return o.Err != nil && isCanceled(o.Err)
}

// Authenticator drives an interactive or programmatic credential-acquisition
// flow to a terminal outcome. The interactive UI layer owns presentation: it
// loads the flow's authorization URL, reports every observed navigation via
// HandleRedirect, and calls Cancel when the user abandons the flow.
type Authenticator interface {
	Title() string
	SetTitle(title string)

	// AuthorizationURL returns the URL the presenter must load to start the
	// interactive step.
	AuthorizationURL() (string, error)

	// HandleRedirect observes a navigation in the presented UI. Navigations
	// outside the flow's redirect URL are ignored, as is any navigation after
	// a terminal outcome has been produced.
	HandleRedirect(ctx context.Context, rawURL string)

	// Cancel marks the flow canceled unless it already reached a terminal
	// state.
	Cancel()

	// Done delivers exactly one Outcome.
	Done() <-chan Outcome
}

// TokenRefresher is implemented by authenticators that support the
// refresh_token grant. The returned map is the raw token response; callers
// merge it into a new Account.
type TokenRefresher interface {
	RefreshAccessToken(ctx context.Context, refreshToken string) (map[string]string, error)
}

// AuthenticatorFactory builds a fresh authenticator per authentication
// attempt. Authenticators are single-use: discarded after their terminal
// outcome.
type AuthenticatorFactory func() (Authenticator, error)

// UsernameResolver performs the provider-specific identity lookup that turns
// freshly exchanged token properties into a username.
type UsernameResolver interface {
	Resolve(ctx context.Context, properties map[string]string) (string, error)
}

type UsernameResolverFunc func(ctx context.Context, properties map[string]string) (string, error)

func (f UsernameResolverFunc) Resolve(ctx context.Context, properties map[string]string) (string, error) {
	return f(ctx, properties)
}

// Signer attaches credentials to an outgoing HTTP request, typically via the
// Authorization header.
type Signer interface {
	Sign(ctx context.Context, req *http.Request, account Account) error
}

// URLSigner rewrites a prepared URL once, deterministically, before send.
// Providers that sign via query parameter implement this instead of (or in
// addition to) Signer.
type URLSigner interface {
	SignURL(u *url.URL, account Account) error
}

// VerificationProbe describes the lightweight authenticated call used by
// Verify: the request to issue and the JSON field whose presence confirms
// the stored credentials are still valid.
type VerificationProbe struct {
	Method        string
	URL           string
	Params        map[string]string
	ExpectedField string
}

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

type NopMetricsRecorder struct{}

func (NopMetricsRecorder) IncCounter(context.Context, string, int64, map[string]string)        {}
func (NopMetricsRecorder) ObserveHistogram(context.Context, string, float64, map[string]string) {}

// Job contracts for background reauthorization. The refresh package drives
// these; adapters/gojob bridges them to go-job.

type JobExecutionMessage struct {
	JobID          string
	ServiceID      string
	Username       string
	Parameters     map[string]any
	IdempotencyKey string
	DedupPolicy    string
}

type JobNackOptions struct {
	Delay      time.Duration
	Requeue    bool
	DeadLetter bool
	Reason     string
}

type JobEnqueuer interface {
	Enqueue(ctx context.Context, msg *JobExecutionMessage) error
}

type JobDelivery interface {
	Message() *JobExecutionMessage
	Ack(ctx context.Context) error
	Nack(ctx context.Context, opts JobNackOptions) error
}

type JobDequeuer interface {
	Dequeue(ctx context.Context) (JobDelivery, error)
}

type JobWorkerEvent struct {
	Message   *JobExecutionMessage
	Attempt   int
	Delay     time.Duration
	Err       error
	StartedAt time.Time
	Duration  time.Duration
}

type JobWorkerHook interface {
	OnStart(ctx context.Context, event JobWorkerEvent)
	OnSuccess(ctx context.Context, event JobWorkerEvent)
	OnFailure(ctx context.Context, event JobWorkerEvent)
	OnRetry(ctx context.Context, event JobWorkerEvent)
}

// SocialService is the operation surface every provider-backed service
// exposes. *Service implements it.
type SocialService interface {
	Descriptor() Descriptor
	Accounts(ctx context.Context) ([]Account, error)
	AuthenticateUI(onCompleted func(*Account)) (Authenticator, error)
	Authenticate(ctx context.Context) ([]Account, error)
	Reauthorize(ctx context.Context, account Account) (Account, error)
	AccessToken(ctx context.Context, account Account) (map[string]string, error)
	Verify(ctx context.Context, account Account) error
	CreateRequest(method, rawURL string, params map[string]string, account *Account) *Request
	SaveAccount(ctx context.Context, account Account) error
	DeleteAccount(ctx context.Context, account Account) error
}
