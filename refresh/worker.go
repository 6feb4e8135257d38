package refresh

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-social/core"
)

const (
	defaultWorkerRetryDelay = 30 * time.Second
	defaultDequeueBackoff   = time.Second
)

// ReauthorizeRunner is the retry-driving surface of *core.Service. Resolved
// services that expose it get locking and bounded backoff; anything else
// falls back to a single Reauthorize call.
type ReauthorizeRunner interface {
	RunReauthorizeWithRetry(ctx context.Context, account core.Account, opts core.ReauthorizeRunOptions) (core.ReauthorizeRunResult, error)
}

// Worker consumes reauthorize jobs from the queue, resolves the target
// service and account, and runs the refresh. Recoverable failures are nacked
// back with a delay; refresh tokens the provider rejected outright go to the
// dead letter queue so an interactive flow can be arranged.
type Worker struct {
	Resolver core.ServiceResolver
	Dequeuer core.JobDequeuer
	Hook     core.JobWorkerHook
	Logger   core.Logger

	RunOptions core.ReauthorizeRunOptions
	// RetryDelay spaces out redeliveries of recoverable failures.
	RetryDelay time.Duration
	Now        func() time.Time
}

func NewWorker(resolver core.ServiceResolver, dequeuer core.JobDequeuer) *Worker {
	return &Worker{
		Resolver:   resolver,
		Dequeuer:   dequeuer,
		RetryDelay: defaultWorkerRetryDelay,
		Now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Run dequeues and processes jobs until the context ends. Dequeue errors are
// logged and retried after a short pause so a transient broker hiccup does
// not kill the loop.
func (w *Worker) Run(ctx context.Context) error {
	if w == nil || w.Resolver == nil {
		return fmt.Errorf("refresh: worker requires a service resolver")
	}
	if w.Dequeuer == nil {
		return fmt.Errorf("refresh: worker requires a job dequeuer")
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		delivery, err := w.Dequeuer.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			if w.Logger != nil {
				w.Logger.Error("dequeue failed", "error", err)
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(defaultDequeueBackoff):
			}
			continue
		}
		w.ProcessDelivery(ctx, delivery)
	}
}

// ProcessDelivery handles one queue delivery end to end, including the
// ack/nack decision. Exposed so callers driving their own dequeue loop can
// reuse the processing logic.
func (w *Worker) ProcessDelivery(ctx context.Context, delivery core.JobDelivery) {
	if w == nil || delivery == nil {
		return
	}
	msg := delivery.Message()
	if msg == nil || strings.TrimSpace(msg.ServiceID) == "" || strings.TrimSpace(msg.Username) == "" {
		w.nack(ctx, delivery, core.JobNackOptions{
			DeadLetter: true,
			Reason:     "malformed reauthorize job: service id and username are required",
		})
		return
	}

	startedAt := w.now()
	w.emitStart(ctx, msg)

	result, err := w.process(ctx, msg)
	duration := w.now().Sub(startedAt)

	if err == nil {
		w.emitSuccess(ctx, msg, result.Attempts, startedAt, duration)
		w.ack(ctx, delivery)
		return
	}

	w.emitFailure(ctx, msg, result.Attempts, err, startedAt, duration)
	if result.NeedsInteractiveAuth || isTerminalJobError(err) {
		w.nack(ctx, delivery, core.JobNackOptions{
			DeadLetter: true,
			Reason:     err.Error(),
		})
		return
	}
	w.nack(ctx, delivery, core.JobNackOptions{
		Delay:   w.retryDelay(),
		Requeue: true,
		Reason:  err.Error(),
	})
}

func (w *Worker) process(ctx context.Context, msg *core.JobExecutionMessage) (core.ReauthorizeRunResult, error) {
	service, err := w.Resolver.ResolveService(msg.ServiceID)
	if err != nil {
		return core.ReauthorizeRunResult{}, err
	}
	account, found, err := w.findAccount(ctx, service, msg.Username)
	if err != nil {
		return core.ReauthorizeRunResult{}, err
	}
	if !found {
		// The account was deleted after the job was enqueued. Treat the
		// job as terminally done rather than retrying into the void.
		return core.ReauthorizeRunResult{NeedsInteractiveAuth: true},
			fmt.Errorf("refresh: account %q not found for service %q", msg.Username, msg.ServiceID)
	}

	if runner, ok := service.(ReauthorizeRunner); ok {
		return runner.RunReauthorizeWithRetry(ctx, account, w.RunOptions)
	}
	refreshed, err := service.Reauthorize(ctx, account)
	if err != nil {
		return core.ReauthorizeRunResult{Attempts: 1}, err
	}
	return core.ReauthorizeRunResult{Account: refreshed, Attempts: 1}, nil
}

func (w *Worker) findAccount(ctx context.Context, service core.SocialService, username string) (core.Account, bool, error) {
	accounts, err := service.Accounts(ctx)
	if err != nil {
		return core.Account{}, false, err
	}
	for _, account := range accounts {
		if account.Username == username {
			return account, true, nil
		}
	}
	return core.Account{}, false, nil
}

func isTerminalJobError(err error) bool {
	return errors.Is(err, core.ErrUnsupportedOperation)
}

func (w *Worker) ack(ctx context.Context, delivery core.JobDelivery) {
	if err := delivery.Ack(ctx); err != nil && w.Logger != nil {
		w.Logger.Error("ack failed", "error", err)
	}
}

func (w *Worker) nack(ctx context.Context, delivery core.JobDelivery, opts core.JobNackOptions) {
	if err := delivery.Nack(ctx, opts); err != nil && w.Logger != nil {
		w.Logger.Error("nack failed", "error", err)
	}
}

func (w *Worker) emitStart(ctx context.Context, msg *core.JobExecutionMessage) {
	if w.Hook == nil {
		return
	}
	w.Hook.OnStart(ctx, core.JobWorkerEvent{Message: msg, StartedAt: w.now()})
}

func (w *Worker) emitSuccess(
	ctx context.Context,
	msg *core.JobExecutionMessage,
	attempts int,
	startedAt time.Time,
	duration time.Duration,
) {
	if w.Hook == nil {
		return
	}
	w.Hook.OnSuccess(ctx, core.JobWorkerEvent{
		Message:   msg,
		Attempt:   attempts,
		StartedAt: startedAt,
		Duration:  duration,
	})
}

func (w *Worker) emitFailure(
	ctx context.Context,
	msg *core.JobExecutionMessage,
	attempts int,
	cause error,
	startedAt time.Time,
	duration time.Duration,
) {
	if w.Hook == nil {
		return
	}
	w.Hook.OnFailure(ctx, core.JobWorkerEvent{
		Message:   msg,
		Attempt:   attempts,
		Err:       cause,
		StartedAt: startedAt,
		Duration:  duration,
	})
}

func (w *Worker) retryDelay() time.Duration {
	if w != nil && w.RetryDelay > 0 {
		return w.RetryDelay
	}
	return defaultWorkerRetryDelay
}

func (w *Worker) now() time.Time {
	if w != nil && w.Now != nil {
		return w.Now().UTC()
	}
	return time.Now().UTC()
}

var _ ReauthorizeRunner = (*core.Service)(nil)
