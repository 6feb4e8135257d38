// Package gologger maps glog loggers into the go-job logging contracts so
// the refresh worker and the queue share one logging stack.
package gologger

import (
	job "github.com/goliatone/go-job"
	glog "github.com/goliatone/go-logger/glog"
)

// QueueLogging bundles the resolved glog pair with their go-job bridges so
// queue wiring can pass one value around.
type QueueLogging struct {
	Provider    glog.LoggerProvider
	Logger      glog.Logger
	JobProvider job.LoggerProvider
	JobLogger   job.Logger
}

// Resolve picks a logger with deterministic precedence: provider, then
// direct logger, then nop.
func Resolve(name string, provider glog.LoggerProvider, logger glog.Logger) (glog.LoggerProvider, glog.Logger) {
	return glog.Resolve(name, provider, logger)
}

// ToJobProvider bridges a glog provider into go-job. Nil stays nil so go-job
// applies its own fallback.
func ToJobProvider(provider glog.LoggerProvider) job.LoggerProvider {
	if provider == nil {
		return nil
	}
	return job.GoLoggerProvider(provider)
}

func ToJobLogger(logger glog.Logger) job.Logger {
	if logger == nil {
		return nil
	}
	return job.GoLogger(logger)
}

// ResolveForJob resolves the glog pair for name and returns it alongside the
// go-job bridges the queue and worker consume.
func ResolveForJob(name string, provider glog.LoggerProvider, logger glog.Logger) QueueLogging {
	resolvedProvider, resolvedLogger := Resolve(name, provider, logger)
	return QueueLogging{
		Provider:    resolvedProvider,
		Logger:      resolvedLogger,
		JobProvider: ToJobProvider(resolvedProvider),
		JobLogger:   ToJobLogger(resolvedLogger),
	}
}
