package sentryutil

import (
	"context"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"github.com/kawilabs/go-kawi/env"
	"github.com/kawilabs/go-kawi/service/logger"
)

// Init configures the process-wide sentry client. A missing DSN disables
// reporting without failing startup.
func Init() {
	dsn := env.GetString("SENTRY_DSN")
	if dsn == "" {
		logger.For(nil).Info("SENTRY_DSN not set, error reporting disabled")
		return
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      env.GetString("ENV"),
		TracesSampleRate: env.GetFloat64("SENTRY_TRACES_SAMPLE_RATE"),
		Debug:            env.GetBool("SENTRY_DEBUG"),
		AttachStacktrace: true,
	})
	if err != nil {
		logger.For(nil).Errorf("failed to init sentry: %s", err)
	}
}

// SentryHubFromContext returns the sentry hub bound to the current request, if any
func SentryHubFromContext(ctx context.Context) *sentry.Hub {
	if gc, ok := ctx.(*gin.Context); ok {
		return sentrygin.GetHubFromContext(gc)
	}
	return sentry.GetHubFromContext(ctx)
}

// ReportError sends an error to sentry, scoped to the request hub when present
func ReportError(ctx context.Context, err error) {
	hub := SentryHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	hub.CaptureException(err)
}

// RecoverAndRaise reports a panic to sentry and re-panics so the process-level
// handler still sees it
func RecoverAndRaise(ctx context.Context) {
	if err := recover(); err != nil {
		hub := sentry.CurrentHub()
		if ctx != nil {
			if ctxHub := SentryHubFromContext(ctx); ctxHub != nil {
				hub = ctxHub
			}
		}
		hub.Recover(err)
		panic(err)
	}
}
