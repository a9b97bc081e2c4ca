package monitoring

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
)

// InitSentry включает отправку ошибок; пустой DSN - ничего не делает
func InitSentry(dsn, env, release string, sampleRate float64) (bool, error) {
	if dsn == "" {
		return false, nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      env,
		Release:          "reviewflow@" + release,
		EnableTracing:    sampleRate > 0,
		TracesSampleRate: sampleRate,
	})
	if err != nil {
		return false, fmt.Errorf("sentry initialization failed: %w", err)
	}
	return true, nil
}

// FlushSentry drains buffered events before exit.
func FlushSentry() {
	sentry.Flush(2 * time.Second)
}

func CaptureError(err error, extra map[string]interface{}) {
	hub := sentry.CurrentHub()
	if hub.Client() == nil {
		return
	}
	hub.WithScope(func(scope *sentry.Scope) {
		for k, v := range extra {
			scope.SetExtra(k, v)
		}
		hub.CaptureException(err)
	})
}
