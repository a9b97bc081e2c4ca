package workers

import (
	"context"
	"fmt"
	"time"

	"reviewflow/internal/logger"

	"github.com/robfig/cron/v3"
)

const digestWorkerName = "feedback_digest"

// Digester - то, что умеет NotificationService
type Digester interface {
	SendDigest(ctx context.Context, since time.Time, maxRating int) (int, error)
}

// DigestWorker mails inbox owners a daily summary of low-rated feedback.
type DigestWorker struct {
	digester  Digester
	schedule  string
	maxRating int
	window    time.Duration
	now       func() time.Time
}

func NewDigestWorker(digester Digester, schedule string, maxRating int) *DigestWorker {
	return &DigestWorker{
		digester:  digester,
		schedule:  schedule,
		maxRating: maxRating,
		window:    24 * time.Hour,
		now:       time.Now,
	}
}

// Start schedules the digest and blocks until ctx is cancelled.
func (w *DigestWorker) Start(ctx context.Context) error {
	c := cron.New()
	if _, err := c.AddFunc(w.schedule, func() { w.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("invalid digest schedule %q: %w", w.schedule, err)
	}

	c.Start()
	logger.Info("Digest worker started", "schedule", w.schedule, "max_rating", w.maxRating)

	<-ctx.Done()
	<-c.Stop().Done()
	logger.Info("Digest worker stopped")
	return nil
}

// RunOnce sends one digest round for the last window.
func (w *DigestWorker) RunOnce(ctx context.Context) int {
	since := w.now().Add(-w.window)
	sent, err := w.digester.SendDigest(ctx, since, w.maxRating)
	logger.WorkerLog(digestWorkerName, fmt.Sprintf("send digest (%d mailed)", sent), err)
	return sent
}
