package workers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type digestCall struct {
	since     time.Time
	maxRating int
}

type fakeDigester struct {
	calls []digestCall
	sent  int
	err   error
}

func (f *fakeDigester) SendDigest(_ context.Context, since time.Time, maxRating int) (int, error) {
	f.calls = append(f.calls, digestCall{since: since, maxRating: maxRating})
	return f.sent, f.err
}

func TestDigestWorker_RunOnceUsesWindow(t *testing.T) {
	fake := &fakeDigester{sent: 3}
	w := NewDigestWorker(fake, "0 9 * * *", 3)
	fixed := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return fixed }

	assert.Equal(t, 3, w.RunOnce(context.Background()))
	require.Len(t, fake.calls, 1)
	assert.Equal(t, fixed.Add(-24*time.Hour), fake.calls[0].since)
	assert.Equal(t, 3, fake.calls[0].maxRating)
}

func TestDigestWorker_RunOnceReportsPartialFailure(t *testing.T) {
	fake := &fakeDigester{sent: 1, err: errors.New("smtp down")}
	w := NewDigestWorker(fake, "@daily", 2)

	assert.Equal(t, 1, w.RunOnce(context.Background()))
}

func TestDigestWorker_StartRejectsBadSchedule(t *testing.T) {
	w := NewDigestWorker(&fakeDigester{}, "not a cron", 3)
	assert.Error(t, w.Start(context.Background()))
}

func TestDigestWorker_StartStopsWithContext(t *testing.T) {
	w := NewDigestWorker(&fakeDigester{}, "@hourly", 3)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- w.Start(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
}
