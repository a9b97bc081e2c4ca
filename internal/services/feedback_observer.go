package services

import (
	"context"
	"sync"
	"time"

	"reviewflow/internal/events"
	"reviewflow/internal/logger"
	"reviewflow/internal/monitoring"
	"reviewflow/internal/search"
	"reviewflow/internal/services/dto"
)

const defaultSinkTimeout = 5 * time.Second

// FeedbackObserver receives committed feedback changes.
type FeedbackObserver interface {
	FeedbackCreated(ctx context.Context, feedback dto.FeedbackResponse) error
	FeedbackDeleted(ctx context.Context, feedback dto.FeedbackResponse) error
}

// LiveBroadcaster pushes inbox changes to open websocket subscriptions.
type LiveBroadcaster interface {
	BroadcastFeedback(eventType string, feedback dto.FeedbackResponse)
}

// FeedbackFanOut delivers every change to all sinks in the background.
// A failing sink is logged and counted, it never affects the caller.
type FeedbackFanOut struct {
	sinks   []namedSink
	timeout time.Duration
	wg      sync.WaitGroup
}

type namedSink struct {
	name     string
	observer FeedbackObserver
}

func NewFeedbackFanOut(timeout time.Duration) *FeedbackFanOut {
	if timeout <= 0 {
		timeout = defaultSinkTimeout
	}
	return &FeedbackFanOut{timeout: timeout}
}

// Add registers a sink. Call before serving traffic.
func (f *FeedbackFanOut) Add(name string, observer FeedbackObserver) *FeedbackFanOut {
	if observer != nil {
		f.sinks = append(f.sinks, namedSink{name: name, observer: observer})
	}
	return f
}

func (f *FeedbackFanOut) FeedbackCreated(ctx context.Context, feedback dto.FeedbackResponse) error {
	f.dispatch(ctx, events.TypeFeedbackCreated, feedback)
	return nil
}

func (f *FeedbackFanOut) FeedbackDeleted(ctx context.Context, feedback dto.FeedbackResponse) error {
	f.dispatch(ctx, events.TypeFeedbackDeleted, feedback)
	return nil
}

// Wait blocks until in-flight deliveries finish.
func (f *FeedbackFanOut) Wait() {
	f.wg.Wait()
}

func (f *FeedbackFanOut) dispatch(ctx context.Context, eventType string, feedback dto.FeedbackResponse) {
	// запрос может завершиться раньше доставки
	base := context.WithoutCancel(ctx)
	for _, sink := range f.sinks {
		f.wg.Add(1)
		go func(sink namedSink) {
			defer f.wg.Done()
			sinkCtx, cancel := context.WithTimeout(base, f.timeout)
			defer cancel()

			start := time.Now()
			var err error
			if eventType == events.TypeFeedbackDeleted {
				err = sink.observer.FeedbackDeleted(sinkCtx, feedback)
			} else {
				err = sink.observer.FeedbackCreated(sinkCtx, feedback)
			}
			if err != nil {
				monitoring.SinkErrors.WithLabelValues(sink.name).Inc()
			}
			logger.SinkLog(sink.name, eventType, time.Since(start), err)
		}(sink)
	}
}

// --- sink adapters ---

type liveSink struct{ hub LiveBroadcaster }

func NewLiveSink(hub LiveBroadcaster) FeedbackObserver { return liveSink{hub: hub} }

func (s liveSink) FeedbackCreated(_ context.Context, f dto.FeedbackResponse) error {
	s.hub.BroadcastFeedback(events.TypeFeedbackCreated, f)
	return nil
}

func (s liveSink) FeedbackDeleted(_ context.Context, f dto.FeedbackResponse) error {
	s.hub.BroadcastFeedback(events.TypeFeedbackDeleted, f)
	return nil
}

type eventSink struct{ publisher events.Publisher }

func NewEventSink(publisher events.Publisher) FeedbackObserver { return eventSink{publisher: publisher} }

func (s eventSink) FeedbackCreated(ctx context.Context, f dto.FeedbackResponse) error {
	return s.publisher.Publish(ctx, events.Event{Type: events.TypeFeedbackCreated, Feedback: f, OccurredAt: time.Now().UTC()})
}

func (s eventSink) FeedbackDeleted(ctx context.Context, f dto.FeedbackResponse) error {
	return s.publisher.Publish(ctx, events.Event{Type: events.TypeFeedbackDeleted, Feedback: f, OccurredAt: time.Now().UTC()})
}

type searchSink struct{ indexer search.Indexer }

func NewSearchSink(indexer search.Indexer) FeedbackObserver { return searchSink{indexer: indexer} }

func (s searchSink) FeedbackCreated(ctx context.Context, f dto.FeedbackResponse) error {
	return s.indexer.Index(ctx, f)
}

func (s searchSink) FeedbackDeleted(ctx context.Context, f dto.FeedbackResponse) error {
	return s.indexer.Delete(ctx, f.ID)
}
