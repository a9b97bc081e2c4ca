package ws

import (
	"context"
	"sync"

	"reviewflow/internal/logger"
	"reviewflow/internal/models"
	"reviewflow/internal/monitoring"
	"reviewflow/internal/services/dto"
)

// Message - то, что получает дашборд по сокету
type Message struct {
	Type     string               `json:"type"`
	Feedback dto.FeedbackResponse `json:"feedback"`
}

type envelope struct {
	topic string
	msg   Message
}

// WebSocketManager fans inbox events out to subscribers of one topic.
// Subscriptions are only mutated by the Run goroutine.
type WebSocketManager struct {
	topics     map[string]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan envelope
	done       chan struct{}
	mu         sync.RWMutex
}

func NewWebSocketManager() *WebSocketManager {
	return &WebSocketManager{
		topics:     make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan envelope, 64),
		done:       make(chan struct{}),
	}
}

func (m *WebSocketManager) Run(ctx context.Context) {
	defer m.closeAll()

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-m.register:
			m.mu.Lock()
			subs, ok := m.topics[client.Topic]
			if !ok {
				subs = make(map[*Client]struct{})
				m.topics[client.Topic] = subs
			}
			subs[client] = struct{}{}
			m.mu.Unlock()
			monitoring.LiveSubscribers.Inc()
			logger.Debug("Live subscriber registered", "topic", client.Topic, "actor_id", client.ActorID)

		case client := <-m.unregister:
			m.remove(client)

		case env := <-m.broadcast:
			m.deliver(env)
		}
	}
}

// BroadcastFeedback queues an event for the inbox the feedback belongs to.
func (m *WebSocketManager) BroadcastFeedback(eventType string, feedback dto.FeedbackResponse) {
	env := envelope{
		topic: models.InboxTopic(feedback.TenantKind, feedback.TenantKey),
		msg:   Message{Type: eventType, Feedback: feedback},
	}
	select {
	case m.broadcast <- env:
	case <-m.done:
	}
}

// SubscriberCount returns the number of open sockets on a topic.
func (m *WebSocketManager) SubscriberCount(topic string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.topics[topic])
}

func (m *WebSocketManager) deliver(env envelope) {
	m.mu.RLock()
	var slow []*Client
	for client := range m.topics[env.topic] {
		select {
		case client.send <- env.msg:
		default:
			slow = append(slow, client)
		}
	}
	m.mu.RUnlock()

	// медленных клиентов отключаем, дашборд переподключится
	for _, client := range slow {
		logger.Warn("Live subscriber dropped: send buffer full", "topic", client.Topic, "actor_id", client.ActorID)
		m.remove(client)
	}
}

func (m *WebSocketManager) remove(client *Client) {
	m.mu.Lock()
	defer m.mu.Unlock()

	subs, ok := m.topics[client.Topic]
	if !ok {
		return
	}
	if _, ok := subs[client]; !ok {
		return
	}
	delete(subs, client)
	if len(subs) == 0 {
		delete(m.topics, client.Topic)
	}
	close(client.send)
	monitoring.LiveSubscribers.Dec()
}

func (m *WebSocketManager) closeAll() {
	close(m.done)

	m.mu.Lock()
	defer m.mu.Unlock()
	for topic, subs := range m.topics {
		for client := range subs {
			close(client.send)
			monitoring.LiveSubscribers.Dec()
		}
		delete(m.topics, topic)
	}
}

func (m *WebSocketManager) subscribe(client *Client) bool {
	select {
	case m.register <- client:
		return true
	case <-m.done:
		return false
	}
}

func (m *WebSocketManager) unsubscribe(client *Client) {
	select {
	case m.unregister <- client:
	case <-m.done:
	}
}
