package alertshttp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	alertapp "plant-monitor/internal/alerts/application"
	apihttp "plant-monitor/internal/api/http"
)

// streamMessage is one server-sent event.
type streamMessage struct {
	event  string
	id     int64
	lineID int64
	data   []byte
}

// Subscription receives alert events, optionally for a single line.
type Subscription struct {
	lineID int64
	ch     chan streamMessage
}

// SSEBroker fans out alert events to connected clients.
type SSEBroker struct {
	mu      sync.Mutex
	clients map[*Subscription]struct{}
}

// NewSSEBroker constructs a broker.
func NewSSEBroker() *SSEBroker {
	return &SSEBroker{clients: make(map[*Subscription]struct{})}
}

// Notify implements AlertNotifier.
func (b *SSEBroker) Notify(_ context.Context, event alertapp.AlertEvent) {
	if b == nil {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	b.broadcast(streamMessage{
		event:  "alert." + event.Type,
		id:     event.Alert.ID,
		lineID: event.Alert.LineID,
		data:   payload,
	})
}

// Subscribe registers a client. A zero lineID receives every line.
func (b *SSEBroker) Subscribe(lineID int64) *Subscription {
	if b == nil {
		return nil
	}
	sub := &Subscription{lineID: lineID, ch: make(chan streamMessage, 16)}
	b.mu.Lock()
	b.clients[sub] = struct{}{}
	b.mu.Unlock()
	return sub
}

// Unsubscribe removes a client.
func (b *SSEBroker) Unsubscribe(sub *Subscription) {
	if b == nil || sub == nil {
		return
	}
	b.mu.Lock()
	if _, ok := b.clients[sub]; ok {
		delete(b.clients, sub)
		close(sub.ch)
	}
	b.mu.Unlock()
}

// Clients reports the number of connected subscribers.
func (b *SSEBroker) Clients() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.clients)
}

// Slow clients drop events rather than block the publisher.
func (b *SSEBroker) broadcast(msg streamMessage) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for sub := range b.clients {
		if sub.lineID != 0 && sub.lineID != msg.lineID {
			continue
		}
		select {
		case sub.ch <- msg:
		default:
		}
	}
}

// StreamHandler serves GET /alerts/stream[?Line=].
type StreamHandler struct {
	broker    *SSEBroker
	keepAlive time.Duration
}

// NewStreamHandler constructs a stream handler.
func NewStreamHandler(broker *SSEBroker) *StreamHandler {
	return &StreamHandler{broker: broker, keepAlive: 30 * time.Second}
}

func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.broker == nil {
		apihttp.WriteError(w, http.StatusServiceUnavailable, "stream not ready")
		return
	}
	lineID, err := apihttp.ParseOptionalIDQuery(r, "Line")
	if err != nil {
		apihttp.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		apihttp.WriteError(w, http.StatusInternalServerError, "stream unsupported")
		return
	}
	// The server write timeout would otherwise cut the stream.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	sub := h.broker.Subscribe(lineID)
	defer h.broker.Unsubscribe(sub)

	_, _ = fmt.Fprint(w, "event: ready\ndata: {}\n\n")
	flusher.Flush()

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()
	for {
		select {
		case msg, ok := <-sub.ch:
			if !ok {
				return
			}
			_, _ = fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", msg.id, msg.event, msg.data)
			flusher.Flush()
		case <-ticker.C:
			_, _ = fmt.Fprint(w, ": keep-alive\n\n")
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}
