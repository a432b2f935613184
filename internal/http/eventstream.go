package http

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/elevatorsim/engine/internal/infra/logging"
	"github.com/elevatorsim/engine/internal/simevents"
)

// EventBroadcaster fans the events produced by one step() call out to every
// subscribed /ws/events client (SPEC_FULL.md supplemented feature,
// grounded on the teacher's internal/http/websocket_server.go connection
// registry, replacing its periodic status poll with a push-on-tick model).
type EventBroadcaster struct {
	mu      sync.Mutex
	clients map[chan []simevents.Event]struct{}
	logger  *slog.Logger
}

// NewEventBroadcaster builds an empty broadcaster.
func NewEventBroadcaster(logger *slog.Logger) *EventBroadcaster {
	return &EventBroadcaster{clients: make(map[chan []simevents.Event]struct{}), logger: logger}
}

// subscribe registers a new client channel; bufSize bounds how many
// pending step() batches a slow client can fall behind by before batches
// are dropped for it.
func (b *EventBroadcaster) subscribe(bufSize int) chan []simevents.Event {
	ch := make(chan []simevents.Event, bufSize)
	b.mu.Lock()
	b.clients[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *EventBroadcaster) unsubscribe(ch chan []simevents.Event) {
	b.mu.Lock()
	delete(b.clients, ch)
	b.mu.Unlock()
}

// Publish sends events to every subscriber. A subscriber whose buffer is
// full misses this batch rather than blocking the step() call that
// produced it.
func (b *EventBroadcaster) Publish(events []simevents.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.clients {
		select {
		case ch <- events:
		default:
			b.logger.Warn("event-stream subscriber buffer full, dropping batch")
		}
	}
}

// eventStreamUpgrader upgrades HTTP connections for the /ws/events stream.
var eventStreamUpgrader = websocket.Upgrader{
	CheckOrigin:     func(r *http.Request) bool { return true },
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// EventStreamHandler pushes each step() call's produced events to a
// connected client as soon as they're published.
func (s *Server) EventStreamHandler(w http.ResponseWriter, r *http.Request) {
	ctx := logging.NewContextWithCorrelation(r.Context())

	conn, err := eventStreamUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.ErrorContext(ctx, "event-stream upgrade failed", slog.String("error", err.Error()))
		return
	}
	defer conn.Close()

	ch := s.broadcaster.subscribe(s.cfg.WebSocketBufferSize)
	defer s.broadcaster.unsubscribe(ch)

	s.logger.InfoContext(ctx, "event-stream connection established")

	if err := conn.SetReadDeadline(time.Now().Add(s.cfg.WebSocketReadTimeout)); err != nil {
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(s.cfg.WebSocketReadTimeout))
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	pingTicker := time.NewTicker(s.cfg.WebSocketPingInterval)
	defer pingTicker.Stop()

	for {
		select {
		case <-done:
			return

		case <-r.Context().Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "server shutdown"),
				time.Now().Add(s.cfg.WebSocketWriteTimeout))
			return

		case <-pingTicker.C:
			if err := conn.SetWriteDeadline(time.Now().Add(s.cfg.WebSocketWriteTimeout)); err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case events := <-ch:
			if err := conn.SetWriteDeadline(time.Now().Add(s.cfg.WebSocketWriteTimeout)); err != nil {
				return
			}
			if err := conn.WriteJSON(events); err != nil {
				s.logger.ErrorContext(ctx, "failed to send event batch", slog.String("error", err.Error()))
				return
			}
		}
	}
}
