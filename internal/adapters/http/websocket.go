package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/nats-io/nats.go"

	natsadapter "github.com/samirrijal/hiitroute/internal/adapters/nats"
	"github.com/samirrijal/hiitroute/internal/core/domain"
	"github.com/samirrijal/hiitroute/internal/core/usecases"
	"github.com/samirrijal/hiitroute/internal/pkg/metrics"
)

// wsMessage is sent by the client to subscribe to or unsubscribe from a feed.
type wsMessage struct {
	Action    string `json:"action"`     // "subscribe" | "unsubscribe"
	Channel   string `json:"channel"`    // "session" (default) | "routes"
	SessionID string `json:"session_id"` // required for the session channel
	CrewID    string `json:"crew_id"`    // required for the routes channel
}

// WebSocketHandler relays live session updates and route-saved events from
// NATS to connected clients.
//
//	{"action":"subscribe","channel":"session","session_id":"..."}
//	{"action":"subscribe","channel":"routes","crew_id":"..."}
//
// A session subscription first receives a "snapshot" update with the
// session's current view, then every later transition.
func WebSocketHandler(deps *Dependencies) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		log := slog.Default().With("remote_addr", c.RemoteAddr().String())
		log.Info("ws client connected")
		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()

		var mu sync.Mutex
		subs := make(map[string]*nats.Subscription) // subject -> subscription

		writeJSON := func(v interface{}) error {
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			return c.WriteMessage(websocket.TextMessage, data)
		}
		relay := func(msg *nats.Msg) {
			_ = writeJSON(json.RawMessage(msg.Data))
		}

		done := make(chan struct{})
		go func() {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					mu.Lock()
					err := c.WriteMessage(websocket.PingMessage, nil)
					mu.Unlock()
					if err != nil {
						return
					}
				case <-done:
					return
				}
			}
		}()

		for {
			_, raw, err := c.ReadMessage()
			if err != nil {
				break
			}

			var m wsMessage
			if err := json.Unmarshal(raw, &m); err != nil {
				_ = writeJSON(map[string]string{"error": "invalid JSON"})
				continue
			}

			var subject string
			switch m.Channel {
			case "", "session":
				if m.SessionID == "" {
					_ = writeJSON(map[string]string{"error": "session_id is required"})
					continue
				}
				subject = natsadapter.SessionSubject(m.SessionID)
			case "routes":
				if m.CrewID == "" {
					_ = writeJSON(map[string]string{"error": "crew_id is required"})
					continue
				}
				subject = natsadapter.RouteSavedSubject(m.CrewID)
			default:
				_ = writeJSON(map[string]string{"error": "unknown channel: " + m.Channel})
				continue
			}

			switch m.Action {
			case "subscribe":
				if _, exists := subs[subject]; exists {
					_ = writeJSON(map[string]string{"status": "already subscribed", "subject": subject})
					continue
				}
				sessionID := ""
				if m.Channel != "routes" {
					sessionID = m.SessionID
				}
				var nc natsSubscriber
				if deps.NATS != nil {
					nc = deps.NATS
				}
				s, err := openFeed(deps, nc, subject, sessionID, relay, writeJSON)
				if err != nil {
					_ = writeJSON(map[string]string{"error": err.Error()})
					continue
				}
				subs[subject] = s
				_ = writeJSON(map[string]string{"status": "subscribed", "subject": subject})

			case "unsubscribe":
				if s, exists := subs[subject]; exists {
					_ = s.Unsubscribe()
					delete(subs, subject)
					_ = writeJSON(map[string]string{"status": "unsubscribed", "subject": subject})
				} else {
					_ = writeJSON(map[string]string{"error": "not subscribed to " + subject})
				}

			default:
				_ = writeJSON(map[string]string{"error": "unknown action: " + m.Action})
			}
		}

		close(done)
		for _, s := range subs {
			_ = s.Unsubscribe()
		}
		log.Info("ws client disconnected")
	}
}

type natsSubscriber interface {
	Subscribe(subj string, cb nats.MsgHandler) (*nats.Subscription, error)
}

var errLiveUnavailable = errors.New("live updates unavailable")

// openFeed subscribes to subject and then, for a session feed, writes the
// snapshot. Subscribing first means no transition is missed; an update that
// races the snapshot carries a version the client has already seen.
// With no NATS connection only the snapshot is sent.
func openFeed(deps *Dependencies, nc natsSubscriber, subject, sessionID string, relay nats.MsgHandler, write func(v interface{}) error) (*nats.Subscription, error) {
	var sub *nats.Subscription
	if nc != nil {
		s, err := nc.Subscribe(subject, relay)
		if err != nil {
			return nil, fmt.Errorf("subscribe failed: %w", err)
		}
		sub = s
	}

	if sessionID != "" {
		update, err := snapshot(deps, sessionID)
		if err != nil {
			if sub != nil {
				_ = sub.Unsubscribe()
			}
			return nil, err
		}
		_ = write(update)
	}

	if nc == nil {
		return nil, errLiveUnavailable
	}
	return sub, nil
}

// snapshot builds the first update a session subscriber receives.
func snapshot(deps *Dependencies, sessionID string) (*domain.SessionUpdate, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	sess, err := deps.Sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return &domain.SessionUpdate{
		SessionID: sess.ID,
		Operation: "snapshot",
		Version:   sess.Version,
		View:      usecases.SessionView(sess),
		Time:      time.Now().UTC(),
	}, nil
}
