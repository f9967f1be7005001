package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/touristroute/internal/core/domain"
)

const (
	StreamName     = "ROUTE_VIEWS"
	viewSubject    = "routeview.view."
	searchSubject  = "routeview.search."
	streamSubjects = "routeview.>"
)

// ViewEvent is published whenever a session's latest view changes.
type ViewEvent struct {
	Type        string            `json:"type"`
	SessionID   string            `json:"session_id"`
	View        *domain.RouteView `json:"view"`
	PublishedAt time.Time         `json:"published_at"`
}

// Publisher implements ports.EventPublisher using NATS JetStream.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS and enables JetStream.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	cfg := &nats.StreamConfig{
		Name:      StreamName,
		Subjects:  []string{streamSubjects},
		Retention: nats.LimitsPolicy,
		MaxAge:    24 * time.Hour,
		Storage:   nats.FileStorage,
	}
	if _, err := js.AddStream(cfg); err != nil {
		// Stream may already exist, try update
		if _, err := js.UpdateStream(cfg); err != nil {
			conn.Close()
			return nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
		}
	}

	return &Publisher{conn: conn, js: js}, nil
}

// PublishViewUpdated announces a session's new latest view.
func (p *Publisher) PublishViewUpdated(ctx context.Context, sessionID string, view *domain.RouteView) error {
	data, err := json.Marshal(ViewEvent{
		Type:        "view.updated",
		SessionID:   sessionID,
		View:        view,
		PublishedAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	_, err = p.js.Publish(ViewSubject(sessionID), data, nats.Context(ctx))
	return err
}

// PublishSearchRecorded appends a search outcome to the stream.
func (p *Publisher) PublishSearchRecorded(ctx context.Context, rec *domain.SearchRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(searchSubject+string(rec.Status), data, nats.Context(ctx))
	return err
}

// Conn exposes the underlying connection for core subscriptions.
func (p *Publisher) Conn() *nats.Conn {
	return p.conn
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

// ViewSubject is the subject carrying view updates for one session.
func ViewSubject(sessionID string) string {
	return viewSubject + subjectToken(sessionID)
}

// subjectToken makes s usable as a single subject token.
func subjectToken(s string) string {
	if s == "" {
		return "_"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r == '.' || r == '*' || r == '>' || r <= ' ' || r == 0x7f:
			return '_'
		default:
			return r
		}
	}, s)
}

// RawConn creates a plain NATS connection for subscribing (e.g. WebSocket relay).
func RawConn(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.Name("touristroute"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}
