package natsadapter

import (
	"fmt"

	"github.com/nats-io/nats.go"
)

// Subscriber relays per-session view updates to in-process listeners.
type Subscriber struct {
	conn *nats.Conn
}

// NewSubscriber shares an existing connection.
func NewSubscriber(conn *nats.Conn) *Subscriber {
	return &Subscriber{conn: conn}
}

// SubscribeView calls fn with every raw ViewEvent for sessionID until the
// returned cancel func is called.
func (s *Subscriber) SubscribeView(sessionID string, fn func(data []byte)) (func(), error) {
	sub, err := s.conn.Subscribe(ViewSubject(sessionID), func(msg *nats.Msg) {
		fn(msg.Data)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", sessionID, err)
	}
	return func() { _ = sub.Unsubscribe() }, nil
}
