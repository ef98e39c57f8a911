// Package publisher fans session trigger events out over NATS so other
// processes (sound, overlays, chat bots) can react to them.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/nats-io/nats.go"

	"github.com/dickhery/Blockchain-Bingo-on-ICP/internal/domain/model"
	"github.com/dickhery/Blockchain-Bingo-on-ICP/pkg/logger"
	"github.com/dickhery/Blockchain-Bingo-on-ICP/pkg/metrics"
)

// Conn is the part of *nats.Conn the publisher needs.
type Conn interface {
	PublishMsg(m *nats.Msg) error
	Close()
}

// Envelope is the JSON body of every published message.
type Envelope struct {
	EventID   string    `json:"eventId"`
	EventType string    `json:"eventType"`
	Session   string    `json:"sessionId,omitempty"`
	Game      uint64    `json:"gameNumber"`
	Timestamp time.Time `json:"timestamp"`
	Payload   Payload   `json:"payload"`
}

// Payload carries the kind-specific event fields.
type Payload struct {
	Number        int    `json:"number,omitempty"`
	Letter        string `json:"letter,omitempty"`
	Cell          *int   `json:"cell,omitempty"`
	Marked        *bool  `json:"marked,omitempty"`
	WinnerAccount string `json:"winnerAccount,omitempty"`
	WinnerName    string `json:"winnerName,omitempty"`
}

// Publisher publishes events on a NATS connection.
type Publisher struct {
	conn    Conn
	prefix  string
	session string
	clock   clockwork.Clock
	log     logger.Logger

	mu     sync.Mutex
	closed bool
}

// New wraps an established connection.
func New(conn Conn, opts ...Option) *Publisher {
	p := &Publisher{
		conn:   conn,
		prefix: DefaultSubjectPrefix,
		clock:  clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.log == nil {
		p.log = logger.Get().Named("publisher")
	}
	return p
}

// Connect dials url and returns a publisher owning the connection.
func Connect(url string, opts ...Option) (*Publisher, error) {
	log := logger.Get().Named("publisher")
	nc, err := nats.Connect(url,
		nats.Name("bingo-session"),
		nats.MaxReconnects(DefaultMaxReconnects),
		nats.ReconnectWait(DefaultReconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn(context.Background(), "nats disconnected", logger.Error(err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info(context.Background(), "nats reconnected", logger.String("url", nc.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnect, err)
	}
	return New(nc, append([]Option{WithLogger(log)}, opts...)...), nil
}

// Subject returns the subject an event of kind for game is published on.
func (p *Publisher) Subject(game uint64, kind model.EventKind) string {
	return p.prefix + ".game." + strconv.FormatUint(game, 10) + "." + string(kind)
}

// Publish sends ev. Delivery is fire-and-forget; NATS buffers while
// reconnecting.
func (p *Publisher) Publish(ev model.Event) error {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return ErrClosed
	}

	env := Envelope{
		EventID:   uuid.NewString(),
		EventType: string(ev.Kind),
		Session:   p.session,
		Game:      ev.Game,
		Timestamp: ev.At.UTC(),
		Payload:   payloadOf(ev),
	}
	if ev.At.IsZero() {
		env.Timestamp = p.clock.Now().UTC()
	}
	data, err := json.Marshal(env)
	if err != nil {
		metrics.RecordPublish("error")
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := &nats.Msg{
		Subject: p.Subject(ev.Game, ev.Kind),
		Data:    data,
		Header: nats.Header{
			"Event-Type": []string{env.EventType},
			"Event-ID":   []string{env.EventID},
		},
	}
	if err := p.conn.PublishMsg(msg); err != nil {
		metrics.RecordPublish("error")
		return fmt.Errorf("publish %s: %w", msg.Subject, err)
	}
	metrics.RecordPublish("ok")
	p.log.Debug(context.Background(), "event published", logger.String("subject", msg.Subject), logger.String("event_id", env.EventID))
	return nil
}

// Close closes the connection. Later publishes fail with ErrClosed.
func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	p.conn.Close()
}

func payloadOf(ev model.Event) Payload {
	var pl Payload
	switch ev.Kind {
	case model.EventNumberCalled:
		pl.Number, pl.Letter = ev.Number, ev.Letter
	case model.EventCardToggled:
		cell, marked := ev.Cell, ev.Marked
		pl.Cell, pl.Marked = &cell, &marked
	}
	if ev.Winner != nil {
		pl.WinnerAccount = string(ev.Winner.AccountID)
		pl.WinnerName = ev.Winner.DisplayName
	}
	return pl
}
