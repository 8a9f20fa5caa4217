// Package events fans domain events out to subscribers. Publishing is best
// effort: request handling never fails because an event could not be sent.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/R3E-Network/agent_studio/internal/app/system"
	"github.com/R3E-Network/agent_studio/pkg/logger"
)

// Publisher sends a JSON encoded payload to a subject.
type Publisher interface {
	Publish(ctx context.Context, subject string, payload any) error
}

// Event names used across services.
const (
	AgentCreated       = "agents.created"
	AgentUpdated       = "agents.updated"
	AgentDeleted       = "agents.deleted"
	TokenIssued        = "api_tokens.issued"
	TokenRevoked       = "api_tokens.revoked"
	NotificationsTopic = "notifications"
)

// Subject joins a prefix and parts with dots, skipping empty parts.
func Subject(prefix string, parts ...string) string {
	all := make([]string, 0, len(parts)+1)
	for _, p := range append([]string{prefix}, parts...) {
		if p = strings.Trim(p, ". "); p != "" {
			all = append(all, p)
		}
	}
	return strings.Join(all, ".")
}

// Noop discards every event.
type Noop struct{}

func (Noop) Publish(context.Context, string, any) error { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Recorded
}

// Recorded is one captured event.
type Recorded struct {
	Subject string
	Payload any
}

func (r *Recorder) Publish(_ context.Context, subject string, payload any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Recorded{Subject: subject, Payload: payload})
	return nil
}

// Events returns a copy of everything published so far.
func (r *Recorder) Events() []Recorded {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Recorded(nil), r.events...)
}

var (
	_ Publisher      = (*NATS)(nil)
	_ system.Service = (*NATS)(nil)
)

// NATS publishes events to a NATS server. Subjects are prefixed with the
// configured prefix.
type NATS struct {
	url    string
	prefix string
	log    *logger.Logger

	mu   sync.RWMutex
	conn *nats.Conn
}

// NewNATS creates a publisher. The connection is opened by Start.
func NewNATS(url, prefix string, log *logger.Logger) *NATS {
	if log == nil {
		log = logger.NewDefault("events")
	}
	return &NATS{url: url, prefix: prefix, log: log}
}

func (n *NATS) Name() string { return "nats-events" }

func (n *NATS) Start(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.conn != nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	conn, err := nats.Connect(n.url,
		nats.Name("agent-studio"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				n.log.WithError(err).Warn("nats disconnected")
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			n.log.WithField("url", c.ConnectedUrl()).Info("nats reconnected")
		}),
	)
	if err != nil {
		return fmt.Errorf("connect nats: %w", err)
	}
	n.conn = conn
	n.log.WithField("url", n.url).Info("nats publisher connected")
	return nil
}

func (n *NATS) Stop(context.Context) error {
	n.mu.Lock()
	conn := n.conn
	n.conn = nil
	n.mu.Unlock()

	if conn == nil {
		return nil
	}
	if err := conn.Drain(); err != nil {
		conn.Close()
		return fmt.Errorf("drain nats: %w", err)
	}
	return nil
}

// Publish encodes payload as JSON and publishes it under prefix.subject.
func (n *NATS) Publish(ctx context.Context, subject string, payload any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n.mu.RLock()
	conn := n.conn
	n.mu.RUnlock()
	if conn == nil {
		return fmt.Errorf("nats publisher not started")
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return conn.Publish(Subject(n.prefix, subject), data)
}

// Emit publishes and logs failures instead of returning them.
func Emit(ctx context.Context, pub Publisher, log *logger.Logger, subject string, payload any) {
	if pub == nil {
		return
	}
	if err := pub.Publish(ctx, subject, payload); err != nil && log != nil {
		log.WithError(err).WithField("subject", subject).Warn("publish event failed")
	}
}
