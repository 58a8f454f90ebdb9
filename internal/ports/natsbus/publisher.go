package natsbus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"truco/internal/ports"
)

const (
	DefaultURL = "nats://localhost:4222"

	SubjectHandResult  = "truco.hand.finished"
	SubjectMatchResult = "truco.match.finished"
)

// Conn is the slice of *nats.Conn the publisher needs.
type Conn interface {
	Publish(subj string, data []byte) error
}

// Connect dials the broker with reconnects enabled. An empty url uses DefaultURL.
func Connect(url, name string) (*nats.Conn, error) {
	if url == "" {
		url = DefaultURL
	}
	opts := []nats.Option{
		nats.Name(name),
		nats.Timeout(10 * time.Second),
		nats.ReconnectWait(2 * time.Second),
		nats.MaxReconnects(5),
	}
	return nats.Connect(url, opts...)
}

// Publisher sends finished hands and matches as JSON messages.
type Publisher struct {
	conn   Conn
	prefix string
}

// NewPublisher wraps conn. A non-empty prefix is prepended to every subject.
func NewPublisher(conn Conn, prefix string) *Publisher {
	return &Publisher{conn: conn, prefix: prefix}
}

func (p *Publisher) subject(s string) string {
	if p.prefix == "" {
		return s
	}
	return p.prefix + "." + s
}

func (p *Publisher) publish(subj string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", subj, err)
	}
	if err := p.conn.Publish(p.subject(subj), data); err != nil {
		return fmt.Errorf("publish %s: %w", subj, err)
	}
	return nil
}

func (p *Publisher) PublishHandResult(_ context.Context, r ports.HandResult) error {
	return p.publish(SubjectHandResult, r)
}

func (p *Publisher) PublishMatchResult(_ context.Context, r ports.MatchResult) error {
	return p.publish(SubjectMatchResult, r)
}

var _ ports.ResultPublisher = (*Publisher)(nil)
