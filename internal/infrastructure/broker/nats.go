package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"PrismPipeline/internal/domain"
	"PrismPipeline/internal/ports"
)

const defaultSubject = "prism.cards"

type conn interface {
	Publish(subject string, data []byte) error
}

// CardPublisher publishes each generated card as JSON on <subject>.<country>.
type CardPublisher struct {
	conn    conn
	subject string
	close   func()
}

var _ ports.CardPublisher = (*CardPublisher)(nil)

// Connect dials NATS and returns a publisher bound to subject.
func Connect(url, subject string) (*CardPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("prism-pipeline"),
		nats.MaxReconnects(5),
		nats.ReconnectWait(time.Second),
		nats.Timeout(10*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	p := newCardPublisher(nc, subject)
	p.close = func() {
		_ = nc.Drain()
	}
	return p, nil
}

func newCardPublisher(c conn, subject string) *CardPublisher {
	if subject == "" {
		subject = defaultSubject
	}
	return &CardPublisher{conn: c, subject: subject, close: func() {}}
}

// PublishCard marshals the card and publishes it.
func (p *CardPublisher) PublishCard(ctx context.Context, card domain.CrisisCard) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled before publish: %w", err)
	}

	data, err := json.Marshal(card)
	if err != nil {
		return fmt.Errorf("marshal card %s: %w", card.ID, err)
	}

	subject := p.subject + "." + subjectToken(card.Country)
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publish card %s: %w", card.ID, err)
	}
	return nil
}

// Close drains the underlying connection.
func (p *CardPublisher) Close() {
	p.close()
}

// subjectToken lowercases s and replaces characters NATS treats as separators or wildcards.
func subjectToken(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "unknown"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t':
			return '_'
		}
		return r
	}, s)
}
