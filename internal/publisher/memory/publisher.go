// Package memory keeps download notifications in memory so service tests can
// assert on the events that would have gone to Pub/Sub.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/rstiegler/cf1400-downloader/internal/downloader"
)

var _ downloader.Publisher = (*Publisher)(nil)

// Notification is one accepted publish call.
type Notification struct {
	ID      string
	Topic   string
	Payload any
}

// Publisher records notifications in publish order.
type Publisher struct {
	mu            sync.RWMutex
	notifications []Notification
	err           error
}

// New returns an empty Publisher.
func New() *Publisher {
	return &Publisher{}
}

// FailWith makes every later Publish call return err. A nil err restores
// normal behavior.
func (p *Publisher) FailWith(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

// Publish stores the payload and returns a sequential message ID.
func (p *Publisher) Publish(_ context.Context, topic string, payload any) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return "", fmt.Errorf("publish to %s: %w", topic, p.err)
	}
	id := fmt.Sprintf("memory-%d", len(p.notifications)+1)
	p.notifications = append(p.notifications, Notification{ID: id, Topic: topic, Payload: payload})
	return id, nil
}

// Notifications returns a copy of everything published so far.
func (p *Publisher) Notifications() []Notification {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]Notification, len(p.notifications))
	copy(out, p.notifications)
	return out
}

// Events returns the download events published to topic. Payloads of any
// other type are skipped.
func (p *Publisher) Events(topic string) []downloader.DownloadedEvent {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var out []downloader.DownloadedEvent
	for _, n := range p.notifications {
		if n.Topic != topic {
			continue
		}
		switch ev := n.Payload.(type) {
		case downloader.DownloadedEvent:
			out = append(out, ev)
		case *downloader.DownloadedEvent:
			if ev != nil {
				out = append(out, *ev)
			}
		}
	}
	return out
}
