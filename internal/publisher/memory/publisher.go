// Package memory keeps run-completion events in process so local serve mode
// and tests can inspect what would have gone to Pub/Sub.
package memory

import (
	"context"
	"strconv"
	"sync"
)

// DefaultRetention bounds how many events a long-running serve process keeps.
const DefaultRetention = 1024

// Event is one recorded publish.
type Event struct {
	Seq     uint64
	Topic   string
	Payload any
}

// Publisher is a bounded, concurrency-safe event log.
type Publisher struct {
	mu     sync.Mutex
	seq    uint64
	retain int
	events []Event
}

// Option adjusts a Publisher.
type Option func(*Publisher)

// WithRetention caps the number of retained events; n <= 0 keeps the default.
func WithRetention(n int) Option {
	return func(p *Publisher) {
		if n > 0 {
			p.retain = n
		}
	}
}

// New builds a Publisher.
func New(opts ...Option) *Publisher {
	p := &Publisher{retain: DefaultRetention}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Publish appends the event, evicting the oldest once retention is reached.
// The returned ID is the event's sequence number.
func (p *Publisher) Publish(_ context.Context, topic string, payload any) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seq++
	if len(p.events) >= p.retain {
		p.events = append(p.events[:0], p.events[len(p.events)-p.retain+1:]...)
	}
	p.events = append(p.events, Event{Seq: p.seq, Topic: topic, Payload: payload})
	return "memory-" + strconv.FormatUint(p.seq, 10), nil
}

// Messages returns a copy of the retained events, oldest first.
func (p *Publisher) Messages() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Event(nil), p.events...)
}

// ByTopic returns the retained events published to topic.
func (p *Publisher) ByTopic(topic string) []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []Event
	for _, ev := range p.events {
		if ev.Topic == topic {
			out = append(out, ev)
		}
	}
	return out
}
