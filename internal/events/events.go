package events

import (
	"context"
	"time"
)

const (
	TopicAdmin      = "admin_events"
	TopicBlog       = "blog_events"
	TopicComment    = "comment_events"
	TopicSubscriber = "subscriber_events"
)

type Event struct {
	Type string    `json:"type"`
	At   time.Time `json:"at"`
	Data any       `json:"data,omitempty"`
}

type Publisher interface {
	Publish(ctx context.Context, topic, key string, ev Event) error
}

// Nop drops every event. Used when no brokers are configured.
type Nop struct{}

func (Nop) Publish(context.Context, string, string, Event) error { return nil }
