package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/polyglot_blog/internal/events"
	"github.com/Skotchmaster/polyglot_blog/internal/repo"
	"github.com/Skotchmaster/polyglot_blog/internal/testutil"
)

type recordedEvent struct {
	Topic string
	Key   string
	Event events.Event
}

type recorder struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *recorder) Publish(_ context.Context, topic, key string, ev events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{Topic: topic, Key: key, Event: ev})
	return nil
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Event.Type)
	}
	return out
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type authEnv struct {
	svc    *AuthService
	repo   *repo.GormRepo
	clock  *clock
	events *recorder
}

func newAuthEnv(t *testing.T) *authEnv {
	t.Helper()

	r := repo.New(testutil.NewDB(t))
	c := newClock()
	rec := &recorder{}
	svc := &AuthService{
		Repo:          r,
		AccessSecret:  []byte("test-access-secret"),
		RefreshSecret: []byte("test-refresh-secret"),
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    7 * 24 * time.Hour,
		Events:        rec,
		Now:           c.Now,
	}

	created, err := svc.EnsureAdmin(context.Background(), "root", "Secret123")
	require.NoError(t, err)
	require.True(t, created)

	return &authEnv{svc: svc, repo: r, clock: c, events: rec}
}
