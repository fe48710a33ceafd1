package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/polyglot_blog/internal/events"
	"github.com/Skotchmaster/polyglot_blog/internal/models"
	"github.com/Skotchmaster/polyglot_blog/internal/repo"
)

type SubscriberService struct {
	Repo        *repo.GormRepo
	Events      events.Publisher
	DefaultLang string
}

// Subscribe is idempotent: subscribing an existing email only updates its
// language when one is given. Initial interests count once each.
func (s *SubscriberService) Subscribe(ctx context.Context, email, lang string, interests []string) (*models.Subscriber, bool, error) {
	email = normalizeEmail(email)
	if !validEmail(email) {
		return nil, false, fmt.Errorf("%w: invalid email", ErrValidation)
	}

	sub := &models.Subscriber{Email: email, Lang: NormalizeLang(lang, "")}
	created, err := s.Repo.UpsertSubscriber(ctx, sub, s.DefaultLang)
	if err != nil {
		return nil, false, fmt.Errorf("upsert subscriber: %w", err)
	}

	if created {
		for _, cat := range cleanTags(interests) {
			updated, err := s.Repo.IncrementInterest(ctx, email, cat)
			if err != nil {
				return nil, false, fmt.Errorf("record interest: %w", err)
			}
			sub = updated
		}
		publish(ctx, s.Events, events.TopicSubscriber, email, events.Event{
			Type: "subscriber.created",
			At:   time.Now().UTC(),
			Data: map[string]string{"email": email, "lang": sub.Lang},
		})
	}
	return sub, created, nil
}

// AddInterest bumps the subscriber's counter for a category slug.
func (s *SubscriberService) AddInterest(ctx context.Context, email, category string) (*models.Subscriber, error) {
	email = normalizeEmail(email)
	category = strings.ToLower(strings.TrimSpace(category))
	if !validEmail(email) || category == "" {
		return nil, fmt.Errorf("%w: email and category are required", ErrValidation)
	}
	sub, err := s.Repo.IncrementInterest(ctx, email, category)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("record interest: %w", err)
	}
	return sub, nil
}

func (s *SubscriberService) Unsubscribe(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return fmt.Errorf("%w: email is required", ErrValidation)
	}
	if err := s.Repo.DeleteSubscriberByEmail(ctx, email); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete subscriber: %w", err)
	}
	publish(ctx, s.Events, events.TopicSubscriber, email, events.Event{
		Type: "subscriber.deleted",
		At:   time.Now().UTC(),
		Data: map[string]string{"email": email},
	})
	return nil
}

func (s *SubscriberService) List(ctx context.Context, offset, limit int) (int64, []models.Subscriber, error) {
	total, items, err := s.Repo.ListSubscribers(ctx, offset, limit)
	if err != nil {
		return 0, nil, fmt.Errorf("list subscribers: %w", err)
	}
	return total, items, nil
}

func (s *SubscriberService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.Repo.DeleteSubscriber(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete subscriber: %w", err)
	}
	return nil
}
