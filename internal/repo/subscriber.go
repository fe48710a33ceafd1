package repo

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/polyglot_blog/internal/models"
)

// UpsertSubscriber creates the subscriber or updates the language of an
// existing one. An empty Lang keeps the stored language, or defaultLang for a
// new row. created reports whether a new row was inserted.
func (r *GormRepo) UpsertSubscriber(ctx context.Context, s *models.Subscriber, defaultLang string) (created bool, err error) {
	err = r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Subscriber
		err := tx.Where("email = ?", s.Email).First(&existing).Error
		switch {
		case err == nil:
			if s.Lang != "" && s.Lang != existing.Lang {
				if err := tx.Model(&existing).Update("lang", s.Lang).Error; err != nil {
					return err
				}
				existing.Lang = s.Lang
			}
			*s = existing
			return nil
		case errors.Is(err, gorm.ErrRecordNotFound):
			if s.Interests == nil {
				s.Interests = map[string]int64{}
			}
			if s.Lang == "" {
				s.Lang = defaultLang
			}
			created = true
			return tx.Create(s).Error
		default:
			return err
		}
	})
	return created, err
}

func (r *GormRepo) GetSubscriberByEmail(ctx context.Context, email string) (*models.Subscriber, error) {
	var s models.Subscriber
	if err := r.DB.WithContext(ctx).Where("email = ?", email).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// IncrementInterest bumps the counter for category under a row lock.
func (r *GormRepo) IncrementInterest(ctx context.Context, email, category string) (*models.Subscriber, error) {
	var s models.Subscriber
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("email = ?", email).
			First(&s).Error; err != nil {
			return err
		}
		if s.Interests == nil {
			s.Interests = map[string]int64{}
		}
		s.Interests[category]++
		return tx.Save(&s).Error
	})
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *GormRepo) ListSubscribers(ctx context.Context, offset, limit int) (int64, []models.Subscriber, error) {
	var total int64
	if err := r.DB.WithContext(ctx).Model(&models.Subscriber{}).Count(&total).Error; err != nil {
		return 0, nil, err
	}
	items := make([]models.Subscriber, 0, limit)
	if err := r.DB.WithContext(ctx).
		Order("created_at ASC").
		Offset(offset).
		Limit(limit).
		Find(&items).Error; err != nil {
		return 0, nil, err
	}
	return total, items, nil
}

func (r *GormRepo) DeleteSubscriberByEmail(ctx context.Context, email string) error {
	return r.deleteSubscriber(ctx, "email = ?", email)
}

func (r *GormRepo) DeleteSubscriber(ctx context.Context, id uuid.UUID) error {
	return r.deleteSubscriber(ctx, "id = ?", id)
}

func (r *GormRepo) deleteSubscriber(ctx context.Context, cond string, arg any) error {
	res := r.DB.WithContext(ctx).Delete(&models.Subscriber{}, cond, arg)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
