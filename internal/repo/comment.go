package repo

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/polyglot_blog/internal/models"
)

type CommentFilter struct {
	BlogID   *uuid.UUID
	Approved *bool
}

func (f CommentFilter) apply(db *gorm.DB) *gorm.DB {
	if f.BlogID != nil {
		db = db.Where("blog_id = ?", *f.BlogID)
	}
	if f.Approved != nil {
		db = db.Where("approved = ?", *f.Approved)
	}
	return db
}

func (r *GormRepo) ListComments(ctx context.Context, f CommentFilter, offset, limit int) (int64, []models.Comment, error) {
	var total int64
	if err := f.apply(r.DB.WithContext(ctx).Model(&models.Comment{})).Count(&total).Error; err != nil {
		return 0, nil, err
	}

	items := make([]models.Comment, 0, limit)
	if err := f.apply(r.DB.WithContext(ctx).Model(&models.Comment{})).
		Order("created_at ASC").
		Offset(offset).
		Limit(limit).
		Find(&items).Error; err != nil {
		return 0, nil, err
	}
	return total, items, nil
}

func (r *GormRepo) CreateComment(ctx context.Context, c *models.Comment) error {
	return r.DB.WithContext(ctx).Create(c).Error
}

func (r *GormRepo) ApproveComment(ctx context.Context, id uuid.UUID) (*models.Comment, error) {
	res := r.DB.WithContext(ctx).Model(&models.Comment{}).
		Where("id = ?", id).
		Update("approved", true)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}

	var c models.Comment
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *GormRepo) DeleteComment(ctx context.Context, id uuid.UUID) error {
	res := r.DB.WithContext(ctx).Delete(&models.Comment{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
