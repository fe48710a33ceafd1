package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/polyglot_blog/internal/models"
)

type BlogFilter struct {
	Published  *bool
	CategoryID *uuid.UUID
}

func (f BlogFilter) apply(db *gorm.DB) *gorm.DB {
	if f.Published != nil {
		db = db.Where("published = ?", *f.Published)
	}
	if f.CategoryID != nil {
		db = db.Where("category_id = ?", *f.CategoryID)
	}
	return db
}

func (r *GormRepo) ListBlogs(ctx context.Context, f BlogFilter, offset, limit int) (int64, []models.Blog, error) {
	var total int64
	if err := f.apply(r.DB.WithContext(ctx).Model(&models.Blog{})).Count(&total).Error; err != nil {
		return 0, nil, err
	}

	items := make([]models.Blog, 0, limit)
	if err := f.apply(r.DB.WithContext(ctx).Model(&models.Blog{})).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&items).Error; err != nil {
		return 0, nil, err
	}

	return total, items, nil
}

func (r *GormRepo) GetBlog(ctx context.Context, id uuid.UUID) (*models.Blog, error) {
	var blog models.Blog
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&blog).Error; err != nil {
		return nil, err
	}
	return &blog, nil
}

func (r *GormRepo) GetBlogBySlug(ctx context.Context, slug string, publishedOnly bool) (*models.Blog, error) {
	q := r.DB.WithContext(ctx).Where("slug = ?", slug)
	if publishedOnly {
		q = q.Where("published = ?", true)
	}
	var blog models.Blog
	if err := q.First(&blog).Error; err != nil {
		return nil, err
	}
	return &blog, nil
}

func (r *GormRepo) BlogsByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Blog, error) {
	if len(ids) == 0 {
		return []models.Blog{}, nil
	}
	var items []models.Blog
	if err := r.DB.WithContext(ctx).Where("id IN ? AND published = ?", ids, true).Find(&items).Error; err != nil {
		return nil, err
	}

	byID := make(map[uuid.UUID]models.Blog, len(items))
	for _, b := range items {
		byID[b.ID] = b
	}
	ordered := make([]models.Blog, 0, len(items))
	for _, id := range ids {
		if b, ok := byID[id]; ok {
			ordered = append(ordered, b)
		}
	}
	return ordered, nil
}

func (r *GormRepo) CreateBlog(ctx context.Context, blog *models.Blog) error {
	return r.DB.WithContext(ctx).Create(blog).Error
}

func (r *GormRepo) SaveBlog(ctx context.Context, blog *models.Blog) error {
	return r.DB.WithContext(ctx).Save(blog).Error
}

// DeleteBlog removes the blog together with its comments.
func (r *GormRepo) DeleteBlog(ctx context.Context, id uuid.UUID) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("blog_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Blog{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *GormRepo) SetBlogPublished(ctx context.Context, id uuid.UUID, published bool, at *time.Time) (*models.Blog, error) {
	res := r.DB.WithContext(ctx).Model(&models.Blog{}).
		Where("id = ?", id).
		Updates(map[string]any{"published": published, "published_at": at})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return r.GetBlog(ctx, id)
}

func (r *GormRepo) IncrementBlogViews(ctx context.Context, id uuid.UUID) error {
	return r.DB.WithContext(ctx).Model(&models.Blog{}).
		Where("id = ?", id).
		UpdateColumn("views", gorm.Expr("views + ?", 1)).Error
}

// SearchBlogs is the database fallback when no search index is configured:
// a case-insensitive substring match over the serialized text columns.
func (r *GormRepo) SearchBlogs(ctx context.Context, q string, offset, limit int) (int64, []models.Blog, error) {
	pattern := likePattern(q)
	where := r.DB.WithContext(ctx).Model(&models.Blog{}).
		Where("published = ?", true).
		Where(
			r.DB.Where(`LOWER(title) LIKE ? ESCAPE '\'`, pattern).
				Or(`LOWER(summary) LIKE ? ESCAPE '\'`, pattern).
				Or(`LOWER(content) LIKE ? ESCAPE '\'`, pattern),
		)

	var total int64
	if err := where.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return 0, nil, err
	}

	items := make([]models.Blog, 0, limit)
	if err := where.Session(&gorm.Session{}).
		Order("published_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&items).Error; err != nil {
		return 0, nil, err
	}
	return total, items, nil
}
