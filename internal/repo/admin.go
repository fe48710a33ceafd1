package repo

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/polyglot_blog/internal/models"
)

func (r *GormRepo) FindAdminByUsername(ctx context.Context, username string) (*models.Admin, error) {
	var admin models.Admin
	if err := r.DB.WithContext(ctx).Where("username = ?", username).First(&admin).Error; err != nil {
		return nil, err
	}
	return &admin, nil
}

func (r *GormRepo) FindAdminByID(ctx context.Context, id uuid.UUID) (*models.Admin, error) {
	var admin models.Admin
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&admin).Error; err != nil {
		return nil, err
	}
	return &admin, nil
}

func (r *GormRepo) CreateAdminIfNotExists(ctx context.Context, a *models.Admin) error {
	tx := r.DB.WithContext(ctx).Where("username = ?", a.Username).FirstOrCreate(a)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return ErrAdminExists
	}
	return nil
}

func (r *GormRepo) SetRefreshHash(ctx context.Context, id uuid.UUID, hash string) error {
	res := r.DB.WithContext(ctx).Model(&models.Admin{}).
		Where("id = ?", id).
		Update("refresh_token_hash", hash)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SwapRefreshHash replaces the stored hash only if it still equals old.
// Zero affected rows means another refresh rotated it first.
func (r *GormRepo) SwapRefreshHash(ctx context.Context, id uuid.UUID, old, next string) error {
	res := r.DB.WithContext(ctx).Model(&models.Admin{}).
		Where("id = ? AND refresh_token_hash = ?", id, old).
		Update("refresh_token_hash", next)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStaleRefresh
	}
	return nil
}

func (r *GormRepo) ClearRefreshHash(ctx context.Context, id uuid.UUID) error {
	return r.DB.WithContext(ctx).Model(&models.Admin{}).
		Where("id = ?", id).
		Update("refresh_token_hash", nil).Error
}

// ClearRefreshHashIf clears the stored hash when it still equals expected.
func (r *GormRepo) ClearRefreshHashIf(ctx context.Context, id uuid.UUID, expected string) (bool, error) {
	res := r.DB.WithContext(ctx).Model(&models.Admin{}).
		Where("id = ? AND refresh_token_hash = ?", id, expected).
		Update("refresh_token_hash", nil)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// UpdatePassword stores a new password hash and drops the active refresh token.
func (r *GormRepo) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	res := r.DB.WithContext(ctx).Model(&models.Admin{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"password_hash":      passwordHash,
			"refresh_token_hash": nil,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
