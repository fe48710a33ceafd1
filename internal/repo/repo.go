package repo

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

var (
	ErrAdminExists  = errors.New("admin already exists")
	ErrStaleRefresh = errors.New("refresh token hash changed concurrently")
)

type GormRepo struct {
	DB *gorm.DB
}

func New(db *gorm.DB) *GormRepo {
	return &GormRepo{DB: db}
}

func likePattern(q string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + strings.ToLower(r.Replace(q)) + "%"
}
