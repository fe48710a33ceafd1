package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const RoleAdmin = "admin"

// Localized maps a language code to text, e.g. {"en": "Hello", "uk": "Привіт"}.
type Localized map[string]string

type Admin struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey"   json:"id"`
	Username         string    `gorm:"uniqueIndex;not null"   json:"username"`
	PasswordHash     string    `gorm:"not null"               json:"-"`
	RefreshTokenHash *string   `gorm:"column:refresh_token_hash" json:"-"`
	Role             string    `gorm:"not null;default:admin" json:"role"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

type Category struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"           json:"id"`
	Slug      string    `gorm:"uniqueIndex;not null"           json:"slug"`
	Name      Localized `gorm:"type:text;serializer:json"      json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Blog struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey"      json:"id"`
	Slug        string     `gorm:"uniqueIndex;not null"      json:"slug"`
	CategoryID  *uuid.UUID `gorm:"type:uuid;index"           json:"categoryId,omitempty"`
	Title       Localized  `gorm:"type:text;serializer:json" json:"title"`
	Summary     Localized  `gorm:"type:text;serializer:json" json:"summary"`
	Content     Localized  `gorm:"type:text;serializer:json" json:"content"`
	Tags        []string   `gorm:"type:text;serializer:json" json:"tags"`
	ImageURL    string     `json:"imageUrl"`
	Published   bool       `gorm:"index;default:false"       json:"published"`
	PublishedAt *time.Time `json:"publishedAt,omitempty"`
	Views       int64      `gorm:"default:0"                 json:"views"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

type Comment struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	BlogID      uuid.UUID `gorm:"type:uuid;index"      json:"blogId"`
	AuthorName  string    `gorm:"not null"             json:"authorName"`
	AuthorEmail string    `json:"-"`
	Body        string    `gorm:"type:text;not null"   json:"body"`
	Approved    bool      `gorm:"index;default:false"  json:"approved"`
	CreatedAt   time.Time `json:"createdAt"`
}

type Subscriber struct {
	ID        uuid.UUID        `gorm:"type:uuid;primaryKey"      json:"id"`
	Email     string           `gorm:"uniqueIndex;not null"      json:"email"`
	Lang      string           `gorm:"not null;default:en"       json:"lang"`
	Interests map[string]int64 `gorm:"type:text;serializer:json" json:"interests"`
	CreatedAt time.Time        `json:"createdAt"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

func All() []any {
	return []any{&Admin{}, &Category{}, &Blog{}, &Comment{}, &Subscriber{}}
}

func (a *Admin) BeforeCreate(*gorm.DB) error      { a.ID = ensureID(a.ID); return nil }
func (c *Category) BeforeCreate(*gorm.DB) error   { c.ID = ensureID(c.ID); return nil }
func (b *Blog) BeforeCreate(*gorm.DB) error       { b.ID = ensureID(b.ID); return nil }
func (c *Comment) BeforeCreate(*gorm.DB) error    { c.ID = ensureID(c.ID); return nil }
func (s *Subscriber) BeforeCreate(*gorm.DB) error { s.ID = ensureID(s.ID); return nil }

func ensureID(id uuid.UUID) uuid.UUID {
	if id == uuid.Nil {
		return uuid.New()
	}
	return id
}

// Pick returns the text for lang, falling back to def and then to any value.
func (l Localized) Pick(lang, def string) string {
	if v, ok := l[lang]; ok && v != "" {
		return v
	}
	if v, ok := l[def]; ok && v != "" {
		return v
	}
	for _, v := range l {
		if v != "" {
			return v
		}
	}
	return ""
}
