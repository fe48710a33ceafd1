package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/polyglot_blog/internal/models"
	"github.com/Skotchmaster/polyglot_blog/internal/repo"
	"github.com/Skotchmaster/polyglot_blog/internal/transport"
)

type CategoryService struct {
	Repo        *repo.GormRepo
	DefaultLang string
}

type CategoryView struct {
	ID   uuid.UUID `json:"id"`
	Slug string    `json:"slug"`
	Name string    `json:"name"`
}

func (s *CategoryService) List(ctx context.Context, lang string) ([]CategoryView, error) {
	lang = NormalizeLang(lang, s.DefaultLang)
	items, err := s.Repo.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	out := make([]CategoryView, 0, len(items))
	for _, c := range items {
		out = append(out, CategoryView{ID: c.ID, Slug: c.Slug, Name: c.Name.Pick(lang, s.DefaultLang)})
	}
	return out, nil
}

func (s *CategoryService) Create(ctx context.Context, req transport.CategoryRequest) (*models.Category, error) {
	if !hasText(req.Name) {
		return nil, fmt.Errorf("%w: name needs at least one translation", ErrValidation)
	}
	slug := strings.TrimSpace(req.Slug)
	if slug == "" {
		slug = Slugify(req.Name.Pick(s.DefaultLang, s.DefaultLang))
	}
	if !validSlug(slug) {
		return nil, fmt.Errorf("%w: invalid slug %q", ErrValidation, slug)
	}

	cat := &models.Category{Slug: slug, Name: mergeLocalized(nil, req.Name)}
	if err := s.Repo.CreateCategory(ctx, cat); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: slug %q already exists", ErrConflict, slug)
		}
		return nil, fmt.Errorf("create category: %w", err)
	}
	return cat, nil
}

func (s *CategoryService) Patch(ctx context.Context, id uuid.UUID, req transport.PatchCategoryRequest) (*models.Category, error) {
	cat, err := s.Repo.GetCategory(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get category: %w", err)
	}

	if req.Slug != nil {
		slug := strings.TrimSpace(*req.Slug)
		if !validSlug(slug) {
			return nil, fmt.Errorf("%w: invalid slug %q", ErrValidation, slug)
		}
		cat.Slug = slug
	}
	cat.Name = mergeLocalized(cat.Name, req.Name)
	if !hasText(cat.Name) {
		return nil, fmt.Errorf("%w: name needs at least one translation", ErrValidation)
	}

	if err := s.Repo.SaveCategory(ctx, cat); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: slug %q already exists", ErrConflict, cat.Slug)
		}
		return nil, fmt.Errorf("save category: %w", err)
	}
	return cat, nil
}

func (s *CategoryService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.Repo.DeleteCategory(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete category: %w", err)
	}
	return nil
}
