package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/polyglot_blog/internal/events"
	"github.com/Skotchmaster/polyglot_blog/internal/logging"
	"github.com/Skotchmaster/polyglot_blog/internal/models"
	"github.com/Skotchmaster/polyglot_blog/internal/repo"
	"github.com/Skotchmaster/polyglot_blog/internal/transport"
)

// BlogIndex is the full-text index kept in sync with published blogs.
type BlogIndex interface {
	IndexBlog(ctx context.Context, b *models.Blog) error
	DeleteBlog(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, query, lang string, from, size int) (int64, []uuid.UUID, error)
}

type BlogService struct {
	Repo        *repo.GormRepo
	Index       BlogIndex
	Events      events.Publisher
	DefaultLang string
	Now         func() time.Time
}

// BlogView is a blog rendered in a single language.
type BlogView struct {
	ID          uuid.UUID  `json:"id"`
	Slug        string     `json:"slug"`
	Lang        string     `json:"lang"`
	CategoryID  *uuid.UUID `json:"categoryId,omitempty"`
	Title       string     `json:"title"`
	Summary     string     `json:"summary"`
	Content     string     `json:"content,omitempty"`
	Tags        []string   `json:"tags"`
	ImageURL    string     `json:"imageUrl"`
	PublishedAt *time.Time `json:"publishedAt,omitempty"`
	Views       int64      `json:"views"`
	Languages   []string   `json:"languages"`
}

func (s *BlogService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *BlogService) view(b *models.Blog, lang string, withContent bool) BlogView {
	v := BlogView{
		ID:          b.ID,
		Slug:        b.Slug,
		Lang:        lang,
		CategoryID:  b.CategoryID,
		Title:       b.Title.Pick(lang, s.DefaultLang),
		Summary:     b.Summary.Pick(lang, s.DefaultLang),
		Tags:        b.Tags,
		ImageURL:    b.ImageURL,
		PublishedAt: b.PublishedAt,
		Views:       b.Views,
		Languages:   languages(b.Title),
	}
	if v.Tags == nil {
		v.Tags = []string{}
	}
	if withContent {
		v.Content = b.Content.Pick(lang, s.DefaultLang)
	}
	return v
}

func languages(l models.Localized) []string {
	out := make([]string, 0, len(l))
	for k, v := range l {
		if v != "" {
			out = append(out, k)
		}
	}
	slices.Sort(out)
	return out
}

func (s *BlogService) views(items []models.Blog, lang string) []BlogView {
	out := make([]BlogView, 0, len(items))
	for i := range items {
		out = append(out, s.view(&items[i], lang, false))
	}
	return out
}

// ListPublished returns published blogs, optionally narrowed to a category
// slug. An unknown category yields an empty page.
func (s *BlogService) ListPublished(ctx context.Context, lang, categorySlug string, offset, limit int) (int64, []BlogView, error) {
	lang = NormalizeLang(lang, s.DefaultLang)
	published := true
	filter := repo.BlogFilter{Published: &published}

	if categorySlug != "" {
		cat, err := s.Repo.GetCategoryBySlug(ctx, categorySlug)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return 0, []BlogView{}, nil
			}
			return 0, nil, fmt.Errorf("find category: %w", err)
		}
		filter.CategoryID = &cat.ID
	}

	total, items, err := s.Repo.ListBlogs(ctx, filter, offset, limit)
	if err != nil {
		return 0, nil, fmt.Errorf("list blogs: %w", err)
	}
	return total, s.views(items, lang), nil
}

// GetPublished returns a published blog by slug and counts the view.
func (s *BlogService) GetPublished(ctx context.Context, slug, lang string) (*BlogView, error) {
	lang = NormalizeLang(lang, s.DefaultLang)
	b, err := s.Repo.GetBlogBySlug(ctx, slug, true)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get blog: %w", err)
	}
	if err := s.Repo.IncrementBlogViews(ctx, b.ID); err != nil {
		logging.FromContext(ctx).Warn("increment_views_failed", "blog_id", b.ID.String(), "error", err)
	} else {
		b.Views++
	}
	v := s.view(b, lang, true)
	return &v, nil
}

// Search queries the index and falls back to the database when the index is
// not configured or fails.
func (s *BlogService) Search(ctx context.Context, query, lang string, offset, limit int) (int64, []BlogView, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return 0, nil, fmt.Errorf("%w: query is required", ErrValidation)
	}
	lang = NormalizeLang(lang, s.DefaultLang)
	l := logging.FromContext(ctx).With("svc", "blog.search")

	if s.Index != nil {
		total, ids, err := s.Index.Search(ctx, query, lang, offset, limit)
		if err == nil {
			items, err := s.Repo.BlogsByIDs(ctx, ids)
			if err != nil {
				return 0, nil, fmt.Errorf("load blogs: %w", err)
			}
			return total, s.views(items, lang), nil
		}
		l.Warn("search_index_failed", "reason", "falling back to database", "error", err)
	}

	total, items, err := s.Repo.SearchBlogs(ctx, query, offset, limit)
	if err != nil {
		return 0, nil, fmt.Errorf("search blogs: %w", err)
	}
	return total, s.views(items, lang), nil
}

func (s *BlogService) List(ctx context.Context, published *bool, offset, limit int) (int64, []models.Blog, error) {
	total, items, err := s.Repo.ListBlogs(ctx, repo.BlogFilter{Published: published}, offset, limit)
	if err != nil {
		return 0, nil, fmt.Errorf("list blogs: %w", err)
	}
	return total, items, nil
}

func (s *BlogService) Get(ctx context.Context, id uuid.UUID) (*models.Blog, error) {
	b, err := s.Repo.GetBlog(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get blog: %w", err)
	}
	return b, nil
}

func (s *BlogService) Create(ctx context.Context, req transport.CreateBlogRequest) (*models.Blog, error) {
	if !hasText(req.Title) {
		return nil, fmt.Errorf("%w: title needs at least one translation", ErrValidation)
	}
	slug := strings.TrimSpace(req.Slug)
	if slug == "" {
		slug = Slugify(req.Title.Pick(s.DefaultLang, s.DefaultLang))
	}
	if !validSlug(slug) {
		return nil, fmt.Errorf("%w: invalid slug %q", ErrValidation, slug)
	}
	categoryID, err := s.resolveCategory(ctx, req.CategoryID)
	if err != nil {
		return nil, err
	}

	b := &models.Blog{
		Slug:       slug,
		CategoryID: categoryID,
		Title:      mergeLocalized(nil, req.Title),
		Summary:    mergeLocalized(nil, req.Summary),
		Content:    mergeLocalized(nil, req.Content),
		Tags:       cleanTags(req.Tags),
		ImageURL:   req.ImageURL,
		Published:  req.Published,
	}
	if b.Published {
		at := s.now()
		b.PublishedAt = &at
	}

	if err := s.Repo.CreateBlog(ctx, b); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: slug %q already exists", ErrConflict, slug)
		}
		return nil, fmt.Errorf("create blog: %w", err)
	}

	s.afterChange(ctx, b, "blog.created")
	return b, nil
}

func (s *BlogService) Patch(ctx context.Context, id uuid.UUID, req transport.PatchBlogRequest) (*models.Blog, error) {
	b, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Slug != nil {
		slug := strings.TrimSpace(*req.Slug)
		if !validSlug(slug) {
			return nil, fmt.Errorf("%w: invalid slug %q", ErrValidation, slug)
		}
		b.Slug = slug
	}
	if req.CategoryID != nil {
		categoryID, err := s.resolveCategory(ctx, req.CategoryID)
		if err != nil {
			return nil, err
		}
		b.CategoryID = categoryID
	}
	b.Title = mergeLocalized(b.Title, req.Title)
	b.Summary = mergeLocalized(b.Summary, req.Summary)
	b.Content = mergeLocalized(b.Content, req.Content)
	if !hasText(b.Title) {
		return nil, fmt.Errorf("%w: title needs at least one translation", ErrValidation)
	}
	if req.Tags != nil {
		b.Tags = cleanTags(*req.Tags)
	}
	if req.ImageURL != nil {
		b.ImageURL = *req.ImageURL
	}

	if err := s.Repo.SaveBlog(ctx, b); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: slug %q already exists", ErrConflict, b.Slug)
		}
		return nil, fmt.Errorf("save blog: %w", err)
	}

	s.afterChange(ctx, b, "blog.updated")
	return b, nil
}

func (s *BlogService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.Repo.DeleteBlog(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete blog: %w", err)
	}
	if s.Index != nil {
		if err := s.Index.DeleteBlog(ctx, id); err != nil {
			logging.FromContext(ctx).Warn("search_index_delete_failed", "blog_id", id.String(), "error", err)
		}
	}
	publish(ctx, s.Events, events.TopicBlog, id.String(), events.Event{Type: "blog.deleted", At: s.now(), Data: map[string]string{"id": id.String()}})
	return nil
}

func (s *BlogService) SetPublished(ctx context.Context, id uuid.UUID, published bool) (*models.Blog, error) {
	var at *time.Time
	if published {
		now := s.now()
		at = &now
	}
	b, err := s.Repo.SetBlogPublished(ctx, id, published, at)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("set published: %w", err)
	}
	typ := "blog.unpublished"
	if published {
		typ = "blog.published"
	}
	s.afterChange(ctx, b, typ)
	return b, nil
}

func (s *BlogService) resolveCategory(ctx context.Context, raw *string) (*uuid.UUID, error) {
	id, ok := parseOptionalID(raw)
	if !ok {
		return nil, fmt.Errorf("%w: categoryId is not a uuid", ErrValidation)
	}
	if id == nil {
		return nil, nil
	}
	if _, err := s.Repo.GetCategory(ctx, *id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: category does not exist", ErrValidation)
		}
		return nil, fmt.Errorf("find category: %w", err)
	}
	return id, nil
}

// afterChange keeps the search index in step and emits a blog event. Both are
// best effort.
func (s *BlogService) afterChange(ctx context.Context, b *models.Blog, typ string) {
	l := logging.FromContext(ctx)
	if s.Index != nil {
		var err error
		if b.Published {
			err = s.Index.IndexBlog(ctx, b)
		} else {
			err = s.Index.DeleteBlog(ctx, b.ID)
		}
		if err != nil {
			l.Warn("search_index_sync_failed", "blog_id", b.ID.String(), "error", err)
		}
	}
	publish(ctx, s.Events, events.TopicBlog, b.ID.String(), events.Event{
		Type: typ,
		At:   s.now(),
		Data: map[string]any{"id": b.ID.String(), "slug": b.Slug, "published": b.Published},
	})
}

func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
