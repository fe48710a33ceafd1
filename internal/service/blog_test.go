package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/polyglot_blog/internal/models"
	"github.com/Skotchmaster/polyglot_blog/internal/repo"
	"github.com/Skotchmaster/polyglot_blog/internal/testutil"
	"github.com/Skotchmaster/polyglot_blog/internal/transport"
)

type fakeIndex struct {
	mu      sync.Mutex
	docs    map[uuid.UUID]*models.Blog
	fail    bool
	deleted []uuid.UUID
}

func newFakeIndex() *fakeIndex { return &fakeIndex{docs: map[uuid.UUID]*models.Blog{}} }

func (f *fakeIndex) IndexBlog(_ context.Context, b *models.Blog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *b
	f.docs[b.ID] = &cp
	return nil
}

func (f *fakeIndex) DeleteBlog(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.docs, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeIndex) Search(_ context.Context, _, _ string, _, _ int) (int64, []uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return 0, nil, errors.New("index unavailable")
	}
	ids := make([]uuid.UUID, 0, len(f.docs))
	for id := range f.docs {
		ids = append(ids, id)
	}
	return int64(len(ids)), ids, nil
}

func (f *fakeIndex) has(id uuid.UUID) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.docs[id]
	return ok
}

type blogEnv struct {
	blogs  *BlogService
	cats   *CategoryService
	index  *fakeIndex
	events *recorder
	repo   *repo.GormRepo
}

func newBlogEnv(t *testing.T) *blogEnv {
	t.Helper()
	r := repo.New(testutil.NewDB(t))
	idx := newFakeIndex()
	rec := &recorder{}
	return &blogEnv{
		blogs:  &BlogService{Repo: r, Index: idx, Events: rec, DefaultLang: "en", Now: newClock().Now},
		cats:   &CategoryService{Repo: r, DefaultLang: "en"},
		index:  idx,
		events: rec,
		repo:   r,
	}
}

func TestBlogService_Create_Validation(t *testing.T) {
	t.Parallel()

	env := newBlogEnv(t)
	ctx := context.Background()
	bad := "not-a-uuid"

	tests := []struct {
		name string
		req  transport.CreateBlogRequest
	}{
		{name: "no title", req: transport.CreateBlogRequest{Slug: "x"}},
		{name: "blank title", req: transport.CreateBlogRequest{Title: models.Localized{"en": "  "}}},
		{name: "bad slug", req: transport.CreateBlogRequest{Slug: "Bad Slug", Title: models.Localized{"en": "T"}}},
		{name: "bad category", req: transport.CreateBlogRequest{Title: models.Localized{"en": "T"}, CategoryID: &bad}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.blogs.Create(ctx, tt.req)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestBlogService_Create_SlugFromTitleAndConflict(t *testing.T) {
	t.Parallel()

	env := newBlogEnv(t)
	ctx := context.Background()

	b, err := env.blogs.Create(ctx, transport.CreateBlogRequest{
		Title: models.Localized{"en": "Hello, World!", "uk": "Привіт"},
		Tags:  []string{"Go", "go", " "},
	})
	require.NoError(t, err)
	assert.Equal(t, "hello-world", b.Slug)
	assert.Equal(t, []string{"go"}, b.Tags)
	assert.False(t, b.Published)
	assert.False(t, env.index.has(b.ID), "drafts are not indexed")

	_, err = env.blogs.Create(ctx, transport.CreateBlogRequest{Title: models.Localized{"en": "Hello World"}})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestBlogService_PublishFlow(t *testing.T) {
	t.Parallel()

	env := newBlogEnv(t)
	ctx := context.Background()

	b, err := env.blogs.Create(ctx, transport.CreateBlogRequest{Slug: "post", Title: models.Localized{"en": "Post"}})
	require.NoError(t, err)

	total, items, err := env.blogs.ListPublished(ctx, "en", "", 0, 10)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, items)

	_, err = env.blogs.GetPublished(ctx, "post", "en")
	assert.ErrorIs(t, err, ErrNotFound)

	pub, err := env.blogs.SetPublished(ctx, b.ID, true)
	require.NoError(t, err)
	assert.True(t, pub.Published)
	require.NotNil(t, pub.PublishedAt)
	assert.True(t, env.index.has(b.ID))

	total, _, err = env.blogs.ListPublished(ctx, "en", "", 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)

	_, err = env.blogs.SetPublished(ctx, b.ID, false)
	require.NoError(t, err)
	assert.False(t, env.index.has(b.ID))

	assert.Equal(t, []string{"blog.created", "blog.published", "blog.unpublished"}, env.events.types())

	_, err = env.blogs.SetPublished(ctx, uuid.New(), true)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBlogService_GetPublished_LocalizesAndCountsViews(t *testing.T) {
	t.Parallel()

	env := newBlogEnv(t)
	ctx := context.Background()

	_, err := env.blogs.Create(ctx, transport.CreateBlogRequest{
		Slug:      "post",
		Title:     models.Localized{"en": "Hello", "uk": "Привіт"},
		Content:   models.Localized{"en": "Body"},
		Published: true,
	})
	require.NoError(t, err)

	v, err := env.blogs.GetPublished(ctx, "post", "uk-UA")
	require.NoError(t, err)
	assert.Equal(t, "uk", v.Lang)
	assert.Equal(t, "Привіт", v.Title)
	assert.Equal(t, "Body", v.Content, "falls back to the default language")
	assert.Equal(t, []string{"en", "uk"}, v.Languages)
	assert.EqualValues(t, 1, v.Views)

	v, err = env.blogs.GetPublished(ctx, "post", "")
	require.NoError(t, err)
	assert.Equal(t, "Hello", v.Title)
	assert.EqualValues(t, 2, v.Views)
}

func TestBlogService_ListPublished_ByCategory(t *testing.T) {
	t.Parallel()

	env := newBlogEnv(t)
	ctx := context.Background()

	cat, err := env.cats.Create(ctx, transport.CategoryRequest{Name: models.Localized{"en": "Travel"}})
	require.NoError(t, err)
	assert.Equal(t, "travel", cat.Slug)
	catID := cat.ID.String()

	_, err = env.blogs.Create(ctx, transport.CreateBlogRequest{Slug: "trip", Title: models.Localized{"en": "Trip"}, CategoryID: &catID, Published: true})
	require.NoError(t, err)
	_, err = env.blogs.Create(ctx, transport.CreateBlogRequest{Slug: "other", Title: models.Localized{"en": "Other"}, Published: true})
	require.NoError(t, err)

	total, items, err := env.blogs.ListPublished(ctx, "en", "travel", 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, items, 1)
	assert.Equal(t, "trip", items[0].Slug)
	assert.Empty(t, items[0].Content, "listings omit content")

	total, items, err = env.blogs.ListPublished(ctx, "en", "missing", 0, 10)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.NotNil(t, items)
}

func TestBlogService_Patch(t *testing.T) {
	t.Parallel()

	env := newBlogEnv(t)
	ctx := context.Background()

	b, err := env.blogs.Create(ctx, transport.CreateBlogRequest{
		Slug:      "post",
		Title:     models.Localized{"en": "Hello", "uk": "Привіт"},
		Published: true,
	})
	require.NoError(t, err)

	newSlug := "renamed"
	tags := []string{"news"}
	patched, err := env.blogs.Patch(ctx, b.ID, transport.PatchBlogRequest{
		Slug:  &newSlug,
		Title: models.Localized{"uk": "", "de": "Hallo"},
		Tags:  &tags,
	})
	require.NoError(t, err)
	assert.Equal(t, "renamed", patched.Slug)
	assert.Equal(t, models.Localized{"en": "Hello", "de": "Hallo"}, patched.Title)
	assert.Equal(t, []string{"news"}, patched.Tags)

	_, err = env.blogs.Patch(ctx, b.ID, transport.PatchBlogRequest{Title: models.Localized{"en": "", "de": ""}})
	assert.ErrorIs(t, err, ErrValidation, "cannot remove the last translation")

	_, err = env.blogs.Patch(ctx, uuid.New(), transport.PatchBlogRequest{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBlogService_Delete(t *testing.T) {
	t.Parallel()

	env := newBlogEnv(t)
	ctx := context.Background()

	b, err := env.blogs.Create(ctx, transport.CreateBlogRequest{Slug: "post", Title: models.Localized{"en": "Post"}, Published: true})
	require.NoError(t, err)

	require.NoError(t, env.blogs.Delete(ctx, b.ID))
	assert.False(t, env.index.has(b.ID))
	assert.ErrorIs(t, env.blogs.Delete(ctx, b.ID), ErrNotFound)
}

func TestBlogService_Search(t *testing.T) {
	t.Parallel()

	env := newBlogEnv(t)
	ctx := context.Background()

	_, err := env.blogs.Create(ctx, transport.CreateBlogRequest{Slug: "golang", Title: models.Localized{"en": "Learning Go"}, Published: true})
	require.NoError(t, err)

	_, _, err = env.blogs.Search(ctx, "  ", "en", 0, 10)
	assert.ErrorIs(t, err, ErrValidation)

	total, items, err := env.blogs.Search(ctx, "anything", "en", 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total, "served by the index")
	require.Len(t, items, 1)

	env.index.fail = true
	total, items, err = env.blogs.Search(ctx, "learning", "en", 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total, "database fallback")
	assert.Equal(t, "golang", items[0].Slug)

	env.blogs.Index = nil
	total, _, err = env.blogs.Search(ctx, "nothing-matches", "en", 0, 10)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestCategoryService(t *testing.T) {
	t.Parallel()

	env := newBlogEnv(t)
	ctx := context.Background()

	cat, err := env.cats.Create(ctx, transport.CategoryRequest{Slug: "tech", Name: models.Localized{"en": "Tech", "uk": "Технології"}})
	require.NoError(t, err)

	_, err = env.cats.Create(ctx, transport.CategoryRequest{Slug: "tech", Name: models.Localized{"en": "Again"}})
	assert.ErrorIs(t, err, ErrConflict)
	_, err = env.cats.Create(ctx, transport.CategoryRequest{Slug: "x"})
	assert.ErrorIs(t, err, ErrValidation)

	list, err := env.cats.List(ctx, "uk")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Технології", list[0].Name)

	slug := "technology"
	patched, err := env.cats.Patch(ctx, cat.ID, transport.PatchCategoryRequest{Slug: &slug})
	require.NoError(t, err)
	assert.Equal(t, "technology", patched.Slug)

	require.NoError(t, env.cats.Delete(ctx, cat.ID))
	assert.ErrorIs(t, env.cats.Delete(ctx, cat.ID), ErrNotFound)
	_, err = env.cats.Patch(ctx, cat.ID, transport.PatchCategoryRequest{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSlugify(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"Hello, World!":    "hello-world",
		"  Go 1.24 notes ": "go-1-24-notes",
		"Привіт":           "",
		"a--b":             "a-b",
	}
	for in, want := range tests {
		assert.Equal(t, want, Slugify(in), in)
	}
}

func TestNormalizeLang(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "uk", NormalizeLang("uk-UA", "en"))
	assert.Equal(t, "en", NormalizeLang("", "en"))
	assert.Equal(t, "de", NormalizeLang(" DE_at ", "en"))
}
