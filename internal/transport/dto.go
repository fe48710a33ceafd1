package transport

import "github.com/Skotchmaster/polyglot_blog/internal/models"

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type TokenResponse struct {
	AccessToken string `json:"accessToken"`
}

type VerifyResponse struct {
	Valid   bool   `json:"valid"`
	AdminID string `json:"adminId"`
	Role    string `json:"role"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

type CreateBlogRequest struct {
	Slug       string           `json:"slug"`
	CategoryID *string          `json:"categoryId"`
	Title      models.Localized `json:"title"`
	Summary    models.Localized `json:"summary"`
	Content    models.Localized `json:"content"`
	Tags       []string         `json:"tags"`
	ImageURL   string           `json:"imageUrl"`
	Published  bool             `json:"published"`
}

type PatchBlogRequest struct {
	Slug       *string          `json:"slug"`
	CategoryID *string          `json:"categoryId"`
	Title      models.Localized `json:"title"`
	Summary    models.Localized `json:"summary"`
	Content    models.Localized `json:"content"`
	Tags       *[]string        `json:"tags"`
	ImageURL   *string          `json:"imageUrl"`
}

type CategoryRequest struct {
	Slug string           `json:"slug"`
	Name models.Localized `json:"name"`
}

type PatchCategoryRequest struct {
	Slug *string          `json:"slug"`
	Name models.Localized `json:"name"`
}

type CreateCommentRequest struct {
	AuthorName  string `json:"authorName"`
	AuthorEmail string `json:"authorEmail"`
	Body        string `json:"body"`
}

type SubscribeRequest struct {
	Email     string   `json:"email"`
	Lang      string   `json:"lang"`
	Interests []string `json:"interests"`
}

type InterestRequest struct {
	Email    string `json:"email"`
	Category string `json:"category"`
}

type UploadResponse struct {
	URL string `json:"url"`
}
