package httpserver

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/polyglot_blog/internal/models"
)

type Deps struct {
	AuthHandler       *AuthHTTP
	BlogHandler       *BlogHTTP
	CategoryHandler   *CategoryHTTP
	CommentHandler    *CommentHTTP
	SubscriberHandler *SubscriberHTTP
	UploadHandler     *UploadHTTP

	// Ready reports whether backing stores are reachable. Nil means always ready.
	Ready func(ctx context.Context) error
	// UploadDir is served under /uploads when set.
	UploadDir string
	// AllowedOrigins may call the cookie-authenticated auth endpoints from a
	// browser.
	AllowedOrigins []string
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		if d.Ready != nil {
			if err := d.Ready(c.Request().Context()); err != nil {
				return echo.NewHTTPError(http.StatusServiceUnavailable, "not ready")
			}
		}
		return c.NoContent(http.StatusOK)
	})

	if d.UploadDir != "" {
		e.Static("/uploads", d.UploadDir)
	}

	api := e.Group("/api")

	blogs := api.Group("/blogs")
	blogs.GET("", d.BlogHandler.ListPublished)
	blogs.GET("/search", d.BlogHandler.Search)
	blogs.GET("/:slug", d.BlogHandler.GetBySlug)
	blogs.GET("/:id/comments", d.CommentHandler.ListForBlog)
	blogs.POST("/:id/comments", d.CommentHandler.Create)

	api.GET("/categories", d.CategoryHandler.List)

	subs := api.Group("/subscribers")
	subs.POST("", d.SubscriberHandler.Subscribe)
	subs.POST("/interest", d.SubscriberHandler.AddInterest)
	subs.DELETE("", d.SubscriberHandler.Unsubscribe)

	admin := api.Group("/admin")
	originMw := OriginGuard(d.AllowedOrigins)
	admin.POST("/login", d.AuthHandler.Login, originMw)
	admin.POST("/refresh-token", d.AuthHandler.Refresh, originMw)
	admin.POST("/logout", d.AuthHandler.Logout, originMw)

	authed := admin.Group("", RequireAccessToken(d.AuthHandler.Svc), RequireRole(models.RoleAdmin))
	authed.GET("/verify-token", d.AuthHandler.VerifyToken)
	authed.PUT("/password", d.AuthHandler.ChangePassword)

	authed.GET("/blogs", d.BlogHandler.List)
	authed.POST("/blogs", d.BlogHandler.Create)
	authed.GET("/blogs/:id", d.BlogHandler.Get)
	authed.PATCH("/blogs/:id", d.BlogHandler.Patch)
	authed.DELETE("/blogs/:id", d.BlogHandler.Delete)
	authed.POST("/blogs/:id/publish", d.BlogHandler.Publish)
	authed.POST("/blogs/:id/unpublish", d.BlogHandler.Unpublish)

	authed.POST("/categories", d.CategoryHandler.Create)
	authed.PATCH("/categories/:id", d.CategoryHandler.Patch)
	authed.DELETE("/categories/:id", d.CategoryHandler.Delete)

	authed.GET("/comments", d.CommentHandler.List)
	authed.POST("/comments/:id/approve", d.CommentHandler.Approve)
	authed.DELETE("/comments/:id", d.CommentHandler.Delete)

	authed.GET("/subscribers", d.SubscriberHandler.List)
	authed.DELETE("/subscribers/:id", d.SubscriberHandler.Delete)

	authed.POST("/uploads", d.UploadHandler.Image)
}
