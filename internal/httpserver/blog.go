package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/polyglot_blog/internal/logging"
	"github.com/Skotchmaster/polyglot_blog/internal/service"
	"github.com/Skotchmaster/polyglot_blog/internal/transport"
)

type BlogHTTP struct {
	Svc *service.BlogService
}

func (h *BlogHTTP) ListPublished(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "blog.list_published")

	page, offset, limit := pageParams(c)
	total, items, err := h.Svc.ListPublished(ctx, requestLang(c, ""), c.QueryParam("category"), offset, limit)
	if err != nil {
		return fail(c, l, "list_blogs_failed", err)
	}
	return c.JSON(http.StatusOK, paged(items, page, limit, total))
}

func (h *BlogHTTP) Search(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "blog.search")

	page, offset, limit := pageParams(c)
	total, items, err := h.Svc.Search(ctx, c.QueryParam("q"), requestLang(c, ""), offset, limit)
	if err != nil {
		return fail(c, l, "search_blogs_failed", err)
	}
	return c.JSON(http.StatusOK, paged(items, page, limit, total))
}

func (h *BlogHTTP) GetBySlug(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "blog.get_by_slug")

	v, err := h.Svc.GetPublished(ctx, c.Param("slug"), requestLang(c, ""))
	if err != nil {
		return fail(c, l, "get_blog_failed", err)
	}
	return c.JSON(http.StatusOK, v)
}

func (h *BlogHTTP) List(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "blog.list")

	page, offset, limit := pageParams(c)
	total, items, err := h.Svc.List(ctx, optionalBool(c, "published"), offset, limit)
	if err != nil {
		return fail(c, l, "list_blogs_failed", err)
	}
	return c.JSON(http.StatusOK, paged(items, page, limit, total))
}

func (h *BlogHTTP) Get(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "blog.get")

	id, err := pathID(c, l, "get_blog_failed")
	if err != nil {
		return err
	}
	b, err := h.Svc.Get(ctx, id)
	if err != nil {
		return fail(c, l, "get_blog_failed", err)
	}
	return c.JSON(http.StatusOK, b)
}

func (h *BlogHTTP) Create(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "blog.create")

	var req transport.CreateBlogRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "create_blog_failed", "invalid body", err)
	}
	b, err := h.Svc.Create(ctx, req)
	if err != nil {
		return fail(c, l, "create_blog_failed", err)
	}
	l.Info("blog_created", "blog_id", b.ID.String())
	return c.JSON(http.StatusCreated, b)
}

func (h *BlogHTTP) Patch(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "blog.patch")

	id, err := pathID(c, l, "patch_blog_failed")
	if err != nil {
		return err
	}
	var req transport.PatchBlogRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "patch_blog_failed", "invalid body", err)
	}
	b, err := h.Svc.Patch(ctx, id, req)
	if err != nil {
		return fail(c, l, "patch_blog_failed", err)
	}
	return c.JSON(http.StatusOK, b)
}

func (h *BlogHTTP) Delete(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "blog.delete")

	id, err := pathID(c, l, "delete_blog_failed")
	if err != nil {
		return err
	}
	if err := h.Svc.Delete(ctx, id); err != nil {
		return fail(c, l, "delete_blog_failed", err)
	}
	l.Info("blog_deleted", "blog_id", id.String())
	return c.NoContent(http.StatusNoContent)
}

func (h *BlogHTTP) Publish(c echo.Context) error   { return h.setPublished(c, true) }
func (h *BlogHTTP) Unpublish(c echo.Context) error { return h.setPublished(c, false) }

func (h *BlogHTTP) setPublished(c echo.Context, published bool) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "blog.set_published", "published", published)

	id, err := pathID(c, l, "set_published_failed")
	if err != nil {
		return err
	}
	b, err := h.Svc.SetPublished(ctx, id, published)
	if err != nil {
		return fail(c, l, "set_published_failed", err)
	}
	return c.JSON(http.StatusOK, b)
}
