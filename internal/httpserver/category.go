package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/polyglot_blog/internal/logging"
	"github.com/Skotchmaster/polyglot_blog/internal/service"
	"github.com/Skotchmaster/polyglot_blog/internal/transport"
)

type CategoryHTTP struct {
	Svc *service.CategoryService
}

func (h *CategoryHTTP) List(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "category.list")

	items, err := h.Svc.List(ctx, requestLang(c, ""))
	if err != nil {
		return fail(c, l, "list_categories_failed", err)
	}
	return c.JSON(http.StatusOK, map[string]any{"data": items})
}

func (h *CategoryHTTP) Create(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "category.create")

	var req transport.CategoryRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "create_category_failed", "invalid body", err)
	}
	cat, err := h.Svc.Create(ctx, req)
	if err != nil {
		return fail(c, l, "create_category_failed", err)
	}
	return c.JSON(http.StatusCreated, cat)
}

func (h *CategoryHTTP) Patch(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "category.patch")

	id, err := pathID(c, l, "patch_category_failed")
	if err != nil {
		return err
	}
	var req transport.PatchCategoryRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "patch_category_failed", "invalid body", err)
	}
	cat, err := h.Svc.Patch(ctx, id, req)
	if err != nil {
		return fail(c, l, "patch_category_failed", err)
	}
	return c.JSON(http.StatusOK, cat)
}

func (h *CategoryHTTP) Delete(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "category.delete")

	id, err := pathID(c, l, "delete_category_failed")
	if err != nil {
		return err
	}
	if err := h.Svc.Delete(ctx, id); err != nil {
		return fail(c, l, "delete_category_failed", err)
	}
	return c.NoContent(http.StatusNoContent)
}
