package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/polyglot_blog/internal/logging"
	"github.com/Skotchmaster/polyglot_blog/internal/service"
	"github.com/Skotchmaster/polyglot_blog/internal/transport"
)

type CommentHTTP struct {
	Svc *service.CommentService
}

func (h *CommentHTTP) ListForBlog(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "comment.list_for_blog")

	blogID, err := pathID(c, l, "list_comments_failed")
	if err != nil {
		return err
	}
	page, offset, limit := pageParams(c)
	total, items, err := h.Svc.ListApproved(ctx, blogID, offset, limit)
	if err != nil {
		return fail(c, l, "list_comments_failed", err)
	}
	return c.JSON(http.StatusOK, paged(items, page, limit, total))
}

func (h *CommentHTTP) Create(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "comment.create")

	blogID, err := pathID(c, l, "create_comment_failed")
	if err != nil {
		return err
	}
	var req transport.CreateCommentRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "create_comment_failed", "invalid body", err)
	}
	cm, err := h.Svc.Create(ctx, blogID, req)
	if err != nil {
		return fail(c, l, "create_comment_failed", err)
	}
	return c.JSON(http.StatusCreated, cm)
}

func (h *CommentHTTP) List(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "comment.list")

	page, offset, limit := pageParams(c)
	total, items, err := h.Svc.List(ctx, optionalBool(c, "approved"), offset, limit)
	if err != nil {
		return fail(c, l, "list_comments_failed", err)
	}
	return c.JSON(http.StatusOK, paged(items, page, limit, total))
}

func (h *CommentHTTP) Approve(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "comment.approve")

	id, err := pathID(c, l, "approve_comment_failed")
	if err != nil {
		return err
	}
	cm, err := h.Svc.Approve(ctx, id)
	if err != nil {
		return fail(c, l, "approve_comment_failed", err)
	}
	return c.JSON(http.StatusOK, cm)
}

func (h *CommentHTTP) Delete(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "comment.delete")

	id, err := pathID(c, l, "delete_comment_failed")
	if err != nil {
		return err
	}
	if err := h.Svc.Delete(ctx, id); err != nil {
		return fail(c, l, "delete_comment_failed", err)
	}
	return c.NoContent(http.StatusNoContent)
}
