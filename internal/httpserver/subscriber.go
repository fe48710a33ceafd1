package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/polyglot_blog/internal/logging"
	"github.com/Skotchmaster/polyglot_blog/internal/service"
	"github.com/Skotchmaster/polyglot_blog/internal/transport"
)

type SubscriberHTTP struct {
	Svc *service.SubscriberService
}

// Subscribe answers 201 for a new subscriber and 200 when the email was
// already subscribed.
func (h *SubscriberHTTP) Subscribe(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "subscriber.subscribe")

	var req transport.SubscribeRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "subscribe_failed", "invalid body", err)
	}
	sub, created, err := h.Svc.Subscribe(ctx, req.Email, req.Lang, req.Interests)
	if err != nil {
		return fail(c, l, "subscribe_failed", err)
	}
	code := http.StatusOK
	if created {
		code = http.StatusCreated
	}
	return c.JSON(code, sub)
}

func (h *SubscriberHTTP) AddInterest(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "subscriber.add_interest")

	var req transport.InterestRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "add_interest_failed", "invalid body", err)
	}
	sub, err := h.Svc.AddInterest(ctx, req.Email, req.Category)
	if err != nil {
		return fail(c, l, "add_interest_failed", err)
	}
	return c.JSON(http.StatusOK, sub)
}

func (h *SubscriberHTTP) Unsubscribe(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "subscriber.unsubscribe")

	if err := h.Svc.Unsubscribe(ctx, c.QueryParam("email")); err != nil {
		return fail(c, l, "unsubscribe_failed", err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *SubscriberHTTP) List(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "subscriber.list")

	page, offset, limit := pageParams(c)
	total, items, err := h.Svc.List(ctx, offset, limit)
	if err != nil {
		return fail(c, l, "list_subscribers_failed", err)
	}
	return c.JSON(http.StatusOK, paged(items, page, limit, total))
}

func (h *SubscriberHTTP) Delete(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "subscriber.delete")

	id, err := pathID(c, l, "delete_subscriber_failed")
	if err != nil {
		return err
	}
	if err := h.Svc.Delete(ctx, id); err != nil {
		return fail(c, l, "delete_subscriber_failed", err)
	}
	return c.NoContent(http.StatusNoContent)
}
