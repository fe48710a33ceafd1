package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/polyglot_blog/internal/logging"
	"github.com/Skotchmaster/polyglot_blog/internal/service"
	"github.com/Skotchmaster/polyglot_blog/internal/transport"
)

const uploadField = "image"

type UploadHTTP struct {
	Svc *service.UploadService
}

func (h *UploadHTTP) Image(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "upload.image")

	fh, err := c.FormFile(uploadField)
	if err != nil {
		return badRequest(l, "upload_failed", "multipart field image is required", err)
	}
	f, err := fh.Open()
	if err != nil {
		return badRequest(l, "upload_failed", "cannot read upload", err)
	}
	defer f.Close()

	url, err := h.Svc.SaveImage(ctx, f)
	if err != nil {
		return fail(c, l, "upload_failed", err)
	}
	l.Info("image_uploaded", "url", url)
	return c.JSON(http.StatusCreated, transport.UploadResponse{URL: url})
}
