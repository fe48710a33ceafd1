package httpserver

import (
	"log/slog"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/polyglot_blog/internal/util"
)

func pathID(c echo.Context, l *slog.Logger, event string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, badRequest(l, event, "id is not a uuid", err)
	}
	return id, nil
}

func pageParams(c echo.Context) (page, offset, limit int) {
	page = util.ParseIntDefault(c.QueryParam("page"), 1)
	if page < 1 {
		page = 1
	}
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit = util.Calculate(page, size)
	return page, offset, limit
}

// optionalBool reads a tri-state query flag; absent or unparseable means nil.
func optionalBool(c echo.Context, name string) *bool {
	v, err := strconv.ParseBool(c.QueryParam(name))
	if err != nil {
		return nil
	}
	return &v
}

func paged(items any, page, limit int, total int64) map[string]any {
	return map[string]any{
		"data": items,
		"meta": util.Meta(page, limit, total),
	}
}
