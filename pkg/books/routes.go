package books

import (
	"github.com/labstack/echo/v4"
	"github.com/shishobooks/booktracker/pkg/binder"
	"github.com/uptrace/bun"
)

// RegisterRoutesWithGroup registers book routes on a pre-configured group.
func RegisterRoutesWithGroup(g *echo.Group, db *bun.DB) {
	h := &handler{
		bookService: NewService(db),
	}

	g.GET("", h.list, lenientBinding)
	g.POST("", h.create, lenientBinding)
	g.GET("/:id", h.retrieve, lenientBinding)
	g.PATCH("/:id", h.update, lenientBinding)
	g.DELETE("/:id", h.delete, lenientBinding)
}

// lenientBinding makes the binder ignore unknown JSON fields and treat a
// missing body as an empty object, so that the payload rules decide what is
// missing.
func lenientBinding(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Set(binder.DisallowUnknownFieldsKey, false)
		c.Set(binder.DisallowEmptyBodyKey, false)
		return next(c)
	}
}
