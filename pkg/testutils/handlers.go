package testutils

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/shishobooks/booktracker/pkg/envelope"
	"github.com/shishobooks/booktracker/pkg/models"
	"github.com/shishobooks/booktracker/pkg/seed"
	"github.com/uptrace/bun"
)

type handler struct {
	db *bun.DB
}

// seedBooksRequest is the request body for seeding test books.
type seedBooksRequest struct {
	Count *int `json:"count,omitempty" validate:"omitnil,gte=0,max=1000"`
	Keep  bool `json:"keep"`
}

// seedBooks fills the books table with generated data.
// POST /test/books.
func (h *handler) seedBooks(c echo.Context) error {
	var req seedBooksRequest
	if err := c.Bind(&req); err != nil {
		return err
	}

	count := seed.DefaultCount
	if req.Count != nil {
		count = *req.Count
	}

	books, err := seed.New(h.db).Seed(c.Request().Context(), seed.Options{Count: count, Keep: req.Keep})
	if err != nil {
		return errors.Wrap(err, "failed to seed books")
	}

	return c.JSON(http.StatusCreated, envelope.OK(books, ""))
}

// deleteAllBooksResponse is the response body for deleting all books.
type deleteAllBooksResponse struct {
	Deleted int `json:"deleted"`
}

// deleteAllBooks deletes all books from the database.
// DELETE /test/books.
func (h *handler) deleteAllBooks(c echo.Context) error {
	result, err := h.db.NewDelete().
		Model((*models.Book)(nil)).
		Where("1=1").
		Exec(c.Request().Context())
	if err != nil {
		return errors.Wrap(err, "failed to delete books")
	}

	deleted, _ := result.RowsAffected()

	return c.JSON(http.StatusOK, envelope.OK(deleteAllBooksResponse{Deleted: int(deleted)}, ""))
}
