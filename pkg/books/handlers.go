package books

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/shishobooks/booktracker/pkg/envelope"
	"github.com/shishobooks/booktracker/pkg/errcodes"
)

type handler struct {
	bookService *Service
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	books, err := h.bookService.ListBooks(ctx)
	if err != nil {
		return failed("retrieve books", err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, envelope.OK(books, "")))
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()

	// Bind params.
	params := IDParam{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	book, err := h.bookService.RetrieveBook(ctx, params.ID)
	if err != nil {
		return failed("retrieve book", err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, envelope.OK(book, "")))
}

func (h *handler) create(c echo.Context) error {
	ctx := c.Request().Context()

	// Bind params.
	params := CreateBookPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	book, err := h.bookService.CreateBook(ctx, CreateBookOptions{
		Title:  params.Title,
		Author: params.Author,
	})
	if err != nil {
		return failed("create book", err)
	}

	logger.FromContext(ctx).Info("book created", logger.Data{"book_id": book.ID})

	return errors.WithStack(c.JSON(http.StatusCreated, envelope.OK(book, "Book created successfully")))
}

func (h *handler) update(c echo.Context) error {
	ctx := c.Request().Context()

	// Bind params.
	params := UpdateBookPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	book, err := h.bookService.UpdateBook(ctx, params.ID, UpdateBookOptions{
		Title:  params.Title,
		Author: params.Author,
		Read:   params.Read,
	})
	if err != nil {
		return failed("update book", err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, envelope.OK(book, updateMessage(params))))
}

func (h *handler) delete(c echo.Context) error {
	ctx := c.Request().Context()

	// Bind params.
	params := IDParam{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	if err := h.bookService.DeleteBook(ctx, params.ID); err != nil {
		return failed("delete book", err)
	}

	logger.FromContext(ctx).Info("book deleted", logger.Data{"book_id": params.ID})

	return errors.WithStack(c.JSON(http.StatusOK, envelope.Message("Book deleted successfully")))
}

// updateMessage describes a successful patch. A change of read status wins
// over any other field.
func updateMessage(params UpdateBookPayload) string {
	if params.Read != nil {
		if *params.Read {
			return "Book marked as read"
		}
		return "Book marked as unread"
	}
	return "Book updated"
}

// failed passes typed errors (not found, validation) through and turns
// anything else into a 500 that only names the action.
func failed(action string, err error) error {
	var e *errcodes.Error
	if errors.As(err, &e) {
		return err
	}
	return errcodes.Internal(action, err)
}
