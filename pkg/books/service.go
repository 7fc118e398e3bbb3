package books

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/shishobooks/booktracker/pkg/errcodes"
	"github.com/shishobooks/booktracker/pkg/models"
	"github.com/uptrace/bun"
)

type CreateBookOptions struct {
	Title  string
	Author string
}

// UpdateBookOptions holds the fields to change. Nil fields are left alone.
type UpdateBookOptions struct {
	Title  *string
	Author *string
	Read   *bool
}

func (opts UpdateBookOptions) empty() bool {
	return opts.Title == nil && opts.Author == nil && opts.Read == nil
}

type Service struct {
	db  *bun.DB
	now func() time.Time
}

func NewService(db *bun.DB) *Service {
	return &Service{db: db, now: time.Now}
}

// WithClock returns a copy of the service that reads the current time from
// now.
func (svc *Service) WithClock(now func() time.Time) *Service {
	return &Service{db: svc.db, now: now}
}

func (svc *Service) ListBooks(ctx context.Context) ([]*models.Book, error) {
	books := []*models.Book{}

	err := svc.db.
		NewSelect().
		Model(&books).
		OrderExpr("b.created_at DESC, b.id DESC").
		Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return books, nil
}

func (svc *Service) RetrieveBook(ctx context.Context, id int) (*models.Book, error) {
	book := &models.Book{}

	err := svc.db.
		NewSelect().
		Model(book).
		Where("b.id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Book")
		}
		return nil, errors.WithStack(err)
	}

	return book, nil
}

func (svc *Service) CreateBook(ctx context.Context, opts CreateBookOptions) (*models.Book, error) {
	now := models.NewTimestamp(svc.now())
	book := &models.Book{
		Title:     opts.Title,
		Author:    opts.Author,
		Read:      false,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := svc.db.
		NewInsert().
		Model(book).
		Returning("id").
		Exec(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	created, err := svc.RetrieveBook(ctx, book.ID)
	if err != nil {
		// The row was just written, so not finding it is a server fault.
		var e *errcodes.Error
		if errors.As(err, &e) && e.HTTPCode == http.StatusNotFound {
			return nil, errors.Errorf("book %d missing after insert", book.ID)
		}
		return nil, err
	}

	return created, nil
}

// UpdateBook writes only the supplied fields and always refreshes updated_at.
// A missing book is detected from the affected row count.
func (svc *Service) UpdateBook(ctx context.Context, id int, opts UpdateBookOptions) (*models.Book, error) {
	if opts.empty() {
		return nil, errcodes.ValidationError(errEmptyUpdate.Error())
	}

	q := svc.db.
		NewUpdate().
		Model((*models.Book)(nil)).
		Where("id = ?", id)

	if opts.Title != nil {
		q = q.Set("title = ?", *opts.Title)
	}
	if opts.Author != nil {
		q = q.Set("author = ?", *opts.Author)
	}
	if opts.Read != nil {
		q = q.Set("read = ?", *opts.Read)
	}
	// MAX keeps updated_at from moving backwards if the clock does.
	q = q.Set("updated_at = MAX(updated_at, ?)", models.NewTimestamp(svc.now()))

	res, err := q.Exec(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if affected == 0 {
		return nil, errcodes.NotFound("Book")
	}

	return svc.RetrieveBook(ctx, id)
}

func (svc *Service) DeleteBook(ctx context.Context, id int) error {
	res, err := svc.db.
		NewDelete().
		Model((*models.Book)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return errors.WithStack(err)
	}
	if affected == 0 {
		return errcodes.NotFound("Book")
	}

	return nil
}
