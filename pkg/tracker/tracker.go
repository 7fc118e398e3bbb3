// Package tracker is the client-side view model: it keeps the cached book
// list in sync with the server, applies read toggles and deletes
// optimistically, and reports every outcome to a Notifier.
package tracker

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/pointerutil"
	"github.com/shishobooks/booktracker/pkg/client"
	"github.com/shishobooks/booktracker/pkg/models"
	"github.com/shishobooks/booktracker/pkg/querycache"
	"github.com/shishobooks/booktracker/pkg/timeline"
)

const booksKey = "books"

// ErrMissingFields is returned by Create and Edit before any request is made
// when the title or author is blank.
var ErrMissingFields = errors.New("Title and Author are required.")

// Notifier shows short-lived messages to the user.
type Notifier interface {
	Success(title string)
	Error(title, description string)
}

type Tracker struct {
	api    client.BooksAPI
	cache  *querycache.Cache[[]*models.Book]
	notify Notifier
}

func New(api client.BooksAPI, notifier Notifier) *Tracker {
	t := &Tracker{
		api:    api,
		cache:  querycache.New[[]*models.Book](),
		notify: notifier,
	}
	t.cache.Register(booksKey, api.ListBooks)
	return t
}

// Subscribe calls fn whenever the cached list changes.
func (t *Tracker) Subscribe(fn func([]*models.Book)) func() {
	return t.cache.Subscribe(booksKey, fn)
}

// Refresh reloads the list from the server.
func (t *Tracker) Refresh(ctx context.Context) ([]*models.Book, error) {
	books, err := t.cache.Invalidate(ctx, booksKey)
	if err != nil {
		if errors.Is(err, querycache.ErrDiscarded) {
			return t.Books(), nil
		}
		t.notify.Error("Failed to load", describe(err))
		return nil, err
	}
	return books, nil
}

// Books is the cached list, newest first.
func (t *Tracker) Books() []*models.Book {
	books, _ := t.cache.Get(booksKey)
	return books
}

func (t *Tracker) Timeline(now time.Time) timeline.Timeline {
	return timeline.Group(t.Books(), now)
}

// ToggleRead sets the read flag on a book. The cached list shows the change
// immediately and is rolled back if the server rejects it.
func (t *Tracker) ToggleRead(ctx context.Context, id int, read bool) error {
	err := t.cache.Mutate(ctx, booksKey, querycache.Mutation[[]*models.Book]{
		Optimistic: func(books []*models.Book) []*models.Book {
			return withRead(books, id, read)
		},
		Request: func(ctx context.Context) error {
			_, err := t.api.UpdateBook(ctx, id, client.BookPatch{Read: &read})
			return err
		},
	})
	return t.settle(err, "", "Failed to update")
}

// Delete removes a book. It disappears from the cached list right away and
// comes back if the server rejects the delete.
func (t *Tracker) Delete(ctx context.Context, id int) error {
	err := t.cache.Mutate(ctx, booksKey, querycache.Mutation[[]*models.Book]{
		Optimistic: func(books []*models.Book) []*models.Book {
			return without(books, id)
		},
		Request: func(ctx context.Context) error {
			return t.api.DeleteBook(ctx, id)
		},
	})
	return t.settle(err, "Book deleted", "Failed to delete")
}

// Create adds a book. The list is only refreshed once the server confirms.
func (t *Tracker) Create(ctx context.Context, title, author string) (*models.Book, error) {
	title, author = strings.TrimSpace(title), strings.TrimSpace(author)
	if title == "" || author == "" {
		t.notify.Error("Validation error", ErrMissingFields.Error())
		return nil, ErrMissingFields
	}

	book, err := t.api.CreateBook(ctx, client.NewBook{Title: title, Author: author})
	if err != nil {
		t.notify.Error("Failed to add", describe(err))
		return nil, err
	}
	t.notify.Success("Book added")
	t.refreshAfterWrite(ctx)
	return book, nil
}

// Edit changes the title and author of a book. Like Create, it waits for the
// server before touching the cache.
func (t *Tracker) Edit(ctx context.Context, id int, title, author string) (*models.Book, error) {
	title, author = strings.TrimSpace(title), strings.TrimSpace(author)
	if title == "" || author == "" {
		t.notify.Error("Validation error", ErrMissingFields.Error())
		return nil, ErrMissingFields
	}

	book, err := t.api.UpdateBook(ctx, id, client.BookPatch{Title: pointerutil.String(title), Author: pointerutil.String(author)})
	if err != nil {
		t.notify.Error("Failed to update", describe(err))
		return nil, err
	}
	t.notify.Success("Book updated")
	t.refreshAfterWrite(ctx)
	return book, nil
}

func (t *Tracker) refreshAfterWrite(ctx context.Context) {
	if _, err := t.cache.Invalidate(ctx, booksKey); err != nil && !errors.Is(err, querycache.ErrDiscarded) {
		t.notify.Error("Failed to load", describe(err))
	}
}

// settle reports the outcome of an optimistic mutation. A failed refetch
// after a successful write still counts as success for the write itself.
func (t *Tracker) settle(err error, success, failure string) error {
	var refetchErr *querycache.RefetchError
	switch {
	case err == nil:
		if success != "" {
			t.notify.Success(success)
		}
		return nil
	case errors.As(err, &refetchErr):
		if success != "" {
			t.notify.Success(success)
		}
		t.notify.Error("Failed to load", describe(refetchErr.Err))
		return nil
	default:
		t.notify.Error(failure, describe(err))
		return err
	}
}

func withRead(books []*models.Book, id int, read bool) []*models.Book {
	out := make([]*models.Book, 0, len(books))
	for _, b := range books {
		if b.ID == id {
			cp := *b
			cp.Read = read
			b = &cp
		}
		out = append(out, b)
	}
	return out
}

func without(books []*models.Book, id int) []*models.Book {
	out := make([]*models.Book, 0, len(books))
	for _, b := range books {
		if b.ID != id {
			out = append(out, b)
		}
	}
	return out
}

// describe is the text shown under a failure title.
func describe(err error) string {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	if err == nil || err.Error() == "" {
		return "Unknown error"
	}
	return err.Error()
}
