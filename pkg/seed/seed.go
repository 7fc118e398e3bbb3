// Package seed fills the books table with random sample data.
package seed

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"time"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/shishobooks/booktracker/pkg/models"
	"github.com/uptrace/bun"
)

const (
	DefaultCount = 20
	monthsBack   = 36
	readRatio    = 0.6
	unreadWindow = 60 * 24 * time.Hour
)

var (
	adjectives = []string{"Pragmatic", "Clean", "Refactoring", "Effective", "Essential", "Modern", "Elegant", "Atomic", "Domain-Driven", "Micro"}
	topics     = []string{"Code", "Architecture", "Patterns", "Systems", "APIs", "Databases", "Testing", "TypeScript", "JavaScript", "Design"}
	extras     = []string{"in Practice", "from Scratch", "Cookbook", "Guidelines", "Playbook", "Handbook", "Principles", "Best Practices"}
	firstNames = []string{"Robert", "Martin", "Kent", "Eric", "Rebecca", "Sandi", "Michael", "Andrew", "Sarah", "Alice", "Jon"}
	lastNames  = []string{"Martin", "Beck", "Evans", "Wirfs-Brock", "Metz", "Feathers", "Hunt", "Thomas", "Johnson", "Fowler"}
)

type Options struct {
	Count int
	// Keep leaves existing rows in place instead of wiping the table first.
	Keep bool
}

type Seeder struct {
	db   *bun.DB
	rand *rand.Rand
	now  func() time.Time
}

func New(db *bun.DB) *Seeder {
	return &Seeder{
		db:   db,
		rand: rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec
		now:  time.Now,
	}
}

// WithSource makes the generated data reproducible.
func (s *Seeder) WithSource(src rand.Source, now func() time.Time) *Seeder {
	return &Seeder{db: s.db, rand: rand.New(src), now: now} //nolint:gosec
}

// Seed inserts opts.Count random books in a single transaction and returns
// them.
func (s *Seeder) Seed(ctx context.Context, opts Options) ([]*models.Book, error) {
	log := logger.FromContext(ctx)
	if opts.Count < 0 {
		return nil, errors.Errorf("count must not be negative, got %d", opts.Count)
	}

	log.Info("seeding books", logger.Data{"count": opts.Count, "wipe": !opts.Keep})

	books := make([]*models.Book, 0, opts.Count)
	now := s.now()
	for i := 0; i < opts.Count; i++ {
		books = append(books, s.book(now))
	}

	err := s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if !opts.Keep {
			_, err := tx.NewDelete().Model((*models.Book)(nil)).Where("1 = 1").Exec(ctx)
			if err != nil {
				return errors.WithStack(err)
			}
		}
		if len(books) == 0 {
			return nil
		}
		_, err := tx.NewInsert().Model(&books).Exec(ctx)
		return errors.WithStack(err)
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to seed books")
	}

	log.Info("seeding done", logger.Data{"count": len(books)})

	return books, nil
}

func (s *Seeder) book(now time.Time) *models.Book {
	created := s.between(now.AddDate(0, -monthsBack, 0), now)
	read := s.rand.Float64() < readRatio

	var updated time.Time
	if read {
		updated = s.between(created, now)
	} else {
		end := created.Add(unreadWindow)
		if end.After(now) {
			end = now
		}
		updated = s.between(created, end)
	}

	return &models.Book{
		Title:     s.title(),
		Author:    fmt.Sprintf("%s %s", s.pick(firstNames), s.pick(lastNames)),
		Read:      read,
		CreatedAt: models.NewTimestamp(created),
		UpdatedAt: models.NewTimestamp(updated),
	}
}

func (s *Seeder) title() string {
	switch s.rand.Intn(3) {
	case 0:
		return fmt.Sprintf("%s %s", s.pick(adjectives), s.pick(topics))
	case 1:
		return fmt.Sprintf("The %s Handbook", s.pick(topics))
	default:
		return fmt.Sprintf("%s %s", s.pick(topics), s.pick(extras))
	}
}

func (s *Seeder) pick(list []string) string {
	return list[s.rand.Intn(len(list))]
}

// between returns a random instant in [start, end].
func (s *Seeder) between(start, end time.Time) time.Time {
	span := end.Sub(start)
	if span <= 0 {
		return start
	}
	return start.Add(time.Duration(s.rand.Int63n(int64(span) + 1)))
}
