package seed

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/shishobooks/booktracker/pkg/config"
	"github.com/shishobooks/booktracker/pkg/database"
	"github.com/shishobooks/booktracker/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

var fixedNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.Local)

func newTestSeeder(t *testing.T) (*Seeder, *bun.DB) {
	t.Helper()

	db, err := database.New(config.NewForTest())
	require.NoError(t, err)
	t.Cleanup(func() {
		db.Close()
	})

	return New(db).WithSource(rand.NewSource(42), func() time.Time { return fixedNow }), db
}

func countBooks(t *testing.T, db *bun.DB) int {
	t.Helper()
	count, err := db.NewSelect().Model((*models.Book)(nil)).Count(context.Background())
	require.NoError(t, err)
	return count
}

func TestSeed(t *testing.T) {
	t.Parallel()
	s, db := newTestSeeder(t)

	books, err := s.Seed(context.Background(), Options{Count: 200})
	require.NoError(t, err)
	assert.Len(t, books, 200)
	assert.Equal(t, 200, countBooks(t, db))

	earliest := fixedNow.AddDate(0, -monthsBack, 0).Truncate(time.Second)
	read := 0
	for _, b := range books {
		assert.NotEmpty(t, b.Title)
		assert.NotEmpty(t, b.Author)
		assert.False(t, b.CreatedAt.Before(earliest), "created too early: %s", b.CreatedAt)
		assert.False(t, b.CreatedAt.After(fixedNow))
		assert.False(t, b.UpdatedAt.Before(b.CreatedAt.Time))
		assert.False(t, b.UpdatedAt.After(fixedNow))
		if b.Read {
			read++
		} else {
			assert.LessOrEqual(t, b.UpdatedAt.Sub(b.CreatedAt.Time), unreadWindow)
		}
	}
	assert.InDelta(t, 120, read, 30)
}

func TestSeed_WipesUnlessKeep(t *testing.T) {
	t.Parallel()
	s, db := newTestSeeder(t)
	ctx := context.Background()

	_, err := s.Seed(ctx, Options{Count: 5})
	require.NoError(t, err)
	_, err = s.Seed(ctx, Options{Count: 3})
	require.NoError(t, err)
	assert.Equal(t, 3, countBooks(t, db))

	_, err = s.Seed(ctx, Options{Count: 4, Keep: true})
	require.NoError(t, err)
	assert.Equal(t, 7, countBooks(t, db))
}

func TestSeed_ZeroAndNegative(t *testing.T) {
	t.Parallel()
	s, db := newTestSeeder(t)
	ctx := context.Background()

	_, err := s.Seed(ctx, Options{Count: 2})
	require.NoError(t, err)

	books, err := s.Seed(ctx, Options{Count: 0})
	require.NoError(t, err)
	assert.Empty(t, books)
	assert.Equal(t, 0, countBooks(t, db))

	_, err = s.Seed(ctx, Options{Count: -1})
	require.Error(t, err)
}

func TestBetween(t *testing.T) {
	s := &Seeder{rand: rand.New(rand.NewSource(1))}
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	for i := 0; i < 100; i++ {
		got := s.between(start, end)
		assert.False(t, got.Before(start))
		assert.False(t, got.After(end))
	}
	assert.Equal(t, end, s.between(end, start))
}
