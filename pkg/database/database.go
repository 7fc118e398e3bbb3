package database

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/shishobooks/booktracker/pkg/config"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

const memoryPath = ":memory:"

type key int

const ctxKey key = 0

// WithLogging marks ctx so that queries run with it are logged when the
// database was opened in debug mode.
func WithLogging(ctx context.Context) context.Context {
	return context.WithValue(ctx, ctxKey, true)
}

// LoggingEnabled reports whether ctx was marked with WithLogging.
func LoggingEnabled(ctx context.Context) bool {
	enabled, ok := ctx.Value(ctxKey).(bool)
	return ok && enabled
}

// QueryLogger receives one line per logged query. logger.Logger satisfies it.
type QueryLogger interface {
	Debug(message string, fields ...logger.Data)
}

type logQueryHook struct {
	log QueryLogger
}

// NewQueryHook returns a bun hook that logs every query run with a context
// marked by WithLogging.
func NewQueryHook(log QueryLogger) bun.QueryHook {
	return &logQueryHook{log: log}
}

func (*logQueryHook) BeforeQuery(ctx context.Context, _ *bun.QueryEvent) context.Context {
	return ctx
}

func (qh *logQueryHook) AfterQuery(ctx context.Context, event *bun.QueryEvent) {
	if !LoggingEnabled(ctx) {
		return
	}

	data := logger.Data{"duration": time.Since(event.StartTime).String()}
	if event.Err != nil && !errors.Is(event.Err, sql.ErrNoRows) {
		data["error"] = event.Err.Error()
	}
	qh.log.Debug(event.Query, data)
}

// New opens the SQLite database at cfg.DatabaseFilePath, creating its parent
// directory if needed, and makes sure the books table exists.
func New(cfg *config.Config) (*bun.DB, error) {
	if cfg.DatabaseFilePath != memoryPath {
		dir := filepath.Dir(cfg.DatabaseFilePath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, errors.Wrapf(err, "failed to create database directory %s", dir)
		}
	}

	sqldb, err := sql.Open(sqliteshim.ShimName, cfg.DatabaseFilePath)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	// All access goes through one connection. This serializes writes and
	// keeps an in-memory database alive for the life of the pool.
	sqldb.SetMaxOpenConns(1)
	sqldb.SetConnMaxLifetime(0)
	sqldb.SetConnMaxIdleTime(0)

	db := bun.NewDB(sqldb, sqlitedialect.New())

	// print out all queries in debug mode
	if cfg.DatabaseDebug {
		db.AddQueryHook(NewQueryHook(logger.NewWithLevel("debug")))
	}

	// Retry up to a few times to ensure that the database can connect.
	attempts := cfg.DatabaseConnectRetryCount
	if attempts < 1 {
		attempts = 1
	}
	for i := 0; i < attempts; i++ {
		_, err = db.Exec("SELECT 1")
		if err == nil {
			break
		}
		time.Sleep(cfg.DatabaseConnectRetryDelay)
	}
	if err != nil {
		_ = db.Close()
		return nil, errors.WithStack(err)
	}

	if cfg.DatabaseFilePath != memoryPath {
		// WAL lets readers keep going while a write is in flight.
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, errors.Wrap(err, "failed to enable WAL mode")
		}
	}

	if _, err := db.Exec("PRAGMA busy_timeout=?", cfg.DatabaseBusyTimeout.Milliseconds()); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "failed to set busy_timeout")
	}

	if err := EnsureSchema(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}
