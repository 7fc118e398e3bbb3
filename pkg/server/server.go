package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/echo/v4/health"
	"github.com/robinjoseph08/golib/echo/v4/middleware/logger"
	"github.com/robinjoseph08/golib/echo/v4/middleware/recovery"
	"github.com/shishobooks/booktracker/pkg/binder"
	"github.com/shishobooks/booktracker/pkg/books"
	"github.com/shishobooks/booktracker/pkg/config"
	"github.com/shishobooks/booktracker/pkg/database"
	"github.com/shishobooks/booktracker/pkg/errcodes"
	"github.com/shishobooks/booktracker/pkg/testutils"
	"github.com/uptrace/bun"
)

// NewEcho builds the router with every middleware and route registered.
func NewEcho(cfg *config.Config, db *bun.DB) (*echo.Echo, error) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	b, err := binder.New()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	e.Binder = b
	e.JSONSerializer = &jsonSerializer{}
	e.IPExtractor = echo.ExtractIPDirect()
	if cfg.TrustProxy {
		e.IPExtractor = echo.ExtractIPFromXFFHeader()
	}

	e.Use(logger.Middleware())
	e.Use(recovery.Middleware())
	e.Use(middleware.CORS())
	if cfg.DatabaseDebug {
		e.Use(queryLogging)
	}
	if cfg.RateLimitPerSecond > 0 {
		e.Use(newRateLimiter(cfg.RateLimitPerSecond, cfg.RateLimitBurst).middleware)
	}

	health.RegisterRoutes(e)

	books.RegisterRoutesWithGroup(e.Group("/api/books"), db)

	if cfg.IsTest() {
		testutils.RegisterRoutes(e, db)
	}

	echo.NotFoundHandler = notFoundHandler
	echo.MethodNotAllowedHandler = notFoundHandler
	e.HTTPErrorHandler = errcodes.NewHandler().Handle

	return e, nil
}

func New(cfg *config.Config, db *bun.DB) (*http.Server, error) {
	e, err := NewEcho(cfg, db)
	if err != nil {
		return nil, err
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.ServerHost, cfg.ServerPort),
		Handler:           e,
		ReadHeaderTimeout: 3 * time.Second,
	}

	return srv, nil
}

// queryLogging marks every request context so that the database debug hook
// logs the queries it runs.
func queryLogging(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.SetRequest(c.Request().WithContext(database.WithLogging(c.Request().Context())))
		return next(c)
	}
}

func notFoundHandler(c echo.Context) error {
	c.SetPath("/:path")
	return errcodes.NotFound("Endpoint")
}
