package errcodes

import (
	"net/http"

	"github.com/iancoleman/strcase"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/robinjoseph08/golib/errutils"
	"github.com/shishobooks/booktracker/pkg/envelope"
)

type Handler struct{}

func NewHandler() *Handler {
	return &Handler{}
}

// Handle is an Echo error handler that renders every error as a failure
// envelope. Any error that isn't an Echo error or an *Error is treated as an
// internal server error, and its details are logged instead of returned.
func (h *Handler) Handle(err error, c echo.Context) {
	log := logger.FromContext(c.Request().Context())

	if errutils.IsIgnorableErr(err) {
		log.Err(err).Warn("broken pipe")
		return
	}
	if c.Response().Committed {
		log.Err(err).Warn("error after response was committed")
		return
	}

	code, httpCode, msg := classify(err)

	if httpCode == http.StatusInternalServerError {
		log.Err(err).Error("server error", logger.Data{"code": code})
	}

	payload := envelope.Fail(msg)

	if err := c.JSON(httpCode, payload); err != nil {
		log.Err(errors.WithStack(err)).Error("error handler json error")
	}
}

// classify returns the machine code, HTTP status and client-facing message
// for err.
func classify(err error) (string, int, string) {
	code := ""
	msg := ""
	httpCode := http.StatusInternalServerError

	// Echo errors
	var he *echo.HTTPError
	if ok := errors.As(err, &he); ok {
		// The router answers unmatched paths and methods with these.
		if he.Code == http.StatusNotFound || he.Code == http.StatusMethodNotAllowed {
			return "not_found", http.StatusNotFound, "Endpoint not found"
		}
		httpCode = he.Code
		if m, ok := he.Message.(string); ok {
			msg = m
		} else {
			msg = http.StatusText(he.Code)
		}
		code = strcase.ToSnake(msg)
	}

	// Custom errors
	var e *Error
	if ok := errors.As(err, &e); ok {
		httpCode = e.HTTPCode
		code = e.Code
		msg = e.Message
	}

	if httpCode == http.StatusInternalServerError && msg == "" {
		code = "internal_server_error"
		msg = "Internal Server Error"
	}

	return code, httpCode, msg
}
