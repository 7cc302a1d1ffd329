package guard

import (
	"database/sql"
	stderrors "errors"
	"strings"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// ErrorEnvelope is the uniform JSON body every failed request carries.
type ErrorEnvelope struct {
	StatusCode   int    `json:"statusCode"`
	Timestamp    string `json:"timestamp"`
	Path         string `json:"path"`
	Method       string `json:"method"`
	Message      string `json:"message"`
	ErrorDetails any    `json:"errorDetails,omitempty"`
}

// Boundary messages for errors we do not want to leak details from.
const (
	msgConflict         = "Resource already exists or conflicts with existing data."
	msgInvalidReference = "Invalid reference to another resource."
	msgDatabaseError    = "A database error occurred."
	msgInternalError    = "An unexpected internal server error occurred."
)

// sqlStater is implemented by driver errors that expose a SQLSTATE code,
// like pgdriver.Error.
type sqlStater interface {
	SQLState() string
}

// ErrorTranslator converts any error escaping a handler into a status code
// and envelope. Structured errors pass their message through verbatim;
// storage and unknown errors are replaced with generic boundary messages.
type ErrorTranslator struct {
	logger Logger
}

// NewErrorTranslator builds a translator.
func NewErrorTranslator(logger Logger) *ErrorTranslator {
	if logger == nil {
		logger = defLogger{}
	}
	return &ErrorTranslator{logger: logger}
}

// Translate maps an error to a status and envelope for the given request.
func (t *ErrorTranslator) Translate(method, path string, err error) (int, ErrorEnvelope) {
	envelope := ErrorEnvelope{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Path:      path,
		Method:    method,
	}

	// Constraint violations win over any wrapper the repository layer put
	// around them; their driver detail must never reach the client.
	if status, message, ok := constraintViolation(err); ok {
		envelope.StatusCode = status
		envelope.Message = message

		t.logger.Error(
			"Request failed with constraint violation",
			"status", status,
			"method", method,
			"path", path,
			"error", err,
		)

		return status, envelope
	}

	var richErr *errors.Error
	if errors.As(err, &richErr) {
		status := richErr.Code
		if status < 400 || status > 599 {
			status = statusFromCategory(richErr.Category)
		}

		envelope.StatusCode = status
		envelope.Message = richErr.Message
		if fields, ok := richErr.Metadata["fields"]; ok {
			envelope.ErrorDetails = fields
		}

		t.logger.Warn(
			"Request failed with structured error",
			"status", status,
			"method", method,
			"path", path,
			"category", richErr.Category,
			"text_code", richErr.TextCode,
			"details", print.MaybePrettyJSON(richErr.Metadata),
		)

		return status, envelope
	}

	status, message := classifyStorageError(err)
	envelope.StatusCode = status
	envelope.Message = message

	t.logger.Error(
		"Request failed with unhandled error",
		"status", status,
		"method", method,
		"path", path,
		"error", err,
	)

	return status, envelope
}

// Handle writes the translated envelope to the response. It is shaped to
// plug in as a router error handler.
func (t *ErrorTranslator) Handle(c router.Context, err error) error {
	status, envelope := t.Translate(c.Method(), c.Path(), err)
	return c.JSON(status, envelope)
}

// constraintViolation walks the error chain looking for unique or
// referential integrity failures. Postgres reports SQLSTATE codes; sqlite
// surfaces constraint names in the message. Repository layers may wrap the
// driver error, so every link of the chain is inspected.
func constraintViolation(err error) (int, string, bool) {
	switch sqlState(err) {
	case "23505":
		return router.StatusConflict, msgConflict, true
	case "23503":
		return router.StatusBadRequest, msgInvalidReference, true
	}

	for e := err; e != nil; e = stderrors.Unwrap(e) {
		text := e.Error()
		switch {
		case strings.Contains(text, "UNIQUE constraint failed"):
			return router.StatusConflict, msgConflict, true
		case strings.Contains(text, "FOREIGN KEY constraint failed"):
			return router.StatusBadRequest, msgInvalidReference, true
		}
	}

	return 0, "", false
}

// classifyStorageError covers database failures that are not constraint
// violations, and the unknown-error fallback.
func classifyStorageError(err error) (int, string) {
	if sqlState(err) != "" || isDatabaseError(err) {
		return router.StatusInternalServerError, msgDatabaseError
	}
	return router.StatusInternalServerError, msgInternalError
}

func sqlState(err error) string {
	var stater sqlStater
	if stderrors.As(err, &stater) {
		return stater.SQLState()
	}
	return ""
}

func isDatabaseError(err error) bool {
	if stderrors.Is(err, sql.ErrNoRows) ||
		stderrors.Is(err, sql.ErrTxDone) ||
		stderrors.Is(err, sql.ErrConnDone) {
		return true
	}
	text := err.Error()
	return strings.Contains(text, "SQLSTATE") || strings.Contains(text, "constraint failed")
}

func statusFromCategory(category errors.Category) int {
	switch category {
	case errors.CategoryAuth:
		return router.StatusUnauthorized
	case errors.CategoryAuthz:
		return router.StatusForbidden
	case errors.CategoryValidation, errors.CategoryBadInput:
		return router.StatusBadRequest
	case errors.CategoryNotFound:
		return router.StatusNotFound
	case errors.CategoryConflict:
		return router.StatusConflict
	case errors.CategoryRateLimit:
		return router.StatusTooManyRequests
	default:
		return router.StatusInternalServerError
	}
}
