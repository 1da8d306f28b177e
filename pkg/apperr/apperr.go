// Package apperr maps heterogeneous failures onto the fixed taxonomy the API
// exposes: validation, unauthorized, forbidden, not_found, upstream, network.
package apperr

import (
	"context"
	"errors"
	"net"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	CodeValidation   = "validation_error"
	CodeUnauthorized = "unauthorized"
	CodeForbidden    = "forbidden"
	CodeNotFound     = "not_found"
	CodeConflict     = "conflict"
	CodeUpstream     = "upstream_error"
	CodeNetwork      = "network_error"
	CodeInternal     = "internal_error"
)

var statusByCode = map[string]int{
	CodeValidation:   fiber.StatusBadRequest,
	CodeUnauthorized: fiber.StatusUnauthorized,
	CodeForbidden:    fiber.StatusForbidden,
	CodeNotFound:     fiber.StatusNotFound,
	CodeConflict:     fiber.StatusConflict,
	CodeUpstream:     fiber.StatusBadGateway,
	CodeNetwork:      fiber.StatusServiceUnavailable,
	CodeInternal:     fiber.StatusInternalServerError,
}

var messageByCode = map[string]string{
	CodeValidation:   "Invalid input",
	CodeUnauthorized: "Authentication required",
	CodeForbidden:    "You don't have permission to do this",
	CodeNotFound:     "Resource not found",
	CodeConflict:     "Conflicting state",
	CodeUpstream:     "An upstream service failed, please retry",
	CodeNetwork:      "A network error occurred, please retry",
	CodeInternal:     "Something went wrong",
}

// Error is a classified failure carrying a stable machine code, a user-facing
// message and optional per-field details.
type Error struct {
	Code    string      `json:"error"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`

	cause error
	// status overrides the code's canonical status when the source error
	// carried one of its own, e.g. a 405 or 413 from the router.
	status int
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Code + ": " + e.cause.Error()
	}
	return e.Code + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.cause }

func (e *Error) Status() int {
	if e.status != 0 {
		return e.status
	}
	if s, ok := statusByCode[e.Code]; ok {
		return s
	}
	return fiber.StatusInternalServerError
}

func New(code, message string) *Error {
	if message == "" {
		message = messageByCode[code]
	}
	return &Error{Code: code, Message: message}
}

func Wrap(code string, cause error) *Error {
	return &Error{Code: code, Message: messageByCode[code], cause: cause}
}

func Validation(message string, details interface{}) *Error {
	if message == "" {
		message = messageByCode[CodeValidation]
	}
	return &Error{Code: CodeValidation, Message: message, Details: details}
}

func NotFound(what string) *Error {
	return &Error{Code: CodeNotFound, Message: what + " not found"}
}

// Classifier turns arbitrary errors into classified ones and writes the
// standard response envelope. It is constructed at startup and injected;
// there is no package-level instance.
type Classifier struct {
	log *logrus.Logger
}

func NewClassifier(log *logrus.Logger) *Classifier {
	return &Classifier{log: log}
}

// Classify maps an arbitrary error to a classified one. Already-classified
// errors pass through untouched.
func (c *Classifier) Classify(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}

	// Router-generated errors (unmatched route, method not allowed, body
	// limit) carry their own status; keep it instead of collapsing to 500.
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return &Error{
			Code:    codeForStatus(fiberErr.Code),
			Message: fiberErr.Message,
			status:  fiberErr.Code,
			cause:   err,
		}
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return Wrap(CodeNotFound, err)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return Wrap(CodeConflict, err)
	case errors.Is(err, context.DeadlineExceeded):
		return Wrap(CodeNetwork, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return Wrap(CodeNetwork, err)
	}

	return Wrap(CodeInternal, err)
}

func codeForStatus(status int) string {
	switch status {
	case fiber.StatusUnauthorized:
		return CodeUnauthorized
	case fiber.StatusForbidden:
		return CodeForbidden
	case fiber.StatusNotFound:
		return CodeNotFound
	case fiber.StatusConflict:
		return CodeConflict
	case fiber.StatusBadGateway:
		return CodeUpstream
	case fiber.StatusServiceUnavailable:
		return CodeNetwork
	}
	if status >= 400 && status < 500 {
		return CodeValidation
	}
	return CodeInternal
}

// Respond classifies err and writes the {error, message, details?} envelope
// with the matching status code. Server-side causes are logged, never leaked.
func (c *Classifier) Respond(ctx *fiber.Ctx, err error) error {
	appErr := c.Classify(err)

	if appErr.Status() >= fiber.StatusInternalServerError && c.log != nil {
		c.log.WithFields(logrus.Fields{
			"code": appErr.Code,
			"path": ctx.Path(),
		}).WithError(err).Error("request failed")
	}

	return ctx.Status(appErr.Status()).JSON(appErr)
}
