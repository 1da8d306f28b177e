package apperr

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "dial tcp: i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

var _ net.Error = timeoutErr{}

func TestClassifyMapsKnownCauses(t *testing.T) {
	c := NewClassifier(nil)

	cases := []struct {
		err  error
		code string
	}{
		{gorm.ErrRecordNotFound, CodeNotFound},
		{gorm.ErrDuplicatedKey, CodeConflict},
		{context.DeadlineExceeded, CodeNetwork},
		{timeoutErr{}, CodeNetwork},
		{errors.New("boom"), CodeInternal},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.code, c.Classify(tc.err).Code, "classifying %v", tc.err)
	}
}

func TestClassifyPassesThroughClassifiedErrors(t *testing.T) {
	c := NewClassifier(nil)

	orig := Validation("at least 3 images required", nil)
	assert.Same(t, orig, c.Classify(orig))

	// Classified errors survive wrapping too.
	wrapped := c.Classify(fmt.Errorf("saving draft: %w", orig))
	assert.Equal(t, CodeValidation, wrapped.Code)
	assert.Equal(t, "at least 3 images required", wrapped.Message)
}

func TestClassifyKeepsFiberErrorStatus(t *testing.T) {
	c := NewClassifier(nil)

	notFound := c.Classify(fiber.ErrNotFound)
	assert.Equal(t, CodeNotFound, notFound.Code)
	assert.Equal(t, fiber.StatusNotFound, notFound.Status())

	// Statuses outside the taxonomy keep their original code on the wire.
	tooLarge := c.Classify(fiber.ErrRequestEntityTooLarge)
	assert.Equal(t, CodeValidation, tooLarge.Code)
	assert.Equal(t, fiber.StatusRequestEntityTooLarge, tooLarge.Status())

	badMethod := c.Classify(fiber.ErrMethodNotAllowed)
	assert.Equal(t, fiber.StatusMethodNotAllowed, badMethod.Status())

	assert.Equal(t, CodeUpstream, c.Classify(fiber.ErrBadGateway).Code)
	assert.Equal(t, CodeInternal, c.Classify(fiber.ErrInternalServerError).Code)
}

func TestStatusByCode(t *testing.T) {
	cases := map[string]int{
		CodeValidation:   fiber.StatusBadRequest,
		CodeUnauthorized: fiber.StatusUnauthorized,
		CodeForbidden:    fiber.StatusForbidden,
		CodeNotFound:     fiber.StatusNotFound,
		CodeConflict:     fiber.StatusConflict,
		CodeUpstream:     fiber.StatusBadGateway,
		CodeNetwork:      fiber.StatusServiceUnavailable,
		CodeInternal:     fiber.StatusInternalServerError,
	}

	for code, status := range cases {
		assert.Equal(t, status, New(code, "").Status())
	}

	assert.Equal(t, fiber.StatusInternalServerError, New("made_up", "x").Status())
}

func TestNewFallsBackToCanonicalMessage(t *testing.T) {
	assert.Equal(t, "Resource not found", New(CodeNotFound, "").Message)
	assert.Equal(t, "listing not found", NotFound("listing").Message)
}

func TestWrapKeepsCauseOutOfMessage(t *testing.T) {
	cause := errors.New("pq: connection refused")
	err := Wrap(CodeInternal, cause)

	assert.Equal(t, "Something went wrong", err.Message)
	assert.ErrorIs(t, err, cause)
}
