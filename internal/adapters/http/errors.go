package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/samirrijal/hiitroute/internal/core/domain"
	"github.com/samirrijal/hiitroute/internal/pkg/logging"
)

// APIError is a structured error response.
type APIError struct {
	Status    int    `json:"status"`
	Code      string `json:"code"`    // bad_request, not_found, duplicate_stop, incomplete_route, ...
	Message   string `json:"message"` // Human-readable message
	RequestID string `json:"request_id,omitempty"`
}

// newError builds a JSON error response with a request ID.
func newError(c *fiber.Ctx, status int, code string, message string) error {
	reqID, _ := c.Locals("requestid").(string)
	return c.Status(status).JSON(APIError{
		Status:    status,
		Code:      code,
		Message:   message,
		RequestID: reqID,
	})
}

// errBadRequest returns a 400 error.
func errBadRequest(c *fiber.Ctx, msg string) error {
	return newError(c, 400, "bad_request", msg)
}

// errNotFound returns a 404 error.
func errNotFound(c *fiber.Ctx, msg string) error {
	return newError(c, 404, "not_found", msg)
}

// errInternal returns a 500 error.
func errInternal(c *fiber.Ctx, msg string) error {
	return newError(c, 500, "internal_error", msg)
}

// errFromDomain maps a use-case error onto a status code and error code.
// The builder's messages are meant for the person drawing the route, so they
// are passed through unchanged.
func errFromDomain(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrDuplicateStop):
		return newError(c, 409, "duplicate_stop", domain.ErrDuplicateStop.Error())
	case errors.Is(err, domain.ErrLegOpen):
		return newError(c, 422, "incomplete_route", domain.ErrLegOpen.Error())
	case errors.Is(err, domain.ErrNoLegs):
		return newError(c, 422, "incomplete_route", domain.ErrNoLegs.Error())
	case errors.Is(err, domain.ErrIncompleteRoute):
		return newError(c, 422, "incomplete_route", err.Error())
	case errors.Is(err, domain.ErrEmptyName):
		return newError(c, 422, "empty_name", domain.ErrEmptyName.Error())
	case errors.Is(err, domain.ErrEmptyRoute):
		return newError(c, 409, "empty_route", domain.ErrEmptyRoute.Error())
	case errors.Is(err, domain.ErrSessionFinalized):
		return newError(c, 409, "session_finalized", domain.ErrSessionFinalized.Error())
	case errors.Is(err, domain.ErrNotFound):
		return errNotFound(c, err.Error())
	case errors.Is(err, domain.ErrInvalidInput):
		return errBadRequest(c, err.Error())
	}

	logging.FromContext(c.UserContext()).Error("request failed",
		"method", c.Method(), "path", c.Path(), "error", err)
	return errInternal(c, "internal server error")
}
