package http

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/touristroute/internal/core/domain"
)

// APIError is a structured error response.
type APIError struct {
	Status    int    `json:"status"`
	Code      string `json:"code"`    // Error code: bad_request, not_found, internal_error, etc.
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
	return newError(c, fiber.StatusBadRequest, "bad_request", msg)
}

// errNotFound returns a 404 error.
func errNotFound(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusNotFound, "not_found", msg)
}

// errInternal returns a 500 error.
func errInternal(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusInternalServerError, "internal_error", msg)
}

// errUnauthorized returns a 401 error.
func errUnauthorized(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusUnauthorized, "unauthorized", msg)
}

// errConflict returns a 409 error.
func errConflict(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusConflict, "conflict", msg)
}

// errFromDomain maps core errors onto API errors.
func errFromDomain(c *fiber.Ctx, err error) error {
	var (
		validation *domain.ValidationError
		network    *domain.NetworkError
		server     *domain.ServerError
	)
	switch {
	case errors.As(err, &validation):
		return errBadRequest(c, validation.Error())
	case errors.Is(err, domain.ErrMalformedResponse):
		return newError(c, fiber.StatusUnprocessableEntity, "malformed_response", err.Error())
	// Before NetworkError: a transport error from our own deadline wraps it.
	case errors.Is(err, context.DeadlineExceeded):
		return newError(c, fiber.StatusGatewayTimeout, "timeout", "request timed out")
	case errors.As(err, &network):
		return newError(c, fiber.StatusBadGateway, "upstream_unavailable", "recommendation service is unreachable")
	case errors.As(err, &server):
		msg := fmt.Sprintf("recommendation service returned %d", server.StatusCode)
		if server.Message != "" {
			msg += ": " + server.Message
		}
		if server.Retryable() {
			c.Set(fiber.HeaderRetryAfter, "30")
		}
		return newError(c, fiber.StatusBadGateway, "upstream_error", msg)
	case errors.Is(err, domain.ErrSuperseded):
		return errConflict(c, "a newer search for this session is in progress")
	case errors.Is(err, domain.ErrNotFound):
		return errNotFound(c, "not found")
	case errors.Is(err, domain.ErrUnauthorized):
		return errUnauthorized(c, err.Error())
	default:
		LoggerFromCtx(c.UserContext()).Error("unhandled error", "error", err)
		return errInternal(c, "internal error")
	}
}
