package response

import (
	"github.com/gofiber/fiber/v2"
)

// DocsBaseURL is the root of the public error documentation. Every error
// payload links the code it carries.
const DocsBaseURL = "https://inferly.org/docs/errors/"

// Error codes returned by the public API.
const (
	CodeUnauthorized  = "unauthorized"
	CodeDisabled      = "key_disabled"
	CodeRateLimited   = "rate_limited"
	CodeUsageExceeded = "usage_exceeded"
	CodeBadRequest    = "bad_request"
	CodeNotFound      = "not_found"
	CodeInternal      = "internal_error"
)

// ErrorBody is the error envelope returned on every failed request.
type ErrorBody struct {
	ErrorCode        string `json:"error_code"`
	DocumentationURL string `json:"documentation_url"`
	ErrorDescription string `json:"error_description"`
}

// Response represents a standardized API response
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// Success returns a successful response
func Success(c *fiber.Ctx, data interface{}) error {
	return c.Status(fiber.StatusOK).JSON(Response{
		Success: true,
		Data:    data,
	})
}

// SuccessWithMessage returns a successful response with a message
func SuccessWithMessage(c *fiber.Ctx, message string, data interface{}) error {
	return c.Status(fiber.StatusOK).JSON(Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// Created returns a 201 Created response
func Created(c *fiber.Ctx, data interface{}) error {
	return c.Status(fiber.StatusCreated).JSON(Response{
		Success: true,
		Data:    data,
	})
}

// NoContent returns a 204 No Content response
func NoContent(c *fiber.Ctx) error {
	return c.SendStatus(fiber.StatusNoContent)
}

// Error returns an error response carrying the standard envelope.
func Error(c *fiber.Ctx, statusCode int, code string, description string) error {
	return c.Status(statusCode).JSON(ErrorBody{
		ErrorCode:        code,
		DocumentationURL: DocsBaseURL + code,
		ErrorDescription: description,
	})
}

// BadRequest returns a 400 Bad Request response
func BadRequest(c *fiber.Ctx, description string) error {
	return Error(c, fiber.StatusBadRequest, CodeBadRequest, description)
}

// Unauthorized returns a 401 Unauthorized response
func Unauthorized(c *fiber.Ctx, description string) error {
	if description == "" {
		description = "Invalid or missing API key"
	}
	return Error(c, fiber.StatusUnauthorized, CodeUnauthorized, description)
}

// Disabled returns a 401 response for a paused or disabled key.
func Disabled(c *fiber.Ctx) error {
	return Error(c, fiber.StatusUnauthorized, CodeDisabled,
		"This API key is disabled. Check your subscription status in the dashboard.")
}

// RateLimited returns a 429 Too Many Requests response
func RateLimited(c *fiber.Ctx) error {
	return Error(c, fiber.StatusTooManyRequests, CodeRateLimited,
		"Rate limit exceeded. Slow down and retry shortly.")
}

// UsageExceeded returns a 402 Payment Required response
func UsageExceeded(c *fiber.Ctx) error {
	return Error(c, fiber.StatusPaymentRequired, CodeUsageExceeded,
		"Monthly usage quota exhausted. Upgrade your plan or wait for the next refill.")
}

// NotFound returns a 404 Not Found response
func NotFound(c *fiber.Ctx, description string) error {
	if description == "" {
		description = "Resource not found"
	}
	return Error(c, fiber.StatusNotFound, CodeNotFound, description)
}

// InternalError returns a 500 response. The description should reassure
// callers they were not charged for the failed request.
func InternalError(c *fiber.Ctx, description string) error {
	if description == "" {
		description = "An internal error occurred. You will not be charged for this request."
	}
	return Error(c, fiber.StatusInternalServerError, CodeInternal, description)
}
