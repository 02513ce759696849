package http

import (
	"errors"

	"dayview_server/pkg/apperr"
	"dayview_server/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

var ErrUnauthorized = errors.New("unauthorized")

// GetUserID safely extracts user_id from fiber context
// Returns error if not authenticated
func GetUserID(c *fiber.Ctx) (uuid.UUID, error) {
	userIDVal := c.Locals("user_id")
	if userIDVal == nil {
		return uuid.Nil, ErrUnauthorized
	}
	userID, ok := userIDVal.(uuid.UUID)
	if !ok {
		return uuid.Nil, ErrUnauthorized
	}
	return userID, nil
}

// =============================================================================
// Error Response Helpers
// =============================================================================

// ErrorResponse sends the flat {"error": ...} shape the calendar consumers
// expect. No envelope, no request metadata.
func ErrorResponse(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{"error": message})
}

// AppErrorResponse maps an AppError onto the flat error shape, using its
// HTTP status.
func AppErrorResponse(c *fiber.Ctx, err error) error {
	appErr := apperr.AsAppError(err)
	if appErr.Status >= 500 {
		logger.WithError(err).Error("request failed")
	}
	if appErr.Code == apperr.CodeInternalError {
		return ErrorResponse(c, appErr.Status, "internal error")
	}
	return ErrorResponse(c, appErr.Status, appErr.Message)
}

// =============================================================================
// Query Parameter Helpers
// =============================================================================

// QueryBool parses a boolean query parameter with a default.
func QueryBool(c *fiber.Ctx, key string, def bool) bool {
	val := c.Query(key)
	if val == "" {
		return def
	}
	return val == "true" || val == "1"
}

// QueryString returns pointer to string query param (nil if empty)
func QueryString(c *fiber.Ctx, key string) *string {
	val := c.Query(key)
	if val == "" {
		return nil
	}
	return &val
}
