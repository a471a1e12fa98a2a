package serverutils

import (
	"errors"

	"ai-notebook-companion/internal/pkg/apperror"
	"ai-notebook-companion/internal/pkg/logger"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandlerMiddleware turns errors returned by handlers into BaseResponse
// bodies. 5xx responses never carry the underlying error text.
func ErrorHandlerMiddleware(log logger.ILogger) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		code, message := StatusFor(err)
		if code >= fiber.StatusInternalServerError {
			log.Error("HTTP", "Request failed", map[string]interface{}{
				"method": ctx.Method(),
				"path":   ctx.Path(),
				"error":  err.Error(),
			})
		}

		return ctx.Status(code).JSON(ErrorResponse(code, message))
	}
}

// StatusFor maps an error to an HTTP status and a client-safe message.
func StatusFor(err error) (int, string) {
	var fiberErr *fiber.Error
	switch {
	case errors.As(err, &fiberErr):
		if fiberErr.Code >= fiber.StatusInternalServerError {
			return fiberErr.Code, "Internal server error"
		}
		return fiberErr.Code, fiberErr.Message
	case apperror.IsValidation(err):
		return fiber.StatusBadRequest, err.Error()
	case errors.Is(err, apperror.ErrNotFoundOrUnauthorized):
		return fiber.StatusNotFound, apperror.ErrNotFoundOrUnauthorized.Error()
	case errors.Is(err, apperror.ErrTransientExternalService):
		return fiber.StatusServiceUnavailable, "Upstream service unavailable, please retry"
	default:
		return fiber.StatusInternalServerError, "Internal server error"
	}
}
