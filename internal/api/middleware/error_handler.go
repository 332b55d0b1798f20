package middleware

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/saturnino-fabrica-de-software/homeguard/internal/backend"
	"github.com/saturnino-fabrica-de-software/homeguard/internal/domain"
)

func ErrorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		// Check if it's a Fiber error
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return c.Status(fiberErr.Code).JSON(fiber.Map{
				"error": fiber.Map{
					"code":    "HTTP_ERROR",
					"message": fiberErr.Message,
				},
			})
		}

		// Client errors from the backend pass through with the backend's own
		// status and message so the dashboard can show them verbatim.
		var statusErr *backend.StatusError
		if errors.As(err, &statusErr) && statusErr.IsClientError() {
			return c.Status(statusErr.StatusCode).JSON(fiber.Map{
				"error": fiber.Map{
					"code":    "BACKEND_REJECTED",
					"message": statusErr.Message,
				},
			})
		}

		if errors.Is(err, backend.ErrBackendUnavailable) {
			logger.Warn("backend unavailable",
				slog.Any("error", err),
				slog.String("path", c.Path()),
			)
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
				"error": fiber.Map{
					"code":    domain.ErrTransientNetwork.Code,
					"message": "Backend belum siap",
				},
			})
		}

		var appErr *domain.AppError
		if errors.As(err, &appErr) {
			if appErr.StatusCode >= 500 {
				logger.Error("request failed",
					slog.String("code", appErr.Code),
					slog.String("message", appErr.Message),
					slog.Any("error", appErr.Err),
					slog.String("path", c.Path()),
				)
			}

			return c.Status(appErr.StatusCode).JSON(fiber.Map{
				"error": fiber.Map{
					"code":    appErr.Code,
					"message": appErr.Message,
				},
			})
		}

		// Unknown error - log and return generic message
		logger.Error("unhandled error",
			slog.Any("error", err),
			slog.String("path", c.Path()),
		)

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": fiber.Map{
				"code":    domain.ErrInternal.Code,
				"message": domain.ErrInternal.Message,
			},
		})
	}
}
