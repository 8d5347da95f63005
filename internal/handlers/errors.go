package handlers

import (
	"errors"

	"storefront/internal/apperror"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

var statusByKind = map[apperror.Kind]int{
	apperror.InvalidInput:      fiber.StatusBadRequest,
	apperror.OutOfStock:        fiber.StatusBadRequest,
	apperror.InsufficientStock: fiber.StatusBadRequest,
	apperror.EmptyCart:         fiber.StatusBadRequest,
	apperror.Unauthorized:      fiber.StatusUnauthorized,
	apperror.Forbidden:         fiber.StatusForbidden,
	apperror.NotFound:          fiber.StatusNotFound,
	apperror.Conflict:          fiber.StatusConflict,
}

// StatusOf maps an application error onto an HTTP status.
func StatusOf(err error) int {
	if status, ok := statusByKind[apperror.KindOf(err)]; ok {
		return status
	}
	return fiber.StatusInternalServerError
}

// ErrorHandler renders every error returned by a handler or middleware.
// Causes are echoed in the body outside production only.
func ErrorHandler(log zerolog.Logger, production bool) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		// Routing errors such as 404 and 405 come from fiber itself.
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return c.Status(fiberErr.Code).JSON(fiber.Map{
				"message": fiberErr.Message,
				"code":    codeForStatus(fiberErr.Code),
			})
		}

		kind := apperror.KindOf(err)
		status := StatusOf(err)
		body := fiber.Map{
			"message": apperror.MessageOf(err),
			"code":    string(kind),
		}

		var appErr *apperror.Error
		if errors.As(err, &appErr) && len(appErr.Fields) > 0 {
			body["errors"] = appErr.Fields
		}
		if status == fiber.StatusInternalServerError {
			log.Error().Err(err).Str("path", c.Path()).Msg("request failed")
			if !production {
				body["error"] = err.Error()
			}
		}
		return c.Status(status).JSON(body)
	}
}

func codeForStatus(status int) string {
	switch status {
	case fiber.StatusNotFound:
		return string(apperror.NotFound)
	case fiber.StatusUnauthorized:
		return string(apperror.Unauthorized)
	case fiber.StatusForbidden:
		return string(apperror.Forbidden)
	case fiber.StatusConflict:
		return string(apperror.Conflict)
	}
	if status < fiber.StatusInternalServerError {
		return string(apperror.InvalidInput)
	}
	return string(apperror.Internal)
}
