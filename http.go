package auth

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
)

// DefaultCookieName is the session cookie name
const DefaultCookieName = "token"

const internalErrorMessage = "Internal server error"

// Envelope is the JSON body of every response
type Envelope struct {
	Success bool              `json:"success"`
	Message string            `json:"message,omitempty"`
	Data    any               `json:"data,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
}

// SendData writes a successful envelope
func SendData(c *fiber.Ctx, status int, message string, data any) error {
	return c.Status(status).JSON(Envelope{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// SetSessionCookie writes the session cookie. It is HTTP only; in
// production it is Secure and SameSite=None, otherwise SameSite=Strict.
func SetSessionCookie(c *fiber.Ctx, cfg Config, token string) {
	maxAge := cfg.GetCookieMaxAge()
	if maxAge <= 0 {
		maxAge = DefaultTokenLifetime
	}

	c.Cookie(&fiber.Cookie{
		Name:     cookieName(cfg),
		Value:    token,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		Expires:  time.Now().Add(maxAge),
		HTTPOnly: true,
		Secure:   cfg.IsProduction(),
		SameSite: cookieSameSite(cfg),
	})
}

// ClearSessionCookie expires the session cookie using the same attributes
// it was set with.
func ClearSessionCookie(c *fiber.Ctx, cfg Config) {
	c.Cookie(&fiber.Cookie{
		Name:     cookieName(cfg),
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   cfg.IsProduction(),
		SameSite: cookieSameSite(cfg),
	})
}

func cookieSameSite(cfg Config) string {
	if cfg.IsProduction() {
		return fiber.CookieSameSiteNoneMode
	}
	return fiber.CookieSameSiteStrictMode
}

// NewErrorHandler returns the fiber error handler that renders every error
// as an envelope. Server errors carry a generic message unless cfg is in
// development mode, where the underlying error text is returned.
func NewErrorHandler(cfg Config, logger Logger) fiber.ErrorHandler {
	logger = normalizeLogger(logger)

	return func(c *fiber.Ctx, err error) error {
		richErr := toRichError(err)
		status := statusFor(richErr)

		body := Envelope{
			Success: false,
			Message: richErr.Message,
		}

		if fields, ok := ValidationFields(richErr); ok {
			body.Errors = fields
		}

		if status >= http.StatusInternalServerError {
			logger.Error(
				"request failed",
				"path", utils.CopyString(c.Path()),
				"error", err,
				"category", richErr.Category,
				"details", print.MaybePrettyJSON(richErr.Metadata),
			)
			body.Message = internalErrorMessage
			if cfg != nil && cfg.IsDevelopment() {
				body.Message = err.Error()
			}
		} else {
			logger.Debug("request rejected", "path", utils.CopyString(c.Path()), "status", status, "text_code", richErr.TextCode)
		}

		return c.Status(status).JSON(body)
	}
}

func toRichError(err error) *goerrors.Error {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		switch fiberErr.Code {
		case fiber.StatusNotFound:
			return ErrRouteNotFound
		case fiber.StatusTooManyRequests:
			return ErrTooManyRequests
		}
		category := goerrors.CategoryInternal
		if fiberErr.Code < http.StatusInternalServerError {
			category = goerrors.CategoryBadInput
		}
		return goerrors.New(fiberErr.Message, category).WithCode(fiberErr.Code)
	}

	return goerrors.Wrap(err, goerrors.CategoryInternal, internalErrorMessage).
		WithCode(goerrors.CodeInternal).
		WithTextCode(TextCodeInternal)
}

// StatusCode returns the HTTP status the error handler renders for err
func StatusCode(err error) int {
	if err == nil {
		return http.StatusOK
	}
	return statusFor(toRichError(err))
}

func statusFor(richErr *goerrors.Error) int {
	if richErr.Code >= 400 && richErr.Code < 600 {
		return richErr.Code
	}

	switch richErr.Category {
	case goerrors.CategoryValidation, goerrors.CategoryBadInput:
		return http.StatusBadRequest
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryRateLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// NotFoundHandler answers unknown routes
func NotFoundHandler(c *fiber.Ctx) error {
	return ErrRouteNotFound
}
