package httpapi

import (
	"errors"
	"net/http"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-fintrack/auth"
	"github.com/goliatone/go-fintrack/auth/social"
	"github.com/goliatone/go-fintrack/logging"
	"github.com/goliatone/go-fintrack/report"
	"github.com/goliatone/go-fintrack/transaction"
)

// ErrForbidden is returned when a user reaches for another user's data.
var ErrForbidden = errors.New("access to another user's data is forbidden")

var errBadBody = errors.New("invalid request body")

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	DateTime time.Time `json:"dateTime"`
	Message  string    `json:"message"`
	Path     string    `json:"path"`
}

var statusBySentinel = []struct {
	err    error
	status int
}{
	{auth.ErrTooManyLoginAttempts, http.StatusTooManyRequests},
	{auth.ErrEmailAlreadyInUse, http.StatusConflict},
	{auth.ErrUserSuspended, http.StatusForbidden},
	{auth.ErrUserDisabled, http.StatusForbidden},
	{auth.ErrMismatchedHashAndPassword, http.StatusUnauthorized},
	{auth.ErrIdentityNotFound, http.StatusUnauthorized},
	{auth.ErrTokenExpired, http.StatusUnauthorized},
	{auth.ErrTokenMalformed, http.StatusUnauthorized},
	{auth.ErrTokenRevoked, http.StatusUnauthorized},
	{auth.ErrUnableToFindSession, http.StatusUnauthorized},
	{auth.ErrUnableToDecodeSession, http.StatusUnauthorized},
	{auth.ErrNoEmptyString, http.StatusBadRequest},

	{social.ErrProviderNotFound, http.StatusNotFound},
	{social.ErrInvalidState, http.StatusBadRequest},
	{social.ErrStateExpired, http.StatusBadRequest},
	{social.ErrTokenExchangeFailed, http.StatusUnauthorized},
	{social.ErrUserInfoFailed, http.StatusUnauthorized},
	{social.ErrEmailNotVerified, http.StatusForbidden},
	{social.ErrSignupNotAllowed, http.StatusForbidden},

	{transaction.ErrNotFound, http.StatusNotFound},
	{transaction.ErrInvalidPeriod, http.StatusBadRequest},
	{report.ErrReportNotFound, http.StatusNotFound},
	{report.ErrInvalidPeriod, http.StatusBadRequest},
	{report.ErrInvalidRange, http.StatusBadRequest},

	{ErrForbidden, http.StatusForbidden},
	{errBadBody, http.StatusBadRequest},
}

// StatusFor maps an error to its HTTP status.
func StatusFor(err error) int {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}

	var verrs validation.Errors
	if errors.As(err, &verrs) {
		return http.StatusBadRequest
	}

	for _, m := range statusBySentinel {
		if errors.Is(err, m.err) {
			return m.status
		}
	}
	return http.StatusInternalServerError
}

// ErrorHandler renders errors as ErrorResponse. Server errors are logged
// and their details withheld from the client.
func ErrorHandler(logger logging.Logger) fiber.ErrorHandler {
	if logger == nil {
		logger = logging.Default()
	}

	return func(c *fiber.Ctx, err error) error {
		status := StatusFor(err)
		message := err.Error()

		if status >= http.StatusInternalServerError {
			logger.Error("request failed",
				"method", c.Method(),
				"path", c.Path(),
				"error", err,
			)
			message = http.StatusText(status)
		}

		return c.Status(status).JSON(ErrorResponse{
			DateTime: time.Now().UTC(),
			Message:  message,
			Path:     c.Path(),
		})
	}
}
