package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// DefaultContextKey is the locals key used when Config has none
const DefaultContextKey = "user"

// Protected validates the bearer token of every request and stores the
// Session in the request locals. Failures are handed to errorHandler.
func Protected(auther Authenticator, cfg Config, errorHandler func(*fiber.Ctx, error) error) fiber.Handler {
	key := contextKey(cfg)
	scheme := cfg.GetAuthScheme()
	if scheme == "" {
		scheme = "Bearer"
	}
	if errorHandler == nil {
		errorHandler = func(c *fiber.Ctx, err error) error {
			return fiber.NewError(fiber.StatusUnauthorized, err.Error())
		}
	}

	return func(c *fiber.Ctx) error {
		raw, err := TokenFromHeader(c.Get(fiber.HeaderAuthorization), scheme)
		if err != nil {
			return errorHandler(c, err)
		}

		session, err := auther.SessionFromToken(c.UserContext(), raw)
		if err != nil {
			return errorHandler(c, err)
		}

		c.Locals(key, session)
		return c.Next()
	}
}

// TokenFromHeader extracts the token from an Authorization header value
func TokenFromHeader(header, scheme string) (string, error) {
	header = strings.TrimSpace(header)
	prefix := scheme + " "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", ErrUnableToFindSession
	}
	return strings.TrimSpace(header[len(prefix):]), nil
}

// GetSession returns the Session stored by Protected under key
func GetSession(c *fiber.Ctx, key string) (Session, error) {
	if key == "" {
		key = DefaultContextKey
	}
	session, ok := c.Locals(key).(Session)
	if !ok || session == nil {
		return nil, ErrUnableToFindSession
	}
	return session, nil
}

func contextKey(cfg Config) string {
	if key := cfg.GetContextKey(); key != "" {
		return key
	}
	return DefaultContextKey
}
