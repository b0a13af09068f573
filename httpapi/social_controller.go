package httpapi

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-fintrack/auth/social"
)

type socialController struct {
	social *social.Authenticator
}

func (s *socialController) Providers(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"providers": s.social.Providers()})
}

func (s *socialController) Begin(c *fiber.Ctx) error {
	redirect, err := s.social.BeginAuth(c.UserContext(), c.Params("provider"), c.Query("redirect_url"))
	if err != nil {
		return err
	}
	return c.JSON(redirect)
}

func (s *socialController) Callback(c *fiber.Ctx) error {
	if reason := c.Query("error"); reason != "" {
		return fiber.NewError(fiber.StatusUnauthorized, fmt.Sprintf("provider denied access: %s", reason))
	}

	code, state := c.Query("code"), c.Query("state")
	if code == "" || state == "" {
		return fiber.NewError(fiber.StatusBadRequest, "code and state are required")
	}

	result, err := s.social.CompleteAuth(c.UserContext(), c.Params("provider"), code, state)
	if err != nil {
		return err
	}

	return c.JSON(AuthResponse{
		Token:     result.Token,
		User:      result.User.Record(),
		IsNewUser: result.IsNewUser,
	})
}
