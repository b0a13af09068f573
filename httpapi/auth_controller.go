package httpapi

import (
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-fintrack/auth"
	"github.com/goliatone/go-fintrack/authstate"
)

// AuthResponse is returned by every sign-in route.
type AuthResponse struct {
	Token     string           `json:"token"`
	User      authstate.Record `json:"user"`
	IsNewUser bool             `json:"isNewUser,omitempty"`
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authController struct {
	auther     *auth.Auther
	register   *auth.RegisterUserHandler
	contextKey string
}

func (a *authController) Register(c *fiber.Ctx) error {
	var msg auth.RegisterUserMessage
	if err := c.BodyParser(&msg); err != nil {
		return errBadBody
	}

	user, err := a.register.Execute(c.UserContext(), msg)
	if err != nil {
		return err
	}

	token, err := a.auther.IssueToken(c.UserContext(), user.Identity())
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(AuthResponse{Token: token, User: user.Record(), IsNewUser: true})
}

func (a *authController) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return errBadBody
	}

	ctx := c.UserContext()
	token, err := a.auther.Login(ctx, req.Email, req.Password)
	if err != nil {
		return err
	}

	session, err := a.auther.SessionFromToken(ctx, token)
	if err != nil {
		return err
	}
	identity, err := a.auther.IdentityFromSession(ctx, session)
	if err != nil {
		return err
	}

	return c.JSON(AuthResponse{Token: token, User: auth.RecordFromIdentity(identity)})
}

func (a *authController) Logout(c *fiber.Ctx) error {
	session, err := auth.GetSession(c, a.contextKey)
	if err != nil {
		return err
	}
	if err := a.auther.Logout(c.UserContext(), session); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (a *authController) Me(c *fiber.Ctx) error {
	session, err := auth.GetSession(c, a.contextKey)
	if err != nil {
		return err
	}
	identity, err := a.auther.IdentityFromSession(c.UserContext(), session)
	if err != nil {
		return err
	}
	return c.JSON(auth.RecordFromIdentity(identity))
}
