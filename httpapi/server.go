// Package httpapi is the fintrack REST API on fiber.
package httpapi

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/goliatone/go-fintrack/auth"
	"github.com/goliatone/go-fintrack/auth/social"
	"github.com/goliatone/go-fintrack/logging"
	"github.com/goliatone/go-fintrack/report"
	"github.com/goliatone/go-fintrack/transaction"
)

// Prefix is the root of every route.
const Prefix = "/api/v1"

// Dependencies are the services the API exposes.
type Dependencies struct {
	Auth         *auth.Auther
	AuthConfig   auth.Config
	Register     *auth.RegisterUserHandler
	Social       *social.Authenticator
	Transactions *transaction.Service
	Reports      *report.Service
	Logger       logging.Logger
}

// New builds the fiber app with every route registered.
func New(deps Dependencies) *fiber.App {
	if deps.Logger == nil {
		deps.Logger = logging.Default()
	}

	app := fiber.New(fiber.Config{
		AppName:               "fintrack",
		ErrorHandler:          ErrorHandler(deps.Logger),
		DisableStartupMessage: true,
		ReadTimeout:           15 * time.Second,
		WriteTimeout:          15 * time.Second,
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(requestLogger(deps.Logger))

	api := app.Group(Prefix)
	protected := auth.Protected(deps.Auth, deps.AuthConfig, nil)
	key := deps.AuthConfig.GetContextKey()

	authCtrl := &authController{auther: deps.Auth, register: deps.Register, contextKey: key}
	authGroup := api.Group("/auth")
	authGroup.Post("/register", authCtrl.Register)
	authGroup.Post("/login", authCtrl.Login)
	authGroup.Post("/logout", protected, authCtrl.Logout)
	authGroup.Get("/me", protected, authCtrl.Me)

	if deps.Social != nil {
		socialCtrl := &socialController{social: deps.Social}
		socialGroup := authGroup.Group("/social")
		socialGroup.Get("/providers", socialCtrl.Providers)
		socialGroup.Get("/:provider/callback", socialCtrl.Callback)
		socialGroup.Get("/:provider", socialCtrl.Begin)
	}

	txCtrl := &transactionController{service: deps.Transactions, contextKey: key}
	txGroup := api.Group("/transactions", protected)
	txGroup.Post("/", txCtrl.Create)
	txGroup.Get("/", txCtrl.List)
	txGroup.Get("/:id", txCtrl.Get)
	txGroup.Put("/:id", txCtrl.Update)

	reportCtrl := &reportController{service: deps.Reports, contextKey: key}
	owner := []fiber.Handler{protected, reportCtrl.ownerOnly}
	reportGroup := api.Group("/reports")
	reportGroup.Get("/:userId", append(owner, reportCtrl.Get)...)
	reportGroup.Get("/:userId/all", append(owner, reportCtrl.List)...)
	reportGroup.Get("/:userId/summary", append(owner, reportCtrl.Summary)...)
	reportGroup.Delete("/:userId", append(owner, reportCtrl.Delete)...)
	reportGroup.Post("/:userId/recalculate", append(owner, reportCtrl.Recalculate)...)

	return app
}

func requestLogger(logger logging.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			status = StatusFor(err)
		}
		logger.Debug("request",
			"method", c.Method(),
			"path", c.Path(),
			"status", status,
			"duration", time.Since(start),
			"request_id", c.GetRespHeader(fiber.HeaderXRequestID),
		)
		return err
	}
}

func sessionUserID(c *fiber.Ctx, key string) (string, error) {
	session, err := auth.GetSession(c, key)
	if err != nil {
		return "", err
	}
	return session.GetUserID(), nil
}
