package httpapi

import (
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-fintrack/report"
)

type reportController struct {
	service    *report.Service
	contextKey string
}

// ownerOnly rejects report routes addressed to another user.
func (r *reportController) ownerOnly(c *fiber.Ctx) error {
	userID, err := sessionUserID(c, r.contextKey)
	if err != nil {
		return err
	}
	if c.Params("userId") != userID {
		return ErrForbidden
	}
	return c.Next()
}

func (r *reportController) Get(c *fiber.Ctx) error {
	rep, err := r.service.Get(c.UserContext(), c.Params("userId"), c.Query("period"))
	if err != nil {
		return err
	}
	return c.JSON(rep)
}

func (r *reportController) List(c *fiber.Ctx) error {
	page, err := r.service.List(c.UserContext(), c.Params("userId"), pageRequest(c))
	if err != nil {
		return err
	}
	return c.JSON(page)
}

func (r *reportController) Summary(c *fiber.Ctx) error {
	summary, err := r.service.Summary(c.UserContext(), c.Params("userId"), c.Query("startPeriod"), c.Query("endPeriod"))
	if err != nil {
		return err
	}
	return c.JSON(summary)
}

func (r *reportController) Delete(c *fiber.Ctx) error {
	if err := r.service.Delete(c.UserContext(), c.Params("userId"), c.Query("period")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (r *reportController) Recalculate(c *fiber.Ctx) error {
	rep, err := r.service.Recalculate(c.UserContext(), c.Params("userId"), c.Query("period"))
	if err != nil {
		return err
	}
	return c.JSON(rep)
}
