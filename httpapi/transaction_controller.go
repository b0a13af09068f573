package httpapi

import (
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-fintrack/pagination"
	"github.com/goliatone/go-fintrack/transaction"
)

type transactionController struct {
	service    *transaction.Service
	contextKey string
}

func (t *transactionController) Create(c *fiber.Ctx) error {
	userID, err := sessionUserID(c, t.contextKey)
	if err != nil {
		return err
	}

	var req transaction.Request
	if err := c.BodyParser(&req); err != nil {
		return errBadBody
	}

	created, err := t.service.Create(c.UserContext(), userID, req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

func (t *transactionController) List(c *fiber.Ctx) error {
	userID, err := sessionUserID(c, t.contextKey)
	if err != nil {
		return err
	}

	page, err := t.service.List(c.UserContext(), userID, c.Query("period"), pageRequest(c))
	if err != nil {
		return err
	}
	return c.JSON(page)
}

func (t *transactionController) Get(c *fiber.Ctx) error {
	userID, err := sessionUserID(c, t.contextKey)
	if err != nil {
		return err
	}

	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return fiber.NewError(fiber.StatusBadRequest, "transaction id must be a positive integer")
	}

	found, err := t.service.Get(c.UserContext(), userID, int64(id))
	if err != nil {
		return err
	}
	return c.JSON(found)
}

func (t *transactionController) Update(c *fiber.Ctx) error {
	userID, err := sessionUserID(c, t.contextKey)
	if err != nil {
		return err
	}

	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return fiber.NewError(fiber.StatusBadRequest, "transaction id must be a positive integer")
	}

	var req transaction.Request
	if err := c.BodyParser(&req); err != nil {
		return errBadBody
	}

	updated, err := t.service.Update(c.UserContext(), userID, int64(id), req)
	if err != nil {
		return err
	}
	return c.JSON(updated)
}

func pageRequest(c *fiber.Ctx) pagination.Request {
	return pagination.Request{
		Page: c.QueryInt("page", 0),
		Size: c.QueryInt("size", pagination.DefaultPageSize),
	}
}
