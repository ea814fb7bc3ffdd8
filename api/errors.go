package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

// ErrorResponse is the body of API errors.
type ErrorResponse struct {
	Error string `json:"error"`
}

// DetailResponse is the body of chat and MCP endpoint errors.
type DetailResponse struct {
	Detail string `json:"detail"`
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(ErrorResponse{Error: err.Error()})
}
