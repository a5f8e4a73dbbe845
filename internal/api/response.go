package api

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
)

type validatable interface{ Validate() error }

// parseBody decodes the JSON body into req and runs its validation.
func parseBody(c *fiber.Ctx, req validatable) error {
	if err := c.BodyParser(req); err != nil {
		return err
	}
	return req.Validate()
}

// queryInt64 reads a required integer query parameter.
func queryInt64(c *fiber.Ctx, name string) (int64, error) {
	v := c.Query(name)
	if v == "" {
		return 0, fmt.Errorf("%s is required", name)
	}
	return strconv.ParseInt(v, 10, 64)
}

func errJSON(c *fiber.Ctx, code int, msg string) error {
	return c.Status(code).JSON(fiber.Map{"error": msg})
}

// storeErr maps store failures onto HTTP statuses: missing rows are 404s,
// everything else is a 500.
func storeErr(c *fiber.Ctx, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return errJSON(c, fiber.StatusNotFound, err.Error())
	}
	return errJSON(c, fiber.StatusInternalServerError, err.Error())
}
