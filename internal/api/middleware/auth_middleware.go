package middleware

import (
	"github.com/gofiber/fiber/v2"
)

// TokenHeader carries the caller's LinkedIn access token, supplied
// out-of-band with every API request.
const TokenHeader = "Linkedin-Token"

const TokenLocal = "linkedin_token"

// LinkedInToken rejects requests without a bearer credential and makes the
// token available to handlers through c.Locals.
func LinkedInToken() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Get(TokenHeader)
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Missing LinkedIn token",
			})
		}

		c.Locals(TokenLocal, token)
		return c.Next()
	}
}
