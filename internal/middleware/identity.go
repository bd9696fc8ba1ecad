package middleware

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/sawerbase/sawerbase/internal/auth"
	"github.com/sawerbase/sawerbase/internal/wallet"
)

// IdentityAuth verifies the bearer identity token and stores the resulting
// wallet.Identity on the request. When required is false a missing token
// continues as an unauthenticated identity; a malformed one is always rejected.
func IdentityAuth(verifier *auth.Verifier, required bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authz := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			if required {
				return fiber.NewError(http.StatusUnauthorized, "missing bearer token")
			}
			wallet.SetIdentity(c, wallet.Identity{})
			return c.Next()
		}

		id, err := verifier.Verify(authz[len("Bearer "):])
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, "invalid token")
		}
		wallet.SetIdentity(c, id)
		c.Locals("user_id", id.Subject)
		return c.Next()
	}
}
