package auth

import (
	"log"
	"strings"

	"sitegen-backend/internal/models"
	"sitegen-backend/internal/repo"

	"github.com/gofiber/fiber/v2"
)

// Middleware rejects requests without a valid bearer token and upserts the
// caller's user row from the token claims. Websocket upgrades may pass the
// token as the "token" query parameter.
func Middleware(secret string, userRepo repo.UserRepoInterface) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenStr := bearerToken(c.Get(fiber.HeaderAuthorization))
		if tokenStr == "" && strings.EqualFold(c.Get(fiber.HeaderUpgrade), "websocket") {
			tokenStr = c.Query("token")
		}
		if tokenStr == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"error":   "Unauthorized",
			})
		}

		claims, err := ParseToken(tokenStr, secret)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"error":   "Invalid or expired token",
			})
		}

		identity := claims.Identity()
		if userRepo != nil {
			if err := userRepo.Upsert(c.UserContext(), userFromIdentity(identity)); err != nil {
				log.Printf("[auth] failed to upsert user %s: %v", identity.UserID, err)
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"success": false,
					"error":   "Internal server error",
				})
			}
		}

		c.Locals(LocalsKey, identity)
		return c.Next()
	}
}

func bearerToken(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

func userFromIdentity(identity Identity) *models.User {
	user := &models.User{
		ID:            identity.UserID,
		Name:          identity.Name,
		Email:         identity.Email,
		EmailVerified: identity.Email != "",
	}
	if identity.Image != "" {
		image := identity.Image
		user.Image = &image
	}
	return user
}
