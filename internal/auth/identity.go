package auth

import (
	"github.com/gofiber/fiber/v2"
)

// LocalsKey is the fiber Locals key holding the caller Identity.
const LocalsKey = "identity"

// Identity is the authenticated caller passed explicitly into every core operation.
type Identity struct {
	UserID string
	Email  string
	Name   string
	Image  string
}

func (i Identity) Authenticated() bool {
	return i.UserID != ""
}

// FromCtx returns the identity stored by Middleware, or the zero Identity.
func FromCtx(c *fiber.Ctx) Identity {
	return FromLocal(c.Locals(LocalsKey))
}

// FromLocal converts a stored Locals value, such as one read from a websocket
// connection, back into an Identity.
func FromLocal(v interface{}) Identity {
	if id, ok := v.(Identity); ok {
		return id
	}
	return Identity{}
}
