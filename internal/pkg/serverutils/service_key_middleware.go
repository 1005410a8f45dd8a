// FILE: internal/pkg/serverutils/service_key_middleware.go
// PURPOSE: Guards /internal routes used by ingestion bridges (mail sync,
// transcript uploader). Callers present a raw key; verification is delegated
// so the bcrypt comparison stays next to the service_keys table.
package serverutils

import (
	"github.com/gofiber/fiber/v2"
)

type ServiceKeyVerifier interface {
	VerifyServiceKey(rawKey string) (name string, err error)
}

func ServiceKeyMiddleware(verifier ServiceKeyVerifier) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		rawKey := ctx.Get("X-Service-Key")
		if rawKey == "" {
			return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Missing service key"})
		}

		name, err := verifier.VerifyServiceKey(rawKey)
		if err != nil {
			return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Invalid service key"})
		}

		ctx.Locals("service_name", name)
		return ctx.Next()
	}
}
