package middleware

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/nerus-go-api/internal/utils"
)

var roleAliases = map[string]string{
	"student":       AuthRoleStudent,
	"aluno":         AuthRoleStudent,
	"company":       AuthRoleCompany,
	"administrator": AuthRoleAdmin,
}

// CanonicalRole lower-cases a role and maps english aliases onto the stored names.
func CanonicalRole(role string) string {
	role = strings.ToLower(strings.TrimSpace(role))
	if alias, ok := roleAliases[role]; ok {
		return alias
	}
	return role
}

// RequireRole ensures that the authenticated user possesses one of the allowed roles.
func RequireRole(roles ...string) fiber.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		if normalized := CanonicalRole(role); normalized != "" {
			allowed[normalized] = struct{}{}
		}
	}

	return func(c *fiber.Ctx) error {
		role := normalizeRoleValue(c.Locals("user_role"))
		if _, ok := allowed[role]; !ok {
			return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
		}
		return c.Next()
	}
}

func normalizeRoleValue(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return CanonicalRole(v)
	case fmt.Stringer:
		return CanonicalRole(v.String())
	default:
		return CanonicalRole(fmt.Sprintf("%v", value))
	}
}
