package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/hometrove/marketplace-api/internal/model"
	"github.com/hometrove/marketplace-api/pkg/apperr"
)

// PropertyKey is where PropertyOwnership stashes the loaded property so the
// handler does not fetch it twice.
const PropertyKey = "property"

// PropertyOwnership loads the property from the :id param and requires the
// caller to be its agent or an admin. Soft-deleted rows read as not found.
func (m *Middleware) PropertyOwnership() fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims := Claims(c)

		var property model.Property
		if err := m.db.First(&property, c.Params("id")).Error; err != nil {
			return m.errs.Respond(c, apperr.NotFound("Property"))
		}

		if property.AgentID != claims.UserID && claims.Role != model.RoleAdmin {
			return m.errs.Respond(c, apperr.New(apperr.CodeForbidden,
				"You don't have permission to access this property"))
		}

		c.Locals(PropertyKey, &property)
		return c.Next()
	}
}

// OwnedProperty pulls the property loaded by PropertyOwnership.
func OwnedProperty(c *fiber.Ctx) *model.Property {
	return c.Locals(PropertyKey).(*model.Property)
}

// ImageLimit caps how many images a property may carry.
func (m *Middleware) ImageLimit(max int) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var count int64
		m.db.Model(&model.PropertyImage{}).
			Where("property_id = ?", c.Params("id")).
			Count(&count)

		if count >= int64(max) {
			return m.errs.Respond(c, apperr.Validation(
				"Maximum image limit reached", fiber.Map{"max_images": max}))
		}

		return c.Next()
	}
}
