package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/hometrove/marketplace-api/internal/model"
	"github.com/hometrove/marketplace-api/pkg/apperr"
	"github.com/hometrove/marketplace-api/pkg/jwtutil"
)

// ClaimsKey is where Auth stores the validated token claims in ctx locals.
const ClaimsKey = "user"

// Middleware bundles the route guards with their dependencies.
type Middleware struct {
	db     *gorm.DB
	tokens *jwtutil.Manager
	errs   *apperr.Classifier
}

func New(db *gorm.DB, tokens *jwtutil.Manager, errs *apperr.Classifier) *Middleware {
	return &Middleware{db: db, tokens: tokens, errs: errs}
}

// Claims pulls the validated claims out of ctx locals. Only valid behind Auth.
func Claims(c *fiber.Ctx) *jwtutil.Claims {
	return c.Locals(ClaimsKey).(*jwtutil.Claims)
}

// Auth requires a valid Bearer token and stores the claims in locals.
func (m *Middleware) Auth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			return m.errs.Respond(c, apperr.New(apperr.CodeUnauthorized, "Missing or malformed token"))
		}

		claims, err := m.tokens.Validate(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			return m.errs.Respond(c, apperr.Wrap(apperr.CodeUnauthorized, err))
		}

		c.Locals(ClaimsKey, claims)
		return c.Next()
	}
}

// RequireRole gates a route on the caller's role. Role lives in one column;
// the token carries it, the database stays authoritative on sensitive paths.
func (m *Middleware) RequireRole(roles ...model.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims := Claims(c)

		var user model.User
		if err := m.db.First(&user, claims.UserID).Error; err != nil {
			return m.errs.Respond(c, apperr.Wrap(apperr.CodeUnauthorized, err))
		}

		for _, role := range roles {
			if user.Role == role {
				return c.Next()
			}
		}

		return m.errs.Respond(c, apperr.New(apperr.CodeForbidden, ""))
	}
}

// RequireVerified gates listing creation on a verified account.
func (m *Middleware) RequireVerified() fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims := Claims(c)

		var user model.User
		if err := m.db.First(&user, claims.UserID).Error; err != nil {
			return m.errs.Respond(c, apperr.Wrap(apperr.CodeUnauthorized, err))
		}

		if !user.CanList() {
			return m.errs.Respond(c, apperr.New(apperr.CodeForbidden,
				"Your account must be verified before publishing listings"))
		}

		return c.Next()
	}
}
