package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/matsl08/ems-api/internal/models"
	appErrors "github.com/matsl08/ems-api/pkg/errors"
	"github.com/matsl08/ems-api/pkg/response"
)

// RequireRoles enforces role-based access control for routes.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}

	return func(c *gin.Context) {
		claims := mustClaims(c)
		if claims == nil {
			return
		}
		if _, ok := allowed[claims.Role]; !ok {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequirePosition narrows admin routes to one functional office. MIS admins
// pass everywhere since they administer the system itself.
func RequirePosition(positions ...models.AdminPosition) gin.HandlerFunc {
	allowed := make(map[models.AdminPosition]struct{}, len(positions))
	for _, position := range positions {
		allowed[position] = struct{}{}
	}

	return func(c *gin.Context) {
		claims := mustClaims(c)
		if claims == nil {
			return
		}
		if claims.Role != models.RoleAdmin {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		if claims.Position == models.PositionMIS {
			c.Next()
			return
		}
		if _, ok := allowed[claims.Position]; !ok {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireSelfStudent restricts a route carrying a :studentId param to the
// student it names. Teachers and admins pass through.
func RequireSelfStudent(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := mustClaims(c)
		if claims == nil {
			return
		}
		if claims.Role != models.RoleStudent {
			c.Next()
			return
		}
		if c.Param(param) != claims.ExternalID {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "students may only access their own records"))
			c.Abort()
			return
		}
		c.Next()
	}
}

func mustClaims(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(ContextUserKey)
	if !exists {
		response.Error(c, appErrors.ErrUnauthorized)
		c.Abort()
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		c.Abort()
		return nil
	}
	return claims
}
