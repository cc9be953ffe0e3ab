package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/matsl08/ems-api/internal/middleware"
	"github.com/matsl08/ems-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// teacherIDFromClaims returns the faculty ID for teachers and an empty string
// for admins, which ownership checks treat as a bypass.
func teacherIDFromClaims(claims *models.JWTClaims) string {
	if claims == nil {
		return ""
	}
	if claims.Role == models.RoleTeacher {
		return claims.ExternalID
	}
	return ""
}
