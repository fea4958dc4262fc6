package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/classtrackhq/classtrack-api/internal/access"
	"github.com/classtrackhq/classtrack-api/internal/middleware"
	"github.com/classtrackhq/classtrack-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	claims, ok := middleware.CurrentClaims(c)
	if !ok {
		return nil
	}
	return claims
}

// scopeFor builds the row filter for the caller over an entity kind.
// Anonymous or malformed claims resolve to a deny-all predicate.
func scopeFor(c *gin.Context, entity access.Entity) access.Predicate {
	claims := claimsFromContext(c)
	if claims == nil {
		return access.DenyAll
	}
	predicate, err := access.For(claims.Role, middleware.ScopeOf(claims), entity)
	if err != nil {
		return access.DenyAll
	}
	return predicate
}
