package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/warungpos/procure_backend/models"
	"github.com/warungpos/procure_backend/utils"
)

// AuthMiddleware validates the bearer token and copies its claims into the
// request context, where the models layer reads the outlet scope. Admins may
// act on another outlet via the X-Outlet-Code header.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization header is required"})
			return
		}
		token := strings.TrimPrefix(auth, "Bearer ")

		parsed, err := utils.JwtValidate(token)
		if err != nil || !parsed.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}
		claims, ok := parsed.Claims.(*utils.JwtCustomClaim)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		outletCode := claims.OutletCode
		if override := c.GetHeader("X-Outlet-Code"); override != "" && override != outletCode {
			if claims.Role != "admin" {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "outlet override requires admin role"})
				return
			}
			if err := models.ValidateOutletExists(c.Request.Context(), override); err != nil {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "unknown outlet code"})
				return
			}
			outletCode = override
		}

		correlationId := c.GetHeader("X-Correlation-Id")
		if correlationId == "" {
			correlationId = uuid.NewString()
		}
		c.Header("X-Correlation-Id", correlationId)

		ctx := c.Request.Context()
		ctx = utils.SetTokenInContext(ctx, token)
		ctx = utils.SetOutletCodeInContext(ctx, outletCode)
		ctx = utils.SetUserIdInContext(ctx, claims.ID)
		ctx = utils.SetUserNameInContext(ctx, claims.Name)
		ctx = utils.SetRoleInContext(ctx, claims.Role)
		ctx = utils.SetCorrelationIdInContext(ctx, correlationId)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// RequireRole gates a route on the role claim. Runs after AuthMiddleware.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actual, _ := utils.GetRoleFromContext(c.Request.Context())
		if actual != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "requires " + role + " role"})
			return
		}
		c.Next()
	}
}
