package middleware

import (
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// Roles issued by the identity service.
const (
	RoleContributor = "contributor"
	RoleReviewer    = "reviewer"
	RoleAdmin       = "admin"
)

// Context keys set by AuthMiddleware.
const (
	ContextUserName = "userName"
	ContextEmail    = "email"
	ContextRole     = "role"
)

// Claims is the token payload issued by the identity service. The API only
// reads the identity; it never authenticates users itself.
type Claims struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// AuthMiddleware validates the bearer token against JWT_SECRET.
func AuthMiddleware() gin.HandlerFunc {
	return authMiddleware(func() []byte { return []byte(os.Getenv("JWT_SECRET")) })
}

// AuthMiddlewareWithSecret validates the bearer token against a fixed secret.
func AuthMiddlewareWithSecret(secret []byte) gin.HandlerFunc {
	return authMiddleware(func() []byte { return secret })
}

func authMiddleware(secret func() []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Get token from header
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header is required"})
			c.Abort()
			return
		}

		// Check Bearer prefix
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header format"})
			c.Abort()
			return
		}

		key := secret()
		if len(key) == 0 {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Authentication is not configured"})
			c.Abort()
			return
		}

		token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
			return key, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}))
		if err != nil || !token.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}

		claims, ok := token.Claims.(*Claims)
		if !ok || strings.TrimSpace(claims.Name) == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token claims"})
			c.Abort()
			return
		}

		// Set user info in context
		c.Set(ContextUserName, strings.TrimSpace(claims.Name))
		c.Set(ContextEmail, claims.Email)
		c.Set(ContextRole, strings.ToLower(claims.Role))

		c.Next()
	}
}

// RequireRole checks if user has one of the given roles
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userRole := c.GetString(ContextRole)
		if userRole == "" {
			c.JSON(http.StatusForbidden, gin.H{"error": "Role not found"})
			c.Abort()
			return
		}

		for _, role := range roles {
			if userRole == role {
				c.Next()
				return
			}
		}

		c.JSON(http.StatusForbidden, gin.H{"error": "Insufficient permissions"})
		c.Abort()
	}
}
