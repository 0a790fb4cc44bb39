package middleware

import (
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"elearning-chat-platform/internal/config"
	"elearning-chat-platform/utils"
)

type AuthMiddleware struct {
	config *config.Config
}

func NewAuthMiddleware(cfg *config.Config) *AuthMiddleware {
	return &AuthMiddleware{config: cfg}
}

// RequireAuth validates the bearer token and stores the claims in the
// request context.
func (a *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := utils.ExtractTokenFromHeader(c.GetHeader("Authorization"))
		if tokenString == "" {
			utils.RespondWithUnauthorized(c, "Authentication token is required")
			c.Abort()
			return
		}

		claims, err := utils.ValidateJWT(tokenString, a.config.JWTSecret)
		if err != nil {
			utils.RespondWithUnauthorized(c, "Invalid or expired token")
			c.Abort()
			return
		}

		c.Set("claims", claims)
		c.Set("user_id", claims.UserID)
		c.Set("username", claims.Username)
		c.Set("role", claims.Role)
		c.Next()
	}
}

// GetUserID returns the authenticated user's ID hex string.
func GetUserID(c *gin.Context) string {
	if id, exists := c.Get("user_id"); exists {
		if str, ok := id.(string); ok {
			return str
		}
	}
	return ""
}

// GetUserObjectID parses the authenticated user's ID into an ObjectID.
func GetUserObjectID(c *gin.Context) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(GetUserID(c))
	if err != nil {
		return primitive.NilObjectID, false
	}
	return id, true
}

// GetUsername returns the authenticated user's username.
func GetUsername(c *gin.Context) string {
	if name, exists := c.Get("username"); exists {
		if str, ok := name.(string); ok {
			return str
		}
	}
	return ""
}

// GetRole returns the authenticated user's role.
func GetRole(c *gin.Context) string {
	if role, exists := c.Get("role"); exists {
		if str, ok := role.(string); ok {
			return str
		}
	}
	return ""
}
