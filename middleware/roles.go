package middleware

import (
	"github.com/gin-gonic/gin"

	"elearning-chat-platform/models"
	"elearning-chat-platform/utils"
)

type RoleMiddleware struct{}

func NewRoleMiddleware() *RoleMiddleware {
	return &RoleMiddleware{}
}

func (r *RoleMiddleware) RequireRole(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := GetRole(c)
		if role == "" {
			utils.RespondWithUnauthorized(c, "User role not found")
			c.Abort()
			return
		}

		for _, allowed := range allowedRoles {
			if role == allowed {
				c.Next()
				return
			}
		}

		utils.RespondWithError(c, 403, "forbidden", "Insufficient permissions", gin.H{
			"required_roles": allowedRoles,
			"user_role":      role,
		})
		c.Abort()
	}
}

func (r *RoleMiddleware) AdminGuard() gin.HandlerFunc {
	return r.RequireRole(models.RoleAdmin)
}

// TeacherGuard admits teachers and admins, the roles allowed to manage
// courses and materials.
func (r *RoleMiddleware) TeacherGuard() gin.HandlerFunc {
	return r.RequireRole(models.RoleTeacher, models.RoleAdmin)
}
