package routes

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"elearning-chat-platform/internal/config"
	"elearning-chat-platform/middleware"
	"elearning-chat-platform/models"
	"elearning-chat-platform/services"
)

// Dependencies carries the wired services the handlers need.
type Dependencies struct {
	Cfg   *config.Config
	DB    *mongo.Database
	RDB   *redis.Client
	Files *services.FileService
	RAG   *services.RAGService
	Perms *services.PermissionService
	Queue *asynq.Client
}

// Register mounts all API routes.
func Register(router *gin.Engine, deps Dependencies) {
	authMW := middleware.NewAuthMiddleware(deps.Cfg)
	roleMW := middleware.NewRoleMiddleware()

	authH := NewAuthHandler(deps.DB, deps.Cfg)
	courseH := NewCourseHandler(deps.DB, deps.Files, deps.RAG, deps.Perms)
	enrollH := NewEnrollmentHandler(deps.DB, deps.Perms)
	fileH := NewFileHandler(deps.DB, deps.Files, deps.Perms, deps.Queue, deps.Cfg)
	chatH := NewChatHandler(deps.DB, deps.RAG, deps.Perms)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": time.Now()})
	})

	auth := router.Group("/auth")
	{
		auth.POST("/register", authH.Register)
		auth.POST("/login", authH.Login)
	}

	courses := router.Group("/courses", authMW.RequireAuth())
	{
		courses.POST("", roleMW.TeacherGuard(), courseH.Create)
		courses.GET("", courseH.List)
		courses.GET("/:id", courseH.Get)
		courses.DELETE("/:id", roleMW.TeacherGuard(), courseH.Delete)

		courses.POST("/:id/files", roleMW.TeacherGuard(), fileH.Upload)
		courses.GET("/:id/files", fileH.List)
		courses.POST("/:id/reindex", roleMW.TeacherGuard(), fileH.Reindex)

		courses.POST("/:id/enroll", roleMW.RequireRole(models.RoleStudent), enrollH.Enroll)
		courses.DELETE("/:id/enroll", roleMW.RequireRole(models.RoleStudent), enrollH.Unenroll)
		courses.GET("/:id/roster", roleMW.TeacherGuard(), enrollH.Roster)
	}

	files := router.Group("/files", authMW.RequireAuth())
	{
		files.DELETE("/:file_id", roleMW.TeacherGuard(), fileH.Delete)
	}

	chat := router.Group("/chat", authMW.RequireAuth())
	{
		chat.POST("", chatH.Ask)
		chat.POST("/stream", chatH.AskStream)
		chat.GET("/history", chatH.History)
	}
}
