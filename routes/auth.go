package routes

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"elearning-chat-platform/internal/config"
	"elearning-chat-platform/internal/logger"
	"elearning-chat-platform/models"
	"elearning-chat-platform/utils"
)

type AuthHandler struct {
	db  *mongo.Database
	cfg *config.Config
}

func NewAuthHandler(db *mongo.Database, cfg *config.Config) *AuthHandler {
	return &AuthHandler{db: db, cfg: cfg}
}

// Register creates a teacher or student account. Admin accounts are seeded,
// never self-registered.
func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondWithBadRequest(c, "Invalid registration payload", gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := utils.WithTimeout(c.Request.Context())
	defer cancel()

	users := h.db.Collection("users")
	if n, err := users.CountDocuments(ctx, bson.M{"username": req.Username}); err != nil {
		utils.RespondWithInternalError(c, "Could not check username", nil)
		return
	} else if n > 0 {
		utils.RespondWithError(c, http.StatusConflict, "username_taken", "Username is already taken", nil)
		return
	}

	hash, err := utils.HashPassword(req.Password, h.cfg.BcryptCost)
	if err != nil {
		utils.RespondWithInternalError(c, "Could not process password", nil)
		return
	}

	now := time.Now()
	user := models.User{
		Username:     req.Username,
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         req.Role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	res, err := users.InsertOne(ctx, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			utils.RespondWithError(c, http.StatusConflict, "username_taken", "Username is already taken", nil)
			return
		}
		utils.RespondWithInternalError(c, "Could not create account", nil)
		return
	}

	logger.Info("User registered", "username", req.Username, "role", req.Role)
	c.JSON(http.StatusCreated, gin.H{
		"id":       res.InsertedID,
		"username": req.Username,
		"role":     req.Role,
	})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondWithBadRequest(c, "Invalid login payload", gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := utils.WithTimeout(c.Request.Context())
	defer cancel()

	var user models.User
	err := h.db.Collection("users").FindOne(ctx, bson.M{"username": req.Username}).Decode(&user)
	if err != nil || !utils.CheckPassword(req.Password, user.PasswordHash) {
		utils.RespondWithUnauthorized(c, "Invalid username or password")
		return
	}

	token, err := utils.GenerateJWT(user.ID.Hex(), user.Username, user.Role, h.cfg.JWTSecret, h.cfg.JWTExpiresIn)
	if err != nil {
		utils.RespondWithInternalError(c, "Could not issue token", nil)
		return
	}

	c.JSON(http.StatusOK, models.LoginResponse{
		Token:     token,
		ExpiresAt: time.Now().Add(h.cfg.JWTExpiresIn),
		User: models.UserInfo{
			ID:       user.ID.Hex(),
			Username: user.Username,
			Name:     user.Name,
			Email:    user.Email,
			Role:     user.Role,
		},
	})
}
