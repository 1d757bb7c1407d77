package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"social-server/internal/auth"
	"social-server/internal/service"
	"social-server/internal/storage"
)

// TokenConfig carries the token lifetimes the handlers issue with.
type TokenConfig struct {
	RegisterAccessTTL time.Duration
	AccessTTL         time.Duration
	RefreshTTL        time.Duration
}

// Handler wires HTTP routes to domain services.
type Handler struct {
	users     service.UserService
	posts     service.PostService
	tokens    *auth.TokenManager
	storage   storage.Service
	bucket    string
	keyPrefix string
	tokenCfg  TokenConfig
	logger    *logrus.Logger
}

func NewHandler(
	users service.UserService,
	posts service.PostService,
	tokens *auth.TokenManager,
	store storage.Service,
	bucket, keyPrefix string,
	tokenCfg TokenConfig,
	logger *logrus.Logger,
) *Handler {
	return &Handler{
		users:     users,
		posts:     posts,
		tokens:    tokens,
		storage:   store,
		bucket:    bucket,
		keyPrefix: keyPrefix,
		tokenCfg:  tokenCfg,
		logger:    logger,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(corsMiddleware())

	api := router.Group("/api")
	{
		api.POST("/register", h.register)
		api.POST("/login", h.login)
		api.POST("/logout", h.logout)
		api.POST("/refresh-token", h.refreshToken)
		api.GET("/health", func(ctx *gin.Context) {
			ctx.JSON(http.StatusOK, gin.H{"ok": "ok"})
		})

		protected := api.Group("")
		protected.Use(h.requireAuth())
		{
			protected.PUT("/users/:id", h.updateUser)
			protected.DELETE("/users/:id", h.deleteUser)
			protected.GET("/users/:id", h.getUser)
			protected.GET("/users", h.getAllUsers)
			protected.PUT("/users/:id/follow", h.followUser)
			protected.PUT("/users/:id/unfollow", h.unfollowUser)
			protected.POST("/users/:id/avatar", h.uploadAvatar)
			protected.POST("/users/:id/cover", h.uploadCover)

			protected.POST("/createPost", h.createPost)
			protected.GET("/getAllPosts", h.getAllPosts)
			protected.GET("/getPost/:id", h.getPost)
			protected.GET("/getPostsByUser/:userId", h.getPostsByUser)
			protected.PUT("/updatePost/:id", h.updatePost)
			protected.DELETE("/deletePost/:id", h.deletePost)
			protected.PUT("/likePost/:id", h.likePost)
			protected.PUT("/likeComment/:id/:commentId", h.likeComment)
			protected.PUT("/addComment/:id/comments", h.addComment)
			protected.PUT("/updateComment/:id/comments/:commentId", h.updateComment)
			protected.DELETE("/deleteComment/:id/comments/:commentId", h.deleteComment)
			protected.PUT("/replyComment/:id/comments/:commentId", h.replyToComment)
			protected.DELETE("/deleteReply/:id/comments/:commentId/:replyId", h.deleteReply)
		}
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// renderError maps service errors to HTTP statuses. Internal details are
// logged server-side and never echoed to the client.
func (h *Handler) renderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrValidation),
		errors.Is(err, service.ErrInvalidID),
		errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrEmailTaken),
		errors.Is(err, service.ErrUsernameTaken),
		errors.Is(err, service.ErrSelfFollow),
		errors.Is(err, service.ErrAlreadyFollowing),
		errors.Is(err, service.ErrNotFollowing):
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"message": err.Error()})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": err.Error()})
	default:
		h.logger.WithError(err).Error("internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "internal server error"})
	}
}
