package http

import (
	"time"

	"github.com/gin-gonic/gin"

	appsvc "photoshare/internal/app"
	"photoshare/internal/bootstrap"
	"photoshare/internal/cache"
	"photoshare/internal/pkg/token"
	"photoshare/internal/platform/rabbitmq"
	"photoshare/internal/repository"
	"photoshare/internal/transport/http/handler"
	"photoshare/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/healthz", healthHandler.Check)

	userRepo := repository.NewUserRepository(app.MySQL)
	imageRepo := repository.NewImageRepository(app.MySQL)
	commentRepo := repository.NewCommentRepository(app.MySQL)

	tokens := token.NewService(app.Config.Auth.JWTSecret)
	revoked := cache.NewRevocationCache(app.Redis)
	emailPublisher := rabbitmq.NewEmailPublisher(app.MQConn, app.Config.RabbitMQ.EmailQueue)

	authService := appsvc.NewAuthService(
		userRepo,
		tokens,
		revoked,
		emailPublisher,
		app.Storage,
		time.Duration(app.Config.Auth.AccessExpireMinute)*time.Minute,
		time.Duration(app.Config.Auth.RefreshExpireHour)*time.Hour,
		time.Duration(app.Config.Auth.ActionExpireMinute)*time.Minute,
		app.Config.Auth.RequireConfirmedLogin,
	)
	imageService := appsvc.NewImageService(
		imageRepo,
		app.Storage,
		app.Config.Upload.MaxSizeBytes,
		app.Config.Upload.MaxTags,
		app.Config.Upload.MaxPageSize,
	)
	commentService := appsvc.NewCommentService(commentRepo, imageRepo, app.Config.Upload.MaxPageSize)

	authHandler := handler.NewAuthHandler(authService)
	imageHandler := handler.NewImageHandler(imageService)
	commentHandler := handler.NewCommentHandler(commentService)

	authRequired := middleware.AuthJWT(tokens, revoked)

	v1 := router.Group("/api/v1")

	authGroup := v1.Group("/auth")
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)
	authGroup.POST("/refresh", authHandler.Refresh)
	authGroup.POST("/logout", authRequired, authHandler.Logout)
	authGroup.GET("/confirm", authHandler.ConfirmEmail)
	authGroup.POST("/password-reset-request", authHandler.RequestPasswordReset)
	// GET serves the link from the reset mail, POST performs the reset.
	authGroup.GET("/password-reset", authHandler.VerifyPasswordReset)
	authGroup.POST("/password-reset", authHandler.ResetPassword)

	userGroup := v1.Group("/users", authRequired)
	userGroup.GET("/me", authHandler.Me)
	userGroup.PUT("/avatar", authHandler.UpdateAvatar)

	// Browse and download stay public; everything that mutates requires auth.
	imageGroup := v1.Group("/images")
	imageGroup.GET("", imageHandler.List)
	imageGroup.GET("/tag/:name", imageHandler.ListByTag)
	imageGroup.GET("/:id", imageHandler.Get)
	imageGroup.GET("/:id/download", imageHandler.Download)
	imageGroup.GET("/:id/comments", commentHandler.ListByImage)
	imageGroup.POST("", authRequired, imageHandler.Upload)
	imageGroup.GET("/mine", authRequired, imageHandler.ListMine)
	imageGroup.PUT("/:id", authRequired, imageHandler.UpdateTitle)
	imageGroup.DELETE("/:id", authRequired, imageHandler.Delete)
	imageGroup.POST("/:id/tags", authRequired, imageHandler.AddTag)
	imageGroup.POST("/:id/comments", authRequired, commentHandler.Add)

	return router
}
