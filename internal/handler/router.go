package handler

import (
	"github.com/gin-gonic/gin"
	"team_chat/internal/config"
	"team_chat/internal/domain"
	"team_chat/internal/metrics"
	"team_chat/internal/middleware"
	"team_chat/pkg/logger"
)

// SetupRouter собирает маршруты API. m может быть nil.
func SetupRouter(
	handlers *Handlers,
	authMiddleware *middleware.AuthMiddleware,
	rateLimitMiddleware *middleware.RateLimitMiddleware,
	m *metrics.Metrics,
	cfg *config.Config,
	log logger.Logger,
) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	router.Use(middleware.RequestLogger(log))
	if m != nil {
		router.Use(m.Middleware())
		router.GET("/metrics", gin.WrapH(m.Handler()))
	}
	router.Use(middleware.ErrorHandler(log))

	router.GET("/health", handlers.Health.Check)

	authLimit := rateLimitMiddleware.Limit(domain.AuthRateLimit)
	mutationLimit := rateLimitMiddleware.Limit(domain.MutationRateLimit)

	v1 := router.Group("/api/v1")
	{
		public := v1.Group("/auth")
		{
			public.POST("/register", authLimit, handlers.Auth.Register)
			public.POST("/login", authLimit, handlers.Auth.Login)
			public.POST("/refresh", authLimit, handlers.Auth.RefreshToken)
			public.POST("/logout", handlers.Auth.Logout)
		}

		// загрузка файла авторизуется одноразовым токеном в пути
		v1.POST("/upload/:token", mutationLimit, handlers.Upload.Upload)

		users := v1.Group("/users")
		users.Use(authMiddleware.RequireAuth())
		{
			users.GET("/me", handlers.User.GetMe)
		}

		// запросы без токена деградируют до пустого ответа, мутации получают 401 из сервисов
		api := v1.Group("")
		api.Use(authMiddleware.OptionalAuth())
		{
			messages := api.Group("/messages")
			{
				messages.GET("", handlers.Message.List)
				messages.POST("", mutationLimit, handlers.Message.Create)
				messages.GET("/:id", handlers.Message.GetByID)
				messages.PATCH("/:id", mutationLimit, handlers.Message.Update)
				messages.DELETE("/:id", mutationLimit, handlers.Message.Remove)
				messages.POST("/:id/reactions", mutationLimit, handlers.Message.ToggleReaction)
			}

			workspaces := api.Group("/workspaces")
			{
				workspaces.GET("/:id", handlers.Workspace.GetByID)
				workspaces.GET("/:id/info", handlers.Workspace.GetInfo)
				workspaces.PATCH("/:id", mutationLimit, handlers.Workspace.Update)
				workspaces.GET("/:id/search", handlers.Workspace.Search)
			}

			api.POST("/upload/url", mutationLimit, handlers.Upload.GenerateURL)
		}
	}

	router.GET("/ws/feed/:workspaceId", authMiddleware.RequireAuth(), handlers.WebSocket.HandleFeed)

	return router
}
