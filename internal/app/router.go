package app

import (
	"levelup_backend/docs"
	"levelup_backend/internal/config"
	"levelup_backend/internal/middleware"
	"levelup_backend/internal/model"
	"levelup_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. public
	a.registerPublicRoutes(router, c, cfg)

	// 2. learners
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg))
	a.registerLearnerRoutes(authGroup, c)

	// 3. admin
	a.registerAdminRoutes(router, c, cfg)
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.GET("/stats", c.health.Stats)

		credentials := a.credentialLimit(cfg)
		public.POST("/register", credentials, c.auth.Register)
		public.POST("/login", credentials, c.auth.Login)
		public.GET("/search", c.learning.Search)
	}
}

func (a *App) registerLearnerRoutes(g *gin.RouterGroup, c *controllers) {
	g.POST("/logout", c.auth.Logout)
	g.GET("/profile", c.auth.Profile)
	g.GET("/dashboard", c.learning.Dashboard)
	g.POST("/progress/start-from-zero", c.learning.StartFromZero)

	learning := g.Group("/learning")
	{
		learning.GET("/next", c.learning.Next)
		learning.POST("/terms/:id/studied", c.learning.MarkTermStudied)
		learning.POST("/rules/:id/studied", c.learning.MarkRuleStudied)
		learning.POST("/problems/:id/answer", c.learning.AnswerProblem)
	}

	g.GET("/placement-test", c.placement.Questions)
	g.POST("/placement-test", c.placement.Submit)
}

func (a *App) registerAdminRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	admin := router.Group("/api/admin")
	admin.Use(middleware.AuthMiddleware(cfg), middleware.RoleMiddleware(model.Admin))
	{
		admin.GET("/levels", c.admin.ListLevels)
		admin.POST("/levels", c.admin.CreateLevel)
		admin.GET("/levels/:level", c.admin.GetLevel)

		c.admin.Terms.Register(admin.Group("/terms"))
		c.admin.Rules.Register(admin.Group("/rules"))
		c.admin.Problems.Register(admin.Group("/problems"))
		c.admin.TestQuestions.Register(admin.Group("/test-questions"))

		admin.GET("/progress", c.admin.ListProgress)
		admin.POST("/import", c.admin.ImportContent)
	}
}
