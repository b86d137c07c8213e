package routes

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"secureauth/internal/handlers"
	"secureauth/internal/middleware"
)

func SetupRoutes(
	r *gin.Engine,
	tokens middleware.TokenValidator,
	authHandler *handlers.AuthHandler,
	verifyHandler *handlers.VerifyHandler,
	healthHandler *handlers.HealthHandler,
) *gin.Engine {

	// ---- public
	r.GET("/health", healthHandler.Health)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := r.Group("/api")
	{
		api.POST("/signup", authHandler.Signup)
		api.POST("/signin", authHandler.Signin)
	}

	// ---- protected
	protected := api.Group("", middleware.BearerGuard(tokens))
	{
		protected.POST("/verify", verifyHandler.Verify)
		protected.POST("/resend-otp", verifyHandler.ResendOTP)
	}

	return r
}
