package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(Metrics())
	r.Use(Tracing("skinsense-auth"))

	r.GET("/healthz", h.Healthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	auth := r.Group("/api/v1/auth", RateLimit(h.Redis, "auth", h.RateLimitPerMin))
	{
		auth.POST("/register", h.Register)
		auth.POST("/login", h.Login)
		auth.POST("/refresh", h.Refresh)
		auth.POST("/logout", h.Logout)
		auth.POST("/verify-email", h.VerifyEmail)
		auth.POST("/google", h.GoogleSignIn)
		auth.POST("/apple", h.AppleSignIn)
		auth.POST("/verify-otp", h.VerifyOTP)

		// code-sending endpoints get the tighter budget
		strict := RateLimit(h.Redis, "strict", h.StrictRateLimitMin)
		auth.POST("/resend-otp", strict, h.ResendOTP)
		auth.POST("/forgot-password", strict, h.ForgotPassword)
		auth.POST("/reset-password", strict, h.ResetPassword)
	}

	users := r.Group("/api/v1/users", RequireAuth(h.Tokens))
	{
		users.GET("/me", h.Me)
		users.PUT("/me/preferences", h.UpdatePreferences)
		users.DELETE("/me", h.DeactivateMe)
	}

	return r
}
