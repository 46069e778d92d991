package handlers

import (
	"alumni-network/app/server/constants"
	"alumni-network/app/server/envelope"
	"alumni-network/app/server/middlewares"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

func publicRateLimiter() echo.MiddlewareFunc {
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(constants.PublicRateLimit),
			Burst:     constants.PublicRateLimitBurst,
			ExpiresIn: constants.PublicRateLimitExpire,
		}),
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return envelope.Validation("Unable to identify client")
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return envelope.TooManyRequests("Too many requests, please try again later")
		},
	})
}

func (a *App) RegisterRoutes(e *echo.Echo, guard *middlewares.Guard) {
	api := e.Group(constants.APIPrefix)

	api.GET("/healthz", a.HealthCheck)

	// 会话和找回密码，共用同一个限流器
	limited := publicRateLimiter()
	api.POST("/login", a.Login, limited)
	api.POST("/refresh-token", a.RefreshToken, limited)
	api.POST("/forgot-password", a.ForgotPassword, limited)
	api.POST("/verify-otp", a.VerifyOTP, limited)
	api.POST("/reset-password", a.ResetPassword, limited)

	api.POST("/logout", a.Logout, guard.Any())
	api.GET("/me", a.Me, guard.Any())

	// 成员
	users := api.Group("/users", guard.Member())
	users.GET("/me", a.ProfileGet)
	users.PATCH("/me", a.ProfileUpdate)
	users.POST("/change-password", a.ChangePassword)

	// 管理员
	admin := api.Group("/admin", guard.Admin())
	admin.GET("/me", a.ProfileGet)
	admin.PATCH("/me", a.ProfileUpdate)
	admin.POST("/change-password", a.ChangePassword)
	admin.POST("/members", a.MemberCreate)
	admin.GET("/members", a.MemberList)
	admin.DELETE("/members/:id", a.MemberDelete)
	admin.PATCH("/members/:id/role", a.MemberRoleUpdate)
	if a.mp != nil {
		admin.GET("/metrics", a.MetricsSnapshot)
	}
}
