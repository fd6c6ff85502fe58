package api

import (
	stdhttp "net/http"

	"rental/internal/domain"
	h "rental/internal/http/handlers"
	"rental/internal/http/middleware"
	"rental/internal/utils"

	"github.com/gin-gonic/gin"
)

type RouterConfig struct {
	AllowedOrigins []string
	JWTSecret      []byte
	// RateLimit applies per client IP; the zero value disables it.
	RateLimit middleware.RateLimitConfig
}

func NewRouter(cfg RouterConfig, hd *h.Handler) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Logger(), gin.Recovery(), middleware.CORS(cfg.AllowedOrigins),
		middleware.RateLimit(cfg.RateLimit))

	if err := r.SetTrustedProxies(nil); err != nil {
		utils.Log.WithError(err).Warn("failed to set trusted proxies")
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(stdhttp.StatusNotFound, gin.H{
			"error":  "route not found",
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
		})
	})

	auth := middleware.Auth(cfg.JWTSecret)

	api := r.Group("/api")
	{
		api.GET("/health", hd.Health)
		api.GET("/routes", h.Routes)

		// Vehicles (public)
		vehicles := api.Group("/vehicles")
		vehicles.GET("", hd.ListVehicles)
		vehicles.GET("/:id", hd.GetVehicle)

		// Payments: the webhook is authenticated by its signature, not a token.
		payments := api.Group("/payments")
		payments.POST("/webhook", hd.PaymentWebhook)
		payments.POST("/checkout", auth, hd.Checkout)
		payments.GET("/status/:bookingId", auth, hd.PaymentStatus)
		payments.POST("/confirm", auth, hd.ConfirmPayment)

		// Bookings
		bookings := api.Group("/bookings", auth)
		bookings.POST("", hd.CreateBooking)
		bookings.GET("/my", hd.ListMyBookings)
		bookings.GET("/:id", hd.GetBooking)
		bookings.POST("/:id/cancel", hd.CancelBooking)
		bookings.GET("/:id/receipt", hd.GetBookingReceipt)

		// Admin
		admin := api.Group("/admin", auth, middleware.RequireRoles(domain.RoleAdmin))
		admin.POST("/bookings/:id/status", hd.TransitionBooking)
		admin.POST("/expiry/sweep", hd.RunSweep)
		admin.GET("/users", hd.ListUsers)
		admin.PATCH("/users/kyc/:id", hd.UpdateKYC)
	}

	h.SetRouter(r)
	return r
}
