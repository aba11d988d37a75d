package routes

import (
	"strings"
	"time"

	"rentwheels/handlers"
	"rentwheels/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

// RegisterBookingRoutes registers the booking lifecycle endpoints.
func RegisterBookingRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/bookings")
	{
		api.Use(middleware.AuthMiddleware(hb.Verifier, hb.Logger))
		api.POST("", hb.Booking.CreateBookingHandler)
		api.GET("/:id", hb.Booking.GetBookingHandler)
		api.GET("/:id/invoice", hb.Booking.GetInvoiceHandler)
		api.POST("/:id/approve", hb.Booking.ApproveHandler)
		api.POST("/:id/reject", hb.Booking.RejectHandler)
		api.POST("/:id/cancel", hb.Booking.CancelHandler)
		api.POST("/:id/complete", hb.Booking.CompleteHandler)
		api.POST("/:id/confirm-cash", hb.Payment.ConfirmCashHandler)
	}
}

// RegisterPaymentRoutes registers settlement and verification.
func RegisterPaymentRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/payments")
	{
		api.Use(middleware.AuthMiddleware(hb.Verifier, hb.Logger))
		api.POST("/settle", hb.Payment.SettleHandler)
		api.POST("/verify", hb.Payment.VerifyHandler)
	}
}

// RegisterNotificationRoutes registers recipient and admin notification
// endpoints.
func RegisterNotificationRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/notifications")
	{
		api.Use(middleware.AuthMiddleware(hb.Verifier, hb.Logger))
		api.GET("", hb.Notification.ListHandler)
		api.POST("/:id/read", hb.Notification.MarkReadHandler)

		admin := api.Group("")
		admin.Use(middleware.AdminOnly(hb.Logger))
		admin.POST("/send", hb.Notification.SendHandler)
		admin.POST("/retry", hb.Notification.RetryHandler)
	}
}

// RegisterHealthRoute registers a health-check endpoint.
func RegisterHealthRoute(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.GET("/health", hb.Health.HealthHandler)
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, hb *handlers.HandlerBundle, allowedOrigins string, maxRequestsPerMin int) {
	// Request bodies are strict: unknown fields are rejected.
	binding.EnableDecoderDisallowUnknownFields = true

	r.Use(cors.New(corsConfig(allowedOrigins)))
	r.Use(middleware.RequestLogger(hb.Logger))
	r.Use(middleware.RateLimitMiddleware(maxRequestsPerMin, hb.Logger))

	RegisterHealthRoute(r, hb)
	RegisterBookingRoutes(r, hb)
	RegisterPaymentRoutes(r, hb)
	RegisterNotificationRoutes(r, hb)
}

func corsConfig(allowedOrigins string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	var origins []string
	for _, o := range strings.Split(allowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cfg
}
