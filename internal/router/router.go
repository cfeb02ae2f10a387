package router

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"bookpay/internal/handler"
	"bookpay/internal/middleware"
)

// Handlers groups everything the route table serves.
type Handlers struct {
	Bookings  *handler.BookingHandler
	Payments  *handler.PaymentHandler
	Signature middleware.SignatureVerifier
}

// Setup configures all routes for the Echo server.
func Setup(e *echo.Echo, h Handlers, allowOrigin string, logger *zap.Logger) {
	e.Validator = handler.NewValidator()

	// Global middleware
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(logger))
	e.Use(middleware.CORS(allowOrigin))

	apiGroup := e.Group("/api")

	apiGroup.GET("/services", h.Bookings.ListServices)
	apiGroup.POST("/bookings", h.Bookings.CreateBooking)
	apiGroup.GET("/bookings/:id", h.Bookings.GetBooking)

	payments := apiGroup.Group("/payments")
	payments.POST("/initialize", h.Payments.Initialize)
	payments.GET("/verify", h.Payments.Verify)
	// The signature is checked against the raw body before anything parses it.
	payments.POST("/webhook", h.Payments.Webhook, middleware.WebhookSignature(h.Signature, logger))

	e.GET("/health", handler.Health)
}
