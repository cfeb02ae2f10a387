package middleware

import (
	"bytes"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"bookpay/internal/models"
	"bookpay/internal/payment"
)

// maxWebhookBody caps how much of a webhook body is read before verifying.
const maxWebhookBody = 1 << 20

// SignatureVerifier checks a webhook signature against the raw body.
type SignatureVerifier interface {
	VerifyWebhookSignature(rawBody []byte, signature string) bool
}

// WebhookSignature rejects any webhook whose signature header does not match
// the keyed hash of the exact raw body. The body is restored for the handler
// only after it verified.
func WebhookSignature(verifier SignatureVerifier, logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if req.Body == nil {
				return unauthorized(c)
			}

			rawBody, err := io.ReadAll(io.LimitReader(req.Body, maxWebhookBody+1))
			if err != nil {
				return c.JSON(http.StatusBadRequest, models.APIResponse{Success: false, Error: "unreadable body"})
			}
			if len(rawBody) > maxWebhookBody {
				return c.JSON(http.StatusRequestEntityTooLarge, models.APIResponse{Success: false, Error: "body too large"})
			}

			if !verifier.VerifyWebhookSignature(rawBody, req.Header.Get(payment.SignatureHeader)) {
				logger.Warn("Rejected webhook with invalid signature",
					zap.String("ip", c.RealIP()),
					zap.Int("bytes", len(rawBody)))
				return unauthorized(c)
			}

			req.Body = io.NopCloser(bytes.NewBuffer(rawBody))
			return next(c)
		}
	}
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, models.APIResponse{
		Success: false,
		Error:   payment.ErrSignatureInvalid.Error(),
	})
}

// CORS configures CORS headers for the booking site.
func CORS(origin string) echo.MiddlewareFunc {
	if origin == "" {
		origin = "*"
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Response().Header().Set("Access-Control-Allow-Origin", origin)
			c.Response().Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			c.Response().Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if c.Request().Method == http.MethodOptions {
				return c.NoContent(http.StatusOK)
			}
			return next(c)
		}
	}
}

// RequestLogger logs each request through zap.
func RequestLogger(logger *zap.Logger) echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("ip", v.RemoteIP),
			}
			if v.Error != nil {
				logger.Error("Request failed", append(fields, zap.Error(v.Error))...)
				return nil
			}
			logger.Info("Request", fields...)
			return nil
		},
	})
}
