package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"bookpay/internal/models"
	"bookpay/internal/payment"
	"bookpay/internal/pkg/utils"
	"bookpay/internal/reconcile"
	"bookpay/internal/repository"
)

// Reconciler finalizes a gateway reference.
type Reconciler interface {
	Reconcile(ctx context.Context, t reconcile.Trigger) (*reconcile.Outcome, error)
}

// Initializer starts hosted checkouts.
type Initializer interface {
	Initialize(ctx context.Context, req payment.InitializeRequest) (*payment.InitializeResult, error)
}

// PaymentOptions carries the checkout settings from config.
type PaymentOptions struct {
	CallbackURL     string
	ReferencePrefix string
}

// PaymentHandler serves checkout initialization and both completion
// channels.
type PaymentHandler struct {
	store      *repository.Store
	gateway    Initializer
	reconciler Reconciler
	opts       PaymentOptions
	logger     *zap.Logger
}

func NewPaymentHandler(store *repository.Store, gateway Initializer, reconciler Reconciler, opts PaymentOptions, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		store:      store,
		gateway:    gateway,
		reconciler: reconciler,
		opts:       opts,
		logger:     logger,
	}
}

// Initialize starts a checkout for a booking or a catalog service.
// POST /api/payments/initialize
func (h *PaymentHandler) Initialize(c echo.Context) error {
	var req models.InitializePaymentRequest
	if err := c.Bind(&req); err != nil {
		return errorResponse(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return errorResponse(c, http.StatusBadRequest, validationMessage(err))
	}

	meta, err := payment.DecodeMetadata(req.Metadata)
	if err != nil {
		return errorResponse(c, http.StatusUnprocessableEntity, err.Error())
	}
	if meta.CustomerEmail == "" {
		meta.CustomerEmail = strings.ToLower(req.Email)
	}

	ctx := c.Request().Context()
	var booking *models.Booking
	if meta.BookingID != "" {
		b, err := h.store.Bookings.FindByID(ctx, meta.BookingID)
		switch {
		case err == nil:
			booking = b
			if meta.ServiceID == "" {
				meta.ServiceID = b.ServiceID
			}
		case errors.Is(err, repository.ErrNotFound):
			// Finalization can only create a booking from a service.
			if meta.ServiceID == "" {
				return errorResponse(c, http.StatusUnprocessableEntity, "Unknown booking")
			}
		default:
			return h.fail(c, "Failed to load booking", err)
		}
	}

	amount := req.Amount
	if meta.ServiceID != "" {
		svc, err := h.store.Services.FindByID(ctx, meta.ServiceID)
		switch {
		case err == nil:
			amount = svc.PriceNGN
			if meta.ServiceName == "" {
				meta.ServiceName = svc.Name
			}
		case errors.Is(err, repository.ErrNotFound):
			if booking == nil {
				return errorResponse(c, http.StatusUnprocessableEntity, "Unknown service")
			}
		default:
			return h.fail(c, "Failed to load service", err)
		}
	}

	reference := strings.TrimSpace(req.Reference)
	if reference == "" {
		reference = utils.GenerateReference(h.opts.ReferencePrefix)
	}

	res, err := h.gateway.Initialize(ctx, payment.InitializeRequest{
		Email:       req.Email,
		Amount:      amount,
		Reference:   reference,
		CallbackURL: h.opts.CallbackURL,
		Metadata:    meta,
	})
	if err != nil {
		return h.fail(c, "Payment initialization failed", err)
	}

	if booking != nil {
		if _, err := h.store.Payments.CreatePending(ctx, booking.ID, res.Reference, amount); err != nil {
			h.logger.Warn("Failed to record pending payment",
				zap.String("reference", res.Reference),
				zap.String("booking_id", booking.ID),
				zap.Error(err))
		}
	}

	h.logger.Info("Payment initialized",
		zap.String("reference", res.Reference),
		zap.Int64("amount", amount))

	return c.JSON(http.StatusOK, models.InitializePaymentResponse{
		Success:          true,
		AuthorizationURL: res.AuthorizationURL,
		AccessCode:       res.AccessCode,
		Reference:        res.Reference,
	})
}

// Verify is the customer-facing completion channel.
// GET /api/payments/verify?reference=
func (h *PaymentHandler) Verify(c echo.Context) error {
	reference := strings.TrimSpace(c.QueryParam("reference"))
	if reference == "" {
		reference = strings.TrimSpace(c.QueryParam("trxref"))
	}
	if reference == "" {
		return errorResponse(c, http.StatusBadRequest, reconcile.ErrMissingReference.Error())
	}

	out, err := h.reconciler.Reconcile(c.Request().Context(), reconcile.Trigger{
		Reference: reference,
		Channel:   reconcile.ChannelVerify,
	})
	if err != nil {
		status := errorStatus(err, http.StatusServiceUnavailable)
		if status >= http.StatusInternalServerError {
			h.logger.Error("Payment verification failed", zap.String("reference", reference), zap.Error(err))
		}
		return c.JSON(status, models.APIResponse{
			Success: false,
			Error:   publicMessage(status),
			Data:    models.VerifyPaymentData{Status: string(reconcile.StatusPending), Reference: reference},
		})
	}

	return c.JSON(http.StatusOK, models.APIResponse{
		Success: out.Status == reconcile.StatusSuccess,
		Message: outcomeMessage(out),
		Data: models.VerifyPaymentData{
			Status:    string(out.Status),
			Reference: out.Reference,
			BookingID: out.BookingID,
		},
	})
}

// Webhook is the gateway-pushed completion channel. The signature middleware
// has already checked the raw body. Any non-2xx answer makes the gateway
// redeliver.
// POST /api/payments/webhook
func (h *PaymentHandler) Webhook(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, "Unreadable body")
	}
	evt, err := payment.ParseWebhookEvent(body)
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, "Malformed event")
	}
	if !evt.Handled() {
		h.logger.Debug("Ignoring webhook event", zap.String("event", evt.Event))
		return c.JSON(http.StatusOK, models.WebhookAck{Received: true})
	}
	if evt.Data.Reference == "" {
		return errorResponse(c, http.StatusBadRequest, reconcile.ErrMissingReference.Error())
	}

	out, err := h.reconciler.Reconcile(c.Request().Context(), reconcile.Trigger{
		Reference: evt.Data.Reference,
		Channel:   reconcile.ChannelWebhook,
		Event:     evt.Event,
		BookingID: evt.BookingHint(),
	})
	if err != nil {
		status := errorStatus(err, http.StatusInternalServerError)
		if status == http.StatusNotFound || status == http.StatusBadRequest {
			status = http.StatusInternalServerError
		}
		h.logger.Error("Webhook reconciliation failed",
			zap.String("reference", evt.Data.Reference),
			zap.String("event", evt.Event),
			zap.Int("status", status),
			zap.Error(err))
		return errorResponse(c, status, publicMessage(status))
	}

	h.logger.Info("Webhook processed",
		zap.String("reference", out.Reference),
		zap.String("event", evt.Event),
		zap.String("status", string(out.Status)),
		zap.Bool("duplicate", out.Duplicate))
	return c.JSON(http.StatusOK, models.WebhookAck{Received: true})
}

func (h *PaymentHandler) fail(c echo.Context, msg string, err error) error {
	status := errorStatus(err, http.StatusServiceUnavailable)
	if status >= http.StatusInternalServerError {
		h.logger.Error(msg, zap.Error(err))
	} else {
		h.logger.Warn(msg, zap.Error(err))
	}
	return errorResponse(c, status, publicMessage(status))
}

func outcomeMessage(out *reconcile.Outcome) string {
	if out.Message != "" {
		return out.Message
	}
	switch out.Status {
	case reconcile.StatusSuccess:
		return "Payment verified"
	case reconcile.StatusFailed:
		return "Payment failed"
	default:
		return "Payment pending"
	}
}
