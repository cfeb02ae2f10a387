package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"bookpay/internal/models"
	"bookpay/internal/pkg/utils"
	"bookpay/internal/repository"
)

// IdentityProvisioner resolves a customer identity by email.
type IdentityProvisioner interface {
	EnsureIdentity(ctx context.Context, email, displayName, phone string) (*models.Profile, error)
}

// BookingHandler serves intake, booking lookup and the service catalog.
type BookingHandler struct {
	store      *repository.Store
	identities IdentityProvisioner
	logger     *zap.Logger
}

func NewBookingHandler(store *repository.Store, identities IdentityProvisioner, logger *zap.Logger) *BookingHandler {
	return &BookingHandler{store: store, identities: identities, logger: logger}
}

// CreateBooking records an unpaid booking.
// POST /api/bookings
func (h *BookingHandler) CreateBooking(c echo.Context) error {
	var req models.CreateBookingRequest
	if err := c.Bind(&req); err != nil {
		return errorResponse(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return errorResponse(c, http.StatusBadRequest, validationMessage(err))
	}

	ctx := c.Request().Context()
	svc, err := h.store.Services.FindByID(ctx, req.ServiceID)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && !svc.IsActive) {
		return errorResponse(c, http.StatusNotFound, "Service not found")
	}
	if err != nil {
		return h.fail(c, "Failed to load service", err)
	}

	scheduledAt, err := utils.ParseSchedule(req.ScheduledAt)
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, "scheduledAt is not a valid date")
	}

	profile, err := h.identities.EnsureIdentity(ctx, req.Email, req.FullName, req.Phone)
	if err != nil {
		return h.fail(c, "Failed to provision customer", err)
	}

	booking, err := h.store.Bookings.CreatePending(ctx, profile.ID, svc.ID, scheduledAt, req.Notes)
	if err != nil {
		return h.fail(c, "Failed to create booking", err)
	}

	h.logger.Info("Booking created",
		zap.String("booking_id", booking.ID),
		zap.String("service", svc.Slug),
		zap.String("identity_id", profile.ID))

	return successResponse(c, http.StatusCreated, "Booking created", models.CreateBookingResponse{
		BookingID: booking.ID,
		Status:    booking.Status,
		Amount:    svc.PriceNGN,
		Service:   svc.Name,
	})
}

// GetBooking returns a booking with its service, owner and payments.
// GET /api/bookings/:id
func (h *BookingHandler) GetBooking(c echo.Context) error {
	booking, err := h.store.Bookings.FindDetailed(c.Request().Context(), c.Param("id"))
	if errors.Is(err, repository.ErrNotFound) {
		return errorResponse(c, http.StatusNotFound, "Booking not found")
	}
	if err != nil {
		return h.fail(c, "Failed to load booking", err)
	}
	return successResponse(c, http.StatusOK, "", booking)
}

// ListServices returns the active catalog.
// GET /api/services
func (h *BookingHandler) ListServices(c echo.Context) error {
	services, err := h.store.Services.ListActive(c.Request().Context())
	if err != nil {
		return h.fail(c, "Failed to list services", err)
	}
	return successResponse(c, http.StatusOK, "", services)
}

func (h *BookingHandler) fail(c echo.Context, msg string, err error) error {
	status := errorStatus(err, http.StatusServiceUnavailable)
	if status >= http.StatusInternalServerError {
		h.logger.Error(msg, zap.Error(err))
	}
	return errorResponse(c, status, publicMessage(status))
}

// Health reports liveness.
// GET /health
func Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
