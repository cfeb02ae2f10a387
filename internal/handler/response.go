package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"bookpay/internal/account"
	"bookpay/internal/models"
	"bookpay/internal/payment"
	"bookpay/internal/repository"
)

func successResponse(c echo.Context, status int, msg string, data interface{}) error {
	return c.JSON(status, models.APIResponse{
		Success: true,
		Message: msg,
		Data:    data,
	})
}

func errorResponse(c echo.Context, status int, msg string) error {
	return c.JSON(status, models.APIResponse{
		Success: false,
		Error:   msg,
	})
}

// errorStatus maps a domain error to an HTTP status. transient is used for
// errors the caller should retry.
func errorStatus(err error, transient int) int {
	switch {
	case errors.Is(err, payment.ErrInvalidMetadata), errors.Is(err, account.ErrInvalidEmail):
		return http.StatusUnprocessableEntity
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, payment.ErrGatewayRejected):
		return http.StatusBadRequest
	case errors.Is(err, payment.ErrGatewayUnavailable), errors.Is(err, repository.ErrStoreUnavailable):
		return transient
	default:
		return http.StatusInternalServerError
	}
}

// publicMessage keeps internal error detail out of responses.
func publicMessage(status int) string {
	switch status {
	case http.StatusUnprocessableEntity:
		return "Invalid payment metadata"
	case http.StatusNotFound:
		return "Not found"
	case http.StatusBadRequest:
		return "Payment gateway rejected the request"
	case http.StatusServiceUnavailable:
		return "Temporarily unavailable, please retry"
	default:
		return "Internal server error"
	}
}
