package router

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"bookpay/internal/account"
	"bookpay/internal/handler"
	"bookpay/internal/payment"
	"bookpay/internal/repository"
	"bookpay/internal/testutil"
)

type secretVerifier []byte

func (s secretVerifier) VerifyWebhookSignature(body []byte, sig string) bool {
	return payment.VerifySignature(s, body, sig)
}

func newServer(t *testing.T) *echo.Echo {
	t.Helper()
	store := repository.NewStore(testutil.NewDB(t))
	logger := zap.NewNop()

	e := echo.New()
	Setup(e, Handlers{
		Bookings:  handler.NewBookingHandler(store, account.NewProvisioner(store, logger), logger),
		Payments:  handler.NewPaymentHandler(store, nil, nil, handler.PaymentOptions{}, logger),
		Signature: secretVerifier("whsec"),
	}, "https://book.example", logger)
	return e
}

func TestRoutes(t *testing.T) {
	e := newServer(t)

	cases := []struct {
		method, path, body string
		code               int
	}{
		{http.MethodGet, "/health", "", http.StatusOK},
		{http.MethodGet, "/api/services", "", http.StatusOK},
		{http.MethodPost, "/api/bookings", `{}`, http.StatusBadRequest},
		{http.MethodGet, "/api/bookings/00000000-0000-0000-0000-000000000000", "", http.StatusNotFound},
		{http.MethodGet, "/api/payments/verify", "", http.StatusBadRequest},
		{http.MethodGet, "/api/unknown", "", http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, strings.NewReader(tc.body))
			req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)
			assert.Equal(t, tc.code, rec.Code, rec.Body.String())
			assert.Equal(t, "https://book.example", rec.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}

func TestWebhookRouteRequiresSignature(t *testing.T) {
	e := newServer(t)
	body := `{"event":"transfer.success","data":{"reference":"T1"}}`

	req := httptest.NewRequest(http.MethodPost, "/api/payments/webhook", strings.NewReader(body))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/payments/webhook", strings.NewReader(body))
	req.Header.Set(payment.SignatureHeader, payment.Sign([]byte("whsec"), []byte(body)))
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"received":true}`, rec.Body.String())
}
