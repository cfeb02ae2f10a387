package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"bookpay/internal/pkg/httpclient"
)

// Paystack implements Gateway against the Paystack REST API.
type Paystack struct {
	http          *httpclient.Client
	webhookSecret []byte
	logger        *zap.Logger
}

// NewPaystack builds a Paystack gateway. The client must already carry the
// base URL and the secret key as bearer token.
func NewPaystack(client *httpclient.Client, webhookSecret string, logger *zap.Logger) *Paystack {
	return &Paystack{
		http:          client,
		webhookSecret: []byte(webhookSecret),
		logger:        logger,
	}
}

// NewPaystackClient returns an HTTP client configured for the Paystack API.
func NewPaystackClient(baseURL, secretKey string) *httpclient.Client {
	return httpclient.New().
		WithBaseURL(baseURL).
		WithBearerToken(secretKey).
		WithTimeout(15 * time.Second)
}

func (p *Paystack) Name() string { return "paystack" }

type paystackEnvelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type paystackInitData struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

type paystackVerifyData struct {
	Status          string          `json:"status"`
	Reference       string          `json:"reference"`
	Amount          int64           `json:"amount"`
	PaidAt          string          `json:"paid_at"`
	GatewayResponse string          `json:"gateway_response"`
	Metadata        json.RawMessage `json:"metadata"`
	Customer        struct {
		Email string `json:"email"`
	} `json:"customer"`
}

// Initialize starts a transaction and returns the hosted checkout URL.
func (p *Paystack) Initialize(ctx context.Context, req InitializeRequest) (*InitializeResult, error) {
	body := map[string]interface{}{
		"email":     req.Email,
		"amount":    req.Amount,
		"reference": req.Reference,
	}
	if req.CallbackURL != "" {
		body["callback_url"] = req.CallbackURL
	}
	if req.Metadata != nil {
		body["metadata"] = req.Metadata.Map()
	}

	resp, err := p.http.Post(ctx, "/transaction/initialize", body)
	if err != nil {
		return nil, fmt.Errorf("%w: initialize: %v", ErrGatewayUnavailable, err)
	}
	env, err := decodeEnvelope(resp)
	if err != nil {
		return nil, err
	}
	if !env.Status {
		p.logger.Warn("Paystack rejected initialize",
			zap.String("reference", req.Reference),
			zap.Int("status", resp.StatusCode),
			zap.String("message", env.Message))
		return nil, fmt.Errorf("%w: %s", ErrGatewayRejected, env.Message)
	}

	var data paystackInitData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, fmt.Errorf("%w: decode initialize data: %v", ErrGatewayUnavailable, err)
	}
	if data.Reference == "" {
		data.Reference = req.Reference
	}
	return &InitializeResult{
		AuthorizationURL: data.AuthorizationURL,
		AccessCode:       data.AccessCode,
		Reference:        data.Reference,
	}, nil
}

// VerifyTransaction asks Paystack for the outcome of a reference.
func (p *Paystack) VerifyTransaction(ctx context.Context, reference string) (*TransactionResult, error) {
	resp, err := p.http.Get(ctx, "/transaction/verify/"+url.PathEscape(reference))
	if err != nil {
		return nil, fmt.Errorf("%w: verify: %v", ErrGatewayUnavailable, err)
	}
	env, err := decodeEnvelope(resp)
	if err != nil {
		return nil, err
	}
	if !env.Status {
		// Unknown references come back as status:false with a 4xx.
		return &TransactionResult{
			Success:         false,
			Status:          StatusNotFound,
			Reference:       reference,
			GatewayResponse: env.Message,
		}, nil
	}

	var data paystackVerifyData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, fmt.Errorf("%w: decode verify data: %v", ErrGatewayUnavailable, err)
	}

	result := &TransactionResult{
		Success:         data.Status == StatusSuccess,
		Status:          data.Status,
		Reference:       data.Reference,
		Amount:          data.Amount,
		CustomerEmail:   strings.ToLower(strings.TrimSpace(data.Customer.Email)),
		GatewayResponse: data.GatewayResponse,
		RawMetadata:     data.Metadata,
	}
	if result.Reference == "" {
		result.Reference = reference
	}
	if data.PaidAt != "" {
		paidAt, err := time.Parse(time.RFC3339Nano, data.PaidAt)
		if err != nil {
			p.logger.Warn("Unparseable paid_at from Paystack",
				zap.String("reference", reference),
				zap.String("paid_at", data.PaidAt))
		} else {
			result.PaidAt = paidAt.UTC()
		}
	}
	return result, nil
}

// VerifyWebhookSignature checks x-paystack-signature against the raw body.
func (p *Paystack) VerifyWebhookSignature(rawBody []byte, signature string) bool {
	return VerifySignature(p.webhookSecret, rawBody, signature)
}

func decodeEnvelope(resp *httpclient.Response) (*paystackEnvelope, error) {
	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("%w: http %d", ErrGatewayUnavailable, resp.StatusCode)
	}
	var env paystackEnvelope
	if err := json.Unmarshal(resp.Body, &env); err != nil {
		return nil, fmt.Errorf("%w: decode response (http %d): %v", ErrGatewayUnavailable, resp.StatusCode, err)
	}
	return &env, nil
}
