package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/luccasmf/pixkeys-backend/pkg/config"
	"github.com/luccasmf/pixkeys-backend/pkg/enums"
	pkgerrors "github.com/luccasmf/pixkeys-backend/pkg/errors"
)

// AbacatePay implements Gateway against the AbacatePay PIX QR code API.
type AbacatePay struct {
	baseURL       string
	apiKey        string
	webhookSecret string
	httpClient    *http.Client
}

// NewAbacatePay builds the gateway from configuration.
func NewAbacatePay(cfg config.AbacatePayConfig) *AbacatePay {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &AbacatePay{
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:        cfg.APIKey,
		webhookSecret: cfg.WebhookSecret,
		httpClient:    &http.Client{Timeout: timeout},
	}
}

func (a *AbacatePay) Name() enums.PaymentProvider {
	return enums.PaymentProviderAbacatePay
}

type abacateCreateRequest struct {
	Amount      int64  `json:"amount"`
	ExpiresIn   int    `json:"expiresIn"`
	Description string `json:"description"`
	Customer    struct {
		Email string `json:"email"`
	} `json:"customer"`
}

type abacateQRCode struct {
	ID           string `json:"id"`
	BRCode       string `json:"brCode"`
	BRCodeBase64 string `json:"brCodeBase64"`
	Status       string `json:"status"`
}

type abacateEnvelope struct {
	Data  abacateQRCode `json:"data"`
	Error *string       `json:"error"`
}

func (a *AbacatePay) CreateCharge(ctx context.Context, input CreateChargeInput) (*Charge, error) {
	if a.apiKey == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "abacatepay api key not configured")
	}

	payload := abacateCreateRequest{
		// AbacatePay bills in centavos.
		Amount:      input.Amount.Mul(centsFactor).IntPart(),
		ExpiresIn:   int((24 * time.Hour).Seconds()),
		Description: input.Description,
	}
	payload.Customer.Email = input.CustomerEmail

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode abacatepay request: %w", err)
	}

	var envelope abacateEnvelope
	if err := a.do(ctx, http.MethodPost, "/v1/pixQrCode/create", bytes.NewReader(body), &envelope); err != nil {
		return nil, err
	}
	if envelope.Error != nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "abacatepay rejected charge").
			WithDetails(map[string]any{"error": *envelope.Error})
	}
	if envelope.Data.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "abacatepay returned empty charge id")
	}

	return &Charge{
		ProviderBillingID: envelope.Data.ID,
		QRCode:            envelope.Data.BRCodeBase64,
		CopyPaste:         envelope.Data.BRCode,
		Amount:            input.Amount,
	}, nil
}

func (a *AbacatePay) GetChargeStatus(ctx context.Context, providerBillingID string) (ChargeStatus, error) {
	var envelope abacateEnvelope
	path := "/v1/pixQrCode/check?id=" + providerBillingID
	if err := a.do(ctx, http.MethodGet, path, nil, &envelope); err != nil {
		return "", err
	}
	return mapAbacateStatus(envelope.Data.Status), nil
}

func (a *AbacatePay) VerifyWebhook(payload []byte, signature string) bool {
	return VerifySignature(a.webhookSecret, payload, signature)
}

type abacateWebhook struct {
	Event string `json:"event"`
	Data  struct {
		PixQrCode abacateQRCode `json:"pixQrCode"`
	} `json:"data"`
}

func (a *AbacatePay) ParseWebhook(payload []byte) (*WebhookEvent, error) {
	var hook abacateWebhook
	if err := json.Unmarshal(payload, &hook); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed abacatepay webhook")
	}
	if hook.Data.PixQrCode.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "abacatepay webhook missing charge id")
	}

	status := ChargeStatusPending
	if hook.Event == "billing.paid" || strings.EqualFold(hook.Data.PixQrCode.Status, "PAID") {
		status = ChargeStatusPaid
	}
	return &WebhookEvent{
		ProviderBillingID: hook.Data.PixQrCode.ID,
		Status:            status,
	}, nil
}

func (a *AbacatePay) do(ctx context.Context, method, path string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create abacatepay request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+a.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "abacatepay unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return pkgerrors.New(pkgerrors.CodeDependency, "abacatepay request failed").
			WithDetails(map[string]any{"status": resp.StatusCode, "path": path})
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode abacatepay response")
	}
	return nil
}

func mapAbacateStatus(status string) ChargeStatus {
	switch strings.ToUpper(status) {
	case "PAID", "COMPLETED":
		return ChargeStatusPaid
	case "EXPIRED", "CANCELLED":
		return ChargeStatusExpired
	default:
		return ChargeStatusPending
	}
}
