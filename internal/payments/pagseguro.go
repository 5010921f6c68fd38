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

	"github.com/google/uuid"

	"github.com/luccasmf/pixkeys-backend/pkg/config"
	"github.com/luccasmf/pixkeys-backend/pkg/enums"
	pkgerrors "github.com/luccasmf/pixkeys-backend/pkg/errors"
)

// PagSeguro implements Gateway against the PagSeguro orders API with a PIX
// qr_code charge.
type PagSeguro struct {
	baseURL       string
	token         string
	webhookSecret string
	httpClient    *http.Client
}

// NewPagSeguro builds the gateway from configuration.
func NewPagSeguro(cfg config.PagSeguroConfig) *PagSeguro {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &PagSeguro{
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		token:         cfg.Token,
		webhookSecret: cfg.WebhookSecret,
		httpClient:    &http.Client{Timeout: timeout},
	}
}

func (p *PagSeguro) Name() enums.PaymentProvider {
	return enums.PaymentProviderPagSeguro
}

type pagseguroOrderRequest struct {
	ReferenceID string `json:"reference_id"`
	Customer    struct {
		Email string `json:"email"`
	} `json:"customer"`
	QRCodes []struct {
		Amount struct {
			Value int64 `json:"value"`
		} `json:"amount"`
	} `json:"qr_codes"`
}

type pagseguroOrderResponse struct {
	ID      string `json:"id"`
	QRCodes []struct {
		Text  string `json:"text"`
		Links []struct {
			Rel  string `json:"rel"`
			Href string `json:"href"`
		} `json:"links"`
	} `json:"qr_codes"`
	Charges []struct {
		Status string `json:"status"`
	} `json:"charges"`
}

func (p *PagSeguro) CreateCharge(ctx context.Context, input CreateChargeInput) (*Charge, error) {
	if p.token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "pagseguro token not configured")
	}

	var payload pagseguroOrderRequest
	payload.ReferenceID = input.OrderID.String()
	payload.Customer.Email = input.CustomerEmail
	payload.QRCodes = make([]struct {
		Amount struct {
			Value int64 `json:"value"`
		} `json:"amount"`
	}, 1)
	payload.QRCodes[0].Amount.Value = input.Amount.Mul(centsFactor).IntPart()

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode pagseguro request: %w", err)
	}

	var order pagseguroOrderResponse
	if err := p.do(ctx, http.MethodPost, "/orders", bytes.NewReader(body), &order); err != nil {
		return nil, err
	}
	if order.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "pagseguro returned empty order id")
	}

	charge := &Charge{
		ProviderBillingID: order.ID,
		Amount:            input.Amount,
	}
	if len(order.QRCodes) > 0 {
		charge.CopyPaste = order.QRCodes[0].Text
		for _, link := range order.QRCodes[0].Links {
			if link.Rel == "QRCODE.PNG" {
				charge.QRCode = link.Href
			}
		}
	}
	return charge, nil
}

func (p *PagSeguro) GetChargeStatus(ctx context.Context, providerBillingID string) (ChargeStatus, error) {
	var order pagseguroOrderResponse
	if err := p.do(ctx, http.MethodGet, "/orders/"+providerBillingID, nil, &order); err != nil {
		return "", err
	}
	for _, chg := range order.Charges {
		if mapPagseguroStatus(chg.Status) == ChargeStatusPaid {
			return ChargeStatusPaid, nil
		}
	}
	return ChargeStatusPending, nil
}

func (p *PagSeguro) VerifyWebhook(payload []byte, signature string) bool {
	return VerifySignature(p.webhookSecret, payload, signature)
}

type pagseguroWebhook struct {
	ID          string `json:"id"`
	ReferenceID string `json:"reference_id"`
	Charges     []struct {
		Status string `json:"status"`
	} `json:"charges"`
}

func (p *PagSeguro) ParseWebhook(payload []byte) (*WebhookEvent, error) {
	var hook pagseguroWebhook
	if err := json.Unmarshal(payload, &hook); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed pagseguro webhook")
	}
	if hook.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "pagseguro webhook missing order id")
	}

	status := ChargeStatusPending
	for _, chg := range hook.Charges {
		if mapPagseguroStatus(chg.Status) == ChargeStatusPaid {
			status = ChargeStatusPaid
		}
	}
	return &WebhookEvent{
		ProviderBillingID: hook.ID,
		Status:            status,
	}, nil
}

func (p *PagSeguro) do(ctx context.Context, method, path string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create pagseguro request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.token)
	req.Header.Set("Content-Type", "application/json")
	// PagSeguro requires a unique key per create request for safe retries.
	if method == http.MethodPost {
		req.Header.Set("x-idempotency-key", uuid.NewString())
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "pagseguro unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return pkgerrors.New(pkgerrors.CodeDependency, "pagseguro request failed").
			WithDetails(map[string]any{"status": resp.StatusCode, "path": path})
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode pagseguro response")
	}
	return nil
}

func mapPagseguroStatus(status string) ChargeStatus {
	switch strings.ToUpper(status) {
	case "PAID", "AVAILABLE":
		return ChargeStatusPaid
	case "CANCELED", "DECLINED":
		return ChargeStatusExpired
	default:
		return ChargeStatusPending
	}
}
