package webhooks

import (
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/luccasmf/pixkeys-backend/api/responses"
	"github.com/luccasmf/pixkeys-backend/internal/reconcile"
	"github.com/luccasmf/pixkeys-backend/pkg/enums"
	pkgerrors "github.com/luccasmf/pixkeys-backend/pkg/errors"
	"github.com/luccasmf/pixkeys-backend/pkg/logger"
)

// signatureHeaders lists, per provider, the header carrying the HMAC of the
// raw body. Checked in order; the first non-empty value wins.
var signatureHeaders = map[enums.PaymentProvider][]string{
	enums.PaymentProviderAbacatePay: {"X-Webhook-Signature"},
	enums.PaymentProviderPagSeguro:  {"X-Authenticity-Token", "X-Webhook-Signature"},
}

// PaymentWebhook receives a PIX payment notification from a provider. The
// raw body must reach the reconciler untouched: the signature covers the
// exact bytes on the wire.
func PaymentWebhook(svc reconcile.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reconcile service unavailable"))
			return
		}

		provider, err := enums.ParsePaymentProvider(strings.ToLower(chi.URLParam(r, "provider")))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "unknown provider"))
			return
		}

		payload, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		if err := svc.HandleWebhook(ctx, provider, payload, signatureFor(r, provider)); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"received": true})
	}
}

func signatureFor(r *http.Request, provider enums.PaymentProvider) string {
	for _, header := range signatureHeaders[provider] {
		if value := strings.TrimSpace(r.Header.Get(header)); value != "" {
			return value
		}
	}
	return ""
}
