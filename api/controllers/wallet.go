package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/luccasmf/pixkeys-backend/api/responses"
	"github.com/luccasmf/pixkeys-backend/api/validators"
	walletsvc "github.com/luccasmf/pixkeys-backend/internal/wallet"
	"github.com/luccasmf/pixkeys-backend/pkg/db/models"
	pkgerrors "github.com/luccasmf/pixkeys-backend/pkg/errors"
	"github.com/luccasmf/pixkeys-backend/pkg/logger"
	"github.com/luccasmf/pixkeys-backend/pkg/pagination"
)

type walletEntryResponse struct {
	ID          uuid.UUID  `json:"id"`
	Type        string     `json:"type"`
	Amount      string     `json:"amount"`
	OrderID     *uuid.UUID `json:"order_id,omitempty"`
	Description *string    `json:"description,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func toWalletEntryResponse(entry *models.WalletEntry) walletEntryResponse {
	return walletEntryResponse{
		ID:          entry.ID,
		Type:        entry.Type.String(),
		Amount:      entry.Amount.StringFixed(2),
		OrderID:     entry.OrderID,
		Description: entry.Description,
		CreatedAt:   entry.CreatedAt,
	}
}

// VendorWalletBalance returns the reseller's current ledger sum.
func VendorWalletBalance(svc walletsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "wallet service unavailable"))
			return
		}

		resellerID, err := resellerFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		balance, err := svc.Balance(r.Context(), resellerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"balance": balance.StringFixed(2)})
	}
}

// VendorWalletEntries pages through the reseller's ledger, newest first.
func VendorWalletEntries(svc walletsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "wallet service unavailable"))
			return
		}

		resellerID, err := resellerFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entries, err := svc.ListEntries(r.Context(), resellerID, pagination.Params{
			Limit:  limit,
			Cursor: r.URL.Query().Get("cursor"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		pageSize := pagination.NormalizeLimit(limit)
		hasMore := len(entries) > pageSize
		if hasMore {
			entries = entries[:pageSize]
		}

		result := make([]walletEntryResponse, 0, len(entries))
		for i := range entries {
			result = append(result, toWalletEntryResponse(&entries[i]))
		}

		payload := map[string]any{"entries": result}
		if hasMore {
			last := entries[len(entries)-1]
			payload["next_cursor"] = pagination.EncodeCursor(pagination.Cursor{
				CreatedAt: last.CreatedAt,
				ID:        last.ID,
			})
		}
		responses.WriteSuccess(w, payload)
	}
}
