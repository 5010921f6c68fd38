package controllers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/luccasmf/pixkeys-backend/api/responses"
	"github.com/luccasmf/pixkeys-backend/api/validators"
	withdrawalsvc "github.com/luccasmf/pixkeys-backend/internal/withdrawals"
	"github.com/luccasmf/pixkeys-backend/pkg/db/models"
	pkgerrors "github.com/luccasmf/pixkeys-backend/pkg/errors"
	"github.com/luccasmf/pixkeys-backend/pkg/logger"
)

type withdrawalRequestBody struct {
	Amount string  `json:"amount" validate:"required"`
	PixKey *string `json:"pix_key,omitempty"`
}

type withdrawalResponse struct {
	ID         uuid.UUID  `json:"id"`
	ResellerID uuid.UUID  `json:"reseller_id"`
	Amount     string     `json:"amount"`
	FeeAmount  string     `json:"fee_amount"`
	NetAmount  string     `json:"net_amount"`
	PixKey     string     `json:"pix_key"`
	Status     string     `json:"status"`
	ReviewedAt *time.Time `json:"reviewed_at,omitempty"`
	Notes      *string    `json:"notes,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

func toWithdrawalResponse(request *models.WithdrawalRequest) withdrawalResponse {
	return withdrawalResponse{
		ID:         request.ID,
		ResellerID: request.ResellerID,
		Amount:     request.Amount.StringFixed(2),
		FeeAmount:  request.FeeAmount.StringFixed(2),
		NetAmount:  request.NetAmount.StringFixed(2),
		PixKey:     request.PixKey,
		Status:     request.Status.String(),
		ReviewedAt: request.ReviewedAt,
		Notes:      request.Notes,
		CreatedAt:  request.CreatedAt,
	}
}

// VendorRequestWithdrawal files a cash-out ask and debits the wallet.
func VendorRequestWithdrawal(svc withdrawalsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "withdrawal service unavailable"))
			return
		}

		resellerID, err := resellerFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload withdrawalRequestBody
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		amount, err := decimal.NewFromString(strings.TrimSpace(payload.Amount))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid amount"))
			return
		}

		input := withdrawalsvc.RequestInput{
			ResellerID: resellerID,
			Amount:     amount,
		}
		if payload.PixKey != nil {
			input.PixKey = *payload.PixKey
		}

		request, err := svc.Request(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, toWithdrawalResponse(request))
	}
}

// VendorListWithdrawals returns the reseller's requests, newest first.
func VendorListWithdrawals(svc withdrawalsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "withdrawal service unavailable"))
			return
		}

		resellerID, err := resellerFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		requests, err := svc.ListMine(r.Context(), resellerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result := make([]withdrawalResponse, 0, len(requests))
		for i := range requests {
			result = append(result, toWithdrawalResponse(&requests[i]))
		}
		responses.WriteSuccess(w, result)
	}
}

// AdminListPendingWithdrawals returns the review queue, oldest first.
func AdminListPendingWithdrawals(svc withdrawalsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "withdrawal service unavailable"))
			return
		}

		requests, err := svc.ListPending(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result := make([]withdrawalResponse, 0, len(requests))
		for i := range requests {
			result = append(result, toWithdrawalResponse(&requests[i]))
		}
		responses.WriteSuccess(w, result)
	}
}

type reviewWithdrawalRequest struct {
	Notes string `json:"notes,omitempty"`
}

// AdminApproveWithdrawal marks a pending request paid out.
func AdminApproveWithdrawal(svc withdrawalsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return reviewWithdrawal(svc, logg, withdrawalsvc.Service.Approve)
}

// AdminRejectWithdrawal refuses a pending request and refunds the wallet.
func AdminRejectWithdrawal(svc withdrawalsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return reviewWithdrawal(svc, logg, withdrawalsvc.Service.Reject)
}

func reviewWithdrawal(
	svc withdrawalsvc.Service,
	logg *logger.Logger,
	verdict func(withdrawalsvc.Service, context.Context, uuid.UUID, uuid.UUID, string) (*models.WithdrawalRequest, error),
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "withdrawal service unavailable"))
			return
		}

		adminID, err := resellerFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		requestID, err := uuidParam(r, "withdrawalID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		// The notes body is optional.
		var payload reviewWithdrawalRequest
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		request, err := verdict(svc, r.Context(), adminID, requestID, payload.Notes)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toWithdrawalResponse(request))
	}
}
