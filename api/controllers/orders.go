package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/luccasmf/pixkeys-backend/api/responses"
	"github.com/luccasmf/pixkeys-backend/api/validators"
	"github.com/luccasmf/pixkeys-backend/internal/notify"
	ordersvc "github.com/luccasmf/pixkeys-backend/internal/orders"
	"github.com/luccasmf/pixkeys-backend/internal/reconcile"
	"github.com/luccasmf/pixkeys-backend/pkg/db/models"
	"github.com/luccasmf/pixkeys-backend/pkg/enums"
	pkgerrors "github.com/luccasmf/pixkeys-backend/pkg/errors"
	"github.com/luccasmf/pixkeys-backend/pkg/logger"
	"github.com/luccasmf/pixkeys-backend/pkg/pagination"
)

type orderItemResponse struct {
	ProductID        uuid.UUID `json:"product_id"`
	ProductName      string    `json:"product_name"`
	Quantity         int       `json:"quantity"`
	UnitPrice        string    `json:"unit_price"`
	DeliveredPayload *string   `json:"delivered_payload,omitempty"`
}

type orderResponse struct {
	ID               uuid.UUID           `json:"id"`
	CustomerEmail    string              `json:"customer_email"`
	CustomerWhatsApp *string             `json:"customer_whatsapp,omitempty"`
	Status           string              `json:"status"`
	Provider         string              `json:"provider"`
	TotalAmount      string              `json:"total_amount"`
	PaidAt           *time.Time          `json:"paid_at,omitempty"`
	DeliveredAt      *time.Time          `json:"delivered_at,omitempty"`
	CreatedAt        time.Time           `json:"created_at"`
	Items            []orderItemResponse `json:"items,omitempty"`
	WhatsAppLink     string              `json:"whatsapp_link,omitempty"`
}

func toOrderResponse(order *models.Order) orderResponse {
	resp := orderResponse{
		ID:               order.ID,
		CustomerEmail:    order.CustomerEmail,
		CustomerWhatsApp: order.CustomerWhatsApp,
		Status:           order.Status.String(),
		Provider:         order.Provider.String(),
		TotalAmount:      order.TotalAmount.StringFixed(2),
		PaidAt:           order.PaidAt,
		DeliveredAt:      order.DeliveredAt,
		CreatedAt:        order.CreatedAt,
	}
	for _, item := range order.Items {
		resp.Items = append(resp.Items, orderItemResponse{
			ProductID:        item.ProductID,
			ProductName:      item.ProductName,
			Quantity:         item.Quantity,
			UnitPrice:        item.UnitPrice.StringFixed(2),
			DeliveredPayload: item.DeliveredPayload,
		})
	}
	return resp
}

// VendorListOrders pages through the reseller's orders, optionally filtered
// by status.
func VendorListOrders(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
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

		var status *enums.OrderStatus
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			parsed, err := enums.ParseOrderStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
				return
			}
			status = &parsed
		}

		orders, err := svc.ListResellerOrders(r.Context(), resellerID, status, pagination.Params{
			Limit:  limit,
			Cursor: r.URL.Query().Get("cursor"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		// The repository fetches one extra row to detect the next page.
		pageSize := pagination.NormalizeLimit(limit)
		hasMore := len(orders) > pageSize
		if hasMore {
			orders = orders[:pageSize]
		}

		result := make([]orderResponse, 0, len(orders))
		for i := range orders {
			result = append(result, toOrderResponse(&orders[i]))
		}

		payload := map[string]any{"orders": result}
		if hasMore {
			last := orders[len(orders)-1]
			payload["next_cursor"] = pagination.EncodeCursor(pagination.Cursor{
				CreatedAt: last.CreatedAt,
				ID:        last.ID,
			})
		}
		responses.WriteSuccess(w, payload)
	}
}

// VendorGetOrder returns one owned order with its items.
func VendorGetOrder(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		resellerID, err := resellerFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := uuidParam(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.GetResellerOrder(r.Context(), resellerID, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp := toOrderResponse(order)
		// Delivered orders with a customer number get a ready-to-send
		// WhatsApp link carrying the goods.
		if order.CustomerWhatsApp != nil && order.DeliveredAt != nil {
			var lines []string
			for _, item := range order.Items {
				if item.DeliveredPayload != nil {
					lines = append(lines, strings.Split(*item.DeliveredPayload, "\n")...)
				}
			}
			resp.WhatsAppLink = notify.WhatsAppLink(*order.CustomerWhatsApp, order.ID.String(), lines)
		}
		responses.WriteSuccess(w, resp)
	}
}

type approveOrderResponse struct {
	OrderID          uuid.UUID `json:"order_id"`
	Status           string    `json:"status"`
	Delivered        bool      `json:"delivered"`
	DeliveredContent string    `json:"delivered_content,omitempty"`
}

// VendorApproveOrder confirms an off-channel payment for one of the
// reseller's own pending orders and triggers delivery.
func VendorApproveOrder(svc reconcile.Service, logg *logger.Logger) http.HandlerFunc {
	return approveOrder(svc, logg)
}

// AdminApproveOrder confirms payment for any order.
func AdminApproveOrder(svc reconcile.Service, logg *logger.Logger) http.HandlerFunc {
	return approveOrder(svc, logg)
}

func approveOrder(svc reconcile.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reconcile service unavailable"))
			return
		}

		resellerID, err := resellerFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := uuidParam(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		outcome, err := svc.ApproveManually(r.Context(), reconcile.Actor{
			ResellerID: resellerID,
			Role:       roleFromContext(r),
		}, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		// A replayed approval answers 200 with the content delivered the
		// first time, so retrying the call is always safe.
		responses.WriteSuccess(w, approveOrderResponse{
			OrderID:          orderID,
			Status:           enums.OrderStatusPaid.String(),
			Delivered:        outcome.Delivered,
			DeliveredContent: strings.Join(outcome.Lines, "\n"),
		})
	}
}
