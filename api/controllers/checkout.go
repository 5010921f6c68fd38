package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/luccasmf/pixkeys-backend/api/responses"
	"github.com/luccasmf/pixkeys-backend/api/validators"
	ordersvc "github.com/luccasmf/pixkeys-backend/internal/orders"
	productsvc "github.com/luccasmf/pixkeys-backend/internal/products"
	"github.com/luccasmf/pixkeys-backend/pkg/enums"
	pkgerrors "github.com/luccasmf/pixkeys-backend/pkg/errors"
	"github.com/luccasmf/pixkeys-backend/pkg/logger"
)

type checkoutRequest struct {
	ProductID        string  `json:"product_id" validate:"required,uuid"`
	Quantity         int     `json:"quantity" validate:"required,min=1"`
	CustomerEmail    string  `json:"customer_email" validate:"required,email"`
	CustomerWhatsApp *string `json:"customer_whatsapp,omitempty"`
	Provider         string  `json:"provider" validate:"required"`
}

func (r checkoutRequest) toInput() (ordersvc.CreateOrderInput, error) {
	productID, err := uuid.Parse(r.ProductID)
	if err != nil {
		return ordersvc.CreateOrderInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id")
	}
	provider, err := enums.ParsePaymentProvider(strings.ToLower(strings.TrimSpace(r.Provider)))
	if err != nil {
		return ordersvc.CreateOrderInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment provider")
	}
	input := ordersvc.CreateOrderInput{
		ProductID:     productID,
		Quantity:      r.Quantity,
		CustomerEmail: r.CustomerEmail,
		Provider:      provider,
	}
	if r.CustomerWhatsApp != nil {
		input.CustomerWhatsApp = *r.CustomerWhatsApp
	}
	return input, nil
}

type checkoutResponse struct {
	OrderID     uuid.UUID `json:"order_id"`
	Status      string    `json:"status"`
	Provider    string    `json:"provider"`
	TotalAmount string    `json:"total_amount"`
	QRCode      string    `json:"qr_code,omitempty"`
	CopyPaste   string    `json:"copy_paste,omitempty"`
}

// Checkout creates a pending order with a PIX charge attached. Public: the
// buyer has no account.
func Checkout(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.CreateOrder(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, checkoutResponse{
			OrderID:     result.Order.ID,
			Status:      result.Order.Status.String(),
			Provider:    result.Order.Provider.String(),
			TotalAmount: result.Order.TotalAmount.StringFixed(2),
			QRCode:      result.QRCode,
			CopyPaste:   result.CopyPaste,
		})
	}
}

type orderStatusItemResponse struct {
	ProductName      string `json:"product_name"`
	Quantity         int    `json:"quantity"`
	DeliveredPayload string `json:"delivered_payload,omitempty"`
}

type orderStatusResponse struct {
	OrderID     uuid.UUID                 `json:"order_id"`
	Status      string                    `json:"status"`
	PaidAt      *time.Time                `json:"paid_at,omitempty"`
	DeliveredAt *time.Time                `json:"delivered_at,omitempty"`
	QRCode      string                    `json:"qr_code,omitempty"`
	CopyPaste   string                    `json:"copy_paste,omitempty"`
	Items       []orderStatusItemResponse `json:"items,omitempty"`
}

// OrderStatus serves the page a customer polls while waiting for payment to
// confirm, and the delivered goods afterwards.
func OrderStatus(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		orderID, err := uuidParam(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.GetOrderStatus(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp := orderStatusResponse{
			OrderID:     view.OrderID,
			Status:      view.Status.String(),
			PaidAt:      view.PaidAt,
			DeliveredAt: view.DeliveredAt,
			QRCode:      view.QRCode,
			CopyPaste:   view.CopyPaste,
		}
		for _, item := range view.Items {
			resp.Items = append(resp.Items, orderStatusItemResponse{
				ProductName:      item.ProductName,
				Quantity:         item.Quantity,
				DeliveredPayload: item.DeliveredPayload,
			})
		}
		responses.WriteSuccess(w, resp)
	}
}

type publicProductResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	Price       string    `json:"price"`
	Tags        []string  `json:"tags"`
	Available   int64     `json:"available"`
}

// PublicProduct returns the listing the checkout page renders.
func PublicProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		productID, err := uuidParam(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, available, err := svc.GetPublicProduct(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, publicProductResponse{
			ID:          product.ID,
			Name:        product.Name,
			Description: product.Description,
			Price:       product.Price.StringFixed(2),
			Tags:        append([]string{}, product.Tags...),
			Available:   available,
		})
	}
}
