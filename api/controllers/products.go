package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/luccasmf/pixkeys-backend/api/responses"
	"github.com/luccasmf/pixkeys-backend/api/validators"
	productsvc "github.com/luccasmf/pixkeys-backend/internal/products"
	"github.com/luccasmf/pixkeys-backend/pkg/db/models"
	pkgerrors "github.com/luccasmf/pixkeys-backend/pkg/errors"
	"github.com/luccasmf/pixkeys-backend/pkg/logger"
)

// Free-text fields are trimmed and capped before they reach the service.
const (
	maxNameLen = 200
	maxTextLen = 2000
)

type createProductRequest struct {
	Name                 string   `json:"name" validate:"required"`
	Description          *string  `json:"description,omitempty"`
	Price                string   `json:"price" validate:"required"`
	Tags                 []string `json:"tags,omitempty"`
	DeliveryInstructions *string  `json:"delivery_instructions,omitempty"`
	InitialStock         *string  `json:"initial_stock,omitempty"`
}

func (r createProductRequest) toInput(resellerID uuid.UUID) (productsvc.CreateProductInput, error) {
	price, err := parsePrice(r.Price)
	if err != nil {
		return productsvc.CreateProductInput{}, err
	}
	input := productsvc.CreateProductInput{
		ResellerID: resellerID,
		Name:       validators.SanitizeString(r.Name, maxNameLen),
		Price:      price,
		Tags:       r.Tags,
	}
	if r.Description != nil {
		input.Description = validators.SanitizeString(*r.Description, maxTextLen)
	}
	if r.DeliveryInstructions != nil {
		input.DeliveryInstructions = validators.SanitizeString(*r.DeliveryInstructions, maxTextLen)
	}
	if r.InitialStock != nil {
		input.InitialStock = *r.InitialStock
	}
	return input, nil
}

type updateProductRequest struct {
	Name                 *string  `json:"name,omitempty"`
	Description          *string  `json:"description,omitempty"`
	Price                *string  `json:"price,omitempty"`
	Tags                 []string `json:"tags,omitempty"`
	DeliveryInstructions *string  `json:"delivery_instructions,omitempty"`
	IsActive             *bool    `json:"is_active,omitempty"`
}

func (r updateProductRequest) toInput(resellerID, productID uuid.UUID) (productsvc.UpdateProductInput, error) {
	input := productsvc.UpdateProductInput{
		ResellerID: resellerID,
		ProductID:  productID,
		Tags:       r.Tags,
		IsActive:   r.IsActive,
	}
	if r.Name != nil {
		name := validators.SanitizeString(*r.Name, maxNameLen)
		input.Name = &name
	}
	if r.Description != nil {
		desc := validators.SanitizeString(*r.Description, maxTextLen)
		input.Description = &desc
	}
	if r.DeliveryInstructions != nil {
		instructions := validators.SanitizeString(*r.DeliveryInstructions, maxTextLen)
		input.DeliveryInstructions = &instructions
	}
	if r.Price != nil {
		price, err := parsePrice(*r.Price)
		if err != nil {
			return productsvc.UpdateProductInput{}, err
		}
		input.Price = &price
	}
	return input, nil
}

func parsePrice(raw string) (decimal.Decimal, error) {
	price, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Decimal{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid price")
	}
	return price, nil
}

type productResponse struct {
	ID                   uuid.UUID `json:"id"`
	Name                 string    `json:"name"`
	Description          *string   `json:"description,omitempty"`
	Price                string    `json:"price"`
	Tags                 []string  `json:"tags"`
	DeliveryInstructions *string   `json:"delivery_instructions,omitempty"`
	IsActive             bool      `json:"is_active"`
	Available            *int64    `json:"available,omitempty"`
}

func toProductResponse(product *models.Product, available *int64) productResponse {
	return productResponse{
		ID:                   product.ID,
		Name:                 product.Name,
		Description:          product.Description,
		Price:                product.Price.StringFixed(2),
		Tags:                 append([]string{}, product.Tags...),
		DeliveryInstructions: product.DeliveryInstructions,
		IsActive:             product.IsActive,
		Available:            available,
	}
}

// VendorCreateProduct creates a listing for the authenticated reseller.
func VendorCreateProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		resellerID, err := resellerFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput(resellerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.CreateProduct(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, toProductResponse(product, nil))
	}
}

// VendorUpdateProduct patches a listing. Omitted fields stay untouched.
func VendorUpdateProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		resellerID, err := resellerFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		productID, err := uuidParam(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput(resellerID, productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.UpdateProduct(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toProductResponse(product, nil))
	}
}

// VendorListProducts returns the reseller's listings with live pool counts.
func VendorListProducts(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		resellerID, err := resellerFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		listings, err := svc.ListProducts(r.Context(), resellerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result := make([]productResponse, 0, len(listings))
		for i := range listings {
			available := listings[i].Available
			result = append(result, toProductResponse(&listings[i].Product, &available))
		}
		responses.WriteSuccess(w, result)
	}
}

// VendorGetProduct returns one owned listing.
func VendorGetProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		resellerID, err := resellerFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		productID, err := uuidParam(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.GetOwnedProduct(r.Context(), resellerID, productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toProductResponse(product, nil))
	}
}

// VendorDeleteProduct retires a listing. The row stays for order history, so
// this is a deactivation.
func VendorDeleteProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		resellerID, err := resellerFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		productID, err := uuidParam(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeleteProduct(r.Context(), resellerID, productID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "deleted"})
	}
}

type stockTextRequest struct {
	Stock string `json:"stock"`
}

// VendorRenderStock returns the unconsumed pool as editable text, one payload
// per line.
func VendorRenderStock(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		resellerID, err := resellerFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		productID, err := uuidParam(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		text, err := svc.RenderStock(r.Context(), resellerID, productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"stock": text})
	}
}

// VendorReplaceStock swaps the unconsumed pool with the pasted text.
func VendorReplaceStock(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return stockMutation(svc, logg, svcReplace)
}

// VendorAppendStock adds pasted lines to the back of the pool.
func VendorAppendStock(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return stockMutation(svc, logg, svcAppend)
}

type stockOp func(svc productsvc.Service, r *http.Request, resellerID, productID uuid.UUID, text string) (int, error)

func svcReplace(svc productsvc.Service, r *http.Request, resellerID, productID uuid.UUID, text string) (int, error) {
	return svc.ReplaceStock(r.Context(), resellerID, productID, text)
}

func svcAppend(svc productsvc.Service, r *http.Request, resellerID, productID uuid.UUID, text string) (int, error) {
	return svc.AppendStock(r.Context(), resellerID, productID, text)
}

func stockMutation(svc productsvc.Service, logg *logger.Logger, op stockOp) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		resellerID, err := resellerFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		productID, err := uuidParam(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload stockTextRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		count, err := op(svc, r, resellerID, productID, payload.Stock)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]int{"lines": count})
	}
}
