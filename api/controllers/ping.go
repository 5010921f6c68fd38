package controllers

import (
	"net/http"

	"github.com/luccasmf/pixkeys-backend/api/middleware"
	"github.com/luccasmf/pixkeys-backend/api/responses"
)

func PublicPing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{"scope": "public", "status": "ok"})
	}
}

func VendorPing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]string{"scope": "vendor", "status": "ok"}
		if reseller := middleware.ResellerIDFromContext(r.Context()); reseller != "" {
			payload["reseller_id"] = reseller
		}
		responses.WriteSuccess(w, payload)
	}
}

func AdminPing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{"scope": "admin", "status": "ok"})
	}
}
