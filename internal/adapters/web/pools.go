package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"stock-engine/internal/app"
)

type quantityBody struct {
	Quantity *int `json:"quantity"`
}

func decodeQuantity(w http.ResponseWriter, r *http.Request) (int, bool) {
	var body quantityBody
	if !decodeJSON(w, r, &body) {
		return 0, false
	}
	if body.Quantity == nil {
		writeError(w, r, "quantity is required", "VALIDATION_ERROR", http.StatusBadRequest)
		return 0, false
	}
	return *body.Quantity, true
}

// apiMergePools handles POST /api/pools/merge.
func (h *Handler) apiMergePools(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ProductCodes []string `json:"product_codes"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	result, err := h.svc.MergePools(r.Context(), scopeFromContext(r.Context()), app.MergePoolsRequest{ProductCodes: body.ProductCodes})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiSplitPool handles POST /api/products/{code}/pool/split.
func (h *Handler) apiSplitPool(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.SplitPool(r.Context(), scopeFromContext(r.Context()), chi.URLParam(r, "code"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiProvisionPool handles POST /api/products/{code}/pool.
func (h *Handler) apiProvisionPool(w http.ResponseWriter, r *http.Request) {
	qty, ok := decodeQuantity(w, r)
	if !ok {
		return
	}
	result, err := h.svc.ProvisionPool(r.Context(), scopeFromContext(r.Context()), app.PoolQuantityRequest{
		ProductCode: chi.URLParam(r, "code"),
		Quantity:    qty,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, result)
}

// apiSetPoolQuantity handles PUT /api/products/{code}/pool/quantity.
func (h *Handler) apiSetPoolQuantity(w http.ResponseWriter, r *http.Request) {
	qty, ok := decodeQuantity(w, r)
	if !ok {
		return
	}
	result, err := h.svc.SetPoolQuantity(r.Context(), scopeFromContext(r.Context()), app.PoolQuantityRequest{
		ProductCode: chi.URLParam(r, "code"),
		Quantity:    qty,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiGetPool handles GET /api/products/{code}/pool.
func (h *Handler) apiGetPool(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.GetPool(r.Context(), scopeFromContext(r.Context()), chi.URLParam(r, "code"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiAddCodeMapping handles POST /api/code-mappings.
func (h *Handler) apiAddCodeMapping(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ExternalCode string `json:"external_code"`
		ProductCode  string `json:"product_code"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	result, err := h.svc.AddCodeMapping(r.Context(), scopeFromContext(r.Context()), app.CodeMappingRequest{
		ExternalCode: body.ExternalCode,
		ProductCode:  body.ProductCode,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, result)
}
