package web

import (
	"errors"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"stock-engine/internal/adapters/sheet"
	"stock-engine/internal/app"
	"stock-engine/internal/core"
)

// apiImportStock handles POST /api/stock/import.
// Accepts either a multipart upload with a CSV "file" part or a JSON body {"rows": [...]}.
func (h *Handler) apiImportStock(w http.ResponseWriter, r *http.Request) {
	var rows []map[string]string

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "multipart/form-data":
		file, _, err := r.FormFile("file")
		if err != nil {
			var maxBytesErr *http.MaxBytesError
			if errors.As(err, &maxBytesErr) {
				writeError(w, r, "upload too large", "REQUEST_TOO_LARGE", http.StatusRequestEntityTooLarge)
				return
			}
			writeError(w, r, "missing file part: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
			return
		}
		defer file.Close()
		if rows, err = sheet.ReadRows(file); err != nil {
			writeError(w, r, "invalid CSV: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
			return
		}
	case "text/csv":
		var err error
		if rows, err = sheet.ReadRows(r.Body); err != nil {
			writeError(w, r, "invalid CSV: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
			return
		}
	default:
		var req struct {
			Rows []map[string]string `json:"rows"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		rows = req.Rows
	}

	result, err := h.svc.ImportStock(r.Context(), scopeFromContext(r.Context()), app.ImportStockRequest{Rows: rows})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiListStock handles GET /api/stock.
func (h *Handler) apiListStock(w http.ResponseWriter, r *http.Request) {
	req, ok := parseStockQuery(w, r)
	if !ok {
		return
	}
	result, err := h.svc.ListStock(r.Context(), scopeFromContext(r.Context()), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, core.RenderPage(result.Page))
}

// apiStockStatistics handles GET /api/stock/statistics.
func (h *Handler) apiStockStatistics(w http.ResponseWriter, r *http.Request) {
	req, ok := parseStockQuery(w, r)
	if !ok {
		return
	}
	st, err := h.svc.GetStatistics(r.Context(), scopeFromContext(r.Context()), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, st)
}

// apiExportStock handles GET /api/stock/export and streams the whole report as CSV.
func (h *Handler) apiExportStock(w http.ResponseWriter, r *http.Request) {
	req, ok := parseStockQuery(w, r)
	if !ok {
		return
	}
	result, err := h.svc.ExportStock(r.Context(), scopeFromContext(r.Context()), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="stock-report.csv"`)
	if err := sheet.WriteTable(w, result.Rows); err != nil {
		h.logger.Warn("export write failed", zap.Error(err))
	}
}

// apiSetThreshold handles PUT /api/stock/{code}/warehouses/{warehouse}/threshold.
func (h *Handler) apiSetThreshold(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Threshold *int `json:"threshold"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.Threshold == nil {
		writeError(w, r, "threshold is required", "VALIDATION_ERROR", http.StatusBadRequest)
		return
	}
	warehouse, _ := url.PathUnescape(chi.URLParam(r, "warehouse"))
	err := h.svc.SetReorderThreshold(r.Context(), scopeFromContext(r.Context()), app.SetThresholdRequest{
		ProductCode:   chi.URLParam(r, "code"),
		WarehouseCode: warehouse,
		Threshold:     *body.Threshold,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// parseStockQuery reads report filters from the query string. Unknown sort fields are left
// for the service to reject; malformed numbers and booleans are rejected here.
func parseStockQuery(w http.ResponseWriter, r *http.Request) (app.StockListRequest, bool) {
	q := r.URL.Query()
	req := app.StockListRequest{
		WarehouseCode:     q.Get("warehouse"),
		Department:        q.Get("department"),
		SKU:               q.Get("sku"),
		ResponsiblePerson: q.Get("responsiblePerson"),
		ShopName:          q.Get("shopName"),
		SortBy:            q.Get("sortBy"),
		Order:             q.Get("order"),
	}

	var err error
	if req.IsLowStock, err = optionalBool(q, "isLowStock"); err != nil {
		writeError(w, r, err.Error(), "VALIDATION_ERROR", http.StatusBadRequest)
		return req, false
	}
	if req.IsSluggish, err = optionalBool(q, "isSluggish"); err != nil {
		writeError(w, r, err.Error(), "VALIDATION_ERROR", http.StatusBadRequest)
		return req, false
	}
	if req.Page, err = optionalInt(q, "page"); err != nil {
		writeError(w, r, err.Error(), "VALIDATION_ERROR", http.StatusBadRequest)
		return req, false
	}
	if req.PageSize, err = optionalInt(q, "pageSize"); err != nil {
		writeError(w, r, err.Error(), "VALIDATION_ERROR", http.StatusBadRequest)
		return req, false
	}
	return req, true
}

func optionalBool(q url.Values, key string) (*bool, error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, errors.New(key + " must be true or false")
	}
	return &b, nil
}

func optionalInt(q url.Values, key string) (int, error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errors.New(key + " must be a non-negative integer")
	}
	return n, nil
}
