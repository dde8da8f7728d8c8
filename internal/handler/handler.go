// Package handler provides HTTP handlers for the checkout gateway API.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"headless-checkout/internal/adapter"
	"headless-checkout/internal/metrics"
	"headless-checkout/internal/model"
)

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	adapter adapter.Adapter
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New creates a new Handler with the given adapter, metrics, and logger.
// metrics may be nil, in which case /metrics responds 404.
func New(a adapter.Adapter, m *metrics.Metrics, logger *slog.Logger) *Handler {
	return &Handler{
		adapter: a,
		metrics: m,
		logger:  logger,
	}
}

// RegisterRoutes registers all HTTP routes with the given ServeMux.
// Uses Go 1.22+ method routing patterns.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// JSON API: returns {"url": ...}
	mux.HandleFunc("POST /checkout", h.handleCheckout)
	mux.HandleFunc("POST /checkout/cart-import", h.handleCartImport)

	// HTML form posts: 303 redirect to the store
	mux.HandleFunc("POST /checkout/form", h.handleCheckoutForm)
	mux.HandleFunc("POST /checkout/cart-import/form", h.handleCartImportForm)

	// MCP transport - JSON-RPC endpoint using official MCP SDK
	mux.Handle("/mcp", h.NewMCPHandler())

	// Health check and metrics
	mux.HandleFunc("GET /health", h.handleHealth)
	mux.HandleFunc("GET /healthz", h.handleHealth)
	mux.Handle("GET /metrics", h.metrics.Handler())
}

// === Response Helpers ===

// writeJSON sends a JSON response with the given status code.
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// writeError sends an error response, extracting status/code from APIError if present.
// Uses errors.As() to unwrap error chains (e.g., fmt.Errorf wrapping).
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	apiErr := h.asAPIError(r, err)

	h.writeJSON(w, apiErr.StatusCode, errorResponse{
		Error: errorBody{
			Code:    apiErr.Code,
			Message: apiErr.Message,
		},
	})
}

// asAPIError returns the APIError in err's chain, or a generic internal error
// after logging the original. Remote failures are logged with their upstream status.
func (h *Handler) asAPIError(r *http.Request, err error) *model.APIError {
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		h.logger.ErrorContext(r.Context(), "internal error", slog.String("error", err.Error()))
		return &model.APIError{
			Code:       "INTERNAL_ERROR",
			Message:    "an internal error occurred",
			StatusCode: http.StatusInternalServerError,
		}
	}

	if apiErr.StatusCode >= http.StatusInternalServerError {
		attrs := []any{slog.String("code", apiErr.Code), slog.String("error", apiErr.Error())}
		if apiErr.RemoteStatus != 0 {
			attrs = append(attrs, slog.Int("remote_status", apiErr.RemoteStatus))
		}
		h.logger.ErrorContext(r.Context(), "checkout failed", attrs...)
	}
	return apiErr
}

// errorResponse is the JSON structure for error responses.
type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// MaxRequestBodySize limits request bodies to 1MB to prevent DoS.
const MaxRequestBodySize = 1 << 20 // 1MB

// decodeJSON reads JSON from request body into v.
// Limits body size to MaxRequestBodySize to prevent memory exhaustion.
// Returns an APIError if decoding fails.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	// Limit request body size to prevent DoS
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		// Don't expose internal error details to client
		return model.NewValidationError("body", "invalid JSON")
	}
	return nil
}

// validateItems rejects items that carry no identifier at all.
func validateItems(items []model.CartItem) error {
	for i, item := range items {
		if item.ID.IsZero() {
			return model.NewValidationError(fmt.Sprintf("items[%d].id", i), "product id or slug required")
		}
	}
	return nil
}
