package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dunglas/httpsfv"

	"headless-checkout/internal/model"
)

// FlowHeader optionally selects the checkout flow for POST /checkout.
// Format: RFC 8941 token item, e.g. `Checkout-Flow: cart-import`.
const FlowHeader = "Checkout-Flow"

// ParseFlowHeader returns the flow named by a Checkout-Flow header value.
// An empty header selects the direct flow.
//
// Examples:
//   - ""                     → direct
//   - "cart-import"          → cart-import
//   - "direct;source=pdp"    → direct (params ignored)
//   - "\"direct\""           → error (must be a token, not a string)
func ParseFlowHeader(header string) (model.Flow, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return model.FlowDirect, nil
	}

	item, err := httpsfv.UnmarshalItem([]string{header})
	if err != nil {
		return "", fmt.Errorf("invalid %s header: %w", FlowHeader, err)
	}

	token, ok := item.Value.(httpsfv.Token)
	if !ok {
		return "", fmt.Errorf("%s value must be a token", FlowHeader)
	}

	switch flow := model.Flow(token); flow {
	case model.FlowDirect, model.FlowCartImport:
		return flow, nil
	default:
		return "", fmt.Errorf("unknown checkout flow %q", string(token))
	}
}

// runFlow dispatches a checkout request to the adapter method for flow.
func (h *Handler) runFlow(ctx context.Context, flow model.Flow, req *model.CheckoutRequest) (*model.CheckoutResult, error) {
	h.logger.InfoContext(ctx, "creating checkout",
		slog.String("flow", string(flow)),
		slog.Int("items", len(req.Items)),
		slog.Bool("has_customer", req.Customer != nil),
	)

	if flow == model.FlowCartImport {
		return h.adapter.CreateCartImport(ctx, req)
	}
	return h.adapter.CreateCheckout(ctx, req)
}

// handleCheckout creates a checkout and returns its URL.
// POST /checkout (flow from Checkout-Flow header, default direct)
func (h *Handler) handleCheckout(w http.ResponseWriter, r *http.Request) {
	flow, err := ParseFlowHeader(r.Header.Get(FlowHeader))
	if err != nil {
		h.writeError(w, r, model.NewValidationError(FlowHeader, err.Error()))
		return
	}
	h.serveJSON(w, r, flow)
}

// handleCartImport returns a signed cart-import URL.
// POST /checkout/cart-import
func (h *Handler) handleCartImport(w http.ResponseWriter, r *http.Request) {
	h.serveJSON(w, r, model.FlowCartImport)
}

func (h *Handler) serveJSON(w http.ResponseWriter, r *http.Request, flow model.Flow) {
	var req model.CheckoutRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := validateItems(req.Items); err != nil {
		h.writeError(w, r, err)
		return
	}

	result, err := h.runFlow(r.Context(), flow, &req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

// handleCheckoutForm creates a pending order and redirects the browser to pay for it.
// POST /checkout/form with form field items=[{"id":..,"qty":..}]
// Invalid items JSON is a 400.
func (h *Handler) handleCheckoutForm(w http.ResponseWriter, r *http.Request) {
	items, err := parseFormItems(w, r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.redirectFlow(w, r, model.FlowDirect, items)
}

// handleCartImportForm redirects the browser to a signed cart-import URL.
// POST /checkout/cart-import/form
// Invalid items JSON is treated as an empty cart.
func (h *Handler) handleCartImportForm(w http.ResponseWriter, r *http.Request) {
	items, err := parseFormItems(w, r)
	if err != nil {
		if !errors.Is(err, errFormItemsJSON) {
			h.writeError(w, r, err)
			return
		}
		h.logger.DebugContext(r.Context(), "ignoring invalid items field", slog.String("error", err.Error()))
		items = nil
	}
	h.redirectFlow(w, r, model.FlowCartImport, items)
}

func (h *Handler) redirectFlow(w http.ResponseWriter, r *http.Request, flow model.Flow, items []model.CartItem) {
	if err := validateItems(items); err != nil {
		h.writeError(w, r, err)
		return
	}

	result, err := h.runFlow(r.Context(), flow, &model.CheckoutRequest{Items: items})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	http.Redirect(w, r, result.URL, http.StatusSeeOther)
}

// errFormItemsJSON marks an items field that is present but not a JSON cart.
var errFormItemsJSON = errors.New("items field is not a JSON array of cart items")

// parseFormItems reads the items form field. A missing or empty field is an empty cart.
func parseFormItems(w http.ResponseWriter, r *http.Request) ([]model.CartItem, error) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)
	if err := r.ParseForm(); err != nil {
		return nil, model.NewValidationError("body", "invalid form")
	}

	raw := strings.TrimSpace(r.PostFormValue("items"))
	if raw == "" {
		return nil, nil
	}

	var items []model.CartItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, &model.APIError{
			Code:       "VALIDATION_ERROR",
			Message:    "invalid items: must be a JSON array of {id, qty}",
			StatusCode: http.StatusBadRequest,
			Err:        fmt.Errorf("%w: %v", errFormItemsJSON, err),
		}
	}
	return items, nil
}
