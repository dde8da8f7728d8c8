package woocommerce

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"headless-checkout/internal/model"
)

// CreateCheckout creates a pending WooCommerce order from the cart and returns
// the store's pay-for-order URL.
//
// Flow:
//  1. Validate site URL and REST credentials (no network call if missing)
//  2. Resolve product IDs, dropping items that cannot be resolved
//  3. POST /orders with Basic auth; on 401 retry once with query credentials
//  4. Build {site}/checkout/order-pay/{id}/?pay_for_order=true&key={order_key}
//
// An order created upstream is never rolled back or re-posted by this method.
func (c *Client) CreateCheckout(ctx context.Context, req *model.CheckoutRequest) (*model.CheckoutResult, error) {
	result, err := c.createCheckout(ctx, req)
	c.metrics.ObserveCheckout(string(model.FlowDirect), outcomeOf(err))
	return result, err
}

func (c *Client) createCheckout(ctx context.Context, req *model.CheckoutRequest) (*model.CheckoutResult, error) {
	if err := c.requireDirectConfig(); err != nil {
		return nil, err
	}

	resolutions, err := c.ResolveItems(ctx, req.Items)
	if err != nil {
		return nil, err
	}

	order := BuildOrderRequest(ApplyPolicy(resolutions, DropUnresolved), req.Customer)
	if dropped := len(req.Items) - len(order.LineItems); dropped > 0 {
		c.logger.InfoContext(ctx, "dropping unresolved cart items",
			slog.Int("dropped", dropped),
			slog.Int("line_items", len(order.LineItems)),
		)
	}

	body, err := json.Marshal(order)
	if err != nil {
		return nil, fmt.Errorf("marshaling order: %w", err)
	}

	wcOrder, err := c.postOrder(ctx, body)
	if err != nil {
		return nil, err
	}

	return &model.CheckoutResult{URL: c.PayURL(int(wcOrder.ID), wcOrder.OrderKey)}, nil
}

// postOrder runs the primary POST and, on 401 only, the query-credential fallback.
func (c *Client) postOrder(ctx context.Context, body []byte) (*WooOrderResponse, error) {
	resp, err := c.doREST(ctx, "create_order", http.MethodPost, "/orders", nil, body, authHeader)
	if err != nil {
		return nil, err
	}

	if resp.ok() {
		return parseOrderResponse(resp.body, false)
	}

	if resp.status != http.StatusUnauthorized {
		c.logger.WarnContext(ctx, "order create rejected",
			slog.Int("status", resp.status),
			slog.String("wp_code", wpErrorCode(resp.body)),
		)
		return nil, model.NewRemoteOrderError(resp.status, string(resp.body))
	}

	// Some hosts strip the Authorization header. Retry once with query auth.
	c.logger.WarnContext(ctx, "order create rejected with Basic auth, retrying with query credentials",
		slog.Int("status", resp.status),
		slog.String("wp_code", wpErrorCode(resp.body)),
	)

	fallback, err := c.doREST(ctx, "create_order_fallback", http.MethodPost, "/orders", nil, body, authQuery)
	if err != nil {
		return nil, err
	}
	if !fallback.ok() {
		return nil, model.NewAuthFallbackError(fallback.status, string(fallback.body))
	}
	return parseOrderResponse(fallback.body, true)
}

// wpErrorCode returns the WordPress error code of a REST error body, e.g.
// "woocommerce_rest_cannot_create", or "" if the body is not a WP error.
func wpErrorCode(body []byte) string {
	var wpErr WooErrorResponse
	if err := json.Unmarshal(body, &wpErr); err != nil {
		return ""
	}
	return wpErr.Code
}

// parseOrderResponse extracts id and order_key, both of which are required.
func parseOrderResponse(body []byte, fallback bool) (*WooOrderResponse, error) {
	var order WooOrderResponse
	if err := json.Unmarshal(body, &order); err != nil {
		return nil, model.NewMalformedResponseError(fallback, err)
	}
	if order.ID <= 0 || order.OrderKey == "" {
		return nil, model.NewMalformedResponseError(fallback, nil)
	}
	return &order, nil
}

// BuildOrderRequest creates the order body for the given resolved items.
// Items must already carry numeric IDs (see ApplyPolicy with DropUnresolved).
//
// Billing is attached only when the customer supplied something. The email is
// set on its own; names are merged into the same object without touching it.
func BuildOrderRequest(items []model.CartItem, customer *model.CustomerInfo) *WooOrderRequest {
	lineItems := make([]WooLineItem, 0, len(items))
	for _, item := range items {
		id, ok := item.ID.Int()
		if !ok || id <= 0 {
			continue
		}
		lineItems = append(lineItems, WooLineItem{ProductID: id, Quantity: item.Quantity()})
	}

	order := &WooOrderRequest{
		PaymentMethod:      "",
		PaymentMethodTitle: "",
		SetPaid:            false,
		LineItems:          lineItems,
	}

	if customer == nil {
		return order
	}
	if customer.Email != "" {
		order.Billing = &WooBillingInfo{Email: customer.Email}
	}
	if customer.FirstName != "" || customer.LastName != "" {
		if order.Billing == nil {
			order.Billing = &WooBillingInfo{}
		}
		order.Billing.FirstName = customer.FirstName
		order.Billing.LastName = customer.LastName
	}
	return order
}

// PayURL returns the customer-facing pay page for a pending order.
func (c *Client) PayURL(orderID int, orderKey string) string {
	return fmt.Sprintf("%s/checkout/order-pay/%d/?pay_for_order=true&key=%s", c.siteURL, orderID, orderKey)
}

// outcomeOf maps an error to a metrics label.
func outcomeOf(err error) string {
	if err == nil {
		return "ok"
	}
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "canceled"
	}
	return "error"
}
