// Package woocommerce implements the checkout adapter for WooCommerce stores using
// the REST API (wc/v3) and the companion cart-import endpoint.
// All WooCommerce-specific types and HTTP client logic live here.
package woocommerce

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// === WooCommerce REST API Request Types ===

// WooOrderRequest is the body for POST /wp-json/wc/v3/orders.
// Orders are always created unpaid; payment happens on the store's pay page.
type WooOrderRequest struct {
	PaymentMethod      string          `json:"payment_method"`
	PaymentMethodTitle string          `json:"payment_method_title"`
	SetPaid            bool            `json:"set_paid"`
	LineItems          []WooLineItem   `json:"line_items"`
	Billing            *WooBillingInfo `json:"billing,omitempty"`
}

// WooLineItem is a single product/quantity pair in an order request.
type WooLineItem struct {
	ProductID int `json:"product_id"`
	Quantity  int `json:"quantity"`
}

// WooBillingInfo is the subset of the billing address the storefront can prefill.
type WooBillingInfo struct {
	Email     string `json:"email,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// === WooCommerce REST API Response Types ===

// WooOrderResponse holds the fields of a created order needed to build a pay URL.
type WooOrderResponse struct {
	ID       flexInt `json:"id"`
	OrderKey string  `json:"order_key"`
	Status   string  `json:"status,omitempty"`
}

// WooProduct is the part of a product record used for slug resolution.
type WooProduct struct {
	ID   flexInt `json:"id"`
	Slug string  `json:"slug,omitempty"`
}

// WooErrorResponse represents a WordPress REST error body.
type WooErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// flexInt decodes an ID sent either as a JSON number or a numeric string.
// Anything else decodes as zero, which callers treat as "no ID".
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			*f = 0
			return nil
		}
		*f = flexInt(n)
		return nil
	}

	var n float64
	if err := json.Unmarshal(data, &n); err != nil {
		*f = 0
		return nil
	}
	*f = flexInt(n)
	return nil
}
