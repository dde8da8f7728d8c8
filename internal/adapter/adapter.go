// Package adapter defines the interface between the inbound surfaces (HTTP, MCP)
// and the commerce backend that performs checkouts.
package adapter

import (
	"context"

	"headless-checkout/internal/model"
)

// Adapter abstracts the two checkout flows of a commerce backend.
// The WooCommerce client is the production implementation.
//
// Both methods only compute a URL. Redirecting the buyer is the caller's job.
type Adapter interface {
	// CreateCheckout creates a pending order and returns its pay-for-order URL.
	// Items that cannot be resolved to a product ID are dropped.
	CreateCheckout(ctx context.Context, req *model.CheckoutRequest) (*model.CheckoutResult, error)

	// CreateCartImport returns a signed cart-import URL without creating an order.
	// Items that cannot be resolved keep their original identifier.
	CreateCartImport(ctx context.Context, req *model.CheckoutRequest) (*model.CheckoutResult, error)
}
