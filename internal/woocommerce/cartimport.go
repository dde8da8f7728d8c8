package woocommerce

import (
	"context"
	"log/slog"

	"headless-checkout/internal/model"
	"headless-checkout/internal/signing"
)

// CreateCartImport returns a signed redirect URL for the WordPress cart-import
// endpoint. No order is created; the WordPress side verifies the signature and
// rebuilds the cart in the buyer's session.
//
// Slugs are resolved best-effort and only when REST credentials are configured.
// Items that cannot be resolved keep their original identifier.
func (c *Client) CreateCartImport(ctx context.Context, req *model.CheckoutRequest) (*model.CheckoutResult, error) {
	result, err := c.createCartImport(ctx, req)
	c.metrics.ObserveCheckout(string(model.FlowCartImport), outcomeOf(err))
	return result, err
}

func (c *Client) createCartImport(ctx context.Context, req *model.CheckoutRequest) (*model.CheckoutResult, error) {
	if err := c.requireCartImportConfig(); err != nil {
		return nil, err
	}

	var resolutions []Resolution
	if c.hasRESTCredentials() {
		var err error
		resolutions, err = c.ResolveItems(ctx, req.Items)
		if err != nil {
			return nil, err
		}
	} else {
		c.logger.DebugContext(ctx, "REST credentials not configured, skipping slug resolution")
		resolutions = passThrough(req.Items)
	}

	items := ApplyPolicy(resolutions, KeepUnresolved)

	u, err := signing.SignedCartImportURL(c.siteURL, c.sharedSecret, items)
	if err != nil {
		return nil, model.NewInternalError(err)
	}

	c.logger.InfoContext(ctx, "built cart import URL", slog.Int("items", len(items)))
	return &model.CheckoutResult{URL: u}, nil
}
