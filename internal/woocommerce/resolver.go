package woocommerce

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"

	"golang.org/x/sync/errgroup"

	"headless-checkout/internal/model"
)

// Resolution is the outcome of mapping one cart item to a WooCommerce product ID.
// ProductID is positive when resolved; otherwise the item keeps its original identifier.
type Resolution struct {
	Item      model.CartItem
	ProductID int
}

// Resolved reports whether a product ID was found.
func (r Resolution) Resolved() bool {
	return r.ProductID > 0
}

// UnresolvedPolicy decides what happens to items whose product ID could not be found.
type UnresolvedPolicy int

const (
	// DropUnresolved removes unresolved items. Used by the direct order flow,
	// which can only submit numeric product IDs.
	DropUnresolved UnresolvedPolicy = iota

	// KeepUnresolved passes unresolved items through with their original
	// identifier. Used by the cart-import flow; the WordPress side can resolve slugs.
	KeepUnresolved
)

// ApplyPolicy turns resolutions into the cart items a flow submits.
// Resolved items carry the numeric ID; quantities are normalized.
func ApplyPolicy(resolutions []Resolution, policy UnresolvedPolicy) []model.CartItem {
	items := make([]model.CartItem, 0, len(resolutions))
	for _, r := range resolutions {
		switch {
		case r.Resolved():
			items = append(items, model.CartItem{ID: model.NumericID(r.ProductID), Qty: r.Item.Quantity()})
		case policy == KeepUnresolved:
			items = append(items, model.CartItem{ID: r.Item.ID, Qty: r.Item.Quantity()})
		}
	}
	return items
}

// ResolveItems maps each cart item to a product ID.
//
// Numeric IDs resolve without a network call. Slugs are looked up via
// GET /products?slug=, one request per slug, no retries and no caching.
// A failed lookup yields an unresolved entry, never an error.
//
// Lookups run concurrently up to the configured limit; the returned slice is in
// input order regardless. The only error is cancellation of ctx.
func (c *Client) ResolveItems(ctx context.Context, items []model.CartItem) ([]Resolution, error) {
	resolutions := make([]Resolution, len(items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.resolveConcurrency)

	for i, item := range items {
		if id, ok := item.ID.Int(); ok {
			// Non-positive numeric IDs stay unresolved
			resolutions[i] = Resolution{Item: item, ProductID: max(id, 0)}
			continue
		}

		g.Go(func() error {
			resolutions[i] = Resolution{Item: item, ProductID: c.lookupProductID(gctx, item.ID.Slug())}
			return nil
		})
	}
	g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return resolutions, nil
}

// passThrough returns resolutions without any lookups, for flows that run
// without REST credentials.
func passThrough(items []model.CartItem) []Resolution {
	resolutions := make([]Resolution, len(items))
	for i, item := range items {
		id, _ := item.ID.Int()
		resolutions[i] = Resolution{Item: item, ProductID: max(id, 0)}
	}
	return resolutions
}

// lookupProductID returns the ID of the first product matching slug, or 0.
func (c *Client) lookupProductID(ctx context.Context, slug string) int {
	resp, err := c.doREST(ctx, "lookup_product", http.MethodGet, "/products",
		url.Values{"slug": {slug}}, nil, authHeader)
	if err != nil {
		c.logger.DebugContext(ctx, "product lookup failed",
			slog.String("slug", slug),
			slog.String("error", err.Error()),
		)
		c.metrics.ObserveResolution(false)
		return 0
	}

	if !resp.ok() {
		c.logger.DebugContext(ctx, "product lookup rejected",
			slog.String("slug", slug),
			slog.Int("status", resp.status),
		)
		c.metrics.ObserveResolution(false)
		return 0
	}

	var products []WooProduct
	if err := json.Unmarshal(resp.body, &products); err != nil || len(products) == 0 || products[0].ID <= 0 {
		c.logger.DebugContext(ctx, "product slug not found", slog.String("slug", slug))
		c.metrics.ObserveResolution(false)
		return 0
	}

	c.metrics.ObserveResolution(true)
	return int(products[0].ID)
}
