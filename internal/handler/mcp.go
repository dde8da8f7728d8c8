// MCP transport handler for the checkout gateway using the official MCP Go SDK.
// Exposes both checkout flows as MCP tools.
package handler

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"headless-checkout/internal/model"
)

// === MCP Tool Input Types ===

// CheckoutInput is the input schema for both checkout tools.
type CheckoutInput struct {
	Items    []ItemInput         `json:"items" jsonschema:"cart items,required"`
	Customer *model.CustomerInfo `json:"customer,omitempty" jsonschema:"buyer details used to prefill billing (create_checkout only)"`
}

// ItemInput is a cart item as an agent sends it.
// ID is untyped so the schema accepts both numbers and slugs.
type ItemInput struct {
	ID  any `json:"id" jsonschema:"WooCommerce product ID (number) or product slug (string),required"`
	Qty int `json:"qty,omitempty" jsonschema:"quantity, defaults to 1"`
}

// toCheckoutRequest converts tool input into a checkout request.
func (in CheckoutInput) toCheckoutRequest() (*model.CheckoutRequest, error) {
	items := make([]model.CartItem, len(in.Items))
	for i, it := range in.Items {
		id, err := toItemID(it.ID)
		if err != nil {
			return nil, fmt.Errorf("items[%d].id: %w", i, err)
		}
		items[i] = model.CartItem{ID: id, Qty: it.Qty}
	}
	return &model.CheckoutRequest{Items: items, Customer: in.Customer}, nil
}

// toItemID maps a decoded JSON value to an ItemID.
func toItemID(v any) (model.ItemID, error) {
	switch id := v.(type) {
	case float64:
		if id != math.Trunc(id) {
			return model.ItemID{}, fmt.Errorf("product id %v is not an integer", id)
		}
		return model.NumericID(int(id)), nil
	case string:
		if id == "" {
			return model.ItemID{}, errors.New("product slug must not be empty")
		}
		return model.SlugID(id), nil
	default:
		return model.ItemID{}, errors.New("must be a number or string")
	}
}

// NewMCPServer creates an MCP server with checkout tools registered.
// The tools expose the same flows as the JSON API.
func (h *Handler) NewMCPServer() *mcp.Server {
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "headless-checkout",
			Version: "1.0.0",
		},
		&mcp.ServerOptions{
			Instructions: "Headless WooCommerce checkout. Use these tools to turn a cart into " +
				"a URL the buyer can open to pay.",
		},
	)

	mcp.AddTool(server, &mcp.Tool{
		Name: "create_checkout",
		Description: "Create a pending WooCommerce order for the cart and return its pay-for-order URL. " +
			"Items whose slug cannot be resolved are dropped.",
	}, h.mcpCreateCheckout)

	mcp.AddTool(server, &mcp.Tool{
		Name: "create_cart_import_url",
		Description: "Return a signed URL that rebuilds the cart in the store's own checkout. " +
			"No order is created.",
	}, h.mcpCreateCartImport)

	return server
}

// NewMCPHandler returns an HTTP handler for the MCP endpoint.
// Mount this at /mcp on your mux.
func (h *Handler) NewMCPHandler() http.Handler {
	server := h.NewMCPServer()
	return mcp.NewStreamableHTTPHandler(
		func(r *http.Request) *mcp.Server { return server },
		nil,
	)
}

// === Tool Handlers ===

func (h *Handler) mcpCreateCheckout(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input CheckoutInput,
) (*mcp.CallToolResult, *model.CheckoutResult, error) {
	return h.mcpRunFlow(ctx, model.FlowDirect, input)
}

func (h *Handler) mcpCreateCartImport(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input CheckoutInput,
) (*mcp.CallToolResult, *model.CheckoutResult, error) {
	return h.mcpRunFlow(ctx, model.FlowCartImport, input)
}

func (h *Handler) mcpRunFlow(ctx context.Context, flow model.Flow, input CheckoutInput) (*mcp.CallToolResult, *model.CheckoutResult, error) {
	checkoutReq, err := input.toCheckoutRequest()
	if err != nil {
		return nil, nil, fmt.Errorf("VALIDATION_ERROR: %v", err)
	}

	result, err := h.runFlow(ctx, flow, checkoutReq)
	if err != nil {
		return nil, nil, h.mcpError(ctx, err)
	}
	return nil, result, nil
}

// mcpError converts adapter errors to MCP-friendly errors.
func (h *Handler) mcpError(ctx context.Context, err error) error {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%s: %s", apiErr.Code, apiErr.Message)
	}
	// Don't leak internal error details
	h.logger.ErrorContext(ctx, "mcp internal error", "error", err.Error())
	return fmt.Errorf("internal error")
}
