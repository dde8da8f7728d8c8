package adapter

import (
	"context"

	"headless-checkout/internal/model"
)

// Mock implements Adapter for testing.
// Each method can be configured via function fields.
type Mock struct {
	CreateCheckoutFunc   func(ctx context.Context, req *model.CheckoutRequest) (*model.CheckoutResult, error)
	CreateCartImportFunc func(ctx context.Context, req *model.CheckoutRequest) (*model.CheckoutResult, error)
}

// CreateCheckout calls the configured CreateCheckoutFunc or returns an error.
func (m *Mock) CreateCheckout(ctx context.Context, req *model.CheckoutRequest) (*model.CheckoutResult, error) {
	if m.CreateCheckoutFunc != nil {
		return m.CreateCheckoutFunc(ctx, req)
	}
	return nil, model.NewInternalError(nil)
}

// CreateCartImport calls the configured CreateCartImportFunc or returns an error.
func (m *Mock) CreateCartImport(ctx context.Context, req *model.CheckoutRequest) (*model.CheckoutResult, error) {
	if m.CreateCartImportFunc != nil {
		return m.CreateCartImportFunc(ctx, req)
	}
	return nil, model.NewInternalError(nil)
}

// Verify Mock implements Adapter interface at compile time.
var _ Adapter = (*Mock)(nil)
