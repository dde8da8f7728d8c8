package model

import (
	"encoding/json"
	"testing"
)

func TestItemID_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		wantNumeric bool
		wantNum     int
		wantSlug    string
		wantErr     bool
	}{
		{name: "integer", input: `10`, wantNumeric: true, wantNum: 10},
		{name: "integral float", input: `10.0`, wantNumeric: true, wantNum: 10},
		{name: "slug", input: `"blue-tee"`, wantSlug: "blue-tee"},
		{name: "digit string stays slug", input: `"42"`, wantSlug: "42"},
		{name: "fractional", input: `1.5`, wantErr: true},
		{name: "bool", input: `true`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var id ItemID
			err := json.Unmarshal([]byte(tt.input), &id)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %s", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unmarshal error: %v", err)
			}
			if id.IsNumeric() != tt.wantNumeric {
				t.Errorf("IsNumeric() = %v, want %v", id.IsNumeric(), tt.wantNumeric)
			}
			if n, _ := id.Int(); n != tt.wantNum {
				t.Errorf("Int() = %d, want %d", n, tt.wantNum)
			}
			if id.Slug() != tt.wantSlug {
				t.Errorf("Slug() = %q, want %q", id.Slug(), tt.wantSlug)
			}
		})
	}
}

func TestCartItem_JSONPreservesIDKind(t *testing.T) {
	items := []CartItem{
		{ID: NumericID(10), Qty: 2},
		{ID: SlugID("tee"), Qty: 1},
	}

	data, err := json.Marshal(items)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	want := `[{"id":10,"qty":2},{"id":"tee","qty":1}]`
	if string(data) != want {
		t.Errorf("Marshal = %s, want %s", data, want)
	}
}

func TestCartItem_Quantity(t *testing.T) {
	tests := []struct {
		qty  int
		want int
	}{
		{0, 1},
		{1, 1},
		{3, 3},
	}

	for _, tt := range tests {
		item := CartItem{ID: NumericID(1), Qty: tt.qty}
		if got := item.Quantity(); got != tt.want {
			t.Errorf("Quantity() with qty=%d = %d, want %d", tt.qty, got, tt.want)
		}
	}
}

func TestCheckoutRequest_MissingQtyDecodesAsZero(t *testing.T) {
	var req CheckoutRequest
	if err := json.Unmarshal([]byte(`{"items":[{"id":"tee"}]}`), &req); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	if len(req.Items) != 1 {
		t.Fatalf("Items len = %d, want 1", len(req.Items))
	}
	if req.Items[0].Qty != 0 || req.Items[0].Quantity() != 1 {
		t.Errorf("Qty = %d, Quantity() = %d; want 0 and 1", req.Items[0].Qty, req.Items[0].Quantity())
	}
	if req.Customer != nil {
		t.Error("Customer should be nil when absent")
	}
}
