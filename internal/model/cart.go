// Package model defines the cart, customer and result types shared by the
// checkout flows, plus the structured API errors they return.
package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// ItemID identifies a product in a cart.
// It is either a numeric WooCommerce product ID or a slug that still needs
// resolving. The JSON form is preserved: numbers stay numbers, strings stay strings.
type ItemID struct {
	num     int
	slug    string
	numeric bool
}

// NumericID returns an ItemID for an already-known product ID.
func NumericID(id int) ItemID {
	return ItemID{num: id, numeric: true}
}

// SlugID returns an ItemID for a product slug.
func SlugID(slug string) ItemID {
	return ItemID{slug: slug}
}

// Int returns the numeric product ID and true if the identifier is numeric.
func (id ItemID) Int() (int, bool) {
	return id.num, id.numeric
}

// Slug returns the slug, or "" for numeric identifiers.
func (id ItemID) Slug() string {
	return id.slug
}

// IsNumeric reports whether the identifier was supplied as a number.
func (id ItemID) IsNumeric() bool {
	return id.numeric
}

// IsZero reports whether no identifier was supplied at all.
func (id ItemID) IsZero() bool {
	return !id.numeric && id.slug == ""
}

func (id ItemID) String() string {
	if id.numeric {
		return strconv.Itoa(id.num)
	}
	return id.slug
}

// MarshalJSON encodes numeric IDs as JSON numbers and slugs as JSON strings.
func (id ItemID) MarshalJSON() ([]byte, error) {
	if id.numeric {
		return []byte(strconv.Itoa(id.num)), nil
	}
	return json.Marshal(id.slug)
}

// UnmarshalJSON accepts either a JSON number or a JSON string.
// Strings are always slugs, even when they contain digits.
func (id *ItemID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = SlugID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("item id must be a number or string: %w", err)
	}
	v, err := parseProductNumber(n)
	if err != nil {
		return err
	}
	*id = NumericID(v)
	return nil
}

// parseProductNumber converts a JSON number into an int, accepting integral
// floats such as 10.0.
func parseProductNumber(n json.Number) (int, error) {
	if i, err := n.Int64(); err == nil {
		return int(i), nil
	}
	f, err := n.Float64()
	if err != nil || f != math.Trunc(f) {
		return 0, fmt.Errorf("item id %q is not an integer", n.String())
	}
	return int(f), nil
}

// CartItem is one product/quantity pair submitted by the storefront.
type CartItem struct {
	ID  ItemID `json:"id"`
	Qty int    `json:"qty"`
}

// Quantity returns the quantity to order. A zero quantity means "not set" and defaults to 1.
func (i CartItem) Quantity() int {
	if i.Qty == 0 {
		return 1
	}
	return i.Qty
}

// CustomerInfo is optional buyer data used to prefill the order's billing address.
type CustomerInfo struct {
	Email     string `json:"email,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// CheckoutRequest is the input to both checkout flows.
// Customer is only used by the direct order flow.
type CheckoutRequest struct {
	Items    []CartItem    `json:"items"`
	Customer *CustomerInfo `json:"customer,omitempty"`
}

// CheckoutResult carries the URL the buyer should be sent to.
type CheckoutResult struct {
	URL string `json:"url"`
}

// Flow names a checkout flow.
type Flow string

const (
	// FlowDirect creates a pending order over the REST API and returns its pay URL.
	FlowDirect Flow = "direct"

	// FlowCartImport returns a signed URL for the WordPress cart-import endpoint.
	FlowCartImport Flow = "cart-import"
)
