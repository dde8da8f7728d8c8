// Package signing builds and verifies the HMAC-signed payloads consumed by the
// WordPress cart-import endpoint.
//
// Wire format:
//
//	payload = base64url(json(items))          // unpadded, "-" and "_" alphabet
//	sig     = base64url(HMAC-SHA256(secret, payload))
//	url     = {site}/wp-json/headless/v1/cart-import?payload={payload}&sig={sig}
//
// The MAC covers the encoded payload string, not the raw JSON, so the remote side
// can verify before decoding.
package signing

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"headless-checkout/internal/model"
)

// CartImportPath is the companion WordPress endpoint that rebuilds the cart.
const CartImportPath = "/wp-json/headless/v1/cart-import"

// ErrSignatureMismatch is returned by Verify when the signature does not match.
var ErrSignatureMismatch = errors.New("signing: signature mismatch")

// EncodeBase64URL encodes b as unpadded base64url.
func EncodeBase64URL(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}

// decodeBase64URL accepts unpadded or padded base64url input.
func decodeBase64URL(s string) ([]byte, error) {
	return base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
}

// EncodePayload serializes items to compact JSON and base64url-encodes it.
// HTML characters are not escaped so slugs serialize exactly as a browser's
// JSON.stringify would.
func EncodePayload(items []model.CartItem) (string, error) {
	if items == nil {
		items = []model.CartItem{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(items); err != nil {
		return "", fmt.Errorf("signing: encoding items: %w", err)
	}
	return EncodeBase64URL(bytes.TrimSuffix(buf.Bytes(), []byte("\n"))), nil
}

// DecodePayload reverses EncodePayload.
func DecodePayload(payload string) ([]model.CartItem, error) {
	raw, err := decodeBase64URL(payload)
	if err != nil {
		return nil, fmt.Errorf("signing: decoding payload: %w", err)
	}
	var items []model.CartItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("signing: parsing payload JSON: %w", err)
	}
	return items, nil
}

// Sign returns the base64url HMAC-SHA256 of payload under secret.
func Sign(payload, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return EncodeBase64URL(mac.Sum(nil))
}

// Verify checks sig against payload in constant time.
func Verify(payload, sig, secret string) error {
	got, err := decodeBase64URL(sig)
	if err != nil {
		return fmt.Errorf("signing: decoding signature: %w", err)
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	if !hmac.Equal(got, mac.Sum(nil)) {
		return ErrSignatureMismatch
	}
	return nil
}

// CartImportURL builds the redirect URL for the cart-import endpoint.
// base must not carry a trailing slash.
func CartImportURL(base, payload, sig string) string {
	return fmt.Sprintf("%s%s?payload=%s&sig=%s",
		base, CartImportPath, url.QueryEscape(payload), url.QueryEscape(sig))
}

// SignedCartImportURL encodes and signs items and returns the cart-import URL.
func SignedCartImportURL(base, secret string, items []model.CartItem) (string, error) {
	payload, err := EncodePayload(items)
	if err != nil {
		return "", err
	}
	return CartImportURL(base, payload, Sign(payload, secret)), nil
}

// ParseCartImportURL extracts and verifies the payload of a cart-import URL,
// returning the decoded items. Used by operator tooling to check links.
func ParseCartImportURL(rawURL, secret string) ([]model.CartItem, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("signing: parsing URL: %w", err)
	}
	if !strings.HasSuffix(u.Path, CartImportPath) {
		return nil, fmt.Errorf("signing: %s is not a cart-import URL", u.Path)
	}

	q := u.Query()
	payload, sig := q.Get("payload"), q.Get("sig")
	if payload == "" || sig == "" {
		return nil, errors.New("signing: payload and sig query parameters are required")
	}
	if err := Verify(payload, sig, secret); err != nil {
		return nil, err
	}
	return DecodePayload(payload)
}
