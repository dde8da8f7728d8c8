package signing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"net/url"
	"strings"
	"testing"

	"headless-checkout/internal/model"
)

func TestEncodeBase64URL_MatchesManualSubstitution(t *testing.T) {
	inputs := [][]byte{
		{0xfb, 0xff, 0xfe},
		[]byte("a"),
		[]byte("ab"),
		[]byte(`[{"id":"tee?>","qty":2}]`),
	}

	for _, in := range inputs {
		std := base64.StdEncoding.EncodeToString(in)
		manual := strings.NewReplacer("=", "", "+", "-", "/", "_").Replace(std)
		if got := EncodeBase64URL(in); got != manual {
			t.Errorf("EncodeBase64URL(%x) = %q, want %q", in, got, manual)
		}
	}
}

func TestEncodePayload(t *testing.T) {
	tests := []struct {
		name     string
		items    []model.CartItem
		wantJSON string
	}{
		{
			name:     "resolved item",
			items:    []model.CartItem{{ID: model.NumericID(10), Qty: 2}},
			wantJSON: `[{"id":10,"qty":2}]`,
		},
		{
			name:     "unresolved slug",
			items:    []model.CartItem{{ID: model.SlugID("tee"), Qty: 2}},
			wantJSON: `[{"id":"tee","qty":2}]`,
		},
		{
			name:     "html characters not escaped",
			items:    []model.CartItem{{ID: model.SlugID("a&b<c>"), Qty: 1}},
			wantJSON: `[{"id":"a&b<c>","qty":1}]`,
		},
		{
			name:     "nil items",
			items:    nil,
			wantJSON: `[]`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, err := EncodePayload(tt.items)
			if err != nil {
				t.Fatalf("EncodePayload error: %v", err)
			}
			raw, err := base64.RawURLEncoding.DecodeString(payload)
			if err != nil {
				t.Fatalf("payload is not base64url: %v", err)
			}
			if string(raw) != tt.wantJSON {
				t.Errorf("decoded payload = %s, want %s", raw, tt.wantJSON)
			}
		})
	}
}

func TestSign_MatchesHMAC(t *testing.T) {
	payload := "W3siaWQiOjEwLCJxdHkiOjJ9XQ"
	secret := "shhh"

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	want := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))

	if got := Sign(payload, secret); got != want {
		t.Errorf("Sign() = %q, want %q", got, want)
	}
	if strings.ContainsAny(Sign(payload, secret), "+/=") {
		t.Error("signature must be unpadded base64url")
	}
}

func TestVerify(t *testing.T) {
	payload := "W3siaWQiOjEwLCJxdHkiOjJ9XQ"
	sig := Sign(payload, "secret")

	if err := Verify(payload, sig, "secret"); err != nil {
		t.Errorf("Verify() with correct secret error: %v", err)
	}
	if err := Verify(payload, sig, "other"); !errors.Is(err, ErrSignatureMismatch) {
		t.Errorf("Verify() with wrong secret = %v, want ErrSignatureMismatch", err)
	}
	if err := Verify(payload+"x", sig, "secret"); !errors.Is(err, ErrSignatureMismatch) {
		t.Errorf("Verify() with tampered payload = %v, want ErrSignatureMismatch", err)
	}
	if err := Verify(payload, "!!!", "secret"); err == nil {
		t.Error("Verify() with invalid base64 should fail")
	}
}

func TestSignedCartImportURL_RoundTrip(t *testing.T) {
	items := []model.CartItem{
		{ID: model.NumericID(10), Qty: 2},
		{ID: model.SlugID("mug"), Qty: 1},
	}

	rawURL, err := SignedCartImportURL("https://shop.example.com", "secret", items)
	if err != nil {
		t.Fatalf("SignedCartImportURL error: %v", err)
	}

	if !strings.HasPrefix(rawURL, "https://shop.example.com/wp-json/headless/v1/cart-import?payload=") {
		t.Errorf("unexpected URL prefix: %s", rawURL)
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		t.Fatalf("url.Parse error: %v", err)
	}
	payload := u.Query().Get("payload")
	sig := u.Query().Get("sig")
	if Sign(payload, "secret") != sig {
		t.Error("recomputed signature does not match sig parameter")
	}

	decoded, err := ParseCartImportURL(rawURL, "secret")
	if err != nil {
		t.Fatalf("ParseCartImportURL error: %v", err)
	}
	if len(decoded) != 2 {
		t.Fatalf("decoded %d items, want 2", len(decoded))
	}
	if n, ok := decoded[0].ID.Int(); !ok || n != 10 || decoded[0].Qty != 2 {
		t.Errorf("decoded[0] = %+v, want id 10 qty 2", decoded[0])
	}
	if decoded[1].ID.Slug() != "mug" {
		t.Errorf("decoded[1].ID = %v, want mug", decoded[1].ID)
	}
}

func TestParseCartImportURL_Errors(t *testing.T) {
	good, _ := SignedCartImportURL("https://shop.example.com", "secret", []model.CartItem{{ID: model.NumericID(1), Qty: 1}})

	tests := []struct {
		name   string
		url    string
		secret string
	}{
		{"wrong secret", good, "nope"},
		{"wrong path", "https://shop.example.com/checkout?payload=a&sig=b", "secret"},
		{"missing sig", "https://shop.example.com/wp-json/headless/v1/cart-import?payload=abc", "secret"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseCartImportURL(tt.url, tt.secret); err == nil {
				t.Error("expected error")
			}
		})
	}
}
