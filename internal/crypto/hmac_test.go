package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strings"
	"testing"
)

func TestL2HeadersAtDeterministic(t *testing.T) {
	secret := base64.StdEncoding.EncodeToString([]byte("super-secret"))
	auth := &HMACAuth{Key: "key-1", Secret: secret, Passphrase: "pass"}

	h1 := auth.L2HeadersAt("0xabc", "POST", "/order", `{"x":1}`, 1700000000)
	h2 := auth.L2HeadersAt("0xabc", "POST", "/order", `{"x":1}`, 1700000000)

	if h1["POLY_SIGNATURE"] != h2["POLY_SIGNATURE"] {
		t.Fatal("same inputs must produce the same signature")
	}
	if h1["POLY_TIMESTAMP"] != "1700000000" {
		t.Errorf("timestamp = %q, want 1700000000", h1["POLY_TIMESTAMP"])
	}
	if h1["POLY_ADDRESS"] != "0xabc" || h1["POLY_API_KEY"] != "key-1" || h1["POLY_PASSPHRASE"] != "pass" {
		t.Errorf("unexpected identity headers: %v", h1)
	}

	// Signature must match a straight HMAC-SHA256 over ts+method+path+body
	// with the base64-decoded secret.
	mac := hmac.New(sha256.New, []byte("super-secret"))
	mac.Write([]byte("1700000000POST/order" + `{"x":1}`))
	want := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	if h1["POLY_SIGNATURE"] != want {
		t.Errorf("signature = %q, want %q", h1["POLY_SIGNATURE"], want)
	}
}

func TestL2HeadersDifferentBodiesDiffer(t *testing.T) {
	auth := &HMACAuth{Key: "k", Secret: base64.StdEncoding.EncodeToString([]byte("s")), Passphrase: "p"}
	a := auth.L2HeadersAt("0x1", "POST", "/order", "a", 1)
	b := auth.L2HeadersAt("0x1", "POST", "/order", "b", 1)
	if a["POLY_SIGNATURE"] == b["POLY_SIGNATURE"] {
		t.Fatal("different bodies must produce different signatures")
	}
}

func TestHMACAuthStringRedacts(t *testing.T) {
	auth := &HMACAuth{Key: "abcdef123456", Secret: "verysecretvalue"}
	s := auth.String()
	if strings.Contains(s, "123456") || strings.Contains(s, "secretvalue") {
		t.Fatalf("String leaked credentials: %s", s)
	}
	if !strings.Contains(s, "abcd****") {
		t.Errorf("expected redacted key prefix, got %s", s)
	}
}
