package crypto

import (
	"strings"
	"testing"
)

func TestNewSignerDerivesAddress(t *testing.T) {
	// Well-known test vector key.
	s, err := NewSigner("0x4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318", 137)
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}
	if s.Address().Hex() == "0x0000000000000000000000000000000000000000" {
		t.Fatal("derived zero address")
	}

	if _, err := NewSigner("zz", 137); err == nil {
		t.Fatal("expected error for invalid key")
	}
}

func TestSignAuthMessageShape(t *testing.T) {
	s, err := NewSigner("4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318", 137)
	if err != nil {
		t.Fatal(err)
	}
	sig, err := s.SignAuthMessage(s.Address().Hex(), 1700000000, 0)
	if err != nil {
		t.Fatalf("SignAuthMessage: %v", err)
	}
	if !strings.HasPrefix(sig, "0x") || len(sig) != 2+65*2 {
		t.Errorf("signature %q has wrong shape", sig)
	}

	// Deterministic: same message signs identically.
	sig2, err := s.SignAuthMessage(s.Address().Hex(), 1700000000, 0)
	if err != nil {
		t.Fatal(err)
	}
	if sig != sig2 {
		t.Error("signatures for identical messages differ")
	}
}

func TestSignOrder(t *testing.T) {
	s, err := NewSigner("4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318", 137)
	if err != nil {
		t.Fatal(err)
	}

	payload := OrderPayload{
		Salt:          "12345",
		Maker:         s.Address().Hex(),
		Signer:        s.Address().Hex(),
		Taker:         "0x0000000000000000000000000000000000000000",
		TokenID:       "71321045679252212594626385532706912750332728571942532289631379312455583992563",
		MakerAmount:   "24650000",
		TakerAmount:   "50000000",
		Expiration:    "0",
		Nonce:         "0",
		FeeRateBps:    "0",
		Side:          0,
		SignatureType: 2,
	}
	sig, err := s.SignOrder(payload)
	if err != nil {
		t.Fatalf("SignOrder: %v", err)
	}
	if !strings.HasPrefix(sig, "0x") || len(sig) != 2+65*2 {
		t.Errorf("signature %q has wrong shape", sig)
	}

	// A different token must sign differently.
	payload.TokenID = "1"
	sig2, err := s.SignOrder(payload)
	if err != nil {
		t.Fatal(err)
	}
	if sig == sig2 {
		t.Error("distinct orders produced identical signatures")
	}

	payload.Salt = "not-a-number"
	if _, err := s.SignOrder(payload); err == nil {
		t.Error("expected error for non-numeric salt")
	}
}
