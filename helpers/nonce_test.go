package helpers

import (
	"testing"
	"time"
)

func TestNonceRoundTrip(t *testing.T) {
	secret := "s3cret"
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	n := CreateNonce(secret, "hph_save_listing", 42, now)
	if len(n) != NonceLength {
		t.Fatalf("nonce length = %d should be %d", len(n), NonceLength)
	}

	if v := VerifyNonce(secret, n, "hph_save_listing", 42, now); v != 1 {
		t.Errorf("VerifyNonce same tick = %d should be 1", v)
	}

	later := now.Add(NonceLife / 2)
	if v := VerifyNonce(secret, n, "hph_save_listing", 42, later); v != 2 {
		t.Errorf("VerifyNonce previous tick = %d should be 2", v)
	}

	expired := now.Add(NonceLife + time.Minute)
	if v := VerifyNonce(secret, n, "hph_save_listing", 42, expired); v != 0 {
		t.Errorf("VerifyNonce expired = %d should be 0", v)
	}
}

func TestNonceBoundToActionAndUser(t *testing.T) {
	secret := "s3cret"
	now := time.Now()

	n := CreateNonce(secret, "hph_delete_lead", 7, now)

	if v := VerifyNonce(secret, n, "hph_save_lead", 7, now); v != 0 {
		t.Error("nonce must not verify for another action")
	}
	if v := VerifyNonce(secret, n, "hph_delete_lead", 8, now); v != 0 {
		t.Error("nonce must not verify for another user")
	}
	if v := VerifyNonce("other", n, "hph_delete_lead", 7, now); v != 0 {
		t.Error("nonce must not verify with another secret")
	}
	if v := VerifyNonce(secret, "", "hph_delete_lead", 7, now); v != 0 {
		t.Error("empty nonce must not verify")
	}
}

func TestRandString(t *testing.T) {
	s, err := RandString(32)
	if err != nil {
		t.Fatal(err)
	}
	if len(s) != 32 {
		t.Errorf("RandString(32) returned %d chars", len(s))
	}
}
