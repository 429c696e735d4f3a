package cryptoprim

import (
	"bytes"
	"crypto/rand"
	"testing"
)

func TestCBCRoundTrip(t *testing.T) {
	key := make([]byte, 16)
	rand.Read(key)
	enc, err := NewAESCBCEncrypter(key)
	if err != nil {
		t.Fatalf("NewAESCBCEncrypter: %v", err)
	}
	dec, err := NewAESCBCDecrypter(key)
	if err != nil {
		t.Fatalf("NewAESCBCDecrypter: %v", err)
	}

	plain := []byte("0123456789ABCDEF0123456789ABCDEF") // multiple of 16... adjust
	plain = plain[:32]
	iv := make([]byte, enc.BlockSize())
	rand.Read(iv)
	ivCopy := append([]byte(nil), iv...)

	ct := make([]byte, len(plain))
	if err := enc.Encrypt(iv, ct, plain); err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	pt := make([]byte, len(ct))
	if err := dec.Decrypt(ivCopy, pt, ct); err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if !bytes.Equal(pt, plain) {
		t.Fatalf("round trip mismatch: got %x want %x", pt, plain)
	}
}

func TestHMACSHA256SumAndEqual(t *testing.T) {
	h := HMACSHA256{}
	key := []byte("k")
	a := h.Sum(key, []byte("hello"))
	b := h.Sum(key, []byte("hello"))
	if !h.Equal(a, b) {
		t.Fatalf("expected equal digests for identical input")
	}
	c := h.Sum(key, []byte("hellp"))
	if h.Equal(a, c) {
		t.Fatalf("expected different digests for different input")
	}
	if h.Size() != len(a) {
		t.Fatalf("Size() = %d, want %d", h.Size(), len(a))
	}
}

func TestDeriveKeyDeterministicAndDistinctByInfo(t *testing.T) {
	secret := []byte("master-secret")
	k1, err := DeriveKey(secret, nil, []byte("cbc"), 32)
	if err != nil {
		t.Fatalf("DeriveKey: %v", err)
	}
	k1Again, err := DeriveKey(secret, nil, []byte("cbc"), 32)
	if err != nil {
		t.Fatalf("DeriveKey: %v", err)
	}
	if !bytes.Equal(k1, k1Again) {
		t.Fatalf("expected deterministic derivation for same inputs")
	}
	k2, err := DeriveKey(secret, nil, []byte("hmac"), 32)
	if err != nil {
		t.Fatalf("DeriveKey: %v", err)
	}
	if bytes.Equal(k1, k2) {
		t.Fatalf("expected distinct keys for distinct info labels")
	}
}
