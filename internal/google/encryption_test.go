package google

import (
	"bytes"
	"testing"
)

func TestTokenEncryption_Disabled(t *testing.T) {
	enc, err := NewTokenEncryption(nil)
	if err != nil {
		t.Fatalf("NewTokenEncryption(nil) error = %v", err)
	}
	if enc.Enabled() {
		t.Error("expected encryption to be disabled without a key")
	}

	data := []byte(`{"token":"x"}`)
	out, err := enc.Encrypt(data)
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	if !bytes.Equal(out, data) {
		t.Errorf("Encrypt() with no key = %q, want passthrough", out)
	}
}

func TestTokenEncryption_RoundTrip(t *testing.T) {
	key, err := GenerateEncryptionKey()
	if err != nil {
		t.Fatal(err)
	}
	enc, err := NewTokenEncryption(key)
	if err != nil {
		t.Fatal(err)
	}

	data := []byte(`{"token":"ya29.secret"}`)
	first, err := enc.Encrypt(data)
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	second, err := enc.Encrypt(data)
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	if bytes.Equal(first, second) {
		t.Error("two encryptions of the same data should differ (random nonce)")
	}

	plain, err := enc.Decrypt(first)
	if err != nil {
		t.Fatalf("Decrypt() error = %v", err)
	}
	if !bytes.Equal(plain, data) {
		t.Errorf("Decrypt() = %q, want %q", plain, data)
	}
}

func TestTokenEncryption_Tampered(t *testing.T) {
	key, _ := GenerateEncryptionKey()
	enc, _ := NewTokenEncryption(key)

	sealed, err := enc.Encrypt([]byte("payload"))
	if err != nil {
		t.Fatal(err)
	}
	sealed[len(sealed)/2] ^= 0x01

	if _, err := enc.Decrypt(sealed); err == nil {
		t.Error("expected tampered ciphertext to fail")
	}
	if _, err := enc.Decrypt([]byte("AAAA")); err == nil {
		t.Error("expected short ciphertext to fail")
	}
}

func TestEncryptionKeyFromBase64(t *testing.T) {
	key, _ := GenerateEncryptionKey()

	tests := []struct {
		name    string
		input   string
		wantNil bool
		wantErr bool
	}{
		{"empty disables", "", true, false},
		{"valid", EncryptionKeyToBase64(key), false, false},
		{"not base64", "!!!", false, true},
		{"wrong length", EncryptionKeyToBase64([]byte("too short")), false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EncryptionKeyFromBase64(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("EncryptionKeyFromBase64() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantNil && got != nil {
				t.Errorf("EncryptionKeyFromBase64() = %v, want nil", got)
			}
			if !tt.wantErr && !tt.wantNil && !bytes.Equal(got, key) {
				t.Error("decoded key does not match")
			}
		})
	}
}
