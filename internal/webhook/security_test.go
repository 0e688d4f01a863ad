package webhook

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"math/rand"
	"net/http/httptest"
	"strings"
	"testing"
)

func signSHA1(body []byte, secret string) string {
	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write(body)
	return "sha1=" + hex.EncodeToString(mac.Sum(nil))
}

func signSHA256(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature_RoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 200; i++ {
		body := make([]byte, rng.Intn(512))
		rng.Read(body)
		secret := strings.Repeat("k", 1+rng.Intn(40))

		if !VerifySignature(body, signSHA1(body, secret), secret) {
			t.Fatalf("case %d: valid sha1 signature rejected", i)
		}
		if !VerifySignature(body, signSHA256(body, secret), secret) {
			t.Fatalf("case %d: valid sha256 signature rejected", i)
		}
	}
}

func TestVerifySignature_SingleBitMutations(t *testing.T) {
	body := []byte(`{"action":"opened","number":1}`)
	const secret = "s3cret"
	sig := signSHA1(body, secret)

	for i := range body {
		for bit := 0; bit < 8; bit++ {
			mutated := append([]byte(nil), body...)
			mutated[i] ^= 1 << bit
			if VerifySignature(mutated, sig, secret) {
				t.Fatalf("body mutation at byte %d bit %d accepted", i, bit)
			}
		}
	}

	raw, _ := hex.DecodeString(strings.TrimPrefix(sig, "sha1="))
	for i := range raw {
		for bit := 0; bit < 8; bit++ {
			mutated := append([]byte(nil), raw...)
			mutated[i] ^= 1 << bit
			if VerifySignature(body, "sha1="+hex.EncodeToString(mutated), secret) {
				t.Fatalf("signature mutation at byte %d bit %d accepted", i, bit)
			}
		}
	}
}

func TestVerifySignature_Edges(t *testing.T) {
	body := []byte("payload")
	const secret = "s3cret"

	tests := []struct {
		name   string
		sig    string
		secret string
		want   bool
	}{
		{"disabled accepts anything", "garbage", "", true},
		{"disabled accepts missing", "", "", true},
		{"missing signature", "", secret, false},
		{"no prefix", strings.TrimPrefix(signSHA1(body, secret), "sha1="), secret, false},
		{"unknown algorithm", "md5=" + strings.TrimPrefix(signSHA1(body, secret), "sha1="), secret, false},
		{"not hex", "sha1=zzzz", secret, false},
		{"upper case hex", "sha1=" + strings.ToUpper(strings.TrimPrefix(signSHA1(body, secret), "sha1=")), secret, true},
		{"upper case prefix and hex", strings.ToUpper(signSHA1(body, secret)), secret, true},
		{"mixed case sha256 prefix", "Sha256=" + strings.TrimPrefix(signSHA256(body, secret), "sha256="), secret, true},
		{"wrong secret", signSHA1(body, "other"), secret, false},
		{"truncated", signSHA1(body, secret)[:20], secret, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := VerifySignature(body, tt.sig, tt.secret); got != tt.want {
				t.Errorf("VerifySignature = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSecurityValidator_Verify(t *testing.T) {
	body := []byte("payload")
	v := NewSecurityValidator(SecurityConfig{Secret: "s3cret"})

	if !v.SignatureEnabled() {
		t.Fatal("expected signature verification to be enabled")
	}
	if err := v.Verify(body, signSHA1(body, "s3cret"), ""); err != nil {
		t.Errorf("sha1 only: %v", err)
	}
	if err := v.Verify(body, "sha1=bad", signSHA256(body, "s3cret")); err != nil {
		t.Errorf("sha256 should be preferred: %v", err)
	}
	if err := v.Verify(body, signSHA1(body, "s3cret"), "sha256=bad"); !errors.Is(err, ErrInvalidSignature) {
		t.Errorf("bad sha256 must not fall back to sha1, got %v", err)
	}
	if err := v.Verify(body, "", ""); !errors.Is(err, ErrInvalidSignature) {
		t.Errorf("missing signatures: %v", err)
	}
	if err := v.Verify(body, "", strings.ToUpper(signSHA256(body, "s3cret"))); err != nil {
		t.Errorf("upper case sha256 header: %v", err)
	}
	if err := v.Verify(body, "", signSHA1(body, "s3cret")); !errors.Is(err, ErrInvalidSignature) {
		t.Errorf("sha1 value in the sha256 header must be rejected, got %v", err)
	}
	if err := v.Verify(body, signSHA1(body, "s3cret"), signSHA1(body, "s3cret")); !errors.Is(err, ErrInvalidSignature) {
		t.Errorf("sha1 in the sha256 header must not fall back to the sha1 header, got %v", err)
	}
}

func TestSecurityValidator_Disabled(t *testing.T) {
	v := NewSecurityValidator(SecurityConfig{})

	if v.SignatureEnabled() {
		t.Fatal("expected signature verification to be disabled")
	}
	if err := v.Verify([]byte("payload"), "", ""); err != nil {
		t.Errorf("unsigned delivery rejected: %v", err)
	}
}

func TestValidateIPAddress(t *testing.T) {
	v := NewSecurityValidator(SecurityConfig{AllowedIPs: []string{"192.30.252.0/22", "10.0.0.5"}})

	tests := []struct {
		name    string
		remote  string
		xff     string
		wantErr bool
	}{
		{"cidr match", "192.30.252.41:443", "", false},
		{"exact match", "10.0.0.5:1234", "", false},
		{"forwarded match", "127.0.0.1:80", "192.30.253.1, 10.1.1.1", false},
		{"outside", "8.8.8.8:53", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("POST", "/webhook/github", nil)
			r.RemoteAddr = tt.remote
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			err := v.ValidateIPAddress(r)
			if tt.wantErr != (err != nil) {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrForbiddenSource) {
				t.Errorf("err = %v, want ErrForbiddenSource", err)
			}
		})
	}

	open := NewSecurityValidator(SecurityConfig{})
	if err := open.ValidateIPAddress(httptest.NewRequest("POST", "/", nil)); err != nil {
		t.Errorf("no allow-list should accept everything: %v", err)
	}
}

func TestRateLimiter(t *testing.T) {
	rl := newRateLimiter(60) // burst of 6
	for i := 0; i < 6; i++ {
		if err := rl.Allow("github"); err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
	}
	if err := rl.Allow("github"); !errors.Is(err, ErrRateLimited) {
		t.Errorf("err = %v, want ErrRateLimited", err)
	}
	if err := rl.Allow("other"); err != nil {
		t.Errorf("sources must be limited independently: %v", err)
	}

	unlimited := newRateLimiter(0)
	for i := 0; i < 100; i++ {
		if err := unlimited.Allow("x"); err != nil {
			t.Fatalf("unlimited limiter rejected request %d", i)
		}
	}
}
