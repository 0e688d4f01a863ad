package webhook

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"
)

// SecurityValidator validates webhook requests
type SecurityValidator struct {
	config      SecurityConfig
	rateLimiter *rateLimiter
}

func NewSecurityValidator(config SecurityConfig) *SecurityValidator {
	return &SecurityValidator{
		config:      config,
		rateLimiter: newRateLimiter(config.RateLimitPerMin),
	}
}

// SignatureEnabled reports whether deliveries must be signed.
func (v *SecurityValidator) SignatureEnabled() bool {
	return v.config.Secret != ""
}

// Verify checks the delivery signature, preferring the SHA-256 header when sent.
// A value in the SHA-256 header must use the sha256 algorithm.
func (v *SecurityValidator) Verify(payload []byte, signature, signature256 string) error {
	if !v.SignatureEnabled() {
		return nil
	}

	sig := signature
	if signature256 != "" {
		algo, _, _ := strings.Cut(signature256, "=")
		if !strings.EqualFold(algo, "sha256") {
			return ErrInvalidSignature
		}
		sig = signature256
	}
	if !VerifySignature(payload, sig, v.config.Secret) {
		return ErrInvalidSignature
	}
	return nil
}

// VerifySignature checks a "sha1=<hex>" or "sha256=<hex>" HMAC of body.
// Prefix and hex are compared case-insensitively. An empty secret disables verification.
func VerifySignature(body []byte, signature, secret string) bool {
	if secret == "" {
		return true
	}

	algo, sigHex, ok := strings.Cut(signature, "=")
	if !ok {
		return false
	}

	var newHash func() hash.Hash
	switch strings.ToLower(algo) {
	case "sha1":
		newHash = sha1.New
	case "sha256":
		newHash = sha256.New
	default:
		return false
	}

	// Decoding first lets hmac.Equal compare bytes in constant time whatever the hex case.
	expected, err := hex.DecodeString(sigHex)
	if err != nil {
		return false
	}

	mac := hmac.New(newHash, []byte(secret))
	mac.Write(body)
	return hmac.Equal(expected, mac.Sum(nil))
}

// ValidateIPAddress checks if request IP is whitelisted
func (v *SecurityValidator) ValidateIPAddress(r *http.Request) error {
	if len(v.config.AllowedIPs) == 0 {
		return nil // No IP restriction
	}

	ip := extractIP(r)
	parsed := net.ParseIP(ip)

	for _, allowedIP := range v.config.AllowedIPs {
		if ip == allowedIP {
			return nil
		}

		// Check CIDR range
		if strings.Contains(allowedIP, "/") {
			_, ipNet, err := net.ParseCIDR(allowedIP)
			if err != nil {
				continue
			}
			if parsed != nil && ipNet.Contains(parsed) {
				return nil
			}
		}
	}

	return fmt.Errorf("%w: %s", ErrForbiddenSource, ip)
}

// CheckRateLimit enforces rate limiting
func (v *SecurityValidator) CheckRateLimit(source string) error {
	return v.rateLimiter.Allow(source)
}

// extractIP extracts client IP from request
func extractIP(r *http.Request) string {
	// Check X-Forwarded-For header (proxy/load balancer)
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		return strings.TrimSpace(ips[0])
	}

	// Check X-Real-IP header
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	// Fallback to RemoteAddr
	ip, _, _ := net.SplitHostPort(r.RemoteAddr)
	return ip
}

// rateLimiter keeps one token bucket per source, dropping idle ones.
type rateLimiter struct {
	limiters *expirable.LRU[string, *rate.Limiter]
	rate     rate.Limit
	burst    int
}

func newRateLimiter(requestsPerMin int) *rateLimiter {
	rl := &rateLimiter{
		limiters: expirable.NewLRU[string, *rate.Limiter](
			1000,          // Max 1000 unique sources
			nil,           // No eviction callback
			time.Minute*5, // TTL: 5 minutes
		),
		rate:  rate.Inf,
		burst: 1,
	}
	if requestsPerMin > 0 {
		rl.rate = rate.Limit(float64(requestsPerMin) / 60.0)
		rl.burst = max(requestsPerMin/10, 1)
	}
	return rl
}

func (rl *rateLimiter) Allow(key string) error {
	limiter, ok := rl.limiters.Get(key)
	if !ok {
		limiter = rate.NewLimiter(rl.rate, rl.burst)
		rl.limiters.Add(key, limiter)
	}

	if !limiter.Allow() {
		return fmt.Errorf("%w for %s", ErrRateLimited, key)
	}
	return nil
}
