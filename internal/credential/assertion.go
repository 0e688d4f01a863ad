package credential

import (
	"crypto/rsa"
	"fmt"
	"strconv"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/oauth2"
	"k8s.io/utils/clock"
)

// ParsePrivateKey decodes a PEM encoded RSA key (PKCS#1 or PKCS#8).
func ParsePrivateKey(pemData []byte) (*rsa.PrivateKey, error) {
	if len(pemData) == 0 {
		return nil, fmt.Errorf("%w: empty key", ErrPrivateKey)
	}
	key, err := jwt.ParseRSAPrivateKeyFromPEM(pemData)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPrivateKey, err)
	}
	return key, nil
}

// assertionSource mints RS256 assertions identifying the app. It is the
// application-level session: the assertion itself is the bearer credential for
// /app endpoints.
type assertionSource struct {
	appID int64
	key   *rsa.PrivateKey
	clock clock.PassiveClock
}

var _ oauth2.TokenSource = (*assertionSource)(nil)

func (s *assertionSource) Token() (*oauth2.Token, error) {
	now := s.clock.Now()
	expiresAt := now.Add(assertionLifetime)

	claims := jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(now.Add(-assertionSkew)),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		Issuer:    strconv.FormatInt(s.appID, 10),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(s.key)
	if err != nil {
		return nil, fmt.Errorf("%w: signing assertion: %v", ErrUpstreamAuth, err)
	}

	return &oauth2.Token{
		AccessToken: signed,
		TokenType:   "Bearer",
		Expiry:      expiresAt,
	}, nil
}
