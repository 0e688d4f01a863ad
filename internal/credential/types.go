package credential

import (
	"net/http"
	"time"

	"k8s.io/utils/clock"
)

// Mode selects how API calls are authenticated.
type Mode int

const (
	// ModeStatic uses a pre-issued long-lived token.
	ModeStatic Mode = iota + 1
	// ModeApp uses an installation token minted from the app's signed assertion.
	ModeApp
)

func (m Mode) String() string {
	switch m {
	case ModeStatic:
		return "static"
	case ModeApp:
		return "app"
	}
	return "unknown"
}

// Identity is the resolved credential for one event.
type Identity struct {
	Mode           Mode
	InstallationID int64 // set in ModeApp only
}

// Config configures the Broker. Static token and app identity may both be set;
// the app identity wins whenever an installation can be resolved.
type Config struct {
	// BaseURL is the GitHub API root. Empty means api.github.com.
	BaseURL string

	Token string

	AppID                 int64
	PrivateKey            []byte // PEM, PKCS#1 or PKCS#8
	DefaultInstallationID int64

	// RefreshMargin is how long before expiry a cached token is replaced.
	RefreshMargin time.Duration
	// InstallationCacheTTL bounds how long an owner -> installation lookup is reused.
	InstallationCacheTTL time.Duration
	// Timeout applies to every exchange call.
	Timeout time.Duration

	Transport http.RoundTripper
	Clock     clock.PassiveClock
}

// accessToken is an installation token. It never leaves this package.
type accessToken struct {
	token     string
	expiresAt time.Time
}

const (
	defaultRefreshMargin        = 5 * time.Minute
	defaultInstallationCacheTTL = 10 * time.Minute
	defaultTimeout              = 10 * time.Second

	// assertionLifetime stays under GitHub's 10 minute ceiling.
	assertionLifetime = 9 * time.Minute
	// assertionSkew backdates iat to absorb clock drift with GitHub.
	assertionSkew = 60 * time.Second
	// assertionEarlyExpiry makes the reused app session re-mint before GitHub rejects it.
	assertionEarlyExpiry = time.Minute
)
