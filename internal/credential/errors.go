package credential

import "errors"

var (
	// ErrPrivateKey means the app private key is missing or unparsable. Fatal at startup.
	ErrPrivateKey = errors.New("credential: app private key unavailable")
	// ErrUpstreamAuth wraps every failed assertion or token exchange.
	ErrUpstreamAuth = errors.New("credential: upstream authentication failed")
	// ErrNoInstallation means no installation covers the event's account. Not a fault.
	ErrNoInstallation = errors.New("credential: no installation for account")
	// ErrNoCredentials means neither a static token nor an app identity is configured.
	ErrNoCredentials = errors.New("credential: no credentials configured")
)
