package credential

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/go-github/v68/github"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/oauth2"
	"k8s.io/utils/clock"

	"status-relay/internal/metrics"
	"status-relay/internal/model"
	pkgLog "status-relay/pkg/log"
)

const installationCacheSize = 1024

// Broker obtains credentials for GitHub API calls on behalf of an event.
type Broker struct {
	l       pkgLog.Logger
	cfg     Config
	base    http.RoundTripper
	static  oauth2.TokenSource
	app     *github.Client // authenticated with the app assertion, nil in static-only setups
	cache   *TokenCache
	byOwner *expirable.LRU[int64, model.Installation]
}

// New builds a Broker. A configured but unreadable private key fails with ErrPrivateKey.
func New(l pkgLog.Logger, cfg Config) (*Broker, error) {
	if cfg.Token == "" && cfg.AppID == 0 {
		return nil, ErrNoCredentials
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.RealClock{}
	}
	if cfg.RefreshMargin <= 0 {
		cfg.RefreshMargin = defaultRefreshMargin
	}
	if cfg.InstallationCacheTTL <= 0 {
		cfg.InstallationCacheTTL = defaultInstallationCacheTTL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	base := cfg.Transport
	if base == nil {
		base = http.DefaultTransport
	}

	b := &Broker{
		l:       l,
		cfg:     cfg,
		base:    base,
		cache:   NewTokenCache(cfg.Clock, cfg.RefreshMargin),
		byOwner: expirable.NewLRU[int64, model.Installation](installationCacheSize, nil, cfg.InstallationCacheTTL),
	}

	if cfg.Token != "" {
		b.static = oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token, TokenType: "token"})
	}

	if cfg.AppID != 0 {
		key, err := ParsePrivateKey(cfg.PrivateKey)
		if err != nil {
			return nil, err
		}
		session := oauth2.ReuseTokenSourceWithExpiry(nil, &assertionSource{
			appID: cfg.AppID,
			key:   key,
			clock: cfg.Clock,
		}, assertionEarlyExpiry)

		app, err := NewGitHubClient(cfg.BaseURL, &http.Client{
			Transport: &oauth2.Transport{Source: session, Base: base},
			Timeout:   cfg.Timeout,
		})
		if err != nil {
			return nil, err
		}
		b.app = app
	}

	return b, nil
}

// Resolve picks the identity for an event. The installation named by the
// event wins, then the static token, then the configured default installation,
// then the installation owning the repository's account.
func (b *Broker) Resolve(ctx context.Context, ev model.WebhookEvent) (Identity, error) {
	if ref := ev.Installation(); ref != nil && ref.ID != 0 && b.app != nil {
		return Identity{Mode: ModeApp, InstallationID: ref.ID}, nil
	}
	if b.static != nil {
		return Identity{Mode: ModeStatic}, nil
	}
	if b.cfg.DefaultInstallationID != 0 {
		return Identity{Mode: ModeApp, InstallationID: b.cfg.DefaultInstallationID}, nil
	}

	inst, ok, err := b.FindInstallation(ctx, ev.Repo().OwnerID)
	if err != nil {
		return Identity{}, err
	}
	if !ok {
		return Identity{}, fmt.Errorf("%w: %s", ErrNoInstallation, ev.Repo().Owner)
	}
	return Identity{Mode: ModeApp, InstallationID: inst.ID}, nil
}

// Token returns a currently valid token for the identity.
func (b *Broker) Token(ctx context.Context, id Identity) (*oauth2.Token, error) {
	switch id.Mode {
	case ModeStatic:
		if b.static == nil {
			return nil, ErrNoCredentials
		}
		return b.static.Token()
	case ModeApp:
		if b.app == nil {
			return nil, ErrNoCredentials
		}
		tok, err := b.cache.get(ctx, id.InstallationID, func(ctx context.Context) (accessToken, error) {
			return b.mint(ctx, id.InstallationID)
		})
		if err != nil {
			return nil, err
		}
		return &oauth2.Token{AccessToken: tok.token, TokenType: "token", Expiry: tok.expiresAt}, nil
	}
	return nil, fmt.Errorf("credential: unknown mode %v", id.Mode)
}

// TokenSource binds an identity to ctx for use with oauth2.Transport.
func (b *Broker) TokenSource(ctx context.Context, id Identity) oauth2.TokenSource {
	return tokenSourceFunc(func() (*oauth2.Token, error) {
		return b.Token(ctx, id)
	})
}

// HTTPClient returns a client whose requests carry the identity's token.
func (b *Broker) HTTPClient(ctx context.Context, id Identity) *http.Client {
	return &http.Client{
		Transport: &oauth2.Transport{Source: b.TokenSource(ctx, id), Base: b.base},
		Timeout:   b.cfg.Timeout,
	}
}

// Invalidate forgets the cached token so the next call mints a new one.
// Static identities have nothing to forget.
func (b *Broker) Invalidate(id Identity) {
	if id.Mode == ModeApp {
		b.cache.Invalidate(id.InstallationID)
	}
}

// FindInstallation looks up the installation owning accountID.
func (b *Broker) FindInstallation(ctx context.Context, accountID int64) (model.Installation, bool, error) {
	if b.app == nil {
		return model.Installation{}, false, ErrNoCredentials
	}
	if inst, ok := b.byOwner.Get(accountID); ok {
		return inst, true, nil
	}

	opts := &github.ListOptions{PerPage: 100}
	var found model.Installation
	var ok bool
	for {
		page, resp, err := b.app.Apps.ListInstallations(ctx, opts)
		if err != nil {
			return model.Installation{}, false, fmt.Errorf("%w: listing installations: %w", ErrUpstreamAuth, err)
		}
		for _, gi := range page {
			inst := model.Installation{
				ID:           gi.GetID(),
				AccountID:    gi.GetAccount().GetID(),
				AccountLogin: gi.GetAccount().GetLogin(),
			}
			b.byOwner.Add(inst.AccountID, inst)
			if inst.AccountID == accountID {
				found, ok = inst, true
			}
		}
		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return found, ok, nil
}

func (b *Broker) mint(ctx context.Context, installationID int64) (accessToken, error) {
	ctx, cancel := context.WithTimeout(ctx, b.cfg.Timeout)
	defer cancel()

	tok, _, err := b.app.Apps.CreateInstallationToken(ctx, installationID, nil)
	metrics.TokenMints.WithLabelValues(metrics.Result(err)).Inc()
	if err != nil {
		b.l.Errorf(ctx, "internal.credential.mint: installation=%d: %v", installationID, err)
		return accessToken{}, fmt.Errorf("%w: installation %d: %w", ErrUpstreamAuth, installationID, err)
	}
	if tok.GetToken() == "" {
		return accessToken{}, fmt.Errorf("%w: installation %d: empty token", ErrUpstreamAuth, installationID)
	}

	b.l.Debugf(ctx, "internal.credential.mint: installation=%d expires=%s", installationID, tok.GetExpiresAt().Time)
	return accessToken{token: tok.GetToken(), expiresAt: tok.GetExpiresAt().Time}, nil
}

type tokenSourceFunc func() (*oauth2.Token, error)

func (f tokenSourceFunc) Token() (*oauth2.Token, error) { return f() }

// NewGitHubClient builds a go-github client, switching to enterprise URLs
// when baseURL points somewhere other than the public API.
func NewGitHubClient(baseURL string, hc *http.Client) (*github.Client, error) {
	client := github.NewClient(hc)
	if baseURL == "" || strings.TrimSuffix(baseURL, "/") == "https://api.github.com" {
		return client, nil
	}
	client, err := client.WithEnterpriseURLs(baseURL, baseURL)
	if err != nil {
		return nil, fmt.Errorf("credential: github base url: %w", err)
	}
	return client, nil
}

// IsUpstreamAuth reports whether err came from a failed credential exchange.
func IsUpstreamAuth(err error) bool {
	return errors.Is(err, ErrUpstreamAuth)
}
