package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all service configuration.
type Config struct {
	// Environment
	Environment EnvironmentConfig

	// Server
	HTTPServer HTTPServerConfig
	Logger     LoggerConfig

	// Relay
	Webhook     WebhookConfig
	GitHub      GitHubConfig
	Status      StatusConfig
	PullRequest PullRequestConfig
	Graph       GraphConfig
	Batches     BatchesConfig
}

type EnvironmentConfig struct {
	Name string
}

type HTTPServerConfig struct {
	Port            int
	Mode            string
	ShutdownTimeout time.Duration
}

type LoggerConfig struct {
	Level        string
	Mode         string
	Encoding     string
	ColorEnabled bool
}

type WebhookConfig struct {
	Secret            string
	AllowInsecure     bool // accept unsigned deliveries in production
	AllowedIPs        []string
	RateLimitPerMin   int
	DedupWindow       time.Duration
	ProcessingTimeout time.Duration
	MaxBodyBytes      int64
}

// GitHubConfig selects the credential mode. A token alone means static mode,
// an app id with a key means app mode; both may be set.
type GitHubConfig struct {
	BaseURL               string
	Token                 string
	AppID                 int64
	PrivateKeyPath        string
	DefaultInstallationID int64
	TokenRefreshMargin    time.Duration
	InstallationCacheTTL  time.Duration
	Timeout               time.Duration
}

type StatusConfig struct {
	Context    string
	CIPrefixes []string
}

type PullRequestConfig struct {
	AwaitResults bool
	MaxWait      time.Duration
	PollInterval time.Duration
	BatchGrace   time.Duration
}

type GraphConfig struct {
	MaxDuration     time.Duration
	MaxSteps        int
	CommitCacheSize int
	CommitCacheTTL  time.Duration
}

type BatchesConfig struct {
	BaseURL     string
	AppURL      string // UI root for status links; defaults to BaseURL
	Credentials string
	Timeout     time.Duration
	MaxRetries  int
}

// Load loads configuration using Viper.
// Config file name: config.yaml, searched in ./config, ., /etc/app/
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/app/")

	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)
	if err := bindLegacyEnv(v); err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := &Config{}

	// Environment & Server
	cfg.Environment.Name = v.GetString("environment.name")
	cfg.HTTPServer.Port = v.GetInt("http_server.port")
	cfg.HTTPServer.Mode = v.GetString("http_server.mode")
	cfg.HTTPServer.ShutdownTimeout = v.GetDuration("http_server.shutdown_timeout")
	cfg.Logger.Level = v.GetString("logger.level")
	cfg.Logger.Mode = v.GetString("logger.mode")
	cfg.Logger.Encoding = v.GetString("logger.encoding")
	cfg.Logger.ColorEnabled = v.GetBool("logger.color_enabled")

	// Webhooks
	cfg.Webhook.Secret = v.GetString("webhook.secret")
	cfg.Webhook.AllowInsecure = v.GetBool("webhook.allow_insecure")
	cfg.Webhook.AllowedIPs = stringList(v, "webhook.allowed_ips")
	cfg.Webhook.RateLimitPerMin = v.GetInt("webhook.rate_limit_per_min")
	cfg.Webhook.DedupWindow = v.GetDuration("webhook.dedup_window")
	cfg.Webhook.ProcessingTimeout = v.GetDuration("webhook.processing_timeout")
	cfg.Webhook.MaxBodyBytes = v.GetInt64("webhook.max_body_bytes")

	// GitHub
	cfg.GitHub.BaseURL = v.GetString("github.base_url")
	cfg.GitHub.Token = v.GetString("github.token")
	cfg.GitHub.AppID = v.GetInt64("github.app_id")
	cfg.GitHub.PrivateKeyPath = v.GetString("github.private_key_path")
	cfg.GitHub.DefaultInstallationID = v.GetInt64("github.default_installation_id")
	cfg.GitHub.TokenRefreshMargin = v.GetDuration("github.token_refresh_margin")
	cfg.GitHub.InstallationCacheTTL = v.GetDuration("github.installation_cache_ttl")
	cfg.GitHub.Timeout = v.GetDuration("github.timeout")

	// Status reporting
	cfg.Status.Context = v.GetString("status.context")
	cfg.Status.CIPrefixes = stringList(v, "status.ci_prefixes")
	cfg.PullRequest.AwaitResults = v.GetBool("pull_request.await_results")
	cfg.PullRequest.MaxWait = v.GetDuration("pull_request.max_wait")
	cfg.PullRequest.PollInterval = v.GetDuration("pull_request.poll_interval")
	cfg.PullRequest.BatchGrace = v.GetDuration("pull_request.batch_grace")

	// Commit graph
	cfg.Graph.MaxDuration = v.GetDuration("graph.max_duration")
	cfg.Graph.MaxSteps = v.GetInt("graph.max_steps")
	cfg.Graph.CommitCacheSize = v.GetInt("graph.commit_cache_size")
	cfg.Graph.CommitCacheTTL = v.GetDuration("graph.commit_cache_ttl")

	// Batch service
	cfg.Batches.BaseURL = strings.TrimSuffix(v.GetString("batches.base_url"), "/")
	cfg.Batches.AppURL = strings.TrimSuffix(v.GetString("batches.app_url"), "/")
	if cfg.Batches.AppURL == "" {
		cfg.Batches.AppURL = cfg.Batches.BaseURL
	}
	cfg.Batches.Credentials = v.GetString("batches.credentials")
	cfg.Batches.Timeout = v.GetDuration("batches.timeout")
	cfg.Batches.MaxRetries = v.GetInt("batches.max_retries")

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment.name", "development")
	v.SetDefault("http_server.port", 8080)
	v.SetDefault("http_server.mode", "debug")
	v.SetDefault("http_server.shutdown_timeout", "30s")
	v.SetDefault("logger.level", "debug")
	v.SetDefault("logger.mode", "debug")
	v.SetDefault("logger.encoding", "console")
	v.SetDefault("logger.color_enabled", true)

	v.SetDefault("webhook.rate_limit_per_min", 600)
	v.SetDefault("webhook.dedup_window", "10m")
	v.SetDefault("webhook.processing_timeout", "2m")
	v.SetDefault("webhook.max_body_bytes", 25<<20)

	v.SetDefault("github.token_refresh_margin", "5m")
	v.SetDefault("github.installation_cache_ttl", "10m")
	v.SetDefault("github.timeout", "10s")

	v.SetDefault("status.context", "tests/visual")
	v.SetDefault("status.ci_prefixes", "continuous-integration/,ci/")
	v.SetDefault("pull_request.await_results", true)
	v.SetDefault("pull_request.max_wait", "10m")
	v.SetDefault("pull_request.poll_interval", "5s")
	v.SetDefault("pull_request.batch_grace", "1m")

	v.SetDefault("graph.max_duration", "20s")
	v.SetDefault("graph.max_steps", 500)
	v.SetDefault("graph.commit_cache_size", 4096)
	v.SetDefault("graph.commit_cache_ttl", "1h")

	v.SetDefault("batches.timeout", "10s")
	v.SetDefault("batches.max_retries", 3)
}

// bindLegacyEnv keeps deployments that predate the YAML layout working.
func bindLegacyEnv(v *viper.Viper) error {
	legacy := map[string]string{
		"webhook.secret":          "GITHUB_APPLITOOLS_SECRET_WEBHOOK_TOKEN",
		"github.private_key_path": "GITHUB_APPLITOOLS_PEM_FILE_PATH",
		"batches.credentials":     "APPLITOOLS_SERVER_CREDENTIALS",
	}
	for key, env := range legacy {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("binding %s: %w", env, err)
		}
	}
	return nil
}

// stringList reads a YAML list or a comma separated string from env.
func stringList(v *viper.Viper, key string) []string {
	raw, ok := v.Get(key).(string)
	if !ok {
		return v.GetStringSlice(key)
	}

	var out []string
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

func (cfg *Config) validate() error {
	if cfg.Webhook.Secret == "" && cfg.Environment.Name == "production" && !cfg.Webhook.AllowInsecure {
		return errors.New("webhook.secret is required in production (set webhook.allow_insecure to override)")
	}

	if cfg.GitHub.Token == "" && cfg.GitHub.AppID == 0 {
		return errors.New("no GitHub credentials: set github.token or github.app_id with github.private_key_path")
	}
	if cfg.GitHub.AppID != 0 && cfg.GitHub.PrivateKeyPath == "" {
		return errors.New("github.app_id requires github.private_key_path")
	}
	if cfg.GitHub.AppID == 0 && cfg.GitHub.PrivateKeyPath != "" && cfg.GitHub.Token == "" {
		return errors.New("github.private_key_path requires github.app_id")
	}

	if cfg.Batches.BaseURL == "" {
		return errors.New("batches.base_url is required")
	}
	if cfg.Graph.MaxSteps <= 0 {
		return fmt.Errorf("graph.max_steps must be positive, got %d", cfg.Graph.MaxSteps)
	}
	return nil
}
