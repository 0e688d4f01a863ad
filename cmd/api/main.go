package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"status-relay/config"
	_ "status-relay/docs" // Swagger docs
	"status-relay/internal/credential"
	"status-relay/internal/graph"
	"status-relay/internal/httpserver"
	"status-relay/internal/scm"
	"status-relay/internal/status"
	"status-relay/internal/status/usecase"
	"status-relay/internal/webhook"
	"status-relay/pkg/batches"
	"status-relay/pkg/log"
)

// @title       Status Relay API
// @description Receives GitHub webhooks and publishes visual test results as commit statuses.
// @version     1
// @host        localhost:8080
// @schemes     http
func main() {
	// 1. Configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Failed to load config: ", err)
		os.Exit(1)
	}

	// 2. Logger
	logger := log.Init(log.ZapConfig{
		Level:        cfg.Logger.Level,
		Mode:         cfg.Logger.Mode,
		Encoding:     cfg.Logger.Encoding,
		ColorEnabled: cfg.Logger.ColorEnabled,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info(ctx, "Starting status relay...")
	logger.Infof(ctx, "Environment: %s", cfg.Environment.Name)

	// 3. Credential broker
	credCfg := credential.Config{
		BaseURL:               cfg.GitHub.BaseURL,
		Token:                 cfg.GitHub.Token,
		AppID:                 cfg.GitHub.AppID,
		DefaultInstallationID: cfg.GitHub.DefaultInstallationID,
		RefreshMargin:         cfg.GitHub.TokenRefreshMargin,
		InstallationCacheTTL:  cfg.GitHub.InstallationCacheTTL,
		Timeout:               cfg.GitHub.Timeout,
	}
	if cfg.GitHub.AppID != 0 {
		credCfg.PrivateKey, err = os.ReadFile(cfg.GitHub.PrivateKeyPath)
		if err != nil {
			logger.Fatalf(ctx, "Failed to read GitHub App private key: %v", err)
		}
	}
	broker, err := credential.New(logger, credCfg)
	if err != nil {
		logger.Fatalf(ctx, "Failed to initialize credential broker: %v", err)
	}
	if cfg.GitHub.AppID != 0 {
		logger.Infof(ctx, "GitHub App mode enabled (app id %d)", cfg.GitHub.AppID)
	}
	if cfg.GitHub.Token != "" {
		logger.Info(ctx, "GitHub static token mode enabled")
	}

	// 4. Status reporter
	github := scm.New(logger, broker, scm.Config{
		BaseURL:         cfg.GitHub.BaseURL,
		CommitCacheSize: cfg.Graph.CommitCacheSize,
		CommitCacheTTL:  cfg.Graph.CommitCacheTTL,
	})
	batchClient := batches.NewClient(batches.Config{
		BaseURL:     cfg.Batches.BaseURL,
		Credentials: cfg.Batches.Credentials,
		Timeout:     cfg.Batches.Timeout,
		MaxRetries:  uint64(cfg.Batches.MaxRetries),
	})
	resolver := graph.New(logger, graph.Config{
		MaxDuration: cfg.Graph.MaxDuration,
		MaxSteps:    cfg.Graph.MaxSteps,
	})
	statusUC := usecase.New(logger, status.Config{
		Context:      cfg.Status.Context,
		CIPrefixes:   cfg.Status.CIPrefixes,
		AppURL:       cfg.Batches.AppURL,
		AwaitResults: cfg.PullRequest.AwaitResults,
		MaxWait:      cfg.PullRequest.MaxWait,
		PollInterval: cfg.PullRequest.PollInterval,
		BatchGrace:   cfg.PullRequest.BatchGrace,
	}, broker, github, batchClient, resolver)

	// 5. Webhook delivery
	webhookHandler := webhook.NewHandler(statusUC, webhook.Config{
		Security: webhook.SecurityConfig{
			Secret:          cfg.Webhook.Secret,
			AllowedIPs:      cfg.Webhook.AllowedIPs,
			RateLimitPerMin: cfg.Webhook.RateLimitPerMin,
		},
		DedupWindow:       cfg.Webhook.DedupWindow,
		ProcessingTimeout: cfg.Webhook.ProcessingTimeout,
		MaxBodyBytes:      cfg.Webhook.MaxBodyBytes,
	}, logger)

	// 6. HTTP Server
	httpServer, err := httpserver.New(logger, httpserver.Config{
		Logger:          logger,
		Port:            cfg.HTTPServer.Port,
		Mode:            cfg.HTTPServer.Mode,
		Environment:     cfg.Environment.Name,
		ShutdownTimeout: cfg.HTTPServer.ShutdownTimeout,
		WebhookHandler:  webhookHandler,
		Pending:         statusUC,
	})
	if err != nil {
		logger.Error(ctx, "Failed to initialize HTTP server: ", err)
		os.Exit(1)
	}

	// 7. Run
	if err := httpServer.Run(ctx); err != nil {
		logger.Error(ctx, "Failed to run server: ", err)
		os.Exit(1)
	}

	logger.Info(ctx, "Server stopped gracefully")
}
