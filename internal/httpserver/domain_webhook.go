package httpserver

import (
	"context"

	"github.com/gin-gonic/gin"
)

// setupWebhookDomain registers the GitHub delivery endpoint.
// /api/github is kept for hooks configured against the older path.
func (srv HTTPServer) setupWebhookDomain(ctx context.Context, rg *gin.RouterGroup) error {
	rg.POST("/webhook/github", srv.webhookHandler.HandleGitHubWebhook)
	rg.POST("/api/github", srv.webhookHandler.HandleGitHubWebhook)

	srv.l.Infof(ctx, "GitHub webhook routes registered at POST /webhook/github and POST /api/github")
	return nil
}
