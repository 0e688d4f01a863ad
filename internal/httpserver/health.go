package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"status-relay/pkg/response"
)

// Health response constants (single source for version and service identity).
const (
	HealthMessage = "GitHub commit status relay"
	HealthVersion = "1.0.0"
	ServiceName   = "status-relay"
)

func healthBody(status string) gin.H {
	return gin.H{
		"status":  status,
		"message": HealthMessage,
		"version": HealthVersion,
		"service": ServiceName,
	}
}

// healthCheck handles health check requests
// @Summary Health Check
// @Description Check if the relay is healthy
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]interface{} "Relay is healthy"
// @Router /health [get]
func (srv HTTPServer) healthCheck(c *gin.Context) {
	response.OK(c, healthBody("healthy"))
}

// readyCheck reports ready until shutdown begins, so load balancers stop
// sending deliveries while pending status writes drain.
// @Summary Readiness Check
// @Description Check if the relay accepts deliveries
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]interface{} "Relay is ready"
// @Failure 503 {object} map[string]interface{} "Relay is draining"
// @Router /ready [get]
func (srv HTTPServer) readyCheck(c *gin.Context) {
	if srv.draining.Load() {
		c.JSON(http.StatusServiceUnavailable, response.Resp{
			ErrorCode: http.StatusServiceUnavailable,
			Message:   "draining",
			Data:      healthBody("draining"),
		})
		return
	}
	response.OK(c, healthBody("ready"))
}

// liveCheck handles liveness check requests
// @Summary Liveness Check
// @Description Check if the relay process is alive
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]interface{} "Relay is alive"
// @Router /live [get]
func (srv HTTPServer) liveCheck(c *gin.Context) {
	response.OK(c, healthBody("alive"))
}
