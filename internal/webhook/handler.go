package webhook

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"status-relay/internal/credential"
	"status-relay/internal/scm"
	"status-relay/internal/status"
	pkgErrors "status-relay/pkg/errors"
	pkgResponse "status-relay/pkg/response"
)

// HandleGitHubWebhook processes GitHub webhook events
// @Summary      Receive a GitHub webhook delivery
// @Description  Verifies the signature, parses the event and publishes commit statuses.
// @Tags         webhook
// @Accept       json
// @Produce      json
// @Param        X-GitHub-Event       header  string  true   "Event type"
// @Param        X-Hub-Signature      header  string  false  "sha1=<hex> HMAC of the body"
// @Param        X-Hub-Signature-256  header  string  false  "sha256=<hex> HMAC of the body"
// @Success      200  {object}  response.Resp
// @Success      202  {object}  response.Resp
// @Failure      400  {object}  response.Resp
// @Failure      401  {object}  response.Resp
// @Failure      502  {object}  response.Resp
// @Router       /webhook/github [post]
func (h *Handler) HandleGitHubWebhook(c *gin.Context) {
	ctx := c.Request.Context()

	if err := h.security.ValidateIPAddress(c.Request); err != nil {
		h.l.Warnf(ctx, "internal.webhook.HandleGitHubWebhook: %v", err)
		pkgResponse.HTTPError(c, h.mapError(err))
		return
	}

	if err := h.security.CheckRateLimit(c.ClientIP()); err != nil {
		h.l.Warnf(ctx, "internal.webhook.HandleGitHubWebhook: %v", err)
		pkgResponse.HTTPError(c, h.mapError(err))
		return
	}

	// Read body
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, h.maxBodyBytes+1))
	if err != nil {
		h.l.Errorf(ctx, "internal.webhook.HandleGitHubWebhook: failed to read body: %v", err)
		pkgResponse.Error(c, err, nil)
		return
	}
	if int64(len(body)) > h.maxBodyBytes {
		pkgResponse.HTTPError(c, h.mapError(ErrPayloadTooLarge))
		return
	}

	// A client hanging up must not abort a status write already in flight.
	procCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), h.processingTimeout)
	defer cancel()

	outcome, err := h.router.Route(procCtx, Delivery{
		Event:        c.GetHeader(HeaderEvent),
		Signature:    c.GetHeader(HeaderSignature),
		Signature256: c.GetHeader(HeaderSignature256),
		DeliveryID:   c.GetHeader(HeaderDelivery),
		Body:         body,
	})
	if err != nil {
		pkgResponse.HTTPError(c, h.mapError(err))
		return
	}

	data := gin.H{"outcome": outcome.String()}
	if outcome == OutcomeAccepted {
		pkgResponse.Accepted(c, data)
		return
	}
	pkgResponse.OK(c, data)
}

// mapError translates routing and use-case errors into HTTP errors from pkg/errors.
// Messages stay generic so a rejected caller learns nothing about the secret or upstream.
func (h *Handler) mapError(err error) error {
	switch {
	case errors.Is(err, ErrInvalidSignature):
		return pkgErrors.NewHTTPError(http.StatusUnauthorized, "invalid signature")
	case errors.Is(err, ErrMissingEvent):
		return pkgErrors.NewHTTPError(http.StatusBadRequest, "missing "+HeaderEvent+" header")
	case errors.Is(err, ErrUnknownEvent):
		return pkgErrors.NewHTTPError(http.StatusBadRequest, "unsupported event type")
	case errors.Is(err, ErrMalformedPayload), errors.Is(err, status.ErrMissingSHA):
		return pkgErrors.NewHTTPError(http.StatusBadRequest, "malformed payload")
	case errors.Is(err, ErrPayloadTooLarge):
		return pkgErrors.NewHTTPError(http.StatusRequestEntityTooLarge, "payload too large")
	case errors.Is(err, ErrRateLimited):
		return pkgErrors.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
	case errors.Is(err, ErrForbiddenSource):
		return pkgErrors.NewHTTPError(http.StatusForbidden, "forbidden")
	case errors.Is(err, credential.ErrUpstreamAuth):
		return pkgErrors.NewHTTPError(http.StatusBadGateway, "upstream authentication failed")
	case errors.Is(err, scm.ErrStatusWrite):
		return pkgErrors.NewHTTPError(http.StatusBadGateway, "status write failed")
	default:
		return pkgErrors.ErrInternalServerError
	}
}
