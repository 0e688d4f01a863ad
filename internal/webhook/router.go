package webhook

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"status-relay/internal/metrics"
	"status-relay/internal/model"
	"status-relay/internal/status"
	pkgLog "status-relay/pkg/log"
)

// Router verifies, parses and dispatches deliveries. Nothing is dispatched
// before both the signature and the event type check out.
type Router struct {
	l        pkgLog.Logger
	security *SecurityValidator
	uc       status.UseCase
	now      func() time.Time

	mu   sync.Mutex // makes the seen check and reservation one step
	seen *expirable.LRU[string, struct{}]
}

// NewRouter creates a Router.
func NewRouter(l pkgLog.Logger, security *SecurityValidator, uc status.UseCase, dedupWindow time.Duration) *Router {
	if dedupWindow <= 0 {
		dedupWindow = defaultDedupWindow
	}
	return &Router{
		l:        l,
		security: security,
		uc:       uc,
		seen:     expirable.NewLRU[string, struct{}](dedupCacheSize, nil, dedupWindow),
		now:      time.Now,
	}
}

// Route handles one delivery end to end.
func (r *Router) Route(ctx context.Context, d Delivery) (outcome Outcome, err error) {
	defer func() {
		metrics.WebhookDeliveries.WithLabelValues(eventLabel(d.Event), outcome.String()).Inc()
	}()

	if d.Event == "" {
		return OutcomeRejected, ErrMissingEvent
	}
	if err := r.security.Verify(d.Body, d.Signature, d.Signature256); err != nil {
		r.l.Warnf(ctx, "internal.webhook.Route: delivery %s (%s): %v", d.DeliveryID, d.Event, err)
		return OutcomeRejected, err
	}

	ev, err := Parse(d.Event, d.Body, d.DeliveryID, r.now())
	if err != nil {
		r.l.Warnf(ctx, "internal.webhook.Route: delivery %s: %v", d.DeliveryID, err)
		return OutcomeRejected, err
	}

	if d.DeliveryID != "" && !r.reserve(d.DeliveryID) {
		r.l.Infof(ctx, "internal.webhook.Route: delivery %s already processed", d.DeliveryID)
		return OutcomeDuplicate, nil
	}

	outcome, err = r.dispatch(ctx, ev)
	if err != nil {
		// Release the id so GitHub's redelivery is processed.
		if d.DeliveryID != "" {
			r.seen.Remove(d.DeliveryID)
		}
		return OutcomeRejected, err
	}
	return outcome, nil
}

// reserve records id and reports whether it was new. Concurrent copies of a
// delivery see it as taken while the first one is still being dispatched.
func (r *Router) reserve(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.seen.Contains(id) {
		return false
	}
	r.seen.Add(id, struct{}{})
	return true
}

func (r *Router) dispatch(ctx context.Context, ev model.WebhookEvent) (Outcome, error) {
	var (
		res status.Result
		err error
	)
	switch e := ev.(type) {
	case model.PullRequestEvent:
		res, err = r.uc.ReportPullRequest(ctx, e)
	case model.StatusEvent:
		res, err = r.uc.ReportStatus(ctx, e)
	case model.PushEvent:
		res, err = r.uc.ReportPush(ctx, e)
	case model.PingEvent:
		r.l.Infof(ctx, "internal.webhook.dispatch: ping from hook %d: %s", e.HookID, e.Zen)
		return OutcomeIgnored, nil
	default:
		return OutcomeRejected, fmt.Errorf("%w: %T", ErrUnknownEvent, ev)
	}
	if err != nil {
		r.l.Errorf(ctx, "internal.webhook.dispatch: %s %s: %v", ev.Kind(), ev.Repo().FullName, err)
		return OutcomeRejected, err
	}

	switch res.Disposition {
	case status.DispositionWritten:
		return OutcomeHandled, nil
	case status.DispositionScheduled:
		return OutcomeAccepted, nil
	}
	r.l.Debugf(ctx, "internal.webhook.dispatch: %s %s: %s", ev.Kind(), ev.Repo().FullName, res.Reason)
	return OutcomeIgnored, nil
}

// eventLabel bounds the metric label set to known event types.
func eventLabel(event string) string {
	switch model.EventKind(event) {
	case model.EventPullRequest, model.EventPush, model.EventStatus, model.EventPing:
		return event
	case "":
		return "none"
	}
	return "other"
}
