// Package notifier provides notification dispatching for alerts.
package notifier

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/good-yellow-bee/firewatch/internal/metrics"
	"github.com/good-yellow-bee/firewatch/internal/models"
	"github.com/good-yellow-bee/firewatch/internal/settings"
	"github.com/good-yellow-bee/firewatch/internal/stats"
)

// Notifier sends a single outbound alert for an incident.
type Notifier interface {
	// Notify returns true only on channel-confirmed acceptance. Errors are
	// logged and swallowed into false; they never reach the intake path.
	Notify(ctx context.Context, cfg settings.Settings, incident *models.Incident) bool
}

// Dispatcher wraps a channel sender with the shared sent-counter and a
// global rate limit. The counter is incremented before the send attempt
// and decremented on confirmed failure, so its drained value counts only
// deliveries not locally known to have failed.
type Dispatcher struct {
	sender  Notifier
	sent    *stats.Counter
	limiter *rate.Limiter
}

// The default notification budget: sustained one alert per two seconds
// with a small burst.
const (
	defaultAlertRate  = rate.Limit(0.5)
	defaultAlertBurst = 5
)

// NewDispatcher creates a dispatcher around the given channel sender.
func NewDispatcher(sender Notifier, sent *stats.Counter) *Dispatcher {
	return &Dispatcher{
		sender:  sender,
		sent:    sent,
		limiter: rate.NewLimiter(defaultAlertRate, defaultAlertBurst),
	}
}

// Notify applies the rate limit, tracks the attempt, and delegates to the
// channel sender.
func (d *Dispatcher) Notify(ctx context.Context, cfg settings.Settings, incident *models.Incident) bool {
	if !d.limiter.Allow() {
		metrics.NotificationsTotal.WithLabelValues("rate_limited").Inc()
		return false
	}

	d.sent.Inc()
	if !d.sender.Notify(ctx, cfg, incident) {
		d.sent.Dec()
		metrics.NotificationsTotal.WithLabelValues("failed").Inc()
		return false
	}

	metrics.NotificationsTotal.WithLabelValues("sent").Inc()
	return true
}
