package services

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"stackwarden/internal/logger"
	"stackwarden/internal/models"
)

// alertHistorySize bounds the in-memory alert ring served over the API.
const alertHistorySize = 100

// Sink receives alerts accepted by the notifier. Implementations must not
// assume delivery ordering across services.
type Sink interface {
	Deliver(models.Alert)
}

// LogSink writes alerts to the application log.
type LogSink struct{}

func (LogSink) Deliver(a models.Alert) {
	switch a.Severity {
	case models.SeverityCritical:
		logger.Errorf("ALERT [%s] %s: %s", a.Service, a.Reason, a.Detail)
	default:
		logger.Warnf("ALERT [%s] %s: %s", a.Service, a.Reason, a.Detail)
	}
}

// Notifier is the notification sink. Notify is fire-and-forget: it never
// blocks the caller, and identical alerts for one service inside the dedup
// window are suppressed to avoid alert storms.
type Notifier struct {
	window time.Duration
	sinks  []Sink

	mu       sync.Mutex
	closed   bool
	lastSent map[string]time.Time
	history  []models.Alert

	queue chan models.Alert
	done  chan struct{}
}

func NewNotifier(window time.Duration, sinks ...Sink) *Notifier {
	n := &Notifier{
		window:   window,
		sinks:    sinks,
		lastSent: make(map[string]time.Time),
		queue:    make(chan models.Alert, 64),
		done:     make(chan struct{}),
	}
	go n.dispatch()
	return n
}

func (n *Notifier) dispatch() {
	defer close(n.done)
	for a := range n.queue {
		for _, s := range n.sinks {
			s.Deliver(a)
		}
	}
}

/**
 * Notify emits an operator alert
 * @param {string} service - Service the alert refers to
 * @param {models.AlertSeverity} severity - warning/critical
 * @param {string} reason - Dedup key; identical reasons inside the window are dropped
 * @param {string} detail - Free-form context, typically the last probe output
 * @description
 * - Never blocks: when the delivery queue is full the alert is dropped
 *   with a log line instead of stalling a probe loop
 * - A closed notifier discards alerts, so stragglers racing the shutdown
 *   are harmless
 */
func (n *Notifier) Notify(service string, severity models.AlertSeverity, reason, detail string) {
	key := service + "|" + reason
	now := time.Now()

	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return
	}
	if last, ok := n.lastSent[key]; ok && now.Sub(last) < n.window {
		n.mu.Unlock()
		return
	}
	n.lastSent[key] = now
	a := models.Alert{
		ID:       uuid.NewString(),
		Service:  service,
		Severity: severity,
		Reason:   reason,
		Detail:   detail,
		At:       now,
	}
	n.history = append(n.history, a)
	if len(n.history) > alertHistorySize {
		n.history = n.history[len(n.history)-alertHistorySize:]
	}
	// The send happens under the lock so Close can never shut the queue
	// between the closed check and the send.
	sent := false
	select {
	case n.queue <- a:
		sent = true
	default:
	}
	n.mu.Unlock()

	RecordAlert(service, severity)
	if !sent {
		logger.Warnf("alert queue full, dropping alert for service [%s]: %s", service, reason)
	}
}

// Alerts returns a copy of the recent alert history, newest last.
func (n *Notifier) Alerts() []models.Alert {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]models.Alert, len(n.history))
	copy(out, n.history)
	return out
}

// Close stops the dispatcher after draining queued alerts. Safe to call
// more than once; later Notify calls become no-ops.
func (n *Notifier) Close() {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return
	}
	n.closed = true
	n.mu.Unlock()
	close(n.queue)
	<-n.done
}
