// Package failover decides which member of an active/passive pair serves
// traffic. The passive member probes its peer's /health endpoint on a fixed
// interval and promotes itself after repeated failures.
//
// Promotion is one-way. A node that was promoted never demotes itself, even
// if the original active node comes back; the pair can therefore end up
// with two active members after a partition heals. This is a known
// limitation of health-check promotion, not something this package tries
// to resolve. The coordinator logs a warning whenever it sees it.
package failover

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dreamware/herald/internal/cluster"
	"github.com/dreamware/herald/internal/notify"
)

// Signaler wakes subscribers of a notification group.
type Signaler interface {
	Signal(name string)
}

// Options configures a Coordinator. Zero values select the defaults.
type Options struct {
	Peer        string        // Peer base URL; empty disables probing
	Interval    time.Duration // Probe interval (default 5s)
	Timeout     time.Duration // Per-probe HTTP timeout (default 2s)
	MaxFailures int           // Consecutive failures before promotion (default 3)
}

// Coordinator runs the passive-side probe loop and the manual fall/revive
// overrides.
// Thread-safe: All methods are safe for concurrent access.
type Coordinator struct {
	state       *State
	signaler    Signaler
	log         logrus.FieldLogger
	httpClient  *http.Client                                 // HTTP client for probes
	checkFunc   func(ctx context.Context, peer string) error // Performs one probe
	onPromote   func()                                       // Called after promotion
	ctx         context.Context                              // Context for cancellation
	cancel      context.CancelFunc                           // Cancel function for shutdown
	lastCheck   time.Time                                    // Time of the last probe
	peer        string
	interval    time.Duration
	timeout     time.Duration
	mu          sync.RWMutex   // Protects failure bookkeeping
	wg          sync.WaitGroup // Wait group for graceful shutdown
	maxFailures int
	fails       int // Consecutive failed probes
}

// NewCoordinator creates a coordinator for state. signaler receives the
// status group signal on fall, revive and promotion.
//
// Example:
//
//	coord := failover.NewCoordinator(state, dispatcher, log, failover.Options{
//	    Peer:     "http://primary:8080",
//	    Interval: 5 * time.Second,
//	})
//	go coord.Start(ctx)
//	defer coord.Stop()
func NewCoordinator(state *State, signaler Signaler, log logrus.FieldLogger, opts Options) *Coordinator {
	if opts.Interval <= 0 {
		opts.Interval = 5 * time.Second
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 2 * time.Second
	}
	if opts.MaxFailures <= 0 {
		opts.MaxFailures = 3
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Coordinator{
		state:       state,
		signaler:    signaler,
		log:         log.WithField("component", "failover"),
		peer:        opts.Peer,
		interval:    opts.Interval,
		timeout:     opts.Timeout,
		maxFailures: opts.MaxFailures,
		httpClient:  &http.Client{Timeout: opts.Timeout},
		ctx:         ctx,
		cancel:      cancel,
	}
	c.checkFunc = c.defaultCheck
	return c
}

// SetCheckFunction overrides the probe. Call before Start.
func (c *Coordinator) SetCheckFunction(check func(ctx context.Context, peer string) error) {
	c.checkFunc = check
}

// SetOnPromote registers a callback run after a successful promotion.
// Call before Start.
func (c *Coordinator) SetOnPromote(callback func()) {
	c.onPromote = callback
}

// Start runs the probe loop in the current goroutine until ctx or Stop
// cancels it. It returns immediately when no peer is configured.
//
// While passive, every failed probe increments the failure count and every
// successful one resets it; the count reaching MaxFailures promotes the
// node. While active, probes continue only to report a peer that also
// claims the active role.
func (c *Coordinator) Start(ctx context.Context) {
	if c.peer == "" {
		c.log.Info("no peer configured, failover disabled")
		return
	}

	c.wg.Add(1)
	defer c.wg.Done()

	if ctx == nil {
		ctx = c.ctx
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.log.WithFields(logrus.Fields{
		"peer":         c.peer,
		"interval":     c.interval,
		"max_failures": c.maxFailures,
		"role":         c.state.Role(),
	}).Info("failover coordinator started")

	c.probe(ctx)

	for {
		select {
		case <-ticker.C:
			c.probe(ctx)
		case <-ctx.Done():
			c.log.Info("failover coordinator stopping due to context cancellation")
			return
		case <-c.ctx.Done():
			c.log.Info("failover coordinator stopping due to internal cancellation")
			return
		}
	}
}

// Stop cancels the loop and waits for it to exit.
func (c *Coordinator) Stop() {
	c.cancel()
	c.wg.Wait()
}

// probe runs one health check and applies its result.
func (c *Coordinator) probe(ctx context.Context) {
	pctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	err := c.checkFunc(pctx, c.peer)

	if c.state.Active() {
		if err == nil {
			c.log.WithField("peer", c.peer).Warn("peer reports active while this node is active; split-brain possible")
		}
		return
	}

	c.mu.Lock()
	c.lastCheck = time.Now()
	if err == nil {
		if c.fails > 0 {
			c.log.WithField("peer", c.peer).Info("peer recovered")
		}
		c.fails = 0
		c.mu.Unlock()
		return
	}
	c.fails++
	fails := c.fails
	c.mu.Unlock()

	c.log.WithFields(logrus.Fields{
		"peer":    c.peer,
		"attempt": fails,
		"max":     c.maxFailures,
	}).WithError(err).Warn("peer health check failed")

	if fails >= c.maxFailures {
		c.promote(fails)
	}
}

func (c *Coordinator) promote(fails int) {
	if !c.state.Promote() {
		return
	}
	c.log.WithFields(logrus.Fields{
		"peer":     c.peer,
		"failures": fails,
	}).Warn("peer unreachable, promoted to ACTIVE")

	c.signaler.Signal(notify.StatusGroup)
	if c.onPromote != nil {
		c.onPromote()
	}
}

// defaultCheck issues GET {peer}/health.
func (c *Coordinator) defaultCheck(ctx context.Context, peer string) error {
	return cluster.CheckHealth(ctx, c.httpClient, peer)
}

// ConsecutiveFailures returns the current failure count.
func (c *Coordinator) ConsecutiveFailures() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fails
}

// LastCheck returns the time of the last probe made while passive.
func (c *Coordinator) LastCheck() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastCheck
}

// Fall marks the instance as not alive and signals the status group.
func (c *Coordinator) Fall() {
	if c.state.SetAlive(false) {
		c.log.Warn("server marked as down")
	}
	c.signaler.Signal(notify.StatusGroup)
}

// Revive marks the instance as alive and signals the status group.
func (c *Coordinator) Revive() {
	if c.state.SetAlive(true) {
		c.log.Info("server revived")
	}
	c.signaler.Signal(notify.StatusGroup)
}
