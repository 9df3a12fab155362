package store

import (
	"context"
	"sync"
	"time"

	"ordersync/internal/core"
	"ordersync/pkg/telemetry"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const defaultFetchTimeout = 30 * time.Second

// Syncer is the slice of the store the poller drives.
type Syncer interface {
	Refresh(ctx context.Context) error
	Clear()
}

// PresenceSource reports and streams authentication transitions.
type PresenceSource interface {
	Subscribe() <-chan *core.Actor
	Authenticated() bool
}

// Poller keys the refresh loop to the authentication lifecycle: login
// triggers an immediate fetch and starts the interval ticker, logout stops
// the ticker and clears the collection. A failed fetch keeps the previous
// collection; the next tick retries.
type Poller struct {
	syncer   Syncer
	presence PresenceSource
	interval time.Duration
	timeout  time.Duration
	logger   core.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup

	pollCounter metric.Int64Counter
}

func NewPoller(syncer Syncer, presence PresenceSource, interval time.Duration, logger core.Logger) *Poller {
	if interval <= 0 {
		interval = 10 * time.Second
	}

	meter := telemetry.GetMeter("order-poller")
	pollCounter, _ := meter.Int64Counter("ordersync_polls_total",
		metric.WithDescription("Poll passes executed, by result"))

	return &Poller{
		syncer:      syncer,
		presence:    presence,
		interval:    interval,
		timeout:     defaultFetchTimeout,
		logger:      logger.WithField("component", "poller"),
		pollCounter: pollCounter,
	}
}

// Start launches the polling loop. It returns immediately; Stop shuts the
// loop down and waits for it.
func (p *Poller) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.wg.Add(1)
	go p.run(runCtx)

	p.logger.Info("Poller started", "interval", p.interval.String())
}

// Stop terminates the loop and blocks until it has exited.
func (p *Poller) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
	p.logger.Info("Poller stopped")
}

func (p *Poller) run(ctx context.Context) {
	defer p.wg.Done()

	transitions := p.presence.Subscribe()

	var ticker *time.Ticker
	var tick <-chan time.Time

	startPolling := func() {
		p.fetch(ctx)
		if ticker == nil {
			ticker = time.NewTicker(p.interval)
			tick = ticker.C
		}
	}
	stopPolling := func() {
		if ticker != nil {
			ticker.Stop()
			ticker = nil
			tick = nil
		}
		p.syncer.Clear()
	}

	if p.presence.Authenticated() {
		telemetry.GetGlobalMetrics().SetAuthenticated(true)
		startPolling()
	}

	for {
		select {
		case <-ctx.Done():
			if ticker != nil {
				ticker.Stop()
			}
			return

		case actor := <-transitions:
			if actor != nil {
				p.logger.Info("Authentication observed, starting polls", "actor_id", actor.ID)
				telemetry.GetGlobalMetrics().SetAuthenticated(true)
				startPolling()
			} else {
				p.logger.Info("Logout observed, stopping polls")
				telemetry.GetGlobalMetrics().SetAuthenticated(false)
				stopPolling()
			}

		case <-tick:
			p.fetch(ctx)
		}
	}
}

func (p *Poller) fetch(ctx context.Context) {
	fetchCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	result := "ok"
	if err := p.syncer.Refresh(fetchCtx); err != nil {
		result = "error"
	}
	p.pollCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}
