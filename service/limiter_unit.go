/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package service

import (
	"sync"

	"github.com/acronis/go-prefetch/limiter"
	"github.com/acronis/go-prefetch/log"
)

// LimiterUnitOpts contains optional parameters for constructing LimiterUnit.
type LimiterUnitOpts struct {
	LimiterOpts limiter.Opts

	// Metrics is used as limiter.Opts.MetricsCollector and is registered by MustRegisterMetrics.
	Metrics *limiter.PrometheusMetrics
}

// LimiterUnit allows presenting a prefetch limiter of a channel as Unit.
// The limiter is started by Start and lives until Stop is called or it terminates because of a fault.
// In the latter case the fault is reported as a fatal error of the unit.
type LimiterUnit struct {
	channel limiter.ChannelID
	logger  log.FieldLogger
	opts    LimiterUnitOpts

	mu          sync.Mutex
	lim         *limiter.Limiter
	stopped     bool
	closeLogger log.CloseFunc
}

var _ Unit = (*LimiterUnit)(nil)
var _ MetricsRegisterer = (*LimiterUnit)(nil)

// NewLimiterUnit creates a new instance of LimiterUnit.
func NewLimiterUnit(channel limiter.ChannelID, logger log.FieldLogger) *LimiterUnit {
	return NewLimiterUnitWithOpts(channel, logger, LimiterUnitOpts{})
}

// NewLimiterUnitWithOpts creates a new instance of LimiterUnit with an ability to specify different optional parameters.
func NewLimiterUnitWithOpts(channel limiter.ChannelID, logger log.FieldLogger, opts LimiterUnitOpts) *LimiterUnit {
	if opts.Metrics != nil {
		opts.LimiterOpts.MetricsCollector = opts.Metrics
	}
	return &LimiterUnit{channel: channel, logger: logger, opts: opts}
}

// Limiter returns the running limiter. It's nil (flow control is disabled) before Start and after Stop.
func (u *LimiterUnit) Limiter() *limiter.Limiter {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.stopped {
		return nil
	}
	return u.lim
}

// Start starts the limiter and blocks until it terminates.
func (u *LimiterUnit) Start(fatalErr chan<- error) {
	u.mu.Lock()
	if u.stopped || u.lim != nil {
		u.mu.Unlock()
		return
	}
	lim := limiter.StartWithOpts(u.channel, u.logger, u.opts.LimiterOpts)
	u.lim = lim
	u.mu.Unlock()

	<-lim.Done()
	if err := lim.Err(); err != nil {
		fatalErr <- err
	}
}

// Stop shuts the limiter down. Requests that are not processed yet are discarded in any case.
func (u *LimiterUnit) Stop(gracefully bool) error {
	u.mu.Lock()
	alreadyStopped := u.stopped
	u.stopped = true
	lim := u.lim
	u.mu.Unlock()

	lim.Shutdown()
	if !alreadyStopped && u.closeLogger != nil {
		u.closeLogger()
	}
	return nil
}

// MustRegisterMetrics registers the limiter's metrics.
func (u *LimiterUnit) MustRegisterMetrics() {
	if u.opts.Metrics != nil {
		u.opts.Metrics.MustRegister()
	}
}

// UnregisterMetrics unregisters the limiter's metrics.
func (u *LimiterUnit) UnregisterMetrics() {
	if u.opts.Metrics != nil {
		u.opts.Metrics.Unregister()
	}
}
