// Package idle tracks time since the last request and reports when a
// component has been unused for longer than its idle timeout.
package idle

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

const DefaultInterval = 15 * time.Second

// ActivitySource reports when a component last served a request.
type ActivitySource interface {
	LastActivity() time.Time
}

type Config struct {
	// Timeout is the idle period after which OnIdle runs. Zero or negative
	// disables OnIdle; the monitor keeps polling.
	Timeout time.Duration
	// Interval between checks. Defaults to DefaultInterval.
	Interval time.Duration
	OnIdle   func()
	Logger   *zap.Logger
}

type Monitor struct {
	source ActivitySource
	cfg    Config
	now    func() time.Time

	idle    atomic.Bool
	started atomic.Bool
	stopCh  chan struct{}
	doneCh  chan struct{}
	once    sync.Once
}

func NewMonitor(source ActivitySource, cfg Config) *Monitor {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Monitor{
		source: source,
		cfg:    cfg,
		now:    time.Now,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Start launches the polling goroutine. Calling it more than once is a no-op.
func (m *Monitor) Start() {
	if !m.started.CompareAndSwap(false, true) {
		return
	}

	go func() {
		defer close(m.doneCh)
		ticker := time.NewTicker(m.cfg.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-m.stopCh:
				return
			case <-ticker.C:
				m.check()
			}
		}
	}()
}

// Stop ends the polling goroutine and waits for it to exit.
func (m *Monitor) Stop() {
	m.once.Do(func() {
		close(m.stopCh)
		if m.started.Load() {
			<-m.doneCh
		}
	})
}

// Idle reports whether the last check found the source idle.
func (m *Monitor) Idle() bool {
	return m.idle.Load()
}

func (m *Monitor) check() {
	if m.cfg.Timeout <= 0 {
		return
	}

	since := m.now().Sub(m.source.LastActivity())
	if since <= m.cfg.Timeout {
		if m.idle.Swap(false) {
			m.cfg.Logger.Debug("activity resumed")
		}
		return
	}

	if m.idle.Swap(true) {
		return
	}

	m.cfg.Logger.Info("idle timeout reached", zap.Duration("idle_for", since), zap.Duration("timeout", m.cfg.Timeout))
	if m.cfg.OnIdle != nil {
		m.cfg.OnIdle()
	}
}
