package reconnect

import (
	"context"
	"errors"
	"time"
)

// DefaultInterval is used by RunEvery when given a non-positive interval.
const DefaultInterval = 30 * time.Second

// Handle controls a periodic reconnect driver.
type Handle struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Stop ends the driver and waits for a running pass to return.
func (h *Handle) Stop() {
	h.cancel()
	<-h.done
}

// RunEvery runs a pass immediately and then every interval until ctx is
// cancelled or the handle is stopped. A failing or panicking pass is logged
// and does not stop later ones.
func (m *Monitor) RunEvery(ctx context.Context, interval time.Duration) *Handle {
	if interval <= 0 {
		m.log.Warn("invalid reconnect interval %v, using %v", interval, DefaultInterval)
		interval = DefaultInterval
	}
	ctx, cancel := context.WithCancel(ctx)
	h := &Handle{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(h.done)

		m.runOnce(ctx)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.runOnce(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()

	m.log.Info("reconnect monitor started (interval: %v)", interval)
	return h
}

func (m *Monitor) runOnce(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error("reconnect pass panicked: %v", r)
		}
	}()

	if _, err := m.ScanForReconnections(ctx); err != nil && !errors.Is(err, ErrPassInProgress) && ctx.Err() == nil {
		m.log.Error("reconnect pass failed: %v", err)
	}
}
