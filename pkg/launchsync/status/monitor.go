package status

import (
	"context"
	"time"

	"github.com/jamesainslie/launchsync/pkg/launchsync/types"
)

// DefaultInterval is the time between probes of a Monitor.
const DefaultInterval = 30 * time.Second

// Update is one probe result delivered by a Monitor.
type Update struct {
	Time   time.Time
	Status types.ServerStatus

	// Err is the cause of an offline status, nil when the server answered.
	Err error
}

// Monitor probes one address periodically.
type Monitor struct {
	Address  string
	Interval time.Duration
	Timeout  time.Duration

	// probe is replaced in tests.
	probe func(ctx context.Context, address string, timeout time.Duration) (types.ServerStatus, error)
}

// NewMonitor returns a Monitor with default interval and timeout.
func NewMonitor(address string) *Monitor {
	return &Monitor{Address: address, Interval: DefaultInterval, Timeout: DefaultTimeout}
}

// Run probes immediately and then once per Interval, sending each result on
// the returned channel. The channel is closed after ctx is done. A slow
// receiver delays the next probe rather than dropping results.
func (m *Monitor) Run(ctx context.Context) <-chan Update {
	interval := m.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	probe := m.probe
	if probe == nil {
		probe = ProbeDetailed
	}

	out := make(chan Update)
	go func() {
		defer close(out)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			s, err := probe(ctx, m.Address, m.Timeout)
			if ctx.Err() != nil {
				return
			}
			select {
			case out <- Update{Time: time.Now(), Status: s, Err: err}:
			case <-ctx.Done():
				return
			}

			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
