package device

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/zurustar/autopiano/pkg/logger"
)

// DefaultSamplingInterval is how often collected presses are sent.
const DefaultSamplingInterval = 20 * time.Millisecond

// touchIDs is the number of distinct touch IDs handed out.
const touchIDs = 10

// Batcher is a NoteSink that collects presses and sends them to a Toucher
// as one multitouch frame per sampling interval. The fingers put down in
// one frame are lifted in the next. Releases are not forwarded: a key is
// held for exactly one interval.
//
// It runs in its own goroutine, started by Start and stopped by Stop,
// so the scheduler never waits on the device.
type Batcher struct {
	// interval is the time between frames.
	interval time.Duration

	layout  Layout
	toucher Toucher
	log     *slog.Logger

	// pending presses and the IDs to lift on the next frame, guarded by mu
	pending []int
	revoke  []int
	nextID  int

	ticker  *time.Ticker
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}

	mu sync.Mutex
}

// BatcherOption configures a Batcher.
type BatcherOption func(*Batcher)

// WithInterval sets the sampling interval. Zero or negative keeps the default.
func WithInterval(d time.Duration) BatcherOption {
	return func(b *Batcher) {
		if d > 0 {
			b.interval = d
		}
	}
}

// WithLayout sets the key geometry.
func WithLayout(l Layout) BatcherOption {
	return func(b *Batcher) { b.layout = l }
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) BatcherOption {
	return func(b *Batcher) {
		if log != nil {
			b.log = log
		}
	}
}

// NewBatcher creates a stopped Batcher sending frames to t.
func NewBatcher(t Toucher, opts ...BatcherOption) *Batcher {
	b := &Batcher{
		interval: DefaultSamplingInterval,
		layout:   DefaultLayout(),
		toucher:  t,
		log:      logger.GetLogger(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Press queues key for the next frame.
func (b *Batcher) Press(key int) {
	b.log.Debug("Playing note", "key", key)
	b.mu.Lock()
	b.pending = append(b.pending, key)
	b.mu.Unlock()
}

// Release is a no-op; see Batcher.
func (b *Batcher) Release(key int) {
	b.log.Debug("Releasing note", "key", key)
}

// Start starts sending frames. If the batcher is already running, this
// method does nothing.
func (b *Batcher) Start() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.running {
		return
	}

	b.running = true
	b.stopCh = make(chan struct{})
	b.doneCh = make(chan struct{})
	b.ticker = time.NewTicker(b.interval)

	go b.run(b.stopCh, b.doneCh, b.ticker.C)
}

func (b *Batcher) run(stopCh, doneCh chan struct{}, tick <-chan time.Time) {
	defer close(doneCh)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-stopCh
		cancel()
	}()

	for {
		select {
		case <-stopCh:
			return
		case <-tick:
			if err := b.Flush(ctx); err != nil {
				b.log.Warn("Touch failed", "error", err)
			}
		}
	}
}

// Stop stops the batcher and waits for the goroutine to exit. Presses
// still queued are dropped.
func (b *Batcher) Stop() {
	b.mu.Lock()

	if !b.running {
		b.mu.Unlock()
		return
	}

	b.running = false
	close(b.stopCh)
	doneCh := b.doneCh

	b.mu.Unlock()

	<-doneCh

	b.mu.Lock()
	b.ticker.Stop()
	b.ticker = nil
	b.stopCh = nil
	b.doneCh = nil
	b.pending = nil
	b.mu.Unlock()
}

// IsRunning returns whether the batcher is running.
func (b *Batcher) IsRunning() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.running
}

// Flush sends one frame now: the previous frame's touches are lifted and
// the queued presses are put down. Keys without a screen position are
// logged and dropped.
func (b *Batcher) Flush(ctx context.Context) error {
	b.mu.Lock()
	up := b.revoke
	b.revoke = nil
	keys := b.pending
	b.pending = nil

	var down []Touch
	for _, key := range keys {
		p, err := b.layout.Position(key)
		if err != nil {
			b.log.Warn("Skipping key", "key", key, "error", err)
			continue
		}
		b.nextID = (b.nextID + 1) % touchIDs
		down = append(down, Touch{ID: b.nextID, Point: p})
		b.revoke = append(b.revoke, b.nextID)
	}
	b.mu.Unlock()

	if len(up) == 0 && len(down) == 0 {
		return nil
	}
	return b.toucher.Perform(ctx, down, up)
}
