// Package player replays a resolved script against wall-clock time.
package player

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/zurustar/autopiano/pkg/logger"
	"github.com/zurustar/autopiano/pkg/script"
)

// StepSize is how many entries Rewind and Skip move the cursor.
const StepSize = 10

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(s *Scheduler) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Scheduler) {
		if log != nil {
			s.log = log
		}
	}
}

// WithFinishHook registers a function called with the final snapshot each
// time a song reaches its end. It runs on its own goroutine, so it may call
// back into the scheduler.
func WithFinishHook(hook func(Snapshot)) Option {
	return func(s *Scheduler) {
		s.onFinish = hook
	}
}

// command is one unit of work for the scheduler goroutine. reply is nil
// for timer fires.
type command struct {
	fn    func() error
	reply chan error
}

// Scheduler walks a script forward, dispatching each entry to a NoteSink
// and waiting its delay before the next one.
//
// A single goroutine owns the playback state. Public methods send a
// command to it and wait for the result, so they are safe to call from any
// goroutine. At most one timer is pending at a time; every armed timer
// carries a generation number and a fire whose generation is stale is
// dropped, which is what makes Pause effective even when the timer could
// not be stopped.
//
// 使い方:
//
//	s := player.NewScheduler(sink)
//	s.Start()
//	defer s.Stop()
//	s.Load(script, "canon")
//	s.Play()
type Scheduler struct {
	sink     NoteSink
	clock    Clock
	log      *slog.Logger
	onFinish func(Snapshot)

	cmds chan command

	// lifecycle, guarded by mu
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}

	// playback state, owned by the run goroutine
	script *script.Script
	song   string
	state  State
	cursor int
	speed  float64
	gen    uint64
	timer  Timer

	// stop channel of the current run, read by timer callbacks
	loopStop chan struct{}
}

// NewScheduler creates a stopped scheduler. A nil sink discards actions.
func NewScheduler(sink NoteSink, opts ...Option) *Scheduler {
	if sink == nil {
		sink = discardSink{}
	}
	s := &Scheduler{
		sink:  sink,
		clock: RealClock{},
		log:   logger.GetLogger(),
		cmds:  make(chan command),
		state: Idle,
		speed: script.DefaultPlaybackSpeed,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start launches the scheduler goroutine. Calling it on a running
// scheduler does nothing.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}

	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})

	go s.run(s.stopCh, s.doneCh)
}

// Stop cancels any pending timer and waits for the scheduler goroutine to
// exit. Later commands return ErrStopped until Start is called again.
func (s *Scheduler) Stop() {
	s.mu.Lock()

	if !s.running {
		s.mu.Unlock()
		return
	}

	s.running = false
	close(s.stopCh)
	doneCh := s.doneCh

	s.mu.Unlock()

	// Wait outside the lock; in-flight commands select on stopCh.
	<-doneCh
}

// IsRunning reports whether the scheduler goroutine is running.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) run(stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	s.loopStop = stopCh
	for {
		select {
		case <-stopCh:
			s.cancelTimer()
			return
		case c := <-s.cmds:
			err := c.fn()
			if c.reply != nil {
				c.reply <- err
			}
		}
	}
}

// do runs fn on the scheduler goroutine and returns its error.
func (s *Scheduler) do(fn func() error) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return ErrStopped
	}
	stopCh, doneCh := s.stopCh, s.doneCh
	s.mu.Unlock()

	reply := make(chan error, 1)
	select {
	case s.cmds <- command{fn: fn, reply: reply}:
	case <-stopCh:
		return ErrStopped
	}

	select {
	case err := <-reply:
		return err
	case <-doneCh:
		return ErrStopped
	}
}

// Load binds a new script, replacing the current one together with its
// cursor. Playback is paused at entry 0 with the script's own speed.
func (s *Scheduler) Load(sc *script.Script, song string) error {
	if sc == nil {
		return script.ErrEmptyScript
	}
	return s.do(func() error {
		s.cancelTimer()
		s.script = sc
		s.song = song
		s.state = Bound
		s.cursor = 0
		s.speed = initialSpeed(sc)
		s.log.Info("Song loaded", "song", song, "entries", sc.Len(), "speed", s.speed)
		return nil
	})
}

// Unload drops the bound script and returns to Idle.
func (s *Scheduler) Unload() error {
	return s.do(func() error {
		s.cancelTimer()
		s.script = nil
		s.song = ""
		s.state = Idle
		s.cursor = 0
		s.speed = script.DefaultPlaybackSpeed
		return nil
	})
}

// Play starts or resumes playback. A finished song starts over from the
// first entry.
func (s *Scheduler) Play() error {
	return s.do(func() error {
		if s.state == Idle {
			return ErrNoActiveSong
		}
		s.play()
		return nil
	})
}

// Pause stops dispatching. A timer already armed will not dispatch.
func (s *Scheduler) Pause() error {
	return s.do(func() error {
		if s.state == Idle {
			return ErrNoActiveSong
		}
		s.pause()
		return nil
	})
}

// Toggle pauses while playing and plays otherwise.
func (s *Scheduler) Toggle() error {
	return s.do(func() error {
		switch s.state {
		case Idle:
			return ErrNoActiveSong
		case Playing:
			s.pause()
		default:
			s.play()
		}
		return nil
	})
}

// Rewind moves the cursor back StepSize entries, stopping at 0. A finished
// song becomes paused at the new position.
func (s *Scheduler) Rewind() error {
	return s.do(func() error {
		if s.state == Idle {
			return ErrNoActiveSong
		}
		s.cursor = max(0, s.cursor-StepSize)
		if s.state == Finished {
			s.state = Bound
		}
		s.log.Info("Rewound", "cursor", s.cursor)
		return nil
	})
}

// Skip moves the cursor forward StepSize entries. Reaching or passing the
// end finishes the song.
func (s *Scheduler) Skip() error {
	return s.do(func() error {
		switch s.state {
		case Idle:
			return ErrNoActiveSong
		case Finished:
			return nil
		}
		if s.cursor+StepSize >= s.script.Len() {
			s.finish()
			return nil
		}
		s.cursor += StepSize
		s.log.Info("Skipped", "cursor", s.cursor)
		return nil
	})
}

// SetSpeed multiplies the current speed by m, which must lie in (0, 1).
// Changes accumulate: two calls with 0.9 leave the speed at 0.81. The new
// speed applies from the next armed timer.
func (s *Scheduler) SetSpeed(m float64) error {
	if !(m > 0 && m < 1) {
		return fmt.Errorf("%w: %v (must be between 0 and 1)", ErrInvalidSpeed, m)
	}
	return s.do(func() error {
		if s.state == Idle {
			return ErrNoActiveSong
		}
		s.speed *= m
		s.log.Info("Playback speed changed", "speed", s.speed)
		return nil
	})
}

// ResetSpeed restores the speed read from the script header.
func (s *Scheduler) ResetSpeed() error {
	return s.do(func() error {
		if s.state == Idle {
			return ErrNoActiveSong
		}
		s.speed = initialSpeed(s.script)
		s.log.Info("Playback speed reset", "speed", s.speed)
		return nil
	})
}

// Snapshot returns a copy of the current state.
func (s *Scheduler) Snapshot() (Snapshot, error) {
	var snap Snapshot
	err := s.do(func() error {
		snap = s.snapshot()
		return nil
	})
	return snap, err
}

func (s *Scheduler) snapshot() Snapshot {
	return Snapshot{
		State:  s.state,
		Song:   s.song,
		Cursor: s.cursor,
		Length: s.script.Len(),
		Speed:  s.speed,
	}
}

// advance dispatches entries from the cursor until one has a non-zero
// delay, then arms a timer for it.
func (s *Scheduler) advance() {
	entries := s.script.Entries
	for s.state == Playing {
		if s.cursor >= len(entries) {
			s.finish()
			return
		}
		e := entries[s.cursor]
		s.dispatch(e.Action)
		s.cursor++
		if e.Delay > 0 {
			s.arm(e.Delay / s.speed)
			return
		}
	}
}

func (s *Scheduler) dispatch(a script.Action) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("Note sink failed", "action", a.Token(), "panic", r)
		}
	}()

	switch a.Kind {
	case script.Press:
		s.sink.Press(a.Key)
	case script.Release:
		s.sink.Release(a.Key)
	default:
		s.log.Warn("Unexpected action in script", "action", a.Token())
	}
}

func (s *Scheduler) arm(seconds float64) {
	s.cancelTimer()
	gen := s.gen
	stopCh := s.loopStop
	s.timer = s.clock.AfterFunc(secondsToDuration(seconds), func() {
		select {
		case s.cmds <- command{fn: func() error { s.fire(gen); return nil }}:
		case <-stopCh:
		}
	})
}

func (s *Scheduler) fire(gen uint64) {
	if gen != s.gen || s.state != Playing {
		s.log.Debug("Dropped stale timer", "generation", gen, "current", s.gen)
		return
	}
	s.timer = nil
	s.advance()
}

// cancelTimer invalidates the pending timer, if any.
func (s *Scheduler) cancelTimer() {
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Scheduler) play() {
	if s.state == Playing {
		return
	}
	if s.state == Finished {
		s.cursor = 0
	}
	s.state = Playing
	s.log.Info("Playing...", "song", s.song, "cursor", s.cursor)
	s.advance()
}

func (s *Scheduler) pause() {
	if s.state != Playing {
		return
	}
	s.cancelTimer()
	s.state = Bound
	s.log.Info("Stopping...", "cursor", s.cursor)
}

func (s *Scheduler) finish() {
	s.cancelTimer()
	s.cursor = s.script.Len()
	s.state = Finished
	s.log.Info("Song finished", "song", s.song)

	if s.onFinish != nil {
		go s.onFinish(s.snapshot())
	}
}

func initialSpeed(sc *script.Script) float64 {
	if sc == nil || sc.PlaybackSpeed <= 0 {
		return script.DefaultPlaybackSpeed
	}
	return sc.PlaybackSpeed
}
