/*
scheduler.go - Debounced, chunked, epoch-guarded recompute driver

PURPOSE:
  Recomputes the full roster without monopolizing the host and without
  redundant passes from rapid successive triggers (every keystroke in a
  tax field reports a change).

DESIGN:
  - Debounce: triggers within the quiet window collapse into a single
    pass, scheduled after the last trigger in the window.
  - Chunking: the pass walks a roster snapshot in fixed-size slices and
    yields between slices, so a large roster never holds the goroutine
    for longer than one slice's worth of work.
  - Epoch guard: Trigger bumps a monotonic epoch. A pass runs under the
    epoch read when its debounce window closed and checks for a newer
    epoch between slices; a superseded pass abandons itself and never
    publishes rows or a summary. Only the newest epoch's completed pass
    commits, so a slow stale pass cannot clobber a newer result.
  - Atomic completion: per-slice rows may be emitted through OnSlice for
    responsiveness, but the summary is committed in one step after the
    last slice; it is never partially published mid-pass.

CONFIGURATION:
  - Debounce:  quiet window before a pass starts (default: 300ms)
  - SliceSize: members per slice (default: 25)

USAGE:
  sched := engine.NewScheduler(eng, engine.SchedulerConfig{}, log)
  sched.Start()
  eng.AddMember(m)            // reports the change, debounce begins
  sched.Wait(ctx)             // block until the newest epoch commits
  // ... later
  sched.Stop()

SEE ALSO:
  - engine.go: snapshot and commit, the only engine surface a pass uses
*/
package engine

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/clubdesk/dues-engine/dues"
)

const (
	DefaultDebounce  = 300 * time.Millisecond
	DefaultSliceSize = 25
)

// SchedulerConfig carries the two tuning knobs. Zero values select the
// defaults.
type SchedulerConfig struct {
	Debounce  time.Duration
	SliceSize int
}

// Scheduler drives recompute passes over an Engine.
type Scheduler struct {
	engine    *Engine
	log       zerolog.Logger
	debounce  time.Duration
	sliceSize int

	// OnSlice, when set before Start, receives each completed slice of a
	// non-stale pass (row-level display updates). The rows slice must not
	// be retained past the call.
	OnSlice func(epoch uint64, rows []dues.MemberResult)

	epoch   atomic.Uint64
	trigger chan struct{}
	stop    chan struct{}
	wg      sync.WaitGroup

	startMu sync.Mutex
	started bool

	commitMu      sync.Mutex
	lastCommitted uint64
	commitCh      chan struct{}
}

// NewScheduler creates a scheduler for the engine and installs itself
// as the engine's change listener, so every roster or settings mutation
// becomes a trigger.
func NewScheduler(e *Engine, cfg SchedulerConfig, log zerolog.Logger) *Scheduler {
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.SliceSize <= 0 {
		cfg.SliceSize = DefaultSliceSize
	}
	s := &Scheduler{
		engine:    e,
		log:       log,
		debounce:  cfg.Debounce,
		sliceSize: cfg.SliceSize,
		trigger:   make(chan struct{}, 1),
		stop:      make(chan struct{}),
		commitCh:  make(chan struct{}),
	}
	e.setOnChange(func() { s.Trigger() })
	return s
}

// Start launches the scheduler goroutine. Idempotent.
func (s *Scheduler) Start() {
	s.startMu.Lock()
	defer s.startMu.Unlock()
	if s.started {
		return
	}
	s.started = true
	s.wg.Add(1)
	go s.run()
	s.log.Info().
		Dur("debounce", s.debounce).
		Int("slice_size", s.sliceSize).
		Msg("scheduler started")
}

// Stop shuts the scheduler down and waits for the goroutine to exit.
// An in-flight pass finishes its current slice and abandons.
func (s *Scheduler) Stop() {
	s.startMu.Lock()
	defer s.startMu.Unlock()
	if !s.started {
		return
	}
	close(s.stop)
	s.wg.Wait()
	s.started = false
	s.log.Info().Msg("scheduler stopped")
}

// Trigger requests a recompute and returns the new epoch. Any pass
// running under an older epoch becomes stale immediately; the new pass
// starts once the quiet window elapses without further triggers.
func (s *Scheduler) Trigger() uint64 {
	epoch := s.epoch.Add(1)
	select {
	case s.trigger <- struct{}{}:
	default:
		// A wakeup is already pending; the run loop reads the epoch
		// fresh when the window closes.
	}
	return epoch
}

// Epoch returns the newest requested epoch.
func (s *Scheduler) Epoch() uint64 { return s.epoch.Load() }

// Debounce returns the configured quiet window.
func (s *Scheduler) Debounce() time.Duration { return s.debounce }

// SliceSize returns the configured slice size.
func (s *Scheduler) SliceSize() int { return s.sliceSize }

// LastCommitted returns the epoch of the last committed pass.
func (s *Scheduler) LastCommitted() uint64 {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()
	return s.lastCommitted
}

// Wait blocks until the newest epoch requested so far has committed.
// Returns immediately when nothing is pending.
func (s *Scheduler) Wait(ctx context.Context) error {
	target := s.epoch.Load()
	for {
		s.commitMu.Lock()
		done := s.lastCommitted >= target
		ch := s.commitCh
		s.commitMu.Unlock()
		if done {
			return nil
		}
		select {
		case <-ch:
		case <-s.stop:
			return ErrSchedulerStopped
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// =============================================================================
// RUN LOOP
// =============================================================================

func (s *Scheduler) run() {
	defer s.wg.Done()

	timer := time.NewTimer(s.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-s.trigger:
			// Restart the quiet window; bursts collapse into one pass.
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(s.debounce)
		case <-timer.C:
			// The pass runs under the epoch as of window close, so a
			// burst of N triggers yields one pass tagged with the final
			// epoch.
			s.runPass(s.epoch.Load())
		case <-s.stop:
			return
		}
	}
}

// runPass walks a roster snapshot in slices, then aggregates and
// commits — unless a newer epoch supersedes it on the way.
func (s *Scheduler) runPass(epoch uint64) {
	roster, inv := s.engine.snapshot()
	started := time.Now()
	s.log.Debug().
		Uint64("epoch", epoch).
		Int("roster_size", len(roster)).
		Int("invoice_year", inv.InvoiceYear).
		Msg("pass started")

	cache := s.engine.Cache()
	rows := make([]dues.MemberResult, 0, len(roster))

	for offset := 0; offset < len(roster); offset += s.sliceSize {
		if s.stale(epoch) {
			s.log.Debug().Uint64("epoch", epoch).Msg("pass superseded, abandoning")
			return
		}

		end := offset + s.sliceSize
		if end > len(roster) {
			end = len(roster)
		}
		for _, m := range roster[offset:end] {
			b := cache.Compute(m.JoinDate, m.Tier, inv.InvoiceYear, m.LeaveDate)
			rows = append(rows, dues.MemberResult{Member: m, Breakdown: b})
		}

		if s.OnSlice != nil {
			s.OnSlice(epoch, rows[offset:end])
		}

		// Yield point: the only place a pass suspends.
		select {
		case <-s.stop:
			return
		default:
			runtime.Gosched()
		}
	}

	if s.stale(epoch) {
		s.log.Debug().Uint64("epoch", epoch).Msg("pass superseded after final slice, abandoning")
		return
	}

	summary := dues.Aggregate(rows, inv, s.log)
	s.engine.commit(Results{
		Epoch:       epoch,
		Rows:        rows,
		Summary:     summary,
		CompletedAt: time.Now(),
	})
	s.signalCommit(epoch)

	s.log.Info().
		Uint64("epoch", epoch).
		Int("members", len(rows)).
		Int("active", summary.ActiveMembers).
		Str("total_with_tax", summary.TotalWithTax.StringFixed(2)).
		Dur("took", time.Since(started)).
		Msg("pass committed")
}

// stale reports whether a newer epoch has been requested.
func (s *Scheduler) stale(epoch uint64) bool {
	return s.epoch.Load() != epoch
}

func (s *Scheduler) signalCommit(epoch uint64) {
	s.commitMu.Lock()
	if epoch > s.lastCommitted {
		s.lastCommitted = epoch
	}
	close(s.commitCh)
	s.commitCh = make(chan struct{})
	s.commitMu.Unlock()
}
