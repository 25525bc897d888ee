/*
Package engine hosts the dues calculation core behind a roster and a
cooperative recompute scheduler.

PURPOSE:
  The dues package is pure functions; this package is the stateful side:
  the roster collection, the current invoice settings, the calculation
  cache, and the last committed recompute results, all owned by one
  explicit Engine value. There is no package-level state — everything a
  call needs travels through the Engine, which is what makes the host
  testable and lets tests run several engines side by side.

OWNERSHIP AND SNAPSHOTS:
  The roster is the single shared resource. Recompute passes never read
  it live; they take a cloned snapshot when the pass starts, so a
  structural mutation during a pass is only visible to the next epoch.
  Mutations report a change to the scheduler (when one is attached),
  which debounces and triggers a fresh pass.

SEE ALSO:
  - engine.go:    Engine state, roster operations, commit/committed
  - scheduler.go: Debounced, chunked, epoch-guarded recompute driver
*/
package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/clubdesk/dues-engine/dues"
)

// Results is one committed recompute pass: the epoch it ran under, the
// per-member rows in roster order, and the aggregated summary. Replaced
// wholesale on each commit, never patched.
type Results struct {
	Epoch       uint64
	Rows        []dues.MemberResult
	Summary     dues.Summary
	CompletedAt time.Time
}

// Engine owns the roster, the invoice settings, the calculation cache,
// and the last committed results.
type Engine struct {
	mu        sync.RWMutex
	roster    []dues.Member
	invoice   dues.InvoiceContext
	cache     *dues.Cache
	log       zerolog.Logger
	committed *Results

	// onChange is reported after every roster or settings mutation.
	// The scheduler installs itself here; nil means no recompute driver
	// is attached (fine for tests that drive passes manually).
	onChange func()
}

// New creates an engine with an empty roster.
func New(invoice dues.InvoiceContext, cacheCapacity int, log zerolog.Logger) *Engine {
	return &Engine{
		invoice: invoice,
		cache:   dues.NewCache(cacheCapacity),
		log:     log,
	}
}

// setOnChange installs the mutation callback. Called by the scheduler.
func (e *Engine) setOnChange(fn func()) {
	e.mu.Lock()
	e.onChange = fn
	e.mu.Unlock()
}

func (e *Engine) notifyChange() {
	e.mu.RLock()
	fn := e.onChange
	e.mu.RUnlock()
	if fn != nil {
		fn()
	}
}

// =============================================================================
// ROSTER OPERATIONS
// =============================================================================

// Members returns the roster in order. The returned members share no
// pointers with engine state.
func (e *Engine) Members() []dues.Member {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return cloneRoster(e.roster)
}

// Member returns one roster entry by id.
func (e *Engine) Member(id dues.MemberID) (dues.Member, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, m := range e.roster {
		if m.ID == id {
			return m.Clone(), nil
		}
	}
	return dues.Member{}, fmt.Errorf("%w: %s", ErrMemberNotFound, id)
}

// Size returns the roster length.
func (e *Engine) Size() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.roster)
}

// AddMember validates and appends a member, then reports the change.
func (e *Engine) AddMember(m dues.Member) error {
	if err := dues.ValidateMember(m); err != nil {
		return err
	}
	e.mu.Lock()
	for _, existing := range e.roster {
		if existing.ID == m.ID {
			e.mu.Unlock()
			return fmt.Errorf("%w: %s", ErrDuplicateMember, m.ID)
		}
	}
	e.roster = append(e.roster, m.Clone())
	e.mu.Unlock()

	e.notifyChange()
	return nil
}

// UpdateMember validates and replaces the member with the same id in
// place, preserving roster order, then reports the change.
func (e *Engine) UpdateMember(m dues.Member) error {
	if err := dues.ValidateMember(m); err != nil {
		return err
	}
	e.mu.Lock()
	for i, existing := range e.roster {
		if existing.ID == m.ID {
			e.roster[i] = m.Clone()
			e.mu.Unlock()
			e.notifyChange()
			return nil
		}
	}
	e.mu.Unlock()
	return fmt.Errorf("%w: %s", ErrMemberNotFound, m.ID)
}

// RemoveMember deletes a member by id, then reports the change.
func (e *Engine) RemoveMember(id dues.MemberID) error {
	e.mu.Lock()
	for i, existing := range e.roster {
		if existing.ID == id {
			e.roster = append(e.roster[:i], e.roster[i+1:]...)
			e.mu.Unlock()
			e.notifyChange()
			return nil
		}
	}
	e.mu.Unlock()
	return fmt.Errorf("%w: %s", ErrMemberNotFound, id)
}

// ReplaceRoster swaps the whole roster, validating every row first.
// Used by snapshot restore and scenario loaders; an invalid row rejects
// the whole replacement with an error naming the offender.
func (e *Engine) ReplaceRoster(members []dues.Member) error {
	seen := make(map[dues.MemberID]bool, len(members))
	for _, m := range members {
		if err := dues.ValidateMember(m); err != nil {
			return fmt.Errorf("member %s: %w", m.ID, err)
		}
		if seen[m.ID] {
			return fmt.Errorf("%w: %s", ErrDuplicateMember, m.ID)
		}
		seen[m.ID] = true
	}

	e.mu.Lock()
	e.roster = cloneRoster(members)
	e.mu.Unlock()

	e.notifyChange()
	return nil
}

// =============================================================================
// SETTINGS
// =============================================================================

// Settings returns the current invoice context.
func (e *Engine) Settings() dues.InvoiceContext {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.invoice
}

// SetSettings validates and atomically replaces the invoice context,
// then reports the change. The calculation cache survives: its key
// excludes tax and currency, and an invoice-year change only adds new
// key tuples.
func (e *Engine) SetSettings(inv dues.InvoiceContext) error {
	if err := dues.ValidateInvoiceContext(inv); err != nil {
		return err
	}
	e.mu.Lock()
	e.invoice = inv
	e.mu.Unlock()

	e.notifyChange()
	return nil
}

// =============================================================================
// PASS SUPPORT
// =============================================================================

// Cache exposes the calculation cache (shared across passes and
// projections).
func (e *Engine) Cache() *dues.Cache {
	return e.cache
}

// snapshot returns the cloned roster and settings one pass runs over.
func (e *Engine) snapshot() ([]dues.Member, dues.InvoiceContext) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return cloneRoster(e.roster), e.invoice
}

// commit atomically publishes a completed pass. The scheduler calls
// this only for non-stale epochs.
func (e *Engine) commit(r Results) {
	e.mu.Lock()
	e.committed = &r
	e.mu.Unlock()
}

// Committed returns the last committed pass, or false when no pass has
// completed yet.
func (e *Engine) Committed() (Results, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.committed == nil {
		return Results{}, false
	}
	out := *e.committed
	out.Rows = append([]dues.MemberResult(nil), e.committed.Rows...)
	return out, true
}

// Project runs a synchronous one-off pass for a different invoice year
// without touching the committed results or the scheduler. It shares
// the calculation cache, so projecting next year's invoice is cheap to
// repeat. Tax and currency settings are kept from the current context.
func (e *Engine) Project(invoiceYear int) ([]dues.MemberResult, dues.Summary, error) {
	roster, inv := e.snapshot()
	inv.InvoiceYear = invoiceYear
	if err := dues.ValidateInvoiceContext(inv); err != nil {
		return nil, dues.Summary{}, err
	}

	rows := make([]dues.MemberResult, 0, len(roster))
	for _, m := range roster {
		b := e.cache.Compute(m.JoinDate, m.Tier, inv.InvoiceYear, m.LeaveDate)
		rows = append(rows, dues.MemberResult{Member: m, Breakdown: b})
	}
	return rows, dues.Aggregate(rows, inv, e.log), nil
}

func cloneRoster(roster []dues.Member) []dues.Member {
	out := make([]dues.Member, len(roster))
	for i, m := range roster {
		out[i] = m.Clone()
	}
	return out
}
