// Package tracker owns the week's State and runs every mutation through one
// lifecycle: validate, persist, commit, recompute.
//
// The tracker:
//  1. Serializes mutations behind a mutex
//  2. Builds the next State as a copy and persists it first
//  3. Commits to memory only after the save succeeded
//  4. Recomputes the eligibility snapshot from scratch
//  5. Publishes the snapshot to metrics and the log
package tracker

import (
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ridetally/ridetally/internal/domain"
	"github.com/ridetally/ridetally/internal/infra/observability"
)

// Tracker is the single owner of State and the ride in progress.
type Tracker struct {
	mu    sync.Mutex
	store domain.StateStore
	loc   *time.Location
	now   func() time.Time
	state domain.State
	open  *domain.OpenRide
}

// New loads the persisted State and open ride from store.
// loc is the zone used for peak classification and the week range.
func New(store domain.StateStore, loc *time.Location) (*Tracker, error) {
	if loc == nil {
		loc = time.Local
	}
	state, err := store.LoadState()
	if err != nil {
		return nil, err
	}
	open, err := store.LoadOpenRide()
	if err != nil {
		return nil, err
	}
	if state.Rides == nil {
		state.Rides = []domain.Ride{}
	}
	return &Tracker{
		store: store,
		loc:   loc,
		now:   time.Now,
		state: state,
		open:  open,
	}, nil
}

// SetClock replaces the time source.
func (t *Tracker) SetClock(now func() time.Time) {
	t.mu.Lock()
	t.now = now
	t.mu.Unlock()
}

// Location returns the tracker's time zone.
func (t *Tracker) Location() *time.Location { return t.loc }

// ─── Ride Lifecycle ─────────────────────────────────────────────────────────

// StartRide opens a ride at the current time. When a ride is already open it
// is returned unchanged and started is false.
func (t *Tracker) StartRide() (open domain.OpenRide, started bool, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.open != nil {
		return *t.open, false, nil
	}
	r := domain.OpenRide{Start: t.now()}
	if err := t.store.SaveOpenRide(&r); err != nil {
		return domain.OpenRide{}, false, fmt.Errorf("start ride: %w", err)
	}
	t.open = &r
	log.Printf("[tracker] ride started at %s", r.Start.In(t.loc).Format("15:04:05"))
	return r, true, nil
}

// EndRide closes the open ride with the driver's completion.
// It returns nil, nil when no ride is open. A validation error leaves both
// State and the open ride untouched.
func (t *Tracker) EndRide(c domain.Completion) (*domain.Ride, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.open == nil {
		return nil, nil
	}
	ride, err := domain.NewRide(t.open.Start, t.now(), c, t.loc)
	if err != nil {
		observability.ObserveRejection(err)
		log.Printf("[tracker] ride completion rejected: %v", err)
		return nil, err
	}

	next := t.state.Clone()
	next.Rides = append(next.Rides, ride)
	if _, err := t.commit(next, "end ride"); err != nil {
		return nil, err
	}

	if err := t.store.SaveOpenRide(nil); err != nil {
		log.Printf("[tracker] ride recorded but open ride not cleared: %v", err)
	}
	t.open = nil
	observability.ObserveRide(ride)
	return &ride, nil
}

// OpenRide returns the ride in progress, or nil.
func (t *Tracker) OpenRide() *domain.OpenRide {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.open == nil {
		return nil
	}
	r := *t.open
	return &r
}

// ─── Settings ───────────────────────────────────────────────────────────────

// SaveSettings replaces the rules and quality metrics from a submitted form.
func (t *Tracker) SaveSettings(form domain.SettingsForm) (domain.Snapshot, error) {
	if err := form.Validate(); err != nil {
		return domain.Snapshot{}, err
	}
	rules, stats := form.Apply()

	t.mu.Lock()
	defer t.mu.Unlock()

	next := t.state.Clone()
	next.Rules = rules
	next.Stats = stats
	return t.commit(next, "save settings")
}

// ─── Week Lifecycle ─────────────────────────────────────────────────────────

// NewWeek archives the outgoing week and clears every ride and the open
// ride. Rules and quality metrics carry over. The archive is nil when the
// week had no rides. The archive and the cleared State are stored together,
// so a failed reset leaves no archive behind.
func (t *Tracker) NewWeek() (*domain.WeekArchive, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var archive *domain.WeekArchive
	if len(t.state.Rides) > 0 {
		a, err := t.archive()
		if err != nil {
			return nil, err
		}
		archive = &a
	}

	next := t.state.Clone()
	next.Rides = []domain.Ride{}
	if err := t.store.CloseWeek(archive, next); err != nil {
		return nil, fmt.Errorf("new week: %w", err)
	}
	if archive != nil {
		log.Printf("[tracker] archived week %s (%d trips, %s)", archive.ID[:8], archive.TotalTrips, archive.Status)
	}
	t.apply(next, "new week")

	if err := t.store.SaveOpenRide(nil); err != nil {
		log.Printf("[tracker] week reset but open ride not cleared: %v", err)
	}
	t.open = nil
	observability.WeekResets.Inc()
	return archive, nil
}

// archive summarizes the current week. Caller holds mu.
func (t *Tracker) archive() (domain.WeekArchive, error) {
	now := t.now()
	snap := domain.ComputeDashboard(t.state.Rides, t.state.Rules, t.state.Stats, now.In(t.loc))
	payload, err := domain.EncodeStatePretty(t.state)
	if err != nil {
		return domain.WeekArchive{}, fmt.Errorf("encode archive: %w", err)
	}

	// The week the rides belong to, not the week the reset happens in.
	latest := domain.SortedRides(t.state.Rides)[0]
	return domain.WeekArchive{
		ID:             uuid.NewString(),
		ArchivedAt:     now,
		Week:           domain.WeekOf(latest.Start.In(t.loc)),
		TotalTrips:     snap.TotalTrips,
		TotalHours:     snap.TotalHours,
		TotalFare:      snap.TotalFare,
		TotalIncentive: snap.TotalIncentive,
		Status:         snap.Status,
		Payload:        payload,
	}, nil
}

// Archives returns closed weeks, newest first. limit <= 0 means all.
func (t *Tracker) Archives(limit int) ([]domain.WeekArchive, error) {
	return t.store.ListArchives(limit)
}

// ─── Views ──────────────────────────────────────────────────────────────────

// Dashboard recomputes the snapshot from the current State.
func (t *Tracker) Dashboard() domain.Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.recompute()
}

// State returns a deep copy of the current State.
func (t *Tracker) State() domain.State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state.Clone()
}

// Rides returns this week's rides, newest first.
func (t *Tracker) Rides() []domain.Ride {
	t.mu.Lock()
	defer t.mu.Unlock()
	return domain.SortedRides(t.state.Rides)
}

// ─── Export / Import ────────────────────────────────────────────────────────

// Export writes the State as indented JSON.
func (t *Tracker) Export(w io.Writer) error {
	t.mu.Lock()
	data, err := domain.EncodeStatePretty(t.state)
	t.mu.Unlock()
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	return nil
}

// Import replaces the State with an exported document. The document must
// parse cleanly, its rules and rates must pass the settings checks and
// every ride must satisfy the stored-ride invariants; otherwise nothing
// changes. The open ride is kept.
func (t *Tracker) Import(r io.Reader) (domain.Snapshot, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("import: %w", err)
	}
	state, err := domain.DecodeState(data)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("%w: %v", domain.ErrInvalidImport, err)
	}
	if err := domain.FormFrom(state.Rules, state.Stats).Validate(); err != nil {
		return domain.Snapshot{}, fmt.Errorf("%w: %w", domain.ErrInvalidImport, err)
	}
	for i, ride := range state.Rides {
		if err := domain.ValidateRide(ride); err != nil {
			return domain.Snapshot{}, fmt.Errorf("%w: ride %d: %w", domain.ErrInvalidImport, i, err)
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	return t.commit(state, "import")
}

// ─── Internals ──────────────────────────────────────────────────────────────

// commit persists next, then makes it current. Caller holds mu.
func (t *Tracker) commit(next domain.State, action string) (domain.Snapshot, error) {
	if err := t.store.SaveState(next); err != nil {
		return domain.Snapshot{}, fmt.Errorf("%s: %w", action, err)
	}
	return t.apply(next, action), nil
}

// apply makes an already persisted next current. Caller holds mu.
func (t *Tracker) apply(next domain.State, action string) domain.Snapshot {
	t.state = next
	snap := t.recompute()
	log.Printf("[tracker] %s: trips=%d/%d hours=%.2f peak=%.1f%% status=%s",
		action, snap.TotalTrips, snap.RequiredTrips, snap.TotalHours, snap.PeakTripsPercent, snap.Status)
	return snap
}

// recompute derives and publishes the snapshot. Caller holds mu.
func (t *Tracker) recompute() domain.Snapshot {
	snap := domain.ComputeDashboard(t.state.Rides, t.state.Rules, t.state.Stats, t.now().In(t.loc))
	observability.ObserveSnapshot(snap)
	return snap
}
