package domain

// ─── Service Interfaces ─────────────────────────────────────────────────────
// These interfaces define boundaries between layers.
// Infrastructure implements them; the tracker depends on them.

// StateStore abstracts on-device persistence of State.
type StateStore interface {
	// LoadState returns the persisted State, or DefaultState when nothing
	// was saved or the record is unreadable. Only storage failures are errors.
	LoadState() (State, error)

	// SaveState replaces the persisted record as a whole.
	SaveState(s State) error

	// LoadOpenRide returns the ride in progress, or nil.
	LoadOpenRide() (*OpenRide, error)

	// SaveOpenRide stores the ride in progress; nil clears it.
	SaveOpenRide(r *OpenRide) error

	// CloseWeek atomically stores the archive of the outgoing week (nil
	// when it had no rides) and replaces the State with next.
	CloseWeek(a *WeekArchive, next State) error

	// ListArchives returns archived weeks, newest first.
	ListArchives(limit int) ([]WeekArchive, error)
}
