package dashboard

import (
	"context"
	"slices"
	"sync"
	"time"

	"call-desk/internal/calls"
	"call-desk/internal/staff"
)

// API is the subset of the call API the dashboard uses.
type API interface {
	ListCalls(ctx context.Context, f Filter) ([]calls.CallWithDetails, error)
	CountOpen(ctx context.Context) (int, error)
	Staff(ctx context.Context) ([]staff.Profile, error)
	UpdateCall(ctx context.Context, ch Change) (calls.CallWithDetails, error)
}

// Snapshot is what the UI renders. A failed poll keeps the previous data and
// records LastError.
type Snapshot struct {
	Calls     []calls.CallWithDetails
	OpenCount int
	Staff     []staff.Profile
	HasData   bool
	LastError error
	UpdatedAt time.Time
}

// Store holds the latest snapshot and the active list filter.
type Store struct {
	mu     sync.RWMutex
	snap   Snapshot
	filter Filter
}

func (s *Store) Filter() Filter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter
}

func (s *Store) SetFilter(f Filter) {
	s.mu.Lock()
	s.filter = f
	s.mu.Unlock()
}

// Update replaces the snapshot, or records err while keeping the old data.
func (s *Store) Update(rows []calls.CallWithDetails, open int, profiles []staff.Profile, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.snap.LastError = err
		return
	}
	s.snap = Snapshot{
		Calls:     rows,
		OpenCount: open,
		Staff:     profiles,
		HasData:   true,
		UpdatedAt: time.Now(),
	}
}

// ReplaceCall swaps one row in place, keyed by id. It reports false when the
// row is not in the current list.
func (s *Store) ReplaceCall(row calls.CallWithDetails) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.snap.Calls {
		if s.snap.Calls[i].ID == row.ID {
			rows := slices.Clone(s.snap.Calls)
			rows[i] = row
			s.snap.Calls = rows
			return true
		}
	}
	return false
}

// Snapshot returns a copy safe for the UI goroutine to mutate.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.snap
	out.Calls = slices.Clone(s.snap.Calls)
	out.Staff = slices.Clone(s.snap.Staff)
	return out
}

// Refresh fetches list, badge count and staff under the store's filter.
func Refresh(ctx context.Context, store *Store, api API) error {
	rows, err := api.ListCalls(ctx, store.Filter())
	if err != nil {
		store.Update(nil, 0, nil, err)
		return err
	}
	open, err := api.CountOpen(ctx)
	if err != nil {
		store.Update(nil, 0, nil, err)
		return err
	}
	profiles, err := api.Staff(ctx)
	if err != nil {
		store.Update(nil, 0, nil, err)
		return err
	}
	store.Update(rows, open, profiles, nil)
	return nil
}

const defaultPollInterval = 30 * time.Second

// StartPoller refreshes the store at a fixed cadence until ctx ends. It
// returns immediately.
func StartPoller(ctx context.Context, store *Store, api API, interval time.Duration) {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			_ = Refresh(ctx, store, api)
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
}
