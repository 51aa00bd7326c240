package calls

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository is an in-memory Call Store for tests and local runs.
// It honours the same contract as the Postgres repository, including the
// provider call id uniqueness rule.
type MemoryRepository struct {
	mu    sync.Mutex
	calls map[string]Call
	seq   map[string]int
	next  int

	Applicants map[string]Applicant
	Customers  map[string]Customer
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		calls:      map[string]Call{},
		seq:        map[string]int{},
		Applicants: map[string]Applicant{},
		Customers:  map[string]Customer{},
	}
}

func (r *MemoryRepository) List(ctx context.Context, f ListFilter) ([]CallWithDetails, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows := make([]Call, 0, len(r.calls))
	for _, c := range r.calls {
		if f.Status != "" && c.Status != f.Status {
			continue
		}
		if f.AssignedTo != "" && (c.AssignedTo == nil || *c.AssignedTo != f.AssignedTo) {
			continue
		}
		if !f.Window.Contains(c.CalledAt) {
			continue
		}
		rows = append(rows, c)
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].CalledAt.Equal(rows[j].CalledAt) {
			return rows[i].CalledAt.After(rows[j].CalledAt)
		}
		return r.seq[rows[i].ID] > r.seq[rows[j].ID]
	})
	if f.Limit > 0 && len(rows) > f.Limit {
		rows = rows[:f.Limit]
	}

	out := make([]CallWithDetails, 0, len(rows))
	for _, c := range rows {
		out = append(out, r.join(c))
	}
	return out, nil
}

func (r *MemoryRepository) CountOpen(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		if c.Status == StatusOpen {
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepository) CountByStatus(ctx context.Context, w Window, assignedTo string) (Counts, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := Counts{ByStatus: map[TriageStatus]int{}}
	for _, c := range r.calls {
		if !w.Contains(c.CalledAt) {
			continue
		}
		out.Total++
		out.ByStatus[c.Status]++
		if assignedTo != "" && c.AssignedTo != nil && *c.AssignedTo == assignedTo {
			out.AssignedTo++
		}
	}
	return out, nil
}

func (r *MemoryRepository) Insert(ctx context.Context, c Call) (Call, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c.TwilioCallSID != nil {
		if _, n := r.findBySIDLocked(*c.TwilioCallSID); n > 0 {
			return Call{}, ErrConflict
		}
	}
	return r.insertLocked(c), nil
}

func (r *MemoryRepository) InsertFromProvider(ctx context.Context, c Call) (Call, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c.TwilioCallSID != nil {
		if existing, n := r.findBySIDLocked(*c.TwilioCallSID); n > 0 {
			return existing, false, nil
		}
	}
	return r.insertLocked(c), true, nil
}

func (r *MemoryRepository) Get(ctx context.Context, id string) (CallWithDetails, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.calls[id]
	if !ok {
		return CallWithDetails{}, ErrNotFound
	}
	return r.join(c), nil
}

func (r *MemoryRepository) FindByProviderCallID(ctx context.Context, sid string) (Call, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, n := r.findBySIDLocked(sid)
	switch {
	case n == 0:
		return Call{}, ErrNotFound
	case n > 1:
		return Call{}, ErrAmbiguousMatch
	}
	return c, nil
}

func (r *MemoryRepository) Update(ctx context.Context, id string, p Patch, now time.Time) (CallWithDetails, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.calls[id]
	if !ok {
		return CallWithDetails{}, ErrNotFound
	}
	c = ApplyPatch(c, p, now)
	r.calls[id] = c
	return r.join(c), nil
}

func (r *MemoryRepository) UpdateByProviderCallID(ctx context.Context, sid string, p ProviderPatch, now time.Time) (Call, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, n := r.findBySIDLocked(sid)
	switch {
	case n == 0:
		return Call{}, ErrNotFound
	case n > 1:
		return Call{}, ErrAmbiguousMatch
	}
	c = ApplyProviderPatch(c, p, now)
	r.calls[c.ID] = c
	return c, nil
}

func (r *MemoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.calls[id]; !ok {
		return ErrNotFound
	}
	delete(r.calls, id)
	delete(r.seq, id)
	return nil
}

// Len returns the number of stored calls.
func (r *MemoryRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func (r *MemoryRepository) insertLocked(c Call) Call {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = c.CalledAt
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = c.CreatedAt
	}
	r.next++
	r.calls[c.ID] = c
	r.seq[c.ID] = r.next
	return c
}

func (r *MemoryRepository) findBySIDLocked(sid string) (Call, int) {
	var found Call
	n := 0
	for _, c := range r.calls {
		if c.TwilioCallSID != nil && *c.TwilioCallSID == sid {
			found = c
			n++
		}
	}
	return found, n
}

func (r *MemoryRepository) join(c Call) CallWithDetails {
	out := CallWithDetails{Call: c}
	if c.ApplicantID != nil {
		if a, ok := r.Applicants[*c.ApplicantID]; ok {
			out.Applicant = &a
		}
	}
	if c.CustomerID != nil {
		if cu, ok := r.Customers[*c.CustomerID]; ok {
			out.Customer = &cu
		}
	}
	return out
}
