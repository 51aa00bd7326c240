package reporting

import (
	"context"
	"errors"

	"call-desk/internal/calls"
)

// Counter is the aggregate query the Call Store exposes.
type Counter interface {
	Counts(ctx context.Context, timeRange, from, to, assignedTo string) (calls.Counts, error)
}

type Service struct {
	counter Counter
}

func NewService(counter Counter) *Service { return &Service{counter: counter} }

// Stats aggregates in the store, so it is independent of any list limit.
func (s *Service) Stats(ctx context.Context, req StatsRequest) (Stats, error) {
	if s.counter == nil {
		return Stats{}, errors.New("reporting: counter not configured")
	}
	c, err := s.counter.Counts(ctx, req.Time, req.From, req.To, req.Me)
	if err != nil {
		return Stats{}, err
	}
	return Stats{
		Total:        c.Total,
		Open:         c.ByStatus[calls.StatusOpen],
		InProgress:   c.ByStatus[calls.StatusInProgress],
		Done:         c.ByStatus[calls.StatusDone],
		AssignedToMe: c.AssignedTo,
	}, nil
}

// Summarize computes the same cards over an already loaded list.
func Summarize(rows []calls.CallWithDetails, me string) Stats {
	var out Stats
	for _, r := range rows {
		out.Total++
		switch r.Status {
		case calls.StatusOpen:
			out.Open++
		case calls.StatusInProgress:
			out.InProgress++
		case calls.StatusDone:
			out.Done++
		}
		if me != "" && r.AssignedTo != nil && *r.AssignedTo == me {
			out.AssignedToMe++
		}
	}
	return out
}
