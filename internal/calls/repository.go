package calls

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound        = errors.New("call not found")
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrAmbiguousMatch means a provider call id matched more than one record.
	ErrAmbiguousMatch = errors.New("provider call id matched multiple calls")
	ErrConflict       = errors.New("provider call id already recorded")
)

// Repository is the Call Store contract.
//
// Provider-keyed updates must match exactly one record; zero matches return
// ErrNotFound and more than one return ErrAmbiguousMatch.
type Repository interface {
	List(ctx context.Context, f ListFilter) ([]CallWithDetails, error)
	CountOpen(ctx context.Context) (int, error)
	CountByStatus(ctx context.Context, w Window, assignedTo string) (Counts, error)

	Insert(ctx context.Context, c Call) (Call, error)
	// InsertFromProvider is idempotent on TwilioCallSID: a repeat returns the
	// existing record with created=false.
	InsertFromProvider(ctx context.Context, c Call) (out Call, created bool, err error)

	Get(ctx context.Context, id string) (CallWithDetails, error)
	FindByProviderCallID(ctx context.Context, sid string) (Call, error)

	Update(ctx context.Context, id string, p Patch, now time.Time) (CallWithDetails, error)
	UpdateByProviderCallID(ctx context.Context, sid string, p ProviderPatch, now time.Time) (Call, error)

	Delete(ctx context.Context, id string) error
}
