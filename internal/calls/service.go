package calls

import (
	"context"
	"fmt"
	"strings"
	"time"

	"call-desk/pkg/logger"

	"github.com/google/uuid"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

// StaffLookup resolves assigned staff ids to display data.
type StaffLookup interface {
	Profile(id string) (StaffRef, bool)
}

// ChangeKind names what happened to a call.
type ChangeKind string

const (
	ChangeCreated   ChangeKind = "created"
	ChangeUpdated   ChangeKind = "updated"
	ChangeDeleted   ChangeKind = "deleted"
	ChangeVoicemail ChangeKind = "voicemail"
)

// Actor identifies who caused a change. System changes leave it empty.
type Actor struct {
	UserID string `json:"user_id,omitempty"`
	Role   string `json:"role,omitempty"`
	IP     string `json:"-"`
}

// Change is emitted after every successful write.
type Change struct {
	Kind   ChangeKind   `json:"kind"`
	CallID string       `json:"call_id"`
	Status TriageStatus `json:"status,omitempty"`
	Fields []string     `json:"fields,omitempty"`
	Actor  Actor        `json:"actor"`
	At     time.Time    `json:"at"`
}

// AuditSink records staff-facing changes. Failures are logged, never returned.
type AuditSink interface {
	RecordCallChange(ctx context.Context, ch Change) error
}

// Publisher fans changes out to live subscribers.
type Publisher interface {
	Publish(ctx context.Context, ch Change) error
}

// ListQuery is the raw list request as it arrives from the API.
type ListQuery struct {
	Status     string
	AssignedTo string
	Time       string
	From       string
	To         string
	Limit      int
}

// Service owns validation and side effects around the Call Store.
type Service struct {
	repo Repository

	Staff  StaffLookup
	Audit  AuditSink
	Events Publisher

	// Location anchors the today/yesterday windows.
	Location *time.Location
	// Now is injectable for deterministic tests.
	Now func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, Location: time.Local, Now: time.Now}
}

func (s *Service) now() time.Time { return s.Now().UTC() }

// ResolveFilter validates a ListQuery into repository predicates.
func (s *Service) ResolveFilter(q ListQuery) (ListFilter, error) {
	status, err := ParseTriageStatus(q.Status)
	if err != nil {
		return ListFilter{}, err
	}
	w, err := ResolveWindow(q.Time, q.From, q.To, s.Now(), s.Location)
	if err != nil {
		return ListFilter{}, err
	}
	limit := q.Limit
	switch {
	case limit < 0:
		return ListFilter{}, fmt.Errorf("%w: limit must be positive", ErrInvalidArgument)
	case limit == 0:
		limit = DefaultListLimit
	case limit > MaxListLimit:
		limit = MaxListLimit
	}
	assigned := strings.TrimSpace(q.AssignedTo)
	if assigned == "anyone" || assigned == "all" {
		assigned = ""
	}
	return ListFilter{Status: status, AssignedTo: assigned, Window: w, Limit: limit}, nil
}

// List returns calls newest-called first, joined with display data.
func (s *Service) List(ctx context.Context, q ListQuery) ([]CallWithDetails, error) {
	f, err := s.ResolveFilter(q)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		s.decorate(&rows[i])
	}
	return rows, nil
}

// CountOpen is the badge fast path: open calls, no filters.
func (s *Service) CountOpen(ctx context.Context) (int, error) {
	return s.repo.CountOpen(ctx)
}

// Create inserts a manual or provider-relayed call. Status always starts open.
func (s *Service) Create(ctx context.Context, actor Actor, in NewCall) (Call, error) {
	in.CallerPhone = strings.TrimSpace(in.CallerPhone)
	if in.CallerPhone == "" {
		return Call{}, fmt.Errorf("%w: caller_phone is required", ErrInvalidArgument)
	}
	if in.CallDuration < 0 {
		return Call{}, fmt.Errorf("%w: call_duration must not be negative", ErrInvalidArgument)
	}
	now := s.now()
	c := Call{
		ID:                uuid.NewString(),
		CallerPhone:       in.CallerPhone,
		CalledNumber:      blankToNil(in.CalledNumber),
		TwilioCallSID:     blankToNil(in.TwilioCallSID),
		Status:            StatusOpen,
		CallDuration:      in.CallDuration,
		VoicemailURL:      blankToNil(in.VoicemailURL),
		CallbackRequested: in.CallbackRequested,
		Notes:             in.Notes,
		CalledAt:          now,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	// The flag follows the reference, whatever the payload claims.
	c.HasVoicemail = c.VoicemailURL != nil

	out, err := s.repo.Insert(ctx, c)
	if err != nil {
		return Call{}, err
	}
	s.emit(ctx, Change{Kind: ChangeCreated, CallID: out.ID, Status: out.Status, Actor: actor, At: now})
	return out, nil
}

// RecordInbound stores a call announced by the provider's call-start webhook.
// A provider retry with the same call id returns the existing record.
func (s *Service) RecordInbound(ctx context.Context, in InboundCall) (Call, bool, error) {
	now := s.now()
	c := Call{
		ID:            uuid.NewString(),
		CallerPhone:   strings.TrimSpace(in.CallerPhone),
		CalledNumber:  stringPtr(strings.TrimSpace(in.CalledNumber)),
		TwilioCallSID: stringPtr(strings.TrimSpace(in.ProviderSID)),
		Status:        StatusOpen,
		CallDuration:  max(in.Duration, 0),
		Notes:         stringPtr(ProviderNotes(in.ProviderState)),
		CalledAt:      now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if in.RecordingURL != "" {
		u := VoicemailURLFor(in.RecordingURL)
		c.VoicemailURL = &u
		c.HasVoicemail = true
	}

	out, created, err := s.repo.InsertFromProvider(ctx, c)
	if err != nil {
		return Call{}, false, err
	}
	if created {
		s.emit(ctx, Change{Kind: ChangeCreated, CallID: out.ID, Status: out.Status, At: now})
	}
	return out, created, nil
}

// ProviderNotes echoes the provider call status into the notes field.
func ProviderNotes(providerStatus string) string {
	return "CallStatus: " + providerStatus
}

// Get returns one call with display data.
func (s *Service) Get(ctx context.Context, id string) (CallWithDetails, error) {
	if err := validateID(id); err != nil {
		return CallWithDetails{}, err
	}
	d, err := s.repo.Get(ctx, id)
	if err != nil {
		return CallWithDetails{}, err
	}
	s.decorate(&d)
	return d, nil
}

// Update applies a staff patch through the triage state machine.
func (s *Service) Update(ctx context.Context, actor Actor, id string, p Patch) (CallWithDetails, error) {
	if err := validateID(id); err != nil {
		return CallWithDetails{}, err
	}
	if p.Status != nil && !p.Status.Valid() {
		return CallWithDetails{}, fmt.Errorf("%w: status must be one of open, in_progress, done", ErrInvalidArgument)
	}
	now := s.now()
	d, err := s.repo.Update(ctx, id, p, now)
	if err != nil {
		return CallWithDetails{}, err
	}
	s.decorate(&d)
	s.emit(ctx, Change{Kind: ChangeUpdated, CallID: id, Status: d.Status, Fields: p.Fields(), Actor: actor, At: now})
	return d, nil
}

// Delete removes a call on explicit staff request.
func (s *Service) Delete(ctx context.Context, actor Actor, id string) error {
	if err := validateID(id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.emit(ctx, Change{Kind: ChangeDeleted, CallID: id, Actor: actor, At: s.now()})
	return nil
}

// FindByProviderCallID resolves a webhook's correlation key.
func (s *Service) FindByProviderCallID(ctx context.Context, sid string) (Call, error) {
	if strings.TrimSpace(sid) == "" {
		return Call{}, fmt.Errorf("%w: provider call id is required", ErrInvalidArgument)
	}
	return s.repo.FindByProviderCallID(ctx, sid)
}

// ApplyProviderUpdate records webhook-reported duration, notes and voicemail.
func (s *Service) ApplyProviderUpdate(ctx context.Context, sid string, p ProviderPatch) (Call, error) {
	if strings.TrimSpace(sid) == "" {
		return Call{}, fmt.Errorf("%w: provider call id is required", ErrInvalidArgument)
	}
	now := s.now()
	c, err := s.repo.UpdateByProviderCallID(ctx, sid, p, now)
	if err != nil {
		return Call{}, err
	}
	kind := ChangeUpdated
	if p.VoicemailURL != nil {
		kind = ChangeVoicemail
	}
	s.emit(ctx, Change{Kind: kind, CallID: c.ID, Status: c.Status, At: now})
	return c, nil
}

// Counts tallies calls per status within a named window.
func (s *Service) Counts(ctx context.Context, timeRange, from, to, assignedTo string) (Counts, error) {
	w, err := ResolveWindow(timeRange, from, to, s.Now(), s.Location)
	if err != nil {
		return Counts{}, err
	}
	return s.repo.CountByStatus(ctx, w, strings.TrimSpace(assignedTo))
}

func (s *Service) decorate(d *CallWithDetails) {
	if s.Staff == nil || d.AssignedTo == nil {
		return
	}
	if p, ok := s.Staff.Profile(*d.AssignedTo); ok {
		d.Profile = &p
	}
}

// emit runs the best-effort side effects of a committed write.
func (s *Service) emit(ctx context.Context, ch Change) {
	log := logger.From(ctx)
	if s.Audit != nil && (ch.Actor.UserID != "" || ch.Kind == ChangeVoicemail) {
		if err := s.Audit.RecordCallChange(ctx, ch); err != nil {
			log.Warn("audit append failed", "call_id", ch.CallID, "kind", ch.Kind, "err", err)
		}
	}
	if s.Events != nil {
		if err := s.Events.Publish(ctx, ch); err != nil {
			log.Warn("call event publish failed", "call_id", ch.CallID, "kind", ch.Kind, "err", err)
		}
	}
}

func validateID(id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%w: ID is required", ErrInvalidArgument)
	}
	if err := uuid.Validate(id); err != nil {
		return fmt.Errorf("%w: malformed id %q", ErrInvalidArgument, id)
	}
	return nil
}

func blankToNil(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

