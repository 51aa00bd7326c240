package calls

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Call is one inbound telephone call and its triage state.
//
// Invariants:
// - HasVoicemail is true iff VoicemailURL is non-nil.
// - ProcessedAt/CompletedAt are stamped on the first transition into
//   in_progress/done and never cleared afterwards.
// - TwilioCallSID correlates the provider webhooks; it is unique when set.
type Call struct {
	ID            string  `json:"id" db:"id"`
	CallerPhone   string  `json:"caller_phone" db:"caller_phone"`
	CalledNumber  *string `json:"called_number" db:"called_number"`
	TwilioCallSID *string `json:"twilio_call_sid" db:"twilio_call_sid"`

	// Linkage is filled by external matching; both may be empty.
	ApplicantID *string `json:"applicant_id" db:"applicant_id"`
	CustomerID  *string `json:"customer_id" db:"customer_id"`

	AssignedTo *string      `json:"assigned_to" db:"assigned_to"`
	Status     TriageStatus `json:"status" db:"status"`

	CallDuration        int     `json:"call_duration" db:"call_duration"`
	HasVoicemail        bool    `json:"has_voicemail" db:"has_voicemail"`
	VoicemailURL        *string `json:"voicemail_url" db:"voicemail_url"`
	VoicemailTranscript *string `json:"voicemail_transcript" db:"voicemail_transcript"`
	CallbackRequested   bool    `json:"callback_requested" db:"callback_requested"`

	// Notes carries the provider call status; CallbackNotes is staff-entered.
	Notes         *string `json:"notes" db:"notes"`
	CallbackNotes *string `json:"callback_notes" db:"callback_notes"`

	CalledAt    time.Time  `json:"called_at" db:"called_at"`
	ProcessedAt *time.Time `json:"processed_at" db:"processed_at"`
	CompletedAt *time.Time `json:"completed_at" db:"completed_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// TriageStatus is the staff-facing lifecycle value. It is distinct from the
// provider's call progress status, which only ever lands in Notes.
type TriageStatus string

const (
	StatusOpen       TriageStatus = "open"
	StatusInProgress TriageStatus = "in_progress"
	StatusDone       TriageStatus = "done"
)

// Statuses lists the triage states in lifecycle order.
var Statuses = []TriageStatus{StatusOpen, StatusInProgress, StatusDone}

// ParseTriageStatus accepts the canonical names and the legacy German terms
// (offen, bearbeitet, erledigt). "" and "all" yield the empty status, meaning
// no filter.
func ParseTriageStatus(s string) (TriageStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return "", nil
	case "open", "offen":
		return StatusOpen, nil
	case "in_progress", "in-progress", "bearbeitet":
		return StatusInProgress, nil
	case "done", "erledigt":
		return StatusDone, nil
	default:
		return "", fmt.Errorf("%w: unknown status %q", ErrInvalidArgument, s)
	}
}

func (s TriageStatus) Valid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusDone:
		return true
	default:
		return false
	}
}

// UnmarshalJSON lets request bodies use any accepted alias.
func (s *TriageStatus) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	parsed, err := ParseTriageStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

type Applicant struct {
	ID        string  `json:"id"`
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	Phone     *string `json:"phone,omitempty"`
	Email     *string `json:"email,omitempty"`
}

type Customer struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Phone *string `json:"phone,omitempty"`
}

// StaffRef is the display data of an assigned staff member.
type StaffRef struct {
	ID       string `json:"id"`
	FullName string `json:"full_name"`
	Email    string `json:"email,omitempty"`
}

// CallWithDetails is a call joined with its display data. The JSON keys
// follow the list view contract consumed by the dashboard.
type CallWithDetails struct {
	Call
	Applicant *Applicant `json:"applicants"`
	Customer  *Customer  `json:"customers"`
	Profile   *StaffRef  `json:"profiles"`
}

// NewCall is the staff/manual create payload. Any status in the input is
// ignored; creation always starts at open.
type NewCall struct {
	CallerPhone       string  `json:"caller_phone"`
	CalledNumber      *string `json:"called_number"`
	TwilioCallSID     *string `json:"twilio_call_sid"`
	CallDuration      int     `json:"call_duration"`
	HasVoicemail      bool    `json:"has_voicemail"`
	VoicemailURL      *string `json:"voicemail_url"`
	CallbackRequested bool    `json:"callback_requested"`
	Notes             *string `json:"notes"`
}

// InboundCall is what the call-start webhook knows about a new call.
type InboundCall struct {
	CallerPhone   string
	CalledNumber  string
	ProviderSID   string
	ProviderState string
	Duration      int
	// RecordingURL is the provider reference without extension.
	RecordingURL string
}

// OptionalString distinguishes an absent JSON key from an explicit null.
type OptionalString struct {
	Set   bool
	Value *string
}

func (o *OptionalString) UnmarshalJSON(b []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		o.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	o.Value = &s
	return nil
}

// Patch is a staff-driven update. Only non-nil / Set fields are applied.
type Patch struct {
	Status        *TriageStatus
	AssignedTo    OptionalString
	Notes         *string
	CallbackNotes *string
}

// Fields names the columns the patch touches, for audit and events.
func (p Patch) Fields() []string {
	var out []string
	if p.Status != nil {
		out = append(out, "status")
	}
	if p.AssignedTo.Set {
		out = append(out, "assigned_to")
	}
	if p.Notes != nil {
		out = append(out, "notes")
	}
	if p.CallbackNotes != nil {
		out = append(out, "callback_notes")
	}
	return out
}

// ProviderPatch is a system-driven update from the status or recording webhook.
// It never touches the triage status.
type ProviderPatch struct {
	CallDuration *int
	Notes        *string
	// VoicemailURL, when set, also flips HasVoicemail to true.
	VoicemailURL *string
}

// ListFilter holds resolved list predicates. Zero values mean "no filter".
type ListFilter struct {
	Status     TriageStatus
	AssignedTo string
	Window     Window
	Limit      int
}

// Counts is a per-status tally over a window.
type Counts struct {
	ByStatus   map[TriageStatus]int
	Total      int
	AssignedTo int
}
