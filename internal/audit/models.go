package audit

import "time"

// Event is one append-only row of the call audit trail.
//
// Events are never updated or deleted. Actor and IP are best-effort: webhook
// driven events carry no actor.
type Event struct {
	ID   string    `json:"id" db:"id"`
	Type EventType `json:"type" db:"type"`

	CallID string `json:"call_id" db:"call_id"`

	ActorUserID string `json:"actor_user_id,omitempty" db:"actor_user_id"`
	ActorRole   string `json:"actor_role,omitempty" db:"actor_role"`
	// IPAddress is the client IP resolved by gin (trusted proxies applied).
	IPAddress string `json:"ip_address,omitempty" db:"ip_address"`

	Message string `json:"message,omitempty" db:"message"`
	// Metadata is a JSON object, stored as JSONB.
	Metadata string `json:"metadata,omitempty" db:"metadata"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EventType string

const (
	EventCallCreated       EventType = "call_created"
	EventCallUpdated       EventType = "call_updated"
	EventCallDeleted       EventType = "call_deleted"
	EventVoicemailAttached EventType = "voicemail_attached"
)
