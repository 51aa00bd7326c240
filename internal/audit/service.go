package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"call-desk/internal/calls"
	"call-desk/internal/routing"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit events. Append-only.
type Repository interface {
	Append(ctx context.Context, e Event) error
}

// Service writes the call audit trail. Callers treat it as best-effort.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEvent = errors.New("audit: invalid event")

func (s *Service) Append(ctx context.Context, e Event) error {
	if s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.Type == "" || e.CallID == "" {
		return ErrInvalidEvent
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock().UTC()
	}
	if e.IPAddress == "" {
		e.IPAddress = routing.ClientIPFromContext(ctx)
	}
	return s.repo.Append(ctx, e)
}

// RecordCallChange implements calls.AuditSink.
func (s *Service) RecordCallChange(ctx context.Context, ch calls.Change) error {
	meta, err := json.Marshal(changeMetadata{Status: ch.Status, Fields: ch.Fields})
	if err != nil {
		return err
	}
	return s.Append(ctx, Event{
		Type:        eventType(ch.Kind),
		CallID:      ch.CallID,
		ActorUserID: ch.Actor.UserID,
		ActorRole:   ch.Actor.Role,
		IPAddress:   ch.Actor.IP,
		Message:     describe(ch),
		Metadata:    string(meta),
		CreatedAt:   ch.At,
	})
}

type changeMetadata struct {
	Status calls.TriageStatus `json:"status,omitempty"`
	Fields []string           `json:"fields,omitempty"`
}

func eventType(k calls.ChangeKind) EventType {
	switch k {
	case calls.ChangeCreated:
		return EventCallCreated
	case calls.ChangeDeleted:
		return EventCallDeleted
	case calls.ChangeVoicemail:
		return EventVoicemailAttached
	default:
		return EventCallUpdated
	}
}

func describe(ch calls.Change) string {
	switch ch.Kind {
	case calls.ChangeCreated:
		return "call created"
	case calls.ChangeDeleted:
		return "call deleted"
	case calls.ChangeVoicemail:
		return "voicemail attached"
	}
	if len(ch.Fields) == 0 {
		return "call updated"
	}
	msg := "updated " + strings.Join(ch.Fields, ", ")
	if ch.Status != "" && slices.Contains(ch.Fields, "status") {
		msg += fmt.Sprintf(" (status %s)", ch.Status)
	}
	return msg
}
