package audit

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"call-desk/internal/calls"
	"call-desk/internal/routing"
)

func TestService_AppendRequiresTypeAndCall(t *testing.T) {
	svc := NewService(NewMemoryRepo())

	if err := svc.Append(context.Background(), Event{Type: EventCallUpdated}); err == nil {
		t.Fatalf("expected error without call id")
	}
	if err := svc.Append(context.Background(), Event{CallID: "c1"}); err == nil {
		t.Fatalf("expected error without type")
	}
}

func TestService_RecordCallChange(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)
	at := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	err := svc.RecordCallChange(context.Background(), calls.Change{
		Kind:   calls.ChangeUpdated,
		CallID: "c1",
		Status: calls.StatusDone,
		Fields: []string{"status", "notes"},
		Actor:  calls.Actor{UserID: "staff-1", Role: "staff", IP: "1.2.3.4"},
		At:     at,
	})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	evs := repo.Events()
	if len(evs) != 1 {
		t.Fatalf("expected 1 event, got %d", len(evs))
	}
	e := evs[0]
	if e.Type != EventCallUpdated || e.CallID != "c1" {
		t.Fatalf("unexpected event: %+v", e)
	}
	if e.ActorUserID != "staff-1" || e.IPAddress != "1.2.3.4" {
		t.Fatalf("expected actor captured: %+v", e)
	}
	if e.Message != "updated status, notes (status done)" {
		t.Fatalf("unexpected message %q", e.Message)
	}
	if !e.CreatedAt.Equal(at) || e.ID == "" {
		t.Fatalf("expected id and change time: %+v", e)
	}
	var meta map[string]any
	if err := json.Unmarshal([]byte(e.Metadata), &meta); err != nil {
		t.Fatalf("metadata not json: %v", err)
	}
	if meta["status"] != "done" {
		t.Fatalf("unexpected metadata %v", meta)
	}
}

func TestService_VoicemailUsesContextIP(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)
	ctx := routing.WithClientIP(context.Background(), "54.1.2.3")

	if err := svc.RecordCallChange(ctx, calls.Change{Kind: calls.ChangeVoicemail, CallID: "c2"}); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	e := repo.Events()[0]
	if e.Type != EventVoicemailAttached || e.IPAddress != "54.1.2.3" || e.ActorUserID != "" {
		t.Fatalf("unexpected event: %+v", e)
	}
}

func TestService_ImplementsAuditSink(t *testing.T) {
	var _ calls.AuditSink = NewService(NewMemoryRepo())
}
