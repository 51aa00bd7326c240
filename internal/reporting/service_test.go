package reporting

import (
	"context"
	"testing"
	"time"

	"call-desk/internal/calls"
)

func seed(t *testing.T, svc *calls.Service, phone string, status calls.TriageStatus, assignee string) {
	t.Helper()
	ctx := context.Background()
	c, err := svc.Create(ctx, calls.Actor{}, calls.NewCall{CallerPhone: phone})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	p := calls.Patch{}
	if status != calls.StatusOpen {
		p.Status = &status
	}
	if assignee != "" {
		p.AssignedTo = calls.OptionalString{Set: true, Value: &assignee}
	}
	if _, err := svc.Update(ctx, calls.Actor{}, c.ID, p); err != nil {
		t.Fatalf("update: %v", err)
	}
}

func TestStats_CountsPerStatus(t *testing.T) {
	svc := calls.NewService(calls.NewMemoryRepository())
	now := time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)
	svc.Now = func() time.Time { return now }
	svc.Location = time.UTC

	seed(t, svc, "+491", calls.StatusOpen, "")
	seed(t, svc, "+492", calls.StatusOpen, "staff-1")
	seed(t, svc, "+493", calls.StatusInProgress, "staff-1")
	seed(t, svc, "+494", calls.StatusDone, "staff-2")

	out, err := NewService(svc).Stats(context.Background(), StatsRequest{Time: "today", Me: "staff-1"})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	want := Stats{Total: 4, Open: 2, InProgress: 1, Done: 1, AssignedToMe: 2}
	if out != want {
		t.Fatalf("expected %+v, got %+v", want, out)
	}
}

func TestStats_InvalidWindow(t *testing.T) {
	svc := calls.NewService(calls.NewMemoryRepository())
	if _, err := NewService(svc).Stats(context.Background(), StatsRequest{Time: "fortnight"}); err == nil {
		t.Fatalf("expected error for unknown window")
	}
}

func TestSummarize(t *testing.T) {
	me := "staff-1"
	other := "staff-2"
	rows := []calls.CallWithDetails{
		{Call: calls.Call{Status: calls.StatusOpen, AssignedTo: &me}},
		{Call: calls.Call{Status: calls.StatusDone, AssignedTo: &other}},
		{Call: calls.Call{Status: calls.StatusInProgress}},
	}
	got := Summarize(rows, me)
	want := Stats{Total: 3, Open: 1, InProgress: 1, Done: 1, AssignedToMe: 1}
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
	if Summarize(rows, "").AssignedToMe != 0 {
		t.Fatalf("expected no assignment count without a viewer")
	}
}
