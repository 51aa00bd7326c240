package calls

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// steppingClock advances by one minute per call.
type steppingClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *steppingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Minute)
	return c.t
}

type recordingSink struct {
	audited   []Change
	published []Change
}

func (r *recordingSink) RecordCallChange(_ context.Context, ch Change) error {
	r.audited = append(r.audited, ch)
	return nil
}

func (r *recordingSink) Publish(_ context.Context, ch Change) error {
	r.published = append(r.published, ch)
	return nil
}

type staffMap map[string]StaffRef

func (m staffMap) Profile(id string) (StaffRef, bool) {
	p, ok := m[id]
	return p, ok
}

func newTestService(t *testing.T) (*Service, *MemoryRepository, *recordingSink) {
	t.Helper()
	repo := NewMemoryRepository()
	svc := NewService(repo)
	clock := &steppingClock{t: time.Date(2026, 5, 14, 8, 0, 0, 0, time.UTC)}
	svc.Now = clock.Now
	svc.Location = time.UTC
	sink := &recordingSink{}
	svc.Audit = sink
	svc.Events = sink
	return svc, repo, sink
}

func TestService_CreateForcesOpen(t *testing.T) {
	svc, _, sink := newTestService(t)
	staff := Actor{UserID: "staff-1", Role: "staff"}

	url := "https://prov/rec9.mp3"
	c, err := svc.Create(context.Background(), staff, NewCall{CallerPhone: "+49301234", VoicemailURL: &url, HasVoicemail: false})
	require.NoError(t, err)
	assert.Equal(t, StatusOpen, c.Status)
	assert.True(t, c.HasVoicemail)
	assert.False(t, c.CalledAt.IsZero())

	require.Len(t, sink.audited, 1)
	assert.Equal(t, ChangeCreated, sink.audited[0].Kind)
	assert.Equal(t, "staff-1", sink.audited[0].Actor.UserID)
}

func TestService_CreateRequiresCallerPhone(t *testing.T) {
	svc, repo, _ := newTestService(t)
	_, err := svc.Create(context.Background(), Actor{}, NewCall{CallerPhone: "  "})
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.Equal(t, 0, repo.Len())
}

func TestService_UpdateAndDeleteRequireID(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()
	_, err := svc.Create(ctx, Actor{}, NewCall{CallerPhone: "+4930"})
	require.NoError(t, err)

	_, err = svc.Update(ctx, Actor{}, "", Patch{Status: statusPtr(StatusDone)})
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.ErrorIs(t, svc.Delete(ctx, Actor{}, ""), ErrInvalidArgument)

	assert.Equal(t, 1, repo.Len())
	open, err := svc.CountOpen(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, open)
}

func TestService_UpdateUnknownIDIsNotFound(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.Update(context.Background(), Actor{}, "6f1c1c59-5a8b-4a8e-9a34-0d8f5f4b1e11", Patch{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestService_UpdateStampsAndJoinsProfile(t *testing.T) {
	svc, _, sink := newTestService(t)
	svc.Staff = staffMap{"staff-2": {ID: "staff-2", FullName: "Lena Vogt"}}
	ctx := context.Background()

	c, err := svc.Create(ctx, Actor{}, NewCall{CallerPhone: "+4930"})
	require.NoError(t, err)

	assignee := "staff-2"
	d, err := svc.Update(ctx, Actor{UserID: "staff-1"}, c.ID, Patch{
		Status:     statusPtr(StatusInProgress),
		AssignedTo: OptionalString{Set: true, Value: &assignee},
	})
	require.NoError(t, err)
	require.NotNil(t, d.ProcessedAt)
	require.NotNil(t, d.Profile)
	assert.Equal(t, "Lena Vogt", d.Profile.FullName)

	first := *d.ProcessedAt
	d, err = svc.Update(ctx, Actor{UserID: "staff-1"}, c.ID, Patch{Status: statusPtr(StatusDone)})
	require.NoError(t, err)
	assert.Equal(t, first, *d.ProcessedAt)
	require.NotNil(t, d.CompletedAt)

	last := sink.published[len(sink.published)-1]
	assert.Equal(t, ChangeUpdated, last.Kind)
	assert.Equal(t, []string{"status"}, last.Fields)
}

func TestService_CountOpenIgnoresOtherStatuses(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 4; i++ {
		c, err := svc.Create(ctx, Actor{}, NewCall{CallerPhone: "+4930"})
		require.NoError(t, err)
		ids = append(ids, c.ID)
	}
	_, err := svc.Update(ctx, Actor{}, ids[0], Patch{Status: statusPtr(StatusDone)})
	require.NoError(t, err)
	_, err = svc.Update(ctx, Actor{}, ids[1], Patch{Status: statusPtr(StatusInProgress)})
	require.NoError(t, err)

	n, err := svc.CountOpen(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestService_ListFiltersAndOrders(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 15; i++ {
		c, err := svc.Create(ctx, Actor{}, NewCall{CallerPhone: "+4930"})
		require.NoError(t, err)
		if i%3 == 0 {
			_, err = svc.Update(ctx, Actor{}, c.ID, Patch{Status: statusPtr(StatusDone)})
			require.NoError(t, err)
		}
	}

	rows, err := svc.List(ctx, ListQuery{Status: "offen", Limit: 10})
	require.NoError(t, err)
	require.Len(t, rows, 10)
	for i, r := range rows {
		assert.Equal(t, StatusOpen, r.Status)
		if i > 0 {
			assert.False(t, r.CalledAt.After(rows[i-1].CalledAt), "rows must be newest first")
		}
	}

	all, err := svc.List(ctx, ListQuery{})
	require.NoError(t, err)
	assert.Len(t, all, 15)

	_, err = svc.List(ctx, ListQuery{Limit: -1})
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = svc.List(ctx, ListQuery{Time: "decade"})
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestService_ListTodayWindow(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()
	now := time.Date(2026, 5, 14, 12, 0, 0, 0, time.UTC)
	svc.Now = func() time.Time { return now }

	yesterday := now.AddDate(0, 0, -1)
	_, err := repo.Insert(ctx, Call{CallerPhone: "+1", Status: StatusOpen, CalledAt: yesterday})
	require.NoError(t, err)
	_, err = repo.Insert(ctx, Call{CallerPhone: "+2", Status: StatusOpen, CalledAt: now.Add(-time.Hour)})
	require.NoError(t, err)

	rows, err := svc.List(ctx, ListQuery{Time: RangeToday})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "+2", rows[0].CallerPhone)

	rows, err = svc.List(ctx, ListQuery{Time: RangeYesterday})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "+1", rows[0].CallerPhone)
}

func TestService_RecordInboundIsIdempotent(t *testing.T) {
	svc, repo, sink := newTestService(t)
	ctx := context.Background()
	in := InboundCall{CallerPhone: "+491511234567", ProviderSID: "CA123", ProviderState: "ringing"}

	first, created, err := svc.RecordInbound(ctx, in)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "CallStatus: ringing", *first.Notes)
	assert.False(t, first.HasVoicemail)
	assert.Nil(t, first.VoicemailURL)

	again, created, err := svc.RecordInbound(ctx, in)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, 1, repo.Len())

	// System writes are published but carry no actor, so they are not audited.
	assert.Len(t, sink.published, 1)
	assert.Empty(t, sink.audited)
}

func TestService_ApplyProviderUpdate(t *testing.T) {
	svc, _, sink := newTestService(t)
	ctx := context.Background()

	_, _, err := svc.RecordInbound(ctx, InboundCall{CallerPhone: "+4930", ProviderSID: "CA9"})
	require.NoError(t, err)

	url := VoicemailURLFor("https://prov/rec1")
	d := 42
	c, err := svc.ApplyProviderUpdate(ctx, "CA9", ProviderPatch{CallDuration: &d, VoicemailURL: &url})
	require.NoError(t, err)
	assert.True(t, c.HasVoicemail)
	assert.Equal(t, "https://prov/rec1.mp3", *c.VoicemailURL)
	assert.Equal(t, 42, c.CallDuration)

	assert.Equal(t, ChangeVoicemail, sink.published[len(sink.published)-1].Kind)
	require.Len(t, sink.audited, 1)

	_, err = svc.ApplyProviderUpdate(ctx, "CA-unknown", ProviderPatch{CallDuration: &d})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestService_Counts(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	a, _ := svc.Create(ctx, Actor{}, NewCall{CallerPhone: "+1"})
	b, _ := svc.Create(ctx, Actor{}, NewCall{CallerPhone: "+2"})
	_, _ = svc.Create(ctx, Actor{}, NewCall{CallerPhone: "+3"})

	me := "staff-1"
	_, err := svc.Update(ctx, Actor{}, a.ID, Patch{Status: statusPtr(StatusInProgress), AssignedTo: OptionalString{Set: true, Value: &me}})
	require.NoError(t, err)
	_, err = svc.Update(ctx, Actor{}, b.ID, Patch{Status: statusPtr(StatusDone)})
	require.NoError(t, err)

	counts, err := svc.Counts(ctx, "", "", "", me)
	require.NoError(t, err)
	assert.Equal(t, 3, counts.Total)
	assert.Equal(t, 1, counts.ByStatus[StatusOpen])
	assert.Equal(t, 1, counts.ByStatus[StatusInProgress])
	assert.Equal(t, 1, counts.ByStatus[StatusDone])
	assert.Equal(t, 1, counts.AssignedTo)
}
