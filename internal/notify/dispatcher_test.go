package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chatServer struct {
	mu     sync.Mutex
	got    []message
	keys   []string
	status int
}

func (s *chatServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.URL.Path != sendMessagePath || r.Method != http.MethodPost {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	var m message
	_ = json.NewDecoder(r.Body).Decode(&m)
	s.got = append(s.got, m)
	s.keys = append(s.keys, r.Header.Get(apiKeyHeader))
	if s.status != 0 {
		w.WriteHeader(s.status)
		return
	}
	_, _ = w.Write([]byte(`{"success":true}`))
}

func newTestDispatcher(t *testing.T, s *chatServer) *Dispatcher {
	t.Helper()
	srv := httptest.NewServer(s)
	t.Cleanup(srv.Close)
	return NewDispatcher(Config{APIKey: "k1", SenderNumber: "+49100", Recipient: "+43676", BaseURL: srv.URL}, nil)
}

func TestNotifyCall_TextOnly(t *testing.T) {
	s := &chatServer{}
	d := newTestDispatcher(t, s)

	d.NotifyCall(context.Background(), CallNotice{CallerPhone: "+491511234567", Duration: 12})

	require.Len(t, s.got, 1)
	assert.Equal(t, "📞 Neuer Anruf!\n\nVon: +491511234567\nDauer: 12 Sekunden", s.got[0].Text)
	assert.Equal(t, "+43676", s.got[0].ToNumber)
	assert.Equal(t, "+49100", s.got[0].FromNumber)
	assert.Equal(t, "k1", s.keys[0])
}

func TestNotifyVoicemail_WithAudio(t *testing.T) {
	s := &chatServer{}
	d := newTestDispatcher(t, s)

	d.NotifyVoicemail(context.Background(), VoicemailNotice{CallerPhone: "+49151", AudioURL: "https://cdn/v.mp3"})

	require.Len(t, s.got, 2)
	assert.Equal(t, "📞 Neue Voicemail!\n\nVon: +49151", s.got[0].Text)
	assert.Empty(t, s.got[0].URL)
	assert.Equal(t, "https://cdn/v.mp3", s.got[1].URL)
}

func TestNotifyVoicemail_FallbackWithoutAudio(t *testing.T) {
	s := &chatServer{}
	d := newTestDispatcher(t, s)

	d.NotifyVoicemail(context.Background(), VoicemailNotice{CallerPhone: "+49151"})

	require.Len(t, s.got, 1)
	assert.Equal(t, "📞 Neue Voicemail!\n\nVon: +49151\n\n(Audio konnte nicht geladen werden)", s.got[0].Text)
}

func TestUpstreamFailureStopsAndDoesNotPanic(t *testing.T) {
	s := &chatServer{status: http.StatusBadGateway}
	d := newTestDispatcher(t, s)

	d.NotifyVoicemail(context.Background(), VoicemailNotice{CallerPhone: "+49151", AudioURL: "https://cdn/v.mp3"})

	assert.Len(t, s.got, 1)
}

func TestUnconfiguredIsNoop(t *testing.T) {
	s := &chatServer{}
	srv := httptest.NewServer(s)
	defer srv.Close()

	d := NewDispatcher(Config{SenderNumber: "+49100", Recipient: "+43676", BaseURL: srv.URL}, nil)
	assert.False(t, d.Enabled())
	d.NotifyCall(context.Background(), CallNotice{CallerPhone: "+49"})

	var nilDispatcher *Dispatcher
	nilDispatcher.NotifyVoicemail(context.Background(), VoicemailNotice{})

	assert.Empty(t, s.got)
}
