package voicemail

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"call-desk/internal/storage"
	"call-desk/internal/telephony"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sourceFunc func(ctx context.Context, rawURL string) (*telephony.Audio, error)

func (f sourceFunc) Open(ctx context.Context, rawURL string) (*telephony.Audio, error) {
	return f(ctx, rawURL)
}

func TestObjectKey(t *testing.T) {
	at := time.UnixMilli(1760000000123)
	assert.Equal(t, "voicemails/voicemail_CA123_1760000000123.mp3", ObjectKey("CA123", at))
	assert.Equal(t, "voicemails/voicemail_unknown_1760000000123.mp3", ObjectKey("", at))
	assert.Equal(t, "voicemails/voicemail_CA____x_1760000000123.mp3", ObjectKey("CA/../x", at))
}

func TestArchive_UploadsAndReturnsPublicURL(t *testing.T) {
	var fetched string
	src := sourceFunc(func(ctx context.Context, rawURL string) (*telephony.Audio, error) {
		fetched = rawURL
		return &telephony.Audio{Body: io.NopCloser(strings.NewReader("ID3")), ContentLength: 3}, nil
	})
	store := storage.NewMemoryStore("https://cdn.example")
	a := NewArchiver(src, store, nil)
	a.Now = func() time.Time { return time.UnixMilli(1000) }

	u, err := a.Archive(context.Background(), "CA123", "https://api.twilio.com/rec1.mp3")
	require.NoError(t, err)

	assert.Equal(t, "https://api.twilio.com/rec1.mp3", fetched)
	assert.Equal(t, "https://cdn.example/voicemails/voicemail_CA123_1000.mp3", u)
	o, ok := store.Get("voicemails/voicemail_CA123_1000.mp3")
	require.True(t, ok)
	assert.Equal(t, "ID3", string(o.Data))
	assert.Equal(t, "audio/mpeg", o.ContentType)
}

func TestArchive_DownloadFailure(t *testing.T) {
	src := sourceFunc(func(ctx context.Context, rawURL string) (*telephony.Audio, error) {
		return nil, &telephony.UpstreamError{StatusCode: 404}
	})
	a := NewArchiver(src, storage.NewMemoryStore(""), nil)

	_, err := a.Archive(context.Background(), "CA1", "https://api.twilio.com/x.mp3")
	var upstream *telephony.UpstreamError
	assert.True(t, errors.As(err, &upstream))
}

func TestArchive_Unconfigured(t *testing.T) {
	var a *Archiver
	_, err := a.Archive(context.Background(), "CA1", "u")
	assert.Error(t, err)
}

func TestArchive_ForeignRecordingHostGetsNoCredentials(t *testing.T) {
	var sawAuth bool
	foreign := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, _, ok := r.BasicAuth(); ok {
			sawAuth = true
		}
		_, _ = w.Write([]byte("ID3"))
	}))
	defer foreign.Close()

	client := telephony.NewRecordingClient("AC1", "secret", []string{"api.twilio.com"}, time.Second)
	store := storage.NewMemoryStore("https://cdn.example")
	a := NewArchiver(client, store, nil)

	u, err := a.Archive(context.Background(), "CA1", foreign.URL+"/rec.mp3")

	require.ErrorIs(t, err, telephony.ErrHostNotAllowed)
	assert.Empty(t, u)
	assert.False(t, sawAuth)
}
