// Package voicemail copies provider recordings into public object storage so
// they can be attached to chat notifications without provider credentials.
package voicemail

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"call-desk/internal/metrics"
	"call-desk/internal/storage"
	"call-desk/internal/telephony"
)

// KeyPrefix is the object key prefix of archived voicemails.
const KeyPrefix = "voicemails"

const contentType = "audio/mpeg"

// Source opens provider audio with credentials attached.
type Source interface {
	Open(ctx context.Context, rawURL string) (*telephony.Audio, error)
}

type Archiver struct {
	source  Source
	store   storage.Store
	metrics *metrics.Metrics

	Now func() time.Time
}

func NewArchiver(source Source, store storage.Store, m *metrics.Metrics) *Archiver {
	return &Archiver{source: source, store: store, metrics: m, Now: time.Now}
}

// ObjectKey names the stored copy of a call's voicemail.
func ObjectKey(callSID string, at time.Time) string {
	return fmt.Sprintf("%s/voicemail_%s_%d.mp3", KeyPrefix, safeSID(callSID), at.UnixMilli())
}

// Archive downloads audioURL and uploads it, returning the public URL.
func (a *Archiver) Archive(ctx context.Context, callSID, audioURL string) (string, error) {
	if a == nil || a.source == nil || a.store == nil {
		return "", errors.New("voicemail: archiver not configured")
	}

	audio, err := a.source.Open(ctx, audioURL)
	if err != nil {
		a.metrics.Archive(metrics.OutcomeError)
		return "", fmt.Errorf("download recording: %w", err)
	}
	defer audio.Body.Close()

	key := ObjectKey(callSID, a.Now())
	if err := a.store.Put(ctx, key, audio.Body, audio.ContentLength, contentType); err != nil {
		a.metrics.Archive(metrics.OutcomeError)
		return "", fmt.Errorf("upload recording: %w", err)
	}
	a.metrics.Archive(metrics.OutcomeOK)
	return a.store.PublicURL(key), nil
}

// safeSID keeps provider ids usable as object key segments.
func safeSID(sid string) string {
	sid = strings.TrimSpace(sid)
	if sid == "" {
		return "unknown"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, sid)
}
