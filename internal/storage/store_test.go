package storage

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublicBase(t *testing.T) {
	cases := []struct {
		name string
		cfg  MinioConfig
		want string
	}{
		{"derived plain", MinioConfig{Endpoint: "minio:9000", Bucket: "voicemails"}, "http://minio:9000/voicemails"},
		{"derived tls", MinioConfig{Endpoint: "s3.example.com", Bucket: "voicemails", UseSSL: true}, "https://s3.example.com/voicemails"},
		{"override", MinioConfig{Endpoint: "minio:9000", Bucket: "voicemails", PublicBaseURL: "https://cdn.example/vm/"}, "https://cdn.example/vm"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, PublicBase(tc.cfg))
		})
	}
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore("https://cdn.example/")
	require.NoError(t, s.Put(context.Background(), "voicemails/a.mp3", strings.NewReader("abc"), 3, "audio/mpeg"))

	o, ok := s.Get("voicemails/a.mp3")
	require.True(t, ok)
	assert.Equal(t, "abc", string(o.Data))
	assert.Equal(t, "audio/mpeg", o.ContentType)
	assert.Equal(t, "https://cdn.example/voicemails/a.mp3", s.PublicURL("voicemails/a.mp3"))
}

func TestMemoryStore_RejectsBadKeys(t *testing.T) {
	s := NewMemoryStore("")
	for _, key := range []string{"", "  ", "../etc/passwd", "a/../../b"} {
		assert.ErrorIs(t, s.Put(context.Background(), key, strings.NewReader("x"), 1, ""), ErrInvalidKey, key)
	}
}

func TestPublicReadPolicy(t *testing.T) {
	got, err := PublicReadPolicy("calls", "/voicemails/")
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"Version": "2012-10-17",
		"Statement": [{
			"Effect": "Allow",
			"Principal": {"AWS": ["*"]},
			"Action": ["s3:GetObject"],
			"Resource": ["arn:aws:s3:::calls/voicemails/*"]
		}]
	}`, got)

	whole, err := PublicReadPolicy("voicemails", "")
	require.NoError(t, err)
	assert.Contains(t, whole, `"arn:aws:s3:::voicemails/*"`)

	_, err = PublicReadPolicy("", "voicemails/")
	assert.Error(t, err)
	_, err = PublicReadPolicy("calls", "voice*")
	assert.Error(t, err)
}
