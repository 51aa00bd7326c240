// Package storage mirrors voicemail audio into an S3-compatible bucket.
package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
)

var ErrInvalidKey = errors.New("storage: invalid object key")

// Store is the object storage the voicemail archiver writes to.
type Store interface {
	// Put uploads r under key. size may be -1 when unknown.
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	// PublicURL is the unauthenticated URL of key.
	PublicURL(key string) string
}

// cleanKey rejects empty keys and path escapes.
func cleanKey(key string) (string, error) {
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	if key == "" || strings.Contains(key, "..") {
		return "", ErrInvalidKey
	}
	return key, nil
}

// Object is one entry of a MemoryStore.
type Object struct {
	Data        []byte
	ContentType string
}

// MemoryStore keeps objects in memory. Used by tests and local runs without
// a bucket.
type MemoryStore struct {
	BaseURL string

	mu      sync.Mutex
	objects map[string]Object
}

func NewMemoryStore(baseURL string) *MemoryStore {
	return &MemoryStore{BaseURL: strings.TrimRight(baseURL, "/"), objects: map[string]Object{}}
}

func (m *MemoryStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	key, err := cleanKey(key)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = Object{Data: buf.Bytes(), ContentType: contentType}
	return nil
}

func (m *MemoryStore) PublicURL(key string) string {
	return m.BaseURL + "/" + strings.TrimLeft(key, "/")
}

// Get returns a stored object.
func (m *MemoryStore) Get(key string) (Object, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.objects[key]
	return o, ok
}
