package cachestore_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rohmanhakim/nps-explorer/internal/cachestore"
	"github.com/rohmanhakim/nps-explorer/internal/metadata"
)

type recordedError struct {
	action string
	cause  metadata.ErrorCause
}

// recordingSink keeps errors and artifacts for assertions.
type recordingSink struct {
	metadata.NoopSink
	mu        sync.Mutex
	errors    []recordedError
	artifacts int
}

func (r *recordingSink) RecordError(
	observedAt time.Time,
	packageName string,
	action string,
	cause metadata.ErrorCause,
	details string,
	attrs []metadata.Attribute,
) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, recordedError{action: action, cause: cause})
}

func (r *recordingSink) RecordArtifact(kind metadata.ArtifactKind, path string, attrs []metadata.Attribute) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.artifacts++
}

func (r *recordingSink) causes() []metadata.ErrorCause {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]metadata.ErrorCause, 0, len(r.errors))
	for _, e := range r.errors {
		out = append(out, e.cause)
	}
	return out
}

// memoryBackend is an in-process Backend with switchable failures.
type memoryBackend struct {
	mu       sync.Mutex
	data     []byte
	readErr  error
	writeErr error
	writes   int
}

func (m *memoryBackend) Read(ctx context.Context) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return nil, m.readErr
	}
	if m.data == nil {
		return nil, cachestore.ErrDocumentNotFound
	}
	return append([]byte(nil), m.data...), nil
}

func (m *memoryBackend) Write(ctx context.Context, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	m.data = append([]byte(nil), data...)
	m.writes++
	return nil
}

func (m *memoryBackend) Describe() string {
	return "memory"
}

var errDiskGone = errors.New("disk gone")
