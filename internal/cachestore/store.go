package cachestore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/rohmanhakim/nps-explorer/internal/metadata"
)

/*
Store is the write-through response cache.

Responsibilities
  - Load the persisted document once, at first use
  - Serve lookups from memory
  - Persist the full mapping after every Put

Keys are untyped strings and payloads are untyped JSON values. Page URLs and
zipcodes share one namespace; the store performs no collision detection.

Loading never fails: a missing, unreadable or untrusted document yields an
empty mapping and is reported to the sink.

Every mutation and save runs under one mutex. Save re-adopts keys found in the
persisted document that are absent in memory, so concurrent writers sharing a
backend do not drop each other's entries; for a key present on both sides the
in-memory payload wins.
*/
type Store struct {
	backend Backend
	sink    metadata.MetadataSink

	mu      sync.Mutex
	loaded  bool
	entries map[string]json.RawMessage
}

func NewStore(backend Backend, sink metadata.MetadataSink) *Store {
	if sink == nil {
		sink = &metadata.NoopSink{}
	}
	return &Store{
		backend: backend,
		sink:    sink,
		entries: map[string]json.RawMessage{},
	}
}

// Load reads the persisted document and returns its mapping.
// It never fails; anything it cannot read or trust yields an empty mapping.
func (s *Store) Load(ctx context.Context) map[string]json.RawMessage {
	entries, _ := s.read(ctx, "Store.Load")
	return entries
}

func (s *Store) Get(ctx context.Context, key string) (json.RawMessage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureLoaded(ctx)
	payload, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	return bytes.Clone(payload), true
}

// Put stores payload under key and persists the whole mapping.
// The entry stays in memory even when persisting fails.
func (s *Store) Put(ctx context.Context, key string, payload []byte) error {
	canonical, err := canonicalPayload(payload)
	if err != nil {
		storeErr := &StoreError{
			Message: fmt.Sprintf("key %q: %v", key, err),
			Cause:   ErrCauseInvalidPayload,
			Err:     err,
		}
		s.report("Store.Put", storeErr, key)
		return storeErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureLoaded(ctx)
	s.entries[key] = canonical
	return s.saveLocked(ctx, true)
}

// Save persists the in-memory mapping merged with the persisted one.
func (s *Store) Save(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureLoaded(ctx)
	return s.saveLocked(ctx, true)
}

// Clear empties memory and overwrites the persisted document.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loaded = true
	s.entries = map[string]json.RawMessage{}
	return s.saveLocked(ctx, false)
}

func (s *Store) Len(ctx context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureLoaded(ctx)
	return len(s.entries)
}

// Keys returns the cached keys in sorted order.
func (s *Store) Keys(ctx context.Context) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureLoaded(ctx)
	keys := make([]string, 0, len(s.entries))
	for key := range s.entries {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}

func (s *Store) Describe() string {
	return s.backend.Describe()
}

func (s *Store) ensureLoaded(ctx context.Context) {
	if s.loaded {
		return
	}
	s.entries, _ = s.read(ctx, "Store.Load")
	s.loaded = true
}

// read returns the persisted mapping, or an empty one. found reports whether a
// trusted document was read.
func (s *Store) read(ctx context.Context, action string) (entries map[string]json.RawMessage, found bool) {
	data, err := s.backend.Read(ctx)
	if errors.Is(err, ErrDocumentNotFound) {
		return map[string]json.RawMessage{}, false
	}
	if err != nil {
		s.report(action, &StoreError{
			Message:   err.Error(),
			Retryable: true,
			Cause:     ErrCauseReadFailure,
			Err:       err,
		}, "")
		return map[string]json.RawMessage{}, false
	}

	entries, _, storeErr := decodeDocument(data)
	if storeErr != nil {
		s.report(action, storeErr, "")
		return map[string]json.RawMessage{}, false
	}
	return entries, true
}

func (s *Store) saveLocked(ctx context.Context, merge bool) error {
	if merge {
		persisted, _ := s.read(ctx, "Store.Save")
		for key, payload := range persisted {
			if _, ok := s.entries[key]; !ok {
				s.entries[key] = payload
			}
		}
	}

	data, err := encodeDocument(s.entries)
	if err != nil {
		storeErr := &StoreError{Message: err.Error(), Cause: ErrCauseEncodeFailure, Err: err}
		s.report("Store.Save", storeErr, "")
		return storeErr
	}

	if err := s.backend.Write(ctx, data); err != nil {
		storeErr := &StoreError{
			Message:   err.Error(),
			Retryable: true,
			Cause:     ErrCauseWriteFailure,
			Err:       err,
		}
		s.report("Store.Save", storeErr, "")
		return storeErr
	}

	s.sink.RecordArtifact(
		metadata.ArtifactCacheDocument,
		s.backend.Describe(),
		[]metadata.Attribute{
			metadata.NewAttr(metadata.AttrEntries, strconv.Itoa(len(s.entries))),
		},
	)
	return nil
}

func (s *Store) report(action string, err *StoreError, key string) {
	attrs := []metadata.Attribute{
		metadata.NewAttr(metadata.AttrBackend, s.backend.Describe()),
	}
	if key != "" {
		attrs = append(attrs, metadata.NewAttr(metadata.AttrCacheKey, key))
	}
	s.sink.RecordError(
		time.Now(),
		"cachestore",
		action,
		mapStoreErrorToMetadataCause(err),
		err.Error(),
		attrs,
	)
}
