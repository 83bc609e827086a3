package metadata_test

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/rohmanhakim/nps-explorer/internal/metadata"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRecorder(t *testing.T) (*metadata.Recorder, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)
	return metadata.NewRecorder(logger), &buf
}

func TestRecorder_CacheLookupsAreCountedAndLogged(t *testing.T) {
	recorder, buf := newTestRecorder(t)

	recorder.RecordCacheLookup("https://www.nps.gov/index.htm", false)
	recorder.RecordCacheLookup("https://www.nps.gov/index.htm", true)
	recorder.RecordCacheLookup("49684", true)

	summary := recorder.Summary()
	assert.Equal(t, 2, summary.CacheHits)
	assert.Equal(t, 1, summary.CacheMisses)

	out := buf.String()
	assert.Contains(t, out, "making new request")
	assert.Contains(t, out, "fetching cached data")
	assert.Contains(t, out, `"cache_key":"49684"`)
	assert.Contains(t, out, recorder.SessionId())
}

func TestRecorder_FetchErrorAndArtifactCounters(t *testing.T) {
	recorder, buf := newTestRecorder(t)

	recorder.RecordFetch("https://www.nps.gov/isro/index.htm", 200, 120*time.Millisecond, "text/html", 0)
	recorder.RecordFetch("https://www.nps.gov/slbe/index.htm", 503, time.Second, "text/html", 2)
	recorder.RecordError(
		time.Now(),
		"cachestore",
		"Store.Load",
		metadata.CauseCacheCorrupt,
		errors.New("checksum mismatch").Error(),
		[]metadata.Attribute{metadata.NewAttr(metadata.AttrBackend, "file")},
	)
	recorder.RecordArtifact(metadata.ArtifactCacheDocument, "cache_nps.json", nil)

	summary := recorder.Summary()
	assert.Equal(t, 2, summary.Fetches)
	assert.Equal(t, 1, summary.Errors)
	assert.Equal(t, 1, summary.Artifacts)
	assert.Equal(t, 0, summary.CacheHits)

	out := buf.String()
	assert.Contains(t, out, `"cause":"cache_corrupt"`)
	assert.Contains(t, out, `"backend":"file"`)
	assert.Contains(t, out, "checksum mismatch")
}

func TestRecorder_RecordSessionEndIsStable(t *testing.T) {
	recorder, _ := newTestRecorder(t)
	recorder.RecordCacheLookup("k", false)

	first := recorder.RecordSessionEnd()
	recorder.RecordCacheLookup("k", true)
	second := recorder.RecordSessionEnd()

	assert.Equal(t, first, second)
	assert.Equal(t, 1, first.CacheMisses)
	assert.Equal(t, recorder.SessionId(), first.SessionId)
}

func TestRecorder_RegistriesAreIsolated(t *testing.T) {
	a, _ := newTestRecorder(t)
	b, _ := newTestRecorder(t)

	a.RecordCacheLookup("k", true)

	assert.Equal(t, 1, a.Summary().CacheHits)
	assert.Equal(t, 0, b.Summary().CacheHits)
	assert.NotEqual(t, a.SessionId(), b.SessionId())

	families, err := a.Registry().Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestErrorCause_String(t *testing.T) {
	tests := []struct {
		cause    metadata.ErrorCause
		expected string
	}{
		{metadata.CauseUnknown, "unknown"},
		{metadata.CauseNetworkFailure, "network_failure"},
		{metadata.CausePolicyDisallow, "policy_disallow"},
		{metadata.CauseContentInvalid, "content_invalid"},
		{metadata.CauseStorageFailure, "storage_failure"},
		{metadata.CauseCacheCorrupt, "cache_corrupt"},
		{metadata.ErrorCause(99), "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.cause.String())
		})
	}
}

func TestNoopSink_SatisfiesMetadataSink(t *testing.T) {
	var sink metadata.MetadataSink = &metadata.NoopSink{}
	sink.RecordCacheLookup("k", true)
	sink.RecordFetch("u", 200, 0, "text/html", 0)
	sink.RecordError(time.Now(), "p", "a", metadata.CauseUnknown, "e", nil)
	sink.RecordArtifact(metadata.ArtifactCacheDocument, "p", nil)

	var _ metadata.MetadataSink = &metadata.Recorder{}
	var _ metadata.SessionFinalizer = &metadata.Recorder{}
}
