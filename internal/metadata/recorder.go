package metadata

import (
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

/*
Metadata Collected
- Cache hits and misses per request key
- Fetch timestamps, HTTP status codes and durations
- Cache document writes
- Classified errors

Structured logging is preferred.

Metadata is write-only.
No component may read metadata to influence fetch or cache decisions.
*/

/*
Recorder captures structured session events.
It must not:
- perform I/O decisions
- affect control flow

Events are logged through zerolog and counted on a private prometheus
registry, so two recorders never share counters.
*/
type Recorder struct {
	sessionId string
	logger    zerolog.Logger
	startedAt time.Time

	registry  *prometheus.Registry
	lookups   *prometheus.CounterVec
	fetches   *prometheus.CounterVec
	errors    *prometheus.CounterVec
	artifacts *prometheus.CounterVec
	latency   prometheus.Histogram

	mu      sync.Mutex
	summary *SessionSummary
}

func NewRecorder(logger zerolog.Logger) *Recorder {
	sessionId := uuid.NewString()
	r := &Recorder{
		sessionId: sessionId,
		logger:    logger.With().Str("session", sessionId).Logger(),
		startedAt: time.Now(),
		registry:  prometheus.NewRegistry(),
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nps_cache_lookups_total",
			Help: "Cache lookups by result (hit or miss).",
		}, []string{"result"}),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nps_fetches_total",
			Help: "Outbound fetches by HTTP status.",
		}, []string{"status"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nps_errors_total",
			Help: "Recorded errors by package and cause.",
		}, []string{"package", "cause"}),
		artifacts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nps_artifacts_written_total",
			Help: "Persisted artifacts by kind.",
		}, []string{"kind"}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "nps_fetch_duration_seconds",
			Help:    "Outbound fetch latency.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	r.registry.MustRegister(r.lookups, r.fetches, r.errors, r.artifacts, r.latency)
	return r
}

func (r *Recorder) SessionId() string {
	return r.sessionId
}

// Registry exposes the recorder's private registry, e.g. for a metrics dump.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func (r *Recorder) RecordError(
	observedAt time.Time,
	packageName string,
	action string,
	cause ErrorCause,
	errorString string,
	attrs []Attribute,
) {
	record := ErrorRecord{
		packageName: packageName,
		action:      action,
		cause:       cause,
		errorString: errorString,
		observedAt:  observedAt,
		attrs:       attrs,
	}
	r.errors.WithLabelValues(packageName, cause.String()).Inc()

	event := r.logger.Error().
		Time(string(AttrTime), record.observedAt).
		Str("package", record.packageName).
		Str("action", record.action).
		Str("cause", record.cause.String())
	withAttrs(event, record.attrs).Msg(record.errorString)
}

func (r *Recorder) RecordFetch(
	fetchUrl string,
	httpStatus int,
	duration time.Duration,
	contentType string,
	retryCount int,
) {
	ev := FetchEvent{
		fetchUrl:    fetchUrl,
		httpStatus:  httpStatus,
		duration:    duration,
		contentType: contentType,
		retryCount:  retryCount,
	}
	r.fetches.WithLabelValues(strconv.Itoa(ev.httpStatus)).Inc()
	r.latency.Observe(ev.duration.Seconds())

	r.logger.Debug().
		Str(string(AttrURL), ev.fetchUrl).
		Int(string(AttrHTTPStatus), ev.httpStatus).
		Dur("duration", ev.duration).
		Str("content_type", ev.contentType).
		Int("retries", ev.retryCount).
		Msg("fetched")
}

func (r *Recorder) RecordCacheLookup(key string, hit bool) {
	if hit {
		r.lookups.WithLabelValues("hit").Inc()
		r.logger.Info().Str(string(AttrCacheKey), key).Msg("fetching cached data")
		return
	}
	r.lookups.WithLabelValues("miss").Inc()
	r.logger.Info().Str(string(AttrCacheKey), key).Msg("making new request")
}

func (r *Recorder) RecordArtifact(kind ArtifactKind, path string, attrs []Attribute) {
	r.artifacts.WithLabelValues(string(kind)).Inc()
	event := r.logger.Debug().
		Str("kind", string(kind)).
		Str(string(AttrWritePath), path)
	withAttrs(event, attrs).Msg("artifact written")
}

/*
RecordSessionEnd records the terminal summary of a session.

Contract:
  - MUST be called at most once per session; later calls return the first summary.
  - The summary is derived from the recorder's counters only.
*/
func (r *Recorder) RecordSessionEnd() SessionSummary {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.summary != nil {
		return *r.summary
	}

	summary := r.Summary()
	r.summary = &summary
	r.logger.Info().
		Int("cache_hits", summary.CacheHits).
		Int("cache_misses", summary.CacheMisses).
		Int("fetches", summary.Fetches).
		Int("errors", summary.Errors).
		Int("artifacts", summary.Artifacts).
		Dur("duration", summary.Duration).
		Msg("session finished")
	return summary
}

// Summary gathers the current counter values.
func (r *Recorder) Summary() SessionSummary {
	summary := SessionSummary{
		SessionId: r.sessionId,
		Duration:  time.Since(r.startedAt),
	}

	families, err := r.registry.Gather()
	if err != nil {
		return summary
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			value := int(m.GetCounter().GetValue())
			switch mf.GetName() {
			case "nps_cache_lookups_total":
				for _, label := range m.GetLabel() {
					if label.GetName() != "result" {
						continue
					}
					if label.GetValue() == "hit" {
						summary.CacheHits += value
					} else {
						summary.CacheMisses += value
					}
				}
			case "nps_fetches_total":
				summary.Fetches += value
			case "nps_errors_total":
				summary.Errors += value
			case "nps_artifacts_written_total":
				summary.Artifacts += value
			}
		}
	}
	return summary
}

func withAttrs(event *zerolog.Event, attrs []Attribute) *zerolog.Event {
	for _, attr := range attrs {
		event = event.Str(string(attr.Key), attr.Value)
	}
	return event
}

type MetadataSink interface {
	RecordError(
		observedAt time.Time,
		packageName string,
		action string,
		cause ErrorCause,
		details string,
		attrs []Attribute,
	)

	RecordFetch(
		fetchUrl string,
		httpStatus int,
		duration time.Duration,
		contentType string,
		retryCount int,
	)
	RecordCacheLookup(key string, hit bool)
	RecordArtifact(kind ArtifactKind, path string, attrs []Attribute)
}

type SessionFinalizer interface {
	RecordSessionEnd() SessionSummary
}

// NoopSink, struct that implements metadata.Sink but does nothing
// Callers (or tests) decide whether to inject Recorder or NoopSink

type NoopSink struct{}

func (n *NoopSink) RecordError(
	observedAt time.Time,
	packageName string,
	action string,
	cause ErrorCause,
	errorString string,
	attrs []Attribute,
) {
}

func (n *NoopSink) RecordFetch(
	fetchUrl string,
	httpStatus int,
	duration time.Duration,
	contentType string,
	retryCount int,
) {
}

func (n *NoopSink) RecordCacheLookup(key string, hit bool) {}

func (n *NoopSink) RecordArtifact(kind ArtifactKind, path string, attrs []Attribute) {}
