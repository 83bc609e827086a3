package metadata

import (
	"time"
)

type FetchEvent struct {
	fetchUrl    string
	httpStatus  int
	duration    time.Duration
	contentType string
	retryCount  int
}

func (f FetchEvent) FetchUrl() string {
	return f.fetchUrl
}

func (f FetchEvent) HTTPStatus() int {
	return f.httpStatus
}

func (f FetchEvent) Duration() time.Duration {
	return f.duration
}

func (f FetchEvent) ContentType() string {
	return f.contentType
}

func (f FetchEvent) RetryCount() int {
	return f.retryCount
}

/*
SessionSummary
  - Represents a terminal, derived summary of one interactive session
  - Contains only aggregate counts
  - Is gathered from the recorder's own counters, never from cache contents
  - Must not influence fetching, caching or prompting
*/
type SessionSummary struct {
	SessionId   string
	CacheHits   int
	CacheMisses int
	Fetches     int
	Errors      int
	Artifacts   int
	Duration    time.Duration
}

/*
	ErrorCause is a closed, canonical classification used exclusively for
	observability (logging, metrics, reporting).

	Rules:
	 - ErrorCause MUST NOT influence control flow.
	 - ErrorCause MUST NOT be used for retry, continuation, or abort decisions.
	 - Packages MAY map their local errors to ErrorCause,
	   but MUST NOT invent new meanings.

If a failure does not clearly match a defined cause, CauseUnknown MUST be used.
*/
type ErrorCause int

/*
Canonical ErrorCause Table

# CauseUnknown

Meaning:
  - The failure does not map cleanly to any known category.

# CauseNetworkFailure

Meaning:
  - Failure caused by network transport or remote availability.

Examples:
  - TCP timeouts, DNS failures, connection resets
  - HTTP 5xx from the park site or the geosearch API

# CausePolicyDisallow

Meaning:
  - The remote side refused the request.

Examples:
  - HTTP 401 / 403
  - Missing or rejected geosearch API key
  - HTTP 429 rate limiting

# CauseContentInvalid

Meaning:
  - Content was fetched but could not be processed meaningfully.

Examples:
  - Non-HTML page responses
  - Non-JSON geosearch responses
  - Cached page payload that is not a JSON string

# CauseStorageFailure

Meaning:
  - Failure while reading or persisting the cache document.

Examples:
  - Disk full, permission errors
  - Redis unreachable

# CauseCacheCorrupt

Meaning:
  - The persisted cache document exists but cannot be trusted.

Examples:
  - Unparsable JSON
  - Unknown document version
  - Checksum mismatch
*/
const (
	CauseUnknown ErrorCause = iota
	CauseNetworkFailure
	CausePolicyDisallow
	CauseContentInvalid
	CauseStorageFailure
	CauseCacheCorrupt
)

func (c ErrorCause) String() string {
	switch c {
	case CauseNetworkFailure:
		return "network_failure"
	case CausePolicyDisallow:
		return "policy_disallow"
	case CauseContentInvalid:
		return "content_invalid"
	case CauseStorageFailure:
		return "storage_failure"
	case CauseCacheCorrupt:
		return "cache_corrupt"
	default:
		return "unknown"
	}
}

type ErrorRecord struct {
	packageName string
	action      string
	cause       ErrorCause
	errorString string
	observedAt  time.Time
	attrs       []Attribute
}

// ArtifactKind names what a persisted artifact is.
type ArtifactKind string

const (
	ArtifactCacheDocument ArtifactKind = "cache_document"
)

type Attribute struct {
	Key   AttributeKey
	Value string
}

func NewAttr(key AttributeKey, val string) Attribute {
	return Attribute{
		Key:   key,
		Value: val,
	}
}

type AttributeKey string

const (
	AttrTime       AttributeKey = "time"
	AttrURL        AttributeKey = "url"
	AttrHost       AttributeKey = "host"
	AttrPath       AttributeKey = "path"
	AttrField      AttributeKey = "field"
	AttrHTTPStatus AttributeKey = "http_status"
	AttrCacheKey   AttributeKey = "cache_key"
	AttrBackend    AttributeKey = "backend"
	AttrEntries    AttributeKey = "entries"
	AttrZipcode    AttributeKey = "zipcode"
	AttrWritePath  AttributeKey = "write_path"
)
