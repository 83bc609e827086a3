package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rohmanhakim/nps-explorer/internal/metadata"
	"github.com/rohmanhakim/nps-explorer/pkg/failure"
	"github.com/rohmanhakim/nps-explorer/pkg/limiter"
	"github.com/rohmanhakim/nps-explorer/pkg/retry"
)

/*
Responsibilities

- Perform HTTP requests for park site pages
- Apply headers and timeouts
- Keep a polite delay between requests to the same host
- Classify responses

Fetch Semantics

- Only successful HTML responses are returned
- Non-HTML content is rejected
- 429 and 5xx are retried with backoff; other 4xx and 3xx are fatal
- Every fetch is reported to the metadata sink

The fetcher never parses content; it only returns bytes and metadata.
*/

type HtmlFetcher struct {
	metadataSink metadata.MetadataSink
	httpClient   *http.Client
	rateLimiter  limiter.RateLimiter
}

// NewHtmlFetcher builds a fetcher. A nil httpClient uses a default client and a
// nil rateLimiter disables the politeness delay.
func NewHtmlFetcher(
	metadataSink metadata.MetadataSink,
	httpClient *http.Client,
	rateLimiter limiter.RateLimiter,
) HtmlFetcher {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if metadataSink == nil {
		metadataSink = &metadata.NoopSink{}
	}
	return HtmlFetcher{
		metadataSink: metadataSink,
		httpClient:   httpClient,
		rateLimiter:  rateLimiter,
	}
}

func (h *HtmlFetcher) Fetch(
	ctx context.Context,
	fetchParam FetchParam,
	retryParam retry.RetryParam,
) (FetchResult, failure.ClassifiedError) {
	callerMethod := "HtmlFetcher.Fetch"
	startTime := time.Now()

	attempts := 0
	result, err := h.fetchWithRetry(ctx, fetchParam, retryParam, &attempts)

	duration := time.Since(startTime)

	var statusCode int
	var contentType string
	if err == nil {
		statusCode = result.Code()
		contentType = result.Headers()["Content-Type"]
		result.meta.attempts = attempts
	}

	retryCount := 0
	if attempts > 1 {
		retryCount = attempts - 1
	}

	h.metadataSink.RecordFetch(
		fetchParam.fetchUrl.String(),
		statusCode,
		duration,
		contentType,
		retryCount,
	)

	if err != nil {
		h.recordError(callerMethod, fetchParam.fetchUrl, err)
		return FetchResult{}, err
	}

	return result, nil
}

func (h *HtmlFetcher) recordError(callerMethod string, fetchUrl url.URL, err failure.ClassifiedError) {
	cause := metadata.CauseUnknown
	var fetchError *FetchError
	if errors.As(err, &fetchError) {
		cause = mapFetchErrorToMetadataCause(fetchError)
	}

	h.metadataSink.RecordError(
		time.Now(),
		"fetcher",
		callerMethod,
		cause,
		err.Error(),
		[]metadata.Attribute{
			metadata.NewAttr(metadata.AttrURL, fetchUrl.String()),
			metadata.NewAttr(metadata.AttrHost, fetchUrl.Host),
		},
	)
}

func (h *HtmlFetcher) fetchWithRetry(
	ctx context.Context,
	fetchParam FetchParam,
	retryParam retry.RetryParam,
	attempts *int,
) (FetchResult, failure.ClassifiedError) {
	host := fetchParam.fetchUrl.Host

	fetchTask := func() (FetchResult, failure.ClassifiedError) {
		if h.rateLimiter != nil {
			if err := h.rateLimiter.Wait(ctx, host); err != nil {
				return FetchResult{}, &FetchError{
					Message:   fmt.Sprintf("waiting for %s: %v", host, err),
					Retryable: false,
					Cause:     ErrCauseTimeout,
				}
			}
		}

		*attempts++
		result, err := h.performFetch(ctx, fetchParam.fetchUrl, fetchParam.userAgent)

		if h.rateLimiter != nil {
			h.rateLimiter.MarkLastFetchAsNow(host)
			var fetchErr *FetchError
			switch {
			case err == nil:
				h.rateLimiter.ResetBackoff(host)
			case errors.As(err, &fetchErr) &&
				(fetchErr.Cause == ErrCauseRequestTooMany || fetchErr.Cause == ErrCauseRequest5xx):
				h.rateLimiter.Backoff(host)
			}
		}
		return result, err
	}

	return retry.Retry(ctx, retryParam, fetchTask)
}

func (h *HtmlFetcher) performFetch(ctx context.Context, fetchUrl url.URL, userAgent string) (FetchResult, failure.ClassifiedError) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fetchUrl.String(), nil)
	if err != nil {
		return FetchResult{}, &FetchError{
			Message:   fmt.Sprintf("failed to create request: %v", err),
			Retryable: false,
			Cause:     ErrCauseNetworkFailure,
		}
	}

	for key, value := range requestHeaders(userAgent) {
		req.Header.Set(key, value)
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return FetchResult{}, classifyTransportError(ctx, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500:
		return FetchResult{}, &FetchError{
			Message:   fmt.Sprintf("server error: %d", resp.StatusCode),
			Retryable: true,
			Cause:     ErrCauseRequest5xx,
		}

	case resp.StatusCode == http.StatusTooManyRequests:
		return FetchResult{}, &FetchError{
			Message:   "rate limited (429)",
			Retryable: true,
			Cause:     ErrCauseRequestTooMany,
		}

	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusUnauthorized:
		return FetchResult{}, &FetchError{
			Message:   fmt.Sprintf("access denied (%d)", resp.StatusCode),
			Retryable: false,
			Cause:     ErrCauseRequestPageForbidden,
		}

	case resp.StatusCode == http.StatusNotFound:
		return FetchResult{}, &FetchError{
			Message:   fmt.Sprintf("page not found: %s", fetchUrl.String()),
			Retryable: false,
			Cause:     ErrCauseRequestNotFound,
		}

	case resp.StatusCode >= 400:
		return FetchResult{}, &FetchError{
			Message:   fmt.Sprintf("client error: %d", resp.StatusCode),
			Retryable: false,
			Cause:     ErrCauseRequestClientError,
		}

	case resp.StatusCode >= 300:
		// http.Client follows redirects; landing here means it gave up
		return FetchResult{}, &FetchError{
			Message:   fmt.Sprintf("redirect error: %d", resp.StatusCode),
			Retryable: false,
			Cause:     ErrCauseRedirectLimitExceeded,
		}
	}

	contentType := resp.Header.Get("Content-Type")
	if !isHTMLContent(contentType) {
		return FetchResult{}, &FetchError{
			Message:   fmt.Sprintf("non-HTML content type: %s", contentType),
			Retryable: false,
			Cause:     ErrCauseContentTypeInvalid,
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return FetchResult{}, &FetchError{
			Message:   fmt.Sprintf("failed to read response body: %v", err),
			Retryable: true,
			Cause:     ErrCauseReadResponseBodyError,
		}
	}

	responseHeaders := make(map[string]string)
	for key, values := range resp.Header {
		if len(values) > 0 {
			responseHeaders[key] = values[0]
		}
	}

	return FetchResult{
		url:  fetchUrl,
		body: body,
		meta: ResponseMeta{
			statusCode:          resp.StatusCode,
			transferredSizeByte: uint64(len(body)),
			responseHeaders:     responseHeaders,
		},
	}, nil
}

// classifyTransportError separates a caller deadline, which is final, from
// transient network trouble.
func classifyTransportError(ctx context.Context, err error) *FetchError {
	if ctx.Err() != nil {
		return &FetchError{
			Message:   fmt.Sprintf("request aborted: %v", ctx.Err()),
			Retryable: false,
			Cause:     ErrCauseTimeout,
		}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &FetchError{
			Message:   fmt.Sprintf("request timed out: %v", err),
			Retryable: true,
			Cause:     ErrCauseTimeout,
		}
	}
	return &FetchError{
		Message:   fmt.Sprintf("request failed: %v", err),
		Retryable: true,
		Cause:     ErrCauseNetworkFailure,
	}
}

func isHTMLContent(contentType string) bool {
	contentType = strings.ToLower(contentType)
	return strings.Contains(contentType, "text/html") ||
		strings.Contains(contentType, "application/xhtml")
}

func requestHeaders(userAgent string) map[string]string {
	return map[string]string{
		"User-Agent":      userAgent,
		"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
		"Accept-Language": "en-US,en;q=0.5",
		"DNT":             "1",
	}
}
