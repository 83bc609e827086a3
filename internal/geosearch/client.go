package geosearch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rohmanhakim/nps-explorer/internal/metadata"
	"github.com/rohmanhakim/nps-explorer/pkg/failure"
	"github.com/rohmanhakim/nps-explorer/pkg/retry"
	"github.com/tidwall/gjson"
)

// Query is one radius search around an origin (a zipcode here).
type Query struct {
	Origin      string
	Radius      int
	MaxMatches  int
	Ambiguities string
	OutFormat   string
}

/*
Client calls the MapQuest radius search API.

The response body is returned verbatim once it is known to be JSON with a
zero info.statuscode. Parsing places out of it is left to the caller.
The API key never appears in recorded URLs or errors.
*/
type Client struct {
	endpoint     url.URL
	apiKey       string
	httpClient   *http.Client
	metadataSink metadata.MetadataSink
}

func NewClient(
	endpoint url.URL,
	apiKey string,
	httpClient *http.Client,
	metadataSink metadata.MetadataSink,
) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if metadataSink == nil {
		metadataSink = &metadata.NoopSink{}
	}
	return &Client{
		endpoint:     endpoint,
		apiKey:       apiKey,
		httpClient:   httpClient,
		metadataSink: metadataSink,
	}
}

func (c *Client) Search(ctx context.Context, query Query, retryParam retry.RetryParam) ([]byte, failure.ClassifiedError) {
	callerMethod := "Client.Search"
	redacted := c.requestURL(query, false)

	if strings.TrimSpace(c.apiKey) == "" {
		err := &SearchError{
			Message:   "MAPQUEST_API_KEY is not set",
			Retryable: false,
			Cause:     ErrCauseMissingAPIKey,
		}
		c.recordError(callerMethod, redacted, query, err)
		return nil, err
	}
	if strings.TrimSpace(query.Origin) == "" {
		err := &SearchError{
			Message:   "origin is empty",
			Retryable: false,
			Cause:     ErrCauseInvalidQuery,
		}
		c.recordError(callerMethod, redacted, query, err)
		return nil, err
	}

	startTime := time.Now()
	attempts := 0
	var status int
	body, err := retry.Retry(ctx, retryParam, func() ([]byte, failure.ClassifiedError) {
		attempts++
		var body []byte
		var err failure.ClassifiedError
		body, status, err = c.perform(ctx, query)
		return body, err
	})

	retryCount := 0
	if attempts > 1 {
		retryCount = attempts - 1
	}
	c.metadataSink.RecordFetch(redacted, status, time.Since(startTime), "application/json", retryCount)

	if err != nil {
		c.recordError(callerMethod, redacted, query, err)
		return nil, err
	}
	return body, nil
}

func (c *Client) perform(ctx context.Context, query Query) ([]byte, int, failure.ClassifiedError) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.requestURL(query, true), nil)
	if err != nil {
		return nil, 0, &SearchError{
			Message:   fmt.Sprintf("failed to create request: %v", err),
			Retryable: false,
			Cause:     ErrCauseInvalidQuery,
		}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		searchErr := classifyTransportError(ctx, err)
		searchErr.Message = c.redact(searchErr.Message)
		return nil, 0, searchErr
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500:
		return nil, resp.StatusCode, &SearchError{
			Message:   fmt.Sprintf("server error: %d", resp.StatusCode),
			Retryable: true,
			Cause:     ErrCauseServerError,
		}
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, resp.StatusCode, &SearchError{
			Message:   "rate limited (429)",
			Retryable: true,
			Cause:     ErrCauseTooManyRequests,
		}
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, resp.StatusCode, &SearchError{
			Message:   fmt.Sprintf("api key rejected (%d)", resp.StatusCode),
			Retryable: false,
			Cause:     ErrCauseUnauthorized,
		}
	case resp.StatusCode >= 300:
		return nil, resp.StatusCode, &SearchError{
			Message:   fmt.Sprintf("unexpected status: %d", resp.StatusCode),
			Retryable: false,
			Cause:     ErrCauseClientError,
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, &SearchError{
			Message:   fmt.Sprintf("failed to read response body: %v", err),
			Retryable: true,
			Cause:     ErrCauseNetworkFailure,
		}
	}

	if !gjson.ValidBytes(body) {
		return nil, resp.StatusCode, &SearchError{
			Message:   "response is not JSON",
			Retryable: false,
			Cause:     ErrCauseInvalidResponse,
		}
	}
	if code := gjson.GetBytes(body, "info.statuscode"); code.Exists() && code.Int() != 0 {
		return nil, resp.StatusCode, &SearchError{
			Message:   fmt.Sprintf("statuscode %d: %s", code.Int(), gjson.GetBytes(body, "info.messages.0").String()),
			Retryable: false,
			Cause:     ErrCauseAPIStatus,
		}
	}
	return body, resp.StatusCode, nil
}

func (c *Client) requestURL(query Query, withKey bool) string {
	u := c.endpoint
	params := url.Values{}
	if withKey {
		params.Set("key", c.apiKey)
	}
	params.Set("origin", query.Origin)
	params.Set("radius", strconv.Itoa(query.Radius))
	params.Set("maxMatches", strconv.Itoa(query.MaxMatches))
	params.Set("ambiguities", query.Ambiguities)
	params.Set("outFormat", query.OutFormat)
	u.RawQuery = params.Encode()
	return u.String()
}

// redact strips the API key from transport error text, which quotes the request URL.
func (c *Client) redact(message string) string {
	if c.apiKey == "" {
		return message
	}
	return strings.ReplaceAll(message, url.QueryEscape(c.apiKey), "REDACTED")
}

func (c *Client) recordError(callerMethod string, redactedURL string, query Query, err failure.ClassifiedError) {
	cause := metadata.CauseUnknown
	var searchErr *SearchError
	if errors.As(err, &searchErr) {
		cause = mapSearchErrorToMetadataCause(searchErr)
	}
	c.metadataSink.RecordError(
		time.Now(),
		"geosearch",
		callerMethod,
		cause,
		err.Error(),
		[]metadata.Attribute{
			metadata.NewAttr(metadata.AttrURL, redactedURL),
			metadata.NewAttr(metadata.AttrZipcode, query.Origin),
		},
	)
}

func classifyTransportError(ctx context.Context, err error) *SearchError {
	if ctx.Err() != nil {
		return &SearchError{
			Message:   fmt.Sprintf("request aborted: %v", ctx.Err()),
			Retryable: false,
			Cause:     ErrCauseTimeout,
		}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &SearchError{
			Message:   fmt.Sprintf("request timed out: %v", err),
			Retryable: true,
			Cause:     ErrCauseTimeout,
		}
	}
	return &SearchError{
		Message:   fmt.Sprintf("request failed: %v", err),
		Retryable: true,
		Cause:     ErrCauseNetworkFailure,
	}
}
