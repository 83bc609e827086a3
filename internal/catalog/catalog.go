package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rohmanhakim/nps-explorer/internal/fetcher"
	"github.com/rohmanhakim/nps-explorer/internal/gateway"
	"github.com/rohmanhakim/nps-explorer/internal/metadata"
	"github.com/rohmanhakim/nps-explorer/internal/site"
	"github.com/rohmanhakim/nps-explorer/pkg/retry"
	"golang.org/x/net/html"
)

// PageGateway is the cache-checked fetch the catalog goes through.
type PageGateway interface {
	Fetch(ctx context.Context, key string, fn gateway.FetchFunc) (json.RawMessage, error)
}

type Options struct {
	BaseURL    url.URL
	IndexPath  string
	UserAgent  string
	RetryParam retry.RetryParam
	// MemoSize bounds the parsed-site memo; values below 1 use 1.
	MemoSize int
}

/*
Catalog builds the state index and per-state site lists from park site pages.

Every page goes through the gateway keyed by its full URL, and is cached as a
JSON string holding the raw HTML. Field extraction never fails a record:
missing fields become sentinels.
*/
type Catalog struct {
	gateway      PageGateway
	fetcher      fetcher.Fetcher
	metadataSink metadata.MetadataSink
	opts         Options

	mu         sync.Mutex
	stateIndex map[string]string
	sites      *lru.Cache[string, site.Site]
}

func NewCatalog(
	pageGateway PageGateway,
	pageFetcher fetcher.Fetcher,
	metadataSink metadata.MetadataSink,
	opts Options,
) (*Catalog, error) {
	if metadataSink == nil {
		metadataSink = &metadata.NoopSink{}
	}
	size := opts.MemoSize
	if size < 1 {
		size = 1
	}
	sites, err := lru.New[string, site.Site](size)
	if err != nil {
		return nil, fmt.Errorf("create site memo: %w", err)
	}
	return &Catalog{
		gateway:      pageGateway,
		fetcher:      pageFetcher,
		metadataSink: metadataSink,
		opts:         opts,
		sites:        sites,
	}, nil
}

// IndexURL is the page the state index is scraped from.
func (c *Catalog) IndexURL() url.URL {
	return *c.opts.BaseURL.ResolveReference(&url.URL{Path: c.opts.IndexPath})
}

// StateIndex returns lowercased state name -> state page URL.
// The index is built once per Catalog.
func (c *Catalog) StateIndex(ctx context.Context) (map[string]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stateIndex != nil {
		return c.stateIndex, nil
	}

	indexURL := c.IndexURL()
	doc, err := c.page(ctx, indexURL)
	if err != nil {
		return nil, err
	}

	index := ExtractStateIndex(doc, c.opts.BaseURL)
	if len(index) == 0 {
		return nil, c.fail("Catalog.StateIndex", indexURL.String(), &CatalogError{
			Message: fmt.Sprintf("no %q links on %s", selectorStateLinks, indexURL.String()),
			Cause:   ErrCauseNoStateIndex,
		})
	}
	c.stateIndex = index
	return index, nil
}

// LookupState resolves a user-typed state name, ignoring case and surrounding space.
func (c *Catalog) LookupState(ctx context.Context, input string) (string, bool, error) {
	index, err := c.StateIndex(ctx)
	if err != nil {
		return "", false, err
	}
	stateURL, ok := index[strings.ToLower(strings.TrimSpace(input))]
	return stateURL, ok, nil
}

// SitesForState lists every park on a state page, in page order.
// A park page the site answers with a client error or non-HTML content becomes
// an all-sentinel Site; transport, timeout and store failures abort the call.
func (c *Catalog) SitesForState(ctx context.Context, stateURL string) ([]site.Site, error) {
	u, err := c.parseURL("Catalog.SitesForState", stateURL)
	if err != nil {
		return nil, err
	}

	doc, err := c.page(ctx, u)
	if err != nil {
		return nil, err
	}

	links := ExtractSiteLinks(doc, c.opts.BaseURL)
	sites := make([]site.Site, 0, len(links))
	for _, link := range links {
		s, err := c.siteAt(ctx, link)
		if isUnusablePage(err) {
			c.metadataSink.RecordError(
				time.Now(),
				"catalog",
				"Catalog.SitesForState",
				metadata.CauseContentInvalid,
				err.Error(),
				[]metadata.Attribute{metadata.NewAttr(metadata.AttrURL, link.String())},
			)
			s, err = site.New(site.RawSite{}), nil
		}
		if err != nil {
			return nil, err
		}
		sites = append(sites, s)
	}
	return sites, nil
}

// isUnusablePage reports a page the site answered, but not with a park page.
func isUnusablePage(err error) bool {
	var fetchErr *fetcher.FetchError
	if !errors.As(err, &fetchErr) || fetchErr.Retryable {
		return false
	}
	switch fetchErr.Cause {
	case fetcher.ErrCauseRequestNotFound,
		fetcher.ErrCauseRequestClientError,
		fetcher.ErrCauseRequestPageForbidden,
		fetcher.ErrCauseContentTypeInvalid:
		return true
	}
	return false
}

// SiteAt extracts one site from its page.
func (c *Catalog) SiteAt(ctx context.Context, pageURL string) (site.Site, error) {
	u, err := c.parseURL("Catalog.SiteAt", pageURL)
	if err != nil {
		return site.Site{}, err
	}
	return c.siteAt(ctx, u)
}

func (c *Catalog) siteAt(ctx context.Context, pageURL url.URL) (site.Site, error) {
	key := pageURL.String()
	if s, ok := c.sites.Get(key); ok {
		return s, nil
	}

	doc, err := c.page(ctx, pageURL)
	if err != nil {
		return site.Site{}, err
	}
	s := ExtractSite(doc)
	c.sites.Add(key, s)
	return s, nil
}

// page fetches pageURL through the gateway and parses the cached HTML.
func (c *Catalog) page(ctx context.Context, pageURL url.URL) (*goquery.Document, error) {
	key := pageURL.String()
	payload, err := c.gateway.Fetch(ctx, key, func(ctx context.Context) (json.RawMessage, error) {
		result, fetchErr := c.fetcher.Fetch(ctx, fetcher.NewFetchParam(pageURL, c.opts.UserAgent), c.opts.RetryParam)
		if fetchErr != nil {
			return nil, fetchErr
		}
		return json.Marshal(string(result.Body()))
	})
	if err != nil {
		return nil, err
	}

	var body string
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, c.fail("Catalog.page", key, &CatalogError{
			Message: err.Error(),
			Cause:   ErrCauseInvalidPayload,
		})
	}

	root, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return nil, c.fail("Catalog.page", key, &CatalogError{
			Message: fmt.Sprintf("failed to parse HTML: %v", err),
			Cause:   ErrCauseMalformedHTML,
		})
	}
	return goquery.NewDocumentFromNode(root), nil
}

func (c *Catalog) parseURL(action string, raw string) (url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Scheme == "" || u.Host == "" {
		msg := fmt.Sprintf("%q is not an absolute URL", raw)
		if err != nil {
			msg = err.Error()
		}
		return url.URL{}, c.fail(action, raw, &CatalogError{Message: msg, Cause: ErrCauseInvalidURL})
	}
	return *u, nil
}

func (c *Catalog) fail(action string, target string, err *CatalogError) error {
	c.metadataSink.RecordError(
		time.Now(),
		"catalog",
		action,
		mapCatalogErrorToMetadataCause(err),
		err.Error(),
		[]metadata.Attribute{
			metadata.NewAttr(metadata.AttrURL, target),
		},
	)
	return err
}
