package catalog_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rohmanhakim/nps-explorer/internal/cachestore"
	"github.com/rohmanhakim/nps-explorer/internal/catalog"
	"github.com/rohmanhakim/nps-explorer/internal/fetcher"
	"github.com/rohmanhakim/nps-explorer/internal/gateway"
	"github.com/rohmanhakim/nps-explorer/internal/metadata"
	"github.com/rohmanhakim/nps-explorer/pkg/retry"
	"github.com/rohmanhakim/nps-explorer/pkg/timeutil"
	"github.com/stretchr/testify/require"
)

const indexPage = `<!DOCTYPE html>
<html><body>
<ul class="dropdown-menu SearchBar-keywordSearch">
  <li><a href="/state/al/index.htm">Alabama</a></li>
  <li><a href="/state/mi/index.htm">Michigan</a></li>
  <li><a href="/state/wy/index.htm"> Wyoming </a></li>
  <li><a>Nowhere</a></li>
</ul>
</body></html>`

const michiganPage = `<!DOCTYPE html>
<html><body>
<ul id="list_parks">
  <li><h2>National Park</h2><h3><a href="/isro/">Isle Royale</a></h3></li>
  <li><h2>National Lakeshore</h2><h3><a href="/piro/">Pictured Rocks</a></h3></li>
  <li><h2>National Lakeshore</h2><h3>No link here</h3></li>
</ul>
</body></html>`

const alabamaPage = `<!DOCTYPE html><html><body><p>Closed for maintenance</p></body></html>`

const isroPage = `<!DOCTYPE html>
<html><body>
<div class="Hero-titleContainer clearfix">
  <a class="Hero-title" href="/isro/">Isle Royale</a>
  <span class="Hero-designation">National Park</span>
</div>
<div class="vcard">
  <p class="adr">
    <span itemprop="addressLocality">Houghton</span>,
    <span itemprop="addressRegion">MI</span>
    <span class="postal-code" itemprop="postalCode">49931</span>
  </p>
  <span class="tel">(906) 482-0984</span>
</div>
</body></html>`

// piro has no designation and only the itemprop zipcode
const piroPage = `<!DOCTYPE html>
<html><body>
<div class="Hero-titleContainer clearfix">
  <a class="Hero-title" href="/piro/">Pictured Rocks</a>
  <span class="Hero-designation"></span>
</div>
<div class="vcard">
  <span itemprop="addressLocality">Munising</span>
  <span itemprop="addressRegion">MI</span>
  <span itemprop="postalCode"> 49862 </span>
</div>
</body></html>`

// npsSite serves park pages and counts requests per path.
type npsSite struct {
	server *httptest.Server
	mu     sync.Mutex
	hits   map[string]int
	pages  map[string]string
}

func newNpsSite(t *testing.T) *npsSite {
	t.Helper()
	s := &npsSite{
		hits: map[string]int{},
		pages: map[string]string{
			"/index.htm":          indexPage,
			"/state/mi/index.htm": michiganPage,
			"/state/al/index.htm": alabamaPage,
			"/isro/index.htm":     isroPage,
			"/piro/index.htm":     piroPage,
		},
	}
	s.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.hits[r.URL.Path]++
		page, ok := s.pages[r.URL.Path]
		s.mu.Unlock()
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, page)
	}))
	t.Cleanup(s.server.Close)
	return s
}

func (s *npsSite) setPage(path, page string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages[path] = page
}

func (s *npsSite) url(path string) string {
	return s.server.URL + path
}

func (s *npsSite) hitsFor(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

func (s *npsSite) totalHits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.hits {
		total += n
	}
	return total
}

func testRetryParam() retry.RetryParam {
	return retry.NewRetryParam(0, 0, 1, 2, timeutil.NewBackoffParam(time.Millisecond, 2.0, 5*time.Millisecond))
}

// newCatalog wires a catalog against the fake site with a file-backed cache at cachePath.
func newCatalog(t *testing.T, s *npsSite, cachePath string) *catalog.Catalog {
	t.Helper()
	base, err := url.Parse(s.server.URL)
	require.NoError(t, err)

	sink := &metadata.NoopSink{}
	store := cachestore.NewStore(cachestore.NewFileBackend(cachePath), sink)
	gw := gateway.NewGateway(store, sink, 5*time.Second)
	htmlFetcher := fetcher.NewHtmlFetcher(sink, s.server.Client(), nil)

	c, err := catalog.NewCatalog(gw, &htmlFetcher, sink, catalog.Options{
		BaseURL:    *base,
		IndexPath:  "/index.htm",
		UserAgent:  "nps-explorer-test",
		RetryParam: testRetryParam(),
		MemoSize:   16,
	})
	require.NoError(t, err)
	return c
}

func cachePath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "cache_nps.json")
}

func trimmed(s string) string {
	return strings.TrimSpace(s)
}
