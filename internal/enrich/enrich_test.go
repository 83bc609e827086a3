package enrich_test

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/rohmanhakim/nps-explorer/internal/cachestore"
	"github.com/rohmanhakim/nps-explorer/internal/enrich"
	"github.com/rohmanhakim/nps-explorer/internal/gateway"
	"github.com/rohmanhakim/nps-explorer/internal/geosearch"
	"github.com/rohmanhakim/nps-explorer/internal/site"
	"github.com/rohmanhakim/nps-explorer/pkg/failure"
	"github.com/rohmanhakim/nps-explorer/pkg/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const houghtonResponse = `{
  "searchResults": [
    {"name": "Keweenaw Co-op", "fields": {"group_sic_code_name_ext": "Grocers-Retail", "address": "1035 Ethel Ave", "postal_code": "49931"}},
    {"name": "Houghton County Airport", "fields": {"group_sic_code_name_ext": "", "address": null, "postal_code": 49930}},
    {"fields": {}}
  ],
  "info": {"statuscode": 0}
}`

type mockSearcher struct {
	mock.Mock
}

func (m *mockSearcher) Search(ctx context.Context, query geosearch.Query, retryParam retry.RetryParam) ([]byte, failure.ClassifiedError) {
	args := m.Called(query)
	body, _ := args.Get(0).([]byte)
	if err, ok := args.Get(1).(failure.ClassifiedError); ok {
		return body, err
	}
	return body, nil
}

var isleRoyale = site.Site{
	Category: "National Park",
	Name:     "Isle Royale",
	Address:  "Houghton, MI",
	Zipcode:  "49931",
	Phone:    "(906) 482-0984",
}

var fixedShape = enrich.QueryShape{Radius: 10, MaxMatches: 10, Ambiguities: "ignore", OutFormat: "json"}

func newClient(t *testing.T, searcher enrich.Searcher) (*enrich.Client, *cachestore.Store) {
	t.Helper()
	store := cachestore.NewStore(cachestore.NewFileBackend(filepath.Join(t.TempDir(), "cache_nps.json")), nil)
	gw := gateway.NewGateway(store, nil, time.Second)
	return enrich.NewClient(gw, searcher, nil, fixedShape, retry.RetryParam{MaxAttempts: 1}), store
}

func TestParsePlaces(t *testing.T) {
	places := enrich.ParsePlaces([]byte(houghtonResponse))

	require.Len(t, places, 3)
	assert.Equal(t, site.Site{
		Category: "Grocers-Retail",
		Name:     "Keweenaw Co-op",
		Address:  "1035 Ethel Ave",
		Zipcode:  "49931",
		Phone:    site.NoPhone,
	}, places[0])
	assert.Equal(t, "Houghton County Airport (No Category): No Address 49930", places[1].Info())
	assert.Equal(t, "No Name (No Category): No Address No Zipcode", places[2].Info())
}

func TestParsePlaces_NoResults(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{name: "empty list", payload: `{"searchResults": []}`},
		{name: "missing key", payload: `{"info": {"statuscode": 0}}`},
		{name: "not a list", payload: `{"searchResults": "none"}`},
		{name: "not json", payload: `oops`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			places := enrich.ParsePlaces([]byte(tt.payload))
			assert.NotNil(t, places)
			assert.Empty(t, places)
		})
	}
}

func TestClient_NearbyPlacesUsesZipcodeKeyAndFixedQuery(t *testing.T) {
	searcher := &mockSearcher{}
	searcher.On("Search", geosearch.Query{
		Origin:      "49931",
		Radius:      10,
		MaxMatches:  10,
		Ambiguities: "ignore",
		OutFormat:   "json",
	}).Return([]byte(houghtonResponse), nil).Once()

	client, store := newClient(t, searcher)
	ctx := context.Background()

	first, err := client.NearbyPlaces(ctx, isleRoyale)
	require.NoError(t, err)
	second, err := client.NearbyPlaces(ctx, isleRoyale)
	require.NoError(t, err)

	assert.Len(t, first, 3)
	assert.Equal(t, first, second)
	searcher.AssertExpectations(t)

	payload, ok := store.Get(ctx, "49931")
	require.True(t, ok)
	assert.JSONEq(t, houghtonResponse, string(payload))
}

func TestClient_MissingZipcode(t *testing.T) {
	searcher := &mockSearcher{}
	client, store := newClient(t, searcher)
	noZip := isleRoyale
	noZip.Zipcode = site.NoZipcode

	_, err := client.NearbyPlaces(context.Background(), noZip)

	assert.ErrorIs(t, err, enrich.ErrMissingOrigin)
	searcher.AssertNotCalled(t, "Search", mock.Anything)
	assert.Zero(t, store.Len(context.Background()))
}

func TestClient_SearchFailureIsNotCached(t *testing.T) {
	searchErr := &geosearch.SearchError{Cause: geosearch.ErrCauseAPIStatus, Message: "statuscode 403"}
	searcher := &mockSearcher{}
	searcher.On("Search", mock.Anything).Return(nil, searchErr).Once()
	searcher.On("Search", mock.Anything).Return([]byte(houghtonResponse), nil).Once()

	client, _ := newClient(t, searcher)
	ctx := context.Background()

	_, err := client.NearbyPlaces(ctx, isleRoyale)
	var got *geosearch.SearchError
	require.ErrorAs(t, err, &got)
	assert.Same(t, searchErr, got)

	places, err := client.NearbyPlaces(ctx, isleRoyale)
	require.NoError(t, err)
	assert.Len(t, places, 3)
	searcher.AssertExpectations(t)
}

func TestClient_ServesCachedAnswerWithoutSearcher(t *testing.T) {
	searcher := &mockSearcher{}
	client, store := newClient(t, searcher)
	require.NoError(t, store.Put(context.Background(), "49931", json.RawMessage(houghtonResponse)))

	places, err := client.NearbyPlaces(context.Background(), isleRoyale)

	require.NoError(t, err)
	assert.Len(t, places, 3)
	searcher.AssertNotCalled(t, "Search", mock.Anything)
}
