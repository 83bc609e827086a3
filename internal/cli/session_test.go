package cmd_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	cmd "github.com/rohmanhakim/nps-explorer/internal/cli"
	"github.com/rohmanhakim/nps-explorer/internal/enrich"
	"github.com/rohmanhakim/nps-explorer/internal/site"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	isleRoyale = site.Site{
		Category: "National Park",
		Name:     "Isle Royale",
		Address:  "Houghton, MI",
		Zipcode:  "49931",
		Phone:    "(906) 482-0984",
	}
	picturedRocks = site.Site{
		Category: site.NoCategory,
		Name:     "Pictured Rocks",
		Address:  "Munising, MI",
		Zipcode:  site.NoZipcode,
		Phone:    site.NoPhone,
	}
	coop = site.Site{
		Category: "Grocers-Retail",
		Name:     "Keweenaw Co-op",
		Address:  "1035 Ethel Ave",
		Zipcode:  "49931",
		Phone:    site.NoPhone,
	}
)

type fakeCatalog struct {
	states  map[string]string
	sites   map[string][]site.Site
	lookups []string
	err     error
}

func (f *fakeCatalog) LookupState(ctx context.Context, input string) (string, bool, error) {
	f.lookups = append(f.lookups, input)
	if f.err != nil {
		return "", false, f.err
	}
	stateURL, ok := f.states[input]
	return stateURL, ok, nil
}

func (f *fakeCatalog) SitesForState(ctx context.Context, stateURL string) ([]site.Site, error) {
	return f.sites[stateURL], nil
}

type mockPlaces struct {
	mock.Mock
}

func (m *mockPlaces) NearbyPlaces(ctx context.Context, origin site.Site) ([]site.Site, error) {
	args := m.Called(origin)
	places, _ := args.Get(0).([]site.Site)
	return places, args.Error(1)
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		states: map[string]string{"michigan": "https://www.nps.gov/state/mi/index.htm"},
		sites: map[string][]site.Site{
			"https://www.nps.gov/state/mi/index.htm": {isleRoyale, picturedRocks},
		},
	}
}

func runSession(t *testing.T, catalog cmd.StateCatalog, places cmd.PlaceFinder, input string) string {
	t.Helper()
	var out bytes.Buffer
	session := cmd.NewSession(catalog, places, strings.NewReader(input), &out)
	require.NoError(t, session.Run(context.Background()))
	return out.String()
}

func TestSession_StateListAndNearbyPlaces(t *testing.T) {
	places := &mockPlaces{}
	places.On("NearbyPlaces", isleRoyale).Return([]site.Site{coop}, nil).Once()

	out := runSession(t, newFakeCatalog(), places, "Michigan\n1\nexit\n")

	rule := strings.Repeat("-", 35)
	assert.Contains(t, out, rule+"\nList of national sites in Michigan\n"+rule+"\n")
	assert.Contains(t, out, "[1] Isle Royale (National Park): Houghton, MI 49931\n")
	assert.Contains(t, out, "[2] Pictured Rocks (No Category): Munising, MI No Zipcode\n")
	assert.Contains(t, out, rule+"\nPlaces near Isle Royale\n"+rule+"\n")
	assert.Contains(t, out, "[1] Keweenaw Co-op (Grocers-Retail): 1035 Ethel Ave 49931\n")
	assert.True(t, strings.HasSuffix(out, "\nBye!\n"))
	places.AssertExpectations(t)
}

func TestSession_StateNameIsCaseInsensitiveButEchoedAsTyped(t *testing.T) {
	catalog := newFakeCatalog()
	out := runSession(t, catalog, &mockPlaces{}, "  MICHIGAN \nexit\n")

	assert.Equal(t, []string{"michigan"}, catalog.lookups)
	assert.Contains(t, out, "List of national sites in   MICHIGAN \n")
}

func TestSession_UnknownStateRePrompts(t *testing.T) {
	out := runSession(t, newFakeCatalog(), &mockPlaces{}, "Narnia\nexit\n")

	assert.Contains(t, out, "\n[Error] Enter proper state name\n")
	assert.Equal(t, 2, strings.Count(out, `Enter a state name (e.g. Michigan, michigan) or "exit": `))
}

func TestSession_InvalidChoicesRePrompt(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"word", "first"},
		{"zero", "0"},
		{"out of range", "3"},
		{"negative", "-1"},
		{"padded number", " 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			places := &mockPlaces{}
			out := runSession(t, newFakeCatalog(), places, "michigan\n"+tt.input+"\nexit\n")

			assert.Contains(t, out, "\nError: Choose the number for detail search or \"exit\" or \"back\": \n")
			assert.Equal(t, 3, strings.Count(out, `Choose the number for detail search or "exit" or "back": `))
			places.AssertNotCalled(t, "NearbyPlaces", mock.Anything)
		})
	}
}

func TestSession_BackReturnsToStatePrompt(t *testing.T) {
	catalog := newFakeCatalog()
	out := runSession(t, catalog, &mockPlaces{}, "michigan\nBACK\nmichigan\nexit\n")

	assert.Equal(t, 2, strings.Count(out, "List of national sites in michigan"))
	assert.Len(t, catalog.lookups, 2)
}

func TestSession_EndOfInputEndsLikeExit(t *testing.T) {
	out := runSession(t, newFakeCatalog(), &mockPlaces{}, "michigan\n")
	assert.True(t, strings.HasSuffix(out, "\nBye!\n"))

	out = runSession(t, newFakeCatalog(), &mockPlaces{}, "")
	assert.True(t, strings.HasSuffix(out, "\nBye!\n"))
}

func TestSession_FailuresReturnToStatePrompt(t *testing.T) {
	places := &mockPlaces{}
	places.On("NearbyPlaces", picturedRocks).Return(nil, enrich.ErrMissingOrigin).Once()

	out := runSession(t, newFakeCatalog(), places, "michigan\n2\nexit\n")

	assert.Contains(t, out, "[Error] "+enrich.ErrMissingOrigin.Error())
	assert.NotContains(t, out, "Places near")
	assert.Equal(t, 2, strings.Count(out, `Enter a state name (e.g. Michigan, michigan) or "exit": `))
	places.AssertExpectations(t)
}

func TestSession_CatalogFailureIsPrinted(t *testing.T) {
	catalog := newFakeCatalog()
	catalog.err = errors.New("index unavailable")

	out := runSession(t, catalog, &mockPlaces{}, "michigan\nexit\n")

	assert.Contains(t, out, "[Error] index unavailable")
	assert.True(t, strings.HasSuffix(out, "\nBye!\n"))
}

func TestSession_CancelledContextStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	session := cmd.NewSession(newFakeCatalog(), &mockPlaces{}, strings.NewReader("michigan\n"), &bytes.Buffer{})
	assert.ErrorIs(t, session.Run(ctx), context.Canceled)
}
