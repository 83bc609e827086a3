package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rohmanhakim/nps-explorer/internal/gateway"
	"github.com/rohmanhakim/nps-explorer/internal/geosearch"
	"github.com/rohmanhakim/nps-explorer/internal/metadata"
	"github.com/rohmanhakim/nps-explorer/internal/site"
	"github.com/rohmanhakim/nps-explorer/pkg/failure"
	"github.com/rohmanhakim/nps-explorer/pkg/retry"
	"github.com/tidwall/gjson"
)

// ErrMissingOrigin is returned for a site without an extracted zipcode.
var ErrMissingOrigin = errors.New("site has no zipcode to search around")

type PlaceGateway interface {
	Fetch(ctx context.Context, key string, fn gateway.FetchFunc) (json.RawMessage, error)
}

type Searcher interface {
	Search(ctx context.Context, query geosearch.Query, retryParam retry.RetryParam) ([]byte, failure.ClassifiedError)
}

// QueryShape holds the fixed part of every nearby search.
type QueryShape struct {
	Radius      int
	MaxMatches  int
	Ambiguities string
	OutFormat   string
}

/*
Client finds places near a site.

Lookups are keyed by the bare zipcode, sharing the cache namespace with page
URLs. The API answer is cached verbatim; parsing happens on every read.
*/
type Client struct {
	gateway      PlaceGateway
	searcher     Searcher
	metadataSink metadata.MetadataSink
	shape        QueryShape
	retryParam   retry.RetryParam
}

func NewClient(
	placeGateway PlaceGateway,
	searcher Searcher,
	metadataSink metadata.MetadataSink,
	shape QueryShape,
	retryParam retry.RetryParam,
) *Client {
	if metadataSink == nil {
		metadataSink = &metadata.NoopSink{}
	}
	return &Client{
		gateway:      placeGateway,
		searcher:     searcher,
		metadataSink: metadataSink,
		shape:        shape,
		retryParam:   retryParam,
	}
}

func (c *Client) NearbyPlaces(ctx context.Context, origin site.Site) ([]site.Site, error) {
	if !origin.HasZipcode() {
		c.metadataSink.RecordError(
			time.Now(),
			"enrich",
			"Client.NearbyPlaces",
			metadata.CauseContentInvalid,
			ErrMissingOrigin.Error(),
			[]metadata.Attribute{metadata.NewAttr(metadata.AttrField, "zipcode")},
		)
		return nil, fmt.Errorf("%w: %s", ErrMissingOrigin, origin.Name)
	}

	query := geosearch.Query{
		Origin:      origin.Zipcode,
		Radius:      c.shape.Radius,
		MaxMatches:  c.shape.MaxMatches,
		Ambiguities: c.shape.Ambiguities,
		OutFormat:   c.shape.OutFormat,
	}

	payload, err := c.gateway.Fetch(ctx, origin.Zipcode, func(ctx context.Context) (json.RawMessage, error) {
		body, searchErr := c.searcher.Search(ctx, query, c.retryParam)
		if searchErr != nil {
			return nil, searchErr
		}
		return body, nil
	})
	if err != nil {
		return nil, err
	}
	return ParsePlaces(payload), nil
}

// ParsePlaces reads searchResults[*] into sites. Absent or empty fields become
// sentinels; a payload without searchResults yields no places.
func ParsePlaces(payload []byte) []site.Site {
	results := gjson.GetBytes(payload, "searchResults")
	if !results.IsArray() {
		return []site.Site{}
	}

	places := make([]site.Site, 0, len(results.Array()))
	results.ForEach(func(_, result gjson.Result) bool {
		places = append(places, site.New(site.RawSite{
			Name:     field(result, "name"),
			Category: field(result, "fields.group_sic_code_name_ext"),
			Address:  field(result, "fields.address"),
			Zipcode:  field(result, "fields.postal_code"),
			Phone:    site.Absent(),
		}))
		return true
	})
	return places
}

func field(result gjson.Result, path string) site.Field {
	value := result.Get(path)
	if !value.Exists() || value.Type == gjson.Null {
		return site.Absent()
	}
	return site.Present(value.String())
}
