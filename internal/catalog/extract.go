package catalog

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rohmanhakim/nps-explorer/internal/site"
	"github.com/rohmanhakim/nps-explorer/pkg/urlutil"
)

const (
	selectorStateLinks  = ".SearchBar-keywordSearch li a"
	selectorParkHeading = "#list_parks h3"
	selectorHero        = ".Hero-titleContainer"
	selectorDesignation = ".Hero-designation"
	selectorTitle       = ".Hero-title"
	selectorVcard       = ".vcard"
	selectorLocality    = "[itemprop='addressLocality']"
	selectorRegion      = "[itemprop='addressRegion']"
	selectorPhone       = ".tel"
	selectorPostalCode  = ".postal-code"
	selectorPostalProp  = "[itemprop='postalCode']"
)

// ExtractStateIndex maps lowercased state names to absolute state page URLs.
// Links without an href, or whose href does not resolve, are skipped.
func ExtractStateIndex(doc *goquery.Document, base url.URL) map[string]string {
	index := make(map[string]string)
	doc.Find(selectorStateLinks).Each(func(_ int, a *goquery.Selection) {
		name := strings.ToLower(strings.TrimSpace(a.Text()))
		href, ok := a.Attr("href")
		if name == "" || !ok {
			return
		}
		stateURL, err := urlutil.ResolveIndexPage(base, href)
		if err != nil {
			return
		}
		index[name] = stateURL.String()
	})
	return index
}

// ExtractSiteLinks returns the page URL of every park listed on a state page,
// in page order. A page without a park list yields no links.
func ExtractSiteLinks(doc *goquery.Document, base url.URL) []url.URL {
	var links []url.URL
	doc.Find(selectorParkHeading).Each(func(_ int, h3 *goquery.Selection) {
		href, ok := h3.Find("a").First().Attr("href")
		if !ok {
			return
		}
		pageURL, err := urlutil.ResolveIndexPage(base, href)
		if err != nil {
			return
		}
		links = append(links, pageURL)
	})
	return links
}

// ExtractRawSite reads the five site fields, each independently optional.
func ExtractRawSite(doc *goquery.Document) site.RawSite {
	hero := doc.Find(selectorHero).First()
	vcard := doc.Find(selectorVcard).First()

	return site.RawSite{
		Category: textOf(hero, selectorDesignation),
		Name:     textOf(hero, selectorTitle),
		Address:  addressOf(vcard),
		Zipcode:  zipcodeOf(vcard),
		Phone:    textOf(vcard, selectorPhone),
	}
}

// ExtractSite is ExtractRawSite followed by sentinel defaulting.
func ExtractSite(doc *goquery.Document) site.Site {
	return site.New(ExtractRawSite(doc))
}

func textOf(scope *goquery.Selection, selector string) site.Field {
	if scope.Length() == 0 {
		return site.Absent()
	}
	found := scope.Find(selector).First()
	if found.Length() == 0 {
		return site.Absent()
	}
	return site.Present(found.Text())
}

// addressOf joins locality and region as "City, ST". Both parts are required.
func addressOf(vcard *goquery.Selection) site.Field {
	locality := textOf(vcard, selectorLocality)
	region := textOf(vcard, selectorRegion)
	if !locality.Present || !region.Present {
		return site.Absent()
	}
	city := strings.TrimSpace(locality.Value)
	state := strings.TrimSpace(region.Value)
	if city == "" || state == "" {
		return site.Absent()
	}
	return site.Present(city + ", " + state)
}

// zipcodeOf prefers .postal-code and falls back to the itemprop.
func zipcodeOf(vcard *goquery.Selection) site.Field {
	if zip := textOf(vcard, selectorPostalCode); zip.Present {
		return zip
	}
	return textOf(vcard, selectorPostalProp)
}
