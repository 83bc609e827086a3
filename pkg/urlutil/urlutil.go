package urlutil

import (
	"fmt"
	"net/url"
	"strings"
)

// IndexDocument is appended to directory-style links.
const IndexDocument = "index.htm"

// Canonicalize applies a deterministic normalization to a URL, producing a canonical form.
// Canonical URLs are used verbatim as cache keys, so equivalent spellings must
// collapse to one string.
//
// The normalization follows these rules:
//   - Scheme and host are lowercased
//   - Path is cleaned (trailing slashes removed, except for root "/")
//   - Fragments are removed
//   - Query parameters are removed
//   - Default ports are omitted (e.g., :80 for http, :443 for https)
//
// Properties:
//   - Pure: no state, no memory
//   - Deterministic: same input always produces same output
//   - Idempotent: Canonicalize(Canonicalize(url)) == Canonicalize(url)
func Canonicalize(sourceUrl url.URL) url.URL {
	canonical := sourceUrl

	canonical.Scheme = lowerASCII(canonical.Scheme)
	canonical.Host = lowerASCII(canonical.Host)

	if host, port := canonical.Hostname(), canonical.Port(); port != "" {
		if (canonical.Scheme == "http" && port == "80") ||
			(canonical.Scheme == "https" && port == "443") {
			canonical.Host = host
		}
	}

	if len(canonical.Path) > 1 {
		canonical.Path = stripTrailingSlash(canonical.Path)
	}

	canonical.Fragment = ""
	canonical.RawFragment = ""
	canonical.RawQuery = ""
	canonical.ForceQuery = false

	return canonical
}

// ResolveIndexPage resolves href against base. Links to a directory ("/isro/")
// get IndexDocument appended, so they address the page the site actually serves.
// The result is canonicalized.
func ResolveIndexPage(base url.URL, href string) (url.URL, error) {
	href = strings.TrimSpace(href)
	if href == "" {
		return url.URL{}, fmt.Errorf("empty link")
	}

	ref, err := url.Parse(href)
	if err != nil {
		return url.URL{}, fmt.Errorf("parse link %q: %w", href, err)
	}

	resolved := base.ResolveReference(ref)
	if resolved.Path == "" || strings.HasSuffix(resolved.Path, "/") {
		if resolved.Path == "" {
			resolved.Path = "/"
		}
		resolved.Path += IndexDocument
	}

	return Canonicalize(*resolved), nil
}

// lowerASCII converts ASCII characters to lowercase without allocating.
func lowerASCII(s string) string {
	var needsLower bool
	for i := 0; i < len(s); i++ {
		if s[i] >= 'A' && s[i] <= 'Z' {
			needsLower = true
			break
		}
	}
	if !needsLower {
		return s
	}
	b := make([]byte, len(s))
	copy(b, s)
	for i := 0; i < len(b); i++ {
		if b[i] >= 'A' && b[i] <= 'Z' {
			b[i] += 'a' - 'A'
		}
	}
	return string(b)
}

func stripTrailingSlash(path string) string {
	for len(path) > 1 && path[len(path)-1] == '/' {
		path = path[:len(path)-1]
	}
	return path
}
