package history

import (
	"net/url"
	"strings"
)

// UnknownDomain is reported by SplitURL for input it cannot parse.
const UnknownDomain = "unknown-domain"

type searchEngine struct {
	// hostPrefix is the engine's own name up to its TLD, e.g. "google."
	// matches google.com, google.co.uk and www.google.de.
	hostPrefix string
	path       string
	param      string
}

var searchEngines = []searchEngine{
	{"google.", "/search", "q"},
	{"bing.", "/search", "q"},
	{"search.yahoo.", "/search", "p"},
	{"duckduckgo.", "/", "q"},
	{"duckduckgo.", "/html/", "q"},
	{"ecosia.", "/search", "q"},
	{"baidu.", "/s", "wd"},
	{"search.naver.", "/search.naver", "query"},
	{"yandex.", "/search", "text"},
	{"yandex.", "/search/", "text"},
}

// IsSearchEngineSkip reports whether rawURL is a search-engine results page.
// Unparseable input is not a results page.
func IsSearchEngineSkip(rawURL string) bool {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return false
	}
	host := strings.ToLower(u.Hostname())
	path := u.Path
	// Matrix parameters (Yahoo's /search;_ylt=...) are not part of the route.
	if i := strings.IndexByte(path, ';'); i >= 0 {
		path = path[:i]
	}
	if path == "" {
		path = "/"
	}
	query := u.Query()

	for _, se := range searchEngines {
		if !hostMatches(host, se.hostPrefix) {
			continue
		}
		if path == se.path && query.Has(se.param) {
			return true
		}
	}
	return false
}

// hostMatches reports whether host is prefix followed by a public suffix,
// optionally under a single www., m., html., lite. or country label.
func hostMatches(host, prefix string) bool {
	if rest, ok := strings.CutPrefix(host, prefix); ok {
		return isPublicSuffix(rest)
	}
	label, rest, ok := strings.Cut(host, ".")
	if !ok || !strings.HasPrefix(rest, prefix) {
		return false
	}
	if !frontLabels[label] && !isCountryCode(label) {
		return false
	}
	return isPublicSuffix(rest[len(prefix):])
}

var frontLabels = map[string]bool{"www": true, "m": true, "html": true, "lite": true}

// secondLevels are the generic labels used under country codes (co.uk, com.au).
var secondLevels = map[string]bool{
	"co": true, "com": true, "net": true, "org": true,
	"ac": true, "gov": true, "edu": true, "ne": true, "or": true,
}

// isPublicSuffix accepts a TLD ("com", "de") or a country pair ("co.uk").
func isPublicSuffix(s string) bool {
	first, second, pair := strings.Cut(s, ".")
	if !pair {
		return isAlpha(first) && len(first) >= 2
	}
	return secondLevels[first] && isCountryCode(second)
}

func isCountryCode(s string) bool {
	return len(s) == 2 && isAlpha(s)
}

func isAlpha(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}

// SplitURL returns the host and path of rawURL. It never fails: input that
// does not parse to an absolute URL yields UnknownDomain and an empty path.
func SplitURL(rawURL string) (domain, path string) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Hostname() == "" {
		return UnknownDomain, ""
	}
	path = u.Path
	if path == "" {
		path = "/"
	}
	return strings.ToLower(u.Hostname()), path
}

// domainDenied reports whether host equals or is a subdomain of any entry.
func domainDenied(host string, denylist []string) bool {
	for _, d := range denylist {
		d = strings.ToLower(strings.TrimSpace(d))
		if d == "" {
			continue
		}
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}
