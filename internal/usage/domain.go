package usage

import (
	"net/url"
	"strings"
)

// ExtractDomain returns the hostname of rawURL with a leading "www." removed.
// It reports false for empty or unparsable URLs and for URLs without a host,
// which are simply not tracked.
func ExtractDomain(rawURL string) (string, bool) {
	if rawURL == "" {
		return "", false
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return "", false
	}

	return strings.TrimPrefix(host, "www."), true
}
