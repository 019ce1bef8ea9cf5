package extract

import (
	"net/url"
	"strings"
)

// NormalizeURL makes href absolute. Absolute urls pass through, scheme
// relative ones take the scheme of base, rooted paths are joined to the
// origin of base and bare relative paths to base itself.
func NormalizeURL(href, base string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	lower := strings.ToLower(href)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return href
	}

	if strings.HasPrefix(href, "//") {
		scheme := "https"
		if u, err := url.Parse(base); err == nil && u.Scheme != "" {
			scheme = u.Scheme
		}
		return scheme + ":" + href
	}

	if strings.HasPrefix(href, "/") {
		if u, err := url.Parse(base); err == nil && u.Scheme != "" && u.Host != "" {
			return u.Scheme + "://" + u.Host + href
		}
		return strings.TrimRight(base, "/") + href
	}

	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(href, "./")
}
