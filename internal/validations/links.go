package validations

import (
	"net/url"
	"strings"
)

const MaxURLLength = 2048

func IsURLValid(link string) bool {
	if link == "" || len(link) > MaxURLLength {
		return false
	}
	u, err := url.Parse(link)
	if err != nil {
		return false
	}
	return u.Host != "" && (u.Scheme == "http" || u.Scheme == "https")
}

// NormalizeURL trims the link and adds https:// when no scheme was typed.
func NormalizeURL(link string) string {
	link = strings.TrimSpace(link)
	if link == "" || strings.Contains(link, "://") {
		return link
	}
	return "https://" + link
}

// ExtractHostname extracts the hostname from a URL
func ExtractHostname(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return link // fallback to original link if parsing fails
	}
	return u.Host
}
