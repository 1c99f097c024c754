package crawler

import (
	"net/url"
	"strings"

	"stockresearch/pkg/fetch"
)

// normalizeLink makes href absolute against base and unwraps the redirect
// wrappers search engines put around result links. Links without a plausible
// http(s) host come back empty.
func normalizeLink(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}

	abs := fetch.Resolve(base, href)

	u, err := url.Parse(abs)
	if err != nil {
		return ""
	}

	if target := unwrapRedirect(u); target != "" {
		if t, err := url.Parse(target); err == nil {
			u = t
		}
	}

	if !plausibleHost(u) {
		return ""
	}
	return u.String()
}

func unwrapRedirect(u *url.URL) string {
	q := u.Query()
	switch {
	case u.Path == "/url":
		if v := q.Get("q"); v != "" {
			return v
		}
		return q.Get("url")
	case strings.HasPrefix(u.Path, "/l/"):
		return q.Get("uddg")
	}
	return ""
}

func plausibleHost(u *url.URL) bool {
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	host := u.Hostname()
	return host == "localhost" || strings.Contains(host, ".")
}
