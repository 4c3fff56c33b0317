package ingest

import (
	"fmt"
	"net"
	"net/url"
	"path"
	"sort"
	"strings"

	"trainer/pkg/serrors"
)

// NormalizeSourceURL validates a dataset source URL and returns it in one
// canonical form, so the same archive reads identically across datasets and
// in listings.
//
// The rules:
//   - Require an absolute http or https URL with a host
//   - Lower-case the scheme and host
//   - Ensure a path is present; empty path becomes "/"
//   - Clean the path (resolve dot-segments, collapse duplicate slashes)
//   - Remove a trailing slash (except for the root path "/")
//   - Drop default ports (http:80, https:443), keep non-default ports
//   - Sort query parameters by key and by value for stable ordering
//   - Remove the fragment
func NormalizeSourceURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("could not parse URL: %w", err)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", serrors.With(serrors.ErrBadRequest, "source URL must be absolute http(s)")
	}
	if u.Host == "" {
		return "", serrors.With(serrors.ErrBadRequest, "source URL is missing a host")
	}

	if u.Path == "" {
		u.Path = "/"
	}
	cleaned := path.Clean(u.Path)
	if !strings.HasPrefix(cleaned, "/") {
		cleaned = "/" + cleaned
	}
	u.Path = cleaned
	if u.Path != "/" && strings.HasSuffix(u.Path, "/") {
		u.Path = strings.TrimRight(u.Path, "/")
	}

	host := strings.ToLower(u.Host)
	port := ""
	if h, p, err := net.SplitHostPort(host); err == nil {
		host, port = h, p
	} // else: host without explicit port, or IPv6 without port
	switch {
	case port == "":
		u.Host = host
	case (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443"):
		u.Host = host
	default:
		u.Host = net.JoinHostPort(host, port)
	}

	if u.RawQuery != "" {
		q := u.Query()
		for k := range q {
			sort.Strings(q[k])
		}
		// url.Values.Encode sorts keys lexicographically
		u.RawQuery = q.Encode()
	}

	u.Fragment = ""

	return u.String(), nil
}
