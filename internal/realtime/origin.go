package realtime

import (
	"net"
	"net/http"
	"net/url"
	"slices"
	"strings"
)

// originChecker accepts requests without an Origin header, same-host
// origins, loopback origins and the given trusted hosts.
func originChecker(trusted []string) func(*http.Request) bool {
	hosts := make([]string, 0, len(trusted))
	for _, origin := range trusted {
		if host := hostOf(origin); host != "" {
			hosts = append(hosts, host)
		}
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		host := hostOf(origin)
		return host == hostOf(r.Host) || isLoopback(host) || slices.Contains(hosts, host)
	}
}

// hostOf strips scheme and port from an origin or Host header value.
func hostOf(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if strings.Contains(value, "://") {
		parsed, err := url.Parse(value)
		if err != nil {
			return ""
		}
		return strings.ToLower(parsed.Hostname())
	}
	if host, _, err := net.SplitHostPort(value); err == nil {
		return strings.ToLower(host)
	}
	return strings.ToLower(value)
}

func isLoopback(host string) bool {
	if ip := net.ParseIP(host); ip != nil {
		return ip.IsLoopback()
	}
	return host == "localhost"
}
