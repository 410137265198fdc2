package utils

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/idna"
)

var (
	ErrEmptyHost = errors.New("empty host")
)

// schemePrefix matches an RFC 3986 scheme at the start of the input only, so
// a URL carried in a query string does not count.
var schemePrefix = regexp.MustCompile(`^[a-z][a-z0-9+.-]*://`)

// HostFromInput extracts host[:port] from whatever an operator typed: a bare
// name, a full URL, or something in between. The scheme, userinfo, path,
// query and fragment are dropped, a leading "www." label is removed and
// internationalized names are converted to their ASCII form.
func HostFromInput(raw string) (string, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return "", ErrEmptyHost
	}
	if !schemePrefix.MatchString(raw) {
		raw = "http://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse %q: %w", raw, err)
	}

	hostport := u.Host
	if hostport == "" {
		return "", ErrEmptyHost
	}

	host, port, err := net.SplitHostPort(hostport)
	if err != nil {
		host, port = hostport, ""
	}
	host = strings.TrimSuffix(strings.TrimPrefix(host, "["), "]")
	// "www." goes before the trailing dots so that "www." alone ends up empty.
	host = strings.TrimPrefix(host, "www.")
	host = CanonicalDNSName(host)
	if host == "" {
		return "", ErrEmptyHost
	}

	if !isASCII(host) {
		ascii, err := idna.Lookup.ToASCII(host)
		if err != nil {
			return "", fmt.Errorf("idna: %w", err)
		}
		host = strings.ToLower(ascii)
	}

	if port != "" {
		return net.JoinHostPort(host, port), nil
	}
	if strings.Contains(host, ":") {
		// bare IPv6 literal
		return "[" + host + "]", nil
	}
	return host, nil
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
