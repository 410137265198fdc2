package utils

import "strings"

// CanonicalDNSName returns a DNS name lowercased, trimmed of surrounding
// whitespace and without trailing dots.
func CanonicalDNSName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.ToLower(name)
	for strings.HasSuffix(name, ".") {
		name = strings.TrimSuffix(name, ".")
	}
	return name
}
