package utils

import (
	"net"

	"golang.org/x/net/publicsuffix"
)

// GetApexDomain returns the registrable domain (eTLD+1) for name, ignoring
// any port. IP literals and names publicsuffix cannot parse are returned as-is.
func GetApexDomain(name string) string {
	name = CanonicalDNSName(name)
	if h, _, err := net.SplitHostPort(name); err == nil {
		name = h
	}
	if net.ParseIP(name) != nil {
		return name
	}
	apexDomain, err := publicsuffix.EffectiveTLDPlusOne(name)
	if err != nil {
		return name
	}
	return apexDomain
}
