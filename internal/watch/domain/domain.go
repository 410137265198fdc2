package domain

import (
	"fmt"

	"github.com/haukened/blockwatch/internal/watch/common/utils"
)

// Domain is a normalized hostname tracked for monitoring: lowercase, no
// scheme, no leading "www.", no path. It may carry a port.
type Domain string

func (d Domain) String() string { return string(d) }

// Apex returns the registrable domain (eTLD+1) the name belongs to.
func (d Domain) Apex() string { return utils.GetApexDomain(string(d)) }

// InvalidDomainError is returned when intake input does not normalize to a
// non-empty host.
type InvalidDomainError struct {
	Input string
	Err   error
}

func (e *InvalidDomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid domain %q: %v", e.Input, e.Err)
	}
	return fmt.Sprintf("invalid domain %q", e.Input)
}

func (e *InvalidDomainError) Unwrap() error { return e.Err }

// NormalizeDomain converts raw operator input into a Domain.
func NormalizeDomain(raw string) (Domain, error) {
	host, err := utils.HostFromInput(raw)
	if err != nil {
		return "", &InvalidDomainError{Input: raw, Err: err}
	}
	return Domain(host), nil
}
