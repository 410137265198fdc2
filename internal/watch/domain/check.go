package domain

import (
	"sort"
	"time"
)

// CheckResult is the outcome of asking the authority about one domain.
// It is consumed immediately by the scheduler and never stored.
type CheckResult struct {
	Domain    Domain
	Blocked   bool
	CheckedAt time.Time
	Source    string // endpoint that confirmed the block, empty when none did
	Err       error  // last endpoint failure, informational only
}

// AlertBatch is the ordered set of domains that transitioned to blocked
// during a single cycle.
type AlertBatch []Domain

// Sorted returns a copy ordered by domain name.
func (b AlertBatch) Sorted() AlertBatch {
	out := make(AlertBatch, len(b))
	copy(out, b)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (b AlertBatch) Empty() bool { return len(b) == 0 }
