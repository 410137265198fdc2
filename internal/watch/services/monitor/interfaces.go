package monitor

import (
	"context"

	"github.com/haukened/blockwatch/internal/watch/domain"
	"github.com/haukened/blockwatch/internal/watch/services/notify"
)

// Checker decides whether a single domain is blocked right now.
type Checker interface {
	Check(ctx context.Context, d domain.Domain) domain.CheckResult
}

// Registry is the domain state the scheduler reads and marks. IsBlocked
// sees markers written after the cycle's snapshot was taken.
type Registry interface {
	Snapshot() domain.Snapshot
	IsBlocked(d domain.Domain) bool
	MarkBlocked(d domain.Domain) bool
}

// Notifier delivers a batch of newly blocked domains to the operators.
type Notifier interface {
	Notify(ctx context.Context, batch domain.AlertBatch) notify.DeliveryReport
}
