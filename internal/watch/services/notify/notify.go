// Package notify fans a batch of newly blocked domains out to every
// configured operator.
package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/haukened/blockwatch/internal/watch/common/log"
	"github.com/haukened/blockwatch/internal/watch/domain"
	"github.com/haukened/blockwatch/internal/watch/infra/metrics"
)

// OperatorChannel delivers a text message to a single operator.
type OperatorChannel interface {
	SendToOperator(ctx context.Context, operatorID int64, text string) error
}

// DeliveryError records a failed delivery to one operator.
type DeliveryError struct {
	OperatorID int64
	Err        error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("notification delivery to operator %d failed: %v", e.OperatorID, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// DeliveryReport summarizes one Notify call.
type DeliveryReport struct {
	Delivered int
	Failed    []*DeliveryError
}

// Dispatcher sends alert messages to a fixed list of operators.
type Dispatcher struct {
	channel   OperatorChannel
	operators []int64
	logger    log.Logger
	metrics   *metrics.Metrics
}

// NewDispatcher creates a Dispatcher. logger and m may be nil.
func NewDispatcher(channel OperatorChannel, operators []int64, logger log.Logger, m *metrics.Metrics) *Dispatcher {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &Dispatcher{
		channel:   channel,
		operators: append([]int64(nil), operators...),
		logger:    logger,
		metrics:   m,
	}
}

// FormatAlert renders the alert text for batch, one domain per line in
// name order.
func FormatAlert(batch domain.AlertBatch) string {
	var b strings.Builder
	b.WriteString("🚨 Domain Blocked Alert 🚨\n\n")
	b.WriteString("The following domains are now blocked:\n")
	for i, d := range batch.Sorted() {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("- ")
		b.WriteString(d.String())
	}
	return b.String()
}

// Notify sends one message listing every domain in batch to each operator.
// An empty batch sends nothing. A failed delivery is logged and does not
// stop delivery to the remaining operators.
func (n *Dispatcher) Notify(ctx context.Context, batch domain.AlertBatch) DeliveryReport {
	var report DeliveryReport
	if batch.Empty() {
		return report
	}

	text := FormatAlert(batch)
	for _, op := range n.operators {
		if err := n.channel.SendToOperator(ctx, op, text); err != nil {
			derr := &DeliveryError{OperatorID: op, Err: err}
			report.Failed = append(report.Failed, derr)
			n.metrics.IncNotification(false)
			n.logger.Error(map[string]any{
				"operator": op,
				"domains":  len(batch),
				"error":    err,
			}, "notification delivery failed")
			continue
		}
		report.Delivered++
		n.metrics.IncNotification(true)
	}

	n.logger.Info(map[string]any{
		"domains":   len(batch),
		"delivered": report.Delivered,
		"failed":    len(report.Failed),
	}, "block alert dispatched")
	return report
}
