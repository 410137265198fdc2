package notify

import (
	"context"

	"github.com/haukened/blockwatch/internal/watch/common/log"
)

// LogChannel is an OperatorChannel that writes messages to the log. It is
// used when no chat transport is configured.
type LogChannel struct {
	Logger log.Logger
}

func (c LogChannel) SendToOperator(_ context.Context, operatorID int64, text string) error {
	logger := c.Logger
	if logger == nil {
		logger = log.GetLogger()
	}
	logger.Info(map[string]any{
		"operator": operatorID,
		"text":     text,
	}, "operator message")
	return nil
}

var _ OperatorChannel = LogChannel{}
