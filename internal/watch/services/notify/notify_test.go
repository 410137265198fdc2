package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/haukened/blockwatch/internal/watch/domain"
	"github.com/haukened/blockwatch/internal/watch/infra/metrics"
)

type mockChannel struct {
	mock.Mock
}

func (m *mockChannel) SendToOperator(ctx context.Context, operatorID int64, text string) error {
	args := m.Called(ctx, operatorID, text)
	return args.Error(0)
}

func TestFormatAlert(t *testing.T) {
	got := FormatAlert(domain.AlertBatch{"b.net", "a.com"})
	want := "🚨 Domain Blocked Alert 🚨\n\nThe following domains are now blocked:\n- a.com\n- b.net"
	assert.Equal(t, want, got)
}

func TestNotify_EmptyBatchIsNoop(t *testing.T) {
	ch := &mockChannel{}
	n := NewDispatcher(ch, []int64{1, 2}, nil, nil)

	report := n.Notify(context.Background(), nil)
	assert.Equal(t, 0, report.Delivered)
	assert.Empty(t, report.Failed)
	ch.AssertNotCalled(t, "SendToOperator", mock.Anything, mock.Anything, mock.Anything)
}

func TestNotify_SendsOnceToEachOperator(t *testing.T) {
	ch := &mockChannel{}
	batch := domain.AlertBatch{"a.com"}
	text := FormatAlert(batch)
	ch.On("SendToOperator", mock.Anything, int64(1), text).Return(nil).Once()
	ch.On("SendToOperator", mock.Anything, int64(2), text).Return(nil).Once()

	n := NewDispatcher(ch, []int64{1, 2}, nil, metrics.New(false))
	report := n.Notify(context.Background(), batch)

	assert.Equal(t, 2, report.Delivered)
	assert.Empty(t, report.Failed)
	ch.AssertExpectations(t)
}

func TestNotify_FailureDoesNotStopOthers(t *testing.T) {
	ch := &mockChannel{}
	boom := errors.New("chat not found")
	ch.On("SendToOperator", mock.Anything, int64(1), mock.Anything).Return(boom).Once()
	ch.On("SendToOperator", mock.Anything, int64(2), mock.Anything).Return(nil).Once()
	ch.On("SendToOperator", mock.Anything, int64(3), mock.Anything).Return(nil).Once()

	n := NewDispatcher(ch, []int64{1, 2, 3}, nil, nil)
	report := n.Notify(context.Background(), domain.AlertBatch{"a.com", "b.net"})

	assert.Equal(t, 2, report.Delivered)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, int64(1), report.Failed[0].OperatorID)
	assert.ErrorIs(t, report.Failed[0], boom)
	assert.Contains(t, report.Failed[0].Error(), "operator 1")
	ch.AssertExpectations(t)
}

func TestNotify_OperatorListCopied(t *testing.T) {
	ops := []int64{1}
	ch := &mockChannel{}
	ch.On("SendToOperator", mock.Anything, int64(1), mock.Anything).Return(nil).Once()

	n := NewDispatcher(ch, ops, nil, nil)
	ops[0] = 99

	n.Notify(context.Background(), domain.AlertBatch{"a.com"})
	ch.AssertExpectations(t)
}

func TestLogChannel(t *testing.T) {
	assert.NoError(t, LogChannel{}.SendToOperator(context.Background(), 1, "hello"))
}
