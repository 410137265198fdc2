package intake

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/haukened/blockwatch/internal/watch/domain"
	"github.com/haukened/blockwatch/internal/watch/repos/registry"
)

type mockChecker struct {
	mock.Mock
}

func (m *mockChecker) IsBlocked(ctx context.Context, d domain.Domain) bool {
	return m.Called(ctx, d).Bool(0)
}

func TestAdd_NotBlocked(t *testing.T) {
	reg := registry.New(registry.Options{})
	chk := &mockChecker{}
	chk.On("IsBlocked", mock.Anything, domain.Domain("example.com")).Return(false).Once()

	svc := New(reg, chk, nil)
	res, err := svc.Add(context.Background(), domain.ListMain, "https://www.Example.com/landing")
	require.NoError(t, err)

	assert.Equal(t, Result{Domain: "example.com", List: domain.ListMain}, res)
	assert.Equal(t, []domain.Domain{"example.com"}, svc.Snapshot().Main)
	assert.False(t, reg.IsBlocked("example.com"))
	chk.AssertExpectations(t)
}

func TestAdd_AlreadyBlockedMarks(t *testing.T) {
	reg := registry.New(registry.Options{})
	chk := &mockChecker{}
	chk.On("IsBlocked", mock.Anything, domain.Domain("b.net")).Return(true).Once()

	svc := New(reg, chk, nil)
	res, err := svc.Add(context.Background(), domain.ListAlternative, "b.net")
	require.NoError(t, err)
	assert.True(t, res.Blocked)
	assert.True(t, reg.IsBlocked("b.net"))

	// the periodic cycle will not report it again
	assert.False(t, reg.MarkBlocked("b.net"))
}

func TestAdd_InvalidSkipsCheck(t *testing.T) {
	reg := registry.New(registry.Options{})
	chk := &mockChecker{}

	svc := New(reg, chk, nil)
	_, err := svc.Add(context.Background(), domain.ListMain, "http://")

	var ide *domain.InvalidDomainError
	assert.True(t, errors.As(err, &ide))
	chk.AssertNotCalled(t, "IsBlocked", mock.Anything, mock.Anything)
	assert.Empty(t, svc.Snapshot().Main)
}

func TestAdd_NoChecker(t *testing.T) {
	svc := New(registry.New(registry.Options{}), nil, nil)
	res, err := svc.Add(context.Background(), domain.ListMain, "a.com")
	require.NoError(t, err)
	assert.False(t, res.Blocked)
}
