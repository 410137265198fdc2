package registry

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haukened/blockwatch/internal/watch/common/clock"
	"github.com/haukened/blockwatch/internal/watch/domain"
	"github.com/haukened/blockwatch/internal/watch/infra/metrics"
)

func newTestRegistry(t *testing.T) (*Registry, *clock.MockClock) {
	t.Helper()
	clk := &clock.MockClock{CurrentTime: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	return New(Options{Clock: clk}), clk
}

func TestAddDomain_Normalizes(t *testing.T) {
	r, _ := newTestRegistry(t)

	d, err := r.AddDomain(domain.ListMain, "http://www.Example.com/path")
	require.NoError(t, err)
	assert.Equal(t, domain.Domain("example.com"), d)
	assert.Equal(t, []domain.Domain{"example.com"}, r.Snapshot().Main)
}

func TestAddDomain_Idempotent(t *testing.T) {
	r, _ := newTestRegistry(t)

	for _, raw := range []string{"example.com", "EXAMPLE.com", "https://www.example.com/"} {
		_, err := r.AddDomain(domain.ListMain, raw)
		require.NoError(t, err)
	}
	assert.Len(t, r.Snapshot().Main, 1)
}

func TestAddDomain_SameNameBothLists(t *testing.T) {
	r, _ := newTestRegistry(t)

	_, err := r.AddDomain(domain.ListMain, "example.com")
	require.NoError(t, err)
	_, err = r.AddDomain(domain.ListAlternative, "example.com")
	require.NoError(t, err)

	s := r.Snapshot()
	assert.Equal(t, []domain.Domain{"example.com"}, s.Main)
	assert.Equal(t, []domain.Domain{"example.com"}, s.Alternative)
	assert.Equal(t, []domain.Domain{"example.com"}, s.Candidates())
}

func TestAddDomain_Invalid(t *testing.T) {
	r, _ := newTestRegistry(t)

	_, err := r.AddDomain(domain.ListMain, "   ")
	var ide *domain.InvalidDomainError
	require.True(t, errors.As(err, &ide))
	assert.Len(t, r.Snapshot().Main, 0)

	_, err = r.AddDomain(domain.List("archive"), "example.com")
	require.Error(t, err)
	assert.False(t, errors.As(err, &ide))
	snap := r.Snapshot()
	assert.Empty(t, snap.Main)
	assert.Empty(t, snap.Alternative)
}

func TestMarkBlocked_OnlyFirstTimeTrue(t *testing.T) {
	r, clk := newTestRegistry(t)
	start := clk.Now()

	assert.False(t, r.IsBlocked("a.com"))
	assert.True(t, r.MarkBlocked("a.com"))
	clk.Advance(time.Minute)
	assert.False(t, r.MarkBlocked("a.com"))
	assert.True(t, r.IsBlocked("a.com"))

	// first mark time is kept
	assert.Equal(t, start, r.Snapshot().Blocked["a.com"])
}

func TestMarkBlocked_FilterRebuild(t *testing.T) {
	r := New(Options{BloomCapacity: 4})

	for i := 0; i < 50; i++ {
		assert.True(t, r.MarkBlocked(domain.Domain(fmt.Sprintf("d%d.example.com", i))))
	}
	for i := 0; i < 50; i++ {
		assert.True(t, r.IsBlocked(domain.Domain(fmt.Sprintf("d%d.example.com", i))))
	}
	assert.False(t, r.IsBlocked("other.example.com"))
	assert.GreaterOrEqual(t, r.capacity, uint(50))
}

func TestSnapshot_IsCopy(t *testing.T) {
	r, _ := newTestRegistry(t)
	_, _ = r.AddDomain(domain.ListMain, "a.com")
	_, _ = r.AddDomain(domain.ListMain, "b.com")
	r.MarkBlocked("a.com")

	s := r.Snapshot()
	s.Main[0] = "mutated.com"
	delete(s.Blocked, "a.com")

	s2 := r.Snapshot()
	assert.Equal(t, []domain.Domain{"a.com", "b.com"}, s2.Main)
	assert.True(t, s2.IsBlocked("a.com"))
	assert.Empty(t, s2.Alternative)
}

func TestSnapshot_InsertionOrder(t *testing.T) {
	r, _ := newTestRegistry(t)
	for _, d := range []string{"z.com", "a.com", "m.com"} {
		_, err := r.AddDomain(domain.ListAlternative, d)
		require.NoError(t, err)
	}
	assert.Equal(t, []domain.Domain{"z.com", "a.com", "m.com"}, r.Snapshot().Alternative)
}

func TestRegistry_Concurrent(t *testing.T) {
	r := New(Options{Metrics: metrics.New(false)})

	var wg sync.WaitGroup
	var mu sync.Mutex
	newMarks := 0
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				name := fmt.Sprintf("site%d.example.org", i)
				_, err := r.AddDomain(domain.ListMain, name)
				assert.NoError(t, err)
				if r.MarkBlocked(domain.Domain(name)) {
					mu.Lock()
					newMarks++
					mu.Unlock()
				}
				_ = r.Snapshot()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, r.Snapshot().Main, 100)
	assert.Equal(t, 100, newMarks)
	assert.Len(t, r.Snapshot().Blocked, 100)
}
