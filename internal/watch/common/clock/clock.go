package clock

import (
	"sync"
	"time"
)

// Clock abstracts wall time so check results and block markers can be stamped deterministically in tests.
type Clock interface {
	Now() time.Time
}

type RealClock struct{}

func (c RealClock) Now() time.Time {
	return time.Now()
}

// MockClock returns CurrentTime until advanced. Safe for use from concurrent checks.
type MockClock struct {
	mu          sync.Mutex
	CurrentTime time.Time
}

func (c *MockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.CurrentTime
}

func (c *MockClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.CurrentTime = c.CurrentTime.Add(d)
	c.mu.Unlock()
}
