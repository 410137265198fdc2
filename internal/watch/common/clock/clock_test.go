package clock

import (
	"sync"
	"testing"
	"time"
)

func TestRealClock_Now(t *testing.T) {
	clock := RealClock{}

	before := time.Now()
	now := clock.Now()
	after := time.Now()

	if now.Before(before) {
		t.Errorf("Clock time %v is before measurement time %v", now, before)
	}
	if now.After(after) {
		t.Errorf("Clock time %v is after measurement time %v", now, after)
	}
}

func TestMockClock_Now(t *testing.T) {
	fixedTime := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)
	clock := &MockClock{CurrentTime: fixedTime}

	if now := clock.Now(); !now.Equal(fixedTime) {
		t.Errorf("Expected %v, got %v", fixedTime, now)
	}
}

func TestMockClock_Advance(t *testing.T) {
	fixedTime := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)
	clock := &MockClock{CurrentTime: fixedTime}

	clock.Advance(3 * time.Minute)

	want := fixedTime.Add(3 * time.Minute)
	if now := clock.Now(); !now.Equal(want) {
		t.Errorf("Expected %v after advance, got %v", want, now)
	}
}

func TestMockClock_ConcurrentAccess(t *testing.T) {
	clock := &MockClock{CurrentTime: time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				clock.Advance(time.Second)
				_ = clock.Now()
			}
		}()
	}
	wg.Wait()

	want := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC).Add(800 * time.Second)
	if now := clock.Now(); !now.Equal(want) {
		t.Errorf("Expected %v, got %v", want, now)
	}
}
