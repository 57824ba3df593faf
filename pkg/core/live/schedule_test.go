package live

import (
	"sync"
	"testing"
	"time"
)

// fakeClock is a manually advanced clock for schedule tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestScheduleContiguousChunks(t *testing.T) {
	clock := newFakeClock()
	s := newScheduleWithClock(clock.Now)

	first := s.Next(20 * time.Millisecond)
	if !first.Equal(clock.Now()) {
		t.Fatalf("first start = %v, want now %v", first, clock.Now())
	}

	// Clock has not moved: the next chunk starts exactly where the first
	// ends, regardless of arrival timing.
	second := s.Next(30 * time.Millisecond)
	if want := first.Add(20 * time.Millisecond); !second.Equal(want) {
		t.Fatalf("second start = %v, want %v", second, want)
	}

	third := s.Next(10 * time.Millisecond)
	if want := second.Add(30 * time.Millisecond); !third.Equal(want) {
		t.Fatalf("third start = %v, want %v", third, want)
	}
}

func TestScheduleResumesAtNowAfterGap(t *testing.T) {
	clock := newFakeClock()
	s := newScheduleWithClock(clock.Now)

	s.Next(20 * time.Millisecond)

	// A long silence: the cursor is far in the past when the next chunk
	// arrives, so it must start at now, not race to catch up.
	clock.Advance(5 * time.Second)
	start := s.Next(20 * time.Millisecond)
	if !start.Equal(clock.Now()) {
		t.Fatalf("start after gap = %v, want now %v", start, clock.Now())
	}
}

func TestScheduleReset(t *testing.T) {
	clock := newFakeClock()
	s := newScheduleWithClock(clock.Now)

	s.Next(10 * time.Second)
	if s.Pending() != 10*time.Second {
		t.Fatalf("pending = %v, want 10s", s.Pending())
	}

	s.Reset()
	if s.Pending() != 0 {
		t.Fatalf("pending after reset = %v, want 0", s.Pending())
	}
	if start := s.Next(time.Second); !start.Equal(clock.Now()) {
		t.Fatalf("start after reset = %v, want now", start)
	}
}

func TestSchedulePendingNeverNegative(t *testing.T) {
	clock := newFakeClock()
	s := newScheduleWithClock(clock.Now)

	s.Next(time.Millisecond)
	clock.Advance(time.Hour)
	if s.Pending() != 0 {
		t.Fatalf("pending = %v, want 0", s.Pending())
	}
}
