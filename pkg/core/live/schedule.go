package live

import (
	"sync"
	"time"
)

// Schedule computes gapless playback start times for a stream of audio
// chunks. Each chunk starts at the later of the previous chunk's end and the
// current time, and advances the cursor by exactly the chunk's duration, so
// contiguous chunks play back to back and a stall resumes from "now" instead
// of racing to catch up.
type Schedule struct {
	mu        sync.Mutex
	nextStart time.Time
	now       func() time.Time
}

// NewSchedule creates a playback schedule using the wall clock.
func NewSchedule() *Schedule {
	return &Schedule{now: time.Now}
}

// newScheduleWithClock allows tests to control time.
func newScheduleWithClock(now func() time.Time) *Schedule {
	return &Schedule{now: now}
}

// Next reserves a playback slot for a chunk of the given duration and
// returns its start time.
func (s *Schedule) Next(d time.Duration) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := s.now()
	if s.nextStart.After(start) {
		start = s.nextStart
	}
	s.nextStart = start.Add(d)
	return start
}

// Reset clears the cursor so the next chunk starts immediately. Used when
// pending playback is flushed, e.g. after an interruption.
func (s *Schedule) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextStart = time.Time{}
}

// Pending returns how much scheduled audio is still ahead of the clock.
func (s *Schedule) Pending() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	remaining := s.nextStart.Sub(s.now())
	if remaining < 0 {
		return 0
	}
	return remaining
}
