package logger

import (
	"strconv"
	"strings"
	"sync"
)

// eventSampler passes numerator out of every denominator events, counted per event name
// so a chatty event (one line per broadcast recipient) cannot starve the others.
type eventSampler struct {
	mu          sync.Mutex
	numerator   int
	denominator int
	counters    map[string]int
}

func newEventSampler(numerator, denominator int) *eventSampler {
	s := &eventSampler{}
	s.Set(numerator, denominator)
	return s
}

// Set configures the ratio and resets every counter. Non-positive values disable sampling.
func (s *eventSampler) Set(numerator, denominator int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters = make(map[string]int)
	if numerator <= 0 || denominator <= 0 {
		s.numerator, s.denominator = 0, 0
		return
	}
	s.numerator = min(numerator, denominator)
	s.denominator = denominator
}

// Allow reports whether the next occurrence of event passes.
func (s *eventSampler) Allow(event string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.denominator <= 0 {
		return true
	}
	n := s.counters[event] + 1
	if n > s.denominator {
		n = 1
	}
	s.counters[event] = n
	return n <= s.numerator
}

// parseRatioSpec accepts "1/50", "50" (same as 1/50) and "off".
func parseRatioSpec(spec string) (int, int) {
	spec = strings.ToLower(strings.TrimSpace(spec))
	switch spec {
	case "", "off", "none", "all":
		return 0, 0
	}
	if num, den, ok := strings.Cut(spec, "/"); ok {
		n, err1 := strconv.Atoi(strings.TrimSpace(num))
		d, err2 := strconv.Atoi(strings.TrimSpace(den))
		if err1 == nil && err2 == nil {
			return n, d
		}
		return -1, -1
	}
	v, err := strconv.Atoi(spec)
	if err != nil {
		return -1, -1
	}
	if v <= 0 {
		return 0, 0
	}
	return 1, v
}
