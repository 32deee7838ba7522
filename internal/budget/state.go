package budget

import "sync"

// State holds the single active alert. The zero value is ready to use.
type State struct {
	mu      sync.RWMutex
	current *Alert
}

// Set replaces whatever alert is active.
func (s *State) Set(a Alert) {
	s.mu.Lock()
	s.current = &a
	s.mu.Unlock()
}

func (s *State) Clear() {
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()
}

// Current returns a copy of the active alert, if any.
func (s *State) Current() (Alert, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return Alert{}, false
	}
	return *s.current, true
}
