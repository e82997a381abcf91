package scraper

import "sync"

// modeSet collects the distinct game modes observed during one cycle.
// Scrape workers add to it concurrently.
type modeSet struct {
	mu     sync.Mutex
	values map[string]struct{}
}

func newModeSet() *modeSet {
	return &modeSet{values: map[string]struct{}{}}
}

func (s *modeSet) Add(mode string) {
	if mode == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[mode] = struct{}{}
}

func (s *modeSet) Values() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.values))
	for mode := range s.values {
		out = append(out, mode)
	}
	return out
}
