package harness

// releaseStack holds destroy callbacks for created objects and runs them in
// reverse creation order.
type releaseStack struct {
	entries []releaseEntry
}

type releaseEntry struct {
	name    string
	release func()
}

func (s *releaseStack) push(name string, release func()) {
	s.entries = append(s.entries, releaseEntry{name: name, release: release})
}

func (s *releaseStack) len() int {
	return len(s.entries)
}

// releaseAll empties the stack. Safe to call more than once.
func (s *releaseStack) releaseAll() {
	for i := len(s.entries) - 1; i >= 0; i-- {
		entry := s.entries[i]
		Logger().Debug("release", "object", entry.name)
		entry.release()
	}
	s.entries = nil
}
