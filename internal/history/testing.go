package history

// SeedEntries is a test helper that preloads entries when using the in-memory store.
func SeedEntries(s Store, entries ...Entry) {
	if mem, ok := s.(*inMemoryStore); ok {
		mem.mu.Lock()
		defer mem.mu.Unlock()
		for _, e := range entries {
			mem.entries = append([]Entry{e}, mem.entries...)
		}
	}
}
