package store

import "fmt"

// Copy writes a full copy of the store to a new file at path, via SQLite's
// `VACUUM INTO`: transactionally consistent, and doesn't require pausing
// writers the way a file-level byte copy would. path must not already
// exist and may not be ":memory:" (an in-memory store has no stable
// snapshot mechanism to copy from under a live connection).
func (s *Store) Copy(path string) error {
	if path == ":memory:" {
		return fmt.Errorf("store: cannot copy to :memory:")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, err := s.db.Exec(`VACUUM INTO ?`, path); err != nil {
		return fmt.Errorf("store: copy to %s: %w", path, err)
	}
	return nil
}
