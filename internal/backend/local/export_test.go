package local

import "database/sql"

// DB exposes the handle so tests can inspect connection settings.
func (s *Store) DB() *sql.DB { return s.db }
