package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Static gesture templates
		`CREATE TABLE IF NOT EXISTS templates (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			tolerance REAL NOT NULL DEFAULT 2.0,
			builtin INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Normalized hand landmarks, one row per point
		`CREATE TABLE IF NOT EXISTS template_landmarks (
			template_id TEXT NOT NULL REFERENCES templates(id) ON DELETE CASCADE,
			landmark_index INTEGER NOT NULL,
			x REAL NOT NULL,
			y REAL NOT NULL,
			z REAL NOT NULL,
			PRIMARY KEY (template_id, landmark_index)
		)`,

		// One row per processing session
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			mode TEXT NOT NULL,
			gestures INTEGER NOT NULL,
			decimation INTEGER NOT NULL,
			started_at DATETIME NOT NULL,
			stopped_at DATETIME,
			ticks INTEGER NOT NULL DEFAULT 0,
			dispatched INTEGER NOT NULL DEFAULT 0,
			skipped_busy INTEGER NOT NULL DEFAULT 0,
			skipped_unavailable INTEGER NOT NULL DEFAULT 0,
			inference_failures INTEGER NOT NULL DEFAULT 0,
			publishes INTEGER NOT NULL DEFAULT 0
		)`,

		`CREATE INDEX IF NOT EXISTS idx_sessions_started_at ON sessions(started_at)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
