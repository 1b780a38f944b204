package database

import "database/sql"

// SaveMetric persists a counter value so it survives restarts.
func (s *Store) SaveMetric(name string, value float64) error {
	query := `
	INSERT INTO metrics (metric_name, metric_value) VALUES (?, ?)
	ON CONFLICT (metric_name) DO UPDATE SET metric_value = excluded.metric_value;`

	if _, err := s.db.Exec(query, name, value); err != nil {
		return wrapStorage(err, "failed to save metric")
	}
	return nil
}

// GetMetric loads a persisted counter value, defaulting to 0.
func (s *Store) GetMetric(name string) (float64, error) {
	var value float64
	err := s.db.QueryRow(`SELECT metric_value FROM metrics WHERE metric_name = ?;`, name).Scan(&value)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, wrapStorage(err, "failed to get metric")
	}
	return value, nil
}
