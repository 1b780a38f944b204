package database

import (
	"context"
	"database/sql"

	"steam-tracker-bot/internal/types"
)

// AddTracking records a tracking entry with the given baseline price. The
// existence check and insert run in one transaction so two concurrent adds
// for the same pair cannot both insert. Returns false when the pair was
// already tracked; startPrice and lastPrice both begin at baseline.
func (s *Store) AddTracking(ctx context.Context, chatID int64, itemName string, baseline float64) (created bool, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, wrapStorage(err, "failed to begin tracking transaction")
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRow(`SELECT id FROM tracking WHERE chat_id = ? AND item_name = ?;`, chatID, itemName).Scan(&id)
	if err == nil {
		return false, nil
	}
	if err != sql.ErrNoRows {
		return false, wrapStorage(err, "failed to query tracking")
	}

	query := `
	INSERT INTO tracking (chat_id, item_name, start_price, last_price)
	VALUES (?, ?, ?, ?);`
	if _, err := tx.Exec(query, chatID, itemName, baseline, baseline); err != nil {
		return false, wrapStorage(err, "failed to insert tracking")
	}
	if err := tx.Commit(); err != nil {
		return false, wrapStorage(err, "failed to commit tracking")
	}
	return true, nil
}

// RemoveTracking deletes a tracking entry. Removing an entry that does not
// exist is a no-op.
func (s *Store) RemoveTracking(chatID int64, itemName string) error {
	if _, err := s.db.Exec(`DELETE FROM tracking WHERE chat_id = ? AND item_name = ?;`, chatID, itemName); err != nil {
		return wrapStorage(err, "failed to remove tracking")
	}
	return nil
}

// IsTracked reports whether the chat tracks the item.
func (s *Store) IsTracked(chatID int64, itemName string) (bool, error) {
	var id int64
	err := s.db.QueryRow(`SELECT id FROM tracking WHERE chat_id = ? AND item_name = ?;`, chatID, itemName).Scan(&id)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, wrapStorage(err, "failed to query tracking")
	}
	return true, nil
}

// ListTrackedNames returns the item names a chat tracks.
func (s *Store) ListTrackedNames(chatID int64) ([]string, error) {
	rows, err := s.db.Query(`SELECT item_name FROM tracking WHERE chat_id = ? ORDER BY item_name;`, chatID)
	if err != nil {
		return nil, wrapStorage(err, "failed to query tracked names")
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, wrapStorage(err, "failed to scan tracked name")
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

// ListTrackingByChat returns a chat's full tracking entries for display.
func (s *Store) ListTrackingByChat(chatID int64) ([]types.TrackingEntry, error) {
	query := `
	SELECT id, chat_id, item_name, start_price, last_price, created_at
	FROM tracking WHERE chat_id = ? ORDER BY item_name;`
	return s.queryTracking(query, chatID)
}

// ListAllTracking returns every tracking entry across all chats, for the
// price watcher.
func (s *Store) ListAllTracking() ([]types.TrackingEntry, error) {
	query := `
	SELECT id, chat_id, item_name, start_price, last_price, created_at
	FROM tracking ORDER BY id;`
	return s.queryTracking(query)
}

func (s *Store) queryTracking(query string, args ...interface{}) ([]types.TrackingEntry, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, wrapStorage(err, "failed to query tracking entries")
	}
	defer rows.Close()

	var entries []types.TrackingEntry
	for rows.Next() {
		var e types.TrackingEntry
		if err := rows.Scan(&e.ID, &e.ChatID, &e.ItemName, &e.StartPrice, &e.LastPrice, &e.CreatedAt); err != nil {
			return nil, wrapStorage(err, "failed to scan tracking entry")
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// UpdateLastPrice overwrites the comparison baseline with a newer price.
func (s *Store) UpdateLastPrice(id int64, price float64) error {
	if _, err := s.db.Exec(`UPDATE tracking SET last_price = ? WHERE id = ?;`, price, id); err != nil {
		return wrapStorage(err, "failed to update last price")
	}
	return nil
}
