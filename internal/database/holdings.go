package database

import (
	"context"
	"database/sql"
	"strings"

	"steam-tracker-bot/internal/types"
)

// ReplaceHoldings swaps a user's full inventory snapshot in one
// transaction: old holdings are deleted, catalog entries upserted (category
// is recomputed on conflict), new holdings inserted, and tracking entries
// for items no longer owned are pruned. Returns the pruned item names.
// On any failure the transaction rolls back and prior state is untouched.
func (s *Store) ReplaceHoldings(ctx context.Context, chatID int64, items []types.SnapshotItem) ([]string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, wrapStorage(err, "failed to begin snapshot transaction")
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM user_items WHERE chat_id = ?;`, chatID); err != nil {
		return nil, wrapStorage(err, "failed to clear holdings")
	}

	upsertItem := `
	INSERT INTO items (name, category) VALUES (?, ?)
	ON CONFLICT (name) DO UPDATE SET category = excluded.category;`
	insertHolding := `
	INSERT INTO user_items (chat_id, item_id, amount)
	VALUES (?, (SELECT id FROM items WHERE name = ?), ?);`

	owned := make(map[string]bool, len(items))
	for _, item := range items {
		if _, err := tx.Exec(upsertItem, item.Name, item.Category); err != nil {
			return nil, wrapStorage(err, "failed to upsert catalog item")
		}
		if _, err := tx.Exec(insertHolding, chatID, item.Name, item.Amount); err != nil {
			return nil, wrapStorage(err, "failed to insert holding")
		}
		owned[item.Name] = true
	}

	pruned, err := pruneTracking(tx, chatID, owned)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, wrapStorage(err, "failed to commit snapshot")
	}
	return pruned, nil
}

// pruneTracking deletes tracking rows for items absent from the new
// snapshot, keeping the tracked set a subset of the holdings.
func pruneTracking(tx *sql.Tx, chatID int64, owned map[string]bool) ([]string, error) {
	rows, err := tx.Query(`SELECT item_name FROM tracking WHERE chat_id = ?;`, chatID)
	if err != nil {
		return nil, wrapStorage(err, "failed to query tracked names")
	}
	defer rows.Close()

	var stale []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, wrapStorage(err, "failed to scan tracked name")
		}
		if !owned[name] {
			stale = append(stale, name)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, wrapStorage(err, "failed to iterate tracked names")
	}
	if len(stale) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(stale))
	query := `DELETE FROM tracking WHERE chat_id = ? AND item_name IN (` +
		strings.TrimSuffix(placeholders, ",") + `);`
	args := make([]interface{}, 0, len(stale)+1)
	args = append(args, chatID)
	for _, name := range stale {
		args = append(args, name)
	}
	if _, err := tx.Exec(query, args...); err != nil {
		return nil, wrapStorage(err, "failed to prune tracking")
	}
	return stale, nil
}

// ListCategories returns the distinct categories present in a user's
// holdings, ordered alphabetically.
func (s *Store) ListCategories(chatID int64) ([]string, error) {
	query := `
	SELECT DISTINCT i.category
	FROM items i JOIN user_items ui ON i.id = ui.item_id
	WHERE ui.chat_id = ?
	ORDER BY i.category;`

	rows, err := s.db.Query(query, chatID)
	if err != nil {
		return nil, wrapStorage(err, "failed to query categories")
	}
	defer rows.Close()

	var categories []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, wrapStorage(err, "failed to scan category")
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// ListHoldings returns one page of a user's holdings in a category,
// ordered by name for stable pagination. Page numbering starts at 1.
func (s *Store) ListHoldings(chatID int64, category string, page, pageSize int) ([]types.Holding, error) {
	if page < 1 {
		page = 1
	}
	query := `
	SELECT i.name, i.category, ui.amount, ui.current_price
	FROM items i JOIN user_items ui ON i.id = ui.item_id
	WHERE ui.chat_id = ? AND i.category = ?
	ORDER BY i.name
	LIMIT ? OFFSET ?;`

	rows, err := s.db.Query(query, chatID, category, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, wrapStorage(err, "failed to query holdings")
	}
	defer rows.Close()

	var holdings []types.Holding
	for rows.Next() {
		var h types.Holding
		if err := rows.Scan(&h.Name, &h.Category, &h.Amount, &h.CurrentPrice); err != nil {
			return nil, wrapStorage(err, "failed to scan holding")
		}
		holdings = append(holdings, h)
	}
	return holdings, rows.Err()
}

// ListHoldingNames returns every item name in a user's current snapshot.
func (s *Store) ListHoldingNames(chatID int64) ([]string, error) {
	query := `
	SELECT i.name
	FROM items i JOIN user_items ui ON i.id = ui.item_id
	WHERE ui.chat_id = ?
	ORDER BY i.name;`

	rows, err := s.db.Query(query, chatID)
	if err != nil {
		return nil, wrapStorage(err, "failed to query holding names")
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, wrapStorage(err, "failed to scan holding name")
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

// CacheCurrentPrice refreshes the cached market price on a holding. A miss
// (item not in the snapshot) is not an error.
func (s *Store) CacheCurrentPrice(chatID int64, itemName string, price float64) error {
	query := `
	UPDATE user_items
	SET current_price = ?, updated_at = CURRENT_TIMESTAMP
	WHERE chat_id = ? AND item_id = (SELECT id FROM items WHERE name = ?);`

	if _, err := s.db.Exec(query, price, chatID, itemName); err != nil {
		return wrapStorage(err, "failed to cache current price")
	}
	return nil
}
