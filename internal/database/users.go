package database

import "database/sql"

// SaveUser links a chat to a steam id, overwriting a previous link.
func (s *Store) SaveUser(chatID int64, steamID string) error {
	query := `
	INSERT INTO users (chat_id, steam_id) VALUES (?, ?)
	ON CONFLICT (chat_id) DO UPDATE SET steam_id = excluded.steam_id;`

	if _, err := s.db.Exec(query, chatID, steamID); err != nil {
		return wrapStorage(err, "failed to save user")
	}
	return nil
}

// GetSteamID returns the linked steam id for a chat, or "" when the chat
// has not linked a profile yet.
func (s *Store) GetSteamID(chatID int64) (string, error) {
	var steamID string
	err := s.db.QueryRow(`SELECT steam_id FROM users WHERE chat_id = ?;`, chatID).Scan(&steamID)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", wrapStorage(err, "failed to query user")
	}
	return steamID, nil
}
