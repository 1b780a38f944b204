package types

import "time"

// User links a telegram chat to a steam account.
type User struct {
	ChatID  int64  `json:"chat_id"`
	SteamID string `json:"steam_id"`
}

// InventoryItem is a catalog entry shared between users.
type InventoryItem struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
}

// Holding is one row of a user's materialized inventory snapshot.
type Holding struct {
	Name         string   `json:"name"`
	Category     string   `json:"category"`
	Amount       int      `json:"amount"`
	CurrentPrice *float64 `json:"current_price,omitempty"`
}

// TrackingEntry is an item the user wants price-rise alerts for.
type TrackingEntry struct {
	ID         int64     `json:"id"`
	ChatID     int64     `json:"chat_id"`
	ItemName   string    `json:"item_name"`
	StartPrice float64   `json:"start_price"`
	LastPrice  float64   `json:"last_price"`
	CreatedAt  time.Time `json:"created_at"`
}

// SnapshotItem is one grouped inventory position as fetched from steam,
// before it is persisted.
type SnapshotItem struct {
	Name     string
	Type     string
	Category string
	Amount   int
}

// PriceQuote is a single scraped market price.
type PriceQuote struct {
	Value   float64 `json:"price_num"`
	Display string  `json:"price_str"`
}
