// Package sync refreshes a user's holdings from steam and reconciles the
// tracked items against the new snapshot.
package sync

import (
	"context"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"steam-tracker-bot/internal/category"
	"steam-tracker-bot/internal/types"
)

// InventoryFetcher is the steam client surface the service needs.
type InventoryFetcher interface {
	FetchInventory(ctx context.Context, steamID string) ([]types.SnapshotItem, error)
}

// Store is the persistence surface the service needs.
type Store interface {
	GetSteamID(chatID int64) (string, error)
	ReplaceHoldings(ctx context.Context, chatID int64, items []types.SnapshotItem) ([]string, error)
}

// Service orchestrates one inventory sync per call.
type Service struct {
	steam InventoryFetcher
	store Store
}

func NewService(steam InventoryFetcher, store Store) *Service {
	return &Service{steam: steam, store: store}
}

// Result reports what a sync changed.
type Result struct {
	// Items is the number of distinct item names in the new snapshot.
	Items int
	// Untracked lists tracking entries dropped because the item left the
	// inventory.
	Untracked []string
}

// Sync fetches the user's current inventory, classifies every item and
// atomically replaces the stored holdings. Tracking entries for items no
// longer owned are pruned in the same transaction. A failure before the
// snapshot replace leaves all prior state untouched; steam error kinds
// pass through to the caller unchanged.
func (s *Service) Sync(ctx context.Context, chatID int64) (Result, error) {
	steamID, err := s.store.GetSteamID(chatID)
	if err != nil {
		return Result{}, err
	}
	if steamID == "" {
		return Result{}, types.ErrSteamIDMissing
	}

	items, err := s.steam.FetchInventory(ctx, steamID)
	if err != nil {
		return Result{}, errors.Wrapf(err, "inventory fetch for chat %d", chatID)
	}

	for i := range items {
		items[i].Category = category.Classify(items[i].Name, items[i].Type)
	}

	untracked, err := s.store.ReplaceHoldings(ctx, chatID, items)
	if err != nil {
		return Result{}, err
	}

	log.Debugf("synced chat %d: %d items, %d trackers pruned", chatID, len(items), len(untracked))
	return Result{Items: len(items), Untracked: untracked}, nil
}
