// Package tracking handles track/untrack requests. Tracking an item
// requires a fresh market price as the baseline; without one the request
// is rejected and nothing is stored.
package tracking

import (
	"context"

	"github.com/pkg/errors"

	"steam-tracker-bot/internal/types"
)

// PriceFetcher is the steam client surface the service needs.
type PriceFetcher interface {
	FetchPrice(ctx context.Context, itemName string) (types.PriceQuote, error)
}

// Store is the persistence surface the service needs.
type Store interface {
	AddTracking(ctx context.Context, chatID int64, itemName string, baseline float64) (bool, error)
	RemoveTracking(chatID int64, itemName string) error
	ListTrackedNames(chatID int64) ([]string, error)
	ListTrackingByChat(chatID int64) ([]types.TrackingEntry, error)
}

type Service struct {
	steam PriceFetcher
	store Store
}

func NewService(steam PriceFetcher, store Store) *Service {
	return &Service{steam: steam, store: store}
}

// Status of a track request.
type Status string

const (
	StatusCreated        Status = "created"
	StatusAlreadyTracked Status = "already_tracked"
)

// Track establishes a price baseline and records the tracking entry. When
// the pair is already tracked no second entry is created. A failed price
// fetch rejects the whole request.
func (s *Service) Track(ctx context.Context, chatID int64, itemName string) (Status, types.PriceQuote, error) {
	quote, err := s.steam.FetchPrice(ctx, itemName)
	if err != nil {
		return "", types.PriceQuote{}, errors.Wrapf(err, "baseline for %q", itemName)
	}

	created, err := s.store.AddTracking(ctx, chatID, itemName, quote.Value)
	if err != nil {
		return "", types.PriceQuote{}, err
	}
	if !created {
		return StatusAlreadyTracked, quote, nil
	}
	return StatusCreated, quote, nil
}

// Untrack removes the entry. Untracking an item that is not tracked is
// not an error.
func (s *Service) Untrack(chatID int64, itemName string) error {
	return s.store.RemoveTracking(chatID, itemName)
}

// List returns the item names a chat tracks.
func (s *Service) List(chatID int64) ([]string, error) {
	return s.store.ListTrackedNames(chatID)
}

// Entries returns a chat's full tracking entries for display.
func (s *Service) Entries(chatID int64) ([]types.TrackingEntry, error) {
	return s.store.ListTrackingByChat(chatID)
}
