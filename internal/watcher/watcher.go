// Package watcher periodically re-prices every tracked item and notifies
// the owning chat when the price rose above the last recorded one.
package watcher

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"steam-tracker-bot/internal/types"
)

// PriceFetcher is the steam client surface the watcher needs. Pacing
// between entries comes from the client's own rate limiter.
type PriceFetcher interface {
	FetchPrice(ctx context.Context, itemName string) (types.PriceQuote, error)
}

// Store is the persistence surface the watcher needs.
type Store interface {
	ListAllTracking() ([]types.TrackingEntry, error)
	UpdateLastPrice(id int64, price float64) error
}

// Notifier delivers one price-rise message. The bot implements it.
type Notifier interface {
	NotifyPriceRise(chatID int64, itemName string, oldPrice float64, newPrice types.PriceQuote) error
}

// Metrics receives per-run observations; the caller wires prometheus
// counters in.
type Metrics struct {
	PriceChecks       func()
	NotificationsSent func()
}

// Watcher runs the recurring price check.
type Watcher struct {
	steam    PriceFetcher
	store    Store
	notifier Notifier
	interval time.Duration
	metrics  Metrics

	// guards against overlapping runs when a batch outlasts the interval
	mu sync.Mutex
}

func New(steam PriceFetcher, store Store, notifier Notifier, interval time.Duration, metrics Metrics) *Watcher {
	return &Watcher{
		steam:    steam,
		store:    store,
		notifier: notifier,
		interval: interval,
		metrics:  metrics,
	}
}

// Start launches the periodic check in the background. It returns when ctx
// is cancelled. A panic inside a run is recovered and the loop restarted.
func (w *Watcher) Start(ctx context.Context) {
	go w.loop(ctx)
	log.Info("price watcher started")
}

func (w *Watcher) loop(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("panic recovered in price watcher: %v, restarting in 10s", r)
			time.Sleep(10 * time.Second)
			go w.loop(ctx)
		}
	}()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce re-prices every tracking entry. A single entry's failure — fetch,
// notify or persist — is logged and never aborts the batch. The stored
// last price is only ever moved upward, so a flat or falling price writes
// nothing.
func (w *Watcher) RunOnce(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()

	entries, err := w.store.ListAllTracking()
	if err != nil {
		log.Errorf("failed to load tracking entries: %v", err)
		return
	}
	log.Debugf("checking prices for %d tracked items", len(entries))

	for _, entry := range entries {
		if ctx.Err() != nil {
			return
		}
		w.checkEntry(ctx, entry)
	}
}

func (w *Watcher) checkEntry(ctx context.Context, entry types.TrackingEntry) {
	if w.metrics.PriceChecks != nil {
		w.metrics.PriceChecks()
	}

	quote, err := w.steam.FetchPrice(ctx, entry.ItemName)
	if err != nil {
		log.Warnf("price check failed for %q (chat %d): %v", entry.ItemName, entry.ChatID, err)
		return
	}
	if quote.Value <= entry.LastPrice {
		return
	}

	if err := w.notifier.NotifyPriceRise(entry.ChatID, entry.ItemName, entry.LastPrice, quote); err != nil {
		// Keep the old baseline: the user never saw this rise, so the
		// next run must alert on it again.
		log.Errorf("failed to notify chat %d about %q: %v", entry.ChatID, entry.ItemName, err)
		return
	}
	if w.metrics.NotificationsSent != nil {
		w.metrics.NotificationsSent()
	}

	if err := w.store.UpdateLastPrice(entry.ID, quote.Value); err != nil {
		log.Errorf("failed to update last price for entry %d: %v", entry.ID, err)
	}
}
