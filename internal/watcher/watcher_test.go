package watcher

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"steam-tracker-bot/internal/database"
	"steam-tracker-bot/internal/types"
)

type fakePrices struct {
	quotes map[string]types.PriceQuote
	errs   map[string]error
}

func (f *fakePrices) FetchPrice(ctx context.Context, itemName string) (types.PriceQuote, error) {
	if err, ok := f.errs[itemName]; ok {
		return types.PriceQuote{}, err
	}
	return f.quotes[itemName], nil
}

type notification struct {
	chatID   int64
	itemName string
	oldPrice float64
	newPrice types.PriceQuote
}

type fakeNotifier struct {
	sent      []notification
	failChats map[int64]error
}

func (f *fakeNotifier) NotifyPriceRise(chatID int64, itemName string, oldPrice float64, newPrice types.PriceQuote) error {
	f.sent = append(f.sent, notification{chatID, itemName, oldPrice, newPrice})
	return f.failChats[chatID]
}

func newTestStore(t *testing.T) *database.Store {
	t.Helper()

	store, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRunOnceNotifiesOnRise(t *testing.T) {
	store := newTestStore(t)
	_, err := store.AddTracking(context.Background(), 1, "AWP | Asiimov", 100)
	require.NoError(t, err)

	prices := &fakePrices{quotes: map[string]types.PriceQuote{
		"AWP | Asiimov": {Value: 120, Display: "120 руб."},
	}}
	notifier := &fakeNotifier{}
	w := New(prices, store, notifier, time.Hour, Metrics{})

	w.RunOnce(context.Background())

	require.Len(t, notifier.sent, 1)
	assert.Equal(t, int64(1), notifier.sent[0].chatID)
	assert.Equal(t, "AWP | Asiimov", notifier.sent[0].itemName)
	assert.Equal(t, 100.0, notifier.sent[0].oldPrice)
	assert.Equal(t, 120.0, notifier.sent[0].newPrice.Value)

	entries, err := store.ListAllTracking()
	require.NoError(t, err)
	assert.Equal(t, 120.0, entries[0].LastPrice)

	// A later, lower price must neither notify nor roll the baseline back.
	prices.quotes["AWP | Asiimov"] = types.PriceQuote{Value: 110, Display: "110 руб."}
	w.RunOnce(context.Background())

	assert.Len(t, notifier.sent, 1)
	entries, err = store.ListAllTracking()
	require.NoError(t, err)
	assert.Equal(t, 120.0, entries[0].LastPrice)
}

func TestRunOnceIgnoresUnchangedPrice(t *testing.T) {
	store := newTestStore(t)
	_, err := store.AddTracking(context.Background(), 1, "AWP | Asiimov", 100)
	require.NoError(t, err)

	prices := &fakePrices{quotes: map[string]types.PriceQuote{
		"AWP | Asiimov": {Value: 100, Display: "100 руб."},
	}}
	notifier := &fakeNotifier{}
	w := New(prices, store, notifier, time.Hour, Metrics{})

	w.RunOnce(context.Background())
	assert.Empty(t, notifier.sent)
}

func TestRunOnceContinuesPastFailures(t *testing.T) {
	store := newTestStore(t)
	_, err := store.AddTracking(context.Background(), 1, "Broken Item", 10)
	require.NoError(t, err)
	_, err = store.AddTracking(context.Background(), 2, "AWP | Asiimov", 100)
	require.NoError(t, err)

	prices := &fakePrices{
		quotes: map[string]types.PriceQuote{"AWP | Asiimov": {Value: 150, Display: "150 руб."}},
		errs:   map[string]error{"Broken Item": types.ErrPriceUnavailable},
	}
	notifier := &fakeNotifier{}
	w := New(prices, store, notifier, time.Hour, Metrics{})

	w.RunOnce(context.Background())

	require.Len(t, notifier.sent, 1, "one entry's failure must not abort the batch")
	assert.Equal(t, int64(2), notifier.sent[0].chatID)
}

func TestRunOnceContinuesPastNotifyFailure(t *testing.T) {
	store := newTestStore(t)
	_, err := store.AddTracking(context.Background(), 1, "AWP | Asiimov", 100)
	require.NoError(t, err)
	_, err = store.AddTracking(context.Background(), 2, "Chroma Case", 5)
	require.NoError(t, err)

	prices := &fakePrices{quotes: map[string]types.PriceQuote{
		"AWP | Asiimov": {Value: 120, Display: "120 руб."},
		"Chroma Case":   {Value: 8, Display: "8 руб."},
	}}
	notifier := &fakeNotifier{failChats: map[int64]error{1: errors.New("chat blocked the bot")}}
	w := New(prices, store, notifier, time.Hour, Metrics{})

	w.RunOnce(context.Background())

	// Both entries were attempted despite the first send failing.
	require.Len(t, notifier.sent, 2)
	assert.Equal(t, int64(1), notifier.sent[0].chatID)
	assert.Equal(t, int64(2), notifier.sent[1].chatID)

	// The undelivered rise keeps its old baseline and re-alerts next run;
	// the delivered one moves up.
	entries, err := store.ListAllTracking()
	require.NoError(t, err)
	assert.Equal(t, 100.0, entries[0].LastPrice)
	assert.Equal(t, 8.0, entries[1].LastPrice)

	delete(notifier.failChats, 1)
	w.RunOnce(context.Background())

	require.Len(t, notifier.sent, 3)
	entries, err = store.ListAllTracking()
	require.NoError(t, err)
	assert.Equal(t, 120.0, entries[0].LastPrice)
}

func TestRunOnceCountsChecks(t *testing.T) {
	store := newTestStore(t)
	_, err := store.AddTracking(context.Background(), 1, "A", 10)
	require.NoError(t, err)
	_, err = store.AddTracking(context.Background(), 1, "B", 10)
	require.NoError(t, err)

	var checks, notifications int
	prices := &fakePrices{quotes: map[string]types.PriceQuote{
		"A": {Value: 20, Display: "20"},
		"B": {Value: 5, Display: "5"},
	}}
	w := New(prices, store, &fakeNotifier{}, time.Hour, Metrics{
		PriceChecks:       func() { checks++ },
		NotificationsSent: func() { notifications++ },
	})

	w.RunOnce(context.Background())
	assert.Equal(t, 2, checks)
	assert.Equal(t, 1, notifications)
}
