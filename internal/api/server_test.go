package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"steam-tracker-bot/internal/database"
	"steam-tracker-bot/internal/steam"
	syncsvc "steam-tracker-bot/internal/sync"
	"steam-tracker-bot/internal/tracking"
)

const steamInventory = `{
	"assets": [
		{"classid": "1", "instanceid": "0", "amount": "1"},
		{"classid": "2", "instanceid": "0", "amount": "1"}
	],
	"descriptions": [
		{"classid": "1", "instanceid": "0", "market_hash_name": "AK-47 | Redline (Field-Tested)", "type": "Rifle", "marketable": 1, "tradable": 1},
		{"classid": "2", "instanceid": "0", "market_hash_name": "Chroma Case", "type": "Container", "marketable": 1, "tradable": 1}
	]
}`

// fakeSteamBackend serves the two community endpoints the server hits.
func fakeSteamBackend(t *testing.T, priceOK bool) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/inventory/"):
			w.Write([]byte(steamInventory))
		case strings.HasPrefix(r.URL.Path, "/market/priceoverview/"):
			if priceOK {
				w.Write([]byte(`{"success": true, "lowest_price": "12,50 руб."}`))
			} else {
				w.Write([]byte(`{"success": false}`))
			}
		default:
			http.NotFound(w, r)
		}
	}))
}

func newTestServer(t *testing.T, priceOK bool) (*Server, *database.Store) {
	t.Helper()

	backend := fakeSteamBackend(t, priceOK)
	t.Cleanup(backend.Close)

	store, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	client := steam.NewClient(steam.Config{
		BaseURL:           backend.URL,
		RequestsPerSecond: 1000,
		Currency:          5,
	})

	srv := NewServer(0, Config{
		Store:    store,
		Steam:    client,
		Sync:     syncsvc.NewService(client, store),
		Tracking: tracking.NewService(client, store),
		PageSize: 2,
	})
	return srv, store
}

func doRequest(t *testing.T, srv *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestCategoriesRequiresChatID(t *testing.T) {
	srv, _ := newTestServer(t, true)

	rec := doRequest(t, srv, http.MethodGet, "/api/categories", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCategoriesUnlinkedChat(t *testing.T) {
	srv, _ := newTestServer(t, true)

	rec := doRequest(t, srv, http.MethodGet, "/api/categories?chat_id=1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "STEAM_ID_MISSING", body["error"])
}

func TestCategoriesSyncsAndLists(t *testing.T) {
	srv, store := newTestServer(t, true)
	require.NoError(t, store.SaveUser(1, "76561198000000001"))

	rec := doRequest(t, srv, http.MethodGet, "/api/categories?chat_id=1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var categories []string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &categories))
	assert.Equal(t, []string{"Cases", "Weapons"}, categories)
}

func TestItemsPagination(t *testing.T) {
	srv, store := newTestServer(t, true)
	require.NoError(t, store.SaveUser(1, "76561198000000001"))
	doRequest(t, srv, http.MethodGet, "/api/categories?chat_id=1", "")

	rec := doRequest(t, srv, http.MethodGet, "/api/items?chat_id=1&category=Weapons&page=1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var items []struct {
		Name   string `json:"name"`
		Amount int    `json:"amount"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	require.Len(t, items, 1)
	assert.Equal(t, "AK-47 | Redline (Field-Tested)", items[0].Name)
	assert.Equal(t, 1, items[0].Amount)
}

func TestGetPriceCachesAndReportsTracking(t *testing.T) {
	srv, store := newTestServer(t, true)
	require.NoError(t, store.SaveUser(1, "76561198000000001"))
	doRequest(t, srv, http.MethodGet, "/api/categories?chat_id=1", "")

	rec := doRequest(t, srv, http.MethodGet, "/api/get-price?chat_id=1&name=Chroma+Case", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		PriceNum float64 `json:"price_num"`
		PriceStr string  `json:"price_str"`
		Tracking bool    `json:"tracking"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.InDelta(t, 12.50, body.PriceNum, 0.0001)
	assert.Equal(t, "12,50 руб.", body.PriceStr)
	assert.False(t, body.Tracking)

	holdings, err := store.ListHoldings(1, "Cases", 1, 10)
	require.NoError(t, err)
	require.Len(t, holdings, 1)
	require.NotNil(t, holdings[0].CurrentPrice)
	assert.InDelta(t, 12.50, *holdings[0].CurrentPrice, 0.0001)
}

func TestTrackAndUntrack(t *testing.T) {
	srv, _ := newTestServer(t, true)

	rec := doRequest(t, srv, http.MethodPost, "/api/track", `{"chat_id": 1, "name": "Chroma Case"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "created", body["status"])

	rec = doRequest(t, srv, http.MethodPost, "/api/track", `{"chat_id": 1, "name": "Chroma Case"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "already_tracked", body["status"])

	rec = doRequest(t, srv, http.MethodPost, "/api/untrack", `{"chat_id": 1, "name": "Chroma Case"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, srv, http.MethodPost, "/api/untrack", `{"chat_id": 1, "name": "Chroma Case"}`)
	assert.Equal(t, http.StatusOK, rec.Code, "untrack is idempotent")
}

func TestTrackRejectedWithoutPrice(t *testing.T) {
	srv, _ := newTestServer(t, false)

	rec := doRequest(t, srv, http.MethodPost, "/api/track", `{"chat_id": 1, "name": "Chroma Case"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "PRICE_UNAVAILABLE", body["error"])
}
