// Package api serves the Mini App: inventory views, price lookups and
// track/untrack actions.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	log "github.com/sirupsen/logrus"

	"steam-tracker-bot/internal/database"
	"steam-tracker-bot/internal/steam"
	syncsvc "steam-tracker-bot/internal/sync"
	"steam-tracker-bot/internal/tracking"
	"steam-tracker-bot/internal/types"
)

// Config holds the dependencies and settings for the HTTP server.
type Config struct {
	Store     *database.Store
	Steam     *steam.Client
	Sync      *syncsvc.Service
	Tracking  *tracking.Service
	StaticDir string
	PageSize  int
}

// Server is the Mini App REST backend.
type Server struct {
	cfg  Config
	http *http.Server
}

func NewServer(port int, cfg Config) *Server {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 20
	}
	s := &Server{cfg: cfg}
	s.http = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: s.router(),
	}
	return s
}

func (s *Server) router() *chi.Mux {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/api/categories", s.handleCategories)
	r.Get("/api/items", s.handleItems)
	r.Get("/api/get-price", s.handleGetPrice)
	r.Post("/api/track", s.handleTrack)
	r.Post("/api/untrack", s.handleUntrack)

	if s.cfg.StaticDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(s.cfg.StaticDir)))
	}
	return r
}

// ListenAndServe blocks until the server stops.
func (s *Server) ListenAndServe() error {
	log.Infof("mini app server listening on %s", s.http.Addr)
	return s.http.ListenAndServe()
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Errorf("failed to encode response: %v", err)
	}
}

// writeError maps an error kind to its wire code and HTTP status.
func writeError(w http.ResponseWriter, err error) {
	code := types.Code(err)
	status := http.StatusBadRequest
	switch code {
	case "STORAGE_ERROR":
		status = http.StatusInternalServerError
	case "UNAVAILABLE":
		status = http.StatusBadGateway
	}
	writeJSON(w, status, map[string]string{"error": code})
}

func chatIDParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.URL.Query().Get("chat_id"), 10, 64)
	return id, err == nil && id != 0
}

// handleCategories re-syncs the inventory and returns the category list.
func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	chatID, ok := chatIDParam(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "no_id"})
		return
	}

	if _, err := s.cfg.Sync.Sync(r.Context(), chatID); err != nil {
		log.Warnf("sync failed for chat %d: %v", chatID, err)
		writeError(w, err)
		return
	}

	categories, err := s.cfg.Store.ListCategories(chatID)
	if err != nil {
		writeError(w, err)
		return
	}
	if categories == nil {
		categories = []string{}
	}
	writeJSON(w, http.StatusOK, categories)
}

// handleItems returns one page of {name, amount} for a category.
func (s *Server) handleItems(w http.ResponseWriter, r *http.Request) {
	chatID, ok := chatIDParam(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "no_id"})
		return
	}
	category := r.URL.Query().Get("category")
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}

	holdings, err := s.cfg.Store.ListHoldings(chatID, category, page, s.cfg.PageSize)
	if err != nil {
		writeError(w, err)
		return
	}

	type row struct {
		Name   string `json:"name"`
		Amount int    `json:"amount"`
	}
	items := make([]row, 0, len(holdings))
	for _, h := range holdings {
		items = append(items, row{Name: h.Name, Amount: h.Amount})
	}
	writeJSON(w, http.StatusOK, items)
}

// handleGetPrice fetches the live price for an item and caches it on the
// user's holding.
func (s *Server) handleGetPrice(w http.ResponseWriter, r *http.Request) {
	chatID, ok := chatIDParam(r)
	name := r.URL.Query().Get("name")
	if !ok || name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "no_id"})
		return
	}

	quote, err := s.cfg.Steam.FetchPrice(r.Context(), name)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := s.cfg.Store.CacheCurrentPrice(chatID, name, quote.Value); err != nil {
		log.Errorf("failed to cache price for %q: %v", name, err)
	}

	tracked, err := s.cfg.Store.IsTracked(chatID, name)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"price_num": quote.Value,
		"price_str": quote.Display,
		"tracking":  tracked,
	})
}

type trackRequest struct {
	ChatID int64  `json:"chat_id"`
	Name   string `json:"name"`
}

func (s *Server) handleTrack(w http.ResponseWriter, r *http.Request) {
	var req trackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ChatID == 0 || req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "no_id"})
		return
	}

	status, _, err := s.cfg.Tracking.Track(r.Context(), req.ChatID, req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(status)})
}

func (s *Server) handleUntrack(w http.ResponseWriter, r *http.Request) {
	var req trackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ChatID == 0 || req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "no_id"})
		return
	}

	if err := s.cfg.Tracking.Untrack(req.ChatID, req.Name); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
