package gateway

import (
	"embed"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

//go:embed web/*.html
var pages embed.FS

// RegisterRoutes registers the pages and WebSocket routes
func (s *Service) RegisterRoutes(r chi.Router) {
	r.Get("/", servePage("web/display.html"))
	r.Get("/control", servePage("web/control.html"))
	r.Get("/topic", servePage("web/topic.html"))

	r.Get("/ws/display", s.handleView(ViewDisplay, s.startDisplay))
	r.Get("/ws/topic", s.handleView(ViewTopic, s.startTopic))
	r.Get("/ws/control", s.handleView(ViewControl, s.startControl))
	r.Get("/ws/stats", s.HandleConnectionStats)

	log.Info().Msg("view gateway routes registered")
}

func servePage(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.ServeFileFS(w, r, pages, name)
	}
}

// handleView upgrades the request and attaches a view context to it.
func (s *Service) handleView(view View, attach func(*Connection)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := s.connectionManager.UpgradeConnection(w, r, view)
		if err != nil {
			// The upgrader has already replied to the client.
			log.Error().
				Err(err).
				Str("view", string(view)).
				Msg("failed to upgrade WebSocket connection")
			return
		}
		attach(conn)
	}
}

// HandleConnectionStats returns statistics about active connections
func (s *Service) HandleConnectionStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.Stats()); err != nil {
		log.Error().Err(err).Msg("failed to encode connection stats")
	}
}
