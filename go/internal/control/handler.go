package control

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/mcdev12/roulette/go/internal/models"
	"github.com/mcdev12/roulette/go/internal/registry"
	"github.com/rs/zerolog/log"
)

// Handler exposes the orchestrator's operations to the control page.
type Handler struct {
	orchestrator *Orchestrator
}

// NewHandler creates a new control handler
func NewHandler(o *Orchestrator) *Handler {
	return &Handler{orchestrator: o}
}

type matchRequest struct {
	Left  string `json:"left"`
	Right string `json:"right"`
}

type scoreRequest struct {
	Delta int `json:"delta"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type stopResponse struct {
	Stopped bool                `json:"stopped"`
	State   models.SyncSnapshot `json:"state"`
}

// RegisterRoutes mounts the control API on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/state", h.HandleGetState)
		r.Post("/matches", h.HandleAddMatch)
		r.Put("/matches/{id}", h.HandleEditMatch)
		r.Delete("/matches/{id}", h.HandleRemoveMatch)
		r.Post("/start", h.HandleStart)
		r.Post("/stop", h.HandleStop)
		r.Post("/reset", h.HandleReset)
		r.Post("/scores/reset", h.HandleResetScores)
		r.Post("/scores/{side}", h.HandleAdjustScore)
		r.Post("/sync", h.HandleSync)
	})
}

// HandleGetState handles GET /api/state
func (h *Handler) HandleGetState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.orchestrator.Snapshot())
}

// HandleAddMatch handles POST /api/matches
func (h *Handler) HandleAddMatch(w http.ResponseWriter, r *http.Request) {
	var req matchRequest
	if !decode(w, r, &req) {
		return
	}

	item, err := h.orchestrator.AddMatch(r.Context(), req.Left, req.Right)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

// HandleEditMatch handles PUT /api/matches/{id}
func (h *Handler) HandleEditMatch(w http.ResponseWriter, r *http.Request) {
	var req matchRequest
	if !decode(w, r, &req) {
		return
	}

	item, err := h.orchestrator.EditMatch(r.Context(), chi.URLParam(r, "id"), req.Left, req.Right)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// HandleRemoveMatch handles DELETE /api/matches/{id}
func (h *Handler) HandleRemoveMatch(w http.ResponseWriter, r *http.Request) {
	if err := h.orchestrator.RemoveMatch(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleStart handles POST /api/start
func (h *Handler) HandleStart(w http.ResponseWriter, r *http.Request) {
	if err := h.orchestrator.Start(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.orchestrator.Snapshot())
}

// HandleStop handles POST /api/stop. Stopping when not spinning is not an error.
func (h *Handler) HandleStop(w http.ResponseWriter, r *http.Request) {
	stopped := h.orchestrator.Stop(r.Context())
	writeJSON(w, http.StatusOK, stopResponse{Stopped: stopped, State: h.orchestrator.Snapshot()})
}

// HandleReset handles POST /api/reset
func (h *Handler) HandleReset(w http.ResponseWriter, r *http.Request) {
	h.orchestrator.ResetAll(r.Context())
	writeJSON(w, http.StatusOK, h.orchestrator.Snapshot())
}

// HandleAdjustScore handles POST /api/scores/{side}
func (h *Handler) HandleAdjustScore(w http.ResponseWriter, r *http.Request) {
	var req scoreRequest
	if !decode(w, r, &req) {
		return
	}

	scores, err := h.orchestrator.AdjustScore(r.Context(), models.Side(chi.URLParam(r, "side")), req.Delta)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, scores)
}

// HandleResetScores handles POST /api/scores/reset
func (h *Handler) HandleResetScores(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.orchestrator.ResetScores(r.Context()))
}

// HandleSync handles POST /api/sync
func (h *Handler) HandleSync(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.orchestrator.Republish(r.Context()))
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return false
	}
	return true
}

// writeError maps validation failures to 4xx responses.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, registry.ErrItemNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ErrSpinInProgress):
		status = http.StatusConflict
	case errors.Is(err, registry.ErrBlankSide),
		errors.Is(err, ErrNotEnoughItems),
		errors.Is(err, ErrUnknownSide):
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}
