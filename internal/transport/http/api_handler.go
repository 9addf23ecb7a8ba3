package http

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"vitisco-room-service/internal/app"
)

// APIHandler serves the read-only HTTP surface next to the websocket.
type APIHandler struct {
	service *app.RoomService
}

func NewAPIHandler(service *app.RoomService) *APIHandler {
	return &APIHandler{service: service}
}

// Leaderboard returns the aggregate of recorded game results by player.
func (h *APIHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	entries, err := h.service.Leaderboard(r.Context(), limit)
	if err != nil {
		log.Printf("leaderboard query failed: %v", err)
		http.Error(w, "leaderboard unavailable", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"entries": entries})
}
