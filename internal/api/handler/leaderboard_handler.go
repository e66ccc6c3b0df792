package handler

import (
	"net/http"
	"studyhub/internal/app/service"
	"studyhub/internal/common"

	"github.com/go-chi/chi/v5"
)

type LeaderboardHandler struct {
	leaderboardService *service.LeaderboardService
}

func NewLeaderboardHandler(ls *service.LeaderboardService) *LeaderboardHandler {
	return &LeaderboardHandler{leaderboardService: ls}
}

func (h *LeaderboardHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.rank)
}

func (h *LeaderboardHandler) rank(w http.ResponseWriter, r *http.Request) {
	entries, err := h.leaderboardService.Rank(r.Context())
	if err != nil {
		common.RespondWithAppError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, entries)
}
