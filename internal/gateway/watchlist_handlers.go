package gateway

import (
	"github.com/go-chi/chi/v5"
	"net/http"
	"strings"

	"github.com/yourorg/simbroker/internal/auth"
)

func (h *Handlers) GetWatchlist(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromCtx(r.Context())
	entries, err := h.watchlists.List(r.Context(), userID)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *Handlers) AddToWatchlist(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromCtx(r.Context())
	symbol := strings.ToUpper(chi.URLParam(r, "symbol"))
	ticker, err := h.bars.Ticker(r.Context(), symbol)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	if ticker == nil {
		writeError(w, http.StatusNotFound, "unknown ticker")
		return
	}
	if err := h.watchlists.Add(r.Context(), userID, symbol); err != nil {
		respondError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (h *Handlers) RemoveFromWatchlist(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromCtx(r.Context())
	symbol := strings.ToUpper(chi.URLParam(r, "symbol"))
	removed, err := h.watchlists.Remove(r.Context(), userID, symbol)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	if !removed {
		writeError(w, http.StatusNotFound, "not on watchlist")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
