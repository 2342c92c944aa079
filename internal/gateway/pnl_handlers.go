package gateway

import (
	"github.com/go-chi/chi/v5"
	"net/http"
	"strings"

	"github.com/yourorg/simbroker/internal/auth"
	"github.com/yourorg/simbroker/internal/domain"
)

func (h *Handlers) Positions(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromCtx(r.Context())
	accountID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid account id")
		return
	}
	if err := h.authz.RequireAccountRole(r.Context(), userID, accountID, domain.RoleMember); err != nil {
		respondError(w, h.logger, err)
		return
	}
	positions, err := h.aggregator.Positions(r.Context(), accountID)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, positions)
}

func (h *Handlers) NetPosition(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromCtx(r.Context())
	accountID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid account id")
		return
	}
	if err := h.authz.RequireAccountRole(r.Context(), userID, accountID, domain.RoleMember); err != nil {
		respondError(w, h.logger, err)
		return
	}
	symbol := strings.ToUpper(chi.URLParam(r, "symbol"))
	qty, err := h.aggregator.NetPosition(r.Context(), accountID, symbol)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ticker": symbol, "qty": qty})
}

func (h *Handlers) AccountValuation(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromCtx(r.Context())
	accountID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid account id")
		return
	}
	if err := h.authz.RequireAccountRole(r.Context(), userID, accountID, domain.RoleMember); err != nil {
		respondError(w, h.logger, err)
		return
	}
	valuation, err := h.aggregator.Valuation(r.Context(), accountID)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, valuation)
}

func (h *Handlers) Leaderboard(w http.ResponseWriter, r *http.Request) {
	board, err := h.aggregator.Leaderboard(r.Context())
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, board)
}
