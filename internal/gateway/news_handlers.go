package gateway

import (
	"github.com/go-chi/chi/v5"
	"net/http"
	"strings"
)

func (h *Handlers) RecentNews(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	articles, err := h.news.Recent(r.Context(), limit)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, articles)
}

func (h *Handlers) NewsByTicker(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(chi.URLParam(r, "symbol"))
	limit := queryInt(r, "limit", 50)
	articles, err := h.news.ByTicker(r.Context(), symbol, limit)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, articles)
}
