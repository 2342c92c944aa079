package gateway

import (
	"github.com/go-chi/chi/v5"
	"net/http"
	"strconv"
	"strings"
)

// Market data endpoints are public: prices are simulated, not entitled.

func (h *Handlers) ListTickers(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	limit := queryInt(r, "limit", 100)
	tickers, err := h.bars.Tickers(r.Context(), query, limit)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, tickers)
}

func (h *Handlers) GetTicker(w http.ResponseWriter, r *http.Request) {
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
	writeJSON(w, http.StatusOK, ticker)
}

func (h *Handlers) LatestBar(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(chi.URLParam(r, "symbol"))
	bar, err := h.bars.LatestBar(r.Context(), symbol)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	if bar == nil {
		writeError(w, http.StatusNotFound, "no price history")
		return
	}
	writeJSON(w, http.StatusOK, bar)
}

func (h *Handlers) BarSeries(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(chi.URLParam(r, "symbol"))
	limit := queryInt(r, "limit", 200)
	series, err := h.bars.Series(r.Context(), symbol, limit)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, series)
}

// SimulateTick runs one simulation step for a symbol immediately and returns
// the new bar.
func (h *Handlers) SimulateTick(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(chi.URLParam(r, "symbol"))
	bar, err := h.simulator.SimulateOnce(r.Context(), symbol)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, bar)
}

func queryInt(r *http.Request, name string, fallback int) int {
	if v := r.URL.Query().Get(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}
