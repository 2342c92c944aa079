package gateway

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"time"

	"github.com/yourorg/simbroker/internal/auth"
	"github.com/yourorg/simbroker/internal/domain"
)

// ExportTransactions streams an account's ledger as CSV, oldest first.
// Optional ?start= and ?end= bound the window (RFC 3339 or YYYY-MM-DD).
func (h *Handlers) ExportTransactions(w http.ResponseWriter, r *http.Request) {
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

	start, ok := timeParam(r, "start")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid start time")
		return
	}
	end, ok := timeParam(r, "end")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid end time")
		return
	}

	txs, err := h.ledger.AccountTransactions(r.Context(), accountID, start, end)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="transactions-%s.csv"`, accountID))

	cw := csv.NewWriter(w)
	cw.Write([]string{"id", "time", "kind", "status", "ticker", "side", "qty", "price", "group_id", "requested_by", "approved_by"})
	for _, tx := range txs {
		groupID, approvedBy := "", ""
		if tx.GroupID != nil {
			groupID = tx.GroupID.String()
		}
		if tx.ApprovedBy != nil {
			approvedBy = tx.ApprovedBy.String()
		}
		cw.Write([]string{
			tx.ID.String(),
			tx.Time.UTC().Format(time.RFC3339),
			string(tx.Kind),
			string(tx.Status),
			tx.Ticker,
			string(tx.Side),
			tx.Qty.String(),
			tx.Price.String(),
			groupID,
			tx.RequestedBy.String(),
			approvedBy,
		})
	}
	cw.Flush()
}

// timeParam parses an optional query parameter as RFC 3339 or a bare date,
// normalized to RFC 3339 for the repository. ok is false on a malformed
// value.
func timeParam(r *http.Request, name string) (*string, bool) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return nil, true
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, v); err == nil {
			s := t.UTC().Format(time.RFC3339)
			return &s, true
		}
	}
	return nil, false
}
