package gateway

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/yourorg/simbroker/internal/auth"
	"github.com/yourorg/simbroker/internal/domain"
	"github.com/yourorg/simbroker/internal/execution"
)

type createOrderRequest struct {
	AccountID  uuid.UUID        `json:"account_id"  validate:"required"`
	GroupID    *uuid.UUID       `json:"group_id,omitempty"`
	Ticker     string           `json:"ticker"      validate:"required"`
	Side       domain.Side      `json:"side"        validate:"required,oneof=BUY SELL"`
	Type       domain.OrderType `json:"type"        validate:"omitempty,oneof=MARKET LIMIT STOP"`
	Qty        decimal.Decimal  `json:"qty"`
	LimitPrice *decimal.Decimal `json:"limit_price,omitempty"`
}

func (h *Handlers) CreateOrder(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromCtx(r.Context())
	var req createOrderRequest
	if err := h.decodeValid(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	order, err := h.orderSvc.CreateOrder(r.Context(), userID, execution.CreateOrderRequest{
		AccountID:  req.AccountID,
		GroupID:    req.GroupID,
		Ticker:     req.Ticker,
		Side:       req.Side,
		Type:       req.Type,
		Qty:        req.Qty,
		LimitPrice: req.LimitPrice,
	})
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

func (h *Handlers) GetOrder(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromCtx(r.Context())
	orderID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}
	order, err := h.orderSvc.GetOrder(r.Context(), userID, orderID)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// ListOrders returns an account's orders; ?open=true narrows to orders still
// cancelable.
func (h *Handlers) ListOrders(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromCtx(r.Context())
	accountID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid account id")
		return
	}
	openOnly := r.URL.Query().Get("open") == "true"
	orders, err := h.orderSvc.ListOrders(r.Context(), userID, accountID, openOnly)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func (h *Handlers) CancelOrder(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromCtx(r.Context())
	orderID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}
	order, err := h.orderSvc.CancelOrder(r.Context(), userID, orderID)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *Handlers) ApproveOrder(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromCtx(r.Context())
	orderID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}
	order, err := h.orderSvc.ApproveOrder(r.Context(), userID, orderID)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// PendingApprovals is the caller's approval inbox across every account where
// they hold owner or manager.
func (h *Handlers) PendingApprovals(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromCtx(r.Context())
	orders, err := h.orderSvc.PendingApprovals(r.Context(), userID)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}
