// Package execution is the order lifecycle engine: it creates orders, runs
// them through risk evaluation, auto-fills low-risk market orders, and owns
// the approve/cancel transitions. All ledger writes happen here and nowhere
// else.
package execution

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/yourorg/simbroker/internal/authz"
	"github.com/yourorg/simbroker/internal/domain"
	"github.com/yourorg/simbroker/internal/observability"
	"github.com/yourorg/simbroker/internal/risk"
	"github.com/yourorg/simbroker/internal/storage"
)

// CreateOrderRequest is the engine-facing order intent. LimitPrice applies
// to LIMIT/STOP types; MARKET orders ignore it for execution but may still
// use it as the risk reference price when set.
type CreateOrderRequest struct {
	AccountID  uuid.UUID
	GroupID    *uuid.UUID
	Ticker     string
	Side       domain.Side
	Type       domain.OrderType
	Qty        decimal.Decimal
	LimitPrice *decimal.Decimal
}

type OrderService struct {
	ledger storage.Ledger
	prices storage.PriceSource
	authz  *authz.Service
	risk   *risk.Evaluator
	logger *slog.Logger
}

func NewOrderService(ledger storage.Ledger, prices storage.PriceSource, authz *authz.Service, evaluator *risk.Evaluator, logger *slog.Logger) *OrderService {
	return &OrderService{
		ledger: ledger,
		prices: prices,
		authz:  authz,
		risk:   evaluator,
		logger: logger,
	}
}

func (s *OrderService) validate(req *CreateOrderRequest) error {
	req.Ticker = strings.ToUpper(strings.TrimSpace(req.Ticker))
	if req.Ticker == "" {
		return fmt.Errorf("%w: ticker is required", domain.ErrInvalidRequest)
	}
	if !req.Qty.IsPositive() {
		return fmt.Errorf("%w: qty must be positive", domain.ErrInvalidRequest)
	}
	switch req.Side {
	case domain.SideBuy, domain.SideSell:
	default:
		return fmt.Errorf("%w: side must be BUY or SELL", domain.ErrInvalidRequest)
	}
	switch req.Type {
	case "":
		req.Type = domain.TypeMarket
	case domain.TypeMarket, domain.TypeLimit, domain.TypeStop:
	default:
		return fmt.Errorf("%w: unknown order type %q", domain.ErrInvalidRequest, req.Type)
	}
	return nil
}

// CreateOrder inserts an ORDER row and, when the risk evaluator waves it
// through and the type is MARKET, atomically fills it at the latest market
// price. Orders that need approval land in PENDING_APPROVAL; approved
// LIMIT/STOP orders rest at APPROVED since nothing triggers them later.
func (s *OrderService) CreateOrder(ctx context.Context, userID uuid.UUID, req CreateOrderRequest) (*domain.Transaction, error) {
	if err := s.authz.RequireAccountRole(ctx, userID, req.AccountID, domain.RoleTrader); err != nil {
		return nil, err
	}
	if req.GroupID != nil {
		if err := s.authz.RequireGroupRole(ctx, userID, *req.GroupID, domain.RoleMember); err != nil {
			return nil, err
		}
	}
	if err := s.validate(&req); err != nil {
		return nil, err
	}

	assessment, err := s.risk.Evaluate(ctx, req.AccountID, req.Ticker, req.Side, req.Qty, req.LimitPrice)
	if err != nil {
		return nil, err
	}

	status := domain.StatusApproved
	if assessment.NeedsApproval {
		status = domain.StatusPendingApproval
	}

	order := &domain.Transaction{
		AccountID:   req.AccountID,
		GroupID:     req.GroupID,
		Ticker:      req.Ticker,
		Side:        req.Side,
		Qty:         req.Qty,
		Price:       assessment.RefPrice,
		Kind:        domain.KindOrder,
		Status:      status,
		RequestedBy: userID,
	}

	autoFill := !assessment.NeedsApproval && req.Type == domain.TypeMarket
	var fillPrice decimal.Decimal
	if autoFill {
		// Market orders execute at the latest market price, not the
		// requested limit price.
		price, ok, perr := s.prices.LatestClose(ctx, req.Ticker)
		if perr != nil {
			return nil, perr
		}
		if !ok {
			return nil, fmt.Errorf("%w: %s", domain.ErrNoPriceAvailable, req.Ticker)
		}
		fillPrice = price
	}

	err = s.ledger.ExecTx(ctx, func(tx storage.LedgerTx) error {
		if err := tx.InsertOrder(ctx, order); err != nil {
			return err
		}
		if !autoFill {
			return nil
		}
		ok, err := tx.TransitionOrder(ctx, order.ID, nil, domain.StatusFilled, &userID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("order %s vanished during create", order.ID)
		}
		order.Status = domain.StatusFilled
		order.ApprovedBy = &userID
		return tx.InsertFill(ctx, &domain.Transaction{
			AccountID:   order.AccountID,
			GroupID:     order.GroupID,
			Ticker:      order.Ticker,
			Time:        time.Now().UTC(),
			Side:        order.Side,
			Qty:         order.Qty,
			Price:       fillPrice,
			RequestedBy: userID,
			ApprovedBy:  &userID,
		})
	})
	if err != nil {
		return nil, err
	}

	observability.OrdersCreated.WithLabelValues(string(order.Status)).Inc()
	if autoFill {
		observability.FillsWritten.Inc()
	}
	s.logger.Info("order created",
		"order_id", order.ID,
		"account_id", order.AccountID,
		"ticker", order.Ticker,
		"side", order.Side,
		"qty", order.Qty,
		"status", order.Status,
		"notional", assessment.Notional,
	)
	return order, nil
}

// CancelOrder flips an open order to CANCELED. The transition is
// compare-and-swap on the open statuses so a cancel racing an approval
// resolves to exactly one winner; the loser sees ErrInvalidState.
func (s *OrderService) CancelOrder(ctx context.Context, userID, orderID uuid.UUID) (*domain.Transaction, error) {
	order, err := s.ledger.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := s.requireManagerOrRequester(ctx, userID, order); err != nil {
		return nil, err
	}

	err = s.ledger.ExecTx(ctx, func(tx storage.LedgerTx) error {
		ok, err := tx.TransitionOrder(ctx, orderID, domain.OpenOrderStatuses, domain.StatusCanceled, nil)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: order %s is not open", domain.ErrInvalidState, orderID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	order.Status = domain.StatusCanceled
	observability.OrdersCanceled.Inc()
	s.logger.Info("order canceled", "order_id", orderID, "by", userID)
	return order, nil
}

// ApproveOrder stamps the caller as approver and immediately fills the order
// at the latest market price, re-resolved now rather than at creation. Risk
// limits are not re-checked: approval is the override.
func (s *OrderService) ApproveOrder(ctx context.Context, userID, orderID uuid.UUID) (*domain.Transaction, error) {
	order, err := s.ledger.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.RequireAccountRole(ctx, userID, order.AccountID, domain.RoleManager); err != nil {
		return nil, err
	}

	fillPrice := order.Price
	if price, ok, perr := s.prices.LatestClose(ctx, order.Ticker); perr != nil {
		return nil, perr
	} else if ok {
		fillPrice = price
	}

	err = s.ledger.ExecTx(ctx, func(tx storage.LedgerTx) error {
		ok, err := tx.TransitionOrder(ctx, orderID, nil, domain.StatusApproved, &userID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: order %s", domain.ErrNotFound, orderID)
		}
		if err := tx.InsertFill(ctx, &domain.Transaction{
			AccountID:   order.AccountID,
			GroupID:     order.GroupID,
			Ticker:      order.Ticker,
			Time:        time.Now().UTC(),
			Side:        order.Side,
			Qty:         order.Qty,
			Price:       fillPrice,
			RequestedBy: order.RequestedBy,
			ApprovedBy:  &userID,
		}); err != nil {
			return err
		}
		ok, err = tx.TransitionOrder(ctx, orderID, nil, domain.StatusFilled, &userID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: order %s", domain.ErrNotFound, orderID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	order.Status = domain.StatusFilled
	order.ApprovedBy = &userID
	observability.OrdersApproved.Inc()
	observability.FillsWritten.Inc()
	s.logger.Info("order approved and filled",
		"order_id", orderID,
		"approved_by", userID,
		"fill_price", fillPrice,
	)
	return order, nil
}

// ListOrders returns an account's orders to any member of the account.
func (s *OrderService) ListOrders(ctx context.Context, userID, accountID uuid.UUID, openOnly bool) ([]domain.Transaction, error) {
	if err := s.authz.RequireAccountRole(ctx, userID, accountID, domain.RoleMember); err != nil {
		return nil, err
	}
	return s.ledger.ListAccountOrders(ctx, accountID, openOnly)
}

// GroupOrders returns a group's orders to any member of the group.
func (s *OrderService) GroupOrders(ctx context.Context, userID, groupID uuid.UUID, openOnly bool) ([]domain.Transaction, error) {
	if err := s.authz.RequireGroupRole(ctx, userID, groupID, domain.RoleMember); err != nil {
		return nil, err
	}
	return s.ledger.ListGroupOrders(ctx, groupID, openOnly)
}

// PendingApprovals returns the approval queue across every account where the
// caller is owner or manager.
func (s *OrderService) PendingApprovals(ctx context.Context, userID uuid.UUID) ([]domain.Transaction, error) {
	return s.ledger.PendingApprovals(ctx, userID)
}

// GetOrder returns one order to the requester or any member of its account.
func (s *OrderService) GetOrder(ctx context.Context, userID, orderID uuid.UUID) (*domain.Transaction, error) {
	order, err := s.ledger.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.RequestedBy != userID {
		if err := s.authz.RequireAccountRole(ctx, userID, order.AccountID, domain.RoleMember); err != nil {
			return nil, err
		}
	}
	return order, nil
}

func (s *OrderService) requireManagerOrRequester(ctx context.Context, userID uuid.UUID, order *domain.Transaction) error {
	if order.RequestedBy == userID {
		return nil
	}
	return s.authz.RequireAccountRole(ctx, userID, order.AccountID, domain.RoleManager)
}
