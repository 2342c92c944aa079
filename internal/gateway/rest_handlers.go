package gateway

import (
	"encoding/json"
	"github.com/go-chi/chi/v5"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/yourorg/simbroker/internal/auth"
	"github.com/yourorg/simbroker/internal/authz"
	"github.com/yourorg/simbroker/internal/domain"
	"github.com/yourorg/simbroker/internal/execution"
	"github.com/yourorg/simbroker/internal/marketdata"
	"github.com/yourorg/simbroker/internal/pnl"
	pgRepo "github.com/yourorg/simbroker/internal/repository/postgres"
	"github.com/yourorg/simbroker/internal/storage"
)

type Handlers struct {
	users      *pgRepo.UserRepo
	ledger     storage.Ledger
	accounts   *pgRepo.AccountRepo
	members    *pgRepo.MembershipRepo
	groups     *pgRepo.GroupRepo
	bars       *pgRepo.PriceBarRepo
	watchlists *pgRepo.WatchlistRepo
	news       *pgRepo.NewsRepo
	orderSvc   *execution.OrderService
	aggregator *pnl.Aggregator
	simulator  *marketdata.Simulator
	authz      *authz.Service
	jwtSvc     *auth.JWTService
	validate   *validator.Validate
	logger     *slog.Logger
}

func NewHandlers(
	users *pgRepo.UserRepo,
	ledger storage.Ledger,
	accounts *pgRepo.AccountRepo,
	members *pgRepo.MembershipRepo,
	groups *pgRepo.GroupRepo,
	bars *pgRepo.PriceBarRepo,
	watchlists *pgRepo.WatchlistRepo,
	news *pgRepo.NewsRepo,
	orderSvc *execution.OrderService,
	aggregator *pnl.Aggregator,
	simulator *marketdata.Simulator,
	authzSvc *authz.Service,
	jwtSvc *auth.JWTService,
	logger *slog.Logger,
) *Handlers {
	return &Handlers{
		users:      users,
		ledger:     ledger,
		accounts:   accounts,
		members:    members,
		groups:     groups,
		bars:       bars,
		watchlists: watchlists,
		news:       news,
		orderSvc:   orderSvc,
		aggregator: aggregator,
		simulator:  simulator,
		authz:      authzSvc,
		jwtSvc:     jwtSvc,
		validate:   validator.New(),
		logger:     logger,
	}
}

// decodeValid decodes the body into v and applies its validate tags.
func (h *Handlers) decodeValid(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return err
	}
	return h.validate.Struct(v)
}

func pathID(r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	return id, err == nil
}

type registerRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type authResponse struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user"`
}

func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := h.decodeValid(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), 12)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	user := &domain.User{
		Email:        req.Email,
		PasswordHash: string(hash),
	}
	if err := h.users.Create(r.Context(), user); err != nil {
		writeError(w, http.StatusConflict, "email already registered")
		return
	}
	token, err := h.jwtSvc.Sign(user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to sign token")
		return
	}
	writeJSON(w, http.StatusCreated, authResponse{Token: token, User: user})
}

func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	user, err := h.users.GetByEmail(r.Context(), req.Email)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	token, err := h.jwtSvc.Sign(user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to sign token")
		return
	}
	writeJSON(w, http.StatusOK, authResponse{Token: token, User: user})
}

func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromCtx(r.Context())
	user, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

type createAccountRequest struct {
	Name         string          `json:"name"          validate:"required"`
	AccountType  string          `json:"account_type"  validate:"required"`
	StartingCash decimal.Decimal `json:"starting_cash"`
}

// CreateAccount opens a trading book with the caller as its owner.
func (h *Handlers) CreateAccount(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromCtx(r.Context())
	var req createAccountRequest
	if err := h.decodeValid(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.StartingCash.IsZero() {
		req.StartingCash = decimal.NewFromInt(100000)
	}
	account := &domain.Account{
		Name:         req.Name,
		AccountType:  req.AccountType,
		StartingCash: req.StartingCash,
	}
	if err := h.accounts.Create(r.Context(), account); err != nil {
		respondError(w, h.logger, err)
		return
	}
	err := h.members.UpsertAccountMembership(r.Context(), domain.AccountMembership{
		AccountID: account.ID,
		UserID:    userID,
		Role:      domain.RoleOwner,
	})
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, account)
}

func (h *Handlers) ListAccounts(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromCtx(r.Context())
	views, err := h.accounts.AccountsForUser(r.Context(), userID)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *Handlers) GetAccount(w http.ResponseWriter, r *http.Request) {
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
	account, err := h.accounts.Account(r.Context(), accountID)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

type accountMemberRequest struct {
	UserID uuid.UUID   `json:"user_id" validate:"required"`
	Role   domain.Role `json:"role"    validate:"required,oneof=owner manager trader member"`
}

// SetAccountMember adds or re-roles a member. Owner/manager only.
func (h *Handlers) SetAccountMember(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromCtx(r.Context())
	accountID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid account id")
		return
	}
	if err := h.authz.RequireAccountRole(r.Context(), userID, accountID, domain.RoleManager); err != nil {
		respondError(w, h.logger, err)
		return
	}
	var req accountMemberRequest
	if err := h.decodeValid(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	m := domain.AccountMembership{AccountID: accountID, UserID: req.UserID, Role: req.Role}
	if err := h.members.UpsertAccountMembership(r.Context(), m); err != nil {
		respondError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *Handlers) GetRiskLimits(w http.ResponseWriter, r *http.Request) {
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
	limits, err := h.accounts.RiskLimits(r.Context(), accountID)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, limits)
}

type riskLimitsRequest struct {
	MaxOrderNotional  jsonOptional[float64] `json:"max_order_notional"`
	MaxPositionAbsQty jsonOptional[float64] `json:"max_position_abs_qty"`
	EarningsLockout   jsonOptional[bool]    `json:"earnings_lockout"`
}

// UpdateRiskLimits patches an account's risk limits. Absent fields are left
// alone; explicit nulls clear a limit. Owner/manager only.
func (h *Handlers) UpdateRiskLimits(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromCtx(r.Context())
	accountID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid account id")
		return
	}
	if err := h.authz.RequireAccountRole(r.Context(), userID, accountID, domain.RoleManager); err != nil {
		respondError(w, h.logger, err)
		return
	}
	var req riskLimitsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	upd := pgRepo.RiskLimitsUpdate{
		MaxOrderNotional:     req.MaxOrderNotional.Value,
		SetMaxOrderNotional:  req.MaxOrderNotional.Present,
		MaxPositionAbsQty:    req.MaxPositionAbsQty.Value,
		SetMaxPositionAbsQty: req.MaxPositionAbsQty.Present,
		EarningsLockout:      req.EarningsLockout.Value,
		SetEarningsLockout:   req.EarningsLockout.Present,
	}
	limits, err := h.accounts.UpdateRiskLimits(r.Context(), accountID, upd)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	h.logger.Info("risk limits updated", "account_id", accountID, "by", userID)
	writeJSON(w, http.StatusOK, limits)
}

// jsonOptional distinguishes an absent JSON field from an explicit null.
type jsonOptional[T any] struct {
	Present bool
	Value   *T
}

func (o *jsonOptional[T]) UnmarshalJSON(data []byte) error {
	o.Present = true
	if string(data) == "null" {
		o.Value = nil
		return nil
	}
	return json.Unmarshal(data, &o.Value)
}
