package gateway

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/yourorg/simbroker/internal/auth"
	"github.com/yourorg/simbroker/internal/domain"
)

type groupRequest struct {
	Name string `json:"name" validate:"required,min=2,max=64"`
}

// CreateGroup creates a trading group with the caller as owner. Names are
// unique case-insensitively.
func (h *Handlers) CreateGroup(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromCtx(r.Context())
	var req groupRequest
	if err := h.decodeValid(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	taken, err := h.groups.NameTaken(r.Context(), req.Name, nil)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	if taken {
		writeError(w, http.StatusConflict, "group name already taken")
		return
	}
	group := &domain.Group{Name: req.Name, CreatedBy: userID}
	if err := h.groups.Create(r.Context(), group); err != nil {
		respondError(w, h.logger, err)
		return
	}
	err = h.members.AddGroupMember(r.Context(), domain.GroupMembership{
		GroupID: group.ID,
		UserID:  userID,
		Role:    domain.RoleOwner,
	})
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, group)
}

func (h *Handlers) ListGroups(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromCtx(r.Context())
	groups, err := h.groups.GroupsForUser(r.Context(), userID)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, groups)
}

// DiscoverGroups lists joinable groups; ?q= filters by name, ?mine=true
// includes groups the caller already belongs to.
func (h *Handlers) DiscoverGroups(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromCtx(r.Context())
	query := r.URL.Query().Get("q")
	includeMine := r.URL.Query().Get("mine") == "true"
	limit := queryInt(r, "limit", 50)
	groups, err := h.groups.Discover(r.Context(), userID, query, includeMine, limit)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, groups)
}

func (h *Handlers) GetGroup(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromCtx(r.Context())
	groupID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid group id")
		return
	}
	if err := h.authz.RequireGroupRole(r.Context(), userID, groupID, domain.RoleMember); err != nil {
		respondError(w, h.logger, err)
		return
	}
	group, err := h.groups.Get(r.Context(), groupID)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	members, err := h.members.GroupMembers(r.Context(), groupID)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"group": group, "members": members})
}

func (h *Handlers) RenameGroup(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromCtx(r.Context())
	groupID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid group id")
		return
	}
	if err := h.authz.RequireGroupRole(r.Context(), userID, groupID, domain.RoleManager); err != nil {
		respondError(w, h.logger, err)
		return
	}
	var req groupRequest
	if err := h.decodeValid(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	taken, err := h.groups.NameTaken(r.Context(), req.Name, &groupID)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	if taken {
		writeError(w, http.StatusConflict, "group name already taken")
		return
	}
	if err := h.groups.Rename(r.Context(), groupID, req.Name); err != nil {
		respondError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteGroup removes the group and its memberships. Ledger rows outlive the
// group with a nulled group_id. Owner only.
func (h *Handlers) DeleteGroup(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromCtx(r.Context())
	groupID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid group id")
		return
	}
	if err := h.authz.RequireGroupRole(r.Context(), userID, groupID, domain.RoleOwner); err != nil {
		respondError(w, h.logger, err)
		return
	}
	if err := h.groups.Delete(r.Context(), groupID); err != nil {
		respondError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// JoinGroup adds the caller as a plain member.
func (h *Handlers) JoinGroup(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromCtx(r.Context())
	groupID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid group id")
		return
	}
	if group, err := h.groups.Get(r.Context(), groupID); err != nil || group == nil {
		respondError(w, h.logger, err)
		return
	}
	m := domain.GroupMembership{GroupID: groupID, UserID: userID, Role: domain.RoleMember}
	if err := h.members.AddGroupMember(r.Context(), m); err != nil {
		respondError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

type groupMemberRequest struct {
	UserID uuid.UUID   `json:"user_id" validate:"required"`
	Role   domain.Role `json:"role"    validate:"required,oneof=owner manager member"`
}

func (h *Handlers) AddGroupMember(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromCtx(r.Context())
	groupID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid group id")
		return
	}
	if err := h.authz.RequireGroupRole(r.Context(), userID, groupID, domain.RoleManager); err != nil {
		respondError(w, h.logger, err)
		return
	}
	var req groupMemberRequest
	if err := h.decodeValid(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	m := domain.GroupMembership{GroupID: groupID, UserID: req.UserID, Role: req.Role}
	if err := h.members.AddGroupMember(r.Context(), m); err != nil {
		respondError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

// RemoveGroupMember removes a member: managers may remove anyone but the
// owner, members may remove themselves. The owner cannot leave, only delete
// the group.
func (h *Handlers) RemoveGroupMember(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromCtx(r.Context())
	groupID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid group id")
		return
	}
	targetID, ok := pathID(r, "userID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	if targetID != userID {
		if err := h.authz.RequireGroupRole(r.Context(), userID, groupID, domain.RoleManager); err != nil {
			respondError(w, h.logger, err)
			return
		}
	}
	targetRole, err := h.authz.GroupRole(r.Context(), targetID, groupID)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	if targetRole == domain.RoleOwner {
		writeError(w, http.StatusConflict, "owner cannot leave the group")
		return
	}
	removed, err := h.members.RemoveGroupMember(r.Context(), groupID, targetID)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	if !removed {
		writeError(w, http.StatusNotFound, "membership not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) GroupOrders(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromCtx(r.Context())
	groupID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid group id")
		return
	}
	openOnly := r.URL.Query().Get("open") == "true"
	orders, err := h.orderSvc.GroupOrders(r.Context(), userID, groupID, openOnly)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}
