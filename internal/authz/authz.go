// Package authz is the membership/role authority. Every permission check in
// the system funnels through one capability check parameterized by the
// minimum required role, instead of per-endpoint role lists.
package authz

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/yourorg/simbroker/internal/domain"
	"github.com/yourorg/simbroker/internal/storage"
)

type Service struct {
	members storage.MembershipStore
}

func NewService(members storage.MembershipStore) *Service {
	return &Service{members: members}
}

// AccountRole resolves the user's role on an account; RoleNone when the user
// is not a member.
func (s *Service) AccountRole(ctx context.Context, userID, accountID uuid.UUID) (domain.Role, error) {
	return s.members.AccountRole(ctx, userID, accountID)
}

// GroupRole resolves the user's role in a group; RoleNone when the user is
// not a member.
func (s *Service) GroupRole(ctx context.Context, userID, groupID uuid.UUID) (domain.Role, error) {
	return s.members.GroupRole(ctx, userID, groupID)
}

// RequireAccountRole returns domain.ErrForbidden unless the user holds at
// least min on the account.
func (s *Service) RequireAccountRole(ctx context.Context, userID, accountID uuid.UUID, min domain.Role) error {
	role, err := s.members.AccountRole(ctx, userID, accountID)
	if err != nil {
		return err
	}
	if !role.AtLeast(min) {
		return fmt.Errorf("%w: requires %s on account", domain.ErrForbidden, min)
	}
	return nil
}

// RequireGroupRole returns domain.ErrForbidden unless the user holds at
// least min in the group.
func (s *Service) RequireGroupRole(ctx context.Context, userID, groupID uuid.UUID, min domain.Role) error {
	role, err := s.members.GroupRole(ctx, userID, groupID)
	if err != nil {
		return err
	}
	if !role.AtLeast(min) {
		return fmt.Errorf("%w: requires %s on group", domain.ErrForbidden, min)
	}
	return nil
}
