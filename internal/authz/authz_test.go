package authz

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/simbroker/internal/domain"
)

type roleMap struct {
	account map[uuid.UUID]domain.Role
	group   map[uuid.UUID]domain.Role
}

func (m roleMap) AccountRole(_ context.Context, userID, _ uuid.UUID) (domain.Role, error) {
	return m.account[userID], nil
}

func (m roleMap) GroupRole(_ context.Context, userID, _ uuid.UUID) (domain.Role, error) {
	return m.group[userID], nil
}

func TestRequireAccountRole(t *testing.T) {
	trader := uuid.New()
	stranger := uuid.New()
	svc := NewService(roleMap{
		account: map[uuid.UUID]domain.Role{trader: domain.RoleTrader},
	})

	require.NoError(t, svc.RequireAccountRole(context.Background(), trader, uuid.New(), domain.RoleTrader))
	require.NoError(t, svc.RequireAccountRole(context.Background(), trader, uuid.New(), domain.RoleMember))

	err := svc.RequireAccountRole(context.Background(), trader, uuid.New(), domain.RoleManager)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	err = svc.RequireAccountRole(context.Background(), stranger, uuid.New(), domain.RoleMember)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestRequireGroupRole(t *testing.T) {
	member := uuid.New()
	svc := NewService(roleMap{
		group: map[uuid.UUID]domain.Role{member: domain.RoleMember},
	})

	require.NoError(t, svc.RequireGroupRole(context.Background(), member, uuid.New(), domain.RoleMember))

	err := svc.RequireGroupRole(context.Background(), member, uuid.New(), domain.RoleManager)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestRoleLookupReturnsNoneForStranger(t *testing.T) {
	svc := NewService(roleMap{})

	role, err := svc.AccountRole(context.Background(), uuid.New(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, domain.RoleNone, role)
}
