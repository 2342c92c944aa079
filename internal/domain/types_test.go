package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestRoleAtLeast(t *testing.T) {
	assert.True(t, RoleOwner.AtLeast(RoleManager))
	assert.True(t, RoleManager.AtLeast(RoleManager))
	assert.True(t, RoleTrader.AtLeast(RoleMember))
	assert.False(t, RoleMember.AtLeast(RoleTrader))
	assert.False(t, RoleNone.AtLeast(RoleMember))
	assert.True(t, RoleNone.AtLeast(RoleNone))
}

func TestSignedQty(t *testing.T) {
	buy := Transaction{Side: SideBuy, Qty: decimal.NewFromInt(100)}
	sell := Transaction{Side: SideSell, Qty: decimal.NewFromInt(30)}

	assert.True(t, buy.SignedQty().Equal(decimal.NewFromInt(100)))
	assert.True(t, sell.SignedQty().Equal(decimal.NewFromInt(-30)))
}
