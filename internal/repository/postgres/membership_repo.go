package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/yourorg/simbroker/internal/domain"
)

// MembershipRepo resolves and maintains account and group memberships.
// Memberships are unique per (entity, user) and upserted on conflict.
type MembershipRepo struct {
	db *sqlx.DB
}

func NewMembershipRepo(db *sqlx.DB) *MembershipRepo {
	return &MembershipRepo{db: db}
}

func (r *MembershipRepo) AccountRole(ctx context.Context, userID, accountID uuid.UUID) (domain.Role, error) {
	var role domain.Role
	err := r.db.GetContext(ctx, &role,
		`SELECT role FROM account_memberships WHERE user_id = $1 AND account_id = $2`,
		userID, accountID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.RoleNone, nil
		}
		return domain.RoleNone, fmt.Errorf("account role: %w", err)
	}
	return role, nil
}

func (r *MembershipRepo) GroupRole(ctx context.Context, userID, groupID uuid.UUID) (domain.Role, error) {
	var role domain.Role
	err := r.db.GetContext(ctx, &role,
		`SELECT role FROM group_memberships WHERE user_id = $1 AND group_id = $2`,
		userID, groupID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.RoleNone, nil
		}
		return domain.RoleNone, fmt.Errorf("group role: %w", err)
	}
	return role, nil
}

func (r *MembershipRepo) UpsertAccountMembership(ctx context.Context, m domain.AccountMembership) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO account_memberships (account_id, user_id, role)
		VALUES ($1, $2, $3)
		ON CONFLICT (account_id, user_id) DO UPDATE SET role = EXCLUDED.role`,
		m.AccountID, m.UserID, m.Role)
	if err != nil {
		return fmt.Errorf("upsert account membership: %w", err)
	}
	return nil
}

// AddGroupMember inserts a membership row if absent; an existing row keeps
// its role (joining twice is a no-op).
func (r *MembershipRepo) AddGroupMember(ctx context.Context, m domain.GroupMembership) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO group_memberships (group_id, user_id, role)
		VALUES ($1, $2, $3)
		ON CONFLICT (group_id, user_id) DO NOTHING`,
		m.GroupID, m.UserID, m.Role)
	if err != nil {
		return fmt.Errorf("add group member: %w", err)
	}
	return nil
}

func (r *MembershipRepo) RemoveGroupMember(ctx context.Context, groupID, userID uuid.UUID) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM group_memberships WHERE group_id = $1 AND user_id = $2`,
		groupID, userID)
	if err != nil {
		return false, fmt.Errorf("remove group member: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// GroupMemberView is a membership joined with the member's email.
type GroupMemberView struct {
	UserID uuid.UUID   `db:"user_id" json:"user_id"`
	Role   domain.Role `db:"role"    json:"role"`
	Email  string      `db:"email"   json:"email"`
}

func (r *MembershipRepo) GroupMembers(ctx context.Context, groupID uuid.UUID) ([]GroupMemberView, error) {
	var members []GroupMemberView
	err := r.db.SelectContext(ctx, &members, `
		SELECT gm.user_id, gm.role, u.email
		FROM group_memberships gm
		JOIN users u ON u.id = gm.user_id
		WHERE gm.group_id = $1
		ORDER BY gm.role, u.email`, groupID)
	if err != nil {
		return nil, fmt.Errorf("group members: %w", err)
	}
	return members, nil
}
