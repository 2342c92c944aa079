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

type GroupRepo struct {
	db *sqlx.DB
}

func NewGroupRepo(db *sqlx.DB) *GroupRepo {
	return &GroupRepo{db: db}
}

func (r *GroupRepo) Create(ctx context.Context, g *domain.Group) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	query := `
		INSERT INTO groups (id, name, created_by)
		VALUES ($1, $2, $3)
		RETURNING created_at`
	if err := r.db.QueryRowContext(ctx, query, g.ID, g.Name, g.CreatedBy).Scan(&g.CreatedAt); err != nil {
		return fmt.Errorf("create group: %w", err)
	}
	return nil
}

func (r *GroupRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Group, error) {
	var g domain.Group
	err := r.db.GetContext(ctx, &g, `SELECT id, name, created_by, created_at FROM groups WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get group: %w", err)
	}
	return &g, nil
}

// NameTaken reports whether another group already uses the name,
// case-insensitively. exclude skips a group id during rename checks.
func (r *GroupRepo) NameTaken(ctx context.Context, name string, exclude *uuid.UUID) (bool, error) {
	var exists bool
	var err error
	if exclude != nil {
		err = r.db.GetContext(ctx, &exists,
			`SELECT EXISTS (SELECT 1 FROM groups WHERE id <> $1 AND LOWER(name) = LOWER($2))`,
			*exclude, name)
	} else {
		err = r.db.GetContext(ctx, &exists,
			`SELECT EXISTS (SELECT 1 FROM groups WHERE LOWER(name) = LOWER($1))`, name)
	}
	if err != nil {
		return false, fmt.Errorf("group name check: %w", err)
	}
	return exists, nil
}

func (r *GroupRepo) Rename(ctx context.Context, id uuid.UUID, name string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE groups SET name = $1 WHERE id = $2`, name, id)
	if err != nil {
		return fmt.Errorf("rename group: %w", err)
	}
	return nil
}

// Delete removes a group. Memberships cascade; ledger rows keep their
// history with group_id set to NULL by the foreign key.
func (r *GroupRepo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM groups WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete group: %w", err)
	}
	return nil
}

// GroupView is a group joined with the requesting user's role.
type GroupView struct {
	domain.Group
	Role domain.Role `db:"role" json:"role"`
}

func (r *GroupRepo) GroupsForUser(ctx context.Context, userID uuid.UUID) ([]GroupView, error) {
	var views []GroupView
	err := r.db.SelectContext(ctx, &views, `
		SELECT g.id, g.name, g.created_by, g.created_at, gm.role
		FROM group_memberships gm
		JOIN groups g ON g.id = gm.group_id
		WHERE gm.user_id = $1
		ORDER BY g.created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("groups for user: %w", err)
	}
	return views, nil
}

// DiscoverView is a group with the requesting user's role, if any.
type DiscoverView struct {
	domain.Group
	MyRole *domain.Role `db:"my_role" json:"my_role,omitempty"`
}

func (r *GroupRepo) Discover(ctx context.Context, userID uuid.UUID, query string, includeMine bool, limit int) ([]DiscoverView, error) {
	sqlQuery := `
		SELECT g.id, g.name, g.created_by, g.created_at, gm.role AS my_role
		FROM groups g
		LEFT JOIN group_memberships gm ON gm.group_id = g.id AND gm.user_id = $1
		WHERE ($2 = '' OR LOWER(g.name) LIKE '%' || LOWER($2) || '%')`
	if !includeMine {
		sqlQuery += ` AND gm.user_id IS NULL`
	}
	sqlQuery += ` ORDER BY g.created_at DESC LIMIT $3`
	var views []DiscoverView
	if err := r.db.SelectContext(ctx, &views, sqlQuery, userID, query, limit); err != nil {
		return nil, fmt.Errorf("discover groups: %w", err)
	}
	return views, nil
}
