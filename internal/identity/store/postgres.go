package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"finflow/internal/identity/models"
	id "finflow/pkg/domain"
	"finflow/pkg/platform/sentinel"
)

// Postgres reads and mutates the marketplace users table. The workflow only
// touches the role set; account management lives elsewhere.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) FindByID(ctx context.Context, userID id.UserID) (*models.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, email, name, roles, created_at, updated_at
		FROM users WHERE id = $1`, userID.String())
	return scanUser(row)
}

// GrantRole appends the role marker when absent. Idempotent: granting an
// already-held role returns the unchanged user.
func (s *Postgres) GrantRole(ctx context.Context, userID id.UserID, role models.Role, now time.Time) (*models.User, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE users
		SET roles = CASE WHEN $2 = ANY(roles) THEN roles ELSE array_append(roles, $2) END,
		    updated_at = CASE WHEN $2 = ANY(roles) THEN updated_at ELSE $3 END
		WHERE id = $1
		RETURNING id, email, name, roles, created_at, updated_at`,
		userID.String(), string(role), now)
	return scanUser(row)
}

// RevokeRole removes the role marker when present. Idempotent.
func (s *Postgres) RevokeRole(ctx context.Context, userID id.UserID, role models.Role, now time.Time) (*models.User, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE users
		SET roles = array_remove(roles, $2),
		    updated_at = CASE WHEN $2 = ANY(roles) THEN $3 ELSE updated_at END
		WHERE id = $1
		RETURNING id, email, name, roles, created_at, updated_at`,
		userID.String(), string(role), now)
	return scanUser(row)
}

func scanUser(row *sql.Row) (*models.User, error) {
	var (
		u     models.User
		rawID string
		roles []string
	)
	err := row.Scan(&rawID, &u.Email, &u.Name, pq.Array(&roles), &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	parsed, err := id.ParseUserID(rawID)
	if err != nil {
		return nil, fmt.Errorf("user id %q: %w", rawID, err)
	}
	u.ID = parsed
	u.Roles = make([]models.Role, 0, len(roles))
	for _, r := range roles {
		u.Roles = append(u.Roles, models.Role(r))
	}
	return &u, nil
}
