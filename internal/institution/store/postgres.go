package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"finflow/internal/institution/models"
	id "finflow/pkg/domain"
	"finflow/pkg/platform/sentinel"
)

// Postgres persists institutions. The institutions table carries a unique
// index on owner_user_id; violations surface as ErrConflict so the service
// can translate them.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const institutionColumns = `id, owner_user_id, name, type, contact_email, created_at, updated_at`

func (s *Postgres) Create(ctx context.Context, inst *models.Institution) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO institutions (id, owner_user_id, name, type, contact_email, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		inst.ID.String(), inst.OwnerUserID.String(), inst.Name, inst.Type,
		inst.ContactEmail, inst.CreatedAt, inst.UpdatedAt)
	if isUniqueViolation(err) {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert institution: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, instID id.InstitutionID) (*models.Institution, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+institutionColumns+` FROM institutions WHERE id = $1`, instID.String())
	return scanInstitution(row)
}

func (s *Postgres) FindByOwner(ctx context.Context, owner id.UserID) (*models.Institution, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+institutionColumns+` FROM institutions WHERE owner_user_id = $1`, owner.String())
	return scanInstitution(row)
}

func (s *Postgres) FindAll(ctx context.Context) ([]*models.Institution, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+institutionColumns+` FROM institutions ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list institutions: %w", err)
	}
	defer rows.Close()

	var out []*models.Institution
	for rows.Next() {
		inst, err := scanInstitution(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inst)
	}
	return out, rows.Err()
}

func (s *Postgres) Update(ctx context.Context, inst *models.Institution) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE institutions
		SET name = $2, type = $3, contact_email = $4, updated_at = $5
		WHERE id = $1`,
		inst.ID.String(), inst.Name, inst.Type, inst.ContactEmail, inst.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update institution: %w", err)
	}
	return requireRow(res)
}

func (s *Postgres) Delete(ctx context.Context, instID id.InstitutionID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM institutions WHERE id = $1`, instID.String())
	if err != nil {
		return fmt.Errorf("delete institution: %w", err)
	}
	return requireRow(res)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInstitution(row rowScanner) (*models.Institution, error) {
	var (
		inst     models.Institution
		rawID    string
		rawOwner string
	)
	err := row.Scan(&rawID, &rawOwner, &inst.Name, &inst.Type, &inst.ContactEmail,
		&inst.CreatedAt, &inst.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan institution: %w", err)
	}
	if inst.ID, err = id.ParseInstitutionID(rawID); err != nil {
		return nil, fmt.Errorf("institution id %q: %w", rawID, err)
	}
	if inst.OwnerUserID, err = id.ParseUserID(rawOwner); err != nil {
		return nil, fmt.Errorf("owner id %q: %w", rawOwner, err)
	}
	return &inst, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
