package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"finflow/internal/application/models"
	id "finflow/pkg/domain"
	"finflow/pkg/platform/sentinel"
)

// Postgres persists applications. Payload and document references are
// stored as jsonb alongside the relational columns the queries filter on.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const applicationColumns = `id, applicant_user_id, product_id, status, data, documents,
	rejection_reason, approval_amount, decided_at, created_at, updated_at`

func (s *Postgres) Create(ctx context.Context, app *models.Application) error {
	data, documents, err := encodeJSONColumns(app)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO applications (id, applicant_user_id, product_id, status, data, documents,
			rejection_reason, approval_amount, decided_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		app.ID.String(), app.ApplicantUserID.String(), app.ProductID.String(),
		app.Status.String(), data, documents, app.RejectionReason,
		app.ApprovalAmount, app.DecidedAt, app.CreatedAt, app.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert application: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, appID id.ApplicationID) (*models.Application, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+applicationColumns+` FROM applications WHERE id = $1`, appID.String())
	return scanApplication(row)
}

func (s *Postgres) FindByUser(ctx context.Context, userID id.UserID) ([]*models.Application, error) {
	return s.queryApplications(ctx,
		`SELECT `+applicationColumns+` FROM applications WHERE applicant_user_id = $1 ORDER BY created_at`,
		userID.String())
}

func (s *Postgres) FindByProduct(ctx context.Context, productID id.ProductID) ([]*models.Application, error) {
	return s.queryApplications(ctx,
		`SELECT `+applicationColumns+` FROM applications WHERE product_id = $1 ORDER BY created_at`,
		productID.String())
}

func (s *Postgres) FindPending(ctx context.Context, userID id.UserID, productID id.ProductID) (*models.Application, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+applicationColumns+` FROM applications
		WHERE applicant_user_id = $1 AND product_id = $2 AND status = $3
		LIMIT 1`,
		userID.String(), productID.String(), id.ApplicationPending.String())
	return scanApplication(row)
}

// Execute applies fn to the application under a row lock. The SELECT ...
// FOR UPDATE holds off concurrent decisions until the transaction commits,
// so fn sees the committed pre-image and its write is atomic with the check.
func (s *Postgres) Execute(ctx context.Context, appID id.ApplicationID, fn func(app *models.Application) error) (*models.Application, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx,
		`SELECT `+applicationColumns+` FROM applications WHERE id = $1 FOR UPDATE`,
		appID.String())
	app, err := scanApplication(row)
	if err != nil {
		return nil, err
	}

	if err := fn(app); err != nil {
		return nil, err
	}

	data, documents, err := encodeJSONColumns(app)
	if err != nil {
		return nil, err
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE applications
		SET status = $2, data = $3, documents = $4, rejection_reason = $5,
			approval_amount = $6, decided_at = $7, updated_at = $8
		WHERE id = $1`,
		app.ID.String(), app.Status.String(), data, documents,
		app.RejectionReason, app.ApprovalAmount, app.DecidedAt, app.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("update application: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return app, nil
}

func (s *Postgres) queryApplications(ctx context.Context, query string, args ...any) ([]*models.Application, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	defer rows.Close()

	var out []*models.Application
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, app)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanApplication(row rowScanner) (*models.Application, error) {
	var (
		app          models.Application
		rawID        string
		rawApplicant string
		rawProduct   string
		rawStatus    string
		data         []byte
		documents    []byte
	)
	err := row.Scan(&rawID, &rawApplicant, &rawProduct, &rawStatus, &data, &documents,
		&app.RejectionReason, &app.ApprovalAmount, &app.DecidedAt,
		&app.CreatedAt, &app.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan application: %w", err)
	}
	if app.ID, err = id.ParseApplicationID(rawID); err != nil {
		return nil, fmt.Errorf("application id %q: %w", rawID, err)
	}
	if app.ApplicantUserID, err = id.ParseUserID(rawApplicant); err != nil {
		return nil, fmt.Errorf("applicant id %q: %w", rawApplicant, err)
	}
	if app.ProductID, err = id.ParseProductID(rawProduct); err != nil {
		return nil, fmt.Errorf("product id %q: %w", rawProduct, err)
	}
	if app.Status, err = id.ParseApplicationStatus(rawStatus); err != nil {
		return nil, fmt.Errorf("application status %q: %w", rawStatus, err)
	}
	if err := json.Unmarshal(data, &app.Data); err != nil {
		return nil, fmt.Errorf("decode application data: %w", err)
	}
	if len(documents) > 0 {
		if err := json.Unmarshal(documents, &app.Documents); err != nil {
			return nil, fmt.Errorf("decode application documents: %w", err)
		}
	}
	return &app, nil
}

func encodeJSONColumns(app *models.Application) (data, documents []byte, err error) {
	payload := app.Data
	if payload == nil {
		payload = models.Data{}
	}
	if data, err = json.Marshal(payload); err != nil {
		return nil, nil, fmt.Errorf("encode application data: %w", err)
	}
	if documents, err = json.Marshal(app.Documents); err != nil {
		return nil, nil, fmt.Errorf("encode application documents: %w", err)
	}
	return data, documents, nil
}
