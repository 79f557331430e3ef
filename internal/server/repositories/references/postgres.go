package references

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/comicvault/internal/common"
	"github.com/dmitrijs2005/comicvault/internal/dbx"
	"github.com/dmitrijs2005/comicvault/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Claim(ctx context.Context, claim *models.ReferenceClaim) error {
	query := `
		INSERT INTO payment_references (reference, purpose, subject)
		VALUES ($1, $2, $3)
		ON CONFLICT (reference) DO NOTHING
	`
	res, err := r.db.ExecContext(ctx, query, claim.Reference, string(claim.Purpose), claim.Subject)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	switch n {
	case 1:
		return nil
	case 0:
		return common.ErrReferenceConsumed
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}

func (r *PostgresRepository) Get(ctx context.Context, reference string) (*models.ReferenceClaim, error) {
	query := `
		SELECT reference, purpose, subject, claimed_at
		FROM payment_references
		WHERE reference = $1
	`
	c := &models.ReferenceClaim{}
	var purpose string
	if err := r.db.QueryRowContext(ctx, query, reference).Scan(&c.Reference, &purpose, &c.Subject, &c.ClaimedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	c.Purpose = models.ClaimPurpose(purpose)
	return c, nil
}

func (r *PostgresRepository) Release(ctx context.Context, reference string) error {
	query := `
		DELETE FROM payment_references
		WHERE reference = $1
	`
	if _, err := r.db.ExecContext(ctx, query, reference); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
