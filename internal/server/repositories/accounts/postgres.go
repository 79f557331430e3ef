package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/comicvault/internal/common"
	"github.com/dmitrijs2005/comicvault/internal/dbx"
	"github.com/dmitrijs2005/comicvault/internal/server/models"
)

// PostgresRepository implements Repository over dbx.DBTX.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts the account. The primary key on username makes the
// existence check and the insert one atomic step.
func (r *PostgresRepository) Create(ctx context.Context, account *models.Account) error {
	query :=
		`INSERT INTO accounts (username, password_hash, email, verification_token_hash, status, payment_reference)
         VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6)
		 ON CONFLICT (username) DO NOTHING
		 RETURNING created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		account.Username, account.PasswordHash, account.Email,
		account.VerificationTokenHash, string(account.Status), account.PaymentReference,
	).Scan(&account.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return common.ErrAlreadyExists
		}
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

const selectAccount = `SELECT username, password_hash, email, COALESCE(verification_token_hash, ''), status, payment_reference, created_at
		 FROM accounts
		 `

func scanAccount(row *sql.Row) (*models.Account, error) {
	a := &models.Account{}
	var status string
	err := row.Scan(&a.Username, &a.PasswordHash, &a.Email, &a.VerificationTokenHash, &status, &a.PaymentReference, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	a.Status = models.AccountStatus(status)
	return a, nil
}

func (r *PostgresRepository) GetByUsername(ctx context.Context, username string) (*models.Account, error) {
	query := selectAccount + `WHERE username = $1`
	return scanAccount(r.db.QueryRowContext(ctx, query, username))
}

// FindByEmail returns the earliest registered account with the given email.
func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	query := selectAccount + `WHERE email = $1 ORDER BY created_at, username LIMIT 1`
	return scanAccount(r.db.QueryRowContext(ctx, query, email))
}

func (r *PostgresRepository) ConfirmByTokenHash(ctx context.Context, tokenHash string) (string, error) {
	if tokenHash == "" {
		return "", common.ErrTokenInvalid
	}

	query :=
		`UPDATE accounts SET status = 'verified', verification_token_hash = NULL
		 WHERE verification_token_hash = $1 AND status = 'pending'
		 RETURNING username
		 `

	var username string
	if err := r.db.QueryRowContext(ctx, query, tokenHash).Scan(&username); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", common.ErrTokenInvalid
		}
		return "", fmt.Errorf("db error: %w", err)
	}
	return username, nil
}
