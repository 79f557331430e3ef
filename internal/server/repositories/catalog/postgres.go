package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"

	"github.com/dmitrijs2005/comicvault/internal/common"
	"github.com/dmitrijs2005/comicvault/internal/dbx"
	"github.com/dmitrijs2005/comicvault/internal/server/models"
)

// DB is satisfied by *sql.DB.
type DB interface {
	dbx.DBTX
	dbx.TxBeginner
}

// PostgresRepository implements Repository on catalog_items.
type PostgresRepository struct {
	db DB
}

func NewPostgresRepository(db DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Append takes an exclusive table lock so concurrent appends see each
// other's max(id).
func (r *PostgresRepository) Append(ctx context.Context, item *models.CatalogItem) error {
	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx, `LOCK TABLE catalog_items IN EXCLUSIVE MODE`); err != nil {
			return fmt.Errorf("db error: %w", err)
		}

		query :=
			`INSERT INTO catalog_items (id, title, price, cover_ref, file_ref, submitted_by, payment_reference)
			 SELECT COALESCE(MAX(id), 0) + 1, $1, $2, $3, $4, $5, $6 FROM catalog_items
			 RETURNING id, created_at
			 `
		err := tx.QueryRowContext(ctx, query,
			item.Title, item.Price, item.CoverRef, item.FileRef, item.SubmittedBy, item.PaymentReference,
		).Scan(&item.ID, &item.CreatedAt)
		if err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		return nil
	})
}

const selectItems = `SELECT id, title, price, cover_ref, file_ref, submitted_by, payment_reference, created_at
		 FROM catalog_items
		 `

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(s scanner) (*models.CatalogItem, error) {
	it := &models.CatalogItem{}
	err := s.Scan(&it.ID, &it.Title, &it.Price, &it.CoverRef, &it.FileRef, &it.SubmittedBy, &it.PaymentReference, &it.CreatedAt)
	return it, err
}

func (r *PostgresRepository) Get(ctx context.Context, id int64) (*models.CatalogItem, error) {
	it, err := scanItem(r.db.QueryRowContext(ctx, selectItems+`WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrItemNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return it, nil
}

func (r *PostgresRepository) All(ctx context.Context) iter.Seq2[*models.CatalogItem, error] {
	return func(yield func(*models.CatalogItem, error) bool) {
		rows, err := r.db.QueryContext(ctx, selectItems+`ORDER BY id`)
		if err != nil {
			yield(nil, fmt.Errorf("db error: %w", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			it, err := scanItem(rows)
			if err != nil {
				yield(nil, fmt.Errorf("scan error: %w", err))
				return
			}
			if !yield(it, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(nil, fmt.Errorf("rows error: %w", err))
		}
	}
}
