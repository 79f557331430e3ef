// Package catalog stores the listed items. Ids are assigned by the store
// as max+1 (1 for an empty catalog) and are never reused.
package catalog

import (
	"context"
	"iter"

	"github.com/dmitrijs2005/comicvault/internal/server/models"
)

type Repository interface {
	// Append assigns item.ID and stores the item atomically.
	Append(ctx context.Context, item *models.CatalogItem) error
	Get(ctx context.Context, id int64) (*models.CatalogItem, error)
	// All yields items ordered by id. Each range over the sequence reads
	// the store anew.
	All(ctx context.Context) iter.Seq2[*models.CatalogItem, error]
}
