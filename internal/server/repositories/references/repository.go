// Package references is the ledger of consumed payment references.
package references

import (
	"context"

	"github.com/dmitrijs2005/comicvault/internal/server/models"
)

type Repository interface {
	// Claim records the reference as consumed. It is an atomic
	// check-and-set: exactly one caller wins for a given reference, the
	// rest get common.ErrReferenceConsumed.
	Claim(ctx context.Context, claim *models.ReferenceClaim) error
	Get(ctx context.Context, reference string) (*models.ReferenceClaim, error)
	// Release undoes a claim whose downstream write failed.
	Release(ctx context.Context, reference string) error
}
