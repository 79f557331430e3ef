// Package accounts stores registered users and their verification state.
package accounts

import (
	"context"

	"github.com/dmitrijs2005/comicvault/internal/server/models"
)

// Repository is the account store. Create fails with common.ErrAlreadyExists
// when the username is taken; lookups return common.ErrNotFound.
type Repository interface {
	Create(ctx context.Context, account *models.Account) error
	GetByUsername(ctx context.Context, username string) (*models.Account, error)
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
	// ConfirmByTokenHash flips the pending account holding tokenHash to
	// verified and clears the token, returning its username. It returns
	// common.ErrTokenInvalid when no pending account holds the hash.
	ConfirmByTokenHash(ctx context.Context, tokenHash string) (string, error)
}
