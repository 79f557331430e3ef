// Package sessions persists login sessions so a signed token can be
// revoked by logout or by expiry.
package sessions

import (
	"context"
	"time"

	"github.com/dmitrijs2005/comicvault/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, session models.Session) error
	// Find returns common.ErrNotFound for unknown or expired sessions.
	Find(ctx context.Context, id string) (models.Session, error)
	Delete(ctx context.Context, id string) error
	// PurgeExpired drops sessions that expired before now and reports how many.
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}
