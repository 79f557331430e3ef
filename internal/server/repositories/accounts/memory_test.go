package accounts

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/dmitrijs2005/comicvault/internal/common"
	"github.com/dmitrijs2005/comicvault/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepository()

	require.NoError(t, r.Create(ctx, pending()))
	require.ErrorIs(t, r.Create(ctx, pending()), common.ErrAlreadyExists)

	got, err := r.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, got.CreatedAt.IsZero())

	// returned copies must not alias stored state
	got.Status = models.StatusVerified
	again, _ := r.GetByUsername(ctx, "alice")
	assert.Equal(t, models.StatusPendingVerification, again.Status)

	_, err = r.GetByUsername(ctx, "bob")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestMemoryRepository_FindByEmail_FirstRegistered(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepository()

	require.NoError(t, r.Create(ctx, &models.Account{Username: "zed", Email: "shared@x.io"}))
	require.NoError(t, r.Create(ctx, &models.Account{Username: "amy", Email: "shared@x.io"}))

	got, err := r.FindByEmail(ctx, "shared@x.io")
	require.NoError(t, err)
	assert.Equal(t, "zed", got.Username)

	_, err = r.FindByEmail(ctx, "none@x.io")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestMemoryRepository_ConfirmSingleUse(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepository()
	require.NoError(t, r.Create(ctx, pending()))

	var ok atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := r.ConfirmByTokenHash(ctx, "th"); err == nil {
				ok.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, ok.Load())

	a, _ := r.GetByUsername(ctx, "alice")
	assert.True(t, a.IsVerified())
	assert.Empty(t, a.VerificationTokenHash)

	_, err := r.ConfirmByTokenHash(ctx, "")
	assert.ErrorIs(t, err, common.ErrTokenInvalid)
}
