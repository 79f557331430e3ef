// Package services holds the account and entitlement logic of the shop:
// registration, verification, sessions, purchases and catalog submission.
package services

import (
	"context"

	"github.com/dmitrijs2005/comicvault/internal/common"
	"github.com/dmitrijs2005/comicvault/internal/server/models"
	"github.com/dmitrijs2005/comicvault/internal/server/payments"
)

// Gateway is the payment provider as seen by the services.
type Gateway interface {
	Verify(ctx context.Context, reference string) (*models.PaymentResult, error)
	Initialize(ctx context.Context, in payments.InitRequest) (*models.PaymentInit, error)
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return common.KindOf(err).String()
}
