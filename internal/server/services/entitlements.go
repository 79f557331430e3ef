package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/comicvault/internal/common"
	"github.com/dmitrijs2005/comicvault/internal/filex"
	"github.com/dmitrijs2005/comicvault/internal/logging"
	"github.com/dmitrijs2005/comicvault/internal/server/blobs"
	"github.com/dmitrijs2005/comicvault/internal/server/config"
	"github.com/dmitrijs2005/comicvault/internal/server/metrics"
	"github.com/dmitrijs2005/comicvault/internal/server/models"
	"github.com/dmitrijs2005/comicvault/internal/server/payments"
	"github.com/dmitrijs2005/comicvault/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/comicvault/internal/server/repositories/catalog"
	"github.com/dmitrijs2005/comicvault/internal/server/repositories/references"
	"github.com/dmitrijs2005/comicvault/internal/server/repositories/repomanager"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Upload is one file of a submission.
type Upload struct {
	Name string
	Body io.Reader
}

type SubmitRequest struct {
	Title     string
	Price     int64
	Reference string
	Cover     Upload
	File      Upload
}

type EntitlementService struct {
	catalog    catalog.Repository
	accounts   accounts.Repository
	references references.Repository
	blobs      blobs.Store
	gateway    Gateway
	logger     logging.Logger
	metrics    *metrics.Metrics

	publicBaseURL string
	minorUnits    decimal.Decimal
	grantTTL      time.Duration
}

func NewEntitlementService(m repomanager.RepositoryManager, store blobs.Store, gw Gateway, cfg *config.Config,
	logger logging.Logger, mt *metrics.Metrics) *EntitlementService {
	return &EntitlementService{
		catalog:       m.Catalog(),
		accounts:      m.Accounts(),
		references:    m.References(),
		blobs:         store,
		gateway:       gw,
		logger:        logger.With("module", "entitlements"),
		metrics:       mt,
		publicBaseURL: cfg.PublicBaseURL,
		minorUnits:    decimal.NewFromInt(cfg.MinorUnitsPerMajor),
		grantTTL:      cfg.GrantURLTTL,
	}
}

// ListCatalog yields items in id order.
func (s *EntitlementService) ListCatalog(ctx context.Context) iter.Seq2[*models.CatalogItem, error] {
	return s.catalog.All(ctx)
}

// GetItem returns one item or common.ErrItemNotFound.
func (s *EntitlementService) GetItem(ctx context.Context, itemID int64) (*models.CatalogItem, error) {
	return s.catalog.Get(ctx, itemID)
}

// MinorAmount converts a major-unit price to the gateway's minor units.
func (s *EntitlementService) MinorAmount(price int64) int64 {
	return decimal.NewFromInt(price).Mul(s.minorUnits).IntPart()
}

// InitiatePurchase opens a gateway transaction for the item and returns
// where the payer should be sent.
func (s *EntitlementService) InitiatePurchase(ctx context.Context, session models.Session, itemID int64) (res *models.PaymentInit, err error) {
	defer func() { s.metrics.Operation("initiate_purchase", outcome(err)) }()

	if !session.IsBound() {
		return nil, common.ErrUnauthenticated
	}
	item, err := s.catalog.Get(ctx, itemID)
	if err != nil {
		return nil, err
	}
	account, err := s.accounts.GetByUsername(ctx, session.Username)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrUnauthenticated
		}
		return nil, fmt.Errorf("error loading account: %w", err)
	}

	id := strconv.FormatInt(item.ID, 10)
	res, err = s.gateway.Initialize(ctx, payments.InitRequest{
		Email:       account.Email,
		Amount:      s.MinorAmount(item.Price),
		Reference:   uuid.NewString(),
		CallbackURL: s.publicBaseURL + "/api/purchases/callback?item_id=" + id,
		Metadata:    map[string]string{"item_id": id, "username": session.Username},
	})
	s.metrics.GatewayCall("initialize", outcome(err))
	if err != nil {
		return nil, err
	}
	return res, nil
}

// ConfirmPurchase turns a verified payment reference into a grant for the
// item's file. Repeating the call with the same reference and item grants
// the same file again without recording anything new; a reference redeemed
// for anything else is rejected.
func (s *EntitlementService) ConfirmPurchase(ctx context.Context, itemID int64, reference string) (grant *models.GrantedFile, err error) {
	defer func() { s.metrics.Operation("confirm_purchase", outcome(err)) }()

	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, common.ErrMissingFields
	}
	item, err := s.catalog.Get(ctx, itemID)
	if err != nil {
		return nil, err
	}

	res, err := s.gateway.Verify(ctx, reference)
	if err != nil {
		s.metrics.GatewayCall("verify", outcome(err))
		return nil, err
	}
	s.metrics.GatewayCall("verify", string(res.Status))
	if !res.Succeeded() || !s.paidFor(res, item) {
		return nil, common.ErrPaymentNotConfirmed
	}

	subject := strconv.FormatInt(item.ID, 10)
	grant = &models.GrantedFile{
		ItemID:    item.ID,
		Title:     item.Title,
		FileRef:   item.FileRef,
		FileName:  path.Base(item.FileRef),
		Reference: reference,
	}

	err = s.references.Claim(ctx, &models.ReferenceClaim{Reference: reference, Purpose: models.PurposePurchase, Subject: subject})
	if errors.Is(err, common.ErrReferenceConsumed) {
		prior, gerr := s.references.Get(ctx, reference)
		if gerr == nil && prior.Same(models.PurposePurchase, subject) {
			grant.Regrant = true
			return grant, nil
		}
		return nil, common.ErrReferenceConsumed
	}
	if err != nil {
		return nil, fmt.Errorf("error claiming reference: %w", err)
	}

	s.logger.Info(ctx, "purchase confirmed", "item", item.ID, "reference", reference)
	return grant, nil
}

// paidFor rejects payments the gateway tied to another item or that fall
// short of the price. Missing fields are not held against the payer.
func (s *EntitlementService) paidFor(res *models.PaymentResult, item *models.CatalogItem) bool {
	if id, ok := res.Metadata["item_id"]; ok && id != strconv.FormatInt(item.ID, 10) {
		return false
	}
	if res.Amount > 0 && res.Amount < s.MinorAmount(item.Price) {
		return false
	}
	return true
}

// SubmitItem lists a new item paid for by the submitter. All inputs are
// checked before the gateway is contacted.
func (s *EntitlementService) SubmitItem(ctx context.Context, session models.Session, req SubmitRequest) (item *models.CatalogItem, err error) {
	defer func() { s.metrics.Operation("submit", outcome(err)) }()

	if !session.IsBound() {
		return nil, common.ErrUnauthenticated
	}
	req.Title = strings.TrimSpace(req.Title)
	req.Reference = strings.TrimSpace(req.Reference)
	if req.Title == "" || req.Reference == "" || req.Price < 0 ||
		!req.Cover.present() || !req.File.present() {
		return nil, common.ErrMissingFields
	}

	if err = verifyPayment(ctx, s.gateway, s.metrics, req.Reference); err != nil {
		return nil, err
	}
	claim := &models.ReferenceClaim{Reference: req.Reference, Purpose: models.PurposeSubmission, Subject: session.Username}
	if err = s.references.Claim(ctx, claim); err != nil {
		return nil, err
	}

	var stored []string
	undo := func() {
		ctx := context.WithoutCancel(ctx)
		for _, ref := range stored {
			if derr := s.blobs.Delete(ctx, ref); derr != nil {
				s.logger.Error(ctx, "asset cleanup failed", "ref", ref, "error", derr)
			}
		}
		if rerr := s.references.Release(ctx, req.Reference); rerr != nil {
			s.logger.Error(ctx, "reference release failed", "reference", req.Reference, "error", rerr)
		}
	}

	coverRef, err := s.blobs.Put(ctx, req.Cover.Name, req.Cover.Body)
	if err != nil {
		undo()
		return nil, fmt.Errorf("error storing cover: %w", err)
	}
	stored = append(stored, coverRef)

	fileRef, err := s.blobs.Put(ctx, pdfName(req.File.Name), req.File.Body)
	if err != nil {
		undo()
		return nil, fmt.Errorf("error storing file: %w", err)
	}
	stored = append(stored, fileRef)

	item = &models.CatalogItem{
		Title:            req.Title,
		Price:            req.Price,
		CoverRef:         coverRef,
		FileRef:          fileRef,
		SubmittedBy:      session.Username,
		PaymentReference: req.Reference,
	}
	if err = s.catalog.Append(ctx, item); err != nil {
		undo()
		return nil, fmt.Errorf("error appending item: %w", err)
	}

	s.logger.Info(ctx, "item submitted", "item", item.ID, "username", session.Username)
	return item, nil
}

// OpenAsset streams the file named by a grant.
func (s *EntitlementService) OpenAsset(ctx context.Context, grant *models.GrantedFile) (io.ReadCloser, error) {
	if grant == nil || grant.FileRef == "" {
		return nil, common.ErrNotFound
	}
	return s.blobs.Open(ctx, grant.FileRef)
}

// GrantURL returns a short-lived direct URL for the granted file when the
// asset store can sign one.
func (s *EntitlementService) GrantURL(ctx context.Context, grant *models.GrantedFile) (string, bool, error) {
	p, ok := s.blobs.(blobs.Presigner)
	if !ok || grant == nil {
		return "", false, nil
	}
	u, err := p.PresignGet(ctx, grant.FileRef, s.grantTTL)
	if err != nil {
		return "", false, err
	}
	return u, true, nil
}

// OpenCover streams an item's cover image. Covers are public.
func (s *EntitlementService) OpenCover(ctx context.Context, itemID int64) (io.ReadCloser, string, error) {
	item, err := s.catalog.Get(ctx, itemID)
	if err != nil {
		return nil, "", err
	}
	rc, err := s.blobs.Open(ctx, item.CoverRef)
	if err != nil {
		return nil, "", err
	}
	return rc, path.Base(item.CoverRef), nil
}

func (u Upload) present() bool {
	return u.Body != nil && filex.SanitizeName(u.Name) != ""
}

func pdfName(name string) string {
	if strings.HasSuffix(strings.ToLower(name), ".pdf") {
		return name
	}
	return name + ".pdf"
}
