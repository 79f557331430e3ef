package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/comicvault/internal/common"
	"github.com/dmitrijs2005/comicvault/internal/cryptox"
	"github.com/dmitrijs2005/comicvault/internal/logging"
	"github.com/dmitrijs2005/comicvault/internal/server/auth"
	"github.com/dmitrijs2005/comicvault/internal/server/config"
	"github.com/dmitrijs2005/comicvault/internal/server/metrics"
	"github.com/dmitrijs2005/comicvault/internal/server/models"
	"github.com/dmitrijs2005/comicvault/internal/server/notify"
	"github.com/dmitrijs2005/comicvault/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/comicvault/internal/server/repositories/references"
	"github.com/dmitrijs2005/comicvault/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/comicvault/internal/server/repositories/sessions"
	"github.com/google/uuid"
)

// RegistrationResult is returned by Register. The verification token is
// never part of it; it only travels by mail.
type RegistrationResult struct {
	Username            string
	VerificationPending bool
}

// LoginResult carries the signed session token.
type LoginResult struct {
	Token   string
	Session models.Session
}

type AccountService struct {
	accounts   accounts.Repository
	sessions   sessions.Repository
	references references.Repository
	gateway    Gateway
	notifier   notify.Notifier
	logger     logging.Logger
	metrics    *metrics.Metrics

	jwtSecret     []byte
	sessionTTL    time.Duration
	loginBy       string
	publicBaseURL string

	hashParams cryptox.Params
	dummyHash  string
	now        func() time.Time
}

func NewAccountService(m repomanager.RepositoryManager, gw Gateway, n notify.Notifier, cfg *config.Config,
	logger logging.Logger, mt *metrics.Metrics) *AccountService {
	s := &AccountService{
		accounts:      m.Accounts(),
		sessions:      m.Sessions(),
		references:    m.References(),
		gateway:       gw,
		notifier:      n,
		logger:        logger.With("module", "accounts"),
		metrics:       mt,
		jwtSecret:     []byte(cfg.SecretKey),
		sessionTTL:    cfg.SessionTTL,
		loginBy:       cfg.LoginIdentifier,
		publicBaseURL: cfg.PublicBaseURL,
		now:           time.Now,
	}
	s.SetHashParams(cryptox.DefaultParams)
	return s
}

// SetHashParams replaces the argon2id cost parameters.
func (s *AccountService) SetHashParams(p cryptox.Params) {
	s.hashParams = p
	// verified against for unknown users so the miss costs one hash too
	s.dummyHash = cryptox.HashPassword(common.GenerateRandByteArray(16), p)
}

// Register creates a pending account once the registration fee reference
// is confirmed by the gateway, and mails the verification link.
func (s *AccountService) Register(ctx context.Context, username, password, email, reference string) (res *RegistrationResult, err error) {
	defer func() { s.metrics.Operation("register", outcome(err)) }()

	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	reference = strings.TrimSpace(reference)
	if username == "" || password == "" || email == "" || reference == "" {
		return nil, common.ErrMissingFields
	}

	_, err = s.accounts.GetByUsername(ctx, username)
	switch {
	case err == nil:
		return nil, common.ErrAlreadyExists
	case !errors.Is(err, common.ErrNotFound):
		return nil, fmt.Errorf("error checking username: %w", err)
	}

	if err = s.verifyPayment(ctx, reference); err != nil {
		return nil, err
	}

	claim := &models.ReferenceClaim{Reference: reference, Purpose: models.PurposeRegistration, Subject: username}
	if err = s.references.Claim(ctx, claim); err != nil {
		return nil, err
	}

	token, err := common.MakeRandHexString(common.VerificationTokenBytes)
	if err != nil {
		s.release(ctx, reference)
		return nil, fmt.Errorf("error generating token: %w", err)
	}

	account := &models.Account{
		Username:              username,
		PasswordHash:          cryptox.HashPassword([]byte(password), s.hashParams),
		Email:                 email,
		VerificationTokenHash: cryptox.HashToken(token),
		Status:                models.StatusPendingVerification,
		PaymentReference:      reference,
	}
	if err = s.accounts.Create(ctx, account); err != nil {
		s.release(ctx, reference)
		if errors.Is(err, common.ErrAlreadyExists) {
			return nil, err
		}
		return nil, fmt.Errorf("error creating account: %w", err)
	}

	link := s.publicBaseURL + "/verify/" + token
	if nerr := s.notifier.Send(ctx, notify.VerificationMessage(email, username, link)); nerr != nil {
		s.logger.Error(ctx, "verification mail not queued", "username", username, "error", nerr)
	}

	s.logger.Info(ctx, "account registered", "username", username)
	return &RegistrationResult{Username: username, VerificationPending: true}, nil
}

// ConfirmVerification redeems a mailed token. A token works exactly once.
func (s *AccountService) ConfirmVerification(ctx context.Context, token string) (username string, err error) {
	defer func() { s.metrics.Operation("verify", outcome(err)) }()

	if token == "" {
		return "", common.ErrTokenInvalid
	}
	username, err = s.accounts.ConfirmByTokenHash(ctx, cryptox.HashToken(token))
	if err != nil {
		return "", err
	}
	s.logger.Info(ctx, "account verified", "username", username)
	return username, nil
}

// Login checks the credentials of a verified account and opens a session.
// Unknown identifiers and wrong passwords are indistinguishable.
func (s *AccountService) Login(ctx context.Context, identifier, password string) (res *LoginResult, err error) {
	defer func() { s.metrics.Operation("login", outcome(err)) }()

	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, common.ErrInvalidCredentials
	}

	var account *models.Account
	if s.loginBy == config.LoginByEmail {
		account, err = s.accounts.FindByEmail(ctx, identifier)
	} else {
		account, err = s.accounts.GetByUsername(ctx, identifier)
	}
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			_, _ = cryptox.CheckPassword([]byte(password), s.dummyHash)
			return nil, common.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("error loading account: %w", err)
	}

	ok, err := cryptox.CheckPassword([]byte(password), account.PasswordHash)
	if err != nil {
		s.logger.Error(ctx, "stored password hash unreadable", "username", account.Username, "error", err)
		return nil, common.ErrInvalidCredentials
	}
	if !ok {
		return nil, common.ErrInvalidCredentials
	}
	if !account.IsVerified() {
		return nil, common.ErrNotVerified
	}

	session := models.Session{
		ID:        uuid.NewString(),
		Username:  account.Username,
		ExpiresAt: s.now().Add(s.sessionTTL).UTC(),
	}
	if err = s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("error creating session: %w", err)
	}
	token, err := auth.GenerateToken(session, s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("error signing session: %w", err)
	}

	return &LoginResult{Token: token, Session: session}, nil
}

// Logout ends the session. It never fails; store errors are logged.
func (s *AccountService) Logout(ctx context.Context, session models.Session) {
	if !session.IsBound() {
		return
	}
	if err := s.sessions.Delete(ctx, session.ID); err != nil {
		s.logger.Error(ctx, "session delete failed", "session", session.ID, "error", err)
	}
}

// Authenticate resolves a bearer token to a live session, or Anonymous.
func (s *AccountService) Authenticate(ctx context.Context, token string) models.Session {
	if token == "" {
		return models.Anonymous
	}
	claimed, err := auth.ParseToken(token, s.jwtSecret)
	if err != nil {
		return models.Anonymous
	}
	stored, err := s.sessions.Find(ctx, claimed.ID)
	if err != nil {
		if !errors.Is(err, common.ErrNotFound) {
			s.logger.Warn(ctx, "session lookup failed", "error", err)
		}
		return models.Anonymous
	}
	if stored.Username != claimed.Username {
		return models.Anonymous
	}
	return stored
}

// PurgeSessions drops expired sessions.
func (s *AccountService) PurgeSessions(ctx context.Context) (int64, error) {
	n, err := s.sessions.PurgeExpired(ctx, s.now())
	if err != nil {
		return 0, err
	}
	s.metrics.SessionsPurged(n)
	return n, nil
}

func (s *AccountService) verifyPayment(ctx context.Context, reference string) error {
	return verifyPayment(ctx, s.gateway, s.metrics, reference)
}

func (s *AccountService) release(ctx context.Context, reference string) {
	if err := s.references.Release(ctx, reference); err != nil {
		s.logger.Error(ctx, "reference release failed", "reference", reference, "error", err)
	}
}

func verifyPayment(ctx context.Context, gw Gateway, mt *metrics.Metrics, reference string) error {
	res, err := gw.Verify(ctx, reference)
	if err != nil {
		mt.GatewayCall("verify", outcome(err))
		return err
	}
	mt.GatewayCall("verify", string(res.Status))
	if !res.Succeeded() {
		return common.ErrPaymentNotConfirmed
	}
	return nil
}
