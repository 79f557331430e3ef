package services

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/dmitrijs2005/comicvault/internal/cryptox"
	"github.com/dmitrijs2005/comicvault/internal/logging"
	"github.com/dmitrijs2005/comicvault/internal/server/blobs"
	"github.com/dmitrijs2005/comicvault/internal/server/config"
	"github.com/dmitrijs2005/comicvault/internal/server/models"
	"github.com/dmitrijs2005/comicvault/internal/server/notify"
	"github.com/dmitrijs2005/comicvault/internal/server/payments"
	"github.com/dmitrijs2005/comicvault/internal/server/repositories/repomanager"
	"github.com/stretchr/testify/require"
)

// --- fakes ---

type fakeGateway struct {
	mu        sync.Mutex
	payments  map[string]*models.PaymentResult
	verifyErr error
	initErr   error
	inits     []payments.InitRequest

	verifyCalls atomic.Int32
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{payments: map[string]*models.PaymentResult{}}
}

// pay marks reference as successfully paid.
func (g *fakeGateway) pay(reference string, amount int64, metadata map[string]string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.payments[reference] = &models.PaymentResult{Reference: reference, Status: models.PaymentSuccess, Amount: amount, Metadata: metadata}
}

func (g *fakeGateway) Verify(ctx context.Context, reference string) (*models.PaymentResult, error) {
	g.verifyCalls.Add(1)
	if g.verifyErr != nil {
		return nil, g.verifyErr
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if p, ok := g.payments[reference]; ok {
		cp := *p
		return &cp, nil
	}
	return &models.PaymentResult{Reference: reference, Status: models.PaymentFailed}, nil
}

func (g *fakeGateway) Initialize(ctx context.Context, in payments.InitRequest) (*models.PaymentInit, error) {
	if g.initErr != nil {
		return nil, g.initErr
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.inits = append(g.inits, in)
	return &models.PaymentInit{AuthorizationURL: "https://checkout.test/" + in.Reference, Reference: in.Reference}, nil
}

type mailbox struct {
	mu   sync.Mutex
	msgs []notify.Message
}

func (m *mailbox) Send(ctx context.Context, msg notify.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.msgs = append(m.msgs, msg)
	return nil
}

// tokenFor returns the verification token mailed to username.
func (m *mailbox) tokenFor(t *testing.T, username string) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range m.msgs {
		if !strings.Contains(msg.Body, "Hello "+username+",") {
			continue
		}
		_, rest, ok := strings.Cut(msg.Body, "/verify/")
		require.True(t, ok, "no link in %q", msg.Body)
		tok, _, _ := strings.Cut(rest, "\n")
		return tok
	}
	t.Fatalf("no mail for %s", username)
	return ""
}

// --- environment ---

type testEnv struct {
	cfg      *config.Config
	repos    *repomanager.MemoryRepositoryManager
	gateway  *fakeGateway
	mail     *mailbox
	store    *blobs.LocalStore
	accounts *AccountService
	shop     *EntitlementService
}

var cheapParams = cryptox.Params{Time: 1, Memory: 8, Threads: 1, KeyLen: 16, SaltLen: 8}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.SecretKey = "test-secret"
	cfg.PaystackSecretKey = "sk_test"
	cfg.PublicBaseURL = "http://shop.test"

	store, err := blobs.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	env := &testEnv{
		cfg:     cfg,
		repos:   repomanager.NewMemoryRepositoryManager(),
		gateway: newFakeGateway(),
		mail:    &mailbox{},
		store:   store,
	}
	env.rebuild()
	return env
}

// rebuild recreates the services after cfg changes; stores are kept.
func (e *testEnv) rebuild() {
	log := logging.NewNopLogger()
	e.accounts = NewAccountService(e.repos, e.gateway, e.mail, e.cfg, log, nil)
	e.accounts.SetHashParams(cheapParams)
	e.shop = NewEntitlementService(e.repos, e.store, e.gateway, e.cfg, log, nil)
}

// verifiedUser registers, verifies and logs in a user, returning the session.
func (e *testEnv) verifiedUser(t *testing.T, username string) models.Session {
	t.Helper()
	ctx := context.Background()

	ref := "reg-" + username
	e.gateway.pay(ref, 100000, nil)
	_, err := e.accounts.Register(ctx, username, "pw-"+username, username+"@mail.test", ref)
	require.NoError(t, err)
	_, err = e.accounts.ConfirmVerification(ctx, e.mail.tokenFor(t, username))
	require.NoError(t, err)
	res, err := e.accounts.Login(ctx, username, "pw-"+username)
	require.NoError(t, err)
	return res.Session
}

