package service

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/vibe-gaming/account-recovery/internal/config"
	"github.com/vibe-gaming/account-recovery/internal/domain"
	"github.com/vibe-gaming/account-recovery/pkg/hash"
	"github.com/vibe-gaming/account-recovery/pkg/limiter"
	"github.com/vibe-gaming/account-recovery/pkg/otp"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Fakes
// ============================================================================

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fakeUsers struct {
	users map[string]*domain.User
	err   error
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	user, ok := f.users[email]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return user, nil
}

// memoryTokens mirrors the MySQL store: every method is serialized by one mutex.
type memoryTokens struct {
	mu     sync.Mutex
	tokens map[uuid.UUID]*domain.VerificationToken

	createErr error
}

func newMemoryTokens() *memoryTokens {
	return &memoryTokens{tokens: make(map[uuid.UUID]*domain.VerificationToken)}
}

func (m *memoryTokens) Create(_ context.Context, token *domain.VerificationToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.createErr != nil {
		return m.createErr
	}

	for id, t := range m.tokens {
		if t.Email == token.Email && t.Purpose == token.Purpose {
			delete(m.tokens, id)
		}
	}

	token.ID = uuid.Must(uuid.NewV7())
	token.Attempts = 0
	stored := *token
	m.tokens[token.ID] = &stored

	return nil
}

func (m *memoryTokens) FindActive(_ context.Context, email string, purpose domain.TokenPurpose) (*domain.VerificationToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, t := range m.tokens {
		if t.Email == email && t.Purpose == purpose {
			found := *t
			return &found, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memoryTokens) IncrementAttempts(_ context.Context, id uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tokens[id]
	if !ok {
		return 0, domain.ErrNotFound
	}
	t.Attempts++
	return t.Attempts, nil
}

func (m *memoryTokens) DeleteByID(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.tokens[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.tokens, id)
	return nil
}

func (m *memoryTokens) DeleteAllFor(_ context.Context, email string, purpose domain.TokenPurpose) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, t := range m.tokens {
		if t.Email == email && t.Purpose == purpose {
			delete(m.tokens, id)
		}
	}
	return nil
}

func (m *memoryTokens) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for id, t := range m.tokens {
		if t.IsExpired(now) {
			delete(m.tokens, id)
			n++
		}
	}
	return n, nil
}

func (m *memoryTokens) find(email string, purpose domain.TokenPurpose) *domain.VerificationToken {
	t, err := m.FindActive(context.Background(), email, purpose)
	if err != nil {
		return nil
	}
	return t
}

func (m *memoryTokens) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tokens)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Send(ctx context.Context, email string, code string, purpose domain.TokenPurpose) error {
	args := m.Called(ctx, email, code, purpose)
	return args.Error(0)
}

// captureCodes records every code handed to the notifier.
func (m *MockNotifier) captureCodes(email string, err error) *[]string {
	codes := &[]string{}
	var mu sync.Mutex
	m.On("Send", mock.Anything, email, mock.AnythingOfType("string"), domain.PurposeReset).
		Run(func(args mock.Arguments) {
			mu.Lock()
			*codes = append(*codes, args.String(2))
			mu.Unlock()
		}).
		Return(err)
	return codes
}

type failingLimiter struct{}

func (failingLimiter) Check(context.Context, string, int, time.Duration) (limiter.Result, error) {
	return limiter.Result{}, errors.New("redis: connection refused")
}

// ============================================================================
// Helpers
// ============================================================================

const testEmail = "user@test.com"

var hexToken = regexp.MustCompile(`^[0-9a-f]{64}$`)

type testEnv struct {
	svc      *passwordResetService
	tokens   *memoryTokens
	users    *fakeUsers
	notifier *MockNotifier
	clock    *fakeClock
	hasher   *hash.SHA256Hasher
}

func defaultResetConfig() config.ResetConfig {
	return config.ResetConfig{
		CodeLength:   6,
		CodeTTL:      10 * time.Minute,
		VerifiedTTL:  5 * time.Minute,
		MaxAttempts:  5,
		StartLimit:   3,
		StartWindow:  15 * time.Minute,
		VerifyLimit:  5,
		VerifyWindow: 15 * time.Minute,
		SecretSize:   32,
	}
}

func newTestEnv(t *testing.T, cfg config.ResetConfig) *testEnv {
	t.Helper()

	clock := &fakeClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	tokens := newMemoryTokens()
	users := &fakeUsers{users: map[string]*domain.User{
		testEmail: {ID: uuid.Must(uuid.NewV7()), Email: testEmail},
	}}
	notifier := &MockNotifier{}
	hasher := hash.NewSHA256Hasher("pepper")

	svc := newPasswordResetService(users, tokens, hasher, otp.NewGOTPGenerator(),
		limiter.NewMemoryWindow(clock.Now), notifier, cfg, clock.Now)

	return &testEnv{svc: svc, tokens: tokens, users: users, notifier: notifier, clock: clock, hasher: hasher}
}

func wrongCode(code string) string {
	if code == "000000" {
		return "000001"
	}
	return "000000"
}

// ============================================================================
// Start
// ============================================================================

func TestStart_ExistingUser(t *testing.T) {
	env := newTestEnv(t, defaultResetConfig())
	codes := env.notifier.captureCodes(testEmail, nil)

	res, err := env.svc.Start(context.Background(), "  User@Test.com ")
	require.NoError(t, err)

	assert.Equal(t, &StartResetResult{Email: testEmail, ExpiresIn: 10 * time.Minute}, res)
	require.Len(t, *codes, 1)
	assert.Regexp(t, `^[0-9]{6}$`, (*codes)[0])

	token := env.tokens.find(testEmail, domain.PurposeReset)
	require.NotNil(t, token)
	assert.NotEqual(t, (*codes)[0], token.TokenHash)
	assert.Equal(t, env.clock.Now().Add(10*time.Minute), token.ExpiresAt)
	assert.Equal(t, 0, token.Attempts)
	env.notifier.AssertExpectations(t)
}

func TestStart_EnumerationResistance(t *testing.T) {
	env := newTestEnv(t, defaultResetConfig())
	deletedAt := env.clock.Now().Add(-time.Hour)
	env.users.users["gone@test.com"] = &domain.User{ID: uuid.Must(uuid.NewV7()), Email: "gone@test.com", DeletedAt: &deletedAt}
	env.notifier.captureCodes(testEmail, nil)

	existing, err := env.svc.Start(context.Background(), testEmail)
	require.NoError(t, err)
	missing, err := env.svc.Start(context.Background(), "nobody@test.com")
	require.NoError(t, err)
	deleted, err := env.svc.Start(context.Background(), "gone@test.com")
	require.NoError(t, err)

	assert.Equal(t, existing.ExpiresIn, missing.ExpiresIn)
	assert.Equal(t, existing.ExpiresIn, deleted.ExpiresIn)
	assert.Equal(t, "nobody@test.com", missing.Email)

	assert.Nil(t, env.tokens.find("nobody@test.com", domain.PurposeReset))
	assert.Nil(t, env.tokens.find("gone@test.com", domain.PurposeReset))
	env.notifier.AssertNumberOfCalls(t, "Send", 1)
}

func TestStart_RateLimited(t *testing.T) {
	env := newTestEnv(t, defaultResetConfig())
	env.notifier.captureCodes(testEmail, nil)

	for i := 0; i < 3; i++ {
		_, err := env.svc.Start(context.Background(), testEmail)
		require.NoError(t, err)
	}

	env.clock.Advance(time.Minute)
	before := env.tokens.find(testEmail, domain.PurposeReset)

	_, err := env.svc.Start(context.Background(), testEmail)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRateLimited)

	var rlErr *RateLimitError
	require.ErrorAs(t, err, &rlErr)
	assert.Equal(t, 14*time.Minute, rlErr.RetryAfter)

	// no side effects
	env.notifier.AssertNumberOfCalls(t, "Send", 3)
	assert.Equal(t, before, env.tokens.find(testEmail, domain.PurposeReset))

	env.clock.Advance(14 * time.Minute)
	_, err = env.svc.Start(context.Background(), testEmail)
	assert.NoError(t, err)
}

func TestStart_RateLimitAppliesToUnknownEmails(t *testing.T) {
	env := newTestEnv(t, defaultResetConfig())

	for i := 0; i < 3; i++ {
		_, err := env.svc.Start(context.Background(), "nobody@test.com")
		require.NoError(t, err)
	}

	_, err := env.svc.Start(context.Background(), "NOBODY@test.com")
	assert.ErrorIs(t, err, ErrRateLimited)
}

func TestStart_DeliveryFailureRollsBack(t *testing.T) {
	env := newTestEnv(t, defaultResetConfig())
	env.notifier.captureCodes(testEmail, errors.New("smtp: 421 service not available"))

	res, err := env.svc.Start(context.Background(), testEmail)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrDeliveryFailed)
	assert.Equal(t, 0, env.tokens.count())

	_, err = env.svc.Verify(context.Background(), testEmail, "123456")
	assert.ErrorIs(t, err, ErrNoPendingReset)
}

func TestStart_UserLookupFailure(t *testing.T) {
	env := newTestEnv(t, defaultResetConfig())
	env.users.err = errors.New("db down")

	_, err := env.svc.Start(context.Background(), testEmail)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrDeliveryFailed)
	env.notifier.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestStart_LimiterFailureIsInternal(t *testing.T) {
	env := newTestEnv(t, defaultResetConfig())
	env.svc.limiter = failingLimiter{}

	_, err := env.svc.Start(context.Background(), testEmail)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrRateLimited)
}

func TestStart_SecondRequestInvalidatesFirstCode(t *testing.T) {
	env := newTestEnv(t, defaultResetConfig())
	codes := env.notifier.captureCodes(testEmail, nil)

	_, err := env.svc.Start(context.Background(), testEmail)
	require.NoError(t, err)
	_, err = env.svc.Start(context.Background(), testEmail)
	require.NoError(t, err)
	require.Len(t, *codes, 2)

	first, second := (*codes)[0], (*codes)[1]
	if first == second {
		t.Skip("both codes collided")
	}

	_, err = env.svc.Verify(context.Background(), testEmail, first)
	assert.ErrorIs(t, err, ErrInvalidResetCode)

	res, err := env.svc.Verify(context.Background(), testEmail, second)
	require.NoError(t, err)
	assert.Regexp(t, hexToken, res.ResetToken)
}

// ============================================================================
// Verify
// ============================================================================

func startAndCapture(t *testing.T, env *testEnv) string {
	t.Helper()
	codes := env.notifier.captureCodes(testEmail, nil)
	_, err := env.svc.Start(context.Background(), testEmail)
	require.NoError(t, err)
	require.NotEmpty(t, *codes)
	return (*codes)[len(*codes)-1]
}

func TestVerify_CorrectCode(t *testing.T) {
	env := newTestEnv(t, defaultResetConfig())
	code := startAndCapture(t, env)

	env.clock.Advance(9 * time.Minute)

	res, err := env.svc.Verify(context.Background(), "USER@test.com", code)
	require.NoError(t, err)

	assert.Equal(t, testEmail, res.Email)
	assert.Equal(t, 5*time.Minute, res.ExpiresIn)
	assert.Regexp(t, hexToken, res.ResetToken)
	assert.NotEqual(t, code, res.ResetToken)

	assert.Nil(t, env.tokens.find(testEmail, domain.PurposeReset))
	verified := env.tokens.find(testEmail, domain.PurposeResetVerified)
	require.NotNil(t, verified)
	assert.Equal(t, 1, env.tokens.count())
	assert.Equal(t, env.clock.Now().Add(5*time.Minute), verified.ExpiresAt)
	assert.NotEqual(t, res.ResetToken, verified.TokenHash)

	ok, err := env.hasher.Equal(res.ResetToken, verified.TokenHash)
	require.NoError(t, err)
	assert.True(t, ok)

	// the code is single use
	_, err = env.svc.Verify(context.Background(), testEmail, code)
	assert.ErrorIs(t, err, ErrNoPendingReset)
}

func TestVerify_NoPendingRequest(t *testing.T) {
	env := newTestEnv(t, defaultResetConfig())

	_, err := env.svc.Verify(context.Background(), testEmail, "123456")
	assert.ErrorIs(t, err, ErrNoPendingReset)
}

func TestVerify_Expired(t *testing.T) {
	env := newTestEnv(t, defaultResetConfig())
	code := startAndCapture(t, env)

	env.clock.Advance(10 * time.Minute)

	_, err := env.svc.Verify(context.Background(), testEmail, code)
	assert.ErrorIs(t, err, ErrResetCodeExpired)
	assert.Equal(t, 0, env.tokens.count())

	_, err = env.svc.Verify(context.Background(), testEmail, code)
	assert.ErrorIs(t, err, ErrNoPendingReset)
}

func TestVerify_AttemptExhaustion(t *testing.T) {
	cfg := defaultResetConfig()
	cfg.VerifyLimit = 100
	env := newTestEnv(t, cfg)
	code := startAndCapture(t, env)
	bad := wrongCode(code)

	for i := 1; i <= 4; i++ {
		_, err := env.svc.Verify(context.Background(), testEmail, bad)
		require.ErrorIs(t, err, ErrInvalidResetCode, "attempt %d", i)

		token := env.tokens.find(testEmail, domain.PurposeReset)
		require.NotNil(t, token, "token must survive attempt %d", i)
		assert.Equal(t, i, token.Attempts)
	}

	_, err := env.svc.Verify(context.Background(), testEmail, bad)
	assert.ErrorIs(t, err, ErrTooManyAttempts)
	assert.Nil(t, env.tokens.find(testEmail, domain.PurposeReset))

	_, err = env.svc.Verify(context.Background(), testEmail, code)
	assert.ErrorIs(t, err, ErrNoPendingReset)
}

func TestVerify_CorrectCodeOnFinalAttemptIsRejected(t *testing.T) {
	cfg := defaultResetConfig()
	cfg.VerifyLimit = 100
	env := newTestEnv(t, cfg)
	code := startAndCapture(t, env)

	for i := 0; i < 4; i++ {
		_, err := env.svc.Verify(context.Background(), testEmail, wrongCode(code))
		require.ErrorIs(t, err, ErrInvalidResetCode)
	}

	_, err := env.svc.Verify(context.Background(), testEmail, code)
	assert.ErrorIs(t, err, ErrTooManyAttempts)
	assert.Equal(t, 0, env.tokens.count())
}

func TestVerify_RateLimited(t *testing.T) {
	env := newTestEnv(t, defaultResetConfig())
	code := startAndCapture(t, env)
	bad := wrongCode(code)

	for i := 0; i < 4; i++ {
		_, err := env.svc.Verify(context.Background(), testEmail, bad)
		require.ErrorIs(t, err, ErrInvalidResetCode)
	}
	_, err := env.svc.Verify(context.Background(), testEmail, bad)
	require.ErrorIs(t, err, ErrTooManyAttempts)

	_, err = env.svc.Verify(context.Background(), testEmail, code)
	assert.ErrorIs(t, err, ErrRateLimited)

	// the start limit is independent
	_, err = env.svc.Start(context.Background(), testEmail)
	assert.NoError(t, err)
}

func TestVerify_ConcurrentGuessesRespectAttemptCap(t *testing.T) {
	cfg := defaultResetConfig()
	cfg.VerifyLimit = 1000
	env := newTestEnv(t, cfg)
	code := startAndCapture(t, env)
	bad := wrongCode(code)

	const workers = 50
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		invalid int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.svc.Verify(context.Background(), testEmail, bad)
			if errors.Is(err, ErrInvalidResetCode) {
				mu.Lock()
				invalid++
				mu.Unlock()
				return
			}
			if !errors.Is(err, ErrTooManyAttempts) && !errors.Is(err, ErrNoPendingReset) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, cfg.MaxAttempts-1, invalid)
	assert.Nil(t, env.tokens.find(testEmail, domain.PurposeReset))
}

func TestVerify_CreateVerifiedFailure(t *testing.T) {
	env := newTestEnv(t, defaultResetConfig())
	code := startAndCapture(t, env)
	env.tokens.createErr = errors.New("db down")

	_, err := env.svc.Verify(context.Background(), testEmail, code)
	require.Error(t, err)
	for _, sentinel := range []error{ErrNoPendingReset, ErrResetCodeExpired, ErrTooManyAttempts, ErrInvalidResetCode} {
		assert.NotErrorIs(t, err, sentinel)
	}
}
