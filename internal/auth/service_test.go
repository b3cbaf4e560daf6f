package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/shopmanager/shopmanager/internal/rbac"
	"github.com/shopmanager/shopmanager/internal/shared"
	"github.com/shopmanager/shopmanager/internal/users"
	"github.com/shopmanager/shopmanager/jobs"
)

const resetURL = "http://shop.local/reset-password/"

type fakeQueue struct {
	sent []jobs.SendEmailPayload
	err  error
}

func (q *fakeQueue) EnqueueSendEmail(_ context.Context, p jobs.SendEmailPayload) error {
	if q.err != nil {
		return q.err
	}
	q.sent = append(q.sent, p)
	return nil
}

type recordingAudit struct{ actions []string }

func (a *recordingAudit) Record(_ context.Context, log shared.AuditLog) error {
	a.actions = append(a.actions, log.Action)
	return nil
}

type fixture struct {
	svc    *Service
	repo   *users.Memory
	tokens *Tokens
	queue  *fakeQueue
	audit  *recordingAudit
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	tokens, err := NewTokens("0123456789abcdef-test", time.Hour, 15*time.Minute)
	require.NoError(t, err)
	repo := users.NewMemory()
	queue := &fakeQueue{}
	audit := &recordingAudit{}
	svc := NewService(repo, tokens, queue, audit, Config{ResetURL: resetURL, BcryptCost: bcrypt.MinCost}, nil)
	return fixture{svc: svc, repo: repo, tokens: tokens, queue: queue, audit: audit}
}

func register(role, email string) RegisterInput {
	return RegisterInput{Username: strings.Split(email, "@")[0], Email: email, Phone: "0771234567", Password: "secret1", Role: role}
}

func TestRegisterIssuesToken(t *testing.T) {
	f := newFixture(t)
	sess, err := f.svc.Register(context.Background(), register(rbac.RoleCashier, " Kamal@Example.com"), nil)
	require.NoError(t, err)
	assert.Equal(t, "kamal@example.com", sess.User.Email)
	assert.NotEqual(t, "secret1", sess.User.PasswordHash)

	p, err := f.svc.Authenticate(sess.Token)
	require.NoError(t, err)
	assert.Equal(t, sess.User.ID.String(), p.UserID)
	assert.Equal(t, rbac.RoleCashier, p.Role)
	assert.Equal(t, "kamal", p.Username)
	assert.Equal(t, []string{"user.register"}, f.audit.actions)

	_, err = f.svc.Register(context.Background(), register(rbac.RoleCashier, "kamal@example.com"), nil)
	assert.True(t, errors.Is(err, shared.ErrDuplicateKey))

	_, err = f.svc.Register(context.Background(), register("owner", "x@example.com"), nil)
	assert.True(t, errors.Is(err, shared.ErrValidation))
}

func TestRegisterPrivilegedRoles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	root, err := f.svc.Register(ctx, register(rbac.RoleSuperAdmin, "root@example.com"), nil)
	require.NoError(t, err)

	_, err = f.svc.Register(ctx, register(rbac.RoleAdmin, "a@example.com"), nil)
	assert.True(t, errors.Is(err, shared.ErrUnauthorized))

	_, err = f.svc.Register(ctx, register(rbac.RoleAdmin, "a@example.com"), &shared.Principal{Role: rbac.RoleAdmin})
	assert.True(t, errors.Is(err, shared.ErrForbidden))

	caller := shared.Principal{UserID: root.User.ID.String(), Username: "root", Role: rbac.RoleSuperAdmin}
	_, err = f.svc.Register(ctx, register(rbac.RoleAdmin, "a@example.com"), &caller)
	require.NoError(t, err)
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Register(ctx, register(rbac.RoleCashier, "kamal@example.com"), nil)
	require.NoError(t, err)

	sess, err := f.svc.Login(ctx, LoginInput{Email: "KAMAL@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.NotEmpty(t, sess.Token)

	_, err = f.svc.Login(ctx, LoginInput{Email: "kamal@example.com", Password: "wrong"})
	assert.True(t, errors.Is(err, shared.ErrInvalidCredentials))
	_, err = f.svc.Login(ctx, LoginInput{Email: "nobody@example.com", Password: "secret1"})
	assert.True(t, errors.Is(err, shared.ErrInvalidCredentials))
}

func resetToken(t *testing.T, msg jobs.SendEmailPayload) string {
	t.Helper()
	_, rest, ok := strings.Cut(msg.Body, resetURL)
	require.True(t, ok, msg.Body)
	token, _, _ := strings.Cut(rest, "\n")
	return token
}

func TestPasswordResetFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Register(ctx, register(rbac.RoleCashier, "kamal@example.com"), nil)
	require.NoError(t, err)

	require.NoError(t, f.svc.ForgotPassword(ctx, ForgotInput{Email: "nobody@example.com"}))
	assert.Empty(t, f.queue.sent)

	require.NoError(t, f.svc.ForgotPassword(ctx, ForgotInput{Email: "kamal@example.com"}))
	require.Len(t, f.queue.sent, 1)
	assert.Equal(t, "kamal@example.com", f.queue.sent[0].To)
	token := resetToken(t, f.queue.sent[0])

	_, err = f.svc.Authenticate(token)
	assert.True(t, errors.Is(err, shared.ErrUnauthorized))

	require.NoError(t, f.svc.ResetPassword(ctx, token, ResetInput{Password: "newpass1"}))
	_, err = f.svc.Login(ctx, LoginInput{Email: "kamal@example.com", Password: "newpass1"})
	require.NoError(t, err)

	err = f.svc.ResetPassword(ctx, token, ResetInput{Password: "another1"})
	assert.True(t, errors.Is(err, shared.ErrUnauthorized))

	err = f.svc.ResetPassword(ctx, "garbage", ResetInput{Password: "another1"})
	assert.True(t, errors.Is(err, shared.ErrUnauthorized))
}

func TestExpiredResetToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sess, err := f.svc.Register(ctx, register(rbac.RoleCashier, "kamal@example.com"), nil)
	require.NoError(t, err)

	stored, err := f.repo.FindByID(ctx, sess.User.ID)
	require.NoError(t, err)
	f.tokens.now = func() time.Time { return time.Now().Add(-time.Hour) }
	token, err := f.tokens.IssueReset(stored)
	require.NoError(t, err)

	err = f.svc.ResetPassword(ctx, token, ResetInput{Password: "newpass1"})
	require.True(t, errors.Is(err, shared.ErrUnauthorized))
	assert.Contains(t, err.Error(), "expired")
}

func TestForgotPasswordSwallowsQueueFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Register(ctx, register(rbac.RoleCashier, "kamal@example.com"), nil)
	require.NoError(t, err)
	f.queue.err = errors.New("redis down")

	assert.NoError(t, f.svc.ForgotPassword(ctx, ForgotInput{Email: "kamal@example.com"}))
}

func TestNewTokensRejectsShortSecret(t *testing.T) {
	_, err := NewTokens("short", time.Hour, time.Minute)
	assert.Error(t, err)
}

func TestBearerMiddleware(t *testing.T) {
	f := newFixture(t)
	sess, err := f.svc.Register(context.Background(), register(rbac.RoleCashier, "kamal@example.com"), nil)
	require.NoError(t, err)

	var seen shared.Principal
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = shared.PrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	required := RequireBearer(f.svc)(ok)
	optional := OptionalBearer(f.svc)(ok)

	rec := httptest.NewRecorder()
	required.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	optional.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "bearer "+sess.Token)
	rec = httptest.NewRecorder()
	required.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "kamal", seen.Username)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer nope")
	rec = httptest.NewRecorder()
	optional.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthRoutes(t *testing.T) {
	f := newFixture(t)
	r := chi.NewRouter()
	r.Route("/auth", NewHandler(nil, f.svc).MountRoutes)
	do := func(path, body string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, strings.NewReader(body)))
		return rec
	}

	res := do("/auth/register", `{"username":"kamal","email":"kamal@example.com","phone":"077","password":"secret1","role":"cashier"}`)
	require.Equal(t, http.StatusCreated, res.Code, res.Body.String())
	assert.Contains(t, res.Body.String(), `"token":`)
	assert.NotContains(t, res.Body.String(), "passwordHash")

	res = do("/auth/login", `{"email":"kamal@example.com","password":"bad"}`)
	assert.Equal(t, http.StatusUnauthorized, res.Code)

	res = do("/auth/forgot-password", `{"email":"kamal@example.com"}`)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), forgotMessage)

	token := resetToken(t, f.queue.sent[0])
	res = do("/auth/reset-password/"+token, `{"password":"newpass1"}`)
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())

	res = do("/auth/login", `{"email":"kamal@example.com","password":"newpass1"}`)
	assert.Equal(t, http.StatusOK, res.Code)
}
