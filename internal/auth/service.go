package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/shopmanager/shopmanager/internal/platform/validate"
	"github.com/shopmanager/shopmanager/internal/rbac"
	"github.com/shopmanager/shopmanager/internal/shared"
	"github.com/shopmanager/shopmanager/internal/users"
	"github.com/shopmanager/shopmanager/jobs"
)

// MailQueue hands outgoing mail to the background worker.
type MailQueue interface {
	EnqueueSendEmail(ctx context.Context, payload jobs.SendEmailPayload) error
}

// Config holds service settings.
type Config struct {
	// ResetURL is prefixed to the reset token in the mailed link.
	ResetURL   string
	BcryptCost int
}

// Service wraps authentication business rules.
type Service struct {
	users  users.Repository
	tokens *Tokens
	mail   MailQueue
	audit  shared.AuditSink
	cfg    Config
	logger *slog.Logger
	now    func() time.Time
}

// NewService constructs a new Service. mail and audit may be nil.
func NewService(repo users.Repository, tokens *Tokens, mail MailQueue, audit shared.AuditSink, cfg Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		users:  repo,
		tokens: tokens,
		mail:   mail,
		audit:  audit,
		cfg:    cfg,
		logger: logger.With(slog.String("module", "auth")),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Register creates an account and signs it in. Cashier accounts are open;
// admin and superadmin accounts need a superadmin caller once any account
// exists.
func (s *Service) Register(ctx context.Context, in RegisterInput, caller *shared.Principal) (Session, error) {
	in.Email = users.NormalizeEmail(in.Email)
	in.Username = strings.TrimSpace(in.Username)
	if err := validate.Struct(in); err != nil {
		return Session{}, err
	}
	if in.Role != rbac.RoleCashier {
		if err := s.canGrant(ctx, in.Role, caller); err != nil {
			return Session{}, err
		}
	}
	if _, err := s.users.FindByEmail(ctx, in.Email); err == nil {
		return Session{}, fmt.Errorf("user %s already exists: %w", in.Email, shared.ErrDuplicateKey)
	} else if !errors.Is(err, shared.ErrNotFound) {
		return Session{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cfg.BcryptCost)
	if err != nil {
		return Session{}, fmt.Errorf("auth: hash password: %w", err)
	}
	now := s.now()
	u := users.User{
		ID:           uuid.New(),
		Username:     in.Username,
		Email:        in.Email,
		Phone:        strings.TrimSpace(in.Phone),
		PasswordHash: string(hash),
		Role:         in.Role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return Session{}, err
	}
	s.record(ctx, actorOf(caller, u.Username), "user.register", u.ID, map[string]any{"role": u.Role})
	return s.session(u)
}

func (s *Service) canGrant(ctx context.Context, role string, caller *shared.Principal) error {
	if caller != nil && caller.Role == rbac.RoleSuperAdmin {
		return nil
	}
	n, err := s.users.Count(ctx)
	if err != nil {
		return err
	}
	if n == 0 {
		return nil
	}
	if caller == nil {
		return fmt.Errorf("registering a %s requires a superadmin: %w", role, shared.ErrUnauthorized)
	}
	return fmt.Errorf("registering a %s requires a superadmin: %w", role, shared.ErrForbidden)
}

// Login checks credentials and issues a token. Unknown emails and wrong
// passwords are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, in LoginInput) (Session, error) {
	if err := validate.Struct(in); err != nil {
		return Session{}, err
	}
	u, err := s.users.FindByEmail(ctx, users.NormalizeEmail(in.Email))
	if errors.Is(err, shared.ErrNotFound) {
		return Session{}, shared.ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(in.Password)); err != nil {
		return Session{}, shared.ErrInvalidCredentials
	}
	s.record(ctx, u.Username, "user.login", u.ID, nil)
	return s.session(u)
}

// ForgotPassword mails a reset link when the email is known. It reports
// success either way, and a queue failure is only logged.
func (s *Service) ForgotPassword(ctx context.Context, in ForgotInput) error {
	in.Email = users.NormalizeEmail(in.Email)
	if err := validate.Struct(in); err != nil {
		return err
	}
	u, err := s.users.FindByEmail(ctx, in.Email)
	if errors.Is(err, shared.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	token, err := s.tokens.IssueReset(u)
	if err != nil {
		return fmt.Errorf("auth: issue reset token: %w", err)
	}
	if s.mail == nil {
		s.logger.Warn("password reset mail skipped, no queue configured", slog.String("user", u.ID.String()))
		return nil
	}
	payload := jobs.SendEmailPayload{
		To:      u.Email,
		Subject: "Password Reset Request",
		Body: "You requested a password reset for your account.\n\n" +
			"Reset your password: " + s.cfg.ResetURL + token + "\n\n" +
			"This link expires in " + s.tokens.resetTTL.String() + ". If you did not request a reset, ignore this email.\n",
	}
	if err := s.mail.EnqueueSendEmail(ctx, payload); err != nil {
		s.logger.Warn("password reset mail enqueue failed", slog.String("user", u.ID.String()), slog.Any("error", err))
	}
	return nil
}

// ResetPassword sets a new password when token is valid, unexpired and was
// issued for the current password.
func (s *Service) ResetPassword(ctx context.Context, token string, in ResetInput) error {
	if err := validate.Struct(in); err != nil {
		return err
	}
	id, fp, err := s.tokens.VerifyReset(token)
	if err != nil {
		return err
	}
	u, err := s.users.FindByID(ctx, id)
	if errors.Is(err, shared.ErrNotFound) {
		return fmt.Errorf("reset token user: %w", shared.ErrUnauthorized)
	}
	if err != nil {
		return err
	}
	if fingerprint(u.PasswordHash) != fp {
		return fmt.Errorf("reset token already used: %w", shared.ErrUnauthorized)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cfg.BcryptCost)
	if err != nil {
		return fmt.Errorf("auth: hash password: %w", err)
	}
	if err := s.users.SetPassword(ctx, u.ID, string(hash)); err != nil {
		return err
	}
	s.record(ctx, u.Username, "user.password_reset", u.ID, nil)
	return nil
}

// Authenticate turns a bearer token into the request principal.
func (s *Service) Authenticate(raw string) (shared.Principal, error) {
	claims, err := s.tokens.Verify(raw)
	if err != nil {
		return shared.Principal{}, err
	}
	return shared.Principal{UserID: claims.ID, Username: claims.Username, Role: claims.Role}, nil
}

func (s *Service) session(u users.User) (Session, error) {
	token, err := s.tokens.Issue(u)
	if err != nil {
		return Session{}, fmt.Errorf("auth: issue token: %w", err)
	}
	return Session{Token: token, User: u}, nil
}

func (s *Service) record(ctx context.Context, actor, action string, id uuid.UUID, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, shared.AuditLog{Actor: actor, Action: action, Entity: "user", EntityID: id.String(), Meta: meta}); err != nil {
		s.logger.Warn("audit record failed", slog.String("action", action), slog.Any("error", err))
	}
}

func actorOf(p *shared.Principal, fallback string) string {
	if p != nil && p.Username != "" {
		return p.Username
	}
	return fallback
}
