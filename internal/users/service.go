package users

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shopmanager/shopmanager/internal/platform/validate"
	"github.com/shopmanager/shopmanager/internal/shared"
)

// Repository defines data access methods for users.
type Repository interface {
	Create(ctx context.Context, u User) error
	FindByEmail(ctx context.Context, email string) (User, error)
	FindByID(ctx context.Context, id uuid.UUID) (User, error)
	List(ctx context.Context) ([]User, error)
	Count(ctx context.Context) (int, error)
	Update(ctx context.Context, u User) error
	SetPassword(ctx context.Context, id uuid.UUID, hash string) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// Service handles user administration.
type Service struct {
	repo   Repository
	audit  shared.AuditSink
	logger *slog.Logger
	now    func() time.Time
}

// NewService builds Service instance. audit may be nil.
func NewService(repo Repository, audit shared.AuditSink, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// List returns all users.
func (s *Service) List(ctx context.Context) ([]User, error) {
	return s.repo.List(ctx)
}

// Get returns one user.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (User, error) {
	return s.repo.FindByID(ctx, id)
}

// Update applies the non-nil fields of in.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in UpdateInput, actor string) (User, error) {
	if err := validate.Struct(in); err != nil {
		return User{}, err
	}
	u, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	if in.Username != nil {
		u.Username = strings.TrimSpace(*in.Username)
	}
	if in.Email != nil {
		u.Email = NormalizeEmail(*in.Email)
	}
	if in.Phone != nil {
		u.Phone = strings.TrimSpace(*in.Phone)
	}
	if in.Role != nil {
		u.Role = *in.Role
	}
	u.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, u); err != nil {
		return User{}, err
	}
	s.record(ctx, actor, "user.update", id, map[string]any{"role": u.Role, "email": u.Email})
	return u, nil
}

// Delete removes a user. Callers cannot delete their own account.
func (s *Service) Delete(ctx context.Context, id uuid.UUID, actorID, actor string) error {
	if id.String() == actorID {
		return shared.NewValidationError("id", "cannot delete your own account")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.record(ctx, actor, "user.delete", id, nil)
	return nil
}

func (s *Service) record(ctx context.Context, actor, action string, id uuid.UUID, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, shared.AuditLog{Actor: actor, Action: action, Entity: "user", EntityID: id.String(), Meta: meta}); err != nil {
		s.logger.Warn("audit record failed", slog.String("action", action), slog.Any("error", err))
	}
}

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
