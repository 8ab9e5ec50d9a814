package user

import (
	"context"
	"errors"
	"strings"
	"time"

	"endurancy-platform/pkg/access"
	"endurancy-platform/pkg/db/option"
	"endurancy-platform/pkg/errutil"
	"endurancy-platform/pkg/gen"
	"endurancy-platform/pkg/logger"
	"endurancy-platform/pkg/repository"
	"endurancy-platform/pkg/security"

	"github.com/go-playground/validator/v10"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

type Service struct {
	ids      gen.IDGenerator
	validate *validator.Validate

	user repository.Repository[User]
}

type ServiceParams struct {
	fx.In
	DB  *gorm.DB
	IDs gen.IDGenerator
}

func NewService(p ServiceParams) *Service {
	return &Service{
		ids:      p.IDs,
		validate: validator.New(),

		user: repository.ProvideStore[User](p.DB),
	}
}

func (s *Service) WithTrx(tx *gorm.DB) *Service {
	cp := *s
	cp.user = s.user.WithTrx(tx)
	return &cp
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (*User, error) {
	req.Email = normalizeEmail(req.Email)
	if err := s.validate.Struct(req); err != nil {
		return nil, errutil.FromValidation(err)
	}
	if !access.ValidRole(req.Role) {
		return nil, errutil.ValidationFailed("validation failed", nil, errutil.WithDetails(errutil.Detail{Field: "Role", Message: "is not a known role"}))
	}

	email := req.Email
	exist, err := s.user.FindOne(ctx, &User{Email: email})
	if err != nil {
		return nil, err
	}
	if exist != nil {
		return nil, errutil.Conflict("A user with this email already exists", nil)
	}

	hash, err := security.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	username := req.Username
	if username == "" {
		username = strings.SplitN(email, "@", 2)[0]
	}

	u := &User{
		ID:             s.ids.NewID(),
		OrganizationID: req.OrganizationID,
		Name:           req.Name,
		Username:       username,
		Email:          email,
		PasswordHash:   hash,
		Role:           req.Role,
		Phone:          req.Phone,
		Document:       req.Document,
		IsActive:       true,
	}
	if err := s.user.Create(ctx, u); err != nil {
		logger.FromContext(ctx).Error("failed to create user", zap.Error(err))
		return nil, err
	}
	return u, nil
}

func (s *Service) Get(ctx context.Context, id string) (*User, error) {
	u, err := s.user.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, errutil.NotFound("User not found", nil)
	}
	return u, nil
}

// GetInOrganization loads a user and checks it belongs to organizationID.
func (s *Service) GetInOrganization(ctx context.Context, organizationID, id string) (*User, error) {
	u, err := s.user.FindOne(ctx, &User{ID: id, OrganizationID: organizationID})
	if err != nil {
		return nil, err
	}
	if u == nil || organizationID == "" {
		return nil, errutil.NotFound("User not found", nil)
	}
	return u, nil
}

func (s *Service) FindByEmail(ctx context.Context, email string) (*User, error) {
	return s.user.FindOne(ctx, &User{Email: normalizeEmail(email)})
}

// ListActive returns every active user of an organization.
func (s *Service) ListActive(ctx context.Context, organizationID string) ([]*User, error) {
	return s.user.Find(ctx, &User{OrganizationID: organizationID}, option.Equal("is_active", true))
}

// Authenticate checks email and password. Unknown emails and wrong passwords
// both yield ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	u, err := s.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if u == nil || u.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}
	if err := security.CheckPassword(u.PasswordHash, password); err != nil {
		if errors.Is(err, security.ErrPasswordMismatch) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	now := time.Now().UTC()
	if err := s.user.Update(ctx, u.ID, map[string]any{"last_login_at": now}); err != nil {
		logger.FromContext(ctx).Warn("failed to record last login", zap.String("user_id", u.ID), zap.Error(err))
	}
	u.LastLoginAt = &now
	return u, nil
}

func (s *Service) UpdateProfile(ctx context.Context, id string, req UpdateProfileRequest) (*User, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, errutil.FromValidation(err)
	}

	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if req.Name != nil {
		updates["name"] = *req.Name
		u.Name = *req.Name
	}
	if req.Phone != nil {
		updates["phone"] = *req.Phone
		u.Phone = *req.Phone
	}
	if req.AvatarURL != nil {
		updates["avatar_url"] = *req.AvatarURL
		u.AvatarURL = *req.AvatarURL
	}
	if req.Bio != nil {
		updates["bio"] = *req.Bio
		u.Bio = *req.Bio
	}
	if len(updates) == 0 {
		return u, nil
	}

	if err := s.user.Update(ctx, id, updates); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) ChangePassword(ctx context.Context, id string, req ChangePasswordRequest) error {
	if err := s.validate.Struct(req); err != nil {
		return errutil.FromValidation(err)
	}

	u, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := security.CheckPassword(u.PasswordHash, req.CurrentPassword); err != nil {
		return errutil.BadRequest("Current password is incorrect", nil)
	}

	hash, err := security.HashPassword(req.NewPassword)
	if err != nil {
		return err
	}
	if err := s.user.Update(ctx, id, map[string]any{"password_hash": hash}); err != nil {
		return err
	}

	logger.FromContext(ctx).Info("password changed", zap.String("user_id", id))
	return nil
}
