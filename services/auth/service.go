package auth

import (
	"context"
	"errors"
	"strings"

	"endurancy-platform/pkg/access"
	"endurancy-platform/pkg/errutil"
	"endurancy-platform/pkg/logger"
	"endurancy-platform/pkg/session"
	"endurancy-platform/services/organization"
	"endurancy-platform/services/user"

	"github.com/go-playground/validator/v10"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Audience selects which login endpoint a user must use.
type Audience int

const (
	AudienceStaff Audience = iota
	AudiencePatient
)

type Service struct {
	validate *validator.Validate

	users         *user.Service
	organizations *organization.Service
}

type ServiceParams struct {
	fx.In
	Users         *user.Service
	Organizations *organization.Service
}

func NewService(p ServiceParams) *Service {
	return &Service{
		validate:      validator.New(),
		users:         p.Users,
		organizations: p.Organizations,
	}
}

// Login verifies credentials and returns the session to start. Users of the
// other audience are rejected even with a correct password.
func (s *Service) Login(ctx context.Context, audience Audience, req LoginRequest) (*session.Data, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, errutil.FromValidation(err)
	}

	u, err := s.users.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, user.ErrInvalidCredentials) {
			return nil, errutil.Unauthorized("Invalid email or password", nil)
		}
		return nil, err
	}

	switch {
	case audience == AudienceStaff && !access.IsStaff(u.Role):
		return nil, errutil.Forbidden("Use the patient login", nil)
	case audience == AudiencePatient && access.IsStaff(u.Role):
		return nil, errutil.Forbidden("Use the staff login", nil)
	case !u.IsActive:
		return nil, errutil.Forbidden("Account is inactive", nil)
	}

	if u.OrganizationID != "" {
		org, err := s.organizations.Get(ctx, u.OrganizationID)
		if err != nil {
			return nil, err
		}
		if org.Status != organization.StatusActive {
			return nil, errutil.Forbidden("Organization is not active", nil)
		}
	}

	logger.FromContext(ctx).Info("user logged in", zap.String("user_id", u.ID), zap.String("role", u.Role))
	return &session.Data{
		UserID:         u.ID,
		OrganizationID: u.OrganizationID,
		Username:       u.Username,
		Name:           u.Name,
		Email:          u.Email,
		Role:           u.Role,
	}, nil
}

// TestLogin accepts any non-empty username and password and builds a
// synthetic user. Only mounted when SESSION.TEST_AUTH is enabled.
func (s *Service) TestLogin(req TestLoginRequest) (*session.Data, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		return nil, errutil.BadRequest("Username and password are required", nil)
	}

	role := req.Role
	if role == "" {
		role = access.RoleAdmin
	}
	if !access.ValidRole(role) {
		return nil, errutil.BadRequest("Unknown role", nil)
	}

	name := req.Name
	if name == "" {
		name = username
	}
	email := req.Email
	if email == "" {
		email = username + "@test.local"
	}

	return &session.Data{
		UserID:   "test-" + username,
		Username: username,
		Name:     name,
		Email:    email,
		Role:     role,
		Test:     true,
	}, nil
}

// Register creates a user inside the caller's organization. Only platform
// admins may create other admins.
func (s *Service) Register(ctx context.Context, caller *session.Data, organizationID string, req RegisterRequest) (*user.User, error) {
	if req.Role == access.RoleAdmin && caller.Role != access.RoleAdmin {
		return nil, errutil.Forbidden("Only platform admins can create admins", nil)
	}
	if organizationID == "" && req.Role != access.RoleAdmin {
		return nil, errutil.BadRequest("Organization is required", nil)
	}

	return s.users.Create(ctx, user.CreateRequest{
		OrganizationID: organizationID,
		Name:           req.Name,
		Email:          req.Email,
		Username:       req.Username,
		Password:       req.Password,
		Role:           req.Role,
		Phone:          req.Phone,
		Document:       req.Document,
	})
}
