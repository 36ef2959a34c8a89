package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/complaint-portal/internal/auth"
	"github.com/spec-kit/complaint-portal/internal/config"
	"github.com/spec-kit/complaint-portal/internal/domain"
	"github.com/spec-kit/complaint-portal/internal/policy"
	"github.com/spec-kit/complaint-portal/internal/repository"
	apperrors "github.com/spec-kit/complaint-portal/pkg/util/errorutil"
)

// UserService manages accounts within an organization: consumers, helpdesk
// and support staff, and managers. Who may create or touch which role is
// decided by the policy package.
type UserService struct {
	users      repository.UserRepository
	orgs       repository.OrganizationRepository
	bcryptCost int
}

// UserDependencies encapsulates repositories for user management.
type UserDependencies struct {
	UserRepo repository.UserRepository
	OrgRepo  repository.OrganizationRepository
}

// NewUserService constructs the service.
func NewUserService(cfg config.Config, deps UserDependencies) *UserService {
	return &UserService{
		users:      deps.UserRepo,
		orgs:       deps.OrgRepo,
		bcryptCost: cfg.Auth.BcryptCost,
	}
}

// UserCreateInput describes a new account. Password may be empty for
// pre-provisioned consumer records, which are claimed later through
// registration.
type UserCreateInput struct {
	Name           string
	Email          string
	Password       string
	Role           domain.Role
	OrganizationID *int64
	ConsumerNumber *string
	Phone          string
	Address        string
}

// UserUpdateInput describes editable account fields.
type UserUpdateInput struct {
	Name    string
	Email   string
	Phone   string
	Address string
}

// UserListFilter defines listing parameters.
type UserListFilter struct {
	Role   *domain.Role
	Active *bool
	Limit  int
	Offset int
}

// CreateUser adds an account within the actor's management scope.
func (s *UserService) CreateUser(ctx context.Context, actor *domain.User, input UserCreateInput) (*domain.User, error) {
	if err := s.requireRoleGrant(actor, input.Role); err != nil {
		return nil, err
	}

	orgID := input.OrganizationID
	if actor.Role != domain.RoleSystemAdmin {
		// Non-admins always create inside their own organization.
		orgID = actor.OrganizationID
	}
	if orgID == nil && input.Role != domain.RoleSystemAdmin {
		return nil, apperrors.NewValidationError("organization required", nil)
	}
	if orgID != nil {
		org, err := s.orgs.GetByID(ctx, *orgID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, apperrors.NewNotFound("organization", map[string]any{"organization_id": *orgID})
			}
			return nil, apperrors.MapError(err)
		}
		if !org.IsActive() {
			return nil, apperrors.NewConflict("organization is inactive", map[string]any{"organization_id": *orgID})
		}
	}
	if input.Role == domain.RoleConsumer && input.ConsumerNumber == nil {
		return nil, apperrors.NewValidationError("consumer number required", nil)
	}

	email := strings.ToLower(strings.TrimSpace(input.Email))
	if existing, err := s.users.GetByEmail(ctx, email); err == nil && existing != nil {
		return nil, apperrors.NewConflict("email already registered", map[string]any{"email": email})
	} else if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}

	hash := ""
	if input.Password != "" {
		var err error
		hash, err = auth.HashPassword(input.Password, s.bcryptCost)
		if err != nil {
			return nil, apperrors.NewInternalError(err)
		}
	}

	user := &domain.User{
		Name:           strings.TrimSpace(input.Name),
		Email:          email,
		PasswordHash:   hash,
		Role:           input.Role,
		OrganizationID: orgID,
		ConsumerNumber: input.ConsumerNumber,
		Phone:          input.Phone,
		Address:        input.Address,
		IsActive:       true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if isUniqueViolation(err) {
			return nil, apperrors.NewConflict("account already exists", map[string]any{"email": email})
		}
		return nil, apperrors.MapError(err)
	}
	return user, nil
}

// ListUsers returns accounts within the actor's scope.
func (s *UserService) ListUsers(ctx context.Context, actor *domain.User, filter UserListFilter) ([]domain.User, error) {
	if len(policy.ManageableRoles(actor)) == 0 {
		return nil, apperrors.NewForbidden("insufficient role for user management")
	}
	repoFilter := repository.UserFilter{
		Role:   filter.Role,
		Active: filter.Active,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}
	if actor.Role != domain.RoleSystemAdmin {
		repoFilter.OrganizationID = actor.OrganizationID
	}
	list, err := s.users.List(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return list, nil
}

// GetUser fetches an account the actor may manage.
func (s *UserService) GetUser(ctx context.Context, actor *domain.User, id int64) (*domain.User, error) {
	target, err := s.targetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanManageUser(actor, target) && actor.ID != target.ID {
		return nil, apperrors.NewForbidden("access denied")
	}
	return target, nil
}

// UpdateUser edits account details within the actor's scope.
func (s *UserService) UpdateUser(ctx context.Context, actor *domain.User, id int64, input UserUpdateInput) (*domain.User, error) {
	target, err := s.targetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanManageUser(actor, target) {
		return nil, apperrors.NewForbidden("access denied")
	}

	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email != "" && email != target.Email {
		if existing, err := s.users.GetByEmail(ctx, email); err == nil && existing != nil && existing.ID != target.ID {
			return nil, apperrors.NewConflict("email already registered", map[string]any{"email": email})
		} else if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.MapError(err)
		}
		target.Email = email
	}
	if input.Name != "" {
		target.Name = strings.TrimSpace(input.Name)
	}
	target.Phone = input.Phone
	target.Address = input.Address

	if err := s.users.Update(ctx, target); err != nil {
		return nil, apperrors.MapError(err)
	}
	return target, nil
}

// SetActive toggles an account's active flag.
func (s *UserService) SetActive(ctx context.Context, actor *domain.User, id int64, active bool) (*domain.User, error) {
	target, err := s.targetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanManageUser(actor, target) {
		return nil, apperrors.NewForbidden("access denied")
	}
	if actor.ID == target.ID && !active {
		return nil, apperrors.NewConflict("cannot deactivate own account", nil)
	}
	target.IsActive = active
	if err := s.users.Update(ctx, target); err != nil {
		return nil, apperrors.MapError(err)
	}
	return target, nil
}

// DeleteUser removes an account. Consumer complaints cascade with it.
func (s *UserService) DeleteUser(ctx context.Context, actor *domain.User, id int64) error {
	target, err := s.targetUser(ctx, id)
	if err != nil {
		return err
	}
	if !policy.CanDeleteUser(actor, target) {
		return apperrors.NewForbidden("access denied")
	}
	if err := s.users.Delete(ctx, target.ID); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}

func (s *UserService) requireRoleGrant(actor *domain.User, role domain.Role) error {
	if actor == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	if !role.Valid() {
		return apperrors.NewValidationError("unknown role", map[string]any{"role": role})
	}
	for _, allowed := range policy.ManageableRoles(actor) {
		if allowed == role {
			return nil
		}
	}
	return apperrors.NewForbidden("cannot create accounts with this role")
}

func (s *UserService) targetUser(ctx context.Context, id int64) (*domain.User, error) {
	target, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("user", map[string]any{"user_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return target, nil
}
