package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/complaint-portal/internal/domain"
	"github.com/spec-kit/complaint-portal/internal/policy"
	"github.com/spec-kit/complaint-portal/internal/repository"
	apperrors "github.com/spec-kit/complaint-portal/pkg/util/errorutil"
)

// StatsService computes dashboard counters over the actor's visible slice.
type StatsService struct {
	complaints repository.ComplaintRepository
	users      repository.UserRepository
	orgs       repository.OrganizationRepository
}

// StatsDependencies bundles repositories.
type StatsDependencies struct {
	ComplaintRepo repository.ComplaintRepository
	UserRepo      repository.UserRepository
	OrgRepo       repository.OrganizationRepository
}

// NewStatsService constructs the service.
func NewStatsService(deps StatsDependencies) *StatsService {
	return &StatsService{
		complaints: deps.ComplaintRepo,
		users:      deps.UserRepo,
		orgs:       deps.OrgRepo,
	}
}

// Overview aggregates complaint counts for the actor's dashboard.
type Overview struct {
	ByStatus    map[domain.ComplaintStatus]int
	ByPriority  map[string]int
	ByCategory  map[string]int
	UsersByRole map[domain.Role]int
}

// Overview returns complaint counters scoped to what the actor can see.
// Admin roles additionally get account counts per role.
func (s *StatsService) Overview(ctx context.Context, actor *domain.User) (*Overview, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	orgName := ""
	if actor.OrganizationID != nil {
		org, err := s.orgs.GetByID(ctx, *actor.OrganizationID)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.MapError(err)
		}
		if org != nil {
			orgName = org.Name
		}
	}
	scope := policy.VisibilityScope(actor, orgName)

	byStatus, err := s.complaints.StatusCounts(ctx, scope)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	byPriority, err := s.complaints.GroupCounts(ctx, scope, "priority")
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	byCategory, err := s.complaints.GroupCounts(ctx, scope, "category")
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	overview := &Overview{
		ByStatus:   byStatus,
		ByPriority: byPriority,
		ByCategory: byCategory,
	}
	if actor.Role.IsAdmin() || actor.Role == domain.RoleHelpdeskManager {
		orgScope := actor.OrganizationID
		if actor.Role == domain.RoleSystemAdmin {
			orgScope = nil
		}
		byRole, err := s.users.CountByRole(ctx, orgScope)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		overview.UsersByRole = byRole
	}
	return overview, nil
}
