package branches

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	apperrors "checkops/internal/pkg/errors"
	"checkops/internal/platform/auth"
	"checkops/internal/platform/database"
	"checkops/internal/platform/models"
	"checkops/internal/platform/repositories"
)

// Scope is the organization and branch a request operates on.
type Scope struct {
	OrganizationID string
	BranchID       string
}

type Service struct {
	db       *sql.DB
	users    *repositories.UserRepository
	orgs     *repositories.OrganizationRepository
	branches *repositories.BranchRepository
	tokens   *auth.TokenService
}

func NewService(db *sql.DB, tokens *auth.TokenService) *Service {
	return &Service{
		db:       db,
		users:    repositories.NewUserRepository(db),
		orgs:     repositories.NewOrganizationRepository(db),
		branches: repositories.NewBranchRepository(db),
		tokens:   tokens,
	}
}

// ListOrganizationsForUser returns every organization the user is a member
// of, each with its branches and the user's profile there.
func (s *Service) ListOrganizationsForUser(ctx context.Context, userID string) ([]*models.Organization, error) {
	orgs, err := s.orgs.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, org := range orgs {
		branches, err := s.branches.ListByOrganization(ctx, org.ID)
		if err != nil {
			return nil, err
		}
		if branches == nil {
			branches = []*models.Branch{}
		}
		org.Branches = branches
	}
	if orgs == nil {
		orgs = []*models.Organization{}
	}
	return orgs, nil
}

type Selection struct {
	Branch       *models.Branch       `json:"branch"`
	Organization *models.Organization `json:"organization"`
	AccessToken  string               `json:"accessToken"`
}

// SelectBranch makes branchID the user's active branch and returns a session
// token re-signed with it.
func (s *Service) SelectBranch(ctx context.Context, userID, branchID string) (*Selection, error) {
	if branchID == "" {
		return nil, apperrors.Validation("", "branchId")
	}

	branch, err := s.branches.GetByID(ctx, branchID)
	if err != nil {
		return nil, err
	}
	if branch == nil {
		return nil, apperrors.NotFound("Branch")
	}

	member, err := s.branches.GetForMember(ctx, userID, branchID)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, apperrors.New(apperrors.KindForbidden, "Branch does not belong to your organizations")
	}

	var user *models.User
	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		users := s.users.WithTx(tx)
		if err := users.SetSelectedBranch(ctx, userID, branch.ID); err != nil {
			return err
		}
		if err := users.SetOrganization(ctx, userID, branch.OrganizationID); err != nil {
			return err
		}
		u, err := users.GetByID(ctx, userID)
		user = u
		return err
	})
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperrors.NotFound("User")
	}

	org, err := s.orgs.GetByID(ctx, branch.OrganizationID)
	if err != nil {
		return nil, err
	}

	token, err := s.tokens.GenerateAccessToken(user)
	if err != nil {
		return nil, err
	}

	log.Info().Str("user_id", userID).Str("branch_id", branch.ID).Msg("Branch selected")
	return &Selection{Branch: branch, Organization: org, AccessToken: token}, nil
}

// ResolveScope checks that the user may act on branchID. An empty branchID
// falls back to the selection stored on the user.
func (s *Service) ResolveScope(ctx context.Context, userID, branchID string) (*Scope, error) {
	if branchID == "" {
		user, err := s.users.GetByID(ctx, userID)
		if err != nil {
			return nil, err
		}
		if user == nil {
			return nil, apperrors.New(apperrors.KindUnauthorized, "User not found")
		}
		if user.SelectedBranchID == nil {
			return nil, apperrors.New(apperrors.KindPreconditionFailed, "No branch selected")
		}
		branchID = *user.SelectedBranchID
	}

	branch, err := s.branches.GetForMember(ctx, userID, branchID)
	if err != nil {
		return nil, err
	}
	if branch == nil {
		return nil, apperrors.New(apperrors.KindForbidden, "Access to branch denied")
	}
	return &Scope{OrganizationID: branch.OrganizationID, BranchID: branch.ID}, nil
}

type CreateInput struct {
	Name string `json:"name"`
}

// Create adds a branch to the user's current organization.
func (s *Service) Create(ctx context.Context, orgID string, in CreateInput) (*models.Branch, error) {
	if in.Name == "" {
		return nil, apperrors.Validation("", "name")
	}
	pos, err := s.branches.NextPosition(ctx, orgID)
	if err != nil {
		return nil, err
	}
	now := time.Now().Unix()
	branch := &models.Branch{
		ID:             "br_" + uuid.NewString(),
		OrganizationID: orgID,
		Name:           in.Name,
		Position:       pos,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.branches.Create(ctx, branch); err != nil {
		return nil, err
	}
	return branch, nil
}
