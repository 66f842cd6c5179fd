package wizard

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"checkops/internal/engine/departments"
	"checkops/internal/engine/environments"
	apperrors "checkops/internal/pkg/errors"
	"checkops/internal/pkg/validator"
	"checkops/internal/platform/database"
	"checkops/internal/platform/models"
	"checkops/internal/platform/repositories"
)

type Service struct {
	db           *sql.DB
	progress     *Repository
	users        *repositories.UserRepository
	orgs         *repositories.OrganizationRepository
	memberships  *repositories.MembershipRepository
	branches     *repositories.BranchRepository
	niches       *repositories.NicheRepository
	departments  *departments.Service
	deptRepo     *departments.Repository
	environments *environments.Service
	envRepo      *environments.Repository
}

func NewService(db *sql.DB, depts *departments.Service, envs *environments.Service) *Service {
	return &Service{
		db:           db,
		progress:     NewRepository(db),
		users:        repositories.NewUserRepository(db),
		orgs:         repositories.NewOrganizationRepository(db),
		memberships:  repositories.NewMembershipRepository(db),
		branches:     repositories.NewBranchRepository(db),
		niches:       repositories.NewNicheRepository(db),
		departments:  depts,
		deptRepo:     departments.NewRepository(db),
		environments: envs,
		envRepo:      environments.NewRepository(db),
	}
}

// Niches lists the business segments an organization can pick.
func (s *Service) Niches(ctx context.Context) ([]*models.Niche, error) {
	return s.niches.List(ctx)
}

// GetProgress returns the stored progress, or a fresh one at the welcome step.
func (s *Service) GetProgress(ctx context.Context, userID string) (*models.WizardProgress, error) {
	p, err := s.progress.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return &models.WizardProgress{UserID: userID, CurrentStep: StepWelcome, DraftPayload: json.RawMessage("{}")}, nil
	}
	return p, nil
}

type DraftInput struct {
	Step    string          `json:"step" validate:"required"`
	Payload json.RawMessage `json:"payload"`
}

// SaveDraft stores client-side form state for a step without touching any
// organization rows.
func (s *Service) SaveDraft(ctx context.Context, userID string, in DraftInput) (*models.WizardProgress, error) {
	if err := validator.Struct(in); err != nil {
		return nil, err
	}
	if !isStep(in.Step) {
		return nil, apperrors.Validation("Invalid fields: step", "step")
	}
	if len(in.Payload) == 0 {
		in.Payload = json.RawMessage("{}")
	}
	var obj map[string]interface{}
	if err := json.Unmarshal(in.Payload, &obj); err != nil {
		return nil, apperrors.Validation("Draft payload must be a JSON object", "payload")
	}

	p, err := s.GetProgress(ctx, userID)
	if err != nil {
		return nil, err
	}
	p.CurrentStep = in.Step
	p.DraftPayload = in.Payload
	p.UpdatedAt = time.Now().Unix()
	if err := s.progress.Upsert(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

type OrganizationInput struct {
	Name          string `json:"name" validate:"required"`
	EmployeeCount int    `json:"employeeCount" validate:"required,min=1"`
	Country       string `json:"country" validate:"required"`
	City          string `json:"city" validate:"required"`
	NicheID       string `json:"nicheId" validate:"required"`
}

// CommitOrganization fills in the user's organization, reusing a placeholder
// created at checkout when there is one.
func (s *Service) CommitOrganization(ctx context.Context, userID string, in OrganizationInput) (*models.Organization, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Country = strings.TrimSpace(in.Country)
	in.City = strings.TrimSpace(in.City)
	if err := validator.Struct(in); err != nil {
		return nil, err
	}

	ok, err := s.niches.Exists(ctx, in.NicheID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.Validation("Invalid fields: nicheId", "nicheId")
	}

	user, err := s.requireUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	progress, err := s.GetProgress(ctx, userID)
	if err != nil {
		return nil, err
	}

	orgID := progress.OrganizationID
	if orgID == nil && user.OrganizationID != nil {
		current, err := s.orgs.GetByID(ctx, *user.OrganizationID)
		if err != nil {
			return nil, err
		}
		// only a blank checkout placeholder is adopted
		if current != nil && current.Name == "" {
			orgID = &current.ID
		}
	}

	now := time.Now().Unix()
	var org *models.Organization
	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		orgs := s.orgs.WithTx(tx)

		if orgID != nil {
			existing, err := orgs.GetByID(ctx, *orgID)
			if err != nil {
				return err
			}
			org = existing
		}

		isNew := org == nil
		if isNew {
			org = &models.Organization{ID: "org_" + uuid.NewString(), CreatedAt: now}
		}
		org.Name = in.Name
		org.EmployeeCount = in.EmployeeCount
		org.Country = in.Country
		org.City = in.City
		org.NicheID = &in.NicheID
		org.UpdatedAt = now

		if isNew {
			if err := orgs.Create(ctx, org); err != nil {
				return err
			}
		} else if err := orgs.Update(ctx, org); err != nil {
			return err
		}

		if err := s.memberships.WithTx(tx).Create(ctx, &models.Membership{
			UserID:         userID,
			OrganizationID: org.ID,
			ProfileID:      user.ProfileID,
			CreatedAt:      now,
		}); err != nil {
			return err
		}
		if user.OrganizationID == nil || *user.OrganizationID != org.ID {
			if err := s.users.WithTx(tx).SetOrganization(ctx, userID, org.ID); err != nil {
				return err
			}
		}

		progress.OrganizationID = &org.ID
		progress.CurrentStep = StepBranch
		progress.UpdatedAt = now
		return s.progress.WithTx(tx).Upsert(ctx, progress)
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("user_id", userID).Str("organization_id", org.ID).Msg("Wizard organization saved")
	return org, nil
}

type BranchInput struct {
	Name string `json:"name" validate:"required"`
}

func (s *Service) CommitBranch(ctx context.Context, userID string, in BranchInput) (*models.Branch, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := validator.Struct(in); err != nil {
		return nil, err
	}

	user, err := s.requireUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	progress, err := s.GetProgress(ctx, userID)
	if err != nil {
		return nil, err
	}
	if progress.OrganizationID == nil {
		return nil, apperrors.New(apperrors.KindPreconditionFailed, "Organization step is not completed")
	}

	var branch *models.Branch
	if progress.BranchID != nil {
		if branch, err = s.branches.GetByID(ctx, *progress.BranchID); err != nil {
			return nil, err
		}
	}

	now := time.Now().Unix()
	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		branches := s.branches.WithTx(tx)

		if branch != nil {
			branch.Name = in.Name
			branch.UpdatedAt = now
			if err := branches.Rename(ctx, branch.ID, in.Name); err != nil {
				return err
			}
		} else {
			pos, err := branches.NextPosition(ctx, *progress.OrganizationID)
			if err != nil {
				return err
			}
			branch = &models.Branch{
				ID:             "br_" + uuid.NewString(),
				OrganizationID: *progress.OrganizationID,
				Name:           in.Name,
				Position:       pos,
				CreatedAt:      now,
				UpdatedAt:      now,
			}
			if err := branches.Create(ctx, branch); err != nil {
				return err
			}
		}

		if user.SelectedBranchID == nil {
			if err := s.users.WithTx(tx).SetSelectedBranch(ctx, userID, branch.ID); err != nil {
				return err
			}
		}

		progress.BranchID = &branch.ID
		progress.CurrentStep = StepDepartments
		progress.UpdatedAt = now
		return s.progress.WithTx(tx).Upsert(ctx, progress)
	})
	if err != nil {
		return nil, err
	}
	return branch, nil
}

type DepartmentsInput struct {
	Departments []departments.CreateInput `json:"departments" validate:"required,min=1,dive"`
}

// CommitDepartments replaces the wizard branch's departments.
func (s *Service) CommitDepartments(ctx context.Context, userID string, in DepartmentsInput) ([]*models.Department, error) {
	for i := range in.Departments {
		in.Departments[i].Normalize()
	}
	if err := validator.Struct(in); err != nil {
		return nil, err
	}

	progress, branch, err := s.openBranch(ctx, userID)
	if err != nil {
		return nil, err
	}

	var depts []*models.Department
	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		if depts, err = s.departments.ReplaceAllTx(ctx, tx, branch.ID, in.Departments); err != nil {
			return err
		}
		progress.CurrentStep = StepEnvironments
		progress.UpdatedAt = time.Now().Unix()
		return s.progress.WithTx(tx).Upsert(ctx, progress)
	})
	if err != nil {
		return nil, err
	}
	return depts, nil
}

type EnvironmentsInput struct {
	Environments []string `json:"environments" validate:"required,min=1,dive,required"`
}

// CommitEnvironments replaces the wizard branch's environments, numbering
// them in the given order.
func (s *Service) CommitEnvironments(ctx context.Context, userID string, in EnvironmentsInput) ([]*models.Environment, error) {
	for i := range in.Environments {
		in.Environments[i] = strings.TrimSpace(in.Environments[i])
	}
	if err := validator.Struct(in); err != nil {
		return nil, err
	}

	progress, branch, err := s.openBranch(ctx, userID)
	if err != nil {
		return nil, err
	}

	var envs []*models.Environment
	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		if envs, err = s.environments.ReplaceAllTx(ctx, tx, branch.ID, in.Environments); err != nil {
			return err
		}
		progress.CurrentStep = StepCompletion
		progress.UpdatedAt = time.Now().Unix()
		return s.progress.WithTx(tx).Upsert(ctx, progress)
	})
	if err != nil {
		return nil, err
	}
	return envs, nil
}

// Complete marks the wizard branch as set up once it has at least one
// department and one environment. The flag is never cleared.
func (s *Service) Complete(ctx context.Context, userID string) (*CompletionStatus, error) {
	progress, err := s.GetProgress(ctx, userID)
	if err != nil {
		return nil, err
	}
	if progress.BranchID == nil {
		return nil, apperrors.New(apperrors.KindPreconditionFailed, "Branch step is not completed")
	}

	branch, err := s.branches.GetByID(ctx, *progress.BranchID)
	if err != nil {
		return nil, err
	}
	if branch == nil {
		return nil, apperrors.NotFound("Branch")
	}

	nDepts, err := s.deptRepo.CountByBranch(ctx, branch.ID)
	if err != nil {
		return nil, err
	}
	if nDepts == 0 {
		return nil, apperrors.New(apperrors.KindPreconditionFailed, "At least one department is required")
	}
	nEnvs, err := s.envRepo.CountByBranch(ctx, branch.ID)
	if err != nil {
		return nil, err
	}
	if nEnvs == 0 {
		return nil, apperrors.New(apperrors.KindPreconditionFailed, "At least one environment is required")
	}

	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := s.branches.WithTx(tx).MarkWizardCompleted(ctx, branch.ID); err != nil {
			return err
		}
		progress.CurrentStep = StepCompletion
		progress.UpdatedAt = time.Now().Unix()
		return s.progress.WithTx(tx).Upsert(ctx, progress)
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("user_id", userID).Str("branch_id", branch.ID).Msg("Wizard completed")
	return s.GetCompletionStatus(ctx, userID)
}

// openBranch returns the wizard's branch, rejecting commits before the
// branch step and after completion.
func (s *Service) openBranch(ctx context.Context, userID string) (*models.WizardProgress, *models.Branch, error) {
	progress, err := s.GetProgress(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	if progress.BranchID == nil {
		return nil, nil, apperrors.New(apperrors.KindPreconditionFailed, "Branch step is not completed")
	}
	branch, err := s.branches.GetByID(ctx, *progress.BranchID)
	if err != nil {
		return nil, nil, err
	}
	if branch == nil {
		return nil, nil, apperrors.NotFound("Branch")
	}
	if branch.WizardCompleted {
		return nil, nil, apperrors.New(apperrors.KindPreconditionFailed, "Wizard already completed for this branch")
	}
	return progress, branch, nil
}

func (s *Service) requireUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperrors.NotFound("User")
	}
	return user, nil
}
