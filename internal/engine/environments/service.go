package environments

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	apperrors "checkops/internal/pkg/errors"
	"checkops/internal/platform/database"
	"checkops/internal/platform/models"
)

// maxCreateAttempts bounds retries when two creates race for the same
// appended position.
const maxCreateAttempts = 3

type Service struct {
	db   *sql.DB
	repo *Repository
}

func NewService(db *sql.DB) *Service {
	return &Service{db: db, repo: NewRepository(db)}
}

type CreateInput struct {
	Name     string `json:"name"`
	Position *int   `json:"position,omitempty"`
}

type UpdateInput struct {
	Name     *string `json:"name,omitempty"`
	Position *int    `json:"position,omitempty"`
}

func (s *Service) List(ctx context.Context, branchID string) ([]*models.Environment, error) {
	return s.repo.ListByBranch(ctx, branchID)
}

// Create appends the environment after the branch's last position unless an
// explicit free position is given.
func (s *Service) Create(ctx context.Context, branchID string, in CreateInput) (*models.Environment, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperrors.Validation("", "name")
	}
	if in.Position != nil && *in.Position < 1 {
		return nil, apperrors.Validation("Position must be at least 1", "position")
	}

	now := time.Now().Unix()
	env := &models.Environment{
		ID:        "env_" + uuid.NewString(),
		BranchID:  branchID,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if in.Position != nil {
		env.Position = *in.Position
		if err := s.repo.Create(ctx, env); err != nil {
			if database.IsUniqueViolation(err) {
				return nil, apperrors.Newf(apperrors.KindConflict, "Position %d is already taken", env.Position)
			}
			return nil, err
		}
		return env, nil
	}

	for attempt := 1; ; attempt++ {
		pos, err := s.repo.NextPosition(ctx, branchID)
		if err != nil {
			return nil, err
		}
		env.Position = pos

		err = s.repo.Create(ctx, env)
		if err == nil {
			return env, nil
		}
		if !database.IsUniqueViolation(err) || attempt == maxCreateAttempts {
			return nil, err
		}
		log.Debug().Str("branch_id", branchID).Int("position", pos).Msg("Environment position raced, retrying")
	}
}

func (s *Service) Update(ctx context.Context, branchID, id string, in UpdateInput) (*models.Environment, error) {
	env, err := s.repo.GetByID(ctx, branchID, id)
	if err != nil {
		return nil, err
	}
	if env == nil {
		return nil, apperrors.NotFound("Environment")
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, apperrors.Validation("", "name")
		}
		env.Name = name
	}
	if in.Position != nil {
		if *in.Position < 1 {
			return nil, apperrors.Validation("Position must be at least 1", "position")
		}
		taken, err := s.repo.PositionTaken(ctx, branchID, *in.Position, env.ID)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, apperrors.Newf(apperrors.KindConflict, "Position %d is already taken", *in.Position)
		}
		env.Position = *in.Position
	}

	env.UpdatedAt = time.Now().Unix()
	if err := s.repo.Update(ctx, env); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, apperrors.Newf(apperrors.KindConflict, "Position %d is already taken", env.Position)
		}
		return nil, err
	}
	return env, nil
}

func (s *Service) Delete(ctx context.Context, branchID, id string) error {
	ok, err := s.repo.Delete(ctx, branchID, id)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.NotFound("Environment")
	}
	return nil
}

// ReplaceAllTx recreates the branch's environments from names with
// positions 1..n inside tx.
func (s *Service) ReplaceAllTx(ctx context.Context, tx *sql.Tx, branchID string, names []string) ([]*models.Environment, error) {
	repo := s.repo.WithTx(tx)
	if err := repo.DeleteByBranch(ctx, branchID); err != nil {
		return nil, err
	}

	now := time.Now().Unix()
	envs := make([]*models.Environment, 0, len(names))
	for i, name := range names {
		env := &models.Environment{
			ID:        "env_" + uuid.NewString(),
			BranchID:  branchID,
			Name:      strings.TrimSpace(name),
			Position:  i + 1,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := repo.Create(ctx, env); err != nil {
			return nil, err
		}
		envs = append(envs, env)
	}
	return envs, nil
}
