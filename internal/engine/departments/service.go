package departments

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "checkops/internal/pkg/errors"
	"checkops/internal/pkg/validator"
	"checkops/internal/platform/database"
	"checkops/internal/platform/models"
	"checkops/internal/platform/repositories"
)

type Service struct {
	db    *sql.DB
	repo  *Repository
	users *repositories.UserRepository
}

func NewService(db *sql.DB) *Service {
	return &Service{
		db:    db,
		repo:  NewRepository(db),
		users: repositories.NewUserRepository(db),
	}
}

type CreateInput struct {
	Name         string   `json:"name" validate:"required"`
	Responsibles []string `json:"responsibles" validate:"omitempty,dive,email"`
}

// Normalize trims the name and lowercases each responsible email in place.
func (in *CreateInput) Normalize() {
	in.Name = strings.TrimSpace(in.Name)
	for i, e := range in.Responsibles {
		in.Responsibles[i] = normalizeEmail(e)
	}
}

func (s *Service) List(ctx context.Context, branchID string) ([]*models.Department, error) {
	return s.repo.ListByBranch(ctx, branchID)
}

func (s *Service) Get(ctx context.Context, branchID, id string) (*models.Department, error) {
	d, err := s.repo.GetByID(ctx, branchID, id)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, apperrors.NotFound("Department")
	}
	return d, nil
}

func (s *Service) Create(ctx context.Context, branchID string, in CreateInput) (*models.Department, error) {
	in.Normalize()
	if err := validator.Struct(in); err != nil {
		return nil, err
	}

	var dept *models.Department
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		dept, err = s.createTx(ctx, tx, branchID, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	return dept, nil
}

// ReplaceAllTx deletes the branch's departments and creates the given ones
// inside tx.
func (s *Service) ReplaceAllTx(ctx context.Context, tx *sql.Tx, branchID string, inputs []CreateInput) ([]*models.Department, error) {
	if err := s.repo.WithTx(tx).DeleteByBranch(ctx, branchID); err != nil {
		return nil, err
	}

	depts := make([]*models.Department, 0, len(inputs))
	for _, in := range inputs {
		d, err := s.createTx(ctx, tx, branchID, in)
		if err != nil {
			return nil, err
		}
		depts = append(depts, d)
	}
	return depts, nil
}

func (s *Service) createTx(ctx context.Context, tx *sql.Tx, branchID string, in CreateInput) (*models.Department, error) {
	now := time.Now().Unix()
	dept := &models.Department{
		ID:        "dep_" + uuid.NewString(),
		BranchID:  branchID,
		Name:      strings.TrimSpace(in.Name),
		CreatedAt: now,
		UpdatedAt: now,
	}

	repo := s.repo.WithTx(tx)
	if err := repo.Create(ctx, dept); err != nil {
		return nil, err
	}

	emails := dedupeEmails(in.Responsibles)
	userIDs, err := s.users.WithTx(tx).GetIDsByEmails(ctx, emails)
	if err != nil {
		return nil, err
	}

	dept.Responsibles = make([]*models.DepartmentResponsible, 0, len(emails))
	for _, email := range emails {
		dr := newResponsible(dept.ID, email, userIDs, now)
		if err := repo.AddResponsible(ctx, dr); err != nil {
			return nil, err
		}
		dept.Responsibles = append(dept.Responsibles, dr)
	}
	return dept, nil
}

func (s *Service) Rename(ctx context.Context, branchID, id, name string) (*models.Department, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.Validation("", "name")
	}
	ok, err := s.repo.Rename(ctx, branchID, id, name, time.Now().Unix())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.NotFound("Department")
	}
	return s.Get(ctx, branchID, id)
}

func (s *Service) Delete(ctx context.Context, branchID, id string) error {
	ok, err := s.repo.Delete(ctx, branchID, id)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.NotFound("Department")
	}
	return nil
}

func (s *Service) AddResponsible(ctx context.Context, branchID, departmentID, email string) (*models.DepartmentResponsible, error) {
	email = normalizeEmail(email)
	if !validator.IsEmail(email) {
		return nil, apperrors.Validation("Invalid fields: email", "email")
	}

	dept, err := s.repo.GetByID(ctx, branchID, departmentID)
	if err != nil {
		return nil, err
	}
	if dept == nil {
		return nil, apperrors.NotFound("Department")
	}

	userIDs, err := s.users.GetIDsByEmails(ctx, []string{email})
	if err != nil {
		return nil, err
	}

	dr := newResponsible(dept.ID, email, userIDs, time.Now().Unix())
	if err := s.repo.AddResponsible(ctx, dr); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, apperrors.New(apperrors.KindConflict, "Responsible already assigned to department")
		}
		return nil, err
	}
	return dr, nil
}

func (s *Service) RemoveResponsible(ctx context.Context, branchID, departmentID, responsibleID string) error {
	dept, err := s.repo.GetByID(ctx, branchID, departmentID)
	if err != nil {
		return err
	}
	if dept == nil {
		return apperrors.NotFound("Department")
	}
	ok, err := s.repo.RemoveResponsible(ctx, departmentID, responsibleID)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.NotFound("Responsible")
	}
	return nil
}

func newResponsible(departmentID, email string, userIDs map[string]string, now int64) *models.DepartmentResponsible {
	dr := &models.DepartmentResponsible{
		ID:           "rsp_" + uuid.NewString(),
		DepartmentID: departmentID,
		Email:        email,
		Status:       models.ResponsiblePending,
		CreatedAt:    now,
	}
	if id, ok := userIDs[email]; ok {
		dr.UserID = &id
		dr.Status = models.ResponsibleActive
	}
	return dr
}

func dedupeEmails(emails []string) []string {
	seen := make(map[string]bool, len(emails))
	out := make([]string, 0, len(emails))
	for _, e := range emails {
		e = normalizeEmail(e)
		if e == "" || seen[e] {
			continue
		}
		seen[e] = true
		out = append(out, e)
	}
	return out
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
