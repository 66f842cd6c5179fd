package checklists

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"checkops/internal/engine/branches"
	apperrors "checkops/internal/pkg/errors"
	"checkops/internal/pkg/validator"
	"checkops/internal/platform/database"
	"checkops/internal/platform/models"
	"checkops/internal/platform/repositories"
)

const (
	defaultExecutionLimit = 50
	maxExecutionLimit     = 200
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
	Name          string         `json:"name" validate:"required"`
	Description   string         `json:"description"`
	Frequency     string         `json:"frequency" validate:"required,oneof=DAILY WEEKLY MONTHLY CUSTOM"`
	Time          string         `json:"time" validate:"required,datetime=15:04"`
	DaysOfWeek    []int          `json:"daysOfWeek" validate:"required,min=1,dive,min=0,max=6"`
	Responsibles  []string       `json:"responsibles" validate:"required,min=1,dive,required"`
	Sections      []SectionInput `json:"sections" validate:"required,min=1,dive"`
	EnvironmentID string         `json:"environmentId" validate:"required"`
}

type SectionInput struct {
	Name  string      `json:"name" validate:"required"`
	Items []ItemInput `json:"items" validate:"required,min=1,dive"`
}

type ItemInput struct {
	Description string `json:"description" validate:"required"`
	// ResponseTypeID accepts either the response type id or its code.
	ResponseTypeID string  `json:"responseTypeId" validate:"required"`
	DepartmentID   *string `json:"departmentId"`
}

type ExecutionInput struct {
	ChecklistID string            `json:"checklistId" validate:"required"`
	Status      string            `json:"status" validate:"omitempty,oneof=IN_PROGRESS COMPLETED"`
	CompletedAt *int64            `json:"completedAt"`
	Items       []ItemResultInput `json:"items" validate:"required,min=1,dive"`
}

type ItemResultInput struct {
	ItemID     string `json:"itemId" validate:"required"`
	IsPositive bool   `json:"isPositive"`
	Note       string `json:"note"`
}

func (s *Service) ResponseTypes(ctx context.Context) ([]*models.ResponseType, error) {
	return s.repo.ListResponseTypes(ctx)
}

func (s *Service) List(ctx context.Context, branchID string) ([]*models.ChecklistSummary, error) {
	return s.repo.ListSummaries(ctx, branchID)
}

// Get returns the checklist with its sections, items and responsibles.
func (s *Service) Get(ctx context.Context, branchID, id string) (*models.Checklist, error) {
	c, err := s.repo.GetByID(ctx, branchID, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, apperrors.NotFound("Checklist")
	}

	sections, err := s.repo.ListSections(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.ListItems(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	bySection := make(map[string]*models.ChecklistSection, len(sections))
	for _, sec := range sections {
		bySection[sec.ID] = sec
	}
	for _, it := range items {
		if sec, ok := bySection[it.SectionID]; ok {
			sec.Items = append(sec.Items, it)
		}
	}
	c.Sections = sections

	c.Responsibles, err = s.repo.ListResponsibles(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) Create(ctx context.Context, scope branches.Scope, userID string, in CreateInput) (*models.Checklist, error) {
	normalize(&in)
	if err := validator.Struct(in); err != nil {
		return nil, err
	}
	if err := s.checkReferences(ctx, scope, &in); err != nil {
		return nil, err
	}

	now := time.Now().Unix()
	c := &models.Checklist{
		ID:            "chk_" + uuid.NewString(),
		BranchID:      scope.BranchID,
		EnvironmentID: in.EnvironmentID,
		Name:          in.Name,
		Description:   in.Description,
		Frequency:     in.Frequency,
		ScheduledTime: in.Time,
		DaysOfWeek:    in.DaysOfWeek,
		Actived:       true,
		CreatedAt:     now,
		UpdatedAt:     now,
		Responsibles:  in.Responsibles,
	}
	if userID != "" {
		c.CreatedBy = &userID
	}

	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Create(ctx, c); err != nil {
			return err
		}
		for i, secIn := range in.Sections {
			sec := &models.ChecklistSection{
				ID:          "sec_" + uuid.NewString(),
				ChecklistID: c.ID,
				Name:        secIn.Name,
				Position:    i,
				Items:       make([]*models.ChecklistItem, 0, len(secIn.Items)),
			}
			if err := repo.CreateSection(ctx, sec); err != nil {
				return err
			}
			for j, itIn := range secIn.Items {
				it := &models.ChecklistItem{
					ID:             "itm_" + uuid.NewString(),
					ChecklistID:    c.ID,
					SectionID:      sec.ID,
					Description:    itIn.Description,
					ResponseTypeID: itIn.ResponseTypeID,
					DepartmentID:   itIn.DepartmentID,
					Position:       j,
				}
				if err := repo.CreateItem(ctx, it); err != nil {
					return err
				}
				sec.Items = append(sec.Items, it)
			}
			c.Sections = append(c.Sections, sec)
		}
		for _, uid := range in.Responsibles {
			if err := repo.AddResponsible(ctx, c.ID, uid); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("checklist_id", c.ID).Str("branch_id", scope.BranchID).Msg("Checklist created")
	return c, nil
}

// checkReferences verifies that the environment, departments and response
// types referenced by in exist in scope, and that every responsible is a
// member of the organization. Response type codes are rewritten to ids.
func (s *Service) checkReferences(ctx context.Context, scope branches.Scope, in *CreateInput) error {
	ok, err := s.repo.EnvironmentInBranch(ctx, scope.BranchID, in.EnvironmentID)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.Validation("Environment does not belong to the selected branch", "environmentId")
	}

	members, err := s.repo.MemberIDs(ctx, scope.OrganizationID, in.Responsibles)
	if err != nil {
		return err
	}
	for _, uid := range in.Responsibles {
		if !members[uid] {
			return apperrors.Validation("Responsible is not a member of the organization: "+uid, "responsibles")
		}
	}

	types, err := s.repo.ResolveResponseTypes(ctx)
	if err != nil {
		return err
	}
	depts, err := s.repo.DepartmentIDs(ctx, scope.BranchID)
	if err != nil {
		return err
	}

	var invalid []string
	for i := range in.Sections {
		for j := range in.Sections[i].Items {
			it := &in.Sections[i].Items[j]
			id, ok := types[it.ResponseTypeID]
			if !ok {
				invalid = append(invalid, fmt.Sprintf("sections[%d].items[%d].responseTypeId", i, j))
			} else {
				it.ResponseTypeID = id
			}
			if it.DepartmentID != nil && !depts[*it.DepartmentID] {
				invalid = append(invalid, fmt.Sprintf("sections[%d].items[%d].departmentId", i, j))
			}
		}
	}
	if len(invalid) > 0 {
		return apperrors.Validation("Invalid fields: "+strings.Join(invalid, ", "), invalid...)
	}
	return nil
}

// ToggleActive flips the checklist's active flag and returns the result.
func (s *Service) ToggleActive(ctx context.Context, branchID, id string) (*models.Checklist, error) {
	ok, err := s.repo.ToggleActive(ctx, branchID, id, time.Now().Unix())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.NotFound("Checklist")
	}
	c, err := s.repo.GetByID(ctx, branchID, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, apperrors.NotFound("Checklist")
	}
	return c, nil
}

func (s *Service) Delete(ctx context.Context, branchID, id string) error {
	ok, err := s.repo.Delete(ctx, branchID, id)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.NotFound("Checklist")
	}
	log.Info().Str("checklist_id", id).Str("branch_id", branchID).Msg("Checklist deleted")
	return nil
}

// RecordExecution stores one run of a checklist. Every submitted item must
// be one of the checklist's items and appear at most once.
func (s *Service) RecordExecution(ctx context.Context, branchID, userID string, in ExecutionInput) (*models.ChecklistExecution, error) {
	if err := validator.Struct(in); err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperrors.New(apperrors.KindUnauthorized, "User not found")
	}

	c, err := s.repo.GetByID(ctx, branchID, in.ChecklistID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, apperrors.NotFound("Checklist")
	}

	known, err := s.repo.ItemIDs(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	var badIDs, badFields []string
	seen := make(map[string]bool, len(in.Items))
	for i, it := range in.Items {
		if !known[it.ItemID] || seen[it.ItemID] {
			badIDs = append(badIDs, it.ItemID)
			badFields = append(badFields, fmt.Sprintf("items[%d].itemId", i))
		}
		seen[it.ItemID] = true
	}
	if len(badIDs) > 0 {
		return nil, apperrors.Validation("Items do not belong to checklist: "+strings.Join(badIDs, ", "), badFields...)
	}

	now := time.Now().Unix()
	exec := &models.ChecklistExecution{
		ID:          "exe_" + uuid.NewString(),
		ChecklistID: c.ID,
		UserID:      user.ID,
		Status:      in.Status,
		CompletedAt: in.CompletedAt,
		CreatedAt:   now,
		Items:       make([]*models.ItemResult, 0, len(in.Items)),
	}
	if exec.Status == "" {
		exec.Status = models.ExecutionCompleted
	}
	if exec.Status == models.ExecutionCompleted && exec.CompletedAt == nil {
		exec.CompletedAt = &now
	}

	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		repo := s.repo.WithTx(tx)
		if err := repo.CreateExecution(ctx, exec); err != nil {
			return err
		}
		for _, it := range in.Items {
			res := &models.ItemResult{
				ID:          "res_" + uuid.NewString(),
				ExecutionID: exec.ID,
				ItemID:      it.ItemID,
				IsPositive:  it.IsPositive,
				Note:        strings.TrimSpace(it.Note),
			}
			if err := repo.CreateItemResult(ctx, res); err != nil {
				return err
			}
			exec.Items = append(exec.Items, res)
			if res.IsPositive {
				exec.PositiveCount++
			} else {
				exec.NegativeCount++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("execution_id", exec.ID).
		Str("checklist_id", c.ID).
		Str("user_id", user.ID).
		Str("status", exec.Status).
		Msg("Checklist execution recorded")
	return exec, nil
}

func (s *Service) ListExecutions(ctx context.Context, branchID, checklistID string, limit int) ([]*models.ChecklistExecution, error) {
	if limit <= 0 {
		limit = defaultExecutionLimit
	}
	if limit > maxExecutionLimit {
		limit = maxExecutionLimit
	}
	return s.repo.ListExecutions(ctx, branchID, checklistID, limit)
}

func (s *Service) GetExecution(ctx context.Context, branchID, id string) (*models.ChecklistExecution, error) {
	e, err := s.repo.GetExecution(ctx, branchID, id)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, apperrors.NotFound("Execution")
	}
	e.Items, err = s.repo.ListItemResults(ctx, e.ID)
	if err != nil {
		return nil, err
	}
	return e, nil
}

func normalize(in *CreateInput) {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.Frequency = strings.ToUpper(strings.TrimSpace(in.Frequency))
	in.Time = strings.TrimSpace(in.Time)
	in.EnvironmentID = strings.TrimSpace(in.EnvironmentID)

	if in.Responsibles != nil {
		seen := make(map[string]bool, len(in.Responsibles))
		ids := make([]string, 0, len(in.Responsibles))
		for _, id := range in.Responsibles {
			id = strings.TrimSpace(id)
			if id == "" || seen[id] {
				continue
			}
			seen[id] = true
			ids = append(ids, id)
		}
		in.Responsibles = ids
	}

	for i := range in.Sections {
		in.Sections[i].Name = strings.TrimSpace(in.Sections[i].Name)
		for j := range in.Sections[i].Items {
			it := &in.Sections[i].Items[j]
			it.Description = strings.TrimSpace(it.Description)
			it.ResponseTypeID = strings.TrimSpace(it.ResponseTypeID)
			if it.DepartmentID != nil && strings.TrimSpace(*it.DepartmentID) == "" {
				it.DepartmentID = nil
			}
		}
	}
}
