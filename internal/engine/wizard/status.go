package wizard

import (
	"context"

	"checkops/internal/platform/models"
)

type CompletionStatus struct {
	Completed bool                `json:"completed"`
	Data      *CompletionSnapshot `json:"data"`
}

type CompletionSnapshot struct {
	Organization OrganizationSnapshot  `json:"organization"`
	Branch       BranchSnapshot        `json:"branch"`
	Departments  []DepartmentSnapshot  `json:"departments"`
	Environments []EnvironmentSnapshot `json:"environments"`
}

type OrganizationSnapshot struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	EmployeeCount int     `json:"employeeCount"`
	Country       string  `json:"country"`
	City          string  `json:"city"`
	NicheID       *string `json:"nicheId,omitempty"`
}

type BranchSnapshot struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type DepartmentSnapshot struct {
	Name         string                `json:"name"`
	Responsibles []ResponsibleSnapshot `json:"responsibles"`
}

type ResponsibleSnapshot struct {
	Email  string `json:"email"`
	Status string `json:"status"`
}

type EnvironmentSnapshot struct {
	Name     string `json:"name"`
	Position int    `json:"position"`
}

// GetCompletionStatus projects the first completed branch across the user's
// organizations. It reads only; nothing here is stored.
func (s *Service) GetCompletionStatus(ctx context.Context, userID string) (*CompletionStatus, error) {
	branch, err := s.branches.FirstCompletedForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if branch == nil {
		return &CompletionStatus{Completed: false}, nil
	}

	org, err := s.orgs.GetByID(ctx, branch.OrganizationID)
	if err != nil {
		return nil, err
	}
	if org == nil {
		return &CompletionStatus{Completed: false}, nil
	}

	depts, err := s.deptRepo.ListByBranch(ctx, branch.ID)
	if err != nil {
		return nil, err
	}
	envs, err := s.envRepo.ListByBranch(ctx, branch.ID)
	if err != nil {
		return nil, err
	}

	snap := &CompletionSnapshot{
		Organization: OrganizationSnapshot{
			ID:            org.ID,
			Name:          org.Name,
			EmployeeCount: org.EmployeeCount,
			Country:       org.Country,
			City:          org.City,
			NicheID:       org.NicheID,
		},
		Branch:       BranchSnapshot{ID: branch.ID, Name: branch.Name},
		Departments:  make([]DepartmentSnapshot, 0, len(depts)),
		Environments: make([]EnvironmentSnapshot, 0, len(envs)),
	}
	for _, d := range depts {
		snap.Departments = append(snap.Departments, departmentSnapshot(d))
	}
	for _, e := range envs {
		snap.Environments = append(snap.Environments, EnvironmentSnapshot{Name: e.Name, Position: e.Position})
	}

	return &CompletionStatus{Completed: true, Data: snap}, nil
}

func departmentSnapshot(d *models.Department) DepartmentSnapshot {
	ds := DepartmentSnapshot{Name: d.Name, Responsibles: make([]ResponsibleSnapshot, 0, len(d.Responsibles))}
	for _, r := range d.Responsibles {
		ds.Responsibles = append(ds.Responsibles, ResponsibleSnapshot{Email: r.Email, Status: r.Status})
	}
	return ds
}
