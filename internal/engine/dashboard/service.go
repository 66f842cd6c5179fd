package dashboard

import (
	"context"
	"time"
)

const (
	defaultDays = 7
	maxDays     = 90
	dayLayout   = "2006-01-02"
)

type ChecklistCounts struct {
	Total  int `json:"total"`
	Active int `json:"active"`
}

type Overview struct {
	BranchID      string          `json:"branchId"`
	Days          int             `json:"days"`
	Checklists    ChecklistCounts `json:"checklists"`
	Departments   int             `json:"departments"`
	Environments  int             `json:"environments"`
	Executions    int             `json:"executions"`
	PositiveRatio float64         `json:"positiveRatio"`
	Daily         []DailyStat     `json:"daily"`
}

type Service struct {
	repo *Repository
	now  func() time.Time
}

func NewService(repo *Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Overview summarizes the branch over the last days UTC days, today
// included. Days without executions are reported with a zero count.
func (s *Service) Overview(ctx context.Context, branchID string, days int) (*Overview, error) {
	if days <= 0 {
		days = defaultDays
	}
	if days > maxDays {
		days = maxDays
	}

	today := s.now().UTC().Truncate(24 * time.Hour)
	start := today.AddDate(0, 0, -(days - 1))

	o := &Overview{BranchID: branchID, Days: days}

	var err error
	if o.Checklists.Total, o.Checklists.Active, err = s.repo.CountChecklists(ctx, branchID); err != nil {
		return nil, err
	}
	if o.Departments, err = s.repo.CountDepartments(ctx, branchID); err != nil {
		return nil, err
	}
	if o.Environments, err = s.repo.CountEnvironments(ctx, branchID); err != nil {
		return nil, err
	}

	positive, total, err := s.repo.ResultTotals(ctx, branchID, start.Unix())
	if err != nil {
		return nil, err
	}
	if total > 0 {
		o.PositiveRatio = float64(positive) / float64(total)
	}

	perDay, err := s.repo.DailyExecutions(ctx, branchID, start.Unix())
	if err != nil {
		return nil, err
	}
	o.Daily = make([]DailyStat, 0, days)
	for d := start; !d.After(today); d = d.AddDate(0, 0, 1) {
		key := d.Format(dayLayout)
		o.Daily = append(o.Daily, DailyStat{Date: key, Executions: perDay[key]})
		o.Executions += perDay[key]
	}
	return o, nil
}
