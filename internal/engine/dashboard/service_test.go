package dashboard

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"checkops/internal/platform/database/dbtest"
)

func TestOverview(t *testing.T) {
	db := dbtest.New(t)
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	day := func(offset int) int64 { return now.AddDate(0, 0, offset).Unix() }

	for _, q := range []string{
		`INSERT INTO users (id, email, password_hash, name, created_at, updated_at) VALUES ('usr_1', 'a@x.com', 'h', 'A', 0, 0)`,
		`INSERT INTO organizations (id, name, created_at, updated_at) VALUES ('org_1', 'Acme', 0, 0)`,
		`INSERT INTO branches (id, organization_id, name, created_at, updated_at) VALUES ('br_1', 'org_1', 'Main', 0, 0)`,
		`INSERT INTO departments (id, branch_id, name, created_at, updated_at) VALUES ('dep_1', 'br_1', 'Ops', 0, 0)`,
		`INSERT INTO environments (id, branch_id, name, position, created_at, updated_at) VALUES ('env_1', 'br_1', 'Hall', 1, 0, 0)`,
		`INSERT INTO environments (id, branch_id, name, position, created_at, updated_at) VALUES ('env_2', 'br_1', 'Kitchen', 2, 0, 0)`,
		`INSERT INTO checklists (id, branch_id, environment_id, name, frequency, scheduled_time, actived, created_at, updated_at) VALUES ('chk_1', 'br_1', 'env_1', 'Open', 'DAILY', '08:00', 1, 0, 0)`,
		`INSERT INTO checklists (id, branch_id, environment_id, name, frequency, scheduled_time, actived, created_at, updated_at) VALUES ('chk_2', 'br_1', 'env_1', 'Close', 'DAILY', '22:00', 0, 0, 0)`,
		`INSERT INTO checklist_sections (id, checklist_id, name, position) VALUES ('sec_1', 'chk_1', 'S', 0)`,
		`INSERT INTO checklist_items (id, checklist_id, section_id, description, response_type_id, position) VALUES ('itm_1', 'chk_1', 'sec_1', 'a', 'rt_yes_no', 0)`,
		`INSERT INTO checklist_items (id, checklist_id, section_id, description, response_type_id, position) VALUES ('itm_2', 'chk_1', 'sec_1', 'b', 'rt_yes_no', 1)`,
	} {
		_, err := db.Exec(q)
		require.NoError(t, err)
	}

	execs := []struct {
		id       string
		at       int64
		positive []bool
	}{
		{"exe_today", day(0), []bool{true, true}},
		{"exe_yesterday", day(-1), []bool{true, false}},
		{"exe_old", day(-30), []bool{false, false}},
	}
	for _, e := range execs {
		_, err := db.Exec(`INSERT INTO checklist_executions (id, checklist_id, user_id, status, created_at) VALUES (?, 'chk_1', 'usr_1', 'COMPLETED', ?)`, e.id, e.at)
		require.NoError(t, err)
		for i, p := range e.positive {
			_, err := db.Exec(`INSERT INTO execution_item_results (id, execution_id, item_id, is_positive) VALUES (?, ?, ?, ?)`,
				e.id+"_"+string(rune('a'+i)), e.id, []string{"itm_1", "itm_2"}[i], p)
			require.NoError(t, err)
		}
	}

	svc := NewService(NewRepository(db))
	svc.now = func() time.Time { return now }

	o, err := svc.Overview(context.Background(), "br_1", 0)
	require.NoError(t, err)
	assert.Equal(t, 7, o.Days)
	assert.Equal(t, ChecklistCounts{Total: 2, Active: 1}, o.Checklists)
	assert.Equal(t, 1, o.Departments)
	assert.Equal(t, 2, o.Environments)
	assert.Equal(t, 2, o.Executions)
	assert.InDelta(t, 0.75, o.PositiveRatio, 1e-9)

	require.Len(t, o.Daily, 7)
	assert.Equal(t, "2026-03-04", o.Daily[0].Date)
	assert.Equal(t, DailyStat{Date: "2026-03-09", Executions: 1}, o.Daily[5])
	assert.Equal(t, DailyStat{Date: "2026-03-10", Executions: 1}, o.Daily[6])

	wide, err := svc.Overview(context.Background(), "br_1", 365)
	require.NoError(t, err)
	assert.Equal(t, 90, wide.Days)
	assert.Equal(t, 3, wide.Executions)

	empty, err := svc.Overview(context.Background(), "br_other", 7)
	require.NoError(t, err)
	assert.Zero(t, empty.PositiveRatio)
	assert.Zero(t, empty.Checklists.Total)
}
