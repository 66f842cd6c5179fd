package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migrate applies every embedded migration not yet recorded in
// schema_migrations, in file name order, each in its own transaction.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at INTEGER NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	applied, err := appliedVersions(ctx, db)
	if err != nil {
		return err
	}

	names, err := fs.Glob(migrationFiles, "migrations/*.sql")
	if err != nil {
		return err
	}
	sort.Strings(names)

	for _, name := range names {
		version := strings.TrimSuffix(strings.TrimPrefix(name, "migrations/"), ".sql")
		if applied[version] {
			continue
		}

		content, err := migrationFiles.ReadFile(name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}

		err = WithTx(ctx, db, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, string(content)); err != nil {
				return err
			}
			_, err := tx.ExecContext(ctx,
				`INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)`,
				version, time.Now().Unix())
			return err
		})
		if err != nil {
			return fmt.Errorf("apply migration %s: %w", version, err)
		}

		log.Info().Str("version", version).Msg("Applied migration")
	}

	return nil
}

func appliedVersions(ctx context.Context, db *sql.DB) (map[string]bool, error) {
	rows, err := db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		applied[v] = true
	}
	return applied, rows.Err()
}

type seedPlan struct {
	id             string
	name           string
	price          string
	includedUnits  int
	maxUsers       int
	maxChecklists  *int
	extraUserPrice string
	extraUnitPrice string
	isCustom       bool
}

func intPtr(i int) *int { return &i }

var defaultPlans = []seedPlan{
	{id: "plan_free", name: "Free", price: "0", includedUnits: 1, maxUsers: 2, maxChecklists: intPtr(3), extraUserPrice: "0", extraUnitPrice: "0"},
	{id: "plan_basic", name: "Basic", price: "49.90", includedUnits: 1, maxUsers: 10, maxChecklists: intPtr(30), extraUserPrice: "4.90", extraUnitPrice: "29.90"},
	{id: "plan_pro", name: "Pro", price: "99.90", includedUnits: 3, maxUsers: 50, maxChecklists: nil, extraUserPrice: "3.90", extraUnitPrice: "24.90"},
	{id: "plan_enterprise", name: "Enterprise", price: "0", includedUnits: 0, maxUsers: 0, maxChecklists: nil, extraUserPrice: "0", extraUnitPrice: "0", isCustom: true},
}

// SeedPlans upserts the Free plan and the default paid plans by name.
func SeedPlans(ctx context.Context, db *sql.DB) error {
	now := time.Now().Unix()
	return WithTx(ctx, db, func(tx *sql.Tx) error {
		for _, p := range defaultPlans {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO plans (id, name, price, included_units, max_users, max_checklists, extra_user_price, extra_unit_price, is_custom, created_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT(name) DO UPDATE SET
					price = excluded.price,
					included_units = excluded.included_units,
					max_users = excluded.max_users,
					max_checklists = excluded.max_checklists,
					extra_user_price = excluded.extra_user_price,
					extra_unit_price = excluded.extra_unit_price,
					is_custom = excluded.is_custom
			`, p.id, p.name, p.price, p.includedUnits, p.maxUsers, p.maxChecklists, p.extraUserPrice, p.extraUnitPrice, BoolToInt(p.isCustom), now)
			if err != nil {
				return fmt.Errorf("seed plan %s: %w", p.name, err)
			}
		}
		return nil
	})
}
