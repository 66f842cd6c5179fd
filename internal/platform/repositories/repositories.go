package repositories

import (
	"context"
	"database/sql"
	"time"

	"checkops/internal/platform/database"
	"checkops/internal/platform/models"
)

type scanner interface {
	Scan(dest ...interface{}) error
}

type OrganizationRepository struct {
	db database.DBTX
}

func NewOrganizationRepository(db database.DBTX) *OrganizationRepository {
	return &OrganizationRepository{db: db}
}

func (r *OrganizationRepository) WithTx(tx *sql.Tx) *OrganizationRepository {
	return &OrganizationRepository{db: tx}
}

func (r *OrganizationRepository) Create(ctx context.Context, org *models.Organization) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO organizations (id, name, country, city, employee_count, niche_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, org.ID, org.Name, org.Country, org.City, org.EmployeeCount, org.NicheID, org.CreatedAt, org.UpdatedAt)
	return err
}

func (r *OrganizationRepository) Update(ctx context.Context, org *models.Organization) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE organizations SET name = ?, country = ?, city = ?, employee_count = ?, niche_id = ?, updated_at = ?
		WHERE id = ?
	`, org.Name, org.Country, org.City, org.EmployeeCount, org.NicheID, org.UpdatedAt, org.ID)
	return err
}

func (r *OrganizationRepository) GetByID(ctx context.Context, id string) (*models.Organization, error) {
	org := &models.Organization{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, country, city, employee_count, niche_id, created_at, updated_at
		FROM organizations WHERE id = ?
	`, id).Scan(&org.ID, &org.Name, &org.Country, &org.City, &org.EmployeeCount, &org.NicheID, &org.CreatedAt, &org.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return org, nil
}

// ListForUser returns the organizations the user is a member of, each with
// the user's per-organization profile, oldest membership first.
func (r *OrganizationRepository) ListForUser(ctx context.Context, userID string) ([]*models.Organization, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT o.id, o.name, o.country, o.city, o.employee_count, o.niche_id, o.created_at, o.updated_at,
		       p.id, p.name, p.is_admin, p.created_at
		FROM user_organizations uo
		JOIN organizations o ON o.id = uo.organization_id
		LEFT JOIN profiles p ON p.id = uo.profile_id
		WHERE uo.user_id = ?
		ORDER BY uo.created_at ASC, o.id ASC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orgs []*models.Organization
	for rows.Next() {
		org := &models.Organization{}
		var pID, pName sql.NullString
		var pAdmin sql.NullBool
		var pCreated sql.NullInt64
		if err := rows.Scan(&org.ID, &org.Name, &org.Country, &org.City, &org.EmployeeCount, &org.NicheID, &org.CreatedAt, &org.UpdatedAt,
			&pID, &pName, &pAdmin, &pCreated); err != nil {
			return nil, err
		}
		if pID.Valid {
			org.Profile = &models.Profile{ID: pID.String, Name: pName.String, IsAdmin: pAdmin.Bool, CreatedAt: pCreated.Int64}
		}
		orgs = append(orgs, org)
	}
	return orgs, rows.Err()
}

type MembershipRepository struct {
	db database.DBTX
}

func NewMembershipRepository(db database.DBTX) *MembershipRepository {
	return &MembershipRepository{db: db}
}

func (r *MembershipRepository) WithTx(tx *sql.Tx) *MembershipRepository {
	return &MembershipRepository{db: tx}
}

// Create adds the membership; an existing (user, organization) pair is kept.
func (r *MembershipRepository) Create(ctx context.Context, m *models.Membership) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO user_organizations (user_id, organization_id, profile_id, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, organization_id) DO NOTHING
	`, m.UserID, m.OrganizationID, m.ProfileID, m.CreatedAt)
	return err
}

func (r *MembershipRepository) Exists(ctx context.Context, userID, orgID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM user_organizations WHERE user_id = ? AND organization_id = ?)`,
		userID, orgID).Scan(&exists)
	return exists, err
}

type ProfileRepository struct {
	db database.DBTX
}

func NewProfileRepository(db database.DBTX) *ProfileRepository {
	return &ProfileRepository{db: db}
}

func (r *ProfileRepository) WithTx(tx *sql.Tx) *ProfileRepository {
	return &ProfileRepository{db: tx}
}

func (r *ProfileRepository) Create(ctx context.Context, p *models.Profile) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO profiles (id, name, is_admin, created_at) VALUES (?, ?, ?, ?)`,
		p.ID, p.Name, p.IsAdmin, p.CreatedAt)
	return err
}

func (r *ProfileRepository) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	p := &models.Profile{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, is_admin, created_at FROM profiles WHERE id = ?`, id,
	).Scan(&p.ID, &p.Name, &p.IsAdmin, &p.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

type UserRepository struct {
	db database.DBTX
}

func NewUserRepository(db database.DBTX) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) WithTx(tx *sql.Tx) *UserRepository {
	return &UserRepository{db: tx}
}

const userColumns = `id, email, password_hash, name, profile_id, organization_id, selected_branch_id, stripe_customer_id, last_login_at, created_at, updated_at`

func scanUser(row scanner) (*models.User, error) {
	u := &models.User{}
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.ProfileID, &u.OrganizationID,
		&u.SelectedBranchID, &u.StripeCustomerID, &u.LastLoginAt, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return u, nil
}

func (r *UserRepository) Create(ctx context.Context, u *models.User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, email, password_hash, name, profile_id, organization_id, selected_branch_id, stripe_customer_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, u.ID, u.Email, u.PasswordHash, u.Name, u.ProfileID, u.OrganizationID, u.SelectedBranchID, u.StripeCustomerID, u.CreatedAt, u.UpdatedAt)
	return err
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email))
}

func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE email = ?)`, email).Scan(&exists)
	return exists, err
}

func (r *UserRepository) UpdateLastLogin(ctx context.Context, userID string, timestamp int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET last_login_at = ? WHERE id = ?`, timestamp, userID)
	return err
}

func (r *UserRepository) UpdatePassword(ctx context.Context, userID, hash string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		hash, time.Now().Unix(), userID)
	return err
}

func (r *UserRepository) SetOrganization(ctx context.Context, userID, orgID string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET organization_id = ?, updated_at = ? WHERE id = ?`,
		orgID, time.Now().Unix(), userID)
	return err
}

func (r *UserRepository) SetSelectedBranch(ctx context.Context, userID, branchID string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET selected_branch_id = ?, updated_at = ? WHERE id = ?`,
		branchID, time.Now().Unix(), userID)
	return err
}

// SetStripeCustomerID links the customer only when the user has none yet and
// reports whether a row was updated.
func (r *UserRepository) SetStripeCustomerID(ctx context.Context, userID, customerID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET stripe_customer_id = ?, updated_at = ?
		WHERE id = ? AND stripe_customer_id IS NULL
	`, customerID, time.Now().Unix(), userID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func (r *UserRepository) GetIDsByEmails(ctx context.Context, emails []string) (map[string]string, error) {
	ids := make(map[string]string, len(emails))
	for _, email := range emails {
		var id string
		err := r.db.QueryRowContext(ctx, `SELECT id FROM users WHERE email = ?`, email).Scan(&id)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return nil, err
		}
		ids[email] = id
	}
	return ids, nil
}
