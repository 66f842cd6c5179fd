package models

const (
	ResponsiblePending = "PENDING"
	ResponsibleActive  = "ACTIVE"
)

type Profile struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	IsAdmin   bool   `json:"isAdmin"`
	CreatedAt int64  `json:"createdAt"`
}

type Niche struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Organization struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Country       string  `json:"country"`
	City          string  `json:"city"`
	EmployeeCount int     `json:"employeeCount"`
	NicheID       *string `json:"nicheId,omitempty"`
	CreatedAt     int64   `json:"createdAt"`
	UpdatedAt     int64   `json:"updatedAt"`

	Branches []*Branch `json:"branches,omitempty"`
	Profile  *Profile  `json:"profile,omitempty"`
}

type User struct {
	ID               string  `json:"id"`
	Email            string  `json:"email"`
	PasswordHash     string  `json:"-"`
	Name             string  `json:"name"`
	ProfileID        *string `json:"profileId,omitempty"`
	OrganizationID   *string `json:"organizationId,omitempty"`
	SelectedBranchID *string `json:"selectedBranchId,omitempty"`
	StripeCustomerID *string `json:"stripeCustomerId,omitempty"`
	LastLoginAt      *int64  `json:"lastLoginAt,omitempty"`
	CreatedAt        int64   `json:"createdAt"`
	UpdatedAt        int64   `json:"updatedAt"`
}

// Membership links a user to an organization with a per-organization profile.
type Membership struct {
	UserID         string  `json:"userId"`
	OrganizationID string  `json:"organizationId"`
	ProfileID      *string `json:"profileId,omitempty"`
	CreatedAt      int64   `json:"createdAt"`
}

type Branch struct {
	ID              string `json:"id"`
	OrganizationID  string `json:"organizationId"`
	Name            string `json:"name"`
	WizardCompleted bool   `json:"wizardCompleted"`
	Position        int    `json:"position"`
	CreatedAt       int64  `json:"createdAt"`
	UpdatedAt       int64  `json:"updatedAt"`
}

type Department struct {
	ID        string `json:"id"`
	BranchID  string `json:"branchId"`
	Name      string `json:"name"`
	CreatedAt int64  `json:"createdAt"`
	UpdatedAt int64  `json:"updatedAt"`

	Responsibles []*DepartmentResponsible `json:"responsibles"`
}

type DepartmentResponsible struct {
	ID           string  `json:"id"`
	DepartmentID string  `json:"departmentId"`
	UserID       *string `json:"userId,omitempty"`
	Email        string  `json:"email"`
	Status       string  `json:"status"`
	CreatedAt    int64   `json:"createdAt"`
}

type Environment struct {
	ID        string `json:"id"`
	BranchID  string `json:"branchId"`
	Name      string `json:"name"`
	Position  int    `json:"position"`
	CreatedAt int64  `json:"createdAt"`
	UpdatedAt int64  `json:"updatedAt"`
}

type LoginLog struct {
	ID        string `json:"id"`
	UserID    string `json:"userId"`
	IPAddress string `json:"ipAddress"`
	UserAgent string `json:"userAgent"`
	OS        string `json:"os"`
	Browser   string `json:"browser"`
	Device    string `json:"device"`
	CreatedAt int64  `json:"createdAt"`
}

type PasswordResetToken struct {
	ID        string `json:"id"`
	UserID    string `json:"userId"`
	TokenHash string `json:"-"`
	ExpiresAt int64  `json:"expiresAt"`
	UsedAt    *int64 `json:"usedAt,omitempty"`
	CreatedAt int64  `json:"createdAt"`
}
