package accounts

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	apperrors "checkops/internal/pkg/errors"
	"checkops/internal/pkg/mailer"
	"checkops/internal/pkg/validator"
	"checkops/internal/platform/audit"
	"checkops/internal/platform/auth"
	"checkops/internal/platform/database"
	"checkops/internal/platform/models"
	"checkops/internal/platform/repositories"
)

const (
	minPasswordLength  = 8
	defaultProfileName = "Administrator"
)

type Config struct {
	FreePlanName  string
	ResetTokenTTL time.Duration
	ResetURL      string
}

type Service struct {
	db       *sql.DB
	users    *repositories.UserRepository
	profiles *repositories.ProfileRepository
	orgs     *repositories.OrganizationRepository
	branches *repositories.BranchRepository
	plans    *repositories.PlanRepository
	subs     *repositories.SubscriptionRepository
	resets   *repositories.PasswordResetRepository
	tokens   *auth.TokenService
	audit    *audit.Logger
	mailer   mailer.Mailer
	cfg      Config
}

func NewService(db *sql.DB, tokens *auth.TokenService, auditLogger *audit.Logger, m mailer.Mailer, cfg Config) *Service {
	if cfg.FreePlanName == "" {
		cfg.FreePlanName = "Free"
	}
	if cfg.ResetTokenTTL <= 0 {
		cfg.ResetTokenTTL = time.Hour
	}
	return &Service{
		db:       db,
		users:    repositories.NewUserRepository(db),
		profiles: repositories.NewProfileRepository(db),
		orgs:     repositories.NewOrganizationRepository(db),
		branches: repositories.NewBranchRepository(db),
		plans:    repositories.NewPlanRepository(db),
		subs:     repositories.NewSubscriptionRepository(db),
		resets:   repositories.NewPasswordResetRepository(db),
		tokens:   tokens,
		audit:    auditLogger,
		mailer:   m,
		cfg:      cfg,
	}
}

type Session struct {
	User         *models.User `json:"user"`
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
}

type RegisterInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Name     string `json:"name"`
}

// Register creates the user with an administrator profile and an ACTIVE
// subscription to the free plan, all in one transaction.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	in.Email = normalizeEmail(in.Email)
	if err := validator.Struct(in); err != nil {
		return nil, err
	}
	if len(in.Password) < minPasswordLength {
		return nil, apperrors.Validation(fmt.Sprintf("Password must be at least %d characters", minPasswordLength), "password")
	}

	exists, err := s.users.ExistsByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperrors.New(apperrors.KindConflict, "Email already registered")
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = strings.SplitN(in.Email, "@", 2)[0]
	}

	now := time.Now().Unix()
	profileID := "prf_" + uuid.NewString()
	user := &models.User{
		ID:           "usr_" + uuid.NewString(),
		Email:        in.Email,
		PasswordHash: hash,
		Name:         name,
		ProfileID:    &profileID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		free, err := s.plans.WithTx(tx).GetByName(ctx, s.cfg.FreePlanName)
		if err != nil {
			return err
		}
		if free == nil {
			return apperrors.Newf(apperrors.KindDataIntegrity, "%s plan is missing", s.cfg.FreePlanName)
		}

		profile := &models.Profile{ID: profileID, Name: defaultProfileName, IsAdmin: true, CreatedAt: now}
		if err := s.profiles.WithTx(tx).Create(ctx, profile); err != nil {
			return err
		}

		if err := s.users.WithTx(tx).Create(ctx, user); err != nil {
			if database.IsUniqueViolation(err) {
				return apperrors.New(apperrors.KindConflict, "Email already registered")
			}
			return err
		}

		return s.subs.WithTx(tx).Create(ctx, &models.Subscription{
			ID:        "sub_" + uuid.NewString(),
			UserID:    user.ID,
			PlanID:    free.ID,
			Status:    models.SubscriptionActive,
			StartsAt:  now,
			CreatedAt: now,
			UpdatedAt: now,
		})
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("user_id", user.ID).Msg("User registered")
	return s.issueSession(user)
}

type LoginInput struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (s *Service) Authenticate(ctx context.Context, in LoginInput, ip, userAgent string) (*Session, error) {
	in.Email = normalizeEmail(in.Email)
	if err := validator.Struct(in); err != nil {
		return nil, err
	}

	user, err := s.users.GetByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if user == nil || !auth.CheckPassword(user.PasswordHash, in.Password) {
		return nil, apperrors.New(apperrors.KindUnauthorized, "Invalid credentials")
	}

	now := time.Now().Unix()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		log.Warn().Err(err).Str("user_id", user.ID).Msg("Failed to update last login")
	} else {
		user.LastLoginAt = &now
	}
	s.audit.LogLogin(user.ID, ip, userAgent)

	return s.issueSession(user)
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	if refreshToken == "" {
		return nil, apperrors.Validation("", "refreshToken")
	}

	userID, err := s.tokens.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, apperrors.New(apperrors.KindUnauthorized, "Invalid refresh token")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperrors.New(apperrors.KindUnauthorized, "User not found")
	}

	return s.issueSession(user)
}

// RequestPasswordReset mails a reset link when the email is registered. It
// succeeds for unknown emails too.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return apperrors.Validation("", "email")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user == nil {
		log.Debug().Str("email", email).Msg("Password reset requested for unknown email")
		return nil
	}

	token, hash, err := auth.NewResetToken()
	if err != nil {
		return err
	}

	now := time.Now()
	err = s.resets.Create(ctx, &models.PasswordResetToken{
		ID:        "prt_" + uuid.NewString(),
		UserID:    user.ID,
		TokenHash: hash,
		ExpiresAt: now.Add(s.cfg.ResetTokenTTL).Unix(),
		CreatedAt: now.Unix(),
	})
	if err != nil {
		return err
	}

	msg := mailer.Message{
		To:      user.Email,
		Subject: "Reset your password",
		HTML:    resetEmailHTML(user.Name, s.resetLink(token), s.cfg.ResetTokenTTL),
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("Failed to send password reset email")
	}
	return nil
}

type ResetPasswordInput struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (s *Service) ResetPassword(ctx context.Context, in ResetPasswordInput) error {
	if err := validator.Struct(in); err != nil {
		return err
	}
	if len(in.Password) < minPasswordLength {
		return apperrors.Validation(fmt.Sprintf("Password must be at least %d characters", minPasswordLength), "password")
	}

	now := time.Now().Unix()
	token, err := s.resets.GetUsable(ctx, auth.HashResetToken(in.Token), now)
	if err != nil {
		return err
	}
	if token == nil {
		return apperrors.New(apperrors.KindNotFound, "Invalid or expired reset token")
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return err
	}

	return database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		used, err := s.resets.WithTx(tx).MarkUsed(ctx, token.ID, now)
		if err != nil {
			return err
		}
		if !used {
			return apperrors.New(apperrors.KindNotFound, "Invalid or expired reset token")
		}
		return s.users.WithTx(tx).UpdatePassword(ctx, token.UserID, hash)
	})
}

type Me struct {
	User         *models.User         `json:"user"`
	Profile      *models.Profile      `json:"profile,omitempty"`
	Organization *models.Organization `json:"organization,omitempty"`
	Branch       *models.Branch       `json:"branch,omitempty"`
}

func (s *Service) Me(ctx context.Context, userID string) (*Me, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperrors.NotFound("User")
	}

	me := &Me{User: user}
	if user.ProfileID != nil {
		if me.Profile, err = s.profiles.GetByID(ctx, *user.ProfileID); err != nil {
			return nil, err
		}
	}
	if user.OrganizationID != nil {
		if me.Organization, err = s.orgs.GetByID(ctx, *user.OrganizationID); err != nil {
			return nil, err
		}
	}
	if user.SelectedBranchID != nil {
		if me.Branch, err = s.branches.GetByID(ctx, *user.SelectedBranchID); err != nil {
			return nil, err
		}
	}
	return me, nil
}

func (s *Service) issueSession(user *models.User) (*Session, error) {
	access, err := s.tokens.GenerateAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}
	refresh, err := s.tokens.GenerateRefreshToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}
	return &Session{User: user, AccessToken: access, RefreshToken: refresh}, nil
}

// PurgeResetTokens deletes used and expired password reset tokens.
func (s *Service) PurgeResetTokens(ctx context.Context, now time.Time) (int64, error) {
	return s.resets.DeleteStale(ctx, now.Unix())
}

func (s *Service) resetLink(token string) string {
	sep := "?"
	if strings.Contains(s.cfg.ResetURL, "?") {
		sep = "&"
	}
	return s.cfg.ResetURL + sep + "token=" + token
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
