package auth

import (
	"testing"
	"time"

	"checkops/internal/platform/config"
	"checkops/internal/platform/models"
)

func testService() *TokenService {
	return NewTokenService(config.JWTConfig{
		Secret:          "test-secret",
		AccessTokenTTL:  time.Hour,
		RefreshTokenTTL: 24 * time.Hour,
	})
}

func TestAccessTokenCarriesBranch(t *testing.T) {
	s := testService()
	org, branch := "org_1", "br_1"
	user := &models.User{ID: "usr_1", Email: "a@x.com", Name: "A", OrganizationID: &org, SelectedBranchID: &branch}

	token, err := s.GenerateAccessToken(user)
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}

	claims, err := s.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if claims.UserID != "usr_1" || claims.BranchID != "br_1" || claims.OrganizationID != "org_1" {
		t.Errorf("claims = %+v", claims)
	}
	if claims.ProfileID != "" {
		t.Errorf("ProfileID = %q, want empty", claims.ProfileID)
	}
}

func TestRefreshTokenIsNotAnAccessToken(t *testing.T) {
	s := testService()

	refresh, err := s.GenerateRefreshToken("usr_1")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := s.ValidateToken(refresh); err == nil {
		t.Error("ValidateToken(refresh) succeeded, want error")
	}

	uid, err := s.ValidateRefreshToken(refresh)
	if err != nil || uid != "usr_1" {
		t.Errorf("ValidateRefreshToken() = %q, %v", uid, err)
	}
}

func TestValidateTokenWrongSecret(t *testing.T) {
	token, _ := testService().GenerateAccessToken(&models.User{ID: "usr_1"})

	other := NewTokenService(config.JWTConfig{Secret: "other", AccessTokenTTL: time.Hour})
	if _, err := other.ValidateToken(token); err == nil {
		t.Error("expected signature error")
	}
}

func TestResetTokenHash(t *testing.T) {
	token, hash, err := NewResetToken()
	if err != nil {
		t.Fatal(err)
	}
	if len(token) != 64 || HashResetToken(token) != hash {
		t.Errorf("token %q hash mismatch", token)
	}
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("pw123456")
	if err != nil {
		t.Fatal(err)
	}
	if !CheckPassword(hash, "pw123456") || CheckPassword(hash, "wrong") {
		t.Error("CheckPassword mismatch")
	}
}
