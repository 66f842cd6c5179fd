package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"checkops/internal/api/handlers"
	"checkops/internal/api/middleware"
	"checkops/internal/engine/accounts"
	"checkops/internal/engine/billing"
	"checkops/internal/engine/branches"
	"checkops/internal/engine/checklists"
	"checkops/internal/engine/dashboard"
	"checkops/internal/engine/departments"
	"checkops/internal/engine/environments"
	"checkops/internal/engine/wizard"
	"checkops/internal/pkg/mailer"
	"checkops/internal/platform/audit"
	"checkops/internal/platform/auth"
	"checkops/internal/platform/config"
	"checkops/internal/platform/database/dbtest"
	"checkops/internal/platform/repositories"
)

// stubProvider never verifies events; checkout is not exercised here.
type stubProvider struct{}

func (stubProvider) CreateCustomer(ctx context.Context, email, name string) (string, error) {
	return "cus_test", nil
}

func (stubProvider) CreateCheckoutSession(ctx context.Context, req billing.CheckoutRequest) (*billing.ProviderSession, error) {
	return &billing.ProviderSession{ID: "cs_test", URL: "https://pay.example/cs_test"}, nil
}

func (stubProvider) VerifyEvent(payload []byte, signature string) (*billing.Event, error) {
	return nil, errors.New("bad signature")
}

func (stubProvider) DecodeEvent(payload []byte) (*billing.Event, error) {
	return nil, errors.New("unsupported")
}

type testServer struct {
	handler http.Handler
	audit   *audit.Logger
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db := dbtest.New(t)

	jwtCfg := config.JWTConfig{Secret: "test-secret", AccessTokenTTL: time.Hour, RefreshTokenTTL: 24 * time.Hour}
	sessionCfg := config.SessionConfig{CookieName: "checkops_session"}
	tokens := auth.NewTokenService(jwtCfg)
	auditLogger := audit.NewLogger(repositories.NewLoginLogRepository(db))
	cookies := handlers.NewSessionCookies(sessionCfg, jwtCfg)

	accountSvc := accounts.NewService(db, tokens, auditLogger, mailer.LogMailer{}, accounts.Config{})
	branchSvc := branches.NewService(db, tokens)
	deptSvc := departments.NewService(db)
	envSvc := environments.NewService(db)
	billingSvc := billing.NewService(db, stubProvider{}, billing.Config{})

	handler := NewRouter(&Dependencies{
		AuthHandler:        handlers.NewAuthHandler(accountSvc, cookies),
		UserHandler:        handlers.NewUserHandler(accountSvc, billingSvc),
		AuditHandler:       handlers.NewAuditHandler(auditLogger),
		WizardHandler:      handlers.NewWizardHandler(wizard.NewService(db, deptSvc, envSvc)),
		BranchHandler:      handlers.NewBranchHandler(branchSvc, cookies),
		DepartmentHandler:  handlers.NewDepartmentHandler(deptSvc),
		EnvironmentHandler: handlers.NewEnvironmentHandler(envSvc),
		ChecklistHandler:   handlers.NewChecklistHandler(checklists.NewService(db), "https://app.example.com"),
		BillingHandler:     handlers.NewBillingHandler(billingSvc),
		WebhookHandler:     handlers.NewWebhookHandler(billingSvc),
		DashboardHandler:   handlers.NewDashboardHandler(dashboard.NewService(dashboard.NewRepository(db))),
		HealthHandler:      handlers.NewHealthHandler(db),
		AuthMiddleware:     middleware.NewAuthMiddleware(tokens, sessionCfg.CookieName),
		BranchMiddleware:   middleware.NewBranchMiddleware(branchSvc),
		AuthRateLimiter:    middleware.NewRateLimiter(1000),
	})
	return &testServer{handler: handler, audit: auditLogger}
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), dst), rr.Body.String())
}

func register(t *testing.T, s *testServer, email string) (string, string) {
	t.Helper()
	rr := s.do(t, "POST", "/api/auth/register", "", map[string]string{
		"email": email, "password": "password123", "name": "Owner",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var session struct {
		User struct {
			ID string `json:"id"`
		} `json:"user"`
		AccessToken string `json:"accessToken"`
	}
	decode(t, rr, &session)
	return session.User.ID, session.AccessToken
}

func TestOnboardingToChecklist(t *testing.T) {
	s := newTestServer(t)
	userID, token := register(t, s, "owner@example.com")

	rr := s.do(t, "GET", "/api/checklists", token, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code, "no branch selected yet")

	rr = s.do(t, "POST", "/api/wizard/organization", token, map[string]interface{}{
		"name": "Acme Foods", "employeeCount": 12, "country": "BR", "city": "Recife", "nicheId": "nch_food",
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = s.do(t, "POST", "/api/wizard/branch", token, map[string]string{"name": "Downtown"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = s.do(t, "POST", "/api/wizard/departments", token, map[string]interface{}{
		"departments": []map[string]string{{"name": "Kitchen"}},
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = s.do(t, "POST", "/api/wizard/environments", token, map[string]interface{}{
		"environments": []string{"Cold room"},
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var envs []struct {
		ID string `json:"id"`
	}
	decode(t, rr, &envs)
	require.Len(t, envs, 1)

	rr = s.do(t, "POST", "/api/wizard/complete", token, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = s.do(t, "POST", "/api/checklists", token, map[string]interface{}{
		"name":          "Opening",
		"frequency":     "DAILY",
		"time":          "08:00",
		"daysOfWeek":    []int{1, 2, 3},
		"responsibles":  []string{userID},
		"environmentId": envs[0].ID,
		"sections": []map[string]interface{}{{
			"name":  "Temperatures",
			"items": []map[string]string{{"description": "Freezer below -18C", "responseTypeId": "YES_NO"}},
		}},
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var created struct {
		ID string `json:"id"`
	}
	decode(t, rr, &created)

	rr = s.do(t, "GET", "/api/checklists/"+created.ID+"/qr", token, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "image/png", rr.Header().Get("Content-Type"))

	rr = s.do(t, "GET", "/api/checklists", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var list []map[string]interface{}
	decode(t, rr, &list)
	assert.Len(t, list, 1)

	rr = s.do(t, "GET", "/api/checklists/executions", token, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.JSONEq(t, "[]", rr.Body.String())

	rr = s.do(t, "GET", "/api/dashboard/overview?days=7", token, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
}

func TestSessionCookieAndLogout(t *testing.T) {
	s := newTestServer(t)
	rr := s.do(t, "POST", "/api/auth/register", "", map[string]string{
		"email": "cookie@example.com", "password": "password123",
	})
	require.Equal(t, http.StatusCreated, rr.Code)

	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "checkops_session", cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)

	req := httptest.NewRequest("GET", "/api/user/me", nil)
	req.AddCookie(cookies[0])
	me := httptest.NewRecorder()
	s.handler.ServeHTTP(me, req)
	assert.Equal(t, http.StatusOK, me.Code, me.Body.String())

	rr = s.do(t, "POST", "/api/auth/logout", "", nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	require.Len(t, rr.Result().Cookies(), 1)
	assert.Equal(t, -1, rr.Result().Cookies()[0].MaxAge)
}

func TestLoginWritesAuditTrail(t *testing.T) {
	s := newTestServer(t)
	_, token := register(t, s, "audit@example.com")

	rr := s.do(t, "POST", "/api/auth/login", "", map[string]string{
		"email": "audit@example.com", "password": "password123",
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	s.audit.Wait()

	rr = s.do(t, "GET", "/api/user/login-logs", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var logs []map[string]interface{}
	decode(t, rr, &logs)
	assert.Len(t, logs, 1)

	rr = s.do(t, "POST", "/api/auth/login", "", map[string]string{
		"email": "audit@example.com", "password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestPlanRoutes(t *testing.T) {
	s := newTestServer(t)
	_, token := register(t, s, "plans@example.com")

	rr := s.do(t, "GET", "/api/plans", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var plans []map[string]interface{}
	decode(t, rr, &plans)
	assert.Len(t, plans, 4)

	rr = s.do(t, "GET", "/api/plans/plan_basic", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = s.do(t, "GET", "/api/plans/plan_missing", "", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = s.do(t, "GET", "/api/plans/current", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = s.do(t, "GET", "/api/plans/current", token, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var current struct {
		Plan struct {
			Name string `json:"name"`
		} `json:"plan"`
	}
	decode(t, rr, &current)
	assert.Equal(t, "Free", current.Plan.Name)

	rr = s.do(t, "GET", "/api/user/payments", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, "[]", rr.Body.String())
}

func TestCheckoutNeedsCustomer(t *testing.T) {
	s := newTestServer(t)
	_, token := register(t, s, "buyer@example.com")

	rr := s.do(t, "POST", "/api/checkout", token, map[string]string{"planId": "plan_basic"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = s.do(t, "POST", "/api/stripe/customer", token, nil)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = s.do(t, "POST", "/api/checkout", token, map[string]string{"planId": "plan_basic"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = s.do(t, "GET", "/api/checkout/sessions", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var sessions []map[string]interface{}
	decode(t, rr, &sessions)
	require.Len(t, sessions, 1)
	assert.Equal(t, "pending", sessions[0]["status"])
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest("POST", "/api/stripe/webhook", bytes.NewBufferString(`{"id":"evt_1"}`))
	req.Header.Set("Stripe-Signature", "t=1,v1=bad")
	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestUnauthenticatedAndUnknownRoutes(t *testing.T) {
	s := newTestServer(t)

	assert.Equal(t, http.StatusUnauthorized, s.do(t, "GET", "/api/checklists", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(t, "GET", "/api/user/me", "bogus", nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, "GET", "/api/nothing-here", "", nil).Code)
	assert.Equal(t, http.StatusOK, s.do(t, "GET", "/health", "", nil).Code)
}
