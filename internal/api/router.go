package api

import (
	"context"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"

	apiContext "checkops/internal/api/context"
	"checkops/internal/api/handlers"
	"checkops/internal/api/middleware"
	"checkops/internal/pkg/errors"
)

type Dependencies struct {
	AuthHandler        *handlers.AuthHandler
	UserHandler        *handlers.UserHandler
	AuditHandler       *handlers.AuditHandler
	WizardHandler      *handlers.WizardHandler
	BranchHandler      *handlers.BranchHandler
	DepartmentHandler  *handlers.DepartmentHandler
	EnvironmentHandler *handlers.EnvironmentHandler
	ChecklistHandler   *handlers.ChecklistHandler
	BillingHandler     *handlers.BillingHandler
	WebhookHandler     *handlers.WebhookHandler
	DashboardHandler   *handlers.DashboardHandler
	HealthHandler      *handlers.HealthHandler
	AuthMiddleware     *middleware.AuthMiddleware
	BranchMiddleware   *middleware.BranchMiddleware
	AuthRateLimiter    *middleware.RateLimiter
}

func NewRouter(deps *Dependencies) http.Handler {
	router := httprouter.New()
	router.NotFound = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, "Route not found", nil)
	})

	authMid := deps.AuthMiddleware
	branchMid := deps.BranchMiddleware
	limit := deps.AuthRateLimiter

	router.GET("/health", wrap(deps.HealthHandler.Check))

	// Authentication routes
	router.POST("/api/auth/register", chain(deps.AuthHandler.Register, limit.Handle))
	router.POST("/api/auth/login", chain(deps.AuthHandler.Login, limit.Handle))
	router.POST("/api/auth/refresh", chain(deps.AuthHandler.Refresh, limit.Handle))
	router.POST("/api/auth/logout", wrap(deps.AuthHandler.Logout))
	router.POST("/api/auth/forgot-password", chain(deps.AuthHandler.ForgotPassword, limit.Handle))
	router.POST("/api/auth/reset-password", chain(deps.AuthHandler.ResetPassword, limit.Handle))

	// User
	router.GET("/api/user/me", chain(deps.UserHandler.Me, authMid.Handle))
	router.GET("/api/user/payments", chain(deps.UserHandler.Payments, authMid.Handle))
	router.GET("/api/user/login-logs", chain(deps.AuditHandler.LoginLogs, authMid.Handle))

	// Onboarding wizard
	router.GET("/api/wizard/steps", wrap(deps.WizardHandler.Steps))
	router.GET("/api/wizard/niches", wrap(deps.WizardHandler.Niches))
	router.GET("/api/wizard/status", chain(deps.WizardHandler.Status, authMid.Handle))
	router.GET("/api/wizard/progress", chain(deps.WizardHandler.GetProgress, authMid.Handle))
	router.PUT("/api/wizard/progress", chain(deps.WizardHandler.SaveProgress, authMid.Handle))
	router.POST("/api/wizard/organization", chain(deps.WizardHandler.Organization, authMid.Handle))
	router.POST("/api/wizard/branch", chain(deps.WizardHandler.Branch, authMid.Handle))
	router.POST("/api/wizard/departments", chain(deps.WizardHandler.Departments, authMid.Handle))
	router.POST("/api/wizard/environments", chain(deps.WizardHandler.Environments, authMid.Handle))
	router.POST("/api/wizard/complete", chain(deps.WizardHandler.Complete, authMid.Handle))

	// Branches
	router.GET("/api/branches/organization", chain(deps.BranchHandler.ListOrganizations, authMid.Handle))
	router.POST("/api/branches/select", chain(deps.BranchHandler.Select, authMid.Handle))
	router.POST("/api/branches", chain(deps.BranchHandler.Create, authMid.Handle, branchMid.Handle))

	// Departments
	router.GET("/api/departments", chain(deps.DepartmentHandler.List, authMid.Handle, branchMid.Handle))
	router.POST("/api/departments", chain(deps.DepartmentHandler.Create, authMid.Handle, branchMid.Handle))
	router.GET("/api/departments/:id", chain(deps.DepartmentHandler.Get, authMid.Handle, branchMid.Handle))
	router.PATCH("/api/departments/:id", chain(deps.DepartmentHandler.Rename, authMid.Handle, branchMid.Handle))
	router.DELETE("/api/departments/:id", chain(deps.DepartmentHandler.Delete, authMid.Handle, branchMid.Handle))
	router.POST("/api/departments/:id/responsibles",
		chain(deps.DepartmentHandler.AddResponsible, authMid.Handle, branchMid.Handle))
	router.DELETE("/api/departments/:id/responsibles/:rid",
		chain(deps.DepartmentHandler.RemoveResponsible, authMid.Handle, branchMid.Handle))

	// Environments
	router.GET("/api/environments", chain(deps.EnvironmentHandler.List, authMid.Handle, branchMid.Handle))
	router.POST("/api/environments", chain(deps.EnvironmentHandler.Create, authMid.Handle, branchMid.Handle))
	router.PATCH("/api/environments/:id", chain(deps.EnvironmentHandler.Update, authMid.Handle, branchMid.Handle))
	router.DELETE("/api/environments/:id", chain(deps.EnvironmentHandler.Delete, authMid.Handle, branchMid.Handle))

	// Checklists and executions. GET /api/checklists/executions is served by
	// the /:id route.
	router.GET("/api/response-types", chain(deps.ChecklistHandler.ResponseTypes, authMid.Handle))
	router.GET("/api/checklists", chain(deps.ChecklistHandler.List, authMid.Handle, branchMid.Handle))
	router.POST("/api/checklists", chain(deps.ChecklistHandler.Create, authMid.Handle, branchMid.Handle))
	router.POST("/api/checklists/executions",
		chain(deps.ChecklistHandler.RecordExecution, authMid.Handle, branchMid.Handle))
	router.GET("/api/checklists/:id", chain(deps.ChecklistHandler.Get, authMid.Handle, branchMid.Handle))
	router.GET("/api/checklists/:id/qr", chain(deps.ChecklistHandler.QRCode, authMid.Handle, branchMid.Handle))
	router.DELETE("/api/checklists/:id", chain(deps.ChecklistHandler.Delete, authMid.Handle, branchMid.Handle))
	router.PATCH("/api/checklists/:id/toggle-status",
		chain(deps.ChecklistHandler.ToggleStatus, authMid.Handle, branchMid.Handle))
	router.GET("/api/executions/:id", chain(deps.ChecklistHandler.GetExecution, authMid.Handle, branchMid.Handle))

	// Dashboard
	router.GET("/api/dashboard/overview", chain(deps.DashboardHandler.Overview, authMid.Handle, branchMid.Handle))

	// Billing. GET /api/plans/current is served by the /:id route.
	router.GET("/api/plans", wrap(deps.BillingHandler.ListPlans))
	router.GET("/api/plans/:id", chain(deps.BillingHandler.GetPlan, authMid.Optional))
	router.POST("/api/stripe/customer", chain(deps.BillingHandler.CreateCustomer, authMid.Handle))
	router.POST("/api/checkout", chain(deps.BillingHandler.Checkout, authMid.Handle))
	router.GET("/api/checkout/sessions", chain(deps.BillingHandler.CheckoutSessions, authMid.Handle))
	router.POST("/api/stripe/webhook", wrap(deps.WebhookHandler.Stripe))

	return withRequestLogging(router)
}

// withRequestLogging attaches a request-scoped logger and writes one access
// line per request.
func withRequestLogging(next http.Handler) http.Handler {
	h := hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		var evt *zerolog.Event
		if status >= http.StatusInternalServerError {
			evt = hlog.FromRequest(r).Error()
		} else {
			evt = hlog.FromRequest(r).Info()
		}
		evt.Str("method", r.Method).
			Stringer("url", r.URL).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("request")
	})(next)
	h = hlog.RequestIDHandler("request_id", "X-Request-Id")(h)
	h = hlog.UserAgentHandler("user_agent")(h)
	h = hlog.RemoteAddrHandler("ip")(h)
	return hlog.NewHandler(log.Logger)(h)
}

// Helper function to chain middlewares
func chain(handler http.HandlerFunc, middlewares ...func(http.HandlerFunc) http.HandlerFunc) httprouter.Handle {
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}
	return wrap(handler)
}

// Convert http.HandlerFunc to httprouter.Handle
func wrap(handler http.HandlerFunc) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		ctx := context.WithValue(r.Context(), apiContext.Params, ps)
		handler(w, r.WithContext(ctx))
	}
}
