package middleware

import (
	"context"
	"net/http"

	apiContext "checkops/internal/api/context"
	"checkops/internal/engine/branches"
	"checkops/internal/pkg/errors"
	"checkops/internal/platform/auth"
)

// BranchMiddleware resolves the caller's selected branch and places its
// scope in the request context. It must run after AuthMiddleware.
type BranchMiddleware struct {
	branches *branches.Service
}

func NewBranchMiddleware(branchSvc *branches.Service) *BranchMiddleware {
	return &BranchMiddleware{branches: branchSvc}
}

func (m *BranchMiddleware) Handle(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := r.Context().Value(apiContext.Claims).(*auth.Claims)
		if !ok {
			errors.WriteError(w, http.StatusUnauthorized, errors.ErrCodeUnauthorized, "No authentication claims found", nil)
			return
		}

		scope, err := m.branches.ResolveScope(r.Context(), claims.UserID, claims.BranchID)
		if err != nil {
			errors.Write(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), apiContext.Scope, scope)
		next(w, r.WithContext(ctx))
	}
}
