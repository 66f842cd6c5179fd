package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	apiContext "checkops/internal/api/context"
	"checkops/internal/engine/branches"
	"checkops/internal/platform/auth"
)

var branchColumns = []string{"id", "organization_id", "name", "wizard_completed", "position", "created_at", "updated_at"}

func withClaims(req *http.Request, claims *auth.Claims) *http.Request {
	return req.WithContext(context.WithValue(req.Context(), apiContext.Claims, claims))
}

func TestBranchMiddleware(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	middleware := NewBranchMiddleware(branches.NewService(db, nil))

	t.Run("Member branch", func(t *testing.T) {
		req := withClaims(httptest.NewRequest("GET", "/", nil), &auth.Claims{UserID: "usr_1", BranchID: "br_1"})

		mock.ExpectQuery("SELECT (.+) FROM branches b JOIN user_organizations uo").
			WithArgs("br_1", "usr_1").
			WillReturnRows(sqlmock.NewRows(branchColumns).AddRow("br_1", "org_1", "Main", true, 0, 1, 1))

		rr := httptest.NewRecorder()
		handler := middleware.Handle(func(w http.ResponseWriter, r *http.Request) {
			scope := r.Context().Value(apiContext.Scope).(*branches.Scope)
			if scope.BranchID != "br_1" || scope.OrganizationID != "org_1" {
				t.Errorf("unexpected scope %+v", scope)
			}
			w.WriteHeader(http.StatusOK)
		})
		handler.ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Errorf("handler returned wrong status code: got %v want %v", rr.Code, http.StatusOK)
		}
	})

	t.Run("Foreign branch", func(t *testing.T) {
		req := withClaims(httptest.NewRequest("GET", "/", nil), &auth.Claims{UserID: "usr_1", BranchID: "br_9"})

		mock.ExpectQuery("SELECT (.+) FROM branches b JOIN user_organizations uo").
			WithArgs("br_9", "usr_1").
			WillReturnRows(sqlmock.NewRows(branchColumns))

		rr := httptest.NewRecorder()
		handler := middleware.Handle(func(w http.ResponseWriter, r *http.Request) {
			t.Error("Handler should not be called")
		})
		handler.ServeHTTP(rr, req)

		if rr.Code != http.StatusForbidden {
			t.Errorf("handler returned wrong status code: got %v want %v", rr.Code, http.StatusForbidden)
		}
	})

	t.Run("No selection", func(t *testing.T) {
		req := withClaims(httptest.NewRequest("GET", "/", nil), &auth.Claims{UserID: "usr_1"})

		userColumns := []string{"id", "email", "password_hash", "name", "profile_id", "organization_id",
			"selected_branch_id", "stripe_customer_id", "last_login_at", "created_at", "updated_at"}
		mock.ExpectQuery("SELECT (.+) FROM users WHERE id = ?").
			WithArgs("usr_1").
			WillReturnRows(sqlmock.NewRows(userColumns).
				AddRow("usr_1", "a@x.com", "h", "A", nil, nil, nil, nil, nil, 1, 1))

		rr := httptest.NewRecorder()
		handler := middleware.Handle(func(w http.ResponseWriter, r *http.Request) {
			t.Error("Handler should not be called")
		})
		handler.ServeHTTP(rr, req)

		if rr.Code != http.StatusBadRequest {
			t.Errorf("handler returned wrong status code: got %v want %v", rr.Code, http.StatusBadRequest)
		}
	})

	t.Run("Missing claims", func(t *testing.T) {
		rr := httptest.NewRecorder()
		middleware.Handle(func(w http.ResponseWriter, r *http.Request) {
			t.Error("Handler should not be called")
		}).ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))

		if rr.Code != http.StatusUnauthorized {
			t.Errorf("handler returned wrong status code: got %v want %v", rr.Code, http.StatusUnauthorized)
		}
	})

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %s", err)
	}
}
