package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestKindOfWrapped(t *testing.T) {
	base := New(KindConflict, "Email already registered")
	wrapped := fmt.Errorf("register: %w", base)

	if got := KindOf(wrapped); got != KindConflict {
		t.Errorf("KindOf() = %s, want %s", got, KindConflict)
	}
	if got := KindOf(stderrors.New("boom")); got != KindInternal {
		t.Errorf("KindOf(plain) = %s, want %s", got, KindInternal)
	}
}

func TestWriteStatusMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{New(KindUnauthorized, "no session"), http.StatusUnauthorized},
		{New(KindForbidden, "not yours"), http.StatusForbidden},
		{NotFound("Checklist"), http.StatusNotFound},
		{Validation("", "name"), http.StatusBadRequest},
		{New(KindPreconditionFailed, "no payment account"), http.StatusBadRequest},
		{New(KindConflict, "dup"), http.StatusConflict},
		{Wrap(KindUpstream, "provider", stderrors.New("card declined")), http.StatusBadGateway},
		{New(KindDataIntegrity, "Free plan missing"), http.StatusInternalServerError},
		{stderrors.New("raw"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		Write(rr, req, tt.err)
		if rr.Code != tt.status {
			t.Errorf("Write(%v) status = %d, want %d", tt.err, rr.Code, tt.status)
		}
	}
}

func TestWriteValidationFields(t *testing.T) {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/checklists", nil)

	Write(rr, req, Validation("", "name", "frequency"))

	var body struct {
		Error   string              `json:"error"`
		Code    string              `json:"code"`
		Details map[string][]string `json:"details"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Code != ErrCodeValidationFailed {
		t.Errorf("code = %s", body.Code)
	}
	if len(body.Details["fields"]) != 2 || body.Details["fields"][0] != "name" {
		t.Errorf("fields = %v", body.Details["fields"])
	}
	if body.Error != "Missing required fields: name, frequency" {
		t.Errorf("error = %q", body.Error)
	}
}

func TestWriteValidationMissingAndInvalid(t *testing.T) {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/checklists", nil)

	e := Validation("Missing required fields: name; invalid fields: frequency", "name", "frequency")
	e.Missing = []string{"name"}
	Write(rr, req, e)

	var body struct {
		Details map[string][]string `json:"details"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got := body.Details["missing"]; len(got) != 1 || got[0] != "name" {
		t.Errorf("missing = %v", got)
	}
	if got := body.Details["invalid"]; len(got) != 1 || got[0] != "frequency" {
		t.Errorf("invalid = %v", got)
	}
	if len(body.Details["fields"]) != 2 {
		t.Errorf("fields = %v", body.Details["fields"])
	}
}
