package checklists

import (
	"bytes"
	"testing"

	apperrors "checkops/internal/pkg/errors"
)

func TestQRCode(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		wantErr bool
	}{
		{name: "default size", size: 0},
		{name: "explicit size", size: 256},
		{name: "too small", size: 100, wantErr: true},
		{name: "too large", size: 5000, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := QRCode(ExecutionURL("https://app.example.com/", "chk_1"), tt.size)
			if tt.wantErr {
				if !apperrors.Is(err, apperrors.KindValidation) {
					t.Errorf("QRCode() error = %v, want validation error", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("QRCode() error = %v", err)
			}
			if !bytes.HasPrefix(got, []byte("\x89PNG")) {
				t.Errorf("QRCode() did not return a PNG")
			}
		})
	}
}

func TestExecutionURL(t *testing.T) {
	if got := ExecutionURL("https://app.example.com/", "chk_1"); got != "https://app.example.com/checklists/chk_1/execute" {
		t.Errorf("ExecutionURL() = %q", got)
	}
}
