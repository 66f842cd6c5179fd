package models

import "encoding/json"

type WizardProgress struct {
	UserID         string          `json:"userId"`
	CurrentStep    string          `json:"currentStep"`
	DraftPayload   json.RawMessage `json:"draftPayload"`
	OrganizationID *string         `json:"organizationId,omitempty"`
	BranchID       *string         `json:"branchId,omitempty"`
	UpdatedAt      int64           `json:"updatedAt"`
}
