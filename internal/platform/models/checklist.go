package models

const (
	FrequencyDaily   = "DAILY"
	FrequencyWeekly  = "WEEKLY"
	FrequencyMonthly = "MONTHLY"
	FrequencyCustom  = "CUSTOM"

	ExecutionInProgress = "IN_PROGRESS"
	ExecutionCompleted  = "COMPLETED"
)

type ResponseType struct {
	ID   string `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

type Checklist struct {
	ID            string  `json:"id"`
	BranchID      string  `json:"branchId"`
	EnvironmentID string  `json:"environmentId"`
	Name          string  `json:"name"`
	Description   string  `json:"description"`
	Frequency     string  `json:"frequency"`
	ScheduledTime string  `json:"time"`
	DaysOfWeek    []int   `json:"daysOfWeek"`
	Actived       bool    `json:"actived"`
	CreatedBy     *string `json:"createdBy,omitempty"`
	CreatedAt     int64   `json:"createdAt"`
	UpdatedAt     int64   `json:"updatedAt"`

	Sections     []*ChecklistSection `json:"sections,omitempty"`
	Responsibles []string            `json:"responsibles,omitempty"`
}

type ChecklistSection struct {
	ID          string `json:"id"`
	ChecklistID string `json:"checklistId"`
	Name        string `json:"name"`
	Position    int    `json:"position"`

	Items []*ChecklistItem `json:"items"`
}

type ChecklistItem struct {
	ID             string  `json:"id"`
	ChecklistID    string  `json:"checklistId"`
	SectionID      string  `json:"sectionId"`
	Description    string  `json:"description"`
	ResponseTypeID string  `json:"responseTypeId"`
	DepartmentID   *string `json:"departmentId,omitempty"`
	Position       int     `json:"position"`
}

// ChecklistSummary is the listing projection of a checklist.
type ChecklistSummary struct {
	Checklist
	SectionCount    int    `json:"sectionCount"`
	ItemCount       int    `json:"itemCount"`
	LastExecutionAt *int64 `json:"lastExecutionAt,omitempty"`
}

type ChecklistExecution struct {
	ID          string `json:"id"`
	ChecklistID string `json:"checklistId"`
	UserID      string `json:"userId"`
	Status      string `json:"status"`
	CompletedAt *int64 `json:"completedAt,omitempty"`
	CreatedAt   int64  `json:"createdAt"`

	Items         []*ItemResult `json:"items,omitempty"`
	PositiveCount int           `json:"positiveCount"`
	NegativeCount int           `json:"negativeCount"`
}

type ItemResult struct {
	ID          string `json:"id"`
	ExecutionID string `json:"executionId"`
	ItemID      string `json:"itemId"`
	IsPositive  bool   `json:"isPositive"`
	Note        string `json:"note"`
}
