package wizard

const (
	StepWelcome      = "welcome"
	StepOrganization = "organization"
	StepBranch       = "branch"
	StepDepartments  = "departments"
	StepEnvironments = "environments"
	StepCompletion   = "completion"
)

type Step struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Order       int    `json:"order"`
}

var steps = []Step{
	{ID: StepWelcome, Title: "Welcome", Description: "Get started with your workspace", Order: 1},
	{ID: StepOrganization, Title: "Organization", Description: "Tell us about your company", Order: 2},
	{ID: StepBranch, Title: "Branch", Description: "Create your first branch", Order: 3},
	{ID: StepDepartments, Title: "Departments", Description: "Add departments and their responsibles", Order: 4},
	{ID: StepEnvironments, Title: "Environments", Description: "List the environments to inspect", Order: 5},
	{ID: StepCompletion, Title: "Done", Description: "Review your setup", Order: 6},
}

// GetSteps returns the fixed, ordered step list.
func GetSteps() []Step {
	out := make([]Step, len(steps))
	copy(out, steps)
	return out
}

func isStep(id string) bool {
	for _, s := range steps {
		if s.ID == id {
			return true
		}
	}
	return false
}
