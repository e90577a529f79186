package models

// Route is the classifier's choice for a first turn.
type Route string

const (
	RouteCapability Route = "capability"
	RouteWorkflow   Route = "workflow"
	RouteOther      Route = "other"
)

func (r Route) Valid() bool {
	switch r {
	case RouteCapability, RouteWorkflow, RouteOther:
		return true
	default:
		return false
	}
}

// RouteDecision is the result of skill classification. WorkflowID is only
// meaningful when Route is RouteWorkflow.
type RouteDecision struct {
	Route      Route  `json:"skill"`
	WorkflowID string `json:"workflow_id,omitempty"`
}
