package domain

type Workspace struct {
	ID          string  `json:"id"`
	OwnerUserID string  `json:"owner_user_id"`
	Name        string  `json:"name"`
	CreatedAt   string  `json:"created_at" format:"date-time"`
	UpdatedAt   string  `json:"updated_at,omitempty" format:"date-time"`
	Company     Company `json:"company"`

	Functions             []Function            `json:"functions"`
	SubFunctions          []SubFunction         `json:"sub_functions"`
	CoreActivities        []CoreActivity        `json:"core_activities"`
	SubFunctionActivities []SubFunctionActivity `json:"sub_function_activities"`
	StepActivities        []StepActivity        `json:"step_activities"`
	ActivitySoftware      []ActivitySoftware    `json:"activity_software"`
	Workflows             []Workflow            `json:"workflows"`
	Phases                []Phase               `json:"phases"`
	Steps                 []Step                `json:"steps"`
	People                []Person              `json:"people"`
	Roles                 []Role                `json:"roles"`
	Software              []Software            `json:"software"`
	ChecklistItems        []ChecklistItem       `json:"checklist_items"`
	Tombstones            []Tombstone           `json:"tombstones,omitempty"`
}

type Company struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Industry  string `json:"industry,omitempty"`
	Size      string `json:"size,omitempty"`
	CreatedAt string `json:"created_at" format:"date-time"`
	UpdatedAt string `json:"updated_at,omitempty" format:"date-time"`
}

type Function struct {
	ID          string `json:"id"`
	CompanyID   string `json:"company_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Color       string `json:"color,omitempty"`
	OrderIndex  int    `json:"order_index"`
	Status      Status `json:"status" enum:"gap,draft,active,archived"`
	UpdatedAt   string `json:"updated_at,omitempty" format:"date-time"`
}

type SubFunction struct {
	ID          string `json:"id"`
	FunctionID  string `json:"function_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	OrderIndex  int    `json:"order_index"`
	Status      Status `json:"status" enum:"gap,draft,active,archived"`
	UpdatedAt   string `json:"updated_at,omitempty" format:"date-time"`
}

type CoreActivity struct {
	ID        string  `json:"id"`
	CompanyID string  `json:"company_id"`
	Name      string  `json:"name"`
	OwnerID   *string `json:"owner_id,omitempty"`
	RoleID    *string `json:"role_id,omitempty"`
	Notes     string  `json:"notes,omitempty"`
	Status    Status  `json:"status" enum:"gap,draft,active,archived"`
	UpdatedAt string  `json:"updated_at,omitempty" format:"date-time"`
}

// SubFunctionActivity links a CoreActivity into a SubFunction; OrderIndex is scoped per sub-function.
type SubFunctionActivity struct {
	SubFunctionID string `json:"sub_function_id"`
	ActivityID    string `json:"activity_id"`
	OrderIndex    int    `json:"order_index"`
	UpdatedAt     string `json:"updated_at,omitempty" format:"date-time"`
}

// StepActivity links a CoreActivity into a Step; OrderIndex is scoped per step.
type StepActivity struct {
	StepID     string `json:"step_id"`
	ActivityID string `json:"activity_id"`
	OrderIndex int    `json:"order_index"`
	UpdatedAt  string `json:"updated_at,omitempty" format:"date-time"`
}

type ActivitySoftware struct {
	ActivityID string `json:"activity_id"`
	SoftwareID string `json:"software_id"`
	UpdatedAt  string `json:"updated_at,omitempty" format:"date-time"`
}

type Workflow struct {
	ID          string `json:"id"`
	CompanyID   string `json:"company_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Status      Status `json:"status" enum:"gap,draft,active,archived"`
	UpdatedAt   string `json:"updated_at,omitempty" format:"date-time"`
}

type Phase struct {
	ID         string `json:"id"`
	WorkflowID string `json:"workflow_id"`
	Name       string `json:"name"`
	OrderIndex int    `json:"order_index"`
	UpdatedAt  string `json:"updated_at,omitempty" format:"date-time"`
}

type Step struct {
	ID         string `json:"id"`
	PhaseID    string `json:"phase_id"`
	Name       string `json:"name"`
	OrderIndex int    `json:"order_index"`
	UpdatedAt  string `json:"updated_at,omitempty" format:"date-time"`
}

type Person struct {
	ID        string  `json:"id"`
	CompanyID string  `json:"company_id"`
	Name      string  `json:"name"`
	Email     string  `json:"email,omitempty"`
	RoleID    *string `json:"role_id,omitempty"`
	UpdatedAt string  `json:"updated_at,omitempty" format:"date-time"`
}

type Role struct {
	ID          string `json:"id"`
	CompanyID   string `json:"company_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	UpdatedAt   string `json:"updated_at,omitempty" format:"date-time"`
}

type Software struct {
	ID          string `json:"id"`
	CompanyID   string `json:"company_id"`
	Name        string `json:"name"`
	Vendor      string `json:"vendor,omitempty"`
	Description string `json:"description,omitempty"`
	UpdatedAt   string `json:"updated_at,omitempty" format:"date-time"`
}

type ChecklistItem struct {
	ID             string `json:"id"`
	CoreActivityID string `json:"core_activity_id"`
	Text           string `json:"text"`
	OrderIndex     int    `json:"order_index"`
	Completed      bool   `json:"completed"`
	UpdatedAt      string `json:"updated_at,omitempty" format:"date-time"`
}

// Tombstone records an explicit local deletion so a merge does not bring the entity back.
type Tombstone struct {
	Kind      EntityKind `json:"kind"`
	ID        string     `json:"id"`
	DeletedAt string     `json:"deleted_at" format:"date-time"`
}

// Event is an audit record for a discrete lifecycle action.
type Event struct {
	ID          int64  `json:"id"`
	TS          string `json:"ts" format:"date-time"`
	Type        string `json:"type"`
	WorkspaceID string `json:"workspace_id"`
	EntityKind  string `json:"entity_kind"`
	EntityID    string `json:"entity_id"`
	ActorID     string `json:"actor_id"`
	Payload     string `json:"payload_json"`
}
