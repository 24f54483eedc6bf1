package automation

import "time"

// TriggerType discriminates the trigger variants.
type TriggerType string

// Trigger kinds.
const (
	TriggerTime    TriggerType = "time"
	TriggerSunrise TriggerType = "sunrise"
	TriggerSunset  TriggerType = "sunset"
	TriggerDevice  TriggerType = "device"
	TriggerHealth  TriggerType = "health"
)

// ConditionType discriminates the condition variants.
type ConditionType string

// Condition kinds.
const (
	ConditionTimeRange   ConditionType = "time_range"
	ConditionDeviceState ConditionType = "device_state"
)

// Metric names a health telemetry series ("body weather").
type Metric string

// Health metrics, each on a 0-10 scale.
const (
	MetricPain    Metric = "pain"
	MetricEnergy  Metric = "energy"
	MetricMood    Metric = "mood"
	MetricAnxiety Metric = "anxiety"
)

// Comparison is the operator a health trigger applies to its threshold.
type Comparison string

// Comparisons.
const (
	ComparisonAbove  Comparison = "above"
	ComparisonBelow  Comparison = "below"
	ComparisonEquals Comparison = "equals"
)

// Scene is a named, ordered bundle of device actions executed on demand.
// Scenes carry no trigger/condition logic of their own; an optional
// HealthTrigger only marks the scene as a candidate for health-based
// suggestions.
type Scene struct {
	// Identity
	ID   string `json:"id"`
	Name string `json:"name"`

	// Description (optional)
	Description string `json:"description,omitempty"`

	// Actions to execute (ordered)
	Actions []Action `json:"actions"`

	// HealthTrigger marks this scene as a suggestion candidate for a
	// health metric threshold (optional).
	HealthTrigger *HealthTrigger `json:"health_trigger,omitempty"`

	// UI metadata
	Favourite bool   `json:"favourite"`
	Icon      string `json:"icon,omitempty"`
	Colour    string `json:"colour,omitempty"` // Hex colour (#RRGGBB)

	// Timestamps
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HealthTrigger associates a scene with a health metric threshold.
type HealthTrigger struct {
	Metric     Metric     `json:"metric"`
	Comparison Comparison `json:"comparison"`
	Threshold  int        `json:"threshold"`
}

// Action defines a single device command within a scene or automation.
//
// Actions execute strictly in order. DelayMS is applied before the
// command is issued, not after.
type Action struct {
	// Target device
	DeviceID string `json:"device_id"`

	// Capability and command (gateway vocabulary, e.g. "switch"/"on")
	Capability string `json:"capability"`
	Command    string `json:"command"`

	// Command arguments (optional)
	Arguments []any `json:"arguments,omitempty"`

	// Delay before executing (milliseconds, >= 0)
	DelayMS int `json:"delay_ms"`
}

// Automation is a Trigger + Conditions + Actions rule evaluated
// continuously by the scheduler while enabled.
type Automation struct {
	// Identity
	ID   string `json:"id"`
	Name string `json:"name"`

	// Description (optional)
	Description string `json:"description,omitempty"`

	// Enabled gates scheduler evaluation. Disabled automations are never
	// considered, whatever their trigger state.
	Enabled bool `json:"enabled"`

	// Trigger initiates evaluation.
	Trigger Trigger `json:"trigger"`

	// Conditions are AND-ed gates checked after the trigger fires.
	// Empty means vacuously true.
	Conditions []Condition `json:"conditions"`

	// Actions run when the trigger fires and conditions pass. Never empty.
	Actions []Action `json:"actions"`

	// LastTriggered is when the automation last fired. Monotonically
	// non-decreasing; set on firing regardless of action outcome.
	LastTriggered *time.Time `json:"last_triggered,omitempty"`

	// LastTriggeredDate is the calendar date (YYYY-MM-DD, site timezone)
	// of the last firing. Used for the explicit once-per-day dedup of
	// time/sunrise/sunset triggers.
	LastTriggeredDate string `json:"last_triggered_date,omitempty"`

	// Timestamps
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Trigger is a tagged variant: Type selects the kind, and only that
// kind's fields are meaningful. Validation rejects triggers whose
// required fields are missing for the declared kind.
type Trigger struct {
	Type TriggerType `json:"type"`

	// time kind: local time-of-day as HH:MM.
	Time string `json:"time,omitempty"`

	// device kind: fires when the attribute changes value.
	DeviceID  string `json:"device_id,omitempty"`
	Attribute string `json:"attribute,omitempty"`

	// health kind: fires when the metric crosses the threshold.
	Metric     Metric     `json:"metric,omitempty"`
	Comparison Comparison `json:"comparison,omitempty"`
	Threshold  int        `json:"threshold,omitempty"`
}

// Condition is a tagged variant: Type selects the kind.
type Condition struct {
	Type ConditionType `json:"type"`

	// time_range kind: local time-of-day window [Start, End).
	// Wraps past midnight when End < Start.
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`

	// device_state kind: attribute must equal ExpectedValue.
	// Missing device or attribute evaluates false (fail-closed).
	DeviceID      string `json:"device_id,omitempty"`
	Attribute     string `json:"attribute,omitempty"`
	ExpectedValue any    `json:"expected_value,omitempty"`
}

// ExecutionKind distinguishes scene runs from automation runs.
type ExecutionKind string

// Execution kinds.
const (
	ExecutionScene      ExecutionKind = "scene"
	ExecutionAutomation ExecutionKind = "automation"
)

// Execution records a single run of a scene's or automation's actions.
type Execution struct {
	ID         string        `json:"id"`
	Kind       ExecutionKind `json:"kind"`
	SourceID   string        `json:"source_id"`
	SourceName string        `json:"source_name"`

	// TriggerType is set for scheduler-initiated runs, empty for manual.
	TriggerType string `json:"trigger_type,omitempty"`

	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	// Aggregate counts
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`

	// Per-action outcomes in execution order.
	Results []ActionResult `json:"results"`
}

// ActionResult is the outcome of one action within a run.
type ActionResult struct {
	Index    int    `json:"index"`
	DeviceID string `json:"device_id"`
	Command  string `json:"command"`
	Status   string `json:"status"` // success, failed, skipped
	Error    string `json:"error,omitempty"`
}

// Action result statuses.
const (
	ResultSuccess = "success"
	ResultFailed  = "failed"
	ResultSkipped = "skipped"
)

// ExecutionResult is the in-memory aggregate returned by the executor.
type ExecutionResult struct {
	Results   []ActionResult `json:"results"`
	Succeeded int            `json:"succeeded"`
	Failed    int            `json:"failed"`
	Skipped   int            `json:"skipped"`
}

// DeepCopy creates a complete independent copy of the Scene.
// All map and slice fields are cloned so modifications to the copy
// do not affect the original. This is essential for cache isolation.
func (s *Scene) DeepCopy() *Scene {
	if s == nil {
		return nil
	}

	cpy := *s // Shallow copy of value fields

	if s.HealthTrigger != nil {
		ht := *s.HealthTrigger
		cpy.HealthTrigger = &ht
	}

	cpy.Actions = deepCopyActions(s.Actions)
	return &cpy
}

// DeepCopy creates a complete independent copy of the Automation.
func (a *Automation) DeepCopy() *Automation {
	if a == nil {
		return nil
	}

	cpy := *a

	if a.LastTriggered != nil {
		t := *a.LastTriggered
		cpy.LastTriggered = &t
	}

	if a.Conditions != nil {
		cpy.Conditions = make([]Condition, len(a.Conditions))
		copy(cpy.Conditions, a.Conditions)
	}

	cpy.Actions = deepCopyActions(a.Actions)
	return &cpy
}

// deepCopyActions clones an action list including argument slices.
func deepCopyActions(actions []Action) []Action {
	if actions == nil {
		return nil
	}
	cpy := make([]Action, len(actions))
	for i, action := range actions {
		cpy[i] = action
		if action.Arguments != nil {
			cpy[i].Arguments = make([]any, len(action.Arguments))
			copy(cpy[i].Arguments, action.Arguments)
		}
	}
	return cpy
}
