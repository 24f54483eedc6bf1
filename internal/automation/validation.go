package automation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// Validation constants.
const (
	maxNameLength     = 100
	maxDescriptionLen = 500
	maxActions        = 100
	maxConditions     = 20
	maxDelayMS        = 300000 // 5 minutes
	maxArguments      = 10
	minMetricValue    = 0
	maxMetricValue    = 10
	clockPattern      = `^([01][0-9]|2[0-3]):[0-5][0-9]$`
	colourPattern     = `^#[0-9a-fA-F]{6}$`
)

var (
	clockRegex  = regexp.MustCompile(clockPattern)
	colourRegex = regexp.MustCompile(colourPattern)
)

// Pre-computed sets for O(1) variant lookups.
var (
	validMetrics     map[Metric]struct{}
	validComparisons map[Comparison]struct{}
)

func init() {
	validMetrics = map[Metric]struct{}{
		MetricPain: {}, MetricEnergy: {}, MetricMood: {}, MetricAnxiety: {},
	}
	validComparisons = map[Comparison]struct{}{
		ComparisonAbove: {}, ComparisonBelow: {}, ComparisonEquals: {},
	}
}

// ValidateScene performs comprehensive validation on a scene.
// Returns an error describing the first validation failure found.
func ValidateScene(s *Scene) error {
	if s == nil {
		return fmt.Errorf("%w: scene is nil", ErrInvalidAction)
	}

	if err := ValidateName(s.Name); err != nil {
		return err
	}

	if len(s.Description) > maxDescriptionLen {
		return fmt.Errorf("%w: description exceeds %d characters", ErrInvalidName, maxDescriptionLen)
	}

	if s.Colour != "" && !colourRegex.MatchString(s.Colour) {
		return fmt.Errorf("%w: colour must be #RRGGBB", ErrInvalidName)
	}

	if s.HealthTrigger != nil {
		if err := validateHealthThreshold(s.HealthTrigger.Metric, s.HealthTrigger.Comparison, s.HealthTrigger.Threshold); err != nil {
			return err
		}
	}

	return validateActions(s.Actions)
}

// ValidateAutomation performs comprehensive validation on an automation.
// Malformed triggers and conditions are rejected here, at construction
// time, so the scheduler never sees a variant with missing fields.
func ValidateAutomation(a *Automation) error {
	if a == nil {
		return fmt.Errorf("%w: automation is nil", ErrInvalidTrigger)
	}

	if err := ValidateName(a.Name); err != nil {
		return err
	}

	if len(a.Description) > maxDescriptionLen {
		return fmt.Errorf("%w: description exceeds %d characters", ErrInvalidName, maxDescriptionLen)
	}

	if err := ValidateTrigger(a.Trigger); err != nil {
		return err
	}

	if len(a.Conditions) > maxConditions {
		return fmt.Errorf("%w: exceeds maximum of %d conditions", ErrInvalidCondition, maxConditions)
	}
	for i, c := range a.Conditions {
		if err := ValidateCondition(c); err != nil {
			return fmt.Errorf("condition[%d]: %w", i, err)
		}
	}

	return validateActions(a.Actions)
}

// ValidateName checks if a scene or automation name is valid.
func ValidateName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidName)
	}
	if len(name) > maxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidName, maxNameLength)
	}
	return nil
}

// ValidateTrigger checks the declared trigger kind has its required fields.
func ValidateTrigger(t Trigger) error {
	switch t.Type {
	case TriggerTime:
		if !clockRegex.MatchString(t.Time) {
			return fmt.Errorf("%w: time must be HH:MM", ErrInvalidTrigger)
		}
	case TriggerSunrise, TriggerSunset:
		// No fields required.
	case TriggerDevice:
		if t.DeviceID == "" {
			return fmt.Errorf("%w: device_id is required", ErrInvalidTrigger)
		}
		if t.Attribute == "" {
			return fmt.Errorf("%w: attribute is required", ErrInvalidTrigger)
		}
	case TriggerHealth:
		if err := validateHealthThreshold(t.Metric, t.Comparison, t.Threshold); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: unknown trigger type %q", ErrInvalidTrigger, t.Type)
	}
	return nil
}

// ValidateCondition checks the declared condition kind has its required fields.
func ValidateCondition(c Condition) error {
	switch c.Type {
	case ConditionTimeRange:
		if !clockRegex.MatchString(c.Start) {
			return fmt.Errorf("%w: start must be HH:MM", ErrInvalidCondition)
		}
		if !clockRegex.MatchString(c.End) {
			return fmt.Errorf("%w: end must be HH:MM", ErrInvalidCondition)
		}
	case ConditionDeviceState:
		if c.DeviceID == "" {
			return fmt.Errorf("%w: device_id is required", ErrInvalidCondition)
		}
		if c.Attribute == "" {
			return fmt.Errorf("%w: attribute is required", ErrInvalidCondition)
		}
	default:
		return fmt.Errorf("%w: unknown condition type %q", ErrInvalidCondition, c.Type)
	}
	return nil
}

// ValidateAction checks if an action is valid.
func ValidateAction(action Action) error {
	if action.DeviceID == "" {
		return fmt.Errorf("%w: device_id is required", ErrInvalidAction)
	}
	if action.Capability == "" {
		return fmt.Errorf("%w: capability is required", ErrInvalidAction)
	}
	if action.Command == "" {
		return fmt.Errorf("%w: command is required", ErrInvalidAction)
	}
	if action.DelayMS < 0 || action.DelayMS > maxDelayMS {
		return fmt.Errorf("%w: delay_ms must be 0-%d", ErrInvalidAction, maxDelayMS)
	}
	if len(action.Arguments) > maxArguments {
		return fmt.Errorf("%w: arguments exceeds %d values", ErrInvalidAction, maxArguments)
	}
	return nil
}

func validateActions(actions []Action) error {
	if len(actions) == 0 {
		return ErrNoActions
	}
	if len(actions) > maxActions {
		return fmt.Errorf("%w: exceeds maximum of %d actions", ErrInvalidAction, maxActions)
	}
	for i, action := range actions {
		if err := ValidateAction(action); err != nil {
			return fmt.Errorf("action[%d]: %w", i, err)
		}
	}
	return nil
}

func validateHealthThreshold(m Metric, c Comparison, threshold int) error {
	if _, ok := validMetrics[m]; !ok {
		return fmt.Errorf("%w: unknown metric %q", ErrInvalidTrigger, m)
	}
	if _, ok := validComparisons[c]; !ok {
		return fmt.Errorf("%w: unknown comparison %q", ErrInvalidTrigger, c)
	}
	if threshold < minMetricValue || threshold > maxMetricValue {
		return fmt.Errorf("%w: threshold must be %d-%d", ErrInvalidTrigger, minMetricValue, maxMetricValue)
	}
	return nil
}

// GenerateID creates a new UUID for a scene, automation or execution.
func GenerateID() string {
	return uuid.New().String()
}
