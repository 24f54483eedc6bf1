package automation

import (
	"errors"
	"strings"
	"testing"
)

func validScene() *Scene {
	return &Scene{
		ID:   GenerateID(),
		Name: "Evening Wind Down",
		Actions: []Action{
			{DeviceID: "light-1", Capability: "switchLevel", Command: "setLevel", Arguments: []any{20}},
		},
	}
}

func validAutomation() *Automation {
	return &Automation{
		ID:      GenerateID(),
		Name:    "Morning Lights",
		Enabled: true,
		Trigger: Trigger{Type: TriggerTime, Time: "07:30"},
		Conditions: []Condition{
			{Type: ConditionTimeRange, Start: "06:00", End: "10:00"},
		},
		Actions: []Action{
			{DeviceID: "light-1", Capability: "switch", Command: "on"},
		},
	}
}

func TestValidateScene(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Scene)
		wantErr error
	}{
		{"valid", func(*Scene) {}, nil},
		{"empty name", func(s *Scene) { s.Name = "" }, ErrInvalidName},
		{"whitespace name", func(s *Scene) { s.Name = "   " }, ErrInvalidName},
		{"name too long", func(s *Scene) { s.Name = strings.Repeat("x", 101) }, ErrInvalidName},
		{"description too long", func(s *Scene) { s.Description = strings.Repeat("x", 501) }, ErrInvalidName},
		{"bad colour", func(s *Scene) { s.Colour = "red" }, ErrInvalidName},
		{"good colour", func(s *Scene) { s.Colour = "#ff8800" }, nil},
		{"no actions", func(s *Scene) { s.Actions = nil }, ErrNoActions},
		{"bad health metric", func(s *Scene) {
			s.HealthTrigger = &HealthTrigger{Metric: "stamina", Comparison: ComparisonAbove, Threshold: 5}
		}, ErrInvalidTrigger},
		{"health threshold out of range", func(s *Scene) {
			s.HealthTrigger = &HealthTrigger{Metric: MetricPain, Comparison: ComparisonAbove, Threshold: 11}
		}, ErrInvalidTrigger},
		{"good health trigger", func(s *Scene) {
			s.HealthTrigger = &HealthTrigger{Metric: MetricPain, Comparison: ComparisonAbove, Threshold: 7}
		}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scene := validScene()
			tt.mutate(scene)
			err := ValidateScene(scene)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateScene() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateScene() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateAutomation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Automation)
		wantErr error
	}{
		{"valid", func(*Automation) {}, nil},
		{"empty name", func(a *Automation) { a.Name = "" }, ErrInvalidName},
		{"no actions", func(a *Automation) { a.Actions = nil }, ErrNoActions},
		{"no conditions is fine", func(a *Automation) { a.Conditions = nil }, nil},
		{"unknown trigger type", func(a *Automation) { a.Trigger = Trigger{Type: "weather"} }, ErrInvalidTrigger},
		{"bad condition", func(a *Automation) {
			a.Conditions = []Condition{{Type: ConditionDeviceState}}
		}, ErrInvalidCondition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := validAutomation()
			tt.mutate(a)
			err := ValidateAutomation(a)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateAutomation() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateAutomation() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateTrigger(t *testing.T) {
	tests := []struct {
		name    string
		trigger Trigger
		wantErr bool
	}{
		{"time valid", Trigger{Type: TriggerTime, Time: "08:00"}, false},
		{"time midnight", Trigger{Type: TriggerTime, Time: "00:00"}, false},
		{"time end of day", Trigger{Type: TriggerTime, Time: "23:59"}, false},
		{"time missing", Trigger{Type: TriggerTime}, true},
		{"time bad hour", Trigger{Type: TriggerTime, Time: "24:00"}, true},
		{"time bad format", Trigger{Type: TriggerTime, Time: "8:00"}, true},
		{"time with seconds", Trigger{Type: TriggerTime, Time: "08:00:00"}, true},
		{"sunrise", Trigger{Type: TriggerSunrise}, false},
		{"sunset", Trigger{Type: TriggerSunset}, false},
		{"device valid", Trigger{Type: TriggerDevice, DeviceID: "d1", Attribute: "motion"}, false},
		{"device missing attribute", Trigger{Type: TriggerDevice, DeviceID: "d1"}, true},
		{"device missing id", Trigger{Type: TriggerDevice, Attribute: "motion"}, true},
		{"health valid", Trigger{Type: TriggerHealth, Metric: MetricPain, Comparison: ComparisonAbove, Threshold: 7}, false},
		{"health bad comparison", Trigger{Type: TriggerHealth, Metric: MetricPain, Comparison: "near", Threshold: 7}, true},
		{"health threshold negative", Trigger{Type: TriggerHealth, Metric: MetricPain, Comparison: ComparisonAbove, Threshold: -1}, true},
		{"unknown kind", Trigger{Type: "lunar"}, true},
		{"empty kind", Trigger{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTrigger(tt.trigger)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateTrigger() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateCondition(t *testing.T) {
	tests := []struct {
		name      string
		condition Condition
		wantErr   bool
	}{
		{"time range valid", Condition{Type: ConditionTimeRange, Start: "22:00", End: "06:00"}, false},
		{"time range bad start", Condition{Type: ConditionTimeRange, Start: "25:00", End: "06:00"}, true},
		{"time range missing end", Condition{Type: ConditionTimeRange, Start: "22:00"}, true},
		{"device state valid", Condition{Type: ConditionDeviceState, DeviceID: "d1", Attribute: "switch", ExpectedValue: "on"}, false},
		{"device state missing device", Condition{Type: ConditionDeviceState, Attribute: "switch"}, true},
		{"unknown kind", Condition{Type: "presence"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCondition(tt.condition)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateCondition() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateAction(t *testing.T) {
	tests := []struct {
		name    string
		action  Action
		wantErr bool
	}{
		{"valid", Action{DeviceID: "d1", Capability: "switch", Command: "on"}, false},
		{"with delay", Action{DeviceID: "d1", Capability: "switch", Command: "on", DelayMS: 2000}, false},
		{"missing device", Action{Capability: "switch", Command: "on"}, true},
		{"missing capability", Action{DeviceID: "d1", Command: "on"}, true},
		{"missing command", Action{DeviceID: "d1", Capability: "switch"}, true},
		{"negative delay", Action{DeviceID: "d1", Capability: "switch", Command: "on", DelayMS: -1}, true},
		{"delay too long", Action{DeviceID: "d1", Capability: "switch", Command: "on", DelayMS: maxDelayMS + 1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAction(tt.action)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateAction() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGenerateID_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := GenerateID()
		if id == "" {
			t.Fatal("GenerateID() returned empty string")
		}
		if seen[id] {
			t.Fatalf("GenerateID() produced duplicate %q", id)
		}
		seen[id] = true
	}
}
