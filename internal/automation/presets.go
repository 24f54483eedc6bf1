package automation

import (
	"context"
	"fmt"
)

// presetScenes returns the fixed starter set seeded into an empty
// install. Device IDs use well-known placeholder labels the UI prompts
// the user to remap during onboarding.
func presetScenes() []Scene {
	return []Scene{
		{
			Name:        "Good Morning",
			Description: "Gentle wake-up: warm light, blinds up, thermostat to comfort",
			Icon:        "sunrise",
			Colour:      "#f6ad55",
			Actions: []Action{
				{DeviceID: "bedroom-light", Capability: "switchLevel", Command: "setLevel", Arguments: []any{30}},
				{DeviceID: "bedroom-blind", Capability: "windowShade", Command: "open", DelayMS: 2000},
				{DeviceID: "thermostat", Capability: "thermostatMode", Command: "heat", DelayMS: 1000},
			},
		},
		{
			Name:        "Bedtime",
			Description: "Lights off, doors locked, thermostat down",
			Icon:        "moon",
			Colour:      "#4a5568",
			Actions: []Action{
				{DeviceID: "living-room-light", Capability: "switch", Command: "off"},
				{DeviceID: "bedroom-light", Capability: "switchLevel", Command: "setLevel", Arguments: []any{10}},
				{DeviceID: "front-door-lock", Capability: "lock", Command: "lock", DelayMS: 1000},
			},
		},
		{
			Name:        "High Pain Day",
			Description: "Low light, warmth and calm for a flare-up",
			Icon:        "heart",
			Colour:      "#fc8181",
			Favourite:   true,
			HealthTrigger: &HealthTrigger{
				Metric:     MetricPain,
				Comparison: ComparisonAbove,
				Threshold:  7,
			},
			Actions: []Action{
				{DeviceID: "living-room-light", Capability: "switchLevel", Command: "setLevel", Arguments: []any{20}},
				{DeviceID: "thermostat", Capability: "thermostatMode", Command: "heat"},
				{DeviceID: "speaker", Capability: "switch", Command: "off", DelayMS: 500},
			},
		},
		{
			Name:        "Good Energy",
			Description: "Bright light for a productive stretch",
			Icon:        "zap",
			Colour:      "#68d391",
			HealthTrigger: &HealthTrigger{
				Metric:     MetricEnergy,
				Comparison: ComparisonAbove,
				Threshold:  7,
			},
			Actions: []Action{
				{DeviceID: "living-room-light", Capability: "switchLevel", Command: "setLevel", Arguments: []any{100}},
				{DeviceID: "desk-light", Capability: "switch", Command: "on"},
			},
		},
		{
			Name:        "Crisis Mode",
			Description: "Calm the house fast: soft light, everything quiet, doors locked",
			Icon:        "shield",
			Colour:      "#9f7aea",
			Favourite:   true,
			HealthTrigger: &HealthTrigger{
				Metric:     MetricAnxiety,
				Comparison: ComparisonAbove,
				Threshold:  8,
			},
			Actions: []Action{
				{DeviceID: "living-room-light", Capability: "switchLevel", Command: "setLevel", Arguments: []any{15}},
				{DeviceID: "speaker", Capability: "switch", Command: "off"},
				{DeviceID: "front-door-lock", Capability: "lock", Command: "lock", DelayMS: 500},
			},
		},
	}
}

// CreatePresetScenes seeds the starter scenes into an empty install.
//
// The guard is a count check, not per-scene dedup: if any scene exists,
// nothing is seeded. Calling it twice therefore yields the same scene
// count as calling it once.
//
// Returns:
//   - int: Number of scenes created (0 when the store was not empty)
//   - error: Repository failure; partial seeding is possible on error
func (s *Store) CreatePresetScenes(ctx context.Context) (int, error) {
	count, err := s.repo.CountScenes(ctx)
	if err != nil {
		return 0, fmt.Errorf("checking scene count: %w", err)
	}
	if count > 0 {
		s.logger.Debug("preset seeding skipped", "existing_scenes", count)
		return 0, nil
	}

	created := 0
	for _, preset := range presetScenes() {
		scene := preset
		if err := s.CreateScene(ctx, &scene); err != nil {
			return created, fmt.Errorf("seeding %q: %w", scene.Name, err)
		}
		created++
	}

	s.logger.Info("preset scenes created", "count", created)
	return created, nil
}
