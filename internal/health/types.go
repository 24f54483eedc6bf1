package health

import "time"

// Metric names, matching the fields written by the tracking app.
const (
	MetricPain    = "pain"
	MetricEnergy  = "energy"
	MetricMood    = "mood"
	MetricAnxiety = "anxiety"
)

// Snapshot is one body-weather reading. Each metric is optional: the
// tracking app lets the user log any subset, so a nil pointer means
// "not reported", which is distinct from zero.
type Snapshot struct {
	Timestamp time.Time `json:"timestamp"`
	Pain      *int      `json:"pain,omitempty"`
	Energy    *int      `json:"energy,omitempty"`
	Mood      *int      `json:"mood,omitempty"`
	Anxiety   *int      `json:"anxiety,omitempty"`
}

// Metric returns the named metric's value. The second return is false
// when the metric was not reported in this snapshot or the name is
// unknown.
func (s *Snapshot) Metric(name string) (int, bool) {
	var p *int
	switch name {
	case MetricPain:
		p = s.Pain
	case MetricEnergy:
		p = s.Energy
	case MetricMood:
		p = s.Mood
	case MetricAnxiety:
		p = s.Anxiety
	default:
		return 0, false
	}
	if p == nil {
		return 0, false
	}
	return *p, true
}

// Priority ranks suggestions.
type Priority string

// Priorities, ordered high > medium > low.
const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// rank maps priorities to a sortable weight.
func (p Priority) rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	case PriorityLow:
		return 2
	default:
		return 3
	}
}

// Suggestion is a ranked scene recommendation.
type Suggestion struct {
	SceneID   string    `json:"scene_id"`
	SceneName string    `json:"scene_name"`
	Priority  Priority  `json:"priority"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}
