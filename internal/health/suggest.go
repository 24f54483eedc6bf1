package health

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/homepulse/homepulse-core/internal/automation"
)

// SnapshotSource supplies the latest body-weather reading. Satisfied by
// Store.
type SnapshotSource interface {
	Latest(ctx context.Context) (*Snapshot, error)
}

// SceneSource lists the scenes suggestions resolve against. Satisfied
// by the automation store.
type SceneSource interface {
	ListScenes(ctx context.Context) ([]automation.Scene, error)
}

// SceneRunner executes an activated suggestion's scene. Satisfied by
// the automation executor.
type SceneRunner interface {
	ExecuteScene(ctx context.Context, sceneID, triggerType string) (*automation.Execution, error)
}

// WSHub is the interface for broadcasting WebSocket events.
type WSHub interface {
	Broadcast(channel string, payload any)
}

// TriggerSuggestion marks scene executions started by activating a
// suggestion.
const TriggerSuggestion = "suggestion"

// defaultCycle is the interval between suggestion recomputations.
const defaultCycle = 5 * time.Minute

// rule is one row of the fixed suggestion table. Rows are evaluated in
// order; when several rows resolve to the same scene the earlier, and
// therefore higher-priority, row wins.
type rule struct {
	priority Priority
	reason   string
	metric   string   // resolve via scene health triggers, empty for time rules
	keywords []string // fallback resolution by scene name
	matches  func(snap *Snapshot, hour int) bool
}

func ruleTable() []rule {
	metricAtLeast := func(metric string, threshold int) func(*Snapshot, int) bool {
		return func(snap *Snapshot, _ int) bool {
			if snap == nil {
				return false
			}
			v, ok := snap.Metric(metric)
			return ok && v >= threshold
		}
	}

	return []rule{
		{
			priority: PriorityHigh,
			reason:   "High pain reported",
			metric:   MetricPain,
			keywords: []string{"pain", "relief"},
			matches:  metricAtLeast(MetricPain, 7),
		},
		{
			priority: PriorityHigh,
			reason:   "High anxiety reported",
			metric:   MetricAnxiety,
			keywords: []string{"calm", "crisis"},
			matches:  metricAtLeast(MetricAnxiety, 7),
		},
		{
			priority: PriorityMedium,
			reason:   "Low energy reported",
			metric:   MetricEnergy,
			keywords: []string{"energis", "energiz", "boost"},
			matches: func(snap *Snapshot, _ int) bool {
				if snap == nil {
					return false
				}
				v, ok := snap.Metric(MetricEnergy)
				return ok && v <= 3
			},
		},
		{
			priority: PriorityLow,
			reason:   "Good mood and energy",
			keywords: []string{"productiv", "focus", "work", "energy"},
			matches: func(snap *Snapshot, _ int) bool {
				if snap == nil {
					return false
				}
				mood, okM := snap.Metric(MetricMood)
				energy, okE := snap.Metric(MetricEnergy)
				return okM && okE && mood >= 7 && energy >= 7
			},
		},
		{
			priority: PriorityMedium,
			reason:   "Late evening",
			keywords: []string{"bedtime", "night", "sleep"},
			matches: func(_ *Snapshot, hour int) bool {
				return hour >= 21 || hour < 5
			},
		},
		{
			priority: PriorityLow,
			reason:   "Morning",
			keywords: []string{"morning", "wake"},
			matches: func(_ *Snapshot, hour int) bool {
				return hour >= 6 && hour < 9
			},
		},
	}
}

// Suggestor is the health suggestion engine.
//
// It owns a cancellable background loop recomputing suggestions every
// cycle. Start and Stop are idempotent: a second Start is a no-op while
// running, and Stop on a stopped Suggestor does nothing. The dismissed
// set is session-scoped; it empties on restart.
type Suggestor struct {
	snapshots SnapshotSource
	scenes    SceneSource
	runner    SceneRunner
	hub       WSHub // may be nil
	location  *time.Location
	cycle     time.Duration
	logger    Logger
	now       func() time.Time // injectable clock for tests

	mu        sync.Mutex
	running   bool
	cancel    context.CancelFunc
	done      chan struct{}
	current   []Suggestion
	dismissed map[string]bool // scene IDs, session lifetime
}

// NewSuggestor creates a suggestion engine. The loop is not started;
// call Start.
func NewSuggestor(snapshots SnapshotSource, scenes SceneSource, runner SceneRunner, location *time.Location) *Suggestor {
	if location == nil {
		location = time.UTC
	}
	return &Suggestor{
		snapshots: snapshots,
		scenes:    scenes,
		runner:    runner,
		location:  location,
		cycle:     defaultCycle,
		logger:    noopLogger{},
		now:       time.Now,
		dismissed: make(map[string]bool),
	}
}

// SetLogger sets the logger for the suggestor.
func (s *Suggestor) SetLogger(logger Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// SetHub sets the WebSocket hub for suggestion broadcasts.
func (s *Suggestor) SetHub(hub WSHub) {
	s.hub = hub
}

// SetCycle overrides the recomputation interval. Must be called before
// Start.
func (s *Suggestor) SetCycle(d time.Duration) {
	if d > 0 {
		s.cycle = d
	}
}

// Start launches the background loop. Calling Start on a running
// Suggestor is a no-op; exactly one loop exists at a time.
func (s *Suggestor) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running = true

	go s.loop(ctx, s.done)

	s.logger.Info("suggestion engine started", "cycle", s.cycle.String())
	return nil
}

// Stop halts the background loop and waits for it to exit. Calling
// Stop on a stopped Suggestor is a no-op.
func (s *Suggestor) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel := s.cancel
	done := s.done
	s.mu.Unlock()

	cancel()
	<-done
	s.logger.Info("suggestion engine stopped")
}

// Running reports whether the background loop is active.
func (s *Suggestor) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Suggestions returns the current ranked list. The returned slice is a
// copy.
func (s *Suggestor) Suggestions() []Suggestion {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Suggestion, len(s.current))
	copy(out, s.current)
	return out
}

// Activate executes a suggested scene and dismisses the suggestion.
//
// Returns:
//   - *automation.Execution: The scene run's result
//   - error: ErrSuggestionNotFound if the scene is not currently
//     suggested, or the execution error
func (s *Suggestor) Activate(ctx context.Context, sceneID string) (*automation.Execution, error) {
	if !s.isSuggested(sceneID) {
		return nil, ErrSuggestionNotFound
	}

	exec, err := s.runner.ExecuteScene(ctx, sceneID, TriggerSuggestion)
	if err != nil {
		return nil, err
	}

	s.dismiss(sceneID)
	s.logger.Info("suggestion activated", "scene_id", sceneID)
	return exec, nil
}

// Dismiss removes a suggestion without executing its scene. The scene
// stays excluded from future cycles for the rest of the session.
func (s *Suggestor) Dismiss(sceneID string) error {
	if !s.isSuggested(sceneID) {
		return ErrSuggestionNotFound
	}
	s.dismiss(sceneID)
	s.logger.Info("suggestion dismissed", "scene_id", sceneID)
	return nil
}

// RefreshNow recomputes suggestions immediately. Exposed for the API's
// suggestion listing so a fresh login does not wait out the cycle.
func (s *Suggestor) RefreshNow(ctx context.Context) {
	s.recompute(ctx)
}

// ─── Internal ───────────────────────────────────────────────────────────────

func (s *Suggestor) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	// First cycle runs immediately.
	s.recompute(ctx)

	ticker := time.NewTicker(s.cycle)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.recompute(ctx)
		}
	}
}

// recompute rebuilds the suggestion list from the latest snapshot, the
// current time-of-day and the scene catalogue, then broadcasts it.
func (s *Suggestor) recompute(ctx context.Context) {
	now := s.now().In(s.location)

	snap := s.latestFresh(ctx, now)

	scenes, err := s.scenes.ListScenes(ctx)
	if err != nil {
		s.logger.Error("scene listing failed", "error", err)
		return
	}

	matched := make(map[string]Suggestion)
	var order []string

	for _, r := range ruleTable() {
		if !r.matches(snap, now.Hour()) {
			continue
		}
		scene := resolveScene(r, snap, scenes)
		if scene == nil {
			continue
		}
		if s.isDismissed(scene.ID) {
			continue
		}
		if _, seen := matched[scene.ID]; seen {
			// An earlier, higher-priority rule already claimed it.
			continue
		}
		matched[scene.ID] = Suggestion{
			SceneID:   scene.ID,
			SceneName: scene.Name,
			Priority:  r.priority,
			Reason:    r.reason,
			CreatedAt: now,
		}
		order = append(order, scene.ID)
	}

	suggestions := make([]Suggestion, 0, len(order))
	for _, id := range order {
		suggestions = append(suggestions, matched[id])
	}
	sortSuggestions(suggestions)

	s.mu.Lock()
	s.current = suggestions
	s.mu.Unlock()

	s.logger.Debug("suggestions recomputed", "count", len(suggestions))

	if s.hub != nil {
		s.hub.Broadcast("suggestions.updated", map[string]any{
			"suggestions": suggestions,
		})
	}
}

// latestFresh fetches the newest snapshot, discarding readings older
// than staleAfter; stale body weather should not drive the house.
func (s *Suggestor) latestFresh(ctx context.Context, now time.Time) *Snapshot {
	snap, err := s.snapshots.Latest(ctx)
	if err != nil {
		if !errors.Is(err, ErrNoSnapshots) && !errors.Is(err, ErrStoreUnavailable) {
			s.logger.Warn("snapshot fetch failed", "error", err)
		}
		return nil
	}
	if now.Sub(snap.Timestamp) > staleAfter {
		return nil
	}
	return snap
}

// resolveScene maps a matched rule to a concrete scene. Scenes whose
// health trigger is satisfied by the snapshot take precedence; name
// keywords are the fallback.
func resolveScene(r rule, snap *Snapshot, scenes []automation.Scene) *automation.Scene {
	if r.metric != "" && snap != nil {
		if value, ok := snap.Metric(r.metric); ok {
			for i := range scenes {
				ht := scenes[i].HealthTrigger
				if ht == nil || string(ht.Metric) != r.metric {
					continue
				}
				if thresholdSatisfied(value, ht.Comparison, ht.Threshold) {
					return &scenes[i]
				}
			}
		}
	}

	for i := range scenes {
		name := strings.ToLower(scenes[i].Name)
		for _, kw := range r.keywords {
			if strings.Contains(name, kw) {
				return &scenes[i]
			}
		}
	}
	return nil
}

// thresholdSatisfied mirrors the scheduler's inclusive comparisons.
func thresholdSatisfied(value int, cmp automation.Comparison, threshold int) bool {
	switch cmp {
	case automation.ComparisonAbove:
		return value >= threshold
	case automation.ComparisonBelow:
		return value <= threshold
	case automation.ComparisonEquals:
		return value == threshold
	default:
		return false
	}
}

func sortSuggestions(suggestions []Suggestion) {
	// Stable: equal priorities keep rule-table order.
	for i := 1; i < len(suggestions); i++ {
		for j := i; j > 0 && suggestions[j].Priority.rank() < suggestions[j-1].Priority.rank(); j-- {
			suggestions[j], suggestions[j-1] = suggestions[j-1], suggestions[j]
		}
	}
}

func (s *Suggestor) isSuggested(sceneID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sug := range s.current {
		if sug.SceneID == sceneID {
			return true
		}
	}
	return false
}

func (s *Suggestor) isDismissed(sceneID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dismissed[sceneID]
}

func (s *Suggestor) dismiss(sceneID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dismissed[sceneID] = true
	// Fresh slice: the previous one may still be referenced by a
	// broadcast payload built outside the lock.
	kept := make([]Suggestion, 0, len(s.current))
	for _, sug := range s.current {
		if sug.SceneID != sceneID {
			kept = append(kept, sug)
		}
	}
	s.current = kept
}
