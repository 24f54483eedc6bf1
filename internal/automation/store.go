package automation

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Logger defines the logging interface used by this package.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Store provides scene and automation management with caching and
// thread safety. It wraps a Repository and adds an in-memory cache so
// the scheduler's per-tick reads never touch the database.
//
// The cache is populated on startup via RefreshCache() and kept in sync
// by cache-updating CRUD operations.
//
// All public methods are thread-safe.
type Store struct {
	repo Repository

	scenesMu sync.RWMutex
	scenes   map[string]*Scene // Cached scenes by ID

	autosMu sync.RWMutex
	autos   map[string]*Automation // Cached automations by ID

	logger Logger
}

// NewStore creates a new scene and automation store.
// The repository is used for persistence; the store adds caching.
func NewStore(repo Repository) *Store {
	return &Store{
		repo:   repo,
		scenes: make(map[string]*Scene),
		autos:  make(map[string]*Automation),
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the store.
func (s *Store) SetLogger(logger Logger) {
	s.logger = logger
}

// RefreshCache reloads all scenes and automations from the repository.
// This should be called on application startup.
func (s *Store) RefreshCache(ctx context.Context) error {
	scenes, err := s.repo.ListScenes(ctx)
	if err != nil {
		return fmt.Errorf("loading scenes: %w", err)
	}
	automations, err := s.repo.ListAutomations(ctx)
	if err != nil {
		return fmt.Errorf("loading automations: %w", err)
	}

	s.scenesMu.Lock()
	s.scenes = make(map[string]*Scene, len(scenes))
	for i := range scenes {
		sc := scenes[i]
		s.scenes[sc.ID] = sc.DeepCopy()
	}
	s.scenesMu.Unlock()

	s.autosMu.Lock()
	s.autos = make(map[string]*Automation, len(automations))
	for i := range automations {
		a := automations[i]
		s.autos[a.ID] = a.DeepCopy()
	}
	s.autosMu.Unlock()

	s.logger.Info("automation cache refreshed",
		"scenes", len(scenes),
		"automations", len(automations))
	return nil
}

// ─── Scenes ─────────────────────────────────────────────────────────────────

// GetScene retrieves a scene by ID.
// The returned scene is a deep copy; callers can safely modify it.
func (s *Store) GetScene(_ context.Context, id string) (*Scene, error) {
	s.scenesMu.RLock()
	cached, ok := s.scenes[id]
	s.scenesMu.RUnlock()

	if ok {
		return cached.DeepCopy(), nil
	}
	return nil, ErrSceneNotFound
}

// ListScenes retrieves all scenes from the cache.
// Returns deep copies sorted by name for deterministic ordering.
func (s *Store) ListScenes(_ context.Context) ([]Scene, error) {
	s.scenesMu.RLock()
	defer s.scenesMu.RUnlock()

	scenes := make([]Scene, 0, len(s.scenes))
	for _, sc := range s.scenes {
		scenes = append(scenes, *sc.DeepCopy())
	}
	sort.Slice(scenes, func(i, j int) bool { return scenes[i].Name < scenes[j].Name })
	return scenes, nil
}

// ListFavouriteScenes retrieves favourited scenes, sorted by name.
func (s *Store) ListFavouriteScenes(_ context.Context) ([]Scene, error) {
	s.scenesMu.RLock()
	defer s.scenesMu.RUnlock()

	var scenes []Scene
	for _, sc := range s.scenes {
		if sc.Favourite {
			scenes = append(scenes, *sc.DeepCopy())
		}
	}
	sort.Slice(scenes, func(i, j int) bool { return scenes[i].Name < scenes[j].Name })
	return scenes, nil
}

// CreateScene validates, persists, and caches a new scene.
func (s *Store) CreateScene(ctx context.Context, scene *Scene) error {
	if scene.ID == "" {
		scene.ID = GenerateID()
	}

	if err := ValidateScene(scene); err != nil {
		return err
	}

	if err := s.repo.CreateScene(ctx, scene); err != nil {
		return err
	}

	s.scenesMu.Lock()
	s.scenes[scene.ID] = scene.DeepCopy()
	s.scenesMu.Unlock()

	s.logger.Info("scene created", "id", scene.ID, "name", scene.Name)
	return nil
}

// UpdateScene validates, persists, and updates the cached scene.
func (s *Store) UpdateScene(ctx context.Context, scene *Scene) error {
	if err := ValidateScene(scene); err != nil {
		return err
	}

	if err := s.repo.UpdateScene(ctx, scene); err != nil {
		return err
	}

	s.scenesMu.Lock()
	s.scenes[scene.ID] = scene.DeepCopy()
	s.scenesMu.Unlock()

	s.logger.Info("scene updated", "id", scene.ID, "name", scene.Name)
	return nil
}

// DeleteScene removes a scene from persistence and cache.
func (s *Store) DeleteScene(ctx context.Context, id string) error {
	if err := s.repo.DeleteScene(ctx, id); err != nil {
		return err
	}

	s.scenesMu.Lock()
	delete(s.scenes, id)
	s.scenesMu.Unlock()

	s.logger.Info("scene deleted", "id", id)
	return nil
}

// SceneCount returns the number of cached scenes.
func (s *Store) SceneCount() int {
	s.scenesMu.RLock()
	defer s.scenesMu.RUnlock()
	return len(s.scenes)
}

// ScenesByHealthMetric returns scenes whose health trigger matches the
// given metric, sorted by name. Used by the suggestion engine to resolve
// a metric threshold to candidate scenes.
func (s *Store) ScenesByHealthMetric(metric Metric) []Scene {
	s.scenesMu.RLock()
	defer s.scenesMu.RUnlock()

	var scenes []Scene
	for _, sc := range s.scenes {
		if sc.HealthTrigger != nil && sc.HealthTrigger.Metric == metric {
			scenes = append(scenes, *sc.DeepCopy())
		}
	}
	sort.Slice(scenes, func(i, j int) bool { return scenes[i].Name < scenes[j].Name })
	return scenes
}

// ─── Automations ────────────────────────────────────────────────────────────

// GetAutomation retrieves an automation by ID.
// The returned automation is a deep copy; callers can safely modify it.
func (s *Store) GetAutomation(_ context.Context, id string) (*Automation, error) {
	s.autosMu.RLock()
	cached, ok := s.autos[id]
	s.autosMu.RUnlock()

	if ok {
		return cached.DeepCopy(), nil
	}
	return nil, ErrAutomationNotFound
}

// ListAutomations retrieves all automations from the cache.
// Returns deep copies sorted by name for deterministic ordering.
func (s *Store) ListAutomations(_ context.Context) ([]Automation, error) {
	s.autosMu.RLock()
	defer s.autosMu.RUnlock()

	automations := make([]Automation, 0, len(s.autos))
	for _, a := range s.autos {
		automations = append(automations, *a.DeepCopy())
	}
	sort.Slice(automations, func(i, j int) bool { return automations[i].Name < automations[j].Name })
	return automations, nil
}

// ListEnabledAutomations retrieves enabled automations only. This is the
// scheduler's per-tick read path.
func (s *Store) ListEnabledAutomations(_ context.Context) []Automation {
	s.autosMu.RLock()
	defer s.autosMu.RUnlock()

	var automations []Automation
	for _, a := range s.autos {
		if a.Enabled {
			automations = append(automations, *a.DeepCopy())
		}
	}
	sort.Slice(automations, func(i, j int) bool { return automations[i].Name < automations[j].Name })
	return automations
}

// CreateAutomation validates, persists, and caches a new automation.
func (s *Store) CreateAutomation(ctx context.Context, a *Automation) error {
	if a.ID == "" {
		a.ID = GenerateID()
	}

	if err := ValidateAutomation(a); err != nil {
		return err
	}

	if err := s.repo.CreateAutomation(ctx, a); err != nil {
		return err
	}

	s.autosMu.Lock()
	s.autos[a.ID] = a.DeepCopy()
	s.autosMu.Unlock()

	s.logger.Info("automation created",
		"id", a.ID,
		"name", a.Name,
		"trigger", string(a.Trigger.Type))
	return nil
}

// UpdateAutomation validates, persists, and updates the cached automation.
// Trigger state (LastTriggered, LastTriggeredDate) is preserved from the
// cached copy; only MarkTriggered mutates it.
func (s *Store) UpdateAutomation(ctx context.Context, a *Automation) error {
	if err := ValidateAutomation(a); err != nil {
		return err
	}

	if err := s.repo.UpdateAutomation(ctx, a); err != nil {
		return err
	}

	s.autosMu.Lock()
	if existing, ok := s.autos[a.ID]; ok {
		a.LastTriggered = cloneTimePtr(existing.LastTriggered)
		a.LastTriggeredDate = existing.LastTriggeredDate
	}
	s.autos[a.ID] = a.DeepCopy()
	s.autosMu.Unlock()

	s.logger.Info("automation updated", "id", a.ID, "name", a.Name)
	return nil
}

// SetAutomationEnabled flips the enabled flag. Disabling does not cancel
// an in-flight run; it only stops future firings.
func (s *Store) SetAutomationEnabled(ctx context.Context, id string, enabled bool) error {
	a, err := s.GetAutomation(ctx, id)
	if err != nil {
		return err
	}
	if a.Enabled == enabled {
		return nil
	}

	a.Enabled = enabled
	if err := s.repo.UpdateAutomation(ctx, a); err != nil {
		return err
	}

	s.autosMu.Lock()
	if cached, ok := s.autos[id]; ok {
		cached.Enabled = enabled
		cached.UpdatedAt = a.UpdatedAt
	}
	s.autosMu.Unlock()

	s.logger.Info("automation toggled", "id", id, "enabled", enabled)
	return nil
}

// DeleteAutomation removes an automation from persistence and cache.
func (s *Store) DeleteAutomation(ctx context.Context, id string) error {
	if err := s.repo.DeleteAutomation(ctx, id); err != nil {
		return err
	}

	s.autosMu.Lock()
	delete(s.autos, id)
	s.autosMu.Unlock()

	s.logger.Info("automation deleted", "id", id)
	return nil
}

// MarkTriggered records a firing in both the repository and the cache.
// Called on every fire, before actions run, so the once-per-day dedup
// holds even if the process restarts mid-execution.
func (s *Store) MarkTriggered(ctx context.Context, id string, at time.Time, date string) error {
	if err := s.repo.MarkTriggered(ctx, id, at, date); err != nil {
		return err
	}

	s.autosMu.Lock()
	if cached, ok := s.autos[id]; ok {
		if cached.LastTriggered == nil || !cached.LastTriggered.After(at) {
			t := at
			cached.LastTriggered = &t
			cached.LastTriggeredDate = date
		}
	}
	s.autosMu.Unlock()
	return nil
}

// ─── Executions ─────────────────────────────────────────────────────────────

// RecordExecution persists a started execution record.
func (s *Store) RecordExecution(ctx context.Context, exec *Execution) error {
	return s.repo.CreateExecution(ctx, exec)
}

// FinishExecution persists the final outcome of an execution.
func (s *Store) FinishExecution(ctx context.Context, exec *Execution) error {
	return s.repo.FinishExecution(ctx, exec)
}

// GetExecution retrieves an execution record by ID.
func (s *Store) GetExecution(ctx context.Context, id string) (*Execution, error) {
	return s.repo.GetExecution(ctx, id)
}

// ListExecutions retrieves recent executions, newest first. An empty
// sourceID lists across all scenes and automations.
func (s *Store) ListExecutions(ctx context.Context, sourceID string, limit int) ([]Execution, error) {
	return s.repo.ListExecutions(ctx, sourceID, limit)
}

func cloneTimePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	cpy := *t
	return &cpy
}
