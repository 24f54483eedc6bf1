package automation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// mockRepo is an in-memory Repository for tests that do not need SQLite.
type mockRepo struct {
	mu         sync.Mutex
	scenes     map[string]*Scene
	autos      map[string]*Automation
	executions map[string]*Execution

	failCreate bool
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		scenes:     make(map[string]*Scene),
		autos:      make(map[string]*Automation),
		executions: make(map[string]*Execution),
	}
}

func (m *mockRepo) GetScene(_ context.Context, id string) (*Scene, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.scenes[id]
	if !ok {
		return nil, ErrSceneNotFound
	}
	return s.DeepCopy(), nil
}

func (m *mockRepo) ListScenes(_ context.Context) ([]Scene, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Scene, 0, len(m.scenes))
	for _, s := range m.scenes {
		out = append(out, *s.DeepCopy())
	}
	return out, nil
}

func (m *mockRepo) CountScenes(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.scenes), nil
}

func (m *mockRepo) CreateScene(_ context.Context, scene *Scene) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCreate {
		return errors.New("mock: create failed")
	}
	for _, existing := range m.scenes {
		if existing.Name == scene.Name {
			return ErrDuplicateName
		}
	}
	m.scenes[scene.ID] = scene.DeepCopy()
	return nil
}

func (m *mockRepo) UpdateScene(_ context.Context, scene *Scene) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.scenes[scene.ID]; !ok {
		return ErrSceneNotFound
	}
	m.scenes[scene.ID] = scene.DeepCopy()
	return nil
}

func (m *mockRepo) DeleteScene(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.scenes[id]; !ok {
		return ErrSceneNotFound
	}
	delete(m.scenes, id)
	return nil
}

func (m *mockRepo) GetAutomation(_ context.Context, id string) (*Automation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.autos[id]
	if !ok {
		return nil, ErrAutomationNotFound
	}
	return a.DeepCopy(), nil
}

func (m *mockRepo) ListAutomations(_ context.Context) ([]Automation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Automation, 0, len(m.autos))
	for _, a := range m.autos {
		out = append(out, *a.DeepCopy())
	}
	return out, nil
}

func (m *mockRepo) CreateAutomation(_ context.Context, a *Automation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.autos[a.ID] = a.DeepCopy()
	return nil
}

func (m *mockRepo) UpdateAutomation(_ context.Context, a *Automation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.autos[a.ID]; !ok {
		return ErrAutomationNotFound
	}
	m.autos[a.ID] = a.DeepCopy()
	return nil
}

func (m *mockRepo) DeleteAutomation(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.autos[id]; !ok {
		return ErrAutomationNotFound
	}
	delete(m.autos, id)
	return nil
}

func (m *mockRepo) MarkTriggered(_ context.Context, id string, at time.Time, date string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.autos[id]
	if !ok {
		return ErrAutomationNotFound
	}
	if a.LastTriggered == nil || !a.LastTriggered.After(at) {
		t := at
		a.LastTriggered = &t
		a.LastTriggeredDate = date
	}
	return nil
}

func (m *mockRepo) CreateExecution(_ context.Context, exec *Execution) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cpy := *exec
	m.executions[exec.ID] = &cpy
	return nil
}

func (m *mockRepo) FinishExecution(_ context.Context, exec *Execution) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.executions[exec.ID]; !ok {
		return ErrExecutionNotFound
	}
	cpy := *exec
	m.executions[exec.ID] = &cpy
	return nil
}

func (m *mockRepo) GetExecution(_ context.Context, id string) (*Execution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.executions[id]
	if !ok {
		return nil, ErrExecutionNotFound
	}
	cpy := *e
	return &cpy, nil
}

func (m *mockRepo) ListExecutions(_ context.Context, sourceID string, _ int) ([]Execution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Execution
	for _, e := range m.executions {
		if sourceID == "" || e.SourceID == sourceID {
			out = append(out, *e)
		}
	}
	return out, nil
}

// ─── Fixtures ───────────────────────────────────────────────────────────────

func testStoreScene(name string) *Scene {
	return &Scene{
		Name: name,
		Actions: []Action{
			{DeviceID: "light-1", Capability: "switch", Command: "on"},
		},
	}
}

func testStoreAutomation(name string) *Automation {
	return &Automation{
		Name:    name,
		Enabled: true,
		Trigger: Trigger{Type: TriggerTime, Time: "08:00"},
		Actions: []Action{
			{DeviceID: "light-1", Capability: "switch", Command: "on"},
		},
	}
}

func newTestStore(t *testing.T) (*Store, *mockRepo) {
	t.Helper()
	repo := newMockRepo()
	store := NewStore(repo)
	if err := store.RefreshCache(context.Background()); err != nil {
		t.Fatalf("RefreshCache() error = %v", err)
	}
	return store, repo
}

// ─── Scene Tests ────────────────────────────────────────────────────────────

func TestStore_CreateScene(t *testing.T) {
	store, repo := newTestStore(t)
	ctx := context.Background()

	scene := testStoreScene("Cinema Mode")
	if err := store.CreateScene(ctx, scene); err != nil {
		t.Fatalf("CreateScene() error = %v", err)
	}

	if scene.ID == "" {
		t.Error("ID should be generated")
	}

	// Cached
	got, err := store.GetScene(ctx, scene.ID)
	if err != nil {
		t.Fatalf("GetScene() error = %v", err)
	}
	if got.Name != "Cinema Mode" {
		t.Errorf("Name = %q", got.Name)
	}

	// Persisted
	if _, err := repo.GetScene(ctx, scene.ID); err != nil {
		t.Errorf("scene not persisted: %v", err)
	}
}

func TestStore_CreateScene_Invalid(t *testing.T) {
	store, _ := newTestStore(t)

	scene := testStoreScene("")
	err := store.CreateScene(context.Background(), scene)
	if !errors.Is(err, ErrInvalidName) {
		t.Errorf("CreateScene() error = %v, want ErrInvalidName", err)
	}
	if store.SceneCount() != 0 {
		t.Error("invalid scene must not be cached")
	}
}

func TestStore_CreateScene_DuplicateName(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	if err := store.CreateScene(ctx, testStoreScene("Evening")); err != nil {
		t.Fatalf("CreateScene() error = %v", err)
	}
	err := store.CreateScene(ctx, testStoreScene("Evening"))
	if !errors.Is(err, ErrDuplicateName) {
		t.Errorf("CreateScene() error = %v, want ErrDuplicateName", err)
	}
}

func TestStore_GetScene_ReturnsDeepCopy(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	scene := testStoreScene("Evening")
	if err := store.CreateScene(ctx, scene); err != nil {
		t.Fatalf("CreateScene() error = %v", err)
	}

	first, _ := store.GetScene(ctx, scene.ID)
	first.Name = "tampered"
	first.Actions[0].Command = "tampered"

	second, _ := store.GetScene(ctx, scene.ID)
	if second.Name == "tampered" || second.Actions[0].Command == "tampered" {
		t.Error("cache mutated through returned copy")
	}
}

func TestStore_DeleteScene(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	scene := testStoreScene("Evening")
	if err := store.CreateScene(ctx, scene); err != nil {
		t.Fatalf("CreateScene() error = %v", err)
	}
	if err := store.DeleteScene(ctx, scene.ID); err != nil {
		t.Fatalf("DeleteScene() error = %v", err)
	}

	if _, err := store.GetScene(ctx, scene.ID); !errors.Is(err, ErrSceneNotFound) {
		t.Errorf("GetScene() after delete error = %v, want ErrSceneNotFound", err)
	}
}

func TestStore_ScenesByHealthMetric(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	pain := testStoreScene("Pain Relief")
	pain.HealthTrigger = &HealthTrigger{Metric: MetricPain, Comparison: ComparisonAbove, Threshold: 7}
	calm := testStoreScene("Calm")
	calm.HealthTrigger = &HealthTrigger{Metric: MetricAnxiety, Comparison: ComparisonAbove, Threshold: 7}
	plain := testStoreScene("Plain")

	for _, s := range []*Scene{pain, calm, plain} {
		if err := store.CreateScene(ctx, s); err != nil {
			t.Fatalf("CreateScene(%s) error = %v", s.Name, err)
		}
	}

	got := store.ScenesByHealthMetric(MetricPain)
	if len(got) != 1 || got[0].Name != "Pain Relief" {
		t.Errorf("ScenesByHealthMetric(pain) = %v", got)
	}
}

// ─── Preset Tests ───────────────────────────────────────────────────────────

func TestCreatePresetScenes_Idempotent(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	created, err := store.CreatePresetScenes(ctx)
	if err != nil {
		t.Fatalf("CreatePresetScenes() error = %v", err)
	}
	if created == 0 {
		t.Fatal("first seeding should create scenes")
	}

	countAfterFirst := store.SceneCount()

	// Second call must be a no-op
	created, err = store.CreatePresetScenes(ctx)
	if err != nil {
		t.Fatalf("CreatePresetScenes() second call error = %v", err)
	}
	if created != 0 {
		t.Errorf("second seeding created %d scenes, want 0", created)
	}
	if store.SceneCount() != countAfterFirst {
		t.Errorf("scene count changed: %d -> %d", countAfterFirst, store.SceneCount())
	}
}

func TestCreatePresetScenes_SkipsNonEmptyStore(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	if err := store.CreateScene(ctx, testStoreScene("Mine")); err != nil {
		t.Fatalf("CreateScene() error = %v", err)
	}

	created, err := store.CreatePresetScenes(ctx)
	if err != nil {
		t.Fatalf("CreatePresetScenes() error = %v", err)
	}
	if created != 0 {
		t.Errorf("seeding into non-empty store created %d scenes, want 0", created)
	}
}

func TestPresetScenes_AllValid(t *testing.T) {
	for _, preset := range presetScenes() {
		scene := preset
		scene.ID = GenerateID()
		if err := ValidateScene(&scene); err != nil {
			t.Errorf("preset %q invalid: %v", scene.Name, err)
		}
	}
}

// ─── Automation Tests ───────────────────────────────────────────────────────

func TestStore_CreateAutomation(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	a := testStoreAutomation("Morning Lights")
	if err := store.CreateAutomation(ctx, a); err != nil {
		t.Fatalf("CreateAutomation() error = %v", err)
	}

	got, err := store.GetAutomation(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetAutomation() error = %v", err)
	}
	if got.Trigger.Time != "08:00" {
		t.Errorf("Trigger.Time = %q", got.Trigger.Time)
	}
}

func TestStore_CreateAutomation_InvalidTrigger(t *testing.T) {
	store, _ := newTestStore(t)

	a := testStoreAutomation("Broken")
	a.Trigger = Trigger{Type: TriggerDevice} // missing device_id and attribute

	err := store.CreateAutomation(context.Background(), a)
	if !errors.Is(err, ErrInvalidTrigger) {
		t.Errorf("CreateAutomation() error = %v, want ErrInvalidTrigger", err)
	}
}

func TestStore_SetAutomationEnabled(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	a := testStoreAutomation("Morning Lights")
	if err := store.CreateAutomation(ctx, a); err != nil {
		t.Fatalf("CreateAutomation() error = %v", err)
	}

	if err := store.SetAutomationEnabled(ctx, a.ID, false); err != nil {
		t.Fatalf("SetAutomationEnabled() error = %v", err)
	}

	got, _ := store.GetAutomation(ctx, a.ID)
	if got.Enabled {
		t.Error("automation should be disabled")
	}
	if enabled := store.ListEnabledAutomations(ctx); len(enabled) != 0 {
		t.Errorf("ListEnabledAutomations() = %d entries, want 0", len(enabled))
	}

	// Toggling to the current state is a no-op, not an error
	if err := store.SetAutomationEnabled(ctx, a.ID, false); err != nil {
		t.Errorf("idempotent toggle error = %v", err)
	}
}

func TestStore_UpdateAutomation_PreservesTriggerState(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	a := testStoreAutomation("Morning Lights")
	if err := store.CreateAutomation(ctx, a); err != nil {
		t.Fatalf("CreateAutomation() error = %v", err)
	}

	fired := time.Now().UTC()
	if err := store.MarkTriggered(ctx, a.ID, fired, fired.Format("2006-01-02")); err != nil {
		t.Fatalf("MarkTriggered() error = %v", err)
	}

	edit, _ := store.GetAutomation(ctx, a.ID)
	edit.Name = "Renamed"
	edit.LastTriggered = nil // caller-supplied state must not clobber
	edit.LastTriggeredDate = ""
	if err := store.UpdateAutomation(ctx, edit); err != nil {
		t.Fatalf("UpdateAutomation() error = %v", err)
	}

	got, _ := store.GetAutomation(ctx, a.ID)
	if got.Name != "Renamed" {
		t.Errorf("Name = %q", got.Name)
	}
	if got.LastTriggered == nil || got.LastTriggeredDate == "" {
		t.Error("trigger state lost on update")
	}
}

func TestStore_MarkTriggered_Monotonic(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	a := testStoreAutomation("Morning Lights")
	if err := store.CreateAutomation(ctx, a); err != nil {
		t.Fatalf("CreateAutomation() error = %v", err)
	}

	later := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	earlier := later.Add(-time.Hour)

	if err := store.MarkTriggered(ctx, a.ID, later, "2026-03-10"); err != nil {
		t.Fatalf("MarkTriggered() error = %v", err)
	}
	// An out-of-order older write must not move lastTriggered backwards
	if err := store.MarkTriggered(ctx, a.ID, earlier, "2026-03-10"); err != nil {
		t.Fatalf("MarkTriggered() error = %v", err)
	}

	got, _ := store.GetAutomation(ctx, a.ID)
	if got.LastTriggered == nil || !got.LastTriggered.Equal(later) {
		t.Errorf("LastTriggered = %v, want %v", got.LastTriggered, later)
	}
}

func TestStore_RefreshCache_LoadsPersisted(t *testing.T) {
	repo := newMockRepo()
	seeded := testStoreAutomation("Persisted")
	seeded.ID = GenerateID()
	if err := repo.CreateAutomation(context.Background(), seeded); err != nil {
		t.Fatalf("seeding repo: %v", err)
	}

	store := NewStore(repo)
	if err := store.RefreshCache(context.Background()); err != nil {
		t.Fatalf("RefreshCache() error = %v", err)
	}

	if _, err := store.GetAutomation(context.Background(), seeded.ID); err != nil {
		t.Errorf("GetAutomation() after refresh error = %v", err)
	}
}
