package api

import (
	"net/http"
	"testing"

	"github.com/homepulse/homepulse-core/internal/automation"
)

func sceneBody(name string) map[string]any {
	return map[string]any{
		"name":        name,
		"description": "test scene",
		"actions": []map[string]any{
			{"device_id": "light-1", "capability": "switch", "command": "on"},
		},
	}
}

func createScene(t *testing.T, env *testEnv, name string) string {
	t.Helper()
	rec := env.do(t, http.MethodPost, apiPath("/scenes"), env.token, sceneBody(name))
	if rec.Code != http.StatusCreated {
		t.Fatalf("creating scene: status %d body %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	id, _ := body["id"].(string)
	if id == "" {
		t.Fatal("created scene has no ID")
	}
	return id
}

func TestSceneCRUD(t *testing.T) {
	env := newTestEnv(t)

	id := createScene(t, env, "Evening Glow")

	rec := env.do(t, http.MethodGet, apiPath("/scenes/%s", id), env.token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get scene: status %d", rec.Code)
	}
	if body := decodeBody(t, rec); body["name"] != "Evening Glow" {
		t.Errorf("unexpected scene: %v", body)
	}

	rec = env.do(t, http.MethodGet, apiPath("/scenes"), env.token, nil)
	if body := decodeBody(t, rec); body["count"] != float64(1) {
		t.Errorf("expected 1 scene, got %v", body["count"])
	}

	rec = env.do(t, http.MethodPatch, apiPath("/scenes/%s", id), env.token,
		map[string]any{"favourite": true})
	if rec.Code != http.StatusOK {
		t.Fatalf("update scene: status %d body %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodGet, apiPath("/scenes?favourite=true"), env.token, nil)
	if body := decodeBody(t, rec); body["count"] != float64(1) {
		t.Errorf("expected 1 favourite, got %v", body["count"])
	}

	rec = env.do(t, http.MethodDelete, apiPath("/scenes/%s", id), env.token, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete scene: status %d", rec.Code)
	}

	rec = env.do(t, http.MethodGet, apiPath("/scenes/%s", id), env.token, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", rec.Code)
	}
}

func TestCreateSceneValidation(t *testing.T) {
	env := newTestEnv(t)

	// No actions.
	rec := env.do(t, http.MethodPost, apiPath("/scenes"), env.token,
		map[string]any{"name": "Empty"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for scene without actions, got %d", rec.Code)
	}

	// Duplicate name.
	createScene(t, env, "Movie Night")
	rec = env.do(t, http.MethodPost, apiPath("/scenes"), env.token, sceneBody("Movie Night"))
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409 for duplicate name, got %d", rec.Code)
	}
}

func TestExecuteScene(t *testing.T) {
	env := newTestEnv(t)

	id := createScene(t, env, "Lights On")

	rec := env.do(t, http.MethodPost, apiPath("/scenes/%s/execute", id), env.token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("execute scene: status %d body %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["succeeded"] != float64(1) {
		t.Errorf("expected 1 succeeded action, got %v", body["succeeded"])
	}
	if env.gw.controlCount() != 1 {
		t.Errorf("expected 1 gateway command, got %d", env.gw.controlCount())
	}

	// Execution was recorded.
	rec = env.do(t, http.MethodGet, apiPath("/scenes/%s/executions", id), env.token, nil)
	if body := decodeBody(t, rec); body["count"] != float64(1) {
		t.Errorf("expected 1 execution record, got %v", body["count"])
	}
}

func TestCreatePresetScenesIdempotent(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, apiPath("/scenes/presets"), env.token, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("seeding presets: status %d body %s", rec.Code, rec.Body.String())
	}
	first := decodeBody(t, rec)
	created, _ := first["created"].(float64)
	if created == 0 {
		t.Fatal("expected presets to be created on empty store")
	}

	// Second call is a no-op.
	rec = env.do(t, http.MethodPost, apiPath("/scenes/presets"), env.token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("second preset call: status %d", rec.Code)
	}
	if body := decodeBody(t, rec); body["created"] != float64(0) {
		t.Errorf("expected 0 created on second call, got %v", body["created"])
	}
}

func TestExecuteSceneNotFound(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, apiPath("/scenes/%s/execute", automation.GenerateID()), env.token, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}
