package api

import (
	"net/http"
	"testing"
)

func automationBody(name string) map[string]any {
	return map[string]any{
		"name":    name,
		"enabled": true,
		"trigger": map[string]any{"type": "time", "time": "07:30"},
		"actions": []map[string]any{
			{"device_id": "light-1", "capability": "switch", "command": "on"},
		},
	}
}

func createAutomation(t *testing.T, env *testEnv, name string) string {
	t.Helper()
	rec := env.do(t, http.MethodPost, apiPath("/automations"), env.token, automationBody(name))
	if rec.Code != http.StatusCreated {
		t.Fatalf("creating automation: status %d body %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	id, _ := body["id"].(string)
	if id == "" {
		t.Fatal("created automation has no ID")
	}
	return id
}

func TestAutomationCRUD(t *testing.T) {
	env := newTestEnv(t)

	id := createAutomation(t, env, "Wake Up")

	rec := env.do(t, http.MethodGet, apiPath("/automations/%s", id), env.token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get automation: status %d", rec.Code)
	}
	if body := decodeBody(t, rec); body["name"] != "Wake Up" {
		t.Errorf("unexpected automation: %v", body)
	}

	rec = env.do(t, http.MethodPatch, apiPath("/automations/%s", id), env.token,
		map[string]any{"description": "morning routine"})
	if rec.Code != http.StatusOK {
		t.Fatalf("update automation: status %d body %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodDelete, apiPath("/automations/%s", id), env.token, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete automation: status %d", rec.Code)
	}

	rec = env.do(t, http.MethodGet, apiPath("/automations/%s", id), env.token, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", rec.Code)
	}
}

func TestListAutomationsEnabledFilter(t *testing.T) {
	env := newTestEnv(t)

	createAutomation(t, env, "Wake Up")
	id := createAutomation(t, env, "Night Lock")

	rec := env.do(t, http.MethodPut, apiPath("/automations/%s/enabled", id), env.token,
		map[string]any{"enabled": false})
	if rec.Code != http.StatusOK {
		t.Fatalf("disable: status %d body %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodGet, apiPath("/automations"), env.token, nil)
	if body := decodeBody(t, rec); body["count"] != float64(2) {
		t.Errorf("expected 2 automations unfiltered, got %v", body["count"])
	}

	rec = env.do(t, http.MethodGet, apiPath("/automations?enabled=true"), env.token, nil)
	body := decodeBody(t, rec)
	if body["count"] != float64(1) {
		t.Fatalf("expected 1 enabled automation, got %v", body["count"])
	}
	autos, _ := body["automations"].([]any)
	if len(autos) != 1 {
		t.Fatalf("expected 1 automation in list, got %d", len(autos))
	}
	if name := autos[0].(map[string]any)["name"]; name != "Wake Up" {
		t.Errorf("expected the enabled automation, got %v", name)
	}
}

func TestCreateAutomationValidation(t *testing.T) {
	env := newTestEnv(t)

	// Malformed trigger: time kind without a time value.
	body := automationBody("Broken")
	body["trigger"] = map[string]any{"type": "time"}
	rec := env.do(t, http.MethodPost, apiPath("/automations"), env.token, body)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for malformed trigger, got %d", rec.Code)
	}
}

func TestSetAutomationEnabled(t *testing.T) {
	env := newTestEnv(t)

	id := createAutomation(t, env, "Night Lock")

	rec := env.do(t, http.MethodPut, apiPath("/automations/%s/enabled", id), env.token,
		map[string]any{"enabled": false})
	if rec.Code != http.StatusOK {
		t.Fatalf("disable: status %d body %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodGet, apiPath("/automations?enabled=true"), env.token, nil)
	if body := decodeBody(t, rec); body["count"] != float64(0) {
		t.Errorf("expected no enabled automations, got %v", body["count"])
	}

	// Missing enabled field is rejected.
	rec = env.do(t, http.MethodPut, apiPath("/automations/%s/enabled", id), env.token,
		map[string]any{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without enabled field, got %d", rec.Code)
	}
}

func TestExecuteAutomationConditions(t *testing.T) {
	env := newTestEnv(t)

	// Condition on a device the cache does not know: fail-closed false.
	body := automationBody("Guarded")
	body["conditions"] = []map[string]any{
		{"type": "device_state", "device_id": "ghost", "attribute": "switch", "expected_value": "on"},
	}
	rec := env.do(t, http.MethodPost, apiPath("/automations"), env.token, body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("creating automation: status %d body %s", rec.Code, rec.Body.String())
	}
	id := decodeBody(t, rec)["id"].(string)

	// Without bypass the conditions block the run.
	rec = env.do(t, http.MethodPost, apiPath("/automations/%s/execute", id), env.token, nil)
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409 when conditions are not met, got %d", rec.Code)
	}
	if env.gw.controlCount() != 0 {
		t.Errorf("expected no gateway commands, got %d", env.gw.controlCount())
	}

	// Bypass runs the actions (test button semantics).
	rec = env.do(t, http.MethodPost, apiPath("/automations/%s/execute?bypass_conditions=true", id), env.token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("bypass execute: status %d body %s", rec.Code, rec.Body.String())
	}
	if body := decodeBody(t, rec); body["succeeded"] != float64(1) {
		t.Errorf("expected 1 succeeded action, got %v", body["succeeded"])
	}
	if env.gw.controlCount() != 1 {
		t.Errorf("expected 1 gateway command, got %d", env.gw.controlCount())
	}

	// The bypassed run was recorded.
	rec = env.do(t, http.MethodGet, apiPath("/automations/%s/executions", id), env.token, nil)
	if body := decodeBody(t, rec); body["count"] != float64(1) {
		t.Errorf("expected 1 execution record, got %v", body["count"])
	}
}
