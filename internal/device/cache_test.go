package device

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/homepulse/homepulse-core/internal/gateway"
)

// mockGateway implements the Gateway interface for testing.
type mockGateway struct {
	mu       sync.Mutex
	devices  []gateway.Device
	statuses map[string]*gateway.DeviceStatus
	rooms    []gateway.Room

	devicesErr error
	controlErr error

	controlled []controlCall
}

type controlCall struct {
	deviceID   string
	capability string
	command    string
	args       []any
}

func (m *mockGateway) Devices(_ context.Context) ([]gateway.Device, error) {
	if m.devicesErr != nil {
		return nil, m.devicesErr
	}
	return m.devices, nil
}

func (m *mockGateway) DeviceStatus(_ context.Context, deviceID string) (*gateway.DeviceStatus, error) {
	status, ok := m.statuses[deviceID]
	if !ok {
		return nil, gateway.ErrDeviceNotFound
	}
	return status, nil
}

func (m *mockGateway) Rooms(_ context.Context) ([]gateway.Room, error) {
	return m.rooms, nil
}

func (m *mockGateway) ControlDevice(_ context.Context, deviceID, capability, command string, args []any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.controlErr != nil {
		return m.controlErr
	}
	m.controlled = append(m.controlled, controlCall{deviceID, capability, command, args})
	return nil
}

func (m *mockGateway) calls() []controlCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]controlCall, len(m.controlled))
	copy(out, m.controlled)
	return out
}

func testGateway() *mockGateway {
	return &mockGateway{
		devices: []gateway.Device{
			{
				DeviceID:     "light-1",
				Label:        "Bedroom Light",
				Type:         "light",
				Capabilities: []string{"switch", "switchLevel"},
				RoomID:       "room-1",
			},
			{
				DeviceID:     "lock-1",
				Label:        "Front Door",
				Type:         "lock",
				Capabilities: []string{"lock"},
			},
		},
		statuses: map[string]*gateway.DeviceStatus{
			"light-1": {Online: true, Attributes: map[string]any{"switch": "off", "level": 100}},
			"lock-1":  {Online: true, Attributes: map[string]any{"lock": "locked"}},
		},
		rooms: []gateway.Room{
			{RoomID: "room-1", Name: "Bedroom"},
		},
	}
}

func syncedCache(t *testing.T) (*Cache, *mockGateway) {
	t.Helper()
	gw := testGateway()
	cache := NewCache(gw)
	if err := cache.SyncAll(context.Background()); err != nil {
		t.Fatalf("SyncAll() error = %v", err)
	}
	return cache, gw
}

func TestSyncAll(t *testing.T) {
	cache, _ := syncedCache(t)

	devices := cache.List()
	if len(devices) != 2 {
		t.Fatalf("List() returned %d devices, want 2", len(devices))
	}

	light, err := cache.Get("light-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if light.Label != "Bedroom Light" {
		t.Errorf("Label = %q", light.Label)
	}
	if light.Type != TypeLight {
		t.Errorf("Type = %q, want light", light.Type)
	}
	if !light.IsOnline() {
		t.Error("light should be online after sync")
	}
	if light.Attributes["switch"] != "off" {
		t.Errorf("attributes[switch] = %v", light.Attributes["switch"])
	}
	if light.RoomID == nil || *light.RoomID != "room-1" {
		t.Errorf("RoomID = %v", light.RoomID)
	}

	rooms := cache.Rooms()
	if len(rooms) != 1 || rooms[0].Name != "Bedroom" {
		t.Errorf("Rooms() = %v", rooms)
	}
}

func TestSyncAll_RemovedDeviceGoesOffline(t *testing.T) {
	cache, gw := syncedCache(t)

	// Gateway stops reporting the lock
	gw.devices = gw.devices[:1]

	if err := cache.SyncAll(context.Background()); err != nil {
		t.Fatalf("SyncAll() error = %v", err)
	}

	lock, err := cache.Get("lock-1")
	if err != nil {
		t.Fatalf("removed device should remain cached, got %v", err)
	}
	if lock.Status != StatusOffline {
		t.Errorf("Status = %q, want offline", lock.Status)
	}
}

func TestSyncAll_GatewayError(t *testing.T) {
	gw := testGateway()
	gw.devicesErr = gateway.ErrNotConfigured

	cache := NewCache(gw)
	err := cache.SyncAll(context.Background())
	if !errors.Is(err, gateway.ErrNotConfigured) {
		t.Errorf("SyncAll() error = %v, want ErrNotConfigured", err)
	}

	if len(cache.List()) != 0 {
		t.Error("cache should stay empty after failed sync")
	}
}

func TestGet_NotFound(t *testing.T) {
	cache, _ := syncedCache(t)

	_, err := cache.Get("missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestGet_ReturnsDeepCopy(t *testing.T) {
	cache, _ := syncedCache(t)

	first, _ := cache.Get("light-1")
	first.Attributes["switch"] = "tampered"
	first.Label = "tampered"

	second, _ := cache.Get("light-1")
	if second.Attributes["switch"] == "tampered" {
		t.Error("cache attributes mutated through returned copy")
	}
	if second.Label == "tampered" {
		t.Error("cache label mutated through returned copy")
	}
}

func TestApplyEvent_EmitsChangeOnEdge(t *testing.T) {
	cache, _ := syncedCache(t)

	var events []ChangeEvent
	var mu sync.Mutex
	cache.Subscribe(func(ev ChangeEvent) {
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
	})

	cache.ApplyEvent("light-1", nil, map[string]any{"switch": "on"})

	mu.Lock()
	defer mu.Unlock()
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	ev := events[0]
	if ev.DeviceID != "light-1" || ev.Attribute != "switch" {
		t.Errorf("event = %+v", ev)
	}
	if ev.OldValue != "off" || ev.NewValue != "on" {
		t.Errorf("event values = %v -> %v", ev.OldValue, ev.NewValue)
	}
}

func TestApplyEvent_NoEventWithoutChange(t *testing.T) {
	cache, _ := syncedCache(t)

	var count int
	var mu sync.Mutex
	cache.Subscribe(func(ChangeEvent) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	// Same value as cached: no edge, no event
	cache.ApplyEvent("light-1", nil, map[string]any{"switch": "off"})
	// Numeric equality across int/float64 representations
	cache.ApplyEvent("light-1", nil, map[string]any{"level": float64(100)})

	mu.Lock()
	defer mu.Unlock()
	if count != 0 {
		t.Errorf("got %d events, want 0", count)
	}
}

func TestApplyEvent_UnknownDeviceIgnored(t *testing.T) {
	cache, _ := syncedCache(t)

	// Must not panic or create a device
	cache.ApplyEvent("ghost", nil, map[string]any{"switch": "on"})

	if _, err := cache.Get("ghost"); !errors.Is(err, ErrNotFound) {
		t.Error("unknown device should not be created by events")
	}
}

func TestApplyEvent_OnlineTransition(t *testing.T) {
	cache, _ := syncedCache(t)

	offline := false
	cache.ApplyEvent("light-1", &offline, nil)

	d, _ := cache.Get("light-1")
	if d.Status != StatusOffline {
		t.Errorf("Status = %q, want offline", d.Status)
	}
}

func TestRefresh(t *testing.T) {
	cache, gw := syncedCache(t)

	// Remote state changed behind our back
	gw.statuses["light-1"] = &gateway.DeviceStatus{
		Online:     true,
		Attributes: map[string]any{"switch": "on", "level": 40},
	}

	d, err := cache.Refresh(context.Background(), "light-1")
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	if d.Attributes["switch"] != "on" {
		t.Errorf("attributes[switch] = %v after refresh", d.Attributes["switch"])
	}
}

func TestRefresh_NotFound(t *testing.T) {
	cache, _ := syncedCache(t)

	_, err := cache.Refresh(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Refresh() error = %v, want ErrNotFound", err)
	}
}

func TestListByRoom(t *testing.T) {
	cache, _ := syncedCache(t)

	devices := cache.ListByRoom("room-1")
	if len(devices) != 1 || devices[0].ID != "light-1" {
		t.Errorf("ListByRoom() = %v", devices)
	}

	if got := cache.ListByRoom("room-none"); len(got) != 0 {
		t.Errorf("ListByRoom(unknown) = %v", got)
	}
}

func TestSnapshot(t *testing.T) {
	cache, _ := syncedCache(t)

	snap := cache.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("Snapshot() has %d devices, want 2", len(snap))
	}

	// Snapshot must be isolated from the cache
	d := snap["light-1"]
	d.Attributes["switch"] = "tampered"

	fresh, _ := cache.Get("light-1")
	if fresh.Attributes["switch"] == "tampered" {
		t.Error("cache mutated through snapshot")
	}
}
