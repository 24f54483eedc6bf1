package automation

import (
	"context"
	"sync"
	"time"
)

// CommandSender is the interface the executor uses to issue device
// commands. Satisfied by device.Commander.
type CommandSender interface {
	SendCommand(ctx context.Context, deviceID, capability, command string, args []any) error
}

// WSHub is the interface for broadcasting WebSocket events.
type WSHub interface {
	// Broadcast sends an event to all clients subscribed to the given channel.
	Broadcast(channel string, payload any)
}

// HistoryWriter records execution outcomes in the time-series store.
// Writes are fire-and-forget, batched by the client. Satisfied by the
// InfluxDB client; nil disables history.
type HistoryWriter interface {
	WriteAutomationFired(automationID, triggerType string, succeeded, failed, skipped int)
	WriteSceneExecuted(sceneID string, succeeded, failed, skipped int)
}

// Execution timeouts.
//
// actionTimeout bounds a single gateway command. maxExecutionTime is the
// hard limit for one run: delays are capped at 5 minutes per action, so
// a runaway rule cannot pin a goroutine indefinitely.
const (
	actionTimeout    = 10 * time.Second
	maxExecutionTime = 10 * time.Minute
)

// TriggerManual marks executions started from the API rather than the
// scheduler.
const TriggerManual = "manual"

// Executor runs scene and automation action lists.
//
// Actions execute strictly sequentially, each delay applied before its
// command. A failed action is recorded and execution continues with the
// next one; only context cancellation skips the remainder. Every run is
// persisted to the execution log, broadcast over WebSocket, and written
// to the history store when one is configured.
//
// Automation runs are single-flight: a firing that overlaps a still
// running execution of the same automation is dropped with
// ErrAlreadyRunning, never queued.
//
// Thread safety: all public methods are safe for concurrent use.
type Executor struct {
	store     *Store
	commander CommandSender
	devices   DeviceStateReader
	hub       WSHub         // may be nil
	history   HistoryWriter // may be nil
	location  *time.Location
	logger    Logger

	runningMu sync.Mutex
	running   map[string]struct{} // automation IDs mid-execution
}

// NewExecutor creates an executor.
//
// Parameters:
//   - store: Scene and automation store
//   - commander: Device command sender
//   - devices: Device state reader for condition evaluation
//   - location: Site timezone for condition evaluation and dedup dates
func NewExecutor(store *Store, commander CommandSender, devices DeviceStateReader, location *time.Location) *Executor {
	if location == nil {
		location = time.UTC
	}
	return &Executor{
		store:     store,
		commander: commander,
		devices:   devices,
		location:  location,
		logger:    noopLogger{},
		running:   make(map[string]struct{}),
	}
}

// SetLogger sets the logger for the executor.
func (e *Executor) SetLogger(logger Logger) {
	if logger != nil {
		e.logger = logger
	}
}

// SetHub sets the WebSocket hub for run broadcasts.
func (e *Executor) SetHub(hub WSHub) {
	e.hub = hub
}

// SetHistory sets the time-series history writer.
func (e *Executor) SetHistory(h HistoryWriter) {
	e.history = h
}

// ExecuteScene runs a scene's actions.
//
// Parameters:
//   - ctx: Context for cancellation; remaining actions are skipped on cancel
//   - sceneID: The scene to run
//   - triggerType: How the run started (TriggerManual or "suggestion")
//
// Returns:
//   - *Execution: The completed execution record with per-action results
//   - error: ErrSceneNotFound if the scene does not exist
func (e *Executor) ExecuteScene(ctx context.Context, sceneID, triggerType string) (*Execution, error) {
	scene, err := e.store.GetScene(ctx, sceneID)
	if err != nil {
		return nil, err
	}

	exec := e.run(ctx, ExecutionScene, scene.ID, scene.Name, triggerType, scene.Actions)

	if e.hub != nil {
		e.hub.Broadcast("scene.executed", map[string]any{
			"scene_id":     scene.ID,
			"scene_name":   scene.Name,
			"execution_id": exec.ID,
			"succeeded":    exec.Succeeded,
			"failed":       exec.Failed,
			"skipped":      exec.Skipped,
		})
	}
	if e.history != nil {
		e.history.WriteSceneExecuted(scene.ID, exec.Succeeded, exec.Failed, exec.Skipped)
	}
	return exec, nil
}

// ExecuteAutomation fires an automation.
//
// The enabled flag is not checked here: the scheduler checks it before
// calling, and manual runs (the UI's "test" button) are allowed against
// disabled automations. LastTriggered is recorded on every fire, before
// actions run and regardless of their outcome.
//
// Parameters:
//   - ctx: Context for cancellation; remaining actions are skipped on cancel
//   - automationID: The automation to fire
//   - triggerType: String form of the trigger kind, or TriggerManual
//   - bypassConditions: Skip condition evaluation (manual test runs)
//
// Returns:
//   - *Execution: The completed execution record
//   - error: ErrAutomationNotFound, ErrAlreadyRunning, or
//     ErrConditionsNotMet when conditions evaluate false
func (e *Executor) ExecuteAutomation(ctx context.Context, automationID, triggerType string, bypassConditions bool) (*Execution, error) {
	a, err := e.store.GetAutomation(ctx, automationID)
	if err != nil {
		return nil, err
	}

	now := time.Now().In(e.location)
	if !bypassConditions && !EvaluateConditions(a.Conditions, now, e.devices) {
		return nil, ErrConditionsNotMet
	}

	// Single-flight per automation. Overlapping firings are dropped.
	e.runningMu.Lock()
	if _, busy := e.running[automationID]; busy {
		e.runningMu.Unlock()
		return nil, ErrAlreadyRunning
	}
	e.running[automationID] = struct{}{}
	e.runningMu.Unlock()

	defer func() {
		e.runningMu.Lock()
		delete(e.running, automationID)
		e.runningMu.Unlock()
	}()

	// Record the firing up front so the once-per-day dedup holds even if
	// the process dies mid-run.
	if markErr := e.store.MarkTriggered(ctx, automationID, now.UTC(), now.Format("2006-01-02")); markErr != nil {
		e.logger.Error("failed to mark automation triggered", "automation_id", automationID, "error", markErr)
	}

	exec := e.run(ctx, ExecutionAutomation, a.ID, a.Name, triggerType, a.Actions)

	if e.hub != nil {
		e.hub.Broadcast("automation.fired", map[string]any{
			"automation_id": a.ID,
			"name":          a.Name,
			"execution_id":  exec.ID,
			"trigger_type":  triggerType,
			"succeeded":     exec.Succeeded,
			"failed":        exec.Failed,
			"skipped":       exec.Skipped,
		})
	}
	if e.history != nil {
		e.history.WriteAutomationFired(a.ID, triggerType, exec.Succeeded, exec.Failed, exec.Skipped)
	}
	return exec, nil
}

// run executes an action list sequentially and persists the result.
func (e *Executor) run(ctx context.Context, kind ExecutionKind, sourceID, sourceName, triggerType string, actions []Action) *Execution {
	ctx, cancel := context.WithTimeout(ctx, maxExecutionTime)
	defer cancel()

	exec := &Execution{
		ID:         GenerateID(),
		Kind:       kind,
		SourceID:   sourceID,
		SourceName: sourceName,
		StartedAt:  time.Now().UTC(),
		Results:    make([]ActionResult, 0, len(actions)),
	}
	if triggerType != "" && triggerType != TriggerManual {
		exec.TriggerType = triggerType
	}

	if createErr := e.store.RecordExecution(ctx, exec); createErr != nil {
		// Execution matters more than its log entry.
		e.logger.Error("failed to create execution record", "error", createErr)
	}

	e.logger.Info("execution started",
		"kind", string(kind),
		"source_id", sourceID,
		"execution_id", exec.ID,
		"actions", len(actions),
	)

	cancelled := false
	for i, action := range actions {
		if cancelled {
			exec.Skipped++
			exec.Results = append(exec.Results, skippedResult(i, action))
			continue
		}

		if err := e.executeAction(ctx, action); err != nil {
			if ctx.Err() != nil {
				// Cancelled mid-delay or mid-command: this and all
				// remaining actions are skipped, not failed.
				cancelled = true
				exec.Skipped++
				exec.Results = append(exec.Results, skippedResult(i, action))
				continue
			}
			exec.Failed++
			exec.Results = append(exec.Results, ActionResult{
				Index:    i,
				DeviceID: action.DeviceID,
				Command:  action.Command,
				Status:   ResultFailed,
				Error:    err.Error(),
			})
			e.logger.Warn("action failed",
				"execution_id", exec.ID,
				"index", i,
				"device_id", action.DeviceID,
				"error", err,
			)
			continue
		}

		exec.Succeeded++
		exec.Results = append(exec.Results, ActionResult{
			Index:    i,
			DeviceID: action.DeviceID,
			Command:  action.Command,
			Status:   ResultSuccess,
		})
	}

	finished := time.Now().UTC()
	exec.FinishedAt = &finished

	// Persist with a fresh context: the run context may already be done.
	persistCtx, persistCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer persistCancel()
	if finishErr := e.store.FinishExecution(persistCtx, exec); finishErr != nil {
		e.logger.Error("failed to finish execution record", "execution_id", exec.ID, "error", finishErr)
	}

	e.logger.Info("execution complete",
		"kind", string(kind),
		"source_id", sourceID,
		"execution_id", exec.ID,
		"succeeded", exec.Succeeded,
		"failed", exec.Failed,
		"skipped", exec.Skipped,
	)
	return exec
}

// executeAction waits out the action's delay then issues its command
// with a per-command timeout.
func (e *Executor) executeAction(ctx context.Context, action Action) error {
	if action.DelayMS > 0 {
		select {
		case <-time.After(time.Duration(action.DelayMS) * time.Millisecond):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	cmdCtx, cancel := context.WithTimeout(ctx, actionTimeout)
	defer cancel()

	return e.commander.SendCommand(cmdCtx, action.DeviceID, action.Capability, action.Command, action.Arguments)
}

func skippedResult(index int, action Action) ActionResult {
	return ActionResult{
		Index:    index,
		DeviceID: action.DeviceID,
		Command:  action.Command,
		Status:   ResultSkipped,
	}
}
