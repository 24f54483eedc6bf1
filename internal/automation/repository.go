package automation

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Repository defines the interface for scene and automation persistence.
// This abstraction allows different implementations (SQLite, mock, etc.)
// and enables unit testing without database dependencies.
type Repository interface {
	// Scene CRUD
	GetScene(ctx context.Context, id string) (*Scene, error)
	ListScenes(ctx context.Context) ([]Scene, error)
	CountScenes(ctx context.Context) (int, error)
	CreateScene(ctx context.Context, scene *Scene) error
	UpdateScene(ctx context.Context, scene *Scene) error
	DeleteScene(ctx context.Context, id string) error

	// Automation CRUD
	GetAutomation(ctx context.Context, id string) (*Automation, error)
	ListAutomations(ctx context.Context) ([]Automation, error)
	CreateAutomation(ctx context.Context, a *Automation) error
	UpdateAutomation(ctx context.Context, a *Automation) error
	DeleteAutomation(ctx context.Context, id string) error
	MarkTriggered(ctx context.Context, id string, at time.Time, date string) error

	// Execution logging
	CreateExecution(ctx context.Context, exec *Execution) error
	FinishExecution(ctx context.Context, exec *Execution) error
	GetExecution(ctx context.Context, id string) (*Execution, error)
	ListExecutions(ctx context.Context, sourceID string, limit int) ([]Execution, error)
}

// Column lists for SELECT queries.
const (
	sceneColumns = `id, name, description, actions, health_trigger,
			favourite, icon, colour, created_at, updated_at`

	automationColumns = `id, name, description, enabled, "trigger", conditions,
			actions, last_triggered, last_triggered_date, created_at, updated_at`

	executionColumns = `id, kind, source_id, source_name, trigger_type,
			started_at, finished_at, succeeded, failed, skipped, results`
)

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// ─── Scenes ─────────────────────────────────────────────────────────────────

// GetScene retrieves a scene by its unique identifier.
func (r *SQLiteRepository) GetScene(ctx context.Context, id string) (*Scene, error) {
	query := `SELECT ` + sceneColumns + ` FROM scenes WHERE id = ?`

	scene, err := scanSceneRow(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSceneNotFound
		}
		return nil, fmt.Errorf("querying scene: %w", err)
	}
	return scene, nil
}

// ListScenes retrieves all scenes ordered by name.
func (r *SQLiteRepository) ListScenes(ctx context.Context) ([]Scene, error) {
	query := `SELECT ` + sceneColumns + ` FROM scenes ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying scenes: %w", err)
	}
	defer rows.Close()

	var scenes []Scene
	for rows.Next() {
		scene, scanErr := scanSceneRow(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scanning scene: %w", scanErr)
		}
		scenes = append(scenes, *scene)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating scenes: %w", err)
	}
	return scenes, nil
}

// CountScenes returns the total number of stored scenes. Used to gate
// preset seeding: presets are created only into an empty table.
func (r *SQLiteRepository) CountScenes(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM scenes").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting scenes: %w", err)
	}
	return count, nil
}

// CreateScene inserts a new scene.
func (r *SQLiteRepository) CreateScene(ctx context.Context, scene *Scene) error {
	actionsJSON, err := json.Marshal(scene.Actions)
	if err != nil {
		return fmt.Errorf("marshalling actions: %w", err)
	}
	healthJSON, err := marshalNullable(scene.HealthTrigger)
	if err != nil {
		return fmt.Errorf("marshalling health trigger: %w", err)
	}

	now := time.Now().UTC()
	if scene.CreatedAt.IsZero() {
		scene.CreatedAt = now
	}
	scene.UpdatedAt = now

	query := `
		INSERT INTO scenes (
			id, name, description, actions, health_trigger,
			favourite, icon, colour, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = r.db.ExecContext(ctx, query,
		scene.ID,
		scene.Name,
		scene.Description,
		string(actionsJSON),
		healthJSON,
		boolToInt(scene.Favourite),
		scene.Icon,
		scene.Colour,
		scene.CreatedAt.Format(time.RFC3339),
		scene.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrDuplicateName
		}
		return fmt.Errorf("inserting scene: %w", err)
	}
	return nil
}

// UpdateScene modifies an existing scene.
func (r *SQLiteRepository) UpdateScene(ctx context.Context, scene *Scene) error {
	actionsJSON, err := json.Marshal(scene.Actions)
	if err != nil {
		return fmt.Errorf("marshalling actions: %w", err)
	}
	healthJSON, err := marshalNullable(scene.HealthTrigger)
	if err != nil {
		return fmt.Errorf("marshalling health trigger: %w", err)
	}

	scene.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE scenes SET
			name = ?, description = ?, actions = ?, health_trigger = ?,
			favourite = ?, icon = ?, colour = ?, updated_at = ?
		WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query,
		scene.Name,
		scene.Description,
		string(actionsJSON),
		healthJSON,
		boolToInt(scene.Favourite),
		scene.Icon,
		scene.Colour,
		scene.UpdatedAt.Format(time.RFC3339),
		scene.ID,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrDuplicateName
		}
		return fmt.Errorf("updating scene: %w", err)
	}
	return requireRow(result, ErrSceneNotFound)
}

// DeleteScene removes a scene by ID.
func (r *SQLiteRepository) DeleteScene(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM scenes WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting scene: %w", err)
	}
	return requireRow(result, ErrSceneNotFound)
}

// ─── Automations ────────────────────────────────────────────────────────────

// GetAutomation retrieves an automation by its unique identifier.
func (r *SQLiteRepository) GetAutomation(ctx context.Context, id string) (*Automation, error) {
	query := `SELECT ` + automationColumns + ` FROM automations WHERE id = ?`

	a, err := scanAutomationRow(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAutomationNotFound
		}
		return nil, fmt.Errorf("querying automation: %w", err)
	}
	return a, nil
}

// ListAutomations retrieves all automations ordered by name.
func (r *SQLiteRepository) ListAutomations(ctx context.Context) ([]Automation, error) {
	query := `SELECT ` + automationColumns + ` FROM automations ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying automations: %w", err)
	}
	defer rows.Close()

	var automations []Automation
	for rows.Next() {
		a, scanErr := scanAutomationRow(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scanning automation: %w", scanErr)
		}
		automations = append(automations, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating automations: %w", err)
	}
	return automations, nil
}

// CreateAutomation inserts a new automation.
func (r *SQLiteRepository) CreateAutomation(ctx context.Context, a *Automation) error {
	triggerJSON, conditionsJSON, actionsJSON, err := marshalRule(a)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now

	query := `
		INSERT INTO automations (
			id, name, description, enabled, "trigger", conditions, actions,
			last_triggered, last_triggered_date, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = r.db.ExecContext(ctx, query,
		a.ID,
		a.Name,
		a.Description,
		boolToInt(a.Enabled),
		triggerJSON,
		conditionsJSON,
		actionsJSON,
		nullableTime(a.LastTriggered),
		nullableString(a.LastTriggeredDate),
		a.CreatedAt.Format(time.RFC3339),
		a.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting automation: %w", err)
	}
	return nil
}

// UpdateAutomation modifies an existing automation. Trigger state
// (last_triggered, last_triggered_date) is owned by MarkTriggered and
// left untouched here.
func (r *SQLiteRepository) UpdateAutomation(ctx context.Context, a *Automation) error {
	triggerJSON, conditionsJSON, actionsJSON, err := marshalRule(a)
	if err != nil {
		return err
	}

	a.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE automations SET
			name = ?, description = ?, enabled = ?,
			"trigger" = ?, conditions = ?, actions = ?, updated_at = ?
		WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query,
		a.Name,
		a.Description,
		boolToInt(a.Enabled),
		triggerJSON,
		conditionsJSON,
		actionsJSON,
		a.UpdatedAt.Format(time.RFC3339),
		a.ID,
	)
	if err != nil {
		return fmt.Errorf("updating automation: %w", err)
	}
	return requireRow(result, ErrAutomationNotFound)
}

// DeleteAutomation removes an automation by ID.
func (r *SQLiteRepository) DeleteAutomation(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM automations WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting automation: %w", err)
	}
	return requireRow(result, ErrAutomationNotFound)
}

// MarkTriggered records a firing. The guard keeps last_triggered
// monotonically non-decreasing even if firings persist out of order.
func (r *SQLiteRepository) MarkTriggered(ctx context.Context, id string, at time.Time, date string) error {
	ts := at.UTC().Format(time.RFC3339)

	query := `
		UPDATE automations SET
			last_triggered = ?, last_triggered_date = ?
		WHERE id = ? AND (last_triggered IS NULL OR last_triggered <= ?)`

	result, err := r.db.ExecContext(ctx, query, ts, date, id, ts)
	if err != nil {
		return fmt.Errorf("marking triggered: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		// Either the automation is gone or an out-of-order write lost
		// the race. Distinguish so callers can log the right thing.
		if _, getErr := r.GetAutomation(ctx, id); getErr != nil {
			return getErr
		}
	}
	return nil
}

// ─── Executions ─────────────────────────────────────────────────────────────

// CreateExecution inserts a new execution record at run start.
func (r *SQLiteRepository) CreateExecution(ctx context.Context, exec *Execution) error {
	resultsJSON, err := json.Marshal(orEmptyResults(exec.Results))
	if err != nil {
		return fmt.Errorf("marshalling results: %w", err)
	}

	query := `
		INSERT INTO executions (
			id, kind, source_id, source_name, trigger_type,
			started_at, finished_at, succeeded, failed, skipped, results
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = r.db.ExecContext(ctx, query,
		exec.ID,
		string(exec.Kind),
		exec.SourceID,
		exec.SourceName,
		nullableString(exec.TriggerType),
		exec.StartedAt.UTC().Format(time.RFC3339),
		nullableTime(exec.FinishedAt),
		exec.Succeeded,
		exec.Failed,
		exec.Skipped,
		string(resultsJSON),
	)
	if err != nil {
		return fmt.Errorf("inserting execution: %w", err)
	}
	return nil
}

// FinishExecution records the final counts and per-action results.
func (r *SQLiteRepository) FinishExecution(ctx context.Context, exec *Execution) error {
	resultsJSON, err := json.Marshal(orEmptyResults(exec.Results))
	if err != nil {
		return fmt.Errorf("marshalling results: %w", err)
	}

	query := `
		UPDATE executions SET
			finished_at = ?, succeeded = ?, failed = ?, skipped = ?, results = ?
		WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query,
		nullableTime(exec.FinishedAt),
		exec.Succeeded,
		exec.Failed,
		exec.Skipped,
		string(resultsJSON),
		exec.ID,
	)
	if err != nil {
		return fmt.Errorf("updating execution: %w", err)
	}
	return requireRow(result, ErrExecutionNotFound)
}

// GetExecution retrieves an execution by ID.
func (r *SQLiteRepository) GetExecution(ctx context.Context, id string) (*Execution, error) {
	query := `SELECT ` + executionColumns + ` FROM executions WHERE id = ?`

	exec, err := scanExecutionRow(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrExecutionNotFound
		}
		return nil, fmt.Errorf("querying execution: %w", err)
	}
	return exec, nil
}

// ListExecutions retrieves recent executions, newest first. An empty
// sourceID lists across all scenes and automations.
func (r *SQLiteRepository) ListExecutions(ctx context.Context, sourceID string, limit int) ([]Execution, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}

	query := `SELECT ` + executionColumns + ` FROM executions`
	args := []any{}
	if sourceID != "" {
		query += ` WHERE source_id = ?`
		args = append(args, sourceID)
	}
	query += ` ORDER BY started_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying executions: %w", err)
	}
	defer rows.Close()

	var executions []Execution
	for rows.Next() {
		exec, scanErr := scanExecutionRow(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scanning execution: %w", scanErr)
		}
		executions = append(executions, *exec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating executions: %w", err)
	}
	return executions, nil
}

// ─── Row Scanning Helpers ───────────────────────────────────────────────────

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSceneRow(scanner rowScanner) (*Scene, error) {
	var s Scene
	var actionsJSON string
	var healthJSON sql.NullString
	var favourite int
	var createdAt, updatedAt string

	err := scanner.Scan(
		&s.ID,
		&s.Name,
		&s.Description,
		&actionsJSON,
		&healthJSON,
		&favourite,
		&s.Icon,
		&s.Colour,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	s.Favourite = favourite != 0
	s.CreatedAt = parseTimestamp(createdAt)
	s.UpdatedAt = parseTimestamp(updatedAt)

	if err := json.Unmarshal([]byte(actionsJSON), &s.Actions); err != nil {
		return nil, fmt.Errorf("unmarshalling actions: %w", err)
	}
	if s.Actions == nil {
		s.Actions = []Action{}
	}

	if healthJSON.Valid && healthJSON.String != "" && healthJSON.String != "null" {
		var ht HealthTrigger
		if err := json.Unmarshal([]byte(healthJSON.String), &ht); err != nil {
			return nil, fmt.Errorf("unmarshalling health trigger: %w", err)
		}
		s.HealthTrigger = &ht
	}

	return &s, nil
}

func scanAutomationRow(scanner rowScanner) (*Automation, error) {
	var a Automation
	var triggerJSON, conditionsJSON, actionsJSON string
	var lastTriggered, lastTriggeredDate sql.NullString
	var enabled int
	var createdAt, updatedAt string

	err := scanner.Scan(
		&a.ID,
		&a.Name,
		&a.Description,
		&enabled,
		&triggerJSON,
		&conditionsJSON,
		&actionsJSON,
		&lastTriggered,
		&lastTriggeredDate,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	a.Enabled = enabled != 0
	a.CreatedAt = parseTimestamp(createdAt)
	a.UpdatedAt = parseTimestamp(updatedAt)

	if err := json.Unmarshal([]byte(triggerJSON), &a.Trigger); err != nil {
		return nil, fmt.Errorf("unmarshalling trigger: %w", err)
	}
	if err := json.Unmarshal([]byte(conditionsJSON), &a.Conditions); err != nil {
		return nil, fmt.Errorf("unmarshalling conditions: %w", err)
	}
	if a.Conditions == nil {
		a.Conditions = []Condition{}
	}
	if err := json.Unmarshal([]byte(actionsJSON), &a.Actions); err != nil {
		return nil, fmt.Errorf("unmarshalling actions: %w", err)
	}

	if lastTriggered.Valid {
		if t, parseErr := time.Parse(time.RFC3339, lastTriggered.String); parseErr == nil {
			a.LastTriggered = &t
		}
	}
	if lastTriggeredDate.Valid {
		a.LastTriggeredDate = lastTriggeredDate.String
	}

	return &a, nil
}

func scanExecutionRow(scanner rowScanner) (*Execution, error) {
	var e Execution
	var kind, startedAt string
	var triggerType, finishedAt sql.NullString
	var resultsJSON string

	err := scanner.Scan(
		&e.ID,
		&kind,
		&e.SourceID,
		&e.SourceName,
		&triggerType,
		&startedAt,
		&finishedAt,
		&e.Succeeded,
		&e.Failed,
		&e.Skipped,
		&resultsJSON,
	)
	if err != nil {
		return nil, err
	}

	e.Kind = ExecutionKind(kind)
	e.StartedAt = parseTimestamp(startedAt)

	if triggerType.Valid {
		e.TriggerType = triggerType.String
	}
	if finishedAt.Valid {
		if t, parseErr := time.Parse(time.RFC3339, finishedAt.String); parseErr == nil {
			e.FinishedAt = &t
		}
	}

	if err := json.Unmarshal([]byte(resultsJSON), &e.Results); err != nil {
		return nil, fmt.Errorf("unmarshalling results: %w", err)
	}
	if e.Results == nil {
		e.Results = []ActionResult{}
	}

	return &e, nil
}

// ─── SQL Helpers ────────────────────────────────────────────────────────────

func marshalRule(a *Automation) (trigger, conditions, actions string, err error) {
	triggerJSON, err := json.Marshal(a.Trigger)
	if err != nil {
		return "", "", "", fmt.Errorf("marshalling trigger: %w", err)
	}
	conds := a.Conditions
	if conds == nil {
		conds = []Condition{}
	}
	conditionsJSON, err := json.Marshal(conds)
	if err != nil {
		return "", "", "", fmt.Errorf("marshalling conditions: %w", err)
	}
	actionsJSON, err := json.Marshal(a.Actions)
	if err != nil {
		return "", "", "", fmt.Errorf("marshalling actions: %w", err)
	}
	return string(triggerJSON), string(conditionsJSON), string(actionsJSON), nil
}

func marshalNullable(v any) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}
	if ht, ok := v.(*HealthTrigger); ok && ht == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func orEmptyResults(results []ActionResult) []ActionResult {
	if results == nil {
		return []ActionResult{}
	}
	return results
}

func nullableString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullableTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339), Valid: true}
}

func parseTimestamp(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func requireRow(result sql.Result, notFound error) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return notFound
	}
	return nil
}

func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint failed") ||
		strings.Contains(msg, "unique constraint")
}
