// Package sqlite persists the engine's entities in a SQLite database using
// the pure-Go driver. One Store value implements every core store interface.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/glebarez/go-sqlite"

	"github.com/growforge/planmesh/core"
)

const schema = `
CREATE TABLE IF NOT EXISTS instances (
	id           TEXT PRIMARY KEY,
	site_id      TEXT NOT NULL,
	user_id      TEXT NOT NULL DEFAULT '',
	provider_ref TEXT NOT NULL,
	status       TEXT NOT NULL,
	created_at   TIMESTAMP NOT NULL,
	updated_at   TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS plans (
	id                  TEXT PRIMARY KEY,
	instance_id         TEXT NOT NULL,
	site_id             TEXT NOT NULL,
	title               TEXT NOT NULL,
	description         TEXT NOT NULL DEFAULT '',
	status              TEXT NOT NULL,
	steps_total         INTEGER NOT NULL DEFAULT 0,
	steps_completed     INTEGER NOT NULL DEFAULT 0,
	progress_percentage INTEGER NOT NULL DEFAULT 0,
	created_at          TIMESTAMP NOT NULL,
	updated_at          TIMESTAMP NOT NULL,
	completed_at        TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_plans_instance ON plans(instance_id, status);

CREATE TABLE IF NOT EXISTS steps (
	id           TEXT PRIMARY KEY,
	plan_id      TEXT NOT NULL,
	step_order   INTEGER NOT NULL,
	title        TEXT NOT NULL,
	description  TEXT NOT NULL DEFAULT '',
	status       TEXT NOT NULL,
	result       TEXT NOT NULL DEFAULT '',
	started_at   TIMESTAMP,
	completed_at TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_steps_plan ON steps(plan_id, step_order);

CREATE TABLE IF NOT EXISTS auth_sessions (
	id           TEXT PRIMARY KEY,
	site_id      TEXT NOT NULL,
	domain       TEXT NOT NULL,
	cookies_json TEXT NOT NULL DEFAULT '',
	is_valid     INTEGER NOT NULL DEFAULT 1,
	last_used_at TIMESTAMP NOT NULL,
	created_at   TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sessions_site ON auth_sessions(site_id, is_valid);

CREATE TABLE IF NOT EXISTS log_entries (
	id                TEXT PRIMARY KEY,
	instance_id       TEXT NOT NULL,
	kind              TEXT NOT NULL,
	content           TEXT NOT NULL DEFAULT '',
	tool_name         TEXT NOT NULL DEFAULT '',
	tool_args         TEXT NOT NULL DEFAULT '',
	tool_result       TEXT NOT NULL DEFAULT '',
	prompt_tokens     INTEGER NOT NULL DEFAULT 0,
	completion_tokens INTEGER NOT NULL DEFAULT 0,
	total_tokens      INTEGER NOT NULL DEFAULT 0,
	created_at        TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_logs_instance ON log_entries(instance_id, created_at);
`

// Store is the SQLite-backed core.Store implementation.
type Store struct {
	db *sql.DB
}

// Open opens (and creates, if needed) the database at path and applies the
// schema. Use ":memory:" for an ephemeral database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database %s: %w", path, err)
	}
	// SQLite serializes writers; a single connection avoids database-locked
	// errors under concurrent invocations.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// GetInstance implements core.InstanceStore.
func (s *Store) GetInstance(ctx context.Context, id string) (*core.Instance, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, site_id, user_id, provider_ref, status, created_at, updated_at
		 FROM instances WHERE id = ?`, id)

	var inst core.Instance
	err := row.Scan(&inst.ID, &inst.SiteID, &inst.UserID, &inst.ProviderRef,
		&inst.Status, &inst.CreatedAt, &inst.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan instance: %w", err)
	}
	return &inst, nil
}

// UpdateInstanceStatus implements core.InstanceStore.
func (s *Store) UpdateInstanceStatus(ctx context.Context, id string, status core.InstanceStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE instances SET status = ?, updated_at = ? WHERE id = ?`,
		status, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update instance status: %w", err)
	}
	return requireRow(res)
}

// InsertInstance persists a new instance row.
func (s *Store) InsertInstance(ctx context.Context, inst *core.Instance) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO instances (id, site_id, user_id, provider_ref, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		inst.ID, inst.SiteID, inst.UserID, inst.ProviderRef, inst.Status, inst.CreatedAt, inst.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert instance: %w", err)
	}
	return nil
}

// GetPlan implements core.PlanStore.
func (s *Store) GetPlan(ctx context.Context, id string) (*core.Plan, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, instance_id, site_id, title, description, status, steps_total,
		        steps_completed, progress_percentage, created_at, updated_at, completed_at
		 FROM plans WHERE id = ?`, id)

	plan, err := scanPlan(row)
	if err != nil {
		return nil, err
	}
	if err := s.loadSteps(ctx, plan); err != nil {
		return nil, err
	}
	return plan, nil
}

// LatestActivePlan implements core.PlanStore.
func (s *Store) LatestActivePlan(ctx context.Context, instanceID string) (*core.Plan, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, instance_id, site_id, title, description, status, steps_total,
		        steps_completed, progress_percentage, created_at, updated_at, completed_at
		 FROM plans
		 WHERE instance_id = ? AND status NOT IN ('completed', 'failed')
		 ORDER BY created_at DESC LIMIT 1`, instanceID)

	plan, err := scanPlan(row)
	if err != nil {
		return nil, err
	}
	if err := s.loadSteps(ctx, plan); err != nil {
		return nil, err
	}
	return plan, nil
}

// HasCompletedPlan implements core.PlanStore.
func (s *Store) HasCompletedPlan(ctx context.Context, instanceID string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM plans WHERE instance_id = ? AND status = 'completed'`,
		instanceID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("count completed plans: %w", err)
	}
	return n > 0, nil
}

// UpdatePlan implements core.PlanStore. Step rows are written through
// UpdateStep/InsertStep; only the plan row changes here.
func (s *Store) UpdatePlan(ctx context.Context, plan *core.Plan) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE plans SET title = ?, description = ?, status = ?, steps_total = ?,
		        steps_completed = ?, progress_percentage = ?, updated_at = ?, completed_at = ?
		 WHERE id = ?`,
		plan.Title, plan.Description, plan.Status, plan.StepsTotal,
		plan.StepsCompleted, plan.ProgressPercentage, plan.UpdatedAt,
		nullableTime(plan.CompletedAt), plan.ID)
	if err != nil {
		return fmt.Errorf("update plan: %w", err)
	}
	return requireRow(res)
}

// InsertPlan persists a new plan row together with its steps.
func (s *Store) InsertPlan(ctx context.Context, plan *core.Plan) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO plans (id, instance_id, site_id, title, description, status, steps_total,
		        steps_completed, progress_percentage, created_at, updated_at, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		plan.ID, plan.InstanceID, plan.SiteID, plan.Title, plan.Description, plan.Status,
		plan.StepsTotal, plan.StepsCompleted, plan.ProgressPercentage,
		plan.CreatedAt, plan.UpdatedAt, nullableTime(plan.CompletedAt))
	if err != nil {
		return fmt.Errorf("insert plan: %w", err)
	}
	for i := range plan.Steps {
		if err := s.InsertStep(ctx, &plan.Steps[i]); err != nil {
			return err
		}
	}
	return nil
}

// UpdateStep implements core.PlanStore.
func (s *Store) UpdateStep(ctx context.Context, step *core.Step) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE steps SET step_order = ?, title = ?, description = ?, status = ?,
		        result = ?, started_at = ?, completed_at = ?
		 WHERE id = ?`,
		step.Order, step.Title, step.Description, step.Status, step.Result,
		nullableTime(step.StartedAt), nullableTime(step.CompletedAt), step.ID)
	if err != nil {
		return fmt.Errorf("update step: %w", err)
	}
	return requireRow(res)
}

// InsertStep implements core.PlanStore.
func (s *Store) InsertStep(ctx context.Context, step *core.Step) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO steps (id, plan_id, step_order, title, description, status, result, started_at, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		step.ID, step.PlanID, step.Order, step.Title, step.Description, step.Status,
		step.Result, nullableTime(step.StartedAt), nullableTime(step.CompletedAt))
	if err != nil {
		return fmt.Errorf("insert step: %w", err)
	}
	return nil
}

// ValidSessions implements core.AuthSessionStore. Results are ordered by
// usage recency, most recent first.
func (s *Store) ValidSessions(ctx context.Context, siteID string) ([]core.AuthSession, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, site_id, domain, cookies_json, is_valid, last_used_at, created_at
		 FROM auth_sessions
		 WHERE site_id = ? AND is_valid = 1
		 ORDER BY last_used_at DESC`, siteID)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var out []core.AuthSession
	for rows.Next() {
		var sess core.AuthSession
		if err := rows.Scan(&sess.ID, &sess.SiteID, &sess.Domain, &sess.CookiesJSON,
			&sess.IsValid, &sess.LastUsedAt, &sess.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

// TouchSession implements core.AuthSessionStore.
func (s *Store) TouchSession(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE auth_sessions SET last_used_at = ? WHERE id = ?`, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	return requireRow(res)
}

// InsertSession persists a new auth session row.
func (s *Store) InsertSession(ctx context.Context, sess *core.AuthSession) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO auth_sessions (id, site_id, domain, cookies_json, is_valid, last_used_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.SiteID, sess.Domain, sess.CookiesJSON, sess.IsValid,
		sess.LastUsedAt, sess.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// AppendLog implements core.LogStore.
func (s *Store) AppendLog(ctx context.Context, entry core.LogEntry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO log_entries (id, instance_id, kind, content, tool_name, tool_args,
		        tool_result, prompt_tokens, completion_tokens, total_tokens, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.InstanceID, entry.Kind, entry.Content, entry.ToolName,
		entry.ToolArgs, entry.ToolResult, entry.Usage.PromptTokens,
		entry.Usage.CompletionTokens, entry.Usage.TotalTokens, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("append log entry: %w", err)
	}
	return nil
}

// RecentActions implements core.LogStore. Entries come back in chronological
// order, oldest first.
func (s *Store) RecentActions(ctx context.Context, instanceID string, limit int) ([]core.LogEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, instance_id, kind, content, tool_name, tool_args, tool_result,
		        prompt_tokens, completion_tokens, total_tokens, created_at
		 FROM log_entries
		 WHERE instance_id = ? AND kind IN ('user_action', 'agent_action')
		 ORDER BY created_at DESC LIMIT ?`, instanceID, limit)
	if err != nil {
		return nil, fmt.Errorf("query log entries: %w", err)
	}
	defer rows.Close()

	var out []core.LogEntry
	for rows.Next() {
		var e core.LogEntry
		if err := rows.Scan(&e.ID, &e.InstanceID, &e.Kind, &e.Content, &e.ToolName,
			&e.ToolArgs, &e.ToolResult, &e.Usage.PromptTokens,
			&e.Usage.CompletionTokens, &e.Usage.TotalTokens, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan log entry: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (s *Store) loadSteps(ctx context.Context, plan *core.Plan) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, plan_id, step_order, title, description, status, result, started_at, completed_at
		 FROM steps WHERE plan_id = ? ORDER BY step_order ASC, rowid ASC`, plan.ID)
	if err != nil {
		return fmt.Errorf("query steps: %w", err)
	}
	defer rows.Close()

	plan.Steps = nil
	for rows.Next() {
		var step core.Step
		var started, completed sql.NullTime
		if err := rows.Scan(&step.ID, &step.PlanID, &step.Order, &step.Title,
			&step.Description, &step.Status, &step.Result, &started, &completed); err != nil {
			return fmt.Errorf("scan step: %w", err)
		}
		if started.Valid {
			t := started.Time
			step.StartedAt = &t
		}
		if completed.Valid {
			t := completed.Time
			step.CompletedAt = &t
		}
		plan.Steps = append(plan.Steps, step)
	}
	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlan(row rowScanner) (*core.Plan, error) {
	var plan core.Plan
	var completed sql.NullTime
	err := row.Scan(&plan.ID, &plan.InstanceID, &plan.SiteID, &plan.Title,
		&plan.Description, &plan.Status, &plan.StepsTotal, &plan.StepsCompleted,
		&plan.ProgressPercentage, &plan.CreatedAt, &plan.UpdatedAt, &completed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan plan: %w", err)
	}
	if completed.Valid {
		t := completed.Time
		plan.CompletedAt = &t
	}
	return &plan, nil
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}
