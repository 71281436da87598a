package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// startedAtLayout is fixed width so started_at sorts chronologically as text
const startedAtLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SessionRecord summarizes one planning session
type SessionRecord struct {
	ID             string           `json:"id" yaml:"id"`
	StartedAt      time.Time        `json:"startedAt" yaml:"startedAt"`
	BaseRef        string           `json:"baseRef" yaml:"baseRef"`
	SafeMode       bool             `json:"safeMode" yaml:"safeMode"`
	Enabled        bool             `json:"enabled" yaml:"enabled"`
	DisabledReason string           `json:"disabledReason,omitempty" yaml:"disabledReason,omitempty"`
	Total          int              `json:"total" yaml:"total"`
	Run            int              `json:"run" yaml:"run"`
	Skipped        int              `json:"skipped" yaml:"skipped"`
	StatsJSON      string           `json:"-" yaml:"-"`
	Decisions      []DecisionRecord `json:"decisions,omitempty" yaml:"decisions,omitempty"`
}

// DecisionRecord is the stored outcome for one test module
type DecisionRecord struct {
	Path    string `json:"path" yaml:"path"`
	Module  string `json:"module" yaml:"module"`
	Run     bool   `json:"run" yaml:"run"`
	Reason  string `json:"reason,omitempty" yaml:"reason,omitempty"`
	Trigger string `json:"trigger,omitempty" yaml:"trigger,omitempty"`
}

// HistoryRepository provides access to recorded sessions
type HistoryRepository struct {
	db *DB
}

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(db *DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// RecordSession stores a session and its decisions atomically
func (r *HistoryRepository) RecordSession(s *SessionRecord) error {
	return r.db.WithTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO sessions (
				id, started_at, base_ref, safe_mode, enabled, disabled_reason,
				total, run_count, skipped_count, stats_json
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			s.ID,
			s.StartedAt.UTC().Format(startedAtLayout),
			s.BaseRef,
			s.SafeMode,
			s.Enabled,
			nullString(s.DisabledReason),
			s.Total,
			s.Run,
			s.Skipped,
			nullString(s.StatsJSON),
		)
		if err != nil {
			return fmt.Errorf("insert session: %w", err)
		}

		stmt, err := tx.Prepare(`
			INSERT INTO decisions (session_id, path, module, run, reason, trigger_name)
			VALUES (?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("prepare decision insert: %w", err)
		}
		defer stmt.Close() //nolint:errcheck

		for _, d := range s.Decisions {
			if _, err := stmt.Exec(s.ID, d.Path, d.Module, d.Run, nullString(d.Reason), nullString(d.Trigger)); err != nil {
				return fmt.Errorf("insert decision for %s: %w", d.Path, err)
			}
		}
		return nil
	})
}

// ListSessions returns the most recent sessions first, without decisions.
// limit <= 0 returns all sessions.
func (r *HistoryRepository) ListSessions(limit int) ([]SessionRecord, error) {
	query := `
		SELECT id, started_at, base_ref, safe_mode, enabled, disabled_reason,
		       total, run_count, skipped_count, stats_json
		FROM sessions
		ORDER BY started_at DESC, id
	`
	var args []interface{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var sessions []SessionRecord
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}
	return sessions, rows.Err()
}

// GetSession returns a session with its decisions, or nil if not found
func (r *HistoryRepository) GetSession(id string) (*SessionRecord, error) {
	row := r.db.conn.QueryRow(`
		SELECT id, started_at, base_ref, safe_mode, enabled, disabled_reason,
		       total, run_count, skipped_count, stats_json
		FROM sessions WHERE id = ?
	`, id)
	s, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.db.conn.Query(`
		SELECT path, module, run, reason, trigger_name
		FROM decisions WHERE session_id = ?
		ORDER BY path
	`, id)
	if err != nil {
		return nil, fmt.Errorf("load decisions: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	for rows.Next() {
		var d DecisionRecord
		var reason, trigger sql.NullString
		if err := rows.Scan(&d.Path, &d.Module, &d.Run, &reason, &trigger); err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		d.Reason = reason.String
		d.Trigger = trigger.String
		s.Decisions = append(s.Decisions, d)
	}
	return s, rows.Err()
}

// PruneSessions deletes all but the newest keep sessions and returns how many were removed
func (r *HistoryRepository) PruneSessions(keep int) (int64, error) {
	res, err := r.db.conn.Exec(`
		DELETE FROM sessions WHERE id NOT IN (
			SELECT id FROM sessions ORDER BY started_at DESC, id LIMIT ?
		)
	`, keep)
	if err != nil {
		return 0, fmt.Errorf("prune sessions: %w", err)
	}
	return res.RowsAffected()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanSession(row scanner) (*SessionRecord, error) {
	var s SessionRecord
	var startedAt string
	var reason, stats sql.NullString
	err := row.Scan(
		&s.ID, &startedAt, &s.BaseRef, &s.SafeMode, &s.Enabled, &reason,
		&s.Total, &s.Run, &s.Skipped, &stats,
	)
	if err != nil {
		return nil, err
	}

	s.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt)
	if err != nil {
		return nil, fmt.Errorf("parse started_at for session %s: %w", s.ID, err)
	}
	s.DisabledReason = reason.String
	s.StatsJSON = stats.String
	return &s, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
