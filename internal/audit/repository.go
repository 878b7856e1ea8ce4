// Package audit provides access to the tool_calls table, the durable
// record of every tool invocation handled by the dispatcher.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Entry represents one recorded tool invocation.
type Entry struct {
	ID        string         `json:"id"`
	Tool      string         `json:"tool"`
	DeviceID  string         `json:"device_id,omitempty"`
	Outcome   string         `json:"outcome"` // ok or error
	ErrorCode string         `json:"error_code,omitempty"`
	Source    string         `json:"source"` // transport that carried the call (stdio, http)
	Details   map[string]any `json:"details,omitempty"`
	Duration  time.Duration  `json:"duration_ms"`
	CreatedAt time.Time      `json:"created_at"`
}

// Filter controls which entries to return.
type Filter struct {
	Tool     string // optional: filter by tool name
	DeviceID string // optional: filter by device
	Outcome  string // optional: ok or error
	Limit    int    // default 50, max 200
	Offset   int    // pagination offset
}

// ListResult contains the paginated audit results.
type ListResult struct {
	Entries []Entry `json:"entries"`
	Total   int     `json:"total"`
	Limit   int     `json:"limit"`
	Offset  int     `json:"offset"`
}

// Recorder defines the interface for tool-call audit operations.
type Recorder interface {
	Record(ctx context.Context, entry *Entry) error
	List(ctx context.Context, filter Filter) (*ListResult, error)
}

// SQLiteRecorder persists tool-call entries in SQLite.
type SQLiteRecorder struct {
	db *sql.DB
}

// NewSQLiteRecorder creates a new tool-call recorder.
func NewSQLiteRecorder(db *sql.DB) *SQLiteRecorder {
	return &SQLiteRecorder{db: db}
}

// Record inserts a new entry. The ID and CreatedAt are generated if empty.
func (r *SQLiteRecorder) Record(ctx context.Context, entry *Entry) error {
	if entry.ID == "" {
		entry.ID = "aud-" + uuid.NewString()[:8]
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	var detailsJSON *string
	if entry.Details != nil {
		b, err := json.Marshal(entry.Details)
		if err != nil {
			return fmt.Errorf("marshalling audit details: %w", err)
		}
		s := string(b)
		detailsJSON = &s
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO tool_calls (id, tool, device_id, outcome, error_code, source, details, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.Tool,
		nullableString(entry.DeviceID), entry.Outcome,
		nullableString(entry.ErrorCode), entry.Source,
		detailsJSON, entry.Duration.Milliseconds(),
		entry.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting tool call entry: %w", err)
	}

	return nil
}

// nullableString returns nil for empty strings, or the string otherwise.
// Used for nullable TEXT columns in SQLite.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// List returns entries matching the filter, ordered by most recent first.
func (r *SQLiteRecorder) List(ctx context.Context, filter Filter) (*ListResult, error) {
	// Clamp limit.
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	if filter.Limit > 200 {
		filter.Limit = 200
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	// Build WHERE clause dynamically.
	var conditions []string
	var args []any

	if filter.Tool != "" {
		conditions = append(conditions, "tool = ?")
		args = append(args, filter.Tool)
	}
	if filter.DeviceID != "" {
		conditions = append(conditions, "device_id = ?")
		args = append(args, filter.DeviceID)
	}
	if filter.Outcome != "" {
		conditions = append(conditions, "outcome = ?")
		args = append(args, filter.Outcome)
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	// WHERE is assembled from fixed parameterised conditions; no user
	// input reaches the SQL string.
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM tool_calls %s", where)
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting tool call entries: %w", err)
	}

	query := fmt.Sprintf(
		"SELECT id, tool, device_id, outcome, error_code, source, details, duration_ms, created_at FROM tool_calls %s ORDER BY created_at DESC, id LIMIT ? OFFSET ?",
		where,
	)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying tool call entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var entry Entry
		var deviceID, errorCode, detailsJSON sql.NullString
		var durationMS int64
		var createdAt string

		if err := rows.Scan(&entry.ID, &entry.Tool, &deviceID, &entry.Outcome,
			&errorCode, &entry.Source, &detailsJSON, &durationMS, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning tool call entry: %w", err)
		}

		if deviceID.Valid {
			entry.DeviceID = deviceID.String
		}
		if errorCode.Valid {
			entry.ErrorCode = errorCode.String
		}
		if detailsJSON.Valid && detailsJSON.String != "" {
			var details map[string]any
			if json.Unmarshal([]byte(detailsJSON.String), &details) == nil {
				entry.Details = details
			}
		}
		entry.Duration = time.Duration(durationMS) * time.Millisecond

		t, err := time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing tool call timestamp %q: %w", createdAt, err)
		}
		entry.CreatedAt = t

		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tool call entries: %w", err)
	}

	if entries == nil {
		entries = []Entry{}
	}

	return &ListResult{
		Entries: entries,
		Total:   total,
		Limit:   filter.Limit,
		Offset:  filter.Offset,
	}, nil
}
