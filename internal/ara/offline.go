package ara

import (
	"bytes"
	"compress/zlib"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// sqliteTimeLayout is how the ARA server (Django) stores datetimes in sqlite:
// UTC without an offset, fraction omitted when zero.
const sqliteTimeLayout = "2006-01-02 15:04:05.999999"

// boundTimeLayout always carries six fractional digits so string comparison
// against stored values orders correctly.
const boundTimeLayout = "2006-01-02 15:04:05.000000"

// playbookOrders maps the accepted order values to SQL.
var playbookOrders = map[string]string{
	"":         "p.id ASC",
	"id":       "p.id ASC",
	"-id":      "p.id DESC",
	"ended":    "p.ended ASC, p.id ASC",
	"-ended":   "p.ended DESC, p.id DESC",
	"started":  "p.started ASC, p.id ASC",
	"-started": "p.started DESC, p.id DESC",
}

// OfflineClient reads records straight from an ARA server's sqlite database,
// without a running API server.
type OfflineClient struct {
	db     *sql.DB
	dbPath string
}

// NewOfflineClient opens the ARA database at dbPath read-only.
func NewOfflineClient(dbPath string) (*OfflineClient, error) {
	if _, err := os.Stat(dbPath); err != nil {
		return nil, fmt.Errorf("ara database %s: %w", dbPath, err)
	}

	db, err := sql.Open("sqlite3", "file:"+dbPath+"?mode=ro&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open database: %w", err)
	}

	return &OfflineClient{db: db, dbPath: dbPath}, nil
}

// Close closes the database connection
func (c *OfflineClient) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// ListPlaybooks implements Source.
func (c *OfflineClient) ListPlaybooks(ctx context.Context, q PlaybookQuery) ([]Playbook, error) {
	order, ok := playbookOrders[q.Order]
	if !ok {
		return nil, fmt.Errorf("unsupported playbook order %q", q.Order)
	}

	var where []string
	var args []any
	if len(q.Statuses) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(q.Statuses)), ",")
		where = append(where, "p.status IN ("+placeholders+")")
		for _, s := range q.Statuses {
			args = append(args, s)
		}
	}
	if !q.EndedAfter.IsZero() {
		where = append(where, "p.ended > ?")
		args = append(args, q.EndedAfter.UTC().Format(boundTimeLayout))
	}

	query := `SELECT p.id, COALESCE(p.name, ''), COALESCE(f.path, ''), p.status, p.ended
		FROM api_playbook p
		LEFT JOIN api_file f ON f.id = p.file_id`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY " + order

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query playbooks: %w", err)
	}
	defer rows.Close()

	var playbooks []Playbook
	for rows.Next() {
		var pb Playbook
		var ended any
		if err := rows.Scan(&pb.ID, &pb.Name, &pb.Path, &pb.Status, &ended); err != nil {
			return nil, fmt.Errorf("scan playbook: %w", err)
		}
		if pb.Ended, err = scanTime(ended); err != nil {
			return nil, fmt.Errorf("playbook %d: %w", pb.ID, err)
		}
		playbooks = append(playbooks, pb)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate playbooks: %w", err)
	}
	return playbooks, nil
}

// ListResults implements Source.
func (c *OfflineClient) ListResults(ctx context.Context, playbookID int64) ([]Result, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT id, status, ended, task_id, host_id
		FROM api_result
		WHERE playbook_id = ?
		ORDER BY id ASC`, playbookID)
	if err != nil {
		return nil, fmt.Errorf("query results for playbook %d: %w", playbookID, err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		var ended any
		if err := rows.Scan(&r.ID, &r.Status, &ended, &r.Task, &r.Host); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		if r.Ended, err = scanTime(ended); err != nil {
			return nil, fmt.Errorf("result %d: %w", r.ID, err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate results: %w", err)
	}
	return results, nil
}

// GetTask implements Source.
func (c *OfflineClient) GetTask(ctx context.Context, id int64) (Task, error) {
	var task Task
	var tags []byte
	err := c.db.QueryRowContext(ctx, `SELECT t.id, COALESCE(t.name, ''), COALESCE(t.lineno, 0), t.tags,
			COALESCE(f.id, 0), COALESCE(f.path, ''),
			COALESCE(pl.id, 0), COALESCE(pl.name, '')
		FROM api_task t
		LEFT JOIN api_file f ON f.id = t.file_id
		LEFT JOIN api_play pl ON pl.id = t.play_id
		WHERE t.id = ?`, id).Scan(
		&task.ID, &task.Name, &task.Lineno, &tags,
		&task.File.ID, &task.File.Path,
		&task.Play.ID, &task.Play.Name,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Task{}, fmt.Errorf("task %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return Task{}, fmt.Errorf("query task %d: %w", id, err)
	}

	if err := decodeCompressed(tags, &task.Tags); err != nil {
		return Task{}, fmt.Errorf("task %d tags: %w", id, err)
	}
	if task.Tags == nil {
		task.Tags = []string{}
	}
	return task, nil
}

// GetHost implements Source.
func (c *OfflineClient) GetHost(ctx context.Context, id int64) (Host, error) {
	var host Host
	var facts []byte
	err := c.db.QueryRowContext(ctx, `SELECT id, name, facts FROM api_host WHERE id = ?`, id).
		Scan(&host.ID, &host.Name, &facts)
	if errors.Is(err, sql.ErrNoRows) {
		return Host{}, fmt.Errorf("host %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return Host{}, fmt.Errorf("query host %d: %w", id, err)
	}

	if err := decodeCompressed(facts, &host.Facts); err != nil {
		return Host{}, fmt.Errorf("host %d facts: %w", id, err)
	}
	return host, nil
}

// decodeCompressed decodes a zlib-compressed JSON column. Empty columns leave
// out untouched.
func decodeCompressed(data []byte, out any) error {
	if len(data) == 0 {
		return nil
	}
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("decompress: %w", err)
	}
	defer zr.Close()

	raw, err := io.ReadAll(zr)
	if err != nil {
		return fmt.Errorf("decompress: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode json: %w", err)
	}
	return nil
}

// scanTime accepts the forms the sqlite driver may hand back for a datetime
// column. NULL becomes the zero time.
func scanTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case nil:
		return time.Time{}, nil
	case time.Time:
		return t.UTC(), nil
	case string:
		return parseStoredTime(t)
	case []byte:
		return parseStoredTime(string(t))
	default:
		return time.Time{}, fmt.Errorf("unexpected datetime value of type %T", v)
	}
}

func parseStoredTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{sqliteTimeLayout, time.RFC3339Nano, "2006-01-02T15:04:05.999999"} {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable datetime %q", s)
}
