package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"stacks-cli/internal/model"

	_ "modernc.org/sqlite"
)

const sqliteFileName = "stacks.sqlite"

// SQLite is a local ItemStore backed by one SQLite file per store directory.
// Stories and tasks live in separate tables and are merged on listing.
type SQLite struct {
	Dir string
}

func (s SQLite) Path() string {
	return filepath.Join(filepath.Clean(s.Dir), sqliteFileName)
}

func (s SQLite) open(ctx context.Context) (*sql.DB, error) {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return nil, err
	}
	// modernc.org/sqlite registers the "sqlite" driver.
	db, err := sql.Open("sqlite", s.Path())
	if err != nil {
		return nil, err
	}
	// Pragmas are per connection.
	db.SetMaxOpenConns(1)
	// WAL allows one writer next to many readers; busy_timeout absorbs concurrent batch writes.
	pragmas := []string{
		"PRAGMA busy_timeout=5000;",
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	itemCols := `
		id TEXT PRIMARY KEY,
		workspace_id TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT NOT NULL,
		priority TEXT NOT NULL,
		status TEXT NOT NULL,
		assignee TEXT,
		tags_json TEXT NOT NULL,
		rank INTEGER,
		rank_key TEXT NOT NULL,
		version INTEGER NOT NULL,
		created_at_unixms INTEGER NOT NULL,
		updated_at_unixms INTEGER NOT NULL`
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS workspaces (
			id TEXT PRIMARY KEY,
			created_at_unixms INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS stories (` + itemCols + `);`,
		`CREATE TABLE IF NOT EXISTS tasks (` + itemCols + `,
			subtype TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_stories_workspace ON stories(workspace_id);`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_workspace ON tasks(workspace_id);`,
	}
	for _, st := range stmts {
		if _, err := db.ExecContext(ctx, st); err != nil {
			return err
		}
	}
	return nil
}

func tableFor(kind model.Kind) string {
	if kind == model.KindTask {
		return "tasks"
	}
	return "stories"
}

// EnsureWorkspace registers a workspace so that listing it succeeds even when empty.
func (s SQLite) EnsureWorkspace(ctx context.Context, workspaceID string) error {
	workspaceID = strings.TrimSpace(workspaceID)
	if workspaceID == "" {
		return errors.New("missing workspace id")
	}
	db, err := s.open(ctx)
	if err != nil {
		return err
	}
	defer db.Close()
	_, err = db.ExecContext(ctx, `INSERT OR IGNORE INTO workspaces(id, created_at_unixms) VALUES(?, ?)`, workspaceID, time.Now().UTC().UnixMilli())
	return err
}

func (s SQLite) Workspaces(ctx context.Context) ([]string, error) {
	db, err := s.open(ctx)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	rows, err := db.QueryContext(ctx, `SELECT id FROM workspaces ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (s SQLite) ListItems(ctx context.Context, workspaceID string) ([]model.Item, error) {
	db, err := s.open(ctx)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(1) FROM workspaces WHERE id = ?`, workspaceID).Scan(&n); err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, ErrWorkspaceUnavailable
	}

	stories, err := queryItems(ctx, db, model.KindStory, `WHERE workspace_id = ?`, workspaceID)
	if err != nil {
		return nil, err
	}
	tasks, err := queryItems(ctx, db, model.KindTask, `WHERE workspace_id = ?`, workspaceID)
	if err != nil {
		return nil, err
	}
	out := make([]model.Item, 0, len(stories)+len(tasks))
	for _, it := range append(stories, tasks...) {
		out = append(out, it.WithImplicitTags())
	}
	return out, nil
}

func (s SQLite) CreateItem(ctx context.Context, it model.Item) (model.Item, error) {
	it = prepareNew(it, time.Now().UTC())
	if err := model.ValidateItem(it); err != nil {
		return model.Item{}, err
	}
	if err := s.EnsureWorkspace(ctx, it.WorkspaceID); err != nil {
		return model.Item{}, err
	}
	db, err := s.open(ctx)
	if err != nil {
		return model.Item{}, err
	}
	defer db.Close()

	tags, _ := json.Marshal(it.Tags)
	args := []any{
		it.ID, it.WorkspaceID, it.Title, it.Description, string(it.Priority), string(it.Status),
		nullString(it.Assignee), string(tags), it.RankKey, it.Version,
		it.CreatedAt.UnixMilli(), it.UpdatedAt.UnixMilli(),
	}
	q := `INSERT INTO stories(id, workspace_id, title, description, priority, status, assignee, tags_json, rank, rank_key, version, created_at_unixms, updated_at_unixms)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, NULL, ?, ?, ?, ?)`
	if it.Kind == model.KindTask {
		q = `INSERT INTO tasks(id, workspace_id, title, description, priority, status, assignee, tags_json, rank, rank_key, version, created_at_unixms, updated_at_unixms, subtype)
			VALUES(?, ?, ?, ?, ?, ?, ?, ?, NULL, ?, ?, ?, ?, ?)`
		args = append(args, string(it.TaskSubtype))
	}
	if _, err := db.ExecContext(ctx, q, args...); err != nil {
		return model.Item{}, err
	}
	return it, nil
}

// UpdateItem applies a partial update with a single guarded statement per table, so
// the version check and the write cannot interleave with another batch.
func (s SQLite) UpdateItem(ctx context.Context, id string, p model.Patch) error {
	db, err := s.open(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	var (
		hasRank, hasKey, hasStatus bool
		rank                       any
		rankKey, status            string
	)
	if p.Rank != nil {
		hasRank, rank = true, *p.Rank
	}
	if p.RankKey != nil {
		hasKey, rankKey = true, *p.RankKey
	}
	if p.Status != nil {
		hasStatus, status = true, string(*p.Status)
	}
	now := time.Now().UTC().UnixMilli()
	for _, t := range []string{"stories", "tasks"} {
		res, err := db.ExecContext(ctx, `UPDATE `+t+` SET
			rank = CASE WHEN ?1 THEN ?2 ELSE rank END,
			rank_key = CASE WHEN ?3 THEN ?4 ELSE rank_key END,
			status = CASE WHEN ?5 THEN ?6 ELSE status END,
			version = CASE WHEN ?7 > 0 THEN ?7 ELSE version END,
			updated_at_unixms = ?8
			WHERE id = ?9 AND (?7 = 0 OR version < ?7)`,
			boolToInt(hasRank), rank, boolToInt(hasKey), rankKey, boolToInt(hasStatus), status, p.BatchSeq, now, id)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n > 0 {
			return nil
		}
	}
	if _, _, err := findItem(ctx, db, id); err != nil {
		return err
	}
	return ErrStaleWrite
}

func (s SQLite) DeleteItem(ctx context.Context, id string) error {
	db, err := s.open(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	var n int64
	for _, t := range []string{"stories", "tasks"} {
		res, err := db.ExecContext(ctx, `DELETE FROM `+t+` WHERE id = ?`, id)
		if err != nil {
			return err
		}
		c, _ := res.RowsAffected()
		n += c
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func findItem(ctx context.Context, q querier, id string) (model.Item, model.Kind, error) {
	for _, kind := range []model.Kind{model.KindStory, model.KindTask} {
		items, err := queryItems(ctx, q, kind, `WHERE id = ?`, id)
		if err != nil {
			return model.Item{}, "", err
		}
		if len(items) > 0 {
			return items[0], kind, nil
		}
	}
	return model.Item{}, "", ErrNotFound
}

func queryItems(ctx context.Context, q querier, kind model.Kind, where string, args ...any) ([]model.Item, error) {
	cols := `id, workspace_id, title, description, priority, status, assignee, tags_json, rank, rank_key, version, created_at_unixms, updated_at_unixms`
	if kind == model.KindTask {
		cols += `, subtype`
	}
	rows, err := q.QueryContext(ctx, `SELECT `+cols+` FROM `+tableFor(kind)+` `+where, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Item
	for rows.Next() {
		var (
			it                 model.Item
			priority, status   string
			assignee           sql.NullString
			tagsJSON           string
			rank               sql.NullInt64
			createdMs, updated int64
			subtype            string
		)
		dest := []any{&it.ID, &it.WorkspaceID, &it.Title, &it.Description, &priority, &status, &assignee, &tagsJSON, &rank, &it.RankKey, &it.Version, &createdMs, &updated}
		if kind == model.KindTask {
			dest = append(dest, &subtype)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		it.Kind = kind
		it.TaskSubtype = model.TaskSubtype(subtype)
		it.Priority = model.Priority(priority)
		it.Status = model.Status(status)
		if assignee.Valid {
			it.Assignee = model.StringPtr(assignee.String)
		}
		if tagsJSON != "" && tagsJSON != "null" {
			if err := json.Unmarshal([]byte(tagsJSON), &it.Tags); err != nil {
				return nil, err
			}
		}
		if rank.Valid {
			it.Rank = model.IntPtr(int(rank.Int64))
		}
		it.CreatedAt = time.UnixMilli(createdMs).UTC()
		it.UpdatedAt = time.UnixMilli(updated).UTC()
		out = append(out, it)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
