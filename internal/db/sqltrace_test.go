package db

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

// captureHandler records log records for assertion in tests.
type captureHandler struct {
	mu      sync.Mutex
	records []map[string]slog.Value
}

func (h *captureHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *captureHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	m := map[string]slog.Value{"msg": slog.StringValue(r.Message)}
	r.Attrs(func(a slog.Attr) bool {
		m[a.Key] = a.Value
		return true
	})
	h.records = append(h.records, m)
	return nil
}

func (h *captureHandler) WithAttrs([]slog.Attr) slog.Handler { return h }

func (h *captureHandler) WithGroup(string) slog.Handler { return h }

func (h *captureHandler) last(t *testing.T, msg string) map[string]slog.Value {
	t.Helper()
	h.mu.Lock()
	defer h.mu.Unlock()
	for i := len(h.records) - 1; i >= 0; i-- {
		if h.records[i]["msg"].String() == msg {
			return h.records[i]
		}
	}
	t.Fatalf("no %q log record", msg)
	return nil
}

func (h *captureHandler) reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = nil
}

func openTraced(t *testing.T) (*sql.DB, *captureHandler) {
	t.Helper()
	handler := &captureHandler{}
	db := sql.OpenDB(NewTracingConnector(":memory:", slog.New(handler)))
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db, handler
}

func TestNewTracingConnector_nilLoggerUsesDefault(t *testing.T) {
	c := NewTracingConnector(":memory:", nil)
	if c.(*tracingConnector).logger == nil {
		t.Fatal("logger is nil")
	}
}

func TestTracingDriver_directOpenRejected(t *testing.T) {
	if _, err := NewTracingConnector(":memory:", nil).Driver().Open(":memory:"); err == nil {
		t.Fatal("Open() = nil error; want error")
	}
}

func TestTracing_execAndQueryLogged(t *testing.T) {
	db, handler := openTraced(t)

	if _, err := db.Exec(`CREATE TABLE t (id INTEGER PRIMARY KEY, name TEXT)`); err != nil {
		t.Fatalf("create table: %v", err)
	}
	got := handler.last(t, "sql")
	if got["op"].String() != "exec" {
		t.Errorf("op = %q; want exec", got["op"].String())
	}
	if got["sql"].String() != `CREATE TABLE t (id INTEGER PRIMARY KEY, name TEXT)` {
		t.Errorf("sql = %q", got["sql"].String())
	}
	if _, ok := got["duration_ms"]; !ok {
		t.Error("duration_ms missing")
	}

	handler.reset()
	if _, err := db.Exec(`INSERT INTO t (id, name) VALUES (?, ?)`, 1, "alice"); err != nil {
		t.Fatalf("insert: %v", err)
	}
	got = handler.last(t, "sql")
	args := got["args"].Any().([]string)
	if len(args) != 2 || args[0] != "1" || args[1] != "alice" {
		t.Errorf("args = %v; want [1 alice]", args)
	}

	handler.reset()
	var name string
	if err := db.QueryRow(`SELECT name FROM t WHERE id = ?`, 1).Scan(&name); err != nil {
		t.Fatalf("query row: %v", err)
	}
	if name != "alice" {
		t.Errorf("name = %q; want alice", name)
	}
	got = handler.last(t, "sql")
	if got["op"].String() != "query" {
		t.Errorf("op = %q; want query", got["op"].String())
	}
}

func TestTracing_preparedStatementLogged(t *testing.T) {
	db, handler := openTraced(t)
	if _, err := db.Exec(`CREATE TABLE t (id INTEGER)`); err != nil {
		t.Fatalf("create table: %v", err)
	}

	stmt, err := db.Prepare(`INSERT INTO t (id) VALUES (?)`)
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}
	defer func() { _ = stmt.Close() }()

	handler.reset()
	if _, err := stmt.Exec(7); err != nil {
		t.Fatalf("exec: %v", err)
	}
	got := handler.last(t, "sql")
	if got["sql"].String() != `INSERT INTO t (id) VALUES (?)` {
		t.Errorf("sql = %q", got["sql"].String())
	}
}

func TestTracing_multiStatementExec(t *testing.T) {
	db, _ := openTraced(t)
	if _, err := db.Exec(`CREATE TABLE a (id INTEGER); CREATE TABLE b (id INTEGER);`); err != nil {
		t.Fatalf("exec: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO b (id) VALUES (1)`); err != nil {
		t.Fatalf("second table missing: %v", err)
	}
}

func TestTracing_errorLogged(t *testing.T) {
	db, handler := openTraced(t)
	if _, err := db.Exec(`INSERT INTO missing (id) VALUES (1)`); err == nil {
		t.Fatal("expected error for missing table")
	}
	got := handler.last(t, "sql")
	if _, ok := got["error"]; !ok {
		t.Error("error attribute missing")
	}
}

func TestTracing_transactionCommits(t *testing.T) {
	db, _ := openTraced(t)
	if _, err := db.Exec(`CREATE TABLE t (id INTEGER)`); err != nil {
		t.Fatalf("create table: %v", err)
	}
	tx, err := db.BeginTx(context.Background(), nil)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if _, err := tx.Exec(`INSERT INTO t (id) VALUES (1), (2)`); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM t`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 2 {
		t.Errorf("count = %d; want 2", n)
	}
}

func TestFormatArgs(t *testing.T) {
	long := strings.Repeat("x", 200)
	got := formatArgs(valuesToNamed([]driver.Value{nil, []byte("blob"), 3.5, long}))
	if got[0] != "NULL" || got[1] != "blob" || got[2] != "3.5" {
		t.Errorf("formatArgs = %v", got[:3])
	}
	if !strings.HasSuffix(got[3], "...") || len(got[3]) != 123 {
		t.Errorf("long arg not truncated: len %d", len(got[3]))
	}
}
