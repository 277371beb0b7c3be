package brain

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
)

// driverName is go-sqlite3 with a fold(text) function that lowercases with
// Go's Unicode tables. SQLite's own lower() only folds ASCII.
const driverName = "sqlite3_recall"

func init() {
	sql.Register(driverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc("fold", strings.ToLower, true)
		},
	})
}

const (
	// MinCapacity is the smallest index space allocated on first growth.
	MinCapacity = 100

	metaCapacity  = "capacity"
	metaNextIndex = "next_index"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// store owns the SQLite database backing concepts and edges.
type store struct {
	db *sql.DB
}

func openStore(path string) (*store, error) {
	db, err := sql.Open(driverName, path+"?_foreign_keys=1&_busy_timeout=5000")
	if err != nil {
		return nil, storageErr("open database", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, storageErr("enable WAL mode", err)
	}

	s := &store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, storageErr("initialize schema", err)
	}
	return s, nil
}

func (s *store) initSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS concepts (
			id TEXT PRIMARY KEY,
			idx INTEGER NOT NULL UNIQUE,
			kind TEXT NOT NULL,
			title TEXT NOT NULL,
			domain TEXT NOT NULL DEFAULT '',
			activation_count INTEGER NOT NULL DEFAULT 0,
			last_activated_at INTEGER,
			created_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_concepts_kind ON concepts(kind);

		CREATE TABLE IF NOT EXISTS edges (
			source_idx INTEGER NOT NULL,
			target_idx INTEGER NOT NULL,
			weight REAL NOT NULL,
			last_activated_at INTEGER NOT NULL,
			PRIMARY KEY (source_idx, target_idx),
			FOREIGN KEY (source_idx) REFERENCES concepts(idx),
			FOREIGN KEY (target_idx) REFERENCES concepts(idx)
		);
		CREATE INDEX IF NOT EXISTS idx_edges_source ON edges(source_idx);

		CREATE TABLE IF NOT EXISTS metadata (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
		INSERT OR IGNORE INTO metadata (key, value) VALUES ('capacity', '0');
		INSERT OR IGNORE INTO metadata (key, value) VALUES ('next_index', '0');
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *store) close() error {
	return s.db.Close()
}

// withTx runs fn inside a transaction, committing only if fn succeeds.
func (s *store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr("begin transaction", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return storageErr("commit transaction", err)
	}
	return nil
}

func getMetaInt(ctx context.Context, q querier, key string) (int, error) {
	var raw string
	if err := q.QueryRowContext(ctx, "SELECT value FROM metadata WHERE key = ?", key).Scan(&raw); err != nil {
		return 0, storageErr("read "+key, err)
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, storageErr("parse "+key, err)
	}
	return v, nil
}

func setMetaInt(ctx context.Context, q querier, key string, v int) error {
	_, err := q.ExecContext(ctx,
		"INSERT INTO metadata (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, strconv.Itoa(v))
	return storageErr("write "+key, err)
}

// grownCapacity returns the capacity needed to hold index next, doubling the
// current capacity (minimum MinCapacity) until it fits.
func grownCapacity(current, next int) int {
	if next < current {
		return current
	}
	c := current * 2
	if c < MinCapacity {
		c = MinCapacity
	}
	for next >= c {
		c *= 2
	}
	return c
}

// allocateIndex reserves the next concept index, growing capacity if needed.
func allocateIndex(ctx context.Context, tx *sql.Tx) (int, error) {
	next, err := getMetaInt(ctx, tx, metaNextIndex)
	if err != nil {
		return 0, err
	}
	capacity, err := getMetaInt(ctx, tx, metaCapacity)
	if err != nil {
		return 0, err
	}
	if next >= capacity {
		grown := grownCapacity(capacity, next)
		if err := setMetaInt(ctx, tx, metaCapacity, grown); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrCapacityGrowth, err)
		}
	}
	if err := setMetaInt(ctx, tx, metaNextIndex, next+1); err != nil {
		return 0, err
	}
	return next, nil
}

const conceptColumns = "id, idx, kind, title, domain, activation_count, last_activated_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConcept(row rowScanner) (Concept, error) {
	var (
		c    Concept
		kind string
		last sql.NullInt64
	)
	if err := row.Scan(&c.ID, &c.Index, &kind, &c.Title, &c.Domain, &c.ActivationCount, &last); err != nil {
		return Concept{}, err
	}
	c.Kind = Kind(kind)
	if last.Valid {
		t := time.UnixMilli(last.Int64)
		c.LastActivatedAt = &t
	}
	return c, nil
}

func getConcept(ctx context.Context, q querier, id string) (Concept, error) {
	row := q.QueryRowContext(ctx, "SELECT "+conceptColumns+" FROM concepts WHERE id = ?", id)
	c, err := scanConcept(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Concept{}, ErrNotFound
	}
	if err != nil {
		return Concept{}, storageErr("get concept", err)
	}
	return c, nil
}

// insertConcept adds a concept unless id already exists. The bool reports
// whether a new row was created.
func insertConcept(ctx context.Context, tx *sql.Tx, id, title string, kind Kind, domain string, now time.Time) (Concept, bool, error) {
	existing, err := getConcept(ctx, tx, id)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Concept{}, false, err
	}

	idx, err := allocateIndex(ctx, tx)
	if err != nil {
		return Concept{}, false, err
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO concepts (id, idx, kind, title, domain, activation_count, created_at) VALUES (?, ?, ?, ?, ?, 0, ?)",
		id, idx, string(kind), title, domain, now.UnixMilli(),
	)
	if err != nil {
		return Concept{}, false, storageErr("insert concept", err)
	}

	return Concept{ID: id, Index: idx, Kind: kind, Title: title, Domain: domain}, true, nil
}

func searchConcepts(ctx context.Context, q querier, word string, limit int) ([]Concept, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+conceptColumns+`
		FROM concepts
		WHERE instr(fold(title), fold(?)) > 0
		ORDER BY activation_count DESC, idx ASC
		LIMIT ?
	`, word, limit)
	if err != nil {
		return nil, storageErr("search concepts", err)
	}
	return collectConcepts(rows)
}

func loadConcepts(ctx context.Context, q querier) ([]Concept, error) {
	rows, err := q.QueryContext(ctx, "SELECT "+conceptColumns+" FROM concepts ORDER BY idx")
	if err != nil {
		return nil, storageErr("load concepts", err)
	}
	return collectConcepts(rows)
}

func conceptsByIndex(ctx context.Context, q querier, indices []int) (map[int]Concept, error) {
	out := make(map[int]Concept, len(indices))
	if len(indices) == 0 {
		return out, nil
	}
	rows, err := q.QueryContext(ctx,
		"SELECT "+conceptColumns+" FROM concepts WHERE idx IN ("+placeholders(len(indices))+")",
		intArgs(indices)...)
	if err != nil {
		return nil, storageErr("load concepts by index", err)
	}
	concepts, err := collectConcepts(rows)
	if err != nil {
		return nil, err
	}
	for _, c := range concepts {
		out[c.Index] = c
	}
	return out, nil
}

func collectConcepts(rows *sql.Rows) ([]Concept, error) {
	defer rows.Close()
	var out []Concept
	for rows.Next() {
		c, err := scanConcept(rows)
		if err != nil {
			return nil, storageErr("scan concept", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate concepts", err)
	}
	return out, nil
}

// touchConcepts records one activation for each index.
func touchConcepts(ctx context.Context, tx *sql.Tx, indices []int, now time.Time) error {
	stmt, err := tx.PrepareContext(ctx,
		"UPDATE concepts SET activation_count = activation_count + 1, last_activated_at = ? WHERE idx = ?")
	if err != nil {
		return storageErr("prepare touch", err)
	}
	defer stmt.Close()

	for _, idx := range indices {
		if _, err := stmt.ExecContext(ctx, now.UnixMilli(), idx); err != nil {
			return storageErr("touch concept", err)
		}
	}
	return nil
}

func outEdges(ctx context.Context, q querier, source int) ([]Edge, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT source_idx, target_idx, weight, last_activated_at FROM edges WHERE source_idx = ?", source)
	if err != nil {
		return nil, storageErr("load edges", err)
	}
	return collectEdges(rows)
}

func loadEdges(ctx context.Context, q querier) ([]Edge, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT source_idx, target_idx, weight, last_activated_at FROM edges ORDER BY source_idx, target_idx")
	if err != nil {
		return nil, storageErr("load edges", err)
	}
	return collectEdges(rows)
}

// edgesAmong returns the edges whose endpoints are both in indices.
func edgesAmong(ctx context.Context, q querier, indices []int) ([]Edge, error) {
	if len(indices) == 0 {
		return nil, nil
	}
	ph := placeholders(len(indices))
	args := append(intArgs(indices), intArgs(indices)...)
	rows, err := q.QueryContext(ctx,
		"SELECT source_idx, target_idx, weight, last_activated_at FROM edges WHERE source_idx IN ("+ph+") AND target_idx IN ("+ph+")",
		args...)
	if err != nil {
		return nil, storageErr("load edges among", err)
	}
	return collectEdges(rows)
}

func getEdge(ctx context.Context, q querier, source, target int) (Edge, bool, error) {
	var (
		e    Edge
		last int64
	)
	err := q.QueryRowContext(ctx,
		"SELECT source_idx, target_idx, weight, last_activated_at FROM edges WHERE source_idx = ? AND target_idx = ?",
		source, target).Scan(&e.Source, &e.Target, &e.Weight, &last)
	if errors.Is(err, sql.ErrNoRows) {
		return Edge{}, false, nil
	}
	if err != nil {
		return Edge{}, false, storageErr("get edge", err)
	}
	e.LastActivatedAt = time.UnixMilli(last)
	return e, true, nil
}

func collectEdges(rows *sql.Rows) ([]Edge, error) {
	defer rows.Close()
	var out []Edge
	for rows.Next() {
		var (
			e    Edge
			last int64
		)
		if err := rows.Scan(&e.Source, &e.Target, &e.Weight, &last); err != nil {
			return nil, storageErr("scan edge", err)
		}
		e.LastActivatedAt = time.UnixMilli(last)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate edges", err)
	}
	return out, nil
}

// setEdge writes weight for source->target, replacing any previous value.
func setEdge(ctx context.Context, q querier, source, target int, weight float64, now time.Time) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO edges (source_idx, target_idx, weight, last_activated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(source_idx, target_idx) DO UPDATE SET
			weight = excluded.weight,
			last_activated_at = excluded.last_activated_at
	`, source, target, clampWeight(weight), now.UnixMilli())
	return storageErr("set edge", err)
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	b := make([]byte, 0, 2*n-1)
	for i := 0; i < n; i++ {
		if i > 0 {
			b = append(b, ',')
		}
		b = append(b, '?')
	}
	return string(b)
}

func intArgs(values []int) []any {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return args
}
