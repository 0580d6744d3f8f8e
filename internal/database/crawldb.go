package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/webmap/internal/model"
)

// CrawlDB provides SQLite-based storage for crawl results so past runs
// can be listed and re-exported by the history subcommand.
//
// Design decision: We use a single database file for all runs rather
// than one file per run. This keeps listing cheap and makes backup a
// single-file operation.
type CrawlDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures CrawlDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent
	// performance. Recommended for most use cases.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a CrawlDB at the specified directory.
// If CreateIfNotExists is false and the database doesn't exist, an
// error is returned.
func Open(dbDir string, opts Options) (*CrawlDB, error) {
	dbPath := filepath.Join(dbDir, "webmap.db")

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// modernc.org/sqlite connection strings: mode=rw prevents creating
	// new files, mode=rwc allows creation.
	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cdb := &CrawlDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := cdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return cdb, nil
}

// Close closes the database connection.
func (cdb *CrawlDB) Close() error {
	return cdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (cdb *CrawlDB) createTables() error {
	schema := `
	-- Runs store one row per crawl execution
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		seed_url TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		finished_at DATETIME NOT NULL,
		pages_fetched INTEGER NOT NULL,
		cancelled INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_runs_seed ON runs(seed_url);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

	-- Nodes store the per-run node table
	CREATE TABLE IF NOT EXISTS nodes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL REFERENCES runs(id),
		url TEXT NOT NULL,
		status INTEGER,
		accepts_params INTEGER NOT NULL DEFAULT 0,
		param_examples TEXT NOT NULL DEFAULT '[]',
		out_degree INTEGER NOT NULL DEFAULT 0,
		UNIQUE(run_id, url)
	);

	CREATE INDEX IF NOT EXISTS idx_nodes_run ON nodes(run_id);

	-- Edges store the per-run adjacency
	CREATE TABLE IF NOT EXISTS edges (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL REFERENCES runs(id),
		from_url TEXT NOT NULL,
		to_url TEXT NOT NULL,
		UNIQUE(run_id, from_url, to_url)
	);

	CREATE INDEX IF NOT EXISTS idx_edges_run ON edges(run_id);
	CREATE INDEX IF NOT EXISTS idx_edges_from ON edges(run_id, from_url);
	`

	_, err := cdb.db.ExecContext(context.Background(), schema)
	return err
}

// RunRecord summarizes a stored crawl run.
type RunRecord struct {
	ID           int64
	SeedURL      string
	StartedAt    time.Time
	FinishedAt   time.Time
	PagesFetched int
	Cancelled    bool
	NodeCount    int
	EdgeCount    int
}

// SaveResult persists a finalized crawl result and returns the run ID.
// The write is transactional: either the full run with all nodes and
// edges is stored, or nothing is.
func (cdb *CrawlDB) SaveResult(ctx context.Context, result *model.CrawlResult) (int64, error) {
	tx, err := cdb.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // No-op after commit

	res, err := tx.ExecContext(ctx,
		`INSERT INTO runs (seed_url, started_at, finished_at, pages_fetched, cancelled)
		 VALUES (?, ?, ?, ?, ?)`,
		result.SeedURL, result.StartedAt, result.FinishedAt, result.PagesFetched, result.Cancelled)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}

	runID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get run ID: %w", err)
	}

	for _, url := range result.SortedURLs() {
		node := result.Nodes[url]
		examplesJSON, err := json.Marshal(node.ParamExamples)
		if err != nil {
			return 0, fmt.Errorf("failed to serialize param examples for %s: %w", url, err)
		}

		var status any
		if node.Status != nil {
			status = *node.Status
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO nodes (run_id, url, status, accepts_params, param_examples, out_degree)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			runID, node.URL, status, node.AcceptsParams, string(examplesJSON), node.OutDegree); err != nil {
			return 0, fmt.Errorf("failed to insert node %s: %w", url, err)
		}
	}

	for from, targets := range result.Adjacency {
		for _, to := range targets {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO edges (run_id, from_url, to_url) VALUES (?, ?, ?)`,
				runID, from, to); err != nil {
				return 0, fmt.Errorf("failed to insert edge %s -> %s: %w", from, to, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit run: %w", err)
	}

	return runID, nil
}

// ListRuns returns summaries of all stored runs, newest first.
func (cdb *CrawlDB) ListRuns(ctx context.Context) ([]RunRecord, error) {
	rows, err := cdb.db.QueryContext(ctx, `
		SELECT r.id, r.seed_url, r.started_at, r.finished_at, r.pages_fetched, r.cancelled,
		       (SELECT COUNT(*) FROM nodes n WHERE n.run_id = r.id),
		       (SELECT COUNT(*) FROM edges e WHERE e.run_id = r.id)
		FROM runs r
		ORDER BY r.started_at DESC, r.id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		var rec RunRecord
		if err := rows.Scan(&rec.ID, &rec.SeedURL, &rec.StartedAt, &rec.FinishedAt,
			&rec.PagesFetched, &rec.Cancelled, &rec.NodeCount, &rec.EdgeCount); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// GetResult reconstructs a stored crawl result by run ID.
// Returns sql.ErrNoRows wrapped if the run does not exist.
func (cdb *CrawlDB) GetResult(ctx context.Context, runID int64) (*model.CrawlResult, error) {
	result := model.NewCrawlResult("")
	err := cdb.db.QueryRowContext(ctx,
		`SELECT seed_url, started_at, finished_at, pages_fetched, cancelled
		 FROM runs WHERE id = ?`, runID).
		Scan(&result.SeedURL, &result.StartedAt, &result.FinishedAt,
			&result.PagesFetched, &result.Cancelled)
	if err != nil {
		return nil, fmt.Errorf("failed to load run %d: %w", runID, err)
	}

	rows, err := cdb.db.QueryContext(ctx,
		`SELECT url, status, accepts_params, param_examples, out_degree
		 FROM nodes WHERE run_id = ? ORDER BY url`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query nodes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		node := model.NewNode("")
		var status sql.NullInt64
		var examplesJSON string
		if err := rows.Scan(&node.URL, &status, &node.AcceptsParams, &examplesJSON, &node.OutDegree); err != nil {
			return nil, fmt.Errorf("failed to scan node: %w", err)
		}
		if status.Valid {
			node.SetStatus(int(status.Int64))
		}
		if err := json.Unmarshal([]byte(examplesJSON), &node.ParamExamples); err != nil {
			return nil, fmt.Errorf("failed to decode param examples for %s: %w", node.URL, err)
		}
		result.Nodes[node.URL] = node
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	edgeRows, err := cdb.db.QueryContext(ctx,
		`SELECT from_url, to_url FROM edges WHERE run_id = ? ORDER BY from_url, to_url`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query edges: %w", err)
	}
	defer edgeRows.Close()

	for edgeRows.Next() {
		var from, to string
		if err := edgeRows.Scan(&from, &to); err != nil {
			return nil, fmt.Errorf("failed to scan edge: %w", err)
		}
		result.Adjacency[from] = append(result.Adjacency[from], to)
	}

	return result, edgeRows.Err()
}

// Path returns the database file path.
func (cdb *CrawlDB) Path() string {
	return cdb.dbPath
}
