package storage

import (
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store keeps the history of pipeline runs in SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite database in dataDir and runs pending migrations.
// Pass ":memory:" as dataDir for an in-memory database (used by tests).
func Open(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "popular.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	// Set busy timeout so concurrent access waits briefly instead of failing immediately.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate reads embedded SQL migration files and applies any that haven't been run yet.
func (s *Store) migrate() error {
	// Ensure schema_version table exists (bootstrap).
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort by filename to guarantee ascending order.
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		version, err := parseMigrationVersion(entry.Name())
		if err != nil {
			return err
		}

		// Check if already applied.
		var exists int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}

		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}

	return nil
}

func parseMigrationVersion(filename string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(filename, "%d_", &version); err != nil {
		return 0, fmt.Errorf("parsing migration version from %q: %w", filename, err)
	}
	return version, nil
}

// AppliedMigrations returns the list of applied migration versions in ascending order.
func (s *Store) AppliedMigrations() ([]int, error) {
	rows, err := s.db.Query("SELECT version FROM schema_version ORDER BY version ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// --- Runs ---

// CreateRun records the start of a run.
func (s *Store) CreateRun(r Run) error {
	status := r.Status
	if status == "" {
		status = StatusRunning
	}
	_, err := s.db.Exec(`
		INSERT INTO runs (id, started_at, status, dry_run)
		VALUES (?, ?, ?, ?)`,
		r.ID, r.StartedAt.UTC().Format(time.RFC3339), status, r.DryRun,
	)
	return err
}

// FinishRun stores the outcome of a run created with CreateRun, including
// its selected items.
func (s *Store) FinishRun(r Run) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning finish transaction: %w", err)
	}
	defer tx.Rollback()

	finishedAt := r.FinishedAt
	if finishedAt.IsZero() {
		finishedAt = time.Now()
	}
	res, err := tx.Exec(`
		UPDATE runs SET finished_at = ?, status = ?, revision_count = ?, candidate_count = ?,
			image_item = ?, image_file = ?, wikitext = ?, error = ?
		WHERE id = ?`,
		finishedAt.UTC().Format(time.RFC3339), r.Status, r.RevisionCount, r.CandidateCount,
		r.ImageItem, r.ImageFile, r.Wikitext, r.Error, r.ID,
	)
	if err != nil {
		return fmt.Errorf("updating run %s: %w", r.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}

	if _, err := tx.Exec(`DELETE FROM run_items WHERE run_id = ?`, r.ID); err != nil {
		return fmt.Errorf("clearing items of run %s: %w", r.ID, err)
	}
	for _, it := range r.Items {
		if _, err := tx.Exec(`
			INSERT INTO run_items (run_id, rank, item_id, contributor_count, action_count)
			VALUES (?, ?, ?, ?, ?)`,
			r.ID, it.Rank, it.ItemID, it.ContributorCount, it.ActionCount,
		); err != nil {
			return fmt.Errorf("inserting item %s of run %s: %w", it.ItemID, r.ID, err)
		}
	}

	return tx.Commit()
}

const runColumns = `id, started_at, finished_at, status, dry_run, revision_count, candidate_count,
	image_item, image_file, wikitext, error`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var r Run
	var startedAt string
	var finishedAt sql.NullString
	if err := row.Scan(&r.ID, &startedAt, &finishedAt, &r.Status, &r.DryRun, &r.RevisionCount, &r.CandidateCount,
		&r.ImageItem, &r.ImageFile, &r.Wikitext, &r.Error); err != nil {
		return Run{}, err
	}
	t, err := time.Parse(time.RFC3339, startedAt)
	if err != nil {
		return Run{}, fmt.Errorf("parsing started_at for run %s: %w", r.ID, err)
	}
	r.StartedAt = t
	if finishedAt.Valid {
		if r.FinishedAt, err = time.Parse(time.RFC3339, finishedAt.String); err != nil {
			return Run{}, fmt.Errorf("parsing finished_at for run %s: %w", r.ID, err)
		}
	}
	return r, nil
}

// GetRun returns a run with its selected items.
func (s *Store) GetRun(id string) (Run, error) {
	r, err := scanRun(s.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return Run{}, ErrNotFound
	}
	if err != nil {
		return Run{}, err
	}
	if r.Items, err = s.RunItems(id); err != nil {
		return Run{}, err
	}
	return r, nil
}

// LatestRun returns the most recently started run with its items.
func (s *Store) LatestRun() (Run, error) {
	var id string
	err := s.db.QueryRow(`SELECT id FROM runs ORDER BY started_at DESC, rowid DESC LIMIT 1`).Scan(&id)
	if err == sql.ErrNoRows {
		return Run{}, ErrNotFound
	}
	if err != nil {
		return Run{}, err
	}
	return s.GetRun(id)
}

// ListRuns returns the most recent runs, newest first, without their items.
func (s *Store) ListRuns(limit int) ([]Run, error) {
	rows, err := s.db.Query(`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// RunItems returns the selected items of a run in rank order.
func (s *Store) RunItems(runID string) ([]RunItem, error) {
	rows, err := s.db.Query(`
		SELECT rank, item_id, contributor_count, action_count
		FROM run_items WHERE run_id = ? ORDER BY rank ASC`, runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []RunItem
	for rows.Next() {
		var it RunItem
		if err := rows.Scan(&it.Rank, &it.ItemID, &it.ContributorCount, &it.ActionCount); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}
