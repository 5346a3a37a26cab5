// Package store is the run ledger: a SQLite database recording every run and
// the fiber count of each of its rows, so a report can be rendered again
// without calling the tools.
package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"github.com/askiada/tractfilter/internal/store/migrations"
)

var (
	ErrPathRequired = errors.New("store path is required")
	ErrRunNotFound  = errors.New("run not found")
)

// Run statuses.
const (
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusPartial   = "partial"
	StatusFailed    = "failed"
)

// Run is one invocation of the pipeline on a directory.
type Run struct {
	ID       string
	Dir      string
	Title    string
	Label    string
	Status   string
	DryRun   bool
	Started  time.Time
	Finished time.Time
	Results  []Result
	Timings  []Timing
}

// Result is one row of a run. Count is nil when the fiber count is unknown.
type Result struct {
	Position  int
	Tract     string
	Variant   string
	File      string
	Endpoints string
	Count     *int
	Error     string
}

// Timing is the time spent in one pipeline step.
type Timing struct {
	Step    string
	Items   int64
	Average time.Duration
	Total   time.Duration
}

// Store is a SQLite backed ledger.
type Store struct {
	sqlDB *sql.DB
}

// Open opens the database at path, creating it when needed, and applies the
// pending migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, ErrPathRequired
	}

	dsn := filepath.Clean(path) + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "unable to open sqlite db")
	}

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()

		return nil, errors.Wrap(err, "unable to ping sqlite db")
	}

	store := &Store{sqlDB: sqlDB}
	if err := store.migrate(); err != nil {
		_ = sqlDB.Close()

		return nil, errors.Wrap(err, "unable to run migrations")
	}

	return store, nil
}

func (s *Store) migrate() error {
	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return errors.Wrap(err, "unable to read embedded migrations")
	}

	driver, err := sqlite.WithInstance(s.sqlDB, &sqlite.Config{})
	if err != nil {
		return errors.Wrap(err, "unable to create sqlite driver")
	}

	// The migrate instance is not closed: closing it would close sqlDB.
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return errors.Wrap(err, "unable to create migrate instance")
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return errors.Wrap(err, "migration up failed")
	}

	return nil
}

// Close releases the database.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}

	return s.sqlDB.Close()
}

// CreateRun records the start of a run.
func (s *Store) CreateRun(ctx context.Context, run Run) error {
	status := run.Status
	if status == "" {
		status = StatusRunning
	}

	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO runs (id, dir, title, label, status, dry_run, started_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Dir, run.Title, run.Label, status, boolToInt(run.DryRun), toMillis(run.Started),
	)
	if err != nil {
		return errors.Wrapf(err, "unable to create run %s", run.ID)
	}

	return nil
}

// AddResult records one row of a run. Recording the same position twice
// replaces the previous row.
func (s *Store) AddResult(ctx context.Context, runID string, res Result) error {
	var count sql.NullInt64
	if res.Count != nil {
		count = sql.NullInt64{Int64: int64(*res.Count), Valid: true}
	}

	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO results (run_id, position, tract, variant, file, endpoints, fiber_count, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (run_id, position) DO UPDATE SET
		   tract = excluded.tract,
		   variant = excluded.variant,
		   file = excluded.file,
		   endpoints = excluded.endpoints,
		   fiber_count = excluded.fiber_count,
		   error = excluded.error`,
		runID, res.Position, res.Tract, res.Variant, res.File, res.Endpoints, count, res.Error,
	)
	if err != nil {
		return errors.Wrapf(err, "unable to add result %d of run %s", res.Position, runID)
	}

	return nil
}

// AddTimings records the step timings of a run in a single transaction.
func (s *Store) AddTimings(ctx context.Context, runID string, timings []Timing) error {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "unable to begin transaction")
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	for _, timing := range timings {
		_, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO timings (run_id, step, items, average_ns, total_ns) VALUES (?, ?, ?, ?, ?)`,
			runID, timing.Step, timing.Items, int64(timing.Average), int64(timing.Total),
		)
		if err != nil {
			return errors.Wrapf(err, "unable to add timing of step %s", timing.Step)
		}
	}

	return errors.Wrap(tx.Commit(), "unable to commit timings")
}

// FinishRun records the end of a run.
func (s *Store) FinishRun(ctx context.Context, runID string, finished time.Time, status string) error {
	res, err := s.sqlDB.ExecContext(ctx,
		`UPDATE runs SET status = ?, finished_at = ? WHERE id = ?`,
		status, toMillis(finished), runID,
	)
	if err != nil {
		return errors.Wrapf(err, "unable to finish run %s", runID)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "unable to count updated runs")
	}

	if affected == 0 {
		return errors.Wrap(ErrRunNotFound, runID)
	}

	return nil
}

const runColumns = `id, dir, title, label, status, dry_run, started_at, finished_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var (
		run      Run
		dryRun   int64
		started  int64
		finished sql.NullInt64
	)

	if err := row.Scan(&run.ID, &run.Dir, &run.Title, &run.Label, &run.Status, &dryRun, &started, &finished); err != nil {
		return nil, err
	}

	run.DryRun = dryRun != 0
	run.Started = fromMillis(started)

	if finished.Valid {
		run.Finished = fromMillis(finished.Int64)
	}

	return &run, nil
}

// ListRuns returns the most recent runs first, without their rows. A limit
// lower than 1 returns every run.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC, id`
	args := []any{}

	if limit > 0 {
		query += ` LIMIT ?`

		args = append(args, limit)
	}

	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "unable to list runs")
	}
	defer rows.Close()

	runs := []Run{}

	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, errors.Wrap(err, "unable to scan run")
		}

		runs = append(runs, *run)
	}

	return runs, errors.Wrap(rows.Err(), "unable to iterate runs")
}

// LoadRun returns a run with its rows in position order and its timings.
func (s *Store) LoadRun(ctx context.Context, runID string) (*Run, error) {
	run, err := scanRun(s.sqlDB.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, runID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrap(ErrRunNotFound, runID)
	}

	if err != nil {
		return nil, errors.Wrapf(err, "unable to load run %s", runID)
	}

	run.Results, err = s.results(ctx, runID)
	if err != nil {
		return nil, err
	}

	run.Timings, err = s.timings(ctx, runID)
	if err != nil {
		return nil, err
	}

	return run, nil
}

func (s *Store) results(ctx context.Context, runID string) ([]Result, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT position, tract, variant, file, endpoints, fiber_count, error
		 FROM results WHERE run_id = ? ORDER BY position`,
		runID,
	)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to load results of run %s", runID)
	}
	defer rows.Close()

	results := []Result{}

	for rows.Next() {
		var (
			res   Result
			count sql.NullInt64
		)

		if err := rows.Scan(&res.Position, &res.Tract, &res.Variant, &res.File, &res.Endpoints, &count, &res.Error); err != nil {
			return nil, errors.Wrap(err, "unable to scan result")
		}

		if count.Valid {
			n := int(count.Int64)
			res.Count = &n
		}

		results = append(results, res)
	}

	return results, errors.Wrap(rows.Err(), "unable to iterate results")
}

func (s *Store) timings(ctx context.Context, runID string) ([]Timing, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT step, items, average_ns, total_ns FROM timings WHERE run_id = ? ORDER BY step`,
		runID,
	)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to load timings of run %s", runID)
	}
	defer rows.Close()

	timings := []Timing{}

	for rows.Next() {
		var (
			timing         Timing
			average, total int64
		)

		if err := rows.Scan(&timing.Step, &timing.Items, &average, &total); err != nil {
			return nil, errors.Wrap(err, "unable to scan timing")
		}

		timing.Average = time.Duration(average)
		timing.Total = time.Duration(total)
		timings = append(timings, timing)
	}

	return timings, errors.Wrap(rows.Err(), "unable to iterate timings")
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}

	return 0
}
