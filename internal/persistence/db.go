// Package persistence provides SQLite storage for simulation runs: the
// agent hierarchy at the end of a run, per-timestep census rows, and the
// demographic event log.
package persistence

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/chitwan-abm/internal/errors"
)

// MetaLatestRun is the world_meta key holding the most recent run ID.
const MetaLatestRun = "latest_run"

// DB wraps a SQLite connection for simulation state.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, errors.Wrap(err, "open db")
	}
	// SQLite allows a single writer.
	conn.SetMaxOpenConns(1)

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "migrate")
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		seed INTEGER NOT NULL,
		started_at TEXT NOT NULL,
		config TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS regions (
		run_id TEXT PRIMARY KEY,
		id INTEGER NOT NULL,
		initial INTEGER NOT NULL,
		next_timestep INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS neighborhoods (
		run_id TEXT NOT NULL,
		id INTEGER NOT NULL,
		initial INTEGER NOT NULL,
		avg_years_nonfamily_services REAL NOT NULL,
		elec_available INTEGER NOT NULL,
		lu_agricultural REAL NOT NULL,
		lu_non_agricultural REAL NOT NULL,
		lu_private REAL NOT NULL,
		lu_public REAL NOT NULL,
		lu_other REAL NOT NULL,
		PRIMARY KEY (run_id, id)
	);

	CREATE TABLE IF NOT EXISTS households (
		run_id TEXT NOT NULL,
		id INTEGER NOT NULL,
		neighborhood_id INTEGER NOT NULL,
		initial INTEGER NOT NULL,
		non_wood_fuel INTEGER NOT NULL,
		own_house_plot INTEGER NOT NULL,
		own_any_land INTEGER NOT NULL,
		rented_out_land INTEGER NOT NULL,
		PRIMARY KEY (run_id, id)
	);

	CREATE TABLE IF NOT EXISTS persons (
		run_id TEXT NOT NULL,
		id INTEGER NOT NULL,
		household_id INTEGER NOT NULL,
		initial INTEGER NOT NULL,
		birth_timestep INTEGER NOT NULL,
		death_timestep INTEGER,
		age INTEGER NOT NULL,
		sex INTEGER NOT NULL,
		mother_id INTEGER NOT NULL,
		father_id INTEGER NOT NULL,
		spouse_id INTEGER NOT NULL,
		children_json TEXT NOT NULL,
		PRIMARY KEY (run_id, id)
	);

	CREATE TABLE IF NOT EXISTS id_marks (
		run_id TEXT NOT NULL,
		class_name TEXT NOT NULL,
		last_id INTEGER NOT NULL,
		PRIMARY KEY (run_id, class_name)
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		timestep INTEGER NOT NULL,
		category TEXT NOT NULL,
		person_id INTEGER NOT NULL,
		other_id INTEGER NOT NULL,
		household_id INTEGER NOT NULL,
		description TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS census (
		run_id TEXT NOT NULL,
		timestep INTEGER NOT NULL,
		population INTEGER NOT NULL,
		households INTEGER NOT NULL,
		births INTEGER NOT NULL,
		deaths INTEGER NOT NULL,
		marriages INTEGER NOT NULL,
		unmatched_marriages INTEGER NOT NULL,
		households_removed INTEGER NOT NULL,
		PRIMARY KEY (run_id, timestep)
	);

	CREATE TABLE IF NOT EXISTS world_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_run_timestep ON events(run_id, timestep);
	CREATE INDEX IF NOT EXISTS idx_persons_household ON persons(run_id, household_id);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// Run describes one simulation run.
type Run struct {
	ID        string `db:"id"`
	Seed      int64  `db:"seed"`
	StartedAt string `db:"started_at"`
	Config    string `db:"config"` // effective configuration as TOML
}

// BeginRun registers a new run and marks it as the latest.
func (db *DB) BeginRun(seed int64, config string) (Run, error) {
	run := Run{
		ID:        uuid.NewString(),
		Seed:      seed,
		StartedAt: time.Now().UTC().Format(time.RFC3339),
		Config:    config,
	}
	_, err := db.conn.NamedExec(
		"INSERT INTO runs (id, seed, started_at, config) VALUES (:id, :seed, :started_at, :config)", run)
	if err != nil {
		return Run{}, errors.Wrap(err, "insert run")
	}
	if err := db.SaveMeta(MetaLatestRun, run.ID); err != nil {
		return Run{}, errors.Wrap(err, "save meta")
	}
	slog.Info("run registered", "run", run.ID, "seed", seed)
	return run, nil
}

// GetRun returns the run with the given ID.
func (db *DB) GetRun(id string) (Run, error) {
	var run Run
	if err := db.conn.Get(&run, "SELECT id, seed, started_at, config FROM runs WHERE id = ?", id); err != nil {
		return Run{}, errors.Wrapf(err, "run %s", id)
	}
	return run, nil
}

// Runs lists every run, oldest first.
func (db *DB) Runs() ([]Run, error) {
	var runs []Run
	err := db.conn.Select(&runs, "SELECT id, seed, started_at, config FROM runs ORDER BY started_at, rowid")
	return runs, err
}

// LatestRun returns the ID of the most recently started run.
func (db *DB) LatestRun() (string, error) {
	return db.GetMeta(MetaLatestRun)
}

// SaveMeta stores a key-value pair in world metadata.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO world_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM world_meta WHERE key = ?", key)
	return value, err
}
