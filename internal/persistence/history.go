package persistence

import (
	"github.com/talgya/chitwan-abm/internal/engine"
	"github.com/talgya/chitwan-abm/internal/errors"
)

// SaveEvents appends events to the run's event log.
func (db *DB) SaveEvents(runID string, events []engine.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Preparex(`INSERT INTO events
		(run_id, timestep, category, person_id, other_id, household_id, description)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range events {
		if _, err := stmt.Exec(runID, e.Timestep, e.Category,
			int64(e.PersonID), int64(e.OtherID), int64(e.HouseholdID), e.Description); err != nil {
			return errors.Wrapf(err, "insert %s event at timestep %d", e.Category, e.Timestep)
		}
	}

	return tx.Commit()
}

// RecentEvents returns the most recent N events of a run, newest first.
func (db *DB) RecentEvents(runID string, limit int) ([]engine.Event, error) {
	var events []engine.Event
	err := db.conn.Select(&events,
		`SELECT timestep, category, person_id, other_id, household_id, description
		 FROM events WHERE run_id = ? ORDER BY id DESC LIMIT ?`,
		runID, limit,
	)
	return events, err
}

// SaveCensus records the summary of one timestep. Saving the same timestep
// twice replaces the earlier row.
func (db *DB) SaveCensus(runID string, s engine.StepStats) error {
	_, err := db.conn.Exec(`INSERT OR REPLACE INTO census
		(run_id, timestep, population, households, births, deaths, marriages, unmatched_marriages, households_removed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, s.Timestep, s.Population, s.Households, s.Births, s.Deaths,
		s.Marriages, s.UnmatchedMarriages, s.HouseholdsRemoved,
	)
	if err != nil {
		return errors.Wrapf(err, "insert census for timestep %d", s.Timestep)
	}
	return nil
}

// CensusHistory returns a run's census rows in timestep order.
func (db *DB) CensusHistory(runID string) ([]engine.StepStats, error) {
	var rows []engine.StepStats
	err := db.conn.Select(&rows,
		`SELECT timestep, population, households, births, deaths, marriages, unmatched_marriages, households_removed
		 FROM census WHERE run_id = ? ORDER BY timestep`,
		runID,
	)
	return rows, err
}

// AgeBand counts the living persons of one sex in an age range.
type AgeBand struct {
	MinAge int `json:"min_age" db:"min_age"`
	MaxAge int `json:"max_age" db:"max_age"`
	Sex    int `json:"sex" db:"sex"`
	Count  int `json:"count" db:"count"`
}

// AgeStructure returns the saved living population of a run grouped into
// age bands of the given width and by sex.
func (db *DB) AgeStructure(runID string, width int) ([]AgeBand, error) {
	if width <= 0 {
		return nil, errors.Newf("age band width must be > 0, got %d", width)
	}
	var bands []AgeBand
	err := db.conn.Select(&bands,
		`SELECT (age / ?) * ? AS min_age, (age / ?) * ? + ? - 1 AS max_age, sex, COUNT(*) AS count
		 FROM persons WHERE run_id = ? AND death_timestep IS NULL
		 GROUP BY age / ?, sex ORDER BY min_age, sex`,
		width, width, width, width, width, runID, width,
	)
	return bands, err
}
