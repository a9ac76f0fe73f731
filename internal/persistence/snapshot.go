package persistence

import (
	"encoding/json"
	"log/slog"

	"golang.org/x/exp/constraints"

	"github.com/talgya/chitwan-abm/internal/agents"
	"github.com/talgya/chitwan-abm/internal/engine"
	"github.com/talgya/chitwan-abm/internal/entropy"
	"github.com/talgya/chitwan-abm/internal/errors"
	"github.com/talgya/chitwan-abm/internal/ids"
	"github.com/talgya/chitwan-abm/internal/landuse"
)

type regionRow struct {
	RunID        string `db:"run_id"`
	ID           int64  `db:"id"`
	Initial      bool   `db:"initial"`
	NextTimestep int    `db:"next_timestep"`
}

type neighborhoodRow struct {
	RunID                     string  `db:"run_id"`
	ID                        int64   `db:"id"`
	Initial                   bool    `db:"initial"`
	AvgYearsNonfamilyServices float64 `db:"avg_years_nonfamily_services"`
	ElecAvailable             bool    `db:"elec_available"`
	Agricultural              float64 `db:"lu_agricultural"`
	NonAgricultural           float64 `db:"lu_non_agricultural"`
	Private                   float64 `db:"lu_private"`
	Public                    float64 `db:"lu_public"`
	Other                     float64 `db:"lu_other"`
}

type householdRow struct {
	RunID          string `db:"run_id"`
	ID             int64  `db:"id"`
	NeighborhoodID int64  `db:"neighborhood_id"`
	Initial        bool   `db:"initial"`
	NonWoodFuel    bool   `db:"non_wood_fuel"`
	OwnHousePlot   bool   `db:"own_house_plot"`
	OwnAnyLand     bool   `db:"own_any_land"`
	RentedOutLand  bool   `db:"rented_out_land"`
}

type personRow struct {
	RunID         string `db:"run_id"`
	ID            int64  `db:"id"`
	HouseholdID   int64  `db:"household_id"` // 0 for the deceased
	Initial       bool   `db:"initial"`
	BirthTimestep int    `db:"birth_timestep"`
	DeathTimestep *int   `db:"death_timestep"`
	Age           int    `db:"age"`
	Sex           int    `db:"sex"`
	MotherID      int64  `db:"mother_id"`
	FatherID      int64  `db:"father_id"`
	SpouseID      int64  `db:"spouse_id"`
	ChildrenJSON  string `db:"children_json"`
}

type idMarkRow struct {
	RunID string `db:"run_id"`
	Class string `db:"class_name"`
	Last  int64  `db:"last_id"`
}

func newPersonRow(runID string, p *agents.Person) (personRow, error) {
	children := p.Children
	if children == nil {
		children = []agents.PersonID{}
	}
	childrenJSON, err := json.Marshal(children)
	if err != nil {
		return personRow{}, errors.Wrapf(err, "encode children of person %d", p.ID())
	}
	return personRow{
		RunID:         runID,
		ID:            int64(p.ID()),
		HouseholdID:   int64(p.HouseholdID()),
		Initial:       p.Initial(),
		BirthTimestep: p.BirthTimestep,
		DeathTimestep: p.DeathTimestep,
		Age:           p.Age,
		Sex:           int(p.Sex),
		MotherID:      int64(p.MotherID),
		FatherID:      int64(p.FatherID),
		SpouseID:      int64(p.SpouseID),
		ChildrenJSON:  string(childrenJSON),
	}, nil
}

// SaveRegion writes the full agent hierarchy of a run (full replace), along
// with the identifier high-water marks and the timestep to resume from.
func (db *DB) SaveRegion(runID string, r *engine.Region, nextTimestep int) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"regions", "neighborhoods", "households", "persons", "id_marks"} {
		if _, err := tx.Exec("DELETE FROM "+table+" WHERE run_id = ?", runID); err != nil {
			return errors.Wrapf(err, "clear %s", table)
		}
	}

	if _, err := tx.NamedExec(`INSERT INTO regions (run_id, id, initial, next_timestep)
		VALUES (:run_id, :id, :initial, :next_timestep)`,
		regionRow{RunID: runID, ID: int64(r.ID()), Initial: r.Initial(), NextTimestep: nextTimestep}); err != nil {
		return errors.Wrap(err, "insert region")
	}

	nStmt, err := tx.PrepareNamed(`INSERT INTO neighborhoods
		(run_id, id, initial, avg_years_nonfamily_services, elec_available,
		 lu_agricultural, lu_non_agricultural, lu_private, lu_public, lu_other)
		VALUES (:run_id, :id, :initial, :avg_years_nonfamily_services, :elec_available,
		 :lu_agricultural, :lu_non_agricultural, :lu_private, :lu_public, :lu_other)`)
	if err != nil {
		return err
	}
	defer nStmt.Close()

	hStmt, err := tx.PrepareNamed(`INSERT INTO households
		(run_id, id, neighborhood_id, initial, non_wood_fuel, own_house_plot, own_any_land, rented_out_land)
		VALUES (:run_id, :id, :neighborhood_id, :initial, :non_wood_fuel, :own_house_plot, :own_any_land, :rented_out_land)`)
	if err != nil {
		return err
	}
	defer hStmt.Close()

	pStmt, err := tx.PrepareNamed(`INSERT INTO persons
		(run_id, id, household_id, initial, birth_timestep, death_timestep, age, sex,
		 mother_id, father_id, spouse_id, children_json)
		VALUES (:run_id, :id, :household_id, :initial, :birth_timestep, :death_timestep, :age, :sex,
		 :mother_id, :father_id, :spouse_id, :children_json)`)
	if err != nil {
		return err
	}
	defer pStmt.Close()

	savePerson := func(p *agents.Person) error {
		row, err := newPersonRow(runID, p)
		if err != nil {
			return err
		}
		if _, err := pStmt.Exec(row); err != nil {
			return errors.Wrapf(err, "insert person %d", p.ID())
		}
		return nil
	}

	for _, n := range r.Neighborhoods() {
		_, err := nStmt.Exec(neighborhoodRow{
			RunID:                     runID,
			ID:                        int64(n.ID()),
			Initial:                   n.Initial(),
			AvgYearsNonfamilyServices: n.AvgYearsNonfamilyServices,
			ElecAvailable:             n.ElecAvailable,
			Agricultural:              n.LandUse.Agricultural,
			NonAgricultural:           n.LandUse.NonAgricultural,
			Private:                   n.LandUse.Private,
			Public:                    n.LandUse.Public,
			Other:                     n.LandUse.Other,
		})
		if err != nil {
			return errors.Wrapf(err, "insert neighborhood %d", n.ID())
		}

		for _, h := range n.Households() {
			_, err := hStmt.Exec(householdRow{
				RunID:          runID,
				ID:             int64(h.ID()),
				NeighborhoodID: int64(n.ID()),
				Initial:        h.Initial(),
				NonWoodFuel:    h.NonWoodFuel,
				OwnHousePlot:   h.OwnHousePlot,
				OwnAnyLand:     h.OwnAnyLand,
				RentedOutLand:  h.RentedOutLand,
			})
			if err != nil {
				return errors.Wrapf(err, "insert household %d", h.ID())
			}
			for _, p := range h.Persons() {
				if err := savePerson(p); err != nil {
					return err
				}
			}
		}
	}
	for _, p := range r.DeceasedPersons() {
		if err := savePerson(p); err != nil {
			return err
		}
	}

	idn := r.Identities()
	for _, mark := range []idMarkRow{
		{runID, idn.Persons.Name(), int64(idn.Persons.Last())},
		{runID, idn.Households.Name(), int64(idn.Households.Last())},
		{runID, idn.Neighborhoods.Name(), int64(idn.Neighborhoods.Last())},
		{runID, idn.Regions.Name(), int64(idn.Regions.Last())},
	} {
		if _, err := tx.NamedExec(`INSERT INTO id_marks (run_id, class_name, last_id)
			VALUES (:run_id, :class_name, :last_id)`, mark); err != nil {
			return errors.Wrapf(err, "insert %s id mark", mark.Class)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	slog.Info("region saved", "run", runID, "region", r.ID(), "population", r.Census(),
		"deceased", len(r.DeceasedPersons()), "next_timestep", nextTimestep)
	return nil
}

// LoadRegion rebuilds a saved region under fresh identifier generators.
// Every restored identifier is reserved in ascending order, then the saved
// high-water marks are applied so identifiers of agents removed before the
// save are not issued again. opts supplies hazards, policy and land-use
// model; its ID and Initial fields are replaced by the saved values.
// The returned int is the timestep to resume from.
func (db *DB) LoadRegion(runID string, rng entropy.Stream, opts engine.RegionOptions) (*engine.Region, int, error) {
	var reg regionRow
	if err := db.conn.Get(&reg, "SELECT run_id, id, initial, next_timestep FROM regions WHERE run_id = ?", runID); err != nil {
		return nil, 0, errors.Wrapf(err, "load region of run %s", runID)
	}

	var nRows []neighborhoodRow
	if err := db.conn.Select(&nRows, "SELECT * FROM neighborhoods WHERE run_id = ? ORDER BY id", runID); err != nil {
		return nil, 0, errors.Wrap(err, "load neighborhoods")
	}
	var hRows []householdRow
	if err := db.conn.Select(&hRows, "SELECT * FROM households WHERE run_id = ? ORDER BY id", runID); err != nil {
		return nil, 0, errors.Wrap(err, "load households")
	}
	var pRows []personRow
	if err := db.conn.Select(&pRows, "SELECT * FROM persons WHERE run_id = ? ORDER BY id", runID); err != nil {
		return nil, 0, errors.Wrap(err, "load persons")
	}
	var marks []idMarkRow
	if err := db.conn.Select(&marks, "SELECT * FROM id_marks WHERE run_id = ?", runID); err != nil {
		return nil, 0, errors.Wrap(err, "load id marks")
	}

	idn := agents.NewIdentities()
	opts.ID = agents.RegionID(reg.ID)
	opts.Initial = reg.Initial
	r, err := engine.NewRegion(idn, rng, opts)
	if err != nil {
		return nil, 0, err
	}

	neighborhoods := make(map[int64]*agents.Neighborhood, len(nRows))
	var order []*agents.Neighborhood
	for _, row := range nRows {
		n, err := agents.NewNeighborhood(idn.Neighborhoods, agents.NeighborhoodID(row.ID), row.Initial, agents.NeighborhoodAttributes{
			AvgYearsNonfamilyServices: row.AvgYearsNonfamilyServices,
			ElecAvailable:             row.ElecAvailable,
		})
		if err != nil {
			return nil, 0, err
		}
		n.LandUse = landuse.Proportions{
			Agricultural:    row.Agricultural,
			NonAgricultural: row.NonAgricultural,
			Private:         row.Private,
			Public:          row.Public,
			Other:           row.Other,
		}
		neighborhoods[row.ID] = n
		order = append(order, n)
	}

	households := make(map[int64]*agents.Household, len(hRows))
	for _, row := range hRows {
		h, err := agents.NewHousehold(idn.Households, agents.HouseholdID(row.ID), row.Initial, agents.HouseholdAttributes{
			NonWoodFuel:   row.NonWoodFuel,
			OwnHousePlot:  row.OwnHousePlot,
			OwnAnyLand:    row.OwnAnyLand,
			RentedOutLand: row.RentedOutLand,
		})
		if err != nil {
			return nil, 0, err
		}
		n, ok := neighborhoods[row.NeighborhoodID]
		if !ok {
			return nil, 0, errors.Wrapf(errors.ErrMemberNotFound, "neighborhood %d of household %d", row.NeighborhoodID, row.ID)
		}
		if err := n.Add(h); err != nil {
			return nil, 0, err
		}
		households[row.ID] = h
	}

	var deceased []*agents.Person
	for _, row := range pRows {
		p, err := agents.NewPerson(idn.Persons, rng, agents.PersonSpec{
			ID:            agents.PersonID(row.ID),
			BirthTimestep: row.BirthTimestep,
			Age:           row.Age,
			Sex:           agents.Sex(row.Sex),
			MotherID:      agents.PersonID(row.MotherID),
			FatherID:      agents.PersonID(row.FatherID),
			Initial:       row.Initial,
		})
		if err != nil {
			return nil, 0, err
		}
		p.SpouseID = agents.PersonID(row.SpouseID)
		p.DeathTimestep = row.DeathTimestep
		if err := json.Unmarshal([]byte(row.ChildrenJSON), &p.Children); err != nil {
			return nil, 0, errors.Wrapf(err, "decode children of person %d", row.ID)
		}

		if !p.IsAlive() {
			deceased = append(deceased, p)
			continue
		}
		h, ok := households[row.HouseholdID]
		if !ok {
			return nil, 0, errors.Wrapf(errors.ErrMemberNotFound, "household %d of person %d", row.HouseholdID, row.ID)
		}
		if err := h.Add(p); err != nil {
			return nil, 0, err
		}
	}

	for _, n := range order {
		if err := r.AddNeighborhood(n); err != nil {
			return nil, 0, err
		}
	}
	for _, p := range deceased {
		if err := r.RestoreDeceased(p); err != nil {
			return nil, 0, err
		}
	}

	for _, m := range marks {
		switch m.Class {
		case idn.Persons.Name():
			err = reserve(idn.Persons, agents.PersonID(m.Last))
		case idn.Households.Name():
			err = reserve(idn.Households, agents.HouseholdID(m.Last))
		case idn.Neighborhoods.Name():
			err = reserve(idn.Neighborhoods, agents.NeighborhoodID(m.Last))
		case idn.Regions.Name():
			err = reserve(idn.Regions, agents.RegionID(m.Last))
		default:
			slog.Warn("unknown id mark class", "run", runID, "class", m.Class)
		}
		if err != nil {
			return nil, 0, err
		}
	}

	slog.Info("region loaded", "run", runID, "region", r.ID(), "population", r.Census(),
		"deceased", len(deceased), "next_timestep", reg.NextTimestep)
	return r, reg.NextTimestep, nil
}

// reserve advances gen to last when last is beyond what has been issued.
func reserve[K constraints.Integer](gen *ids.Generator[K], last K) error {
	if last <= gen.Last() {
		return nil
	}
	return gen.Use(last)
}
