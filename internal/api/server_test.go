package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/chitwan-abm/internal/agents"
	"github.com/talgya/chitwan-abm/internal/engine"
	"github.com/talgya/chitwan-abm/internal/entropy"
	"github.com/talgya/chitwan-abm/internal/persistence"
)

type fixture struct {
	db  *persistence.DB
	run persistence.Run
	srv *httptest.Server
}

func newFixture(t *testing.T, ratePerMin int) *fixture {
	t.Helper()
	db, err := persistence.Open(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	run, err := db.BeginRun(3, "[run]\nseed = 3\n")
	require.NoError(t, err)

	idn := agents.NewIdentities()
	rng := entropy.NewSource(3)
	n, err := agents.NewNeighborhood(idn.Neighborhoods, 0, true, agents.NeighborhoodAttributes{})
	require.NoError(t, err)
	h, err := agents.NewHousehold(idn.Households, 0, true, agents.HouseholdAttributes{})
	require.NoError(t, err)
	require.NoError(t, n.Add(h))
	for _, spec := range []agents.PersonSpec{
		{Age: 31, Sex: agents.SexFemale},
		{Age: 34, Sex: agents.SexMale},
		{Age: 3, Sex: agents.SexMale},
	} {
		p, err := agents.NewPerson(idn.Persons, rng, spec)
		require.NoError(t, err)
		require.NoError(t, h.Add(p))
	}

	rates := make(map[int]float64)
	for age := 0; age <= 120; age++ {
		rates[age] = 0
	}
	tbl := func(name string) *engine.HazardTable {
		ht, err := engine.NewHazardTable(name, rates)
		require.NoError(t, err)
		return ht
	}
	r, err := engine.NewRegion(idn, rng, engine.RegionOptions{
		Hazards: engine.Hazards{Birth: tbl("birth"), Death: tbl("death"), Marriage: tbl("marriage")},
	})
	require.NoError(t, err)
	require.NoError(t, r.AddNeighborhood(n))

	rn := engine.NewRunner(r)
	rn.OnStep = func(r *engine.Region, _ int) error {
		return db.SaveCensus(run.ID, r.Stats())
	}
	require.NoError(t, rn.Run(3))
	require.NoError(t, db.SaveEvents(run.ID, []engine.Event{
		{Timestep: 1, Category: engine.CategoryBirth, PersonID: 1, OtherID: 3, Description: "person 3 born"},
	}))
	require.NoError(t, db.SaveRegion(run.ID, r, rn.Next))

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	s := &Server{DB: db, RatePerMin: ratePerMin, AllowOrigins: []string{"http://localhost:5173"}}
	srv := httptest.NewServer(s.Handler(ctx))
	t.Cleanup(srv.Close)

	return &fixture{db: db, run: run, srv: srv}
}

func getJSON(t *testing.T, url string, into any) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if into != nil && resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(into))
	}
	return resp
}

func TestRunsEndpoints(t *testing.T) {
	f := newFixture(t, 0)

	var runs []runSummary
	resp := getJSON(t, f.srv.URL+"/api/v1/runs", &runs)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, runs, 1)
	assert.Equal(t, f.run.ID, runs[0].ID)

	var latest map[string]any
	getJSON(t, f.srv.URL+"/api/v1/runs/latest", &latest)
	assert.Equal(t, f.run.ID, latest["id"])
	assert.Contains(t, latest["config"], "seed = 3")

	resp = getJSON(t, f.srv.URL+"/api/v1/runs/nope", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCensusEndpoint(t *testing.T) {
	f := newFixture(t, 0)

	var rows []engine.StepStats
	getJSON(t, f.srv.URL+"/api/v1/runs/"+f.run.ID+"/census", &rows)
	require.Len(t, rows, 3)
	assert.Equal(t, 3, rows[0].Population)

	getJSON(t, f.srv.URL+"/api/v1/runs/"+f.run.ID+"/census?from=1&to=1", &rows)
	require.Len(t, rows, 1)
	assert.Equal(t, 1, rows[0].Timestep)
}

func TestEventsEndpoint(t *testing.T) {
	f := newFixture(t, 0)

	var events []engine.Event
	getJSON(t, f.srv.URL+"/api/v1/runs/"+f.run.ID+"/events?limit=10", &events)
	require.Len(t, events, 1)
	assert.Equal(t, engine.CategoryBirth, events[0].Category)
	assert.Equal(t, agents.PersonID(3), events[0].OtherID)
}

func TestPyramidEndpoint(t *testing.T) {
	f := newFixture(t, 0)

	// Ages after three timesteps: 34, 37 and 6.
	var bands []persistence.AgeBand
	getJSON(t, f.srv.URL+"/api/v1/runs/"+f.run.ID+"/pyramid?width=10", &bands)
	assert.Equal(t, []persistence.AgeBand{
		{MinAge: 0, MaxAge: 9, Sex: int(agents.SexMale), Count: 1},
		{MinAge: 30, MaxAge: 39, Sex: int(agents.SexFemale), Count: 1},
		{MinAge: 30, MaxAge: 39, Sex: int(agents.SexMale), Count: 1},
	}, bands)

	resp := getJSON(t, f.srv.URL+"/api/v1/runs/"+f.run.ID+"/pyramid?width=0", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCORS(t *testing.T) {
	f := newFixture(t, 0)

	req, err := http.NewRequest(http.MethodOptions, f.srv.URL+"/api/v1/runs", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:5173")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "http://localhost:5173", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestRateLimit(t *testing.T) {
	f := newFixture(t, 2)

	for i := 0; i < 2; i++ {
		resp := getJSON(t, f.srv.URL+"/api/v1/runs", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	}
	resp := getJSON(t, f.srv.URL+"/api/v1/runs", nil)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.7:5123"
	assert.Equal(t, "10.0.0.7", clientIP(r))

	r.Header.Set("X-Forwarded-For", "192.168.1.2, 10.0.0.1")
	assert.Equal(t, "192.168.1.2", clientIP(r))
}
