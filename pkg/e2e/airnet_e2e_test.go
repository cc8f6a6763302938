// Package e2e drives the assembled server stack over real HTTP: OpenFlights
// import, file persistence, analytics, scenarios and restart recovery.
package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-airnet/pkg/algorithms"
	"github.com/dd0wney/cluso-airnet/pkg/api"
	"github.com/dd0wney/cluso-airnet/pkg/config"
	"github.com/dd0wney/cluso-airnet/pkg/health"
	"github.com/dd0wney/cluso-airnet/pkg/metrics"
	"github.com/dd0wney/cluso-airnet/pkg/network"
	"github.com/dd0wney/cluso-airnet/pkg/persistence"
	"github.com/dd0wney/cluso-airnet/pkg/pubsub"
	"github.com/dd0wney/cluso-airnet/pkg/scenario"
)

// AAA(1) - BBB(2) - CCC(3) - DDD(4)      EEE(5) isolated
const (
	airportsDat = `1,"Alpha","Aville","Xland","AAA","KAAA",10.0,10.0,100,0,"U","Etc/UTC","airport","OurAirports"
2,"Bravo","Bville","Xland","BBB","KBBB",10.0,11.0,100,0,"U","Etc/UTC","airport","OurAirports"
3,"Charlie","Cville","Xland","CCC","KCCC",11.0,11.0,100,0,"U","Etc/UTC","airport","OurAirports"
4,"Delta","Dville","Xland","DDD","KDDD",11.0,12.0,100,0,"U","Etc/UTC","airport","OurAirports"
5,"Echo","Eville","Yland","EEE","KEEE",20.0,20.0,100,0,"U","Etc/UTC","airport","OurAirports"
6,"No Coordinates","Nville","Yland","NNN","KNNN",\N,\N,100,0,"U","Etc/UTC","airport","OurAirports"
`
	airlinesDat = `100,"Northwind",\N,"NW","NWD","NORTHWIND","Xland","Y"
200,"Southwind",\N,"SW","SWD","SOUTHWIND","Xland","Y"
`
	routesDat = `NW,100,AAA,1,BBB,2,,0,738
NW,100,BBB,2,CCC,3,,0,738
SW,200,BBB,2,CCC,3,,0,320
SW,200,CCC,3,DDD,4,,0,320
SW,200,AAA,1,AAA,1,,0,320
SW,200,AAA,1,ZZZ,99,,0,320
`
)

func writeOpenFlights(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range map[string]string{
		persistence.AirportsFile: airportsDat,
		persistence.AirlinesFile: airlinesDat,
		persistence.RoutesFile:   routesDat,
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

// stack is one running server process
type stack struct {
	ts     *httptest.Server
	srv    *api.Server
	graph  *network.Graph
	store  *persistence.FileStore
	source string
}

// startStack assembles the server the way cmd/airnet-server does, with a
// file store in dataDir and an optional OpenFlights seed directory
func startStack(t *testing.T, dataDir, importDir string) *stack {
	t.Helper()
	ctx := context.Background()
	reg := metrics.NewRegistry()
	opts := persistence.Options{Metrics: reg}

	store, err := persistence.OpenFileStore(dataDir, opts)
	require.NoError(t, err)

	events := pubsub.NewBroker(pubsub.Config{Metrics: reg})
	g := network.NewGraph(network.Config{Writer: store, Notifier: events, Metrics: reg})

	sources := []persistence.Source{{Name: config.BackendFile, Loader: store}}
	if importDir != "" {
		sources = append(sources, persistence.Source{
			Name:   "openflights",
			Loader: persistence.OpenFlightsLoader{Dir: importDir},
		})
	}
	source, err := persistence.Bootstrap(ctx, g, store, sources, nil)
	require.NoError(t, err)

	hc := health.NewHealthChecker()
	storeCheck := health.StoreCheck(config.BackendFile, store.Ping)
	hc.RegisterCheck("store", storeCheck)
	hc.RegisterReadinessCheck("store", storeCheck)

	srv, err := api.NewServer(api.Options{
		Server:   config.Default().Server,
		Graph:    g,
		Analyzer: algorithms.NewAnalyzer(g, algorithms.AnalyzerConfig{Workers: 2, Metrics: reg}),
		Scenario: scenario.NewEngine(g, scenario.Config{Rand: rand.New(rand.NewPCG(7, 7))}),
		Health:   hc,
		Events:   events,
		Metrics:  reg,
	})
	require.NoError(t, err)

	s := &stack{ts: httptest.NewServer(srv.Handler()), srv: srv, graph: g, store: store, source: source}
	t.Cleanup(s.stop)
	return s
}

// stop closes the process without a final checkpoint, so a restart has to
// replay the mutation log
func (s *stack) stop() {
	if s.ts == nil {
		return
	}
	s.ts.Close()
	_ = s.srv.Shutdown(context.Background())
	_ = s.store.Close()
	s.ts = nil
}

func (s *stack) call(t *testing.T, method, path string, body any) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, s.ts.URL+path, reader)
	require.NoError(t, err)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err, "%s %s", method, path)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func getJSON[T any](t *testing.T, s *stack, method, path string, body any, wantStatus int) T {
	t.Helper()
	status, data := s.call(t, method, path, body)
	require.Equal(t, wantStatus, status, "%s %s: %s", method, path, data)
	var v T
	require.NoError(t, json.Unmarshal(data, &v), "%s %s: %s", method, path, data)
	return v
}

func TestCompleteScenarioWorkflow(t *testing.T) {
	dataDir := t.TempDir()
	importDir := writeOpenFlights(t)

	t.Log("Step 1: first start seeds the store from OpenFlights")
	first := startStack(t, dataDir, importDir)
	require.Equal(t, "openflights", first.source)

	stats := getJSON[network.Stats](t, first, http.MethodGet, "/api/explore/stats", nil, http.StatusOK)
	assert.Equal(t, network.Stats{Airports: 5, Routes: 3, Airlines: 2}, stats)

	t.Log("Step 2: analytics over the imported network")
	path := getJSON[algorithms.Path](t, first, http.MethodGet, "/api/routes/shortest-stops/1/4", nil, http.StatusOK)
	require.True(t, path.Found)
	assert.Equal(t, 3, path.Hops)
	assert.Equal(t, []int64{1, 2, 3}, path.RouteIDs)

	hubs := getJSON[[]algorithms.RankedAirport](t, first, http.MethodGet, "/api/hubs/top?limit=2", nil, http.StatusOK)
	require.Len(t, hubs, 2)

	t.Log("Step 3: a hypothetical shortcut changes the answer")
	created := getJSON[scenario.CreatedRoute](t, first, http.MethodPost, "/api/scenario/routes/hypothetical",
		map[string]any{"fromId": 1, "toId": 4, "distance": 500}, http.StatusCreated)
	assert.Equal(t, int64(4), created.RouteID)
	assert.Equal(t, network.KindHypothetical, created.Kind)

	path = getJSON[algorithms.Path](t, first, http.MethodGet, "/api/routes/shortest-stops/1/4", nil, http.StatusOK)
	assert.Equal(t, 1, path.Hops)
	assert.Equal(t, []int64{4}, path.RouteIDs)

	t.Log("Step 4: deactivate the top hub and drop isolated airports")
	deactivated := getJSON[[]scenario.DeactivatedHub](t, first, http.MethodPut, "/api/scenario/hubs/deactivate?limit=1", nil, http.StatusOK)
	require.Len(t, deactivated, 1)
	hubID := deactivated[0].ID

	removed := getJSON[api.RemovedIDsResponse](t, first, http.MethodDelete, "/api/routes/isolated", nil, http.StatusOK)
	assert.Equal(t, []int64{5}, removed.Removed)

	want := first.graph.Export()
	first.stop()

	t.Log("Step 5: restart recovers everything from the file store")
	second := startStack(t, dataDir, importDir)
	assert.Equal(t, config.BackendFile, second.source)

	stats = getJSON[network.Stats](t, second, http.MethodGet, "/api/explore/stats", nil, http.StatusOK)
	assert.Equal(t, network.Stats{Airports: 4, InactiveAirports: 1, Routes: 4, Airlines: 2}, stats)

	got := second.graph.Export()
	assert.Equal(t, want.Airports, got.Airports)
	assert.Equal(t, want.Routes, got.Routes)
	assert.Equal(t, want.NextRouteID, got.NextRouteID)

	hub, err := second.graph.Airport(hubID)
	require.NoError(t, err)
	assert.Equal(t, network.StatusInactive, hub.Status)

	t.Log("Step 6: scenario routes can be reverted after the restart")
	status, body := second.call(t, http.MethodDelete, "/api/scenario/routes", nil)
	require.Equal(t, http.StatusOK, status, string(body))
	path = getJSON[algorithms.Path](t, second, http.MethodGet, "/api/routes/shortest-stops/1/4", nil, http.StatusOK)
	assert.Equal(t, 3, path.Hops)
}

func TestConcurrentReadsDuringScenarioEdits(t *testing.T) {
	s := startStack(t, t.TempDir(), writeOpenFlights(t))

	const readers = 8
	const edits = 10

	var wg sync.WaitGroup
	errs := make(chan error, readers*edits+edits)

	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			paths := []string{"/api/hubs/betweenness", "/api/hubs/communities", "/api/explore/airports", "/api/routes/longest-distance/1/4"}
			for j := 0; j < edits; j++ {
				p := paths[(i+j)%len(paths)]
				resp, err := http.Get(s.ts.URL + p)
				if err != nil {
					errs <- err
					continue
				}
				resp.Body.Close()
				if resp.StatusCode != http.StatusOK {
					errs <- fmt.Errorf("GET %s: status %d", p, resp.StatusCode)
				}
			}
		}(i)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for j := 0; j < edits; j++ {
			data, _ := json.Marshal(map[string]any{"fromId": 1 + j%4, "toId": 5, "distance": 100 + j})
			resp, err := http.Post(s.ts.URL+"/api/scenario/routes/hypothetical", "application/json", bytes.NewReader(data))
			if err != nil {
				errs <- err
				continue
			}
			resp.Body.Close()
			if resp.StatusCode != http.StatusCreated {
				errs <- fmt.Errorf("create route %d: status %d", j, resp.StatusCode)
			}
		}
	}()

	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}

	assert.Equal(t, 3+edits, s.graph.Stats().Routes)
}

func TestErrorHandling(t *testing.T) {
	s := startStack(t, t.TempDir(), writeOpenFlights(t))

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
	}{
		{"unknown airport", http.MethodGet, "/api/routes/airport/999", nil, http.StatusNotFound},
		{"unknown path endpoint", http.MethodGet, "/api/routes/shortest-distance/1/999", nil, http.StatusBadRequest},
		{"bad id", http.MethodGet, "/api/explore/airports/abc", nil, http.StatusBadRequest},
		{"limit out of range", http.MethodGet, "/api/hubs/top?limit=0", nil, http.StatusBadRequest},
		{"self loop", http.MethodPost, "/api/scenario/routes/hypothetical", map[string]any{"fromId": 2, "toId": 2}, http.StatusBadRequest},
		{"duplicate airport", http.MethodPost, "/api/explore/airports",
			map[string]any{"airport_id": 1, "name": "Again", "latitude": 1, "longitude": 1}, http.StatusConflict},
		{"unknown route", http.MethodGet, "/api/nowhere", nil, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := s.call(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, status, string(body))
		})
	}

	// Nothing above may have changed the network
	assert.Equal(t, network.Stats{Airports: 5, Routes: 3, Airlines: 2}, s.graph.Stats())
}

func TestReadinessFollowsDataDirectory(t *testing.T) {
	dataDir := t.TempDir()
	s := startStack(t, dataDir, writeOpenFlights(t))

	status, body := s.call(t, http.MethodGet, "/health/ready", nil)
	assert.Equal(t, http.StatusOK, status, string(body))

	require.NoError(t, os.RemoveAll(dataDir))

	status, body = s.call(t, http.MethodGet, "/health/ready", nil)
	assert.Equal(t, http.StatusServiceUnavailable, status, string(body))
}
