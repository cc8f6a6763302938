package persistence

import (
	"cmp"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/dd0wney/cluso-airnet/pkg/logging"
	"github.com/dd0wney/cluso-airnet/pkg/network"
)

// OpenFlights file names
const (
	AirportsFile = "airports.dat"
	AirlinesFile = "airlines.dat"
	RoutesFile   = "routes.dat"
)

const earthRadiusKm = 6371.0

// openFlightsNull marks a missing value in OpenFlights files
const openFlightsNull = `\N`

// OpenFlightsFiles holds the three OpenFlights CSV streams
type OpenFlightsFiles struct {
	Airports io.Reader
	Airlines io.Reader
	Routes   io.Reader
}

// ImportStats counts what an import kept and dropped
type ImportStats struct {
	AirportsRead    int `json:"airports_read"`
	AirportsKept    int `json:"airports_kept"`
	AirlinesRead    int `json:"airlines_read"`
	AirlinesKept    int `json:"airlines_kept"`
	RouteRowsRead   int `json:"route_rows_read"`
	RouteRowsKept   int `json:"route_rows_kept"`
	RoutesCreated   int `json:"routes_created"`
	UnknownEndpoint int `json:"unknown_endpoint"`
	SelfLoops       int `json:"self_loops"`
}

// routeKey is a directed airport pair
type routeKey struct{ from, to int64 }

type routeGroup struct {
	operators []int64
	stops     int
}

// ImportOpenFlights cleans OpenFlights data into a Dataset.
//
// Rows without a numeric id (or, for airports, without numeric
// coordinates) are dropped, as are repeated ids. Route rows are dropped when
// an endpoint id is missing or unknown or both endpoints are equal; the
// remaining rows are collapsed per directed airport pair into one route
// operated by every known airline seen on that pair, with the smallest stop
// count. Distances are great-circle kilometres.
func ImportOpenFlights(ctx context.Context, files OpenFlightsFiles, logger logging.Logger) (*network.Dataset, *ImportStats, error) {
	logger = logging.OrNop(logger).With(logging.Component("import"))
	stats := &ImportStats{}

	airports, err := readAirports(files.Airports, stats)
	if err != nil {
		return nil, nil, fmt.Errorf("airports: %w", err)
	}
	airlines, err := readAirlines(files.Airlines, stats)
	if err != nil {
		return nil, nil, fmt.Errorf("airlines: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	byID := make(map[int64]*network.Airport, len(airports))
	for i := range airports {
		byID[airports[i].ID] = &airports[i]
	}
	known := make(map[int64]bool, len(airlines))
	for _, al := range airlines {
		known[al.ID] = true
	}

	groups, err := readRoutes(files.Routes, byID, known, stats)
	if err != nil {
		return nil, nil, fmt.Errorf("routes: %w", err)
	}

	keys := make([]routeKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b routeKey) int {
		return cmp.Or(cmp.Compare(a.from, b.from), cmp.Compare(a.to, b.to))
	})

	ds := &network.Dataset{
		Airports: airports,
		Airlines: airlines,
		Routes:   make([]network.Route, 0, len(keys)),
	}
	for i, k := range keys {
		grp := groups[k]
		slices.Sort(grp.operators)
		ds.Routes = append(ds.Routes, network.Route{
			ID:        int64(i + 1),
			From:      k.from,
			To:        k.to,
			Distance:  Haversine(byID[k.from], byID[k.to]),
			Stops:     grp.stops,
			Operators: slices.Compact(grp.operators),
			Kind:      network.KindScheduled,
		})
	}
	ds.NextRouteID = int64(len(ds.Routes) + 1)
	stats.RoutesCreated = len(ds.Routes)

	logger.Info("openflights import done",
		logging.Int("airports", stats.AirportsKept),
		logging.Int("airlines", stats.AirlinesKept),
		logging.Int("routes", stats.RoutesCreated),
		logging.Int("unknown_endpoint", stats.UnknownEndpoint),
		logging.Int("self_loops", stats.SelfLoops))
	return ds, stats, nil
}

// ImportOpenFlightsDir imports the three standard files from dir
func ImportOpenFlightsDir(ctx context.Context, dir string, logger logging.Logger) (*network.Dataset, *ImportStats, error) {
	var files OpenFlightsFiles
	targets := []struct {
		name string
		dst  *io.Reader
	}{
		{AirportsFile, &files.Airports},
		{AirlinesFile, &files.Airlines},
		{RoutesFile, &files.Routes},
	}
	for _, t := range targets {
		f, err := os.Open(filepath.Join(dir, t.name))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open %s: %w", t.name, err)
		}
		defer f.Close()
		*t.dst = f
	}
	return ImportOpenFlights(ctx, files, logger)
}

// OpenFlightsLoader seeds a graph from an OpenFlights directory
type OpenFlightsLoader struct {
	Dir    string
	Logger logging.Logger
}

// LoadGraph implements network.Loader
func (l OpenFlightsLoader) LoadGraph(ctx context.Context) (*network.Dataset, error) {
	ds, _, err := ImportOpenFlightsDir(ctx, l.Dir, l.Logger)
	return ds, err
}

func newCSVReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true
	return cr
}

// eachRecord calls fn for every record with at least minFields columns
func eachRecord(r io.Reader, minFields int, fn func(rec []string)) error {
	if r == nil {
		return errors.New("missing input")
	}
	cr := newCSVReader(r)
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if len(rec) < minFields {
			continue
		}
		fn(rec)
	}
}

func field(s string) string {
	s = strings.TrimSpace(s)
	if s == openFlightsNull {
		return ""
	}
	return s
}

func parseID(s string) (int64, bool) {
	id, err := strconv.ParseInt(field(s), 10, 64)
	return id, err == nil && id > 0
}

func readAirports(r io.Reader, stats *ImportStats) ([]network.Airport, error) {
	seen := make(map[int64]bool)
	var out []network.Airport
	err := eachRecord(r, 8, func(rec []string) {
		stats.AirportsRead++
		id, ok := parseID(rec[0])
		if !ok || seen[id] {
			return
		}
		lat, errLat := strconv.ParseFloat(field(rec[6]), 64)
		lon, errLon := strconv.ParseFloat(field(rec[7]), 64)
		if errLat != nil || errLon != nil {
			return
		}
		seen[id] = true
		out = append(out, network.Airport{
			ID:        id,
			Name:      field(rec[1]),
			IATA:      field(rec[4]),
			ICAO:      field(rec[5]),
			Latitude:  lat,
			Longitude: lon,
			Status:    network.StatusActive,
		})
	})
	slices.SortFunc(out, func(a, b network.Airport) int { return cmp.Compare(a.ID, b.ID) })
	stats.AirportsKept = len(out)
	return out, err
}

func readAirlines(r io.Reader, stats *ImportStats) ([]network.Airline, error) {
	seen := make(map[int64]bool)
	var out []network.Airline
	err := eachRecord(r, 2, func(rec []string) {
		stats.AirlinesRead++
		id, ok := parseID(rec[0])
		if !ok || seen[id] {
			return
		}
		seen[id] = true
		out = append(out, network.Airline{ID: id, Name: field(rec[1])})
	})
	slices.SortFunc(out, func(a, b network.Airline) int { return cmp.Compare(a.ID, b.ID) })
	stats.AirlinesKept = len(out)
	return out, err
}

func readRoutes(r io.Reader, airports map[int64]*network.Airport, airlines map[int64]bool, stats *ImportStats) (map[routeKey]*routeGroup, error) {
	groups := make(map[routeKey]*routeGroup)
	err := eachRecord(r, 6, func(rec []string) {
		stats.RouteRowsRead++
		from, okFrom := parseID(rec[3])
		to, okTo := parseID(rec[5])
		if !okFrom || !okTo {
			return
		}
		if airports[from] == nil || airports[to] == nil {
			stats.UnknownEndpoint++
			return
		}
		if from == to {
			stats.SelfLoops++
			return
		}

		stops := 0
		if len(rec) > 7 {
			if n, err := strconv.Atoi(field(rec[7])); err == nil && n >= 0 {
				stops = n
			}
		}

		k := routeKey{from, to}
		grp, ok := groups[k]
		if !ok {
			grp = &routeGroup{stops: stops}
			groups[k] = grp
		}
		grp.stops = min(grp.stops, stops)
		if al, ok := parseID(rec[1]); ok && airlines[al] {
			grp.operators = append(grp.operators, al)
		}
		stats.RouteRowsKept++
	})
	return groups, err
}

// Haversine returns the great-circle distance between two airports in
// kilometres, rounded to one decimal.
func Haversine(a, b *network.Airport) float64 {
	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLat := lat2 - lat1
	dLon := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	d := 2 * earthRadiusKm * math.Asin(math.Min(1, math.Sqrt(h)))
	return math.Round(d*10) / 10
}
