package persistence

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/dd0wney/cluso-airnet/pkg/network"
)

const testAirports = `1,"Goroka Airport","Goroka","Papua New Guinea","GKA","AYGA",-6.081689834590001,145.391998291,5282,10,"U","Pacific/Port_Moresby","airport","OurAirports"
2,"Madang Airport","Madang","Papua New Guinea","MAG","AYMD",-5.20707988739,145.789001465,20,10,"U","Pacific/Port_Moresby","airport","OurAirports"
3,"Mount Hagen Kagamuga Airport","Mount Hagen","Papua New Guinea","HGU","AYMH",-5.826789855957031,144.29600524902344,5388,10,"U","Pacific/Port_Moresby","airport","OurAirports"
3,"Duplicate Id","X","Y","DUP","DUPP",1,1,0,0,"U","x","airport","x"
X,"Bad Id","X","Y","BAD","BADD",1,1,0,0,"U","x","airport","x"
4,"No Coordinates","X","Y",\N,\N,\N,\N,0,0,"U","x","airport","x"
5,"Nadzab Airport","Nadzab","Papua New Guinea","LAE","AYNZ",-6.569803,146.725977,239,10,"U","Pacific/Port_Moresby","airport","OurAirports"
`

const testAirlines = `-1,"Unknown",\N,"-","N/A",\N,\N,"Y"
1,"Private flight",\N,"-","N/A","","","Y"
2,"135 Airways",\N,"","GNL","GENERAL","United States","N"
2,"Duplicate",\N,"","DUP","","","N"
`

const testRoutes = `2B,2,GKA,1,MAG,2,,0,CR2
2B,2,GKA,1,MAG,2,,0,CR2
PV,1,GKA,1,MAG,2,Y,1,CR2
2B,2,MAG,2,GKA,1,,0,CR2
2B,2,GKA,1,HGU,3,,0,CR2
XX,\N,HGU,3,LAE,5,,0,CR2
2B,2,GKA,1,ZZZ,99,,0,CR2
2B,2,GKA,\N,MAG,2,,0,CR2
2B,2,GKA,1,GKA,1,,0,CR2
XX,999,LAE,5,MAG,2,,2,CR2
`

func testFiles() OpenFlightsFiles {
	return OpenFlightsFiles{
		Airports: strings.NewReader(testAirports),
		Airlines: strings.NewReader(testAirlines),
		Routes:   strings.NewReader(testRoutes),
	}
}

func TestImportOpenFlights_Cleaning(t *testing.T) {
	ds, stats, err := ImportOpenFlights(context.Background(), testFiles(), nil)
	if err != nil {
		t.Fatalf("ImportOpenFlights failed: %v", err)
	}

	var airportIDs []int64
	for _, a := range ds.Airports {
		airportIDs = append(airportIDs, a.ID)
	}
	if !slices.Equal(airportIDs, []int64{1, 2, 3, 5}) {
		t.Errorf("Expected airports [1 2 3 5], got %v", airportIDs)
	}
	if ds.Airports[2].Name != "Mount Hagen Kagamuga Airport" {
		t.Errorf("Expected first row of a repeated id to win, got %q", ds.Airports[2].Name)
	}
	if ds.Airports[0].IATA != "GKA" || ds.Airports[0].ICAO != "AYGA" {
		t.Errorf("Codes not imported: %+v", ds.Airports[0])
	}

	if len(ds.Airlines) != 2 || ds.Airlines[0].ID != 1 || ds.Airlines[1].Name != "135 Airways" {
		t.Errorf("Unexpected airlines %+v", ds.Airlines)
	}

	type pair struct{ from, to int64 }
	var pairs []pair
	for _, r := range ds.Routes {
		pairs = append(pairs, pair{r.From, r.To})
	}
	want := []pair{{1, 2}, {1, 3}, {2, 1}, {3, 5}, {5, 2}}
	if !slices.Equal(pairs, want) {
		t.Fatalf("Expected route pairs %v, got %v", want, pairs)
	}

	gkaMag := ds.Routes[0]
	if !slices.Equal(gkaMag.Operators, []int64{1, 2}) {
		t.Errorf("Expected operators [1 2] on GKA-MAG, got %v", gkaMag.Operators)
	}
	if gkaMag.Stops != 0 {
		t.Errorf("Expected minimum stops 0, got %d", gkaMag.Stops)
	}
	if ds.Routes[3].Operators != nil {
		t.Errorf("Expected route with null airline id to have no operators, got %v", ds.Routes[3].Operators)
	}
	if ds.Routes[4].Operators != nil || ds.Routes[4].Stops != 2 {
		t.Errorf("Expected unknown airline dropped and stops kept, got %+v", ds.Routes[4])
	}
	if ds.NextRouteID != 6 {
		t.Errorf("Expected next route id 6, got %d", ds.NextRouteID)
	}

	if stats.UnknownEndpoint != 1 || stats.SelfLoops != 1 {
		t.Errorf("Expected 1 unknown endpoint and 1 self loop, got %+v", stats)
	}
	if stats.RoutesCreated != 5 || stats.AirportsKept != 4 || stats.AirlinesKept != 2 {
		t.Errorf("Unexpected stats %+v", stats)
	}
}

func TestImportOpenFlights_LoadsIntoGraph(t *testing.T) {
	ds, _, err := ImportOpenFlights(context.Background(), testFiles(), nil)
	if err != nil {
		t.Fatalf("ImportOpenFlights failed: %v", err)
	}
	g := network.NewGraph(network.Config{})
	if err := g.Load(ds); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	deg, err := g.Degree(1)
	if err != nil {
		t.Fatalf("Degree failed: %v", err)
	}
	if deg != 3 {
		t.Errorf("Expected GKA degree 3, got %d", deg)
	}
}

func TestImportOpenFlights_MissingInput(t *testing.T) {
	files := testFiles()
	files.Routes = nil
	if _, _, err := ImportOpenFlights(context.Background(), files, nil); err == nil {
		t.Fatal("Expected error for missing routes input")
	}
}

func TestImportOpenFlightsDir(t *testing.T) {
	dir := t.TempDir()
	for name, content := range map[string]string{
		AirportsFile: testAirports,
		AirlinesFile: testAirlines,
		RoutesFile:   testRoutes,
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatalf("WriteFile failed: %v", err)
		}
	}

	ds, err := OpenFlightsLoader{Dir: dir}.LoadGraph(context.Background())
	if err != nil {
		t.Fatalf("LoadGraph failed: %v", err)
	}
	if len(ds.Routes) != 5 {
		t.Errorf("Expected 5 routes, got %d", len(ds.Routes))
	}

	if _, err := (OpenFlightsLoader{Dir: t.TempDir()}).LoadGraph(context.Background()); err == nil {
		t.Error("Expected error for directory without files")
	}
}

func TestHaversine(t *testing.T) {
	// Paris CDG to London LHR is about 347 km.
	cdg := &network.Airport{Latitude: 49.0097, Longitude: 2.5479}
	lhr := &network.Airport{Latitude: 51.4700, Longitude: -0.4543}
	if d := Haversine(cdg, lhr); math.Abs(d-347) > 2 {
		t.Errorf("Expected about 347 km, got %v", d)
	}
	if d := Haversine(cdg, cdg); d != 0 {
		t.Errorf("Expected 0 for the same point, got %v", d)
	}
}
