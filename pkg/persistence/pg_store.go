package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dd0wney/cluso-airnet/pkg/network"
)

// PGStore keeps the network in PostgreSQL
type PGStore struct {
	pool *pgxpool.Pool
	inst instrument
}

var _ Store = (*PGStore)(nil)

// NewPGStore connects to databaseURL and creates the tables if needed
func NewPGStore(ctx context.Context, databaseURL string, opts Options) (*PGStore, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	// Connection pooling configuration
	config.MaxConns = 25
	config.MinConns = 5
	config.MaxConnLifetime = 5 * time.Minute
	config.MaxConnIdleTime = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}

	s := &PGStore{pool: pool, inst: newInstrument("postgres", opts)}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	return s, nil
}

// LoadGraph reads every table into a Dataset
func (s *PGStore) LoadGraph(ctx context.Context) (ds *network.Dataset, err error) {
	start := time.Now()
	defer func() { s.inst.observe("load", start, err) }()

	ds = &network.Dataset{}
	if ds.Airlines, err = s.loadAirlines(ctx); err != nil {
		return nil, err
	}
	if ds.Airports, err = s.loadAirports(ctx); err != nil {
		return nil, err
	}
	if ds.Routes, err = s.loadRoutes(ctx); err != nil {
		return nil, err
	}

	err = s.pool.QueryRow(ctx,
		`SELECT COALESCE(MAX(value), 0) FROM airnet_meta WHERE key = 'next_route_id'`,
	).Scan(&ds.NextRouteID)
	if err != nil {
		return nil, fmt.Errorf("failed to load next route id: %w", err)
	}
	return ds, nil
}

func (s *PGStore) loadAirlines(ctx context.Context) ([]network.Airline, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name FROM airlines ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query airlines: %w", err)
	}
	defer rows.Close()

	var out []network.Airline
	for rows.Next() {
		var al network.Airline
		if err := rows.Scan(&al.ID, &al.Name); err != nil {
			return nil, fmt.Errorf("failed to scan airline: %w", err)
		}
		out = append(out, al)
	}
	return out, rows.Err()
}

func (s *PGStore) loadAirports(ctx context.Context) ([]network.Airport, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, iata, icao, latitude, longitude, status
		FROM airports ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query airports: %w", err)
	}
	defer rows.Close()

	var out []network.Airport
	for rows.Next() {
		var ap network.Airport
		var status string
		if err := rows.Scan(&ap.ID, &ap.Name, &ap.IATA, &ap.ICAO, &ap.Latitude, &ap.Longitude, &status); err != nil {
			return nil, fmt.Errorf("failed to scan airport: %w", err)
		}
		ap.Status = network.AirportStatus(status)
		out = append(out, ap)
	}
	return out, rows.Err()
}

func (s *PGStore) loadRoutes(ctx context.Context) ([]network.Route, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT r.id, r.src, r.dst, r.distance, r.stops, r.kind,
		       COALESCE(array_agg(o.airline_id ORDER BY o.airline_id) FILTER (WHERE o.airline_id IS NOT NULL), '{}')
		FROM routes r
		LEFT JOIN route_operators o ON o.route_id = r.id
		GROUP BY r.id
		ORDER BY r.id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query routes: %w", err)
	}
	defer rows.Close()

	var out []network.Route
	for rows.Next() {
		var r network.Route
		var kind string
		if err := rows.Scan(&r.ID, &r.From, &r.To, &r.Distance, &r.Stops, &kind, &r.Operators); err != nil {
			return nil, fmt.Errorf("failed to scan route: %w", err)
		}
		r.Kind = network.RouteKind(kind)
		if len(r.Operators) == 0 {
			r.Operators = nil
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Persist applies one committed batch inside a single transaction
func (s *PGStore) Persist(ctx context.Context, mutations []network.Mutation) (err error) {
	start := time.Now()
	defer func() { s.inst.observe("persist", start, err) }()

	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		for i := range mutations {
			if err := applyMutation(ctx, tx, &mutations[i]); err != nil {
				return fmt.Errorf("failed to apply %s %s: %w", mutations[i].Op, mutations[i].ID, err)
			}
		}
		return nil
	})
}

func applyMutation(ctx context.Context, tx pgx.Tx, m *network.Mutation) error {
	switch m.Op {
	case network.OpAddAirport, network.OpUpdateAirport:
		return upsertAirport(ctx, tx, m.Airport)
	case network.OpRemoveAirport:
		_, err := tx.Exec(ctx, `DELETE FROM airports WHERE id = $1`, m.Airport.ID)
		return err
	case network.OpAddRoute, network.OpUpdateRoute:
		return upsertRoute(ctx, tx, m.Route)
	case network.OpRemoveRoute:
		_, err := tx.Exec(ctx, `DELETE FROM routes WHERE id = $1`, m.Route.ID)
		return err
	case network.OpAddAirline, network.OpUpdateAirline:
		_, err := tx.Exec(ctx, `
			INSERT INTO airlines (id, name) VALUES ($1, $2)
			ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name`,
			m.Airline.ID, m.Airline.Name)
		return err
	case network.OpRemoveAirline:
		_, err := tx.Exec(ctx, `DELETE FROM airlines WHERE id = $1`, m.Airline.ID)
		return err
	default:
		return fmt.Errorf("unknown mutation op %q", m.Op)
	}
}

func upsertAirport(ctx context.Context, tx pgx.Tx, ap *network.Airport) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO airports (id, name, iata, icao, latitude, longitude, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, iata = EXCLUDED.iata, icao = EXCLUDED.icao,
			latitude = EXCLUDED.latitude, longitude = EXCLUDED.longitude,
			status = EXCLUDED.status`,
		ap.ID, ap.Name, ap.IATA, ap.ICAO, ap.Latitude, ap.Longitude, string(ap.Status))
	return err
}

func upsertRoute(ctx context.Context, tx pgx.Tx, r *network.Route) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO routes (id, src, dst, distance, stops, kind)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			src = EXCLUDED.src, dst = EXCLUDED.dst, distance = EXCLUDED.distance,
			stops = EXCLUDED.stops, kind = EXCLUDED.kind`,
		r.ID, r.From, r.To, r.Distance, r.Stops, string(r.Kind))
	if err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `DELETE FROM route_operators WHERE route_id = $1`, r.ID); err != nil {
		return err
	}
	if len(r.Operators) > 0 {
		_, err = tx.Exec(ctx, `
			INSERT INTO route_operators (route_id, airline_id)
			SELECT $1, unnest($2::bigint[])`,
			r.ID, r.Operators)
		if err != nil {
			return err
		}
	}
	return setNextRouteID(ctx, tx, r.ID+1)
}

func setNextRouteID(ctx context.Context, tx pgx.Tx, next int64) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO airnet_meta (key, value) VALUES ('next_route_id', $1)
		ON CONFLICT (key) DO UPDATE SET value = GREATEST(airnet_meta.value, EXCLUDED.value)`,
		next)
	return err
}

// Snapshot replaces every table with the contents of ds
func (s *PGStore) Snapshot(ctx context.Context, ds *network.Dataset) (err error) {
	start := time.Now()
	defer func() { s.inst.observe("snapshot", start, err) }()

	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `TRUNCATE route_operators, routes, airports, airlines, airnet_meta`); err != nil {
			return fmt.Errorf("failed to clear tables: %w", err)
		}

		_, err := tx.CopyFrom(ctx, pgx.Identifier{"airlines"}, []string{"id", "name"},
			pgx.CopyFromSlice(len(ds.Airlines), func(i int) ([]any, error) {
				al := ds.Airlines[i]
				return []any{al.ID, al.Name}, nil
			}))
		if err != nil {
			return fmt.Errorf("failed to copy airlines: %w", err)
		}

		_, err = tx.CopyFrom(ctx, pgx.Identifier{"airports"},
			[]string{"id", "name", "iata", "icao", "latitude", "longitude", "status"},
			pgx.CopyFromSlice(len(ds.Airports), func(i int) ([]any, error) {
				ap := ds.Airports[i]
				return []any{ap.ID, ap.Name, ap.IATA, ap.ICAO, ap.Latitude, ap.Longitude, string(ap.Status)}, nil
			}))
		if err != nil {
			return fmt.Errorf("failed to copy airports: %w", err)
		}

		_, err = tx.CopyFrom(ctx, pgx.Identifier{"routes"},
			[]string{"id", "src", "dst", "distance", "stops", "kind"},
			pgx.CopyFromSlice(len(ds.Routes), func(i int) ([]any, error) {
				r := ds.Routes[i]
				return []any{r.ID, r.From, r.To, r.Distance, r.Stops, string(r.Kind)}, nil
			}))
		if err != nil {
			return fmt.Errorf("failed to copy routes: %w", err)
		}

		var operators [][]any
		for _, r := range ds.Routes {
			for _, al := range r.Operators {
				operators = append(operators, []any{r.ID, al})
			}
		}
		_, err = tx.CopyFrom(ctx, pgx.Identifier{"route_operators"},
			[]string{"route_id", "airline_id"}, pgx.CopyFromRows(operators))
		if err != nil {
			return fmt.Errorf("failed to copy route operators: %w", err)
		}

		return setNextRouteID(ctx, tx, ds.NextRouteID)
	})
}

// Ping checks database connectivity
func (s *PGStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the database connection pool
func (s *PGStore) Close() error {
	s.pool.Close()
	return nil
}
