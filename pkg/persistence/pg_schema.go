package persistence

import "context"

func (s *PGStore) migrate(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS airlines (
			id BIGINT PRIMARY KEY,
			name TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS airports (
			id BIGINT PRIMARY KEY,
			name TEXT NOT NULL,
			iata TEXT NOT NULL DEFAULT '',
			icao TEXT NOT NULL DEFAULT '',
			latitude DOUBLE PRECISION NOT NULL,
			longitude DOUBLE PRECISION NOT NULL,
			status TEXT NOT NULL DEFAULT 'active'
		);

		CREATE TABLE IF NOT EXISTS routes (
			id BIGINT PRIMARY KEY,
			src BIGINT NOT NULL,
			dst BIGINT NOT NULL,
			distance DOUBLE PRECISION NOT NULL,
			stops INTEGER NOT NULL,
			kind TEXT NOT NULL DEFAULT 'scheduled'
		);

		CREATE INDEX IF NOT EXISTS idx_routes_src ON routes(src);
		CREATE INDEX IF NOT EXISTS idx_routes_dst ON routes(dst);

		CREATE TABLE IF NOT EXISTS route_operators (
			route_id BIGINT NOT NULL REFERENCES routes(id) ON DELETE CASCADE,
			airline_id BIGINT NOT NULL,
			PRIMARY KEY (route_id, airline_id)
		);

		CREATE TABLE IF NOT EXISTS airnet_meta (
			key TEXT PRIMARY KEY,
			value BIGINT NOT NULL
		);
	`

	_, err := s.pool.Exec(ctx, schema)
	return err
}
