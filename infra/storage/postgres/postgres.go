// Package postgres is the shared-database backend of the relief store.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kilianp07/relief/core/model"
	"github.com/kilianp07/relief/core/store"
)

// Config holds the connection settings.
type Config struct {
	DSN      string `json:"dsn"`
	MaxConns int32  `json:"max_conns"`
}

// Store implements store.Store on PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

var _ store.Store = (*Store)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS zones (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	type TEXT NOT NULL,
	population INTEGER NOT NULL,
	initial_population INTEGER NOT NULL,
	risk INTEGER NOT NULL,
	evacuated BOOLEAN NOT NULL,
	lat DOUBLE PRECISION,
	lng DOUBLE PRECISION,
	teams TEXT[] NOT NULL DEFAULT '{}'
);
CREATE TABLE IF NOT EXISTS routes (
	id TEXT PRIMARY KEY,
	origin TEXT NOT NULL REFERENCES zones(id),
	destination TEXT NOT NULL REFERENCES zones(id),
	distance_km DOUBLE PRECISION NOT NULL,
	time_hours DOUBLE PRECISION NOT NULL,
	capacity DOUBLE PRECISION NOT NULL,
	available BOOLEAN NOT NULL
);
CREATE TABLE IF NOT EXISTS stocks (
	location TEXT NOT NULL,
	kind TEXT NOT NULL,
	quantity BIGINT NOT NULL CHECK (quantity >= 0),
	PRIMARY KEY (location, kind)
);
CREATE TABLE IF NOT EXISTS transfers (
	id TEXT PRIMARY KEY,
	source TEXT NOT NULL,
	destination TEXT NOT NULL,
	kind TEXT NOT NULL,
	quantity BIGINT NOT NULL,
	at TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS evacuations (
	id TEXT PRIMARY KEY,
	zone_id TEXT NOT NULL,
	persons INTEGER NOT NULL,
	priority INTEGER NOT NULL,
	state TEXT NOT NULL,
	seq BIGINT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	started_at TIMESTAMPTZ,
	completed_at TIMESTAMPTZ
);
CREATE TABLE IF NOT EXISTS teams (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	type TEXT NOT NULL,
	members INTEGER NOT NULL,
	specialties TEXT[] NOT NULL DEFAULT '{}',
	available BOOLEAN NOT NULL,
	zone_id TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_evacuations_priority ON evacuations (priority DESC, seq);
`

// Open connects to the database and applies the schema.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = cfg.MaxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close releases the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) SaveZone(ctx context.Context, z model.Zone) error {
	var lat, lng *float64
	if z.Position != nil {
		lat, lng = &z.Position.Lat, &z.Position.Lng
	}
	_, err := s.exec(ctx, `
INSERT INTO zones (id, name, type, population, initial_population, risk, evacuated, lat, lng, teams)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (id) DO UPDATE SET
	name = EXCLUDED.name, type = EXCLUDED.type, population = EXCLUDED.population,
	initial_population = EXCLUDED.initial_population, risk = EXCLUDED.risk,
	evacuated = EXCLUDED.evacuated, lat = EXCLUDED.lat, lng = EXCLUDED.lng, teams = EXCLUDED.teams`,
		z.ID, z.Name, string(z.Type), z.Population, z.InitialPopulation, z.Risk, z.Evacuated, lat, lng, nonNil(z.Teams))
	if err != nil {
		return fmt.Errorf("save zone: %w", err)
	}
	return nil
}

func (s *Store) SaveRoute(ctx context.Context, r model.Route) error {
	_, err := s.exec(ctx, `
INSERT INTO routes (id, origin, destination, distance_km, time_hours, capacity, available)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (id) DO UPDATE SET
	origin = EXCLUDED.origin, destination = EXCLUDED.destination, distance_km = EXCLUDED.distance_km,
	time_hours = EXCLUDED.time_hours, capacity = EXCLUDED.capacity, available = EXCLUDED.available`,
		r.ID, r.Origin, r.Destination, r.DistanceKM, r.TimeHours, r.Capacity, r.Available)
	if err != nil {
		return fmt.Errorf("save route: %w", err)
	}
	return nil
}

func (s *Store) DeleteRoute(ctx context.Context, id string) error {
	if _, err := s.exec(ctx, `DELETE FROM routes WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete route: %w", err)
	}
	return nil
}

// SaveStocks writes all levels and the transfer record in one transaction.
func (s *Store) SaveStocks(ctx context.Context, entries []model.StockEntry, t *model.Transfer) error {
	return withTx(ctx, s.pool, func(ctx context.Context) error {
		for _, e := range entries {
			if _, err := s.exec(ctx, `
INSERT INTO stocks (location, kind, quantity) VALUES ($1, $2, $3)
ON CONFLICT (location, kind) DO UPDATE SET quantity = EXCLUDED.quantity`,
				e.Key, string(e.Kind), e.Quantity); err != nil {
				return fmt.Errorf("save stock %s/%s: %w", e.Key, e.Kind, err)
			}
		}
		if t == nil {
			return nil
		}
		if _, err := s.exec(ctx, `
INSERT INTO transfers (id, source, destination, kind, quantity, at) VALUES ($1, $2, $3, $4, $5, $6)`,
			t.ID, t.Source, t.Dest, string(t.Kind), t.Quantity, t.At); err != nil {
			return fmt.Errorf("save transfer: %w", err)
		}
		return nil
	})
}

func (s *Store) SaveEvacuation(ctx context.Context, r model.EvacuationRequest) error {
	_, err := s.exec(ctx, `
INSERT INTO evacuations (id, zone_id, persons, priority, state, seq, created_at, started_at, completed_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (id) DO UPDATE SET
	state = EXCLUDED.state, started_at = EXCLUDED.started_at, completed_at = EXCLUDED.completed_at`,
		r.ID, r.ZoneID, r.Persons, r.Priority, r.State.String(), int64(r.Seq), r.CreatedAt, r.StartedAt, r.CompletedAt)
	if err != nil {
		return fmt.Errorf("save evacuation: %w", err)
	}
	return nil
}

func (s *Store) SaveTeam(ctx context.Context, t model.Team) error {
	_, err := s.exec(ctx, `
INSERT INTO teams (id, name, type, members, specialties, available, zone_id)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (id) DO UPDATE SET
	name = EXCLUDED.name, type = EXCLUDED.type, members = EXCLUDED.members,
	specialties = EXCLUDED.specialties, available = EXCLUDED.available, zone_id = EXCLUDED.zone_id`,
		t.ID, t.Name, string(t.Type), t.Members, nonNil(t.Specialties), t.Available, t.ZoneID)
	if err != nil {
		return fmt.Errorf("save team: %w", err)
	}
	return nil
}

// Load reads the whole state inside one repeatable snapshot.
func (s *Store) Load(ctx context.Context) (store.Snapshot, error) {
	var snap store.Snapshot
	err := withTx(ctx, s.pool, func(ctx context.Context) error {
		var err error
		if snap.Zones, err = collect(ctx, s, `
SELECT id, name, type, population, initial_population, risk, evacuated, lat, lng, teams
FROM zones ORDER BY id`, scanZone); err != nil {
			return fmt.Errorf("load zones: %w", err)
		}
		if snap.Routes, err = collect(ctx, s, `
SELECT id, origin, destination, distance_km, time_hours, capacity, available
FROM routes ORDER BY id`, func(row pgx.Rows) (model.Route, error) {
			var r model.Route
			err := row.Scan(&r.ID, &r.Origin, &r.Destination, &r.DistanceKM, &r.TimeHours, &r.Capacity, &r.Available)
			return r, err
		}); err != nil {
			return fmt.Errorf("load routes: %w", err)
		}
		if snap.Stocks, err = collect(ctx, s, `
SELECT location, kind, quantity FROM stocks ORDER BY location, kind`, func(row pgx.Rows) (model.StockEntry, error) {
			var e model.StockEntry
			var kind string
			err := row.Scan(&e.Key, &kind, &e.Quantity)
			e.Kind = model.ResourceKind(kind)
			return e, err
		}); err != nil {
			return fmt.Errorf("load stocks: %w", err)
		}
		if snap.Evacuations, err = collect(ctx, s, `
SELECT id, zone_id, persons, priority, state, seq, created_at, started_at, completed_at
FROM evacuations ORDER BY seq`, scanEvacuation); err != nil {
			return fmt.Errorf("load evacuations: %w", err)
		}
		if snap.Teams, err = collect(ctx, s, `
SELECT id, name, type, members, specialties, available, zone_id FROM teams ORDER BY id`, func(row pgx.Rows) (model.Team, error) {
			var t model.Team
			var typ string
			err := row.Scan(&t.ID, &t.Name, &typ, &t.Members, &t.Specialties, &t.Available, &t.ZoneID)
			t.Type = model.TeamType(typ)
			return t, err
		}); err != nil {
			return fmt.Errorf("load teams: %w", err)
		}
		return nil
	})
	return snap, err
}

func collect[T any](ctx context.Context, s *Store, sql string, scan func(pgx.Rows) (T, error)) ([]T, error) {
	rows, err := s.query(ctx, sql)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func scanZone(row pgx.Rows) (model.Zone, error) {
	var z model.Zone
	var typ string
	var lat, lng *float64
	if err := row.Scan(&z.ID, &z.Name, &typ, &z.Population, &z.InitialPopulation, &z.Risk, &z.Evacuated, &lat, &lng, &z.Teams); err != nil {
		return z, err
	}
	z.Type = model.ZoneType(typ)
	if lat != nil && lng != nil {
		z.Position = &model.Position{Lat: *lat, Lng: *lng}
	}
	return z, nil
}

func scanEvacuation(row pgx.Rows) (model.EvacuationRequest, error) {
	var r model.EvacuationRequest
	var state string
	var seq int64
	var started, completed *time.Time
	if err := row.Scan(&r.ID, &r.ZoneID, &r.Persons, &r.Priority, &state, &seq, &r.CreatedAt, &started, &completed); err != nil {
		return r, err
	}
	st, err := model.ParseEvacuationState(state)
	if err != nil {
		return r, err
	}
	r.State = st
	r.Seq = uint64(seq)
	r.CreatedAt = r.CreatedAt.UTC()
	r.StartedAt = utc(started)
	r.CompletedAt = utc(completed)
	return r, nil
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
