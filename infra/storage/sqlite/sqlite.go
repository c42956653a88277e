// Package sqlite is the single-file durable backend of the relief store.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/kilianp07/relief/core/model"
	"github.com/kilianp07/relief/core/store"
)

// Config selects the database file.
type Config struct {
	Path string `json:"path"`
}

// DB implements store.Store on SQLite.
type DB struct {
	conn *sqlx.DB
}

var _ store.Store = (*DB)(nil)

// Open opens or creates the database at path and migrates the schema.
func Open(path string) (*DB, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite store: path is required")
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	conn, err := sqlx.Open("sqlite", path+sep+"_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// One writer at a time; also keeps :memory: databases on a single connection.
	conn.SetMaxOpenConns(1)

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS zones (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		type TEXT NOT NULL,
		population INTEGER NOT NULL,
		initial_population INTEGER NOT NULL,
		risk INTEGER NOT NULL,
		evacuated INTEGER NOT NULL,
		lat REAL,
		lng REAL,
		teams_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS routes (
		id TEXT PRIMARY KEY,
		origin TEXT NOT NULL REFERENCES zones(id),
		destination TEXT NOT NULL REFERENCES zones(id),
		distance_km REAL NOT NULL,
		time_hours REAL NOT NULL,
		capacity REAL NOT NULL,
		available INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS stocks (
		location TEXT NOT NULL,
		kind TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		PRIMARY KEY (location, kind)
	);

	CREATE TABLE IF NOT EXISTS transfers (
		id TEXT PRIMARY KEY,
		source TEXT NOT NULL,
		destination TEXT NOT NULL,
		kind TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS evacuations (
		id TEXT PRIMARY KEY,
		zone_id TEXT NOT NULL,
		persons INTEGER NOT NULL,
		priority INTEGER NOT NULL,
		state TEXT NOT NULL,
		seq INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		started_at INTEGER,
		completed_at INTEGER
	);

	CREATE TABLE IF NOT EXISTS teams (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		type TEXT NOT NULL,
		members INTEGER NOT NULL,
		specialties_json TEXT NOT NULL,
		available INTEGER NOT NULL,
		zone_id TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_evacuations_priority ON evacuations(priority DESC, seq);
	CREATE INDEX IF NOT EXISTS idx_transfers_at ON transfers(at);
	`
	_, err := db.conn.Exec(schema)
	return err
}

type zoneRow struct {
	ID                string          `db:"id"`
	Name              string          `db:"name"`
	Type              string          `db:"type"`
	Population        int             `db:"population"`
	InitialPopulation int             `db:"initial_population"`
	Risk              int             `db:"risk"`
	Evacuated         bool            `db:"evacuated"`
	Lat               sql.NullFloat64 `db:"lat"`
	Lng               sql.NullFloat64 `db:"lng"`
	TeamsJSON         string          `db:"teams_json"`
}

type routeRow struct {
	ID          string  `db:"id"`
	Origin      string  `db:"origin"`
	Destination string  `db:"destination"`
	DistanceKM  float64 `db:"distance_km"`
	TimeHours   float64 `db:"time_hours"`
	Capacity    float64 `db:"capacity"`
	Available   bool    `db:"available"`
}

type evacuationRow struct {
	ID          string        `db:"id"`
	ZoneID      string        `db:"zone_id"`
	Persons     int           `db:"persons"`
	Priority    int           `db:"priority"`
	State       string        `db:"state"`
	Seq         int64         `db:"seq"`
	CreatedAt   int64         `db:"created_at"`
	StartedAt   sql.NullInt64 `db:"started_at"`
	CompletedAt sql.NullInt64 `db:"completed_at"`
}

type teamRow struct {
	ID              string `db:"id"`
	Name            string `db:"name"`
	Type            string `db:"type"`
	Members         int    `db:"members"`
	SpecialtiesJSON string `db:"specialties_json"`
	Available       bool   `db:"available"`
	ZoneID          string `db:"zone_id"`
}

// SaveZone upserts a zone.
func (db *DB) SaveZone(ctx context.Context, z model.Zone) error {
	teams, err := json.Marshal(nonNil(z.Teams))
	if err != nil {
		return err
	}
	row := zoneRow{
		ID: z.ID, Name: z.Name, Type: string(z.Type),
		Population: z.Population, InitialPopulation: z.InitialPopulation,
		Risk: z.Risk, Evacuated: z.Evacuated, TeamsJSON: string(teams),
	}
	if z.Position != nil {
		row.Lat = sql.NullFloat64{Float64: z.Position.Lat, Valid: true}
		row.Lng = sql.NullFloat64{Float64: z.Position.Lng, Valid: true}
	}
	_, err = db.conn.NamedExecContext(ctx, `INSERT INTO zones
		(id, name, type, population, initial_population, risk, evacuated, lat, lng, teams_json)
		VALUES (:id, :name, :type, :population, :initial_population, :risk, :evacuated, :lat, :lng, :teams_json)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name, type = excluded.type, population = excluded.population,
			initial_population = excluded.initial_population, risk = excluded.risk,
			evacuated = excluded.evacuated, lat = excluded.lat, lng = excluded.lng,
			teams_json = excluded.teams_json`, row)
	if err != nil {
		return fmt.Errorf("save zone: %w", err)
	}
	return nil
}

// SaveRoute upserts a route.
func (db *DB) SaveRoute(ctx context.Context, r model.Route) error {
	_, err := db.conn.NamedExecContext(ctx, `INSERT INTO routes
		(id, origin, destination, distance_km, time_hours, capacity, available)
		VALUES (:id, :origin, :destination, :distance_km, :time_hours, :capacity, :available)
		ON CONFLICT(id) DO UPDATE SET
			origin = excluded.origin, destination = excluded.destination,
			distance_km = excluded.distance_km, time_hours = excluded.time_hours,
			capacity = excluded.capacity, available = excluded.available`, routeRow(r))
	if err != nil {
		return fmt.Errorf("save route: %w", err)
	}
	return nil
}

// DeleteRoute removes a route.
func (db *DB) DeleteRoute(ctx context.Context, id string) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM routes WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete route: %w", err)
	}
	return nil
}

// SaveStocks writes the stock levels and transfer record in one transaction.
func (db *DB) SaveStocks(ctx context.Context, entries []model.StockEntry, t *model.Transfer) error {
	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, e := range entries {
		if _, err := tx.NamedExecContext(ctx, `INSERT INTO stocks (location, kind, quantity)
			VALUES (:location, :kind, :quantity)
			ON CONFLICT(location, kind) DO UPDATE SET quantity = excluded.quantity`, e); err != nil {
			return fmt.Errorf("save stock %s/%s: %w", e.Key, e.Kind, err)
		}
	}
	if t != nil {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO transfers (id, source, destination, kind, quantity, at) VALUES (?, ?, ?, ?, ?, ?)`,
			t.ID, t.Source, t.Dest, string(t.Kind), t.Quantity, t.At.UnixNano()); err != nil {
			return fmt.Errorf("save transfer: %w", err)
		}
	}
	return tx.Commit()
}

// SaveEvacuation upserts an evacuation request.
func (db *DB) SaveEvacuation(ctx context.Context, r model.EvacuationRequest) error {
	row := evacuationRow{
		ID: r.ID, ZoneID: r.ZoneID, Persons: r.Persons, Priority: r.Priority,
		State: r.State.String(), Seq: int64(r.Seq), CreatedAt: r.CreatedAt.UnixNano(),
		StartedAt: nullTime(r.StartedAt), CompletedAt: nullTime(r.CompletedAt),
	}
	_, err := db.conn.NamedExecContext(ctx, `INSERT INTO evacuations
		(id, zone_id, persons, priority, state, seq, created_at, started_at, completed_at)
		VALUES (:id, :zone_id, :persons, :priority, :state, :seq, :created_at, :started_at, :completed_at)
		ON CONFLICT(id) DO UPDATE SET
			state = excluded.state, started_at = excluded.started_at,
			completed_at = excluded.completed_at`, row)
	if err != nil {
		return fmt.Errorf("save evacuation: %w", err)
	}
	return nil
}

// SaveTeam upserts a team.
func (db *DB) SaveTeam(ctx context.Context, t model.Team) error {
	spec, err := json.Marshal(nonNil(t.Specialties))
	if err != nil {
		return err
	}
	row := teamRow{
		ID: t.ID, Name: t.Name, Type: string(t.Type), Members: t.Members,
		SpecialtiesJSON: string(spec), Available: t.Available, ZoneID: t.ZoneID,
	}
	_, err = db.conn.NamedExecContext(ctx, `INSERT INTO teams
		(id, name, type, members, specialties_json, available, zone_id)
		VALUES (:id, :name, :type, :members, :specialties_json, :available, :zone_id)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name, type = excluded.type, members = excluded.members,
			specialties_json = excluded.specialties_json, available = excluded.available,
			zone_id = excluded.zone_id`, row)
	if err != nil {
		return fmt.Errorf("save team: %w", err)
	}
	return nil
}

// Load reads back everything that was saved.
func (db *DB) Load(ctx context.Context) (store.Snapshot, error) {
	var snap store.Snapshot

	var zones []zoneRow
	if err := db.conn.SelectContext(ctx, &zones, `SELECT * FROM zones ORDER BY id`); err != nil {
		return snap, fmt.Errorf("load zones: %w", err)
	}
	for _, r := range zones {
		z := model.Zone{
			ID: r.ID, Name: r.Name, Type: model.ZoneType(r.Type),
			Population: r.Population, InitialPopulation: r.InitialPopulation,
			Risk: r.Risk, Evacuated: r.Evacuated,
		}
		if r.Lat.Valid && r.Lng.Valid {
			z.Position = &model.Position{Lat: r.Lat.Float64, Lng: r.Lng.Float64}
		}
		if err := json.Unmarshal([]byte(r.TeamsJSON), &z.Teams); err != nil {
			return snap, fmt.Errorf("zone %s teams: %w", r.ID, err)
		}
		snap.Zones = append(snap.Zones, z)
	}

	var routes []routeRow
	if err := db.conn.SelectContext(ctx, &routes, `SELECT * FROM routes ORDER BY id`); err != nil {
		return snap, fmt.Errorf("load routes: %w", err)
	}
	for _, r := range routes {
		snap.Routes = append(snap.Routes, model.Route(r))
	}

	if err := db.conn.SelectContext(ctx, &snap.Stocks,
		`SELECT location, kind, quantity FROM stocks ORDER BY location, kind`); err != nil {
		return snap, fmt.Errorf("load stocks: %w", err)
	}

	var evs []evacuationRow
	if err := db.conn.SelectContext(ctx, &evs, `SELECT * FROM evacuations ORDER BY seq`); err != nil {
		return snap, fmt.Errorf("load evacuations: %w", err)
	}
	for _, r := range evs {
		state, err := model.ParseEvacuationState(r.State)
		if err != nil {
			return snap, fmt.Errorf("evacuation %s: %w", r.ID, err)
		}
		snap.Evacuations = append(snap.Evacuations, model.EvacuationRequest{
			ID: r.ID, ZoneID: r.ZoneID, Persons: r.Persons, Priority: r.Priority,
			State: state, Seq: uint64(r.Seq), CreatedAt: time.Unix(0, r.CreatedAt).UTC(),
			StartedAt: timePtr(r.StartedAt), CompletedAt: timePtr(r.CompletedAt),
		})
	}

	var teams []teamRow
	if err := db.conn.SelectContext(ctx, &teams, `SELECT * FROM teams ORDER BY id`); err != nil {
		return snap, fmt.Errorf("load teams: %w", err)
	}
	for _, r := range teams {
		t := model.Team{
			ID: r.ID, Name: r.Name, Type: model.TeamType(r.Type), Members: r.Members,
			Available: r.Available, ZoneID: r.ZoneID,
		}
		if err := json.Unmarshal([]byte(r.SpecialtiesJSON), &t.Specialties); err != nil {
			return snap, fmt.Errorf("team %s specialties: %w", r.ID, err)
		}
		snap.Teams = append(snap.Teams, t)
	}
	return snap, nil
}

// Transfers returns recorded transfers between since and until, oldest first.
func (db *DB) Transfers(ctx context.Context, since, until time.Time) ([]model.Transfer, error) {
	rows, err := db.conn.QueryxContext(ctx,
		`SELECT id, source, destination, kind, quantity, at FROM transfers WHERE at >= ? AND at <= ? ORDER BY at`,
		since.UnixNano(), until.UnixNano())
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []model.Transfer
	for rows.Next() {
		var t model.Transfer
		var kind string
		var at int64
		if err := rows.Scan(&t.ID, &t.Source, &t.Dest, &kind, &t.Quantity, &at); err != nil {
			return nil, err
		}
		t.Kind = model.ResourceKind(kind)
		t.At = time.Unix(0, at).UTC()
		out = append(out, t)
	}
	return out, rows.Err()
}

func nullTime(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixNano(), Valid: true}
}

func timePtr(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := time.Unix(0, n.Int64).UTC()
	return &t
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
