package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // driver: pgx
	_ "modernc.org/sqlite"             // driver: sqlite

	"github.com/okian/verdict/internal/domain/model"
)

// Driver selects the SQL dialect.
type Driver string

const (
	DriverSQLite   Driver = BackendSQLite
	DriverPostgres Driver = BackendPostgres
)

const (
	defaultSQLiteDSN   = "file:verdict.db?cache=shared&mode=rwc&_pragma=busy_timeout(5000)"
	defaultPostgresDSN = "postgres://localhost:5432/verdict?sslmode=disable"
)

// SQLStore keeps assignments and records as JSON documents in a SQL database.
type SQLStore struct {
	db      *sql.DB
	backend string
}

var _ Repository = (*SQLStore)(nil)

// OpenSQL opens the database and ensures the schema exists.
func OpenSQL(ctx context.Context, driver Driver, dsn string) (*SQLStore, error) {
	var drvName string
	switch driver {
	case DriverSQLite:
		drvName = "sqlite"
		if dsn == "" {
			dsn = defaultSQLiteDSN
		}
	case DriverPostgres:
		drvName = "pgx"
		if dsn == "" {
			dsn = defaultPostgresDSN
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, driver)
	}

	db, err := sql.Open(drvName, dsn)
	if err != nil {
		return nil, wrap(string(driver), "open", err)
	}
	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, wrap(string(driver), "ping", err)
	}
	if err := ensureSchema(ctx, db, driver); err != nil {
		_ = db.Close()
		return nil, wrap(string(driver), "schema", err)
	}
	return &SQLStore{db: db, backend: string(driver)}, nil
}

func ensureSchema(ctx context.Context, db *sql.DB, driver Driver) error {
	schema := schemaSQLite
	if driver == DriverPostgres {
		schema = schemaPostgres
	}
	_, err := db.ExecContext(ctx, schema)
	return err
}

const schemaSQLite = `
CREATE TABLE IF NOT EXISTS assignments (
  id TEXT PRIMARY KEY,
  assessor_id TEXT NOT NULL,
  case_study TEXT NOT NULL,
  subject_json TEXT NOT NULL,
  created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS records (
  assignment_id TEXT PRIMARY KEY REFERENCES assignments(id),
  state TEXT NOT NULL,
  data TEXT NOT NULL,
  updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS event_log (
  seq INTEGER PRIMARY KEY AUTOINCREMENT,
  key TEXT NOT NULL,
  typ TEXT NOT NULL,
  data TEXT NOT NULL,
  created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS event_log_key ON event_log (key, seq);
`

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS assignments (
  id TEXT PRIMARY KEY,
  assessor_id TEXT NOT NULL,
  case_study TEXT NOT NULL,
  subject_json TEXT NOT NULL,
  created_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS records (
  assignment_id TEXT PRIMARY KEY REFERENCES assignments(id),
  state TEXT NOT NULL,
  data TEXT NOT NULL,
  updated_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS event_log (
  seq BIGSERIAL PRIMARY KEY,
  key TEXT NOT NULL,
  typ TEXT NOT NULL,
  data TEXT NOT NULL,
  created_at BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS event_log_key ON event_log (key, seq);
`

func (s *SQLStore) GetAssignment(ctx context.Context, id string) (model.Assignment, error) {
	start := time.Now()
	row := s.db.QueryRowContext(ctx,
		`SELECT id, assessor_id, case_study, subject_json, created_at FROM assignments WHERE id=$1`, id)
	a, err := scanAssignment(row)
	if errors.Is(err, sql.ErrNoRows) {
		err = ErrNotFound
	}
	err = wrap(s.backend, "get_assignment", err)
	observe(s.backend, "get_assignment", start, err)
	return a, err
}

func (s *SQLStore) PutAssignment(ctx context.Context, a model.Assignment) error {
	start := time.Now()
	subject, err := json.Marshal(a.Subject)
	if err == nil {
		_, err = s.db.ExecContext(ctx, `INSERT INTO assignments (id, assessor_id, case_study, subject_json, created_at)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (id) DO UPDATE SET assessor_id=EXCLUDED.assessor_id, case_study=EXCLUDED.case_study, subject_json=EXCLUDED.subject_json`,
			a.ID, a.AssessorID, a.CaseStudy, string(subject), a.CreatedAt.UnixNano())
	}
	err = wrap(s.backend, "put_assignment", err)
	observe(s.backend, "put_assignment", start, err)
	return err
}

func (s *SQLStore) ListAssignments(ctx context.Context, f ListFilter) ([]model.Assignment, error) {
	start := time.Now()
	out, err := s.listAssignments(ctx, f)
	err = wrap(s.backend, "list_assignments", err)
	observe(s.backend, "list_assignments", start, err)
	return out, err
}

func (s *SQLStore) listAssignments(ctx context.Context, f ListFilter) ([]model.Assignment, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT a.id, a.assessor_id, a.case_study, a.subject_json, a.created_at
		FROM assignments a LEFT JOIN records r ON r.assignment_id = a.id
		WHERE ($1 = '' OR a.assessor_id = $1)
		  AND ($2 = '' OR COALESCE(r.state, 'not_started') = $2)
		ORDER BY a.created_at, a.id`, f.AssessorID, string(f.State))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Assignment{}
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *SQLStore) LoadRecord(ctx context.Context, assignmentID string) (model.Record, error) {
	start := time.Now()
	var (
		r    model.Record
		data string
	)
	err := s.db.QueryRowContext(ctx, `SELECT data FROM records WHERE assignment_id=$1`, assignmentID).Scan(&data)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		err = ErrNotFound
	case err == nil:
		err = json.Unmarshal([]byte(data), &r)
	}
	err = wrap(s.backend, "load_record", err)
	observe(s.backend, "load_record", start, err)
	return r, err
}

func (s *SQLStore) SaveRecord(ctx context.Context, r model.Record) error {
	return s.putRecord(ctx, "save_record", r)
}

func (s *SQLStore) SubmitRecord(ctx context.Context, r model.Record) error {
	return s.putRecord(ctx, "submit_record", r)
}

func (s *SQLStore) putRecord(ctx context.Context, op string, r model.Record) error {
	start := time.Now()
	data, err := json.Marshal(r)
	if err == nil {
		_, err = s.db.ExecContext(ctx, `INSERT INTO records (assignment_id, state, data, updated_at)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (assignment_id) DO UPDATE SET state=EXCLUDED.state, data=EXCLUDED.data, updated_at=EXCLUDED.updated_at`,
			r.AssignmentID, string(r.State), string(data), r.UpdatedAt.UnixNano())
	}
	err = wrap(s.backend, op, err)
	observe(s.backend, op, start, err)
	return err
}

func (s *SQLStore) Append(ctx context.Context, ev model.LifecycleEvent) error {
	data, err := json.Marshal(ev)
	if err == nil {
		_, err = s.db.ExecContext(ctx, `INSERT INTO event_log (key, typ, data, created_at) VALUES ($1,$2,$3,$4)`,
			ev.AssignmentID, string(ev.Transition), string(data), ev.OccurredAt.UnixNano())
	}
	return wrap(s.backend, "append_event", err)
}

func (s *SQLStore) History(ctx context.Context, assignmentID string) ([]model.LifecycleEvent, error) {
	out, err := s.history(ctx, assignmentID)
	return out, wrap(s.backend, "history", err)
}

func (s *SQLStore) history(ctx context.Context, assignmentID string) ([]model.LifecycleEvent, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT data FROM event_log WHERE key=$1 ORDER BY seq`, assignmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.LifecycleEvent{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var ev model.LifecycleEvent
		if err := json.Unmarshal([]byte(data), &ev); err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// Close closes the database handle.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAssignment(sc scanner) (model.Assignment, error) {
	var (
		a       model.Assignment
		subject string
		created int64
	)
	if err := sc.Scan(&a.ID, &a.AssessorID, &a.CaseStudy, &subject, &created); err != nil {
		return model.Assignment{}, err
	}
	if err := json.Unmarshal([]byte(subject), &a.Subject); err != nil {
		return model.Assignment{}, err
	}
	a.CreatedAt = time.Unix(0, created).UTC()
	return a, nil
}
