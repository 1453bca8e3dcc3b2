package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"sync"

	"github.com/rotisserie/eris"
	"modernc.org/sqlite"

	"github.com/sells-group/dealbook/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// registerFoldFuncs makes model.FoldKey and model.FoldSegment callable from
// SQL as fold_key and fold_segment. Registration is process-wide and
// applies to connections opened afterwards.
var registerFoldFuncs = sync.OnceValue(func() error {
	funcs := []struct {
		name string
		fold func(string) string
	}{
		{"fold_key", model.FoldKey},
		{"fold_segment", model.FoldSegment},
	}
	for _, f := range funcs {
		if err := sqlite.RegisterDeterministicScalarFunction(f.name, 1, sqlFold(f.fold)); err != nil {
			return eris.Wrapf(err, "sqlite: register %s", f.name)
		}
	}
	return nil
})

func sqlFold(fold func(string) string) func(*sqlite.FunctionContext, []driver.Value) (driver.Value, error) {
	return func(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
		switch v := args[0].(type) {
		case string:
			return fold(v), nil
		case []byte:
			return fold(string(v)), nil
		default:
			return v, nil
		}
	}
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	if err := registerFoldFuncs(); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS businesses (
	id                TEXT PRIMARY KEY,
	name              TEXT NOT NULL,
	contact_email     TEXT NOT NULL DEFAULT '',
	vendor_id         TEXT,
	owner_id          TEXT NOT NULL DEFAULT '',
	metrics_synced_at DATETIME,
	category_parent   TEXT,
	category_sub1     TEXT,
	category_sub2     TEXT,
	category_sub3     TEXT,
	category_sub4     TEXT
);

CREATE TABLE IF NOT EXISTS opportunities (
	id          TEXT PRIMARY KEY,
	business_id TEXT REFERENCES businesses(id)
);

CREATE TABLE IF NOT EXISTS booking_requests (
	id              TEXT PRIMARY KEY,
	name            TEXT NOT NULL DEFAULT '',
	merchant_name   TEXT NOT NULL DEFAULT '',
	contact_email   TEXT NOT NULL DEFAULT '',
	status          TEXT NOT NULL DEFAULT 'draft',
	start_date      DATETIME,
	end_date        DATETIME,
	created_at      DATETIME NOT NULL DEFAULT (datetime('now')),
	processed_at    DATETIME,
	deal_id         TEXT,
	opportunity_id  TEXT,
	owner_id        TEXT NOT NULL DEFAULT '',
	category_parent TEXT,
	category_sub1   TEXT,
	category_sub2   TEXT,
	category_sub3   TEXT,
	category_sub4   TEXT
);

CREATE TABLE IF NOT EXISTS deal_metrics (
	deal_id     TEXT PRIMARY KEY,
	vendor_id   TEXT,
	business_id TEXT,
	net_revenue REAL NOT NULL DEFAULT 0,
	run_at      DATETIME,
	end_at      DATETIME,
	synced_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_businesses_owner ON businesses(owner_id);
CREATE INDEX IF NOT EXISTS idx_requests_status ON booking_requests(status);
CREATE INDEX IF NOT EXISTS idx_requests_owner ON booking_requests(owner_id);
CREATE INDEX IF NOT EXISTS idx_requests_opportunity ON booking_requests(opportunity_id);
CREATE INDEX IF NOT EXISTS idx_deal_metrics_business ON deal_metrics(business_id);
CREATE INDEX IF NOT EXISTS idx_deal_metrics_vendor ON deal_metrics(vendor_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// queryAll runs query and scans every row with scan.
func queryAll[T any](ctx context.Context, db *sql.DB, query string, args []any, scan func(rowScanner) (T, error)) ([]T, error) {
	rows, err := db.QueryContext(ctx, query, args...)
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

func (s *SQLiteStore) ListBookingRequests(ctx context.Context, filter RequestFilter) ([]model.BookingRequest, error) {
	query, args := buildRequestQuery(dialectSQLite, filter)
	out, err := queryAll(ctx, s.db, query, args, scanRequest)
	return out, eris.Wrap(err, "sqlite: list booking requests")
}

func (s *SQLiteStore) ListBusinesses(ctx context.Context, filter BusinessFilter) ([]model.Business, error) {
	if filter.empty() {
		return nil, nil
	}
	query, args := buildBusinessQuery(dialectSQLite, filter)
	out, err := queryAll(ctx, s.db, query, args, scanBusiness)
	return out, eris.Wrap(err, "sqlite: list businesses")
}

func (s *SQLiteStore) ListOpportunities(ctx context.Context, filter OpportunityFilter) ([]model.Opportunity, error) {
	if filter.empty() {
		return nil, nil
	}
	query, args := buildOpportunityQuery(dialectSQLite, filter)
	out, err := queryAll(ctx, s.db, query, args, scanOpportunity)
	return out, eris.Wrap(err, "sqlite: list opportunities")
}

func (s *SQLiteStore) ListDealMetrics(ctx context.Context, filter DealMetricFilter) ([]model.DealMetric, error) {
	if filter.empty() {
		return nil, nil
	}
	query, args := buildDealMetricQuery(dialectSQLite, filter)
	out, err := queryAll(ctx, s.db, query, args, scanDealMetric)
	return out, eris.Wrap(err, "sqlite: list deal metrics")
}

const sqliteUpsertDealMetric = `INSERT INTO deal_metrics (deal_id, vendor_id, business_id, net_revenue, run_at, end_at, synced_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(deal_id) DO UPDATE SET
	vendor_id = excluded.vendor_id,
	business_id = excluded.business_id,
	net_revenue = excluded.net_revenue,
	run_at = excluded.run_at,
	end_at = excluded.end_at,
	synced_at = excluded.synced_at`

func (s *SQLiteStore) UpsertDealMetrics(ctx context.Context, metrics []model.DealMetric) (int64, error) {
	if len(metrics) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: upsert deal metrics: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, sqliteUpsertDealMetric)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: upsert deal metrics: prepare")
	}
	defer stmt.Close()

	var n int64
	for _, m := range metrics {
		res, err := stmt.ExecContext(ctx, dealMetricRow(m)...)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: upsert deal metric %s", m.DealID)
		}
		affected, _ := res.RowsAffected()
		n += affected
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: upsert deal metrics: commit")
	}
	return n, nil
}
