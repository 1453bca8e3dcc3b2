package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/dealbook/internal/db"
	"github.com/sells-group/dealbook/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool. The caller keeps ownership.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS businesses (
	id                TEXT PRIMARY KEY,
	name              TEXT NOT NULL,
	contact_email     TEXT NOT NULL DEFAULT '',
	vendor_id         TEXT,
	owner_id          TEXT NOT NULL DEFAULT '',
	metrics_synced_at TIMESTAMPTZ,
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
	start_date      TIMESTAMPTZ,
	end_date        TIMESTAMPTZ,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	processed_at    TIMESTAMPTZ,
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
	net_revenue DOUBLE PRECISION NOT NULL DEFAULT 0,
	run_at      TIMESTAMPTZ,
	end_at      TIMESTAMPTZ,
	synced_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_businesses_email ON businesses(LOWER(TRIM(contact_email)));
CREATE INDEX IF NOT EXISTS idx_businesses_name ON businesses(LOWER(TRIM(name)));
CREATE INDEX IF NOT EXISTS idx_businesses_owner ON businesses(owner_id);
CREATE INDEX IF NOT EXISTS idx_requests_status ON booking_requests(status);
CREATE INDEX IF NOT EXISTS idx_requests_owner ON booking_requests(owner_id);
CREATE INDEX IF NOT EXISTS idx_requests_opportunity ON booking_requests(opportunity_id);
CREATE INDEX IF NOT EXISTS idx_requests_parent ON booking_requests(UPPER(TRIM(category_parent)));
CREATE INDEX IF NOT EXISTS idx_deal_metrics_business ON deal_metrics(business_id);
CREATE INDEX IF NOT EXISTS idx_deal_metrics_vendor ON deal_metrics(vendor_id);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) ListBookingRequests(ctx context.Context, filter RequestFilter) ([]model.BookingRequest, error) {
	query, args := buildRequestQuery(dialectPostgres, filter)
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list booking requests")
	}
	defer rows.Close()

	var out []model.BookingRequest
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: list booking requests")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list booking requests iterate")
}

func (s *PostgresStore) ListBusinesses(ctx context.Context, filter BusinessFilter) ([]model.Business, error) {
	if filter.empty() {
		return nil, nil
	}
	query, args := buildBusinessQuery(dialectPostgres, filter)
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list businesses")
	}
	defer rows.Close()

	var out []model.Business
	for rows.Next() {
		b, err := scanBusiness(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: list businesses")
		}
		out = append(out, b)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list businesses iterate")
}

func (s *PostgresStore) ListOpportunities(ctx context.Context, filter OpportunityFilter) ([]model.Opportunity, error) {
	if filter.empty() {
		return nil, nil
	}
	query, args := buildOpportunityQuery(dialectPostgres, filter)
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list opportunities")
	}
	defer rows.Close()

	var out []model.Opportunity
	for rows.Next() {
		o, err := scanOpportunity(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: list opportunities")
		}
		out = append(out, o)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list opportunities iterate")
}

func (s *PostgresStore) ListDealMetrics(ctx context.Context, filter DealMetricFilter) ([]model.DealMetric, error) {
	if filter.empty() {
		return nil, nil
	}
	query, args := buildDealMetricQuery(dialectPostgres, filter)
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list deal metrics")
	}
	defer rows.Close()

	var out []model.DealMetric
	for rows.Next() {
		m, err := scanDealMetric(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: list deal metrics")
		}
		out = append(out, m)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list deal metrics iterate")
}

func (s *PostgresStore) UpsertDealMetrics(ctx context.Context, metrics []model.DealMetric) (int64, error) {
	rows := make([][]any, len(metrics))
	for i, m := range metrics {
		rows[i] = dealMetricRow(m)
	}
	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "deal_metrics",
		Columns:      dealMetricUpsertColumns,
		ConflictKeys: []string{"deal_id"},
	}, rows)
	return n, eris.Wrap(err, "postgres: upsert deal metrics")
}
