package store

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/dealbook/internal/model"
)

type dialect int

const (
	dialectPostgres dialect = iota
	dialectSQLite
)

// sqlBuilder accumulates WHERE clauses and positional args for a dialect.
type sqlBuilder struct {
	dialect dialect
	clauses []string
	args    []any
}

func newBuilder(d dialect) *sqlBuilder {
	return &sqlBuilder{dialect: d}
}

// arg appends v and returns its placeholder.
func (b *sqlBuilder) arg(v any) string {
	b.args = append(b.args, v)
	if b.dialect == dialectPostgres {
		return fmt.Sprintf("$%d", len(b.args))
	}
	return "?"
}

// in renders "expr IN (...)" for the dialect. Postgres binds the whole list
// as one array arg.
func (b *sqlBuilder) in(expr string, vals []string) string {
	if b.dialect == dialectPostgres {
		return fmt.Sprintf("%s = ANY(%s)", expr, b.arg(vals))
	}
	ph := make([]string, len(vals))
	for i, v := range vals {
		ph[i] = b.arg(v)
	}
	return fmt.Sprintf("%s IN (%s)", expr, strings.Join(ph, ", "))
}

func (b *sqlBuilder) where(clause string) {
	b.clauses = append(b.clauses, clause)
}

// anyOf adds a single clause ORing the given parts. Empty parts are skipped.
func (b *sqlBuilder) anyOf(parts ...string) {
	var nonEmpty []string
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	if len(nonEmpty) > 0 {
		b.where("(" + strings.Join(nonEmpty, " OR ") + ")")
	}
}

func (b *sqlBuilder) sql(base, orderBy string) string {
	q := base
	if len(b.clauses) > 0 {
		q += " WHERE " + strings.Join(b.clauses, " AND ")
	}
	if orderBy != "" {
		q += " ORDER BY " + orderBy
	}
	return q
}

// foldKey renders col folded the way model.FoldKey folds a value. SQLite's
// LOWER only folds ASCII, so SQLite calls the Go function registered by
// NewSQLite. Postgres LOWER folds Unicode under a UTF-8 database but its
// TRIM only strips spaces, not other whitespace.
func (b *sqlBuilder) foldKey(col string) string {
	if b.dialect == dialectSQLite {
		return "fold_key(" + col + ")"
	}
	return "LOWER(TRIM(" + col + "))"
}

// foldSegment renders col folded the way model.FoldSegment folds a value.
// On Postgres, UPPER keeps characters whose uppercase form is longer
// (ß stays ß where the Go fold gives SS), so such parents only match there
// when stored already uppercased.
func (b *sqlBuilder) foldSegment(col string) string {
	if b.dialect == dialectSQLite {
		return "fold_segment(" + col + ")"
	}
	return "UPPER(TRIM(" + col + "))"
}

func foldAll(vals []string, fold func(string) string) []string {
	if len(vals) == 0 {
		return nil
	}
	out := make([]string, len(vals))
	for i, v := range vals {
		out[i] = fold(v)
	}
	return out
}

// inIfAny is in() for optional selectors: empty vals yield "".
func (b *sqlBuilder) inIfAny(expr string, vals []string) string {
	if len(vals) == 0 {
		return ""
	}
	return b.in(expr, vals)
}

const requestColumns = `id, name, merchant_name, contact_email, status, start_date, end_date,
	created_at, processed_at, deal_id, opportunity_id, owner_id,
	category_parent, category_sub1, category_sub2, category_sub3, category_sub4`

func buildRequestQuery(d dialect, f RequestFilter) (string, []any) {
	b := newBuilder(d)
	if len(f.IDs) > 0 {
		b.where(b.in("id", f.IDs))
	}
	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			statuses[i] = string(s)
		}
		b.where(b.in("status", statuses))
	}
	if len(f.ParentCategories) > 0 {
		b.where(b.in(b.foldSegment("category_parent"), foldAll(f.ParentCategories, model.FoldSegment)))
	}
	if f.HasDealID {
		b.where("deal_id IS NOT NULL AND deal_id <> ''")
	}
	if f.OwnerID != "" {
		b.where("owner_id = " + b.arg(f.OwnerID))
	}
	b.anyOf(
		b.inIfAny("opportunity_id", f.OpportunityIDs),
		b.inIfAny(b.foldKey("contact_email"), foldAll(f.ContactEmails, model.FoldKey)),
		b.inIfAny(b.foldKey("merchant_name"), foldAll(f.MerchantNames, model.FoldKey)),
	)
	return b.sql("SELECT "+requestColumns+" FROM booking_requests", "created_at DESC, id"), b.args
}

const businessColumns = `id, name, contact_email, vendor_id, owner_id, metrics_synced_at,
	category_parent, category_sub1, category_sub2, category_sub3, category_sub4`

func buildBusinessQuery(d dialect, f BusinessFilter) (string, []any) {
	b := newBuilder(d)
	b.anyOf(
		b.inIfAny("id", f.IDs),
		b.inIfAny(b.foldKey("contact_email"), foldAll(f.ContactEmails, model.FoldKey)),
		b.inIfAny(b.foldKey("name"), foldAll(f.Names, model.FoldKey)),
	)
	if f.OwnerID != "" {
		b.where("owner_id = " + b.arg(f.OwnerID))
	}
	return b.sql("SELECT "+businessColumns+" FROM businesses", "id"), b.args
}

func buildOpportunityQuery(d dialect, f OpportunityFilter) (string, []any) {
	b := newBuilder(d)
	b.anyOf(
		b.inIfAny("o.id", f.IDs),
		b.inIfAny("o.business_id", f.BusinessIDs),
	)
	base := `SELECT o.id, o.business_id,
	b.id, b.name, b.contact_email, b.vendor_id, b.owner_id, b.metrics_synced_at,
	b.category_parent, b.category_sub1, b.category_sub2, b.category_sub3, b.category_sub4
	FROM opportunities o LEFT JOIN businesses b ON b.id = o.business_id`
	return b.sql(base, "o.id"), b.args
}

const dealMetricColumns = `deal_id, vendor_id, business_id, net_revenue, run_at, end_at, synced_at`

func buildDealMetricQuery(d dialect, f DealMetricFilter) (string, []any) {
	b := newBuilder(d)
	b.anyOf(
		b.inIfAny("deal_id", f.DealIDs),
		b.inIfAny("business_id", f.BusinessIDs),
		b.inIfAny("vendor_id", f.VendorIDs),
	)
	return b.sql("SELECT "+dealMetricColumns+" FROM deal_metrics", "deal_id"), b.args
}

// rowScanner is satisfied by pgx.Rows, pgx.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(s rowScanner) (model.BookingRequest, error) {
	var r model.BookingRequest
	var status string
	err := s.Scan(
		&r.ID, &r.Name, &r.MerchantName, &r.ContactEmail, &status,
		&r.StartDate, &r.EndDate, &r.CreatedAt, &r.ProcessedAt,
		&r.DealID, &r.OpportunityID, &r.OwnerID,
		&r.Category.Parent, &r.Category.Sub1, &r.Category.Sub2, &r.Category.Sub3, &r.Category.Sub4,
	)
	if err != nil {
		return r, eris.Wrap(err, "scan booking request")
	}
	r.Status = model.RequestStatus(status)
	return r, nil
}

// businessDest holds scan targets for a business row, which may be NULL
// throughout when it comes from an outer join.
type businessDest struct {
	id, name, email, ownerID *string
	vendorID                 *string
	syncedAt                 *time.Time
	category                 model.CategoryPath
}

func (d *businessDest) targets() []any {
	return []any{
		&d.id, &d.name, &d.email, &d.vendorID, &d.ownerID, &d.syncedAt,
		&d.category.Parent, &d.category.Sub1, &d.category.Sub2, &d.category.Sub3, &d.category.Sub4,
	}
}

func (d *businessDest) business() *model.Business {
	if d.id == nil {
		return nil
	}
	b := &model.Business{
		ID:              *d.id,
		Name:            deref(d.name),
		ContactEmail:    deref(d.email),
		VendorID:        d.vendorID,
		OwnerID:         deref(d.ownerID),
		MetricsSyncedAt: d.syncedAt,
	}
	if hasCategory(d.category) {
		c := d.category
		b.Category = &c
	}
	return b
}

func scanBusiness(s rowScanner) (model.Business, error) {
	var d businessDest
	if err := s.Scan(d.targets()...); err != nil {
		return model.Business{}, eris.Wrap(err, "scan business")
	}
	b := d.business()
	if b == nil {
		return model.Business{}, eris.New("scan business: null id")
	}
	return *b, nil
}

func scanOpportunity(s rowScanner) (model.Opportunity, error) {
	var o model.Opportunity
	var d businessDest
	dest := append([]any{&o.ID, &o.BusinessID}, d.targets()...)
	if err := s.Scan(dest...); err != nil {
		return o, eris.Wrap(err, "scan opportunity")
	}
	o.Business = d.business()
	return o, nil
}

func scanDealMetric(s rowScanner) (model.DealMetric, error) {
	var m model.DealMetric
	err := s.Scan(&m.DealID, &m.VendorID, &m.BusinessID, &m.NetRevenue, &m.RunAt, &m.EndAt, &m.SyncedAt)
	if err != nil {
		return m, eris.Wrap(err, "scan deal metric")
	}
	return m, nil
}

func hasCategory(c model.CategoryPath) bool {
	for _, s := range c.Segments() {
		if s != nil {
			return true
		}
	}
	return false
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// dealMetricRow flattens a metric into upsert column order, with absent
// optional fields as untyped nils.
func dealMetricRow(m model.DealMetric) []any {
	return []any{
		m.DealID, nullable(m.VendorID), nullable(m.BusinessID), m.NetRevenue,
		nullable(m.RunAt), nullable(m.EndAt), m.SyncedAt,
	}
}

func nullable[T any](v *T) any {
	if v == nil {
		return nil
	}
	return *v
}

var dealMetricUpsertColumns = []string{"deal_id", "vendor_id", "business_id", "net_revenue", "run_at", "end_at", "synced_at"}
