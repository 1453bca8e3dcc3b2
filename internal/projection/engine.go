// Package projection estimates the revenue booking requests will generate
// and rolls the estimates up per business or opportunity.
//
// Each request gets exactly one estimate from a cascade of evidence:
// realized deal revenue, then the median of its business's recent deals,
// then the median of recent booked deals in its category.
package projection

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/dealbook/internal/auth"
	"github.com/sells-group/dealbook/internal/model"
	"github.com/sells-group/dealbook/internal/store"
)

// activeStatuses are the statuses that count as money in motion.
var activeStatuses = []model.RequestStatus{
	model.RequestStatusDraft,
	model.RequestStatusPending,
	model.RequestStatusApproved,
	model.RequestStatusBooked,
}

// Engine runs the projection pipeline behind the exported entry points.
type Engine struct {
	store    Store
	identity auth.Resolver
	settings Settings
	cache    *SummaryCache
	now      func() time.Time
}

// NewEngine creates an engine. Returns nil if st is nil.
func NewEngine(st Store, identity auth.Resolver, settings Settings) *Engine {
	if st == nil {
		return nil
	}
	if identity == nil {
		identity = auth.ContextResolver
	}
	settings = settings.withDefaults()
	return &Engine{
		store:    st,
		identity: identity,
		settings: settings,
		cache:    NewSummaryCache(settings.CacheTTL),
		now:      time.Now,
	}
}

// run is the output of one pipeline execution.
type run struct {
	rows     []model.ProjectionRow
	evidence Evidence
}

// project runs the pipeline for reqs. extra businesses are always part of
// the matching index and of the history/benchmark scope, ahead of any
// business found by contact lookup.
func (e *Engine) project(ctx context.Context, reqs []model.BookingRequest, extra []model.Business) (*run, error) {
	start := time.Now()

	var oppIDs, emails, names, dealIDs []string
	for _, r := range reqs {
		if r.OpportunityID != nil {
			oppIDs = append(oppIDs, *r.OpportunityID)
		}
		emails = append(emails, normalizeKey(r.ContactEmail))
		names = append(names, normalizeKey(r.MerchantName))
		if r.DealID != nil {
			dealIDs = append(dealIDs, *r.DealID)
		}
	}

	var (
		opps     []model.Opportunity
		contacts []model.Business
		actuals  map[string]model.DealMetric
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ids := uniqueStrings(oppIDs)
		if len(ids) == 0 {
			return nil
		}
		var err error
		opps, err = e.store.ListOpportunities(gctx, store.OpportunityFilter{IDs: ids})
		return eris.Wrap(err, "projection: load opportunities")
	})
	g.Go(func() error {
		var err error
		contacts, err = e.store.ListBusinesses(gctx, store.BusinessFilter{
			ContactEmails: uniqueStrings(emails),
			Names:         uniqueStrings(names),
		})
		return eris.Wrap(err, "projection: load businesses")
	})
	g.Go(func() error {
		var err error
		actuals, err = fetchDealMetrics(gctx, e.store, uniqueStrings(dealIDs), e.settings.FactBatchSize, e.settings.FetchConcurrency)
		return eris.Wrap(err, "projection: load actuals")
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	candidates := make([]model.Business, 0, len(extra)+len(contacts))
	candidates = append(candidates, extra...)
	candidates = append(candidates, contacts...)
	matcher := NewMatcher(opps, candidates)

	matches := make([]*model.Business, len(reqs))
	scope := newBusinessSet()
	for i := range extra {
		scope.add(&extra[i])
	}
	for i, r := range reqs {
		m, ok := matcher.Match(r)
		if !ok {
			continue
		}
		matches[i] = m.Business
		scope.add(m.Business)
		zap.L().Debug("projection: request matched",
			zap.String("request_id", r.ID),
			zap.String("business_id", m.Business.ID),
			zap.String("strategy", string(m.Strategy)),
		)
	}

	var parents []string
	for _, r := range reqs {
		parents = append(parents, normalizeParent(&r.Category))
	}
	for _, b := range scope.list {
		parents = append(parents, normalizeParent(b.Category))
	}

	ev := Evidence{Actuals: actuals}
	g, gctx = errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		ev.Benchmarks, err = BuildCategoryBenchmarks(gctx, e.store, parents, e.settings, e.now())
		return err
	})
	g.Go(func() error {
		var err error
		ev.History, err = BuildBusinessHistory(gctx, e.store, scope.values(), e.settings)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	rows := make([]model.ProjectionRow, len(reqs))
	bySource := make(map[model.ProjectionSource]int)
	for i, r := range reqs {
		rows[i] = ev.BuildRow(r, matches[i])
		bySource[rows[i].Source]++
	}

	zap.L().Info("projection: pipeline complete",
		zap.Int("requests", len(reqs)),
		zap.Int("businesses", len(scope.list)),
		zap.Int("actual_deal", bySource[model.SourceActualDeal]),
		zap.Int("business_history", bySource[model.SourceBusinessHistory]),
		zap.Int("category_benchmark", bySource[model.SourceCategoryBenchmark]),
		zap.Int("none", bySource[model.SourceNone]),
		zap.Duration("elapsed", time.Since(start)),
	)

	return &run{rows: rows, evidence: ev}, nil
}

// businessSet is an insertion-ordered set of businesses keyed by id.
type businessSet struct {
	byID map[string]*model.Business
	list []*model.Business
}

func newBusinessSet() *businessSet {
	return &businessSet{byID: make(map[string]*model.Business)}
}

func (s *businessSet) add(b *model.Business) {
	if b == nil || b.ID == "" {
		return
	}
	if _, ok := s.byID[b.ID]; ok {
		return
	}
	s.byID[b.ID] = b
	s.list = append(s.list, b)
}

func (s *businessSet) values() []model.Business {
	out := make([]model.Business, len(s.list))
	for i, b := range s.list {
		out[i] = *b
	}
	return out
}

// resolve returns the caller and whether it may see any data. Resolver
// failures are treated as an anonymous caller.
func (e *Engine) resolve(ctx context.Context) (auth.Identity, bool) {
	id, err := e.identity.Resolve(ctx)
	if err != nil {
		zap.L().Debug("projection: identity unresolved", zap.Error(err))
		return auth.Anonymous, false
	}
	return id, id.CanView()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
