package projection

import (
	"context"

	"github.com/sells-group/dealbook/internal/model"
	"github.com/sells-group/dealbook/internal/store"
)

// Service is the read surface of the projection engine.
type Service interface {
	RequestProjections(ctx context.Context, ids []string) Result[map[string]model.ProjectionRow]
	BusinessSummaries(ctx context.Context, ids []string) Result[Summaries]
	OpportunitySummaries(ctx context.Context, ids []string) Result[Summaries]
	Dashboard(ctx context.Context) Result[model.Dashboard]
}

var _ Service = (*Engine)(nil)

// RequestProjections returns the projection row for each requested booking
// request id. Ids the caller cannot see, or that do not exist, map to an
// empty row.
func (e *Engine) RequestProjections(ctx context.Context, ids []string) Result[map[string]model.ProjectionRow] {
	id, allowed := e.resolve(ctx)
	if !allowed {
		return ok(map[string]model.ProjectionRow{})
	}

	ids = uniqueStrings(ids)
	out := make(map[string]model.ProjectionRow, len(ids))
	if len(ids) == 0 {
		return ok(out)
	}

	reqs, err := e.store.ListBookingRequests(ctx, store.RequestFilter{IDs: ids, OwnerID: id.OwnerScope()})
	if err != nil {
		return failed[map[string]model.ProjectionRow]("request projections", err)
	}
	r, err := e.project(ctx, reqs, nil)
	if err != nil {
		return failed[map[string]model.ProjectionRow]("request projections", err)
	}

	for _, row := range r.rows {
		out[row.RequestID] = row
	}
	for _, reqID := range ids {
		if _, found := out[reqID]; !found {
			out[reqID] = model.ProjectionRow{
				RequestID:  reqID,
				Source:     model.SourceNone,
				Confidence: model.ConfidenceNone,
				Bucket:     model.BucketOther,
			}
		}
	}
	return ok(out)
}

// BusinessSummaries returns one summary per requested business id. Results
// are cached per role scope and id set.
func (e *Engine) BusinessSummaries(ctx context.Context, ids []string) Result[Summaries] {
	id, allowed := e.resolve(ctx)
	if !allowed {
		return ok(Summaries{})
	}

	ids = uniqueStrings(ids)
	if len(ids) == 0 {
		return ok(Summaries{})
	}

	key := SummaryCacheKey(id, ids)
	sums, err := e.cache.GetOrCompute(ctx, key, func(ctx context.Context) (Summaries, error) {
		return e.businessSummaries(ctx, id.OwnerScope(), ids)
	})
	if err != nil {
		return failed[Summaries]("business summaries", err)
	}
	return ok(sums)
}

func (e *Engine) businessSummaries(ctx context.Context, owner string, ids []string) (Summaries, error) {
	businesses, err := e.store.ListBusinesses(ctx, store.BusinessFilter{IDs: ids, OwnerID: owner})
	if err != nil {
		return nil, err
	}
	if len(businesses) == 0 {
		return Summarize(nil, ids, businessKey, nil), nil
	}

	visible := make([]string, len(businesses))
	var emails, names []string
	for i, b := range businesses {
		visible[i] = b.ID
		emails = append(emails, normalizeKey(b.ContactEmail))
		names = append(names, normalizeKey(b.Name))
	}

	opps, err := e.store.ListOpportunities(ctx, store.OpportunityFilter{BusinessIDs: visible})
	if err != nil {
		return nil, err
	}
	oppIDs := make([]string, len(opps))
	for i, o := range opps {
		oppIDs[i] = o.ID
	}

	filter := store.RequestFilter{
		Statuses:       activeStatuses,
		OwnerID:        owner,
		OpportunityIDs: oppIDs,
		ContactEmails:  uniqueStrings(emails),
		MerchantNames:  uniqueStrings(names),
	}
	var reqs []model.BookingRequest
	if len(filter.OpportunityIDs)+len(filter.ContactEmails)+len(filter.MerchantNames) > 0 {
		reqs, err = e.store.ListBookingRequests(ctx, filter)
		if err != nil {
			return nil, err
		}
	}

	r, err := e.project(ctx, reqs, businesses)
	if err != nil {
		return nil, err
	}

	entities := make(map[string]*model.Business, len(businesses))
	for i := range businesses {
		entities[businesses[i].ID] = &businesses[i]
	}
	return Summarize(r.rows, ids, businessKey, r.evidence.businessFallback(entities)), nil
}

// OpportunitySummaries returns one summary per requested opportunity id.
func (e *Engine) OpportunitySummaries(ctx context.Context, ids []string) Result[Summaries] {
	id, allowed := e.resolve(ctx)
	if !allowed {
		return ok(Summaries{})
	}

	ids = uniqueStrings(ids)
	if len(ids) == 0 {
		return ok(Summaries{})
	}

	sums, err := e.opportunitySummaries(ctx, id.OwnerScope(), ids)
	if err != nil {
		return failed[Summaries]("opportunity summaries", err)
	}
	return ok(sums)
}

func (e *Engine) opportunitySummaries(ctx context.Context, owner string, ids []string) (Summaries, error) {
	opps, err := e.store.ListOpportunities(ctx, store.OpportunityFilter{IDs: ids})
	if err != nil {
		return nil, err
	}
	reqs, err := e.store.ListBookingRequests(ctx, store.RequestFilter{
		Statuses:       activeStatuses,
		OwnerID:        owner,
		OpportunityIDs: ids,
	})
	if err != nil {
		return nil, err
	}

	entities := make(map[string]*model.Business, len(opps))
	var extra []model.Business
	for _, o := range opps {
		if o.Business == nil || (owner != "" && o.Business.OwnerID != owner) {
			continue
		}
		entities[o.ID] = o.Business
		extra = append(extra, *o.Business)
	}

	r, err := e.project(ctx, reqs, extra)
	if err != nil {
		return nil, err
	}
	return Summarize(r.rows, ids, opportunityKey, r.evidence.businessFallback(entities)), nil
}

// Dashboard returns every in-process or booked request visible to the
// caller with its projection, plus the rolled-up totals.
func (e *Engine) Dashboard(ctx context.Context) Result[model.Dashboard] {
	id, allowed := e.resolve(ctx)
	if !allowed {
		return ok(emptyDashboard())
	}

	reqs, err := e.store.ListBookingRequests(ctx, store.RequestFilter{
		Statuses: activeStatuses,
		OwnerID:  id.OwnerScope(),
	})
	if err != nil {
		return failed[model.Dashboard]("dashboard", err)
	}
	r, err := e.project(ctx, reqs, nil)
	if err != nil {
		return failed[model.Dashboard]("dashboard", err)
	}

	return ok(model.Dashboard{Rows: r.rows, Summary: SummarizeDashboard(r.rows)})
}

func businessKey(row model.ProjectionRow) string    { return deref(row.BusinessID) }
func opportunityKey(row model.ProjectionRow) string { return deref(row.OpportunityID) }
