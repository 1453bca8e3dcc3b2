package projection

import (
	"github.com/sells-group/dealbook/internal/model"
)

// MatchStrategy names how a request was linked to a business.
type MatchStrategy string

const (
	MatchOpportunity  MatchStrategy = "opportunity"
	MatchEmail        MatchStrategy = "email"
	MatchMerchantName MatchStrategy = "merchant_name"
)

// Match is a resolved request → business link.
type Match struct {
	Business *model.Business
	Strategy MatchStrategy
}

// resolver tries one matching strategy; nil means no match.
type resolver struct {
	strategy MatchStrategy
	resolve  func(req model.BookingRequest) *model.Business
}

// Matcher links booking requests to businesses using prioritized
// strategies: the linked opportunity's business, then the contact email,
// then the merchant name. The first strategy to match wins.
type Matcher struct {
	resolvers []resolver
}

// NewMatcher indexes businesses by id, normalized contact email and
// normalized name. When two businesses share a key the first one wins.
func NewMatcher(opportunities []model.Opportunity, businesses []model.Business) *Matcher {
	byID := make(map[string]*model.Business, len(businesses))
	byEmail := make(map[string]*model.Business, len(businesses))
	byName := make(map[string]*model.Business, len(businesses))
	for i := range businesses {
		b := &businesses[i]
		if _, ok := byID[b.ID]; !ok {
			byID[b.ID] = b
		}
		if k := normalizeKey(b.ContactEmail); k != "" {
			if _, ok := byEmail[k]; !ok {
				byEmail[k] = b
			}
		}
		if k := normalizeKey(b.Name); k != "" {
			if _, ok := byName[k]; !ok {
				byName[k] = b
			}
		}
	}

	opps := make(map[string]model.Opportunity, len(opportunities))
	for _, o := range opportunities {
		opps[o.ID] = o
	}

	return &Matcher{resolvers: []resolver{
		{MatchOpportunity, opportunityResolver(opps, byID)},
		{MatchEmail, keyResolver(byEmail, func(r model.BookingRequest) string { return r.ContactEmail })},
		{MatchMerchantName, keyResolver(byName, func(r model.BookingRequest) string { return r.MerchantName })},
	}}
}

// Match returns the business req belongs to, if any strategy finds one.
func (m *Matcher) Match(req model.BookingRequest) (Match, bool) {
	for _, r := range m.resolvers {
		if b := r.resolve(req); b != nil {
			return Match{Business: b, Strategy: r.strategy}, true
		}
	}
	return Match{}, false
}

func opportunityResolver(opps map[string]model.Opportunity, byID map[string]*model.Business) func(model.BookingRequest) *model.Business {
	return func(req model.BookingRequest) *model.Business {
		if req.OpportunityID == nil {
			return nil
		}
		opp, ok := opps[*req.OpportunityID]
		if !ok {
			return nil
		}
		if opp.BusinessID != nil {
			if b, ok := byID[*opp.BusinessID]; ok {
				return b
			}
		}
		if opp.Business != nil && opp.Business.ID != "" {
			return opp.Business
		}
		return nil
	}
}

func keyResolver(index map[string]*model.Business, field func(model.BookingRequest) string) func(model.BookingRequest) *model.Business {
	return func(req model.BookingRequest) *model.Business {
		k := normalizeKey(field(req))
		if k == "" {
			return nil
		}
		return index[k]
	}
}
