package retrieval

import (
	"medbot-ai/internal/query"
	"medbot-ai/internal/vectorstore"
)

// Route is the routing decision for one classified query: which strategy to
// run, whether to consult the knowledge base first, and the concrete vector
// index requests to issue.
type Route struct {
	Strategy Strategy
	UseKB    bool
	Requests []Request
}

// routeRule is one row of the category routing table.
type routeRule struct {
	strategy       Strategy
	topK           int
	categoryFilter string
	useKB          bool
	recencyWindow  bool
}

// routeTable enumerates the strategy, filter template, and passage count for
// every query category. Routing is a table lookup, never inferred.
var routeTable = map[query.Category]routeRule{
	query.CategoryDrugInteraction: {
		strategy:       StrategyInteractionFocused,
		topK:           3,
		categoryFilter: "drug_interaction",
		useKB:          true,
	},
	query.CategorySymptom: {
		strategy:       StrategySymptomFocused,
		topK:           4,
		categoryFilter: "symptom",
		recencyWindow:  true,
	},
	query.CategoryChronicCare: {
		strategy:       StrategyHybrid,
		topK:           4,
		categoryFilter: "chronic_care",
		useKB:          true,
	},
	query.CategoryMentalHealth: {
		strategy:       StrategySymptomFocused,
		topK:           3,
		categoryFilter: "mental_health",
	},
	query.CategoryGeneral: {
		strategy: StrategyHybrid,
		topK:     5,
	},
	// Emergencies never reach the router in normal operation; the entry
	// keeps the table total.
	query.CategoryEmergency: {
		strategy: StrategyKBOnly,
	},
}

// escalationExtraK widens retrieval on feedback re-entry.
const escalationExtraK = 2

// Router turns a classification into a Route using the static table.
type Router struct {
	recencyCutoffDays int
	generalTopK       int
}

// NewRouter creates a router. recencyCutoffDays bounds how old a passage may
// be for strategies that apply a recency window; zero disables the window.
func NewRouter(recencyCutoffDays int) *Router {
	return &Router{recencyCutoffDays: recencyCutoffDays}
}

// WithGeneralTopK overrides the passage count for uncategorized queries.
// Zero keeps the table default.
func (r *Router) WithGeneralTopK(k int) *Router {
	r.generalTopK = k
	return r
}

// Route maps the classification to its strategy and builds the retrieval
// requests. A multi-condition hybrid query fans out into one request per
// condition. When escalated (feedback re-entry after a failed validation),
// the strategy widens to hybrid, category and recency constraints are
// dropped, and the passage count grows.
func (r *Router) Route(q query.Query, cls query.Classification, escalated bool) Route {
	rule, ok := routeTable[cls.Category]
	if !ok {
		rule = routeTable[query.CategoryGeneral]
	}
	if cls.Category == query.CategoryGeneral && r.generalTopK > 0 {
		rule.topK = r.generalTopK
	}

	if escalated {
		rule.strategy = StrategyHybrid
		rule.categoryFilter = ""
		rule.recencyWindow = false
		rule.topK += escalationExtraK
	}

	route := Route{
		Strategy: rule.strategy,
		UseKB:    rule.useKB,
	}

	if rule.strategy == StrategyKBOnly {
		return route
	}

	baseFilter := vectorstore.Filter{
		Category: rule.categoryFilter,
	}
	if rule.recencyWindow && r.recencyCutoffDays > 0 {
		baseFilter.MaxAgeDays = r.recencyCutoffDays
	}

	switch rule.strategy {
	case StrategyInteractionFocused:
		filter := baseFilter
		filter.Medications = q.Entities.Medications
		route.Requests = append(route.Requests, Request{
			Text:     q.Text,
			Filter:   filter,
			TopK:     rule.topK,
			Strategy: rule.strategy,
		})

	case StrategyHybrid:
		if len(q.Entities.Conditions) > 0 {
			for _, condition := range q.Entities.Conditions {
				filter := baseFilter
				filter.Conditions = []string{condition}
				route.Requests = append(route.Requests, Request{
					Text:     q.Text,
					Filter:   filter,
					TopK:     rule.topK,
					Strategy: rule.strategy,
				})
			}
		} else {
			route.Requests = append(route.Requests, Request{
				Text:     q.Text,
				Filter:   baseFilter,
				TopK:     rule.topK,
				Strategy: rule.strategy,
			})
		}

	default:
		route.Requests = append(route.Requests, Request{
			Text:     q.Text,
			Filter:   baseFilter,
			TopK:     rule.topK,
			Strategy: rule.strategy,
		})
	}

	return route
}
