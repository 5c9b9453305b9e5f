package scanner

import (
	"fmt"

	"JobsScanner/internal/domain"
)

// Listing selectors shared by every scope family.
const (
	TitleSelector   = ".jtitle"
	SnippetSelector = ".jobsnippet .fp-snippet"
	TimeSelector    = "time"
)

// Strategy describes how one scope family is addressed and parsed.
type Strategy struct {
	Kind domain.ScopeKind
	// PathTemplate is the first page path; later pages append "/:page".
	PathTemplate string
	// ItemSelector matches one listing element per job.
	ItemSelector string
	// LinkFromParent takes the job URL from the anchor wrapping the element
	// instead of an anchor inside it.
	LinkFromParent bool
	// OrganizationFromMarkup derives the organization from the element markup
	// because the scope itself does not name one.
	OrganizationFromMarkup bool
	// Enrich enables detail-page enrichment for keyword matching.
	Enrich bool
}

// Registry keeps a mapping from scope kinds to their strategies.
type Registry struct {
	strategies map[domain.ScopeKind]Strategy
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{strategies: map[domain.ScopeKind]Strategy{}}
}

// NewDefaultRegistry registers the organization, office and duty-station listings.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(Strategy{
		Kind:         domain.ScopeOrganization,
		PathTemplate: "/organizations/:param",
		ItemSelector: ".job",
	})
	r.Register(Strategy{
		Kind:           domain.ScopeOffice,
		PathTemplate:   "/offices/:param",
		ItemSelector:   "a .job",
		LinkFromParent: true,
	})
	r.Register(Strategy{
		Kind:                   domain.ScopeDutyStation,
		PathTemplate:           "/duty_stations/:param",
		ItemSelector:           "a .job",
		LinkFromParent:         true,
		OrganizationFromMarkup: true,
		Enrich:                 true,
	})
	return r
}

// Register adds or replaces a strategy.
func (r *Registry) Register(strategy Strategy) {
	if r.strategies == nil {
		r.strategies = map[domain.ScopeKind]Strategy{}
	}
	r.strategies[strategy.Kind] = strategy
}

// Resolve returns the strategy for a scope kind or an error if it is absent.
func (r *Registry) Resolve(kind domain.ScopeKind) (Strategy, error) {
	if strategy, ok := r.strategies[kind]; ok {
		return strategy, nil
	}
	return Strategy{}, fmt.Errorf("scope kind %s is not registered", kind)
}

// BuildScopes derives the crawl scopes from the configured lists: the cross
// product when both are present, otherwise whichever list is non-empty.
func BuildScopes(orgs []domain.Organization, stations []domain.DutyStation) []domain.Scope {
	var scopes []domain.Scope
	switch {
	case len(orgs) > 0 && len(stations) > 0:
		scopes = make([]domain.Scope, 0, len(orgs)*len(stations))
		for _, org := range orgs {
			for _, station := range stations {
				scopes = append(scopes, domain.OfficeScope(org, station))
			}
		}
	case len(orgs) > 0:
		scopes = make([]domain.Scope, 0, len(orgs))
		for _, org := range orgs {
			scopes = append(scopes, domain.OrganizationScope(org))
		}
	default:
		scopes = make([]domain.Scope, 0, len(stations))
		for _, station := range stations {
			scopes = append(scopes, domain.DutyStationScope(station))
		}
	}
	return scopes
}
