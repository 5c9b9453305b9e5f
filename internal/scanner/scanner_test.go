package scanner

import (
	"testing"

	"JobsScanner/internal/domain"
)

func TestDefaultRegistryResolve(t *testing.T) {
	t.Parallel()

	reg := NewDefaultRegistry()
	for _, kind := range []domain.ScopeKind{domain.ScopeOrganization, domain.ScopeOffice, domain.ScopeDutyStation} {
		strategy, err := reg.Resolve(kind)
		if err != nil {
			t.Fatalf("resolve %s: %v", kind, err)
		}
		if strategy.PathTemplate == "" || strategy.ItemSelector == "" {
			t.Fatalf("strategy %s is incomplete: %+v", kind, strategy)
		}
	}

	if _, err := reg.Resolve("unknown"); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestBuildScopes(t *testing.T) {
	t.Parallel()

	orgs := []domain.Organization{{Name: "UNDP", Code: "undp"}, {Name: "UNICEF", Code: "unicef"}}
	stations := []domain.DutyStation{{Name: "Geneva", Code: "geneva"}, {Name: "Nairobi", Code: "nairobi"}, {Name: "Bangkok", Code: "bangkok"}}

	cross := BuildScopes(orgs, stations)
	if len(cross) != 6 {
		t.Fatalf("expected 6 office scopes, got %d", len(cross))
	}
	for _, s := range cross {
		if s.Kind != domain.ScopeOffice {
			t.Fatalf("unexpected kind %s", s.Kind)
		}
	}

	orgOnly := BuildScopes(orgs, nil)
	if len(orgOnly) != 2 || orgOnly[0].Kind != domain.ScopeOrganization {
		t.Fatalf("unexpected organization scopes: %+v", orgOnly)
	}

	stationOnly := BuildScopes(nil, stations)
	if len(stationOnly) != 3 || stationOnly[2].Param() != "bangkok" {
		t.Fatalf("unexpected duty station scopes: %+v", stationOnly)
	}

	if got := BuildScopes(nil, nil); len(got) != 0 {
		t.Fatalf("expected no scopes, got %d", len(got))
	}
}
