package domain

import (
	"fmt"
	"time"
)

// Organization is a hiring entity listed on the site.
type Organization struct {
	Name string `yaml:"name"`
	Code string `yaml:"code"`
}

// DutyStation is a location jobs are posted for.
type DutyStation struct {
	Name string `yaml:"name"`
	Code string `yaml:"code"`
}

// ScopeKind selects the listing family a scope is crawled from.
type ScopeKind string

const (
	ScopeOrganization ScopeKind = "organization"
	ScopeOffice       ScopeKind = "office"
	ScopeDutyStation  ScopeKind = "duty_station"
)

// Scope is one pagination run: an organization, a duty station, or both.
type Scope struct {
	Kind         ScopeKind
	Organization Organization
	DutyStation  DutyStation
}

// OrganizationScope lists every job of one organization.
func OrganizationScope(org Organization) Scope {
	return Scope{Kind: ScopeOrganization, Organization: org}
}

// OfficeScope lists jobs of one organization at one duty station.
func OfficeScope(org Organization, station DutyStation) Scope {
	return Scope{Kind: ScopeOffice, Organization: org, DutyStation: station}
}

// DutyStationScope lists jobs of every organization at one duty station.
func DutyStationScope(station DutyStation) Scope {
	return Scope{Kind: ScopeDutyStation, DutyStation: station}
}

// Param is the path segment identifying the scope on the site.
func (s Scope) Param() string {
	switch s.Kind {
	case ScopeOffice:
		return s.Organization.Code + "_" + s.DutyStation.Code
	case ScopeDutyStation:
		return s.DutyStation.Code
	default:
		return s.Organization.Code
	}
}

func (s Scope) String() string {
	switch s.Kind {
	case ScopeOffice:
		return fmt.Sprintf("%s@%s", s.Organization.Name, s.DutyStation.Name)
	case ScopeDutyStation:
		return fmt.Sprintf("*@%s", s.DutyStation.Name)
	default:
		return s.Organization.Name
	}
}

// JobRecord is one extracted posting. ID is the natural key.
type JobRecord struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	URL          string    `json:"url"`
	Snippet      string    `json:"snippet"`
	Organization string    `json:"organization"`
	DutyStation  string    `json:"dutyStation,omitempty"`
	PostedAt     time.Time `json:"time"`
}

// HasValidDate reports whether PostedAt was parsed from the listing.
// The zero time is the invalid-date sentinel.
func (j JobRecord) HasValidDate() bool {
	return !j.PostedAt.IsZero()
}

// Message is one outbound notification.
type Message struct {
	Recipient string
	Subject   string
	Text      string
	HTML      string
}
