package parser

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"JobsScanner/internal/domain"
	"JobsScanner/internal/scanner"
)

var (
	lineBreakExpr  = regexp.MustCompile(`(?i)<br\s*/?>`)
	whitespaceExpr = regexp.MustCompile(`\s+`)
)

var postedAtLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Page is the result of parsing one listing page. Elements counts every
// listing element found, Records only the ones that carried an id.
type Page struct {
	Elements int
	Records  []domain.JobRecord
}

// ParseListing extracts job records from one page of listing markup in
// document order. Elements without an id are skipped.
func ParseListing(markup string, scope domain.Scope, strategy scanner.Strategy, baseURL string) (Page, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return Page{}, fmt.Errorf("parse document: %w", err)
	}

	items := doc.Find(strategy.ItemSelector)
	page := Page{Elements: items.Length()}

	items.Each(func(_ int, item *goquery.Selection) {
		if job, ok := parseItem(item, scope, strategy, baseURL); ok {
			page.Records = append(page.Records, job)
		}
	})

	return page, nil
}

func parseItem(item *goquery.Selection, scope domain.Scope, strategy scanner.Strategy, baseURL string) (domain.JobRecord, bool) {
	id := strings.TrimSpace(item.AttrOr("id", ""))
	if id == "" {
		return domain.JobRecord{}, false
	}

	var href string
	if strategy.LinkFromParent {
		href = item.Closest("a").AttrOr("href", "")
	} else {
		href = item.Find("a[href]").First().AttrOr("href", "")
	}

	organization := scope.Organization.Name
	if strategy.OrganizationFromMarkup {
		inner, err := item.Html()
		if err == nil {
			organization = OrganizationFromMarkup(inner)
		} else {
			organization = ""
		}
	}

	return domain.JobRecord{
		ID:           id,
		Title:        strings.TrimSpace(item.Find(scanner.TitleSelector).First().Text()),
		URL:          resolveURL(baseURL, href),
		Snippet:      strings.TrimSpace(item.Find(scanner.SnippetSelector).First().Text()),
		Organization: organization,
		DutyStation:  scope.DutyStation.Name,
		PostedAt:     parsePostedAt(item.Find(scanner.TimeSelector).First().AttrOr("datetime", "")),
	}, true
}

// OrganizationFromMarkup is a best-effort heuristic for listings that do not
// name the organization in their scope: the organization is the text of the
// second line-break separated segment of the element markup. It returns ""
// when the markup has no such segment.
func OrganizationFromMarkup(inner string) string {
	segments := lineBreakExpr.Split(inner, 3)
	if len(segments) < 2 {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(segments[1]))
	if err != nil {
		return ""
	}

	text := whitespaceExpr.ReplaceAllString(doc.Text(), " ")
	return strings.TrimSpace(text)
}

// parsePostedAt returns the zero time when the attribute is missing or malformed.
func parsePostedAt(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	for _, layout := range postedAtLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed.UTC()
		}
	}
	return time.Time{}
}

func resolveURL(baseURL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || baseURL == "" {
		return href
	}

	ref, err := url.Parse(href)
	if err != nil || ref.IsAbs() {
		return href
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
