package parser

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Directory sections listing every organization or duty station of the site.
const (
	SectionOrganizations = "organizations"
	SectionDutyStations  = "duty_stations"
)

// DirectoryEntry is one organization or duty station link.
type DirectoryEntry struct {
	Name string `yaml:"name"`
	Code string `yaml:"code"`
	URL  string `yaml:"url,omitempty"`
}

// ParseDirectory collects the links pointing at /<section>/<code> in document
// order, once per code.
func ParseDirectory(markup, baseURL, section string) ([]DirectoryEntry, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	prefix := "/" + strings.Trim(section, "/") + "/"
	seen := map[string]struct{}{}
	var entries []DirectoryEntry

	doc.Find("a[href]").Each(func(_ int, link *goquery.Selection) {
		absolute := resolveURL(baseURL, link.AttrOr("href", ""))
		parsed, err := url.Parse(absolute)
		if err != nil || !strings.HasPrefix(parsed.Path, prefix) {
			return
		}

		code := strings.TrimPrefix(parsed.Path, prefix)
		if code == "" || strings.Contains(code, "/") {
			return
		}
		if _, ok := seen[code]; ok {
			return
		}

		name := strings.TrimSpace(whitespaceExpr.ReplaceAllString(link.Text(), " "))
		if name == "" {
			return
		}

		seen[code] = struct{}{}
		entries = append(entries, DirectoryEntry{Name: name, Code: code, URL: absolute})
	})

	return entries, nil
}
