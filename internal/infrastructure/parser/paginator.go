package parser

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"JobsScanner/internal/domain"
	"JobsScanner/internal/ports"
	"JobsScanner/internal/scanner"
)

// Paginator walks the numbered listing pages of a scope until a page without
// listing elements is returned. There is no page cap.
type Paginator struct {
	fetcher ports.PageFetcher
	baseURL string
	logger  *slog.Logger
}

// NewPaginator wires the page fetcher; baseURL resolves relative job links.
func NewPaginator(fetcher ports.PageFetcher, baseURL string, log *slog.Logger) *Paginator {
	return &Paginator{fetcher: fetcher, baseURL: baseURL, logger: log}
}

// Walk fetches page 1, 2, ... of the scope and calls visit for each non-empty
// page before requesting the next one. Fetch, parse and visit errors stop the walk.
func (p *Paginator) Walk(ctx context.Context, scope domain.Scope, strategy scanner.Strategy, visit func(pageNo int, page Page) error) error {
	for pageNo := 1; ; pageNo++ {
		template, params := pagePath(strategy.PathTemplate, scope.Param(), pageNo)

		markup, err := p.fetcher.Get(ctx, template, params, nil)
		if err != nil {
			return fmt.Errorf("scope %s: fetch page %d: %w", scope, pageNo, err)
		}

		page, err := ParseListing(markup, scope, strategy, p.baseURL)
		if err != nil {
			return fmt.Errorf("scope %s: page %d: %w", scope, pageNo, err)
		}

		if page.Elements == 0 {
			p.debug("pagination finished", "scope", scope.String(), "pages", pageNo-1)
			return nil
		}

		p.debug("page parsed", "scope", scope.String(), "page", pageNo, "elements", page.Elements, "records", len(page.Records))
		if err := visit(pageNo, page); err != nil {
			return err
		}
	}
}

// FetchAll returns the records of every page of the scope.
func (p *Paginator) FetchAll(ctx context.Context, scope domain.Scope, strategy scanner.Strategy) ([]domain.JobRecord, error) {
	var jobs []domain.JobRecord
	err := p.Walk(ctx, scope, strategy, func(_ int, page Page) error {
		jobs = append(jobs, page.Records...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return jobs, nil
}

// pagePath omits the page segment for the first page.
func pagePath(template, param string, pageNo int) (string, map[string]string) {
	params := map[string]string{"param": param}
	if pageNo > 1 {
		template += "/:page"
		params["page"] = strconv.Itoa(pageNo)
	}
	return template, params
}

func (p *Paginator) debug(msg string, args ...interface{}) {
	if p.logger != nil {
		p.logger.Debug(msg, args...)
	}
}
