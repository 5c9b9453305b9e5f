package parser

import (
	"context"
	"fmt"
	"log/slog"

	"JobsScanner/internal/domain"
	"JobsScanner/internal/ports"
	"JobsScanner/internal/scanner"
)

// JobSource implements ports.JobSource via the registered scope strategies.
type JobSource struct {
	registry  *scanner.Registry
	paginator *Paginator
	logger    *slog.Logger
}

var _ ports.JobSource = (*JobSource)(nil)

// NewJobSource wires the strategy registry with a paginator.
func NewJobSource(reg *scanner.Registry, paginator *Paginator, log *slog.Logger) *JobSource {
	return &JobSource{
		registry:  reg,
		paginator: paginator,
		logger:    log,
	}
}

// Walk resolves the scope strategy and hands each page's records to visit.
func (s *JobSource) Walk(ctx context.Context, scope domain.Scope, visit func(page int, jobs []domain.JobRecord) error) error {
	if s.registry == nil || s.paginator == nil {
		return fmt.Errorf("job source is not configured")
	}

	strategy, err := s.registry.Resolve(scope.Kind)
	if err != nil {
		return fmt.Errorf("scope %s: %w", scope, err)
	}

	var pages, total int
	err = s.paginator.Walk(ctx, scope, strategy, func(pageNo int, page Page) error {
		pages++
		total += len(page.Records)
		if dropped := page.Elements - len(page.Records); dropped > 0 {
			s.debug("listing elements without id skipped", "scope", scope.String(), "page", pageNo, "count", dropped)
		}
		return visit(pageNo, page.Records)
	})
	if err != nil {
		return err
	}

	s.debug("scope walked", "scope", scope.String(), "pages", pages, "jobs", total)
	return nil
}

func (s *JobSource) debug(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
