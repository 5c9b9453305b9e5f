package ports

import (
	"context"
	"net/url"
	"time"

	"JobsScanner/internal/domain"
)

// PageFetcher retrieves raw markup for a templated site path.
type PageFetcher interface {
	Get(ctx context.Context, pathTemplate string, pathParams map[string]string, query url.Values) (string, error)
}

// JobSource walks the listing pages of a scope, handing each page's records to visit
// before the next page is requested.
type JobSource interface {
	Walk(ctx context.Context, scope domain.Scope, visit func(page int, jobs []domain.JobRecord) error) error
}

// DetailFetcher loads the rendered detail text of a single job. ok is false when
// no text could be obtained.
type DetailFetcher interface {
	FetchDetail(ctx context.Context, job domain.JobRecord) (text string, ok bool)
}

// JobStore is the durable set of already seen jobs.
type JobStore interface {
	Init(ctx context.Context) error
	InsertIfAbsent(ctx context.Context, job domain.JobRecord) (bool, error)
	Count(ctx context.Context) (int, error)
	Close() error
}

// Notifier delivers one message to a channel (Telegram, mail, ...).
type Notifier interface {
	Deliver(ctx context.Context, msg domain.Message) error
}

// Scheduler controls when crawl cycles execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
