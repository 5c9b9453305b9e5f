package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"JobsScanner/internal/domain"
	"JobsScanner/internal/ports"
)

// Supported database/sql drivers.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

const jobsTable = "jobs"

// isoLayout matches the millisecond ISO-8601 form other tooling reads from the time column.
const isoLayout = "2006-01-02T15:04:05.000Z07:00"

const schemaSQL = `CREATE TABLE IF NOT EXISTS jobs (
	id TEXT PRIMARY KEY,
	title TEXT,
	url TEXT,
	snippet TEXT,
	organization TEXT,
	"dutyStation" TEXT,
	time TEXT
)`

var jobColumns = []string{"id", "title", "url", "snippet", "organization", `"dutyStation"`, "time"}

var errMissingID = errors.New("job has no id")

// SQLRepository keeps seen jobs in a SQL table keyed by id.
type SQLRepository struct {
	db      *sql.DB
	builder sq.StatementBuilderType
}

var _ ports.JobStore = (*SQLRepository)(nil)

// OpenSQL connects to sqlite3 or postgres and verifies the connection.
func OpenSQL(ctx context.Context, driver, dsn string) (*SQLRepository, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}

	if driver == DriverSQLite {
		// one writer at a time avoids SQLITE_BUSY under concurrent inserts
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	if driver == DriverSQLite {
		if err := applyPragmas(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	return NewSQLRepository(db, driver), nil
}

// NewSQLRepository wires an open sql.DB; the driver picks the placeholder format.
func NewSQLRepository(db *sql.DB, driver string) *SQLRepository {
	var format sq.PlaceholderFormat = sq.Question
	if driver == DriverPostgres {
		format = sq.Dollar
	}
	return &SQLRepository{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(format),
	}
}

func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("execute %q: %w", pragma, err)
		}
	}
	return nil
}

// Init creates the jobs table if it does not exist.
func (r *SQLRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create jobs table: %w", err)
	}
	return nil
}

// InsertIfAbsent stores the job unless its id is already present and reports
// whether the row was written. Concurrent callers for one id see true at most once.
func (r *SQLRepository) InsertIfAbsent(ctx context.Context, job domain.JobRecord) (bool, error) {
	if job.ID == "" {
		return false, errMissingID
	}

	query, args, err := r.builder.
		Insert(jobsTable).
		Columns(jobColumns...).
		Values(
			job.ID,
			job.Title,
			job.URL,
			job.Snippet,
			job.Organization,
			nullable(job.DutyStation),
			nullable(FormatPostedAt(job.PostedAt)),
		).
		Suffix("ON CONFLICT (id) DO NOTHING").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build insert: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("insert job %s: %w", job.ID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}

	return affected > 0, nil
}

// Count returns the number of stored jobs.
func (r *SQLRepository) Count(ctx context.Context) (int, error) {
	query, args, err := r.builder.Select("COUNT(*)").From(jobsTable).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count: %w", err)
	}

	var count int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count jobs: %w", err)
	}
	return count, nil
}

// Close releases the database handle.
func (r *SQLRepository) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

func nullable(value string) sql.NullString {
	return sql.NullString{String: value, Valid: value != ""}
}

// FormatPostedAt renders a posting time the way it is persisted; the invalid
// date sentinel becomes "".
func FormatPostedAt(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(isoLayout)
}
