package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"JobsScanner/internal/domain"
	"JobsScanner/internal/ports"
)

const defaultRedisPrefix = "jobs:"

// RedisRepository keeps seen jobs in an id set plus one record key per id.
type RedisRepository struct {
	rdb    *redis.Client
	prefix string
}

var _ ports.JobStore = (*RedisRepository)(nil)

// insertScript adds the id to the set and writes the record in one step.
// When SADD fails the script aborts before the record is written.
var insertScript = redis.NewScript(`
if redis.call('SADD', KEYS[1], ARGV[1]) == 0 then
  return 0
end
redis.call('SET', KEYS[2], ARGV[2])
return 1
`)

type redisJob struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	URL          string `json:"url"`
	Snippet      string `json:"snippet"`
	Organization string `json:"organization"`
	DutyStation  string `json:"dutyStation,omitempty"`
	Time         string `json:"time,omitempty"`
}

// NewRedisClient parses redisURL and verifies connectivity.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis.ParseURL(%q): %w", redisURL, err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return client, nil
}

// NewRedisRepository wires a client; prefix namespaces the keys.
func NewRedisRepository(rdb *redis.Client, prefix string) *RedisRepository {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisRepository{rdb: rdb, prefix: prefix}
}

// Init verifies the connection; Redis needs no schema.
func (r *RedisRepository) Init(ctx context.Context) error {
	if err := r.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// InsertIfAbsent stores the job unless its id is already indexed. An error
// means nothing was written, so a later call can still insert it.
func (r *RedisRepository) InsertIfAbsent(ctx context.Context, job domain.JobRecord) (bool, error) {
	if job.ID == "" {
		return false, errMissingID
	}

	payload, err := json.Marshal(redisJob{
		ID:           job.ID,
		Title:        job.Title,
		URL:          job.URL,
		Snippet:      job.Snippet,
		Organization: job.Organization,
		DutyStation:  job.DutyStation,
		Time:         FormatPostedAt(job.PostedAt),
	})
	if err != nil {
		return false, fmt.Errorf("marshal job %s: %w", job.ID, err)
	}

	added, err := insertScript.Run(ctx, r.rdb, []string{r.idsKey(), r.recordKey(job.ID)}, job.ID, payload).Int()
	if err != nil {
		return false, fmt.Errorf("insert job %s: %w", job.ID, err)
	}
	return added == 1, nil
}

// Count returns the number of indexed jobs.
func (r *RedisRepository) Count(ctx context.Context) (int, error) {
	n, err := r.rdb.SCard(ctx, r.idsKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("count jobs: %w", err)
	}
	return int(n), nil
}

// Close closes the client.
func (r *RedisRepository) Close() error {
	return r.rdb.Close()
}

func (r *RedisRepository) recordKey(id string) string {
	return r.prefix + "record:" + id
}

func (r *RedisRepository) idsKey() string {
	return r.prefix + "ids"
}
