package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// DefaultName is the queue shared with the delivery workers
	DefaultName = "api-queue"
	// DefaultPrefix namespaces every key the queue writes
	DefaultPrefix = "bull"
)

var (
	// ErrDuplicateJob indicates a job with the same ID is already queued
	ErrDuplicateJob = errors.New("job already exists")
	// ErrNoClient indicates the queue was built without a redis client
	ErrNoClient = errors.New("redis client is not configured")
)

// Backoff describes how a worker spaces out retries of a failed job
type Backoff struct {
	Type  string `json:"type"`
	Delay int64  `json:"delay"` // milliseconds
}

// JobOptions travel with the job and are honoured by the worker
type JobOptions struct {
	Attempts        int     `json:"attempts"`
	Backoff         Backoff `json:"backoff"`
	Priority        int     `json:"priority"`
	RemoveOnFail    bool    `json:"removeOnFail"`
	KeepLogs        int     `json:"keepLogs"`
	StackTraceLimit int     `json:"stackTraceLimit"`
}

// Job is a named payload to be processed by a worker
type Job struct {
	ID      string
	Name    string
	Data    any
	Options JobOptions
}

// addJobScript stores the job hash and schedules it in one atomic step.
// Priority 0 jobs go to the wait list, which workers drain before the
// prioritized set; other priorities are ordered by score, FIFO within a
// priority. The marker wakes workers blocked on an empty queue.
var addJobScript = redis.NewScript(`
local jobKey = KEYS[1]
local waitKey = KEYS[2]
local prioritizedKey = KEYS[3]
local counterKey = KEYS[4]
local markerKey = KEYS[5]

if redis.call("EXISTS", jobKey) == 1 then
  return 0
end

redis.call("HSET", jobKey,
  "name", ARGV[2],
  "data", ARGV[3],
  "opts", ARGV[4],
  "timestamp", ARGV[5],
  "priority", ARGV[6],
  "atm", 0)

local priority = tonumber(ARGV[6])
if priority == 0 then
  redis.call("LPUSH", waitKey, ARGV[1])
else
  local counter = redis.call("INCR", counterKey)
  local score = priority * 4294967296 + (counter % 4294967296)
  redis.call("ZADD", prioritizedKey, score, ARGV[1])
end
redis.call("ZADD", markerKey, 0, "0")
return 1
`)

// RedisQueue is the producer side of the delivery queue
type RedisQueue struct {
	client redis.UniversalClient
	name   string
	prefix string
}

// NewRedisQueue creates a producer for queue name on client
func NewRedisQueue(client redis.UniversalClient, name, prefix string) *RedisQueue {
	if name == "" {
		name = DefaultName
	}
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &RedisQueue{client: client, name: name, prefix: prefix}
}

// NewRedisClient builds a client from a redis:// URL without dialing.
// Connections are opened lazily, so an unavailable broker does not block startup.
func NewRedisClient(url string, dialTimeout time.Duration) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	if dialTimeout > 0 {
		opts.DialTimeout = dialTimeout
		opts.ReadTimeout = dialTimeout
		opts.WriteTimeout = dialTimeout
	}
	return redis.NewClient(opts), nil
}

// Key returns the redis key for a queue-scoped suffix
func (q *RedisQueue) Key(suffix string) string {
	return fmt.Sprintf("%s:%s:%s", q.prefix, q.name, suffix)
}

// Add enqueues job
func (q *RedisQueue) Add(ctx context.Context, job Job) error {
	if q.client == nil {
		return ErrNoClient
	}
	if job.ID == "" || job.Name == "" {
		return errors.New("job id and name are required")
	}

	data, err := json.Marshal(job.Data)
	if err != nil {
		return fmt.Errorf("failed to encode job data: %w", err)
	}
	opts, err := json.Marshal(job.Options)
	if err != nil {
		return fmt.Errorf("failed to encode job options: %w", err)
	}

	res, err := addJobScript.Run(
		ctx,
		q.client,
		[]string{q.Key(job.ID), q.Key("wait"), q.Key("prioritized"), q.Key("pc"), q.Key("marker")},
		job.ID,
		job.Name,
		string(data),
		string(opts),
		time.Now().UnixMilli(),
		job.Options.Priority,
	).Int64()
	if err != nil {
		return err
	}
	if res == 0 {
		return ErrDuplicateJob
	}
	return nil
}

// Ping checks broker connectivity
func (q *RedisQueue) Ping(ctx context.Context) error {
	if q.client == nil {
		return ErrNoClient
	}
	return q.client.Ping(ctx).Err()
}

// Close releases the underlying client
func (q *RedisQueue) Close() error {
	if q.client == nil {
		return nil
	}
	return q.client.Close()
}
