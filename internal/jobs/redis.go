package jobs

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisPrefix = "pdftools:job:"

// RedisStore keeps job state as JSON and results as raw bytes, both with a TTL
type RedisStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisStore connects to addr, a host:port or redis:// URL
func NewRedisStore(ctx context.Context, addr string, ttl time.Duration) (*RedisStore, error) {
	opts, err := parseRedisURL(addr)
	if err != nil {
		return nil, err
	}
	c := redis.NewUniversalClient(opts)
	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("redis: ping %s: %w", addr, err)
	}
	return &RedisStore{client: c, ttl: ttl}, nil
}

func stateKey(id string) string  { return redisPrefix + id }
func resultKey(id string) string { return redisPrefix + id + ":result" }

func (r *RedisStore) Save(ctx context.Context, job Job) error {
	b, err := json.Marshal(job)
	if err != nil {
		return err
	}
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, stateKey(job.ID), b, r.ttl)
	pipe.Expire(ctx, resultKey(job.ID), r.ttl)
	_, err = pipe.Exec(ctx)
	return err
}

func (r *RedisStore) Get(ctx context.Context, id string) (Job, error) {
	b, err := r.client.Get(ctx, stateKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Job{}, ErrJobNotFound
	}
	if err != nil {
		return Job{}, err
	}
	var job Job
	if err := json.Unmarshal(b, &job); err != nil {
		return Job{}, fmt.Errorf("redis: decode job %s: %w", id, err)
	}
	return job, nil
}

func (r *RedisStore) SaveResult(ctx context.Context, id string, data []byte) error {
	n, err := r.client.Exists(ctx, stateKey(id)).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrJobNotFound
	}
	return r.client.Set(ctx, resultKey(id), data, r.ttl).Err()
}

func (r *RedisStore) Result(ctx context.Context, id string) ([]byte, error) {
	b, err := r.client.Get(ctx, resultKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		if _, err := r.Get(ctx, id); err != nil {
			return nil, err
		}
		return nil, ErrResultNotReady
	}
	return b, err
}

func (r *RedisStore) DeleteResult(ctx context.Context, id string) error {
	return r.client.Del(ctx, resultKey(id)).Err()
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}

// parseRedisURL parses addr into UniversalOptions supporting single, cluster,
// and sentinel Redis deployments. If no scheme is present, addr is treated as
// a plain host:port string.
func parseRedisURL(addr string) (*redis.UniversalOptions, error) {
	if !strings.Contains(addr, "://") {
		return &redis.UniversalOptions{Addrs: []string{addr}}, nil
	}

	u, err := url.Parse(addr)
	if err != nil {
		return nil, err
	}

	opts := &redis.UniversalOptions{}
	if u.User != nil {
		opts.Username = u.User.Username()
		if pw, ok := u.User.Password(); ok {
			opts.Password = pw
		}
	}
	opts.Addrs = strings.Split(u.Host, ",")

	q := u.Query()
	parseDB := func(s string) error {
		db, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("redis: invalid db: %v", err)
		}
		opts.DB = db
		return nil
	}

	switch u.Scheme {
	case "redis", "rediss":
		if p := strings.TrimPrefix(u.Path, "/"); p != "" {
			if err := parseDB(p); err != nil {
				return nil, err
			}
		} else if s := q.Get("db"); s != "" {
			if err := parseDB(s); err != nil {
				return nil, err
			}
		}
		if u.Scheme == "rediss" {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
	case "redis-sentinel", "rediss-sentinel":
		opts.MasterName = strings.TrimPrefix(u.Path, "/")
		if s := q.Get("db"); s != "" {
			if err := parseDB(s); err != nil {
				return nil, err
			}
		}
		opts.SentinelUsername = q.Get("sentinel_username")
		opts.SentinelPassword = q.Get("sentinel_password")
		if u.Scheme == "rediss-sentinel" {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
	default:
		return nil, fmt.Errorf("redis: invalid URL scheme: %s", u.Scheme)
	}

	return opts, nil
}
