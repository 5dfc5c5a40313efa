package redis

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/kbukum/pipedata/errors"
	"github.com/kbukum/pipedata/logger"
)

// Client wraps a go-redis client with pipedata logging.
type Client struct {
	rdb    *goredis.Client
	log    *logger.Logger
	cfg    Config
	closed bool
	mu     sync.Mutex
}

// New creates a new Redis client with the given configuration and logger.
func New(cfg Config, log *logger.Logger) (*Client, error) {
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if !cfg.Enabled {
		return nil, errors.InvalidConfig("redis.enabled", "redis is disabled")
	}
	if log == nil {
		log = logger.Get(logger.ComponentRedis)
	} else {
		log = log.WithComponent(logger.ComponentRedis)
	}

	opts := &goredis.Options{
		Addr:            cfg.Addr,
		Password:        cfg.Password,
		DB:              cfg.DB,
		PoolSize:        cfg.PoolSize,
		MinIdleConns:    cfg.MinIdleConns,
		MaxRetries:      cfg.MaxRetries,
		DialTimeout:     duration(cfg.DialTimeout),
		ReadTimeout:     duration(cfg.ReadTimeout),
		WriteTimeout:    duration(cfg.WriteTimeout),
		MinRetryBackoff: duration(cfg.MinRetryBackoff),
		MaxRetryBackoff: duration(cfg.MaxRetryBackoff),
		ConnMaxIdleTime: duration(cfg.ConnMaxIdleTime),
		PoolTimeout:     duration(cfg.PoolTimeout),
	}

	rdb := goredis.NewClient(opts)

	log.Info("Redis client created", map[string]interface{}{
		"addr":      cfg.Addr,
		"db":        cfg.DB,
		"pool_size": cfg.PoolSize,
	})

	return &Client{rdb: rdb, log: log, cfg: cfg}, nil
}

// duration parses a validated duration; empty means the go-redis default.
func duration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}

// unavailable wraps a transport error as a retryable UNAVAILABLE error.
func unavailable(op string, err error) error {
	return errors.Unavailable("redis").WithCause(err).WithDetail("operation", op)
}

// Ping verifies the Redis connection is alive.
func (c *Client) Ping(ctx context.Context) error {
	pong, err := c.rdb.Ping(ctx).Result()
	if err != nil {
		return unavailable("ping", err)
	}
	if pong != "PONG" {
		return errors.Unavailable("redis").WithDetail("response", pong)
	}
	return nil
}

// IsAvailable reports whether the client is open and the server answers.
func (c *Client) IsAvailable(ctx context.Context) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	return c.rdb.Ping(ctx).Err() == nil
}

// Get retrieves a value by key. A missing key is a NOT_FOUND error.
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	v, err := c.rdb.Get(ctx, key).Result()
	if stderrors.Is(err, goredis.Nil) {
		return "", errors.NotFound("redis key", key)
	}
	if err != nil {
		return "", unavailable("get", err)
	}
	return v, nil
}

// Set stores a value with a key and expiration.
func (c *Client) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if err := c.rdb.Set(ctx, key, value, expiration).Err(); err != nil {
		return unavailable("set", err)
	}
	return nil
}

// GetJSON decodes the JSON value at key into dest.
func (c *Client) GetJSON(ctx context.Context, key string, dest interface{}) error {
	raw, err := c.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		return errors.InvalidInput(key, "malformed JSON").WithCause(err)
	}
	return nil
}

// SetJSON stores value as JSON at key.
func (c *Client) SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return errors.Internal(err)
	}
	return c.Set(ctx, key, string(data), expiration)
}

// Del deletes one or more keys.
func (c *Client) Del(ctx context.Context, keys ...string) error {
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		return unavailable("del", err)
	}
	return nil
}

// Exists checks if one or more keys exist.
func (c *Client) Exists(ctx context.Context, keys ...string) (int64, error) {
	n, err := c.rdb.Exists(ctx, keys...).Result()
	if err != nil {
		return 0, unavailable("exists", err)
	}
	return n, nil
}

// RPush appends values to the list at key.
func (c *Client) RPush(ctx context.Context, key string, values ...string) error {
	args := make([]interface{}, len(values))
	for i, v := range values {
		args[i] = v
	}
	if err := c.rdb.RPush(ctx, key, args...).Err(); err != nil {
		return unavailable("rpush", err)
	}
	return nil
}

// LPop removes and returns the head of the list at key. ok is false when the
// list is empty or missing.
func (c *Client) LPop(ctx context.Context, key string) (value string, ok bool, err error) {
	v, err := c.rdb.LPop(ctx, key).Result()
	if stderrors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, unavailable("lpop", err)
	}
	return v, true, nil
}

// LLen returns the length of the list at key.
func (c *Client) LLen(ctx context.Context, key string) (int64, error) {
	n, err := c.rdb.LLen(ctx, key).Result()
	if err != nil {
		return 0, unavailable("llen", err)
	}
	return n, nil
}

// Close closes the Redis connection. Safe to call multiple times.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.log.Info("Closing Redis connection")
	c.closed = true
	return c.rdb.Close()
}

// Unwrap returns the underlying go-redis client for advanced operations.
func (c *Client) Unwrap() *goredis.Client {
	return c.rdb
}
