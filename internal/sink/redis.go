// Package sink fans engine frames out to other processes.
package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/ayusman/mudra/internal/engine"
)

// RedisConfig configures the redis publisher.
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled" json:"enabled" env:"ENABLED"`
	Addr     string `yaml:"addr" json:"addr" env:"ADDR"`
	Password string `yaml:"password" json:"-" env:"PASSWORD"`
	DB       int    `yaml:"db" json:"db" env:"DB"`
	Prefix   string `yaml:"prefix" json:"prefix" env:"PREFIX"`
	// StreamMaxLen caps the event stream. Zero leaves it unbounded.
	StreamMaxLen int64 `yaml:"stream_max_len" json:"stream_max_len" env:"STREAM_MAX_LEN"`
	// StateTTL expires the latest-frame key when the engine stops. Zero
	// keeps it forever.
	StateTTL time.Duration `yaml:"state_ttl" json:"state_ttl" env:"STATE_TTL"`
}

// DefaultRedisConfig returns a disabled publisher for localhost.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:         "localhost:6379",
		Prefix:       "mudra:",
		StreamMaxLen: 1000,
		StateTTL:     10 * time.Second,
	}
}

// Redis publishes frames to redis. Every frame replaces the state key;
// frames with events are also appended to a stream and published on a
// channel.
type Redis struct {
	client *backend.Client
	prefix string
	maxLen int64
	ttl    time.Duration
}

// Option configures a Redis sink.
type Option func(*Redis)

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(r *Redis) {
		r.prefix = prefix
	}
}

// WithStreamMaxLen caps the event stream length.
func WithStreamMaxLen(n int64) Option {
	return func(r *Redis) {
		r.maxLen = n
	}
}

// WithStateTTL sets the expiration of the state key.
func WithStateTTL(ttl time.Duration) Option {
	return func(r *Redis) {
		r.ttl = ttl
	}
}

// NewRedis connects a publisher from cfg.
func NewRedis(cfg RedisConfig) *Redis {
	client := backend.NewClient(&backend.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return NewFromClient(client,
		WithPrefix(cfg.Prefix),
		WithStreamMaxLen(cfg.StreamMaxLen),
		WithStateTTL(cfg.StateTTL),
	)
}

// NewFromClient creates a publisher from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Redis {
	r := &Redis{client: client, prefix: "mudra:"}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// StateKey holds the JSON of the latest frame.
func (r *Redis) StateKey() string { return r.prefix + "state" }

// StreamKey is the stream of events.
func (r *Redis) StreamKey() string { return r.prefix + "stream" }

// Channel carries each event as it happens.
func (r *Redis) Channel() string { return r.prefix + "events" }

// Ping checks the connection.
func (r *Redis) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	return nil
}

// Message is the payload of one event on the stream and the channel.
type Message struct {
	Seq   uint64           `json:"seq"`
	Time  time.Time        `json:"time"`
	Kind  engine.EventKind `json:"kind"`
	Value string           `json:"value,omitempty"`
	Tool  string           `json:"tool"`
}

// Publish writes fr in one pipeline.
func (r *Redis) Publish(ctx context.Context, fr engine.Frame) error {
	state, err := json.Marshal(fr)
	if err != nil {
		return fmt.Errorf("failed to marshal frame: %w", err)
	}

	pipe := r.client.Pipeline()
	pipe.Set(ctx, r.StateKey(), state, r.ttl)

	for _, ev := range fr.Events() {
		msg, err := json.Marshal(Message{
			Seq:   fr.Seq,
			Time:  fr.Time,
			Kind:  ev.Kind,
			Value: ev.Value,
			Tool:  string(fr.Tool),
		})
		if err != nil {
			return fmt.Errorf("failed to marshal event: %w", err)
		}
		pipe.XAdd(ctx, &backend.XAddArgs{
			Stream: r.StreamKey(),
			MaxLen: r.maxLen,
			Values: map[string]any{"kind": string(ev.Kind), "data": msg},
		})
		pipe.Publish(ctx, r.Channel(), msg)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to publish to redis: %w", err)
	}
	return nil
}

// Close closes the redis client.
func (r *Redis) Close() error {
	return r.client.Close()
}
