package store

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/phantomx-ai/phantomx/internal/classification"
)

const defaultKeyPrefix = "phantomx"

// RedisOptions configures the Redis-backed store.
type RedisOptions struct {
	Address   string
	Password  string
	DB        int
	KeyPrefix string
	TLSConfig *tls.Config
}

// Redis stores msgpack-encoded results keyed by id. A sorted set orders the
// history by insertion sequence and a hash keeps the per-type counters.
type Redis struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

// NewRedis opens a client for opts. The connection is established lazily;
// call Ping to verify it.
func NewRedis(opts RedisOptions) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:      opts.Address,
		Password:  opts.Password,
		DB:        opts.DB,
		TLSConfig: opts.TLSConfig,
	})
	return newRedisWithClient(client, opts.KeyPrefix)
}

func newRedisWithClient(client *redis.Client, prefix string) *Redis {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &Redis{client: client, prefix: prefix, now: time.Now}
}

func (s *Redis) key(parts ...string) string {
	k := s.prefix
	for _, p := range parts {
		k += ":" + p
	}
	return k
}

func (s *Redis) resultKey(id string) string { return s.key("result", id) }

func (s *Redis) Save(ctx context.Context, r classification.Result) (string, error) {
	id := uuid.NewString()
	r.ID = id

	data, err := msgpack.Marshal(&r)
	if err != nil {
		return "", fmt.Errorf("encode result: %w", err)
	}

	seq, err := s.client.Incr(ctx, s.key("seq")).Result()
	if err != nil {
		return "", fmt.Errorf("redis incr: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.resultKey(id), data, 0)
		pipe.ZAdd(ctx, s.key("history"), redis.Z{Score: float64(seq), Member: id})
		pipe.HIncrBy(ctx, s.key("stats"), "total", 1)
		if field := statsField(r); field != "" {
			pipe.HIncrBy(ctx, s.key("stats"), field, 1)
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("redis save: %w", err)
	}
	return id, nil
}

func statsField(r classification.Result) string {
	switch r.Type {
	case "spam", "business", "safe":
		return string(r.Type)
	}
	return ""
}

func (s *Redis) Get(ctx context.Context, id string) (classification.Result, error) {
	data, err := s.client.Get(ctx, s.resultKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return classification.Result{}, ErrNotFound
	}
	if err != nil {
		return classification.Result{}, fmt.Errorf("redis get: %w", err)
	}
	return decodeResult(data)
}

func decodeResult(data []byte) (classification.Result, error) {
	var r classification.Result
	if err := msgpack.Unmarshal(data, &r); err != nil {
		return classification.Result{}, fmt.Errorf("decode result: %w", err)
	}
	return r, nil
}

func (s *Redis) History(ctx context.Context, limit int) ([]classification.Result, error) {
	limit = normalizeLimit(limit)

	ids, err := s.client.ZRevRange(ctx, s.key("history"), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis history: %w", err)
	}
	if len(ids) == 0 {
		return []classification.Result{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.resultKey(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis mget: %w", err)
	}

	out := make([]classification.Result, 0, len(values))
	for _, v := range values {
		str, ok := v.(string)
		if !ok {
			continue
		}
		r, err := decodeResult([]byte(str))
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *Redis) SaveFeedback(ctx context.Context, id string, correct bool) error {
	r, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	now := s.now().UTC()
	r.Feedback = &classification.Feedback{IsCorrect: correct, SubmittedAt: now}
	data, err := msgpack.Marshal(&r)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	rec, err := msgpack.Marshal(&FeedbackRecord{ResultID: id, IsCorrect: correct, Timestamp: now})
	if err != nil {
		return fmt.Errorf("encode feedback: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.resultKey(id), data, 0)
		pipe.RPush(ctx, s.key("feedback"), rec)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis feedback: %w", err)
	}
	return nil
}

func (s *Redis) Feedback(ctx context.Context) ([]FeedbackRecord, error) {
	raw, err := s.client.LRange(ctx, s.key("feedback"), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis feedback log: %w", err)
	}
	out := make([]FeedbackRecord, 0, len(raw))
	for _, item := range raw {
		var rec FeedbackRecord
		if err := msgpack.Unmarshal([]byte(item), &rec); err != nil {
			return nil, fmt.Errorf("decode feedback: %w", err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *Redis) Stats(ctx context.Context) (Stats, error) {
	fields, err := s.client.HGetAll(ctx, s.key("stats")).Result()
	if err != nil {
		return Stats{}, fmt.Errorf("redis stats: %w", err)
	}
	parse := func(name string) int64 {
		n, _ := strconv.ParseInt(fields[name], 10, 64)
		return n
	}
	return Stats{
		Total:    parse("total"),
		Spam:     parse("spam"),
		Business: parse("business"),
		Safe:     parse("safe"),
	}, nil
}

func (s *Redis) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Redis) Close() error {
	return s.client.Close()
}
