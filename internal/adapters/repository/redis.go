package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/okian/verdict/internal/domain/model"
)

const defaultKeyPrefix = "verdict"

// RedisOption configures OpenRedis and NewRedisStore.
type RedisOption func(*redisSettings)

type redisSettings struct {
	password string
	db       int
	prefix   string
}

// WithPassword sets the AUTH password.
func WithPassword(password string) RedisOption {
	return func(s *redisSettings) {
		s.password = password
	}
}

// WithDB selects the logical database.
func WithDB(db int) RedisOption {
	return func(s *redisSettings) {
		if db >= 0 {
			s.db = db
		}
	}
}

// WithKeyPrefix namespaces every key.
func WithKeyPrefix(prefix string) RedisOption {
	return func(s *redisSettings) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// RedisStore keeps JSON documents under <prefix>:assignment:<id> and
// <prefix>:record:<id>, a creation-ordered index, a set per assessor and
// one stream per assignment for its history.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

var _ Repository = (*RedisStore)(nil)

// OpenRedis connects to addr, which is either host:port or a redis:// URL.
func OpenRedis(ctx context.Context, addr string, opts ...RedisOption) (*RedisStore, error) {
	s := settings(opts)
	ropts, err := redisOptions(addr, s)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(ropts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, wrap(BackendRedis, "ping", err)
	}
	return &RedisStore{client: client, prefix: s.prefix}, nil
}

// redisOptions builds client options from addr. A password or non-zero DB
// set through options overrides the one embedded in a URL.
func redisOptions(addr string, s redisSettings) (*redis.Options, error) {
	if !strings.HasPrefix(addr, "redis://") && !strings.HasPrefix(addr, "rediss://") {
		return &redis.Options{Addr: addr, Password: s.password, DB: s.db}, nil
	}
	ropts, err := redis.ParseURL(addr)
	if err != nil {
		return nil, fmt.Errorf("redis options: %w", err)
	}
	if s.password != "" {
		ropts.Password = s.password
	}
	if s.db != 0 {
		ropts.DB = s.db
	}
	return ropts, nil
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client redis.UniversalClient, opts ...RedisOption) *RedisStore {
	return &RedisStore{client: client, prefix: settings(opts).prefix}
}

func settings(opts []RedisOption) redisSettings {
	s := redisSettings{prefix: defaultKeyPrefix}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

func (s *RedisStore) key(parts ...string) string {
	return s.prefix + ":" + strings.Join(parts, ":")
}

func (s *RedisStore) GetAssignment(ctx context.Context, id string) (model.Assignment, error) {
	start := time.Now()
	var a model.Assignment
	err := s.getJSON(ctx, s.key("assignment", id), &a)
	err = wrap(BackendRedis, "get_assignment", err)
	observe(BackendRedis, "get_assignment", start, err)
	return a, err
}

func (s *RedisStore) PutAssignment(ctx context.Context, a model.Assignment) error {
	start := time.Now()
	data, err := json.Marshal(a)
	if err == nil {
		_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, s.key("assignment", a.ID), data, 0)
			pipe.ZAdd(ctx, s.key("assignments"), redis.Z{Score: float64(a.CreatedAt.UnixMilli()), Member: a.ID})
			pipe.SAdd(ctx, s.key("assessor", a.AssessorID), a.ID)
			return nil
		})
	}
	err = wrap(BackendRedis, "put_assignment", err)
	observe(BackendRedis, "put_assignment", start, err)
	return err
}

func (s *RedisStore) ListAssignments(ctx context.Context, f ListFilter) ([]model.Assignment, error) {
	start := time.Now()
	out, err := s.listAssignments(ctx, f)
	err = wrap(BackendRedis, "list_assignments", err)
	observe(BackendRedis, "list_assignments", start, err)
	return out, err
}

func (s *RedisStore) listAssignments(ctx context.Context, f ListFilter) ([]model.Assignment, error) {
	var (
		ids []string
		err error
	)
	if f.AssessorID != "" {
		ids, err = s.client.SMembers(ctx, s.key("assessor", f.AssessorID)).Result()
	} else {
		ids, err = s.client.ZRange(ctx, s.key("assignments"), 0, -1).Result()
	}
	if err != nil || len(ids) == 0 {
		return []model.Assignment{}, err
	}

	akeys := make([]string, len(ids))
	rkeys := make([]string, len(ids))
	for i, id := range ids {
		akeys[i] = s.key("assignment", id)
		rkeys[i] = s.key("record", id)
	}
	docs, err := s.client.MGet(ctx, akeys...).Result()
	if err != nil {
		return nil, err
	}
	recs, err := s.client.MGet(ctx, rkeys...).Result()
	if err != nil {
		return nil, err
	}

	out := make([]model.Assignment, 0, len(ids))
	for i, doc := range docs {
		raw, ok := doc.(string)
		if !ok {
			continue
		}
		var a model.Assignment
		if err := json.Unmarshal([]byte(raw), &a); err != nil {
			return nil, err
		}
		state := model.NotStarted
		if rec, ok := recs[i].(string); ok {
			var r struct {
				State model.State `json:"state"`
			}
			if err := json.Unmarshal([]byte(rec), &r); err != nil {
				return nil, err
			}
			state = r.State
		}
		if matches(f, a, state) {
			out = append(out, a)
		}
	}
	sortAssignments(out)
	return out, nil
}

func (s *RedisStore) LoadRecord(ctx context.Context, assignmentID string) (model.Record, error) {
	start := time.Now()
	var r model.Record
	err := s.getJSON(ctx, s.key("record", assignmentID), &r)
	err = wrap(BackendRedis, "load_record", err)
	observe(BackendRedis, "load_record", start, err)
	return r, err
}

func (s *RedisStore) SaveRecord(ctx context.Context, r model.Record) error {
	return s.putRecord(ctx, "save_record", r)
}

func (s *RedisStore) SubmitRecord(ctx context.Context, r model.Record) error {
	return s.putRecord(ctx, "submit_record", r)
}

func (s *RedisStore) putRecord(ctx context.Context, op string, r model.Record) error {
	start := time.Now()
	data, err := json.Marshal(r)
	if err == nil {
		err = s.client.Set(ctx, s.key("record", r.AssignmentID), data, 0).Err()
	}
	err = wrap(BackendRedis, op, err)
	observe(BackendRedis, op, start, err)
	return err
}

func (s *RedisStore) Append(ctx context.Context, ev model.LifecycleEvent) error {
	data, err := json.Marshal(ev)
	if err == nil {
		err = s.client.XAdd(ctx, &redis.XAddArgs{
			Stream: s.key("events", ev.AssignmentID),
			Values: map[string]any{"transition": string(ev.Transition), "data": string(data)},
		}).Err()
	}
	return wrap(BackendRedis, "append_event", err)
}

func (s *RedisStore) History(ctx context.Context, assignmentID string) ([]model.LifecycleEvent, error) {
	msgs, err := s.client.XRange(ctx, s.key("events", assignmentID), "-", "+").Result()
	if err != nil {
		return nil, wrap(BackendRedis, "history", err)
	}
	out := make([]model.LifecycleEvent, 0, len(msgs))
	for _, m := range msgs {
		raw, _ := m.Values["data"].(string)
		var ev model.LifecycleEvent
		if err := json.Unmarshal([]byte(raw), &ev); err != nil {
			return nil, wrap(BackendRedis, "history", err)
		}
		out = append(out, ev)
	}
	return out, nil
}

// Close closes the client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) getJSON(ctx context.Context, key string, dst any) error {
	raw, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}
