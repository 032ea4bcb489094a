// Package redisstore implements store.Store on Redis. Each document is a
// hash holding its body and version; a sorted set per kind keeps insertion
// order for Find.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/cwrk-planet/studyroom/internal/store"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	fieldBody    = "body"
	fieldVersion = "version"

	defaultMaxRetries = 64
)

type Config struct {
	Addr       string
	Password   string
	DB         int
	KeyPrefix  string
	MaxRetries int
}

type Store struct {
	rdb        *redis.Client
	prefix     string
	maxRetries int
	tracer     trace.Tracer
}

// New connects to Redis and pings it.
func New(ctx context.Context, cfg Config) (*Store, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewWithClient(rdb, cfg), nil
}

func NewWithClient(rdb *redis.Client, cfg Config) *Store {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	return &Store{
		rdb:        rdb,
		prefix:     cfg.KeyPrefix,
		maxRetries: cfg.MaxRetries,
		tracer:     otel.Tracer("studyroom/redisstore"),
	}
}

func (s *Store) docKey(kind store.Kind, id string) string {
	return fmt.Sprintf("%s%s:%s", s.prefix, kind, id)
}

func (s *Store) indexKey(kind store.Kind) string {
	return fmt.Sprintf("%s%s:index", s.prefix, kind)
}

func (s *Store) seqKey(kind store.Kind) string {
	return fmt.Sprintf("%s%s:seq", s.prefix, kind)
}

// uniqKey claims one value of a unique field. Claims are never released:
// nothing deletes documents or rewrites their unique fields.
func (s *Store) uniqKey(kind store.Kind, f store.Filter) string {
	return fmt.Sprintf("%s%s:uniq:%s:%s", s.prefix, kind, f.Field, f.Value)
}

func (s *Store) startSpan(ctx context.Context, op string, kind store.Kind, id string) (context.Context, trace.Span) {
	ctx, span := s.tracer.Start(ctx, "redisstore."+op)
	span.SetAttributes(attribute.String("store.kind", string(kind)))
	if id != "" {
		span.SetAttributes(attribute.String("store.id", id))
	}
	return ctx, span
}

func endSpan(span trace.Span, err error) {
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (s *Store) Get(ctx context.Context, kind store.Kind, id string) (doc store.Document, err error) {
	ctx, span := s.startSpan(ctx, "Get", kind, id)
	defer func() { endSpan(span, err) }()

	vals, err := s.rdb.HMGet(ctx, s.docKey(kind, id), fieldBody, fieldVersion).Result()
	if err != nil {
		return store.Document{}, err
	}
	return decodeHash(id, vals)
}

// Create watches the document key and every unique claim key, so a
// concurrent create of either aborts the transaction.
func (s *Store) Create(ctx context.Context, kind store.Kind, id string, body []byte, unique ...string) (err error) {
	ctx, span := s.startSpan(ctx, "Create", kind, id)
	defer func() { endSpan(span, err) }()

	seq, err := s.rdb.Incr(ctx, s.seqKey(kind)).Result()
	if err != nil {
		return err
	}
	key := s.docKey(kind, id)
	keys := []string{key}
	for _, f := range store.UniqueFilters(body, unique) {
		keys = append(keys, s.uniqKey(kind, f))
	}

	return s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, keys...).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return store.ErrExists
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.HSet(ctx, key, fieldBody, body, fieldVersion, 1)
			p.ZAdd(ctx, s.indexKey(kind), redis.Z{Score: float64(seq), Member: id})
			for _, k := range keys[1:] {
				p.Set(ctx, k, id, 0)
			}
			return nil
		})
		if errors.Is(err, redis.TxFailedErr) {
			return store.ErrExists
		}
		return err
	}, keys...)
}

func (s *Store) Update(ctx context.Context, kind store.Kind, id string, fn store.MutateFunc) (doc store.Document, err error) {
	ctx, span := s.startSpan(ctx, "Update", kind, id)
	defer func() { endSpan(span, err) }()

	key := s.docKey(kind, id)
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		err = s.rdb.Watch(ctx, func(tx *redis.Tx) error {
			vals, err := tx.HMGet(ctx, key, fieldBody, fieldVersion).Result()
			if err != nil {
				return err
			}
			cur, err := decodeHash(id, vals)
			if err != nil {
				return err
			}
			next, err := fn(cur.Body)
			if err != nil {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
				p.HSet(ctx, key, fieldBody, next, fieldVersion, cur.Version+1)
				return nil
			})
			if err != nil {
				return err
			}
			doc = store.Document{ID: id, Version: cur.Version + 1, Body: next}
			return nil
		}, key)

		if !errors.Is(err, redis.TxFailedErr) {
			if err != nil {
				return store.Document{}, err
			}
			return doc, nil
		}
		span.AddEvent("retry", trace.WithAttributes(attribute.Int("attempt", attempt+1)))
	}
	return store.Document{}, store.ErrConflict
}

func (s *Store) Find(ctx context.Context, kind store.Kind, filters ...store.Filter) (docs []store.Document, err error) {
	ctx, span := s.startSpan(ctx, "Find", kind, "")
	defer func() { endSpan(span, err) }()

	ids, err := s.rdb.ZRange(ctx, s.indexKey(kind), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	cmds := make([]*redis.SliceCmd, len(ids))
	_, err = s.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = p.HMGet(ctx, s.docKey(kind, id), fieldBody, fieldVersion)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for i, cmd := range cmds {
		d, err := decodeHash(ids[i], cmd.Val())
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if store.Match(d.Body, filters) {
			docs = append(docs, d)
		}
	}
	span.SetAttributes(attribute.Int("store.matched", len(docs)))
	return docs, nil
}

func (s *Store) Close() error {
	return s.rdb.Close()
}

func decodeHash(id string, vals []any) (store.Document, error) {
	if len(vals) != 2 || vals[0] == nil {
		return store.Document{}, store.ErrNotFound
	}
	body, ok := vals[0].(string)
	if !ok {
		return store.Document{}, fmt.Errorf("redisstore: unexpected body type %T", vals[0])
	}
	var version int64
	if v, ok := vals[1].(string); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return store.Document{}, fmt.Errorf("redisstore: bad version %q: %w", v, err)
		}
		version = n
	}
	return store.Document{ID: id, Version: version, Body: []byte(body)}, nil
}
