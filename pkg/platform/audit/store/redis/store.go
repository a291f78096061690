// Package redis mirrors the audit trail into Redis for fast recent-activity
// reads. Records are stored as JSON and indexed by timestamp in sorted sets,
// one for the whole trail plus one per actor and per entity kind. Payloads are
// written without expiry so the mirror stays append-only.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	audit "companyapp/pkg/platform/audit"
)

const (
	defaultPrefix = "companyapp:audit"
	pageSize      = 200
)

type Store struct {
	client goredis.UniversalClient
	prefix string
}

type Option func(*Store)

func WithPrefix(prefix string) Option {
	return func(s *Store) {
		if strings.TrimSpace(prefix) != "" {
			s.prefix = strings.TrimSpace(prefix)
		}
	}
}

func New(client goredis.UniversalClient, opts ...Option) (*Store, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	s := &Store{client: client, prefix: defaultPrefix}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Append stores records. Records that already carry an ID keep it, so the
// mirror shares IDs with the primary store; others get one from a counter.
func (s *Store) Append(ctx context.Context, records []audit.Record) error {
	for i := range records {
		if records[i].ID != 0 {
			continue
		}
		id, err := s.client.Incr(ctx, s.key("seq")).Result()
		if err != nil {
			return fmt.Errorf("allocate audit id: %w", err)
		}
		records[i].ID = id
	}

	pipe := s.client.TxPipeline()
	for _, r := range records {
		raw, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("marshal audit record: %w", err)
		}
		member := memberFor(r.ID)
		z := goredis.Z{Score: scoreFor(r.Timestamp), Member: member}
		pipe.Set(ctx, s.recordKey(member), raw, 0)
		for _, idx := range []string{s.key("idx"), s.actorIndex(r.ActorID), s.kindIndex(r.EntityKind)} {
			pipe.ZAdd(ctx, idx, z)
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save audit records in redis: %w", err)
	}
	return nil
}

// Query returns matching records, newest first. Index entries whose payload
// was evicted by the server are skipped.
func (s *Store) Query(ctx context.Context, filter audit.Filter, limit int) ([]audit.Record, error) {
	limit = audit.NormalizeLimit(limit)

	idx := s.key("idx")
	switch {
	case filter.EntityKind != "":
		idx = s.kindIndex(filter.EntityKind)
	case filter.ActorID != "":
		idx = s.actorIndex(filter.ActorID)
	}

	rng := &goredis.ZRangeBy{Min: "-inf", Max: "+inf", Count: pageSize}
	if !filter.Since.IsZero() {
		rng.Min = strconv.FormatFloat(scoreFor(filter.Since), 'f', 0, 64)
	}
	if !filter.Until.IsZero() {
		rng.Max = "(" + strconv.FormatFloat(scoreFor(filter.Until), 'f', 0, 64)
	}

	var out []audit.Record
	for len(out) < limit {
		members, err := s.client.ZRevRangeByScore(ctx, idx, rng).Result()
		if err != nil {
			return nil, fmt.Errorf("read audit index: %w", err)
		}
		if len(members) == 0 {
			break
		}
		rng.Offset += int64(len(members))

		keys := make([]string, len(members))
		for i, m := range members {
			keys[i] = s.recordKey(m)
		}
		raws, err := s.client.MGet(ctx, keys...).Result()
		if err != nil {
			return nil, fmt.Errorf("load audit records: %w", err)
		}
		for _, raw := range raws {
			str, ok := raw.(string)
			if !ok {
				continue
			}
			var r audit.Record
			if err := json.Unmarshal([]byte(str), &r); err != nil {
				return nil, fmt.Errorf("decode audit record: %w", err)
			}
			if filter.Matches(r) {
				out = append(out, r)
			}
		}
		if len(members) < pageSize {
			break
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].ID > out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) key(parts ...string) string {
	return s.prefix + ":" + strings.Join(parts, ":")
}

func (s *Store) recordKey(member string) string { return s.key("record", member) }
func (s *Store) actorIndex(actorID string) string { return s.key("idx", "actor", actorID) }
func (s *Store) kindIndex(kind string) string    { return s.key("idx", "entity", kind) }

// memberFor zero-pads the ID so equal scores order by ID.
func memberFor(id int64) string {
	return fmt.Sprintf("%020d", id)
}

func scoreFor(t time.Time) float64 {
	return float64(t.UTC().UnixMicro())
}
