package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const (
	NamespaceDiscovery  = "discover"
	NamespaceMatches    = "matches"
	NamespacePairStatus = "pair"

	envelopeVersion = 1
)

var (
	ErrCacheMiss     = errors.New("cache miss")
	ErrCacheEnvelope = errors.New("cache envelope mismatch")
)

// envelope tags every cached value so stale or foreign payloads read as a
// miss instead of deserializing into the wrong shape.
type envelope struct {
	NS      string          `json:"ns"`
	V       int             `json:"v"`
	SavedAt int64           `json:"saved_at"`
	Payload json.RawMessage `json:"payload"`
}

type CacheRepo struct {
	client *goredis.Client
	now    func() time.Time
}

func NewCacheRepo(client *goredis.Client) *CacheRepo {
	return &CacheRepo{
		client: client,
		now:    time.Now,
	}
}

func DiscoveryKey(userID int64, mode string, count int) string {
	return NamespaceDiscovery + ":" + strconv.FormatInt(userID, 10) + ":" + mode + ":" + strconv.Itoa(count)
}

func MatchesKey(userID int64) string {
	return NamespaceMatches + ":" + strconv.FormatInt(userID, 10)
}

func PairStatusKey(userID, targetID int64) string {
	userA := userID
	userB := targetID
	if userA > userB {
		userA, userB = userB, userA
	}
	return NamespacePairStatus + ":" + strconv.FormatInt(userA, 10) + ":" + strconv.FormatInt(userB, 10)
}

func (r *CacheRepo) Get(ctx context.Context, ns, key string, out interface{}) error {
	if r.client == nil {
		return ErrCacheMiss
	}
	if ns == "" || key == "" || out == nil {
		return fmt.Errorf("invalid cache get payload")
	}

	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return ErrCacheMiss
		}
		return fmt.Errorf("get cache key: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return ErrCacheEnvelope
	}
	if env.NS != ns || env.V != envelopeVersion {
		return ErrCacheEnvelope
	}
	if err := json.Unmarshal(env.Payload, out); err != nil {
		return ErrCacheEnvelope
	}

	return nil
}

func (r *CacheRepo) Set(ctx context.Context, ns, key string, value interface{}, ttl time.Duration) error {
	if r.client == nil {
		return nil
	}
	if ns == "" || key == "" || ttl <= 0 {
		return fmt.Errorf("invalid cache set payload")
	}

	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache payload: %w", err)
	}

	raw, err := json.Marshal(envelope{
		NS:      ns,
		V:       envelopeVersion,
		SavedAt: r.now().UTC().Unix(),
		Payload: payload,
	})
	if err != nil {
		return fmt.Errorf("marshal cache envelope: %w", err)
	}

	if err := r.client.Set(ctx, key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("set cache key: %w", err)
	}

	return nil
}

// InvalidateDecision drops the discovery views of the given users across
// every page-size variant. Stateless and idempotent.
func (r *CacheRepo) InvalidateDecision(ctx context.Context, userIDs []int64, pageSizes []int) error {
	if r.client == nil || len(userIDs) == 0 {
		return nil
	}

	keys := make([]string, 0, len(userIDs)*len(pageSizes)*2)
	for _, userID := range userIDs {
		for _, mode := range []string{"local", "global"} {
			for _, size := range pageSizes {
				keys = append(keys, DiscoveryKey(userID, mode, size))
			}
		}
	}

	return r.deleteKeys(ctx, keys)
}

// InvalidateMatchChange additionally drops match lists and the pair status
// entry. Used after match creation, unmatch, block, and report.
func (r *CacheRepo) InvalidateMatchChange(ctx context.Context, userID, targetID int64, pageSizes []int) error {
	if r.client == nil {
		return nil
	}

	if err := r.InvalidateDecision(ctx, []int64{userID, targetID}, pageSizes); err != nil {
		return err
	}

	keys := []string{
		MatchesKey(userID),
		MatchesKey(targetID),
		PairStatusKey(userID, targetID),
	}
	return r.deleteKeys(ctx, keys)
}

func (r *CacheRepo) deleteKeys(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("delete cache keys: %w", err)
	}
	return nil
}
