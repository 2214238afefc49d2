package mirrors

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/redis/go-redis/v9"
)

const defaultStoreKey = "metasearch:adapters:endpoints:v1"

// State is the persisted per-adapter override. Index sites rotate mirror
// domains often enough that the active endpoint has to survive restarts
// without a redeploy.
type State struct {
	Endpoint string `json:"endpoint,omitempty"`
}

type Store interface {
	Load(ctx context.Context) (map[string]State, error)
	Save(ctx context.Context, adapter string, state State) error
}

type RedisStore struct {
	client redis.UniversalClient
	key    string
}

func NewRedisStore(client redis.UniversalClient, key string) *RedisStore {
	if client == nil {
		return nil
	}
	storeKey := strings.TrimSpace(key)
	if storeKey == "" {
		storeKey = defaultStoreKey
	}
	return &RedisStore{
		client: client,
		key:    storeKey,
	}
}

func (s *RedisStore) Load(ctx context.Context) (map[string]State, error) {
	if s == nil || s.client == nil {
		return nil, nil
	}
	items, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}

	out := make(map[string]State, len(items))
	for adapter, encoded := range items {
		name := strings.ToLower(strings.TrimSpace(adapter))
		if name == "" || strings.TrimSpace(encoded) == "" {
			continue
		}
		var state State
		if err := json.Unmarshal([]byte(encoded), &state); err != nil {
			continue
		}
		out[name] = state
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

func (s *RedisStore) Save(ctx context.Context, adapter string, state State) error {
	if s == nil || s.client == nil {
		return nil
	}
	name := strings.ToLower(strings.TrimSpace(adapter))
	if name == "" {
		return nil
	}
	state.Endpoint = strings.TrimSpace(state.Endpoint)

	// An empty override means "back to the built-in endpoint".
	if state.Endpoint == "" {
		return s.client.HDel(ctx, s.key, name).Err()
	}

	payload, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return s.client.HSet(ctx, s.key, name, payload).Err()
}
