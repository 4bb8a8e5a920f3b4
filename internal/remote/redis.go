package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"opsmap/internal/domain"
)

// RedisStore keeps each workspace as a JSON document plus a per-owner index set.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore connects to redisURL and checks the connection.
func NewRedisStore(redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return NewRedisStoreWithClient(client), nil
}

func NewRedisStoreWithClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, prefix: "opsmap:"}
}

func (s *RedisStore) workspaceKey(id string) string {
	return s.prefix + "workspace:" + id
}

func (s *RedisStore) ownerKey(userID string) string {
	return s.prefix + "owner:" + userID
}

func (s *RedisStore) LoadWorkspacesForUser(ctx context.Context, userID string) ([]domain.Workspace, error) {
	ids, err := s.client.SMembers(ctx, s.ownerKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("list workspaces: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.workspaceKey(id)
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("load workspaces: %w", err)
	}
	out := make([]domain.Workspace, 0, len(vals))
	for i, v := range vals {
		raw, ok := v.(string)
		if !ok {
			// index entry without a document; skip it
			continue
		}
		var ws domain.Workspace
		if err := json.Unmarshal([]byte(raw), &ws); err != nil {
			return nil, fmt.Errorf("decode workspace %s: %w", ids[i], err)
		}
		if ws.OwnerUserID != userID {
			continue
		}
		out = append(out, ws)
	}
	sortByCreation(out)
	return out, nil
}

func (s *RedisStore) UpsertWorkspace(ctx context.Context, ws domain.Workspace) error {
	key := s.workspaceKey(ws.ID)
	cur, err := s.client.Get(ctx, key).Result()
	switch {
	case err == redis.Nil:
	case err != nil:
		return fmt.Errorf("read workspace: %w", err)
	default:
		var existing domain.Workspace
		if err := json.Unmarshal([]byte(cur), &existing); err == nil && existing.OwnerUserID != ws.OwnerUserID {
			return ErrForbidden
		}
	}
	data, err := json.Marshal(ws)
	if err != nil {
		return fmt.Errorf("marshal workspace: %w", err)
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, key, data, 0)
	pipe.SAdd(ctx, s.ownerKey(ws.OwnerUserID), ws.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save workspace: %w", err)
	}
	return nil
}

// DeleteWorkspace removes a workspace owned by userID.
func (s *RedisStore) DeleteWorkspace(ctx context.Context, userID, id string) error {
	key := s.workspaceKey(id)
	cur, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return domain.NotFoundError{Kind: domain.KindWorkspace, ID: id}
	}
	if err != nil {
		return fmt.Errorf("read workspace: %w", err)
	}
	var existing domain.Workspace
	if err := json.Unmarshal([]byte(cur), &existing); err != nil {
		return fmt.Errorf("decode workspace %s: %w", id, err)
	}
	if existing.OwnerUserID != userID {
		return ErrForbidden
	}
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, key)
	pipe.SRem(ctx, s.ownerKey(userID), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete workspace: %w", err)
	}
	return nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

// ListWorkspaces, GetWorkspace and PutWorkspace let the hosted backend keep its
// rows in Redis instead of SQLite.
func (s *RedisStore) ListWorkspaces(ctx context.Context, owner string) ([]domain.Workspace, error) {
	items, err := s.LoadWorkspacesForUser(ctx, owner)
	if items == nil && err == nil {
		items = []domain.Workspace{}
	}
	return items, err
}

func (s *RedisStore) GetWorkspace(ctx context.Context, owner, id string) (domain.Workspace, error) {
	raw, err := s.client.Get(ctx, s.workspaceKey(id)).Result()
	if err == redis.Nil {
		return domain.Workspace{}, domain.NotFoundError{Kind: domain.KindWorkspace, ID: id}
	}
	if err != nil {
		return domain.Workspace{}, fmt.Errorf("read workspace: %w", err)
	}
	var ws domain.Workspace
	if err := json.Unmarshal([]byte(raw), &ws); err != nil {
		return domain.Workspace{}, fmt.Errorf("decode workspace %s: %w", id, err)
	}
	if ws.OwnerUserID != owner {
		return domain.Workspace{}, ErrForbidden
	}
	return ws, nil
}

func (s *RedisStore) PutWorkspace(ctx context.Context, owner string, ws domain.Workspace) (domain.Workspace, bool, error) {
	ws.OwnerUserID = owner
	exists, err := s.client.Exists(ctx, s.workspaceKey(ws.ID)).Result()
	if err != nil {
		return ws, false, fmt.Errorf("read workspace: %w", err)
	}
	if err := s.UpsertWorkspace(ctx, ws); err != nil {
		return ws, false, err
	}
	return ws, exists == 0, nil
}
