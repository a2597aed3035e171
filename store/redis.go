package store

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/rushteam/movierec/core"
)

// DefaultRedisPrefix 是 Redis key 的默认前缀。
const DefaultRedisPrefix = "movierec"

// RedisRatingStore 是 Redis 实现的评分存储，作为评分数据的共享来源（rating source/sink）。
//
// Key 布局：
//   - {prefix}:users          SET，全部 user ID
//   - {prefix}:user:{userID}  HASH，field = item ID，value = 评分
//
// 只保存原始评分；交互矩阵与相似度矩阵仍在进程内构建，不落盘。
type RedisRatingStore struct {
	client *redis.Client
	prefix string
}

func NewRedisRatingStore(addr string, db int, prefix string) (*RedisRatingStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		_ = client.Close()
		return nil, core.NewDomainError(core.ModuleStore, core.ErrorCodeUnavailable,
			fmt.Sprintf("store: redis ping %s: %v", addr, err))
	}
	return NewRedisRatingStoreFromClient(client, prefix), nil
}

// NewRedisRatingStoreFromClient 复用已有的 redis.Client。
func NewRedisRatingStoreFromClient(client *redis.Client, prefix string) *RedisRatingStore {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisRatingStore{client: client, prefix: prefix}
}

func (r *RedisRatingStore) Name() string { return "redis" }

func (r *RedisRatingStore) usersKey() string { return r.prefix + ":users" }

func (r *RedisRatingStore) userKey(userID int64) string {
	return r.prefix + ":user:" + strconv.FormatInt(userID, 10)
}

// SaveRatings 批量写入评分（覆盖同一 (user, item) 的旧值），使用 pipeline 一次提交。
func (r *RedisRatingStore) SaveRatings(ctx context.Context, ratings []core.Rating) error {
	if len(ratings) == 0 {
		return nil
	}
	pipe := r.client.Pipeline()
	for _, rt := range ratings {
		pipe.SAdd(ctx, r.usersKey(), rt.UserID)
		pipe.HSet(ctx, r.userKey(rt.UserID), strconv.FormatInt(rt.ItemID, 10),
			strconv.FormatFloat(rt.Value, 'g', -1, 64))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store: redis save ratings: %w", err)
	}
	return nil
}

// UserRatings 读取单个用户的评分；用户不存在时返回空 map。
func (r *RedisRatingStore) UserRatings(ctx context.Context, userID int64) (map[int64]float64, error) {
	vals, err := r.client.HGetAll(ctx, r.userKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("store: redis hgetall user %d: %w", userID, err)
	}
	return parseUserHash(userID, vals)
}

// LoadRatings 实现 core.RatingSource：SMEMBERS 取全部用户，再用 pipeline 批量 HGETALL。
// 返回结果按 (user, item) 升序。
func (r *RedisRatingStore) LoadRatings(ctx context.Context) ([]core.Rating, error) {
	members, err := r.client.SMembers(ctx, r.usersKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("store: redis smembers: %w", err)
	}
	users := make([]int64, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			return nil, core.NewDomainError(core.ModuleStore, core.ErrorCodeInvalidInput,
				fmt.Sprintf("store: bad user id %q in %s", m, r.usersKey()))
		}
		users = append(users, id)
	}
	sort.Slice(users, func(i, j int) bool { return users[i] < users[j] })

	pipe := r.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(users))
	for i, uid := range users {
		cmds[i] = pipe.HGetAll(ctx, r.userKey(uid))
	}
	if len(users) > 0 {
		if _, err := pipe.Exec(ctx); err != nil {
			return nil, fmt.Errorf("store: redis load ratings: %w", err)
		}
	}

	var out []core.Rating
	for i, uid := range users {
		row, err := parseUserHash(uid, cmds[i].Val())
		if err != nil {
			return nil, err
		}
		for _, iid := range sortedIDs(row) {
			out = append(out, core.Rating{UserID: uid, ItemID: iid, Value: row[iid]})
		}
	}
	return out, nil
}

// Clear 删除该前缀下的全部评分数据。
func (r *RedisRatingStore) Clear(ctx context.Context) error {
	members, err := r.client.SMembers(ctx, r.usersKey()).Result()
	if err != nil {
		return fmt.Errorf("store: redis smembers: %w", err)
	}
	keys := make([]string, 0, len(members)+1)
	for _, m := range members {
		keys = append(keys, r.prefix+":user:"+m)
	}
	keys = append(keys, r.usersKey())
	return r.client.Del(ctx, keys...).Err()
}

func (r *RedisRatingStore) Close() error {
	return r.client.Close()
}

func parseUserHash(userID int64, vals map[string]string) (map[int64]float64, error) {
	out := make(map[int64]float64, len(vals))
	for field, raw := range vals {
		itemID, err := strconv.ParseInt(field, 10, 64)
		if err != nil {
			return nil, core.NewDomainError(core.ModuleStore, core.ErrorCodeInvalidInput,
				fmt.Sprintf("store: bad item id %q for user %d", field, userID))
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, core.NewDomainError(core.ModuleStore, core.ErrorCodeInvalidInput,
				fmt.Sprintf("store: bad rating %q for user %d item %d", raw, userID, itemID))
		}
		out[itemID] = v
	}
	return out, nil
}

var _ core.RatingSource = (*RedisRatingStore)(nil)
