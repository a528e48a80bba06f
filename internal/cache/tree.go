package cache

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"coinboard/internal/domain"
	"coinboard/internal/logging"
)

const (
	// TreeKey is the Redis key holding the serialized category tree.
	TreeKey = "coinboard:categories:tree"

	// TreeGenKey counts invalidations of TreeKey.
	TreeGenKey = "coinboard:categories:tree:gen"

	// DefaultTreeTTL bounds staleness if an invalidation is lost.
	DefaultTreeTTL = 5 * time.Minute
)

// setIfGeneration stores the tree only while the generation is unchanged.
var setIfGeneration = redis.NewScript(`
local gen = redis.call('GET', KEYS[2]) or '0'
if gen ~= ARGV[1] then
	return 0
end
redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
return 1
`)

// TreeCache stores the assembled category tree as JSON. Redis errors are logged and
// treated as misses so the database stays the source of truth.
type TreeCache struct {
	client redis.Cmdable
	ttl    time.Duration
	logger *zap.Logger
}

func NewTreeCache(client redis.Cmdable, ttl time.Duration, logger *zap.Logger) *TreeCache {
	if ttl <= 0 {
		ttl = DefaultTreeTTL
	}
	return &TreeCache{client: client, ttl: ttl, logger: logging.OrNop(logger).Named("tree_cache")}
}

// Get returns the cached tree and the current generation. The generation is -1 when
// Redis cannot be read.
func (c *TreeCache) Get(ctx context.Context) ([]domain.CategoryNode, int64, bool) {
	vals, err := c.client.MGet(ctx, TreeKey, TreeGenKey).Result()
	if err != nil {
		c.logger.Warn("tree cache get failed", zap.Error(err))
		return nil, -1, false
	}
	gen, err := parseGeneration(vals[1])
	if err != nil {
		c.logger.Warn("tree cache generation unreadable", zap.Error(err))
		return nil, -1, false
	}
	raw, ok := vals[0].(string)
	if !ok {
		return nil, gen, false
	}
	nodes, err := decodeTree([]byte(raw))
	if err != nil {
		c.logger.Warn("tree cache entry unreadable", zap.Error(err))
		return nil, gen, false
	}
	c.logger.Debug("tree cache hit", zap.Int64("gen", gen))
	return nodes, gen, true
}

// Set stores nodes if no invalidation happened since gen was read.
func (c *TreeCache) Set(ctx context.Context, gen int64, nodes []domain.CategoryNode) {
	if gen < 0 {
		return
	}
	raw, err := encodeTree(nodes)
	if err != nil {
		c.logger.Warn("tree cache encode failed", zap.Error(err))
		return
	}
	stored, err := setIfGeneration.Run(ctx, c.client, []string{TreeKey, TreeGenKey}, gen, raw, c.ttl.Milliseconds()).Int()
	if err != nil {
		c.logger.Warn("tree cache set failed", zap.Error(err))
		return
	}
	if stored == 0 {
		c.logger.Debug("tree cache set skipped, generation moved", zap.Int64("gen", gen))
	}
}

// Invalidate drops the cached tree and starts a new generation.
func (c *TreeCache) Invalidate(ctx context.Context) {
	pipe := c.client.TxPipeline()
	pipe.Incr(ctx, TreeGenKey)
	pipe.Del(ctx, TreeKey)
	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.Warn("tree cache invalidate failed", zap.Error(err))
	}
}

func parseGeneration(v any) (int64, error) {
	s, ok := v.(string)
	if !ok {
		return 0, nil
	}
	return strconv.ParseInt(s, 10, 64)
}

func encodeTree(nodes []domain.CategoryNode) ([]byte, error) {
	if nodes == nil {
		nodes = []domain.CategoryNode{}
	}
	return json.Marshal(nodes)
}

func decodeTree(raw []byte) ([]domain.CategoryNode, error) {
	var nodes []domain.CategoryNode
	if err := json.Unmarshal(raw, &nodes); err != nil {
		return nil, err
	}
	if nodes == nil {
		nodes = []domain.CategoryNode{}
	}
	return nodes, nil
}
