package redis

import (
	"context"
	"time"

	"github.com/turtacn/ContractLens/internal/intelligence/common"
	"github.com/turtacn/ContractLens/pkg/errors"
	"github.com/turtacn/ContractLens/pkg/types/contract"
)

const (
	answerNamespace = "answer:"
	answerCacheName = "redis_answers"
)

// AnswerCache stores per-category answers shared by every API and worker
// replica. Keys are opaque digests computed by the caller.
type AnswerCache struct {
	cache   Cache
	ttl     time.Duration
	metrics common.IntelligenceMetrics
}

// NewAnswerCache wraps cache. A zero ttl uses the client default.
func NewAnswerCache(cache Cache, ttl time.Duration, metrics common.IntelligenceMetrics) *AnswerCache {
	if metrics == nil {
		metrics = common.NewNoopIntelligenceMetrics()
	}
	return &AnswerCache{cache: cache, ttl: ttl, metrics: metrics}
}

// Get returns the cached answer and whether it was present. Redis faults are
// returned so the caller can decide to degrade.
func (a *AnswerCache) Get(ctx context.Context, key string) (contract.AnswerResult, bool, error) {
	var res contract.AnswerResult
	err := a.cache.Get(ctx, answerNamespace+key, &res)
	switch {
	case err == nil:
		a.metrics.RecordCacheAccess(ctx, true, answerCacheName)
		return res, true, nil
	case errors.IsCode(err, errors.ErrCodeNotFound):
		a.metrics.RecordCacheAccess(ctx, false, answerCacheName)
		return contract.AnswerResult{}, false, nil
	default:
		a.metrics.RecordCacheAccess(ctx, false, answerCacheName)
		return contract.AnswerResult{}, false, err
	}
}

// Put stores res under key.
func (a *AnswerCache) Put(ctx context.Context, key string, res contract.AnswerResult) error {
	return a.cache.Set(ctx, answerNamespace+key, res, a.ttl)
}

// Purge drops every cached answer, typically after a model rollout.
func (a *AnswerCache) Purge(ctx context.Context) (int64, error) {
	return a.cache.DeleteByPrefix(ctx, answerNamespace)
}

// Ping checks the backing store.
func (a *AnswerCache) Ping(ctx context.Context) error { return a.cache.Ping(ctx) }

//Personal.AI order the ending
