package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/yungbote/postbridge-backend/internal/domain"
	"github.com/yungbote/postbridge-backend/internal/observability"
	"github.com/yungbote/postbridge-backend/internal/platform/ctxutil"
	"github.com/yungbote/postbridge-backend/internal/platform/logger"
)

// ByteCache is satisfied by the redis cache.
type ByteCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// sharedGenerateTimeout bounds a collapsed generation once it no longer
// follows any single caller's context.
const sharedGenerateTimeout = 90 * time.Second

type cachingGenerator struct {
	log     *logger.Logger
	next    AnswerGenerator
	cache   ByteCache
	ttl     time.Duration
	metrics *observability.Metrics
	timeout time.Duration
	group   singleflight.Group
}

// NewCachingAnswerGenerator memoizes answers by (query, anchor, context
// fingerprint) and collapses identical concurrent requests. cache may be nil,
// in which case only the collapsing applies. Cache failures are logged and
// never fail the request. The collapsed call outlives any one caller; each
// caller stops waiting when its own ctx is done.
func NewCachingAnswerGenerator(log *logger.Logger, next AnswerGenerator, cache ByteCache, ttl time.Duration, metrics *observability.Metrics) AnswerGenerator {
	return &cachingGenerator{
		log:     log.With("service", "AnswerCache"),
		next:    next,
		cache:   cache,
		ttl:     ttl,
		metrics: metrics,
		timeout: sharedGenerateTimeout,
	}
}

func (g *cachingGenerator) Generate(ctx context.Context, query, anchorID string, contexts []domain.ContextRecord, systemPrompt string) (*domain.StructuredAnswer, error) {
	key := AnswerCacheKey(query, anchorID, contexts, systemPrompt)

	if g.cache != nil {
		raw, ok, err := g.cache.Get(ctx, key)
		switch {
		case err != nil:
			g.log.Warn("Answer cache read failed", append(ctxutil.LogFields(ctx), "error", err)...)
		case ok:
			if ans, perr := ParseAnswer(string(raw)); perr == nil {
				g.metrics.IncCacheLookup(true)
				return ans, nil
			}
			g.log.Warn("Discarding unreadable cached answer", ctxutil.LogFields(ctx)...)
		}
		g.metrics.IncCacheLookup(false)
	}

	ch := g.group.DoChan(key, func() (any, error) {
		shared, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.timeout)
		defer cancel()
		ans, err := g.next.Generate(shared, query, anchorID, contexts, systemPrompt)
		if err != nil {
			return nil, err
		}
		g.store(shared, key, ans)
		return ans, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		shared := *res.Val.(*domain.StructuredAnswer)
		return &shared, nil
	}
}

func (g *cachingGenerator) store(ctx context.Context, key string, ans *domain.StructuredAnswer) {
	if g.cache == nil {
		return
	}
	raw, err := json.Marshal(ans)
	if err != nil {
		return
	}
	if err := g.cache.Set(ctx, key, raw, g.ttl); err != nil {
		g.log.Warn("Answer cache write failed", append(ctxutil.LogFields(ctx), "error", err)...)
	}
}

// AnswerCacheKey fingerprints everything the answer depends on.
func AnswerCacheKey(query, anchorID string, contexts []domain.ContextRecord, systemPrompt string) string {
	h := sha256.New()
	write := func(s string) {
		h.Write([]byte(s))
		h.Write([]byte{0})
	}
	write(query)
	write(anchorID)
	write(systemPrompt)
	for _, c := range contexts {
		write(c.ID)
		// map keys marshal in sorted order
		meta, _ := json.Marshal(c.Metadata.Flatten())
		write(string(meta))
	}
	return "answer:v1:" + hex.EncodeToString(h.Sum(nil))
}
