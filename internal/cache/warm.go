package cache

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
)

// Topic identifies one piece of content to pre-populate.
type Topic struct {
	Name        string
	ContentType string
}

// Producer computes the value to cache for a topic. It is supplied by the
// caller; the warmer never knows how content is generated.
type Producer func(ctx context.Context, topic Topic) (any, error)

// WarmResult reports the outcome of a warming run.
type WarmResult struct {
	Warmed int
	Failed int
	Total  int
}

// Warmer concurrently pre-populates a store for a list of topics ahead of
// demand. Individual failures are independent; a run never aborts early.
type Warmer struct {
	store       *Store
	concurrency int
	ttl         time.Duration
	logger      *log.Logger
}

// NewWarmer creates a warmer over the given store. Warmed entries are
// stored with the given ttl; DefaultTTL applies the store default.
func NewWarmer(store *Store, concurrency int, ttl time.Duration) *Warmer {
	if concurrency < 1 {
		concurrency = 1
	}

	return &Warmer{
		store:       store,
		concurrency: concurrency,
		ttl:         ttl,
		logger:      log.WithPrefix("cache.warmer"),
	}
}

// WarmKey derives the cache key under which a warmed topic is stored.
func WarmKey(topic Topic) string {
	return fmt.Sprintf("warm:%s:%s", topic.ContentType, topic.Name)
}

// Warm produces and caches a value for every topic, running up to the
// configured number of producers concurrently.
func (w *Warmer) Warm(ctx context.Context, topics []Topic, produce Producer) WarmResult {
	var warmed atomic.Int64

	g := new(errgroup.Group)
	g.SetLimit(w.concurrency)

	for _, topic := range topics {
		topic := topic
		g.Go(func() error {
			value, err := produce(ctx, topic)
			if err != nil {
				w.logger.Warn("producer failed",
					"topic", topic.Name, "content_type", topic.ContentType, "err", err)
				return nil
			}

			meta := map[string]string{
				"content_type": topic.ContentType,
				"warmed":       "true",
			}

			if w.store.SetContext(ctx, WarmKey(topic), value, w.ttl, meta) {
				warmed.Add(1)
			}

			return nil
		})
	}

	_ = g.Wait()

	result := WarmResult{
		Warmed: int(warmed.Load()),
		Total:  len(topics),
	}
	result.Failed = result.Total - result.Warmed

	w.logger.Info("warming complete", "warmed", result.Warmed, "total", result.Total)

	return result
}
