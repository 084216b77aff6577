// Package authcache memoizes part authorizations per (transaction,
// part) key so concurrent demands for the same part issue exactly one
// fetch against the remote store. Entries are not evicted when their
// validity window passes; an expired authorization is detected either
// here on lookup or by the transfer executor at PUT time, and both
// paths converge on a fresh fetch.
package authcache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/derektruong/mpxfer/transaction"
	"github.com/go-logr/logr"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// expiryMargin is subtracted from every authorization's validity window
// so a part transfer never starts with an authorization about to lapse.
const expiryMargin = 30 * time.Second

// Fetcher obtains a fresh authorization for one part. The coordinator
// supplies the transaction's AuthorizePart bound to its context.
type Fetcher func(ctx context.Context, transactionID string, partNumber int32) (transaction.PartAuthorization, error)

// Cache deduplicates and memoizes part authorization fetches across all
// tasks. Keys embed the transaction ID, so tasks never collide.
type Cache struct {
	logger logr.Logger

	mu      sync.Mutex
	entries map[string]transaction.PartAuthorization

	// flight serializes concurrent fetches for the same key
	flight singleflight.Group

	// prefetchLimit bounds how many warm-up fetches run at once
	prefetchLimit int
}

// New constructs an empty cache.
func New(logger logr.Logger) (c *Cache) {
	c = &Cache{
		logger:        logger.WithName("authcache"),
		entries:       make(map[string]transaction.PartAuthorization),
		prefetchLimit: 3,
	}
	return
}

// GetOrFetch returns the cached authorization for the part, fetching it
// when absent or known-expired. Concurrent callers for the same key
// share a single underlying fetch. A failed fetch populates nothing and
// the error propagates unchanged; retry policy belongs to the caller.
func (c *Cache) GetOrFetch(
	ctx context.Context,
	transactionID string,
	partNumber int32,
	fetch Fetcher,
) (auth transaction.PartAuthorization, err error) {
	key := cacheKey(transactionID, partNumber)

	c.mu.Lock()
	cached, ok := c.entries[key]
	c.mu.Unlock()
	if ok && !cached.Expired(time.Now(), expiryMargin) {
		return cached, nil
	}

	result, err, _ := c.flight.Do(key, func() (any, error) {
		fetched, fetchErr := fetch(ctx, transactionID, partNumber)
		if fetchErr != nil {
			return transaction.PartAuthorization{}, fetchErr
		}
		c.mu.Lock()
		c.entries[key] = fetched
		c.mu.Unlock()
		return fetched, nil
	})
	if err != nil {
		return
	}
	auth = result.(transaction.PartAuthorization)
	return
}

// Prefetch warms the cache for a lookahead window of parts. It blocks
// until every fetch settles, so callers typically run it in its own
// goroutine. Failures are logged and dropped: the demand path fetches
// again when the part actually comes up.
func (c *Cache) Prefetch(
	ctx context.Context,
	transactionID string,
	partNumbers []int32,
	fetch Fetcher,
) {
	var eg errgroup.Group
	eg.SetLimit(c.prefetchLimit)
	for _, partNumber := range partNumbers {
		eg.Go(func() error {
			if _, err := c.GetOrFetch(ctx, transactionID, partNumber, fetch); err != nil {
				c.logger.V(1).Info("authorization prefetch failed",
					"transactionID", transactionID,
					"partNumber", partNumber,
					"errorMessage", err.Error(),
				)
			}
			return nil
		})
	}
	_ = eg.Wait()
}

// Invalidate drops one part's entry, forcing the next GetOrFetch to hit
// the store. The executor triggers this after an expiry failure.
func (c *Cache) Invalidate(transactionID string, partNumber int32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, cacheKey(transactionID, partNumber))
}

// DropTransaction removes every entry belonging to the transaction.
// Called when a task reaches a terminal state.
func (c *Cache) DropTransaction(transactionID string) {
	prefix := transactionID + "#"
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.entries {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			delete(c.entries, key)
		}
	}
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func cacheKey(transactionID string, partNumber int32) string {
	return fmt.Sprintf("%s#%d", transactionID, partNumber)
}
