/*
Copyright 2025 The KGCL Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package condition

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores condition Results keyed by CacheKey, with a per-entry
// TTL. A condition evaluation whose timeout
// is exceeded is never cached (see Evaluator.Evaluate).
type Cache interface {
	Get(ctx context.Context, key string) (Result, bool, error)
	Set(ctx context.Context, key string, result Result, ttl time.Duration) error
}

// RedisCache is a type-safe Get/Set pair over a *redis.Client,
// namespaced by a key prefix, specialized to Result rather than made
// generic, since Result is the only type
// this package ever caches.
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache constructs a RedisCache. client is expected to point at
// either a production Redis instance or, in tests, an
// alicebob/miniredis/v2 server dialed through redis.NewClient.
func NewRedisCache(client *redis.Client, prefix string) *RedisCache {
	return &RedisCache{client: client, prefix: prefix}
}

func (c *RedisCache) namespaced(key string) string { return c.prefix + ":" + key }

// Get returns the cached Result, or ok=false on a cache miss.
func (c *RedisCache) Get(ctx context.Context, key string) (Result, bool, error) {
	raw, err := c.client.Get(ctx, c.namespaced(key)).Bytes()
	if err == redis.Nil {
		return Result{}, false, nil
	}
	if err != nil {
		return Result{}, false, fmt.Errorf("condition: cache get: %w", err)
	}
	var result Result
	if err := json.Unmarshal(raw, &result); err != nil {
		return Result{}, false, fmt.Errorf("condition: cache decode: %w", err)
	}
	return result, true, nil
}

// Set stores result under key with the given TTL.
func (c *RedisCache) Set(ctx context.Context, key string, result Result, ttl time.Duration) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("condition: cache encode: %w", err)
	}
	if err := c.client.Set(ctx, c.namespaced(key), raw, ttl).Err(); err != nil {
		return fmt.Errorf("condition: cache set: %w", err)
	}
	return nil
}

// CacheKey computes the evaluation cache key:
// (variant_discriminant, canonical_form_of_parameters, context_digest),
// folded into a single sha256 digest so it is a valid, bounded-length
// Redis key regardless of query/shape text length.
func CacheKey(cond Condition, ec EvalContext) string {
	h := sha256.New()
	fmt.Fprintf(h, "kind=%s\n", cond.Kind)
	fmt.Fprintf(h, "query=%s\nminrows=%d\nshapes=%s\n", cond.Query, cond.MinRows, cond.ShapesTTL)
	fmt.Fprintf(h, "variable=%s\ndeltamode=%s\nop=%s\nthreshold=%g\n", cond.Variable, cond.DeltaMode, cond.Op, cond.Threshold)
	fmt.Fprintf(h, "windowseconds=%g\nwindowagg=%s\ncompositeop=%s\n", cond.WindowSeconds, cond.WindowAggregate, cond.CompositeOp)
	for _, child := range cond.Children {
		fmt.Fprintf(h, "child=%s\n", CacheKey(child, ec))
	}
	h.Write(ec.ContextJSON)
	fmt.Fprintf(h, "\nprev=%g\ncur=%g\nnow=%g\nsamples=%d\n", ec.Previous, ec.Current, ec.Now, len(ec.Samples))
	return hex.EncodeToString(h.Sum(nil))
}
