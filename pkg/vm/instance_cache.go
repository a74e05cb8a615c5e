package vm

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/kristofer/weave/pkg/value"
)

// instanceCacheKey identifies a (receiver type, protocol-or-selector
// hash) pair, the input to instance_function (spec.md §4.5.2's
// CallInstance dispatch).
type instanceCacheKey struct {
	receiver value.ValueType
	item     value.Hash
}

// instanceCache memoizes InstanceFunctionHash results. CallInstance
// recomputes this hash on every send; in a hot loop calling the same
// method on the same receiver type repeatedly, hashing the same pair
// over and over is pure waste, so a bounded LRU absorbs it.
type instanceCache struct {
	cache *lru.Cache[instanceCacheKey, value.Hash]
}

const defaultInstanceCacheSize = 1024

func newInstanceCache() *instanceCache {
	c, err := lru.New[instanceCacheKey, value.Hash](defaultInstanceCacheSize)
	if err != nil {
		// Only returns an error for a non-positive size, which
		// defaultInstanceCacheSize never is.
		panic(err)
	}
	return &instanceCache{cache: c}
}

func (c *instanceCache) resolve(receiver value.ValueType, item value.Hash) value.Hash {
	key := instanceCacheKey{receiver: receiver, item: item}
	if h, ok := c.cache.Get(key); ok {
		return h
	}
	h := value.InstanceFunctionHash(receiver, item)
	c.cache.Add(key, h)
	return h
}
