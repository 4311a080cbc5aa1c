package tools

import (
	"encoding/json"

	lru "github.com/hashicorp/golang-lru/v2"
)

// ResultCache memoizes successful tool results within a single analysis run.
// The catalog's tools are reads over a static checkout, so an identical call
// always produces the same output. Error results are never cached: a timeout
// or a flaky server should be retried when the model asks again.
type ResultCache struct {
	lru *lru.Cache[string, *Result]
}

// NewResultCache creates a cache holding up to size entries.
func NewResultCache(size int) (*ResultCache, error) {
	c, err := lru.New[string, *Result](size)
	if err != nil {
		return nil, err
	}
	return &ResultCache{lru: c}, nil
}

func (c *ResultCache) Get(name string, args map[string]interface{}) (*Result, bool) {
	return c.lru.Get(cacheKey(name, args))
}

func (c *ResultCache) Put(name string, args map[string]interface{}, res *Result) {
	if res == nil || res.IsError {
		return
	}
	c.lru.Add(cacheKey(name, args), res)
}

// Len returns the number of cached entries.
func (c *ResultCache) Len() int {
	return c.lru.Len()
}

// cacheKey canonicalizes name+args. encoding/json sorts map keys, so two
// argument maps with the same contents produce the same key.
func cacheKey(name string, args map[string]interface{}) string {
	b, err := json.Marshal(args)
	if err != nil {
		// Unmarshalable args never hit the cache.
		return name + "\x00?" + err.Error()
	}
	return name + "\x00" + string(b)
}
