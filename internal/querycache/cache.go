// Package querycache memoizes read queries by (resource, params) and drops them by tag when a
// write invalidates those tags. Values handed out are shared between callers and must be
// treated as read-only.
package querycache

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
)

type Key struct {
	Resource string
	Params   string
}

func NewKey(resource string, params ...any) Key {
	parts := make([]string, 0, len(params))
	for _, p := range params {
		parts = append(parts, fmt.Sprint(p))
	}
	return Key{Resource: resource, Params: strings.Join(parts, "|")}
}

func (k Key) String() string {
	return k.Resource + "?" + k.Params
}

type entry struct {
	value any
	tags  []string
}

type Cache struct {
	mu      sync.Mutex
	enabled bool
	gen     uint64
	entries map[Key]*entry
	byTag   map[string]map[Key]struct{}
	subs    map[string]map[uint64]func(tag string)
	nextSub uint64
	group   singleflight.Group
}

// New returns a cache. A disabled cache runs every load but still delivers invalidations to subscribers.
func New(enabled bool) *Cache {
	return &Cache{
		enabled: enabled,
		entries: make(map[Key]*entry),
		byTag:   make(map[string]map[Key]struct{}),
		subs:    make(map[string]map[uint64]func(tag string)),
	}
}

// Get returns the cached value for key or runs load once for all concurrent callers.
// A result is not stored when any invalidation happened while it was loading.
func Get[T any](ctx context.Context, c *Cache, key Key, tags []string, load func(ctx context.Context) (T, error)) (T, error) {
	if c == nil || !c.enabled {
		return load(ctx)
	}

	c.mu.Lock()
	if e, ok := c.entries[key]; ok {
		c.mu.Unlock()
		return e.value.(T), nil
	}
	gen := c.gen
	c.mu.Unlock()

	// Callers arriving after an invalidation start a fresh load instead of joining one begun
	// before the write. The shared load is detached from the first caller's cancellation.
	v, err, _ := c.group.Do(fmt.Sprintf("%s#%d", key, gen), func() (any, error) {
		val, err := load(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		c.store(key, tags, val, gen)
		return val, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

func (c *Cache) store(key Key, tags []string, value any, gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		return
	}
	c.entries[key] = &entry{value: value, tags: tags}
	for _, t := range tags {
		keys, ok := c.byTag[t]
		if !ok {
			keys = make(map[Key]struct{})
			c.byTag[t] = keys
		}
		keys[key] = struct{}{}
	}
}

// Invalidate drops every entry carrying any of tags and then notifies the tag subscribers.
func (c *Cache) Invalidate(tags ...string) {
	if c == nil || len(tags) == 0 {
		return
	}

	c.mu.Lock()
	c.gen++
	var notify []func(string)
	var notifyTags []string
	for _, t := range tags {
		for key := range c.byTag[t] {
			c.evict(key)
		}
		delete(c.byTag, t)
		for _, fn := range c.subs[t] {
			notify = append(notify, fn)
			notifyTags = append(notifyTags, t)
		}
	}
	c.mu.Unlock()

	for i, fn := range notify {
		fn(notifyTags[i])
	}
}

func (c *Cache) evict(key Key) {
	e, ok := c.entries[key]
	if !ok {
		return
	}
	delete(c.entries, key)
	for _, t := range e.tags {
		if keys, ok := c.byTag[t]; ok {
			delete(keys, key)
			if len(keys) == 0 {
				delete(c.byTag, t)
			}
		}
	}
}

// Subscribe calls fn after each invalidation of tag. The returned func removes the subscription
// and is safe to call more than once.
func (c *Cache) Subscribe(tag string, fn func(tag string)) func() {
	c.mu.Lock()
	c.nextSub++
	id := c.nextSub
	if c.subs[tag] == nil {
		c.subs[tag] = make(map[uint64]func(string))
	}
	c.subs[tag][id] = fn
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			delete(c.subs[tag], id)
			if len(c.subs[tag]) == 0 {
				delete(c.subs, tag)
			}
		})
	}
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
