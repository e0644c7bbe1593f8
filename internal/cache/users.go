// Package cache holds the phone-to-user lookup cache.
//
// The cache is injectable and bounded: entries expire after a TTL and the
// least recently used entry is evicted once the size cap is hit. Callers that
// want fresh lookups on every message can simply not wire it.
package cache

import (
	"container/list"
	"sync"
	"time"

	"contabot/internal/core"
)

// UserCache maps normalized phone digits to resolved users.
type UserCache struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration
	items   map[string]*list.Element
	lru     *list.List
}

type userEntry struct {
	phone     string
	user      core.User
	expiresAt time.Time
}

// NewUserCache creates a cache holding at most maxSize users for ttl each.
func NewUserCache(maxSize int, ttl time.Duration) *UserCache {
	return &UserCache{
		maxSize: maxSize,
		ttl:     ttl,
		items:   make(map[string]*list.Element),
		lru:     list.New(),
	}
}

// Get returns the cached user for a phone, if present and not expired.
func (c *UserCache) Get(phone string) (core.User, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, exists := c.items[phone]
	if !exists {
		return core.User{}, false
	}
	entry := elem.Value.(*userEntry)
	if time.Now().After(entry.expiresAt) {
		c.removeElement(elem)
		return core.User{}, false
	}
	c.lru.MoveToFront(elem)
	return entry.user, true
}

// Set stores a resolved user under its phone digits.
func (c *UserCache) Set(phone string, user core.User) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry := &userEntry{
		phone:     phone,
		user:      user,
		expiresAt: time.Now().Add(c.ttl),
	}
	if elem, exists := c.items[phone]; exists {
		elem.Value = entry
		c.lru.MoveToFront(elem)
		return
	}
	elem := c.lru.PushFront(entry)
	c.items[phone] = elem

	if c.lru.Len() > c.maxSize {
		if oldest := c.lru.Back(); oldest != nil {
			c.removeElement(oldest)
		}
	}
}

// Delete drops one phone from the cache.
func (c *UserCache) Delete(phone string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, exists := c.items[phone]; exists {
		c.removeElement(elem)
	}
}

// CleanExpired removes every expired entry and returns how many were dropped.
// Meant to be called from a periodic janitor.
func (c *UserCache) CleanExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	var toRemove []*list.Element
	for elem := c.lru.Front(); elem != nil; elem = elem.Next() {
		if now.After(elem.Value.(*userEntry).expiresAt) {
			toRemove = append(toRemove, elem)
		}
	}
	for _, elem := range toRemove {
		c.removeElement(elem)
	}
	return len(toRemove)
}

// Size returns the current number of cached users.
func (c *UserCache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *UserCache) removeElement(elem *list.Element) {
	entry := elem.Value.(*userEntry)
	delete(c.items, entry.phone)
	c.lru.Remove(elem)
}
