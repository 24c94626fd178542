package notification

import (
	"time"

	"github.com/patrickmn/go-cache"
)

// MemberCache хранит email -> id пользователя Chat по идентификатору пространства
type MemberCache interface {
	Get(spaceID string) (map[string]string, bool)
	Set(spaceID string, ids map[string]string)
}

type cachedMembers struct {
	ids       map[string]string
	expiresAt time.Time
}

// TTLCache - MemberCache поверх go-cache. Срок жизни проверяется по собственным
// часам, поэтому в тестах время можно подменить через WithClock.
type TTLCache struct {
	items *cache.Cache
	ttl   time.Duration
	now   func() time.Time
}

func NewTTLCache(ttl time.Duration) *TTLCache {
	return &TTLCache{
		items: cache.New(ttl, 2*ttl),
		ttl:   ttl,
		now:   time.Now,
	}
}

func (c *TTLCache) WithClock(now func() time.Time) *TTLCache {
	c.now = now
	return c
}

func (c *TTLCache) Get(spaceID string) (map[string]string, bool) {
	v, ok := c.items.Get(spaceID)
	if !ok {
		return nil, false
	}
	entry, ok := v.(cachedMembers)
	if !ok || !c.now().Before(entry.expiresAt) {
		return nil, false
	}
	return entry.ids, true
}

func (c *TTLCache) Set(spaceID string, ids map[string]string) {
	c.items.Set(spaceID, cachedMembers{
		ids:       ids,
		expiresAt: c.now().Add(c.ttl),
	}, cache.DefaultExpiration)
}
