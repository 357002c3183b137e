package server

import (
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

const latestKey = "latest"

// pendingRegistry remembers uploaded documents until the driver runs. Entries
// expire after ttl; the driver always takes the most recent upload.
type pendingRegistry struct {
	mu    sync.Mutex
	cache *cache.Cache
}

func newPendingRegistry(ttl time.Duration, onEvict func(*Document)) *pendingRegistry {
	c := cache.New(ttl, ttl/2)
	if onEvict != nil {
		c.OnEvicted(func(key string, value interface{}) {
			if doc, ok := value.(*Document); ok && key != latestKey {
				onEvict(doc)
			}
		})
	}
	return &pendingRegistry{cache: c}
}

func (p *pendingRegistry) Add(doc *Document) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cache.SetDefault(doc.ID, doc)
	p.cache.SetDefault(latestKey, doc.ID)
}

// Take removes and returns the latest document, or nil when none is pending.
func (p *pendingRegistry) Take() *Document {
	p.mu.Lock()
	defer p.mu.Unlock()

	v, ok := p.cache.Get(latestKey)
	if !ok {
		return nil
	}
	id := v.(string)
	p.cache.Delete(latestKey)

	d, ok := p.cache.Get(id)
	if !ok {
		return nil
	}
	// Delete would fire the eviction callback and remove the file
	p.cache.Set(id, nil, cache.NoExpiration)
	p.cache.Delete(id)
	return d.(*Document)
}

func (p *pendingRegistry) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := p.cache.ItemCount()
	if _, ok := p.cache.Get(latestKey); ok {
		n--
	}
	return n
}
