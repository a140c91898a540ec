package generate

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// registry tracks in-flight sessions by request id. Entries carry an idle TTL
// so a session whose consumer stalls (or leaks) is aborted instead of pinning
// engine resources forever.
type registry struct {
	cache *ttlcache.Cache[string, *Session]
}

func newRegistry(idleTTL time.Duration, onExpire func(*Session)) *registry {
	c := ttlcache.New[string, *Session](
		ttlcache.WithTTL[string, *Session](idleTTL),
	)
	c.OnEviction(func(_ context.Context, reason ttlcache.EvictionReason, item *ttlcache.Item[string, *Session]) {
		if reason == ttlcache.EvictionReasonExpired && onExpire != nil {
			onExpire(item.Value())
		}
	})
	go c.Start()
	return &registry{cache: c}
}

func (r *registry) add(s *Session) {
	r.cache.Set(s.ID(), s, ttlcache.DefaultTTL)
}

// touch refreshes the idle TTL; called once per delivered result.
func (r *registry) touch(id string) {
	r.cache.Get(id) // hit extends the TTL
}

func (r *registry) remove(id string) {
	r.cache.Delete(id)
}

func (r *registry) active() int {
	return r.cache.Len()
}

func (r *registry) close() {
	r.cache.Stop()
}
