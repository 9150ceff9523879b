package turmob

import (
	"context"
	"fmt"
	"time"

	"turmob-efatura/lib/scrapers/turmob/session"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// ClientCache hands out restored clients keyed by session id so a caller
// holding an id does not rebuild the cookie state on every request
// burst. The on-disk store still owns the 24h session lifetime; the
// cache only shortcuts repeated restores inside one process.
type ClientCache struct {
	cache *expirable.LRU[string, *Client]
	opts  ClientOptions
}

func NewClientCache(opts ClientOptions) ClientCache {
	return ClientCache{
		cache: expirable.NewLRU[string, *Client](256, nil, time.Minute*15),
		opts:  opts,
	}
}

// Get returns a client restored from sessionId. A session the store no
// longer has (or that the portal has expired) surfaces as
// session.ErrNotFound; the caller then logs in fresh and saves a new
// session.
func (c ClientCache) Get(ctx context.Context, sessionId string) (*Client, error) {
	cached, hit := c.cache.Get(sessionId)
	if hit {
		return cached, nil
	}

	opts := c.opts
	opts.SessionId = sessionId
	client, err := NewClient(ctx, opts)
	if err != nil {
		return nil, err
	}
	if !client.IsLoggedIn() {
		return nil, fmt.Errorf("%w: %s", session.ErrNotFound, sessionId)
	}

	c.cache.Add(sessionId, client)
	return client, nil
}
