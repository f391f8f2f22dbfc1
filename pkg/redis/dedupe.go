package redis

import (
	"context"
	"time"
)

var claimKey = SetNX

// Deduper remembers keys it has already seen so repeated chain events are handled once.
type Deduper struct {
	prefix string
	ttl    time.Duration
}

// NewDeduper creates a deduper whose keys expire after ttl
func NewDeduper(prefix string, ttl time.Duration) *Deduper {
	return &Deduper{prefix: prefix, ttl: ttl}
}

// Claim returns true the first time a key is seen
func (d *Deduper) Claim(ctx context.Context, key string) (bool, error) {
	return claimKey(ctx, d.prefix+":"+key, time.Now().Unix(), d.ttl)
}
