package cache

import (
	"github.com/zeebo/blake3"

	"github.com/FocuswithJustin/versefinder/core/refparse"
)

// ParseCache memoizes parser results by transcript. Recognizers resend the
// same partial transcript many times while the user is still speaking.
//
// Keys are BLAKE3 digests of the raw transcript, so memory use does not grow
// with transcript length.
type ParseCache struct {
	parser *refparse.Parser
	cache  Cache[[32]byte, refparse.ParsedReference]
}

// NewParseCache wraps p. A zero MaxSize makes the cache unbounded.
func NewParseCache(p *refparse.Parser, config Config) *ParseCache {
	return &ParseCache{
		parser: p,
		cache:  NewLRU[[32]byte, refparse.ParsedReference](config),
	}
}

// Key returns the cache key for a transcript.
func Key(transcript string) [32]byte {
	return blake3.Sum256([]byte(transcript))
}

// Parse returns the parsed reference for transcript and whether it came from
// the cache. Cached and fresh results are equal values. Every call returns its
// own copy, so callers may modify the result without affecting the cache.
func (c *ParseCache) Parse(transcript string) (refparse.ParsedReference, bool) {
	key := Key(transcript)
	if r, ok := c.cache.Get(key); ok {
		return r.Clone(), true
	}
	r := c.parser.Parse(transcript)
	c.cache.Put(key, r.Clone())
	return r, false
}

// Parser returns the wrapped parser.
func (c *ParseCache) Parser() *refparse.Parser {
	return c.parser
}

// Clear drops every cached result.
func (c *ParseCache) Clear() {
	c.cache.Clear()
}

// Len returns the number of cached results.
func (c *ParseCache) Len() int {
	return c.cache.Len()
}

// Stats returns cache statistics.
func (c *ParseCache) Stats() Stats {
	return c.cache.Stats()
}
