// Copyright The statprof Authors
// SPDX-License-Identifier: Apache-2.0

// Package site defines call-site identities and the resolver that maps
// observed stack frames onto them.
//
// A call site is one source line. Repeated and recursive observations of the
// same line resolve to a single canonical identity so that sample counts for
// that line merge, regardless of the function name the frame reported.
package site // import "github.com/statprof-dev/statprof/site"

import (
	lru "github.com/elastic/go-freelru"
	"github.com/zeebo/xxh3"
)

// cacheCapacity bounds the number of call-site identities kept by a Resolver.
// Sized generously so that eviction does not occur for realistic programs; an
// evicted site is re-created on its next observation.
const cacheCapacity = 65536

// Frame is the fixed-shape descriptor of one observed stack frame.
type Frame struct {
	// File is the full path of the source file.
	File string
	// Line is the line number within File.
	Line int
	// Function is the name of the enclosing function.
	Function string
}

// Key canonically identifies a call site. Identity is determined by file and
// line only: frames at the same line merge even when their function names
// differ.
type Key struct {
	File string
	Line int
}

// Hash32 returns a 32 bit hash of the key for use by the resolver cache.
// xxh3 is 4x faster than fnv.
func (k Key) Hash32() uint32 {
	return uint32(xxh3.HashString(k.File) + uint64(k.Line))
}

// Site is the canonical identity of a call site. The function name is the one
// first observed at the site's file and line. If a later frame at the same
// line carries a different name, it is merged under the first name; the merge
// policy follows the cache key, which is file and line only.
type Site struct {
	Key
	Function string
}

// Resolver caches call-site identities keyed by file and line. It is not safe
// for concurrent use: the sampler is its only writer while profiling is
// active, and Reset may only be called while profiling is stopped.
type Resolver struct {
	cache *lru.LRU[Key, *Site]
}

// NewResolver returns an empty Resolver.
func NewResolver() (*Resolver, error) {
	cache, err := lru.New[Key, *Site](cacheCapacity, Key.Hash32)
	if err != nil {
		return nil, err
	}
	return &Resolver{cache: cache}, nil
}

// Resolve returns the identity for the frame's call site, creating and
// caching it on first observation.
func (r *Resolver) Resolve(frame Frame) *Site {
	key := Key{File: frame.File, Line: frame.Line}
	if s, ok := r.cache.Get(key); ok {
		return s
	}
	s := &Site{Key: key, Function: frame.Function}
	r.cache.Add(key, s)
	return s
}

// Len returns the number of cached identities.
func (r *Resolver) Len() int {
	return r.cache.Len()
}

// Reset drops all cached identities.
func (r *Resolver) Reset() {
	r.cache.Purge()
}
