// Copyright © 2026 PokeSearch Authors.
// SPDX-License-Identifier: Apache-2.0

// Package cache is the two-tier store fronting the upstream API: a capped
// in-process tier over a disk tier of JSON files, one subdirectory per
// resource kind. Writes to disk go through a temp file and an atomic
// rename, so a reader never observes a half-written entry.
package cache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/apex/log"
	"github.com/dustin/go-humanize"
	"github.com/tidwall/gjson"
	"golang.org/x/sync/singleflight"

	"github.com/pokesearch/pokectl/internal/config"
)

// Kind names a resource family. Each kind gets its own subdirectory and
// its own TTL.
type Kind string

const (
	KindPokemon   Kind = "pokemon"
	KindSpecies   Kind = "species"
	KindTypes     Kind = "types"
	KindEvolution Kind = "evolution"
	// KindIndex is the flat species index; it has no subdirectory and a
	// single well-known filename.
	KindIndex Kind = "index"
)

const indexFile = "species_index.json"

// DefaultTTL is the freshness policy table. Per-creature data moves more
// often than type membership or evolution graphs, hence the split.
// Override per kind via cache.ttl.<kind> in pokectl.yaml.
var DefaultTTL = map[Kind]time.Duration{
	KindPokemon:   24 * time.Hour,
	KindSpecies:   24 * time.Hour,
	KindTypes:     7 * 24 * time.Hour,
	KindEvolution: 7 * 24 * time.Hour,
	KindIndex:     24 * time.Hour,
}

// DefaultCapacity caps the memory tier entry count.
const DefaultCapacity = 256

var (
	// ErrCacheCorrupt marks a disk entry that could not be read or parsed.
	// Internally it downgrades to a miss; the file is overwritten on the
	// next successful fetch.
	ErrCacheCorrupt = errors.New("cache entry corrupt")
	// ErrCacheMiss means no usable entry exists in either tier.
	ErrCacheMiss = errors.New("cache miss")
)

// LoadFunc produces the payload for a missing or stale entry.
type LoadFunc func(ctx context.Context) ([]byte, error)

type memEntry struct {
	data       []byte
	fetchedAt  time.Time
	promotedAt time.Time
}

// Store is the two-tier cache. Construct with New; one instance is shared
// by every fetch path (no ambient globals).
type Store struct {
	dir      string
	enabled  bool
	capacity int
	ttl      map[Kind]time.Duration

	mu  sync.Mutex
	mem map[string]*memEntry
	sf  singleflight.Group

	// now is swappable for tests.
	now func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithTTL overrides the freshness window for one kind.
func WithTTL(kind Kind, d time.Duration) Option {
	return func(s *Store) { s.ttl[kind] = d }
}

// WithCapacity overrides the memory tier entry cap.
func WithCapacity(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.capacity = n
		}
	}
}

// New builds a Store rooted at dir. An empty dir resolves via
// POKECTL_CACHE_DIR, then os.UserCacheDir()/pokectl; if neither resolves,
// the disk tier is disabled and only the memory tier operates.
func New(dir string, opts ...Option) *Store {
	enabled := diskEnabled()
	if dir == "" {
		dir, enabled = resolveDir()
	}

	s := &Store{
		dir:      dir,
		enabled:  enabled && diskEnabled(),
		capacity: DefaultCapacity,
		ttl:      make(map[Kind]time.Duration, len(DefaultTTL)),
		mem:      make(map[string]*memEntry),
		now:      time.Now,
	}
	for k, d := range DefaultTTL {
		s.ttl[k] = d
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PolicyOptions reads the cache.ttl.<kind> table from pokectl.yaml and
// returns the matching overrides. Missing keys keep their defaults.
func PolicyOptions() []Option {
	var opts []Option
	for kind, def := range DefaultTTL {
		if d, err := config.GetDuration("cache.ttl."+string(kind), def); err == nil && d > 0 {
			opts = append(opts, WithTTL(kind, d))
		}
	}
	return opts
}

// EnsureBaseDir creates the cache directory tree. Best-effort at startup;
// Put also creates directories as needed.
func (s *Store) EnsureBaseDir() error {
	if !s.enabled {
		return nil
	}
	for _, kind := range []Kind{KindPokemon, KindSpecies, KindTypes, KindEvolution} {
		if err := os.MkdirAll(filepath.Join(s.dir, string(kind)), 0o755); err != nil { //nolint:mnd
			return fmt.Errorf("failed to create cache directory: %w", err)
		}
	}
	return nil
}

// Get returns the payload for (kind, id), consulting memory, then disk,
// then load. A fresh hit in either tier never invokes load. When load
// fails and a stale disk entry still exists, the stale bytes are served
// instead of the error.
func (s *Store) Get(ctx context.Context, kind Kind, id string, load LoadFunc) ([]byte, error) {
	key := s.key(kind, id)
	ttl := s.ttl[kind]

	// Memory tier first.
	s.mu.Lock()
	if e, ok := s.mem[key]; ok {
		if s.now().Sub(e.fetchedAt) <= ttl {
			e.promotedAt = s.now()
			data := e.data
			s.mu.Unlock()
			log.Debugf("memory hit: %s", key)
			return data, nil
		}
		delete(s.mem, key)
	}
	s.mu.Unlock()

	// Collapse concurrent misses for the same key.
	v, err, _ := s.sf.Do(key, func() (any, error) {
		return s.miss(ctx, kind, id, key, ttl, load)
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// miss handles the disk-then-load path for one key.
func (s *Store) miss(ctx context.Context, kind Kind, id, key string, ttl time.Duration, load LoadFunc) ([]byte, error) {
	path := s.path(kind, id)

	if data, mtime, err := s.readDisk(path, ttl); err == nil {
		// Promote with the file's own age so the memory tier expires it
		// at the same moment the disk tier would.
		s.promote(key, data, mtime)
		log.Debugf("disk hit: %s", path)
		return data, nil
	} else if errors.Is(err, ErrCacheCorrupt) {
		log.Warnf("corrupt cache entry %s, refetching", path)
	}

	data, err := load(ctx)
	if err != nil {
		// Degraded mode: any readable disk entry beats an error, no
		// matter how old. Not promoted to memory; the next read must
		// retry the load.
		if stale, _, serr := s.readDisk(path, 0); serr == nil {
			log.Warnf("fetch failed (%v), serving stale %s", err, path)
			return stale, nil
		}
		return nil, err
	}

	s.writeDisk(path, data)
	s.promote(key, data, s.now())
	return data, nil
}

// Put writes a payload through both tiers. Used for derived artifacts
// like the species index.
func (s *Store) Put(kind Kind, id string, data []byte) error {
	key := s.key(kind, id)
	s.promote(key, data, s.now())
	return s.writeDiskErr(s.path(kind, id), data)
}

// Invalidate drops (kind, id) from the memory tier and removes its disk
// file if present.
func (s *Store) Invalidate(kind Kind, id string) {
	key := s.key(kind, id)
	s.mu.Lock()
	delete(s.mem, key)
	s.mu.Unlock()
	if s.enabled {
		_ = os.Remove(s.path(kind, id))
	}
}

// Purge removes disk entries older than the given number of hours. If
// hours <= 0 or the disk tier is disabled, it is a no-op.
func (s *Store) Purge(hours int) error {
	if hours <= 0 {
		log.Debug("cache cleaning disabled")
		return nil
	}
	if !s.enabled {
		return nil
	}

	maxAge := time.Duration(hours) * time.Hour
	var removed, bytes int64
	if err := filepath.Walk(s.dir, func(path string, info os.FileInfo, _ error) error {
		if info == nil || info.IsDir() {
			return nil
		}
		if time.Since(info.ModTime()) > maxAge {
			size := info.Size()
			if err := os.Remove(path); err == nil {
				removed++
				bytes += size
				log.Debugf("removed cache file %s", path)
			} else {
				log.WithError(err).Warnf("failed to remove cache file %s", path)
			}
		}
		return nil
	}); err != nil {
		return fmt.Errorf("failed to purge cache: %w", err)
	}

	if removed > 0 {
		log.Infof("purged %d cache files (%s)", removed, humanize.Bytes(uint64(bytes)))
	}
	return nil
}

// Dir returns the disk tier root.
func (s *Store) Dir() string { return s.dir }

// key canonicalizes (kind, id) into the memory tier key. Identifiers are
// case-insensitive and trimmed.
func (s *Store) key(kind Kind, id string) string {
	return string(kind) + "/" + strings.ToLower(strings.TrimSpace(id))
}

// path maps (kind, id) to the disk location.
func (s *Store) path(kind Kind, id string) string {
	if kind == KindIndex {
		return filepath.Join(s.dir, indexFile)
	}
	return filepath.Join(s.dir, string(kind), strings.ToLower(strings.TrimSpace(id))+".json")
}

// promote installs a payload in the memory tier, evicting the least
// recently promoted entry when over capacity.
func (s *Store) promote(key string, data []byte, fetchedAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.mem[key] = &memEntry{data: data, fetchedAt: fetchedAt, promotedAt: s.now()}

	for len(s.mem) > s.capacity {
		oldestKey := ""
		var oldest time.Time
		for k, e := range s.mem {
			if oldestKey == "" || e.promotedAt.Before(oldest) {
				oldestKey, oldest = k, e.promotedAt
			}
		}
		delete(s.mem, oldestKey)
		log.Debugf("evicted %s from memory tier", oldestKey)
	}
}

// readDisk loads a disk entry if it exists and its mtime is within ttl,
// returning the mtime as the entry's fetch time. ttl <= 0 skips the
// freshness check (used for the stale fallback). Unreadable or non-JSON
// content is ErrCacheCorrupt.
func (s *Store) readDisk(path string, ttl time.Duration) ([]byte, time.Time, error) {
	if !s.enabled {
		return nil, time.Time{}, ErrCacheMiss
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, time.Time{}, ErrCacheMiss
	}
	if ttl > 0 && s.now().Sub(info.ModTime()) > ttl {
		return nil, time.Time{}, ErrCacheMiss
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("%w: %v", ErrCacheCorrupt, err)
	}
	if !gjson.ValidBytes(data) {
		return nil, time.Time{}, fmt.Errorf("%w: invalid JSON in %s", ErrCacheCorrupt, path)
	}
	return data, info.ModTime(), nil
}

// writeDisk is writeDiskErr with the error logged instead of returned.
// Cache write failure never fails the read path.
func (s *Store) writeDisk(path string, data []byte) {
	if err := s.writeDiskErr(path, data); err != nil {
		log.WithError(err).Warnf("failed to write cache file %s", path)
	}
}

// writeDiskErr writes data to a temp file alongside the target, then
// renames it into place. Concurrent writers to the same key race benignly;
// the last rename wins and readers only ever see a complete file.
func (s *Store) writeDiskErr(path string, data []byte) error {
	if !s.enabled {
		return nil // treat as disabled.
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:mnd
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to commit cache file: %w", err)
	}
	return nil
}

// resolveDir picks the disk tier root. Precedence:
//  1. POKECTL_CACHE_DIR, if set and non-empty
//  2. os.UserCacheDir()/pokectl
//
// Returns ("", false) if a base cannot be resolved (treat as disabled).
func resolveDir() (string, bool) {
	if c, ok := os.LookupEnv("POKECTL_CACHE_DIR"); ok && c != "" {
		return c, true
	}
	if dir, err := os.UserCacheDir(); err == nil && dir != "" {
		return filepath.Join(dir, "pokectl"), true
	}
	return "", false
}

// diskEnabled returns true unless POKECTL_CACHE explicitly disables it
// ("0"/"false").
func diskEnabled() bool {
	enabled, _ := os.LookupEnv("POKECTL_CACHE")
	return enabled == "" || (enabled != "0" && enabled != "false")
}
