// Copyright © 2026 PokeSearch Authors.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

package cache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testStore returns a Store over a temp dir with a controllable clock.
func testStore(t *testing.T, opts ...Option) (*Store, *time.Time) {
	t.Helper()
	now := time.Unix(1700000000, 0)
	s := New(t.TempDir(), opts...)
	s.now = func() time.Time { return now }
	return s, &now
}

// countingLoader returns a LoadFunc that serves payload and counts calls.
func countingLoader(payload []byte, err error) (LoadFunc, *atomic.Int32) {
	var calls atomic.Int32
	return func(context.Context) ([]byte, error) {
		calls.Add(1)
		if err != nil {
			return nil, err
		}
		return payload, nil
	}, &calls
}

func TestGetRoundTrip(t *testing.T) {
	s, _ := testStore(t)
	require.NoError(t, s.Put(KindPokemon, "25", []byte(`{"name":"pikachu"}`)))

	load, calls := countingLoader(nil, errors.New("must not fetch"))
	got, err := s.Get(context.Background(), KindPokemon, "25", load)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"pikachu"}`, string(got))
	assert.Zero(t, calls.Load())
}

func TestGetMissFetchesAndWritesThrough(t *testing.T) {
	s, _ := testStore(t)
	load, calls := countingLoader([]byte(`{"id":1}`), nil)

	got, err := s.Get(context.Background(), KindSpecies, "1", load)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":1}`, string(got))
	assert.Equal(t, int32(1), calls.Load())

	// Disk tier has the file.
	onDisk, err := os.ReadFile(filepath.Join(s.Dir(), "species", "1.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":1}`, string(onDisk))

	// Second read is a memory hit.
	_, err = s.Get(context.Background(), KindSpecies, "1", load)
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestGetStalenessTriggersSingleRefetch(t *testing.T) {
	s, now := testStore(t, WithTTL(KindPokemon, time.Hour))
	require.NoError(t, s.Put(KindPokemon, "7", []byte(`{"v":1}`)))

	// Also backdate the disk file so the disk tier agrees it is stale.
	path := filepath.Join(s.Dir(), "pokemon", "7.json")
	old := now.Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(path, old, old))

	*now = now.Add(2 * time.Hour)

	load, calls := countingLoader([]byte(`{"v":2}`), nil)
	got, err := s.Get(context.Background(), KindPokemon, "7", load)
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":2}`, string(got))
	assert.Equal(t, int32(1), calls.Load(), "exactly one re-fetch")

	// And it is fresh again.
	_, err = s.Get(context.Background(), KindPokemon, "7", load)
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestGetStaleFallbackOnFetchFailure(t *testing.T) {
	s, now := testStore(t, WithTTL(KindPokemon, time.Hour))
	require.NoError(t, s.Put(KindPokemon, "7", []byte(`{"v":"stale"}`)))

	path := filepath.Join(s.Dir(), "pokemon", "7.json")
	old := now.Add(-3 * time.Hour)
	require.NoError(t, os.Chtimes(path, old, old))
	*now = now.Add(3 * time.Hour)

	load, _ := countingLoader(nil, errors.New("upstream down"))
	got, err := s.Get(context.Background(), KindPokemon, "7", load)
	require.NoError(t, err, "stale entry must beat the error")
	assert.JSONEq(t, `{"v":"stale"}`, string(got))
}

func TestGetStaleFallbackRetriesOnNextRead(t *testing.T) {
	s, now := testStore(t, WithTTL(KindPokemon, time.Hour))
	require.NoError(t, s.Put(KindPokemon, "7", []byte(`{"v":"stale"}`)))

	path := filepath.Join(s.Dir(), "pokemon", "7.json")
	old := now.Add(-3 * time.Hour)
	require.NoError(t, os.Chtimes(path, old, old))
	*now = now.Add(3 * time.Hour)

	failing, _ := countingLoader(nil, errors.New("upstream down"))
	got, err := s.Get(context.Background(), KindPokemon, "7", failing)
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":"stale"}`, string(got))

	// Upstream recovers a minute later; the stale bytes must not have
	// been re-labeled fresh in the memory tier.
	*now = now.Add(time.Minute)
	load, calls := countingLoader([]byte(`{"v":"fresh"}`), nil)
	got, err = s.Get(context.Background(), KindPokemon, "7", load)
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":"fresh"}`, string(got))
	assert.Equal(t, int32(1), calls.Load())
}

func TestDiskPromotionKeepsEntryAge(t *testing.T) {
	s, now := testStore(t, WithTTL(KindPokemon, 24*time.Hour))
	require.NoError(t, s.Put(KindPokemon, "8", []byte(`{"v":"old"}`)))

	// A 23h-old disk entry, with the memory tier cold.
	path := filepath.Join(s.Dir(), "pokemon", "8.json")
	old := now.Add(-23 * time.Hour)
	require.NoError(t, os.Chtimes(path, old, old))
	s.mu.Lock()
	s.mem = make(map[string]*memEntry)
	s.mu.Unlock()

	load, calls := countingLoader([]byte(`{"v":"new"}`), nil)
	got, err := s.Get(context.Background(), KindPokemon, "8", load)
	require.NoError(t, err, "still within ttl, served from disk")
	assert.JSONEq(t, `{"v":"old"}`, string(got))
	assert.Zero(t, calls.Load())

	// Two hours on, the entry is 25h old. Promotion must not have
	// restarted its clock.
	*now = now.Add(2 * time.Hour)
	got, err = s.Get(context.Background(), KindPokemon, "8", load)
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":"new"}`, string(got))
	assert.Equal(t, int32(1), calls.Load())
}

func TestGetPropagatesWithNothingUsable(t *testing.T) {
	s, _ := testStore(t)
	wantErr := errors.New("upstream down")
	load, _ := countingLoader(nil, wantErr)

	_, err := s.Get(context.Background(), KindPokemon, "404", load)
	assert.ErrorIs(t, err, wantErr)
}

func TestCorruptDiskEntryIsAMiss(t *testing.T) {
	s, _ := testStore(t)
	path := filepath.Join(s.Dir(), "pokemon", "9.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	load, calls := countingLoader([]byte(`{"v":"good"}`), nil)
	got, err := s.Get(context.Background(), KindPokemon, "9", load)
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":"good"}`, string(got))
	assert.Equal(t, int32(1), calls.Load())

	// The corrupt file was overwritten by the refetch.
	onDisk, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":"good"}`, string(onDisk))
}

func TestAbandonedTempFileLeavesCommittedEntryReadable(t *testing.T) {
	s, _ := testStore(t)
	require.NoError(t, s.Put(KindPokemon, "3", []byte(`{"v":"committed"}`)))

	// Simulate a writer that died between temp write and rename.
	dir := filepath.Join(s.Dir(), "pokemon")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "3.json.tmp-dead"), []byte("{trunc"), 0o600))

	// Drop the memory tier so the read goes to disk.
	s.mu.Lock()
	s.mem = make(map[string]*memEntry)
	s.mu.Unlock()

	load, calls := countingLoader(nil, errors.New("must not fetch"))
	got, err := s.Get(context.Background(), KindPokemon, "3", load)
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":"committed"}`, string(got))
	assert.Zero(t, calls.Load())
}

func TestMemoryTierEviction(t *testing.T) {
	s, now := testStore(t, WithCapacity(2))

	require.NoError(t, s.Put(KindPokemon, "1", []byte(`{}`)))
	*now = now.Add(time.Second)
	require.NoError(t, s.Put(KindPokemon, "2", []byte(`{}`)))
	*now = now.Add(time.Second)
	require.NoError(t, s.Put(KindPokemon, "3", []byte(`{}`)))

	s.mu.Lock()
	defer s.mu.Unlock()
	assert.Len(t, s.mem, 2)
	assert.NotContains(t, s.mem, "pokemon/1", "least recently promoted is evicted")
	assert.Contains(t, s.mem, "pokemon/2")
	assert.Contains(t, s.mem, "pokemon/3")
}

func TestKeyCanonicalization(t *testing.T) {
	s, _ := testStore(t)
	require.NoError(t, s.Put(KindSpecies, "  Eevee ", []byte(`{"id":133}`)))

	load, calls := countingLoader(nil, errors.New("must not fetch"))
	got, err := s.Get(context.Background(), KindSpecies, "eevee", load)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":133}`, string(got))
	assert.Zero(t, calls.Load())
}

func TestIndexKindUsesFlatFile(t *testing.T) {
	s, _ := testStore(t)
	require.NoError(t, s.Put(KindIndex, "", []byte(`[{"id":1,"name":"bulbasaur"}]`)))

	_, err := os.Stat(filepath.Join(s.Dir(), "species_index.json"))
	assert.NoError(t, err)
}

func TestPurgeRemovesAgedFiles(t *testing.T) {
	s, _ := testStore(t)
	require.NoError(t, s.Put(KindTypes, "electric", []byte(`[25]`)))
	require.NoError(t, s.Put(KindTypes, "grass", []byte(`[1]`)))

	// Age one file past the purge horizon.
	old := time.Now().Add(-48 * time.Hour)
	aged := filepath.Join(s.Dir(), "types", "electric.json")
	require.NoError(t, os.Chtimes(aged, old, old))

	require.NoError(t, s.Purge(24))

	_, err := os.Stat(aged)
	assert.True(t, os.IsNotExist(err), "aged file should be removed")
	_, err = os.Stat(filepath.Join(s.Dir(), "types", "grass.json"))
	assert.NoError(t, err, "fresh file should survive")
}

func TestPurgeDisabled(t *testing.T) {
	s, _ := testStore(t)
	require.NoError(t, s.Put(KindTypes, "fire", []byte(`[4]`)))
	require.NoError(t, s.Purge(0))

	_, err := os.Stat(filepath.Join(s.Dir(), "types", "fire.json"))
	assert.NoError(t, err)
}
