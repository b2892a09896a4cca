// Copyright © 2026 PokeSearch Authors.
// SPDX-License-Identifier: Apache-2.0

// Package pokeapi turns raw upstream payloads into the Record model. It
// owns the creature, species, type, and evolution endpoints and drives the
// cache; nothing above this package sees upstream JSON.
package pokeapi

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"math/rand"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/apex/log"

	"github.com/pokesearch/pokectl/internal/cache"
	"github.com/pokesearch/pokectl/internal/config"
	"github.com/pokesearch/pokectl/internal/fetch"
	"github.com/pokesearch/pokectl/internal/model"
)

const (
	// DefaultBaseURL is the upstream API root. Override with api.base_url
	// in pokectl.yaml.
	DefaultBaseURL = "https://pokeapi.co/api/v2"
	// MaxSpeciesID bounds the species index; entries above it are variant
	// forms, not dex species.
	MaxSpeciesID = 1025
	// DefaultLocale selects flavor text language. Override with locale.
	DefaultLocale = "en"

	categoryPokemon = "Pokémon"
)

// Dex resolves creature records against the upstream API through the
// two-tier cache.
type Dex struct {
	fetcher *fetch.Fetcher
	store   *cache.Store
	baseURL string
	locale  string
}

// Option configures a Dex.
type Option func(*Dex)

func WithBaseURL(u string) Option {
	return func(d *Dex) { d.baseURL = strings.TrimRight(u, "/") }
}

func WithLocale(l string) Option {
	return func(d *Dex) { d.locale = l }
}

// New builds a Dex. Base URL and locale default from pokectl.yaml keys
// api.base_url and locale.
func New(fetcher *fetch.Fetcher, store *cache.Store, opts ...Option) *Dex {
	base, _ := config.GetString("api.base_url", DefaultBaseURL)
	locale, _ := config.GetString("locale", DefaultLocale)

	d := &Dex{
		fetcher: fetcher,
		store:   store,
		baseURL: strings.TrimRight(base, "/"),
		locale:  locale,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// raw reads one cached payload, fetching url on miss or staleness.
func (d *Dex) raw(ctx context.Context, kind cache.Kind, id, url string) ([]byte, error) {
	return d.store.Get(ctx, kind, id, func(ctx context.Context) ([]byte, error) {
		return d.fetcher.Fetch(ctx, url)
	})
}

// SpeciesIndex returns every known (id, name) pair, ascending by id. The
// distilled index is what gets cached, not the upstream listing.
func (d *Dex) SpeciesIndex(ctx context.Context) ([]model.IndexEntry, error) {
	data, err := d.store.Get(ctx, cache.KindIndex, "", func(ctx context.Context) ([]byte, error) {
		raw, err := d.fetcher.Fetch(ctx, d.baseURL+"/pokemon-species?limit=20000")
		if err != nil {
			return nil, err
		}
		return distillIndex(raw)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load species index: %w", err)
	}

	var index []model.IndexEntry
	if err := json.Unmarshal(data, &index); err != nil {
		d.store.Invalidate(cache.KindIndex, "")
		return nil, fmt.Errorf("failed to decode species index: %w", err)
	}
	return index, nil
}

func distillIndex(raw []byte) ([]byte, error) {
	index := make([]model.IndexEntry, 0, MaxSpeciesID)
	for _, entry := range parseResourceList(raw, "results") {
		if entry.ID > 0 && entry.ID <= MaxSpeciesID && entry.Name != "" {
			index = append(index, entry)
		}
	}
	sort.Slice(index, func(i, j int) bool { return index[i].ID < index[j].ID })
	return json.Marshal(index)
}

// TypeIndex returns the ids of every creature with the given elemental
// type, ascending. Unknown types surface as a fetch error.
func (d *Dex) TypeIndex(ctx context.Context, typeName string) ([]int, error) {
	normalized := strings.ToLower(strings.TrimSpace(typeName))
	data, err := d.store.Get(ctx, cache.KindTypes, normalized, func(ctx context.Context) ([]byte, error) {
		raw, err := d.fetcher.Fetch(ctx, d.baseURL+"/type/"+normalized)
		if err != nil {
			return nil, err
		}
		return distillTypeIndex(raw)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load type index %s: %w", normalized, err)
	}

	var ids []int
	if err := json.Unmarshal(data, &ids); err != nil {
		d.store.Invalidate(cache.KindTypes, normalized)
		return nil, fmt.Errorf("failed to decode type index %s: %w", normalized, err)
	}
	return ids, nil
}

func distillTypeIndex(raw []byte) ([]byte, error) {
	var ids []int
	for _, entry := range parseTypeMembers(raw) {
		if entry > 0 {
			ids = append(ids, entry)
		}
	}
	sort.Ints(ids)
	return json.Marshal(ids)
}

// Resolve maps an id or name to an index entry. Names match the species
// index case-insensitively.
func (d *Dex) Resolve(ctx context.Context, idOrName string) (model.IndexEntry, error) {
	needle := strings.ToLower(strings.TrimSpace(idOrName))
	if needle == "" {
		return model.IndexEntry{}, fmt.Errorf("empty identifier")
	}

	index, err := d.SpeciesIndex(ctx)
	if err != nil {
		return model.IndexEntry{}, err
	}

	if id, err := strconv.Atoi(needle); err == nil {
		for _, entry := range index {
			if entry.ID == id {
				return entry, nil
			}
		}
		return model.IndexEntry{}, fmt.Errorf("no species with id %d", id)
	}

	for _, entry := range index {
		if strings.ToLower(entry.Name) == needle {
			return entry, nil
		}
	}
	return model.IndexEntry{}, fmt.Errorf("no species named %q", idOrName)
}

// BuildRecord assembles the full Record for one species. A nil Record with
// a nil error means the upstream data could not be fetched at all; partial
// damage in optional fields degrades that field only. The returned error
// is reserved for context cancellation.
func (d *Dex) BuildRecord(ctx context.Context, id int, name string) (*model.Record, error) {
	idStr := strconv.Itoa(id)

	creatureRaw, err := d.raw(ctx, cache.KindPokemon, idStr, d.baseURL+"/pokemon/"+idStr)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.WithError(err).Warnf("no creature payload for %d", id)
		return nil, nil
	}
	speciesRaw, err := d.raw(ctx, cache.KindSpecies, idStr, d.baseURL+"/pokemon-species/"+idStr)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.WithError(err).Warnf("no species payload for %d", id)
		return nil, nil
	}

	creature := parseCreature(creatureRaw)
	species := parseSpecies(speciesRaw)

	record := &model.Record{
		ID:          id,
		Name:        capitalize(name),
		Category:    categoryPokemon,
		Description: species.description(d.locale),
		Sections:    buildSections(id, creature),
		Sprite:      creature.SpriteURL,
		Metadata:    species.metadata(),
	}

	if species.EvolutionChainURL != "" {
		if tree, err := d.evolutionTree(ctx, species.EvolutionChainURL); err == nil {
			record.Evolution = tree
		} else if ctx.Err() != nil {
			return nil, ctx.Err()
		} else {
			log.WithError(err).Debugf("no evolution chain for %d", id)
		}
	}
	return record, nil
}

// buildSections produces the ordered display sections. A section whose
// source list is empty is omitted entirely.
func buildSections(id int, creature creaturePayload) []model.Section {
	head := model.Section{
		Title: categoryPokemon,
		Items: []string{fmt.Sprintf("National Dex: #%03d", id)},
	}
	if creature.Height != nil {
		head.Items = append(head.Items, fmt.Sprintf("Height: %d dm", *creature.Height))
	}
	if creature.Weight != nil {
		head.Items = append(head.Items, fmt.Sprintf("Weight: %d hg", *creature.Weight))
	}

	sections := []model.Section{head}
	if len(creature.Abilities) > 0 {
		sections = append(sections, model.Section{Title: "Abilities", Items: creature.Abilities})
	}
	if len(creature.Types) > 0 {
		sections = append(sections, model.Section{Title: "Types", Items: creature.Types})
	}
	if len(creature.Stats) > 0 {
		items := make([]string, 0, len(creature.Stats))
		for _, s := range creature.Stats {
			items = append(items, fmt.Sprintf("%s: %d", s.Name, s.Value))
		}
		sections = append(sections, model.Section{Title: "Stats", Items: items})
	}
	return sections
}

// evolutionTree loads and parses the chain behind a species' chain URL.
// The chain id keys the cache entry.
func (d *Dex) evolutionTree(ctx context.Context, chainURL string) (*model.EvolutionNode, error) {
	chainID := idFromURL(chainURL)
	if chainID == 0 {
		return nil, fmt.Errorf("unusable chain url %q", chainURL)
	}

	raw, err := d.raw(ctx, cache.KindEvolution, strconv.Itoa(chainID), chainURL)
	if err != nil {
		return nil, err
	}
	root, err := parseChainDoc(raw)
	if err != nil {
		return nil, err
	}
	return root, nil
}

// EvolutionPaths resolves idOrName and returns its chain flattened to
// root-to-leaf paths. A species with no chain yields no paths.
func (d *Dex) EvolutionPaths(ctx context.Context, idOrName string) ([][]model.EvolutionNode, error) {
	entry, err := d.Resolve(ctx, idOrName)
	if err != nil {
		return nil, err
	}

	idStr := strconv.Itoa(entry.ID)
	speciesRaw, err := d.raw(ctx, cache.KindSpecies, idStr, d.baseURL+"/pokemon-species/"+idStr)
	if err != nil {
		return nil, fmt.Errorf("failed to load species %s: %w", entry.Name, err)
	}

	chainURL := parseSpecies(speciesRaw).EvolutionChainURL
	if chainURL == "" {
		return nil, nil
	}
	root, err := d.evolutionTree(ctx, chainURL)
	if err != nil {
		return nil, err
	}
	return model.FlattenPaths(root), nil
}

// RecordOfTheDay picks one species deterministically from seed and builds
// its record. An empty seed uses the UTC date, so the pick rolls over at
// midnight.
func (d *Dex) RecordOfTheDay(ctx context.Context, seed string) (*model.Record, error) {
	index, err := d.SpeciesIndex(ctx)
	if err != nil {
		return nil, err
	}
	if len(index) == 0 {
		return nil, fmt.Errorf("species index is empty")
	}

	if seed == "" {
		seed = time.Now().UTC().Format("2006-01-02")
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(seed))
	rng := rand.New(rand.NewSource(int64(h.Sum64()))) //nolint:gosec

	pick := index[rng.Intn(len(index))]
	log.Debugf("record of the day for seed %q: %s (#%d)", seed, pick.Name, pick.ID)
	return d.BuildRecord(ctx, pick.ID, pick.Name)
}

// Requests reports the fetcher's outbound request count.
func (d *Dex) Requests() int64 {
	return d.fetcher.Requests()
}
