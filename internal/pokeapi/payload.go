// Copyright © 2026 PokeSearch Authors.
// SPDX-License-Identifier: Apache-2.0

package pokeapi

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/tidwall/gjson"

	"github.com/pokesearch/pokectl/internal/model"
)

// This file is the only place raw upstream JSON is interpreted. The API is
// loose with shapes (a field may be a bare string or a {name, url} object,
// numbers may be absent rather than zero), so everything funnels through
// these parsers into plain structs and nothing else touches gjson paths.

type statValue struct {
	Name  string
	Value int64
}

type creaturePayload struct {
	ID        int
	Height    *int64
	Weight    *int64
	Types     []string
	Abilities []string
	Stats     []statValue
	SpriteURL string
}

type flavorText struct {
	Language string
	Text     string
}

type speciesPayload struct {
	Flavors           []flavorText
	Color             string
	Habitat           string
	Shape             string
	Generation        string
	CaptureRate       *int
	EggGroups         []string
	EvolutionChainURL string
}

// nameOf reads a field that is either a bare string or a {name: ...} object.
func nameOf(v gjson.Result) string {
	if v.IsObject() {
		return v.Get("name").String()
	}
	return v.String()
}

// idFromURL extracts the trailing numeric path element of a resource URL,
// e.g. ".../pokemon-species/25/" yields 25. Returns 0 when the tail is not
// numeric.
func idFromURL(url string) int {
	trimmed := strings.TrimRight(url, "/")
	i := strings.LastIndex(trimmed, "/")
	if i < 0 {
		return 0
	}
	id, err := strconv.Atoi(trimmed[i+1:])
	if err != nil {
		return 0
	}
	return id
}

func parseCreature(raw []byte) creaturePayload {
	doc := gjson.ParseBytes(raw)

	var p creaturePayload
	p.ID = int(doc.Get("id").Int())
	if v := doc.Get("height"); v.Exists() {
		h := v.Int()
		p.Height = &h
	}
	if v := doc.Get("weight"); v.Exists() {
		w := v.Int()
		p.Weight = &w
	}

	doc.Get("types").ForEach(func(_, v gjson.Result) bool {
		if name := nameOf(v.Get("type")); name != "" {
			p.Types = append(p.Types, name)
		}
		return true
	})
	doc.Get("abilities").ForEach(func(_, v gjson.Result) bool {
		if name := nameOf(v.Get("ability")); name != "" {
			p.Abilities = append(p.Abilities, name)
		}
		return true
	})
	doc.Get("stats").ForEach(func(_, v gjson.Result) bool {
		name := nameOf(v.Get("stat"))
		if name == "" {
			return true
		}
		p.Stats = append(p.Stats, statValue{Name: name, Value: v.Get("base_stat").Int()})
		return true
	})

	// Sprite precedence: official artwork, then home render, then the
	// default front sprite.
	for _, path := range []string{
		"sprites.other.official-artwork.front_default",
		"sprites.other.home.front_default",
		"sprites.front_default",
	} {
		if v := doc.Get(path); v.Type == gjson.String && v.String() != "" {
			p.SpriteURL = v.String()
			break
		}
	}
	return p
}

func parseSpecies(raw []byte) speciesPayload {
	doc := gjson.ParseBytes(raw)

	var p speciesPayload
	doc.Get("flavor_text_entries").ForEach(func(_, v gjson.Result) bool {
		p.Flavors = append(p.Flavors, flavorText{
			Language: nameOf(v.Get("language")),
			Text:     v.Get("flavor_text").String(),
		})
		return true
	})

	p.Color = strings.ToLower(nameOf(doc.Get("color")))
	p.Habitat = strings.ToLower(nameOf(doc.Get("habitat")))
	p.Shape = strings.ToLower(nameOf(doc.Get("shape")))
	p.Generation = strings.ToLower(nameOf(doc.Get("generation")))

	if v := doc.Get("capture_rate"); v.Type == gjson.Number {
		rate := int(v.Int())
		p.CaptureRate = &rate
	}

	doc.Get("egg_groups").ForEach(func(_, v gjson.Result) bool {
		if name := nameOf(v); name != "" {
			p.EggGroups = append(p.EggGroups, strings.ToLower(name))
		}
		return true
	})

	p.EvolutionChainURL = doc.Get("evolution_chain.url").String()
	return p
}

// description returns the first flavor text matching locale, with newlines
// and form feeds flattened to spaces. Empty when no entry matches.
func (p speciesPayload) description(locale string) string {
	for _, f := range p.Flavors {
		if f.Language == locale {
			r := strings.NewReplacer("\n", " ", "\f", " ")
			return r.Replace(f.Text)
		}
	}
	return ""
}

func (p speciesPayload) metadata() model.SpeciesMetadata {
	return model.SpeciesMetadata{
		Color:       p.Color,
		Habitat:     p.Habitat,
		Shape:       p.Shape,
		Generation:  p.Generation,
		CaptureRate: p.CaptureRate,
		EggGroups:   p.EggGroups,
	}
}

// parseResourceList reads a paged resource listing ({count, results: [{name,
// url}]}) into index entries, deriving each id from its URL tail.
func parseResourceList(raw []byte, field string) []model.IndexEntry {
	var out []model.IndexEntry
	gjson.ParseBytes(raw).Get(field).ForEach(func(_, v gjson.Result) bool {
		out = append(out, model.IndexEntry{
			ID:   idFromURL(v.Get("url").String()),
			Name: strings.TrimSpace(v.Get("name").String()),
		})
		return true
	})
	return out
}

// parseTypeMembers reads the creature ids out of a type payload's pokemon
// membership list.
func parseTypeMembers(raw []byte) []int {
	var out []int
	gjson.ParseBytes(raw).Get("pokemon").ForEach(func(_, v gjson.Result) bool {
		out = append(out, idFromURL(v.Get("pokemon.url").String()))
		return true
	})
	return out
}

// parseChainDoc reads a whole evolution-chain payload into a tree.
func parseChainDoc(raw []byte) (*model.EvolutionNode, error) {
	chain := gjson.ParseBytes(raw).Get("chain")
	if !chain.IsObject() {
		return nil, fmt.Errorf("chain payload has no root node")
	}
	root := parseChain(chain)
	return &root, nil
}

// parseChain converts one upstream chain node and its descendants into an
// EvolutionNode tree. Chains are trees upstream too, so this terminates.
func parseChain(node gjson.Result) model.EvolutionNode {
	out := model.EvolutionNode{
		Name:   node.Get("species.name").String(),
		ID:     idFromURL(node.Get("species.url").String()),
		Detail: triggerDetail(node.Get("evolution_details.0")),
	}
	node.Get("evolves_to").ForEach(func(_, v gjson.Result) bool {
		out.Children = append(out.Children, parseChain(v))
		return true
	})
	return out
}

// triggerDetail renders the first evolution detail as a short phrase.
// Precedence: item use, then minimum level, then location, then the raw
// trigger name. Only the winning rule contributes.
func triggerDetail(detail gjson.Result) string {
	if !detail.Exists() {
		return ""
	}
	if item := nameOf(detail.Get("item")); item != "" {
		return "Use " + titleize(item)
	}
	if lvl := detail.Get("min_level"); lvl.Type == gjson.Number && lvl.Int() > 0 {
		return "Level " + strconv.FormatInt(lvl.Int(), 10)
	}
	if loc := nameOf(detail.Get("location")); loc != "" {
		return "@ " + titleize(loc)
	}
	return titleize(detail.Get("trigger.name").String())
}

// titleize turns "thunder-stone" into "Thunder Stone".
func titleize(s string) string {
	words := strings.Split(strings.ReplaceAll(s, "-", " "), " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

// capitalize upper-cases the first rune and lower-cases the rest.
func capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(strings.ToLower(s))
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
