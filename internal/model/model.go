// Copyright © 2026 PokeSearch Authors.
// SPDX-License-Identifier: MIT

// Package model holds the normalized record shapes shared by the query
// engine, the normalizer, and the commands. Values are plain data owned by
// whoever asked for them; nothing in here does I/O.
package model

// Section is a titled, ordered list of display strings. Insertion order is
// significant and duplicates are allowed.
type Section struct {
	Title string   `json:"title"`
	Items []string `json:"items"`
}

// SpeciesMetadata carries the species-level attributes used by the
// metadata filters. String fields are lower-cased and empty when the
// upstream record omits them; CaptureRate is nil, not zero, when absent.
type SpeciesMetadata struct {
	Color       string   `json:"color"`
	Habitat     string   `json:"habitat"`
	Shape       string   `json:"shape"`
	Generation  string   `json:"generation"`
	CaptureRate *int     `json:"capture_rate"`
	EggGroups   []string `json:"egg_groups"`
}

// EvolutionNode is one stage in an evolution tree. Children are owned by
// value; the tree has no back-edges, so downward traversal always
// terminates.
type EvolutionNode struct {
	Name     string          `json:"name"`
	ID       int             `json:"id"`
	Detail   string          `json:"detail"`
	Children []EvolutionNode `json:"children"`
}

// Record is a fully normalized creature entry.
type Record struct {
	ID          int             `json:"index"`
	Name        string          `json:"name"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Sections    []Section       `json:"sections"`
	Sprite      string          `json:"sprite,omitempty"`
	Metadata    SpeciesMetadata `json:"metadata"`
	Evolution   *EvolutionNode  `json:"evolution_chain,omitempty"`
}

// IndexEntry is one (id, name) pair from the species index.
type IndexEntry struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// FlattenPaths walks the evolution tree depth-first and returns one linear
// path per leaf. A branching stage is visited once and shared: it sits on
// the root end of every path that runs through it.
func FlattenPaths(root *EvolutionNode) [][]EvolutionNode {
	if root == nil {
		return nil
	}

	var paths [][]EvolutionNode
	var dfs func(node EvolutionNode, trail []EvolutionNode)
	dfs = func(node EvolutionNode, trail []EvolutionNode) {
		chain := make([]EvolutionNode, len(trail), len(trail)+1)
		copy(chain, trail)
		chain = append(chain, node)

		if len(node.Children) == 0 {
			paths = append(paths, chain)
			return
		}
		for _, child := range node.Children {
			dfs(child, chain)
		}
	}

	dfs(*root, nil)
	return paths
}
