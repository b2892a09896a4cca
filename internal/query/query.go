// Copyright © 2026 PokeSearch Authors.
// SPDX-License-Identifier: MIT

// Package query implements the shortcut-token parser and the filter/sort
// pipeline over normalized records. Everything here is pure; no I/O.
package query

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/pokesearch/pokectl/internal/model"
)

// Shortcuts holds @key:"value" directives extracted from a search string.
// Keys are lower-cased; the last occurrence of a duplicate key wins.
type Shortcuts map[string]string

var shortcutPattern = regexp.MustCompile(`@(\w+):"([^"]*)"`)

// ParseQuery extracts shortcut tokens from raw and returns the remaining
// text, trimmed, together with the collected shortcuts.
func ParseQuery(raw string) (string, Shortcuts) {
	shortcuts := Shortcuts{}
	if raw == "" {
		return "", shortcuts
	}

	cleaned := shortcutPattern.ReplaceAllStringFunc(raw, func(tok string) string {
		m := shortcutPattern.FindStringSubmatch(tok)
		shortcuts[strings.ToLower(strings.TrimSpace(m[1]))] = strings.TrimSpace(m[2])
		return " "
	})
	return strings.TrimSpace(cleaned), shortcuts
}

// textNodes yields the strings a text filter matches against.
func textNodes(r model.Record, visit func(string) bool) bool {
	if visit(r.Name) || visit(r.Category) || visit(strconv.Itoa(r.ID)) || visit(r.Description) {
		return true
	}
	for _, s := range r.Sections {
		if visit(s.Title) {
			return true
		}
		for _, item := range s.Items {
			if visit(item) {
				return true
			}
		}
	}
	return false
}

// ApplyFilters runs the three-stage pipeline: category filter, text filter,
// sort. A "category" shortcut overrides categoryFilter; both match the
// record category exactly, case-insensitively. The text filter keeps records
// where the lower-cased query is a substring of any text node. The sort
// strategy comes from the "sort" shortcut: "alphabetical" orders by
// lower-cased name, while "index", "index number", "dex", or anything else
// (including no hint at all) orders by ascending id. Ties keep input order.
func ApplyFilters(records []model.Record, query string, shortcuts Shortcuts, categoryFilter string) []model.Record {
	filtered := make([]model.Record, 0, len(records))
	filtered = append(filtered, records...)

	category := shortcuts["category"]
	if category == "" {
		category = categoryFilter
	}
	if category != "" {
		target := strings.ToLower(category)
		filtered = keep(filtered, func(r model.Record) bool {
			return strings.ToLower(r.Category) == target
		})
	}

	if query != "" {
		needle := strings.ToLower(query)
		filtered = keep(filtered, func(r model.Record) bool {
			return textNodes(r, func(text string) bool {
				return strings.Contains(strings.ToLower(text), needle)
			})
		})
	}

	if strings.ToLower(shortcuts["sort"]) == "alphabetical" {
		sort.SliceStable(filtered, func(i, j int) bool {
			return strings.ToLower(filtered[i].Name) < strings.ToLower(filtered[j].Name)
		})
	} else {
		sort.SliceStable(filtered, func(i, j int) bool {
			return filtered[i].ID < filtered[j].ID
		})
	}
	return filtered
}

func keep(records []model.Record, pred func(model.Record) bool) []model.Record {
	out := records[:0]
	for _, r := range records {
		if pred(r) {
			out = append(out, r)
		}
	}
	return out
}

// CaptureBucket is a named capture-rate range.
type CaptureBucket struct {
	Label string
	Min   int
	Max   int
}

// CaptureBuckets maps difficulty names to capture-rate ranges. "all" is the
// implicit no-op bucket and is not listed.
var CaptureBuckets = map[string]CaptureBucket{
	"very_easy":   {Label: "Very Easy (≥200)", Min: 200, Max: 255},
	"easy":        {Label: "Easy (150-199)", Min: 150, Max: 199},
	"standard":    {Label: "Standard (100-149)", Min: 100, Max: 149},
	"challenging": {Label: "Challenging (50-99)", Min: 50, Max: 99},
	"tough":       {Label: "Tough (<50)", Min: 0, Max: 49},
}

// MetadataFilter selects records by species attributes. Empty or "all"
// fields are skipped. Capture names a CaptureBuckets key; records without
// a capture rate never match a named bucket.
type MetadataFilter struct {
	Color      string
	Habitat    string
	Shape      string
	Generation string
	EggGroup   string
	Capture    string
}

// FilterByMetadata keeps the records matching every set field of f.
// Attribute values are compared lower-cased, as stored on the record.
func FilterByMetadata(records []model.Record, f MetadataFilter) []model.Record {
	out := make([]model.Record, 0, len(records))
	for _, r := range records {
		if matchesMetadata(r.Metadata, f) {
			out = append(out, r)
		}
	}
	return out
}

func matchesMetadata(m model.SpeciesMetadata, f MetadataFilter) bool {
	if !matchAttr(m.Color, f.Color) || !matchAttr(m.Habitat, f.Habitat) ||
		!matchAttr(m.Shape, f.Shape) || !matchAttr(m.Generation, f.Generation) {
		return false
	}

	if want := normalizeChoice(f.EggGroup); want != "" {
		found := false
		for _, g := range m.EggGroups {
			if g == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if want := normalizeChoice(f.Capture); want != "" {
		bucket, ok := CaptureBuckets[want]
		if !ok || m.CaptureRate == nil {
			return false
		}
		if *m.CaptureRate < bucket.Min || *m.CaptureRate > bucket.Max {
			return false
		}
	}
	return true
}

func matchAttr(have, want string) bool {
	want = normalizeChoice(want)
	return want == "" || have == want
}

// normalizeChoice lower-cases a filter value and maps the "all" sentinel
// to unset.
func normalizeChoice(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "all" {
		return ""
	}
	return v
}
