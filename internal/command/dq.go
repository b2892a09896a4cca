// Copyright © 2026 PokeSearch Authors.
// SPDX-License-Identifier: MIT

package command

import (
	"context"
	"strconv"
	"strings"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"

	"github.com/pokesearch/pokectl/internal/meta"
	"github.com/pokesearch/pokectl/internal/model"
	"github.com/pokesearch/pokectl/internal/query"
)

// DqCommandAction is the action handler for the "dq" subcommand. It parses
// shortcut tokens out of the free-text query, selects candidate species
// from the index, builds their records, and runs the filter/sort pipeline.
func DqCommandAction(ctx context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)
	log.Debugf("Executing action for %v", m.Args[1:])

	if ShortCircuitTLDR(ctx, cmd, "dq") {
		return nil
	}

	raw := strings.Join(cmd.Args().Slice(), " ")
	text, shortcuts := query.ParseQuery(raw)
	log.Debugf("query: %q, shortcuts: %v", text, shortcuts)

	dex := NewDex(cmd)
	index, err := dex.SpeciesIndex(ctx)
	if err != nil {
		return err
	}

	limit := cmd.Int("limit")
	entries := selectCandidates(index, text, limit)
	log.Debugf("candidates: %d of %d", len(entries), len(index))

	records, err := BuildRecords(ctx, dex, entries)
	if err != nil {
		return err
	}

	records = query.FilterByMetadata(records, query.MetadataFilter{
		Color:      cmd.String("color"),
		Habitat:    cmd.String("habitat"),
		Shape:      cmd.String("shape"),
		Generation: cmd.String("generation"),
		EggGroup:   cmd.String("egg-group"),
		Capture:    cmd.String("capture"),
	})
	records = query.ApplyFilters(records, text, shortcuts, cmd.String("filter"))

	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return EmitRecords(cmd, records)
}

// selectCandidates narrows the index before any record is fetched: a
// numeric query selects that id, a textual one matches names by substring,
// and an empty one walks the index in dex order. The bound keeps a broad
// query from fetching the whole dex.
func selectCandidates(index []model.IndexEntry, text string, limit int) []model.IndexEntry {
	bound := limit
	if bound <= 0 {
		bound = len(index)
	}

	if id, err := strconv.Atoi(text); err == nil {
		for _, entry := range index {
			if entry.ID == id {
				return []model.IndexEntry{entry}
			}
		}
		return nil
	}

	needle := strings.ToLower(text)
	var out []model.IndexEntry
	for _, entry := range index {
		if needle != "" && !strings.Contains(strings.ToLower(entry.Name), needle) {
			continue
		}
		out = append(out, entry)
		if len(out) >= bound {
			break
		}
	}
	return out
}

// DqCommandBuilder constructs the cli.Command for "dq", wiring metadata,
// flags, and the action handler.
func DqCommandBuilder(cmd *cli.Command, meta meta.Meta) *cli.Command {
	return &cli.Command{
		Name:      "dq",
		Usage:     "dex query",
		UsageText: `pokectl dq [query] [options]`,
		ArgsUsage: `[query with optional @key:"value" shortcuts]`,
		Metadata: map[string]any{
			"meta": meta,
		},
		Flags: append([]cli.Flag{
			NewLimitFlag("dq", 10),
			NewLocaleFlag("dq"),
			&cli.StringFlag{
				Name:    "filter",
				Aliases: []string{"f"},
				Usage:   "category filter applied to results",
			},
			&cli.StringFlag{
				Name:  "color",
				Usage: "keep species with this color",
			},
			&cli.StringFlag{
				Name:  "habitat",
				Usage: "keep species from this habitat",
			},
			&cli.StringFlag{
				Name:  "shape",
				Usage: "keep species with this body shape",
			},
			&cli.StringFlag{
				Name:  "generation",
				Usage: "keep species from this generation (e.g. generation-i)",
			},
			&cli.StringFlag{
				Name:  "egg-group",
				Usage: "keep species in this egg group",
			},
			&cli.StringFlag{
				Name:  "capture",
				Usage: "keep species in a capture difficulty bucket (very_easy, easy, standard, challenging, tough)",
			},
			tldrFlag,
		}, NewGlobalFlags("dq")...),
		Action: DqCommandAction,
	}
}
