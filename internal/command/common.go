// Copyright © 2026 PokeSearch Authors.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"

	"github.com/pokesearch/pokectl/internal/cache"
	"github.com/pokesearch/pokectl/internal/config"
	"github.com/pokesearch/pokectl/internal/fetch"
	"github.com/pokesearch/pokectl/internal/meta"
	"github.com/pokesearch/pokectl/internal/model"
	"github.com/pokesearch/pokectl/internal/pokeapi"
	"github.com/pokesearch/pokectl/internal/rategate"
)

// ShortCircuitTLDR checks the --tldr flag and, if present and available,
// runs `tldr pokectl <subcmd>` and returns true so the caller can exit early.
func ShortCircuitTLDR(ctx context.Context, cmd *cli.Command, subcmd string) bool {
	if cmd.Bool("tldr") {
		if _, err := exec.LookPath("tldr"); err == nil {
			c := exec.CommandContext(ctx, "tldr", "pokectl", subcmd)
			c.Stdout = os.Stdout
			c.Stderr = os.Stderr
			_ = c.Run()
		}
		return true
	}
	return false
}

// GetMeta returns the meta.Meta stored in the command's Metadata. If missing
// or of an unexpected type, it returns the zero value.
func GetMeta(cmd *cli.Command) meta.Meta {
	if cmd == nil || cmd.Metadata == nil {
		return meta.Meta{}
	}
	if m, ok := cmd.Metadata["meta"].(meta.Meta); ok {
		return m
	}
	return meta.Meta{}
}

// NewStore builds the shared cache store with TTL overrides from the
// config file.
func NewStore() *cache.Store {
	return cache.New("", cache.PolicyOptions()...)
}

// NewDex wires the full access stack behind one Dex: rate gate, fetcher,
// and cache, all configured from pokectl.yaml.
func NewDex(cmd *cli.Command) *pokeapi.Dex {
	rate, _ := config.GetInt("rate.calls", rategate.DefaultRate)
	window, _ := config.GetDuration("rate.window", rategate.DefaultWindow)
	gate := rategate.New(rate, window)
	log.Debugf("rategate: %d calls per %s", rate, window)

	var opts []pokeapi.Option
	if locale := cmd.String("locale"); locale != "" {
		opts = append(opts, pokeapi.WithLocale(locale))
	}
	return pokeapi.New(fetch.New(gate), NewStore(), opts...)
}

// EmitRecords writes records per the --output flag.
func EmitRecords(cmd *cli.Command, records []model.Record) error {
	if cmd.String("output") == "json" {
		return emitJSON(os.Stdout, records)
	}
	for i, r := range records {
		if i > 0 {
			fmt.Println()
		}
		writeRecord(os.Stdout, r)
	}
	return nil
}

// EmitRecord writes a single record per the --output flag.
func EmitRecord(cmd *cli.Command, record model.Record) error {
	if cmd.String("output") == "json" {
		return emitJSON(os.Stdout, record)
	}
	writeRecord(os.Stdout, record)
	return nil
}

func emitJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}
	return nil
}

// writeRecord renders one record in the dex card layout: header line,
// description, then each section with indented items.
func writeRecord(w io.Writer, r model.Record) {
	fmt.Fprintf(w, "%s  #%03d\n", r.Name, r.ID)
	if r.Description != "" {
		fmt.Fprintln(w, r.Description)
	}
	for _, s := range r.Sections {
		fmt.Fprintf(w, "\n%s\n", s.Title)
		for _, item := range s.Items {
			fmt.Fprintf(w, "  %s\n", item)
		}
	}
	if r.Evolution != nil {
		fmt.Fprintf(w, "\nEvolution\n")
		for _, path := range model.FlattenPaths(r.Evolution) {
			fmt.Fprintf(w, "  %s\n", FormatPath(path))
		}
	}
}

// FormatPath renders one evolution path as "a -> b (Level 16) -> c".
func FormatPath(path []model.EvolutionNode) string {
	parts := make([]string, 0, len(path))
	for _, node := range path {
		part := node.Name
		if node.Detail != "" {
			part += " (" + node.Detail + ")"
		}
		parts = append(parts, part)
	}
	return strings.Join(parts, " -> ")
}

// BuildRecords fetches records for the given index entries, skipping
// entries whose upstream data is unavailable.
func BuildRecords(ctx context.Context, dex *pokeapi.Dex, entries []model.IndexEntry) ([]model.Record, error) {
	start := time.Now()
	records := make([]model.Record, 0, len(entries))
	for _, entry := range entries {
		r, err := dex.BuildRecord(ctx, entry.ID, entry.Name)
		if err != nil {
			return nil, err
		}
		if r == nil {
			continue
		}
		records = append(records, *r)
	}
	log.Debugf("built %d/%d records in %s (%d requests)",
		len(records), len(entries), time.Since(start).Round(time.Millisecond), dex.Requests())
	return records, nil
}
