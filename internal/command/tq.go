// Copyright © 2026 PokeSearch Authors.
// SPDX-License-Identifier: MIT

package command

import (
	"context"
	"fmt"
	"os"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"

	"github.com/pokesearch/pokectl/internal/meta"
	"github.com/pokesearch/pokectl/internal/model"
)

// TqCommandAction is the action handler for the "tq" subcommand. It lists
// the members of one elemental type, joined against the species index for
// names.
func TqCommandAction(ctx context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)
	log.Debugf("Executing action for %v", m.Args[1:])

	if ShortCircuitTLDR(ctx, cmd, "tq") {
		return nil
	}

	if cmd.Args().Len() != 1 {
		return fmt.Errorf("tq takes exactly one type name")
	}
	typeName := cmd.Args().First()

	dex := NewDex(cmd)
	ids, err := dex.TypeIndex(ctx, typeName)
	if err != nil {
		return err
	}

	// Names come from the species index; ids above the species cap are
	// variant forms and carry no name there.
	names := map[int]string{}
	if index, err := dex.SpeciesIndex(ctx); err == nil {
		for _, entry := range index {
			names[entry.ID] = entry.Name
		}
	} else {
		log.WithError(err).Warn("species index unavailable, listing ids only")
	}

	if limit := cmd.Int("limit"); limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}

	members := make([]model.IndexEntry, 0, len(ids))
	for _, id := range ids {
		members = append(members, model.IndexEntry{ID: id, Name: names[id]})
	}

	if cmd.String("output") == "json" {
		return emitJSON(os.Stdout, members)
	}
	for _, member := range members {
		if member.Name != "" {
			fmt.Printf("#%04d %s\n", member.ID, member.Name)
		} else {
			fmt.Printf("#%04d\n", member.ID)
		}
	}
	return nil
}

// TqCommandBuilder constructs the cli.Command for "tq".
func TqCommandBuilder(cmd *cli.Command, meta meta.Meta) *cli.Command {
	return &cli.Command{
		Name:      "tq",
		Usage:     "type query",
		UsageText: `pokectl tq <type> [options]`,
		ArgsUsage: `<elemental type, e.g. electric>`,
		Metadata: map[string]any{
			"meta": meta,
		},
		Flags: append([]cli.Flag{
			NewLimitFlag("tq", 0),
			tldrFlag,
		}, NewGlobalFlags("tq")...),
		Action: TqCommandAction,
	}
}
