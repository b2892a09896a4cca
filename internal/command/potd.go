// Copyright © 2026 PokeSearch Authors.
// SPDX-License-Identifier: MIT

package command

import (
	"context"
	"fmt"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"

	"github.com/pokesearch/pokectl/internal/meta"
)

// PotdCommandAction is the action handler for the "potd" subcommand. It
// prints the record of the day: a deterministic pick from the species
// index, seeded by the UTC date unless --seed overrides it.
func PotdCommandAction(ctx context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)
	log.Debugf("Executing action for %v", m.Args[1:])

	if ShortCircuitTLDR(ctx, cmd, "potd") {
		return nil
	}

	dex := NewDex(cmd)
	record, err := dex.RecordOfTheDay(ctx, cmd.String("seed"))
	if err != nil {
		return err
	}
	if record == nil {
		return fmt.Errorf("today's pick is unavailable upstream")
	}
	return EmitRecord(cmd, *record)
}

// PotdCommandBuilder constructs the cli.Command for "potd".
func PotdCommandBuilder(cmd *cli.Command, meta meta.Meta) *cli.Command {
	return &cli.Command{
		Name:      "potd",
		Usage:     "pokemon of the day",
		UsageText: `pokectl potd [options]`,
		Metadata: map[string]any{
			"meta": meta,
		},
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:  "seed",
				Usage: "override the daily seed (any string)",
			},
			NewLocaleFlag("potd"),
			tldrFlag,
		}, NewGlobalFlags("potd")...),
		Action: PotdCommandAction,
	}
}
