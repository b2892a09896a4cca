// Copyright © 2026 PokeSearch Authors.
// SPDX-License-Identifier: MIT

package command

import (
	"context"

	"github.com/apex/log"
	altsrc "github.com/urfave/cli-altsrc/v3"
	yaml "github.com/urfave/cli-altsrc/v3/yaml"
	"github.com/urfave/cli/v3"

	"github.com/pokesearch/pokectl/internal/meta"
)

// PurgeCommandAction is the action handler for the "purge" subcommand. It
// removes disk cache files older than --older-than hours.
func PurgeCommandAction(ctx context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)
	log.Debugf("Executing action for %v", m.Args[1:])

	if ShortCircuitTLDR(ctx, cmd, "purge") {
		return nil
	}

	return NewStore().Purge(cmd.Int("older-than"))
}

// PurgeCommandBuilder constructs the cli.Command for "purge".
func PurgeCommandBuilder(cmd *cli.Command, meta meta.Meta) *cli.Command {
	return &cli.Command{
		Name:      "purge",
		Usage:     "purge aged cache files",
		UsageText: `pokectl purge [options]`,
		Metadata: map[string]any{
			"meta": meta,
		},
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "older-than",
				Usage: "remove cache files older than this many hours",
				Sources: cli.NewValueSourceChain(
					yaml.YAML("purge.older-than", altsrc.StringSourcer(cfg.Source)),
					yaml.YAML("cache.clean", altsrc.StringSourcer(cfg.Source)),
				),
				Value: 720,
			},
			tldrFlag,
		},
		Action: PurgeCommandAction,
	}
}
