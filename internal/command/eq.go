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
)

// EqCommandAction is the action handler for the "eq" subcommand. It prints
// every root-to-leaf path of the species' evolution chain.
func EqCommandAction(ctx context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)
	log.Debugf("Executing action for %v", m.Args[1:])

	if ShortCircuitTLDR(ctx, cmd, "eq") {
		return nil
	}

	if cmd.Args().Len() != 1 {
		return fmt.Errorf("eq takes exactly one species id or name")
	}

	dex := NewDex(cmd)
	paths, err := dex.EvolutionPaths(ctx, cmd.Args().First())
	if err != nil {
		return err
	}

	if cmd.String("output") == "json" {
		return emitJSON(os.Stdout, paths)
	}
	if len(paths) == 0 {
		fmt.Println("no evolution chain")
		return nil
	}
	for _, path := range paths {
		fmt.Println(FormatPath(path))
	}
	return nil
}

// EqCommandBuilder constructs the cli.Command for "eq".
func EqCommandBuilder(cmd *cli.Command, meta meta.Meta) *cli.Command {
	return &cli.Command{
		Name:      "eq",
		Usage:     "evolution query",
		UsageText: `pokectl eq <id-or-name> [options]`,
		ArgsUsage: `<species id or name>`,
		Metadata: map[string]any{
			"meta": meta,
		},
		Flags: append([]cli.Flag{
			tldrFlag,
		}, NewGlobalFlags("eq")...),
		Action: EqCommandAction,
	}
}
