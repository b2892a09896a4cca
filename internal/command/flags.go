// Copyright © 2026 PokeSearch Authors.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"fmt"
	"os/exec"

	altsrc "github.com/urfave/cli-altsrc/v3"
	yaml "github.com/urfave/cli-altsrc/v3/yaml"
	"github.com/urfave/cli/v3"

	"github.com/pokesearch/pokectl/internal/config"
)

func init() {
	cfg, _ = config.Load()
}

var (
	cfg config.Type

	tldrFlag *cli.BoolFlag = &cli.BoolFlag{
		Name:        "tldr",
		Usage:       "show tldr page",
		Hidden:      !pathHas("tldr"),
		HideDefault: true,
	}
)

// NewGlobalFlags returns the flags shared by every query subcommand.
// params[0] is the subcommand name, used to namespace config file lookups.
func NewGlobalFlags(params ...string) (flags []cli.Flag) {
	flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "output format (text or json)",
			Sources: cli.NewValueSourceChain(
				yaml.YAML(params[0]+"."+"output", altsrc.StringSourcer(cfg.Source)),
				yaml.YAML("output", altsrc.StringSourcer(cfg.Source)),
			),
			Value: "text",
			Validator: func(value string) error {
				if value != "text" && value != "json" {
					return fmt.Errorf("output must be text or json, got %q", value)
				}
				return nil
			},
		},
	}

	return
}

// NewLimitFlag constructs the per-command --limit flag with config file
// sources.
func NewLimitFlag(ns string, value int) *cli.IntFlag {
	return &cli.IntFlag{
		Name:    "limit",
		Aliases: []string{"l"},
		Usage:   "limit results returned",
		Sources: cli.NewValueSourceChain(
			yaml.YAML(ns+".limit", altsrc.StringSourcer(cfg.Source)),
			yaml.YAML("limit", altsrc.StringSourcer(cfg.Source)),
		),
		Value: value,
	}
}

// NewLocaleFlag constructs the --locale flag for flavor text selection.
func NewLocaleFlag(ns string) *cli.StringFlag {
	return &cli.StringFlag{
		Name:  "locale",
		Usage: "flavor text language",
		Sources: cli.NewValueSourceChain(
			cli.EnvVar("POKECTL_LOCALE"),
			yaml.YAML(ns+".locale", altsrc.StringSourcer(cfg.Source)),
			yaml.YAML("locale", altsrc.StringSourcer(cfg.Source)),
		),
		Value: "en",
	}
}

// pathHas checks if the given executable exists on PATH.
func pathHas(target string) bool {
	_, err := exec.LookPath(target)
	return err == nil
}
