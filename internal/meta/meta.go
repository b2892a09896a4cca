// Copyright © 2026 PokeSearch Authors.
// SPDX-License-Identifier: MIT

package meta

import (
	"context"

	"github.com/pokesearch/pokectl/internal/config"
)

// Meta are the meta-options that are available on all or most commands.
type Meta struct {
	Args        []string
	Config      config.Type
	Context     context.Context
	StartingDir string
}
