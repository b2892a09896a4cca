// Copyright © 2026 PokeSearch Authors.
// SPDX-License-Identifier: MIT

// pokectl is the main package for the pokectl command line tool. It wires
// the CLI, delegates to internal packages, and serves as the entry point.
package main
