// Copyright © 2026 PokeSearch Authors.
// SPDX-License-Identifier: MIT

package version

// Version is stamped at build time via -ldflags. The default marks a
// from-source build.
var Version = "0.0.0-dev"
