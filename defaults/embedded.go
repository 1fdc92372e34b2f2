// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: defaults/embedded.go
// Summary: Embedded default configuration file.
// The embedded YAML is the single source of truth for default values.

package defaults

import _ "embed"

//go:embed texelshell.yaml
var config []byte

// Config returns the embedded default configuration YAML.
func Config() []byte {
	out := make([]byte, len(config))
	copy(out, config)
	return out
}
