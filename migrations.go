// Package typowatch holds assets shared by the binaries, such as the embedded
// SQL migrations for the key-value store.
package typowatch

import "embed"

// Migrations contains the goose migrations applied by the migrate command.
//
//go:embed migrations/*.sql
var Migrations embed.FS
