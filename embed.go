// Package trainer exposes build-time assets that are embedded into the binary.
package trainer

import "embed"

// Migrations contains the goose SQL migrations for the application tables.
//
//go:embed migrations/*.sql
var Migrations embed.FS
