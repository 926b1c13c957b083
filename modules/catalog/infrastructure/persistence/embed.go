package persistence

import "embed"

// MigrationFS holds the goose migrations of the catalog schema under schema/.
//
//go:embed schema/*.sql
var MigrationFS embed.FS
