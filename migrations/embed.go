// Package migrations embeds the order database schema.
package migrations

import "embed"

// FS holds the *.up.sql and *.down.sql files, applied by database.Migrate.
//
//go:embed *.sql
var FS embed.FS
