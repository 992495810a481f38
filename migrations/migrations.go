// Package migrations embeds the goose SQL migrations applied on startup.
package migrations

import "embed"

// FS holds the SQL migration files.
//
//go:embed *.sql
var FS embed.FS
