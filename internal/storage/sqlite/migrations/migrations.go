// Package migrations embeds the SQLite schema migrations for the turn
// engine store.
package migrations

import "embed"

// FS holds the ordered migration files.
//
//go:embed *.sql
var FS embed.FS
