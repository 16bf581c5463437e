package migrations

import "embed"

// FS contains embedded SQLite migrations for screen storage.
//
//go:embed *.sql
var FS embed.FS
