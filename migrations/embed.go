package migrations

import "embed"

// Files holds the schema migrations, applied once each in version order at startup.
//
//go:embed *.sql
var Files embed.FS
