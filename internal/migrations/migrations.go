package migrations

import "embed"

// FS holds the schema for the Postgres quota store, applied through the
// golang-migrate iofs source.
//
//go:embed *.sql
var FS embed.FS

const Version = 1
